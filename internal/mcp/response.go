package mcp

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	sderrors "github.com/jmcder000/semantic-diff/internal/errors"
)

// createJSONResponse creates a standardized JSON response for MCP tools
func createJSONResponse(data interface{}) (*mcp.CallToolResult, error) {
	content, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response data: %v", err)
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(content)},
		},
	}, nil
}

// createErrorResponse reports a tool failure inside the result with IsError
// set, so the calling model sees the failure and can correct its input.
func createErrorResponse(operation string, err error) (*mcp.CallToolResult, error) {
	errorData := map[string]interface{}{
		"success":   false,
		"error":     err.Error(),
		"operation": operation,
	}

	var le *sderrors.LocateError
	if errors.As(err, &le) {
		errorData["error_type"] = string(le.Type)
	}
	if help := getOperationHelp(operation); help != "" {
		errorData["help"] = help
	}

	response, marshalErr := createJSONResponse(errorData)
	if marshalErr != nil {
		return nil, marshalErr
	}
	response.IsError = true
	return response, nil
}

func getOperationHelp(operation string) string {
	switch operation {
	case "locate_quote":
		return `Use: {"document": "<full text>", "quote": "<text to find>", "threshold": 0.95}`
	case "locate_quotes":
		return `Use: {"document": "<full text>", "quotes": ["first", "second"]}`
	case "info":
		return `Use: {"tool": "locate_quote"} or {"tool": "version"}`
	default:
		return ""
	}
}
