package config

import (
	"fmt"
	"log"
	"strings"

	kdl "github.com/sblinch/kdl-go"
	"github.com/sblinch/kdl-go/document"
)

// parseKDL parses a KDL document over the defaults.
func parseKDL(content string) (*Config, error) {
	cfg := Default()
	if err := parseKDLInto(cfg, content); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parseKDLInto applies the nodes of a KDL document to cfg. Unknown nodes
// are ignored so old binaries accept newer files.
//
//	locate {
//	    high_confidence_threshold 0.9
//	    max_doc_len_for_dp 60000
//	    stem_tokens true
//	}
//	server {
//	    addr ":5001"
//	}
func parseKDLInto(cfg *Config, content string) error {
	doc, err := kdl.Parse(strings.NewReader(content))
	if err != nil {
		return fmt.Errorf("failed to parse KDL config: %w", err)
	}

	for _, n := range doc.Nodes {
		switch nodeName(n) {
		case "version":
			if v, ok := firstIntArg(n); ok {
				cfg.Version = v
			}
		case "locate":
			for _, cn := range n.Children {
				parseLocateNode(&cfg.Locate, cn)
			}
		case "server":
			for _, cn := range n.Children {
				parseServerNode(&cfg.Server, cn)
			}
		case "cache":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "enabled":
					if b, ok := firstBoolArg(cn); ok {
						cfg.Cache.Enabled = b
					}
				case "max_documents":
					if v, ok := firstIntArg(cn); ok {
						cfg.Cache.MaxDocuments = v
					}
				}
			}
		case "batch":
			for _, cn := range n.Children {
				if nodeName(cn) == "workers" {
					if v, ok := firstIntArg(cn); ok {
						cfg.Batch.Workers = v
					}
				}
			}
		case "logging":
			for _, cn := range n.Children {
				assignSimpleString(cn, "level", func(v string) { cfg.Logging.Level = v })
				assignSimpleString(cn, "file", func(v string) { cfg.Logging.File = v })
				if nodeName(cn) == "pretty" {
					if b, ok := firstBoolArg(cn); ok {
						cfg.Logging.Pretty = b
					}
				}
			}
		case "display":
			for _, cn := range n.Children {
				assignSimpleString(cn, "color", func(v string) { cfg.Display.Color = v })
				if nodeName(cn) == "context_window" {
					if v, ok := firstIntArg(cn); ok {
						cfg.Display.ContextWindow = v
					}
				}
			}
		}
	}

	return nil
}

func parseLocateNode(l *Locate, cn *document.Node) {
	switch nodeName(cn) {
	case "high_confidence_threshold", "threshold":
		if v, ok := firstFloatArg(cn); ok {
			l.HighConfidenceThreshold = v
		}
	case "max_doc_len_for_dp":
		if v, ok := firstIntArg(cn); ok {
			l.MaxDocLenForDP = v
		}
	case "max_query_len_for_dp":
		if v, ok := firstIntArg(cn); ok {
			l.MaxQueryLenForDP = v
		}
	case "prefer_earlier_origin":
		if b, ok := firstBoolArg(cn); ok {
			l.PreferEarlierOrigin = b
		}
	case "coverage_trials":
		if v, ok := firstIntArg(cn); ok {
			l.CoverageTrials = v
		}
	case "stem_tokens":
		if b, ok := firstBoolArg(cn); ok {
			l.StemTokens = b
		}
	case "parallel":
		if b, ok := firstBoolArg(cn); ok {
			l.Parallel = b
		}
	}
}

func parseServerNode(s *Server, cn *document.Node) {
	switch nodeName(cn) {
	case "addr":
		if v, ok := firstStringArg(cn); ok {
			s.Addr = v
		}
		// bare port numbers are accepted
		if v, ok := firstIntArg(cn); ok {
			s.Addr = fmt.Sprintf(":%d", v)
		}
	case "request_timeout_sec":
		if v, ok := firstIntArg(cn); ok {
			s.RequestTimeoutSec = v
		}
	case "shutdown_timeout_sec":
		if v, ok := firstIntArg(cn); ok {
			s.ShutdownTimeoutSec = v
		}
	case "max_body_bytes":
		if v, ok := firstIntArg(cn); ok {
			s.MaxBodyBytes = int64(v)
		}
		if str, ok := firstStringArg(cn); ok {
			if sz, err := parseSize(str); err == nil {
				s.MaxBodyBytes = sz
			}
		}
	case "max_quotes_per_request":
		if v, ok := firstIntArg(cn); ok {
			s.MaxQuotesPerRequest = v
		}
	case "enable_metrics":
		if b, ok := firstBoolArg(cn); ok {
			s.EnableMetrics = b
		}
	}
}

func nodeName(n *document.Node) string {
	if n == nil || n.Name == nil {
		return ""
	}
	return n.Name.NodeNameString()
}

func firstIntArg(n *document.Node) (int, bool) {
	if len(n.Arguments) == 0 {
		return 0, false
	}
	switch v := n.Arguments[0].Value.(type) {
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

func firstStringArg(n *document.Node) (string, bool) {
	if len(n.Arguments) == 0 {
		return "", false
	}
	if s, ok := n.Arguments[0].Value.(string); ok {
		return s, true
	}
	return "", false
}

func firstBoolArg(n *document.Node) (bool, bool) {
	if len(n.Arguments) == 0 {
		return false, false
	}
	if b, ok := n.Arguments[0].Value.(bool); ok {
		return b, true
	}
	return false, false
}

func firstFloatArg(n *document.Node) (float64, bool) {
	if len(n.Arguments) == 0 {
		return 0, false
	}
	switch v := n.Arguments[0].Value.(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	default:
		log.Printf("WARNING: invalid float value for '%s' in KDL config, expected number but got %T", nodeName(n), n.Arguments[0].Value)
		return 0, false
	}
}

func assignSimpleString(n *document.Node, target string, set func(string)) {
	if nodeName(n) == target {
		if s, ok := firstStringArg(n); ok {
			set(s)
		}
	}
}

// parseSize handles size strings like "10MB", "500KB", "1GB"
func parseSize(s string) (int64, error) {
	s = strings.ToUpper(strings.TrimSpace(s))

	var multiplier int64 = 1
	numStr := s

	switch {
	case strings.HasSuffix(s, "GB"):
		multiplier = 1 << 30
		numStr = strings.TrimSuffix(s, "GB")
	case strings.HasSuffix(s, "MB"):
		multiplier = 1 << 20
		numStr = strings.TrimSuffix(s, "MB")
	case strings.HasSuffix(s, "KB"):
		multiplier = 1 << 10
		numStr = strings.TrimSuffix(s, "KB")
	case strings.HasSuffix(s, "B"):
		numStr = strings.TrimSuffix(s, "B")
	}

	var num int64
	if _, err := fmt.Sscanf(strings.TrimSpace(numStr), "%d", &num); err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	return num * multiplier, nil
}
