package batch

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/jmcder000/semantic-diff/internal/quote"
)

// ReadQuotes decodes a quotes file. Accepted shapes are a JSON array of
// strings, an array of {"id","text"} objects, or an object with a "quotes"
// array of either. Missing ids become q1, q2, ... by position.
func ReadQuotes(r io.Reader) ([]Quote, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read quotes: %w", err)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}

	if data[0] == '{' {
		var wrapper struct {
			Quotes json.RawMessage `json:"quotes"`
		}
		if err := json.Unmarshal(data, &wrapper); err != nil {
			return nil, fmt.Errorf("invalid quotes file: %w", err)
		}
		if len(wrapper.Quotes) == 0 {
			return nil, fmt.Errorf("invalid quotes file: missing \"quotes\" array")
		}
		data = wrapper.Quotes
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("invalid quotes file: %w", err)
	}

	quotes := make([]Quote, 0, len(raw))
	for i, elem := range raw {
		var q Quote
		var text string
		if err := json.Unmarshal(elem, &text); err == nil {
			q.Text = text
		} else if err := json.Unmarshal(elem, &q); err != nil {
			return nil, fmt.Errorf("invalid quote at index %d: %w", i, err)
		}
		if q.ID == "" {
			q.ID = "q" + strconv.Itoa(i+1)
		}
		quotes = append(quotes, q)
	}
	return quotes, nil
}

// Summary aggregates a batch run.
type Summary struct {
	Total          int            `json:"total"`
	Located        int            `json:"located"`
	Trusted        int            `json:"trusted"` // answer taken from the document
	ByMethod       map[string]int `json:"by_method"`
	MeanConfidence float64        `json:"mean_confidence"`
}

// Summarize counts located items per method. Trusted counts items whose
// confidence reaches threshold.
func Summarize(items []Item, threshold float64) Summary {
	s := Summary{Total: len(items), ByMethod: make(map[string]int)}
	var sum float64
	for _, it := range items {
		s.ByMethod[it.Method]++
		if !it.Located {
			continue
		}
		s.Located++
		sum += it.Confidence
		if it.Confidence >= threshold {
			s.Trusted++
		}
	}
	if s.Located > 0 {
		s.MeanConfidence = sum / float64(s.Located)
	}
	return s
}

// Methods returns the methods present in s in tier order, then no_match.
func (s Summary) Methods() []string {
	order := make(map[string]int, len(quote.Methods)+1)
	for i, m := range quote.Methods {
		order[string(m)] = i
	}
	order[string(quote.MethodNone)] = len(quote.Methods)

	out := make([]string, 0, len(s.ByMethod))
	for m := range s.ByMethod {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		oi, iok := order[out[i]]
		oj, jok := order[out[j]]
		if iok != jok {
			return iok
		}
		if oi != oj {
			return oi < oj
		}
		return out[i] < out[j]
	})
	return out
}
