package batch

import (
	"context"
	"encoding/json"
	"fmt"
)

// Result is the outcome of one item in a batch of mailbox operations.
type Result struct {
	ID     string `json:"id"`
	Status string `json:"status"` // "success" or "error"
	Result string `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Summary aggregates per-item results so callers see at a glance how much of
// the batch went through.
type Summary struct {
	Total      int      `json:"total"`
	Successful int      `json:"successful"`
	Failed     int      `json:"failed"`
	Results    []Result `json:"results"`
}

// ParseStringOrArray accepts a tool argument that is either one ID or an
// array of IDs. MCP clients send both shapes for the same parameter.
func ParseStringOrArray(param interface{}, paramName string) ([]string, error) {
	if param == nil {
		return nil, fmt.Errorf("%s is required", paramName)
	}

	switch v := param.(type) {
	case string:
		if v == "" {
			return nil, fmt.Errorf("%s cannot be empty", paramName)
		}
		return []string{v}, nil
	case []interface{}:
		if len(v) == 0 {
			return nil, fmt.Errorf("%s cannot be empty", paramName)
		}
		ids := make([]string, 0, len(v))
		for i, item := range v {
			id, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%s[%d] must be a string", paramName, i)
			}
			if id == "" {
				return nil, fmt.Errorf("%s[%d] cannot be empty", paramName, i)
			}
			ids = append(ids, id)
		}
		return ids, nil
	default:
		return nil, fmt.Errorf("%s must be a string or array of strings", paramName)
	}
}

// ProcessBatch runs fn once per ID, sequentially, and collects per-item
// outcomes. Each fn call is one or more Graph requests, so when ctx is
// cancelled the remaining items are not attempted; they are reported as
// errors carrying the cancellation cause.
func ProcessBatch(ctx context.Context, ids []string, fn func(id string) (string, error)) []Result {
	results := make([]Result, 0, len(ids))

	for i, id := range ids {
		if err := ctx.Err(); err != nil {
			for _, skipped := range ids[i:] {
				results = append(results, Result{
					ID:     skipped,
					Status: "error",
					Error:  fmt.Sprintf("not attempted: %v", err),
				})
			}
			break
		}

		res, err := fn(id)
		if err != nil {
			results = append(results, Result{ID: id, Status: "error", Error: err.Error()})
			continue
		}
		results = append(results, Result{ID: id, Status: "success", Result: res})
	}

	return results
}

// FormatResults renders the batch outcome as indented JSON. Assistants parse
// this to report partial failures item by item.
func FormatResults(results []Result) string {
	summary := Summary{
		Total:   len(results),
		Results: results,
	}
	for _, r := range results {
		if r.Status == "success" {
			summary.Successful++
		} else {
			summary.Failed++
		}
	}

	data, _ := json.MarshalIndent(summary, "", "  ")
	return string(data)
}
