package batch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
)

func TestParseStringOrArray(t *testing.T) {
	tests := []struct {
		name    string
		param   interface{}
		want    []string
		wantErr bool
	}{
		{
			name:  "single message id",
			param: "msg-1",
			want:  []string{"msg-1"},
		},
		{
			name:  "array of ids",
			param: []interface{}{"msg-1", "msg-2", "msg-3"},
			want:  []string{"msg-1", "msg-2", "msg-3"},
		},
		{
			name:    "nil",
			param:   nil,
			wantErr: true,
		},
		{
			name:    "empty string",
			param:   "",
			wantErr: true,
		},
		{
			name:    "empty array",
			param:   []interface{}{},
			wantErr: true,
		},
		{
			name:    "array with empty element",
			param:   []interface{}{"msg-1", ""},
			wantErr: true,
		},
		{
			name:    "array with non-string element",
			param:   []interface{}{"msg-1", 42},
			wantErr: true,
		},
		{
			name:    "number",
			param:   42,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseStringOrArray(tt.param, "messageIds")
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseStringOrArray(%v) expected error, got %v", tt.param, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseStringOrArray(%v) error = %v", tt.param, err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("ParseStringOrArray(%v) = %v, want %v", tt.param, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("ParseStringOrArray(%v)[%d] = %q, want %q", tt.param, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestProcessBatch(t *testing.T) {
	ids := []string{"msg-1", "msg-2", "msg-3"}

	results := ProcessBatch(context.Background(), ids, func(id string) (string, error) {
		if id == "msg-2" {
			return "", errors.New("not found")
		}
		return "moved " + id, nil
	})

	if len(results) != 3 {
		t.Fatalf("ProcessBatch returned %d results, want 3", len(results))
	}
	if results[0].Status != "success" || results[0].Result != "moved msg-1" {
		t.Errorf("results[0] = %+v", results[0])
	}
	if results[1].Status != "error" || results[1].Error != "not found" {
		t.Errorf("results[1] = %+v", results[1])
	}
	if results[2].Status != "success" {
		t.Errorf("results[2] = %+v", results[2])
	}
}

func TestProcessBatch_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	results := ProcessBatch(ctx, []string{"msg-1", "msg-2", "msg-3"}, func(id string) (string, error) {
		calls++
		if id == "msg-1" {
			cancel()
		}
		return "moved " + id, nil
	})

	if calls != 1 {
		t.Errorf("expected 1 call before cancellation, got %d", calls)
	}
	if len(results) != 3 {
		t.Fatalf("ProcessBatch returned %d results, want 3", len(results))
	}
	if results[0].Status != "success" {
		t.Errorf("results[0] = %+v", results[0])
	}
	for i := 1; i < 3; i++ {
		if results[i].Status != "error" {
			t.Errorf("results[%d].Status = %q, want error", i, results[i].Status)
		}
		if results[i].Error == "" {
			t.Errorf("results[%d] missing cancellation detail", i)
		}
	}
}

func TestProcessBatch_Empty(t *testing.T) {
	results := ProcessBatch(context.Background(), nil, func(id string) (string, error) {
		t.Fatal("fn should not be called for an empty batch")
		return "", nil
	})
	if len(results) != 0 {
		t.Errorf("ProcessBatch(nil) = %v, want empty", results)
	}
}

func TestFormatResults(t *testing.T) {
	results := []Result{
		{ID: "msg-1", Status: "success", Result: "moved"},
		{ID: "msg-2", Status: "error", Error: "not found"},
		{ID: "msg-3", Status: "success", Result: "moved"},
	}

	formatted := FormatResults(results)

	var summary Summary
	if err := json.Unmarshal([]byte(formatted), &summary); err != nil {
		t.Fatalf("FormatResults produced invalid JSON: %v", err)
	}
	if summary.Total != 3 {
		t.Errorf("Total = %d, want 3", summary.Total)
	}
	if summary.Successful != 2 {
		t.Errorf("Successful = %d, want 2", summary.Successful)
	}
	if summary.Failed != 1 {
		t.Errorf("Failed = %d, want 1", summary.Failed)
	}
	if len(summary.Results) != 3 {
		t.Errorf("Results has %d entries, want 3", len(summary.Results))
	}
}

func TestFormatResults_Empty(t *testing.T) {
	formatted := FormatResults(nil)

	var summary Summary
	if err := json.Unmarshal([]byte(formatted), &summary); err != nil {
		t.Fatalf("FormatResults produced invalid JSON: %v", err)
	}
	if summary.Total != 0 || summary.Successful != 0 || summary.Failed != 0 {
		t.Errorf("empty batch summary = %+v", summary)
	}
}

func ExampleFormatResults() {
	results := ProcessBatch(context.Background(), []string{"msg-1"}, func(id string) (string, error) {
		return "moved to Archive", nil
	})
	fmt.Println(FormatResults(results))
	// Output:
	// {
	//   "total": 1,
	//   "successful": 1,
	//   "failed": 0,
	//   "results": [
	//     {
	//       "id": "msg-1",
	//       "status": "success",
	//       "result": "moved to Archive"
	//     }
	//   ]
	// }
}
