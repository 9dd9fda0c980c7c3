package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"

	"github.com/solatis/condmatch/internal/rules"
)

const priceRules = `{"mode":"OR","nested":[{"mode":"AND","rules":[{"field":"price","operator":"greater_than","value":500}]},{"mode":"AND","rules":[{"field":"price","operator":"less_than","value":100},{"field":"in_stock","operator":"equals","value":false}]}]}`

func decodeResults(t *testing.T, out string) []evalResult {
	t.Helper()
	var results []evalResult
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if line == "" {
			continue
		}
		var r evalResult
		if err := json.Unmarshal([]byte(line), &r); err != nil {
			t.Fatalf("bad output line %q: %v", line, err)
		}
		results = append(results, r)
	}
	return results
}

func TestEvaluateStream(t *testing.T) {
	defer goleak.VerifyNone(t)

	m, err := rules.FromJSON([]byte(priceRules))
	if err != nil {
		t.Fatalf("FromJSON() error = %v", err)
	}

	// JSONL and concatenated documents are both accepted
	in := `{"price": 600, "in_stock": true}
{"price": 50, "in_stock": false}
{"price": 200, "in_stock": true} {"in_stock": true}
`
	tests := []struct {
		name string
		opts evalOptions
		want []evalResult
	}{
		{
			"all results",
			evalOptions{},
			[]evalResult{
				{Index: 0, Matched: true},
				{Index: 1, Matched: true},
				{Index: 2, Matched: false},
				{Index: 3, Matched: false, Error: `field "price" not found on type "object"`},
			},
		},
		{
			"only matching",
			evalOptions{onlyMatching: true, workers: 2},
			[]evalResult{
				{Index: 0, Matched: true},
				{Index: 1, Matched: true},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			matched, total, err := evaluateStream(context.Background(), m, strings.NewReader(in), &out, tt.opts)
			if err != nil {
				t.Fatalf("evaluateStream() error = %v", err)
			}
			if matched != 2 || total != 4 {
				t.Errorf("matched, total = %d, %d; want 2, 4", matched, total)
			}
			if diff := cmp.Diff(tt.want, decodeResults(t, out.String())); diff != "" {
				t.Errorf("results mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEvaluateStream_Detailed(t *testing.T) {
	m := rules.All(rules.Field("name").StartsWith("A"), rules.Field("age").Gte(18))

	var out bytes.Buffer
	if _, _, err := evaluateStream(context.Background(), m, strings.NewReader(`{"name":"Ann"}`), &out, evalOptions{detailed: true}); err != nil {
		t.Fatalf("evaluateStream() error = %v", err)
	}

	want := []evalResult{{
		Index:   0,
		Matched: false,
		Error:   `field "age" not found on type "object"`,
		Conditions: []conditionOutput{
			{Description: `field 'name' starts_with "A"`, Passed: true},
			{Description: "field 'age' greater_than_or_equal 18", Error: `field "age" not found on type "object"`},
		},
	}}
	if diff := cmp.Diff(want, decodeResults(t, out.String())); diff != "" {
		t.Errorf("results mismatch (-want +got):\n%s", diff)
	}
}

func TestEvaluateStream_ManyChunks(t *testing.T) {
	var in strings.Builder
	n := evalChunk*2 + 7
	for i := 0; i < n; i++ {
		fmt.Fprintf(&in, "{\"n\": %d}\n", i)
	}
	m := rules.All(rules.Field("n").Gte(evalChunk))

	var out bytes.Buffer
	matched, total, err := evaluateStream(context.Background(), m, strings.NewReader(in.String()), &out, evalOptions{workers: 4})
	if err != nil {
		t.Fatalf("evaluateStream() error = %v", err)
	}
	if total != n || matched != n-evalChunk {
		t.Errorf("matched, total = %d, %d; want %d, %d", matched, total, n-evalChunk, n)
	}
	results := decodeResults(t, out.String())
	for i, r := range results {
		if r.Index != i {
			t.Fatalf("result %d has index %d", i, r.Index)
		}
	}
}

func TestEvaluateStream_MalformedInput(t *testing.T) {
	m := rules.All()
	var out bytes.Buffer
	_, total, err := evaluateStream(context.Background(), m, strings.NewReader(`{"a":1} {"a":`), &out, evalOptions{})
	if err == nil || !strings.Contains(err.Error(), "subject 1") {
		t.Errorf("evaluateStream() error = %v, want error naming subject 1", err)
	}
	if total != 1 {
		t.Errorf("total = %d, want 1", total)
	}
}

func TestEvaluateStream_MalformedAfterChunks(t *testing.T) {
	tests := []struct {
		name  string
		valid int
	}{
		{"first subject", 0},
		{"within first chunk", 10},
		{"on chunk boundary", evalChunk},
		{"past first chunk", evalChunk + 44},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var in strings.Builder
			for i := 0; i < tt.valid; i++ {
				fmt.Fprintf(&in, "{\"n\": %d}\n", i)
			}
			in.WriteString("{bad\n")
			m := rules.All(rules.Field("n").Gte(0))

			var out bytes.Buffer
			matched, total, err := evaluateStream(context.Background(), m, strings.NewReader(in.String()), &out, evalOptions{workers: 4})
			want := fmt.Sprintf("subject %d", tt.valid)
			if err == nil || !strings.Contains(err.Error(), want) {
				t.Fatalf("evaluateStream() error = %v, want error naming %s", err, want)
			}
			if matched != tt.valid || total != tt.valid {
				t.Errorf("matched, total = %d, %d; want %d, %d", matched, total, tt.valid, tt.valid)
			}
			if tt.valid > 0 && !strings.HasSuffix(out.String(), "\n") {
				t.Errorf("output ends with a partial line: %q", out.String()[max(0, out.Len()-40):])
			}
			results := decodeResults(t, out.String())
			if len(results) != tt.valid {
				t.Fatalf("got %d result lines, want %d", len(results), tt.valid)
			}
			for i, r := range results {
				if r.Index != i || !r.Matched {
					t.Fatalf("result %d = %+v, want matched index %d", i, r, i)
				}
			}
		})
	}
}
