package ai

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestParseJSONReply(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    map[string]any
		wantErr bool
	}{
		{
			name:  "json fence",
			input: "Here you go:\n```json\n{\"score\": 4, \"notes\": \"ok\"}\n```\nThanks",
			want:  map[string]any{"score": float64(4), "notes": "ok"},
		},
		{
			name:  "bare fence",
			input: "```\n{\"a\": true}\n```",
			want:  map[string]any{"a": true},
		},
		{
			name:  "plain object",
			input: `{"name": "Ana", "skills": ["go", "sql"]}`,
			want:  map[string]any{"name": "Ana", "skills": []any{"go", "sql"}},
		},
		{
			name:  "doubled braces",
			input: `{{"x": 1}}`,
			want:  map[string]any{"x": float64(1)},
		},
		{
			name:  "nested objects keep closing braces",
			input: `{"a": {"b": {"c": 1}}}`,
			want:  map[string]any{"a": map[string]any{"b": map[string]any{"c": float64(1)}}},
		},
		{
			name:  "prose around object",
			input: `Sure! The result is {"score": 7, "reason": "uses {braces} in text"} as requested.`,
			want:  map[string]any{"score": float64(7), "reason": "uses {braces} in text"},
		},
		{
			name:  "bracket inside string does not end span",
			input: `answer: {"quote": "a } b ] c", "n": 2}`,
			want:  map[string]any{"quote": "a } b ] c", "n": float64(2)},
		},
		{
			name:  "escaped quote inside string",
			input: `x {"q": "he said \"}\" loudly"} y`,
			want:  map[string]any{"q": `he said "}" loudly`},
		},
		{
			name:  "first span invalid, second valid",
			input: `{not json} then {"ok": 1}`,
			want:  map[string]any{"ok": float64(1)},
		},
		{
			name:  "top level array wrapped",
			input: "```json\n[{\"skill\": \"go\"}, {\"skill\": \"sql\"}]\n```",
			want: map[string]any{"items": []any{
				map[string]any{"skill": "go"},
				map[string]any{"skill": "sql"},
			}},
		},
		{
			name:  "fence with prose inside",
			input: "```json\nResult:\n{\"k\": \"v\"}\n```",
			want:  map[string]any{"k": "v"},
		},
		{
			name:  "unterminated fence",
			input: "```json\n{\"k\": 1}",
			want:  map[string]any{"k": float64(1)},
		},
		{
			name:    "truncated reply does not yield an inner object",
			input:   "```json\n{\"name\": \"Ana\", \"experience\": [{\"company\": \"A\", \"title\": \"Dev\"}, {\"company\": \"B\"",
			wantErr: true,
		},
		{
			name:    "truncated unfenced reply",
			input:   `{"summary": {"fit": "strong"}, "scores": [1, 2`,
			wantErr: true,
		},
		{
			name:  "invalid span's inner object is skipped",
			input: `{note: {"inner": 1}} then {"ok": 1}`,
			want:  map[string]any{"ok": float64(1)},
		},
		{
			name:    "malformed",
			input:   `{"score": 4, "notes": }`,
			wantErr: true,
		},
		{
			name:    "no json",
			input:   "I cannot help with that.",
			wantErr: true,
		},
		{
			name:    "scalar",
			input:   "42",
			wantErr: true,
		},
		{
			name:    "empty",
			input:   "   ",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseJSONReply(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %v", got)
				}
				if !errors.Is(err, ErrNoJSON) {
					t.Errorf("error %v does not wrap ErrNoJSON", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParseJSONReply mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestStripFences(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		fenced bool
	}{
		{"```json\n{}\n```", "{}", true},
		{"```JSON\n[1]\n```", "[1]", true},
		{"```json {\"a\":1}```", "{\"a\":1}", true},
		{"no fence", "no fence", false},
	}
	for _, tt := range tests {
		got, fenced := StripFences(tt.in)
		if got != tt.want || fenced != tt.fenced {
			t.Errorf("StripFences(%q) = (%q, %v), want (%q, %v)", tt.in, got, fenced, tt.want, tt.fenced)
		}
	}
}

func TestNormalizeBraces(t *testing.T) {
	if got := NormalizeBraces(`{{"x": {{"y": 1}}}}`); got != `{"x": {"y": 1}}` {
		t.Errorf("NormalizeBraces = %q", got)
	}
}

func TestFindBalancedJSON(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{`pre {"a": [1, 2]} post`, `{"a": [1, 2]}`, true},
		{`list: [1, {"b": 2}] end`, `[1, {"b": 2}]`, true},
		{`broken {"a": 1`, "", false},
		{`mismatch {"a": 1] {"b": 2}`, `{"b": 2}`, true},
		{`nothing here`, "", false},
	}
	for _, tt := range tests {
		got, ok := FindBalancedJSON(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("FindBalancedJSON(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestFindJSONSpan_SkipsInvalidSpans(t *testing.T) {
	reasoning := `Let me think {step 1} about it. Final answer: {"match": 82}`
	got, ok := FindJSONSpan(reasoning)
	if !ok || got != `{"match": 82}` {
		t.Fatalf("FindJSONSpan = (%q, %v)", got, ok)
	}
}

func TestFindJSONSpan_LargeUnbalancedInputIsLinear(t *testing.T) {
	input := `{"a": "x` + strings.Repeat("{", 200000)

	start := time.Now()
	_, ok := FindJSONSpan(input)
	elapsed := time.Since(start)

	if ok {
		t.Fatal("expected no span in unbalanced input")
	}
	if elapsed > time.Second {
		t.Errorf("FindJSONSpan took %v on %d bytes", elapsed, len(input))
	}
	if _, err := ParseJSONReply(input); !errors.Is(err, ErrNoJSON) {
		t.Errorf("ParseJSONReply error = %v, want ErrNoJSON", err)
	}
}

func TestFindJSONSpan_ManyUnclosedBracketsInProse(t *testing.T) {
	input := strings.Repeat("see [note ", 50000)

	start := time.Now()
	_, ok := FindJSONSpan(input)
	if ok {
		t.Fatal("expected no span")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("FindJSONSpan took %v on %d bytes", elapsed, len(input))
	}
}
