package ai

import (
	"slices"
	"testing"
)

func TestRenderTemplate(t *testing.T) {
	tests := []struct {
		name string
		tmpl string
		vars map[string]any
		want string
	}{
		{
			name: "string substitution",
			tmpl: "Analyze {cv_text} for {job_title}.",
			vars: map[string]any{"cv_text": "CV", "job_title": "Go Engineer"},
			want: "Analyze CV for Go Engineer.",
		},
		{
			name: "repeated placeholder",
			tmpl: "{name} and {name}",
			vars: map[string]any{"name": "x"},
			want: "x and x",
		},
		{
			name: "missing variable left as is",
			tmpl: "Hello {name}, score {score}",
			vars: map[string]any{"name": "Ana"},
			want: "Hello Ana, score {score}",
		},
		{
			name: "non-string values",
			tmpl: "{n} {f} {b} {nil}",
			vars: map[string]any{"n": 3, "f": 0.5, "b": true, "nil": nil},
			want: "3 0.5 true ",
		},
		{
			name: "maps and slices as JSON",
			tmpl: "weights={w} skills={s}",
			vars: map[string]any{
				"w": map[string]any{"tech": 60},
				"s": []string{"go", "sql"},
			},
			want: `weights={"tech":60} skills=["go","sql"]`,
		},
		{
			name: "substituted values are not rescanned",
			tmpl: "{a}|{b}",
			vars: map[string]any{"a": "{b}", "b": "B"},
			want: "{b}|B",
		},
		{
			name: "no variables",
			tmpl: "static {text}",
			want: "static {text}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RenderTemplate(tt.tmpl, tt.vars); got != tt.want {
				t.Errorf("RenderTemplate() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPromptType_IsJSON(t *testing.T) {
	jsonTypes := map[PromptType]bool{
		PromptCVExtraction:            true,
		PromptJobPostingNormalization: true,
		PromptInterviewerAnalysis:     true,
		PromptCandidateAnalysis:       true,
		PromptWeightingRecommendation: true,
		PromptExecutiveRecommendation: true,
		PromptChatbotExtraction:       true,
	}
	for _, pt := range AllPromptTypes() {
		if got := pt.IsJSON(); got != jsonTypes[pt] {
			t.Errorf("%s.IsJSON() = %v, want %v", pt, got, jsonTypes[pt])
		}
	}
}

func TestParseProviderName(t *testing.T) {
	cases := map[string]ProviderName{
		"gemini":    ProviderGemini,
		"Google":    ProviderGemini,
		"anthropic": ProviderClaude,
		" claude ":  ProviderClaude,
		"moonshot":  ProviderKimi,
		"MINIMAX":   ProviderMinimax,
		"openai":    ProviderOpenAI,
	}
	for in, want := range cases {
		got, err := ParseProviderName(in)
		if err != nil || got != want {
			t.Errorf("ParseProviderName(%q) = (%q, %v), want %q", in, got, err, want)
		}
	}
	if _, err := ParseProviderName("zai"); err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestParsePromptType(t *testing.T) {
	if pt, err := ParsePromptType("CV_Extraction"); err != nil || pt != PromptCVExtraction {
		t.Errorf("ParsePromptType = (%q, %v)", pt, err)
	}
	if _, err := ParsePromptType("poetry"); err == nil {
		t.Error("expected error for unknown prompt type")
	}
}

func TestLanguageName(t *testing.T) {
	cases := map[string]string{
		"":      "English",
		"en":    "English",
		"PT":    "Portuguese",
		"pt-BR": "Portuguese",
		"es":    "Spanish",
		"fr":    "French",
		"de":    "de",
	}
	for in, want := range cases {
		if got := LanguageName(in); got != want {
			t.Errorf("LanguageName(%q) = %q, want %q", in, got, want)
		}
	}
	if got := SupportedLanguages(); !slices.Equal(got, []string{"en", "es", "fr", "pt"}) {
		t.Errorf("SupportedLanguages() = %v", got)
	}
}
