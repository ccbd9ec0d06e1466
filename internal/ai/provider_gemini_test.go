package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

type fakeGeminiModels struct {
	calls   []string
	configs []*genai.GenerateContentConfig
	reply   func(model string) (*genai.GenerateContentResponse, error)
}

func (f *fakeGeminiModels) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.calls = append(f.calls, model)
	f.configs = append(f.configs, config)
	return f.reply(model)
}

func geminiText(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{
				Role: genai.RoleModel,
				Parts: []*genai.Part{
					{Text: "planning the answer", Thought: true},
					{Text: text},
				},
			},
			FinishReason: genai.FinishReasonStop,
		}},
		UsageMetadata: &genai.GenerateContentResponseUsageMetadata{
			PromptTokenCount:     120,
			CandidatesTokenCount: 30,
			ThoughtsTokenCount:   10,
		},
	}
}

func TestGemini_SuccessSkipsThoughtParts(t *testing.T) {
	fake := &fakeGeminiModels{reply: func(string) (*genai.GenerateContentResponse, error) {
		return geminiText(`{"score": 9}`), nil
	}}
	p := newGeminiProvider(fake, AdapterOptions{Models: []string{"gemini-2.5-flash"}, Temperature: 0.4})

	resp := p.Complete(context.Background(), cvRequest())

	require.True(t, resp.Success, resp.Error)
	assert.Equal(t, `{"score": 9}`, resp.RawText)
	assert.Equal(t, map[string]any{"score": float64(9)}, resp.Data)
	assert.Equal(t, 120, resp.InputTokens)
	assert.Equal(t, 40, resp.OutputTokens)
	assert.Equal(t, ProviderGemini, resp.Provider)

	require.Len(t, fake.configs, 1)
	cfg := fake.configs[0]
	assert.Equal(t, "application/json", cfg.ResponseMIMEType)
	require.NotNil(t, cfg.Temperature)
	assert.InDelta(t, 0.4, *cfg.Temperature, 1e-6)
	assert.Equal(t, int32(8192), cfg.MaxOutputTokens)
}

func TestGemini_SafetyFinishFallsToNextModel(t *testing.T) {
	fake := &fakeGeminiModels{reply: func(model string) (*genai.GenerateContentResponse, error) {
		if model == "gemini-2.5-flash" {
			return &genai.GenerateContentResponse{
				Candidates: []*genai.Candidate{{
					FinishReason: genai.FinishReasonSafety,
					SafetyRatings: []*genai.SafetyRating{
						{Category: genai.HarmCategoryHarassment, Probability: genai.HarmProbabilityLow},
						{Category: genai.HarmCategoryDangerousContent, Blocked: true},
					},
				}},
			}, nil
		}
		return geminiText(`{"ok": true}`), nil
	}}
	p := newGeminiProvider(fake, AdapterOptions{Models: []string{"gemini-2.5-flash", "gemini-2.5-pro"}})

	resp := p.Complete(context.Background(), cvRequest())

	require.True(t, resp.Success, resp.Error)
	assert.Equal(t, "gemini-2.5-pro", resp.Model)
	assert.Equal(t, []string{"gemini-2.5-flash", "gemini-2.5-pro"}, fake.calls)
}

func TestGemini_PromptBlockNamesCategory(t *testing.T) {
	fake := &fakeGeminiModels{reply: func(string) (*genai.GenerateContentResponse, error) {
		return &genai.GenerateContentResponse{
			PromptFeedback: &genai.GenerateContentResponsePromptFeedback{
				BlockReason: genai.BlockedReasonSafety,
				SafetyRatings: []*genai.SafetyRating{
					{Category: genai.HarmCategorySexuallyExplicit, Probability: genai.HarmProbabilityHigh},
				},
			},
		}, nil
	}}
	p := newGeminiProvider(fake, AdapterOptions{Models: []string{"gemini-2.5-flash"}})

	resp := p.Complete(context.Background(), cvRequest())

	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, string(genai.HarmCategorySexuallyExplicit))
}

func TestGemini_NotFoundAdvancesModel(t *testing.T) {
	fake := &fakeGeminiModels{reply: func(model string) (*genai.GenerateContentResponse, error) {
		if model == "gemini-1.0-pro" {
			return nil, errors.New("Error 404, Message: models/gemini-1.0-pro is not found for API version v1beta, Status: NOT_FOUND")
		}
		return geminiText("summary text"), nil
	}}
	p := newGeminiProvider(fake, AdapterOptions{Models: []string{"gemini-1.0-pro", "gemini-2.0-flash"}})

	resp := p.Complete(context.Background(), Request{PromptType: PromptSummary, Template: "Summarize"})

	require.True(t, resp.Success, resp.Error)
	assert.Equal(t, "gemini-2.0-flash", resp.Model)
	assert.Empty(t, fake.configs[1].ResponseMIMEType, "text prompts do not force JSON")
}

func TestGemini_TransientErrorFails(t *testing.T) {
	fake := &fakeGeminiModels{reply: func(string) (*genai.GenerateContentResponse, error) {
		return nil, errors.New("Error 503, Message: The model is overloaded, Status: UNAVAILABLE")
	}}
	p := newGeminiProvider(fake, AdapterOptions{Models: []string{"a", "b"}})

	resp := p.Complete(context.Background(), cvRequest())

	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "overloaded")
	assert.Equal(t, []string{"a"}, fake.calls)
}

func TestNewGeminiProvider_RequiresKey(t *testing.T) {
	_, err := NewGeminiProvider(context.Background(), GeminiConfig{}, AdapterOptions{})
	assert.Error(t, err)
}
