package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
)

// Provider is the uniform interface over one AI vendor.
// Complete and ExtractStructuredData never panic and never return an
// error value: failures come back as a Response with Success=false.
type Provider interface {
	Name() ProviderName
	// Models returns the ranked candidate models.
	Models() []string
	Complete(ctx context.Context, req Request) Response
	ExtractStructuredData(ctx context.Context, text string, schema map[string]any, language string) Response
	// WithModel returns a provider sharing the same client with model
	// pinned at the head of its candidate list.
	WithModel(model string) Provider
}

// generateCall is one vendor call for one concrete model.
type generateCall struct {
	Model       string
	Prompt      string
	MaxTokens   int
	Temperature float64
	// FixedTemperature asks the backend to omit temperature entirely.
	FixedTemperature bool
	JSONMode         bool
}

// generation is a vendor reply reduced to what the adapter needs.
type generation struct {
	Text         string
	Reasoning    string
	Model        string
	InputTokens  int
	OutputTokens int
	FinishReason string
}

// backend performs the vendor-specific request for a single model.
type backend interface {
	generate(ctx context.Context, call generateCall) (*generation, error)
}

// AdapterOptions carries the pieces shared by every vendor adapter.
type AdapterOptions struct {
	// Models is the configured candidate list; empty uses compiled-in defaults.
	Models []string
	// Temperature is used when a request does not set one.
	Temperature float64
	Pricer      *Pricer
	Tokens      *TokenEstimator
	Logger      *zap.Logger
	// APILogger receives per-request vendor traffic logs; Logger if nil.
	APILogger *zap.Logger
}

func (o AdapterOptions) apiLogger() *zap.Logger {
	if o.APILogger != nil {
		return o.APILogger
	}
	if o.Logger != nil {
		return o.Logger
	}
	return zap.NewNop()
}

// adapter implements Provider on top of a backend.
type adapter struct {
	name        ProviderName
	backend     backend
	configured  []string
	candidates  *modelCandidates
	pricer      *Pricer
	tokens      *TokenEstimator
	temperature float64
	logger      *zap.Logger
}

func newAdapter(name ProviderName, b backend, opts AdapterOptions) *adapter {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	tokens := opts.Tokens
	if tokens == nil {
		tokens = &TokenEstimator{}
	}
	return &adapter{
		name:        name,
		backend:     b,
		configured:  append([]string(nil), opts.Models...),
		candidates:  newModelCandidates(name, "", opts.Models),
		pricer:      opts.Pricer,
		tokens:      tokens,
		temperature: opts.Temperature,
		logger:      logger.With(zap.String("provider", string(name))),
	}
}

func (a *adapter) Name() ProviderName { return a.name }

func (a *adapter) Models() []string { return a.candidates.all() }

func (a *adapter) WithModel(model string) Provider {
	if model == "" {
		return a
	}
	clone := *a
	clone.candidates = newModelCandidates(a.name, model, a.configured)
	return &clone
}

// Complete renders the request, walks the candidate models and returns the
// first successful reply.
func (a *adapter) Complete(ctx context.Context, req Request) (resp Response) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("adapter panic recovered", zap.Any("panic", r))
			resp = failure(a.name, a.candidates.primary(), fmt.Sprintf("%s adapter panic: %v", a.name, r))
			resp.LatencyMS = time.Since(start).Milliseconds()
		}
	}()

	prompt := RenderTemplate(req.Template, req.Variables)
	if strings.TrimSpace(prompt) == "" {
		return failure(a.name, a.candidates.primary(), "empty prompt")
	}

	temperature := a.temperature
	if req.Temperature != nil {
		temperature = *req.Temperature
	}

	models := a.candidates.attemptOrder()
	if len(models) == 0 {
		return failure(a.name, "", "no candidate models configured")
	}

	var lastErr error
	lastModel := models[0]
	for _, model := range models {
		if err := ctx.Err(); err != nil {
			lastErr = err
			break
		}
		lastModel = model
		limits := LookupModelLimits(a.name, model)
		call := generateCall{
			Model:            model,
			Prompt:           prompt,
			MaxTokens:        ResolveMaxTokens(a.name, model, req.MaxTokens),
			Temperature:      temperature,
			FixedTemperature: limits.FixedTemperature,
			JSONMode:         req.PromptType.IsJSON(),
		}

		gen, err := a.backend.generate(ctx, call)
		if err == nil {
			err = a.resolveText(gen)
		}
		if err == nil {
			return a.buildResponse(ctx, req, call, gen, start)
		}
		lastErr = err

		if sb, ok := asSafetyBlock(err); ok {
			a.logger.Warn("safety filter blocked model, trying next candidate",
				zap.String("model", model),
				zap.String("category", sb.Category))
			continue
		}
		if isModelUnavailable(err) {
			a.candidates.markUnavailable(model)
			a.logger.Warn("model unavailable, advancing candidate",
				zap.String("model", model),
				zap.Error(err))
			continue
		}

		a.logger.Warn("provider call failed",
			zap.String("model", model),
			zap.Error(err))
		break
	}

	resp = failure(a.name, lastModel, a.describeFailure(lastErr))
	resp.LatencyMS = time.Since(start).Milliseconds()
	return resp
}

// resolveText recovers the answer from the reasoning field when a thinking
// model left the primary content empty.
func (a *adapter) resolveText(gen *generation) error {
	if gen == nil {
		return ErrEmptyResponse
	}
	if strings.TrimSpace(gen.Text) != "" {
		return nil
	}
	if gen.Reasoning != "" {
		if span, ok := FindJSONSpan(gen.Reasoning); ok {
			a.logger.Debug("recovered JSON from reasoning content", zap.String("model", gen.Model))
			gen.Text = span
			return nil
		}
		return fmt.Errorf("%w: answer missing from content and reasoning", ErrEmptyResponse)
	}
	return ErrEmptyResponse
}

func (a *adapter) describeFailure(err error) string {
	if err == nil {
		return fmt.Sprintf("%s: no candidate model succeeded", a.name)
	}
	if sb, ok := asSafetyBlock(err); ok {
		return fmt.Sprintf("%s: all candidate models rejected the request: %s", a.name, sb.Error())
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Sprintf("%s: request aborted: %v", a.name, err)
	}
	return fmt.Sprintf("%s: %v", a.name, err)
}

func (a *adapter) buildResponse(ctx context.Context, req Request, call generateCall, gen *generation, start time.Time) Response {
	model := gen.Model
	if model == "" {
		model = call.Model
	}

	inputTokens := gen.InputTokens
	if inputTokens == 0 {
		inputTokens = a.tokens.Estimate(call.Prompt)
	}
	outputTokens := gen.OutputTokens
	if outputTokens == 0 {
		outputTokens = a.tokens.Estimate(gen.Text)
	}

	resp := Response{
		Success:      true,
		RawText:      gen.Text,
		Provider:     a.name,
		Model:        model,
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
		LatencyMS:    time.Since(start).Milliseconds(),
		CostUSD:      a.pricer.Cost(ctx, a.name, model, inputTokens, outputTokens),
	}

	if req.PromptType.IsJSON() {
		data, err := ParseJSONReply(gen.Text)
		if err != nil {
			a.logger.Warn("reply is not valid JSON, returning raw text",
				zap.String("model", model),
				zap.String("prompt_type", string(req.PromptType)),
				zap.String("raw_text", truncate(gen.Text, 2000)),
				zap.Error(err))
		} else {
			resp.Data = data
		}
	}

	return resp
}

// extractionTemplate drives ExtractStructuredData.
const extractionTemplate = `You are a precise data extraction engine.
Extract the information from the document below so that it matches this JSON schema:

{schema}

Rules:
- Respond with a single JSON object and nothing else.
- Use null for fields that are not present in the document.
- Do not invent information.
- Write free-text values in {language}.

Document:
"""
{text}
"""`

func (a *adapter) ExtractStructuredData(ctx context.Context, text string, schema map[string]any, language string) Response {
	return a.Complete(ctx, ExtractionRequest(text, schema, language))
}

// ExtractionRequest builds the cv_extraction request used by
// ExtractStructuredData.
func ExtractionRequest(text string, schema map[string]any, language string) Request {
	if language == "" {
		language = "en"
	}
	if schema == nil {
		schema = map[string]any{}
	}
	return Request{
		PromptType: PromptCVExtraction,
		Template:   extractionTemplate,
		Variables: map[string]any{
			"text":     text,
			"schema":   schema,
			"language": LanguageName(language),
		},
		Language: language,
	}
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
