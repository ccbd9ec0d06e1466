package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rpad300/shortlistAI-sub000/internal/ai"
	"github.com/rpad300/shortlistAI-sub000/internal/usage"
)

// runFlags holds the flags shared by run and extract.
type runFlags struct {
	provider    string
	model       string
	noFallback  bool
	language    string
	vars        []string
	varFiles    []string
	maxTokens   int
	temperature float64
	output      string
	showUsage   bool
	schemaPath  string
}

var runOpts runFlags

// runCmd executes one prompt type through the manager
var runCmd = &cobra.Command{
	Use:   "run [prompt-type]",
	Short: "Execute a prompt through the fallback chain",
	Long: `Renders the built-in template for the prompt type with the given
variables and executes it. An explicit --provider is tried first; the
persisted fallback chain follows unless --no-fallback is set.

Example:
  shortlist run cv_extraction --var-file cv_text=cv.txt --lang pt
  shortlist run summary --var text="..." --provider claude --no-fallback`,
	Args: cobra.ExactArgs(1),
	RunE: runPrompt,
}

// extractCmd runs schema-driven extraction through one provider
var extractCmd = &cobra.Command{
	Use:   "extract [provider] [file]",
	Short: "Extract structured data from a document with one provider",
	Long: `Reads the document and a JSON schema and asks the provider to return
matching JSON. No fallback chain is involved.

Example:
  shortlist extract gemini cv.txt --schema cv_schema.json`,
	Args: cobra.ExactArgs(2),
	RunE: runExtract,
}

func init() {
	f := runCmd.Flags()
	f.StringVar(&runOpts.provider, "provider", "", "Provider to try first (gemini, openai, claude, kimi, minimax)")
	f.StringVar(&runOpts.model, "model", "", "Model to pin on --provider")
	f.BoolVar(&runOpts.noFallback, "no-fallback", false, "Do not walk the fallback chain")
	f.StringVar(&runOpts.language, "lang", "en", "Output language code (en, pt, fr, es)")
	f.StringArrayVar(&runOpts.vars, "var", nil, "Template variable as key=value (repeatable)")
	f.StringArrayVar(&runOpts.varFiles, "var-file", nil, "Template variable read from a file as key=path (repeatable)")
	f.IntVar(&runOpts.maxTokens, "max-tokens", 0, "Maximum output tokens (0 uses the model default)")
	f.Float64Var(&runOpts.temperature, "temperature", -1, "Sampling temperature (negative uses the configured default)")
	f.StringVarP(&runOpts.output, "output", "o", "json", "Output format: json or text")
	f.BoolVar(&runOpts.showUsage, "usage", false, "Print token and cost usage after the run")

	ef := extractCmd.Flags()
	ef.StringVar(&runOpts.schemaPath, "schema", "", "JSON schema file (required)")
	ef.StringVar(&runOpts.language, "lang", "en", "Output language code")
	ef.StringVar(&runOpts.model, "model", "", "Model to pin")
	ef.StringVarP(&runOpts.output, "output", "o", "json", "Output format: json or text")
	_ = extractCmd.MarkFlagRequired("schema")
}

// commandContext returns a context bounded by --timeout and canceled on
// SIGINT/SIGTERM. Usage recorded under it is attributed to one session per
// invocation.
func commandContext() (context.Context, context.CancelFunc) {
	ctx := usage.WithSession(context.Background(), "cli-"+uuid.NewString())
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	ctx, cancel := context.WithTimeout(ctx, timeout)
	return ctx, func() {
		cancel()
		stop()
	}
}

func runPrompt(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	promptType, err := ai.ParsePromptType(args[0])
	if err != nil {
		return err
	}
	opts, err := executeOptions(runOpts)
	if err != nil {
		return err
	}
	vars, err := parseVars(runOpts.vars, runOpts.varFiles)
	if err != nil {
		return err
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	req, err := a.catalog.Build(promptType, runOpts.language, vars)
	if err != nil {
		return err
	}
	if runOpts.maxTokens > 0 {
		req.MaxTokens = ai.Int(runOpts.maxTokens)
	}
	if runOpts.temperature >= 0 {
		req.Temperature = ai.Float(runOpts.temperature)
	}

	logger.Info("executing prompt",
		zap.String("prompt_type", string(promptType)),
		zap.String("provider", string(opts.Provider)),
		zap.Bool("fallback", !opts.DisableFallback))

	resp := a.manager.Execute(ctx, req, opts)
	if err := printResponse(cmd.OutOrStdout(), resp, runOpts.output); err != nil {
		return err
	}
	if runOpts.showUsage {
		printUsage(cmd.OutOrStdout(), a.manager.Usage())
	}
	if !resp.Success {
		return fmt.Errorf("request failed: %s", resp.Error)
	}
	return nil
}

func runExtract(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	name, err := ai.ParseProviderName(args[0])
	if err != nil {
		return err
	}
	text, err := os.ReadFile(args[1])
	if err != nil {
		return fmt.Errorf("failed to read document: %w", err)
	}
	schema, err := readSchema(runOpts.schemaPath)
	if err != nil {
		return err
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	p, ok := a.manager.Provider(name)
	if !ok {
		return fmt.Errorf("provider %s is not configured", name)
	}
	p = p.WithModel(runOpts.model)

	resp := p.ExtractStructuredData(ctx, string(text), schema, runOpts.language)
	if err := printResponse(cmd.OutOrStdout(), resp, runOpts.output); err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("extraction failed: %s", resp.Error)
	}
	return nil
}

func executeOptions(f runFlags) (ai.ExecuteOptions, error) {
	opts := ai.ExecuteOptions{Model: strings.TrimSpace(f.model), DisableFallback: f.noFallback}
	if f.provider != "" {
		name, err := ai.ParseProviderName(f.provider)
		if err != nil {
			return opts, err
		}
		opts.Provider = name
	}
	if opts.Model != "" && opts.Provider == "" {
		return opts, fmt.Errorf("--model requires --provider")
	}
	if opts.DisableFallback && opts.Provider == "" {
		return opts, fmt.Errorf("--no-fallback requires --provider")
	}
	return opts, nil
}

// parseVars turns key=value pairs and key=path file pairs into template
// variables. File contents win over inline values for the same key.
func parseVars(pairs, filePairs []string) (map[string]any, error) {
	vars := make(map[string]any, len(pairs)+len(filePairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("invalid --var %q, expected key=value", p)
		}
		vars[strings.TrimSpace(k)] = v
	}
	for _, p := range filePairs {
		k, path, ok := strings.Cut(p, "=")
		if !ok || strings.TrimSpace(k) == "" || path == "" {
			return nil, fmt.Errorf("invalid --var-file %q, expected key=path", p)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read --var-file %s: %w", k, err)
		}
		vars[strings.TrimSpace(k)] = string(data)
	}
	return vars, nil
}

func readSchema(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema: %w", err)
	}
	var schema map[string]any
	if err := json.Unmarshal(data, &schema); err != nil {
		return nil, fmt.Errorf("schema is not a JSON object: %w", err)
	}
	return schema, nil
}

func printResponse(w io.Writer, resp ai.Response, format string) error {
	switch format {
	case "text":
		if resp.Success {
			fmt.Fprintln(w, resp.RawText)
		}
		fmt.Fprintf(w, "\n[%s/%s] %dms, %d in / %d out tokens, $%.6f\n",
			resp.Provider, resp.Model, resp.LatencyMS, resp.InputTokens, resp.OutputTokens, resp.CostUSD)
		return nil
	case "json", "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

func printUsage(w io.Writer, stats usage.AggregatedStats) {
	t := stats.Total
	fmt.Fprintf(w, "usage: %d requests (%d failed), %d tokens, $%.6f\n", t.Requests, t.Failures, t.Total, t.Cost)

	names := make([]string, 0, len(stats.ByProvider))
	for name := range stats.ByProvider {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		c := stats.ByProvider[name]
		fmt.Fprintf(w, "  %-10s %d requests (%d failed), %d in / %d out, $%.6f\n",
			name, c.Requests, c.Failures, c.Input, c.Output, c.Cost)
	}
}
