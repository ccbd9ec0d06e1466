package main

import (
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rpad300/shortlistAI-sub000/internal/ai"
)

// providersCmd lists live providers
var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List configured providers and their candidate models",
	RunE:  listProviders,
}

// chainCmd manages the persisted fallback chain
var chainCmd = &cobra.Command{
	Use:   "chain",
	Short: "Show or edit the fallback chain",
}

var chainShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the stored and the effective fallback chain",
	RunE:  showChain,
}

var chainSetCmd = &cobra.Command{
	Use:   "set [provider[:model]]...",
	Short: "Replace the fallback chain",
	Long: `Stores the fallback chain in order. Each entry is a provider name,
optionally followed by a model.

Example:
  shortlist chain set gemini openai:gpt-4o-mini claude`,
	Args: cobra.MinimumNArgs(1),
	RunE: setChain,
}

var chainClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove the stored chain (the default provider is used alone)",
	RunE:  clearChain,
}

// pricingCmd manages price overrides
var pricingCmd = &cobra.Command{
	Use:   "pricing",
	Short: "Inspect or override per-model prices",
}

var pricingListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored overrides and the prices of configured models",
	RunE:  listPricing,
}

var pricingSetCmd = &cobra.Command{
	Use:   "set [provider] [model] [input-per-million] [output-per-million]",
	Short: "Store a USD price override per million tokens",
	Args:  cobra.ExactArgs(4),
	RunE:  setPricing,
}

var pricingUnsetCmd = &cobra.Command{
	Use:   "unset [provider] [model]",
	Short: "Deactivate a price override",
	Args:  cobra.ExactArgs(2),
	RunE:  unsetPricing,
}

// promptsCmd lists prompt templates
var promptsCmd = &cobra.Command{
	Use:   "prompts",
	Short: "List prompt types and their variables",
	RunE:  listPrompts,
}

func init() {
	chainCmd.AddCommand(chainShowCmd, chainSetCmd, chainClearCmd)
	pricingCmd.AddCommand(pricingListCmd, pricingSetCmd, pricingUnsetCmd)
}

func listProviders(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	out := cmd.OutOrStdout()
	names := a.manager.Providers()
	if len(names) == 0 {
		fmt.Fprintln(out, "No providers configured. Set an API key such as GEMINI_API_KEY.")
		return nil
	}

	timeouts := cfg.ProviderTimeouts()
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PROVIDER\tDEFAULT\tTIMEOUT\tMODELS")
	for _, name := range names {
		p, _ := a.manager.Provider(name)
		def := ""
		if name == a.manager.DefaultProvider() {
			def = "*"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", name, def, timeouts[string(name)], strings.Join(p.Models(), ", "))
	}
	return w.Flush()
}

func showChain(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	out := cmd.OutOrStdout()
	raw, found, err := a.store.GetSetting(ctx, ai.SettingDefaultAIProvider)
	if err != nil {
		return err
	}
	if found {
		fmt.Fprintf(out, "stored:    %s\n", raw)
	} else {
		fmt.Fprintln(out, "stored:    (none)")
	}

	chain := a.manager.FallbackChain(ctx)
	if len(chain) == 0 {
		fmt.Fprintf(out, "effective: %s (default provider)\n", orNone(string(a.manager.DefaultProvider())))
		return nil
	}
	parts := make([]string, len(chain))
	for i, e := range chain {
		parts[i] = e.String()
	}
	fmt.Fprintf(out, "effective: %s\n", strings.Join(parts, " -> "))
	return nil
}

func setChain(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	entries, err := parseChainArgs(args)
	if err != nil {
		return err
	}
	encoded, err := ai.EncodeChain(entries)
	if err != nil {
		return err
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.store.SetSetting(ctx, ai.SettingDefaultAIProvider, encoded); err != nil {
		return err
	}
	for _, e := range entries {
		if _, ok := a.manager.Provider(e.Provider); !ok {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s is not configured and will be skipped\n", e.Provider)
		}
	}
	fmt.Fprintf(cmd.OutOrStdout(), "fallback chain saved: %s\n", encoded)
	return nil
}

func clearChain(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.store.DeleteSetting(ctx, ai.SettingDefaultAIProvider); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "fallback chain cleared")
	return nil
}

// parseChainArgs parses "provider" or "provider:model" arguments.
func parseChainArgs(args []string) ([]ai.ChainEntry, error) {
	entries := make([]ai.ChainEntry, 0, len(args))
	for i, arg := range args {
		name, model, _ := strings.Cut(arg, ":")
		provider, err := ai.ParseProviderName(name)
		if err != nil {
			return nil, err
		}
		entries = append(entries, ai.ChainEntry{Provider: provider, Model: strings.TrimSpace(model), Order: i + 1})
	}
	return entries, nil
}

func listPricing(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	overrides, err := a.store.ListModelPricing(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PROVIDER\tMODEL\tINPUT/M\tOUTPUT/M\tSOURCE")
	for _, mp := range overrides {
		fmt.Fprintf(w, "%s\t%s\t%.4f\t%.4f\tdatabase\n", mp.Provider, mp.Model, mp.Price.InputPerMillion, mp.Price.OutputPerMillion)
	}
	for _, name := range a.manager.Providers() {
		p, _ := a.manager.Provider(name)
		for _, model := range p.Models() {
			price, fromDB := a.pricer.Lookup(ctx, name, model)
			if fromDB {
				continue
			}
			fmt.Fprintf(w, "%s\t%s\t%.4f\t%.4f\tcompiled\n", name, model, price.InputPerMillion, price.OutputPerMillion)
		}
	}
	return w.Flush()
}

func setPricing(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	provider, err := ai.ParseProviderName(args[0])
	if err != nil {
		return err
	}
	in, err := strconv.ParseFloat(args[2], 64)
	if err != nil {
		return fmt.Errorf("invalid input price %q: %w", args[2], err)
	}
	out, err := strconv.ParseFloat(args[3], 64)
	if err != nil {
		return fmt.Errorf("invalid output price %q: %w", args[3], err)
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	mp := ai.ModelPrice{Provider: provider, Model: args[1], Price: ai.Price{InputPerMillion: in, OutputPerMillion: out}}
	if err := a.store.UpsertModelPricing(ctx, mp); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "price saved: %s/%s $%.4f in, $%.4f out per million tokens\n", provider, args[1], in, out)
	return nil
}

func unsetPricing(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	provider, err := ai.ParseProviderName(args[0])
	if err != nil {
		return err
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	changed, err := a.store.DeactivateModelPricing(ctx, provider, args[1])
	if err != nil {
		return err
	}
	if !changed {
		fmt.Fprintf(cmd.OutOrStdout(), "no active override for %s/%s\n", provider, args[1])
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "override removed: %s/%s\n", provider, args[1])
	return nil
}

func listPrompts(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TYPE\tJSON\tVARIABLES\tDESCRIPTION")
	for _, pt := range a.catalog.Types() {
		t, _ := a.catalog.Get(pt)
		fmt.Fprintf(w, "%s\t%v\t%s\t%s\n", pt, pt.IsJSON(), strings.Join(t.Variables, ", "), t.Description)
	}
	return w.Flush()
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
