// Package prompts holds the prompt templates for every prompt type.
// Built-in templates are embedded in the binary; a directory of YAML files
// can override them at startup.
package prompts

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/rpad300/shortlistAI-sub000/internal/ai"
)

//go:embed templates
var embeddedTemplates embed.FS

// Template is one prompt definition.
type Template struct {
	Type        ai.PromptType `yaml:"type"`
	Description string        `yaml:"description"`
	// Variables lists the placeholders a caller must supply. {language}
	// is always filled by Build and is not listed.
	Variables []string `yaml:"variables"`
	Text      string   `yaml:"template"`
}

// Catalog maps prompt types to templates.
type Catalog struct {
	templates map[ai.PromptType]Template
	logger    *zap.Logger
}

// LoadEmbedded returns a catalog populated from the built-in templates.
func LoadEmbedded(logger *zap.Logger) (*Catalog, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Catalog{templates: make(map[ai.PromptType]Template), logger: logger}

	entries, err := embeddedTemplates.ReadDir("templates")
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded templates: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || !isYAML(e.Name()) {
			continue
		}
		data, err := embeddedTemplates.ReadFile("templates/" + e.Name())
		if err != nil {
			return nil, fmt.Errorf("failed to read embedded file %s: %w", e.Name(), err)
		}
		if _, err := c.add(data, e.Name()); err != nil {
			return nil, err
		}
	}

	logger.Debug("loaded embedded prompt templates", zap.Int("count", len(c.templates)))
	return c, nil
}

// LoadOverrides reads every *.yaml file in dir and replaces the matching
// templates. Returns the number of templates loaded.
func (c *Catalog) LoadOverrides(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read template dir %s: %w", dir, err)
	}

	total := 0
	for _, e := range entries {
		if e.IsDir() || !isYAML(e.Name()) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return total, fmt.Errorf("failed to read %s: %w", path, err)
		}
		n, err := c.add(data, path)
		if err != nil {
			return total, err
		}
		total += n
	}

	c.logger.Info("loaded prompt template overrides", zap.String("dir", dir), zap.Int("count", total))
	return total, nil
}

func (c *Catalog) add(data []byte, source string) (int, error) {
	var defs []Template
	if err := yaml.Unmarshal(data, &defs); err != nil {
		return 0, fmt.Errorf("failed to parse %s: %w", source, err)
	}
	for i, d := range defs {
		pt, err := ai.ParsePromptType(string(d.Type))
		if err != nil {
			return 0, fmt.Errorf("%s: template %d: %w", source, i, err)
		}
		if strings.TrimSpace(d.Text) == "" {
			return 0, fmt.Errorf("%s: template %s is empty", source, pt)
		}
		d.Type = pt
		d.Text = strings.TrimRight(d.Text, "\n")
		c.templates[pt] = d
	}
	return len(defs), nil
}

// Get returns the template for pt.
func (c *Catalog) Get(pt ai.PromptType) (Template, bool) {
	t, ok := c.templates[pt]
	return t, ok
}

// Types returns the prompt types with a template, sorted.
func (c *Catalog) Types() []ai.PromptType {
	out := make([]ai.PromptType, 0, len(c.templates))
	for pt := range c.templates {
		out = append(out, pt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Build returns an unrendered Request for pt. The adapter substitutes the
// variables; {language} is resolved here from the language code.
func (c *Catalog) Build(pt ai.PromptType, language string, vars map[string]any) (ai.Request, error) {
	t, ok := c.templates[pt]
	if !ok {
		return ai.Request{}, fmt.Errorf("no template for prompt type %s", pt)
	}

	var missing []string
	for _, name := range t.Variables {
		if _, ok := vars[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return ai.Request{}, fmt.Errorf("prompt %s is missing variables: %s", pt, strings.Join(missing, ", "))
	}

	merged := make(map[string]any, len(vars)+1)
	for k, v := range vars {
		merged[k] = v
	}
	merged["language"] = ai.LanguageName(language)

	return ai.Request{
		PromptType: pt,
		Template:   t.Text,
		Variables:  merged,
		Language:   language,
	}, nil
}

func isYAML(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".yaml" || ext == ".yml"
}
