package ai

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// RenderTemplate replaces every literal {key} in tmpl with the formatted
// value of vars[key]. There is no escaping and no conditional logic;
// placeholders without a variable are left untouched. Keys are applied in
// sorted order so output is deterministic when values contain braces.
func RenderTemplate(tmpl string, vars map[string]any) string {
	if len(vars) == 0 {
		return tmpl
	}

	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys)*2)
	for _, k := range keys {
		pairs = append(pairs, "{"+k+"}", formatVar(vars[k]))
	}
	// Single pass: substituted values are never rescanned.
	return strings.NewReplacer(pairs...).Replace(tmpl)
}

func formatVar(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return string(val)
	case fmt.Stringer:
		return val.String()
	case map[string]any, []any, []string, []map[string]any, map[string]string:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	default:
		return fmt.Sprint(val)
	}
}
