// Package prompt renders the prompts sent to the documentation agent. The
// builtin templates can be overridden per-workspace by dropping a file with
// the same name under <workspace>/.docfactory/prompts/.
package prompt

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var varRe = regexp.MustCompile(`\{\{([a-zA-Z_][a-zA-Z0-9_]*)\}\}`)

// Vars maps template variable names to values.
type Vars map[string]string

// Render expands {{variable}} placeholders. Missing variables are an error:
// a prompt with a hole in it sends the agent off in the wrong direction.
func Render(tmpl string, vars Vars) (string, error) {
	var missing []string
	expanded := varRe.ReplaceAllStringFunc(tmpl, func(match string) string {
		m := varRe.FindStringSubmatch(match)
		if m == nil {
			return match
		}
		if val, ok := vars[m[1]]; ok {
			return val
		}
		missing = append(missing, m[1])
		return match
	})

	if len(missing) > 0 {
		return "", fmt.Errorf("missing template variables: %s", strings.Join(missing, ", "))
	}
	return expanded, nil
}

// Load returns the template content for name, preferring a workspace
// override over the builtin.
func Load(name, workspaceDir string) (string, error) {
	if workspaceDir != "" {
		override := filepath.Join(workspaceDir, ".docfactory", "prompts", name)
		if data, err := os.ReadFile(override); err == nil {
			return string(data), nil
		}
	}
	if tmpl, ok := builtinTemplates[name]; ok {
		return tmpl, nil
	}
	return "", fmt.Errorf("unknown prompt template %q", name)
}
