package manifest

import (
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

var totalTasksRe = regexp.MustCompile(`(?m)^\s*total_tasks:\s*(\d+)\s*$`)

// allocationFront is the YAML frontmatter block of task_allocation.md.
type allocationFront struct {
	TotalTasks int `yaml:"total_tasks"`
}

// ParseTotalTasks extracts total_tasks from a task-allocation plan. It first
// tries the YAML frontmatter block, then a plain line scan anywhere in the
// document. When neither works it returns fallback and false, so the caller
// can record that the plan was unparsable instead of failing the run.
func ParseTotalTasks(data string, fallback int) (int, bool) {
	if front, ok := frontmatter(data); ok {
		var af allocationFront
		if err := yaml.Unmarshal([]byte(front), &af); err == nil && af.TotalTasks > 0 {
			return af.TotalTasks, true
		}
	}

	if m := totalTasksRe.FindStringSubmatch(data); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
			return n, true
		}
	}

	return fallback, false
}

// frontmatter returns the content between the leading "---" fence pair.
func frontmatter(data string) (string, bool) {
	lines := strings.Split(data, "\n")
	start := -1
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if trimmed != "---" {
			return "", false
		}
		start = i
		break
	}
	if start == -1 {
		return "", false
	}
	for i := start + 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			return strings.Join(lines[start+1:i], "\n"), true
		}
	}
	return "", false
}
