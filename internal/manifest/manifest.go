// Package manifest parses the loosely-structured planning artifacts agents
// produce. The producer is a non-deterministic process writing prose-adjacent
// output, so every parser here scans defensively and falls back to
// conservative defaults instead of raising past this boundary.
package manifest

import (
	"strings"
)

// Component is one row of the component manifest table.
type Component struct {
	ID         string
	Name       string
	Path       string
	OutputPath string
}

// ParseComponents scans a markdown component manifest for pipe-delimited
// table rows. Header and separator rows are skipped; rows with fewer than
// four cells are ignored rather than rejected.
func ParseComponents(data string) []Component {
	var components []Component

	for _, line := range strings.Split(data, "\n") {
		line = strings.TrimSpace(line)
		if !strings.Contains(line, "|") {
			continue
		}
		if isSeparatorRow(line) {
			continue
		}

		cells := splitRow(line)
		if len(cells) < 4 {
			continue
		}
		if strings.EqualFold(cells[0], "Component ID") {
			continue // header
		}
		if cells[0] == "" {
			continue
		}

		components = append(components, Component{
			ID:         cells[0],
			Name:       cells[1],
			Path:       cells[2],
			OutputPath: cells[3],
		})
	}
	return components
}

// splitRow splits a markdown table row into trimmed cells, dropping the
// empty cells produced by leading/trailing pipes.
func splitRow(line string) []string {
	parts := strings.Split(line, "|")
	if len(parts) > 0 && strings.TrimSpace(parts[0]) == "" {
		parts = parts[1:]
	}
	if len(parts) > 0 && strings.TrimSpace(parts[len(parts)-1]) == "" {
		parts = parts[:len(parts)-1]
	}
	cells := make([]string, len(parts))
	for i, p := range parts {
		cells[i] = strings.TrimSpace(p)
	}
	return cells
}

// isSeparatorRow reports whether the line is a markdown table separator
// (cells of dashes and colons only).
func isSeparatorRow(line string) bool {
	stripped := strings.Map(func(r rune) rune {
		switch r {
		case '|', '-', ':', ' ':
			return -1
		}
		return r
	}, line)
	return stripped == "" && strings.Contains(line, "-")
}
