package postprocess

import (
	"context"
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/lucasnoah/docfactory/internal/config"
	"github.com/lucasnoah/docfactory/internal/workspace"
)

var (
	mermaidFenceRe = regexp.MustCompile("(?s)```mermaid[ \t]*\n(.*?)```")
	// Node labels in square brackets; parentheses and slashes inside them
	// are treated as syntax by the renderer and break otherwise-valid
	// diagrams the agent wrote.
	bracketLabelRe = regexp.MustCompile(`\[([^\[\]]*)\]`)
)

// Renderer renders sanitized mermaid sources to images through the external
// renderer CLI.
type Renderer struct {
	cfg    config.Renderer
	runner ToolRunner
}

// NewRenderer creates a Renderer. If runner is nil the real CLI is used.
func NewRenderer(cfg config.Renderer, runner ToolRunner) *Renderer {
	if runner == nil {
		runner = &ExecToolRunner{Timeout: config.Duration(cfg.Timeout, 0)}
	}
	return &Renderer{cfg: cfg, runner: runner}
}

// Sanitize applies syntax-repair heuristics to agent-written mermaid source
// before rendering. Each repair targets a malformation agents actually
// produce; valid diagrams pass through unchanged apart from label
// punctuation.
func Sanitize(src string) string {
	var out []string
	for _, line := range strings.Split(src, "\n") {
		// Inline comments after a statement confuse the renderer; whole-line
		// comments are fine.
		if idx := strings.Index(line, "%%"); idx > 0 && strings.TrimSpace(line[:idx]) != "" {
			line = strings.TrimRight(line[:idx], " \t")
		}

		line = bracketLabelRe.ReplaceAllStringFunc(line, func(label string) string {
			inner := label[1 : len(label)-1]
			inner = strings.ReplaceAll(inner, "(", "")
			inner = strings.ReplaceAll(inner, ")", "")
			inner = strings.ReplaceAll(inner, "/", "-")
			return "[" + inner + "]"
		})

		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

// ImageName returns the deterministic image filename for a diagram: a
// content hash of its source plus its ordinal position in the file.
// Identical diagrams across runs produce identical filenames; a diagram
// that moves or changes gets a new binding.
func ImageName(src string, ordinal int) string {
	sum := sha256.Sum256([]byte(src))
	return fmt.Sprintf("diagram-%x-%d.svg", sum[:6], ordinal)
}

// Render renders one diagram source to imgPath. Success requires both a zero
// exit code and the output file existing.
func (r *Renderer) Render(ctx context.Context, src, imgPath string) error {
	tmpDir := filepath.Dir(imgPath)
	tmp, err := os.CreateTemp(tmpDir, ".diagram-*.mmd")
	if err != nil {
		return fmt.Errorf("create diagram source: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(src); err != nil {
		tmp.Close()
		return fmt.Errorf("write diagram source: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close diagram source: %w", err)
	}

	out, exitCode, err := r.runner.Run(ctx, tmpDir, r.cfg.Binary,
		"-i", tmp.Name(),
		"-o", imgPath,
		"-t", r.cfg.Theme,
		"-b", r.cfg.Background,
		"-s", fmt.Sprintf("%d", r.cfg.Scale),
	)
	if err != nil {
		return err
	}
	if exitCode != 0 {
		return fmt.Errorf("renderer exited %d: %s", exitCode, firstLine(out))
	}
	if !workspace.Exists(imgPath) {
		return fmt.Errorf("renderer exited 0 but %s was not created", filepath.Base(imgPath))
	}
	return nil
}

// ProcessFile extracts, sanitizes and renders every mermaid fence in one
// markdown file, replacing rendered fences with image embeds. A failed
// diagram leaves its fence untouched — one bad diagram never loses the rest
// of the file. Returns the new content and per-file counts.
func (r *Renderer) ProcessFile(ctx context.Context, content, dir string) (string, int, int, int) {
	found, rendered, failed := 0, 0, 0

	out := mermaidFenceRe.ReplaceAllStringFunc(content, func(fence string) string {
		m := mermaidFenceRe.FindStringSubmatch(fence)
		if m == nil {
			return fence
		}
		ordinal := found
		found++

		src := Sanitize(m[1])
		img := ImageName(src, ordinal)
		if err := r.Render(ctx, src, filepath.Join(dir, img)); err != nil {
			failed++
			return fence
		}
		rendered++
		return fmt.Sprintf("![Diagram %d](%s)", ordinal+1, img)
	})

	return out, found, rendered, failed
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx]
	}
	return s
}
