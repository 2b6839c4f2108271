// Package postprocess turns the raw agent-written planning tree into a
// consistent, renderable documentation bundle: copy to a fresh build tree,
// canonicalize cross-reference links, render embedded diagrams, build the
// static site. The transform is deterministic and idempotent — the build
// tree is recreated from scratch every run.
package postprocess

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/lucasnoah/docfactory/internal/manifest"
	"github.com/lucasnoah/docfactory/internal/workspace"
)

// ProcessingResult holds the statistics of one post-process run. Success is
// true iff Errors is empty; individual diagram failures are statistics, not
// errors.
type ProcessingResult struct {
	FilesProcessed   int      `json:"files_processed"`
	DiagramsFound    int      `json:"diagrams_found"`
	DiagramsRendered int      `json:"diagrams_rendered"`
	DiagramsFailed   int      `json:"diagrams_failed"`
	LinksFixed       int      `json:"github_links_fixed"`
	SiteBuilt        bool     `json:"site_built"`
	Errors           []string `json:"errors,omitempty"`
}

// Success reports whether the run completed without errors.
func (r *ProcessingResult) Success() bool {
	return len(r.Errors) == 0
}

// Processor runs the post-processing stages over a workspace.
type Processor struct {
	ws       *workspace.Workspace
	owner    string
	repo     string
	renderer *Renderer
	site     *SiteBuilder
	skipSite bool
	progress io.Writer
}

// NewProcessor creates a Processor for the workspace and canonical
// repository identity.
func NewProcessor(ws *workspace.Workspace, owner, repo string, renderer *Renderer, site *SiteBuilder) *Processor {
	return &Processor{ws: ws, owner: owner, repo: repo, renderer: renderer, site: site}
}

// SetSkipSite disables the site-build stage (used when the builder is not
// installed).
func (p *Processor) SetSkipSite(skip bool) {
	p.skipSite = skip
}

// SetProgress sets a writer for live progress output.
func (p *Processor) SetProgress(w io.Writer) {
	p.progress = w
}

func (p *Processor) logf(format string, args ...interface{}) {
	if p.progress != nil {
		fmt.Fprintf(p.progress, "  → "+format+"\n", args...)
	}
}

// Run executes the stages in order: copy, link normalization, diagram
// rendering, site build. Only an unreadable source tree returns an error;
// everything else is accounted in the result.
func (p *Processor) Run(ctx context.Context) (*ProcessingResult, error) {
	result := &ProcessingResult{}

	if _, err := os.Stat(p.ws.PlanningDir()); err != nil {
		return result, fmt.Errorf("source tree unreadable: %w", err)
	}

	if err := p.ws.ResetBuild(); err != nil {
		return result, fmt.Errorf("reset build tree: %w", err)
	}

	if err := p.copyStage(); err != nil {
		return result, fmt.Errorf("copy stage: %w", err)
	}

	if err := p.transformStage(ctx, result); err != nil {
		return result, fmt.Errorf("transform stage: %w", err)
	}
	p.logf("processed %d files: %d links fixed, %d/%d diagrams rendered",
		result.FilesProcessed, result.LinksFixed, result.DiagramsRendered, result.DiagramsFound)

	if p.skipSite {
		return result, nil
	}
	if err := p.siteStage(ctx); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("site build: %v", err))
		p.logf("site build failed: %v", err)
	} else {
		result.SiteBuilt = true
		p.logf("site built at %s", p.ws.SiteDir())
	}

	return result, nil
}

// copyStage populates build/docs from the planning tree, leaving the source
// untouched. The fan-out component docs keep their layout; the top-level
// index and overview come along when present.
func (p *Processor) copyStage() error {
	if workspace.Exists(p.ws.FanoutDir()) {
		if err := workspace.CopyTree(p.ws.FanoutDir(), p.ws.BuildDocsDir()); err != nil {
			return err
		}
	}
	for _, name := range []string{"index.md", "overview.md"} {
		src := filepath.Join(p.ws.PlanningDir(), name)
		if !workspace.Exists(src) {
			continue
		}
		data, err := os.ReadFile(src)
		if err != nil {
			return fmt.Errorf("read %s: %w", src, err)
		}
		if err := workspace.WriteAtomic(filepath.Join(p.ws.BuildDocsDir(), name), data); err != nil {
			return err
		}
	}
	return nil
}

// transformStage rewrites links and renders diagrams in every markdown file
// under the build tree.
func (p *Processor) transformStage(ctx context.Context, result *ProcessingResult) error {
	return filepath.WalkDir(p.ws.BuildDocsDir(), func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".md") {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		content := string(data)

		content, fixed := NormalizeLinks(content, p.owner, p.repo)
		result.LinksFixed += fixed

		content, found, rendered, failed := p.renderer.ProcessFile(ctx, content, filepath.Dir(path))
		result.DiagramsFound += found
		result.DiagramsRendered += rendered
		result.DiagramsFailed += failed

		if content != string(data) {
			if err := workspace.WriteAtomic(path, []byte(content)); err != nil {
				return err
			}
		}
		result.FilesProcessed++
		return nil
	})
}

// siteStage builds the static site from the processed docs.
func (p *Processor) siteStage(ctx context.Context) error {
	var tree *manifest.DocTree
	if data, err := os.ReadFile(p.ws.DocTreePath()); err == nil {
		tree, _ = manifest.ParseDocTree(data)
	}
	return p.site.Build(ctx, p.ws.BuildDir(), p.ws.BuildDocsDir(), p.ws.SiteDir(), tree)
}
