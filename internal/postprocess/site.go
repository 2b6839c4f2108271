package postprocess

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lucasnoah/docfactory/internal/config"
	"github.com/lucasnoah/docfactory/internal/manifest"
)

// SiteBuilder drives the external static-site builder.
type SiteBuilder struct {
	cfg    config.Site
	runner ToolRunner
}

// NewSiteBuilder creates a SiteBuilder. If runner is nil the real CLI is
// used.
func NewSiteBuilder(cfg config.Site, runner ToolRunner) *SiteBuilder {
	if runner == nil {
		runner = &ExecToolRunner{Timeout: config.Duration(cfg.Timeout, 0)}
	}
	return &SiteBuilder{cfg: cfg, runner: runner}
}

// Build generates a builder config pointing at docsDir/siteDir and invokes
// the builder. The two directories must be disjoint — the builder errors on
// a site_dir nested inside docs_dir, so that is rejected here first.
func (b *SiteBuilder) Build(ctx context.Context, buildDir, docsDir, siteDir string, tree *manifest.DocTree) error {
	if isSubpath(docsDir, siteDir) {
		return fmt.Errorf("site dir %s must not be inside docs dir %s", siteDir, docsDir)
	}

	cfgPath := filepath.Join(buildDir, "mkdocs.yml")
	if err := os.WriteFile(cfgPath, []byte(b.builderConfig(docsDir, siteDir, tree)), 0o644); err != nil {
		return fmt.Errorf("write builder config: %w", err)
	}

	out, exitCode, err := b.runner.Run(ctx, buildDir, b.cfg.Binary, "build", "-f", cfgPath)
	if err != nil {
		return err
	}
	if exitCode != 0 {
		return fmt.Errorf("site builder exited %d: %s", exitCode, firstLine(out))
	}

	entries, err := os.ReadDir(siteDir)
	if err != nil || len(entries) == 0 {
		return fmt.Errorf("site builder exited 0 but %s is empty", siteDir)
	}
	return nil
}

// builderConfig renders a minimal mkdocs configuration. Navigation follows
// the agent's doc tree when one parsed; otherwise the builder's alphabetical
// default applies.
func (b *SiteBuilder) builderConfig(docsDir, siteDir string, tree *manifest.DocTree) string {
	name := b.cfg.Name
	if name == "" {
		name = "Documentation"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "site_name: %q\n", name)
	fmt.Fprintf(&sb, "docs_dir: %q\n", docsDir)
	fmt.Fprintf(&sb, "site_dir: %q\n", siteDir)
	sb.WriteString("theme: readthedocs\n")

	if tree != nil && len(tree.Pages) > 0 {
		sb.WriteString("nav:\n")
		for _, page := range tree.Pages {
			title := page.Title
			if title == "" {
				title = page.Path
			}
			fmt.Fprintf(&sb, "  - %q: %q\n", title, page.Path)
		}
	}
	return sb.String()
}

// isSubpath reports whether child is parent or nested under it.
func isSubpath(parent, child string) bool {
	rel, err := filepath.Rel(parent, child)
	if err != nil {
		return false
	}
	return rel == "." || (!strings.HasPrefix(rel, "..") && !filepath.IsAbs(rel))
}
