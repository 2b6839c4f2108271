package prompt

// builtinTemplates maps template filename to content.
var builtinTemplates = map[string]string{
	"overview.md":   overviewTemplate,
	"manifest.md":   manifestTemplate,
	"allocation.md": allocationTemplate,
	"structure.md":  structureTemplate,
	"generate.md":   generateTemplate,
	"index.md":      indexTemplate,
	"analyze.md":    analyzeTemplate,
}

const overviewTemplate = `# Repository Overview

Analyze the repository at {{repo_path}} and write a narrative architecture
overview to {{planning_dir}}/overview.md.

Cover: purpose, major subsystems, how data flows between them, and the
external dependencies that shape the design. Overwrite the file if it exists.
Do not write any other files.
`

const manifestTemplate = `# Component Manifest

Using the overview at {{planning_dir}}/overview.md, identify the documentable
components of {{repo_path}} and write {{planning_dir}}/component_manifest.md.

The file must contain a markdown table with exactly these columns:

| Component ID | Display Name | Path | Output Path |

Component IDs are lowercase-hyphenated. Output Path is
{{planning_dir}}/docs/<component-id>. Overwrite the file if it exists.
`

const allocationTemplate = `# Task Allocation

Read {{planning_dir}}/component_manifest.md and plan the documentation
fan-out. Write {{planning_dir}}/task_allocation.md starting with a YAML
frontmatter block:

---
total_tasks: <number of components>
---

followed by one section per task describing which component it covers and
what its subagent should produce. Overwrite the file if it exists.
`

const structureTemplate = `# Documentation Tree

Write {{planning_dir}}/doc_tree.json describing the final documentation
navigation. The JSON must have a top-level "structure" object keyed by
relative page path, each entry carrying "title", "heading" and "nav_order".
Include index.md and one entry per component. Overwrite the file if it
exists.
`

const generateTemplate = `# Generate Component Documentation

Execute the task allocation plan at {{planning_dir}}/task_allocation.md.

Spawn one subagent per task, in parallel. Each subagent must write its
component's documentation under {{planning_dir}}/docs/<component-id>/ —
at minimum index.md, plus architecture.md where the component warrants it.
Diagrams are mermaid fenced code blocks. Links to source files use full
GitHub URLs on the {{branch}} branch of {{owner}}/{{repo}}.

Do not wait for permission between spawns. Overwrite existing files.
`

const indexTemplate = `# Navigation Index

Read {{planning_dir}}/doc_tree.json and the generated component docs under
{{planning_dir}}/docs/, then write {{planning_dir}}/index.md: a navigation
entry point linking every generated page with a one-line description.
Overwrite the file if it exists.
`

const analyzeTemplate = `# Cross-Repository Analysis

Analyze the repository at {{repo_path}} (read-only — do not modify it) and
write your findings to {{output_path}}.

Focus: {{focus}}. Describe the service interfaces, event patterns and
integration points another team would need to know about.
`
