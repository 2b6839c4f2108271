package postprocess

import (
	"fmt"
	"regexp"
)

// githubLinkRe matches GitHub blob/tree URLs. Capture groups: owner, repo,
// link type, branch, path.
var githubLinkRe = regexp.MustCompile(`https://github\.com/([\w.-]+)/([\w.-]+)/(blob|tree)/([^/\s)"'<>]+)/([^\s)"'<>]+)`)

// NormalizeLinks rewrites GitHub blob/tree links whose owner/repo differ
// from the canonical identity, preserving link type, branch and path.
// Agents frequently hallucinate the org or use a fork's identity; the
// rewrite makes every cross-reference point at the repository actually being
// documented. Returns the rewritten content and the number of rewrites.
func NormalizeLinks(content, owner, repo string) (string, int) {
	if owner == "" || repo == "" {
		return content, 0
	}

	fixed := 0
	out := githubLinkRe.ReplaceAllStringFunc(content, func(link string) string {
		m := githubLinkRe.FindStringSubmatch(link)
		if m == nil {
			return link
		}
		if m[1] == owner && m[2] == repo {
			return link
		}
		fixed++
		return fmt.Sprintf("https://github.com/%s/%s/%s/%s/%s", owner, repo, m[3], m[4], m[5])
	})
	return out, fixed
}
