package postprocess

import (
	"strings"
	"testing"
)

func TestNormalizeLinksRewritesForeignIdentity(t *testing.T) {
	content := `See [auth](https://github.com/wrong-org/wrong-repo/blob/main/src/auth.go)
and [the tree](https://github.com/wrong-org/wrong-repo/tree/develop/src).`

	out, fixed := NormalizeLinks(content, "acme", "widgets")
	if fixed != 2 {
		t.Errorf("fixed = %d, want 2", fixed)
	}
	if !strings.Contains(out, "https://github.com/acme/widgets/blob/main/src/auth.go") {
		t.Errorf("blob link not canonicalized:\n%s", out)
	}
	if !strings.Contains(out, "https://github.com/acme/widgets/tree/develop/src") {
		t.Errorf("tree link lost its type or branch:\n%s", out)
	}
}

func TestNormalizeLinksIdempotent(t *testing.T) {
	content := `[x](https://github.com/foreign/repo/blob/main/a.go)`

	once, fixed := NormalizeLinks(content, "acme", "widgets")
	if fixed != 1 {
		t.Fatalf("first pass fixed = %d, want 1", fixed)
	}
	twice, fixed := NormalizeLinks(once, "acme", "widgets")
	if fixed != 0 {
		t.Errorf("second pass fixed = %d, want 0", fixed)
	}
	if twice != once {
		t.Error("second pass changed already-canonical content")
	}
}

func TestNormalizeLinksLeavesOtherURLs(t *testing.T) {
	content := `[issues](https://github.com/foreign/repo/issues/12) and
[raw](https://example.com/foreign/repo/blob/main/x)`

	out, fixed := NormalizeLinks(content, "acme", "widgets")
	if fixed != 0 {
		t.Errorf("fixed = %d, want 0", fixed)
	}
	if out != content {
		t.Error("non blob/tree URLs were modified")
	}
}

func TestNormalizeLinksNoIdentity(t *testing.T) {
	content := `[x](https://github.com/foreign/repo/blob/main/a.go)`
	out, fixed := NormalizeLinks(content, "", "")
	if fixed != 0 || out != content {
		t.Error("normalization should be skipped without a canonical identity")
	}
}
