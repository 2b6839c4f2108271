package manifest

import (
	"encoding/json"
	"sort"
)

// Page is one entry of the doc-tree structure.
type Page struct {
	Path     string `json:"-"`
	Title    string `json:"title"`
	Heading  string `json:"heading"`
	NavOrder int    `json:"nav_order"`
}

// DocTree is the navigation structure an agent produced in doc_tree.json.
type DocTree struct {
	Pages []Page
}

type docTreeFile struct {
	Structure map[string]Page `json:"structure"`
}

// ParseDocTree decodes doc_tree.json. A malformed or empty file yields an
// empty tree and false; the site build then falls back to alphabetical
// navigation rather than aborting.
func ParseDocTree(data []byte) (*DocTree, bool) {
	var file docTreeFile
	if err := json.Unmarshal(data, &file); err != nil || len(file.Structure) == 0 {
		return &DocTree{}, false
	}

	tree := &DocTree{Pages: make([]Page, 0, len(file.Structure))}
	for path, page := range file.Structure {
		page.Path = path
		tree.Pages = append(tree.Pages, page)
	}

	sort.Slice(tree.Pages, func(i, j int) bool {
		if tree.Pages[i].NavOrder != tree.Pages[j].NavOrder {
			return tree.Pages[i].NavOrder < tree.Pages[j].NavOrder
		}
		return tree.Pages[i].Path < tree.Pages[j].Path
	})
	return tree, true
}
