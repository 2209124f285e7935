package objects

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/go-git/go-git/v5/plumbing"
)

// TreeItem is one entry of a Tree: a name bound to a child object of a
// given mode. Tree items within a tree are unique by name (spec §3).
type TreeItem struct {
	Mode Mode
	Name string
	ID   ID
}

// Tree is an ordered list of tree items. Its id is the SHA-1 of its
// canonical serialized form. A tree may be empty (spec §3).
type Tree struct {
	ID    ID
	Items []TreeItem

	// CommitID is the lineage stamp written by the tree-update engine
	// (spec §4.5 step 5): the root commit that last rewrote this tree.
	// It is metadata for lineage queries only and plays no part in the
	// tree's identity.
	CommitID ID
}

// Find returns the tree item with the given name, if any.
func (t *Tree) Find(name string) (TreeItem, bool) {
	for _, item := range t.Items {
		if item.Name == name {
			return item, true
		}
	}
	return TreeItem{}, false
}

// WithChild returns a copy of t with the named item's child id set to
// newChild, re-hashed. The item must already exist in t (the
// tree-update engine never invents new tree items, only rewrites
// existing ones along the ancestor chain).
func (t *Tree) WithChild(name string, newChild ID) (Tree, error) {
	items := make([]TreeItem, len(t.Items))
	copy(items, t.Items)

	found := false
	for i, item := range items {
		if item.Name == name {
			items[i].ID = newChild
			found = true
			break
		}
	}
	if !found {
		return Tree{}, fmt.Errorf("tree item %q not found", name)
	}
	return NewTree(items), nil
}

// NewTree builds a Tree from its items and computes its canonical id.
// Items are canonicalized in git's tree order (by name, with subtree
// names compared as if they ended in "/") so that two trees with the
// same membership hash identically regardless of construction order.
func NewTree(items []TreeItem) Tree {
	sorted := make([]TreeItem, len(items))
	copy(sorted, items)
	sortKey := func(item TreeItem) string {
		if item.Mode == ModeTree {
			return item.Name + "/"
		}
		return item.Name
	}
	sort.Slice(sorted, func(i, j int) bool { return sortKey(sorted[i]) < sortKey(sorted[j]) })

	buf := serializeTree(sorted)
	return Tree{ID: computeID(treeObjType, buf), Items: sorted}
}

// serializeTree renders items (already in canonical order) into git's
// canonical tree entry format: "<mode> <name>\0<20 raw id bytes>" per
// entry, concatenated.
func serializeTree(items []TreeItem) []byte {
	var buf bytes.Buffer
	for _, item := range items {
		fmt.Fprintf(&buf, "%s %s\x00", item.Mode.String(), item.Name)
		h := plumbing.NewHash(item.ID.String())
		buf.Write(h[:])
	}
	return buf.Bytes()
}
