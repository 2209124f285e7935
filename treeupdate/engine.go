// Package treeupdate implements the Tree-Update Engine (spec §4.5,
// Component E): rewriting the ancestor-tree chain after a subtree
// change, producing a new root commit, and reconciling the synthetic
// refs that chain invalidates. It is grounded in the original
// implementation's update_parent_tree
// (original_source/gateway/src/api_service/mono_service.rs), which
// pops the ancestor tree vector from deepest to shallowest and, on
// reaching "/", builds a new root commit from the merged commit's
// author/committer/message with the old root commit as parent.
package treeupdate

import (
	"strings"

	"github.com/monoforge/kit/objects"
	"github.com/monoforge/kit/resolver"
	"github.com/monoforge/kit/store"
	"github.com/monoforge/kit/util"
	"github.com/pkg/errors"
)

// Engine rewrites the ancestor chain and root commit on merge.
type Engine struct {
	store    store.ObjectStore
	resolver *resolver.Resolver
}

// New returns an Engine backed by s.
func New(s store.ObjectStore) *Engine {
	return &Engine{store: s, resolver: resolver.New(s)}
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

// Merge rewrites the ancestor chain for path p so that the root tree
// has mrCommit's tree installed at p, produces a new root commit, and
// advances the "/" ref to it (spec §4.5 steps 1-3). It then deletes
// every synthetic ref invalidated by the merge (step 4) and stamps
// every newly written tree with the new root commit's id (step 5).
//
// p == "/" is the degenerate case: the merged commit's tree becomes
// the new root tree directly, with no ancestor rewriting.
func (e *Engine) Merge(p string, mrCommit objects.Commit) (objects.Commit, error) {
	oldRootRef, err := e.store.GetRef("/")
	if err != nil {
		return objects.Commit{}, errors.Wrap(err, "tree_update: get root ref")
	}
	if oldRootRef == nil {
		return objects.Commit{}, errors.Wrap(util.ErrPathNotFound, "tree_update: no root ref")
	}

	components := splitPath(p)

	if len(components) == 0 {
		root, err := e.buildRootCommit(mrCommit, mrCommit.TreeID, oldRootRef.RefCommitHash)
		if err != nil {
			return objects.Commit{}, err
		}
		if err := e.finalize(root, mrCommit.TreeID, nil, p); err != nil {
			return objects.Commit{}, err
		}
		if err := e.store.StampTreeCommit([]objects.ID{mrCommit.TreeID}, root.ID); err != nil {
			return objects.Commit{}, errors.Wrap(err, "tree_update: stamp root tree")
		}
		return root, nil
	}

	ancestors, _, err := e.resolver.Resolve(p)
	if err != nil {
		return objects.Commit{}, errors.Wrap(err, "tree_update: resolve ancestors")
	}
	if len(ancestors) != len(components) {
		return objects.Commit{}, errors.New("tree_update: ancestor chain does not match path depth")
	}

	newTreeIDs := make([]objects.ID, 0, len(ancestors)+1)
	targetHash := mrCommit.TreeID

	for i := len(ancestors) - 1; i >= 0; i-- {
		rewritten, err := ancestors[i].WithChild(components[i], targetHash)
		if err != nil {
			return objects.Commit{}, errors.Wrapf(err, "tree_update: rewrite ancestor at %q", components[i])
		}
		if err := e.store.BatchSaveEntries([]objects.Entry{{Type: objects.ObjectTree, ID: rewritten.ID, ParsedTree: &rewritten}}); err != nil {
			return objects.Commit{}, errors.Wrap(err, "tree_update: persist rewritten tree")
		}
		newTreeIDs = append(newTreeIDs, rewritten.ID)
		targetHash = rewritten.ID
	}

	root, err := e.buildRootCommit(mrCommit, targetHash, oldRootRef.RefCommitHash)
	if err != nil {
		return objects.Commit{}, err
	}

	if err := e.finalize(root, targetHash, ancestorDirPaths(components), p); err != nil {
		return objects.Commit{}, err
	}
	if err := e.store.StampTreeCommit(newTreeIDs, root.ID); err != nil {
		return objects.Commit{}, errors.Wrap(err, "tree_update: stamp rewritten trees")
	}
	return root, nil
}

func (e *Engine) buildRootCommit(mrCommit objects.Commit, rootTreeID objects.ID, oldRootCommitID objects.ID) (objects.Commit, error) {
	var parents []objects.ID
	if !oldRootCommitID.IsZero() {
		parents = []objects.ID{oldRootCommitID}
	}
	root := objects.NewCommit(mrCommit.Author, mrCommit.Committer, rootTreeID, parents, mrCommit.Message)
	if err := e.store.SaveCommits([]objects.Commit{root}); err != nil {
		return objects.Commit{}, errors.Wrap(err, "tree_update: save root commit")
	}
	return root, nil
}

// finalize advances the "/" ref and deletes refs invalidated by the
// merge: every synthetic ref on
// an ancestor directory actually rewritten (step 4), plus every ref
// whose path is p or nested under p (spec §3 invariant: "all
// synthetic refs whose path has p as prefix are deleted").
func (e *Engine) finalize(root objects.Commit, rootTreeID objects.ID, ancestorDirs []string, p string) error {
	if err := e.store.UpdateRef(store.Ref{Path: "/", RefName: "/", RefCommitHash: root.ID, RefTreeHash: rootTreeID, DefaultBranch: true}); err != nil {
		return errors.Wrap(err, "tree_update: advance root ref")
	}

	for _, dir := range ancestorDirs {
		if dir == "/" {
			continue
		}
		ref, err := e.store.GetRef(dir)
		if err != nil {
			return errors.Wrapf(err, "tree_update: get ref %q", dir)
		}
		if ref != nil {
			if err := e.store.RemoveRef(*ref); err != nil {
				return errors.Wrapf(err, "tree_update: remove stale ancestor ref %q", dir)
			}
		}
	}

	if p != "/" {
		if err := e.store.RemoveRefsWithPrefix(p); err != nil {
			return errors.Wrap(err, "tree_update: remove refs under merged path")
		}
	}

	return nil
}

// ancestorDirPaths returns the absolute directory path of each ancestor
// tree visited while resolving components, in the same order as the
// ancestors slice returned by resolver.Resolve: the root ("/") first,
// then each successively deeper parent up to (but excluding) the
// merged path itself.
func ancestorDirPaths(components []string) []string {
	dirs := make([]string, len(components))
	for i := range components {
		dirs[i] = "/" + strings.Join(components[:i], "/")
	}
	return dirs
}

// CreateFile is a single-file convenience that builds a blob and tree
// for content at path and installs it directly against the root,
// bypassing the MR machinery entirely (SPEC_FULL.md §12, supplemented
// from the original's create_monorepo_file, which performs the same
// direct-to-root write for single-file edits that don't warrant a full
// push/MR cycle).
func (e *Engine) CreateFile(path string, content []byte, author, committer objects.Signature, message string) (objects.Commit, error) {
	components := splitPath(path)
	if len(components) == 0 {
		return objects.Commit{}, errors.New("tree_update: create_file requires a non-root path")
	}
	fileName := components[len(components)-1]
	dirPath := "/" + strings.Join(components[:len(components)-1], "/")

	blob, raw := objects.NewBlob(content, path)
	if err := e.store.BatchSaveEntries([]objects.Entry{{Type: objects.ObjectBlob, ID: raw.ID, ParsedBlob: &raw}}); err != nil {
		return objects.Commit{}, errors.Wrap(err, "tree_update: create_file save blob")
	}

	_, dirTree, err := e.resolver.Resolve(dirPath)
	if err != nil {
		return objects.Commit{}, errors.Wrap(err, "tree_update: create_file resolve directory")
	}

	items := make([]objects.TreeItem, 0, len(dirTree.Items)+1)
	replaced := false
	for _, item := range dirTree.Items {
		if item.Name == fileName {
			items = append(items, objects.TreeItem{Mode: objects.ModeBlob, Name: fileName, ID: blob.ID})
			replaced = true
			continue
		}
		items = append(items, item)
	}
	if !replaced {
		items = append(items, objects.TreeItem{Mode: objects.ModeBlob, Name: fileName, ID: blob.ID})
	}
	newDirTree := objects.NewTree(items)
	if err := e.store.BatchSaveEntries([]objects.Entry{{Type: objects.ObjectTree, ID: newDirTree.ID, ParsedTree: &newDirTree}}); err != nil {
		return objects.Commit{}, errors.Wrap(err, "tree_update: create_file save tree")
	}

	synthetic := objects.NewCommit(author, committer, newDirTree.ID, nil, message)
	return e.Merge(dirPath, synthetic)
}
