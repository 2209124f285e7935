package treeupdate

import (
	"testing"
	"time"

	"github.com/monoforge/kit/objects"
	"github.com/monoforge/kit/store"
	"github.com/stretchr/testify/require"
)

func seedRepo(t *testing.T) (*store.MemoryStore, objects.Commit, objects.Tree, objects.Tree) {
	t.Helper()
	s := store.NewMemoryStore()

	blob, raw := objects.NewBlob([]byte("hello"), "a/b/file.txt")
	require.NoError(t, s.BatchSaveEntries([]objects.Entry{{Type: objects.ObjectBlob, ID: raw.ID, ParsedBlob: &raw}}))

	treeB := objects.NewTree([]objects.TreeItem{{Mode: objects.ModeBlob, Name: "file.txt", ID: blob.ID}})
	treeA := objects.NewTree([]objects.TreeItem{{Mode: objects.ModeTree, Name: "b", ID: treeB.ID}})
	root := objects.NewTree([]objects.TreeItem{{Mode: objects.ModeTree, Name: "a", ID: treeA.ID}})

	for _, tr := range []objects.Tree{treeB, treeA, root} {
		cp := tr
		require.NoError(t, s.BatchSaveEntries([]objects.Entry{{Type: objects.ObjectTree, ID: tr.ID, ParsedTree: &cp}}))
	}

	sig := objects.Signature{Name: "root", Email: "root@example.com", When: time.Unix(1000, 0)}
	rootCommit := objects.NewCommit(sig, sig, root.ID, nil, "initial import")
	require.NoError(t, s.SaveCommits([]objects.Commit{rootCommit}))
	require.NoError(t, s.SaveRef("/", rootCommit.ID, root.ID))

	return s, rootCommit, treeA, treeB
}

func TestMergeRewritesAncestorChain(t *testing.T) {
	s, rootCommit, _, treeB := seedRepo(t)
	engine := New(s)

	newBlob, newRaw := objects.NewBlob([]byte("world"), "a/b/file.txt")
	require.NoError(t, s.BatchSaveEntries([]objects.Entry{{Type: objects.ObjectBlob, ID: newRaw.ID, ParsedBlob: &newRaw}}))
	newTreeB := objects.NewTree([]objects.TreeItem{{Mode: objects.ModeBlob, Name: "file.txt", ID: newBlob.ID}})
	require.NoError(t, s.BatchSaveEntries([]objects.Entry{{Type: objects.ObjectTree, ID: newTreeB.ID, ParsedTree: &newTreeB}}))
	require.NotEqual(t, treeB.ID, newTreeB.ID)

	sig := objects.Signature{Name: "alice", Email: "alice@example.com", When: time.Unix(2000, 0)}
	mrCommit := objects.NewCommit(sig, sig, newTreeB.ID, nil, "update file")

	newRoot, err := engine.Merge("/a/b", mrCommit)
	require.NoError(t, err)
	require.NotEqual(t, rootCommit.ID, newRoot.ID)
	require.Equal(t, []objects.ID{rootCommit.ID}, newRoot.ParentIDs)
	require.Equal(t, "alice", newRoot.Author.Name)
	require.Equal(t, "update file", newRoot.Message)

	ref, err := s.GetRef("/")
	require.NoError(t, err)
	require.Equal(t, newRoot.ID, ref.RefCommitHash)

	newRootTree, err := s.GetTree(ref.RefTreeHash)
	require.NoError(t, err)
	aItem, ok := newRootTree.Find("a")
	require.True(t, ok)
	newTreeA, err := s.GetTree(aItem.ID)
	require.NoError(t, err)
	bItem, ok := newTreeA.Find("b")
	require.True(t, ok)
	require.Equal(t, newTreeB.ID, bItem.ID)
}

func TestMergeIsDeterministic(t *testing.T) {
	s1, _, _, _ := seedRepo(t)
	s2, _, _, _ := seedRepo(t)

	newBlob, newRaw := objects.NewBlob([]byte("world"), "a/b/file.txt")
	newTreeB := objects.NewTree([]objects.TreeItem{{Mode: objects.ModeBlob, Name: "file.txt", ID: newBlob.ID}})
	sig := objects.Signature{Name: "alice", Email: "alice@example.com", When: time.Unix(2000, 0)}
	mrCommit := objects.NewCommit(sig, sig, newTreeB.ID, nil, "update file")

	for _, s := range []*store.MemoryStore{s1, s2} {
		require.NoError(t, s.BatchSaveEntries([]objects.Entry{{Type: objects.ObjectBlob, ID: newRaw.ID, ParsedBlob: &newRaw}}))
		tb := newTreeB
		require.NoError(t, s.BatchSaveEntries([]objects.Entry{{Type: objects.ObjectTree, ID: newTreeB.ID, ParsedTree: &tb}}))
	}

	root1, err := New(s1).Merge("/a/b", mrCommit)
	require.NoError(t, err)
	root2, err := New(s2).Merge("/a/b", mrCommit)
	require.NoError(t, err)

	require.Equal(t, root1.TreeID, root2.TreeID)
}

func TestMergeDeletesInvalidatedSyntheticRefs(t *testing.T) {
	s, _, _, treeB := seedRepo(t)
	engine := New(s)

	require.NoError(t, s.SaveRef("/a", objects.ZeroID, treeB.ID))
	require.NoError(t, s.SaveRef("/a/b", objects.ZeroID, treeB.ID))
	require.NoError(t, s.SaveRef("/a/b/z", objects.ZeroID, treeB.ID))

	newBlob, newRaw := objects.NewBlob([]byte("world"), "a/b/file.txt")
	require.NoError(t, s.BatchSaveEntries([]objects.Entry{{Type: objects.ObjectBlob, ID: newRaw.ID, ParsedBlob: &newRaw}}))
	newTreeB := objects.NewTree([]objects.TreeItem{{Mode: objects.ModeBlob, Name: "file.txt", ID: newBlob.ID}})
	require.NoError(t, s.BatchSaveEntries([]objects.Entry{{Type: objects.ObjectTree, ID: newTreeB.ID, ParsedTree: &newTreeB}}))

	sig := objects.Signature{Name: "alice", Email: "alice@example.com", When: time.Unix(2000, 0)}
	mrCommit := objects.NewCommit(sig, sig, newTreeB.ID, nil, "update file")

	_, err := engine.Merge("/a/b", mrCommit)
	require.NoError(t, err)

	ref, err := s.GetRef("/a")
	require.NoError(t, err)
	require.Nil(t, ref)

	ref, err = s.GetRef("/a/b")
	require.NoError(t, err)
	require.Nil(t, ref)

	ref, err = s.GetRef("/a/b/z")
	require.NoError(t, err)
	require.Nil(t, ref)
}

func TestCreateFileInstallsDirectlyAtRoot(t *testing.T) {
	s, rootCommit, _, _ := seedRepo(t)
	engine := New(s)

	sig := objects.Signature{Name: "bot", Email: "bot@example.com", When: time.Unix(3000, 0)}
	newRoot, err := engine.CreateFile("/a/b/new.txt", []byte("content"), sig, sig, "add new.txt")
	require.NoError(t, err)
	require.Equal(t, []objects.ID{rootCommit.ID}, newRoot.ParentIDs)

	ref, err := s.GetRef("/")
	require.NoError(t, err)
	rootTree, err := s.GetTree(ref.RefTreeHash)
	require.NoError(t, err)
	aItem, ok := rootTree.Find("a")
	require.True(t, ok)
	treeA, err := s.GetTree(aItem.ID)
	require.NoError(t, err)
	bItem, ok := treeA.Find("b")
	require.True(t, ok)
	treeB, err := s.GetTree(bItem.ID)
	require.NoError(t, err)
	_, ok = treeB.Find("new.txt")
	require.True(t, ok)
	_, ok = treeB.Find("file.txt")
	require.True(t, ok)
}
