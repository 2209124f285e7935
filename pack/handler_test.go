package pack

import (
	"testing"
	"time"

	"github.com/monoforge/kit/objects"
	"github.com/monoforge/kit/resolver"
	"github.com/monoforge/kit/store"
	"github.com/stretchr/testify/require"
)

// fakeCodec bypasses the real packfile wire format so handler tests can
// exercise classification and ingestion logic without depending on
// binary encode/decode correctness, which is covered separately by
// codec_test.go.
type fakeCodec struct {
	entries []objects.Entry
}

func (f fakeCodec) Decode(_ []byte) (<-chan objects.Entry, <-chan error) {
	out := make(chan objects.Entry, len(f.entries))
	errc := make(chan error, 1)
	for _, e := range f.entries {
		out <- e
	}
	close(out)
	errc <- nil
	close(errc)
	return out, errc
}

func (f fakeCodec) Encode(_ int, entries <-chan objects.Entry) ([]byte, error) {
	for range entries {
	}
	return nil, nil
}

func commitEntry(c objects.Commit) objects.Entry {
	cp := c
	return objects.Entry{Type: objects.ObjectCommit, ID: c.ID, ParsedCommit: &cp}
}

func treeEntry(t objects.Tree) objects.Entry {
	cp := t
	return objects.Entry{Type: objects.ObjectTree, ID: t.ID, ParsedTree: &cp}
}

func blobEntry(b objects.RawBlob) objects.Entry {
	cp := b
	return objects.Entry{Type: objects.ObjectBlob, ID: b.ID, ParsedBlob: &cp}
}

func TestHeadHashBootstrapsEmptyRepo(t *testing.T) {
	s := store.NewMemoryStore()
	h := New(s, "main", 1000)

	ref1, err := h.HeadHash("/")
	require.NoError(t, err)
	require.NotNil(t, ref1)

	emptyTree := objects.NewTree(nil)
	require.Equal(t, emptyTree.ID, ref1.RefTreeHash)

	ref2, err := h.HeadHash("/")
	require.NoError(t, err)
	require.Equal(t, ref1.RefCommitHash, ref2.RefCommitHash)
}

func TestHeadHashSynthesizesSubpath(t *testing.T) {
	s := store.NewMemoryStore()
	h := New(s, "main", 1000)

	docsTree := objects.NewTree(nil)
	root := objects.NewTree([]objects.TreeItem{{Mode: objects.ModeTree, Name: "docs", ID: docsTree.ID}})
	require.NoError(t, s.BatchSaveEntries([]objects.Entry{
		{Type: objects.ObjectTree, ID: docsTree.ID, ParsedTree: &docsTree},
		{Type: objects.ObjectTree, ID: root.ID, ParsedTree: &root},
	}))
	rootCommit := objects.NewSyntheticCommit(root.ID)
	require.NoError(t, s.SaveCommits([]objects.Commit{rootCommit}))
	require.NoError(t, s.SaveRef("/", rootCommit.ID, root.ID))

	ref, err := h.HeadHash("/docs")
	require.NoError(t, err)
	require.NotNil(t, ref)
	require.Equal(t, docsTree.ID, ref.RefTreeHash)
	require.True(t, ref.DefaultBranch)
}

func TestHeadHashUnreachableSubpathReturnsNil(t *testing.T) {
	s := store.NewMemoryStore()
	h := New(s, "main", 1000)

	root := objects.NewTree(nil)
	require.NoError(t, s.BatchSaveEntries([]objects.Entry{{Type: objects.ObjectTree, ID: root.ID, ParsedTree: &root}}))
	rootCommit := objects.NewSyntheticCommit(root.ID)
	require.NoError(t, s.SaveCommits([]objects.Commit{rootCommit}))
	require.NoError(t, s.SaveRef("/", rootCommit.ID, root.ID))

	ref, err := h.HeadHash("/nope")
	require.NoError(t, err)
	require.Nil(t, ref)
}

func TestUnpackFreshOpensMR(t *testing.T) {
	s := store.NewMemoryStore()
	h := New(s, "main", 1000)

	sig := objects.Signature{Name: "a", Email: "a@example.com", When: time.Unix(1, 0)}
	c := objects.NewCommit(sig, sig, objects.ZeroID, nil, "first")
	h.codec = fakeCodec{entries: []objects.Entry{commitEntry(c)}}

	require.NoError(t, h.Unpack("/a", objects.ZeroID, c.ID, nil))

	got, err := s.GetOpenMR("/a")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, c.ID, got.ToHash)

	stored, err := s.GetCommit(c.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
}

func TestUnpackNoOpDoesNothing(t *testing.T) {
	s := store.NewMemoryStore()
	h := New(s, "main", 1000)
	h.codec = fakeCodec{}

	from := objects.ID("1111111111111111111111111111111111111111")
	to := objects.ID("2222222222222222222222222222222222222222")
	require.NoError(t, h.Unpack("/a", from, to, nil))

	got, err := s.GetOpenMR("/a")
	require.NoError(t, err)
	require.NoError(t, h.Unpack("/a", from, to, nil))

	got2, err := s.GetOpenMR("/a")
	require.NoError(t, err)
	require.Equal(t, got, got2)
}

func TestUnpackConflictClosesWithoutIngesting(t *testing.T) {
	s := store.NewMemoryStore()
	h := New(s, "main", 1000)

	h0 := objects.ID("0000000000000000000000000000000000000000")
	h1 := objects.ID("1111111111111111111111111111111111111111")
	h2 := objects.ID("2222222222222222222222222222222222222222")
	stale := objects.ID("9999999999999999999999999999999999999999")

	h.codec = fakeCodec{}
	require.NoError(t, h.Unpack("/a", h0, h1, nil))

	sig := objects.Signature{Name: "a", Email: "a@example.com", When: time.Unix(1, 0)}
	c := objects.NewCommit(sig, sig, objects.ZeroID, nil, "conflicting")
	h.codec = fakeCodec{entries: []objects.Entry{commitEntry(c)}}
	require.NoError(t, h.Unpack("/a", stale, h2, nil))

	open, err := s.GetOpenMR("/a")
	require.NoError(t, err)
	require.Nil(t, open)

	stored, err := s.GetCommit(c.ID)
	require.NoError(t, err)
	require.Nil(t, stored)
}

func TestUnpackMultiCommitClosesAfterIngest(t *testing.T) {
	s := store.NewMemoryStore()
	h := New(s, "main", 1000)

	sig := objects.Signature{Name: "a", Email: "a@example.com", When: time.Unix(1, 0)}
	c1 := objects.NewCommit(sig, sig, objects.ZeroID, nil, "first")
	c2 := objects.NewCommit(sig, sig, objects.ZeroID, []objects.ID{c1.ID}, "second")

	h.codec = fakeCodec{entries: []objects.Entry{commitEntry(c1), commitEntry(c2)}}
	require.NoError(t, h.Unpack("/a", objects.ZeroID, c2.ID, nil))

	open, err := s.GetOpenMR("/a")
	require.NoError(t, err)
	require.Nil(t, open)

	stored1, err := s.GetCommit(c1.ID)
	require.NoError(t, err)
	require.NotNil(t, stored1)
	stored2, err := s.GetCommit(c2.ID)
	require.NoError(t, err)
	require.NotNil(t, stored2)
}

func TestCheckCommitExist(t *testing.T) {
	s := store.NewMemoryStore()
	h := New(s, "main", 1000)

	sig := objects.Signature{Name: "a", Email: "a@example.com", When: time.Unix(1, 0)}
	c := objects.NewCommit(sig, sig, objects.ZeroID, nil, "x")
	require.NoError(t, s.SaveCommits([]objects.Commit{c}))

	ok, err := h.CheckCommitExist(c.ID)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = h.CheckCommitExist(objects.ID("deadbeefdeadbeefdeadbeefdeadbeefdeadbeef"))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestCheckDefaultBranchAlwaysTrue(t *testing.T) {
	h := New(store.NewMemoryStore(), "main", 1000)
	require.True(t, h.CheckDefaultBranch())
}

// TestMergeAtSubpathSucceeds covers spec §8 end-to-end scenario 6: a
// merge at a non-root path must check its precondition against the
// ref at that path, not the root ref (those are different commits for
// any subpath MR).
func TestMergeAtSubpathSucceeds(t *testing.T) {
	s := store.NewMemoryStore()
	h := New(s, "main", 1000)

	docsTree := objects.NewTree(nil)
	root := objects.NewTree([]objects.TreeItem{{Mode: objects.ModeTree, Name: "docs", ID: docsTree.ID}})
	require.NoError(t, s.BatchSaveEntries([]objects.Entry{
		{Type: objects.ObjectTree, ID: docsTree.ID, ParsedTree: &docsTree},
		{Type: objects.ObjectTree, ID: root.ID, ParsedTree: &root},
	}))
	rootCommit := objects.NewSyntheticCommit(root.ID)
	require.NoError(t, s.SaveCommits([]objects.Commit{rootCommit}))
	require.NoError(t, s.SaveRef("/", rootCommit.ID, root.ID))

	docsRef, err := h.HeadHash("/docs")
	require.NoError(t, err)
	require.NotNil(t, docsRef)

	sig := objects.Signature{Name: "a", Email: "a@example.com", When: time.Unix(1, 0)}
	blobMeta, rawBlob := objects.NewBlob([]byte("hi"), "file.txt")
	newDocsTree := objects.NewTree([]objects.TreeItem{{Mode: objects.ModeBlob, Name: "file.txt", ID: blobMeta.ID}})
	newCommit := objects.NewCommit(sig, sig, newDocsTree.ID, []objects.ID{docsRef.RefCommitHash}, "add file")

	h.codec = fakeCodec{entries: []objects.Entry{treeEntry(newDocsTree), blobEntry(rawBlob), commitEntry(newCommit)}}
	require.NoError(t, h.Unpack("/docs", docsRef.RefCommitHash, newCommit.ID, nil))

	mr, err := s.GetOpenMR("/docs")
	require.NoError(t, err)
	require.NotNil(t, mr)

	newRootCommit, err := h.Merge(mr, "alice", "lgtm")
	require.NoError(t, err)
	require.Equal(t, rootCommit.ID, newRootCommit.ParentIDs[0])

	stillOpen, err := s.GetOpenMR("/docs")
	require.NoError(t, err)
	require.Nil(t, stillOpen)

	_, target, err := resolver.New(s).Resolve("/docs")
	require.NoError(t, err)
	require.Equal(t, rawBlob.ID, mustFind(t, target, "file.txt"))
}

func mustFind(t *testing.T, tr objects.Tree, name string) objects.ID {
	t.Helper()
	item, ok := tr.Find(name)
	require.True(t, ok)
	return item.ID
}
