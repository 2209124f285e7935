package pack

import (
	"testing"
	"time"

	"github.com/monoforge/kit/objects"
	"github.com/stretchr/testify/require"
)

func drainEntries(t *testing.T, entries <-chan objects.Entry, errc <-chan error) []objects.Entry {
	t.Helper()
	var got []objects.Entry
	for e := range entries {
		got = append(got, e)
	}
	require.NoError(t, <-errc)
	return got
}

func TestCodecRoundTripsBlobTreeCommit(t *testing.T) {
	codec := NewCodec()

	blob, raw := objects.NewBlob([]byte("hello world"), "file.txt")
	tree := objects.NewTree([]objects.TreeItem{{Mode: objects.ModeBlob, Name: "file.txt", ID: blob.ID}})
	sig := objects.Signature{Name: "alice", Email: "alice@example.com", When: time.Unix(1700000000, 0)}
	commit := objects.NewCommit(sig, sig, tree.ID, nil, "initial commit")

	rawCp, treeCp, commitCp := raw, tree, commit
	in := []objects.Entry{
		{Type: objects.ObjectBlob, ID: raw.ID, ParsedBlob: &rawCp},
		{Type: objects.ObjectTree, ID: tree.ID, ParsedTree: &treeCp},
		{Type: objects.ObjectCommit, ID: commit.ID, ParsedCommit: &commitCp},
	}

	src := make(chan objects.Entry, len(in))
	for _, e := range in {
		src <- e
	}
	close(src)

	data, err := codec.Encode(len(in), src)
	require.NoError(t, err)
	require.NotEmpty(t, data)

	entries, errc := codec.Decode(data)
	got := drainEntries(t, entries, errc)
	require.Len(t, got, len(in))

	byID := make(map[objects.ID]objects.Entry, len(got))
	for _, e := range got {
		byID[e.ID] = e
	}

	decodedBlob, ok := byID[raw.ID]
	require.True(t, ok)
	require.Equal(t, objects.ObjectBlob, decodedBlob.Type)
	require.Equal(t, raw.Data, decodedBlob.ParsedBlob.Data)

	decodedTree, ok := byID[tree.ID]
	require.True(t, ok)
	require.Equal(t, objects.ObjectTree, decodedTree.Type)
	require.Len(t, decodedTree.ParsedTree.Items, 1)
	require.Equal(t, "file.txt", decodedTree.ParsedTree.Items[0].Name)

	decodedCommit, ok := byID[commit.ID]
	require.True(t, ok)
	require.Equal(t, objects.ObjectCommit, decodedCommit.Type)
	require.Equal(t, "initial commit", decodedCommit.ParsedCommit.Message)
	require.Equal(t, tree.ID, decodedCommit.ParsedCommit.TreeID)
}

func TestEncodeDetectsCountMismatch(t *testing.T) {
	codec := NewCodec()
	blob, raw := objects.NewBlob([]byte("x"), "x.txt")
	_ = blob
	src := make(chan objects.Entry, 1)
	cp := raw
	src <- objects.Entry{Type: objects.ObjectBlob, ID: raw.ID, ParsedBlob: &cp}
	close(src)

	_, err := codec.Encode(2, src)
	require.Error(t, err)
}
