package objects

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewTreeIsOrderIndependent(t *testing.T) {
	a := TreeItem{Mode: ModeBlob, Name: "a.txt", ID: ID("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")}
	b := TreeItem{Mode: ModeTree, Name: "b", ID: ID("bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")}

	t1 := NewTree([]TreeItem{a, b})
	t2 := NewTree([]TreeItem{b, a})

	require.Equal(t, t1.ID, t2.ID)
}

func TestNewTreeEmpty(t *testing.T) {
	empty := NewTree(nil)
	require.NotEmpty(t, empty.ID)
	require.Empty(t, empty.Items)
}

func TestWithChildRehashesDeterministically(t *testing.T) {
	a := TreeItem{Mode: ModeBlob, Name: "a.txt", ID: ID("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")}
	base := NewTree([]TreeItem{a})

	updated1, err := base.WithChild("a.txt", ID("cccccccccccccccccccccccccccccccccccccccc"))
	require.NoError(t, err)

	updated2, err := base.WithChild("a.txt", ID("cccccccccccccccccccccccccccccccccccccccc"))
	require.NoError(t, err)

	require.Equal(t, updated1.ID, updated2.ID)
	require.NotEqual(t, base.ID, updated1.ID)
}

func TestWithChildMissingItem(t *testing.T) {
	base := NewTree(nil)
	_, err := base.WithChild("missing", ID("cccccccccccccccccccccccccccccccccccccccc"))
	require.Error(t, err)
}

func TestFind(t *testing.T) {
	a := TreeItem{Mode: ModeBlob, Name: "a.txt", ID: ID("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")}
	tr := NewTree([]TreeItem{a})

	item, ok := tr.Find("a.txt")
	require.True(t, ok)
	require.Equal(t, a.ID, item.ID)

	_, ok = tr.Find("missing")
	require.False(t, ok)
}
