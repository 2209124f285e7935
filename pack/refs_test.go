package pack

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAdvertisementPreambleIsPktLineFramed(t *testing.T) {
	sha1 := strings.Repeat("a", 40)
	out := AdvertisementPreamble(sha1, "main", "monoforge", "1.0")

	require.True(t, strings.HasPrefix(out, "001e# service=git-upload-pack\n"))
	require.True(t, strings.HasSuffix(out, "0000"))
	require.Contains(t, out, sha1+" HEAD\x00")
	require.Contains(t, out, "agent=monoforge/1.0")
	require.Contains(t, out, sha1+" refs/heads/main\n")
}

func TestPktLineLengthPrefixIncludesItself(t *testing.T) {
	line := pktLine("abc")
	require.Equal(t, "0007abc", line)
}
