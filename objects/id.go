package objects

import (
	"encoding/hex"

	"github.com/go-git/go-git/v5/plumbing"
)

// ID is a 40-character lowercase hex SHA-1 object id. It is the
// currency that all cross-entity links (tree item children, commit
// trees and parents, tag targets, refs) are expressed in.
type ID string

// ZeroID is the all-zero id used to denote "no object" (e.g. the old
// side of a reference creation).
const ZeroID ID = "0000000000000000000000000000000000000000"

// IsZero reports whether id is the zero id.
func (id ID) IsZero() bool { return id == ZeroID || id == "" }

// String implements fmt.Stringer.
func (id ID) String() string { return string(id) }

// Short returns the first n hex characters of id, used for the
// truncated hashes in force-update conversations (spec §9, note 3).
func (id ID) Short(n int) string {
	s := string(id)
	if len(s) <= n {
		return s
	}
	return s[:n]
}

const (
	blobObjType   = plumbing.BlobObject
	treeObjType   = plumbing.TreeObject
	commitObjType = plumbing.CommitObject
	tagObjType    = plumbing.TagObject
)

// computeID hashes content under the given git object type header,
// delegating to go-git's plumbing package so the id matches what a
// real git client would compute for the same canonical bytes.
func computeID(t plumbing.ObjectType, content []byte) ID {
	return ID(plumbing.ComputeHash(t, content).String())
}

// ValidID reports whether s looks like a well-formed 40-char hex id.
func ValidID(s string) bool {
	if len(s) != 40 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}
