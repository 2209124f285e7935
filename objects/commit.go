package objects

import (
	"bytes"
	"fmt"
)

// Commit is (id, tree_id, parent_ids[], author, committer, message).
// The id is determined by the canonical commit serialization (spec §3).
type Commit struct {
	ID        ID
	TreeID    ID
	ParentIDs []ID
	Author    Signature
	Committer Signature
	Message   string
}

// SyntheticCommitMessage is the fixed message used for commits
// synthesized to materialize a subtree snapshot for a synthetic ref
// (spec §4.3 head_hash), grounded in the original implementation's
// "generated by mega for maintain refs" wording.
const SyntheticCommitMessage = "This commit was generated by monoforge for maintain refs"

// NewSyntheticCommit builds the parentless commit materialized when a
// subtree is reached for the first time during head_hash.
func NewSyntheticCommit(treeID ID) Commit {
	c := Commit{TreeID: treeID, Message: SyntheticCommitMessage}
	c.ID = computeID(commitObjType, serializeCommit(c))
	return c
}

// NewCommit builds a commit with explicit author/committer/parents and
// computes its id from the canonical serialization.
func NewCommit(author, committer Signature, treeID ID, parents []ID, message string) Commit {
	c := Commit{TreeID: treeID, ParentIDs: parents, Author: author, Committer: committer, Message: message}
	c.ID = computeID(commitObjType, serializeCommit(c))
	return c
}

// serializeCommit renders c into git's canonical commit object body:
// a tree line, zero or more parent lines, author/committer lines, a
// blank line, then the message.
func serializeCommit(c Commit) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "tree %s\n", c.TreeID)
	for _, p := range c.ParentIDs {
		fmt.Fprintf(&buf, "parent %s\n", p)
	}
	fmt.Fprintf(&buf, "author %s <%s> %d %s\n", c.Author.Name, c.Author.Email, c.Author.When.Unix(), c.Author.When.Format("-0700"))
	fmt.Fprintf(&buf, "committer %s <%s> %d %s\n", c.Committer.Name, c.Committer.Email, c.Committer.When.Unix(), c.Committer.When.Format("-0700"))
	buf.WriteString("\n")
	buf.WriteString(c.Message)
	return buf.Bytes()
}
