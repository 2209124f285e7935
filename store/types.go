package store

import (
	"time"

	"github.com/monoforge/kit/objects"
)

// Ref is (path, ref_name, ref_commit_hash, ref_tree_hash, default_branch).
// path is a normalized absolute subtree path ("/" for the root). At
// most one ref exists per path (spec §3).
type Ref struct {
	Path          string
	RefName       string
	RefCommitHash objects.ID
	RefTreeHash   objects.ID
	DefaultBranch bool
}

// MRStatus is the lifecycle state of a MergeRequest (spec §3, §4.4).
type MRStatus string

const (
	MRStatusOpen   MRStatus = "open"
	MRStatusMerged MRStatus = "merged"
	MRStatusClosed MRStatus = "closed"
)

// ConvKind tags the kind of a Conversation entry (spec §3, §6).
type ConvKind string

const (
	ConvComment      ConvKind = "comment"
	ConvForceUpdated ConvKind = "force_updated"
	ConvClosed       ConvKind = "closed"
	ConvMerged       ConvKind = "merged"
)

// Conversation is one entry of an MR's log, ordered by insertion time
// (spec §3).
type Conversation struct {
	ID        int64
	MRID      int64
	AuthorID  string
	Kind      ConvKind
	Body      string
	CreatedAt time.Time
}

// MergeRequest is the serialization point for all mutations to a given
// subtree path (spec §3, GLOSSARY). At most one Open MR exists per
// path.
type MergeRequest struct {
	ID            int64
	Path          string
	FromHash      objects.ID
	ToHash        objects.ID
	Status        MRStatus
	Conversations []Conversation
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// IsOpen reports whether the MR is in the Open state.
func (mr *MergeRequest) IsOpen() bool { return mr.Status == MRStatusOpen }
