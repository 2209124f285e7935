package store

import (
	"github.com/monoforge/kit/objects"
)

// ObjectStore is the Object Store Facade (spec §4.1): typed CRUD over
// commits/trees/blobs/tags/refs/MRs, keyed by SHA-1. Each method is
// atomic with respect to a single row and transactional across the set
// of rows written in one call. NotFound conditions are represented by
// a nil value and a nil error, never a sentinel error; storage I/O
// failures are returned wrapped (so callers can match on the
// underlying cause with errors.Is/As, per the StorageError kind of
// spec §7).
//
// This is deliberately not a singleton (spec §9 "Process-wide
// singletons"): it is passed explicitly so tests can substitute an
// in-memory fake (see MemoryStore).
type ObjectStore interface {
	GetRef(path string) (*Ref, error)
	SaveRef(path string, commitID, treeID objects.ID) error
	UpdateRef(ref Ref) error
	RemoveRef(ref Ref) error
	RemoveRefsWithPrefix(path string) error

	GetCommit(id objects.ID) (*objects.Commit, error)
	SaveCommits(commits []objects.Commit) error

	GetTree(id objects.ID) (*objects.Tree, error)
	GetTrees(ids []objects.ID) ([]objects.Tree, error)
	// StampTreeCommit records the lineage stamp (spec §4.5 step 5):
	// the root commit that last rewrote each of the given trees.
	StampTreeCommit(treeIDs []objects.ID, commitID objects.ID) error

	GetRawBlob(id objects.ID) (*objects.RawBlob, error)

	// BatchSaveEntries dispatches each Entry to its typed table by
	// Entry.Type, idempotent on (Type, ID) collisions (spec §4.1).
	BatchSaveEntries(entries []objects.Entry) error

	// CountObjects returns the total number of commits+trees+blobs+tags
	// in the store, used to initialize the pack encoder before
	// enumeration begins (spec §4.3 full_pack).
	CountObjects() (int, error)

	// StreamCommits, StreamTrees, StreamBlobs and StreamTags enumerate
	// every object of their kind. The returned channel is closed when
	// enumeration completes; a nil error is sent on errc in that case.
	StreamCommits() (<-chan objects.Commit, <-chan error)
	StreamTrees() (<-chan objects.Tree, <-chan error)
	StreamBlobs() (<-chan objects.RawBlob, <-chan error)
	StreamTags() (<-chan objects.Tag, <-chan error)

	GetOpenMR(path string) (*MergeRequest, error)
	GetOpenMRByID(id int64) (*MergeRequest, error)
	SaveMR(mr *MergeRequest) error
	UpdateMR(mr *MergeRequest) error
	AddMRConversation(mrID int64, authorID string, kind ConvKind, body string) error
}
