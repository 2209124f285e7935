// Package mr implements the MR State Machine (spec §4.4, Component D):
// Open/Merged/Closed transitions and the conversation log, plus the
// push classification table of spec §4.3 that the pack handler
// consults before ingesting a push.
package mr

import (
	"github.com/monoforge/kit/objects"
	"github.com/monoforge/kit/store"
	"github.com/monoforge/kit/util"
	"github.com/pkg/errors"
)

// Action is the outcome of classifying a push against any existing
// open MR for a path (spec §4.3 table).
type Action int

const (
	// ActionFresh: no open MR exists; a new one should be opened and
	// the push ingested.
	ActionFresh Action = iota
	// ActionNoOp: an open MR exists and the push carries the same
	// from/to hashes already recorded; nothing to do.
	ActionNoOp
	// ActionForceUpdate: an open MR exists, from_hash matches but
	// to_hash differs; ingest and advance to_hash.
	ActionForceUpdate
	// ActionConflict: an open MR exists and from_hash does not match;
	// reject without ingesting.
	ActionConflict
)

// Classify is total over (mr exists, from match, to match) — every
// triple maps to exactly one Action (spec §8 property 6).
func Classify(existing *store.MergeRequest, fromHash, toHash objects.ID) Action {
	if existing == nil {
		return ActionFresh
	}
	if existing.FromHash != fromHash {
		return ActionConflict
	}
	if existing.ToHash == toHash {
		return ActionNoOp
	}
	return ActionForceUpdate
}

// StateMachine applies MR transitions against an ObjectStore.
type StateMachine struct {
	store store.ObjectStore
}

// New returns a StateMachine backed by s.
func New(s store.ObjectStore) *StateMachine {
	return &StateMachine{store: s}
}

// Open creates and persists a fresh Open MR for path (spec §4.4
// "open (implicit on first push)").
func (m *StateMachine) Open(path string, fromHash, toHash objects.ID) (*store.MergeRequest, error) {
	req := &store.MergeRequest{
		Path:     path,
		FromHash: fromHash,
		ToHash:   toHash,
		Status:   store.MRStatusOpen,
	}
	if err := m.store.SaveMR(req); err != nil {
		return nil, errors.Wrap(err, "mr.open: save")
	}
	return req, nil
}

// ForceUpdate advances an Open MR's to_hash and records a truncated
// ForceUpdated conversation (spec §4.3, §4.4, §9 note 3: hashes
// truncated to 6 hex characters).
func (m *StateMachine) ForceUpdate(req *store.MergeRequest, newTo objects.ID) error {
	if !req.IsOpen() {
		return util.ErrMRNotOpen
	}
	oldTo := req.ToHash
	req.ToHash = newTo
	if err := m.store.UpdateMR(req); err != nil {
		return errors.Wrap(err, "mr.force_update: update")
	}
	body := oldTo.Short(6) + " -> " + newTo.Short(6)
	if err := m.store.AddMRConversation(req.ID, "system", store.ConvForceUpdated, body); err != nil {
		return errors.Wrap(err, "mr.force_update: conversation")
	}
	return nil
}

// Close transitions an Open MR to Closed, recording reason (spec
// §4.4 close).
func (m *StateMachine) Close(req *store.MergeRequest, reason string) error {
	if !req.IsOpen() {
		return util.ErrMRNotOpen
	}
	req.Status = store.MRStatusClosed
	if err := m.store.UpdateMR(req); err != nil {
		return errors.Wrap(err, "mr.close: update")
	}
	if err := m.store.AddMRConversation(req.ID, "system", store.ConvClosed, reason); err != nil {
		return errors.Wrap(err, "mr.close: conversation")
	}
	return nil
}

// Merge transitions an Open MR to Merged, only if from_hash still
// matches the path's current ref commit (spec §4.4 merge). On
// precondition failure returns util.ErrRefHashConflict and leaves the
// MR untouched.
func (m *StateMachine) Merge(req *store.MergeRequest, currentRefCommit objects.ID, operator, comment string) error {
	if !req.IsOpen() {
		return util.ErrMRNotOpen
	}
	if req.FromHash != currentRefCommit {
		return util.ErrRefHashConflict
	}
	req.Status = store.MRStatusMerged
	if err := m.store.UpdateMR(req); err != nil {
		return errors.Wrap(err, "mr.merge: update")
	}
	if err := m.store.AddMRConversation(req.ID, operator, store.ConvMerged, comment); err != nil {
		return errors.Wrap(err, "mr.merge: conversation")
	}
	return nil
}

// AddComment appends a plain Comment conversation to an MR
// (SPEC_FULL.md §12, supplemented from the original's conversation log
// which the distilled spec names but never shows a comment-only path
// for).
func (m *StateMachine) AddComment(mrID int64, authorID, body string) error {
	if err := m.store.AddMRConversation(mrID, authorID, store.ConvComment, body); err != nil {
		return errors.Wrap(err, "mr.add_comment")
	}
	return nil
}
