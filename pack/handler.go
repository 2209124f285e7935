package pack

import (
	"github.com/monoforge/kit/mr"
	"github.com/monoforge/kit/objects"
	"github.com/monoforge/kit/resolver"
	"github.com/monoforge/kit/store"
	"github.com/monoforge/kit/treeupdate"
	"github.com/monoforge/kit/util"
	"github.com/pkg/errors"
)

// AgentName and AgentVersion render the agent= capability advertised
// alongside every ref advertisement (spec §6).
const (
	AgentName    = "monoforge"
	AgentVersion = "1.0"
)

// Handler is the Pack Handler (spec §4.3, Component C): head_hash,
// unpack, full_pack, check_commit_exist over a monorepo subpath. It is
// grounded in the original implementation's MonoRepo struct
// (original_source/ceres/src/pack/monorepo.rs), which implements the
// same operation set against the same classification table.
type Handler struct {
	store         store.ObjectStore
	resolver      *resolver.Resolver
	mrMachine     *mr.StateMachine
	engine        *treeupdate.Engine
	codec         Codec
	defaultBranch string
	batchSize     int
}

// New returns a Handler wired to s, using defaultBranch as the
// synthesized branch name and batchSize as the unpack ingestion batch
// size (spec §4.3 unpack: "batches of 1,000 entries").
func New(s store.ObjectStore, defaultBranch string, batchSize int) *Handler {
	return &Handler{
		store:         s,
		resolver:      resolver.New(s),
		mrMachine:     mr.New(s),
		engine:        treeupdate.New(s),
		codec:         NewCodec(),
		defaultBranch: defaultBranch,
		batchSize:     batchSize,
	}
}

// HeadHash returns the ref at subpath, synthesizing one if the
// subpath is reachable from root but has no ref yet (spec §4.3
// head_hash). A nil ref with a nil error means the subpath is not
// reachable (the HTTP front-end in cmd/serve.go answers 404).
func (h *Handler) HeadHash(subpath string) (*store.Ref, error) {
	existing, err := h.store.GetRef(subpath)
	if err != nil {
		return nil, errors.Wrap(err, "head_hash: get ref")
	}
	if existing != nil {
		return existing, nil
	}

	var target objects.Tree
	if subpath == "/" {
		target = objects.NewTree(nil)
	} else {
		_, resolved, err := h.resolver.Resolve(subpath)
		if err != nil {
			if errors.Is(err, util.ErrPathNotFound) || errors.Is(err, util.ErrPathNotDirectory) {
				return nil, nil
			}
			return nil, errors.Wrap(err, "head_hash: resolve subpath")
		}
		target = resolved
	}

	if subpath == "/" {
		if err := h.store.BatchSaveEntries([]objects.Entry{{Type: objects.ObjectTree, ID: target.ID, ParsedTree: &target}}); err != nil {
			return nil, errors.Wrap(err, "head_hash: save bootstrap tree")
		}
	}

	commit := objects.NewSyntheticCommit(target.ID)
	if err := h.store.SaveCommits([]objects.Commit{commit}); err != nil {
		return nil, errors.Wrap(err, "head_hash: save synthetic commit")
	}
	if err := h.store.SaveRef(subpath, commit.ID, target.ID); err != nil {
		return nil, errors.Wrap(err, "head_hash: save ref")
	}

	return &store.Ref{Path: subpath, RefName: h.defaultBranch, RefCommitHash: commit.ID, RefTreeHash: target.ID, DefaultBranch: true}, nil
}

// Advertisement renders the pkt-line ref advertisement preamble for
// ref (spec §6).
func (h *Handler) Advertisement(ref *store.Ref) string {
	return AdvertisementPreamble(ref.RefCommitHash.String(), h.defaultBranch, AgentName, AgentVersion)
}

// Unpack decodes pack into Entry records and applies the §4.3
// classification table against the open MR for subpath. It always
// returns nil for classification outcomes (Conflict, multi-commit) —
// those are communicated through MR conversations, never as errors
// (spec §7 propagation policy); only storage and protocol failures are
// returned.
func (h *Handler) Unpack(subpath string, fromHash, toHash objects.ID, pack []byte) error {
	existing, err := h.store.GetOpenMR(subpath)
	if err != nil {
		return errors.Wrap(err, "unpack: get open mr")
	}

	entries, errc := h.codec.Decode(pack)
	action := mr.Classify(existing, fromHash, toHash)

	if action == mr.ActionNoOp {
		drain(entries)
		return <-errc
	}
	if action == mr.ActionConflict {
		drain(entries)
		if err := <-errc; err != nil {
			return err
		}
		return h.mrMachine.Close(existing, "closed due to conflict")
	}

	commitCount, err := h.ingest(entries, errc)
	if err != nil {
		return errors.Wrap(err, "unpack: ingest")
	}

	switch action {
	case mr.ActionFresh:
		existing, err = h.mrMachine.Open(subpath, fromHash, toHash)
		if err != nil {
			return errors.Wrap(err, "unpack: open mr")
		}
	case mr.ActionForceUpdate:
		if err := h.mrMachine.ForceUpdate(existing, toHash); err != nil {
			return errors.Wrap(err, "unpack: force update mr")
		}
	}

	if commitCount > 1 {
		if err := h.mrMachine.Close(existing, "closed due to multi commit detected"); err != nil {
			return errors.Wrap(err, "unpack: close multi-commit mr")
		}
	}

	return nil
}

// ingest drains entries in batches of h.batchSize, persisting each
// batch and counting the commits observed (spec §4.3 unpack
// ingestion).
func (h *Handler) ingest(entries <-chan objects.Entry, errc <-chan error) (int, error) {
	batch := make([]objects.Entry, 0, h.batchSize)
	commitCount := 0

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := h.store.BatchSaveEntries(batch); err != nil {
			return err
		}
		batch = batch[:0]
		return nil
	}

	for entry := range entries {
		if entry.Type == objects.ObjectCommit {
			commitCount++
		}
		batch = append(batch, entry)
		if len(batch) >= h.batchSize {
			if err := flush(); err != nil {
				return commitCount, err
			}
		}
	}
	if err := flush(); err != nil {
		return commitCount, err
	}
	if err := <-errc; err != nil {
		return commitCount, err
	}
	return commitCount, nil
}

func drain(entries <-chan objects.Entry) {
	for range entries {
	}
}

// FullPack enumerates every commit, tree, blob and tag and hands them
// to the pack encoder, initialized with the total object count
// obtained before enumeration begins (spec §4.3 full_pack).
func (h *Handler) FullPack() ([]byte, error) {
	count, err := h.store.CountObjects()
	if err != nil {
		return nil, errors.Wrap(err, "full_pack: count objects")
	}

	out := make(chan objects.Entry)
	errc := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errc)

		commits, commitErr := h.store.StreamCommits()
		for c := range commits {
			cp := c
			out <- objects.Entry{Type: objects.ObjectCommit, ID: c.ID, ParsedCommit: &cp}
		}
		if err := <-commitErr; err != nil {
			errc <- err
			return
		}

		trees, treeErr := h.store.StreamTrees()
		for t := range trees {
			cp := t
			out <- objects.Entry{Type: objects.ObjectTree, ID: t.ID, ParsedTree: &cp}
		}
		if err := <-treeErr; err != nil {
			errc <- err
			return
		}

		blobs, blobErr := h.store.StreamBlobs()
		for b := range blobs {
			cp := b
			out <- objects.Entry{Type: objects.ObjectBlob, ID: b.ID, ParsedBlob: &cp}
		}
		if err := <-blobErr; err != nil {
			errc <- err
			return
		}

		tags, tagErr := h.store.StreamTags()
		for tg := range tags {
			cp := tg
			out <- objects.Entry{Type: objects.ObjectTag, ID: tg.ID, ParsedTag: &cp}
		}
		if err := <-tagErr; err != nil {
			errc <- err
			return
		}

		errc <- nil
	}()

	data, err := h.codec.Encode(count, out)
	if encErr := <-errc; encErr != nil {
		return nil, errors.Wrap(encErr, "full_pack: enumerate objects")
	}
	if err != nil {
		return nil, errors.Wrap(err, "full_pack: encode")
	}
	return data, nil
}

// CheckCommitExist delegates to get_commit (spec §4.3).
func (h *Handler) CheckCommitExist(id objects.ID) (bool, error) {
	c, err := h.store.GetCommit(id)
	if err != nil {
		return false, errors.Wrap(err, "check_commit_exist")
	}
	return c != nil, nil
}

// UpdateRefs is a no-op at this layer: direct ref updates are
// rejected because refs are controlled by the MR machinery (spec
// §4.3).
func (h *Handler) UpdateRefs(_ string) error { return nil }

// CheckDefaultBranch always reports true: the monorepo synthesizes a
// default branch on demand (spec §4.3).
func (h *Handler) CheckDefaultBranch() bool { return true }

// Merge merges mr into the root via the tree-update engine (spec
// §4.4 merge, §4.5). operator/comment are recorded on the MR's
// conversation log.
func (h *Handler) Merge(req *store.MergeRequest, operator, comment string) (objects.Commit, error) {
	pathRef, err := h.store.GetRef(req.Path)
	if err != nil {
		return objects.Commit{}, errors.Wrap(err, "merge: get path ref")
	}
	if pathRef == nil {
		return objects.Commit{}, errors.Wrap(util.ErrPathNotFound, "merge: no ref at mr path")
	}

	if err := h.mrMachine.Merge(req, pathRef.RefCommitHash, operator, comment); err != nil {
		return objects.Commit{}, err
	}

	mrCommit, err := h.store.GetCommit(req.ToHash)
	if err != nil {
		return objects.Commit{}, errors.Wrap(err, "merge: get mr tip commit")
	}
	if mrCommit == nil {
		return objects.Commit{}, errors.Wrap(util.ErrMRNotFound, "merge: mr tip commit missing")
	}

	return h.engine.Merge(req.Path, *mrCommit)
}
