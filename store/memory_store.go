package store

import (
	"strings"
	"sync"

	"github.com/monoforge/kit/objects"
	"github.com/monoforge/kit/util"
)

// MemoryStore is an in-memory ObjectStore fake. It exists so that
// property and unit tests can exercise the Pack Handler, MR State
// Machine, and Tree-Update Engine without a database (spec §9
// "Process-wide singletons": "Prefer explicit dependency passing for
// the object-store facade... so tests can substitute an in-memory
// fake").
type MemoryStore struct {
	mu sync.Mutex

	refs    map[string]Ref
	commits map[objects.ID]objects.Commit
	trees   map[objects.ID]objects.Tree
	blobs   map[objects.ID]objects.RawBlob
	tags    map[objects.ID]objects.Tag

	mrs       map[int64]*MergeRequest
	nextMRID  int64
	nextConvID int64
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		refs:     make(map[string]Ref),
		commits:  make(map[objects.ID]objects.Commit),
		trees:    make(map[objects.ID]objects.Tree),
		blobs:    make(map[objects.ID]objects.RawBlob),
		tags:     make(map[objects.ID]objects.Tag),
		mrs:      make(map[int64]*MergeRequest),
		nextMRID: 1,
	}
}

func (s *MemoryStore) GetRef(path string) (*Ref, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.refs[path]; ok {
		cp := r
		return &cp, nil
	}
	return nil, nil
}

func (s *MemoryStore) SaveRef(path string, commitID, treeID objects.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refs[path] = Ref{Path: path, RefCommitHash: commitID, RefTreeHash: treeID, DefaultBranch: path == "/"}
	return nil
}

func (s *MemoryStore) UpdateRef(ref Ref) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refs[ref.Path] = ref
	return nil
}

func (s *MemoryStore) RemoveRef(ref Ref) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.refs, ref.Path)
	return nil
}

func (s *MemoryStore) RemoveRefsWithPrefix(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for p := range s.refs {
		if p == path || strings.HasPrefix(p, strings.TrimSuffix(path, "/")+"/") {
			delete(s.refs, p)
		}
	}
	return nil
}

func (s *MemoryStore) GetCommit(id objects.ID) (*objects.Commit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.commits[id]; ok {
		cp := c
		return &cp, nil
	}
	return nil, nil
}

func (s *MemoryStore) SaveCommits(commits []objects.Commit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range commits {
		s.commits[c.ID] = c
	}
	return nil
}

func (s *MemoryStore) GetTree(id objects.ID) (*objects.Tree, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.trees[id]; ok {
		cp := t
		return &cp, nil
	}
	return nil, nil
}

func (s *MemoryStore) GetTrees(ids []objects.ID) ([]objects.Tree, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]objects.Tree, 0, len(ids))
	for _, id := range ids {
		if t, ok := s.trees[id]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *MemoryStore) StampTreeCommit(treeIDs []objects.ID, commitID objects.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range treeIDs {
		if t, ok := s.trees[id]; ok {
			t.CommitID = commitID
			s.trees[id] = t
		}
	}
	return nil
}

func (s *MemoryStore) GetRawBlob(id objects.ID) (*objects.RawBlob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.blobs[id]; ok {
		cp := b
		return &cp, nil
	}
	return nil, nil
}

// BatchSaveEntries dispatches each entry by type. Duplicate (type, id)
// insertions silently succeed (spec §4.1).
func (s *MemoryStore) BatchSaveEntries(entries []objects.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		switch e.Type {
		case objects.ObjectCommit:
			if e.ParsedCommit != nil {
				s.commits[e.ID] = *e.ParsedCommit
			}
		case objects.ObjectTree:
			if e.ParsedTree != nil {
				s.trees[e.ID] = *e.ParsedTree
			}
		case objects.ObjectBlob:
			if e.ParsedBlob != nil {
				s.blobs[e.ID] = *e.ParsedBlob
			}
		case objects.ObjectTag:
			if e.ParsedTag != nil {
				s.tags[e.ID] = *e.ParsedTag
			}
		}
	}
	return nil
}

func (s *MemoryStore) CountObjects() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.commits) + len(s.trees) + len(s.blobs) + len(s.tags), nil
}

func (s *MemoryStore) StreamCommits() (<-chan objects.Commit, <-chan error) {
	s.mu.Lock()
	items := make([]objects.Commit, 0, len(s.commits))
	for _, c := range s.commits {
		items = append(items, c)
	}
	s.mu.Unlock()

	out := make(chan objects.Commit, len(items))
	errc := make(chan error, 1)
	for _, c := range items {
		out <- c
	}
	close(out)
	errc <- nil
	close(errc)
	return out, errc
}

func (s *MemoryStore) StreamTrees() (<-chan objects.Tree, <-chan error) {
	s.mu.Lock()
	items := make([]objects.Tree, 0, len(s.trees))
	for _, t := range s.trees {
		items = append(items, t)
	}
	s.mu.Unlock()

	out := make(chan objects.Tree, len(items))
	errc := make(chan error, 1)
	for _, t := range items {
		out <- t
	}
	close(out)
	errc <- nil
	close(errc)
	return out, errc
}

func (s *MemoryStore) StreamBlobs() (<-chan objects.RawBlob, <-chan error) {
	s.mu.Lock()
	items := make([]objects.RawBlob, 0, len(s.blobs))
	for _, b := range s.blobs {
		items = append(items, b)
	}
	s.mu.Unlock()

	out := make(chan objects.RawBlob, len(items))
	errc := make(chan error, 1)
	for _, b := range items {
		out <- b
	}
	close(out)
	errc <- nil
	close(errc)
	return out, errc
}

func (s *MemoryStore) StreamTags() (<-chan objects.Tag, <-chan error) {
	s.mu.Lock()
	items := make([]objects.Tag, 0, len(s.tags))
	for _, t := range s.tags {
		items = append(items, t)
	}
	s.mu.Unlock()

	out := make(chan objects.Tag, len(items))
	errc := make(chan error, 1)
	for _, t := range items {
		out <- t
	}
	close(out)
	errc <- nil
	close(errc)
	return out, errc
}

func (s *MemoryStore) GetOpenMR(path string) (*MergeRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, mr := range s.mrs {
		if mr.Path == path && mr.IsOpen() {
			cp := *mr
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *MemoryStore) GetOpenMRByID(id int64) (*MergeRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	mr, ok := s.mrs[id]
	if !ok || !mr.IsOpen() {
		return nil, nil
	}
	cp := *mr
	return &cp, nil
}

func (s *MemoryStore) SaveMR(mr *MergeRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if mr.ID == 0 {
		mr.ID = s.nextMRID
		s.nextMRID++
	}
	cp := *mr
	s.mrs[mr.ID] = &cp
	return nil
}

func (s *MemoryStore) UpdateMR(mr *MergeRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.mrs[mr.ID]; !ok {
		return util.ErrMRNotFound
	}
	cp := *mr
	s.mrs[mr.ID] = &cp
	return nil
}

func (s *MemoryStore) AddMRConversation(mrID int64, authorID string, kind ConvKind, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	mr, ok := s.mrs[mrID]
	if !ok {
		return util.ErrMRNotFound
	}
	s.nextConvID++
	mr.Conversations = append(mr.Conversations, Conversation{
		ID:       s.nextConvID,
		MRID:     mrID,
		AuthorID: authorID,
		Kind:     kind,
		Body:     body,
	})
	return nil
}
