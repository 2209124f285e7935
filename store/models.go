package store

import (
	"strings"
	"time"

	"github.com/monoforge/kit/objects"
)

// refRow is the gorm row for the ref table (spec §6 "Ref table schema").
type refRow struct {
	Path          string `gorm:"primaryKey"`
	RefName       string
	RefCommitHash string `gorm:"column:ref_commit_hash;size:40"`
	RefTreeHash   string `gorm:"column:ref_tree_hash;size:40"`
	DefaultBranch bool
}

func (refRow) TableName() string { return "refs" }

func (r refRow) toDomain() Ref {
	return Ref{
		Path:          r.Path,
		RefName:       r.RefName,
		RefCommitHash: objects.ID(r.RefCommitHash),
		RefTreeHash:   objects.ID(r.RefTreeHash),
		DefaultBranch: r.DefaultBranch,
	}
}

func fromRef(ref Ref) refRow {
	return refRow{
		Path:          ref.Path,
		RefName:       ref.RefName,
		RefCommitHash: ref.RefCommitHash.String(),
		RefTreeHash:   ref.RefTreeHash.String(),
		DefaultBranch: ref.DefaultBranch,
	}
}

// commitRow is the gorm row for a commit object. ParentIDs is stored
// as a comma-joined list of 40-char hex ids; commits rarely have more
// than a couple of parents and the facade never queries by parent, so
// a delimited column avoids a join table.
type commitRow struct {
	ID            string `gorm:"primaryKey;size:40"`
	TreeID        string `gorm:"size:40"`
	ParentIDs     string
	AuthorName    string
	AuthorEmail   string
	AuthorWhen    time.Time
	CommitterName string
	CommitterEmail string
	CommitterWhen time.Time
	Message       string
}

func (commitRow) TableName() string { return "commits" }

func fromCommit(c objects.Commit) commitRow {
	parents := make([]string, len(c.ParentIDs))
	for i, p := range c.ParentIDs {
		parents[i] = p.String()
	}
	return commitRow{
		ID:             c.ID.String(),
		TreeID:         c.TreeID.String(),
		ParentIDs:      strings.Join(parents, ","),
		AuthorName:     c.Author.Name,
		AuthorEmail:    c.Author.Email,
		AuthorWhen:     c.Author.When,
		CommitterName:  c.Committer.Name,
		CommitterEmail: c.Committer.Email,
		CommitterWhen:  c.Committer.When,
		Message:        c.Message,
	}
}

func (r commitRow) toDomain() objects.Commit {
	var parents []objects.ID
	if r.ParentIDs != "" {
		for _, p := range strings.Split(r.ParentIDs, ",") {
			parents = append(parents, objects.ID(p))
		}
	}
	return objects.Commit{
		ID:        objects.ID(r.ID),
		TreeID:    objects.ID(r.TreeID),
		ParentIDs: parents,
		Author:    objects.Signature{Name: r.AuthorName, Email: r.AuthorEmail, When: r.AuthorWhen},
		Committer: objects.Signature{Name: r.CommitterName, Email: r.CommitterEmail, When: r.CommitterWhen},
		Message:   r.Message,
	}
}

// treeRow is the gorm row for a tree object. Items is a serialized
// "mode name id;..." encoding of the tree's items: trees are small and
// read/written as a unit, so a normalized child table buys nothing the
// facade's contract (get_tree/get_trees) needs.
type treeRow struct {
	ID       string `gorm:"primaryKey;size:40"`
	Items    string
	CommitID string `gorm:"size:40"`
}

func (treeRow) TableName() string { return "trees" }

func fromTree(t objects.Tree) treeRow {
	parts := make([]string, len(t.Items))
	for i, item := range t.Items {
		parts[i] = strings.Join([]string{item.Mode.String(), item.Name, item.ID.String()}, " ")
	}
	return treeRow{ID: t.ID.String(), Items: strings.Join(parts, ";"), CommitID: t.CommitID.String()}
}

func (r treeRow) toDomain() objects.Tree {
	var items []objects.TreeItem
	if r.Items != "" {
		for _, part := range strings.Split(r.Items, ";") {
			fields := strings.SplitN(part, " ", 3)
			if len(fields) != 3 {
				continue
			}
			items = append(items, objects.TreeItem{Mode: modeFromString(fields[0]), Name: fields[1], ID: objects.ID(fields[2])})
		}
	}
	return objects.Tree{ID: objects.ID(r.ID), Items: items, CommitID: objects.ID(r.CommitID)}
}

func modeFromString(s string) objects.Mode {
	switch s {
	case objects.ModeBlob.String():
		return objects.ModeBlob
	case objects.ModeExecBlob.String():
		return objects.ModeExecBlob
	case objects.ModeTree.String():
		return objects.ModeTree
	case objects.ModeSymlink.String():
		return objects.ModeSymlink
	case objects.ModeGitLink.String():
		return objects.ModeGitLink
	default:
		return objects.ModeBlob
	}
}

// blobMetaRow is the metadata projection of a blob (spec §3: "a blob
// is stored in two projections").
type blobMetaRow struct {
	ID       string `gorm:"primaryKey;size:40"`
	Size     int64
	PathHint string
}

func (blobMetaRow) TableName() string { return "blob_metas" }

// rawBlobRow is the raw-bytes projection of a blob, sharing the blob
// id as primary key.
type rawBlobRow struct {
	ID   string `gorm:"primaryKey;size:40"`
	Data []byte
}

func (rawBlobRow) TableName() string { return "raw_blobs" }

func (r rawBlobRow) toDomain() objects.RawBlob {
	return objects.RawBlob{ID: objects.ID(r.ID), Data: r.Data}
}

// tagRow is the gorm row for an annotated tag.
type tagRow struct {
	ID          string `gorm:"primaryKey;size:40"`
	Name        string
	Target      string `gorm:"size:40"`
	TaggerName  string
	TaggerEmail string
	TaggerWhen  time.Time
	Message     string
}

func (tagRow) TableName() string { return "tags" }

func (r tagRow) toDomain() objects.Tag {
	return objects.Tag{
		ID:      objects.ID(r.ID),
		Name:    r.Name,
		Target:  objects.ID(r.Target),
		Tagger:  objects.Signature{Name: r.TaggerName, Email: r.TaggerEmail, When: r.TaggerWhen},
		Message: r.Message,
	}
}

// mrRow is the gorm row for a merge request (spec §6 "MR table
// schema"), with a secondary index on (path, status) so "open MR for
// path" is a single-row lookup.
type mrRow struct {
	ID        int64 `gorm:"primaryKey;autoIncrement"`
	Path      string `gorm:"index:idx_path_status"`
	FromHash  string `gorm:"size:40"`
	ToHash    string `gorm:"size:40"`
	Status    string `gorm:"index:idx_path_status"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (mrRow) TableName() string { return "merge_requests" }

func fromMR(mr MergeRequest) mrRow {
	return mrRow{
		ID:       mr.ID,
		Path:     mr.Path,
		FromHash: mr.FromHash.String(),
		ToHash:   mr.ToHash.String(),
		Status:   string(mr.Status),
	}
}

func (r mrRow) toDomain() MergeRequest {
	return MergeRequest{
		ID:        r.ID,
		Path:      r.Path,
		FromHash:  objects.ID(r.FromHash),
		ToHash:    objects.ID(r.ToHash),
		Status:    MRStatus(r.Status),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

// conversationRow is the gorm row for one MR conversation entry.
type conversationRow struct {
	ID        int64 `gorm:"primaryKey;autoIncrement"`
	MRID      int64 `gorm:"index"`
	AuthorID  string
	Kind      string
	Body      string
	CreatedAt time.Time
}

func (conversationRow) TableName() string { return "conversations" }

func (r conversationRow) toDomain() Conversation {
	return Conversation{ID: r.ID, MRID: r.MRID, AuthorID: r.AuthorID, Kind: ConvKind(r.Kind), Body: r.Body, CreatedAt: r.CreatedAt}
}
