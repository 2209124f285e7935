package objects

import (
	"fmt"
	"time"
)

// ObjectType tags the kind of a content-addressed git object. It is the
// variant tag on pack Entry records and the dispatch key used by the
// object store facade's batch_save_entries (spec §4.1, §9 "Polymorphic
// object conversion").
type ObjectType int

const (
	ObjectBlob ObjectType = iota
	ObjectTree
	ObjectCommit
	ObjectTag
)

func (t ObjectType) String() string {
	switch t {
	case ObjectBlob:
		return "blob"
	case ObjectTree:
		return "tree"
	case ObjectCommit:
		return "commit"
	case ObjectTag:
		return "tag"
	default:
		return "unknown"
	}
}

// Mode is the permission/type tag of a tree item.
type Mode int

const (
	ModeBlob Mode = iota
	ModeExecBlob
	ModeTree
	ModeSymlink
	ModeGitLink
)

func (m Mode) String() string {
	switch m {
	case ModeBlob:
		return "100644"
	case ModeExecBlob:
		return "100755"
	case ModeTree:
		return "40000"
	case ModeSymlink:
		return "120000"
	case ModeGitLink:
		return "160000"
	default:
		return "000000"
	}
}

// Signature identifies the author or committer of a commit, mirroring
// the author/committer pair git carries on every commit object.
type Signature struct {
	Name  string
	Email string
	When  time.Time
}

// Blob is the metadata projection of a blob: its id, size, and an
// optional hint of the path it was last seen at. The raw bytes live in
// a separate RawBlob row sharing the same id (spec §3).
type Blob struct {
	ID       ID
	Size     int64
	PathHint string
}

// RawBlob is the raw-bytes projection of a blob.
type RawBlob struct {
	ID   ID
	Data []byte
}

// NewBlob hashes content as a git blob object and returns both
// projections, ready for a paired insert.
func NewBlob(content []byte, pathHint string) (Blob, RawBlob) {
	id := computeID(blobObjType, content)
	return Blob{ID: id, Size: int64(len(content)), PathHint: pathHint}, RawBlob{ID: id, Data: content}
}

// Tag is an annotated tag record pointing at a commit by id.
// Unannotated tags are not first-class (spec §3).
type Tag struct {
	ID      ID
	Name    string
	Target  ID
	Tagger  Signature
	Message string
}

// NewTag builds an annotated tag pointing at target and computes its id
// from the canonical serialization.
func NewTag(name string, target ID, tagger Signature, message string) Tag {
	t := Tag{Name: name, Target: target, Tagger: tagger, Message: message}
	t.ID = computeID(tagObjType, serializeTag(t))
	return t
}

func serializeTag(t Tag) []byte {
	var buf []byte
	buf = append(buf, []byte("object "+t.Target.String()+"\n")...)
	buf = append(buf, []byte("type commit\n")...)
	buf = append(buf, []byte("tag "+t.Name+"\n")...)
	buf = append(buf, []byte(fmt.Sprintf("tagger %s <%s> %d %s\n", t.Tagger.Name, t.Tagger.Email, t.Tagger.When.Unix(), t.Tagger.When.Format("-0700")))...)
	buf = append(buf, []byte("\n")...)
	buf = append(buf, []byte(t.Message)...)
	return buf
}

// EncodeCommit, EncodeTree and EncodeTag expose the canonical,
// header-less object body used both to compute an object's id and to
// serve as the payload a pack encoder writes to the wire (spec §6
// Entry.payload).
func EncodeCommit(c Commit) []byte { return serializeCommit(c) }
func EncodeTree(t Tree) []byte     { return serializeTree(t.Items) }
func EncodeTag(t Tag) []byte       { return serializeTag(t) }
