// Package pack implements the Pack Handler (spec §4.3, Component C):
// head_hash, unpack, full_pack, check_commit_exist over a monorepo
// subpath, plus the pack wire codec and ref advertisement preamble
// those operations depend on.
//
// The binary packfile format itself is treated as an external
// collaborator (spec §1, §6): this file wraps go-git's packfile
// scanner/encoder — the same library the teacher repo's
// remote/plumbing/pack.go uses — behind the Decoder/Encoder contracts
// spec §6 names, so the rest of this package only ever sees
// objects.Entry values.
package pack

import (
	"bytes"
	"io"
	"io/ioutil"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/format/packfile"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/memory"
	"github.com/monoforge/kit/objects"
	"github.com/monoforge/kit/util"
	"github.com/pkg/errors"
)

// Decoder is the external pack-decoder contract of spec §6: decode
// raw packfile bytes into a channel of Entry records. The channel is
// closed on EOF; a non-nil value sent on the error channel signals a
// malformed stream (wrapping util.ErrProtocolError).
type Decoder interface {
	Decode(data []byte) (<-chan objects.Entry, <-chan error)
}

// Encoder is the external pack-encoder contract of spec §6: encode a
// known object count and a channel of Entry records into packfile
// bytes. The encoder must be initialized with an accurate count before
// the channel is drained.
type Encoder interface {
	Encode(objectCount int, entries <-chan objects.Entry) ([]byte, error)
}

// Codec combines Decoder and Encoder, the full external pack
// contract consumed by the Pack Handler.
type Codec interface {
	Decoder
	Encoder
}

// GoGitCodec implements both Decoder and Encoder on top of go-git's
// packfile scanner and encoder.
type GoGitCodec struct{}

// NewCodec returns the default pack codec.
func NewCodec() *GoGitCodec { return &GoGitCodec{} }

func (GoGitCodec) Decode(data []byte) (<-chan objects.Entry, <-chan error) {
	out := make(chan objects.Entry)
	errc := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errc)

		scanner := packfile.NewScanner(bytes.NewReader(data))
		_, numObjs, err := scanner.Header()
		if err != nil {
			errc <- errors.Wrap(util.ErrProtocolError, err.Error())
			return
		}

		for i := uint32(0); i < numObjs; i++ {
			header, err := scanner.NextObjectHeader()
			if err != nil {
				errc <- errors.Wrap(util.ErrProtocolError, err.Error())
				return
			}

			var memObj plumbing.MemoryObject
			if _, _, err := scanner.NextObject(&memObj); err != nil {
				errc <- errors.Wrap(util.ErrProtocolError, err.Error())
				return
			}
			memObj.SetType(header.Type)
			memObj.SetSize(header.Length)

			entry, err := decodeEntry(&memObj)
			if err != nil {
				errc <- errors.Wrap(util.ErrProtocolError, err.Error())
				return
			}
			out <- entry
		}

		errc <- nil
	}()

	return out, errc
}

func decodeEntry(o plumbing.EncodedObject) (objects.Entry, error) {
	switch o.Type() {
	case plumbing.CommitObject:
		var c object.Commit
		if err := c.Decode(o); err != nil {
			return objects.Entry{}, err
		}
		commit := commitFromGoGit(&c)
		return objects.Entry{Type: objects.ObjectCommit, ID: commit.ID, ParsedCommit: &commit}, nil

	case plumbing.TreeObject:
		var t object.Tree
		if err := t.Decode(o); err != nil {
			return objects.Entry{}, err
		}
		tree := treeFromGoGit(&t)
		return objects.Entry{Type: objects.ObjectTree, ID: tree.ID, ParsedTree: &tree}, nil

	case plumbing.BlobObject:
		var b object.Blob
		if err := b.Decode(o); err != nil {
			return objects.Entry{}, err
		}
		rd, err := b.Reader()
		if err != nil {
			return objects.Entry{}, err
		}
		defer rd.Close()
		data, err := ioutil.ReadAll(rd)
		if err != nil {
			return objects.Entry{}, err
		}
		blob := objects.RawBlob{ID: objects.ID(b.Hash.String()), Data: data}
		return objects.Entry{Type: objects.ObjectBlob, ID: blob.ID, ParsedBlob: &blob}, nil

	case plumbing.TagObject:
		var tg object.Tag
		if err := tg.Decode(o); err != nil {
			return objects.Entry{}, err
		}
		tag := tagFromGoGit(&tg)
		return objects.Entry{Type: objects.ObjectTag, ID: tag.ID, ParsedTag: &tag}, nil

	default:
		return objects.Entry{}, errors.Errorf("unsupported object type %s", o.Type())
	}
}

func commitFromGoGit(c *object.Commit) objects.Commit {
	parents := make([]objects.ID, len(c.ParentHashes))
	for i, h := range c.ParentHashes {
		parents[i] = objects.ID(h.String())
	}
	return objects.Commit{
		ID:        objects.ID(c.Hash.String()),
		TreeID:    objects.ID(c.TreeHash.String()),
		ParentIDs: parents,
		Author:    objects.Signature{Name: c.Author.Name, Email: c.Author.Email, When: c.Author.When},
		Committer: objects.Signature{Name: c.Committer.Name, Email: c.Committer.Email, When: c.Committer.When},
		Message:   c.Message,
	}
}

func treeFromGoGit(t *object.Tree) objects.Tree {
	items := make([]objects.TreeItem, len(t.Entries))
	for i, e := range t.Entries {
		items[i] = objects.TreeItem{Mode: modeFromGoGit(e.Mode), Name: e.Name, ID: objects.ID(e.Hash.String())}
	}
	return objects.Tree{ID: objects.ID(t.Hash.String()), Items: items}
}

func tagFromGoGit(tg *object.Tag) objects.Tag {
	return objects.Tag{
		ID:      objects.ID(tg.Hash.String()),
		Name:    tg.Name,
		Target:  objects.ID(tg.Target.String()),
		Tagger:  objects.Signature{Name: tg.Tagger.Name, Email: tg.Tagger.Email, When: tg.Tagger.When},
		Message: tg.Message,
	}
}

func modeFromGoGit(m filemode.FileMode) objects.Mode {
	switch m {
	case filemode.Executable:
		return objects.ModeExecBlob
	case filemode.Dir:
		return objects.ModeTree
	case filemode.Symlink:
		return objects.ModeSymlink
	case filemode.Submodule:
		return objects.ModeGitLink
	default:
		return objects.ModeBlob
	}
}

// Encode drains entries, writing each one's canonical body into an
// in-memory object storer, then hands the accumulated hash list to
// go-git's packfile encoder. A count observed that disagrees with
// objectCount is a fatal PackMismatch (spec §4.3 full_pack).
func (GoGitCodec) Encode(objectCount int, entries <-chan objects.Entry) ([]byte, error) {
	storer := memory.NewStorage()
	hashes := make([]plumbing.Hash, 0, objectCount)

	for entry := range entries {
		hash, err := storeEntry(storer, entry)
		if err != nil {
			return nil, errors.Wrap(err, "encode: store entry")
		}
		hashes = append(hashes, hash)
	}

	if len(hashes) != objectCount {
		return nil, errors.Wrapf(util.ErrPackMismatch, "declared %d, produced %d", objectCount, len(hashes))
	}

	var buf bytes.Buffer
	enc := packfile.NewEncoder(&buf, storer, false)
	if _, err := enc.Encode(hashes, 0); err != nil {
		return nil, errors.Wrap(err, "encode: packfile encoder")
	}
	return buf.Bytes(), nil
}

func storeEntry(storer *memory.Storage, entry objects.Entry) (plumbing.Hash, error) {
	var objType plumbing.ObjectType
	var body []byte

	switch entry.Type {
	case objects.ObjectCommit:
		if entry.ParsedCommit == nil {
			return plumbing.ZeroHash, errors.New("commit entry missing parsed commit")
		}
		objType = plumbing.CommitObject
		body = objects.EncodeCommit(*entry.ParsedCommit)
	case objects.ObjectTree:
		if entry.ParsedTree == nil {
			return plumbing.ZeroHash, errors.New("tree entry missing parsed tree")
		}
		objType = plumbing.TreeObject
		body = objects.EncodeTree(*entry.ParsedTree)
	case objects.ObjectBlob:
		if entry.ParsedBlob == nil {
			return plumbing.ZeroHash, errors.New("blob entry missing parsed blob")
		}
		objType = plumbing.BlobObject
		body = entry.ParsedBlob.Data
	case objects.ObjectTag:
		if entry.ParsedTag == nil {
			return plumbing.ZeroHash, errors.New("tag entry missing parsed tag")
		}
		objType = plumbing.TagObject
		body = objects.EncodeTag(*entry.ParsedTag)
	default:
		return plumbing.ZeroHash, errors.Errorf("unsupported entry type %v", entry.Type)
	}

	obj := storer.NewEncodedObject()
	obj.SetType(objType)
	obj.SetSize(int64(len(body)))
	w, err := obj.Writer()
	if err != nil {
		return plumbing.ZeroHash, err
	}
	if _, err := io.Copy(w, bytes.NewReader(body)); err != nil {
		w.Close()
		return plumbing.ZeroHash, err
	}
	if err := w.Close(); err != nil {
		return plumbing.ZeroHash, err
	}
	return storer.SetEncodedObject(obj)
}
