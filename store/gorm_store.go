package store

import (
	"github.com/monoforge/kit/objects"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore is the relational Object Store Facade (spec §4.1, Component
// A), backed by gorm.io/gorm. It is the concrete analogue of the
// original implementation's sea_orm-backed storage layer
// (original_source/libra/src/command/switch.rs imports
// sea_orm::{ActiveModelTrait, DbConn, Set}); gorm is the wired Go
// counterpart (see SPEC_FULL.md §11).
type GormStore struct {
	db *gorm.DB
}

// NewGormStore wraps db, auto-migrating the facade's tables.
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(
		&refRow{}, &commitRow{}, &treeRow{}, &blobMetaRow{}, &rawBlobRow{},
		&tagRow{}, &mrRow{}, &conversationRow{},
	); err != nil {
		return nil, errors.Wrap(err, "failed to migrate object store schema")
	}
	return &GormStore{db: db}, nil
}

func (s *GormStore) GetRef(path string) (*Ref, error) {
	var row refRow
	err := s.db.First(&row, "path = ?", path).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "get_ref")
	}
	ref := row.toDomain()
	return &ref, nil
}

func (s *GormStore) SaveRef(path string, commitID, treeID objects.ID) error {
	row := refRow{Path: path, RefName: path, RefCommitHash: commitID.String(), RefTreeHash: treeID.String(), DefaultBranch: path == "/"}
	if err := s.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error; err != nil {
		return errors.Wrap(err, "save_ref")
	}
	return nil
}

func (s *GormStore) UpdateRef(ref Ref) error {
	row := fromRef(ref)
	if err := s.db.Model(&refRow{}).Where("path = ?", ref.Path).Updates(&row).Error; err != nil {
		return errors.Wrap(err, "update_ref")
	}
	return nil
}

func (s *GormStore) RemoveRef(ref Ref) error {
	if err := s.db.Delete(&refRow{}, "path = ?", ref.Path).Error; err != nil {
		return errors.Wrap(err, "remove_ref")
	}
	return nil
}

func (s *GormStore) RemoveRefsWithPrefix(path string) error {
	if err := s.db.Where("path = ? OR path LIKE ?", path, path+"/%").Delete(&refRow{}).Error; err != nil {
		return errors.Wrap(err, "remove_refs_with_prefix")
	}
	return nil
}

func (s *GormStore) GetCommit(id objects.ID) (*objects.Commit, error) {
	var row commitRow
	err := s.db.First(&row, "id = ?", id.String()).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "get_commit")
	}
	c := row.toDomain()
	return &c, nil
}

func (s *GormStore) SaveCommits(commits []objects.Commit) error {
	if len(commits) == 0 {
		return nil
	}
	rows := make([]commitRow, len(commits))
	for i, c := range commits {
		rows[i] = fromCommit(c)
	}
	if err := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error; err != nil {
		return errors.Wrap(err, "save_commits")
	}
	return nil
}

func (s *GormStore) GetTree(id objects.ID) (*objects.Tree, error) {
	var row treeRow
	err := s.db.First(&row, "id = ?", id.String()).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "get_tree")
	}
	t := row.toDomain()
	return &t, nil
}

func (s *GormStore) GetTrees(ids []objects.ID) ([]objects.Tree, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	hexIDs := make([]string, len(ids))
	for i, id := range ids {
		hexIDs[i] = id.String()
	}
	var rows []treeRow
	if err := s.db.Where("id IN ?", hexIDs).Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "get_trees")
	}
	out := make([]objects.Tree, len(rows))
	for i, r := range rows {
		out[i] = r.toDomain()
	}
	return out, nil
}

func (s *GormStore) StampTreeCommit(treeIDs []objects.ID, commitID objects.ID) error {
	if len(treeIDs) == 0 {
		return nil
	}
	hexIDs := make([]string, len(treeIDs))
	for i, id := range treeIDs {
		hexIDs[i] = id.String()
	}
	if err := s.db.Model(&treeRow{}).Where("id IN ?", hexIDs).Update("commit_id", commitID.String()).Error; err != nil {
		return errors.Wrap(err, "stamp_tree_commit")
	}
	return nil
}

func (s *GormStore) GetRawBlob(id objects.ID) (*objects.RawBlob, error) {
	var row rawBlobRow
	err := s.db.First(&row, "id = ?", id.String()).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "get_raw_blob")
	}
	b := row.toDomain()
	return &b, nil
}

// BatchSaveEntries dispatches each Entry to its typed table within a
// single transaction (spec §4.1), idempotent on (kind, id) collisions.
func (s *GormStore) BatchSaveEntries(entries []objects.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		var commitRows []commitRow
		var treeRows []treeRow
		var blobMetaRows []blobMetaRow
		var rawBlobRows []rawBlobRow
		var tagRows []tagRow

		for _, e := range entries {
			switch e.Type {
			case objects.ObjectCommit:
				if e.ParsedCommit != nil {
					commitRows = append(commitRows, fromCommit(*e.ParsedCommit))
				}
			case objects.ObjectTree:
				if e.ParsedTree != nil {
					treeRows = append(treeRows, fromTree(*e.ParsedTree))
				}
			case objects.ObjectBlob:
				if e.ParsedBlob != nil {
					blobMetaRows = append(blobMetaRows, blobMetaRow{ID: e.ParsedBlob.ID.String(), Size: int64(len(e.ParsedBlob.Data))})
					rawBlobRows = append(rawBlobRows, rawBlobRow{ID: e.ParsedBlob.ID.String(), Data: e.ParsedBlob.Data})
				}
			case objects.ObjectTag:
				if e.ParsedTag != nil {
					t := *e.ParsedTag
					tagRows = append(tagRows, tagRow{ID: t.ID.String(), Name: t.Name, Target: t.Target.String(), TaggerName: t.Tagger.Name, TaggerEmail: t.Tagger.Email, TaggerWhen: t.Tagger.When, Message: t.Message})
				}
			}
		}

		onConflictIgnore := clause.OnConflict{DoNothing: true}
		if len(commitRows) > 0 {
			if err := tx.Clauses(onConflictIgnore).Create(&commitRows).Error; err != nil {
				return errors.Wrap(err, "batch_save_entries: commits")
			}
		}
		if len(treeRows) > 0 {
			if err := tx.Clauses(onConflictIgnore).Create(&treeRows).Error; err != nil {
				return errors.Wrap(err, "batch_save_entries: trees")
			}
		}
		if len(blobMetaRows) > 0 {
			if err := tx.Clauses(onConflictIgnore).Create(&blobMetaRows).Error; err != nil {
				return errors.Wrap(err, "batch_save_entries: blob metas")
			}
		}
		if len(rawBlobRows) > 0 {
			if err := tx.Clauses(onConflictIgnore).Create(&rawBlobRows).Error; err != nil {
				return errors.Wrap(err, "batch_save_entries: raw blobs")
			}
		}
		if len(tagRows) > 0 {
			if err := tx.Clauses(onConflictIgnore).Create(&tagRows).Error; err != nil {
				return errors.Wrap(err, "batch_save_entries: tags")
			}
		}
		return nil
	})
}

func (s *GormStore) CountObjects() (int, error) {
	var commits, trees, blobs, tags int64
	if err := s.db.Model(&commitRow{}).Count(&commits).Error; err != nil {
		return 0, errors.Wrap(err, "count_objects: commits")
	}
	if err := s.db.Model(&treeRow{}).Count(&trees).Error; err != nil {
		return 0, errors.Wrap(err, "count_objects: trees")
	}
	if err := s.db.Model(&rawBlobRow{}).Count(&blobs).Error; err != nil {
		return 0, errors.Wrap(err, "count_objects: blobs")
	}
	if err := s.db.Model(&tagRow{}).Count(&tags).Error; err != nil {
		return 0, errors.Wrap(err, "count_objects: tags")
	}
	return int(commits + trees + blobs + tags), nil
}

func (s *GormStore) StreamCommits() (<-chan objects.Commit, <-chan error) {
	out := make(chan objects.Commit)
	errc := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errc)
		var rows []commitRow
		if err := s.db.FindInBatches(&rows, 500, func(tx *gorm.DB, batch int) error {
			for _, r := range rows {
				out <- r.toDomain()
			}
			return nil
		}).Error; err != nil {
			errc <- errors.Wrap(err, "stream_commits")
			return
		}
		errc <- nil
	}()
	return out, errc
}

func (s *GormStore) StreamTrees() (<-chan objects.Tree, <-chan error) {
	out := make(chan objects.Tree)
	errc := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errc)
		var rows []treeRow
		if err := s.db.FindInBatches(&rows, 500, func(tx *gorm.DB, batch int) error {
			for _, r := range rows {
				out <- r.toDomain()
			}
			return nil
		}).Error; err != nil {
			errc <- errors.Wrap(err, "stream_trees")
			return
		}
		errc <- nil
	}()
	return out, errc
}

func (s *GormStore) StreamBlobs() (<-chan objects.RawBlob, <-chan error) {
	out := make(chan objects.RawBlob)
	errc := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errc)
		var rows []rawBlobRow
		if err := s.db.FindInBatches(&rows, 500, func(tx *gorm.DB, batch int) error {
			for _, r := range rows {
				out <- r.toDomain()
			}
			return nil
		}).Error; err != nil {
			errc <- errors.Wrap(err, "stream_blobs")
			return
		}
		errc <- nil
	}()
	return out, errc
}

func (s *GormStore) StreamTags() (<-chan objects.Tag, <-chan error) {
	out := make(chan objects.Tag)
	errc := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errc)
		var rows []tagRow
		if err := s.db.FindInBatches(&rows, 500, func(tx *gorm.DB, batch int) error {
			for _, r := range rows {
				out <- r.toDomain()
			}
			return nil
		}).Error; err != nil {
			errc <- errors.Wrap(err, "stream_tags")
			return
		}
		errc <- nil
	}()
	return out, errc
}

func (s *GormStore) GetOpenMR(path string) (*MergeRequest, error) {
	var row mrRow
	err := s.db.Where("path = ? AND status = ?", path, string(MRStatusOpen)).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "get_open_mr")
	}
	mr := row.toDomain()
	if err := s.loadConversations(&mr); err != nil {
		return nil, err
	}
	return &mr, nil
}

func (s *GormStore) GetOpenMRByID(id int64) (*MergeRequest, error) {
	var row mrRow
	err := s.db.Where("id = ? AND status = ?", id, string(MRStatusOpen)).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "get_open_mr_by_id")
	}
	mr := row.toDomain()
	if err := s.loadConversations(&mr); err != nil {
		return nil, err
	}
	return &mr, nil
}

func (s *GormStore) loadConversations(mr *MergeRequest) error {
	var rows []conversationRow
	if err := s.db.Where("mr_id = ?", mr.ID).Order("created_at asc, id asc").Find(&rows).Error; err != nil {
		return errors.Wrap(err, "load_conversations")
	}
	mr.Conversations = make([]Conversation, len(rows))
	for i, r := range rows {
		mr.Conversations[i] = r.toDomain()
	}
	return nil
}

func (s *GormStore) SaveMR(mr *MergeRequest) error {
	row := fromMR(*mr)
	if err := s.db.Create(&row).Error; err != nil {
		return errors.Wrap(err, "save_mr")
	}
	mr.ID = row.ID
	mr.CreatedAt = row.CreatedAt
	mr.UpdatedAt = row.UpdatedAt
	return nil
}

func (s *GormStore) UpdateMR(mr *MergeRequest) error {
	row := fromMR(*mr)
	if err := s.db.Model(&mrRow{}).Where("id = ?", mr.ID).Updates(&row).Error; err != nil {
		return errors.Wrap(err, "update_mr")
	}
	return nil
}

func (s *GormStore) AddMRConversation(mrID int64, authorID string, kind ConvKind, body string) error {
	row := conversationRow{MRID: mrID, AuthorID: authorID, Kind: string(kind), Body: body}
	if err := s.db.Create(&row).Error; err != nil {
		return errors.Wrap(err, "add_mr_conversation")
	}
	return nil
}
