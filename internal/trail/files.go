package trail

import (
	"context"
	"errors"
	"fmt"

	"github.com/dshills/trailstore/internal/storage"
	"github.com/dshills/trailstore/pkg/namehierarchy"
	"github.com/dshills/trailstore/pkg/types"
)

// File is a recorded source file.
type File = storage.File

// fileDelimiter separates path segments in the name of a FILE node.
const fileDelimiter = "/"

// RecordFile records a source file. Recording a path again returns the
// existing id and updates the indexed flag. Every file is also a FILE node so
// include and import edges can point at it.
func (db *DB) RecordFile(ctx context.Context, path string, indexed bool) (int64, error) {
	var id int64
	err := db.write(ctx, "file", func(tx *storage.Tx) error {
		if path == "" {
			return fmt.Errorf("file path: %w", types.ErrEmptyName)
		}

		existing, err := tx.GetFileByPath(ctx, path)
		if err == nil {
			id = existing.ID
			if existing.Indexed != indexed {
				return tx.UpdateFileIndexed(ctx, id, indexed)
			}
			return nil
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return err
		}

		id = db.ids.Next()
		name := namehierarchy.New(fileDelimiter, namehierarchy.NameElement{Name: path})
		if err := tx.InsertElement(ctx, id, types.ElementFile); err != nil {
			return err
		}
		if err := tx.InsertNode(ctx, &storage.Node{
			ID:             id,
			Kind:           types.NodeFile,
			SerializedName: namehierarchy.Serialize(name),
		}); err != nil {
			return err
		}
		return tx.InsertFile(ctx, &storage.File{ID: id, Path: path, Indexed: indexed, Complete: true})
	})
	return id, err
}

// RecordFileLanguage sets the language tag of a recorded file.
func (db *DB) RecordFileLanguage(ctx context.Context, fileID int64, language string) error {
	return db.write(ctx, "file_language", func(tx *storage.Tx) error {
		err := tx.UpdateFileLanguage(ctx, fileID, language)
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("file %d: %w", fileID, types.ErrUnknownFile)
		}
		return err
	})
}

// RecordFileContent stores the text of a recorded file, replacing any
// previous content.
func (db *DB) RecordFileContent(ctx context.Context, fileID int64, content string) error {
	return db.write(ctx, "file_content", func(tx *storage.Tx) error {
		if _, err := lookupFile(ctx, tx, fileID); err != nil {
			return err
		}
		return tx.UpsertFileContent(ctx, fileID, content)
	})
}

// FileByPath reads back a recorded file. ErrUnknownFile if absent.
func (db *DB) FileByPath(ctx context.Context, path string) (*File, error) {
	var file *File
	err := db.read(func(tx *storage.Tx) error {
		var err error
		file, err = tx.GetFileByPath(ctx, path)
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("file %q: %w", path, types.ErrUnknownFile)
		}
		return err
	})
	return file, err
}

func lookupFile(ctx context.Context, tx *storage.Tx, id int64) (*storage.File, error) {
	file, err := tx.GetFileByID(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("file %d: %w", id, types.ErrUnknownFile)
	}
	return file, err
}
