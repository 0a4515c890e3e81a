package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dshills/trailstore/pkg/types"
)

// File operations

// InsertFile inserts a file row. The element and FILE node rows must exist.
func (t *Tx) InsertFile(ctx context.Context, file *File) error {
	query := `
		INSERT INTO file (id, path, language, modification_time, indexed, complete, line_count)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	language := file.Language
	if language == "" {
		language = "unknown"
	}
	if _, err := t.querier().ExecContext(ctx, query,
		file.ID, file.Path, language, file.ModificationTime, file.Indexed, file.Complete, file.LineCount,
	); err != nil {
		return fmt.Errorf("failed to insert file: %w", err)
	}
	file.Language = language
	return nil
}

const fileColumns = `id, path, language, modification_time, indexed, complete, line_count`

func scanFile(row interface{ Scan(...interface{}) error }) (*File, error) {
	var file File
	var modTime sql.NullString
	err := row.Scan(&file.ID, &file.Path, &file.Language, &modTime, &file.Indexed, &file.Complete, &file.LineCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	file.ModificationTime = modTime.String
	return &file, nil
}

// GetFileByPath reads a file by path. ErrNotFound if absent.
func (t *Tx) GetFileByPath(ctx context.Context, path string) (*File, error) {
	row := t.querier().QueryRowContext(ctx, "SELECT "+fileColumns+" FROM file WHERE path = ?", path)
	return scanFile(row)
}

// GetFileByID reads a file by id. ErrNotFound if absent.
func (t *Tx) GetFileByID(ctx context.Context, id int64) (*File, error) {
	row := t.querier().QueryRowContext(ctx, "SELECT "+fileColumns+" FROM file WHERE id = ?", id)
	return scanFile(row)
}

// UpdateFileIndexed sets the indexed flag of a file.
func (t *Tx) UpdateFileIndexed(ctx context.Context, id int64, indexed bool) error {
	return t.updateFile(ctx, "UPDATE file SET indexed = ? WHERE id = ?", indexed, id)
}

// UpdateFileLanguage sets the language tag of a file.
func (t *Tx) UpdateFileLanguage(ctx context.Context, id int64, language string) error {
	return t.updateFile(ctx, "UPDATE file SET language = ? WHERE id = ?", language, id)
}

func (t *Tx) updateFile(ctx context.Context, query string, value interface{}, id int64) error {
	result, err := t.querier().ExecContext(ctx, query, value, id)
	if err != nil {
		return fmt.Errorf("failed to update file: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpsertFileContent stores the raw text of a file and updates its line count.
func (t *Tx) UpsertFileContent(ctx context.Context, id int64, content string) error {
	query := `
		INSERT INTO filecontent (id, content) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET content = excluded.content
	`
	if _, err := t.querier().ExecContext(ctx, query, id, content); err != nil {
		return fmt.Errorf("failed to store file content: %w", err)
	}
	return t.updateFile(ctx, "UPDATE file SET line_count = ? WHERE id = ?", countLines(content), id)
}

// GetFileContent reads the raw text of a file. ErrNotFound if none was stored.
func (t *Tx) GetFileContent(ctx context.Context, id int64) (string, error) {
	var content sql.NullString
	err := t.querier().QueryRowContext(ctx, "SELECT content FROM filecontent WHERE id = ?", id).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return content.String, nil
}

func countLines(content string) int {
	if content == "" {
		return 0
	}
	n := strings.Count(content, "\n")
	if !strings.HasSuffix(content, "\n") {
		n++
	}
	return n
}

// Source location operations

// FindOrInsertSourceLocation returns the id of the location with the given
// file, range and kind, inserting it if needed.
func (t *Tx) FindOrInsertSourceLocation(ctx context.Context, loc *SourceLocation) error {
	r := loc.Range
	query := `
		INSERT INTO source_location (file_node_id, start_line, start_column, end_line, end_column, type)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(file_node_id, start_line, start_column, end_line, end_column, type)
		DO UPDATE SET type = excluded.type
		RETURNING id
	`
	err := t.querier().QueryRowContext(ctx, query,
		loc.FileID, r.Start.Line, r.Start.Column, r.End.Line, r.End.Column, int(loc.Kind),
	).Scan(&loc.ID)
	if err != nil {
		return fmt.Errorf("failed to store source location: %w", err)
	}
	return nil
}

// InsertOccurrence links an element to a source location. Linking the same
// pair twice is a no-op.
func (t *Tx) InsertOccurrence(ctx context.Context, elementID, locationID int64) error {
	query := `
		INSERT INTO occurrence (element_id, source_location_id) VALUES (?, ?)
		ON CONFLICT(element_id, source_location_id) DO NOTHING
	`
	if _, err := t.querier().ExecContext(ctx, query, elementID, locationID); err != nil {
		return fmt.Errorf("failed to insert occurrence: %w", err)
	}
	return nil
}

// ListLocations returns the source locations an element occurs at, ordered by
// file and position.
func (t *Tx) ListLocations(ctx context.Context, elementID int64) ([]*SourceLocation, error) {
	query := `
		SELECT sl.id, sl.file_node_id, sl.start_line, sl.start_column, sl.end_line, sl.end_column, sl.type
		FROM occurrence o
		JOIN source_location sl ON sl.id = o.source_location_id
		WHERE o.element_id = ?
		ORDER BY sl.file_node_id, sl.start_line, sl.start_column, sl.id
	`
	rows, err := t.querier().QueryContext(ctx, query, elementID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	locations := make([]*SourceLocation, 0)
	for rows.Next() {
		var loc SourceLocation
		var kind int
		if err := rows.Scan(&loc.ID, &loc.FileID,
			&loc.Range.Start.Line, &loc.Range.Start.Column, &loc.Range.End.Line, &loc.Range.End.Column,
			&kind); err != nil {
			return nil, err
		}
		loc.Kind = types.LocationKind(kind)
		locations = append(locations, &loc)
	}
	return locations, rows.Err()
}
