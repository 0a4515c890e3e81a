package trail

import (
	"context"

	"github.com/dshills/trailstore/internal/storage"
	"github.com/dshills/trailstore/pkg/types"
)

// AnalysisError describes an error the analyzer hit. FileID is 0 when the
// error is not tied to a file; Range is ignored then.
type AnalysisError struct {
	Message string
	Fatal   bool
	Indexed bool
	FileID  int64
	Range   types.Range
}

// RecordError stores an analysis error as data for the viewer. It only fails
// when the file or range it points at is invalid.
func (db *DB) RecordError(ctx context.Context, e AnalysisError) (int64, error) {
	var id int64
	err := db.write(ctx, "error", func(tx *storage.Tx) error {
		if e.FileID != 0 {
			if err := e.Range.Validate(); err != nil {
				return err
			}
			if _, err := lookupFile(ctx, tx, e.FileID); err != nil {
				return err
			}
		}

		id = db.ids.Next()
		if err := tx.InsertElement(ctx, id, types.ElementError); err != nil {
			return err
		}
		return tx.InsertError(ctx, &storage.ErrorRecord{
			ID:      id,
			Message: e.Message,
			Fatal:   e.Fatal,
			Indexed: e.Indexed,
			FileID:  e.FileID,
			Range:   e.Range,
		})
	})
	return id, err
}
