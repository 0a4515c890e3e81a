// Package storage provides SQLite persistence for recorded code facts.
//
// The schema follows the layout the trail viewer reads:
//   - element: base identity row for every recorded entity
//   - node, symbol: named entities and their definition status
//   - edge: typed relations between nodes
//   - file, filecontent: source files and their text
//   - local_symbol: function-local identifiers
//   - source_location, occurrence: ranges and what occurs at them
//   - component_access, element_component: visibility and flags
//   - error: analysis errors
//   - meta, schema_version: store metadata, kept across clears
//
// All row operations run on a Tx. Callers own the transaction and use
// Savepoint/RollbackTo to make a single operation atomic inside a longer
// session.
//
//	s, err := storage.NewSQLiteStorage(ctx, "project.srctrldb")
//	if err != nil {
//	    return err
//	}
//	defer s.Close()
//
//	tx, err := s.BeginTx(ctx)
//	if err != nil {
//	    return err
//	}
//	defer tx.Rollback()
//
//	if err := tx.InsertElement(ctx, 1, types.ElementNode); err != nil {
//	    return err
//	}
//	...
//	return tx.Commit()
//
// # Build Tags
//
// The default build uses the pure Go modernc.org/sqlite driver. Building
// with -tags sqlite_cgo switches to github.com/mattn/go-sqlite3.
//
// The handle is limited to one connection, so a Tx left open blocks any
// statement issued directly on the *sql.DB.
package storage
