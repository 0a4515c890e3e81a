// Package trail records code facts into a store file readable by the trail
// viewer.
//
// A DB is one recording session. It validates every fact before writing it:
// edges must connect recorded nodes whose kinds the edge kind allows,
// locations must point at a recorded file with a well-formed range, and node
// names compose from their parent's name. A rejected fact leaves no rows
// behind and does not affect anything recorded earlier.
//
// Nothing is durable until Commit:
//
//	db, err := trail.Open(ctx, "project", false)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	class, _ := db.RecordClass(ctx, namehierarchy.NameElement{Name: "MyMainClass"}, 0)
//	method, _ := db.RecordMethod(ctx, namehierarchy.NameElement{Name: "main"}, class)
//	file, _ := db.RecordFile(ctx, "src/main.cpp", true)
//	_, _ = db.RecordSymbolLocation(ctx, method, file, types.NewRange(3, 5, 3, 8))
//
//	return db.Commit(ctx)
//
// Nodes, edges, files, local symbols and errors share one id space. Ids are
// never reused within a store except after Clear.
//
// A DB is not safe for concurrent use.
package trail
