// Package importer records analyzer output into a store.
//
// Analyzers describe what they found as JSON fact files: documents with
// their symbols, occurrences, references, local symbols and errors. Symbols
// carry string ids chosen by the analyzer; the importer maps them to store ids
// and records everything through one trail.DB in dependency order:
//
//  1. files
//  2. nodes, parents before children
//  3. access
//  4. edges, ambiguity marks and unresolved references
//  5. locations
//  6. errors
//
// Fact files are decoded concurrently. A fact the store rejects (an unknown
// parent, an illegal edge, a bad range) is counted in Statistics and the
// import goes on. Any other failure stops the import; work committed before
// it stays in the store.
package importer
