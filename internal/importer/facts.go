package importer

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/dshills/trailstore/pkg/namehierarchy"
	"github.com/dshills/trailstore/pkg/types"
)

// FactFile is the JSON form of one analyzer run. Symbol ids are strings
// chosen by the analyzer and are shared by every fact file of one import.
type FactFile struct {
	Tool      string     `json:"tool,omitempty"`
	Delimiter string     `json:"delimiter,omitempty"`
	Documents []Document `json:"documents"`
	Errors    []Error    `json:"errors,omitempty"`
}

// Document holds the facts about one source file.
type Document struct {
	Path         string        `json:"path"`
	Language     string        `json:"language,omitempty"`
	Content      string        `json:"content,omitempty"`
	Indexed      *bool         `json:"indexed,omitempty"`
	Symbols      []Symbol      `json:"symbols,omitempty"`
	Occurrences  []Occurrence  `json:"occurrences,omitempty"`
	References   []Reference   `json:"references,omitempty"`
	LocalSymbols []LocalSymbol `json:"local_symbols,omitempty"`
	AtomicRanges []Range       `json:"atomic_ranges,omitempty"`
	Includes     []string      `json:"includes,omitempty"`
	Errors       []Error       `json:"errors,omitempty"`
}

// IsIndexed reports whether the document was fully analyzed. Missing means
// yes.
func (d *Document) IsIndexed() bool {
	return d.Indexed == nil || *d.Indexed
}

// Symbol declares a node. Name holds the symbol's own elements; the parent's
// name is prepended when Parent is set. Definition "none" declares a node
// that is only referenced.
type Symbol struct {
	ID         string        `json:"id"`
	Kind       string        `json:"kind"`
	Name       []NameElement `json:"name"`
	Parent     string        `json:"parent,omitempty"`
	Definition string        `json:"definition,omitempty"`
	Access     string        `json:"access,omitempty"`
}

// NameElement is the JSON form of namehierarchy.NameElement.
type NameElement struct {
	Prefix  string `json:"prefix,omitempty"`
	Name    string `json:"name"`
	Postfix string `json:"postfix,omitempty"`
}

// Occurrence places a symbol in the document.
type Occurrence struct {
	Symbol string `json:"symbol"`
	Kind   string `json:"kind,omitempty"`
	Range  Range  `json:"range"`
}

// Reference is a relation from Source to Target. An empty Target is an
// unresolved reference and needs a Range.
type Reference struct {
	Kind      string `json:"kind"`
	Source    string `json:"source"`
	Target    string `json:"target,omitempty"`
	Ambiguous bool   `json:"ambiguous,omitempty"`
	Range     *Range `json:"range,omitempty"`
}

// LocalSymbol is a function-local identifier and the places it appears.
type LocalSymbol struct {
	Name   string  `json:"name"`
	Ranges []Range `json:"ranges"`
}

// Error is an analysis error. Document errors without a range are stored
// without a file.
type Error struct {
	Message string `json:"message"`
	Fatal   bool   `json:"fatal,omitempty"`
	Indexed bool   `json:"indexed,omitempty"`
	Range   *Range `json:"range,omitempty"`
}

// Range is [start line, start column, end line, end column], 1-based and
// inclusive.
type Range [4]int

func (r Range) toRange() types.Range {
	return types.NewRange(r[0], r[1], r[2], r[3])
}

func (f *FactFile) delimiter() string {
	if f.Delimiter == "" {
		return namehierarchy.DefaultDelimiter
	}
	return f.Delimiter
}

func (s *Symbol) hierarchy(delimiter string) namehierarchy.NameHierarchy {
	h := namehierarchy.NameHierarchy{Delimiter: delimiter}
	for _, e := range s.Name {
		h.Push(namehierarchy.NameElement{Prefix: e.Prefix, Name: e.Name, Postfix: e.Postfix})
	}
	return h
}

func (s *Symbol) definition() (types.DefinitionKind, error) {
	if s.Definition == "none" {
		return types.DefinitionNone, nil
	}
	return types.ParseDefinitionKind(s.Definition)
}

// DecodeFacts reads one fact file from r.
func DecodeFacts(r io.Reader) (*FactFile, error) {
	var facts FactFile
	dec := json.NewDecoder(r)
	if err := dec.Decode(&facts); err != nil {
		return nil, fmt.Errorf("decode facts: %w", err)
	}
	return &facts, nil
}

// LoadFactFile reads the fact file at path.
func LoadFactFile(path string) (*FactFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	facts, err := DecodeFacts(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return facts, nil
}
