// Package dbgrecords ingests the plain-record debug data the core assumes
// already exists: symbol records, optional per-function source-line
// records, and the originating source file name. It reads/writes these as
// a JSON sidecar file per executable, matching the teacher's
// internal/output use of encoding/json for its snapshot/symbols sidecars.
package dbgrecords

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"asmdiff/internal/asmfunc"
	"asmdiff/internal/symtab"
)

// SymbolRecord is one named, sized, image-base-relative region.
type SymbolRecord struct {
	Name    string `json:"name"`
	Address uint64 `json:"address"`
	Size    uint64 `json:"size,omitempty"`
}

// SourceLineRecord is one (line, offset, length) window, offset/length
// relative to the owning function's start address.
type SourceLineRecord struct {
	Line   int    `json:"line"`
	Offset uint64 `json:"offset"`
	Length uint64 `json:"length"`
}

// FunctionRecord carries the optional per-function source-line mapping
// for one address range, keyed by its begin address so a Document can
// hold several functions' line tables.
type FunctionRecord struct {
	BeginVA        uint64             `json:"begin_va"`
	EndVA          uint64             `json:"end_va"`
	SourceFileName string             `json:"source_file_name,omitempty"`
	Lines          []SourceLineRecord `json:"lines,omitempty"`
}

// Document is the full sidecar file for one executable: its symbol table
// plus zero or more functions' source-line records.
type Document struct {
	Symbols   []SymbolRecord   `json:"symbols"`
	Functions []FunctionRecord `json:"functions,omitempty"`
}

// Load reads and parses a debug-data sidecar file.
func Load(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("dbgrecords: open: %w", err)
	}
	defer f.Close()

	var doc Document
	if err := json.NewDecoder(f).Decode(&doc); err != nil {
		return nil, fmt.Errorf("dbgrecords: decode %s: %w", path, err)
	}
	return &doc, nil
}

// Save writes doc to path as indented JSON.
func Save(path string, doc *Document) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("dbgrecords: create: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("dbgrecords: encode %s: %w", path, err)
	}
	return nil
}

// PopulateStore inserts every symbol record into store. Symbol collisions
// (an address already present) keep the first entry, per symtab.Insert's
// documented recovery rule — debug-data symbols never overwrite ones the
// binary's own export table already contributed.
func PopulateStore(store *symtab.Store, doc *Document) {
	for _, s := range doc.Symbols {
		store.Insert(symtab.Symbol{Name: s.Name, Address: s.Address, Size: s.Size}, false)
	}
}

// FindFunction returns the FunctionRecord whose range is [beginVA, endVA),
// if the document carries one.
func (d *Document) FindFunction(beginVA, endVA uint64) (FunctionRecord, bool) {
	for _, fn := range d.Functions {
		if fn.BeginVA == beginVA && fn.EndVA == endVA {
			return fn, true
		}
	}
	return FunctionRecord{}, false
}

// SourceLines converts a FunctionRecord's lines into the asmfunc.SourceLine
// form AttachSourceLines expects, sorted by offset (AttachSourceLines
// requires this).
func SourceLines(fn FunctionRecord) []asmfunc.SourceLine {
	lines := make([]asmfunc.SourceLine, len(fn.Lines))
	for i, l := range fn.Lines {
		lines[i] = asmfunc.SourceLine{Line: l.Line, Offset: l.Offset, Length: l.Length}
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].Offset < lines[j].Offset })
	return lines
}
