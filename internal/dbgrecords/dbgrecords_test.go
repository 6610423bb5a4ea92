package dbgrecords

import (
	"os"
	"path/filepath"
	"testing"

	"asmdiff/internal/symtab"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	doc := &Document{
		Symbols: []SymbolRecord{
			{Name: "main", Address: 0x1000, Size: 0x40},
			{Name: "helper", Address: 0x1040},
		},
		Functions: []FunctionRecord{
			{
				BeginVA:        0x1000,
				EndVA:          0x1040,
				SourceFileName: "main.c",
				Lines: []SourceLineRecord{
					{Line: 10, Offset: 0, Length: 4},
					{Line: 11, Offset: 4, Length: 60},
				},
			},
		},
	}

	path := filepath.Join(t.TempDir(), "debug.json")
	if err := Save(path, doc); err != nil {
		t.Fatal(err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Symbols) != 2 || got.Symbols[0].Name != "main" {
		t.Fatalf("got symbols %+v", got.Symbols)
	}
	fn, ok := got.FindFunction(0x1000, 0x1040)
	if !ok || fn.SourceFileName != "main.c" || len(fn.Lines) != 2 {
		t.Fatalf("got function %+v, ok=%v", fn, ok)
	}
}

func TestLoadRejectsMalformedJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestPopulateStoreKeepsFirstOnCollision(t *testing.T) {
	store := symtab.New()
	store.Insert(symtab.Symbol{Name: "original", Address: 0x2000}, false)

	doc := &Document{Symbols: []SymbolRecord{{Name: "shadowed", Address: 0x2000}}}
	PopulateStore(store, doc)

	sym, ok := store.LookupByAddress(0x2000)
	if !ok || sym.Name != "original" {
		t.Fatalf("got %+v, want the original symbol to survive the collision", sym)
	}
}

func TestSourceLinesSortedByOffset(t *testing.T) {
	fn := FunctionRecord{Lines: []SourceLineRecord{
		{Line: 20, Offset: 10, Length: 2},
		{Line: 10, Offset: 0, Length: 10},
	}}
	lines := SourceLines(fn)
	if lines[0].Offset != 0 || lines[1].Offset != 10 {
		t.Fatalf("got %+v, want sorted by offset", lines)
	}
}

func TestFindFunctionNotFound(t *testing.T) {
	doc := &Document{}
	if _, ok := doc.FindFunction(0, 1); ok {
		t.Fatal("expected not found on an empty document")
	}
}
