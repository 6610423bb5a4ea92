package symtab

import "testing"

func TestInsertRejectsZeroAddress(t *testing.T) {
	s := New()
	if s.Insert(Symbol{Name: "bad", Address: 0}, true) {
		t.Fatal("expected insert of zero-address symbol to fail")
	}
	if s.Len() != 0 {
		t.Fatalf("got %d symbols, want 0", s.Len())
	}
}

func TestInsertOverwritePolicy(t *testing.T) {
	s := New()
	s.Insert(Symbol{Name: "foo", Address: 0x1000, Size: 4}, false)
	s.Insert(Symbol{Name: "bar", Address: 0x1000, Size: 8}, false)

	sym, ok := s.LookupByAddress(0x1000)
	if !ok || sym.Name != "foo" {
		t.Fatalf("overwrite=false should keep existing entry, got %+v", sym)
	}

	s.Insert(Symbol{Name: "bar", Address: 0x1000, Size: 8}, true)
	sym, ok = s.LookupByAddress(0x1000)
	if !ok || sym.Name != "bar" || sym.Size != 8 {
		t.Fatalf("overwrite=true should replace entry, got %+v", sym)
	}

	byName, ok := s.LookupByName("bar")
	if !ok || byName.Address != 0x1000 {
		t.Fatalf("name index should point at replaced slot, got %+v", byName)
	}
}

func TestLookupByImageBaseAddress(t *testing.T) {
	s := New()
	s.Insert(Symbol{Name: "foo", Address: 0x1000}, false)

	sym, ok := s.LookupByImageBaseAddress(0x401000, 0x400000)
	if !ok || sym.Name != "foo" {
		t.Fatalf("expected foo at image-base-inclusive 0x401000, got %+v ok=%v", sym, ok)
	}
}

func TestNearest(t *testing.T) {
	s := New()
	s.Insert(Symbol{Name: "a", Address: 0x100}, false)
	s.Insert(Symbol{Name: "c", Address: 0x300}, false)
	s.Insert(Symbol{Name: "b", Address: 0x200}, false)

	sym, ok := s.Nearest(0x250)
	if !ok || sym.Name != "b" {
		t.Fatalf("nearest(0x250) = %+v, want b", sym)
	}

	sym, ok = s.Nearest(0x300)
	if !ok || sym.Name != "c" {
		t.Fatalf("nearest(0x300) = %+v, want c (exact match)", sym)
	}

	if _, ok := s.Nearest(0x50); ok {
		t.Fatal("nearest(0x50) should find nothing below all symbols")
	}
}

func TestAllReturnsSortedByAddress(t *testing.T) {
	s := New()
	s.Insert(Symbol{Name: "c", Address: 0x300}, false)
	s.Insert(Symbol{Name: "a", Address: 0x100}, false)
	s.Insert(Symbol{Name: "b", Address: 0x200}, false)

	got := s.All()
	if len(got) != 3 {
		t.Fatalf("got %d symbols, want 3", len(got))
	}
	want := []string{"a", "b", "c"}
	for i, name := range want {
		if got[i].Name != name {
			t.Errorf("got[%d].Name = %q, want %q", i, got[i].Name, name)
		}
	}
}

func TestNameAliasKeepsFirst(t *testing.T) {
	s := New()
	s.Insert(Symbol{Name: "dup", Address: 0x10}, false)
	s.Insert(Symbol{Name: "dup", Address: 0x20}, false)

	sym, ok := s.LookupByName("dup")
	if !ok || sym.Address != 0x10 {
		t.Fatalf("name alias should keep first inserted, got %+v", sym)
	}
}
