// Package symtab holds the address- and name-indexed symbol table shared by
// the disassembler and the symbolicating formatter.
package symtab

import "sort"

// Symbol is a named region of an executable image. Addresses are
// image-base-relative unless stated otherwise at the call site.
type Symbol struct {
	Name    string
	Address uint64
	Size    uint64
}

// Store is a read-mostly index of symbols by address and by name. It is
// built once per executable (single writer) and consulted concurrently by
// independent disassembly/comparison runs thereafter (many readers, no
// writers) — see spec.md §5.
type Store struct {
	symbols []Symbol
	byAddr  map[uint64]int
	byName  map[string]int

	sortedAddrs []uint64 // lazily (re)built by Nearest; invalidated on Insert
	sortedDirty bool
}

// New returns an empty store ready for Insert.
func New() *Store {
	return &Store{
		byAddr: make(map[uint64]int),
		byName: make(map[string]int),
	}
}

// Insert adds sym to the store. It returns false without modifying the
// store when sym.Address is the zero sentinel (unset).
//
// If an entry already exists at sym.Address and overwrite is false, the
// existing entry is kept (SymbolCollision, recovered locally per spec.md
// §7). Otherwise the slot is replaced in place so that both the address and
// name indices keep pointing at the same (possibly new) entry.
func (s *Store) Insert(sym Symbol, overwrite bool) bool {
	if sym.Address == 0 {
		return false
	}

	if idx, ok := s.byAddr[sym.Address]; ok {
		if !overwrite {
			return false
		}
		s.symbols[idx] = sym
		s.byName[sym.Name] = idx
		return true
	}

	idx := len(s.symbols)
	s.symbols = append(s.symbols, sym)
	s.byAddr[sym.Address] = idx
	if _, exists := s.byName[sym.Name]; !exists {
		s.byName[sym.Name] = idx
	}
	s.sortedDirty = true
	return true
}

// LookupByAddress returns the symbol at the given image-base-relative
// address, if any.
func (s *Store) LookupByAddress(addr uint64) (Symbol, bool) {
	idx, ok := s.byAddr[addr]
	if !ok {
		return Symbol{}, false
	}
	return s.symbols[idx], true
}

// LookupByName returns the symbol registered under the given name, if any.
// When multiple inserts without overwrite raced for the same name, the
// first inserted entry wins.
func (s *Store) LookupByName(name string) (Symbol, bool) {
	idx, ok := s.byName[name]
	if !ok {
		return Symbol{}, false
	}
	return s.symbols[idx], true
}

// LookupByImageBaseAddress subtracts imageBase from addr and defers to
// LookupByAddress. Callers must not perform this subtraction themselves —
// image-base-relative and image-base-inclusive addresses are never
// implicitly converted anywhere else in this package.
func (s *Store) LookupByImageBaseAddress(addr, imageBase uint64) (Symbol, bool) {
	return s.LookupByAddress(addr - imageBase)
}

// Nearest returns the entry with the greatest address <= addr, if any.
func (s *Store) Nearest(addr uint64) (Symbol, bool) {
	if s.sortedDirty || s.sortedAddrs == nil {
		s.rebuildSortedAddrs()
	}

	i := sort.Search(len(s.sortedAddrs), func(i int) bool { return s.sortedAddrs[i] > addr })
	if i == 0 {
		return Symbol{}, false
	}
	sym, _ := s.LookupByAddress(s.sortedAddrs[i-1])
	return sym, true
}

func (s *Store) rebuildSortedAddrs() {
	s.sortedAddrs = make([]uint64, 0, len(s.symbols))
	for addr := range s.byAddr {
		s.sortedAddrs = append(s.sortedAddrs, addr)
	}
	sort.Slice(s.sortedAddrs, func(i, j int) bool { return s.sortedAddrs[i] < s.sortedAddrs[j] })
	s.sortedDirty = false
}

// Len returns the number of distinct address-indexed symbols.
func (s *Store) Len() int {
	return len(s.symbols)
}

// All returns every symbol in the store, sorted by address. It is meant for
// whole-store presentation (the CLI's symbols dump); lookup-heavy callers
// should use LookupByAddress/LookupByName/Nearest instead.
func (s *Store) All() []Symbol {
	if s.sortedDirty || s.sortedAddrs == nil {
		s.rebuildSortedAddrs()
	}
	out := make([]Symbol, 0, len(s.sortedAddrs))
	for _, addr := range s.sortedAddrs {
		sym, _ := s.LookupByAddress(addr)
		out = append(out, sym)
	}
	return out
}
