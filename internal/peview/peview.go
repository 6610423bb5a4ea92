// Package peview loads 32-bit PE images into the core's exeview.Executable
// shape. It plays the same external-collaborator role the teacher's
// internal/elfx plays for ARM64 shared objects, adapted from debug/elf to
// debug/pe and from a fixed-architecture dynamic-symbol table to a PE
// export directory.
package peview

import (
	"debug/pe"
	"errors"
	"fmt"
	"io"
	"os"

	"asmdiff/internal/exeview"
	"asmdiff/internal/symtab"
)

var (
	ErrNotPE      = errors.New("peview: not a PE file")
	ErrNot386     = errors.New("peview: not a 32-bit x86 image (IMAGE_FILE_MACHINE_I386)")
	ErrNoOptional = errors.New("peview: file carries no optional header")
)

// Loaded is one parsed image: the core's Executable view plus the symbols
// recovered from its export table.
type Loaded struct {
	Exe     *exeview.Executable
	Symbols []symtab.Symbol
}

// Open parses the PE file at path and produces its Executable view and
// initial (export-table-derived) symbol list.
func Open(path string) (*Loaded, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("peview: open: %w", err)
	}
	defer f.Close()

	pf, err := pe.NewFile(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotPE, err)
	}
	defer pf.Close()

	if pf.Machine != pe.IMAGE_FILE_MACHINE_I386 {
		return nil, ErrNot386
	}

	opt, ok := pf.OptionalHeader.(*pe.OptionalHeader32)
	if !ok {
		return nil, ErrNoOptional
	}
	imageBase := uint64(opt.ImageBase)
	entryPoint := uint64(opt.AddressOfEntryPoint)

	sections, err := readSections(pf, entryPoint)
	if err != nil {
		return nil, err
	}

	exe, err := exeview.New(imageBase, sections, entryPoint)
	if err != nil {
		return nil, fmt.Errorf("peview: %w", err)
	}

	syms, err := readExports(pf, opt)
	if err != nil {
		return nil, err
	}

	return &Loaded{Exe: exe, Symbols: syms}, nil
}

// readSections builds the core's Section list, classifying the section
// whose image-base-relative range straddles the entry point as Code and
// every other section as Data. A PE image can legitimately carry more
// than one executable section (.text plus e.g. a linker-merged .rdata);
// the entry-point heuristic picks the one the disassembler should treat
// as the code section, matching exeview.New's "at most one Code section"
// contract.
func readSections(pf *pe.File, entryPoint uint64) ([]exeview.Section, error) {
	sections := make([]exeview.Section, 0, len(pf.Sections))
	for _, s := range pf.Sections {
		data, err := s.Data()
		if err != nil && err != io.EOF {
			return nil, fmt.Errorf("peview: section %q data: %w", s.Name, err)
		}

		base := uint64(s.VirtualAddress)
		size := uint64(s.VirtualSize)
		if size == 0 {
			size = uint64(len(data))
		}

		kind := exeview.Data
		straddles := entryPoint >= base && entryPoint < base+size
		executable := s.Characteristics&pe.IMAGE_SCN_CNT_CODE != 0
		if straddles && executable {
			kind = exeview.Code
		}

		sections = append(sections, exeview.Section{
			Name:   s.Name,
			BaseVA: base,
			Size:   size,
			Bytes:  padTo(data, size),
			Kind:   kind,
		})
	}
	return sections, nil
}

// padTo right-pads b with zero bytes up to size, matching the zero-fill
// a loader performs when VirtualSize exceeds the file's raw section data
// (e.g. an uninitialized-data tail folded into .text by the linker).
func padTo(b []byte, size uint64) []byte {
	if uint64(len(b)) >= size {
		return b[:size]
	}
	out := make([]byte, size)
	copy(out, b)
	return out
}

// readExports decodes the export directory (if present) into symtab
// symbols. A PE with no exports (the common case for a standalone EXE, as
// opposed to a DLL) is not an error; the embedded symbol list is simply
// empty and internal/dbgrecords is left to supply everything.
func readExports(pf *pe.File, opt *pe.OptionalHeader32) ([]symtab.Symbol, error) {
	if len(opt.DataDirectory) <= pe.IMAGE_DIRECTORY_ENTRY_EXPORT {
		return nil, nil
	}
	dir := opt.DataDirectory[pe.IMAGE_DIRECTORY_ENTRY_EXPORT]
	if dir.VirtualAddress == 0 || dir.Size == 0 {
		return nil, nil
	}

	raw, err := sectionContaining(pf, dir.VirtualAddress, dir.Size)
	if err != nil {
		// Exports unreadable: not fatal to loading the image, only to
		// seeding its symbol list from them.
		return nil, nil
	}

	return parseExportDirectory(raw, dir.VirtualAddress)
}

func sectionContaining(pf *pe.File, rva, size uint32) ([]byte, error) {
	for _, s := range pf.Sections {
		if rva >= s.VirtualAddress && rva+size <= s.VirtualAddress+s.VirtualSize {
			data, err := s.Data()
			if err != nil {
				return nil, err
			}
			off := rva - s.VirtualAddress
			if uint32(len(data)) < off {
				return nil, fmt.Errorf("peview: export directory runs past section %q", s.Name)
			}
			// Re-base so callers can index by RVA directly.
			rebased := make([]byte, s.VirtualAddress+uint32(len(data)))
			copy(rebased[s.VirtualAddress:], data)
			return rebased, nil
		}
	}
	return nil, fmt.Errorf("peview: no section contains RVA 0x%x", rva)
}

// IMAGE_EXPORT_DIRECTORY field offsets (Microsoft PE spec); debug/pe does
// not model this structure.
const (
	exportDirNumberOfNames        = 24
	exportDirAddressOfFunctions   = 28
	exportDirAddressOfNames       = 32
	exportDirAddressOfNameOrdinal = 36
	exportDirSize                 = 40
)

func parseExportDirectory(image []byte, rva uint32) ([]symtab.Symbol, error) {
	if uint32(len(image)) < rva+exportDirSize {
		return nil, fmt.Errorf("peview: export directory truncated")
	}
	numberOfNames := u32(image, rva+exportDirNumberOfNames)
	addressOfFunctions := u32(image, rva+exportDirAddressOfFunctions)
	addressOfNames := u32(image, rva+exportDirAddressOfNames)
	addressOfNameOrdinal := u32(image, rva+exportDirAddressOfNameOrdinal)

	syms := make([]symtab.Symbol, 0, numberOfNames)
	for i := uint32(0); i < numberOfNames; i++ {
		nameRVA := u32(image, addressOfNames+i*4)
		name := cString(image, nameRVA)
		ordinal := u16(image, addressOfNameOrdinal+i*2)
		funcRVA := u32(image, addressOfFunctions+ordinal*4)
		if funcRVA == 0 {
			continue
		}
		syms = append(syms, symtab.Symbol{Name: name, Address: uint64(funcRVA)})
	}
	return syms, nil
}

func u32(b []byte, off uint32) uint32 {
	if uint32(len(b)) < off+4 {
		return 0
	}
	return uint32(b[off]) | uint32(b[off+1])<<8 | uint32(b[off+2])<<16 | uint32(b[off+3])<<24
}

func u16(b []byte, off uint32) uint16 {
	if uint32(len(b)) < off+2 {
		return 0
	}
	return uint16(b[off]) | uint16(b[off+1])<<8
}

func cString(b []byte, off uint32) string {
	end := off
	for end < uint32(len(b)) && b[end] != 0 {
		end++
	}
	return string(b[off:end])
}
