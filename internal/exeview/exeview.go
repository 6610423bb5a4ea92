// Package exeview models an immutable, already-loaded view of an
// executable image: its sections, image base, and the derived bounds the
// symbolicating formatter consults. Parsing an actual binary format is an
// external collaborator's job (see internal/peview) — this package never
// touches a file.
package exeview

import "fmt"

// SectionKind classifies a Section for symbolication bucketing.
type SectionKind int

const (
	Unknown SectionKind = iota
	Code
	Data
)

func (k SectionKind) String() string {
	switch k {
	case Code:
		return "code"
	case Data:
		return "data"
	default:
		return "unknown"
	}
}

// Section is one named region of the image. BaseVA and Size are
// image-base-relative; Bytes is the raw section content and is immutable
// after load.
type Section struct {
	Name   string
	BaseVA uint64
	Size   uint64
	Bytes  []byte
	Kind   SectionKind
}

// EndVA returns the image-base-relative address one past the section.
func (s Section) EndVA() uint64 { return s.BaseVA + s.Size }

// Contains reports whether the image-base-relative address va falls within
// the section's bounds.
func (s Section) Contains(va uint64) bool {
	return va >= s.BaseVA && va < s.EndVA()
}

// Executable is the immutable, load-time description of an image that the
// disassembler and formatter operate against. Sections are ordered as
// given to New and never mutated afterward.
type Executable struct {
	imageBase  uint64
	sections   []Section
	codeBegin  uint64
	codeEnd    uint64
	allBegin   uint64
	allEnd     uint64
	hasCode    bool
	entryPoint uint64
}

// New builds an Executable view from an ordered section list and an
// image-base-relative entry point. At most one section may be marked Code;
// New returns an error if more than one is.
func New(imageBase uint64, sections []Section, entryPoint uint64) (*Executable, error) {
	e := &Executable{
		imageBase:  imageBase,
		sections:   append([]Section(nil), sections...),
		entryPoint: entryPoint,
	}

	for _, sec := range e.sections {
		if sec.Kind == Code {
			if e.hasCode {
				return nil, fmt.Errorf("exeview: more than one section marked Code (%q)", sec.Name)
			}
			e.hasCode = true
			e.codeBegin = sec.BaseVA
			e.codeEnd = sec.EndVA()
		}

		if !e.hasAnySection() {
			e.allBegin = sec.BaseVA
			e.allEnd = sec.EndVA()
		} else {
			if sec.BaseVA < e.allBegin {
				e.allBegin = sec.BaseVA
			}
			if sec.EndVA() > e.allEnd {
				e.allEnd = sec.EndVA()
			}
		}
	}

	return e, nil
}

func (e *Executable) hasAnySection() bool {
	return e.allEnd != 0 || e.allBegin != 0
}

// ImageBase returns the preferred load address of the image.
func (e *Executable) ImageBase() uint64 { return e.imageBase }

// EntryPoint returns the image-base-relative entry point address.
func (e *Executable) EntryPoint() uint64 { return e.entryPoint }

// Sections returns the ordered section list.
func (e *Executable) Sections() []Section { return e.sections }

// CodeSectionBounds returns the primary code section's image-base-relative
// [begin, end) bounds, or ok=false if no section is marked Code.
func (e *Executable) CodeSectionBounds() (begin, end uint64, ok bool) {
	return e.codeBegin, e.codeEnd, e.hasCode
}

// AllSectionsBounds returns the image-base-relative [min, max) bounds
// spanning every section.
func (e *Executable) AllSectionsBounds() (begin, end uint64) {
	return e.allBegin, e.allEnd
}

// FindSection returns the section containing the image-base-inclusive
// address addr, if any. Like InCodeSection/InAnySection, the conversion
// to the section's image-base-relative bounds happens here so callers
// never perform it themselves.
func (e *Executable) FindSection(addr uint64) (Section, bool) {
	for _, sec := range e.sections {
		if sec.Contains(addr - e.imageBase) {
			return sec, true
		}
	}
	return Section{}, false
}

// InCodeSection reports whether the image-base-inclusive address addr
// falls within the primary code section's image-base-inclusive bounds.
func (e *Executable) InCodeSection(addr uint64) bool {
	if !e.hasCode {
		return false
	}
	begin, end := e.codeBegin+e.imageBase, e.codeEnd+e.imageBase
	return addr >= begin && addr < end
}

// InAnySection reports whether the image-base-inclusive address addr falls
// within any section's image-base-inclusive bounds.
func (e *Executable) InAnySection(addr uint64) bool {
	begin, end := e.allBegin+e.imageBase, e.allEnd+e.imageBase
	return addr >= begin && addr < end
}
