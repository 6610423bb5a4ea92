// Package asmfunc implements the function disassembler (spec §4.5): a
// two-pass linear sweep over one address range that synthesizes
// pseudo-symbols for intra-function jump/call targets on the first pass
// and emits a labeled, symbolicated instruction stream on the second.
package asmfunc

import (
	"errors"
	"fmt"

	"asmdiff/internal/asmfmt"
	"asmdiff/internal/exeview"
	"asmdiff/internal/symtab"
	"asmdiff/internal/xdecode"
)

// ErrInvalidPrecondition is returned when Disassemble is called with a
// malformed range: begin >= end, or the range does not lie inside exactly
// one section, or that section carries no code bytes. Per spec §7 these
// are programming errors, not data to recover from.
var ErrInvalidPrecondition = errors.New("asmfunc: invalid precondition")

// MaxInstructionBytes bounds the raw bytes kept per instruction; 15 is
// the longest possible x86 instruction encoding.
const MaxInstructionBytes = 15

// Kind tags an AsmInstructionVariant.
type Kind int

const (
	// KindNull exists only as the zero value returned by out-of-range
	// indexing; it is never stored in a Function's instruction list.
	KindNull Kind = iota
	KindLabel
	KindInstruction
)

// AsmLabel is a symbol whose address coincides with an instruction
// boundary.
type AsmLabel struct {
	Label string
}

// AsmInstruction is the core's per-instruction record.
type AsmInstruction struct {
	Address    uint64 // image-base-inclusive
	Bytes      []byte
	Text       string
	IsInvalid  bool
	IsJump     bool
	JumpLen    int16
	LineNumber uint16
}

// Variant is a tagged union of {Null, Label, Instruction}, replacing the
// source's untagged variant (spec §9: "implement as a tagged sum type
// with pattern matching; avoid null-pointer overloading").
type Variant struct {
	Kind        Kind
	Label       *AsmLabel
	Instruction *AsmInstruction
}

func labelVariant(l *AsmLabel) Variant {
	return Variant{Kind: KindLabel, Label: l}
}

func instructionVariant(i *AsmInstruction) Variant {
	return Variant{Kind: KindInstruction, Instruction: i}
}

// Function is the unit of disassembly and comparison: a half-open
// address range plus its labeled instruction stream.
type Function struct {
	BeginVA          uint64
	EndVA            uint64
	SourceFileName   string
	Instructions     []Variant
	InstructionCount int
	LabelCount       int
}

// SourceLine is one (line, offset, length) record, offset/length relative
// to a Function's BeginVA.
type SourceLine struct {
	Line   int
	Offset uint64
	Length uint64
}

// Disassembler runs the two-pass algorithm against one executable view
// and its global symbol store. It is safe for concurrent use across
// distinct Disassemble calls: each call owns its own pseudo-symbol store
// (spec §5 — "per-function pseudo-symbol store is owned exclusively by
// the disassembler invocation; no sharing").
type Disassembler struct {
	exe    *exeview.Executable
	global *symtab.Store
}

// New returns a Disassembler bound to exe and its merged symbol store.
func New(exe *exeview.Executable, global *symtab.Store) *Disassembler {
	return &Disassembler{exe: exe, global: global}
}

// Disassemble runs both passes over [beginVA, endVA) (image-base-
// inclusive addresses) and returns the resulting Function.
func (d *Disassembler) Disassemble(beginVA, endVA uint64) (*Function, error) {
	if beginVA >= endVA {
		return nil, fmt.Errorf("%w: begin 0x%x >= end 0x%x", ErrInvalidPrecondition, beginVA, endVA)
	}

	sec, ok := d.exe.FindSection(beginVA)
	if !ok {
		return nil, fmt.Errorf("%w: begin 0x%x not in any section", ErrInvalidPrecondition, beginVA)
	}
	if endSec, ok := d.exe.FindSection(endVA - 1); !ok || endSec.Name != sec.Name {
		return nil, fmt.Errorf("%w: range 0x%x-0x%x spans more than one section", ErrInvalidPrecondition, beginVA, endVA)
	}
	if sec.Kind != exeview.Code {
		return nil, fmt.Errorf("%w: section %q carries no code", ErrInvalidPrecondition, sec.Name)
	}

	pseudo := newPseudoStore()
	d.pass1(sec, beginVA, endVA, pseudo)

	fn := &Function{BeginVA: beginVA, EndVA: endVA}
	resolver := &shadowResolver{pseudo: pseudo, global: d.global, imageBase: d.exe.ImageBase()}
	formatter := asmfmt.New(d.exe, resolver)
	d.pass2(sec, fn, pseudo, resolver, formatter)

	return fn, nil
}

// pass1 labels intra-function jump/call targets as pseudo-symbols.
func (d *Disassembler) pass1(sec exeview.Section, beginVA, endVA uint64, pseudo *pseudoStore) {
	addr := beginVA
	for addr < endVA {
		b := sectionBytes(sec, d.exe.ImageBase(), addr, endVA)
		r := xdecode.Decode(b)
		if r.Invalid {
			addr += uint64(r.Length)
			continue
		}

		if target, ok := xdecode.RelTarget(r.Inst, addr); ok && target >= beginVA && target < endVA {
			prefix := "loc_"
			if xdecode.IsCall(r.Inst) {
				prefix = "sub_"
			}
			d.addPseudoSymbol(pseudo, target, prefix)
		}

		addr += uint64(r.Length)
	}
}

// addPseudoSymbol synthesizes prefix+hex(address) unless a global symbol
// already names that address, or a pseudo-symbol was already recorded
// there.
func (d *Disassembler) addPseudoSymbol(pseudo *pseudoStore, addr uint64, prefix string) {
	if _, ok := d.global.LookupByImageBaseAddress(addr, d.exe.ImageBase()); ok {
		return
	}
	pseudo.insertIfAbsent(addr, fmt.Sprintf("%s%x", prefix, addr))
}

// pass2 re-walks the range, emitting AsmLabel variants where a symbol
// (pseudo or global) coincides with the current address, then an
// AsmInstruction variant for the decoded (or invalid) instruction.
func (d *Disassembler) pass2(sec exeview.Section, fn *Function, pseudo *pseudoStore, resolver *shadowResolver, formatter *asmfmt.Formatter) {
	addr := fn.BeginVA
	for addr < fn.EndVA {
		if name, ok := resolver.ResolveImageBaseInclusive(addr); ok {
			fn.Instructions = append(fn.Instructions, labelVariant(&AsmLabel{Label: name}))
			fn.LabelCount++
		}

		b := sectionBytes(sec, d.exe.ImageBase(), addr, fn.EndVA)
		r := xdecode.Decode(b)

		inst := &AsmInstruction{Address: addr}
		if r.Invalid {
			n := r.Length
			if n > len(b) {
				n = len(b)
			}
			inst.IsInvalid = true
			inst.Text = hexDump(b[:n])
			inst.Bytes = append([]byte(nil), b[:n]...)
		} else {
			inst.Text = formatter.Format(r.Inst, addr)
			n := r.Length
			if n > MaxInstructionBytes {
				n = MaxInstructionBytes
			}
			inst.Bytes = append([]byte(nil), b[:n]...)

			if target, ok := xdecode.RelTarget(r.Inst, addr); ok {
				switch inRange := target >= fn.BeginVA && target < fn.EndVA; {
				case xdecode.IsShort(r.Inst):
					rel, _ := xdecode.RelValue(r.Inst)
					inst.IsJump = true
					inst.JumpLen = int16(rel)
				case inRange:
					inst.IsJump = true
					inst.JumpLen = int16(int64(target) - int64(addr))
				}
			}
		}

		fn.Instructions = append(fn.Instructions, instructionVariant(inst))
		fn.InstructionCount++
		addr += uint64(r.Length)
	}
}

// AttachSourceLines stamps each AsmInstruction's LineNumber with the
// source-line record whose [offset, offset+length) window (relative to
// fn.BeginVA) contains the instruction's address. lines must be sorted by
// offset and its final record must end exactly at fn.EndVA - fn.BeginVA.
func AttachSourceLines(fn *Function, sourceFileName string, lines []SourceLine) {
	fn.SourceFileName = sourceFileName
	li := 0
	for _, v := range fn.Instructions {
		if v.Kind != KindInstruction {
			continue
		}
		rel := v.Instruction.Address - fn.BeginVA
		for li < len(lines) && rel >= lines[li].Offset+lines[li].Length {
			li++
		}
		if li < len(lines) && rel >= lines[li].Offset {
			v.Instruction.LineNumber = uint16(lines[li].Line)
		}
	}
}

func sectionBytes(sec exeview.Section, imageBase, addr, endVA uint64) []byte {
	off := addr - imageBase - sec.BaseVA
	b := sec.Bytes[off:]
	if limit := endVA - addr; uint64(len(b)) > limit {
		b = b[:limit]
	}
	return b
}

func hexDump(b []byte) string {
	const hexDigits = "0123456789ABCDEF"
	out := make([]byte, 0, len(b)*2)
	for _, c := range b {
		out = append(out, hexDigits[c>>4], hexDigits[c&0xF])
	}
	return string(out)
}

// pseudoStore is the per-function shadow symbol store (spec §3, §5): a
// map owned exclusively by one Disassemble call, never shared or mutated
// concurrently.
type pseudoStore struct {
	byAddr map[uint64]string
}

func newPseudoStore() *pseudoStore {
	return &pseudoStore{byAddr: make(map[uint64]string)}
}

func (p *pseudoStore) insertIfAbsent(addr uint64, name string) {
	if _, ok := p.byAddr[addr]; !ok {
		p.byAddr[addr] = name
	}
}

// shadowResolver implements asmfmt.Resolver by consulting the per-
// function pseudo-symbol store before falling back to the global store
// (spec §4.1, §5 shadowing rule).
type shadowResolver struct {
	pseudo    *pseudoStore
	global    *symtab.Store
	imageBase uint64
}

func (s *shadowResolver) ResolveImageBaseInclusive(addr uint64) (string, bool) {
	if name, ok := s.pseudo.byAddr[addr]; ok {
		return name, true
	}
	if sym, ok := s.global.LookupByImageBaseAddress(addr, s.imageBase); ok {
		return sym.Name, true
	}
	return "", false
}
