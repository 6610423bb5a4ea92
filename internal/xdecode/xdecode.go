// Package xdecode wraps golang.org/x/arch/x86/x86asm for 32-bit legacy
// mode decoding and exposes the handful of instruction-shape queries the
// formatter and function disassembler need (branch detection, relative
// target resolution). It is a pure function of its inputs and never
// consults the symbol store.
package xdecode

import "golang.org/x/arch/x86/x86asm"

// Mode is the processor mode this package decodes in. The core covers
// IA-32 only; see spec Non-goals.
const Mode = 32

// Result is one decoded instruction. Invalid is true when the underlying
// decoder rejected the byte stream; Length is always populated (at least
// 1) so callers can advance past the failure.
type Result struct {
	Inst    x86asm.Inst
	Length  int
	Invalid bool
}

// Decode decodes the leading instruction in b. It never returns an error;
// decode failures are reported via Result.Invalid so that callers can
// record the failure as data and keep advancing, per the DecodeError
// recovery rule.
func Decode(b []byte) Result {
	inst, err := x86asm.Decode(b, Mode)
	if err != nil {
		length := inst.Len
		if length <= 0 {
			length = 1
		}
		if length > len(b) {
			length = len(b)
		}
		return Result{Length: length, Invalid: true}
	}
	return Result{Inst: inst, Length: inst.Len}
}

// IsCall reports whether inst is a call instruction.
func IsCall(inst x86asm.Inst) bool {
	return inst.Op == x86asm.CALL
}

// IsBranch reports whether inst carries a PC-relative branch target: a
// conditional jump, an unconditional jump, a call, or one of the
// loop/JCXZ family.
func IsBranch(inst x86asm.Inst) bool {
	_, ok := relArg(inst)
	return ok
}

// IsShort reports whether inst encodes its relative target as a single
// signed byte (the "short jump" encoding).
func IsShort(inst x86asm.Inst) bool {
	return inst.PCRel == 1
}

// RelTarget returns the absolute target of inst's relative operand, given
// that inst's own address is addr. Both addr and the returned target are
// in the same address space (the caller decides whether that is
// image-base-relative or image-base-inclusive; PC-relative arithmetic is
// base-independent, so no conversion happens here). ok is false when inst
// has no relative operand.
func RelTarget(inst x86asm.Inst, addr uint64) (target uint64, ok bool) {
	rel, ok := relArg(inst)
	if !ok {
		return 0, false
	}
	return addr + uint64(inst.Len) + uint64(int64(rel)), true
}

// RelValue returns the raw relative displacement encoded in inst's
// operand (the rel8/rel32 immediate itself, before adding it to the
// instruction's address), or ok=false when inst has no relative operand.
func RelValue(inst x86asm.Inst) (rel int64, ok bool) {
	r, ok := relArg(inst)
	if !ok {
		return 0, false
	}
	return int64(r), true
}

func relArg(inst x86asm.Inst) (x86asm.Rel, bool) {
	for _, a := range inst.Args {
		if a == nil {
			break
		}
		if rel, ok := a.(x86asm.Rel); ok {
			return rel, true
		}
	}
	return 0, false
}
