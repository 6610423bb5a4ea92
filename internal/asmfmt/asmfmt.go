// Package asmfmt renders a decoded x86 instruction to symbolicated
// assembly text: operands whose effective address resolves to a symbol
// (real or synthesized) are rewritten as a quoted symbol token instead of
// a numeric literal. See spec §4.4 for the decision procedure this
// package implements.
package asmfmt

import (
	"fmt"
	"strings"

	"golang.org/x/arch/x86/x86asm"

	"asmdiff/internal/exeview"
	"asmdiff/internal/xdecode"
)

// Resolver looks up the symbolic name, if any, registered at an
// image-base-inclusive address. Callers compose the global symbol store
// with a per-function pseudo-symbol store (which shadows it) before
// handing a Resolver to a Formatter — asmfmt itself holds no symbol
// storage.
type Resolver interface {
	ResolveImageBaseInclusive(addr uint64) (name string, ok bool)
}

// Formatter renders instructions against one executable view and one
// symbol resolver. Both are read-only for the Formatter's lifetime.
type Formatter struct {
	exe *exeview.Executable
	sym Resolver
}

// New returns a Formatter bound to exe's section bounds and sym's
// symbol resolution.
func New(exe *exeview.Executable, sym Resolver) *Formatter {
	return &Formatter{exe: exe, sym: sym}
}

// Format renders inst, whose own address (image-base-inclusive) is addr,
// to symbolicated text. It does not append the "short ... bytes" comment
// the function disassembler attaches separately once it knows whether the
// target lies inside the current function's range.
func (f *Formatter) Format(inst x86asm.Inst, addr uint64) string {
	var args []string
	for _, a := range inst.Args {
		if a == nil {
			break
		}
		args = append(args, f.renderArg(inst, addr, a))
	}

	mnemonic := strings.ToLower(inst.Op.String())
	if len(args) == 0 {
		return mnemonic
	}
	return mnemonic + " " + strings.Join(args, ", ")
}

func (f *Formatter) renderArg(inst x86asm.Inst, addr uint64, a x86asm.Arg) string {
	switch v := a.(type) {
	case x86asm.Reg:
		return renderReg(v)
	case x86asm.Rel:
		target, _ := xdecode.RelTarget(inst, addr)
		return f.renderRelative(inst, target)
	case x86asm.Imm:
		return f.renderImmediate(v)
	case x86asm.Mem:
		return f.renderMem(v, inst.MemBytes)
	default:
		return a.String()
	}
}

// renderRelative renders a branch target (Rel operand): generic-operand
// bucketing (off_, never unk_), with the "short" prefix applied only when
// a name — real or pseudo — was actually found. Pass-1-seeded intra-
// function targets are always found by the time pass 2 formats them, so
// the short prefix and the out-of-range bucket fallback are naturally
// mutually exclusive in practice (see spec boundary behaviors).
func (f *Formatter) renderRelative(inst x86asm.Inst, target uint64) string {
	if name, ok := f.sym.ResolveImageBaseInclusive(target); ok {
		token := quote(name)
		if xdecode.IsShort(inst) {
			token = "short " + token
		}
		return token
	}
	if tok, ok := f.bucket(target, "sub_", "off_"); ok {
		return tok
	}
	return fmt.Sprintf("%#x", target)
}

// renderImmediate renders a plain immediate (generic operand kind):
// "offset <name>" when resolved, otherwise the sub_/off_ bucket with the
// same "offset " prefix, otherwise the raw numeric literal.
func (f *Formatter) renderImmediate(imm x86asm.Imm) string {
	addr := uint64(int64(imm))
	if name, ok := f.sym.ResolveImageBaseInclusive(addr); ok {
		return "offset " + quote(name)
	}
	if tok, ok := f.bucket(addr, "sub_", "off_"); ok {
		return "offset " + tok
	}
	return fmt.Sprintf("%#x", int64(imm))
}

// renderMem renders a memory operand. When it carries a base or index
// register, the displacement suffix is never symbolicated (step 3: "[eax
// + K]" must not become "[eax + \"sym\"]") — only the pure "[disp]" form,
// a self-contained memory reference, is eligible, and it buckets to
// unk_ rather than off_ per step 5's "pointer and memory operands" rule.
func (f *Formatter) renderMem(m x86asm.Mem, memBytes int) string {
	prefix := typecastPrefix(memBytes) + segmentPrefix(m.Segment)

	if m.Base != 0 || m.Index != 0 {
		return prefix + renderMemDefault(m)
	}

	if hasIrrelevantSegment(m.Segment) || m.Disp < 0 {
		return prefix + renderMemDefault(m)
	}

	addr := uint64(m.Disp)
	if name, ok := f.sym.ResolveImageBaseInclusive(addr); ok {
		return prefix + "[" + quote(name) + "]"
	}
	if tok, ok := f.bucket(addr, "sub_", "unk_"); ok {
		return prefix + "[" + tok + "]"
	}
	return prefix + renderMemDefault(m)
}

// bucket classifies addr against the executable's section bounds,
// returning a quoted pseudo-symbol token. codePrefix names the primary
// code section bucket (always sub_ per spec); otherPrefix names the
// any-section bucket, which differs by operand kind (off_ for generic
// operands, unk_ for pointer/memory operands).
func (f *Formatter) bucket(addr uint64, codePrefix, otherPrefix string) (string, bool) {
	switch {
	case f.exe.InCodeSection(addr):
		return quote(fmt.Sprintf("%s%x", codePrefix, addr)), true
	case f.exe.InAnySection(addr):
		return quote(fmt.Sprintf("%s%x", otherPrefix, addr)), true
	default:
		return "", false
	}
}

func hasIrrelevantSegment(seg x86asm.Reg) bool {
	switch seg {
	case x86asm.ES, x86asm.SS, x86asm.FS, x86asm.GS:
		return true
	default:
		return false
	}
}

func quote(name string) string {
	return `"` + name + `"`
}

func segmentPrefix(seg x86asm.Reg) string {
	switch seg {
	case x86asm.CS, x86asm.DS, x86asm.ES, x86asm.SS, x86asm.FS, x86asm.GS:
		return strings.ToLower(seg.String()) + ":"
	default:
		return ""
	}
}

func renderMemDefault(m x86asm.Mem) string {
	var b strings.Builder
	b.WriteByte('[')
	wrote := false
	if m.Base != 0 {
		b.WriteString(renderReg(m.Base))
		wrote = true
	}
	if m.Index != 0 {
		if wrote {
			b.WriteByte('+')
		}
		if m.Scale > 1 {
			fmt.Fprintf(&b, "%d*", m.Scale)
		}
		b.WriteString(renderReg(m.Index))
		wrote = true
	}
	if m.Disp != 0 || !wrote {
		fmt.Fprintf(&b, "%+#x", m.Disp)
	}
	b.WriteByte(']')
	return b.String()
}

func renderReg(r x86asm.Reg) string {
	if r >= x86asm.F0 && r <= x86asm.F7 {
		return fmt.Sprintf("st(%d)", int(r-x86asm.F0))
	}
	return strings.ToLower(r.String())
}

func typecastPrefix(memBytes int) string {
	switch memBytes {
	case 1:
		return "byte ptr"
	case 2:
		return "word ptr"
	case 4:
		return "dword ptr"
	case 8:
		return "qword ptr"
	case 16:
		return "xmmword ptr"
	default:
		return ""
	}
}
