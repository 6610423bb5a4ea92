package asmfmt

import (
	"testing"

	"golang.org/x/arch/x86/x86asm"

	"asmdiff/internal/exeview"
	"asmdiff/internal/xdecode"
)

type fakeResolver map[uint64]string

func (f fakeResolver) ResolveImageBaseInclusive(addr uint64) (string, bool) {
	name, ok := f[addr]
	return name, ok
}

func newExe(t *testing.T) *exeview.Executable {
	t.Helper()
	sections := []exeview.Section{
		{Name: ".text", BaseVA: 0x1000, Size: 0x1000, Kind: exeview.Code},
		{Name: ".data", BaseVA: 0x2000, Size: 0x1000, Kind: exeview.Data},
	}
	exe, err := exeview.New(0x400000, sections, 0x1000)
	if err != nil {
		t.Fatal(err)
	}
	return exe
}

func TestFormatCallSymbolRewrite(t *testing.T) {
	exe := newExe(t)
	sym := fakeResolver{0x401005: "foo"}
	f := New(exe, sym)

	r := xdecode.Decode([]byte{0xE8, 0x00, 0x00, 0x00, 0x00})
	if r.Invalid {
		t.Fatal("expected valid decode")
	}

	got := f.Format(r.Inst, 0x401000)
	want := `call "foo"`
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestFormatShortJumpPrefix(t *testing.T) {
	exe := newExe(t)
	sym := fakeResolver{0x401002: "loc_401002"}
	f := New(exe, sym)

	r := xdecode.Decode([]byte{0xEB, 0x00})
	got := f.Format(r.Inst, 0x401000)
	want := `jmp short "loc_401002"`
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestFormatBucketsSubForIntraCodeTarget(t *testing.T) {
	exe := newExe(t)
	f := New(exe, fakeResolver{})

	// call rel32 targeting 0x401100, no symbol registered, inside code section.
	r := xdecode.Decode([]byte{0xE8, 0xFB, 0x00, 0x00, 0x00})
	got := f.Format(r.Inst, 0x401000)
	want := `call "sub_401100"`
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestFormatX87Register(t *testing.T) {
	exe := newExe(t)
	f := New(exe, fakeResolver{})

	got := f.renderArg(x86asm.Inst{}, 0, x86asm.F3)
	if got != "st(3)" {
		t.Fatalf("got %q, want %q", got, "st(3)")
	}
}

func TestFormatMemWithBaseNeverSymbolicated(t *testing.T) {
	exe := newExe(t)
	sym := fakeResolver{0x10: "would_not_apply"}
	f := New(exe, sym)

	m := x86asm.Mem{Base: x86asm.EAX, Disp: 0x10}
	got := f.renderMem(m, 4)
	want := "dword ptr[eax+0x10]"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestFormatMemPureDispBucketsUnk(t *testing.T) {
	exe := newExe(t)
	f := New(exe, fakeResolver{})

	// 0x402000 falls in the .data section, not the code section, so a
	// memory operand buckets to unk_ (spec step 5: pointer/memory operands
	// use unk_ for the any-section case, unlike generic operands' off_).
	m := x86asm.Mem{Disp: 0x402000}
	got := f.renderMem(m, 4)
	want := `dword ptr["unk_402000"]`
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestFormatMemNegativeDispNeverSymbolicated(t *testing.T) {
	exe := newExe(t)
	sym := fakeResolver{0xFFFFFFFFFFFFFFFF: "nope"}
	f := New(exe, sym)

	m := x86asm.Mem{Disp: -1}
	got := f.renderMem(m, 0)
	if got != "[-0x1]" {
		t.Fatalf("got %q, want %q", got, "[-0x1]")
	}
}
