package report

import (
	"strings"
	"testing"

	"asmdiff/internal/align"
	"asmdiff/internal/asmfunc"
)

func inst(addr uint64, text string) *asmfunc.AsmInstruction {
	return &asmfunc.AsmInstruction{Address: addr, Text: text}
}

func TestRenderEmptyResultIsEmptyString(t *testing.T) {
	got := Render(&align.ComparisonResult{}, [2]string{"a.exe", "b.exe"}, align.Undecided)
	if got != "" {
		t.Fatalf("got %q, want empty", got)
	}
}

func TestRenderIncludesFunctionNameFromFirstLabel(t *testing.T) {
	result := &align.ComparisonResult{
		Records: []align.Record{
			{Kind: align.RecordLabelPair, Label: &align.LabelPair{
				Side0: &asmfunc.AsmLabel{Label: "func_a"},
				Side1: &asmfunc.AsmLabel{Label: "func_a"},
			}},
			{Kind: align.RecordInstructionPair, Instruction: &align.InstructionPair{
				Side0: inst(0x1000, "mov eax, ebx"),
				Side1: inst(0x1000, "mov eax, ebx"),
				Info:  align.Info{},
			}},
		},
		LabelCount: 1,
		MatchCount: 1,
	}

	got := Render(result, [2]string{"left.exe", "right.exe"}, align.Undecided)
	if !strings.Contains(got, "func_a") {
		t.Errorf("got %q, want function name func_a", got)
	}
	if !strings.Contains(got, "match count: 1") {
		t.Errorf("got %q, want match count: 1", got)
	}
	if !strings.Contains(got, "left.exe") || !strings.Contains(got, "right.exe") {
		t.Errorf("got %q, want both side names in header", got)
	}
}

func TestRenderUnknownFunctionNameWhenFirstRecordIsInstruction(t *testing.T) {
	result := &align.ComparisonResult{
		Records: []align.Record{
			{Kind: align.RecordInstructionPair, Instruction: &align.InstructionPair{
				Side0: inst(0x1000, "nop"),
				Side1: inst(0x1000, "nop"),
			}},
		},
		MatchCount: 1,
	}
	got := Render(result, [2]string{"a", "b"}, align.Undecided)
	if !strings.Contains(got, "_unknown_") {
		t.Errorf("got %q, want _unknown_ name", got)
	}
}

func TestRenderMatchMarkerForEqualInstructions(t *testing.T) {
	result := &align.ComparisonResult{
		Records: []align.Record{
			{Kind: align.RecordInstructionPair, Instruction: &align.InstructionPair{
				Side0: inst(0x1000, "mov eax, ebx"),
				Side1: inst(0x1000, "mov eax, ebx"),
				Info:  align.Info{},
			}},
		},
		MatchCount: 1,
	}
	got := Render(result, [2]string{"a", "b"}, align.Undecided)
	if !strings.Contains(got, markerEqual) {
		t.Errorf("got %q, want %q marker", got, markerEqual)
	}
}

func TestRenderMaybeAndMismatchMarkers(t *testing.T) {
	maybe := &align.ComparisonResult{
		Records: []align.Record{
			{Kind: align.RecordInstructionPair, Instruction: &align.InstructionPair{
				Side0: inst(0x1000, "mov eax, 1"),
				Side1: inst(0x1000, "mov eax, 2"),
				Info:  align.Info{MaybeMismatchBits: 0x1},
			}},
		},
		MaybeMatchCount: 1,
	}
	if got := Render(maybe, [2]string{"a", "b"}, align.Undecided); !strings.Contains(got, markerMaybeEqual) {
		t.Errorf("got %q, want %q marker", got, markerMaybeEqual)
	}

	mismatch := &align.ComparisonResult{
		Records: []align.Record{
			{Kind: align.RecordInstructionPair, Instruction: &align.InstructionPair{
				Side0: inst(0x1000, "mov eax, ebx"),
				Side1: inst(0x1000, "add eax, ebx"),
				Info:  align.Info{MismatchBits: 0x1},
			}},
		},
		MismatchCount: 1,
	}
	if got := Render(mismatch, [2]string{"a", "b"}, align.Undecided); !strings.Contains(got, markerUnequal) {
		t.Errorf("got %q, want %q marker", got, markerUnequal)
	}
}

func TestRenderShowsMaxAlternateWhenStrictnessDiffers(t *testing.T) {
	result := &align.ComparisonResult{
		Records: []align.Record{
			{Kind: align.RecordInstructionPair, Instruction: &align.InstructionPair{
				Side0: inst(0x1000, "mov eax, 1"),
				Side1: inst(0x1000, "mov eax, 2"),
				Info:  align.Info{MaybeMismatchBits: 0x1},
			}},
		},
		MaybeMatchCount: 1,
	}
	got := Render(result, [2]string{"a", "b"}, align.Strict)
	if !strings.Contains(got, "mismatch count: 1 or 0") {
		t.Errorf("got %q, want an 'or' alternate mismatch count", got)
	}
}

func TestInstructionTextMarksInvalidAndJump(t *testing.T) {
	invalid := &asmfunc.AsmInstruction{Address: 0x1000, IsInvalid: true, Text: "DEADBEEF"}
	if got := instructionText(invalid); !strings.Contains(got, "unrecognized opcode") {
		t.Errorf("got %q, want unrecognized opcode marker", got)
	}

	jump := &asmfunc.AsmInstruction{Address: 0x1000, Text: "jmp 0x2000", IsJump: true, JumpLen: 5}
	if got := instructionText(jump); !strings.Contains(got, "+5 bytes") {
		t.Errorf("got %q, want +5 bytes annotation", got)
	}
}

func TestTruncateAddsEllipsisWhenOverWidth(t *testing.T) {
	got := truncate("this text is much too long for the column", 10)
	if len(got) != 10 || !strings.HasSuffix(got, "..") {
		t.Fatalf("got %q, want 10 chars ending in ..", got)
	}
}

func TestTruncatePadsWhenUnderWidth(t *testing.T) {
	got := truncate("short", 10)
	if len(got) != 10 {
		t.Fatalf("got %q (len %d), want len 10", got, len(got))
	}
}
