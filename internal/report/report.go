// Package report renders an align.ComparisonResult as the three-column
// side-by-side text the original unassemblize project's AsmPrinter
// produces: per-instruction match markers plus a trailing summary block.
// spec.md's distillation dropped this presentation layer; it is
// supplemented here as the most direct consumer of ComparisonResult,
// exercising every strictness-derived metric.
package report

import (
	"fmt"
	"strings"

	"asmdiff/internal/align"
	"asmdiff/internal/asmfunc"
)

const (
	addressLen = 8
	bytesLen   = 24 // 8 bytes, "xx " each
	asmLen     = 40
)

const (
	markerEqual        = " == "
	markerMaybeEqual   = " ?? "
	markerUnequal      = " xx "
	markerLeftMissing  = " >> "
	markerRightMissing = " << "
)

// Render produces the full report text: one line per record followed by a
// summary block naming the function, its match/mismatch counts, and
// similarity at the requested strictness.
func Render(result *align.ComparisonResult, names [2]string, strictness align.Strictness) string {
	if len(result.Records) == 0 {
		return ""
	}

	var b strings.Builder
	writeSummary(&b, result, names, strictness)
	b.WriteByte('\n')

	for _, rec := range result.Records {
		writeRecord(&b, rec, strictness)
		b.WriteByte('\n')
	}
	return b.String()
}

func writeSummary(b *strings.Builder, result *align.ComparisonResult, names [2]string, strictness align.Strictness) {
	name := functionName(result)
	match, mismatch := result.Count(strictness)
	maxMatch, maxMismatch := result.MaxMatchCount(), result.MaxMismatchCount()
	similarity := result.Similarity(strictness)
	maxSimilarity := result.MaxSimilarity()

	fmt.Fprintf(b, "%s\n", name)
	fmt.Fprintf(b, "match count: %d", match)
	if maxMatch != match {
		fmt.Fprintf(b, " or %d", maxMatch)
	}
	b.WriteByte('\n')
	fmt.Fprintf(b, "mismatch count: %d", mismatch)
	if maxMismatch != mismatch {
		fmt.Fprintf(b, " or %d", maxMismatch)
	}
	b.WriteByte('\n')
	fmt.Fprintf(b, "similarity: %.1f %%", similarity*100)
	if maxSimilarity != similarity {
		fmt.Fprintf(b, " or %.1f %%", maxSimilarity*100)
	}
	b.WriteByte('\n')
	colWidth := addressLen + 1 + bytesLen + asmLen
	fmt.Fprintf(b, "%-*s%-*s\n", colWidth, names[0], colWidth, names[1])
}

func functionName(result *align.ComparisonResult) string {
	if len(result.Records) == 0 || result.Records[0].Kind != align.RecordLabelPair {
		return "_unknown_"
	}
	lp := result.Records[0].Label
	if lp.Side0 != nil {
		return lp.Side0.Label
	}
	if lp.Side1 != nil {
		return lp.Side1.Label
	}
	return "_unknown_"
}

func writeRecord(b *strings.Builder, rec align.Record, strictness align.Strictness) {
	switch rec.Kind {
	case align.RecordLabelPair:
		b.WriteString(column(labelText(rec.Label.Side0)))
		b.WriteString(strings.Repeat(" ", len(markerEqual)))
		b.WriteString(column(labelText(rec.Label.Side1)))
	case align.RecordInstructionPair:
		ip := rec.Instruction
		b.WriteString(column(instructionText(ip.Side0)))
		b.WriteString(markerFor(ip))
		b.WriteString(column(instructionText(ip.Side1)))
	}
}

func labelText(l *asmfunc.AsmLabel) string {
	if l == nil {
		return ""
	}
	return strings.Repeat(" ", addressLen+1+bytesLen) + l.Label + ":"
}

func instructionText(inst *asmfunc.AsmInstruction) string {
	if inst == nil {
		return ""
	}
	text := inst.Text
	if inst.IsInvalid {
		text = "; unrecognized opcode at address:" + fmt.Sprintf("%08x", inst.Address)
	}
	if inst.IsJump {
		text = fmt.Sprintf("%s ; %+d bytes", text, inst.JumpLen)
	}
	return fmt.Sprintf("%08x %s%s", inst.Address, byteHex(inst.Bytes), text)
}

// byteHex renders the instruction's raw bytes as space-separated lowercase
// hex, right-padded to a fixed width so the assembler-text column always
// starts at the same offset regardless of instruction length.
func byteHex(b []byte) string {
	var sb strings.Builder
	for _, c := range b {
		fmt.Fprintf(&sb, "%02x ", c)
	}
	return truncate(sb.String(), bytesLen)
}

func column(text string) string {
	return truncate(text, addressLen+1+bytesLen+asmLen)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s + strings.Repeat(" ", max-len(s))
	}
	out := []byte(s[:max])
	for i := len(out) - 1; i >= 0 && i >= max-2; i-- {
		out[i] = '.'
	}
	return string(out)
}

// markerFor picks the match-marker column for one instruction pair. A
// missing side (the unilateral records lookahead's commitSkipped emits, or
// a trailing run past the shorter side's end) takes precedence over the
// Info verdict and points at whichever side is absent, mirroring
// asmprinter.cpp's left_missing/right_missing markers.
func markerFor(ip *align.InstructionPair) string {
	switch {
	case ip.Side0 == nil:
		return markerLeftMissing
	case ip.Side1 == nil:
		return markerRightMissing
	}
	switch matchValue(ip.Info) {
	case matchEqual:
		return markerEqual
	case matchMaybe:
		return markerMaybeEqual
	default:
		return markerUnequal
	}
}

type matchState int

const (
	matchEqual matchState = iota
	matchMaybe
	matchMismatch
)

func matchValue(info align.Info) matchState {
	if info.MismatchBits != 0 || info.Reasons != 0 {
		return matchMismatch
	}
	if info.MaybeMismatchBits != 0 {
		return matchMaybe
	}
	return matchEqual
}
