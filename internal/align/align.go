// Package align implements the instruction-stream aligner (C8) and the
// comparison result / strictness metrics (C9). See spec §4.8-§4.9.
package align

import (
	"asmdiff/internal/asmcmp"
	"asmdiff/internal/asmfunc"
)

// Reason is a flag set annotating why an InstructionPair did not match
// outright, independent of the per-token bitmasks.
type Reason uint16

const (
	ReasonMissing Reason = 1 << iota
	ReasonInvalid
	ReasonJumpLen
)

// Info is the comparator's verdict for one instruction pair, combining
// the token-level bitmasks (asmcmp.Info) with the higher-level reasons
// only a full instruction pair can carry.
type Info struct {
	MismatchBits      uint16
	MaybeMismatchBits uint16
	Reasons           Reason
}

// IsMatch reports whether info represents a clean match: no mismatching
// tokens, no maybe-mismatching tokens, and no reason flags at all.
func (i Info) IsMatch() bool {
	return i.MismatchBits == 0 && i.MaybeMismatchBits == 0 && i.Reasons == 0
}

// classification buckets an Info for counter purposes: any reason flag
// or mismatch bit forces Mismatch; a clean maybe-only Info is Maybe;
// everything else is Match.
type classification int

const (
	classMatch classification = iota
	classMaybe
	classMismatch
)

func (i Info) classify() classification {
	if i.MismatchBits != 0 || i.Reasons != 0 {
		return classMismatch
	}
	if i.MaybeMismatchBits != 0 {
		return classMaybe
	}
	return classMatch
}

// allMismatch is the bitmask used for unilateral records produced when
// lookahead skips over an instruction on one side only.
const allMismatch uint16 = 0xFFFF

// CreateMismatchInfo compares two (possibly absent) instructions. A nil
// side sets ReasonMissing and skips text comparison entirely. Differing
// IsInvalid sets ReasonInvalid and also skips text comparison (comparing
// a byte dump against real assembly text is meaningless). Otherwise the
// instructions' rendered text is compared token-by-token, and ReasonJumpLen
// is added on top when both are jumps with differing jump lengths.
func CreateMismatchInfo(i0, i1 *asmfunc.AsmInstruction) Info {
	if i0 == nil || i1 == nil {
		return Info{Reasons: ReasonMissing}
	}
	if i0.IsInvalid != i1.IsInvalid {
		return Info{Reasons: ReasonInvalid}
	}

	cmp := asmcmp.CompareText(i0.Text, i1.Text)
	info := Info{MismatchBits: cmp.MismatchBits, MaybeMismatchBits: cmp.MaybeMismatchBits}
	if i0.IsJump && i1.IsJump && i0.JumpLen != i1.JumpLen {
		info.Reasons |= ReasonJumpLen
	}
	return info
}

// LabelPair is a record where at least one side presented a label at the
// current alignment step.
type LabelPair struct {
	Side0 *asmfunc.AsmLabel
	Side1 *asmfunc.AsmLabel
}

// InstructionPair is a record pairing (at least) one side's instruction
// with the other's, carrying the comparison verdict.
type InstructionPair struct {
	Side0 *asmfunc.AsmInstruction
	Side1 *asmfunc.AsmInstruction
	Info  Info
}

// RecordKind tags a Record.
type RecordKind int

const (
	RecordLabelPair RecordKind = iota
	RecordInstructionPair
)

// Record is one aligned position in a ComparisonResult.
type Record struct {
	Kind        RecordKind
	Label       *LabelPair
	Instruction *InstructionPair
}

// Strictness selects how maybe-matches count toward match/mismatch
// totals. See spec §4.9.
type Strictness int

const (
	Lenient Strictness = iota
	Undecided
	Strict
)

// ComparisonResult aggregates the aligner's output records and counters.
type ComparisonResult struct {
	Records         []Record
	LabelCount      int
	MatchCount      int
	MaybeMatchCount int
	MismatchCount   int
}

func (r *ComparisonResult) total() int {
	return r.MatchCount + r.MaybeMatchCount + r.MismatchCount
}

// Count returns the (match, mismatch) totals under the given strictness.
func (r *ComparisonResult) Count(s Strictness) (match, mismatch int) {
	switch s {
	case Lenient:
		return r.MatchCount + r.MaybeMatchCount, r.MismatchCount
	case Strict:
		return r.MatchCount, r.MismatchCount + r.MaybeMatchCount
	default: // Undecided
		return r.MatchCount, r.MismatchCount
	}
}

// Similarity returns match / (match + maybe + mismatch) under the given
// strictness; a result with no instruction pairs at all is similarity 1.0.
func (r *ComparisonResult) Similarity(s Strictness) float64 {
	total := r.total()
	if total == 0 {
		return 1.0
	}
	match, _ := r.Count(s)
	return float64(match) / float64(total)
}

// MaxMatchCount and MaxMismatchCount both count every maybe-match,
// regardless of strictness — the "or N" alternate figures the report
// renderer shows alongside the requested strictness's counts.
func (r *ComparisonResult) MaxMatchCount() int    { return r.MatchCount + r.MaybeMatchCount }
func (r *ComparisonResult) MaxMismatchCount() int { return r.MismatchCount + r.MaybeMatchCount }

// MaxSimilarity is MaxMatchCount / total.
func (r *ComparisonResult) MaxSimilarity() float64 {
	total := r.total()
	if total == 0 {
		return 1.0
	}
	return float64(r.MaxMatchCount()) / float64(total)
}

// DefaultLookahead is the bounded-lookahead budget used when a caller
// doesn't specify one.
const DefaultLookahead = 20

// Align walks two instruction-variant streams and produces their
// ComparisonResult, using a bounded bidirectional lookahead to
// re-synchronize after localized insertions or deletions. See spec §4.8.
func Align(s0, s1 []asmfunc.Variant, lookaheadLimit int) *ComparisonResult {
	res := &ComparisonResult{Records: make([]Record, 0, reserveCap(len(s0), len(s1)))}

	i0, i1 := 0, 0
	for i0 < len(s0) || i1 < len(s1) {
		v0, v1 := variantAt(s0, i0), variantAt(s1, i1)

		if v0.Kind == asmfunc.KindLabel || v1.Kind == asmfunc.KindLabel {
			lp := &LabelPair{}
			if v0.Kind == asmfunc.KindLabel {
				lp.Side0 = v0.Label
				i0++
			}
			if v1.Kind == asmfunc.KindLabel {
				lp.Side1 = v1.Label
				i1++
			}
			res.Records = append(res.Records, Record{Kind: RecordLabelPair, Label: lp})
			res.LabelCount++
			continue
		}

		inst0, inst1 := instructionOf(v0), instructionOf(v1)
		info := CreateMismatchInfo(inst0, inst1)

		if !info.IsMatch() && info.Reasons&ReasonMissing == 0 {
			if newI0, newI1, carried, ok := lookahead(res, s0, i0, s1, i1, lookaheadLimit); ok {
				i0, i1, info = newI0, newI1, carried
				v0, v1 = variantAt(s0, i0), variantAt(s1, i1)
				inst0, inst1 = instructionOf(v0), instructionOf(v1)
			}
		}

		res.Records = append(res.Records, Record{
			Kind:        RecordInstructionPair,
			Instruction: &InstructionPair{Side0: inst0, Side1: inst1, Info: info},
		})
		switch info.classify() {
		case classMatch:
			res.MatchCount++
		case classMaybe:
			res.MaybeMatchCount++
		case classMismatch:
			res.MismatchCount++
		}
		if inst0 != nil {
			i0++
		}
		if inst1 != nil {
			i1++
		}
	}
	return res
}

// lookahead implements the bounded bidirectional re-synchronization
// protocol. On success it returns the advanced cursors and the carried
// match Info, having already committed unilateral records into res for
// every position skipped over on the picked side. On failure (budget or
// stream exhaustion) it returns ok=false and res is untouched.
func lookahead(res *ComparisonResult, s0 []asmfunc.Variant, i0 int, s1 []asmfunc.Variant, i1 int, limit int) (newI0, newI1 int, info Info, ok bool) {
	k0, k1 := 1, 0
	limit0, limit1 := limit, limit

	for i0+k0 < len(s0) && i1+k1 < len(s1) && k0 < limit0 && k1 < limit1 {
		if k0 > k1 {
			for i0+k0 < len(s0) && s0[i0+k0].Kind == asmfunc.KindLabel {
				k0++
				limit0++
			}
			if i0+k0 >= len(s0) {
				break
			}
			cand := CreateMismatchInfo(s0[i0+k0].Instruction, s1[i1].Instruction)
			if cand.IsMatch() {
				commitSkipped(res, s0, i0, i0+k0, 0)
				return i0 + k0, i1, cand, true
			}
			k1++
		} else {
			for i1+k1 < len(s1) && s1[i1+k1].Kind == asmfunc.KindLabel {
				k1++
				limit1++
			}
			if i1+k1 >= len(s1) {
				break
			}
			// CreateMismatchInfo's comparison is symmetric (asmcmp.Compare
			// never favors a side), so the (side1, side0) verdict computed
			// above carries over unchanged to the (side0, side1) record the
			// caller will emit.
			cand := CreateMismatchInfo(s1[i1+k1].Instruction, s0[i0].Instruction)
			if cand.IsMatch() {
				commitSkipped(res, s1, i1, i1+k1, 1)
				return i0, i1 + k1, cand, true
			}
			k0++
		}
	}
	return i0, i1, Info{}, false
}

// commitSkipped appends unilateral records (opposite side nil) for every
// variant in variants[from:to) — the positions the picked side skipped
// over to reach its match, including the original non-matching base.
func commitSkipped(res *ComparisonResult, variants []asmfunc.Variant, from, to, side int) {
	for idx := from; idx < to; idx++ {
		v := variants[idx]
		switch v.Kind {
		case asmfunc.KindLabel:
			lp := &LabelPair{}
			setSide(lp, side, v.Label)
			res.Records = append(res.Records, Record{Kind: RecordLabelPair, Label: lp})
			res.LabelCount++
		case asmfunc.KindInstruction:
			ip := &InstructionPair{Info: Info{MismatchBits: allMismatch}}
			if side == 0 {
				ip.Side0 = v.Instruction
			} else {
				ip.Side1 = v.Instruction
			}
			res.Records = append(res.Records, Record{Kind: RecordInstructionPair, Instruction: ip})
			res.MismatchCount++
		}
	}
}

func setSide(lp *LabelPair, side int, l *asmfunc.AsmLabel) {
	if side == 0 {
		lp.Side0 = l
	} else {
		lp.Side1 = l
	}
}

func variantAt(s []asmfunc.Variant, i int) asmfunc.Variant {
	if i < 0 || i >= len(s) {
		return asmfunc.Variant{}
	}
	return s[i]
}

func instructionOf(v asmfunc.Variant) *asmfunc.AsmInstruction {
	if v.Kind != asmfunc.KindInstruction {
		return nil
	}
	return v.Instruction
}

func reserveCap(n0, n1 int) int {
	max := n0
	if n1 > max {
		max = n1
	}
	return max + max/5 // 1.2x, per spec's reservation guidance
}
