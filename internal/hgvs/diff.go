package hgvs

import (
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// Direction selects which side of a diff Resolve reports.
type Direction int

const (
	// Inserted reports bases present in the alternate but not the reference.
	Inserted Direction = iota
	// Deleted reports bases present in the reference but not the alternate.
	Deleted
)

// DiffResult holds the location and content of a single indel.
type DiffResult struct {
	// Offset is the alignment position of the last unchanged base before
	// the run (position of the first changed base minus one).
	Offset int
	// Seq is the inserted or deleted run, upper-cased.
	Seq string
}

// Resolve locates the single contiguous run of bases by which alternate
// differs from reference in the given direction. Comparison is
// case-insensitive.
//
// Bases are aligned with difflib's longest-matching-block matcher, so
// inside a repeat the run is placed where the longest unchanged block
// leaves it, not shifted to either end. The alignment coordinate advances
// over every opcode in order (equal, inserted and deleted bases alike).
//
// Inputs with no change in the requested direction, with more than one
// change region, or with a replaced region return ErrAmbiguousDiff.
func Resolve(reference, alternate string, dir Direction) (DiffResult, error) {
	ref := bases(reference)
	alt := bases(alternate)

	want := byte('i')
	if dir == Deleted {
		want = 'd'
	}

	var (
		run     strings.Builder
		pos     int
		first   = -1
		regions int
		mixed   bool
	)
	for _, op := range difflib.NewMatcher(ref, alt).GetOpCodes() {
		var seg []string
		switch op.Tag {
		case 'e':
			pos += op.I2 - op.I1
			continue
		case 'd':
			seg = ref[op.I1:op.I2]
		case 'i':
			seg = alt[op.J1:op.J2]
		default:
			seg = append(ref[op.I1:op.I2:op.I2], alt[op.J1:op.J2]...)
		}

		// Non-equal opcodes are always separated by an equal one.
		regions++
		if op.Tag == want {
			first = pos
			run.WriteString(strings.Join(seg, ""))
		} else {
			mixed = true
		}
		pos += len(seg)
	}

	if first < 0 || regions != 1 || mixed {
		return DiffResult{}, fmt.Errorf("%w: %q vs %q", ErrAmbiguousDiff, reference, alternate)
	}

	return DiffResult{Offset: first - 1, Seq: run.String()}, nil
}

// bases splits a sequence into upper-cased single-base elements for the
// matcher.
func bases(seq string) []string {
	out := make([]string, len(seq))
	for i := 0; i < len(seq); i++ {
		out[i] = strings.ToUpper(seq[i : i+1])
	}
	return out
}
