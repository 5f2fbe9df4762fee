// Package hgvs translates WHO mutation catalogue variant notation into
// HGVS-style descriptors.
package hgvs

import "errors"

// Strand is the orientation of a gene on the reference genome.
type Strand int8

const (
	StrandForward Strand = 1
	StrandReverse Strand = -1
)

// String returns "+" or "-".
func (s Strand) String() string {
	if s == StrandReverse {
		return "-"
	}
	return "+"
}

// ParseStrand converts a GFF strand column value to a Strand.
// Only "+" and "-" are accepted.
func ParseStrand(s string) (Strand, bool) {
	switch s {
	case "+":
		return StrandForward, true
	case "-":
		return StrandReverse, true
	}
	return 0, false
}

// StrandLookup defines the interface for finding the strand of a gene.
type StrandLookup interface {
	Strand(gene string) (Strand, bool)
}

// Category identifies which sub-grammar a variant token matched.
type Category int

const (
	CategoryUnknown Category = iota
	CategoryAminoAcid
	CategoryNonCodingRNA
	CategoryPromoterSNP
	CategoryPromoterDeletion
	CategoryPromoterInsertion
	CategoryCodingDeletion
	CategoryCodingInsertion
)

var categoryNames = [...]string{
	CategoryUnknown:           "unknown",
	CategoryAminoAcid:         "amino_acid",
	CategoryNonCodingRNA:      "ncrna_snp",
	CategoryPromoterSNP:       "promoter_snp",
	CategoryPromoterDeletion:  "promoter_deletion",
	CategoryPromoterInsertion: "promoter_insertion",
	CategoryCodingDeletion:    "coding_deletion",
	CategoryCodingInsertion:   "coding_insertion",
}

func (c Category) String() string {
	if c < 0 || int(c) >= len(categoryNames) {
		return categoryNames[CategoryUnknown]
	}
	return categoryNames[c]
}

// Result is the HGVS translation of a single variant token.
type Result struct {
	Gene     string
	HGVS     string
	Category Category
	// StrandAssumed is set when the gene had no strand annotation and the
	// forward strand was used for coordinate arithmetic.
	StrandAssumed bool
}

// Errors returned by Translate and Resolve.
var (
	ErrUnrecognizedToken = errors.New("unrecognized variant token")
	ErrMalformedResidue  = errors.New("malformed residue code")
	ErrAmbiguousDiff     = errors.New("reference and alternate do not differ by a single contiguous run")
)

// Translation status labels reported by Status.
const (
	StatusOK           = "ok"
	StatusUnrecognized = "unrecognized"
	StatusMalformed    = "malformed_residue"
	StatusAmbiguous    = "ambiguous_diff"
	StatusError        = "error"
)

// Status classifies the error returned by Translate.
func Status(err error) string {
	switch {
	case err == nil:
		return StatusOK
	case errors.Is(err, ErrMalformedResidue):
		return StatusMalformed
	case errors.Is(err, ErrAmbiguousDiff):
		return StatusAmbiguous
	case errors.Is(err, ErrUnrecognizedToken):
		return StatusUnrecognized
	default:
		return StatusError
	}
}
