package hgvs

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
)

// Regexes for the WHO change-spec sub-grammars. Nucleotide grammars are
// lowercase only; amino acid grammars are uppercase with '!' for stop.
var (
	// S450L, Q125!
	reAminoAcid = regexp.MustCompile(`^([A-Z])([0-9]{1,4})([A-Z!])$`)
	// g1484t
	reNonCodingRNA = regexp.MustCompile(`^([acgt])([0-9]{1,4})([acgt])$`)
	// g-37t
	rePromoterSNP = regexp.MustCompile(`^([acgt])(-[0-9]{1,3})([acgt])$`)
	// -14_del_2_cgg_c
	rePromoterDeletion = regexp.MustCompile(`^-([0-9]{1,3})_del_([0-9]{1,4})_([acgt]+)_([acgt]+)$`)
	// -60_ins_1_t_tg
	rePromoterInsertion = regexp.MustCompile(`^-([0-9]{1,3})_ins_([0-9]{1,4})_([acgt]+)_([acgt]+)$`)
	// 390_del_4_cacat_c
	reCodingDeletion = regexp.MustCompile(`^([0-9]{1,4})_del_([0-9]{1,2})_([acgt]+)_([acgt]+)$`)
	// 1296_ins_3_a_attc
	reCodingInsertion = regexp.MustCompile(`^([0-9]{1,4})_ins_([0-9]{1,3})_([acgt]+)_([acgt]+)$`)
)

// rule pairs a sub-grammar with the function that formats its HGVS string.
type rule struct {
	category Category
	re       *regexp.Regexp
	format   func(t *Translator, c *change, m []string) (string, error)
}

// rules are tried in order and the first match wins. Single-base
// substitutions come before the indel grammars.
var rules = []rule{
	{CategoryAminoAcid, reAminoAcid, (*Translator).formatAminoAcid},
	{CategoryNonCodingRNA, reNonCodingRNA, (*Translator).formatNonCodingRNA},
	{CategoryPromoterSNP, rePromoterSNP, (*Translator).formatPromoterSNP},
	{CategoryPromoterDeletion, rePromoterDeletion, (*Translator).formatPromoterDeletion},
	{CategoryPromoterInsertion, rePromoterInsertion, (*Translator).formatPromoterInsertion},
	{CategoryCodingDeletion, reCodingDeletion, (*Translator).formatCodingDeletion},
	{CategoryCodingInsertion, reCodingInsertion, (*Translator).formatCodingInsertion},
}

// change carries per-token state through a rule's format function.
type change struct {
	token         string
	gene          string
	strandAssumed bool
}

// Translator converts WHO variant tokens into HGVS notation.
// It is safe for concurrent use once configured.
type Translator struct {
	strands      StrandLookup
	logger       *zap.Logger
	strandMisses atomic.Int64
}

// NewTranslator creates a translator backed by the given strand lookup.
// A nil lookup treats every gene as unannotated.
func NewTranslator(strands StrandLookup) *Translator {
	return &Translator{
		strands: strands,
		logger:  zap.NewNop(),
	}
}

// SetLogger sets the logger for warning and debug messages.
func (t *Translator) SetLogger(l *zap.Logger) {
	t.logger = l
}

// StrandMisses returns how many strand-dependent translations fell back to
// the forward strand because the gene had no annotation.
func (t *Translator) StrandMisses() int64 {
	return t.strandMisses.Load()
}

// Translate converts a single token of the form <gene>_<change-spec>.
// Tokens that match no sub-grammar return an error wrapping
// ErrUnrecognizedToken.
func (t *Translator) Translate(token string) (Result, error) {
	gene, spec, ok := strings.Cut(token, "_")
	if !ok || gene == "" || spec == "" {
		return Result{}, fmt.Errorf("%w: %q", ErrUnrecognizedToken, token)
	}

	for _, r := range rules {
		m := r.re.FindStringSubmatch(spec)
		if m == nil {
			continue
		}
		c := &change{token: token, gene: gene}
		out, err := r.format(t, c, m)
		if err != nil {
			return Result{}, fmt.Errorf("translate %s: %w", token, err)
		}
		return Result{
			Gene:          gene,
			HGVS:          out,
			Category:      r.category,
			StrandAssumed: c.strandAssumed,
		}, nil
	}

	return Result{}, fmt.Errorf("%w: %q", ErrUnrecognizedToken, token)
}

// strand resolves the strand for a strand-dependent category, falling back
// to the forward strand when the gene is unannotated.
func (t *Translator) strand(c *change) Strand {
	if t.strands != nil {
		if s, ok := t.strands.Strand(c.gene); ok {
			return s
		}
	}
	t.strandMisses.Add(1)
	c.strandAssumed = true
	t.logger.Warn("no strand information for gene, assuming forward strand",
		zap.String("gene", c.gene),
		zap.String("token", c.token))
	return StrandForward
}

func (t *Translator) formatAminoAcid(_ *change, m []string) (string, error) {
	ref, ok := ResidueThree(m[1][0])
	if !ok {
		return "", fmt.Errorf("%w: reference %q", ErrMalformedResidue, m[1])
	}
	alt, ok := ResidueThree(m[3][0])
	if !ok {
		return "", fmt.Errorf("%w: alternate %q", ErrMalformedResidue, m[3])
	}
	return "p." + ref + m[2] + alt, nil
}

func (t *Translator) formatNonCodingRNA(_ *change, m []string) (string, error) {
	return fmt.Sprintf("r.%s%s>%s", m[2], m[1], m[3]), nil
}

func (t *Translator) formatPromoterSNP(_ *change, m []string) (string, error) {
	return fmt.Sprintf("c.%s%s>%s", m[2], strings.ToUpper(m[1]), strings.ToUpper(m[3])), nil
}

func (t *Translator) formatPromoterDeletion(c *change, m []string) (string, error) {
	anchor, length, err := indelFields(m)
	if err != nil {
		return "", err
	}
	d, err := Resolve(m[3], m[4], Deleted)
	if err != nil {
		return "", err
	}
	if len(d.Seq) != length {
		t.logger.Debug("declared deletion length differs from sequence diff",
			zap.String("token", c.token),
			zap.Int("declared", length),
			zap.Int("observed", len(d.Seq)))
	}

	start := anchor + d.Offset + 1
	end := start + length - 1
	if start == end {
		return fmt.Sprintf("c.-%ddel", start), nil
	}
	return fmt.Sprintf("c.-%d_-%ddel", start, end), nil
}

func (t *Translator) formatPromoterInsertion(_ *change, m []string) (string, error) {
	anchor, _, err := indelFields(m)
	if err != nil {
		return "", err
	}
	d, err := Resolve(m[3], m[4], Inserted)
	if err != nil {
		return "", err
	}
	start := anchor + d.Offset
	return fmt.Sprintf("c.-%d_-%dins%s", start, start+1, d.Seq), nil
}

// formatCodingDeletion places the deleted bases after the anchor on the
// forward strand and before it on the reverse strand.
func (t *Translator) formatCodingDeletion(c *change, m []string) (string, error) {
	anchor, length, err := indelFields(m)
	if err != nil {
		return "", err
	}

	var start, end int
	if t.strand(c) == StrandReverse {
		start = anchor - length
		end = anchor - 1
	} else {
		start = anchor + 1
		end = anchor + length
	}
	if start == end {
		return fmt.Sprintf("c.%ddel", start), nil
	}
	return fmt.Sprintf("c.%d_%ddel", start, end), nil
}

func (t *Translator) formatCodingInsertion(c *change, m []string) (string, error) {
	anchor, _, err := indelFields(m)
	if err != nil {
		return "", err
	}
	d, err := Resolve(m[3], m[4], Inserted)
	if err != nil {
		return "", err
	}

	var start, end int
	if t.strand(c) == StrandReverse {
		end = anchor - d.Offset
		start = end - 1
	} else {
		start = anchor + d.Offset
		end = start + 1
	}
	return fmt.Sprintf("c.%d_%dins%s", start, end, d.Seq), nil
}

// indelFields parses the anchor position and declared length shared by the
// four indel grammars.
func indelFields(m []string) (anchor, length int, err error) {
	anchor, err = strconv.Atoi(m[1])
	if err != nil {
		return 0, 0, fmt.Errorf("parse anchor position: %w", err)
	}
	length, err = strconv.Atoi(m[2])
	if err != nil {
		return 0, 0, fmt.Errorf("parse indel length: %w", err)
	}
	if length < 1 {
		return 0, 0, fmt.Errorf("%w: zero-length indel", ErrUnrecognizedToken)
	}
	return anchor, length, nil
}
