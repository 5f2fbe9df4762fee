package output

import (
	"fmt"
	"io"

	"github.com/MDU-PHL/who2tbp/internal/hgvs"
)

// Failure records a token that could not be translated.
type Failure struct {
	Row    int
	Token  string
	Status string
	Err    error
}

// Summary tallies translation outcomes for a batch.
type Summary struct {
	Total         int
	Translated    int
	Unrecognized  int
	Malformed     int
	Ambiguous     int
	Errors        int
	StrandAssumed int
	Failures      []Failure
}

// Add records the outcome of one translation. row is the source row number
// used when reporting failures.
func (s *Summary) Add(row int, token string, res hgvs.Result, err error) {
	s.Total++
	if err == nil {
		s.Translated++
		if res.StrandAssumed {
			s.StrandAssumed++
		}
		return
	}

	status := hgvs.Status(err)
	switch status {
	case hgvs.StatusUnrecognized:
		s.Unrecognized++
	case hgvs.StatusMalformed:
		s.Malformed++
	case hgvs.StatusAmbiguous:
		s.Ambiguous++
	default:
		s.Errors++
	}
	s.Failures = append(s.Failures, Failure{Row: row, Token: token, Status: status, Err: err})
}

// Failed returns the number of tokens that produced no translation.
func (s *Summary) Failed() int {
	return s.Total - s.Translated
}

// WriteSummary writes a summary of the translation results.
func (s *Summary) WriteSummary(w io.Writer) {
	rate := float64(0)
	if s.Total > 0 {
		rate = float64(s.Translated) / float64(s.Total) * 100
	}
	fmt.Fprintf(w, "\nTranslation Summary:\n")
	fmt.Fprintf(w, "  Total variants:     %d\n", s.Total)
	fmt.Fprintf(w, "  Translated:         %d (%.1f%%)\n", s.Translated, rate)
	fmt.Fprintf(w, "  Unrecognized:       %d\n", s.Unrecognized)
	fmt.Fprintf(w, "  Malformed residue:  %d\n", s.Malformed)
	fmt.Fprintf(w, "  Ambiguous indel:    %d\n", s.Ambiguous)
	if s.Errors > 0 {
		fmt.Fprintf(w, "  Other errors:       %d\n", s.Errors)
	}
	if s.StrandAssumed > 0 {
		fmt.Fprintf(w, "  Strand assumed (+): %d\n", s.StrandAssumed)
	}
}
