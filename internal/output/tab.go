// Package output provides writers for translated catalogue variants.
package output

import (
	"bufio"
	"io"
	"strings"

	"github.com/MDU-PHL/who2tbp/internal/hgvs"
)

// TabWriter writes token translations in tab-delimited format.
type TabWriter struct {
	w       *bufio.Writer
	columns []string
}

// NewTabWriter creates a new tab-delimited writer.
func NewTabWriter(w io.Writer) *TabWriter {
	return &TabWriter{
		w: bufio.NewWriter(w),
		columns: []string{
			"#Token",
			"Gene",
			"HGVS",
			"Category",
			"Status",
		},
	}
}

// WriteHeader writes the header line.
func (tw *TabWriter) WriteHeader() error {
	_, err := tw.w.WriteString(strings.Join(tw.columns, "\t") + "\n")
	return err
}

// Write writes a single translation. Failed translations keep the token
// and report their status so no input is dropped.
func (tw *TabWriter) Write(token string, res hgvs.Result, err error) error {
	gene := "-"
	mutation := "-"
	category := "-"
	if err == nil {
		gene = res.Gene
		mutation = res.HGVS
		category = res.Category.String()
	}

	status := hgvs.Status(err)
	if res.StrandAssumed {
		status += ",strand_assumed"
	}

	values := []string{token, gene, mutation, category, status}
	_, werr := tw.w.WriteString(strings.Join(values, "\t") + "\n")
	return werr
}

// Flush flushes any buffered data to the underlying writer.
func (tw *TabWriter) Flush() error {
	return tw.w.Flush()
}
