package output

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/MDU-PHL/who2tbp/internal/duckdb"
)

// StoredWriter writes translations read back from the result store in
// tab-delimited format.
type StoredWriter struct {
	w       *bufio.Writer
	columns []string
}

// NewStoredWriter creates a new tab-delimited writer for stored translations.
func NewStoredWriter(w io.Writer) *StoredWriter {
	return &StoredWriter{
		w: bufio.NewWriter(w),
		columns: []string{
			"#Token",
			"Drug",
			"Gene",
			"HGVS",
			"Category",
			"Confidence",
			"Status",
			"Row",
		},
	}
}

// WriteHeader writes the header line.
func (sw *StoredWriter) WriteHeader() error {
	_, err := sw.w.WriteString(strings.Join(sw.columns, "\t") + "\n")
	return err
}

// Write writes a single stored translation. Fields left empty by a failed
// translation are written as "-".
func (sw *StoredWriter) Write(t duckdb.Translation) error {
	values := []string{
		t.Token,
		t.Drug,
		orDash(t.Gene),
		orDash(t.HGVS),
		orDash(t.Category),
		t.Confidence,
		t.Status,
		strconv.Itoa(t.Row),
	}
	_, err := sw.w.WriteString(strings.Join(values, "\t") + "\n")
	return err
}

// Flush flushes any buffered data to the underlying writer.
func (sw *StoredWriter) Flush() error {
	return sw.w.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
