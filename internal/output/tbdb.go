package output

import (
	"encoding/csv"
	"io"
	"strings"

	"github.com/gocarina/gocsv"

	"github.com/MDU-PHL/who2tbp/internal/catalogue"
	"github.com/MDU-PHL/who2tbp/internal/hgvs"
)

// SourceWHO is the Source value written for every catalogue-derived row.
const SourceWHO = "WHO catalogue"

// CommentStrandAssumed flags rows whose coordinates used the forward strand
// because the gene had no strand annotation.
const CommentStrandAssumed = "strand assumed +"

// TBDBRecord is one row of a TBProfiler mutation database CSV.
type TBDBRecord struct {
	Gene       string `csv:"Gene"`
	Mutation   string `csv:"Mutation"`
	Drug       string `csv:"Drug"`
	Confidence string `csv:"Confidence"`
	Source     string `csv:"Source"`
	Comment    string `csv:"Comment"`
}

// TBDBColumns is the TBProfiler CSV header.
var TBDBColumns = []string{"Gene", "Mutation", "Drug", "Confidence", "Source", "Comment"}

// NewTBDBRecord builds the database row for a translated catalogue entry.
func NewTBDBRecord(row *catalogue.Row, res hgvs.Result) *TBDBRecord {
	rec := &TBDBRecord{
		Gene:       res.Gene,
		Mutation:   res.HGVS,
		Drug:       strings.ToLower(row.Drug),
		Confidence: row.Confidence,
		Source:     SourceWHO,
	}
	if res.StrandAssumed {
		rec.Comment = CommentStrandAssumed
	}
	return rec
}

// TBDBWriter writes translated catalogue rows as TBProfiler CSV.
type TBDBWriter struct {
	csv *gocsv.SafeCSVWriter
}

// NewTBDBWriter creates a new TBProfiler CSV writer.
func NewTBDBWriter(w io.Writer) *TBDBWriter {
	return &TBDBWriter{csv: gocsv.NewSafeCSVWriter(csv.NewWriter(w))}
}

// WriteHeader writes the header line.
func (tw *TBDBWriter) WriteHeader() error {
	return tw.csv.Write(TBDBColumns)
}

// Write writes a single translated row.
func (tw *TBDBWriter) Write(row *catalogue.Row, res hgvs.Result) error {
	return gocsv.MarshalCSVWithoutHeaders([]*TBDBRecord{NewTBDBRecord(row, res)}, tw.csv)
}

// Flush flushes any buffered data to the underlying writer.
func (tw *TBDBWriter) Flush() error {
	tw.csv.Flush()
	return tw.csv.Error()
}
