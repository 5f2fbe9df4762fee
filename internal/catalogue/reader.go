package catalogue

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/csimplestring/go-csv/detector"
	"github.com/extrame/xls"
	"github.com/gocarina/gocsv"
	"github.com/xuri/excelize/v2"
)

// Catalogue holds the filtered rows of one catalogue file.
type Catalogue struct {
	Source string
	Filter Filter
	Rows   []*Row
	Total  int // data rows before filtering
}

// ReadFile reads the catalogue at path, choosing a reader by extension:
// .xlsx (Office Open XML), .xls (BIFF), anything else as delimited text.
// Use "-" to read delimited text from stdin.
func ReadFile(path string, filter Filter) (*Catalogue, error) {
	if path == "-" {
		return ReadDelimited(os.Stdin, filter)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return readXLSX(path, filter)
	case ".xls":
		return readXLS(path, filter)
	default:
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open catalogue: %w", err)
		}
		defer f.Close()
		c, err := readDelimited(f, filter, extensionDelimiter(path))
		if err != nil {
			return nil, err
		}
		c.Source = path
		return c, nil
	}
}

// csvRecord maps the catalogue columns used by the translator.
type csvRecord struct {
	Drug           string `csv:"drug"`
	Variant        string `csv:"variant (common_name)"`
	GenomePosition string `csv:"Genome position"`
	Confidence     string `csv:"FINAL CONFIDENCE GRADING"`
}

// ReadDelimited reads a catalogue exported as CSV or TSV. The delimiter is
// detected from the content.
func ReadDelimited(r io.Reader, filter Filter) (*Catalogue, error) {
	return readDelimited(r, filter, 0)
}

// readDelimited reads delimited text; a zero comma means detect it.
func readDelimited(r io.Reader, filter Filter, comma rune) (*Catalogue, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read catalogue: %w", err)
	}

	if comma == 0 {
		comma = detectDelimiter(data)
	}
	newReader := func() *csv.Reader {
		cr := csv.NewReader(bytes.NewReader(data))
		cr.Comma = comma
		cr.LazyQuotes = true
		cr.FieldsPerRecord = -1
		return cr
	}

	header, err := newReader().Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &ParseError{Line: 1, Message: "no header row found"}
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	c, err := newCollector(header, filter)
	if err != nil {
		return nil, err
	}

	var records []*csvRecord
	if err := gocsv.UnmarshalCSV(newReader(), &records); err != nil {
		return nil, fmt.Errorf("parse catalogue: %w", err)
	}

	for i, rec := range records {
		c.add(&Row{
			Num:            i + 2,
			Drug:           strings.TrimSpace(rec.Drug),
			Variant:        strings.TrimSpace(rec.Variant),
			GenomePosition: strings.TrimSpace(rec.GenomePosition),
			Confidence:     strings.TrimSpace(rec.Confidence),
		})
	}

	return c.catalogue(""), nil
}

// extensionDelimiter returns the delimiter implied by a file extension,
// or 0 when it must be detected.
func extensionDelimiter(path string) rune {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return ','
	case ".tsv", ".tab":
		return '\t'
	}
	return 0
}

// preferredDelimiters break ties between detected candidates. Grading
// values such as "1) Assoc w R" make ')' look like a delimiter too.
var preferredDelimiters = []string{"\t", ",", ";", "|"}

// detectDelimiter returns the most likely delimiter, defaulting to comma.
func detectDelimiter(data []byte) rune {
	d := detector.New()
	delimiters := d.DetectDelimiter(bytes.NewReader(data), '"')

	for _, pref := range preferredDelimiters {
		for _, got := range delimiters {
			if got == pref {
				return rune(pref[0])
			}
		}
	}
	if len(delimiters) > 0 && delimiters[0] != "" {
		return rune(delimiters[0][0])
	}
	return ','
}

func readXLSX(path string, filter Filter) (*Catalogue, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open xlsx catalogue: %w", err)
	}
	defer f.Close()

	rows, err := f.Rows(SheetName)
	if err != nil {
		return nil, fmt.Errorf("open sheet %s: %w", SheetName, err)
	}
	defer rows.Close()

	var c *collector
	num := 0
	for rows.Next() {
		num++
		raw, err := rows.Columns()
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", num, err)
		}
		if c == nil {
			if c, err = newCollector(raw, filter); err != nil {
				return nil, err
			}
			continue
		}
		c.addRaw(num, raw)
	}
	if err := rows.Error(); err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", SheetName, err)
	}
	if c == nil {
		return nil, &ParseError{Line: 1, Message: "no header row found"}
	}

	return c.catalogue(path), nil
}

func readXLS(path string, filter Filter) (*Catalogue, error) {
	wb, err := xls.Open(path, "utf-8")
	if err != nil {
		return nil, fmt.Errorf("open xls catalogue: %w", err)
	}

	var sheet *xls.WorkSheet
	for i := 0; i < wb.NumSheets(); i++ {
		if s := wb.GetSheet(i); s != nil && s.Name == SheetName {
			sheet = s
			break
		}
	}
	if sheet == nil {
		return nil, fmt.Errorf("sheet %s not found in %s", SheetName, path)
	}

	var c *collector
	for rowID := 0; rowID <= int(sheet.MaxRow); rowID++ {
		row := sheet.Row(rowID)
		if row == nil {
			continue
		}
		raw := make([]string, row.LastCol()+1)
		for colID := range raw {
			raw[colID] = row.Col(colID)
		}
		if c == nil {
			if c, err = newCollector(raw, filter); err != nil {
				return nil, err
			}
			continue
		}
		c.addRaw(rowID+1, raw)
	}
	if c == nil {
		return nil, &ParseError{Line: 1, Message: "no header row found"}
	}

	return c.catalogue(path), nil
}
