// Package catalogue reads the WHO M. tuberculosis mutation catalogue and
// filters its rows by confidence grading.
package catalogue

import (
	"fmt"
	"sort"
	"strings"
)

// SheetName is the worksheet holding the mutation catalogue.
const SheetName = "Mutation_catalogue"

// Catalogue column names
const (
	ColDrug           = "drug"
	ColVariant        = "variant (common_name)"
	ColGenomePosition = "Genome position"
	ColConfidence     = "FINAL CONFIDENCE GRADING"
)

// Filter selects catalogue rows by confidence grading.
type Filter string

const (
	FilterAssocResistance        Filter = "assoc_resistance"
	FilterAssocResistanceInterim Filter = "assoc_resistance_interim"
	FilterUncertainSignificance  Filter = "uncert_signif"
	FilterNoAssocInterim         Filter = "no_assoc_interim"
	FilterNoAssoc                Filter = "no_assoc"
	FilterCombo                  Filter = "combo"
	FilterAll                    Filter = "all"
)

// DefaultFilter keeps only variants graded as associated with resistance.
const DefaultFilter = FilterAssocResistance

var gradings = map[Filter]string{
	FilterAssocResistance:        "1) Assoc w R",
	FilterAssocResistanceInterim: "2) Assoc w R - Interim",
	FilterUncertainSignificance:  "3) Uncertain significance",
	FilterNoAssocInterim:         "4) Not assoc w R - Interim",
	FilterNoAssoc:                "5) Not assoc w R",
	FilterCombo:                  "combo",
}

// FilterNames returns every accepted filter name, sorted.
func FilterNames() []string {
	names := make([]string, 0, len(gradings)+1)
	for f := range gradings {
		names = append(names, string(f))
	}
	names = append(names, string(FilterAll))
	sort.Strings(names)
	return names
}

// ParseFilter validates a filter name.
func ParseFilter(name string) (Filter, error) {
	f := Filter(name)
	if f == FilterAll {
		return f, nil
	}
	if _, ok := gradings[f]; !ok {
		return "", fmt.Errorf("unknown filter %q (expected one of %s)", name, strings.Join(FilterNames(), ", "))
	}
	return f, nil
}

// Match reports whether a confidence grading passes the filter.
func (f Filter) Match(grading string) bool {
	if f == FilterAll {
		for _, g := range gradings {
			if g == grading {
				return true
			}
		}
		return false
	}
	return gradings[f] == grading
}

// Row is a single catalogue entry.
type Row struct {
	Num            int // 1-based spreadsheet row, header is row 1
	Drug           string
	Variant        string
	GenomePosition string
	Confidence     string
}

// ColumnIndices holds the indices of the catalogue columns.
type ColumnIndices struct {
	Drug           int
	Variant        int
	GenomePosition int
	Confidence     int
}

// ParseError reports a structural problem with the catalogue.
type ParseError struct {
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("catalogue parse error at row %d: %s", e.Line, e.Message)
}

// parseColumnIndices locates the required columns in the header row.
func parseColumnIndices(header []string) (ColumnIndices, error) {
	cols := ColumnIndices{Drug: -1, Variant: -1, GenomePosition: -1, Confidence: -1}

	for i, col := range header {
		switch strings.TrimSpace(col) {
		case ColDrug:
			cols.Drug = i
		case ColVariant:
			cols.Variant = i
		case ColGenomePosition:
			cols.GenomePosition = i
		case ColConfidence:
			cols.Confidence = i
		}
	}

	var missing []string
	if cols.Drug < 0 {
		missing = append(missing, ColDrug)
	}
	if cols.Variant < 0 {
		missing = append(missing, ColVariant)
	}
	if cols.GenomePosition < 0 {
		missing = append(missing, ColGenomePosition)
	}
	if cols.Confidence < 0 {
		missing = append(missing, ColConfidence)
	}
	if len(missing) > 0 {
		return cols, &ParseError{Line: 1, Message: "missing required columns: " + strings.Join(missing, ", ")}
	}
	return cols, nil
}

// cell returns the trimmed value at idx, or "" when the row is short.
// Spreadsheet readers drop trailing empty cells.
func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// collector applies the filter to raw spreadsheet rows.
type collector struct {
	cols   ColumnIndices
	filter Filter
	rows   []*Row
	total  int
}

func newCollector(header []string, filter Filter) (*collector, error) {
	cols, err := parseColumnIndices(header)
	if err != nil {
		return nil, err
	}
	return &collector{cols: cols, filter: filter}, nil
}

// addRaw records a spreadsheet row; num is its 1-based row number.
func (c *collector) addRaw(num int, raw []string) {
	c.add(&Row{
		Num:            num,
		Drug:           cell(raw, c.cols.Drug),
		Variant:        cell(raw, c.cols.Variant),
		GenomePosition: cell(raw, c.cols.GenomePosition),
		Confidence:     cell(raw, c.cols.Confidence),
	})
}

func (c *collector) add(r *Row) {
	c.total++
	if !c.filter.Match(r.Confidence) {
		return
	}
	c.rows = append(c.rows, r)
}

func (c *collector) catalogue(source string) *Catalogue {
	return &Catalogue{Source: source, Filter: c.filter, Rows: c.rows, Total: c.total}
}
