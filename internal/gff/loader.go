// Package gff loads gene strand annotations from GFF3 files.
package gff

import (
	"bufio"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
	"go.uber.org/zap"

	"github.com/MDU-PHL/who2tbp/internal/hgvs"
)

// DefaultFeatureTypes are the GFF feature types whose Name attribute is
// recorded. rRNA_gene covers rrs and rrl in the H37Rv annotation.
var DefaultFeatureTypes = []string{"gene", "rRNA_gene"}

// StrandMap maps gene names to their strand. It is read-only after loading.
type StrandMap map[string]hgvs.Strand

// Strand implements hgvs.StrandLookup.
func (m StrandMap) Strand(gene string) (hgvs.Strand, bool) {
	s, ok := m[gene]
	return s, ok
}

// Loader reads a GFF3 file into a StrandMap.
type Loader struct {
	path         string
	featureTypes map[string]bool
	logger       *zap.Logger
	skipped      int
}

// NewLoader creates a loader for the GFF3 file at path.
// Gzipped files are detected by their magic bytes.
func NewLoader(path string) *Loader {
	l := &Loader{path: path, logger: zap.NewNop()}
	l.SetFeatureTypes(DefaultFeatureTypes)
	return l
}

// SetFeatureTypes replaces the feature types whose strand is recorded.
func (l *Loader) SetFeatureTypes(types []string) {
	l.featureTypes = make(map[string]bool, len(types))
	for _, t := range types {
		l.featureTypes[t] = true
	}
}

// SetLogger sets the logger for info messages.
func (l *Loader) SetLogger(logger *zap.Logger) {
	l.logger = logger
}

// Skipped returns the number of malformed lines skipped by the last load.
func (l *Loader) Skipped() int {
	return l.skipped
}

// Load opens the GFF file and parses it.
func (l *Loader) Load() (StrandMap, error) {
	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("open GFF file: %w", err)
	}
	defer f.Close()

	br := bufio.NewReader(f)
	var reader io.Reader = br

	// Check for gzip magic number (0x1f, 0x8b)
	if magic, err := br.Peek(2); err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("open gzip reader: %w", err)
		}
		defer gz.Close()
		reader = gz
	}

	strands, err := l.Parse(reader)
	if err != nil {
		return nil, err
	}

	l.logger.Info("loaded gene strands",
		zap.String("path", l.path),
		zap.Int("genes", len(strands)),
		zap.Int("skipped_lines", l.skipped))
	return strands, nil
}

// Parse reads GFF3 content and returns the strand of every named feature
// of a recorded type. When a name appears more than once the last entry wins.
func (l *Loader) Parse(reader io.Reader) (StrandMap, error) {
	scanner := bufio.NewScanner(reader)
	// Increase buffer size for long lines
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	strands := make(StrandMap)
	l.skipped = 0

	for scanner.Scan() {
		line := scanner.Text()

		// Embedded sequence follows; no more features.
		if strings.HasPrefix(line, "##FASTA") {
			break
		}
		if strings.HasPrefix(line, "#") || line == "" {
			continue
		}

		fields := strings.Split(line, "\t")
		if len(fields) < 9 {
			l.skipped++
			continue
		}

		if !l.featureTypes[fields[2]] {
			continue
		}

		strand, ok := hgvs.ParseStrand(fields[6])
		if !ok {
			l.skipped++
			continue
		}

		name := parseAttributes(fields[8])["Name"]
		if name == "" {
			continue
		}
		strands[name] = strand
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan GFF: %w", err)
	}

	return strands, nil
}

// Load is a convenience wrapper for NewLoader(path).Load().
func Load(path string) (StrandMap, error) {
	return NewLoader(path).Load()
}

// parseAttributes parses the GFF3 attribute column.
// Format: key=value;key=value with percent-encoded reserved characters.
func parseAttributes(attrStr string) map[string]string {
	attrs := make(map[string]string)

	for _, part := range strings.Split(attrStr, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		key, value, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}

		if decoded, err := url.PathUnescape(value); err == nil {
			value = decoded
		}
		attrs[key] = value
	}

	return attrs
}
