package duckdb

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// FileFingerprint holds stat-based identity for a file.
type FileFingerprint struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// StatFile creates a FileFingerprint from an on-disk file.
// The path is made absolute so the same file always matches.
func StatFile(path string) (FileFingerprint, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileFingerprint{}, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return FileFingerprint{
		Path:    abs,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}

func (fp FileFingerprint) modTime() string {
	return fp.ModTime.UTC().Format(time.RFC3339Nano)
}

// RecordSource marks a catalogue file as loaded with the given filter.
func (s *Store) RecordSource(fp FileFingerprint, filter string) error {
	_, err := s.db.Exec(`INSERT OR REPLACE INTO sources (path, size, mod_time, filter, loaded_at)
		VALUES (?, ?, ?, ?, ?)`,
		fp.Path, fp.Size, fp.modTime(), filter, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("record source: %w", err)
	}
	return nil
}

// SourceLoaded reports whether the file, unchanged since it was recorded,
// has already been loaded with the given filter.
func (s *Store) SourceLoaded(fp FileFingerprint, filter string) (bool, error) {
	var n int
	err := s.db.QueryRow(`SELECT count(*) FROM sources
		WHERE path=? AND size=? AND mod_time=? AND filter=?`,
		fp.Path, fp.Size, fp.modTime(), filter).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("query source: %w", err)
	}
	return n > 0, nil
}
