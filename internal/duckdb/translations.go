package duckdb

import (
	"context"
	"database/sql/driver"
	"fmt"

	goduckdb "github.com/marcboeker/go-duckdb"

	"github.com/MDU-PHL/who2tbp/internal/catalogue"
	"github.com/MDU-PHL/who2tbp/internal/hgvs"
)

// Translation is one stored catalogue translation.
type Translation struct {
	Token      string
	Drug       string
	Gene       string
	HGVS       string
	Category   string
	Confidence string
	Status     string
	Message    string
	Row        int
}

// NewTranslation builds the stored form of one catalogue row's translation.
func NewTranslation(row *catalogue.Row, res hgvs.Result, err error) Translation {
	t := Translation{
		Token:      row.Variant,
		Drug:       row.Drug,
		Confidence: row.Confidence,
		Status:     hgvs.Status(err),
		Row:        row.Num,
	}
	if err != nil {
		t.Message = err.Error()
		return t
	}
	t.Gene = res.Gene
	t.HGVS = res.HGVS
	t.Category = res.Category.String()
	return t
}

// translationKey is the composite key for deduplicating before writing.
type translationKey struct {
	token, drug string
}

// WriteTranslations batch-upserts translations using the Appender API.
// Duplicate (token, drug) entries keep the last occurrence.
func (s *Store) WriteTranslations(ctx context.Context, translations []Translation) error {
	if len(translations) == 0 {
		return nil
	}

	index := make(map[translationKey]int, len(translations))
	deduped := make([]Translation, 0, len(translations))
	for _, t := range translations {
		k := translationKey{t.Token, t.Drug}
		if i, ok := index[k]; ok {
			deduped[i] = t
			continue
		}
		index[k] = len(deduped)
		deduped = append(deduped, t)
	}

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "DELETE FROM translations_staging"); err != nil {
		return fmt.Errorf("reset staging: %w", err)
	}

	var appender *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", "translations_staging")
		return err
	}); err != nil {
		return fmt.Errorf("create appender: %w", err)
	}

	for _, t := range deduped {
		if err := appender.AppendRow(
			t.Token, t.Drug, t.Gene, t.HGVS, t.Category,
			t.Confidence, t.Status, t.Message, int64(t.Row),
		); err != nil {
			appender.Close()
			return fmt.Errorf("append translation: %w", err)
		}
	}
	if err := appender.Close(); err != nil {
		return fmt.Errorf("flush appender: %w", err)
	}

	if _, err := conn.ExecContext(ctx, "INSERT OR REPLACE INTO translations SELECT * FROM translations_staging"); err != nil {
		return fmt.Errorf("merge translations: %w", err)
	}
	if _, err := conn.ExecContext(ctx, "DELETE FROM translations_staging"); err != nil {
		return fmt.Errorf("reset staging: %w", err)
	}
	return nil
}

// ClearTranslations removes all stored translations and source records.
func (s *Store) ClearTranslations() error {
	if _, err := s.db.Exec("DELETE FROM translations"); err != nil {
		return err
	}
	_, err := s.db.Exec("DELETE FROM sources")
	return err
}

// TranslationCount returns the number of stored translations.
func (s *Store) TranslationCount() (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT count(*) FROM translations").Scan(&n); err != nil {
		return 0, fmt.Errorf("count translations: %w", err)
	}
	return n, nil
}

const selectTranslations = `SELECT
		token, drug, gene, hgvs, category, confidence, status, message, row_num
		FROM translations`

// LookupToken returns stored translations of a catalogue token, one per drug.
func (s *Store) LookupToken(token string) ([]Translation, error) {
	rows, err := s.db.Query(selectTranslations+` WHERE token=? ORDER BY drug`, token)
	if err != nil {
		return nil, fmt.Errorf("query token: %w", err)
	}
	defer rows.Close()

	return scanTranslations(rows)
}

// SearchByGene returns stored translations for a gene in source row order.
func (s *Store) SearchByGene(gene string) ([]Translation, error) {
	rows, err := s.db.Query(selectTranslations+` WHERE gene=? ORDER BY row_num, drug`, gene)
	if err != nil {
		return nil, fmt.Errorf("query by gene: %w", err)
	}
	defer rows.Close()

	return scanTranslations(rows)
}

// SearchByStatus returns stored translations with the given status, such
// as "unrecognized".
func (s *Store) SearchByStatus(status string) ([]Translation, error) {
	rows, err := s.db.Query(selectTranslations+` WHERE status=? ORDER BY row_num, drug`, status)
	if err != nil {
		return nil, fmt.Errorf("query by status: %w", err)
	}
	defer rows.Close()

	return scanTranslations(rows)
}

// scanTranslations scans rows into Translation slices.
func scanTranslations(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) ([]Translation, error) {
	var results []Translation
	for rows.Next() {
		var t Translation
		if err := rows.Scan(
			&t.Token, &t.Drug, &t.Gene, &t.HGVS, &t.Category,
			&t.Confidence, &t.Status, &t.Message, &t.Row,
		); err != nil {
			return nil, fmt.Errorf("scan translation: %w", err)
		}
		results = append(results, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate translations: %w", err)
	}
	return results, nil
}
