package duckdb

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MDU-PHL/who2tbp/internal/catalogue"
	"github.com/MDU-PHL/who2tbp/internal/hgvs"
)

func openInMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open("")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testTranslations(t *testing.T) []Translation {
	t.Helper()
	tr := hgvs.NewTranslator(nil)
	rows := []*catalogue.Row{
		{Num: 2, Drug: "Rifampicin", Variant: "rpoB_S450L", Confidence: "1) Assoc w R"},
		{Num: 3, Drug: "Rifampicin", Variant: "rpoB_1296_ins_3_a_attc", Confidence: "1) Assoc w R"},
		{Num: 4, Drug: "Isoniazid", Variant: "katG_S315T", Confidence: "1) Assoc w R"},
		{Num: 5, Drug: "Pyrazinamide", Variant: "pncA_LoF", Confidence: "1) Assoc w R"},
	}
	var out []Translation
	for _, r := range rows {
		res, err := tr.Translate(r.Variant)
		out = append(out, NewTranslation(r, res, err))
	}
	return out
}

func TestOpenClose(t *testing.T) {
	s := openInMemory(t)
	assert.NotNil(t, s.DB())
	assert.Empty(t, s.Path())
}

func TestOpen_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "who2tbp.duckdb")
	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(filepath.Dir(path))
	assert.NoError(t, err)
}

func TestNewTranslation(t *testing.T) {
	ts := testTranslations(t)

	assert.Equal(t, "rpoB", ts[0].Gene)
	assert.Equal(t, "p.Ser450Leu", ts[0].HGVS)
	assert.Equal(t, "amino_acid", ts[0].Category)
	assert.Equal(t, hgvs.StatusOK, ts[0].Status)
	assert.Empty(t, ts[0].Message)

	assert.Equal(t, hgvs.StatusUnrecognized, ts[3].Status)
	assert.Empty(t, ts[3].Gene)
	assert.Contains(t, ts[3].Message, "pncA_LoF")
}

func TestWriteAndLookupTranslations(t *testing.T) {
	s := openInMemory(t)
	ctx := context.Background()

	require.NoError(t, s.WriteTranslations(ctx, testTranslations(t)))

	n, err := s.TranslationCount()
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	got, err := s.LookupToken("rpoB_1296_ins_3_a_attc")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "c.1296_1297insTTC", got[0].HGVS)
	assert.Equal(t, "coding_insertion", got[0].Category)
	assert.Equal(t, 3, got[0].Row)

	got, err = s.LookupToken("rpoB_S999L")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestWriteTranslations_Upsert(t *testing.T) {
	s := openInMemory(t)
	ctx := context.Background()

	ts := testTranslations(t)
	require.NoError(t, s.WriteTranslations(ctx, ts))

	// Rewriting replaces rows with the same (token, drug) key.
	ts[0].Confidence = "2) Assoc w R - Interim"
	require.NoError(t, s.WriteTranslations(ctx, ts[:1]))

	n, err := s.TranslationCount()
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	got, err := s.LookupToken("rpoB_S450L")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "2) Assoc w R - Interim", got[0].Confidence)
}

func TestWriteTranslations_DedupWithinBatch(t *testing.T) {
	s := openInMemory(t)

	ts := testTranslations(t)
	dup := ts[2]
	dup.Row = 99
	require.NoError(t, s.WriteTranslations(context.Background(), append(ts, dup)))

	got, err := s.LookupToken("katG_S315T")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 99, got[0].Row)
}

func TestWriteTranslations_Empty(t *testing.T) {
	s := openInMemory(t)
	assert.NoError(t, s.WriteTranslations(context.Background(), nil))
}

func TestSearchByGeneAndStatus(t *testing.T) {
	s := openInMemory(t)
	require.NoError(t, s.WriteTranslations(context.Background(), testTranslations(t)))

	got, err := s.SearchByGene("rpoB")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "rpoB_S450L", got[0].Token)
	assert.Equal(t, "rpoB_1296_ins_3_a_attc", got[1].Token)

	got, err = s.SearchByStatus(hgvs.StatusUnrecognized)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "pncA_LoF", got[0].Token)
}

func TestClearTranslations(t *testing.T) {
	s := openInMemory(t)
	require.NoError(t, s.WriteTranslations(context.Background(), testTranslations(t)))
	require.NoError(t, s.ClearTranslations())

	n, err := s.TranslationCount()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSourceFingerprint(t *testing.T) {
	s := openInMemory(t)

	path := filepath.Join(t.TempDir(), "catalogue.csv")
	require.NoError(t, os.WriteFile(path, []byte("drug\n"), 0644))
	fp, err := StatFile(path)
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(fp.Path))

	loaded, err := s.SourceLoaded(fp, "assoc_resistance")
	require.NoError(t, err)
	assert.False(t, loaded)

	require.NoError(t, s.RecordSource(fp, "assoc_resistance"))
	loaded, err = s.SourceLoaded(fp, "assoc_resistance")
	require.NoError(t, err)
	assert.True(t, loaded)

	// A different filter is a different load.
	loaded, err = s.SourceLoaded(fp, "all")
	require.NoError(t, err)
	assert.False(t, loaded)

	// A modified file no longer matches.
	later := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(path, later, later))
	fp2, err := StatFile(path)
	require.NoError(t, err)
	loaded, err = s.SourceLoaded(fp2, "assoc_resistance")
	require.NoError(t, err)
	assert.False(t, loaded, fmt.Sprintf("mod time %v should not match", fp2.ModTime))
}

func TestStatFile_Missing(t *testing.T) {
	_, err := StatFile(filepath.Join(t.TempDir(), "missing"))
	assert.True(t, os.IsNotExist(err))
}
