package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testGFF = `##gff-version 3
NC_000962.3	RefSeq	gene	759807	763325	.	+	.	ID=gene-Rv0667;Name=rpoB
NC_000962.3	RefSeq	gene	2153889	2156111	.	-	.	ID=gene-Rv1908c;Name=katG
NC_000962.3	RefSeq	gene	2288681	2289241	.	-	.	ID=gene-Rv2043c;Name=pncA
`

const testCatalogue = `drug,variant (common_name),Genome position,FINAL CONFIDENCE GRADING
Rifampicin,rpoB_S450L,761155,1) Assoc w R
Isoniazid,katG_S315T,2155168,1) Assoc w R
Pyrazinamide,pncA_390_del_4_cacat_c,2288851,1) Assoc w R
Pyrazinamide,pncA_LoF,,1) Assoc w R
Ethambutol,embB_M306V,4247429,2) Assoc w R - Interim
`

// setup isolates each test from the user's config and writes fixtures.
func setup(t *testing.T) (gffPath, cataloguePath string) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	t.Setenv("HOME", dir)

	gffPath = filepath.Join(dir, "H37Rv.gff3")
	cataloguePath = filepath.Join(dir, "catalogue.csv")
	require.NoError(t, os.WriteFile(gffPath, []byte(testGFF), 0644))
	require.NoError(t, os.WriteFile(cataloguePath, []byte(testCatalogue), 0644))
	return gffPath, cataloguePath
}

func execute(t *testing.T, stdin string, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := newRootCmd()
	root.SetArgs(args)
	root.SetIn(strings.NewReader(stdin))
	root.SetOut(&out)
	root.SetErr(&errOut)
	err = root.Execute()
	return out.String(), errOut.String(), err
}

func TestConvert(t *testing.T) {
	gffPath, cataloguePath := setup(t)

	stdout, stderr, err := execute(t, "", "convert", "--gff", gffPath, cataloguePath)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "Gene,Mutation,Drug,Confidence,Source,Comment", lines[0])
	assert.Equal(t, "rpoB,p.Ser450Leu,rifampicin,1) Assoc w R,WHO catalogue,", lines[1])
	assert.Equal(t, "katG,p.Ser315Thr,isoniazid,1) Assoc w R,WHO catalogue,", lines[2])
	assert.Equal(t, "pncA,c.386_389del,pyrazinamide,1) Assoc w R,WHO catalogue,", lines[3])

	assert.Contains(t, stderr, "Total variants:     4")
	assert.Contains(t, stderr, "Unrecognized:       1")
}

func TestConvert_FilterAllToFile(t *testing.T) {
	gffPath, cataloguePath := setup(t)
	outPath := filepath.Join(t.TempDir(), "tbdb.csv")

	_, _, err := execute(t, "", "convert", "--gff", gffPath, "-f", "all", "-o", outPath, "--workers", "2", cataloguePath)
	require.NoError(t, err)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "embB,p.Met306Val,ethambutol,2) Assoc w R - Interim,WHO catalogue,")
}

func TestConvert_StrandAssumedComment(t *testing.T) {
	gffPath, _ := setup(t)
	cataloguePath := filepath.Join(t.TempDir(), "catalogue.csv")
	require.NoError(t, os.WriteFile(cataloguePath, []byte(
		"drug,variant (common_name),Genome position,FINAL CONFIDENCE GRADING\n"+
			"Amikacin,eis_100_del_1_ca_c,,1) Assoc w R\n"), 0644))

	stdout, stderr, err := execute(t, "", "convert", "--gff", gffPath, cataloguePath)
	require.NoError(t, err)
	assert.Contains(t, stdout, "eis,c.101del,amikacin,1) Assoc w R,WHO catalogue,strand assumed +")
	assert.Contains(t, stderr, "Strand assumed (+): 1")
}

func TestConvert_GFFFromConfig(t *testing.T) {
	gffPath, cataloguePath := setup(t)
	cfg := filepath.Join(t.TempDir(), "who2tbp.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("gff: "+gffPath+"\n"), 0644))

	stdout, _, err := execute(t, "", "--config", cfg, "convert", cataloguePath)
	require.NoError(t, err)
	assert.Contains(t, stdout, "pncA,c.386_389del")
}

func TestConvert_UsageErrors(t *testing.T) {
	gffPath, cataloguePath := setup(t)

	tests := []struct {
		name string
		args []string
	}{
		{"missing gff", []string{"convert", cataloguePath}},
		{"bad filter", []string{"convert", "--gff", gffPath, "-f", "nope", cataloguePath}},
		{"no catalogue", []string{"convert", "--gff", gffPath}},
		{"unknown flag", []string{"convert", "--bogus", cataloguePath}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			viper.Reset()
			_, _, err := execute(t, "", tt.args...)
			var ue *usageError
			assert.ErrorAs(t, err, &ue)
		})
	}
}

func TestConvert_MissingCatalogue(t *testing.T) {
	gffPath, _ := setup(t)
	_, _, err := execute(t, "", "convert", "--gff", gffPath, filepath.Join(t.TempDir(), "missing.csv"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestConvertAndQuery(t *testing.T) {
	gffPath, cataloguePath := setup(t)
	dbPath := filepath.Join(t.TempDir(), "who.duckdb")

	_, _, err := execute(t, "", "convert", "--gff", gffPath, "--db", dbPath, cataloguePath)
	require.NoError(t, err)

	// Second run finds the catalogue already stored.
	_, _, err = execute(t, "", "convert", "--gff", gffPath, "--db", dbPath, cataloguePath)
	require.NoError(t, err)

	stdout, _, err := execute(t, "", "query", "--db", dbPath, "--gene", "pncA")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "#Token\tDrug\tGene"))
	assert.Equal(t, "pncA_390_del_4_cacat_c\tPyrazinamide\tpncA\tc.386_389del\tcoding_deletion\t1) Assoc w R\tok\t4", lines[1])

	stdout, _, err = execute(t, "", "query", "--db", dbPath, "--status", "unrecognized")
	require.NoError(t, err)
	assert.Contains(t, stdout, "pncA_LoF\tPyrazinamide\t-\t-\t-\t1) Assoc w R\tunrecognized\t5")
}

func TestQuery_RequiresDB(t *testing.T) {
	setup(t)
	_, _, err := execute(t, "", "query", "--gene", "rpoB")
	var ue *usageError
	assert.ErrorAs(t, err, &ue)
}

func TestTranslate_Args(t *testing.T) {
	gffPath, _ := setup(t)

	stdout, _, err := execute(t, "", "translate", "--gff", gffPath, "rpoB_S450L", "pncA_390_del_4_cacat_c", "rpoB_LoF")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "#Token\tGene\tHGVS\tCategory\tStatus", lines[0])
	assert.Equal(t, "rpoB_S450L\trpoB\tp.Ser450Leu\tamino_acid\tok", lines[1])
	assert.Equal(t, "pncA_390_del_4_cacat_c\tpncA\tc.386_389del\tcoding_deletion\tok", lines[2])
	assert.Equal(t, "rpoB_LoF\t-\t-\t-\tunrecognized", lines[3])
}

func TestTranslate_StdinWithoutGFF(t *testing.T) {
	setup(t)

	stdout, _, err := execute(t, "# tokens\nrrs_g1484t\n\npncA_390_del_4_cacat_c extra\n", "translate")
	require.NoError(t, err)
	assert.Contains(t, stdout, "rrs_g1484t\trrs\tr.1484g>t\tncrna_snp\tok\n")
	assert.Contains(t, stdout, "pncA_390_del_4_cacat_c\tpncA\tc.391_394del\tcoding_deletion\tok,strand_assumed\n")
}

func TestReadTokens(t *testing.T) {
	tokens, err := readTokens(strings.NewReader("a_S1L\n# comment\n\n  b_g1t\tx\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a_S1L", "b_g1t"}, tokens)
}

func TestConfigSetGet(t *testing.T) {
	setup(t)

	stdout, _, err := execute(t, "", "config", "set", "workers", "4")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Set workers = 4")

	viper.Reset()
	stdout, _, err = execute(t, "", "config", "get", "workers")
	require.NoError(t, err)
	assert.Equal(t, "4\n", stdout)

	viper.Reset()
	stdout, _, err = execute(t, "", "config")
	require.NoError(t, err)
	assert.Contains(t, stdout, "workers: 4")
}

func TestConfigShow_Empty(t *testing.T) {
	setup(t)
	stdout, _, err := execute(t, "", "config")
	require.NoError(t, err)
	assert.Contains(t, stdout, "No configuration set")
}

func TestVersion(t *testing.T) {
	setup(t)
	stdout, _, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.Equal(t, "who2tbp version dev (none) built unknown\n", stdout)
}

func TestRun_ExitCodes(t *testing.T) {
	setup(t)
	assert.Equal(t, ExitSuccess, run([]string{"version"}))
	assert.Equal(t, ExitUsage, run([]string{"version", "extra"}))
	assert.Equal(t, ExitUsage, run([]string{"convert"}))
	assert.Equal(t, ExitError, run([]string{"convert", "--gff", "missing.gff3", "missing.csv"}))
}

type closeRecorder struct {
	closed bool
	err    error
}

func (c *closeRecorder) Close() error {
	c.closed = true
	return c.err
}

func TestCloseOutput(t *testing.T) {
	diskFull := errors.New("disk full")
	writeErr := errors.New("write failed")

	c := &closeRecorder{err: diskFull}
	err := closeOutput(c, nil)
	assert.True(t, c.closed)
	assert.ErrorIs(t, err, diskFull)

	// A write error takes precedence, but the file is still closed.
	c = &closeRecorder{err: diskFull}
	assert.ErrorIs(t, closeOutput(c, writeErr), writeErr)
	assert.True(t, c.closed)

	c = &closeRecorder{}
	assert.NoError(t, closeOutput(c, nil))
}

func TestQuery_TokenLookup(t *testing.T) {
	gffPath, cataloguePath := setup(t)
	dbPath := filepath.Join(t.TempDir(), "who.duckdb")

	_, _, err := execute(t, "", "convert", "--gff", gffPath, "--db", dbPath, cataloguePath)
	require.NoError(t, err)

	stdout, _, err := execute(t, "", "query", "--db", dbPath, "--token", "katG_S315T")
	require.NoError(t, err)
	assert.Equal(t,
		"#Token\tDrug\tGene\tHGVS\tCategory\tConfidence\tStatus\tRow\n"+
			"katG_S315T\tIsoniazid\tkatG\tp.Ser315Thr\tamino_acid\t1) Assoc w R\tok\t3\n",
		stdout)
}
