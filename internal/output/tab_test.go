package output

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MDU-PHL/who2tbp/internal/hgvs"
)

func TestTabWriter_WriteHeader(t *testing.T) {
	var buf bytes.Buffer
	w := NewTabWriter(&buf)

	require.NoError(t, w.WriteHeader())
	require.NoError(t, w.Flush())

	header := buf.String()
	for _, col := range []string{"#Token", "Gene", "HGVS", "Category", "Status"} {
		assert.Contains(t, header, col)
	}
}

func TestTabWriter_Write(t *testing.T) {
	var buf bytes.Buffer
	w := NewTabWriter(&buf)

	require.NoError(t, w.Write("rpoB_S450L", hgvs.Result{Gene: "rpoB", HGVS: "p.Ser450Leu", Category: hgvs.CategoryAminoAcid}, nil))
	require.NoError(t, w.Write("gid_103_del_1_gc_g", hgvs.Result{Gene: "gid", HGVS: "c.104del", Category: hgvs.CategoryCodingDeletion, StrandAssumed: true}, nil))
	require.NoError(t, w.Write("pncA_LoF", hgvs.Result{}, fmt.Errorf("%w: %q", hgvs.ErrUnrecognizedToken, "pncA_LoF")))
	require.NoError(t, w.Flush())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "rpoB_S450L\trpoB\tp.Ser450Leu\tamino_acid\tok", lines[0])
	assert.Equal(t, "gid_103_del_1_gc_g\tgid\tc.104del\tcoding_deletion\tok,strand_assumed", lines[1])
	assert.Equal(t, "pncA_LoF\t-\t-\t-\tunrecognized", lines[2])
}
