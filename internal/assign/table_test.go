package assign

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/regsnp/internal/regions"
	"github.com/inodb/regsnp/internal/vcf"
)

func sampleAssignments() []Assignment {
	e1 := &regions.Region{Kind: regions.Enhancer, Chrom: "1", Start: 1000, End: 1100, Genes: []string{"HOST"}}
	e2 := &regions.Region{Kind: regions.Enhancer, Chrom: "2", Start: 10, End: 20}
	v1 := &vcf.Variant{Chrom: "1", Pos: 1050, Ref: "A", Alt: "G"}
	v2 := &vcf.Variant{Chrom: "1", Pos: 1060, Ref: "A", Alt: "C"}
	v3 := &vcf.Variant{Chrom: "2", Pos: 15, Ref: "T", Alt: "G"}
	return []Assignment{
		{Variant: v1, Region: e1, Gene: "HOST", Evidence: Intronic, Strength: math.NaN()},
		{Variant: v1, Region: e1, Gene: "NEAR", Evidence: Nearest, Strength: 901},
		{Variant: v2, Region: e1, Gene: "NEAR", Evidence: Nearest, Strength: 901},
		{Variant: v3, Region: e2, Gene: "LOOP", Evidence: Contact, Strength: 0.75},
	}
}

func lookup(region *regions.Region, gene string) (float64, string) {
	switch gene {
	case "HOST":
		return 0.002, "positive"
	case "NEAR":
		return 0.3, "negative"
	}
	return math.NaN(), "undefined"
}

type tuple struct {
	region, gene, evidence, p, relation string
}

func tuples(t *Table) map[tuple]bool {
	out := make(map[tuple]bool)
	for _, r := range t.Rows {
		out[tuple{r.RegionKey(), r.Gene, r.Evidence, r.PValue, r.Relation}] = true
	}
	return out
}

func TestTable_RoundTrip(t *testing.T) {
	table := NewTable(sampleAssignments(), lookup)
	require.Len(t, table.Rows, 3, "duplicate region-gene-evidence rows collapse")

	path := filepath.Join(t.TempDir(), TableFileName)
	require.NoError(t, WriteTable(path, table))

	got, err := ReadTable(path)
	require.NoError(t, err)
	assert.Equal(t, tuples(table), tuples(got))

	p, rel, ok := got.Signal("2:10-20", "LOOP")
	require.True(t, ok)
	assert.True(t, math.IsNaN(p))
	assert.Equal(t, "undefined", rel)

	p, rel, ok = got.Signal("1:1000-1100", "HOST")
	require.True(t, ok)
	assert.Equal(t, 0.002, p)
	assert.Equal(t, "positive", rel)

	_, _, ok = got.Signal("1:1000-1100", "MISSING")
	assert.False(t, ok)

	assert.True(t, ValidateTable(path).OK)
}

func TestTable_Candidates(t *testing.T) {
	c := NewTable(sampleAssignments(), nil).Candidates()
	require.Len(t, c["1:1000-1100"], 2)
	assert.Equal(t, Intronic, c["1:1000-1100"][0].Evidence)
	assert.True(t, math.IsNaN(c["1:1000-1100"][0].Strength))
	assert.Equal(t, 901.0, c["1:1000-1100"][1].Strength)
}

func TestValidateTable(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		return path
	}

	tests := []struct {
		name   string
		path   string
		reason string
	}{
		{"missing file", filepath.Join(dir, "absent.csv"), "read assignment table"},
		{"missing columns", write("cols.csv", "enh_start,enh_end,gene\n1,2,A\n"), "missing columns: enh_chrom"},
		{"bad evidence", write("ev.csv",
			"enh_chrom,enh_start,enh_end,gene,genomic_element,evidence,signal_expression_pvalue,relation\n"+
				"1,10,20,A,enhancer,guess,0.1,positive\n"), "unknown evidence"},
		{"bad number", write("num.csv",
			"enh_chrom,enh_start,enh_end,gene,genomic_element,evidence,signal_expression_pvalue,relation\n"+
				"1,ten,20,A,enhancer,nearest,0.1,positive\n"), "parse assignment table"},
		{"empty", write("empty.csv", ""), "header"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := ValidateTable(tt.path)
			assert.False(t, v.OK)
			assert.Contains(t, v.Reason, tt.reason)
		})
	}
}

func TestFormatFloat(t *testing.T) {
	assert.Equal(t, "NA", FormatFloat(math.NaN()))
	assert.Equal(t, "0.25", FormatFloat(0.25))
	assert.True(t, math.IsNaN(ParseFloat("NA")))
	assert.Equal(t, 3.0, ParseFloat(" 3 "))
}
