package assign

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/regsnp/internal/enrich"
	"github.com/inodb/regsnp/internal/genes"
	"github.com/inodb/regsnp/internal/regions"
	"github.com/inodb/regsnp/internal/vcf"
)

func result(pos int64, kind regions.Kind, significant bool, rs ...*regions.Region) *enrich.Result {
	return &enrich.Result{
		Variant:     &vcf.Variant{Chrom: "1", Pos: pos, Ref: "C", Alt: "T"},
		Kind:        kind,
		Regions:     rs,
		Defined:     true,
		Significant: significant,
	}
}

func testAnnotation() *genes.Annotation {
	return genes.NewAnnotation([]*genes.Gene{
		{ID: "G1", Name: "NEAR", Chrom: "1", Start: 2000, End: 3000, Strand: 1},
		{ID: "G2", Name: "FAR", Chrom: "1", Start: 50000, End: 60000, Strand: 1},
	})
}

func TestPromoters(t *testing.T) {
	p1 := &regions.Region{Kind: regions.Promoter, Chrom: "1", Start: 0, End: 100, Genes: []string{"A", "B"}}
	p2 := &regions.Region{Kind: regions.Promoter, Chrom: "1", Start: 50, End: 150}

	got := Promoters([]*enrich.Result{
		result(60, regions.Promoter, true, p1, p2),
		result(70, regions.Promoter, false, p1),
	})

	require.Len(t, got, 2)
	for i, g := range []string{"A", "B"} {
		assert.Equal(t, g, got[i].Gene)
		assert.Equal(t, Direct, got[i].Evidence)
		assert.Equal(t, "1:60:C:T", got[i].SNP())
		assert.True(t, math.IsNaN(got[i].Strength))
	}
}

func TestEnhancers_UnionOfEvidence(t *testing.T) {
	contacts := genes.NewContacts()
	require.NoError(t, contacts.Add("1", 900, 1200, "FAR", 4.5))
	require.NoError(t, contacts.Add("1", 900, 1200, "NEAR", 2))

	annotated := &regions.Region{Kind: regions.Enhancer, Chrom: "1", Start: 1000, End: 1100, Genes: []string{"HOST"}}
	r := NewResolver(testAnnotation(), contacts)

	got := Enhancers([]*enrich.Result{result(1050, regions.Enhancer, true, annotated)}, r)

	type row struct {
		gene     string
		evidence Evidence
	}
	var rows []row
	for _, a := range got {
		rows = append(rows, row{a.Gene, a.Evidence})
	}
	assert.Equal(t, []row{
		{"HOST", Intronic},
		{"NEAR", Nearest},
		{"FAR", Contact},
		{"NEAR", Contact},
	}, rows)
	assert.Equal(t, float64(901), got[1].Strength)
	assert.Equal(t, 4.5, got[2].Strength)
}

func TestEnhancers_IntergenicStillGetsNearest(t *testing.T) {
	intergenic := &regions.Region{Kind: regions.Enhancer, Chrom: "1", Start: 40000, End: 40100}
	r := NewResolver(testAnnotation(), nil)

	got := Enhancers([]*enrich.Result{
		result(40050, regions.Enhancer, true, intergenic),
		result(40060, regions.Enhancer, true, intergenic),
		result(40070, regions.Enhancer, false, intergenic),
	}, r)

	require.Len(t, got, 2, "one nearest row per significant SNP")
	for _, a := range got {
		assert.Equal(t, Nearest, a.Evidence)
		assert.Equal(t, "FAR", a.Gene)
	}
}

func TestEnhancers_AnnotatedAlwaysKeepsIntronic(t *testing.T) {
	// Even with no gene annotation and no contacts the direct evidence stays.
	annotated := &regions.Region{Kind: regions.Enhancer, Chrom: "7", Start: 0, End: 10, Genes: []string{"X", "Y"}}
	got := Enhancers([]*enrich.Result{result(5, regions.Enhancer, true, annotated)}, NewResolver(nil, nil))
	require.Len(t, got, 2)
	assert.Equal(t, Intronic, got[0].Evidence)
	assert.Equal(t, Intronic, got[1].Evidence)
}

func TestResolver_UsesTable(t *testing.T) {
	region := &regions.Region{Kind: regions.Enhancer, Chrom: "1", Start: 1000, End: 1100}
	table := &Table{Rows: []Row{
		{Chrom: "chr1", Start: 1000, End: 1100, Gene: "CACHED", GenomicElement: "enhancer", Evidence: "contact", Strength: "3", PValue: "0.01", Relation: "positive"},
	}}

	r := NewResolver(testAnnotation(), nil)
	r.UseTable(table)

	cs := r.Candidates(region)
	require.Len(t, cs, 1)
	assert.Equal(t, Candidate{Gene: "CACHED", Evidence: Contact, Strength: 3}, cs[0])

	other := &regions.Region{Kind: regions.Enhancer, Chrom: "1", Start: 5000, End: 5100}
	cs = r.Candidates(other)
	require.Len(t, cs, 1)
	assert.Equal(t, "NEAR", cs[0].Gene, "regions absent from the table are computed")
}

func TestPairs(t *testing.T) {
	region := &regions.Region{Kind: regions.Enhancer, Chrom: "1", Start: 0, End: 10}
	v := &vcf.Variant{Chrom: "1", Pos: 5, Ref: "A", Alt: "G"}
	pairs := Pairs([]Assignment{
		{Variant: v, Region: region, Gene: "A", Evidence: Intronic},
		{Variant: v, Region: region, Gene: "A", Evidence: Contact},
		{Variant: v, Region: region, Gene: "B", Evidence: Nearest},
	})
	require.Len(t, pairs, 2)
	assert.Equal(t, "B", pairs[1].Gene)
}
