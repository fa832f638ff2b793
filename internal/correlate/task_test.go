package correlate

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/regsnp/internal/assign"
	"github.com/inodb/regsnp/internal/matrix"
	"github.com/inodb/regsnp/internal/regions"
	"github.com/inodb/regsnp/internal/vcf"
)

func parse(t *testing.T, content string) *matrix.Matrix {
	t.Helper()
	m, err := matrix.Parse(strings.NewReader(content), '\t')
	require.NoError(t, err)
	return m
}

func testSources(t *testing.T) Sources {
	return Sources{
		EnhancerSignal: parse(t, "chr\tstart\tend\tA\tB\tC\tD\n1\t100\t200\t1\t2\t3\t4\n"),
		PromoterSignal: parse(t, "Transcript\tA\tB\tC\tD\nT1/ALPHA\t4\t3\t2\t1\nT9/ALPHA\t1\t1\t2\t2\n"),
		Expression:     parse(t, "Transcript\tA\tB\tC\tD\nT1/ALPHA\t2\t4\t6\t8\nT2/ALPHA\t1\t0\t1\t0\n"),
	}
}

var (
	enhancer = &regions.Region{Kind: regions.Enhancer, Chrom: "1", Start: 100, End: 200}
	promoter = &regions.Region{Kind: regions.Promoter, Chrom: "1", Start: 0, End: 50, Genes: []string{"ALPHA"}}
	snp1     = &vcf.Variant{Chrom: "1", Pos: 150, Ref: "A", Alt: "G"}
	snp2     = &vcf.Variant{Chrom: "1", Pos: 20, Ref: "C", Alt: "T"}
)

func TestSignalExpressionTasks(t *testing.T) {
	s := testSources(t)
	tasks := s.SignalExpressionTasks([]assign.Pair{
		{Region: enhancer, Gene: "ALPHA"},
		{Region: promoter, Gene: "ALPHA"},
		{Region: enhancer, Gene: "NOEXPR"},
	})

	var features []string
	for _, tk := range tasks {
		features = append(features, string(tk.Kind)+" "+tk.Region+" "+tk.Feature)
	}
	assert.Equal(t, []string{
		"signal-expression 1:100-200 T1/ALPHA", // enhancer x every expression feature
		"signal-expression 1:100-200 T2/ALPHA",
		"signal-expression 1:0-50 T1/ALPHA", // promoter matches shared feature IDs only
		"signal-expression 1:100-200 ",      // no expression: undefined placeholder
	}, features)
}

func TestGenotypeTasks(t *testing.T) {
	s := testSources(t)
	dosage := map[string]matrix.Series{
		snp1.Key(): {Samples: []string{"A", "B", "C", "D"}, Values: []float64{0, 1, 1, 2}},
		snp2.Key(): {Samples: []string{"A", "B", "C", "D"}, Values: []float64{2, 1, 1, 0}},
	}
	as := []assign.Assignment{
		{Variant: snp1, Region: enhancer, Gene: "ALPHA", Evidence: assign.Nearest},
		{Variant: snp1, Region: enhancer, Gene: "ALPHA", Evidence: assign.Contact},
		{Variant: snp2, Region: promoter, Gene: "ALPHA", Evidence: assign.Direct},
	}

	ge := s.GenotypeExpressionTasks(as, dosage)
	assert.Len(t, ge, 4, "two SNPs x two expression features, duplicates collapsed")

	gs := s.GenotypeSignalTasks(as, dosage)
	require.Len(t, gs, 3)
	assert.Equal(t, "", gs[0].Gene)
	assert.Equal(t, "1:100-200", gs[0].Feature)
	assert.Equal(t, "ALPHA", gs[1].Gene)
	assert.Equal(t, "T1/ALPHA", gs[1].Feature)

	missing := s.GenotypeExpressionTasks(as, nil)
	require.Len(t, missing, 2)
	assert.Empty(t, missing[0].X.Samples)
}

func TestIndex_PicksSmallestDefinedP(t *testing.T) {
	records := []Record{
		{Kind: SignalExpression, Region: "r", Gene: "g", Feature: "f0", Result: Undefined(2)},
		{Kind: SignalExpression, Region: "r", Gene: "g", Feature: "f1", Result: Result{Coefficient: 0.5, PValue: 0.2, N: 5, Defined: true}},
		{Kind: SignalExpression, Region: "r", Gene: "g", Feature: "f2", Result: Result{Coefficient: -0.9, PValue: 0.01, N: 5, Defined: true}},
		{Kind: GenotypeExpression, SNP: "s", Gene: "g", Feature: "f3", Result: Undefined(1)},
	}
	idx := NewIndex(records)

	r, ok := idx.SignalExpression("r", "g")
	require.True(t, ok)
	assert.Equal(t, "f2", r.Feature)

	p, rel := idx.Lookup(&regions.Region{Chrom: "x"}, "g")
	assert.True(t, math.IsNaN(p))
	assert.Equal(t, "undefined", rel)

	r, ok = idx.GenotypeExpression("s", "g")
	require.True(t, ok)
	assert.False(t, r.Defined)

	_, ok = idx.GenotypeSignal("s", "r", "")
	assert.False(t, ok)
}

func TestEndToEndOnSources(t *testing.T) {
	s := testSources(t)
	tasks := s.SignalExpressionTasks([]assign.Pair{{Region: enhancer, Gene: "ALPHA"}})
	records, err := NewEngine(defaultConfig()).Run(t.Context(), tasks)
	require.NoError(t, err)

	idx := NewIndex(records)
	r, ok := idx.SignalExpression(enhancer.Key(), "ALPHA")
	require.True(t, ok)
	assert.Equal(t, "T1/ALPHA", r.Feature)
	assert.InDelta(t, 1, r.Coefficient, 1e-12)

	p, rel := idx.Lookup(enhancer, "ALPHA")
	assert.Equal(t, r.PValue, p)
	assert.Equal(t, "positive", rel)
}
