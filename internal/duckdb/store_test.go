package duckdb

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/inodb/regsnp/internal/assign"
	"github.com/inodb/regsnp/internal/enrich"
	"github.com/inodb/regsnp/internal/regions"
	"github.com/inodb/regsnp/internal/report"
	"github.com/inodb/regsnp/internal/vcf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openInMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open("")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenClose(t *testing.T) {
	s := openInMemory(t)
	assert.NotNil(t, s.DB())
}

func TestOpenCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "regsnp.duckdb")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Close())
	assert.FileExists(t, path)
}

func TestWriteAndReadAssignments(t *testing.T) {
	s := openInMemory(t)

	rows := []assign.Row{
		{Chrom: "1", Start: 100, End: 200, Gene: "GENEA", GenomicElement: "enhancer",
			Evidence: "intronic", Strength: "0", PValue: "0.01", Relation: "positive"},
		{Chrom: "1", Start: 100, End: 200, Gene: "GENEB", GenomicElement: "enhancer",
			Evidence: "nearest", Strength: "1500", PValue: "NA", Relation: "undefined"},
		// Duplicate key, dropped.
		{Chrom: "1", Start: 100, End: 200, Gene: "GENEA", GenomicElement: "enhancer",
			Evidence: "intronic", Strength: "7", PValue: "0.5", Relation: "negative"},
		{Chrom: "2", Start: 5, End: 50, Gene: "GENEC", GenomicElement: "enhancer",
			Evidence: "contact", Strength: "3.5", PValue: "NA", Relation: "undefined"},
	}
	require.NoError(t, s.WriteAssignments(rows))

	n, err := s.CountAssignments()
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	got, err := s.AssignmentsForRegion("1", 100, 200)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "GENEA", got[0].Gene)
	assert.Equal(t, "0", got[0].Strength)
	assert.Equal(t, "0.01", got[0].PValue)
	assert.Equal(t, "GENEB", got[1].Gene)
	assert.Equal(t, "NA", got[1].PValue, "NULL reads back as NA")

	none, err := s.AssignmentsForRegion("3", 1, 2)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestWriteAssignmentsReplaces(t *testing.T) {
	s := openInMemory(t)

	first := []assign.Row{{Chrom: "1", Start: 1, End: 2, Gene: "A", Evidence: "nearest", Strength: "3", PValue: "NA", Relation: "undefined"}}
	second := []assign.Row{{Chrom: "1", Start: 1, End: 2, Gene: "B", Evidence: "nearest", Strength: "4", PValue: "NA", Relation: "undefined"}}
	require.NoError(t, s.WriteAssignments(first))
	require.NoError(t, s.WriteAssignments(second))

	got, err := s.AssignmentsForRegion("1", 1, 2)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "B", got[0].Gene)
}

func TestWriteAndReadEvidence(t *testing.T) {
	s := openInMemory(t)

	na := report.NA
	rows := []report.Row{
		{
			SNP: "1:150:A:G", Chrom: "1", Pos: 150, Ref: "A", Alt: "G",
			Kind: regions.Enhancer, Region: "1:100-200", Gene: "GENEA",
			Evidence: assign.Intronic, Strength: 0,
			CohortFreq: 0.2, RefFreq: 0.001, PValue: 1e-6, QValue: 2e-6,
			SignalExpression:   report.Corr{Feature: "1:100-200", Coefficient: 0.9, PValue: 0.01, N: 10, Relation: "positive", Defined: true},
			GenotypeExpression: na,
			GenotypeSignal:     na,
		},
		{
			SNP: "1:170:C:T", Chrom: "1", Pos: 170, Ref: "C", Alt: "T",
			Kind: regions.Enhancer, Region: "1:100-200", Gene: "GENEA",
			Evidence: assign.Intronic, Strength: 0,
			CohortFreq: 0.1, RefFreq: math.NaN(), PValue: math.NaN(), QValue: math.NaN(),
			SignalExpression: na, GenotypeExpression: na, GenotypeSignal: na,
		},
		{
			SNP: "2:10:G:A", Chrom: "2", Pos: 10, Ref: "G", Alt: "A",
			Kind: regions.Promoter, Region: "2:5-50", Gene: "GENEC",
			Evidence: assign.Direct, Strength: math.NaN(),
			SignalExpression: na, GenotypeExpression: na, GenotypeSignal: na,
		},
	}
	require.NoError(t, s.WriteEvidence(rows))

	got, err := s.EvidenceByGene("GENEA")
	require.NoError(t, err)
	require.Len(t, got, 2)

	first := got[0]
	assert.Equal(t, "1:150:A:G", first.SNP)
	assert.Equal(t, regions.Enhancer, first.Kind)
	assert.Equal(t, assign.Intronic, first.Evidence)
	assert.InDelta(t, 2e-6, first.QValue, 1e-12)
	assert.True(t, first.SignalExpression.Defined)
	assert.InDelta(t, 0.9, first.SignalExpression.Coefficient, 1e-12)
	assert.False(t, first.GenotypeExpression.Defined)
	assert.True(t, math.IsNaN(first.GenotypeExpression.Coefficient))

	second := got[1]
	assert.Equal(t, "1:170:C:T", second.SNP, "missing q-values sort last")
	assert.True(t, math.IsNaN(second.QValue))
	assert.True(t, math.IsNaN(second.RefFreq))

	promoter, err := s.EvidenceByGene("GENEC")
	require.NoError(t, err)
	require.Len(t, promoter, 1)
	assert.True(t, math.IsNaN(promoter[0].Strength))
}

func TestRecordRun(t *testing.T) {
	s := openInMemory(t)

	_, ok, err := s.LastRun()
	require.NoError(t, err)
	assert.False(t, ok)

	started := time.Date(2024, 3, 1, 12, 0, 0, 123456789, time.UTC)
	mod := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	run := Run{
		StartedAt:    started,
		Limited:      true,
		Config:       "freq_filter_target: rare\n",
		EvidenceRows: 12,
		Inputs: map[string]FileFingerprint{
			"vcf":       {Path: "cohort.vcf.gz", Size: 1024, ModTime: mod},
			"enhancers": {Path: "enh.bed", Size: 64, ModTime: mod},
		},
	}
	require.NoError(t, s.RecordRun(run))

	got, ok, err := s.LastRun()
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, got.Limited)
	assert.Equal(t, 12, got.EvidenceRows)
	assert.Equal(t, run.Config, got.Config)
	require.Len(t, got.Inputs, 2)
	assert.Equal(t, int64(1024), got.Inputs["vcf"].Size)
	assert.Equal(t, "enh.bed", got.Inputs["enhancers"].Path)
	assert.True(t, mod.Equal(got.Inputs["vcf"].ModTime))
}

func TestStatFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.bed")
	require.NoError(t, writeFile(path, "1\t0\t10\n"))

	fp, err := StatFile(path)
	require.NoError(t, err)
	assert.Equal(t, int64(7), fp.Size)
	assert.Equal(t, path, fp.Path)

	_, err = StatFile(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0644)
}

func TestWriteAndReadEnrichment(t *testing.T) {
	s := openInMemory(t)

	enh := &regions.Region{Kind: regions.Enhancer, Chrom: "1", Start: 100, End: 200}
	tested := &vcf.Variant{Chrom: "chr1", Pos: 150, Ref: "A", Alt: "G"}
	uncalled := &vcf.Variant{Chrom: "chr1", Pos: 170, Ref: "C", Alt: "T"}
	res := &enrich.Results{
		Enhancers: []*enrich.Result{
			{Variant: tested, Kind: regions.Enhancer, Regions: []*regions.Region{enh},
				AltCount: 8, TotalCount: 20, CohortFreq: 0.4, RefFreq: 0.01,
				PValue: 1e-6, QValue: 2e-6, Defined: true, Significant: true},
			{Variant: uncalled, Kind: regions.Enhancer, Regions: []*regions.Region{enh},
				CohortFreq: math.NaN(), RefFreq: 0.01, PValue: math.NaN(), QValue: math.NaN()},
		},
	}
	require.NoError(t, s.WriteEnrichment(res))

	got, err := s.Enrichment("enhancer")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "1:150:A:G", got[0].SNP)
	assert.Equal(t, "1:100-200", got[0].Regions)
	assert.True(t, got[0].Significant)
	assert.Equal(t, 8, got[0].AltCount)

	assert.Equal(t, "1:170:C:T", got[1].SNP, "undefined tests sort last")
	assert.False(t, got[1].Defined)
	assert.True(t, math.IsNaN(got[1].PValue))
	assert.True(t, math.IsNaN(got[1].CohortFreq))

	none, err := s.Enrichment("promoter")
	require.NoError(t, err)
	assert.Empty(t, none)
}
