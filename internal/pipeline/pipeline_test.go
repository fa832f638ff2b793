package pipeline

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/regsnp/internal/assign"
	"github.com/inodb/regsnp/internal/config"
	"github.com/inodb/regsnp/internal/correlate"
	"github.com/inodb/regsnp/internal/duckdb"
	"github.com/inodb/regsnp/internal/report"
)

const cohortVCF = `##fileformat=VCFv4.2
##INFO=<ID=gnomAD_genome_NFE,Number=A,Type=Float,Description="NFE allele frequency">
##FORMAT=<ID=GT,Number=1,Type=String,Description="Genotype">
##contig=<ID=chr1>
##contig=<ID=chr2>
#CHROM	POS	ID	REF	ALT	QUAL	FILTER	INFO	FORMAT	S1	S2	S3	S4	S5	S6
chr1	1500	rs1	A	G	50	PASS	gnomAD_genome_NFE=0.001	GT	0/1	1/1	0/0	0/1	1/1	0/1
chr1	3050	rs2	C	T	50	PASS	gnomAD_genome_NFE=0.0005	GT	0/0	0/1	1/1	0/1	0/0	1/1
chr1	3060	rs3	G	A	50	PASS	gnomAD_genome_NFE=0.3	GT	0/1	0/1	0/1	0/1	0/1	0/1
chr2	500	rs4	T	C	50	PASS	gnomAD_genome_NFE=0.001	GT	0/1	0/1	0/0	0/0	0/0	0/0
`

const promotersBED = "chr1\t1400\t1600\tALPHA\n"

const enhancersBED = "track name=enhancers\nchr1\t3000\t3100\tALPHA\n"

const genesGTF = `chr1	HAVANA	gene	1001	2000	.	+	.	gene_id "ENSG0001.1"; gene_name "ALPHA";
chr1	HAVANA	gene	5001	6000	.	-	.	gene_id "ENSG0002.1"; gene_name "BETA";
`

const enhancerSignal = "chr,start,end,S1,S2,S3,S4,S5,S6\n" +
	"chr1,3000,3100,0.5,1.1,3.2,1.4,0.2,2.9\n"

const promoterSignal = "Transcript\tS1\tS2\tS3\tS4\tS5\tS6\n" +
	"ENST01/ALPHA\t2.0\t4.1\t0.3\t2.2\t3.9\t1.8\n"

const expressionTable = "Transcript\tS1\tS2\tS3\tS4\tS5\tS6\n" +
	"ENST01/ALPHA\t10\t19\t2\t11\t21\t9\n" +
	"ENST02/BETA\t5\t5\t6\t4\t5\t6\n"

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func testInputs(t *testing.T) Inputs {
	t.Helper()
	dir := t.TempDir()
	return Inputs{
		VCF:            writeFile(t, dir, "cohort.vcf", cohortVCF),
		Promoters:      writeFile(t, dir, "promoters.bed", promotersBED),
		Enhancers:      writeFile(t, dir, "enhancers.bed", enhancersBED),
		GTF:            writeFile(t, dir, "genes.gtf", genesGTF),
		EnhancerSignal: writeFile(t, dir, "enhancer_signal.csv", enhancerSignal),
		PromoterSignal: writeFile(t, dir, "promoter_signal.tsv", promoterSignal),
		Expression:     writeFile(t, dir, "expression.tsv", expressionTable),
		OutputDir:      filepath.Join(dir, "out"),
	}
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Populations = []config.Population{config.PopNFE}
	cfg.ReferencePopulation = config.PopNFE
	cfg.Workers = 2
	return cfg
}

func TestRun_Full(t *testing.T) {
	in := testInputs(t)
	res, err := NewRunner(testConfig()).Run(t.Context(), in)
	require.NoError(t, err)

	assert.Equal(t, 4, res.VariantsRead)
	assert.Len(t, res.Filtered, 3, "common variant removed")
	assert.Equal(t, 1, res.Enrichment.Skipped, "chr2 variant overlaps nothing")
	require.Len(t, res.Enrichment.Promoters, 1)
	require.Len(t, res.Enrichment.Enhancers, 1)
	assert.True(t, res.Enrichment.Promoters[0].Significant)
	assert.True(t, res.Enrichment.Enhancers[0].Significant)

	require.Len(t, res.Promoters, 1)
	assert.Equal(t, assign.Direct, res.Promoters[0].Evidence)
	assert.Equal(t, "ALPHA", res.Promoters[0].Gene)

	var evidence []assign.Evidence
	for _, a := range res.Enhancers {
		assert.Equal(t, "ALPHA", a.Gene)
		evidence = append(evidence, a.Evidence)
	}
	assert.Equal(t, []assign.Evidence{assign.Intronic, assign.Nearest}, evidence)
	assert.False(t, res.Reused)

	kinds := make(map[correlate.Kind]int)
	for _, r := range res.Correlations {
		kinds[r.Kind]++
	}
	assert.Positive(t, kinds[correlate.SignalExpression])
	assert.Positive(t, kinds[correlate.GenotypeExpression])
	assert.Positive(t, kinds[correlate.GenotypeSignal])

	var promoterRow *report.Row
	for i := range res.Rows {
		if res.Rows[i].Evidence == assign.Direct {
			promoterRow = &res.Rows[i]
		}
	}
	require.NotNil(t, promoterRow)
	assert.True(t, promoterRow.SignalExpression.Defined)
	assert.Equal(t, "positive", promoterRow.SignalExpression.Relation)
	assert.Equal(t, "ENST01/ALPHA", promoterRow.GenotypeExpression.Feature)

	for _, name := range []string{report.PromoterFileName, report.EnhancerFileName, assign.TableFileName} {
		assert.FileExists(t, filepath.Join(in.OutputDir, name))
	}

	table, err := assign.ReadTable(filepath.Join(in.OutputDir, assign.TableFileName))
	require.NoError(t, err)
	require.Len(t, table.Rows, 2)
	assert.NotEqual(t, "NA", table.Rows[0].PValue)
}

func TestRun_Limited(t *testing.T) {
	in := testInputs(t)
	in.EnhancerSignal, in.PromoterSignal, in.Expression = "", "", ""
	cfg := testConfig()
	cfg.Limited = true

	res, err := NewRunner(cfg).Run(t.Context(), in)
	require.NoError(t, err)
	assert.Empty(t, res.Correlations)
	require.NotEmpty(t, res.Rows)
	for _, r := range res.Rows {
		assert.False(t, r.SignalExpression.Defined)
		assert.False(t, r.GenotypeExpression.Defined)
		assert.False(t, r.GenotypeSignal.Defined)
	}

	data, err := os.ReadFile(filepath.Join(in.OutputDir, report.EnhancerFileName))
	require.NoError(t, err)
	assert.Contains(t, string(data), "nearest")

	table, err := assign.ReadTable(filepath.Join(in.OutputDir, assign.TableFileName))
	require.NoError(t, err)
	for _, r := range table.Rows {
		assert.Equal(t, "NA", r.PValue)
		assert.Equal(t, "undefined", r.Relation)
	}
}

func TestRun_ReusesAssignmentTable(t *testing.T) {
	in := testInputs(t)
	dir := t.TempDir()
	in.AssignmentTable = writeFile(t, dir, assign.TableFileName,
		strings.Join(assign.RequiredColumns, ",")+"\n"+
			"chr1,3000,3100,BETA,enhancer,contact,4,0.002,negative\n")

	res, err := NewRunner(testConfig()).Run(t.Context(), in)
	require.NoError(t, err)
	assert.True(t, res.Reused)

	require.Len(t, res.Enhancers, 1)
	assert.Equal(t, "BETA", res.Enhancers[0].Gene)
	assert.Equal(t, assign.Contact, res.Enhancers[0].Evidence)

	for _, r := range res.Correlations {
		if r.Kind == correlate.SignalExpression {
			assert.NotEqual(t, "1:3000-3100", r.Region, "listed regions are not recomputed")
		}
	}
	for _, r := range res.Rows {
		if r.Gene == "BETA" {
			assert.InDelta(t, 0.002, r.SignalExpression.PValue, 1e-12)
			assert.Equal(t, "negative", r.SignalExpression.Relation)
		}
	}
}

func TestRun_LimitedIgnoresAssignmentTable(t *testing.T) {
	cfg := testConfig()
	cfg.Limited = true

	base := testInputs(t)
	base.EnhancerSignal, base.PromoterSignal, base.Expression = "", "", ""
	want, err := NewRunner(cfg).Run(t.Context(), base)
	require.NoError(t, err)

	in := testInputs(t)
	in.EnhancerSignal, in.PromoterSignal, in.Expression = "", "", ""
	in.AssignmentTable = writeFile(t, t.TempDir(), assign.TableFileName,
		strings.Join(assign.RequiredColumns, ",")+"\n"+
			"chr1,3000,3100,BETA,enhancer,contact,4,0.002,negative\n")

	res, err := NewRunner(cfg).Run(t.Context(), in)
	require.NoError(t, err)
	assert.False(t, res.Reused)
	require.Len(t, res.Enhancers, len(want.Enhancers))
	require.NotEmpty(t, res.Enhancers)
	for i, a := range res.Enhancers {
		assert.Equal(t, want.Enhancers[i].SNP(), a.SNP())
		assert.Equal(t, want.Enhancers[i].Gene, a.Gene)
		assert.Equal(t, want.Enhancers[i].Evidence, a.Evidence)
	}
}

func TestRun_InvalidAssignmentTableIsRecomputed(t *testing.T) {
	in := testInputs(t)
	in.AssignmentTable = writeFile(t, t.TempDir(), "stale.csv", "chrom,start\n1,2\n")

	res, err := NewRunner(testConfig()).Run(t.Context(), in)
	require.NoError(t, err)
	assert.False(t, res.Reused)
	assert.Len(t, res.Enhancers, 2)
}

func TestRun_MissingInputs(t *testing.T) {
	in := testInputs(t)
	in.GTF = filepath.Join(t.TempDir(), "missing.gtf")
	in.Expression = ""

	_, err := NewRunner(testConfig()).Run(t.Context(), in)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gtf")
	assert.Contains(t, err.Error(), "expression")
}

func TestRun_InvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Alpha = 2
	_, err := NewRunner(cfg).Run(t.Context(), testInputs(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bh_alpha")
}

func TestRun_ExistingOutputDir(t *testing.T) {
	in := testInputs(t)
	require.NoError(t, os.MkdirAll(in.OutputDir, 0o755))
	_, err := NewRunner(testConfig()).Run(t.Context(), in)
	require.NoError(t, err)
}

func TestRun_DuckDB(t *testing.T) {
	in := testInputs(t)
	in.DuckDB = filepath.Join(t.TempDir(), "regsnp.duckdb")

	res, err := NewRunner(testConfig()).Run(t.Context(), in)
	require.NoError(t, err)

	store, err := duckdb.Open(in.DuckDB)
	require.NoError(t, err)
	defer store.Close()

	rows, err := store.EvidenceByGene("ALPHA")
	require.NoError(t, err)
	assert.Len(t, rows, len(res.Rows))

	n, err := store.CountAssignments()
	require.NoError(t, err)
	assert.Equal(t, len(res.Table.Rows), n)

	run, ok, err := store.LastRun()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, run.Inputs, "vcf")
	assert.Equal(t, len(res.Rows), run.EvidenceRows)
}

func TestRun_UndefinedEnrichmentIsReported(t *testing.T) {
	in := testInputs(t)
	in.DuckDB = filepath.Join(t.TempDir(), "regsnp.duckdb")
	uncalled := "chr1\t3070\trs5\tT\tC\t50\tPASS\tgnomAD_genome_NFE=0.001\tGT\t./.\t./.\t./.\t./.\t./.\t./.\n"
	in.VCF = writeFile(t, t.TempDir(), "cohort.vcf", cohortVCF+uncalled)

	res, err := NewRunner(testConfig()).Run(t.Context(), in)
	require.NoError(t, err)
	require.Len(t, res.Enrichment.Enhancers, 2)
	assert.False(t, res.Enrichment.Enhancers[1].Defined)

	data, err := os.ReadFile(filepath.Join(in.OutputDir, report.EnhancerEnrichmentFileName))
	require.NoError(t, err)
	var line string
	for _, l := range strings.Split(string(data), "\n") {
		if strings.HasPrefix(l, "1:3070:T:C\t") {
			line = l
		}
	}
	require.NotEmpty(t, line, "undefined test listed")
	fields := strings.Split(line, "\t")
	assert.Equal(t, []string{"0", "0", "NA", "0.001", "NA", "NA", "false", "false"}, fields[7:])

	prom, err := os.ReadFile(filepath.Join(in.OutputDir, report.PromoterEnrichmentFileName))
	require.NoError(t, err)
	assert.Contains(t, string(prom), "1:1500:A:G")

	store, err := duckdb.Open(in.DuckDB)
	require.NoError(t, err)
	defer store.Close()
	stored, err := store.Enrichment("enhancer")
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, "1:3070:T:C", stored[1].SNP)
	assert.False(t, stored[1].Defined)
}
