// Package report merges enrichment, gene assignment and correlation
// evidence into the final per-SNP tables.
package report

import (
	"math"
	"sort"
	"strings"

	"github.com/inodb/regsnp/internal/assign"
	"github.com/inodb/regsnp/internal/correlate"
	"github.com/inodb/regsnp/internal/enrich"
	"github.com/inodb/regsnp/internal/regions"
)

// Corr is the correlation evidence attached to a row.
type Corr struct {
	Feature     string
	Coefficient float64
	PValue      float64
	N           int
	Relation    string
	Defined     bool
}

// NA is the evidence of a skipped or missing correlation.
var NA = Corr{Coefficient: math.NaN(), PValue: math.NaN(), Relation: string(correlate.UndefinedRelation)}

// FromRecord converts a computed correlation.
func FromRecord(r correlate.Record) Corr {
	return Corr{
		Feature:     r.Feature,
		Coefficient: r.Coefficient,
		PValue:      r.PValue,
		N:           r.N,
		Relation:    string(r.Relation()),
		Defined:     r.Defined,
	}
}

// Correlations supplies correlation evidence by key.
type Correlations interface {
	SignalExpression(region, gene string) (Corr, bool)
	GenotypeExpression(snp, gene string) (Corr, bool)
	GenotypeSignal(snp, region, gene string) (Corr, bool)
}

// Row is one SNP x region x gene x evidence line of a final table.
type Row struct {
	SNP    string
	Chrom  string
	Pos    int64
	Ref    string
	Alt    string
	Kind   regions.Kind
	Region string

	Gene     string
	Evidence assign.Evidence
	Strength float64

	CohortFreq float64
	RefFreq    float64
	PValue     float64
	QValue     float64

	SignalExpression   Corr
	GenotypeExpression Corr
	GenotypeSignal     Corr
}

// key identifies a row for exact-duplicate removal.
func (r Row) key() string {
	return strings.Join([]string{
		r.SNP, string(r.Kind), r.Region, r.Gene, string(r.Evidence), assign.FormatFloat(r.Strength),
		r.SignalExpression.Feature, r.GenotypeExpression.Feature, r.GenotypeSignal.Feature,
	}, "|")
}

// Merge joins assignments with their enrichment result and, unless corr
// is nil, their correlation evidence. Exact duplicates are dropped and
// rows are sorted by position, region, gene and evidence.
func Merge(as []assign.Assignment, results []*enrich.Result, corr Correlations) []Row {
	enriched := make(map[string]*enrich.Result, len(results))
	for _, r := range results {
		enriched[string(r.Kind)+"|"+r.Key()] = r
	}

	var rows []Row
	seen := make(map[string]bool)
	for _, a := range as {
		v := a.Variant
		row := Row{
			SNP:      a.SNP(),
			Chrom:    v.NormalizeChrom(),
			Pos:      v.Pos,
			Ref:      v.Ref,
			Alt:      v.Alt,
			Kind:     a.Region.Kind,
			Region:   a.Region.Key(),
			Gene:     a.Gene,
			Evidence: a.Evidence,
			Strength: a.Strength,

			CohortFreq: math.NaN(),
			RefFreq:    math.NaN(),
			PValue:     math.NaN(),
			QValue:     math.NaN(),

			SignalExpression:   NA,
			GenotypeExpression: NA,
			GenotypeSignal:     NA,
		}
		if e, ok := enriched[string(a.Region.Kind)+"|"+row.SNP]; ok {
			row.CohortFreq, row.RefFreq = e.CohortFreq, e.RefFreq
			row.PValue, row.QValue = e.PValue, e.QValue
		}

		if corr != nil {
			if c, ok := corr.SignalExpression(row.Region, row.Gene); ok {
				row.SignalExpression = c
			}
			if c, ok := corr.GenotypeExpression(row.SNP, row.Gene); ok {
				row.GenotypeExpression = c
			}
			signalGene := ""
			if row.Kind == regions.Promoter {
				signalGene = row.Gene
			}
			if c, ok := corr.GenotypeSignal(row.SNP, row.Region, signalGene); ok {
				row.GenotypeSignal = c
			}
		}

		if k := row.key(); !seen[k] {
			seen[k] = true
			rows = append(rows, row)
		}
	}

	sortRows(rows)
	return rows
}

var evidenceOrder = map[assign.Evidence]int{assign.Direct: 0, assign.Intronic: 1, assign.Nearest: 2, assign.Contact: 3}

func sortRows(rows []Row) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		switch {
		case a.Chrom != b.Chrom:
			return a.Chrom < b.Chrom
		case a.Pos != b.Pos:
			return a.Pos < b.Pos
		case a.Alt != b.Alt:
			return a.Alt < b.Alt
		case a.Region != b.Region:
			return a.Region < b.Region
		case a.Evidence != b.Evidence:
			return evidenceOrder[a.Evidence] < evidenceOrder[b.Evidence]
		}
		return a.Gene < b.Gene
	})
}

// Split partitions rows by element kind.
func Split(rows []Row) (promoters, enhancers []Row) {
	for _, r := range rows {
		if r.Kind == regions.Promoter {
			promoters = append(promoters, r)
		} else {
			enhancers = append(enhancers, r)
		}
	}
	return promoters, enhancers
}
