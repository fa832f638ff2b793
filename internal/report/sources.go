package report

import (
	"math"

	"github.com/inodb/regsnp/internal/assign"
	"github.com/inodb/regsnp/internal/correlate"
)

// IndexCorrelations serves evidence computed in this run.
type IndexCorrelations struct {
	Index *correlate.Index
}

// SignalExpression returns the strongest signal-expression record of a
// region and gene.
func (c IndexCorrelations) SignalExpression(region, gene string) (Corr, bool) {
	r, ok := c.Index.SignalExpression(region, gene)
	return FromRecord(r), ok
}

// GenotypeExpression returns the strongest genotype-expression record of a
// variant and gene.
func (c IndexCorrelations) GenotypeExpression(snp, gene string) (Corr, bool) {
	r, ok := c.Index.GenotypeExpression(snp, gene)
	return FromRecord(r), ok
}

// GenotypeSignal returns the strongest genotype-signal record of a variant
// and region. gene is empty for enhancers.
func (c IndexCorrelations) GenotypeSignal(snp, region, gene string) (Corr, bool) {
	r, ok := c.Index.GenotypeSignal(snp, region, gene)
	return FromRecord(r), ok
}

// TableCorrelations prefers signal-expression evidence recorded in a
// persisted assignment table and defers everything else to Correlations.
type TableCorrelations struct {
	Correlations
	Table *assign.Table
}

// SignalExpression returns the table's p-value and relation for a listed
// pair. The coefficient is not stored and stays NaN.
func (c TableCorrelations) SignalExpression(region, gene string) (Corr, bool) {
	if p, rel, ok := c.Table.Signal(region, gene); ok {
		return Corr{
			Coefficient: math.NaN(),
			PValue:      p,
			Relation:    rel,
			Defined:     !math.IsNaN(p),
		}, true
	}
	return c.Correlations.SignalExpression(region, gene)
}
