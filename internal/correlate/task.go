package correlate

import (
	"math"

	"github.com/inodb/regsnp/internal/assign"
	"github.com/inodb/regsnp/internal/matrix"
	"github.com/inodb/regsnp/internal/regions"
)

// Kind is the relationship a correlation measures.
type Kind string

const (
	SignalExpression   Kind = "signal-expression"
	GenotypeExpression Kind = "genotype-expression"
	GenotypeSignal     Kind = "genotype-signal"
)

// Task is one independent correlation to compute.
type Task struct {
	Kind    Kind
	SNP     string // variant key; empty for signal-expression
	Region  string // region key; empty for genotype-expression
	Gene    string
	Feature string // matrix row used, when a gene has several
	X, Y    matrix.Series
}

// Record is a computed task.
type Record struct {
	Kind    Kind
	SNP     string
	Region  string
	Gene    string
	Feature string
	Result
}

// Sources holds the matrices correlations are drawn from. Enhancer signal
// is region-keyed; promoter signal and expression are feature-keyed. Any
// of them may be nil.
type Sources struct {
	EnhancerSignal *matrix.Matrix
	PromoterSignal *matrix.Matrix
	Expression     *matrix.Matrix
}

// signalFeatures returns the signal rows for a region and one of its genes.
func (s Sources) signalFeatures(region *regions.Region, gene string) []matrix.Feature {
	if region.Kind == regions.Enhancer {
		if row, ok := s.EnhancerSignal.Region(region); ok {
			return []matrix.Feature{{ID: region.Key(), Gene: gene, Series: row}}
		}
		return nil
	}
	return s.PromoterSignal.Gene(gene)
}

// SignalExpressionTasks pairs the signal of each element with the
// expression of each candidate gene. When the signal and expression rows
// of a gene share feature IDs only matching features are paired; otherwise
// every combination is.
func (s Sources) SignalExpressionTasks(pairs []assign.Pair) []Task {
	var tasks []Task
	for _, p := range pairs {
		signal := s.signalFeatures(p.Region, p.Gene)
		expr := s.Expression.Gene(p.Gene)
		if len(signal) == 0 || len(expr) == 0 {
			tasks = append(tasks, Task{Kind: SignalExpression, Region: p.Region.Key(), Gene: p.Gene})
			continue
		}

		matched := matchFeatures(signal, expr)
		for _, m := range matched {
			tasks = append(tasks, Task{
				Kind:    SignalExpression,
				Region:  p.Region.Key(),
				Gene:    p.Gene,
				Feature: m[1].ID,
				X:       m[0].Series,
				Y:       m[1].Series,
			})
		}
	}
	return tasks
}

func matchFeatures(a, b []matrix.Feature) [][2]matrix.Feature {
	ids := make(map[string]matrix.Feature, len(b))
	for _, f := range b {
		ids[f.ID] = f
	}
	var out [][2]matrix.Feature
	for _, f := range a {
		if g, ok := ids[f.ID]; ok {
			out = append(out, [2]matrix.Feature{f, g})
		}
	}
	if len(out) > 0 {
		return out
	}
	for _, f := range a {
		for _, g := range b {
			out = append(out, [2]matrix.Feature{f, g})
		}
	}
	return out
}

// GenotypeExpressionTasks correlates each variant's dosage with the
// expression of each gene it is assigned to, once per (SNP, gene).
func (s Sources) GenotypeExpressionTasks(as []assign.Assignment, dosage map[string]matrix.Series) []Task {
	var tasks []Task
	seen := make(map[string]bool)
	for _, a := range as {
		k := a.SNP() + "|" + a.Gene
		if seen[k] {
			continue
		}
		seen[k] = true

		g, ok := dosage[a.SNP()]
		expr := s.Expression.Gene(a.Gene)
		if !ok || len(expr) == 0 {
			tasks = append(tasks, Task{Kind: GenotypeExpression, SNP: a.SNP(), Gene: a.Gene})
			continue
		}
		for _, f := range expr {
			tasks = append(tasks, Task{
				Kind: GenotypeExpression, SNP: a.SNP(), Gene: a.Gene, Feature: f.ID,
				X: g, Y: f.Series,
			})
		}
	}
	return tasks
}

// GenotypeSignalTasks correlates each variant's dosage with the signal of
// the element it falls in. Enhancers use their own row; promoters use the
// signal rows of their assigned genes.
func (s Sources) GenotypeSignalTasks(as []assign.Assignment, dosage map[string]matrix.Series) []Task {
	var tasks []Task
	seen := make(map[string]bool)
	for _, a := range as {
		k := a.SNP() + "|" + a.Region.Key()
		if a.Region.Kind == regions.Promoter {
			k += "|" + a.Gene
		}
		if seen[k] {
			continue
		}
		seen[k] = true

		g, ok := dosage[a.SNP()]
		signal := s.signalFeatures(a.Region, a.Gene)
		gene := ""
		if a.Region.Kind == regions.Promoter {
			gene = a.Gene
		}
		if !ok || len(signal) == 0 {
			tasks = append(tasks, Task{Kind: GenotypeSignal, SNP: a.SNP(), Region: a.Region.Key(), Gene: gene})
			continue
		}
		for _, f := range signal {
			tasks = append(tasks, Task{
				Kind: GenotypeSignal, SNP: a.SNP(), Region: a.Region.Key(), Gene: gene, Feature: f.ID,
				X: g, Y: f.Series,
			})
		}
	}
	return tasks
}

// Index finds the strongest record for a relationship key. Among several
// features the record with the smallest defined p-value wins.
type Index struct {
	best map[string]Record
}

// NewIndex indexes records.
func NewIndex(records []Record) *Index {
	idx := &Index{best: make(map[string]Record)}
	for _, r := range records {
		k := indexKey(r.Kind, r.SNP, r.Region, r.Gene)
		if cur, ok := idx.best[k]; !ok || better(r, cur) {
			idx.best[k] = r
		}
	}
	return idx
}

func better(a, b Record) bool {
	switch {
	case a.Defined && !b.Defined:
		return true
	case !a.Defined:
		return false
	}
	return a.PValue < b.PValue
}

func indexKey(kind Kind, snp, region, gene string) string {
	return string(kind) + "|" + snp + "|" + region + "|" + gene
}

// SignalExpression returns the record for an element and gene.
func (idx *Index) SignalExpression(region, gene string) (Record, bool) {
	return idx.get(indexKey(SignalExpression, "", region, gene))
}

// GenotypeExpression returns the record for a variant and gene.
func (idx *Index) GenotypeExpression(snp, gene string) (Record, bool) {
	return idx.get(indexKey(GenotypeExpression, snp, "", gene))
}

// GenotypeSignal returns the record for a variant and element. gene is
// only used for promoters.
func (idx *Index) GenotypeSignal(snp, region, gene string) (Record, bool) {
	return idx.get(indexKey(GenotypeSignal, snp, region, gene))
}

func (idx *Index) get(k string) (Record, bool) {
	if idx == nil {
		return Record{Result: Undefined(0)}, false
	}
	r, ok := idx.best[k]
	if !ok {
		return Record{Result: Undefined(0)}, false
	}
	return r, true
}

// Lookup adapts the index to assign.SignalLookup.
func (idx *Index) Lookup(region *regions.Region, gene string) (float64, string) {
	r, ok := idx.SignalExpression(region.Key(), gene)
	if !ok {
		return math.NaN(), string(UndefinedRelation)
	}
	return r.PValue, string(r.Relation())
}
