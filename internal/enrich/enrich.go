// Package enrich tests cohort alternate-allele frequency against a
// reference population with an exact binomial test and controls the false
// discovery rate with Benjamini-Hochberg.
package enrich

import (
	"math"
	"sort"

	"github.com/inodb/regsnp/internal/config"
	"github.com/inodb/regsnp/internal/regions"
	"github.com/inodb/regsnp/internal/vcf"
)

// Result is the enrichment outcome of one variant within one region kind.
type Result struct {
	Variant *vcf.Variant
	Kind    regions.Kind
	Regions []*regions.Region // overlapping regions of Kind

	AltCount   int
	TotalCount int
	CohortFreq float64 // NaN when TotalCount is zero
	RefFreq    float64 // NaN when the reference frequency is missing

	PValue      float64 // NaN when undefined
	QValue      float64 // NaN when undefined
	Defined     bool
	Significant bool
}

// Key returns the variant key.
func (r *Result) Key() string {
	return r.Variant.Key()
}

// Results holds the two partitions produced by Run.
type Results struct {
	Promoters []*Result
	Enhancers []*Result

	// Skipped counts variants without an overlapping region or with more
	// than one alternate allele.
	Skipped int
}

// SignificantPromoters returns the significant promoter-linked results.
func (rs *Results) SignificantPromoters() []*Result { return significant(rs.Promoters) }

// SignificantEnhancers returns the significant enhancer-linked results.
func (rs *Results) SignificantEnhancers() []*Result { return significant(rs.Enhancers) }

func significant(in []*Result) []*Result {
	var out []*Result
	for _, r := range in {
		if r.Significant {
			out = append(out, r)
		}
	}
	return out
}

// Test computes the binomial p-value of one variant. It returns
// ok == false for undefined tests (no called alleles or no reference
// frequency).
func Test(v *vcf.Variant, cfg config.Config) (alt, total int, refFreq, p float64, ok bool) {
	alt, total = v.AlleleCounts()
	refFreq, hasRef := v.Frequency(cfg.FrequencyKey(cfg.ReferencePopulation))
	if !hasRef {
		refFreq = math.NaN()
	}
	if total == 0 || !hasRef || refFreq < 0 || refFreq > 1 {
		return alt, total, refFreq, math.NaN(), false
	}

	if cfg.Alternative == config.AlternativeTwoSided {
		p = BinomialTwoSided(alt, total, refFreq)
	} else {
		p = BinomialGreater(alt, total, refFreq)
	}
	return alt, total, refFreq, p, true
}

// Run tests every biallelic variant overlapping a promoter or enhancer.
// A variant overlapping both kinds appears in both partitions. Output
// within each partition is sorted by ascending p-value, undefined tests
// last, then by variant key.
func Run(variants []*vcf.Variant, promoters, enhancers *regions.Index, cfg config.Config) *Results {
	out := &Results{}
	for _, v := range variants {
		if !v.IsBiallelic() {
			out.Skipped++
			continue
		}
		prom := promoters.Overlapping(v.Chrom, v.Pos)
		enh := enhancers.Overlapping(v.Chrom, v.Pos)
		if len(prom) == 0 && len(enh) == 0 {
			out.Skipped++
			continue
		}

		alt, total, refFreq, p, ok := Test(v, cfg)
		cohort := math.NaN()
		if total > 0 {
			cohort = float64(alt) / float64(total)
		}
		mk := func(kind regions.Kind, rs []*regions.Region) *Result {
			return &Result{
				Variant: v, Kind: kind, Regions: rs,
				AltCount: alt, TotalCount: total, CohortFreq: cohort, RefFreq: refFreq,
				PValue: p, QValue: math.NaN(), Defined: ok,
			}
		}
		if len(prom) > 0 {
			out.Promoters = append(out.Promoters, mk(regions.Promoter, prom))
		}
		if len(enh) > 0 {
			out.Enhancers = append(out.Enhancers, mk(regions.Enhancer, enh))
		}
	}

	switch cfg.BHScope {
	case config.ScopeGlobal:
		adjustGlobal(out.Promoters, out.Enhancers)
	default:
		adjust(out.Promoters)
		adjust(out.Enhancers)
	}

	for _, part := range [][]*Result{out.Promoters, out.Enhancers} {
		for _, r := range part {
			r.Significant = r.Defined && Significant(r.QValue, cfg.Alpha)
		}
		sortResults(part)
	}
	return out
}

func adjust(rs []*Result) {
	p := make([]float64, len(rs))
	for i, r := range rs {
		p[i] = r.PValue
	}
	for i, q := range BenjaminiHochberg(p) {
		rs[i].QValue = q
	}
}

// adjustGlobal corrects across both partitions, counting a variant that
// overlaps both kinds as one hypothesis.
func adjustGlobal(parts ...[]*Result) {
	index := make(map[string]int)
	var p []float64
	for _, part := range parts {
		for _, r := range part {
			if _, seen := index[r.Key()]; !seen {
				index[r.Key()] = len(p)
				p = append(p, r.PValue)
			}
		}
	}
	q := BenjaminiHochberg(p)
	for _, part := range parts {
		for _, r := range part {
			r.QValue = q[index[r.Key()]]
		}
	}
}

func sortResults(rs []*Result) {
	sort.SliceStable(rs, func(i, j int) bool {
		a, b := rs[i], rs[j]
		if a.Defined != b.Defined {
			return a.Defined
		}
		if a.Defined && a.PValue != b.PValue {
			return a.PValue < b.PValue
		}
		return a.Key() < b.Key()
	})
}
