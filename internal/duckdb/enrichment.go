package duckdb

import (
	"database/sql/driver"
	"fmt"

	"github.com/inodb/regsnp/internal/enrich"
	"github.com/inodb/regsnp/internal/report"
)

// EnrichmentRecord is one stored enrichment test.
type EnrichmentRecord struct {
	SNP         string
	Element     string
	Regions     string
	AltCount    int
	TotalCount  int
	CohortFreq  float64
	RefFreq     float64
	PValue      float64 // NaN for undefined tests
	QValue      float64
	Defined     bool
	Significant bool
}

// WriteEnrichment replaces the stored enrichment results with every tested
// variant of both element kinds, undefined tests included.
func (s *Store) WriteEnrichment(res *enrich.Results) error {
	if _, err := s.db.Exec("DELETE FROM enrichment"); err != nil {
		return fmt.Errorf("clear enrichment: %w", err)
	}
	all := append(append([]*enrich.Result(nil), res.Promoters...), res.Enhancers...)
	if len(all) == 0 {
		return nil
	}

	return s.appendRows("enrichment", len(all), func(i int) []driver.Value {
		r := all[i]
		v := r.Variant
		return []driver.Value{
			r.Key(), v.NormalizeChrom(), v.Pos, v.Ref, v.Alt, string(r.Kind), report.RegionKeys(r),
			int32(r.AltCount), int32(r.TotalCount),
			nullable(r.CohortFreq), nullable(r.RefFreq), nullable(r.PValue), nullable(r.QValue),
			r.Defined, r.Significant,
		}
	})
}

// Enrichment returns the stored tests of one element kind ordered by
// p-value, undefined tests last.
func (s *Store) Enrichment(element string) ([]EnrichmentRecord, error) {
	rows, err := s.db.Query(`SELECT snp, element, regions, alt_count, total_count,
		cohort_af, reference_af, pvalue, qvalue, defined, significant
		FROM enrichment WHERE element = ?
		ORDER BY pvalue NULLS LAST, snp`, element)
	if err != nil {
		return nil, fmt.Errorf("query enrichment: %w", err)
	}
	defer rows.Close()

	var out []EnrichmentRecord
	for rows.Next() {
		var r EnrichmentRecord
		var cohort, ref, pval, qval nullFloat
		if err := rows.Scan(&r.SNP, &r.Element, &r.Regions, &r.AltCount, &r.TotalCount,
			&cohort, &ref, &pval, &qval, &r.Defined, &r.Significant); err != nil {
			return nil, fmt.Errorf("scan enrichment: %w", err)
		}
		r.CohortFreq, r.RefFreq = cohort.value(), ref.value()
		r.PValue, r.QValue = pval.value(), qval.value()
		out = append(out, r)
	}
	return out, rows.Err()
}
