package duckdb

import (
	"database/sql/driver"
	"fmt"

	"github.com/inodb/regsnp/internal/assign"
	"github.com/inodb/regsnp/internal/regions"
	"github.com/inodb/regsnp/internal/report"
)

// WriteEvidence replaces the stored final evidence rows.
func (s *Store) WriteEvidence(rows []report.Row) error {
	if _, err := s.db.Exec("DELETE FROM evidence"); err != nil {
		return fmt.Errorf("clear evidence: %w", err)
	}
	if len(rows) == 0 {
		return nil
	}

	return s.appendRows("evidence", len(rows), func(i int) []driver.Value {
		r := rows[i]
		vals := []driver.Value{
			r.SNP, r.Chrom, r.Pos, r.Ref, r.Alt, string(r.Kind), r.Region, r.Gene, string(r.Evidence),
			nullable(r.Strength), nullable(r.CohortFreq), nullable(r.RefFreq),
			nullable(r.PValue), nullable(r.QValue),
		}
		for _, c := range []report.Corr{r.SignalExpression, r.GenotypeExpression, r.GenotypeSignal} {
			vals = append(vals, c.Feature, nullable(c.Coefficient), nullable(c.PValue), c.Relation)
		}
		return vals
	})
}

// EvidenceByGene returns every stored evidence row naming gene, ordered
// by q-value with missing values last.
func (s *Store) EvidenceByGene(gene string) ([]report.Row, error) {
	rows, err := s.db.Query(`SELECT snp, chrom, pos, ref, alt, element, region, gene, evidence,
		evidence_strength, cohort_af, reference_af, pvalue, qvalue,
		se_feature, se_r, se_p, se_relation,
		ge_feature, ge_r, ge_p, ge_relation,
		gs_feature, gs_r, gs_p, gs_relation
		FROM evidence WHERE gene = ?
		ORDER BY qvalue NULLS LAST, snp, region`, gene)
	if err != nil {
		return nil, fmt.Errorf("query evidence: %w", err)
	}
	defer rows.Close()

	var out []report.Row
	for rows.Next() {
		var (
			r                     report.Row
			kind, evidence        string
			strength, cohort, ref nullFloat
			pval, qval            nullFloat
			se, ge, gs            report.Corr
			seR, seP, geR, geP    nullFloat
			gsR, gsP              nullFloat
		)
		if err := rows.Scan(&r.SNP, &r.Chrom, &r.Pos, &r.Ref, &r.Alt, &kind, &r.Region, &r.Gene, &evidence,
			&strength, &cohort, &ref, &pval, &qval,
			&se.Feature, &seR, &seP, &se.Relation,
			&ge.Feature, &geR, &geP, &ge.Relation,
			&gs.Feature, &gsR, &gsP, &gs.Relation); err != nil {
			return nil, fmt.Errorf("scan evidence: %w", err)
		}
		r.Kind = regions.Kind(kind)
		r.Evidence = assign.Evidence(evidence)
		r.Strength = strength.value()
		r.CohortFreq = cohort.value()
		r.RefFreq = ref.value()
		r.PValue = pval.value()
		r.QValue = qval.value()
		se.Coefficient, se.PValue, se.Defined = seR.value(), seP.value(), seR.valid
		ge.Coefficient, ge.PValue, ge.Defined = geR.value(), geP.value(), geR.valid
		gs.Coefficient, gs.PValue, gs.Defined = gsR.value(), gsP.value(), gsR.valid
		r.SignalExpression, r.GenotypeExpression, r.GenotypeSignal = se, ge, gs
		out = append(out, r)
	}
	return out, rows.Err()
}
