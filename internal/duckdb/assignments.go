package duckdb

import (
	"database/sql/driver"
	"fmt"
	"math"

	"github.com/inodb/regsnp/internal/assign"
)

func assignmentKey(r assign.Row) string {
	return fmt.Sprintf("%s:%d:%d:%s:%s", r.Chrom, r.Start, r.End, r.Gene, r.Evidence)
}

// WriteAssignments replaces the stored enhancer-gene assignment table.
// Rows repeating a (region, gene, evidence) key keep the first occurrence.
func (s *Store) WriteAssignments(rows []assign.Row) error {
	if _, err := s.db.Exec("DELETE FROM assignments"); err != nil {
		return fmt.Errorf("clear assignments: %w", err)
	}
	if len(rows) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(rows))
	deduped := make([]assign.Row, 0, len(rows))
	for _, r := range rows {
		k := assignmentKey(r)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		deduped = append(deduped, r)
	}

	return s.appendRows("assignments", len(deduped), func(i int) []driver.Value {
		r := deduped[i]
		return []driver.Value{
			r.Chrom, r.Start, r.End, r.Gene, r.GenomicElement, r.Evidence,
			nullable(assign.ParseFloat(r.Strength)),
			nullable(assign.ParseFloat(r.PValue)),
			r.Relation,
		}
	})
}

// AssignmentsForRegion returns the stored assignments of one region,
// ordered by gene then evidence.
func (s *Store) AssignmentsForRegion(chrom string, start, end int64) ([]assign.Row, error) {
	rows, err := s.db.Query(`SELECT chrom, start_pos, end_pos, gene, genomic_element, evidence,
		evidence_strength, signal_expression_pvalue, relation
		FROM assignments WHERE chrom = ? AND start_pos = ? AND end_pos = ?
		ORDER BY gene, evidence`, chrom, start, end)
	if err != nil {
		return nil, fmt.Errorf("query assignments: %w", err)
	}
	defer rows.Close()

	var out []assign.Row
	for rows.Next() {
		var r assign.Row
		var strength, pval nullFloat
		if err := rows.Scan(&r.Chrom, &r.Start, &r.End, &r.Gene, &r.GenomicElement, &r.Evidence,
			&strength, &pval, &r.Relation); err != nil {
			return nil, fmt.Errorf("scan assignment: %w", err)
		}
		r.Strength = assign.FormatFloat(strength.value())
		r.PValue = assign.FormatFloat(pval.value())
		out = append(out, r)
	}
	return out, rows.Err()
}

// CountAssignments returns the number of stored assignment rows.
func (s *Store) CountAssignments() (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM assignments").Scan(&n); err != nil {
		return 0, fmt.Errorf("count assignments: %w", err)
	}
	return n, nil
}

// nullFloat scans a nullable DOUBLE, reading NULL as NaN.
type nullFloat struct {
	f     float64
	valid bool
}

func (n *nullFloat) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		n.f, n.valid = math.NaN(), false
	case float64:
		n.f, n.valid = v, true
	case float32:
		n.f, n.valid = float64(v), true
	default:
		return fmt.Errorf("unexpected DOUBLE value %T", src)
	}
	return nil
}

func (n nullFloat) value() float64 {
	if !n.valid {
		return math.NaN()
	}
	return n.f
}
