package assign

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"

	"github.com/inodb/regsnp/internal/regions"
	"github.com/inodb/regsnp/internal/vcf"
)

// TableFileName is the file name of the persisted enhancer-gene table.
const TableFileName = "assigned_genes_to_enhancers.csv"

// RequiredColumns must all be present for a persisted table to be trusted.
var RequiredColumns = []string{
	"enh_chrom", "enh_start", "enh_end", "gene", "genomic_element",
	"evidence", "signal_expression_pvalue", "relation",
}

// Row is one line of the persisted enhancer-gene table. Numeric columns
// that may be undefined are kept as text and written as "NA".
type Row struct {
	Chrom          string `csv:"enh_chrom"`
	Start          int64  `csv:"enh_start"`
	End            int64  `csv:"enh_end"`
	Gene           string `csv:"gene"`
	GenomicElement string `csv:"genomic_element"`
	Evidence       string `csv:"evidence"`
	Strength       string `csv:"evidence_strength"`
	PValue         string `csv:"signal_expression_pvalue"`
	Relation       string `csv:"relation"`
}

// RegionKey returns the key of the row's region.
func (r Row) RegionKey() string {
	return regions.FormatKey(vcf.NormalizeChrom(r.Chrom), r.Start, r.End)
}

// Table is the enhancer-gene assignment table with its signal-expression
// evidence.
type Table struct {
	Rows []Row
}

// SignalLookup returns the signal-expression p-value and relation of a
// (region, gene) pair.
type SignalLookup func(region *regions.Region, gene string) (p float64, relation string)

// NewTable builds one row per distinct (region, gene, evidence) among
// enhancer assignments.
func NewTable(as []Assignment, lookup SignalLookup) *Table {
	t := &Table{}
	seen := make(map[string]bool)
	for _, a := range as {
		k := a.Region.Key() + "|" + a.Gene + "|" + string(a.Evidence)
		if seen[k] {
			continue
		}
		seen[k] = true

		p, rel := math.NaN(), "undefined"
		if lookup != nil {
			p, rel = lookup(a.Region, a.Gene)
		}
		t.Rows = append(t.Rows, Row{
			Chrom:          a.Region.Chrom,
			Start:          a.Region.Start,
			End:            a.Region.End,
			Gene:           a.Gene,
			GenomicElement: string(a.Region.Kind),
			Evidence:       string(a.Evidence),
			Strength:       FormatFloat(a.Strength),
			PValue:         FormatFloat(p),
			Relation:       rel,
		})
	}
	return t
}

// Candidates groups the rows by region key.
func (t *Table) Candidates() map[string][]Candidate {
	out := make(map[string][]Candidate)
	for _, r := range t.Rows {
		ev, _ := ParseEvidence(r.Evidence)
		k := r.RegionKey()
		out[k] = append(out[k], Candidate{Gene: r.Gene, Evidence: ev, Strength: ParseFloat(r.Strength)})
	}
	for _, cs := range out {
		sortCandidates(cs)
	}
	return out
}

// Signal returns the recorded signal-expression evidence of a pair.
func (t *Table) Signal(regionKey, gene string) (p float64, relation string, ok bool) {
	for _, r := range t.Rows {
		if r.Gene == gene && r.RegionKey() == regionKey {
			return ParseFloat(r.PValue), r.Relation, true
		}
	}
	return math.NaN(), "", false
}

// WriteTable writes t as CSV.
func WriteTable(path string, t *Table) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create assignment table: %w", err)
	}
	if err := gocsv.MarshalFile(&t.Rows, f); err != nil {
		f.Close()
		return fmt.Errorf("write assignment table: %w", err)
	}
	return f.Close()
}

// ReadTable reads and checks a persisted table.
func ReadTable(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read assignment table: %w", err)
	}

	header, err := csv.NewReader(bytes.NewReader(data)).Read()
	if err != nil {
		return nil, fmt.Errorf("read assignment table header: %w", err)
	}
	have := make(map[string]bool, len(header))
	for _, h := range header {
		have[strings.TrimSpace(h)] = true
	}
	var missing []string
	for _, c := range RequiredColumns {
		if !have[c] {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing columns: %s", strings.Join(missing, ", "))
	}

	t := &Table{}
	if err := gocsv.UnmarshalBytes(data, &t.Rows); err != nil {
		return nil, fmt.Errorf("parse assignment table: %w", err)
	}
	for i, r := range t.Rows {
		if _, ok := ParseEvidence(r.Evidence); !ok {
			return nil, fmt.Errorf("row %d: unknown evidence %q", i+1, r.Evidence)
		}
		if r.End < r.Start {
			return nil, fmt.Errorf("row %d: end %d before start %d", i+1, r.End, r.Start)
		}
	}
	return t, nil
}

// Validation is the outcome of checking a user-supplied table.
type Validation struct {
	OK     bool
	Reason string
}

// ValidateTable reports whether the table at path can be trusted.
func ValidateTable(path string) Validation {
	if _, err := ReadTable(path); err != nil {
		return Validation{Reason: err.Error()}
	}
	return Validation{OK: true}
}

// FormatFloat renders v for a table cell; NaN becomes "NA".
func FormatFloat(v float64) string {
	if math.IsNaN(v) {
		return "NA"
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// ParseFloat is the inverse of FormatFloat. Anything unparsable is NaN.
func ParseFloat(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return math.NaN()
	}
	return v
}
