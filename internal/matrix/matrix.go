// Package matrix reads sample-keyed numeric tables: regulatory-activity
// signal per region or feature, and gene expression per transcript.
package matrix

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/csimplestring/go-csv/detector"

	"github.com/inodb/regsnp/internal/regions"
	"github.com/inodb/regsnp/internal/vcf"
)

// Keying is how the rows of a matrix are identified.
type Keying int

const (
	// ByRegion rows carry chr, start and end columns.
	ByRegion Keying = iota
	// ByFeature rows carry a transcript or gene identifier.
	ByFeature
)

func (k Keying) String() string {
	if k == ByRegion {
		return "region"
	}
	return "feature"
}

// Feature is one row of a feature-keyed matrix.
type Feature struct {
	ID     string
	Gene   string
	Series Series
}

// Matrix holds numeric values for rows x samples.
type Matrix struct {
	Keying  Keying
	Samples []string

	ids    []string
	genes  []string
	values [][]float64
	byID   map[string]int
	byGene map[string][]int

	// Unparsable counts non-empty cells that were not numbers.
	Unparsable int
}

// Rows returns the number of rows.
func (m *Matrix) Rows() int {
	return len(m.ids)
}

// IDs returns the row identifiers in file order.
func (m *Matrix) IDs() []string {
	return m.ids
}

// Row returns the series of a row by its identifier. Region-keyed rows are
// identified by regions.FormatKey.
func (m *Matrix) Row(id string) (Series, bool) {
	if m == nil {
		return Series{}, false
	}
	i, ok := m.byID[id]
	if !ok {
		return Series{}, false
	}
	return m.series(i), true
}

// Region returns the series of the row matching region.
func (m *Matrix) Region(r *regions.Region) (Series, bool) {
	return m.Row(r.Key())
}

// Gene returns every feature row that maps to gene, in file order.
func (m *Matrix) Gene(gene string) []Feature {
	if m == nil {
		return nil
	}
	var out []Feature
	for _, i := range m.byGene[gene] {
		out = append(out, Feature{ID: m.ids[i], Gene: m.genes[i], Series: m.series(i)})
	}
	return out
}

// GeneOf returns the gene of a feature row.
func (m *Matrix) GeneOf(id string) string {
	if i, ok := m.byID[id]; ok {
		return m.genes[i]
	}
	return ""
}

func (m *Matrix) series(i int) Series {
	return Series{Samples: m.Samples, Values: m.values[i]}
}

// GeneFromFeature maps a "transcript/gene" identifier to the gene after the
// last slash; identifiers without a slash are returned unchanged.
func GeneFromFeature(id string) string {
	if i := strings.LastIndex(id, "/"); i >= 0 {
		return id[i+1:]
	}
	return id
}

// Load reads a matrix file (plain or gzip). The delimiter is detected from
// the leading bytes. Region keying is chosen when the header names chr,
// start and end columns; otherwise the "Transcript" column (or the first
// column) identifies features.
func Load(path string) (*Matrix, error) {
	in, err := vcf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open matrix: %w", err)
	}
	defer in.Close()

	head, err := in.Peek(64 * 1024)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read matrix %s: %w", path, err)
	}

	m, err := Parse(in, DetectDelimiter(head))
	if err != nil {
		return nil, fmt.Errorf("matrix %s: %w", path, err)
	}
	return m, nil
}

// DetectDelimiter returns the most likely delimiter of a CSV-like sample.
// Only comma, tab, semicolon and pipe are accepted; when the detector is
// undecided the header line settles between tab and comma.
func DetectDelimiter(sample []byte) rune {
	header, _, _ := strings.Cut(string(sample), "\n")

	var best rune
	bestN := 0
	for _, c := range detector.New().DetectDelimiter(bytes.NewReader(sample), '"') {
		if len(c) == 0 || !strings.ContainsRune(",\t;|", rune(c[0])) {
			continue
		}
		if n := strings.Count(header, c[:1]); n > bestN {
			best, bestN = rune(c[0]), n
		}
	}
	if best != 0 {
		return best
	}
	if strings.Contains(header, "\t") {
		return '\t'
	}
	return ','
}

// Parse reads a delimited matrix from r.
func Parse(r io.Reader, delim rune) (*Matrix, error) {
	cr := csv.NewReader(r)
	cr.Comma = delim
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	m := &Matrix{byID: make(map[string]int), byGene: make(map[string][]int)}
	keyCols, err := m.layout(header)
	if err != nil {
		return nil, err
	}

	sampleCols := make([]int, 0, len(header))
	skip := make(map[int]bool, len(keyCols))
	for _, c := range keyCols {
		skip[c] = true
	}
	for i, h := range header {
		if skip[i] || h == "" {
			continue
		}
		sampleCols = append(sampleCols, i)
		m.Samples = append(m.Samples, h)
	}
	if len(m.Samples) == 0 {
		return nil, fmt.Errorf("no sample columns")
	}

	line := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}

		id, gene, err := m.rowKey(rec, keyCols)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if _, dup := m.byID[id]; dup {
			return nil, fmt.Errorf("line %d: duplicate row %s", line, id)
		}

		values := make([]float64, len(sampleCols))
		for j, c := range sampleCols {
			values[j] = m.cell(rec, c)
		}

		m.byID[id] = len(m.ids)
		m.byGene[gene] = append(m.byGene[gene], len(m.ids))
		m.ids = append(m.ids, id)
		m.genes = append(m.genes, gene)
		m.values = append(m.values, values)
	}
	return m, nil
}

// layout picks the keying from the header and returns the key columns.
func (m *Matrix) layout(header []string) ([]int, error) {
	find := func(names ...string) int {
		for i, h := range header {
			for _, n := range names {
				if strings.EqualFold(h, n) {
					return i
				}
			}
		}
		return -1
	}

	chr, start, end := find("chr", "chrom", "chromosome", "#chr"), find("start"), find("end")
	if chr >= 0 && start >= 0 && end >= 0 {
		m.Keying = ByRegion
		return []int{chr, start, end}, nil
	}

	m.Keying = ByFeature
	if c := find("transcript", "gene", "feature", "id"); c >= 0 {
		return []int{c}, nil
	}
	if len(header) < 2 {
		return nil, fmt.Errorf("header has no identifier column")
	}
	return []int{0}, nil
}

func (m *Matrix) rowKey(rec []string, keyCols []int) (id, gene string, err error) {
	for _, c := range keyCols {
		if c >= len(rec) {
			return "", "", fmt.Errorf("missing key column %d", c+1)
		}
	}

	if m.Keying == ByFeature {
		id = strings.TrimSpace(rec[keyCols[0]])
		if id == "" {
			return "", "", fmt.Errorf("empty identifier")
		}
		return id, GeneFromFeature(id), nil
	}

	start, err := strconv.ParseInt(strings.TrimSpace(rec[keyCols[1]]), 10, 64)
	if err != nil {
		return "", "", fmt.Errorf("invalid start: %s", rec[keyCols[1]])
	}
	end, err := strconv.ParseInt(strings.TrimSpace(rec[keyCols[2]]), 10, 64)
	if err != nil {
		return "", "", fmt.Errorf("invalid end: %s", rec[keyCols[2]])
	}
	id = regions.FormatKey(vcf.NormalizeChrom(strings.TrimSpace(rec[keyCols[0]])), start, end)
	return id, id, nil
}

func (m *Matrix) cell(rec []string, c int) float64 {
	if c >= len(rec) {
		return math.NaN()
	}
	s := strings.TrimSpace(rec[c])
	switch strings.ToUpper(s) {
	case "", "NA", "NAN", ".":
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(v, 0) {
		m.Unparsable++
		return math.NaN()
	}
	return v
}

// SharedSamples returns the sorted sample names present in every matrix.
// Nil matrices are ignored. The result is nil only when no matrix was
// given; disjoint matrices give an empty, non-nil slice.
func SharedSamples(ms ...*Matrix) []string {
	counts := make(map[string]int)
	n := 0
	for _, m := range ms {
		if m == nil {
			continue
		}
		n++
		seen := make(map[string]bool)
		for _, s := range m.Samples {
			if !seen[s] {
				seen[s] = true
				counts[s]++
			}
		}
	}
	if n == 0 {
		return nil
	}
	out := []string{}
	for s, c := range counts {
		if c == n {
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}
