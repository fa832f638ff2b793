package regions

import (
	"bufio"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/inodb/regsnp/internal/vcf"
)

// Index holds the intervals of one element kind, one tree per chromosome.
type Index struct {
	Kind  Kind
	trees map[string]*IntervalTree
	count int
}

// NewIndex builds an index over regions. All regions must share kind.
func NewIndex(kind Kind, regions []*Region) *Index {
	byChrom := make(map[string][]*Region)
	for _, r := range regions {
		byChrom[r.Chrom] = append(byChrom[r.Chrom], r)
	}
	idx := &Index{Kind: kind, trees: make(map[string]*IntervalTree, len(byChrom)), count: len(regions)}
	for chrom, rs := range byChrom {
		idx.trees[chrom] = BuildIntervalTree(rs)
	}
	return idx
}

// Overlapping returns the regions containing a 1-based position. The
// chromosome may carry a "chr" prefix.
func (idx *Index) Overlapping(chrom string, pos int64) []*Region {
	if idx == nil {
		return nil
	}
	tree, ok := idx.trees[vcf.NormalizeChrom(chrom)]
	if !ok {
		return nil
	}
	return tree.FindOverlaps(pos)
}

// Len returns the number of indexed regions.
func (idx *Index) Len() int {
	if idx == nil {
		return 0
	}
	return idx.count
}

// Chromosomes returns the indexed chromosome names in sorted order.
func (idx *Index) Chromosomes() []string {
	chroms := make([]string, 0, len(idx.trees))
	for c := range idx.trees {
		chroms = append(chroms, c)
	}
	sort.Strings(chroms)
	return chroms
}

// LoadBED reads a BED file of regulatory elements. Columns are chrom,
// start, end and an optional comma-separated gene list; track, browser and
// comment lines are skipped.
func LoadBED(path string, kind Kind) (*Index, error) {
	in, err := vcf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s regions: %w", kind, err)
	}
	defer in.Close()

	var regions []*Region
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if line == "" || strings.HasPrefix(line, "#") ||
			strings.HasPrefix(line, "track") || strings.HasPrefix(line, "browser") {
			continue
		}

		r, err := parseBEDLine(line, kind)
		if err != nil {
			return nil, &ParseError{Path: path, Line: lineNum, Message: err.Error()}
		}
		regions = append(regions, r)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan %s: %w", path, err)
	}

	return NewIndex(kind, regions), nil
}

func parseBEDLine(line string, kind Kind) (*Region, error) {
	fields := strings.Split(line, "\t")
	if len(fields) < 3 {
		return nil, fmt.Errorf("expected at least 3 columns, found %d", len(fields))
	}
	start, err := strconv.ParseInt(strings.TrimSpace(fields[1]), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid start: %s", fields[1])
	}
	end, err := strconv.ParseInt(strings.TrimSpace(fields[2]), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid end: %s", fields[2])
	}
	if end < start {
		return nil, fmt.Errorf("end %d before start %d", end, start)
	}

	r := &Region{
		Kind:  kind,
		Chrom: vcf.NormalizeChrom(strings.TrimSpace(fields[0])),
		Start: start,
		End:   end,
	}
	if len(fields) >= 4 {
		r.Genes = ParseGenes(fields[3])
	}
	return r, nil
}

// ParseError reports a malformed line in a tabular input.
type ParseError struct {
	Path    string
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: parse error at line %d: %s", e.Path, e.Line, e.Message)
}
