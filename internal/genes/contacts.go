package genes

import (
	"bufio"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/biogo/store/interval"

	"github.com/inodb/regsnp/internal/vcf"
)

// anchor is one contact end linked to a gene, stored in a biogo interval
// tree. Coordinates are 0-based half-open.
type anchor struct {
	start, end int
	uid        uintptr
	gene       string
	score      float64
}

func (a anchor) Overlap(b interval.IntRange) bool {
	return a.start < b.End && b.Start < a.end
}

func (a anchor) ID() uintptr { return a.uid }

func (a anchor) Range() interval.IntRange {
	return interval.IntRange{Start: a.start, End: a.end}
}

// query is a half-open query interval.
type query struct{ start, end int }

func (q query) Overlap(b interval.IntRange) bool {
	return q.start < b.End && b.Start < q.end
}

// Link is a gene physically linked to a queried interval.
type Link struct {
	Gene  string
	Score float64
}

// Contacts answers which genes are in 3-D contact with an interval.
type Contacts struct {
	trees map[string]*interval.IntTree
	count int
}

// NewContacts returns an empty contact index.
func NewContacts() *Contacts {
	return &Contacts{trees: make(map[string]*interval.IntTree)}
}

// Add links the anchor chrom:[start,end) to gene with score.
func (c *Contacts) Add(chrom string, start, end int64, gene string, score float64) error {
	chrom = vcf.NormalizeChrom(chrom)
	tree, ok := c.trees[chrom]
	if !ok {
		tree = &interval.IntTree{}
		c.trees[chrom] = tree
	}
	c.count++
	a := anchor{start: int(start), end: int(end), uid: uintptr(c.count), gene: gene, score: score}
	if err := tree.Insert(a, false); err != nil {
		return fmt.Errorf("insert contact %s:%d-%d: %w", chrom, start, end, err)
	}
	return nil
}

// Len returns the number of gene-linked anchors.
func (c *Contacts) Len() int {
	if c == nil {
		return 0
	}
	return c.count
}

// Linked returns the genes whose contact anchor overlaps [start, end) on
// chrom. A gene reached by several contacts keeps its maximum score.
// Links are sorted by gene name.
func (c *Contacts) Linked(chrom string, start, end int64) []Link {
	if c == nil {
		return nil
	}
	tree, ok := c.trees[vcf.NormalizeChrom(chrom)]
	if !ok {
		return nil
	}

	best := make(map[string]float64)
	for _, hit := range tree.Get(query{start: int(start), end: int(end)}) {
		a := hit.(anchor)
		if s, seen := best[a.gene]; !seen || a.score > s {
			best[a.gene] = a.score
		}
	}

	links := make([]Link, 0, len(best))
	for g, s := range best {
		links = append(links, Link{Gene: g, Score: s})
	}
	sort.Slice(links, func(i, j int) bool { return links[i].Gene < links[j].Gene })
	return links
}

// LoadContacts reads chromatin contacts. Two layouts are recognized per
// line:
//
//	BEDPE:           chrA startA endA chrB startB endB [name] [score]
//	gene-linked BED: chrom start end gene [score]
//
// A BEDPE contact links each anchor to the genes whose TSS lies in the
// opposite anchor, which requires ann. A missing score counts as 1.
func LoadContacts(path string, ann *Annotation) (*Contacts, error) {
	in, err := vcf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open contacts: %w", err)
	}
	defer in.Close()

	c := NewContacts()
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "track") {
			continue
		}
		fields := strings.Split(line, "\t")

		if isBEDPE(fields) {
			err = c.addBEDPE(fields, ann)
		} else {
			err = c.addGeneBED(fields)
		}
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, lineNum, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan contacts: %w", err)
	}
	return c, nil
}

func isBEDPE(fields []string) bool {
	if len(fields) < 6 {
		return false
	}
	for _, i := range []int{1, 2, 4, 5} {
		if _, err := strconv.ParseInt(fields[i], 10, 64); err != nil {
			return false
		}
	}
	return true
}

func (c *Contacts) addBEDPE(fields []string, ann *Annotation) error {
	if ann == nil {
		return fmt.Errorf("BEDPE contacts require gene annotation")
	}
	a, err := parseSpan(fields[0], fields[1], fields[2])
	if err != nil {
		return err
	}
	b, err := parseSpan(fields[3], fields[4], fields[5])
	if err != nil {
		return err
	}
	score := 1.0
	if len(fields) >= 8 {
		if score, err = parseScore(fields[7]); err != nil {
			return err
		}
	}

	for _, pair := range [][2]span{{a, b}, {b, a}} {
		near, far := pair[0], pair[1]
		for _, g := range ann.TSSWithin(far.chrom, far.start, far.end) {
			if err := c.Add(near.chrom, near.start, near.end, g.Name, score); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *Contacts) addGeneBED(fields []string) error {
	if len(fields) < 4 {
		return fmt.Errorf("expected chrom, start, end and gene columns, found %d columns", len(fields))
	}
	s, err := parseSpan(fields[0], fields[1], fields[2])
	if err != nil {
		return err
	}
	score := 1.0
	if len(fields) >= 5 {
		if score, err = parseScore(fields[4]); err != nil {
			return err
		}
	}
	gene := strings.TrimSpace(fields[3])
	if gene == "" || gene == "." {
		return nil
	}
	return c.Add(s.chrom, s.start, s.end, gene, score)
}

type span struct {
	chrom      string
	start, end int64
}

func parseSpan(chrom, start, end string) (span, error) {
	s, err := strconv.ParseInt(start, 10, 64)
	if err != nil {
		return span{}, fmt.Errorf("invalid start: %s", start)
	}
	e, err := strconv.ParseInt(end, 10, 64)
	if err != nil {
		return span{}, fmt.Errorf("invalid end: %s", end)
	}
	if e < s {
		return span{}, fmt.Errorf("end %d before start %d", e, s)
	}
	return span{chrom: vcf.NormalizeChrom(chrom), start: s, end: e}, nil
}

func parseScore(s string) (float64, error) {
	if s == "." || s == "" {
		return 1, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid score: %s", s)
	}
	return v, nil
}
