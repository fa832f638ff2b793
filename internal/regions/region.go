// Package regions loads promoter and enhancer intervals and answers which
// regulatory elements overlap a variant.
package regions

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind is the class of a regulatory element.
type Kind string

const (
	Promoter Kind = "promoter"
	Enhancer Kind = "enhancer"
)

// Region is one regulatory interval in BED coordinates (0-based, half-open).
type Region struct {
	Kind  Kind
	Chrom string // normalized, without "chr"
	Start int64
	End   int64
	Genes []string // direct annotation; empty when intergenic
}

// Key identifies the interval as chrom:start-end.
func (r Region) Key() string {
	return FormatKey(r.Chrom, r.Start, r.End)
}

// FormatKey builds the region key used to join signal rows and cached
// assignments with intervals.
func FormatKey(chrom string, start, end int64) string {
	return chrom + ":" + strconv.FormatInt(start, 10) + "-" + strconv.FormatInt(end, 10)
}

// Annotated reports whether the interval carries a direct gene annotation.
func (r Region) Annotated() bool {
	return len(r.Genes) > 0
}

// ContainsPos reports whether the 1-based position falls inside the interval.
func (r Region) ContainsPos(pos int64) bool {
	return r.Start < pos && pos <= r.End
}

func (r Region) String() string {
	return fmt.Sprintf("%s %s", r.Kind, r.Key())
}

// ParseGenes splits a comma-separated gene annotation. "." or an empty
// value means the element has no directly annotated gene.
func ParseGenes(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" || s == "." {
		return nil
	}
	var genes []string
	seen := make(map[string]bool)
	for _, g := range strings.Split(s, ",") {
		g = strings.TrimSpace(g)
		if g == "" || g == "." || seen[g] {
			continue
		}
		seen[g] = true
		genes = append(genes, g)
	}
	return genes
}
