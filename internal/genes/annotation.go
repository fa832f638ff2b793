package genes

import (
	"sort"

	"github.com/inodb/regsnp/internal/vcf"
)

// Annotation indexes genes by chromosome and by name.
type Annotation struct {
	byChrom map[string][]*Gene // sorted by Start
	byName  map[string]*Gene
	count   int
}

// NewAnnotation builds an annotation from genes. When two genes share a
// name, the first one is returned by Lookup.
func NewAnnotation(genes []*Gene) *Annotation {
	a := &Annotation{
		byChrom: make(map[string][]*Gene),
		byName:  make(map[string]*Gene),
		count:   len(genes),
	}
	for _, g := range genes {
		a.byChrom[g.Chrom] = append(a.byChrom[g.Chrom], g)
		if _, ok := a.byName[g.Name]; !ok {
			a.byName[g.Name] = g
		}
	}
	for _, gs := range a.byChrom {
		sort.SliceStable(gs, func(i, j int) bool { return gs[i].Start < gs[j].Start })
	}
	return a
}

// Len returns the number of genes.
func (a *Annotation) Len() int {
	if a == nil {
		return 0
	}
	return a.count
}

// Lookup returns the gene with the given name.
func (a *Annotation) Lookup(name string) (*Gene, bool) {
	if a == nil {
		return nil, false
	}
	g, ok := a.byName[name]
	return g, ok
}

// OnChrom returns the genes of one chromosome sorted by start.
func (a *Annotation) OnChrom(chrom string) []*Gene {
	if a == nil {
		return nil
	}
	return a.byChrom[vcf.NormalizeChrom(chrom)]
}

// Nearest returns the single gene closest to the half-open interval
// [start, end) on chrom, with its distance. Equal distances resolve to the
// lexically smallest gene name, then gene ID. ok is false when the
// chromosome has no genes.
func (a *Annotation) Nearest(chrom string, start, end int64) (gene *Gene, distance int64, ok bool) {
	for _, g := range a.OnChrom(chrom) {
		d := g.Distance(start, end)
		if !ok || d < distance || (d == distance && less(g, gene)) {
			gene, distance, ok = g, d, true
		}
	}
	return gene, distance, ok
}

func less(a, b *Gene) bool {
	if a.Name != b.Name {
		return a.Name < b.Name
	}
	return a.ID < b.ID
}

// TSSWithin returns the genes whose transcription start site falls inside
// the half-open interval [start, end) on chrom.
func (a *Annotation) TSSWithin(chrom string, start, end int64) []*Gene {
	var out []*Gene
	for _, g := range a.OnChrom(chrom) {
		if g.Start >= end {
			break
		}
		if tss := g.TSS(); tss >= start && tss < end {
			out = append(out, g)
		}
	}
	return out
}
