// Package assign links significant regulatory variants to candidate target
// genes. Promoters take their annotated genes; enhancers collect direct,
// nearest-gene and chromatin-contact evidence side by side.
package assign

import (
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/inodb/regsnp/internal/enrich"
	"github.com/inodb/regsnp/internal/genes"
	"github.com/inodb/regsnp/internal/regions"
	"github.com/inodb/regsnp/internal/vcf"
)

// Evidence is the kind of support linking a region to a gene.
type Evidence string

const (
	Direct   Evidence = "direct"   // promoter annotation
	Intronic Evidence = "intronic" // enhancer annotation
	Nearest  Evidence = "nearest"
	Contact  Evidence = "contact"
)

// ParseEvidence validates an evidence kind read from a table.
func ParseEvidence(s string) (Evidence, bool) {
	switch e := Evidence(s); e {
	case Direct, Intronic, Nearest, Contact:
		return e, true
	}
	return "", false
}

// Candidate is one gene proposed for a region.
type Candidate struct {
	Gene     string
	Evidence Evidence
	Strength float64 // distance for nearest, score for contact, NaN otherwise
}

// Assignment links one variant, through one overlapping region, to a gene.
type Assignment struct {
	Variant  *vcf.Variant
	Region   *regions.Region
	Gene     string
	Evidence Evidence
	Strength float64
}

// SNP returns the variant key.
func (a Assignment) SNP() string {
	return a.Variant.Key()
}

func (a Assignment) key() string {
	return a.SNP() + "|" + a.Region.Key() + "|" + a.Gene + "|" + string(a.Evidence)
}

// Promoters emits one direct assignment per annotated gene of every
// promoter overlapped by a significant promoter variant.
func Promoters(results []*enrich.Result) []Assignment {
	var out []Assignment
	seen := make(map[string]bool)
	for _, res := range results {
		if !res.Significant {
			continue
		}
		for _, r := range res.Regions {
			for _, g := range r.Genes {
				a := Assignment{Variant: res.Variant, Region: r, Gene: g, Evidence: Direct, Strength: math.NaN()}
				if k := a.key(); !seen[k] {
					seen[k] = true
					out = append(out, a)
				}
			}
		}
	}
	return out
}

// Resolver computes enhancer candidates from gene annotation and contacts,
// or serves them from a previously persisted assignment table.
type Resolver struct {
	genes    *genes.Annotation
	contacts *genes.Contacts
	known    map[string][]Candidate
	cache    map[string][]Candidate
	logger   *zap.Logger
}

// NewResolver creates a resolver. Either source may be nil.
func NewResolver(ann *genes.Annotation, contacts *genes.Contacts) *Resolver {
	return &Resolver{
		genes:    ann,
		contacts: contacts,
		cache:    make(map[string][]Candidate),
		logger:   zap.NewNop(),
	}
}

// SetLogger sets the logger.
func (r *Resolver) SetLogger(l *zap.Logger) {
	r.logger = l
}

// UseTable serves candidates for the regions listed in t instead of
// recomputing them.
func (r *Resolver) UseTable(t *Table) {
	r.known = t.Candidates()
}

// Candidates returns the union of direct, nearest and contact candidates
// for an enhancer, sorted by evidence order then gene.
func (r *Resolver) Candidates(region *regions.Region) []Candidate {
	key := region.Key()
	if c, ok := r.known[key]; ok {
		return c
	}
	if c, ok := r.cache[key]; ok {
		return c
	}

	var out []Candidate
	for _, g := range region.Genes {
		out = append(out, Candidate{Gene: g, Evidence: Intronic, Strength: math.NaN()})
	}
	if g, d, ok := r.genes.Nearest(region.Chrom, region.Start, region.End); ok {
		out = append(out, Candidate{Gene: g.Name, Evidence: Nearest, Strength: float64(d)})
	} else {
		r.logger.Debug("no gene on enhancer chromosome", zap.String("region", key))
	}
	for _, l := range r.contacts.Linked(region.Chrom, region.Start, region.End) {
		out = append(out, Candidate{Gene: l.Gene, Evidence: Contact, Strength: l.Score})
	}

	sortCandidates(out)
	r.cache[key] = out
	return out
}

// Enhancers resolves every region overlapped by a significant enhancer
// variant and emits one assignment per candidate.
func Enhancers(results []*enrich.Result, r *Resolver) []Assignment {
	var out []Assignment
	seen := make(map[string]bool)
	for _, res := range results {
		if !res.Significant {
			continue
		}
		for _, region := range res.Regions {
			for _, c := range r.Candidates(region) {
				a := Assignment{
					Variant:  res.Variant,
					Region:   region,
					Gene:     c.Gene,
					Evidence: c.Evidence,
					Strength: c.Strength,
				}
				if k := a.key(); !seen[k] {
					seen[k] = true
					out = append(out, a)
				}
			}
		}
	}
	return out
}

var evidenceOrder = map[Evidence]int{Direct: 0, Intronic: 1, Nearest: 2, Contact: 3}

func sortCandidates(cs []Candidate) {
	sort.SliceStable(cs, func(i, j int) bool {
		if cs[i].Evidence != cs[j].Evidence {
			return evidenceOrder[cs[i].Evidence] < evidenceOrder[cs[j].Evidence]
		}
		return cs[i].Gene < cs[j].Gene
	})
}

// Pairs returns the distinct (region, gene) pairs of assignments in first
// seen order.
func Pairs(as []Assignment) []Pair {
	var out []Pair
	seen := make(map[string]bool)
	for _, a := range as {
		k := a.Region.Key() + "|" + a.Gene
		if !seen[k] {
			seen[k] = true
			out = append(out, Pair{Region: a.Region, Gene: a.Gene})
		}
	}
	return out
}

// Pair is a region and one of its candidate genes.
type Pair struct {
	Region *regions.Region
	Gene   string
}
