// Package genes loads gene annotation and chromatin-contact evidence used
// to link enhancers to the genes they may regulate.
package genes

import "fmt"

// Gene is one annotated gene in 0-based half-open coordinates.
type Gene struct {
	ID      string // Gene identifier without version (e.g., ENSG00000133703)
	Name    string // Gene symbol (e.g., KRAS); falls back to ID
	Chrom   string // Chromosome, normalized without "chr"
	Start   int64
	End     int64
	Strand  int8 // +1 (forward) or -1 (reverse)
	Biotype string
}

// TSS returns the 0-based transcription start site.
func (g *Gene) TSS() int64 {
	if g.Strand == -1 {
		return g.End - 1
	}
	return g.Start
}

// Distance returns the number of bases separating the gene from the
// half-open interval [start, end): 0 when they overlap, 1 when adjacent.
func (g *Gene) Distance(start, end int64) int64 {
	switch {
	case g.End <= start:
		return start - g.End + 1
	case end <= g.Start:
		return g.Start - end + 1
	}
	return 0
}

func (g *Gene) String() string {
	return fmt.Sprintf("%s(%s) %s:%d-%d", g.Name, g.ID, g.Chrom, g.Start, g.End)
}
