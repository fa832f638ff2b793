// Package pipeline wires the analysis stages into one run: frequency
// filtering, enrichment, gene assignment, correlation and reporting.
package pipeline

import (
	"github.com/inodb/regsnp/internal/preflight"
)

// Inputs names every file a run reads or writes.
type Inputs struct {
	VCF       string // annotated cohort variants with genotypes
	Promoters string // BED, 4th column lists genes
	Enhancers string // BED, 4th column lists host genes
	GTF       string // gene annotation
	Contacts  string // optional BEDPE or gene-linked BED

	EnhancerSignal string // region-keyed activity matrix
	PromoterSignal string // feature-keyed activity matrix
	Expression     string // feature-keyed expression matrix

	// AssignmentTable is a previously written enhancer-gene table to reuse.
	AssignmentTable string

	OutputDir string
	DuckDB    string // optional database file

	// Tools maps external tool names to their executables.
	Tools map[string]string
}

// required returns the inputs a run cannot proceed without.
func (in Inputs) required(limited bool) []preflight.Input {
	req := []preflight.Input{
		{Role: "vcf", Path: in.VCF},
		{Role: "promoters", Path: in.Promoters},
		{Role: "enhancers", Path: in.Enhancers},
		{Role: "gtf", Path: in.GTF},
	}
	if !limited {
		req = append(req,
			preflight.Input{Role: "enhancer signal", Path: in.EnhancerSignal},
			preflight.Input{Role: "promoter signal", Path: in.PromoterSignal},
			preflight.Input{Role: "expression", Path: in.Expression},
		)
	}
	return req
}

func (in Inputs) optional() []preflight.Input {
	return []preflight.Input{
		{Role: "contacts", Path: in.Contacts},
		{Role: "assignment table", Path: in.AssignmentTable},
	}
}

// files returns every named input by role, for run bookkeeping.
func (in Inputs) files() map[string]string {
	out := make(map[string]string)
	for _, i := range append(in.required(false), in.optional()...) {
		if i.Path != "" && i.Path != "-" {
			out[i.Role] = i.Path
		}
	}
	return out
}
