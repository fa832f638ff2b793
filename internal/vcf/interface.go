// Package vcf reads annotated VCF files: site-level population frequencies
// from INFO and cohort allele counts from the sample genotype columns.
package vcf

// VariantParser is the interface for streaming variant readers.
type VariantParser interface {
	// Next reads the next variant.
	// Returns nil, nil when there are no more variants.
	Next() (*Variant, error)

	// Close closes the parser and releases resources.
	Close() error

	// LineNumber returns the current line number being processed.
	LineNumber() int
}
