package vcf

import (
	"strconv"
	"strings"
)

// Variant represents a single site from an annotated VCF file.
type Variant struct {
	Chrom  string                 // Chromosome name (e.g., "12", "chr12")
	Pos    int64                  // 1-based genomic position
	ID     string                 // Variant identifier (e.g., rs ID)
	Ref    string                 // Reference allele
	Alt    string                 // Alternate allele(s), comma-separated
	Qual   float64                // Quality score
	Filter string                 // Filter status (PASS or filter name)
	Info   map[string]interface{} // INFO field key-value pairs

	// SampleColumns holds the raw FORMAT and sample columns, tab-joined.
	SampleColumns string
}

// IsSNV returns true if the variant is a single nucleotide variant.
func (v *Variant) IsSNV() bool {
	return len(v.Ref) == 1 && len(v.Alt) == 1
}

// IsBiallelic returns true if the site has exactly one alternate allele.
func (v *Variant) IsBiallelic() bool {
	return v.Alt != "" && v.Alt != "." && !strings.Contains(v.Alt, ",")
}

// NormalizeChrom returns the chromosome name without "chr" prefix.
func (v *Variant) NormalizeChrom() string {
	return NormalizeChrom(v.Chrom)
}

// Key identifies the variant as chrom:pos:ref:alt with a normalized chromosome.
func (v *Variant) Key() string {
	return FormatKey(v.Chrom, v.Pos, v.Ref, v.Alt)
}

// FormatKey builds the variant key used to join tables across stages.
func FormatKey(chrom string, pos int64, ref, alt string) string {
	return NormalizeChrom(chrom) + ":" + strconv.FormatInt(pos, 10) + ":" + ref + ":" + alt
}

// NormalizeChrom strips a leading "chr" so that sources using either
// naming convention can be joined.
func NormalizeChrom(chrom string) string {
	if len(chrom) > 3 && chrom[:3] == "chr" {
		return chrom[3:]
	}
	return chrom
}

// Frequency returns the numeric INFO value stored under key.
// A missing key, ".", an empty value or an unparsable number reports ok=false.
func (v *Variant) Frequency(key string) (freq float64, ok bool) {
	raw, exists := v.Info[key]
	if !exists {
		return 0, false
	}
	s, isString := raw.(string)
	if !isString || s == "" || s == "." {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// AlleleCounts returns the number of alternate alleles and the number of
// called alleles across all samples. Genotypes are read from the GT FORMAT
// field; sites without sample columns fall back to INFO AC/AN.
func (v *Variant) AlleleCounts() (alt, total int) {
	if v.SampleColumns == "" {
		return v.infoCounts()
	}

	fields := strings.Split(v.SampleColumns, "\t")
	gtIdx := -1
	for i, key := range strings.Split(fields[0], ":") {
		if key == "GT" {
			gtIdx = i
			break
		}
	}
	if gtIdx < 0 {
		return v.infoCounts()
	}

	for _, sample := range fields[1:] {
		values := strings.Split(sample, ":")
		if gtIdx >= len(values) {
			continue
		}
		a, n := countGenotype(values[gtIdx])
		alt += a
		total += n
	}
	return alt, total
}

func (v *Variant) infoCounts() (alt, total int) {
	ac, okAC := v.Frequency("AC")
	an, okAN := v.Frequency("AN")
	if !okAC || !okAN {
		return 0, 0
	}
	return int(ac), int(an)
}

// countGenotype counts alternate and called alleles in a GT value such as
// "0/1", "1|1" or "./.".
func countGenotype(gt string) (alt, called int) {
	for _, allele := range strings.FieldsFunc(gt, func(r rune) bool { return r == '/' || r == '|' }) {
		if allele == "." {
			continue
		}
		idx, err := strconv.Atoi(allele)
		if err != nil {
			continue
		}
		called++
		if idx > 0 {
			alt++
		}
	}
	return alt, called
}
