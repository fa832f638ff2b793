// Package genotype derives per-sample alternate-allele dosage for selected
// variants from the input VCF.
package genotype

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/brentp/vcfgo"
	"github.com/carbocation/pfx"
	"go.uber.org/zap"

	"github.com/inodb/regsnp/internal/matrix"
	"github.com/inodb/regsnp/internal/vcf"
)

// checkEvery is how many records are read between context checks.
const checkEvery = 4096

// Extractor streams a VCF and returns dosage series for chosen variants.
type Extractor struct {
	logger *zap.Logger
}

// NewExtractor creates an extractor.
func NewExtractor() *Extractor {
	return &Extractor{logger: zap.NewNop()}
}

// SetLogger sets the logger.
func (e *Extractor) SetLogger(l *zap.Logger) {
	e.logger = l
}

// Extract reads path and returns a dosage series for every variant key in
// keys (see vcf.FormatKey). Only samples also listed in samples are kept;
// a nil samples keeps all. Series samples are sorted by name. Missing or
// partially missing calls are NaN.
func (e *Extractor) Extract(ctx context.Context, path string, keys map[string]bool, samples []string) (map[string]matrix.Series, error) {
	in, err := vcf.Open(path)
	if err != nil {
		return nil, pfx.Err(err)
	}
	defer in.Close()

	rdr, err := vcfgo.NewReader(in, true) // lazy sample parsing; only selected sites are parsed
	if err != nil {
		return nil, pfx.Err(fmt.Errorf("read VCF header of %s: %w", path, err))
	}

	cols, names := selectSamples(rdr.Header.SampleNames, samples)
	if len(cols) == 0 {
		e.logger.Warn("no shared samples between VCF and activity/expression tables", zap.String("path", path))
	}

	out := make(map[string]matrix.Series, len(keys))
	for i := 0; len(out) < len(keys); i++ {
		if i%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		v := rdr.Read()
		if v == nil {
			break
		}
		if len(v.Alt()) != 1 {
			continue
		}
		key := vcf.FormatKey(v.Chromosome, int64(v.Pos), v.Ref(), v.Alt()[0])
		if !keys[key] {
			continue
		}

		if err := rdr.Header.ParseSamples(v); err != nil {
			return nil, pfx.Err(fmt.Errorf("parse samples at %s: %w", key, err))
		}
		values := make([]float64, len(cols))
		for j, c := range cols {
			if c < len(v.Samples) {
				values[j] = Dosage(v.Samples[c])
			} else {
				values[j] = math.NaN()
			}
		}
		out[key] = matrix.Series{Samples: names, Values: values}
	}

	if err := rdr.Error(); err != nil {
		e.logger.Warn("VCF reader reported problems", zap.String("path", path), zap.Error(err))
	}

	for k := range keys {
		if _, ok := out[k]; !ok {
			e.logger.Warn("no genotype data for variant", zap.String("variant", k))
		}
	}
	return out, nil
}

// Dosage counts alternate alleles in one sample's genotype. Any missing
// allele makes the whole call missing.
func Dosage(s *vcfgo.SampleGenotype) float64 {
	if s == nil || len(s.GT) == 0 {
		return math.NaN()
	}
	var alt float64
	for _, a := range s.GT {
		switch {
		case a < 0:
			return math.NaN()
		case a > 0:
			alt++
		}
	}
	return alt
}

// selectSamples returns the VCF column indices and names of the samples
// present in both lists, sorted by name.
func selectSamples(header, wanted []string) ([]int, []string) {
	keep := make(map[string]bool, len(wanted))
	for _, s := range wanted {
		keep[s] = true
	}

	type col struct {
		idx  int
		name string
	}
	var cs []col
	seen := make(map[string]bool)
	for i, name := range header {
		if (wanted == nil || keep[name]) && !seen[name] {
			seen[name] = true
			cs = append(cs, col{i, name})
		}
	}
	sort.Slice(cs, func(i, j int) bool { return cs[i].name < cs[j].name })

	idx := make([]int, len(cs))
	names := make([]string, len(cs))
	for i, c := range cs {
		idx[i], names[i] = c.idx, c.name
	}
	return idx, names
}
