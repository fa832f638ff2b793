// Package freqfilter keeps the variants whose population allele frequency
// matches the requested rare/common target.
package freqfilter

import (
	"github.com/inodb/regsnp/internal/config"
	"github.com/inodb/regsnp/internal/vcf"
)

// Classify resolves one population frequency to rare or common. A missing
// frequency (ok == false) resolves to the configured missing policy without
// consulting the cutoff.
//
// A frequency exactly at the cutoff satisfies both targets.
func Classify(freq float64, ok bool, cfg config.Config) (rare, common bool) {
	if !ok {
		return cfg.MissingPolicy == config.TargetRare, cfg.MissingPolicy == config.TargetCommon
	}
	return freq <= cfg.Cutoff, freq >= cfg.Cutoff
}

// Matches reports whether a variant meets the target under the configured
// aggregation across the selected populations.
func Matches(v *vcf.Variant, cfg config.Config) bool {
	if len(cfg.Populations) == 0 {
		return false
	}

	for _, pop := range cfg.Populations {
		freq, ok := v.Frequency(cfg.FrequencyKey(pop))
		rare, common := Classify(freq, ok, cfg)
		hit := rare
		if cfg.Target == config.TargetCommon {
			hit = common
		}

		switch cfg.Aggregation {
		case config.AggregateAny:
			if hit {
				return true
			}
		default:
			if !hit {
				return false
			}
		}
	}
	return cfg.Aggregation != config.AggregateAny
}

// Filter returns a new slice holding the variants that match the target.
// The input slice is not modified.
func Filter(variants []*vcf.Variant, cfg config.Config) []*vcf.Variant {
	out := make([]*vcf.Variant, 0, len(variants))
	for _, v := range variants {
		if Matches(v, cfg) {
			out = append(out, v)
		}
	}
	return out
}
