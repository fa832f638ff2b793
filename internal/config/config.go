// Package config holds the immutable run configuration shared by every
// analysis stage.
package config

import (
	"fmt"
	"runtime"
	"strings"
)

// Target selects whether rare or common variants are of interest.
type Target string

const (
	TargetRare   Target = "rare"
	TargetCommon Target = "common"
)

// ParseTarget accepts "rare"/"common" and the short forms "r"/"c".
func ParseTarget(s string) (Target, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "r", "rare":
		return TargetRare, nil
	case "c", "common":
		return TargetCommon, nil
	}
	return "", fmt.Errorf("unknown target %q (want rare or common)", s)
}

// Population is a gnomAD population code.
type Population string

const (
	PopAFR Population = "AFR"
	PopAMR Population = "AMR"
	PopASJ Population = "ASJ"
	PopEAS Population = "EAS"
	PopFIN Population = "FIN"
	PopNFE Population = "NFE"
	PopOTH Population = "OTH"
	PopALL Population = "ALL"
)

// Populations lists every supported population code.
var Populations = []Population{PopAFR, PopAMR, PopASJ, PopEAS, PopFIN, PopNFE, PopOTH, PopALL}

// ParsePopulation validates a population code (case-insensitive).
func ParsePopulation(s string) (Population, error) {
	p := Population(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range Populations {
		if p == known {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown population %q", s)
}

// Aggregation decides how per-population rare/common calls combine.
type Aggregation string

const (
	AggregateAll Aggregation = "all"
	AggregateAny Aggregation = "any"
)

// BHScope decides which p-values form one multiple-testing universe.
type BHScope string

const (
	ScopePerKind BHScope = "per-kind"
	ScopeGlobal  BHScope = "global"
)

// Alternative is the binomial test alternative hypothesis.
type Alternative string

const (
	AlternativeDirectional Alternative = "directional"
	AlternativeTwoSided    Alternative = "two-sided"
)

// Method is the correlation coefficient used by every correlation.
type Method string

const (
	MethodPearson  Method = "pearson"
	MethodSpearman Method = "spearman"
)

// Config is the validated, read-only configuration of one run.
// Stages receive it by value and never modify it.
type Config struct {
	Target        Target
	Cutoff        float64
	Populations   []Population
	MissingPolicy Target
	Aggregation   Aggregation

	ReferencePopulation Population
	Alpha               float64
	BHScope             BHScope
	Alternative         Alternative

	Method     Method
	MinSamples int
	Workers    int

	Limited bool

	// FreqInfoPrefix is prepended to the population code to find the
	// frequency INFO key, e.g. "gnomAD_genome_" + "NFE".
	FreqInfoPrefix string
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		Target:              TargetRare,
		Cutoff:              0.01,
		Populations:         append([]Population(nil), Populations...),
		MissingPolicy:       TargetCommon,
		Aggregation:         AggregateAll,
		ReferencePopulation: PopALL,
		Alpha:               0.01,
		BHScope:             ScopePerKind,
		Alternative:         AlternativeDirectional,
		Method:              MethodPearson,
		MinSamples:          3,
		Workers:             runtime.NumCPU(),
		FreqInfoPrefix:      "gnomAD_genome_",
	}
}

// HasPopulation reports whether p is among the selected populations.
func (c Config) HasPopulation(p Population) bool {
	for _, q := range c.Populations {
		if q == p {
			return true
		}
	}
	return false
}

// FrequencyKey returns the INFO key holding the frequency of population p.
func (c Config) FrequencyKey(p Population) string {
	return c.FreqInfoPrefix + string(p)
}

// ValidationError lists every problem found in a configuration.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid configuration: " + strings.Join(e.Problems, "; ")
}

// Validate checks ranges and cross-field rules. It reports all problems
// at once rather than stopping at the first.
func (c Config) Validate() error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if c.Target != TargetRare && c.Target != TargetCommon {
		add("freq_filter_target must be rare or common, got %q", c.Target)
	}
	if c.MissingPolicy != TargetRare && c.MissingPolicy != TargetCommon {
		add("freq_filter_missing must be rare or common, got %q", c.MissingPolicy)
	}
	if !(c.Cutoff >= 0 && c.Cutoff <= 1) {
		add("freq_filter_cutoff must be between 0 and 1, got %v", c.Cutoff)
	}
	if !(c.Alpha >= 0 && c.Alpha <= 1) {
		add("bh_alpha must be between 0 and 1, got %v", c.Alpha)
	}
	if len(c.Populations) == 0 {
		add("population must name at least one population")
	}
	for _, p := range c.Populations {
		if _, err := ParsePopulation(string(p)); err != nil {
			add("population: %v", err)
		}
	}
	if _, err := ParsePopulation(string(c.ReferencePopulation)); err != nil {
		add("reference_population: %v", err)
	} else if c.ReferencePopulation != PopALL && !c.HasPopulation(c.ReferencePopulation) {
		add("reference_population %s must be in the population list", c.ReferencePopulation)
	}
	if c.Aggregation != AggregateAll && c.Aggregation != AggregateAny {
		add("freq_filter_aggregate must be all or any, got %q", c.Aggregation)
	}
	if c.BHScope != ScopePerKind && c.BHScope != ScopeGlobal {
		add("bh_scope must be per-kind or global, got %q", c.BHScope)
	}
	if c.Alternative != AlternativeDirectional && c.Alternative != AlternativeTwoSided {
		add("binomial_alternative must be directional or two-sided, got %q", c.Alternative)
	}
	if c.Method != MethodPearson && c.Method != MethodSpearman {
		add("correlation_method must be pearson or spearman, got %q", c.Method)
	}
	if c.MinSamples < 3 {
		add("min_samples must be at least 3, got %d", c.MinSamples)
	}
	if c.Workers < 1 {
		add("workers must be at least 1, got %d", c.Workers)
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}
