package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cast"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/inodb/regsnp/internal/config"
	"github.com/inodb/regsnp/internal/pipeline"
)

// Config keys.
const (
	keyTarget      = "freq_filter_target"
	keyCutoff      = "freq_filter_cutoff"
	keyPopulation  = "population"
	keyMissing     = "freq_filter_missing"
	keyAggregate   = "freq_filter_aggregate"
	keyReference   = "reference_population"
	keyAlpha       = "bh_alpha"
	keyBHScope     = "bh_scope"
	keyAlternative = "binomial_alternative"
	keyMethod      = "correlation_method"
	keyMinSamples  = "min_samples"
	keyWorkers     = "workers"
	keyLimited     = "limited_analysis"
	keyFreqPrefix  = "freq_info_prefix"
	keyTable       = "default_enhancers_genes_assignment"
	keyTools       = "tools"
	keyVCF         = "vcf"
	keyPromoters   = "promoters"
	keyEnhancers   = "enhancers"
	keyGTF         = "gtf"
	keyContacts    = "contacts"
	keyEnhancerSig = "enhancer_signal"
	keyPromoterSig = "promoter_signal"
	keyExpression  = "expression"
	keyOutput      = "output"
	keyDuckDB      = "duckdb"
)

func setDefaults() {
	d := config.Default()
	pops := make([]string, len(d.Populations))
	for i, p := range d.Populations {
		pops[i] = string(p)
	}
	viper.SetDefault(keyTarget, string(d.Target))
	viper.SetDefault(keyCutoff, d.Cutoff)
	viper.SetDefault(keyPopulation, pops)
	viper.SetDefault(keyMissing, string(d.MissingPolicy))
	viper.SetDefault(keyAggregate, string(d.Aggregation))
	viper.SetDefault(keyReference, string(d.ReferencePopulation))
	viper.SetDefault(keyAlpha, d.Alpha)
	viper.SetDefault(keyBHScope, string(d.BHScope))
	viper.SetDefault(keyAlternative, string(d.Alternative))
	viper.SetDefault(keyMethod, string(d.Method))
	viper.SetDefault(keyMinSamples, d.MinSamples)
	viper.SetDefault(keyWorkers, d.Workers)
	viper.SetDefault(keyLimited, d.Limited)
	viper.SetDefault(keyFreqPrefix, d.FreqInfoPrefix)
	viper.SetDefault(keyOutput, "regsnp_output")
}

// addAnalysisFlags registers the analysis options on fs. Flag names use
// dashes; each is bound to the underscore config key of the same name.
func addAnalysisFlags(fs *pflag.FlagSet) {
	fs.String(flagName(keyTarget), "", "rare|common (r|c)")
	fs.Float64(flagName(keyCutoff), 0, "frequency cutoff in [0,1]")
	fs.StringSlice(flagName(keyPopulation), nil, "populations: AFR,AMR,ASJ,EAS,FIN,NFE,OTH,ALL")
	fs.String(flagName(keyMissing), "", "classify missing frequencies as rare|common")
	fs.String(flagName(keyAggregate), "", "combine populations with all|any")
	fs.String(flagName(keyReference), "", "reference population for the binomial test")
	fs.Float64(flagName(keyAlpha), 0, "Benjamini-Hochberg FDR level")
	fs.String(flagName(keyBHScope), "", "per-kind|global")
	fs.String(flagName(keyAlternative), "", "directional|two-sided")
	fs.String(flagName(keyMethod), "", "pearson|spearman")
	fs.Int(flagName(keyMinSamples), 0, "minimum paired samples for a correlation")
	fs.Int(flagName(keyWorkers), 0, "correlation workers")
	fs.Bool(flagName(keyLimited), false, "skip correlations")
	fs.String(flagName(keyFreqPrefix), "", "INFO key prefix of population frequencies")
}

// addInputFlags registers input and output paths on fs.
func addInputFlags(fs *pflag.FlagSet) {
	fs.String(keyVCF, "", "annotated cohort VCF with genotypes ('-' for stdin in limited mode)")
	fs.String(keyPromoters, "", "promoter BED")
	fs.String(keyEnhancers, "", "enhancer BED")
	fs.String(keyGTF, "", "gene annotation GTF")
	fs.String(keyContacts, "", "chromatin contacts (BEDPE or gene-linked BED)")
	fs.String(flagName(keyEnhancerSig), "", "region-keyed enhancer signal matrix")
	fs.String(flagName(keyPromoterSig), "", "feature-keyed promoter signal matrix")
	fs.String(keyExpression, "", "feature-keyed expression matrix")
	fs.String(flagName(keyTable), "", "reuse a previously written enhancer-gene table")
	fs.StringP(keyOutput, "o", "", "output directory")
	fs.String(keyDuckDB, "", "also store results in this DuckDB file")
	fs.StringToString(keyTools, nil, "external tools to verify, name=path")
}

func flagName(key string) string {
	return strings.ReplaceAll(key, "_", "-")
}

// bindFlags binds every flag of fs to its config key.
func bindFlags(fs *pflag.FlagSet) error {
	var err error
	fs.VisitAll(func(f *pflag.Flag) {
		if err != nil {
			return
		}
		err = viper.BindPFlag(strings.ReplaceAll(f.Name, "-", "_"), f)
	})
	return err
}

// buildConfig turns the merged settings into a validated Config.
func buildConfig() (config.Config, error) {
	cfg := config.Default()

	target, err := config.ParseTarget(viper.GetString(keyTarget))
	if err != nil {
		return cfg, err
	}
	missing, err := config.ParseTarget(viper.GetString(keyMissing))
	if err != nil {
		return cfg, fmt.Errorf("%s: %w", keyMissing, err)
	}
	ref, err := config.ParsePopulation(viper.GetString(keyReference))
	if err != nil {
		return cfg, fmt.Errorf("%s: %w", keyReference, err)
	}
	var pops []config.Population
	for _, s := range populations() {
		p, err := config.ParsePopulation(s)
		if err != nil {
			return cfg, fmt.Errorf("%s: %w", keyPopulation, err)
		}
		pops = append(pops, p)
	}

	cfg.Target = target
	cfg.Cutoff = viper.GetFloat64(keyCutoff)
	cfg.Populations = pops
	cfg.MissingPolicy = missing
	cfg.Aggregation = config.Aggregation(strings.ToLower(viper.GetString(keyAggregate)))
	cfg.ReferencePopulation = ref
	cfg.Alpha = viper.GetFloat64(keyAlpha)
	cfg.BHScope = config.BHScope(strings.ToLower(viper.GetString(keyBHScope)))
	cfg.Alternative = config.Alternative(strings.ToLower(viper.GetString(keyAlternative)))
	cfg.Method = config.Method(strings.ToLower(viper.GetString(keyMethod)))
	cfg.MinSamples = viper.GetInt(keyMinSamples)
	cfg.Workers = viper.GetInt(keyWorkers)
	cfg.Limited = viper.GetBool(keyLimited)
	cfg.FreqInfoPrefix = viper.GetString(keyFreqPrefix)

	return cfg, cfg.Validate()
}

// populations accepts a YAML list, a comma-separated string, or both.
func populations() []string {
	var out []string
	for _, s := range cast.ToStringSlice(viper.Get(keyPopulation)) {
		for _, p := range strings.Split(s, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

func buildInputs() pipeline.Inputs {
	return pipeline.Inputs{
		VCF:             viper.GetString(keyVCF),
		Promoters:       viper.GetString(keyPromoters),
		Enhancers:       viper.GetString(keyEnhancers),
		GTF:             viper.GetString(keyGTF),
		Contacts:        viper.GetString(keyContacts),
		EnhancerSignal:  viper.GetString(keyEnhancerSig),
		PromoterSignal:  viper.GetString(keyPromoterSig),
		Expression:      viper.GetString(keyExpression),
		AssignmentTable: viper.GetString(keyTable),
		OutputDir:       viper.GetString(keyOutput),
		DuckDB:          viper.GetString(keyDuckDB),
		Tools:           viper.GetStringMapString(keyTools),
	}
}
