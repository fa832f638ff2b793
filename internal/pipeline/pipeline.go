package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/inodb/regsnp/internal/assign"
	"github.com/inodb/regsnp/internal/config"
	"github.com/inodb/regsnp/internal/correlate"
	"github.com/inodb/regsnp/internal/duckdb"
	"github.com/inodb/regsnp/internal/enrich"
	"github.com/inodb/regsnp/internal/freqfilter"
	"github.com/inodb/regsnp/internal/genes"
	"github.com/inodb/regsnp/internal/genotype"
	"github.com/inodb/regsnp/internal/matrix"
	"github.com/inodb/regsnp/internal/preflight"
	"github.com/inodb/regsnp/internal/regions"
	"github.com/inodb/regsnp/internal/report"
	"github.com/inodb/regsnp/internal/vcf"
)

// Result is everything a run produced.
type Result struct {
	VariantsRead int
	Filtered     []*vcf.Variant
	Enrichment   *enrich.Results

	Promoters []assign.Assignment
	Enhancers []assign.Assignment
	Table     *assign.Table
	// Reused is true when enhancer assignments came from a supplied table.
	Reused bool

	Correlations []correlate.Record
	Rows         []report.Row
	Summary      report.Summary
}

// Runner executes the stages in order with one configuration.
type Runner struct {
	cfg    config.Config
	logger *zap.Logger
}

// NewRunner creates a runner. cfg must already be valid.
func NewRunner(cfg config.Config) *Runner {
	return &Runner{cfg: cfg, logger: zap.NewNop()}
}

// SetLogger sets the logger.
func (r *Runner) SetLogger(l *zap.Logger) {
	r.logger = l
}

// Check verifies inputs and external tools without running anything.
func (r *Runner) Check(in Inputs) (preflight.Report, error) {
	rep, err := preflight.CheckInputs(in.required(r.cfg.Limited), in.optional())
	err = multierr.Append(err, preflight.CheckTools(in.Tools))
	for _, u := range rep.Unavailable {
		r.logger.Warn("optional input unavailable, continuing without it",
			zap.String("role", u.Role), zap.String("path", u.Path))
	}
	return rep, err
}

// loaded holds the parsed inputs.
type loaded struct {
	variants  []*vcf.Variant
	read      int
	promoters *regions.Index
	enhancers *regions.Index
	genes     *genes.Annotation
	contacts  *genes.Contacts
	sources   correlate.Sources
}

// Run executes a complete analysis and writes its outputs into
// in.OutputDir.
func (r *Runner) Run(ctx context.Context, in Inputs) (*Result, error) {
	started := time.Now()
	if err := r.cfg.Validate(); err != nil {
		return nil, err
	}
	if !r.cfg.Limited && in.VCF == "-" {
		return nil, errors.New("genotype correlation reads the VCF twice and needs a file, not stdin")
	}
	rep, err := r.Check(in)
	if err != nil {
		return nil, fmt.Errorf("preflight: %w", err)
	}
	if err := r.prepareOutputDir(in.OutputDir); err != nil {
		return nil, err
	}

	data, err := r.load(in, unavailable(rep))
	if err != nil {
		return nil, err
	}

	res := &Result{VariantsRead: data.read, Filtered: data.variants}
	r.logger.Info("frequency filter",
		zap.String("target", string(r.cfg.Target)),
		zap.Float64("cutoff", r.cfg.Cutoff),
		zap.Int("read", data.read),
		zap.Int("kept", len(data.variants)))

	res.Enrichment = enrich.Run(data.variants, data.promoters, data.enhancers, r.cfg)
	sigProm := res.Enrichment.SignificantPromoters()
	sigEnh := res.Enrichment.SignificantEnhancers()
	r.logger.Info("enrichment",
		zap.Int("promoter_tested", len(res.Enrichment.Promoters)),
		zap.Int("promoter_significant", len(sigProm)),
		zap.Int("enhancer_tested", len(res.Enrichment.Enhancers)),
		zap.Int("enhancer_significant", len(sigEnh)),
		zap.Int("skipped", res.Enrichment.Skipped))

	resolver := assign.NewResolver(data.genes, data.contacts)
	resolver.SetLogger(r.logger)
	var reused *assign.Table
	switch {
	case in.AssignmentTable == "" || unavailable(rep)[in.AssignmentTable]:
	case r.cfg.Limited:
		r.logger.Info("limited analysis, ignoring assignment table", zap.String("path", in.AssignmentTable))
	default:
		reused = r.reuseTable(in.AssignmentTable)
		if reused != nil {
			resolver.UseTable(reused)
			res.Reused = true
		}
	}
	res.Promoters = assign.Promoters(sigProm)
	res.Enhancers = assign.Enhancers(sigEnh, resolver)
	r.logger.Info("gene assignment",
		zap.Int("promoter_rows", len(res.Promoters)),
		zap.Int("enhancer_rows", len(res.Enhancers)),
		zap.Bool("reused_table", res.Reused))

	all := append(append([]assign.Assignment(nil), res.Promoters...), res.Enhancers...)
	results := append(append([]*enrich.Result(nil), res.Enrichment.Promoters...), res.Enrichment.Enhancers...)

	var corr report.Correlations
	var idx *correlate.Index
	if r.cfg.Limited {
		r.logger.Info("limited analysis, skipping correlations")
	} else {
		res.Correlations, err = r.correlate(ctx, in, data.sources, all, reused)
		if err != nil {
			return nil, err
		}
		idx = correlate.NewIndex(res.Correlations)
		corr = report.IndexCorrelations{Index: idx}
	}
	if reused != nil && corr != nil {
		corr = report.TableCorrelations{Correlations: corr, Table: reused}
	}

	res.Table = assign.NewTable(res.Enhancers, signalLookup(reused, idx))
	tablePath := filepath.Join(in.OutputDir, assign.TableFileName)
	if err := assign.WriteTable(tablePath, res.Table); err != nil {
		return nil, err
	}
	r.logger.Info("wrote assignment table", zap.String("path", tablePath), zap.Int("rows", len(res.Table.Rows)))

	res.Rows = report.Merge(all, results, corr)
	w := report.NewWriter(in.OutputDir)
	w.SetLogger(r.logger)
	if err := w.WriteEnrichment(res.Enrichment); err != nil {
		return nil, fmt.Errorf("write enrichment: %w", err)
	}
	if res.Summary, err = w.Write(res.Rows); err != nil {
		return nil, fmt.Errorf("write report: %w", err)
	}

	if in.DuckDB != "" {
		if err := r.persist(in, res, started); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func unavailable(rep preflight.Report) map[string]bool {
	out := make(map[string]bool, len(rep.Unavailable))
	for _, u := range rep.Unavailable {
		out[u.Path] = true
	}
	return out
}

// prepareOutputDir creates dir, reusing it when it already exists.
func (r *Runner) prepareOutputDir(dir string) error {
	if dir == "" {
		return errors.New("no output directory given")
	}
	info, err := os.Stat(dir)
	switch {
	case err == nil && info.IsDir():
		r.logger.Info("output directory exists, files will be overwritten", zap.String("dir", dir))
		return nil
	case err == nil:
		return fmt.Errorf("output path %s is not a directory", dir)
	case !errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("stat output directory: %w", err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	return nil
}

// load reads the independent inputs concurrently.
func (r *Runner) load(in Inputs, skip map[string]bool) (*loaded, error) {
	data := &loaded{}
	var g errgroup.Group

	g.Go(func() error {
		p, err := vcf.NewParser(in.VCF)
		if err != nil {
			return err
		}
		defer p.Close()
		data.variants, err = vcf.ReadAll(p, func(v *vcf.Variant) bool {
			data.read++
			return freqfilter.Matches(v, r.cfg)
		})
		if err != nil {
			return fmt.Errorf("read %s: %w", in.VCF, err)
		}
		return nil
	})
	g.Go(func() (err error) {
		data.promoters, err = regions.LoadBED(in.Promoters, regions.Promoter)
		return err
	})
	g.Go(func() (err error) {
		data.enhancers, err = regions.LoadBED(in.Enhancers, regions.Enhancer)
		return err
	})
	g.Go(func() error {
		ann, err := genes.LoadGTF(in.GTF)
		if err != nil {
			return err
		}
		data.genes = ann
		if in.Contacts == "" || skip[in.Contacts] {
			return nil
		}
		// BEDPE contacts resolve genes through their TSS, so they need
		// the annotation first.
		data.contacts, err = genes.LoadContacts(in.Contacts, ann)
		return err
	})
	if !r.cfg.Limited {
		for _, m := range []struct {
			path string
			dst  **matrix.Matrix
		}{
			{in.EnhancerSignal, &data.sources.EnhancerSignal},
			{in.PromoterSignal, &data.sources.PromoterSignal},
			{in.Expression, &data.sources.Expression},
		} {
			g.Go(func() error {
				mx, err := matrix.Load(m.path)
				if err != nil {
					return err
				}
				if mx.Unparsable > 0 {
					r.logger.Warn("unparsable matrix values treated as missing",
						zap.String("path", m.path), zap.Int("cells", mx.Unparsable))
				}
				*m.dst = mx
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load inputs: %w", err)
	}
	r.logger.Info("inputs loaded",
		zap.Int("promoters", data.promoters.Len()),
		zap.Int("enhancers", data.enhancers.Len()),
		zap.Int("genes", data.genes.Len()),
		zap.Int("contacts", data.contacts.Len()))
	return data, nil
}

// reuseTable reads a supplied enhancer-gene table. An invalid table is
// reported and ignored so assignments are recomputed.
func (r *Runner) reuseTable(path string) *assign.Table {
	if v := assign.ValidateTable(path); !v.OK {
		r.logger.Warn("assignment table invalid, recomputing enhancer assignments",
			zap.String("path", path), zap.String("reason", v.Reason))
		return nil
	}
	t, err := assign.ReadTable(path)
	if err != nil {
		r.logger.Warn("assignment table unreadable, recomputing enhancer assignments",
			zap.String("path", path), zap.Error(err))
		return nil
	}
	r.logger.Info("reusing enhancer assignment table", zap.String("path", path), zap.Int("rows", len(t.Rows)))
	return t
}

// correlate runs signal-expression correlations, then extracts genotypes
// and runs the genotype correlations.
func (r *Runner) correlate(ctx context.Context, in Inputs, src correlate.Sources, all []assign.Assignment, reused *assign.Table) ([]correlate.Record, error) {
	engine := correlate.NewEngine(r.cfg)

	pairs := assign.Pairs(all)
	if reused != nil {
		known := reused.Candidates()
		kept := pairs[:0:0]
		for _, p := range pairs {
			if _, ok := known[p.Region.Key()]; !ok || p.Region.Kind != regions.Enhancer {
				kept = append(kept, p)
			}
		}
		pairs = kept
	}
	records, err := engine.Run(ctx, src.SignalExpressionTasks(pairs))
	if err != nil {
		return nil, fmt.Errorf("signal-expression correlation: %w", err)
	}
	r.logger.Info("signal-expression correlation", zap.Int("pairs", len(records)))

	keys := make(map[string]bool)
	for _, a := range all {
		keys[a.SNP()] = true
	}
	if len(keys) == 0 {
		return records, nil
	}

	ex := genotype.NewExtractor()
	ex.SetLogger(r.logger)
	samples := matrix.SharedSamples(src.EnhancerSignal, src.PromoterSignal, src.Expression)
	dosage, err := ex.Extract(ctx, in.VCF, keys, samples)
	if err != nil {
		return nil, fmt.Errorf("extract genotypes: %w", err)
	}

	tasks := append(src.GenotypeExpressionTasks(all, dosage), src.GenotypeSignalTasks(all, dosage)...)
	genoRecords, err := engine.Run(ctx, tasks)
	if err != nil {
		return nil, fmt.Errorf("genotype correlation: %w", err)
	}
	r.logger.Info("genotype correlation",
		zap.Int("snps", len(dosage)),
		zap.Int("samples", len(samples)),
		zap.Int("tests", len(genoRecords)))
	return append(records, genoRecords...), nil
}

// signalLookup serves signal-expression evidence for the written table,
// preferring a reused table over this run's correlations.
func signalLookup(reused *assign.Table, idx *correlate.Index) assign.SignalLookup {
	if reused == nil && idx == nil {
		return nil
	}
	return func(region *regions.Region, gene string) (float64, string) {
		if reused != nil {
			if p, rel, ok := reused.Signal(region.Key(), gene); ok {
				return p, rel
			}
		}
		if idx == nil {
			return math.NaN(), string(correlate.UndefinedRelation)
		}
		return idx.Lookup(region, gene)
	}
}

// persist writes enrichment, assignments, evidence and run metadata to
// DuckDB.
func (r *Runner) persist(in Inputs, res *Result, started time.Time) error {
	store, err := duckdb.Open(in.DuckDB)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.WriteEnrichment(res.Enrichment); err != nil {
		return fmt.Errorf("store enrichment: %w", err)
	}
	if err := store.WriteAssignments(res.Table.Rows); err != nil {
		return fmt.Errorf("store assignments: %w", err)
	}
	if err := store.WriteEvidence(res.Rows); err != nil {
		return fmt.Errorf("store evidence: %w", err)
	}

	cfgText, err := yaml.Marshal(r.cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	run := duckdb.Run{
		StartedAt:    started,
		Limited:      r.cfg.Limited,
		Config:       string(cfgText),
		EvidenceRows: len(res.Rows),
		Inputs:       make(map[string]duckdb.FileFingerprint),
	}
	for role, path := range in.files() {
		fp, err := duckdb.StatFile(path)
		if err != nil {
			r.logger.Debug("skip fingerprint", zap.String("path", path), zap.Error(err))
			continue
		}
		run.Inputs[role] = fp
	}
	if err := store.RecordRun(run); err != nil {
		return err
	}
	r.logger.Info("stored run", zap.String("duckdb", in.DuckDB))
	return nil
}
