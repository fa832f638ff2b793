package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/inodb/regsnp/internal/pipeline"
)

type loggerFunc func() (*zap.Logger, error)

func newRunCmd(newLogger loggerFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the full analysis",
		Example: `  regsnp run --vcf cohort.vcf.gz --promoters promoters.bed --enhancers enhancers.bed \
    --gtf gencode.gtf --enhancer-signal h3k27ac.csv --promoter-signal h3k4me3.tsv \
    --expression rsem.tsv -o results
  regsnp run --limited-analysis --vcf cohort.vcf.gz --promoters p.bed --enhancers e.bed --gtf g.gtf
  regsnp run --freq-filter-target c --population NFE,FIN --reference-population NFE ...`,
		Args: cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return bindFlags(cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := buildConfig()
			if err != nil {
				return err
			}
			logger, err := newLogger()
			if err != nil {
				return fmt.Errorf("create logger: %w", err)
			}
			defer logger.Sync() //nolint:errcheck

			runner := pipeline.NewRunner(cfg)
			runner.SetLogger(logger)
			in := buildInputs()
			res, err := runner.Run(cmd.Context(), in)
			if err != nil {
				return err
			}
			logger.Info("done",
				zap.String("output", in.OutputDir),
				zap.Int("evidence_rows", len(res.Rows)),
				zap.Int("correlations", len(res.Correlations)))
			return nil
		},
	}
	addAnalysisFlags(cmd.Flags())
	addInputFlags(cmd.Flags())
	return cmd
}

func newCheckCmd(newLogger loggerFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify inputs, configuration and external tools without running",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return bindFlags(cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := buildConfig()
			if err != nil {
				return err
			}
			logger, err := newLogger()
			if err != nil {
				return fmt.Errorf("create logger: %w", err)
			}
			defer logger.Sync() //nolint:errcheck

			runner := pipeline.NewRunner(cfg)
			runner.SetLogger(logger)
			if _, err := runner.Check(buildInputs()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "all inputs and tools available")
			return nil
		},
	}
	addAnalysisFlags(cmd.Flags())
	addInputFlags(cmd.Flags())
	return cmd
}
