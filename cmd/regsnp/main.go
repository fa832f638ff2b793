// Package main provides the regsnp command-line tool.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Exit codes
const (
	ExitSuccess = 0
	ExitError   = 1
)

// Version information (set at build time)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const configName = ".regsnp"

func main() {
	os.Exit(run())
}

func run() int {
	if err := newRootCmd().Execute(); err != nil {
		return ExitError
	}
	return ExitSuccess
}

func newRootCmd() *cobra.Command {
	var cfgFile string
	var verbose bool

	cmd := &cobra.Command{
		Use:   "regsnp",
		Short: "Regulatory SNP enrichment and target-gene evidence",
		Long: `regsnp filters cohort variants by population frequency, tests promoter and
enhancer variants for allele-frequency enrichment against a reference
population, assigns target genes and correlates genotype, regulatory signal
and expression.`,
		Version:       fmt.Sprintf("%s (%s) built %s", version, commit, date),
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(cfgFile)
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/"+configName+".yaml)")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "development logging with debug output")

	logger := func() (*zap.Logger, error) {
		if verbose {
			return zap.NewDevelopment()
		}
		return zap.NewProduction()
	}

	cmd.AddCommand(newRunCmd(logger))
	cmd.AddCommand(newCheckCmd(logger))
	cmd.AddCommand(newConfigCmd())
	return cmd
}

// initConfig reads the config file and environment into viper.
func initConfig(cfgFile string) error {
	viper.SetEnvPrefix("REGSNP")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()
	setDefaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil
		}
		viper.AddConfigPath(home)
		viper.SetConfigName(configName)
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("reading config %s: %w", filepath.Clean(viper.ConfigFileUsed()), err)
	}
	return nil
}
