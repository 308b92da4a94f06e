// Package cmd provides CLI command implementations
package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ChrisMcGann/LipidKey/pkg/config"
	"github.com/ChrisMcGann/LipidKey/pkg/reader/mgf"
)

var (
	// Persistent flags
	configFile  string
	logLevel    string
	logFormat   string
	metricsFile string

	// Flags shared by identify and annotate; they override the config file
	ionMode            string
	ms2Tolerance       float64
	precursorTolerance float64
	rtTolerance        float64
	rtWindow           float64
	noRTCheck          bool
	topN               int
	cutoffPercent      float64

	// cfg is loaded before any command runs
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "lipidkey",
	Short: "LipidKey - lipid identification from LC-MS/MS data",
	Long: `LipidKey identifies lipid species from MS2 spectra. Each MS1 feature
comes with candidate lipid records; its MS2 scans are annotated against a
fragment database and scored by class specific rules for headgroup and
chain evidence.

Settings are read from a YAML file (--config), then LIPIDKEY_* environment
variables, then command line flags.`,
	Version:           "1.0.0",
	SilenceErrors:     true,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(identifyCmd)
	rootCmd.AddCommand(annotateCmd)
	rootCmd.AddCommand(fragmentsCmd)
	rootCmd.AddCommand(summarizeCmd)
	rootCmd.AddCommand(validateCmd)

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format: text or json")
	rootCmd.PersistentFlags().StringVar(&metricsFile, "metrics-file", "", "Write Prometheus metrics to this file")
}

// addScoringFlags binds the flags that override scoring settings.
func addScoringFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&ionMode, "ionmode", "", "Ion mode: pos or neg")
	cmd.Flags().Float64Var(&ms2Tolerance, "ms2-tolerance", 0, "MS2 fragment tolerance in ppm")
	cmd.Flags().Float64Var(&precursorTolerance, "precursor-tolerance", 0, "Precursor match tolerance in ppm")
	cmd.Flags().Float64Var(&rtTolerance, "rt-tolerance", 0, "Largest accepted scan delta RT in minutes")
	cmd.Flags().Float64Var(&rtWindow, "rt-window", 0, "Feature RT window in minutes")
	cmd.Flags().BoolVar(&noRTCheck, "no-rt-check", false, "Accept scans regardless of retention time")
	cmd.Flags().IntVar(&topN, "top-n", 0, "Keep only top N most intense peaks (0 = no limit)")
	cmd.Flags().Float64Var(&cutoffPercent, "cutoff", 0, "Intensity cutoff as % of base peak (0 = no cutoff)")
}

func setup(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(configFile)
	if err != nil {
		return err
	}

	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logFormat != "" {
		cfg.Log.Format = logFormat
	}
	if err := applyFlags(cmd); err != nil {
		return err
	}

	logger, err := newLogger(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)
	return nil
}

// applyFlags copies the flags set on the command line over the config.
func applyFlags(cmd *cobra.Command) error {
	flags := cmd.Flags()
	if flags.Changed("ionmode") {
		cfg.IonMode = ionMode
	}
	if flags.Changed("ms2-tolerance") {
		cfg.MS2Tolerance = ms2Tolerance
	}
	if flags.Changed("precursor-tolerance") {
		cfg.PrecursorTolerance = precursorTolerance
	}
	if flags.Changed("rt-tolerance") {
		cfg.RTTolerance = rtTolerance
	}
	if flags.Changed("rt-window") {
		cfg.RTWindow = rtWindow
	}
	if flags.Changed("no-rt-check") {
		cfg.CheckRT = !noRTCheck
	}
	if flags.Changed("top-n") {
		cfg.Filter.TopN = topN
	}
	if flags.Changed("cutoff") {
		cfg.Filter.Cutoff = cutoffPercent
	}
	if flags.Changed("workers") {
		cfg.Workers = workers
	}
	return cfg.Validate()
}

func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	lvl, err := config.ParseLogLevel(level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: lvl}
	switch strings.ToLower(format) {
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("invalid log format '%s', must be text or json", format)
	}
}

// indexOptions returns the MGF index settings of the loaded config.
func indexOptions(logger *slog.Logger) mgf.Options {
	return mgf.Options{
		Charge:      cfg.Charge,
		Tolerance:   cfg.PrecursorTolerance,
		Drift:       cfg.Drift,
		RTTolerance: cfg.RTTolerance,
		IgnoreRT:    !cfg.CheckRT,
		CacheSize:   cfg.ScanCache,
		Logger:      logger,
	}
}
