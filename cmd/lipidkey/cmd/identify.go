package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/ChrisMcGann/LipidKey/pkg/feature"
	"github.com/ChrisMcGann/LipidKey/pkg/fragdb"
	"github.com/ChrisMcGann/LipidKey/pkg/identify"
	"github.com/ChrisMcGann/LipidKey/pkg/metrics"
	"github.com/ChrisMcGann/LipidKey/pkg/reader/candidates"
	"github.com/ChrisMcGann/LipidKey/pkg/reader/mgf"
	"github.com/ChrisMcGann/LipidKey/pkg/writer/sqlite"
)

var (
	// Flags for identify command
	candidatesFile string
	mgfFiles       []string
	outputFile     string
	description    string
	workers        int
)

func init() {
	identifyCmd.Flags().StringVarP(&candidatesFile, "candidates", "i", "", "Candidates TSV file (required)")
	identifyCmd.Flags().StringArrayVarP(&mgfFiles, "mgf", "m", nil, "MGF file as path or sample=path, repeatable (required)")
	identifyCmd.Flags().StringVarP(&outputFile, "out", "o", "", "Output SQLite database")
	identifyCmd.Flags().StringVar(&description, "description", "", "Run description stored with the results")
	identifyCmd.Flags().IntVarP(&workers, "workers", "w", 0, "Number of features identified in parallel")
	addScoringFlags(identifyCmd)

	identifyCmd.MarkFlagRequired("candidates")
	identifyCmd.MarkFlagRequired("mgf")
}

var identifyCmd = &cobra.Command{
	Use:   "identify",
	Short: "Identify lipid species of MS1 features from their MS2 scans",
	Long: `Identify lipid species for every feature of a candidates file. MS2 scans
are looked up by precursor m/z (and retention time) in the MGF files, annotated
and scored against each candidate record. Files given as sample=path are
grouped by sample; a bare path uses its base name as sample id.

Examples:
  # Identify features against two samples
  lipidkey identify --candidates features.tsv --mgf S1=s1.mgf --mgf S2=s2.mgf

  # Store results and ignore retention times
  lipidkey identify -i features.tsv -m run.mgf --out results.db --no-rt-check`,
	RunE: runIdentify,
}

func runIdentify(cmd *cobra.Command, args []string) error {
	logger := slog.Default()
	start := time.Now()

	samples, closeAll, err := openSamples(mgfFiles, logger)
	if err != nil {
		return err
	}
	defer closeAll()

	features, err := readCandidates(candidatesFile, logger)
	if err != nil {
		return err
	}

	fmt.Printf("Identifying %s features in %d samples...\n", humanize.Comma(int64(len(features))), len(samples))
	fmt.Printf("MS2 tolerance: %.1f ppm\n", cfg.MS2Tolerance)
	fmt.Printf("Precursor tolerance: %.1f ppm\n", cfg.PrecursorTolerance)
	if cfg.CheckRT {
		fmt.Printf("RT window: %.2f min\n", cfg.RTWindow)
	}

	fragOpts, err := cfg.FragmentOptions(logger)
	if err != nil {
		return err
	}
	registry, err := fragdb.NewRegistry(fragOpts)
	if err != nil {
		return fmt.Errorf("failed to build fragment database: %w", err)
	}
	table, err := identify.DefaultTable()
	if err != nil {
		return fmt.Errorf("invalid identification table: %w", err)
	}
	adducts, err := cfg.Adducts()
	if err != nil {
		return err
	}

	m := metrics.New()
	identifier, err := feature.NewIdentifier(feature.Options{
		Registry:     registry,
		Table:        table,
		Adducts:      adducts,
		Samples:      samples,
		Tolerance:    cfg.MS2Tolerance,
		CheckRatioGL: cfg.IntensityRatios.GLGPL,
		CheckRatioSL: cfg.IntensityRatios.SL,
		LogBase:      cfg.IntensityRatios.LogBase,
		Filter:       cfg.FilterConfig(),
		CheckRT:      cfg.CheckRT,
		RTWindow:     cfg.RTWindow,
		Logger:       logger,
		Metrics:      m,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	results, err := identifier.IdentifyAll(ctx, features, cfg.Workers)
	if err != nil {
		return fmt.Errorf("identification failed: %w", err)
	}

	identified := 0
	for _, res := range results {
		if !res.Identified() {
			continue
		}
		identified++
		for _, species := range res.Species() {
			fmt.Printf("%s\t%s\n", res.Feature.Name, species)
		}
	}

	if outputFile != "" {
		if err := writeResults(outputFile, results); err != nil {
			return err
		}
	}
	if metricsFile != "" {
		if err := m.WriteFile(metricsFile); err != nil {
			return err
		}
	}

	fmt.Printf("\nIdentification complete!\n")
	fmt.Printf("Features: %s\n", humanize.Comma(int64(len(results))))
	fmt.Printf("Identified: %s (%.1f%%)\n", humanize.Comma(int64(identified)), percent(identified, len(results)))
	if outputFile != "" {
		fmt.Printf("Output: %s\n", outputFile)
	}
	fmt.Printf("Elapsed: %s\n", time.Since(start).Round(time.Millisecond))

	return nil
}

// parseSampleArg splits "sample=path"; a bare path is its own sample,
// named after the file.
func parseSampleArg(arg string) (id, path string) {
	if i := strings.Index(arg, "="); i > 0 {
		return arg[:i], arg[i+1:]
	}
	base := filepath.Base(arg)
	return strings.TrimSuffix(base, filepath.Ext(base)), arg
}

// openSamples indexes the MGF files and groups them by sample, keeping
// the order samples first appear in.
func openSamples(args []string, logger *slog.Logger) ([]feature.Sample, func(), error) {
	var (
		samples []feature.Sample
		indexes []*mgf.Index
	)
	closeAll := func() {
		for _, x := range indexes {
			x.Close()
		}
	}

	bySample := make(map[string]int)
	for _, arg := range args {
		id, path := parseSampleArg(arg)
		x, err := mgf.Open(path, indexOptions(logger))
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		indexes = append(indexes, x)
		logger.Info("indexed mgf file", "sample", id, "file", path, "scans", x.Len())

		i, ok := bySample[id]
		if !ok {
			i = len(samples)
			bySample[id] = i
			samples = append(samples, feature.Sample{ID: id})
		}
		samples[i].Sources = append(samples[i].Sources, x)
	}
	return samples, closeAll, nil
}

func readCandidates(path string, logger *slog.Logger) ([]*feature.Feature, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open candidates file: %w", err)
	}
	defer file.Close()

	reader := candidates.NewReader(file)
	reader.Logger = logger
	features, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("error reading candidates file: %w", err)
	}
	return features, nil
}

func writeResults(path string, results []*feature.Result) error {
	mode, err := cfg.Mode()
	if err != nil {
		return err
	}
	writer, err := sqlite.NewWriter(path, sqlite.RunInfo{
		IonMode:     mode,
		Tolerance:   cfg.MS2Tolerance,
		Description: description,
	})
	if err != nil {
		return fmt.Errorf("failed to create output database: %w", err)
	}

	for _, res := range results {
		if err := writer.WriteResult(res); err != nil {
			writer.Close()
			return fmt.Errorf("failed to write feature %s: %w", res.Feature.Name, err)
		}
	}

	if err := writer.Finalize(); err != nil {
		return fmt.Errorf("failed to finalize database: %w", err)
	}
	return nil
}

func percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return 100 * float64(n) / float64(total)
}
