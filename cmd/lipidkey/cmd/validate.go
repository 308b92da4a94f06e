package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/ChrisMcGann/LipidKey/pkg/config"
	"github.com/ChrisMcGann/LipidKey/pkg/core"
	"github.com/ChrisMcGann/LipidKey/pkg/fragdb"
	"github.com/ChrisMcGann/LipidKey/pkg/identify"
	"github.com/ChrisMcGann/LipidKey/pkg/reader/mgf"
)

var validateCmd = &cobra.Command{
	Use:   "validate [file...]",
	Short: "Validate the configuration and input files",
	Long: `Check that the configuration is valid, the fragment databases and the
identification table build, and that every given file parses. The file type
comes from the extension: .mgf for MS2 scans, .yaml or .yml for a config file
and anything else for a candidates TSV.`,
	RunE: runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	logger := slog.Default()

	fragOpts, err := cfg.FragmentOptions(logger)
	if err != nil {
		return err
	}
	registry, err := fragdb.NewRegistry(fragOpts)
	if err != nil {
		return fmt.Errorf("invalid fragment database: %w", err)
	}
	for _, mode := range []core.IonMode{core.Positive, core.Negative} {
		fmt.Printf("Fragment database %s: %s records\n", mode, humanize.Comma(int64(registry.For(mode).Len())))
	}
	table, err := identify.DefaultTable()
	if err != nil {
		return fmt.Errorf("invalid identification table: %w", err)
	}
	fmt.Printf("Identification table: %d classes\n", table.Len())

	failed := 0
	for _, path := range args {
		var err error
		switch strings.ToLower(filepath.Ext(path)) {
		case ".mgf":
			err = validateMGF(path, logger)
		case ".yaml", ".yml":
			_, err = config.Load(path)
			if err == nil {
				fmt.Printf("%s: valid config\n", path)
			}
		default:
			err = validateCandidates(path, logger)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d files failed validation", failed, len(args))
	}
	return nil
}

// validateMGF streams every spectrum through the peak filter and the
// spectrum checks.
func validateMGF(path string, logger *slog.Logger) error {
	inFile, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open input file: %w", err)
	}
	defer inFile.Close()

	reader := mgf.NewReader(inFile, path)
	reader.Logger = logger
	filterConfig := cfg.FilterConfig()

	count := 0
	skipped := 0
	for reader.Next() {
		spec := reader.Spectrum()
		count++

		if err := filterConfig.Apply(spec); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to filter spectrum %s: %v\n", spec.Name(), err)
			skipped++
			continue
		}
		if err := spec.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: invalid spectrum %s: %v\n", spec.Name(), err)
			skipped++
			continue
		}

		if count%10000 == 0 {
			fmt.Printf("Processed %s spectra...\n", humanize.Comma(int64(count)))
		}
	}
	if err := reader.Err(); err != nil {
		return fmt.Errorf("error reading input file: %w", err)
	}

	fmt.Printf("%s: %s spectra", path, humanize.Comma(int64(count)))
	if skipped > 0 {
		fmt.Printf(", %s invalid", humanize.Comma(int64(skipped)))
	}
	fmt.Println()
	if count == 0 {
		return fmt.Errorf("no spectra found")
	}
	return nil
}

func validateCandidates(path string, logger *slog.Logger) error {
	features, err := readCandidates(path, logger)
	if err != nil {
		return err
	}
	total := 0
	for _, f := range features {
		total += len(f.Candidates)
	}
	fmt.Printf("%s: %s features, %s candidates\n", path,
		humanize.Comma(int64(len(features))), humanize.Comma(int64(total)))
	if len(features) == 0 {
		return fmt.Errorf("no features found")
	}
	return nil
}
