package cmd

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/spf13/cobra"

	"github.com/ChrisMcGann/LipidKey/pkg/fragdb"
	"github.com/ChrisMcGann/LipidKey/pkg/reader/mgf"
	"github.com/ChrisMcGann/LipidKey/pkg/scan"
)

var (
	// Flags for annotate command
	annotateFile string
	scanNumber   int
	adductName   string
	fullList     bool
)

func init() {
	annotateCmd.Flags().StringVarP(&annotateFile, "mgf", "m", "", "MGF file (required)")
	annotateCmd.Flags().IntVarP(&scanNumber, "scan", "s", 0, "Scan number (required)")
	annotateCmd.Flags().StringVarP(&adductName, "adduct", "a", "", "Precursor adduct, e.g. [M+Na]+ (default: reference adduct of the ion mode)")
	annotateCmd.Flags().BoolVar(&fullList, "full", false, "Print all annotations on one line")
	addScoringFlags(annotateCmd)

	annotateCmd.MarkFlagRequired("mgf")
	annotateCmd.MarkFlagRequired("scan")
}

var annotateCmd = &cobra.Command{
	Use:   "annotate",
	Short: "Annotate the peaks of one MS2 scan",
	Long: `Annotate every peak of an MS2 scan against the fragment database of the
ion mode and print them in intensity order.

Examples:
  lipidkey annotate --mgf run.mgf --scan 1234 --ionmode neg
  lipidkey annotate --mgf run.mgf --scan 1234 --ionmode pos --adduct "[M+Na]+"`,
	RunE: runAnnotate,
}

func runAnnotate(cmd *cobra.Command, args []string) error {
	logger := slog.Default()

	mode, err := cfg.Mode()
	if err != nil {
		return err
	}

	index, err := mgf.Open(annotateFile, indexOptions(logger))
	if err != nil {
		return err
	}
	defer index.Close()

	spec, err := index.ScanByID(scanNumber)
	if err != nil {
		return err
	}
	filterConfig := cfg.FilterConfig()
	if err := filterConfig.Apply(spec); err != nil {
		return fmt.Errorf("failed to filter scan %d: %w", scanNumber, err)
	}

	fragOpts, err := cfg.FragmentOptions(logger)
	if err != nil {
		return err
	}
	db, err := fragdb.Build(mode, fragOpts)
	if err != nil {
		return fmt.Errorf("failed to build fragment database: %w", err)
	}
	adducts, err := cfg.Adducts()
	if err != nil {
		return err
	}

	mzs, intensities := spec.Arrays()
	s, err := scan.New(mzs, intensities, db, scan.Options{
		Info: scan.Info{
			ScanID:  spec.ScanID,
			Source:  index.Name(),
			RT:      spec.RetentionTime,
			DeltaRT: math.NaN(),
		},
		Precursor: spec.PrecursorMZ,
		Tolerance: cfg.MS2Tolerance,
		LogBase:   cfg.IntensityRatios.LogBase,
		Adducts:   adducts,
	})
	if err != nil {
		return fmt.Errorf("scan %d: %w", scanNumber, err)
	}

	view, err := s.ForAdduct(adductName)
	if err != nil {
		return err
	}
	if fullList {
		fmt.Println(view.FullList())
		return nil
	}
	fmt.Print(view.Table())
	return nil
}
