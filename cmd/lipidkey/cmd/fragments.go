package cmd

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/ChrisMcGann/LipidKey/pkg/fragdb"
)

var (
	// Flags for fragments command
	fragmentName string
	fragmentType string
	fragmentMZ   float64
	neutralLoss  bool
)

func init() {
	fragmentsCmd.Flags().StringVar(&ionMode, "ionmode", "", "Ion mode: pos or neg")
	fragmentsCmd.Flags().StringVar(&fragmentName, "name", "", "Only fragments whose name contains this text")
	fragmentsCmd.Flags().StringVar(&fragmentType, "type", "", "Only fragments of this type, e.g. FA-H")
	fragmentsCmd.Flags().Float64Var(&fragmentMZ, "mz", 0, "Only fragments matching this m/z (or loss with --nl)")
	fragmentsCmd.Flags().BoolVar(&neutralLoss, "nl", false, "Match --mz against neutral losses")
	fragmentsCmd.Flags().Float64Var(&ms2Tolerance, "ms2-tolerance", 0, "Match tolerance for --mz in ppm")
}

var fragmentsCmd = &cobra.Command{
	Use:   "fragments",
	Short: "List the fragment database of an ion mode",
	Long: `List the fragments of the database built for an ion mode: the built in
definitions, extra definition files from the config and the chain series.

Examples:
  lipidkey fragments --ionmode neg --type FA-H
  lipidkey fragments --ionmode pos --mz 184.0733`,
	Args: cobra.NoArgs,
	RunE: runFragments,
}

func runFragments(cmd *cobra.Command, args []string) error {
	mode, err := cfg.Mode()
	if err != nil {
		return err
	}
	fragOpts, err := cfg.FragmentOptions(slog.Default())
	if err != nil {
		return err
	}
	db, err := fragdb.Build(mode, fragOpts)
	if err != nil {
		return fmt.Errorf("failed to build fragment database: %w", err)
	}

	records := db.Records()
	if fragmentMZ > 0 {
		records = db.Lookup(fragmentMZ, neutralLoss, cfg.MS2Tolerance)
	}

	fmt.Printf("%12s %6s  %-48s %-12s %s\n", "mass", "charge", "name", "type", "chain")
	fmt.Println(strings.Repeat("=", 90))
	shown := 0
	for _, r := range records {
		if fragmentName != "" && !strings.Contains(r.Name, fragmentName) {
			continue
		}
		if fragmentType != "" && r.FragType != fragmentType {
			continue
		}
		chain := ""
		if r.HasChain() {
			chain = fmt.Sprintf("%s %d:%d", r.ChainType, r.C, r.U)
		}
		fmt.Printf("%12.4f %6d  %-48s %-12s %s\n", r.Mass, r.Charge, r.Name, r.FragType, chain)
		shown++
	}

	fmt.Printf("\nShown: %s of %s fragments (%s)\n",
		humanize.Comma(int64(shown)), humanize.Comma(int64(db.Len())), mode)
	return nil
}
