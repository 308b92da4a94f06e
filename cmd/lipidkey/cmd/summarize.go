package cmd

import (
	"fmt"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/ChrisMcGann/LipidKey/pkg/writer/sqlite"
)

var (
	// Flags for summarize command
	runID string
)

func init() {
	summarizeCmd.Flags().StringVar(&runID, "run", "", "Only summarize this run id")
}

var summarizeCmd = &cobra.Command{
	Use:   "summarize [file]",
	Short: "Summarize an identification results database",
	Long:  `Print the runs of a results database and identity counts per lipid class.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runSummarize,
}

// classCount tallies the identities of one class.
type classCount struct {
	class    string
	count    int
	features map[string]struct{}
	scoreSum int
}

func runSummarize(cmd *cobra.Command, args []string) error {
	store, err := sqlite.Open(args[0])
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.Runs()
	if err != nil {
		return err
	}
	fmt.Printf("Runs: %d\n", len(runs))
	for _, r := range runs {
		if runID != "" && r.ID != runID {
			continue
		}
		fmt.Printf("  %s  %s  %s  %.1f ppm  %s features, %s identified",
			r.ID, r.CreationDate, r.Polarity, r.Tolerance,
			humanize.Comma(int64(r.FeatureCount)), humanize.Comma(int64(r.IdentifiedCount)))
		if r.Description != "" {
			fmt.Printf("  (%s)", r.Description)
		}
		fmt.Println()
	}

	rows, err := store.Identities(runID)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Println("\nNo identities")
		return nil
	}

	byClass := make(map[string]*classCount)
	for _, row := range rows {
		c, ok := byClass[row.Headgroup]
		if !ok {
			c = &classCount{class: row.Headgroup, features: make(map[string]struct{})}
			byClass[row.Headgroup] = c
		}
		c.count++
		c.scoreSum += row.ScorePct
		c.features[row.RunID+"/"+row.Feature] = struct{}{}
	}

	classes := make([]*classCount, 0, len(byClass))
	for _, c := range byClass {
		classes = append(classes, c)
	}
	sort.Slice(classes, func(i, j int) bool {
		if classes[i].count != classes[j].count {
			return classes[i].count > classes[j].count
		}
		return classes[i].class < classes[j].class
	})

	fmt.Printf("\n%-16s %10s %10s %10s\n", "class", "species", "features", "mean %")
	for _, c := range classes {
		fmt.Printf("%-16s %10s %10s %10.1f\n", c.class,
			humanize.Comma(int64(c.count)), humanize.Comma(int64(len(c.features))),
			float64(c.scoreSum)/float64(c.count))
	}
	fmt.Printf("\nTotal: %s identities\n", humanize.Comma(int64(len(rows))))
	return nil
}
