package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/go-qb-stats/internal/aggregator"
	"github.com/pable/go-qb-stats/internal/report"
)

var (
	showTop     int
	showSeasons bool
)

var showCmd = &cobra.Command{
	Use:   "show <run-id-prefix>",
	Short: "Show a stored run's metrics, coefficients and top predictions",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func init() {
	showCmd.Flags().IntVar(&showTop, "top", 20, "prediction rows to show (0 for all)")
	showCmd.Flags().BoolVar(&showSeasons, "seasons", false, "also print per-season totals of the stored aggregate")
}

func runShow(cmd *cobra.Command, args []string) error {
	prefix := args[0]

	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	run, err := db.GetRunByPrefix(prefix)
	if err != nil {
		return fmt.Errorf("query run: %w", err)
	}
	if run == nil {
		fmt.Fprintf(os.Stderr, "No run found with id prefix %q\n", prefix)
		return nil
	}

	preds, err := db.GetPredictions(run.ID)
	if err != nil {
		return fmt.Errorf("get predictions: %w", err)
	}
	if showTop > 0 && len(preds) > showTop {
		preds = preds[:showTop]
	}

	report.PrintRunSummary(os.Stdout, *run)
	report.PrintCoefficients(os.Stdout, *run)
	fmt.Fprintln(os.Stdout)
	report.PrintPredictionTable(os.Stdout, preds)

	if showSeasons {
		rows, err := db.GetQBSeasons(run.ID)
		if err != nil {
			return fmt.Errorf("get qb seasons: %w", err)
		}
		fmt.Fprintln(os.Stdout)
		report.PrintSeasonTotals(os.Stdout, aggregator.SeasonTotals(rows))
	}
	return nil
}
