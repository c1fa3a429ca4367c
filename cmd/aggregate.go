package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/go-qb-stats/internal/aggregator"
	"github.com/pable/go-qb-stats/internal/artifact"
	"github.com/pable/go-qb-stats/internal/pipeline"
	"github.com/pable/go-qb-stats/internal/report"
)

var aggregateCmd = &cobra.Command{
	Use:   "aggregate",
	Short: "Aggregate passing stats per quarterback and season",
	Long:  "Load the ingestion seasons, write stats_by_year.csv and print per-season totals. No model is fitted and nothing is stored.",
	Args:  cobra.NoArgs,
	RunE:  runAggregate,
}

func init() {
	f := aggregateCmd.Flags()
	f.StringVar(&runDataDir, "data-dir", "", "root directory with one subdirectory per season")
	f.StringVar(&runOutDir, "out-dir", "", "directory for the CSV table")
	f.IntSliceVar(&runSeasons, "seasons", nil, "ingestion seasons, e.g. 2019,2020,2021")
	f.StringVar(&runOverwrite, "overwrite", "", "existing artifacts: prompt, always or never")
}

func runAggregate(cmd *cobra.Command, args []string) error {
	applyRunFlags(cmd)
	if err := cfg.ValidateIngest(); err != nil {
		return err
	}
	asker, err := artifact.ParseMode(cfg.Overwrite, os.Stdin, os.Stdout)
	if err != nil {
		return err
	}

	w := artifact.NewWriter(cfg.OutputDir, asker, logger)
	rows, err := pipeline.New(w, nil, logger).Aggregate(pipeline.OptionsFromConfig(cfg))
	if err != nil {
		return err
	}
	if _, err := w.WriteTable(artifact.StatsFile, artifact.SeasonTable(rows)); err != nil {
		return &pipeline.StageError{Stage: pipeline.StageWrite, Key: artifact.StatsFile, Err: err}
	}

	fmt.Fprintf(os.Stdout, "\n%d quarterback seasons\n", len(rows))
	report.PrintSeasonTotals(os.Stdout, aggregator.SeasonTotals(rows))
	return nil
}
