package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pable/go-qb-stats/internal/artifact"
	"github.com/pable/go-qb-stats/internal/pipeline"
	"github.com/pable/go-qb-stats/internal/predict"
	"github.com/pable/go-qb-stats/internal/report"
	"github.com/pable/go-qb-stats/internal/storage"
)

var (
	runDataDir   string
	runOutDir    string
	runSeasons   []int
	runTrain     []int
	runEval      []int
	runOverwrite string
	runTop       int
	runNoStore   bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full pipeline: aggregate, lag-join, fit and evaluate",
	Long: `Load every ingestion season under the data directory, aggregate passing
stats per quarterback and season, attach previous-season stats, fit the
touchdown regression on the training seasons and evaluate it on the
evaluation seasons.

Artifacts written to the output directory:
  stats_by_year.csv               aggregate table
  touchdowns_and_<column>.png     current and previous-season plots
  touchdowns_and_predictions.png  predicted vs actual touchdowns
  stats_by_year_predictions.csv   evaluation rows with predictions

Existing files are kept or replaced according to --overwrite.`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func init() {
	f := runCmd.Flags()
	f.StringVar(&runDataDir, "data-dir", "", "root directory with one subdirectory per season")
	f.StringVar(&runOutDir, "out-dir", "", "directory for CSV and PNG artifacts")
	f.IntSliceVar(&runSeasons, "seasons", nil, "ingestion seasons, e.g. 2019,2020,2021")
	f.IntSliceVar(&runTrain, "train", nil, "training seasons")
	f.IntSliceVar(&runEval, "eval", nil, "evaluation seasons")
	f.StringVar(&runOverwrite, "overwrite", "", "existing artifacts: prompt, always or never")
	f.IntVar(&runTop, "top", 0, "rows in the top-touchdowns table (0 uses config)")
	f.BoolVar(&runNoStore, "no-store", false, "do not record the run in the store")
}

// applyRunFlags overrides configuration with flags the user set.
func applyRunFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	if f.Changed("data-dir") {
		cfg.DataDir = runDataDir
	}
	if f.Changed("out-dir") {
		cfg.OutputDir = runOutDir
	}
	if f.Changed("seasons") {
		cfg.IngestSeasons = runSeasons
	}
	if f.Changed("train") {
		cfg.TrainSeasons = runTrain
	}
	if f.Changed("eval") {
		cfg.EvalSeasons = runEval
	}
	if f.Changed("overwrite") {
		cfg.Overwrite = runOverwrite
	}
	if f.Changed("top") {
		cfg.Top = runTop
	}
}

func runRun(cmd *cobra.Command, args []string) error {
	applyRunFlags(cmd)
	if err := cfg.Validate(); err != nil {
		return err
	}

	asker, err := artifact.ParseMode(cfg.Overwrite, os.Stdin, os.Stdout)
	if err != nil {
		return err
	}

	var store pipeline.Recorder
	if !runNoStore {
		db, err := openStore()
		if err != nil {
			return err
		}
		defer db.Close()
		store = db
	}

	logger.Info("starting run",
		zap.String("data_dir", cfg.DataDir),
		zap.String("output_dir", cfg.OutputDir),
		zap.String("ingest", predict.FormatSeasons(cfg.IngestSeasons)),
		zap.String("train", predict.FormatSeasons(cfg.TrainSeasons)),
		zap.String("eval", predict.FormatSeasons(cfg.EvalSeasons)))

	p := pipeline.New(artifact.NewWriter(cfg.OutputDir, asker, logger), store, logger)
	res, err := p.Run(pipeline.OptionsFromConfig(cfg))
	if err != nil {
		return err
	}

	report.PrintRunSummary(os.Stdout, res.Run)
	report.PrintCoefficients(os.Stdout, res.Run)
	fmt.Fprintf(os.Stdout, "\nTop QBs by touchdowns (%s):\n", predict.FormatSeasons(cfg.EvalSeasons))
	report.PrintPredictionTable(os.Stdout, predict.TopByTouchdowns(res.Predictions, cfg.Top))
	if len(res.Skipped) > 0 {
		fmt.Fprintf(os.Stdout, "\nKept %d existing artifact(s) unchanged.\n", len(res.Skipped))
	}
	if res.Stored {
		fmt.Fprintf(os.Stdout, "Stored run %s (qbstats show %s)\n", res.Run.ID, report.ShortID(res.Run.ID))
	}
	return nil
}

// openStore opens the run store at the configured path, creating its directory.
func openStore() (*storage.DB, error) {
	if err := ensureParent(cfg.DBPath); err != nil {
		return nil, err
	}
	db, err := storage.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	return db, nil
}
