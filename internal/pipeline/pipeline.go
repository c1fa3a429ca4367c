// Package pipeline runs the batch: load, aggregate, lag-join, fit, evaluate
// and write artifacts, recording the run when a store is given.
package pipeline

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pable/go-qb-stats/internal/aggregator"
	"github.com/pable/go-qb-stats/internal/artifact"
	"github.com/pable/go-qb-stats/internal/config"
	"github.com/pable/go-qb-stats/internal/loader"
	"github.com/pable/go-qb-stats/internal/model"
	"github.com/pable/go-qb-stats/internal/predict"
	"github.com/pable/go-qb-stats/internal/regress"
)

// Stage names reported in StageError.
const (
	StageDiscover  = "discover"
	StageLoad      = "load"
	StageAggregate = "aggregate"
	StageLagJoin   = "lag-join"
	StageModel     = "model"
	StageWrite     = "write"
	StageStore     = "store"
)

// StageError identifies the stage and the key (season set or artifact path)
// a run failed on.
type StageError struct {
	Stage string
	Key   string
	Err   error
}

func (e *StageError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("%s: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("%s [%s]: %v", e.Stage, e.Key, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

func stageErr(stage, key string, err error) error {
	return &StageError{Stage: stage, Key: key, Err: err}
}

// Recorder persists a finished run.
type Recorder interface {
	InsertRun(run model.RunSummary, seasons []model.QBSeason, preds []model.Prediction) error
}

// Options are the inputs of one run.
type Options struct {
	DataDir       string
	IngestSeasons []int
	Partition     predict.Partition
}

// OptionsFromConfig maps loaded settings to run options.
func OptionsFromConfig(c *config.Config) Options {
	return Options{
		DataDir:       c.DataDir,
		IngestSeasons: c.IngestSeasons,
		Partition:     predict.Partition{Train: c.TrainSeasons, Eval: c.EvalSeasons},
	}
}

// Result is everything a run produced.
type Result struct {
	Run         model.RunSummary
	Seasons     []model.QBSeason
	Lagged      []model.LaggedSeason
	Predictions []model.Prediction
	Model       *regress.Linear
	Skipped     []string // artifacts left untouched after a refusal
	Stored      bool
}

// Pipeline wires the stages to an artifact writer and an optional store.
type Pipeline struct {
	Writer *artifact.Writer
	Store  Recorder // nil disables run history
	Log    *zap.Logger

	now   func() time.Time
	newID func() string
}

// New returns a Pipeline. log may be nil.
func New(w *artifact.Writer, store Recorder, log *zap.Logger) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{
		Writer: w,
		Store:  store,
		Log:    log,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// Aggregate discovers and loads the ingestion seasons and returns the
// per-quarterback season table.
func (p *Pipeline) Aggregate(opts Options) ([]model.QBSeason, error) {
	seasons := predict.FormatSeasons(opts.IngestSeasons)
	dirs, err := loader.Discover(opts.DataDir, loader.SeasonFilter(opts.IngestSeasons))
	if err != nil {
		return nil, stageErr(StageDiscover, opts.DataDir, err)
	}
	for _, s := range loader.MissingSeasons(dirs, opts.IngestSeasons) {
		p.Log.Warn("no directory for season", zap.Int("season", s), zap.String("data_dir", opts.DataDir))
	}
	if len(dirs) == 0 {
		return nil, stageErr(StageDiscover, seasons, fmt.Errorf("no season directories under %s: %w",
			opts.DataDir, loader.ErrMissingSeasonFile))
	}

	plays, err := loader.Load(dirs, p.Log)
	if err != nil {
		return nil, stageErr(StageLoad, seasons, err)
	}
	rows := aggregator.Aggregate(plays)
	p.Log.Info("aggregated quarterback seasons", zap.Int("plays", len(plays)), zap.Int("rows", len(rows)))
	return rows, nil
}

// Run executes the full batch.
func (p *Pipeline) Run(opts Options) (*Result, error) {
	if err := opts.Partition.Validate(); err != nil {
		return nil, stageErr(StageModel, "", err)
	}

	rows, err := p.Aggregate(opts)
	if err != nil {
		return nil, err
	}
	res := &Result{Seasons: rows}

	if err := p.table(res, artifact.StatsFile, artifact.SeasonTable(rows)); err != nil {
		return nil, err
	}
	if err := p.plots(res, artifact.SeasonBatch("", rows, model.ColTouchdown, artifact.CurrentPlotColumns)); err != nil {
		return nil, err
	}

	lagged, err := aggregator.LagJoin(rows)
	if err != nil {
		return nil, stageErr(StageLagJoin, predict.FormatSeasons(opts.IngestSeasons), err)
	}
	res.Lagged = lagged
	if err := p.plots(res, artifact.LaggedBatch("", lagged, model.ColTouchdown, artifact.PrevPlotColumns)); err != nil {
		return nil, err
	}

	fit, err := predict.Run(lagged, opts.Partition)
	if err != nil {
		return nil, stageErr(StageModel, "train "+predict.FormatSeasons(opts.Partition.Train)+
			" eval "+predict.FormatSeasons(opts.Partition.Eval), err)
	}
	res.Model = fit.Model
	res.Predictions = fit.Predictions
	p.Log.Info("evaluated model",
		zap.Int("train_rows", fit.TrainRows),
		zap.Int("eval_rows", len(fit.Predictions)),
		zap.Float64("rmse", fit.Metrics.RMSE),
		zap.Int("rank", fit.Model.Rank))
	if math.IsNaN(fit.Metrics.R2) {
		p.Log.Warn("r2 undefined: predicted or actual touchdowns are constant")
	} else {
		p.Log.Info("correlation", zap.Float64("r2", fit.Metrics.R2))
	}

	if err := p.plots(res, artifact.PredictionBatch("", fit.Predictions)); err != nil {
		return nil, err
	}
	if err := p.table(res, artifact.PredictionsFile, artifact.PredictionTable(fit.Predictions)); err != nil {
		return nil, err
	}

	res.Run = model.RunSummary{
		ID:            p.newID(),
		CreatedAt:     p.now().UTC(),
		IngestSeasons: opts.IngestSeasons,
		TrainSeasons:  opts.Partition.Train,
		EvalSeasons:   opts.Partition.Eval,
		TrainRows:     fit.TrainRows,
		EvalRows:      len(fit.Predictions),
		Intercept:     fit.Model.Intercept,
		Coefficients:  fit.Model.Coefficients,
		Metrics:       fit.Metrics,
	}
	if p.Store != nil {
		if err := p.Store.InsertRun(res.Run, rows, fit.Predictions); err != nil {
			return nil, stageErr(StageStore, res.Run.ID, err)
		}
		res.Stored = true
		p.Log.Info("stored run", zap.String("run_id", res.Run.ID))
	}
	return res, nil
}

func (p *Pipeline) table(res *Result, name string, t artifact.Table) error {
	ok, err := p.Writer.WriteTable(name, t)
	if err != nil {
		return stageErr(StageWrite, name, err)
	}
	if !ok {
		res.Skipped = append(res.Skipped, name)
	}
	return nil
}

func (p *Pipeline) plots(res *Result, b artifact.PlotBatch) error {
	names := make([]string, len(b.Series))
	for i, s := range b.Series {
		names[i] = filepath.Base(p.Writer.PlotPath(s.Y))
	}
	ok, err := p.Writer.WritePlots(b)
	if err != nil {
		return stageErr(StageWrite, strings.Join(names, ","), err)
	}
	if !ok {
		res.Skipped = append(res.Skipped, names...)
	}
	return nil
}
