package model

import (
	"fmt"
	"time"
)

// Column names as they appear in the play-by-play files and in the output tables.
const (
	ColSeason       = "season"
	ColPasserID     = "passer_id"
	ColPasser       = "passer"
	ColPass         = "pass"
	ColCompletePass = "complete_pass"
	ColInterception = "interception"
	ColSack         = "sack"
	ColYardsGained  = "yards_gained"
	ColTouchdown    = "touchdown"

	// PrevSuffix is appended to a stat column name for the previous-season value.
	PrevSuffix = "_prev"
	// ColPredictions holds the model output in the predictions table.
	ColPredictions = "predictions"
)

// PlayColumns is the fixed projection read from every season file.
var PlayColumns = []string{
	ColSeason, ColPasserID, ColPasser,
	ColPass, ColCompletePass, ColInterception, ColSack, ColYardsGained, ColTouchdown,
}

// StatColumns are the summed, non-key columns in table order.
var StatColumns = []string{
	ColPass, ColCompletePass, ColInterception, ColSack, ColYardsGained, ColTouchdown,
}

// PrevColumn returns the previous-season column name for a stat column.
func PrevColumn(col string) string { return col + PrevSuffix }

// ---- Raw rows emitted by the loader ----

// Key identifies one quarterback in one season.
type Key struct {
	Season     int
	PasserID   string
	PasserName string
}

func (k Key) String() string {
	return fmt.Sprintf("%d/%s/%s", k.Season, k.PasserID, k.PasserName)
}

// Less orders keys by season, then passer id, then passer name.
func (k Key) Less(o Key) bool {
	if k.Season != o.Season {
		return k.Season < o.Season
	}
	if k.PasserID != o.PasserID {
		return k.PasserID < o.PasserID
	}
	return k.PasserName < o.PasserName
}

// NullFloat is a numeric cell that may be absent in the source file.
type NullFloat struct {
	Value float64
	Valid bool
}

// Play is one row of play-by-play data restricted to the passing columns.
// KeyValid is false when season, passer id or passer name is missing; such
// plays are dropped at grouping time.
type Play struct {
	Index    int // contiguous across all loaded files
	Key      Key
	KeyValid bool

	Pass         NullFloat
	CompletePass NullFloat
	Interception NullFloat
	Sack         NullFloat
	YardsGained  NullFloat
	Touchdown    NullFloat
}

// ---- Aggregated rows ----

// Stats holds the summed passing stats for one key.
type Stats struct {
	Pass         float64
	CompletePass float64
	Interception float64
	Sack         float64
	YardsGained  float64
	Touchdown    float64
}

// Value returns the stat named by col. ok is false for unknown columns.
func (s Stats) Value(col string) (v float64, ok bool) {
	switch col {
	case ColPass:
		return s.Pass, true
	case ColCompletePass:
		return s.CompletePass, true
	case ColInterception:
		return s.Interception, true
	case ColSack:
		return s.Sack, true
	case ColYardsGained:
		return s.YardsGained, true
	case ColTouchdown:
		return s.Touchdown, true
	}
	return 0, false
}

// Values returns the stats in StatColumns order.
func (s Stats) Values() []float64 {
	return []float64{s.Pass, s.CompletePass, s.Interception, s.Sack, s.YardsGained, s.Touchdown}
}

// QBSeason is one row of the aggregate table.
type QBSeason struct {
	Key
	Stats
}

// LaggedSeason is a QBSeason joined to the same quarterback's previous season.
// Prev is nil when no season-1 row exists.
type LaggedSeason struct {
	QBSeason
	Prev *Stats
}

// Column resolves a current or "_prev" column for plotting. ok is false when
// the column is unknown or the previous season is absent.
func (l LaggedSeason) Column(col string) (v float64, ok bool) {
	if col == ColSeason {
		return float64(l.Season), true
	}
	if len(col) > len(PrevSuffix) && col[len(col)-len(PrevSuffix):] == PrevSuffix {
		if l.Prev == nil {
			return 0, false
		}
		return l.Prev.Value(col[:len(col)-len(PrevSuffix)])
	}
	return l.Stats.Value(col)
}

// Prediction is an evaluation row with the model's touchdown estimate.
type Prediction struct {
	LaggedSeason
	Predicted float64
}

// FitMetrics summarises prediction quality on the evaluation rows.
// R2 is the squared Pearson correlation; NaN when it is undefined.
type FitMetrics struct {
	RMSE float64
	R2   float64
}

// RunSummary is the stored record of one pipeline run.
type RunSummary struct {
	ID            string
	CreatedAt     time.Time
	IngestSeasons []int
	TrainSeasons  []int
	EvalSeasons   []int
	TrainRows     int
	EvalRows      int
	Intercept     float64
	Coefficients  []float64
	Metrics       FitMetrics
}

// SeasonTotals is a per-season overview used by the aggregate report.
type SeasonTotals struct {
	Season      int
	Passers     int
	Pass        float64
	Touchdown   float64
	YardsGained float64
}
