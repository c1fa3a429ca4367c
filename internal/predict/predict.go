// Package predict builds the lagged-feature model dataset, partitions it by
// season, fits the touchdown regression and scores it on held-out seasons.
package predict

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/pable/go-qb-stats/internal/model"
	"github.com/pable/go-qb-stats/internal/regress"
)

var (
	// ErrInsufficientData is returned when a partition has no usable rows.
	ErrInsufficientData = errors.New("insufficient data for season range")
	// ErrOverlappingSeasons is returned when a season is in both partitions.
	ErrOverlappingSeasons = errors.New("train and eval seasons overlap")
)

// Target is the predicted column.
const Target = model.ColTouchdown

// Features are the previous-season inputs, in model coefficient order.
var Features = []string{
	model.PrevColumn(model.ColPass),
	model.PrevColumn(model.ColCompletePass),
	model.PrevColumn(model.ColInterception),
	model.PrevColumn(model.ColSack),
	model.PrevColumn(model.ColYardsGained),
	model.PrevColumn(model.ColTouchdown),
}

// FeatureVector returns the row's Features values. ok is false when the row
// has no previous season.
func FeatureVector(r model.LaggedSeason) (x []float64, ok bool) {
	if r.Prev == nil {
		return nil, false
	}
	p := r.Prev
	return []float64{p.Pass, p.CompletePass, p.Interception, p.Sack, p.YardsGained, p.Touchdown}, true
}

// ModelRows keeps the rows whose features and target are all present.
func ModelRows(rows []model.LaggedSeason) []model.LaggedSeason {
	var out []model.LaggedSeason
	for _, r := range rows {
		x, ok := FeatureVector(r)
		if !ok || !finite(x) || !finite([]float64{r.Touchdown}) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func finite(v []float64) bool {
	for _, f := range v {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}

// Partition names the seasons used for training and for evaluation.
type Partition struct {
	Train []int
	Eval  []int
}

// Validate checks that both sets are non-empty and disjoint.
func (p Partition) Validate() error {
	if len(p.Train) == 0 {
		return fmt.Errorf("train seasons: %w", ErrInsufficientData)
	}
	if len(p.Eval) == 0 {
		return fmt.Errorf("eval seasons: %w", ErrInsufficientData)
	}
	train := seasonSet(p.Train)
	var both []int
	for _, s := range p.Eval {
		if _, ok := train[s]; ok {
			both = append(both, s)
		}
	}
	if len(both) > 0 {
		return fmt.Errorf("seasons %s: %w", FormatSeasons(both), ErrOverlappingSeasons)
	}
	return nil
}

func seasonSet(seasons []int) map[int]struct{} {
	m := make(map[int]struct{}, len(seasons))
	for _, s := range seasons {
		m[s] = struct{}{}
	}
	return m
}

// FormatSeasons renders seasons sorted and comma-separated.
func FormatSeasons(seasons []int) string {
	sorted := append([]int(nil), seasons...)
	sort.Ints(sorted)
	parts := make([]string, len(sorted))
	for i, s := range sorted {
		parts[i] = strconv.Itoa(s)
	}
	return strings.Join(parts, ",")
}

// Split assigns model rows to train or eval by season. Rows in neither set
// are dropped. Either side ending up empty is an error naming its seasons.
func Split(rows []model.LaggedSeason, p Partition) (train, eval []model.LaggedSeason, err error) {
	if err := p.Validate(); err != nil {
		return nil, nil, err
	}
	trainSet, evalSet := seasonSet(p.Train), seasonSet(p.Eval)
	for _, r := range rows {
		if _, ok := trainSet[r.Season]; ok {
			train = append(train, r)
		} else if _, ok := evalSet[r.Season]; ok {
			eval = append(eval, r)
		}
	}
	if len(train) == 0 {
		return nil, nil, fmt.Errorf("train seasons %s: no rows with previous-season data: %w",
			FormatSeasons(p.Train), ErrInsufficientData)
	}
	if len(eval) == 0 {
		return nil, nil, fmt.Errorf("eval seasons %s: no rows with previous-season data: %w",
			FormatSeasons(p.Eval), ErrInsufficientData)
	}
	return train, eval, nil
}

// design builds the feature matrix and target vector for rows.
func design(rows []model.LaggedSeason) ([][]float64, []float64) {
	x := make([][]float64, 0, len(rows))
	y := make([]float64, 0, len(rows))
	for _, r := range rows {
		v, _ := FeatureVector(r)
		x = append(x, v)
		y = append(y, r.Touchdown)
	}
	return x, y
}

// Train fits the touchdown model on the training rows.
func Train(rows []model.LaggedSeason) (*regress.Linear, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("train: %w", ErrInsufficientData)
	}
	x, y := design(rows)
	m, err := regress.Fit(x, y)
	if err != nil {
		return nil, fmt.Errorf("train: %w", err)
	}
	return m, nil
}

// Predict scores every evaluation row; output[i] belongs to rows[i].
func Predict(m *regress.Linear, rows []model.LaggedSeason) ([]model.Prediction, error) {
	x, _ := design(rows)
	ys, err := m.PredictAll(x)
	if err != nil {
		return nil, fmt.Errorf("predict: %w", err)
	}
	out := make([]model.Prediction, len(rows))
	for i, r := range rows {
		out[i] = model.Prediction{LaggedSeason: r, Predicted: ys[i]}
	}
	return out, nil
}

// Evaluate computes RMSE and squared Pearson correlation of the predictions.
func Evaluate(preds []model.Prediction) (model.FitMetrics, error) {
	actual := make([]float64, len(preds))
	predicted := make([]float64, len(preds))
	for i, p := range preds {
		actual[i] = p.Touchdown
		predicted[i] = p.Predicted
	}
	rmse, err := regress.RMSE(actual, predicted)
	if err != nil {
		return model.FitMetrics{}, fmt.Errorf("evaluate: %w", err)
	}
	r2, err := regress.PearsonR2(actual, predicted)
	if err != nil {
		return model.FitMetrics{}, fmt.Errorf("evaluate: %w", err)
	}
	return model.FitMetrics{RMSE: rmse, R2: r2}, nil
}

// Result bundles one train/predict/evaluate pass.
type Result struct {
	Model       *regress.Linear
	TrainRows   int
	Predictions []model.Prediction
	Metrics     model.FitMetrics
}

// Run filters, splits, trains, predicts and evaluates in one call.
func Run(rows []model.LaggedSeason, p Partition) (*Result, error) {
	train, eval, err := Split(ModelRows(rows), p)
	if err != nil {
		return nil, err
	}
	m, err := Train(train)
	if err != nil {
		return nil, err
	}
	preds, err := Predict(m, eval)
	if err != nil {
		return nil, err
	}
	metrics, err := Evaluate(preds)
	if err != nil {
		return nil, err
	}
	return &Result{Model: m, TrainRows: len(train), Predictions: preds, Metrics: metrics}, nil
}

// TopByTouchdowns returns up to n predictions ordered by actual touchdowns
// descending, ties broken by key.
func TopByTouchdowns(preds []model.Prediction, n int) []model.Prediction {
	out := append([]model.Prediction(nil), preds...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Touchdown != out[j].Touchdown {
			return out[i].Touchdown > out[j].Touchdown
		}
		return out[i].Key.Less(out[j].Key)
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
