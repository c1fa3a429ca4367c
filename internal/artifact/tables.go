package artifact

import (
	"strconv"

	"gonum.org/v1/plot/plotter"

	"github.com/pable/go-qb-stats/internal/model"
)

// Output file names under the artifact directory.
const (
	StatsFile       = "stats_by_year.csv"
	PredictionsFile = "stats_by_year_predictions.csv"
)

// CurrentPlotColumns are plotted against touchdowns from the aggregate table.
var CurrentPlotColumns = []string{
	model.ColYardsGained, model.ColCompletePass, model.ColPass, model.ColInterception, model.ColSack,
}

// PrevPlotColumns are plotted against touchdowns from the lag-joined table.
var PrevPlotColumns = []string{
	model.PrevColumn(model.ColTouchdown),
	model.PrevColumn(model.ColYardsGained),
	model.PrevColumn(model.ColCompletePass),
	model.PrevColumn(model.ColPass),
	model.PrevColumn(model.ColInterception),
	model.PrevColumn(model.ColSack),
}

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

func keyCells(k model.Key) []string {
	return []string{strconv.Itoa(k.Season), k.PasserID, k.PasserName}
}

func statCells(s model.Stats) []string {
	vals := s.Values()
	out := make([]string, len(vals))
	for i, v := range vals {
		out[i] = formatFloat(v)
	}
	return out
}

// prevCells renders previous-season stats; absent values are empty cells.
func prevCells(s *model.Stats) []string {
	if s == nil {
		return make([]string, len(model.StatColumns))
	}
	return statCells(*s)
}

func keyColumns() []string {
	return []string{model.ColSeason, model.ColPasserID, model.ColPasser}
}

func prevColumns() []string {
	out := make([]string, len(model.StatColumns))
	for i, c := range model.StatColumns {
		out[i] = model.PrevColumn(c)
	}
	return out
}

// SeasonTable is the aggregate table written to StatsFile.
func SeasonTable(rows []model.QBSeason) Table {
	t := Table{Columns: append(keyColumns(), model.StatColumns...)}
	for _, r := range rows {
		t.Rows = append(t.Rows, append(keyCells(r.Key), statCells(r.Stats)...))
	}
	return t
}

// PredictionTable is the evaluation table written to PredictionsFile.
func PredictionTable(preds []model.Prediction) Table {
	cols := append(keyColumns(), model.StatColumns...)
	cols = append(cols, prevColumns()...)
	cols = append(cols, model.ColPredictions)

	t := Table{Columns: cols}
	for _, p := range preds {
		row := append(keyCells(p.Key), statCells(p.Stats)...)
		row = append(row, prevCells(p.Prev)...)
		row = append(row, formatFloat(p.Predicted))
		t.Rows = append(t.Rows, row)
	}
	return t
}

// SeasonBatch plots each of ys against x from the aggregate table.
func SeasonBatch(name string, rows []model.QBSeason, x string, ys []string) PlotBatch {
	lagged := make([]model.LaggedSeason, len(rows))
	for i, r := range rows {
		lagged[i] = model.LaggedSeason{QBSeason: r}
	}
	return LaggedBatch(name, lagged, x, ys)
}

// LaggedBatch plots each of ys against x from the lag-joined table. Rows
// missing either column are left out of that plot.
func LaggedBatch(name string, rows []model.LaggedSeason, x string, ys []string) PlotBatch {
	b := PlotBatch{Name: name, X: x}
	for _, y := range ys {
		s := PlotSeries{Y: y}
		for _, r := range rows {
			xv, okX := r.Column(x)
			yv, okY := r.Column(y)
			if !okX || !okY {
				continue
			}
			s.Points = append(s.Points, plotter.XY{X: xv, Y: yv})
		}
		b.Series = append(b.Series, s)
	}
	return b
}

// PredictionBatch plots predicted against actual touchdowns.
func PredictionBatch(name string, preds []model.Prediction) PlotBatch {
	s := PlotSeries{Y: model.ColPredictions}
	for _, p := range preds {
		s.Points = append(s.Points, plotter.XY{X: p.Touchdown, Y: p.Predicted})
	}
	return PlotBatch{Name: name, X: model.ColTouchdown, Series: []PlotSeries{s}}
}
