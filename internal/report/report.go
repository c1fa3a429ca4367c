package report

import (
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/pable/go-qb-stats/internal/model"
	"github.com/pable/go-qb-stats/internal/predict"
)

func newTable(w io.Writer) *tablewriter.Table {
	return tablewriter.NewTable(w, tablewriter.WithConfig(tablewriter.Config{
		Row:    tw.CellConfig{Alignment: tw.CellAlignment{Global: tw.AlignRight}},
		Header: tw.CellConfig{Alignment: tw.CellAlignment{Global: tw.AlignCenter}},
	}))
}

// FormatR2 renders r², or "—" when it is undefined.
func FormatR2(v float64) string {
	if math.IsNaN(v) {
		return "—"
	}
	return fmt.Sprintf("%.3f", v)
}

func num(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

// ShortID is the run id prefix shown in listings.
func ShortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// PrintRunSummary prints a one-line header for a run.
func PrintRunSummary(w io.Writer, r model.RunSummary) {
	fmt.Fprintf(w, "\nRun: %s  |  Date: %s  |  Seasons: %s  |  Train: %s (%d rows)  |  Eval: %s (%d rows)\n",
		ShortID(r.ID), r.CreatedAt.Format("2006-01-02 15:04"),
		predict.FormatSeasons(r.IngestSeasons),
		predict.FormatSeasons(r.TrainSeasons), r.TrainRows,
		predict.FormatSeasons(r.EvalSeasons), r.EvalRows)
	fmt.Fprintf(w, "RMSE: %.3f  |  r²: %s\n\n", r.Metrics.RMSE, FormatR2(r.Metrics.R2))
}

// PrintCoefficients prints the fitted intercept and one row per feature.
func PrintCoefficients(w io.Writer, r model.RunSummary) {
	table := newTable(w)
	table.Header("TERM", "COEFFICIENT")
	table.Append("intercept", fmt.Sprintf("%.4f", r.Intercept))
	for i, c := range r.Coefficients {
		name := strconv.Itoa(i)
		if i < len(predict.Features) {
			name = predict.Features[i]
		}
		table.Append(name, fmt.Sprintf("%.4f", c))
	}
	table.Render()
}

// PrintPredictionTable prints evaluation rows with actual and predicted
// touchdowns. Rows without a previous season show "—" for TD_PREV.
func PrintPredictionTable(w io.Writer, preds []model.Prediction) {
	table := newTable(w)
	table.Header("#", "SEASON", "PASSER", "ID", "TD", "TD_PREV", "PRED", "ERR")
	for i, p := range preds {
		prev := "—"
		if p.Prev != nil {
			prev = num(p.Prev.Touchdown)
		}
		table.Append(
			strconv.Itoa(i+1),
			strconv.Itoa(p.Season),
			p.PasserName,
			p.PasserID,
			num(p.Touchdown),
			prev,
			fmt.Sprintf("%.2f", p.Predicted),
			fmt.Sprintf("%+.2f", p.Predicted-p.Touchdown),
		)
	}
	table.Render()
}

// PrintSeasonTotals prints one row per season of the aggregate table.
func PrintSeasonTotals(w io.Writer, totals []model.SeasonTotals) {
	table := newTable(w)
	table.Header("SEASON", "PASSERS", "PASS", "TD", "YARDS", "TD/PASS")
	for _, t := range totals {
		rate := "—"
		if t.Pass > 0 {
			rate = fmt.Sprintf("%.3f", t.Touchdown/t.Pass)
		}
		table.Append(
			strconv.Itoa(t.Season),
			strconv.Itoa(t.Passers),
			num(t.Pass),
			num(t.Touchdown),
			num(t.YardsGained),
			rate,
		)
	}
	table.Render()
}

// PrintRunList prints stored runs, one row each.
func PrintRunList(w io.Writer, runs []model.RunSummary) {
	table := newTable(w)
	table.Header("ID", "DATE", "TRAIN", "EVAL", "TRAIN_ROWS", "EVAL_ROWS", "RMSE", "R2")
	for _, r := range runs {
		table.Append(
			ShortID(r.ID),
			r.CreatedAt.Format("2006-01-02 15:04"),
			predict.FormatSeasons(r.TrainSeasons),
			predict.FormatSeasons(r.EvalSeasons),
			strconv.Itoa(r.TrainRows),
			strconv.Itoa(r.EvalRows),
			fmt.Sprintf("%.3f", r.Metrics.RMSE),
			FormatR2(r.Metrics.R2),
		)
	}
	table.Render()
}
