// Package artifact writes the CSV tables and PNG plots of a run, asking
// before it replaces files that already exist.
package artifact

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"go.uber.org/zap"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/pable/go-qb-stats/internal/regress"
)

// Table is a rectangular set of string cells with a header.
type Table struct {
	Columns []string
	Rows    [][]string
}

// PlotSeries is one y column drawn against the batch's x column.
type PlotSeries struct {
	Y      string
	Points plotter.XYs
}

// PlotBatch is a group of plots sharing an x column and an overwrite decision.
type PlotBatch struct {
	Name   string // shown when asking to overwrite
	X      string
	Series []PlotSeries
}

// Writer writes artifacts under Dir.
type Writer struct {
	Dir        string
	PlotPrefix string // file prefix for plots, e.g. "touchdowns_and_"
	Asker      Asker
	Log        *zap.Logger

	Width, Height vg.Length
}

// NewWriter returns a Writer with the default plot naming and size.
func NewWriter(dir string, asker Asker, log *zap.Logger) *Writer {
	if log == nil {
		log = zap.NewNop()
	}
	if asker == nil {
		asker = Never
	}
	return &Writer{
		Dir:        dir,
		PlotPrefix: "touchdowns_and_",
		Asker:      asker,
		Log:        log,
		Width:      6 * vg.Inch,
		Height:     4 * vg.Inch,
	}
}

// PlotPath is the file a plot of column y is written to.
func (w *Writer) PlotPath(y string) string {
	return filepath.Join(w.Dir, w.PlotPrefix+y+".png")
}

// allowed reports whether paths may be written: true when none exists,
// otherwise whatever the Asker answers for name.
func (w *Writer) allowed(name string, paths []string) (bool, error) {
	exists := false
	for _, p := range paths {
		_, err := os.Stat(p)
		if err == nil {
			exists = true
			break
		}
		if !os.IsNotExist(err) {
			return false, fmt.Errorf("stat %s: %w", p, err)
		}
	}
	if !exists {
		return true, nil
	}
	ok, err := w.Asker.Ask(name)
	if err != nil {
		return false, err
	}
	if !ok {
		w.Log.Warn("artifact not overwritten", zap.String("artifact", name))
	}
	return ok, nil
}

func (w *Writer) mkdir() error {
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return fmt.Errorf("create output dir %s: %w", w.Dir, err)
	}
	return nil
}

// WriteTable writes t as CSV to Dir/name. It reports whether the file was written.
func (w *Writer) WriteTable(name string, t Table) (bool, error) {
	path := filepath.Join(w.Dir, name)
	ok, err := w.allowed(path, []string{path})
	if err != nil || !ok {
		return false, err
	}
	if err := w.mkdir(); err != nil {
		return false, err
	}

	df, err := t.frame()
	if err != nil {
		return false, fmt.Errorf("build table %s: %w", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return false, fmt.Errorf("create %s: %w", path, err)
	}
	if err := df.WriteCSV(f); err != nil {
		f.Close()
		return false, fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return false, fmt.Errorf("close %s: %w", path, err)
	}
	w.Log.Info("wrote table", zap.String("path", path), zap.Int("rows", len(t.Rows)))
	return true, nil
}

// frame converts the table to an all-string gota frame.
func (t Table) frame() (dataframe.DataFrame, error) {
	cols := make([]series.Series, len(t.Columns))
	for j, name := range t.Columns {
		vals := make([]string, len(t.Rows))
		for i, row := range t.Rows {
			if len(row) != len(t.Columns) {
				return dataframe.DataFrame{}, fmt.Errorf("row %d has %d cells, want %d", i, len(row), len(t.Columns))
			}
			vals[i] = row[j]
		}
		cols[j] = series.New(vals, series.String, name)
	}
	df := dataframe.New(cols...)
	return df, df.Err
}

// WritePlots draws one scatter-with-trend-line PNG per series. The batch is
// confirmed once if any of its files already exists.
func (w *Writer) WritePlots(b PlotBatch) (bool, error) {
	paths := make([]string, len(b.Series))
	for i, s := range b.Series {
		paths[i] = w.PlotPath(s.Y)
	}
	name := b.Name
	if name == "" {
		name = strings.Join(paths, ", ")
	}
	ok, err := w.allowed(name, paths)
	if err != nil || !ok {
		return false, err
	}
	if err := w.mkdir(); err != nil {
		return false, err
	}
	for i, s := range b.Series {
		if err := w.plot(paths[i], b.X, s); err != nil {
			return false, err
		}
	}
	return true, nil
}

func (w *Writer) plot(path, x string, s PlotSeries) error {
	pts := finitePoints(s.Points)

	p := plot.New()
	p.Title.Text = "touchdowns and " + s.Y
	p.X.Label.Text = x
	p.Y.Label.Text = s.Y

	if len(pts) > 0 {
		sc, err := plotter.NewScatter(pts)
		if err != nil {
			return fmt.Errorf("plot %s: %w", path, err)
		}
		sc.GlyphStyle.Radius = vg.Points(2)
		p.Add(sc)

		xs, ys := make([]float64, len(pts)), make([]float64, len(pts))
		minX, maxX := math.Inf(1), math.Inf(-1)
		for i, pt := range pts {
			xs[i], ys[i] = pt.X, pt.Y
			minX, maxX = math.Min(minX, pt.X), math.Max(maxX, pt.X)
		}
		if alpha, beta, ok := regress.Line(xs, ys); ok {
			line, err := plotter.NewLine(plotter.XYs{
				{X: minX, Y: alpha + beta*minX},
				{X: maxX, Y: alpha + beta*maxX},
			})
			if err != nil {
				return fmt.Errorf("plot %s: %w", path, err)
			}
			line.LineStyle.Width = vg.Points(1.5)
			p.Add(line)
		}
	} else {
		w.Log.Warn("plot has no points", zap.String("path", path))
	}

	if err := p.Save(w.Width, w.Height, path); err != nil {
		return fmt.Errorf("save plot %s: %w", path, err)
	}
	w.Log.Info("wrote plot", zap.String("path", path), zap.Int("points", len(pts)))
	return nil
}

// finitePoints drops points with a NaN or infinite coordinate.
func finitePoints(in plotter.XYs) plotter.XYs {
	out := make(plotter.XYs, 0, len(in))
	for _, pt := range in {
		if math.IsNaN(pt.X) || math.IsNaN(pt.Y) || math.IsInf(pt.X, 0) || math.IsInf(pt.Y, 0) {
			continue
		}
		out = append(out, pt)
	}
	return out
}
