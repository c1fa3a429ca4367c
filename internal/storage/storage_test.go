package storage

import (
	"math"
	"testing"
	"time"

	"github.com/pable/go-qb-stats/internal/model"
)

func openMemDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open in-memory db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func sampleRun(id string, created time.Time) model.RunSummary {
	return model.RunSummary{
		ID:            id,
		CreatedAt:     created,
		IngestSeasons: []int{2019, 2020, 2021},
		TrainSeasons:  []int{2020},
		EvalSeasons:   []int{2021},
		TrainRows:     30,
		EvalRows:      28,
		Intercept:     1.5,
		Coefficients:  []float64{0.1, 0.2, -0.3, 0, 0.01, 0.5},
		Metrics:       model.FitMetrics{RMSE: 4.2, R2: 0.36},
	}
}

func sampleSeasons() []model.QBSeason {
	return []model.QBSeason{
		{Key: model.Key{Season: 2020, PasserID: "00-001", PasserName: "A.Alpha"},
			Stats: model.Stats{Pass: 20, CompletePass: 15, Touchdown: 3, YardsGained: 180}},
		{Key: model.Key{Season: 2021, PasserID: "00-001", PasserName: "A.Alpha"},
			Stats: model.Stats{Pass: 22, CompletePass: 16, Touchdown: 5, YardsGained: 210}},
	}
}

func samplePredictions() []model.Prediction {
	seasons := sampleSeasons()
	prev := seasons[0].Stats
	return []model.Prediction{
		{LaggedSeason: model.LaggedSeason{QBSeason: seasons[1], Prev: &prev}, Predicted: 4.5},
	}
}

func TestInsertRunAndGetByPrefix(t *testing.T) {
	db := openMemDB(t)

	run := sampleRun("abcdef12-0000", time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	if err := db.InsertRun(run, sampleSeasons(), samplePredictions()); err != nil {
		t.Fatalf("InsertRun: %v", err)
	}

	got, err := db.GetRunByPrefix("abcd")
	if err != nil {
		t.Fatalf("GetRunByPrefix: %v", err)
	}
	if got == nil {
		t.Fatal("expected run to be found by prefix")
	}
	if got.ID != run.ID {
		t.Errorf("ID: got %q, want %q", got.ID, run.ID)
	}
	if !got.CreatedAt.Equal(run.CreatedAt) {
		t.Errorf("CreatedAt: got %v, want %v", got.CreatedAt, run.CreatedAt)
	}
	if len(got.Coefficients) != 6 || got.Coefficients[2] != -0.3 {
		t.Errorf("Coefficients: got %v", got.Coefficients)
	}
	if len(got.IngestSeasons) != 3 || got.EvalSeasons[0] != 2021 {
		t.Errorf("seasons not round-tripped: %+v", got)
	}
	if got.Metrics.R2 != 0.36 || got.Metrics.RMSE != 4.2 {
		t.Errorf("Metrics: got %+v", got.Metrics)
	}

	missing, err := db.GetRunByPrefix("zzz")
	if err != nil {
		t.Fatalf("GetRunByPrefix(zzz): %v", err)
	}
	if missing != nil {
		t.Error("expected nil for unknown prefix")
	}
}

func TestInsertRun_NaNR2StoredAsNull(t *testing.T) {
	db := openMemDB(t)

	run := sampleRun("nan-run", time.Now())
	run.Metrics.R2 = math.NaN()
	if err := db.InsertRun(run, nil, nil); err != nil {
		t.Fatalf("InsertRun: %v", err)
	}

	_, rows, err := db.QueryRaw("SELECT r2 FROM runs WHERE id = 'nan-run'")
	if err != nil {
		t.Fatalf("QueryRaw: %v", err)
	}
	if len(rows) != 1 || rows[0][0] != "NULL" {
		t.Errorf("r2 cell: got %v, want NULL", rows)
	}

	got, err := db.GetRunByPrefix("nan")
	if err != nil || got == nil {
		t.Fatalf("GetRunByPrefix: %v", err)
	}
	if !math.IsNaN(got.Metrics.R2) {
		t.Errorf("R2: got %v, want NaN", got.Metrics.R2)
	}
}

func TestInsertRun_ReplacesChildren(t *testing.T) {
	db := openMemDB(t)

	run := sampleRun("rerun", time.Now())
	for i := 0; i < 2; i++ {
		if err := db.InsertRun(run, sampleSeasons(), samplePredictions()); err != nil {
			t.Fatalf("InsertRun #%d: %v", i, err)
		}
	}

	seasons, err := db.GetQBSeasons(run.ID)
	if err != nil {
		t.Fatalf("GetQBSeasons: %v", err)
	}
	if len(seasons) != 2 {
		t.Errorf("expected 2 qb_seasons rows after re-insert, got %d", len(seasons))
	}
	preds, err := db.GetPredictions(run.ID)
	if err != nil {
		t.Fatalf("GetPredictions: %v", err)
	}
	if len(preds) != 1 {
		t.Fatalf("expected 1 prediction, got %d", len(preds))
	}
	p := preds[0]
	if p.Season != 2021 || p.PasserName != "A.Alpha" {
		t.Errorf("prediction key: got %s", p.Key)
	}
	if p.Touchdown != 5 || p.Prev == nil || p.Prev.Touchdown != 3 || p.Predicted != 4.5 {
		t.Errorf("prediction values: got %+v prev %+v", p, p.Prev)
	}
}

func TestInsertRun_PredictionWithoutPrev(t *testing.T) {
	db := openMemDB(t)

	preds := []model.Prediction{{LaggedSeason: model.LaggedSeason{QBSeason: sampleSeasons()[1]}}}
	if err := db.InsertRun(sampleRun("bad", time.Now()), nil, preds); err == nil {
		t.Fatal("expected error for prediction without previous season")
	}

	runs, err := db.ListRuns()
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("failed insert must roll back, got %d runs", len(runs))
	}
}

func TestListRuns_NewestFirst(t *testing.T) {
	db := openMemDB(t)

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"old", "mid", "new"} {
		if err := db.InsertRun(sampleRun(id, base.Add(time.Duration(i)*time.Hour)), nil, nil); err != nil {
			t.Fatalf("InsertRun(%s): %v", id, err)
		}
	}

	runs, err := db.ListRuns()
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("expected 3 runs, got %d", len(runs))
	}
	want := []string{"new", "mid", "old"}
	for i, r := range runs {
		if r.ID != want[i] {
			t.Errorf("runs[%d]: got %q, want %q", i, r.ID, want[i])
		}
	}
}

func TestDeleteRun_Cascades(t *testing.T) {
	db := openMemDB(t)

	run := sampleRun("gone", time.Now())
	if err := db.InsertRun(run, sampleSeasons(), samplePredictions()); err != nil {
		t.Fatalf("InsertRun: %v", err)
	}

	deleted, err := db.DeleteRun(run.ID)
	if err != nil {
		t.Fatalf("DeleteRun: %v", err)
	}
	if !deleted {
		t.Error("expected run to be deleted")
	}
	seasons, _ := db.GetQBSeasons(run.ID)
	preds, _ := db.GetPredictions(run.ID)
	if len(seasons) != 0 || len(preds) != 0 {
		t.Errorf("child rows survived delete: %d seasons, %d predictions", len(seasons), len(preds))
	}

	again, err := db.DeleteRun(run.ID)
	if err != nil {
		t.Fatalf("DeleteRun again: %v", err)
	}
	if again {
		t.Error("second delete should report nothing deleted")
	}
}

func TestQueryRaw(t *testing.T) {
	db := openMemDB(t)

	if err := db.InsertRun(sampleRun("q1", time.Now()), sampleSeasons(), nil); err != nil {
		t.Fatalf("InsertRun: %v", err)
	}
	cols, rows, err := db.QueryRaw("SELECT season, passer, touchdown FROM qb_seasons ORDER BY season")
	if err != nil {
		t.Fatalf("QueryRaw: %v", err)
	}
	if len(cols) != 3 || cols[1] != "passer" {
		t.Errorf("cols: got %v", cols)
	}
	if len(rows) != 2 || rows[0][0] != "2020" || rows[1][2] != "5" {
		t.Errorf("rows: got %v", rows)
	}

	if _, _, err := db.QueryRaw("SELECT nope FROM nowhere"); err == nil {
		t.Error("expected error for invalid query")
	}
}
