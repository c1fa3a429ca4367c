package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/pable/go-qb-stats/internal/model"
)

// InsertRun stores a run with its aggregate table and predictions in one
// transaction. Re-inserting the same run id replaces it.
func (db *DB) InsertRun(run model.RunSummary, seasons []model.QBSeason, preds []model.Prediction) error {
	ingest, err := json.Marshal(run.IngestSeasons)
	if err != nil {
		return fmt.Errorf("encode ingest seasons: %w", err)
	}
	train, err := json.Marshal(run.TrainSeasons)
	if err != nil {
		return fmt.Errorf("encode train seasons: %w", err)
	}
	eval, err := json.Marshal(run.EvalSeasons)
	if err != nil {
		return fmt.Errorf("encode eval seasons: %w", err)
	}
	coef, err := json.Marshal(run.Coefficients)
	if err != nil {
		return fmt.Errorf("encode coefficients: %w", err)
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Children first: REPLACE on runs would cascade-delete them anyway.
	for _, table := range []string{"predictions", "qb_seasons"} {
		if _, err := tx.Exec("DELETE FROM "+table+" WHERE run_id = ?", run.ID); err != nil {
			return fmt.Errorf("clear %s for run %s: %w", table, run.ID, err)
		}
	}

	_, err = tx.Exec(`
		INSERT OR REPLACE INTO runs(id, created_at, ingest_seasons, train_seasons, eval_seasons,
			train_rows, eval_rows, intercept, coefficients, rmse, r2)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.CreatedAt.UTC().Format(time.RFC3339), string(ingest), string(train), string(eval),
		run.TrainRows, run.EvalRows, run.Intercept, string(coef), run.Metrics.RMSE, nullFloat(run.Metrics.R2),
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", run.ID, err)
	}

	seasonStmt, err := tx.Prepare(`
		INSERT INTO qb_seasons(run_id, season, passer_id, passer,
			pass, complete_pass, interception, sack, yards_gained, touchdown)
		VALUES (?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer seasonStmt.Close()
	for _, s := range seasons {
		if _, err := seasonStmt.Exec(run.ID, s.Season, s.PasserID, s.PasserName,
			s.Pass, s.CompletePass, s.Interception, s.Sack, s.YardsGained, s.Touchdown); err != nil {
			return fmt.Errorf("insert qb_seasons for %s: %w", s.Key, err)
		}
	}

	predStmt, err := tx.Prepare(`
		INSERT INTO predictions(run_id, season, passer_id, passer, touchdown, touchdown_prev, predicted)
		VALUES (?,?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer predStmt.Close()
	for _, p := range preds {
		if p.Prev == nil {
			return fmt.Errorf("insert prediction for %s: missing previous season", p.Key)
		}
		if _, err := predStmt.Exec(run.ID, p.Season, p.PasserID, p.PasserName,
			p.Touchdown, p.Prev.Touchdown, p.Predicted); err != nil {
			return fmt.Errorf("insert prediction for %s: %w", p.Key, err)
		}
	}
	return tx.Commit()
}

func nullFloat(v float64) sql.NullFloat64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

const runColumns = `id, created_at, ingest_seasons, train_seasons, eval_seasons,
	train_rows, eval_rows, intercept, coefficients, rmse, r2`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(sc rowScanner) (model.RunSummary, error) {
	var (
		r                            model.RunSummary
		created, ingest, train, eval string
		coef                         string
		r2                           sql.NullFloat64
	)
	if err := sc.Scan(&r.ID, &created, &ingest, &train, &eval,
		&r.TrainRows, &r.EvalRows, &r.Intercept, &coef, &r.Metrics.RMSE, &r2); err != nil {
		return r, err
	}
	t, err := time.Parse(time.RFC3339, created)
	if err != nil {
		return r, fmt.Errorf("run %s: created_at: %w", r.ID, err)
	}
	r.CreatedAt = t
	for _, f := range []struct {
		src string
		dst any
	}{
		{ingest, &r.IngestSeasons},
		{train, &r.TrainSeasons},
		{eval, &r.EvalSeasons},
		{coef, &r.Coefficients},
	} {
		if err := json.Unmarshal([]byte(f.src), f.dst); err != nil {
			return r, fmt.Errorf("run %s: decode: %w", r.ID, err)
		}
	}
	r.Metrics.R2 = math.NaN()
	if r2.Valid {
		r.Metrics.R2 = r2.Float64
	}
	return r, nil
}

// ListRuns returns all stored runs, newest first.
func (db *DB) ListRuns() ([]model.RunSummary, error) {
	rows, err := db.conn.Query(`SELECT ` + runColumns + ` FROM runs ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.RunSummary
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetRunByPrefix finds the first run whose id starts with the given prefix.
// It returns nil, nil when nothing matches.
func (db *DB) GetRunByPrefix(prefix string) (*model.RunSummary, error) {
	row := db.conn.QueryRow(`SELECT `+runColumns+` FROM runs WHERE id LIKE ? ORDER BY created_at DESC LIMIT 1`, prefix+"%")
	r, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// GetPredictions returns the stored predictions of a run ordered by actual
// touchdowns descending. Only touchdown_prev is kept of the previous season.
func (db *DB) GetPredictions(runID string) ([]model.Prediction, error) {
	rows, err := db.conn.Query(`
		SELECT season, passer_id, passer, touchdown, touchdown_prev, predicted
		FROM predictions WHERE run_id = ?
		ORDER BY touchdown DESC, season, passer_id, passer`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Prediction
	for rows.Next() {
		var p model.Prediction
		prev := &model.Stats{}
		if err := rows.Scan(&p.Season, &p.PasserID, &p.PasserName, &p.Touchdown, &prev.Touchdown, &p.Predicted); err != nil {
			return nil, err
		}
		p.Prev = prev
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetQBSeasons returns the aggregate table stored with a run.
func (db *DB) GetQBSeasons(runID string) ([]model.QBSeason, error) {
	rows, err := db.conn.Query(`
		SELECT season, passer_id, passer, pass, complete_pass, interception, sack, yards_gained, touchdown
		FROM qb_seasons WHERE run_id = ?
		ORDER BY season, passer_id, passer`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.QBSeason
	for rows.Next() {
		var s model.QBSeason
		if err := rows.Scan(&s.Season, &s.PasserID, &s.PasserName,
			&s.Pass, &s.CompletePass, &s.Interception, &s.Sack, &s.YardsGained, &s.Touchdown); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// QueryRaw runs an arbitrary query and returns column names and stringified rows.
func (db *DB) QueryRaw(query string) ([]string, [][]string, error) {
	rows, err := db.conn.Query(query)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, nil, err
	}
	var out [][]string
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, err
		}
		row := make([]string, len(cols))
		for i, v := range vals {
			switch t := v.(type) {
			case nil:
				row[i] = "NULL"
			case []byte:
				row[i] = string(t)
			default:
				row[i] = fmt.Sprint(t)
			}
		}
		out = append(out, row)
	}
	return cols, out, rows.Err()
}

// DeleteRun removes a run and its child rows. It reports whether a run was deleted.
func (db *DB) DeleteRun(id string) (bool, error) {
	res, err := db.conn.Exec(`DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete run %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
