package journal

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/golang-migrate/migrate/v4"
	sqlitemigrate "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/danielpatrickdp/statecore/internal/loop"
	"github.com/danielpatrickdp/statecore/internal/monitor"
	"github.com/danielpatrickdp/statecore/internal/state"
)

//go:embed migrations/*.sql
var migrations embed.FS

// timeLayout is fixed width so started_at sorts as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// #region journal-struct
// Journal records run outcomes and per-pass health in SQLite. It stores
// summaries only, never full states.
type Journal struct {
	db *sql.DB
}

// #endregion journal-struct

// #region constructor
// Open opens (or creates) the journal at path and applies migrations.
// ":memory:" gives a private in-memory journal.
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(1) // sqlite
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Journal{db: db}, nil
}

// runMigrations applies all embedded up migrations. The migrate instance is
// not closed because that would close db.
func runMigrations(db *sql.DB) error {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return err
	}
	driver, err := sqlitemigrate.WithInstance(db, &sqlitemigrate.Config{})
	if err != nil {
		src.Close()
		return err
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		src.Close()
		return err
	}
	defer src.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

// Close closes the underlying database connection.
func (j *Journal) Close() error {
	return j.db.Close()
}

// #endregion constructor

// #region record
// RecordRun stores a run summary and one health_log row per completed pass.
// Monitor figures per pass come from the captured trajectory when present.
func (j *Journal) RecordRun(res loop.Result, label string) error {
	if res.RunID == "" {
		res.RunID = uuid.New().String()
	}
	if res.StartedAt.IsZero() {
		res.StartedAt = time.Now().UTC()
	}

	var energy, risk float64
	var health any
	needs := false
	if res.Final != nil {
		energy, risk = res.Final.Energy, res.Final.Risk
		if r, ok := reportOf(res.Final); ok {
			health = r.HealthScore
			needs = r.NeedsStabilization
		}
	}
	var errText string
	if res.Err != nil {
		errText = res.Err.Error()
	}

	tx, err := j.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO runs (run_id, label, started_at, elapsed_ms, outcome, steps, final_energy, final_risk, health, needs_stabilization, failed_unit, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		res.RunID,
		nullIfEmpty(label),
		res.StartedAt.UTC().Format(timeLayout),
		res.Elapsed.Milliseconds(),
		string(res.Outcome),
		res.StepCount(),
		energy,
		risk,
		health,
		needs,
		nullIfEmpty(res.FailedUnit),
		nullIfEmpty(errText),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for i, st := range res.Steps {
		var overall, conflicts, errs, stab any
		if i+1 < len(res.Trajectory) {
			if r, ok := reportOf(res.Trajectory[i+1]); ok {
				overall = r.HealthScore
				conflicts = len(r.Conflicts)
				errs = len(r.Errors)
				stab = r.NeedsStabilization
			}
		}
		_, err = tx.Exec(
			`INSERT INTO health_log (run_id, step, energy, risk, energy_delta, vector_delta, overall, conflicts, errors, needs_stabilization)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			res.RunID, st.Step, st.Energy, st.Risk, st.EnergyDelta, finiteOrNull(st.VectorDelta),
			overall, conflicts, errs, stab,
		)
		if err != nil {
			return fmt.Errorf("insert health step %d: %w", st.Step, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func reportOf(s *state.State) (monitor.Report, bool) {
	if s == nil {
		return monitor.Report{}, false
	}
	r, ok := s.Metadata[state.KeyMonitoring].(monitor.Report)
	return r, ok
}

// #endregion record

// #region query
const runColumns = `run_id, label, started_at, elapsed_ms, outcome, steps, final_energy, final_risk, health, needs_stabilization, failed_unit, error`

// ListRuns returns the most recent runs first. A non-positive limit returns
// every run.
func (j *Journal) ListRuns(limit int) ([]RunSummary, error) {
	q := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC, run_id`
	args := []any{}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := j.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetRun returns a run with its health log in step order.
func (j *Journal) GetRun(id string) (RunDetail, error) {
	row := j.db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE run_id = ?`, id)
	sum, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return RunDetail{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return RunDetail{}, err
	}

	rows, err := j.db.Query(
		`SELECT step, energy, risk, energy_delta, vector_delta, overall, conflicts, errors, needs_stabilization
		 FROM health_log WHERE run_id = ? ORDER BY step`, id)
	if err != nil {
		return RunDetail{}, fmt.Errorf("query health log: %w", err)
	}
	defer rows.Close()

	detail := RunDetail{RunSummary: sum}
	for rows.Next() {
		var e HealthEntry
		var vd, overall sql.NullFloat64
		var conflicts, errs sql.NullInt64
		var stab sql.NullBool
		if err := rows.Scan(&e.Step, &e.Energy, &e.Risk, &e.EnergyDelta, &vd, &overall, &conflicts, &errs, &stab); err != nil {
			return RunDetail{}, fmt.Errorf("scan health log: %w", err)
		}
		if vd.Valid {
			e.VectorDelta = &vd.Float64
		}
		if overall.Valid {
			e.Overall = &overall.Float64
		}
		if conflicts.Valid {
			n := int(conflicts.Int64)
			e.Conflicts = &n
		}
		if errs.Valid {
			n := int(errs.Int64)
			e.Errors = &n
		}
		if stab.Valid {
			e.NeedsStabilization = &stab.Bool
		}
		detail.HealthLog = append(detail.HealthLog, e)
	}
	return detail, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (RunSummary, error) {
	var r RunSummary
	var label, failed, errText sql.NullString
	var started string
	var elapsedMs int64
	var health sql.NullFloat64
	if err := sc.Scan(&r.RunID, &label, &started, &elapsedMs, &r.Outcome, &r.Steps,
		&r.FinalEnergy, &r.FinalRisk, &health, &r.NeedsStabilization, &failed, &errText); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return RunSummary{}, err
		}
		return RunSummary{}, fmt.Errorf("scan run: %w", err)
	}
	t, err := time.Parse(time.RFC3339Nano, started)
	if err != nil {
		return RunSummary{}, fmt.Errorf("parse started_at: %w", err)
	}
	r.StartedAt = t
	r.Elapsed = time.Duration(elapsedMs) * time.Millisecond
	r.Label = label.String
	r.FailedUnit = failed.String
	r.Error = errText.String
	if health.Valid {
		r.Health = &health.Float64
	}
	return r, nil
}

// #endregion query

// #region helpers
func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func finiteOrNull(x float64) any {
	if math.IsInf(x, 0) || math.IsNaN(x) {
		return nil
	}
	return x
}

// #endregion helpers
