// Package store keeps a ledger of pipeline runs in a sqlite database: one row per run, one
// row per executed stage and one row per artifact a stage produced.
package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	"github.com/pkg/errors"

	"github.com/askiada/go-rnaseq/pkg/namespace"
	"github.com/askiada/go-rnaseq/pkg/pipeline/model"
)

// Status of a run or a stage run.
const (
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

var ErrRunNotFound = errors.New("run not found")

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	status TEXT NOT NULL,
	error TEXT NOT NULL DEFAULT '',
	started_at DATETIME NOT NULL,
	finished_at DATETIME
);
CREATE TABLE IF NOT EXISTS stage_runs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL REFERENCES runs(id),
	stage TEXT NOT NULL,
	status TEXT NOT NULL,
	error TEXT NOT NULL DEFAULT '',
	outputs INTEGER NOT NULL,
	duration_ns INTEGER NOT NULL,
	finished_at DATETIME NOT NULL
);
CREATE TABLE IF NOT EXISTS artifacts (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL REFERENCES runs(id),
	stage TEXT NOT NULL,
	sample TEXT NOT NULL,
	path TEXT NOT NULL
);
`

// Run is a row of the runs table.
type Run struct {
	ID         string
	Status     string
	Error      string
	StartedAt  time.Time
	FinishedAt time.Time
}

// StageRun is a row of the stage_runs table.
type StageRun struct {
	RunID      string
	Stage      string
	Status     string
	Error      string
	Outputs    int
	Duration   time.Duration
	FinishedAt time.Time
}

type Ledger struct {
	db *sql.DB
}

// Open opens or creates the ledger database at path.
func Open(path string) (*Ledger, error) {
	err := namespace.EnsureDir(filepath.Dir(path))
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, errors.Wrapf(model.ErrEnvironment, "unable to open ledger %s: %v", path, err)
	}

	// sqlite serialises writers
	db.SetMaxOpenConns(1)

	_, err = db.Exec(schema)
	if err != nil {
		_ = db.Close()

		return nil, errors.Wrapf(model.ErrEnvironment, "unable to create ledger tables in %s: %v", path, err)
	}

	return &Ledger{db: db}, nil
}

func (l *Ledger) Close() error {
	return l.db.Close()
}

// StartRun records a new running run.
func (l *Ledger) StartRun(ctx context.Context, runID string, at time.Time) error {
	_, err := l.db.ExecContext(ctx, `INSERT INTO runs (id, status, started_at) VALUES (?, ?, ?)`,
		runID, StatusRunning, at.UTC())
	if err != nil {
		return errors.Wrapf(err, "unable to start run %s", runID)
	}

	return nil
}

// FinishRun marks the run as succeeded, or failed with runErr.
func (l *Ledger) FinishRun(ctx context.Context, runID string, runErr error, at time.Time) error {
	status, message := outcome(runErr)

	res, err := l.db.ExecContext(ctx, `UPDATE runs SET status = ?, error = ?, finished_at = ? WHERE id = ?`,
		status, message, at.UTC(), runID)
	if err != nil {
		return errors.Wrapf(err, "unable to finish run %s", runID)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return errors.Wrapf(err, "unable to finish run %s", runID)
	}

	if affected == 0 {
		return errors.Wrapf(ErrRunNotFound, "run %s", runID)
	}

	return nil
}

// RecordStage stores the outcome of one stage of a run.
func (l *Ledger) RecordStage(ctx context.Context, stage StageRun) error {
	_, err := l.db.ExecContext(ctx, `INSERT INTO stage_runs
		(run_id, stage, status, error, outputs, duration_ns, finished_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		stage.RunID, stage.Stage, stage.Status, stage.Error, stage.Outputs, int64(stage.Duration), stage.FinishedAt.UTC())
	if err != nil {
		return errors.Wrapf(err, "unable to record stage %s of run %s", stage.Stage, stage.RunID)
	}

	return nil
}

// RecordArtifacts stores the manifest a stage produced in a single transaction.
func (l *Ledger) RecordArtifacts(ctx context.Context, runID, stage string, manifest model.Manifest) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "unable to begin transaction")
	}

	for _, artifact := range manifest {
		_, err := tx.ExecContext(ctx, `INSERT INTO artifacts (run_id, stage, sample, path) VALUES (?, ?, ?, ?)`,
			runID, stage, artifact.Sample, artifact.Path)
		if err != nil {
			_ = tx.Rollback()

			return errors.Wrapf(err, "unable to record artifact %s", artifact.Path)
		}
	}

	return errors.Wrap(tx.Commit(), "unable to commit artifacts")
}

// Runs returns the most recent runs first, at most limit when positive.
func (l *Ledger) Runs(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT id, status, error, started_at, finished_at FROM runs ORDER BY started_at DESC, id`
	args := []any{}

	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "unable to list runs")
	}
	defer rows.Close()

	runs := []Run{}

	for rows.Next() {
		var (
			run      Run
			finished sql.NullTime
		)

		err := rows.Scan(&run.ID, &run.Status, &run.Error, &run.StartedAt, &finished)
		if err != nil {
			return nil, errors.Wrap(err, "unable to scan run")
		}

		run.FinishedAt = finished.Time
		runs = append(runs, run)
	}

	return runs, errors.Wrap(rows.Err(), "unable to list runs")
}

// StageRuns returns the stages of a run in execution order.
func (l *Ledger) StageRuns(ctx context.Context, runID string) ([]StageRun, error) {
	rows, err := l.db.QueryContext(ctx, `SELECT stage, status, error, outputs, duration_ns, finished_at
		FROM stage_runs WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to list stages of run %s", runID)
	}
	defer rows.Close()

	stages := []StageRun{}

	for rows.Next() {
		stage := StageRun{RunID: runID}

		var duration int64

		err := rows.Scan(&stage.Stage, &stage.Status, &stage.Error, &stage.Outputs, &duration, &stage.FinishedAt)
		if err != nil {
			return nil, errors.Wrap(err, "unable to scan stage run")
		}

		stage.Duration = time.Duration(duration)
		stages = append(stages, stage)
	}

	return stages, errors.Wrapf(rows.Err(), "unable to list stages of run %s", runID)
}

// Artifacts returns the manifest a stage of a run produced.
func (l *Ledger) Artifacts(ctx context.Context, runID, stage string) (model.Manifest, error) {
	rows, err := l.db.QueryContext(ctx, `SELECT sample, path FROM artifacts WHERE run_id = ? AND stage = ? ORDER BY id`,
		runID, stage)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to list artifacts of %s", stage)
	}
	defer rows.Close()

	manifest := model.Manifest{}

	for rows.Next() {
		var artifact model.Artifact

		err := rows.Scan(&artifact.Sample, &artifact.Path)
		if err != nil {
			return nil, errors.Wrap(err, "unable to scan artifact")
		}

		manifest = append(manifest, artifact)
	}

	return manifest, errors.Wrapf(rows.Err(), "unable to list artifacts of %s", stage)
}

func outcome(err error) (string, string) {
	if err != nil {
		return StatusFailed, err.Error()
	}

	return StatusSucceeded, ""
}
