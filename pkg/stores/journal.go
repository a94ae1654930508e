// Package stores persists the local execution journal: every workflow
// execution driven from this working directory and the events it emitted.
// The journal is what lets an operator re-inspect an execution that timed
// out locally but kept running on the server.
package stores

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/cosmo-orch/cosmo/pkg/rest"

	// SQLite driver
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// JournalFileName is the journal database's fixed name inside the working
// directory.
const JournalFileName = ".cosmo.history.db"

// Journal is a SQLite-backed execution journal.
type Journal struct {
	db   *sql.DB
	path string
}

// NewJournal creates a journal at path.
func NewJournal(path string) (*Journal, error) {
	if path == "" {
		return nil, fmt.Errorf("journal path is required")
	}
	return &Journal{path: path}, nil
}

// Init opens the database, enables WAL mode, and runs migrations.
func (j *Journal) Init(ctx context.Context) error {
	dsn := fmt.Sprintf("%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL", j.path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open journal database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping journal database: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	j.db = db
	return j.migrate()
}

// Close closes the database.
func (j *Journal) Close() error {
	if j.db != nil {
		return j.db.Close()
	}
	return nil
}

func (j *Journal) migrate() error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}
	driver, err := sqlite3.WithInstance(j.db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// RecordStart journals the submission of an execution.
func (j *Journal) RecordStart(ctx context.Context, executionID, deploymentID, operation string) error {
	query := `
		INSERT INTO runs (execution_id, deployment_id, operation, state, started_at)
		VALUES (?, ?, ?, 'running', ?)
	`
	if _, err := j.db.ExecContext(ctx, query, executionID, deploymentID, operation, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to record run start: %w", err)
	}
	return nil
}

// RecordEvent journals one execution event.
func (j *Journal) RecordEvent(ctx context.Context, executionID string, event rest.Event) error {
	contextJSON := "{}"
	if len(event.Context) > 0 {
		data, err := json.Marshal(event.Context)
		if err != nil {
			return fmt.Errorf("failed to encode event context: %w", err)
		}
		contextJSON = string(data)
	}
	query := `
		INSERT INTO events (execution_id, timestamp, type, message, context)
		VALUES (?, ?, ?, ?, ?)
	`
	if _, err := j.db.ExecContext(ctx, query, executionID, event.Timestamp.UTC(), event.Type, event.Message, contextJSON); err != nil {
		return fmt.Errorf("failed to record event: %w", err)
	}
	return nil
}

// RecordFinish journals the terminal state of an execution. Finishing a run
// the journal never saw (a cancel issued from another directory, say) is
// not an error; the row is created on the fly.
func (j *Journal) RecordFinish(ctx context.Context, executionID string, state string, message string) error {
	var errMsg *string
	if message != "" {
		errMsg = &message
	}
	now := time.Now().UTC()
	result, err := j.db.ExecContext(ctx,
		`UPDATE runs SET state = ?, error = ?, finished_at = ? WHERE execution_id = ?`,
		state, errMsg, now, executionID)
	if err != nil {
		return fmt.Errorf("failed to record run finish: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		_, err = j.db.ExecContext(ctx,
			`INSERT INTO runs (execution_id, deployment_id, operation, state, error, started_at, finished_at)
			 VALUES (?, '', '', ?, ?, ?, ?)`,
			executionID, state, errMsg, now, now)
		if err != nil {
			return fmt.Errorf("failed to record run finish: %w", err)
		}
	}
	return nil
}

// GetRun returns one journaled run.
func (j *Journal) GetRun(ctx context.Context, executionID string) (*Run, error) {
	run := &Run{}
	err := j.db.QueryRowContext(ctx,
		`SELECT execution_id, deployment_id, operation, state, error, started_at, finished_at
		 FROM runs WHERE execution_id = ?`, executionID).
		Scan(&run.ExecutionID, &run.DeploymentID, &run.Operation, &run.State, &run.Error, &run.StartedAt, &run.FinishedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run not found: %s", executionID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// ListRuns returns the most recent runs, newest first.
func (j *Journal) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := j.db.QueryContext(ctx,
		`SELECT execution_id, deployment_id, operation, state, error, started_at, finished_at
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run := &Run{}
		if err := rows.Scan(&run.ExecutionID, &run.DeploymentID, &run.Operation, &run.State, &run.Error, &run.StartedAt, &run.FinishedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// ListEvents returns the journaled events of one execution in arrival order.
func (j *Journal) ListEvents(ctx context.Context, executionID string) ([]*Event, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT id, execution_id, timestamp, type, message, context
		 FROM events WHERE execution_id = ? ORDER BY id ASC`, executionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		event := &Event{}
		if err := rows.Scan(&event.ID, &event.ExecutionID, &event.Timestamp, &event.Type, &event.Message, &event.Context); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, event)
	}
	return events, rows.Err()
}
