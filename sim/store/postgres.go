// Package store provides the Postgres-backed implementation of the resource
// ledger contract: a resources table keyed by unit name and a queue table
// holding waiting requests.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/hospital-sim/hospital-sim/sim"
)

const queryTimeout = 10 * time.Second

// PostgresLedger implements sim.Ledger on a Postgres pool.
type PostgresLedger struct {
	db *sql.DB
}

// Open connects to the database and verifies the connection.
func Open(ctx context.Context, dsn string) (*PostgresLedger, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &PostgresLedger{db: db}, nil
}

// Close releases the connection pool.
func (l *PostgresLedger) Close() error {
	return l.db.Close()
}

// Init creates the tables if missing and resets them to the configured
// capacities, one row per unit named "<type>_<index>".
func (l *PostgresLedger) Init(ctx context.Context, cfg *sim.ResourceConfig) error {
	const schema = `
		CREATE TABLE IF NOT EXISTS resources (
			resource_name TEXT PRIMARY KEY,
			resource_type TEXT NOT NULL,
			available_at DOUBLE PRECISION NOT NULL
		);
		CREATE TABLE IF NOT EXISTS queue (
			id BIGSERIAL PRIMARY KEY,
			priority INTEGER NOT NULL,
			request_time DOUBLE PRECISION NOT NULL,
			callback_ref TEXT NOT NULL,
			patient_id TEXT NOT NULL,
			diagnosis TEXT NOT NULL,
			resource_type TEXT NOT NULL
		);
	`
	if _, err := l.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, `DELETE FROM resources`); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM queue`); err != nil {
		return err
	}
	for _, spec := range cfg.Resources {
		for i := 0; i < spec.Capacity; i++ {
			name := fmt.Sprintf("%s_%d", spec.ResourceType, i)
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO resources (resource_name, resource_type, available_at) VALUES ($1, $2, $3)`,
				name, spec.ResourceType, spec.AvailableAt); err != nil {
				return fmt.Errorf("seed unit %s: %w", name, err)
			}
		}
	}
	return tx.Commit()
}

// TryAcquire returns the earliest-available free unit of the type.
func (l *PostgresLedger) TryAcquire(resource string, at float64) (string, bool, error) {
	query := `
		SELECT resource_name FROM resources
		WHERE resource_type = $1 AND available_at <= $2
		ORDER BY available_at, resource_name LIMIT 1
	`
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	var unit string
	if err := l.db.QueryRowContext(ctx, query, resource, at).Scan(&unit); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	return unit, true, nil
}

// Reserve updates the unit's availability.
func (l *PostgresLedger) Reserve(unit string, until float64) error {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	res, err := l.db.ExecContext(ctx,
		`UPDATE resources SET available_at = $1 WHERE resource_name = $2`, until, unit)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("reserve: unknown unit %q", unit)
	}
	return nil
}

// Enqueue inserts a waiting request; ordering is applied at dequeue.
func (l *PostgresLedger) Enqueue(e sim.QueueEntry) error {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	_, err := l.db.ExecContext(ctx, `
		INSERT INTO queue (priority, request_time, callback_ref, patient_id, diagnosis, resource_type)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		e.Priority, e.RequestTime, e.CallbackRef, e.PatientID, e.Diagnosis, e.Resource)
	return err
}

// DequeueHead removes and returns the highest-priority oldest entry.
func (l *PostgresLedger) DequeueHead(resource string) (sim.QueueEntry, bool, error) {
	query := `
		DELETE FROM queue WHERE id = (
			SELECT id FROM queue WHERE resource_type = $1
			ORDER BY priority, request_time, id LIMIT 1
		)
		RETURNING priority, request_time, callback_ref, patient_id, diagnosis, resource_type
	`
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	var e sim.QueueEntry
	dst := []any{&e.Priority, &e.RequestTime, &e.CallbackRef, &e.PatientID, &e.Diagnosis, &e.Resource}
	if err := l.db.QueryRowContext(ctx, query, resource).Scan(dst...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return sim.QueueEntry{}, false, nil
		}
		return sim.QueueEntry{}, false, err
	}
	return e, true, nil
}

// QueueLength counts the waiting entries for a resource type.
func (l *PostgresLedger) QueueLength(resource string) (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	var n int
	err := l.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM queue WHERE resource_type = $1`, resource).Scan(&n)
	return n, err
}

// DropPatient removes every queued entry for the patient.
func (l *PostgresLedger) DropPatient(patientID string) error {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	_, err := l.db.ExecContext(ctx, `DELETE FROM queue WHERE patient_id = $1`, patientID)
	return err
}
