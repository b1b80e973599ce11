package migration

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nikixstore/storefront/pkg/runtime"
)

const defaultLockID int64 = 741020000

// Executor executes and tracks database migrations.
type Executor struct {
	pool   *pgxpool.Pool
	lockID int64 // PostgreSQL advisory lock ID
}

// NewExecutor creates a new migration executor.
func NewExecutor(pool *pgxpool.Pool) *Executor {
	return &Executor{pool: pool, lockID: defaultLockID}
}

// WithLockID sets a custom advisory lock ID.
func (e *Executor) WithLockID(lockID int64) *Executor {
	e.lockID = lockID
	return e
}

// Initialize creates the schema_migrations table if it doesn't exist.
func (e *Executor) Initialize(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version VARCHAR(14) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'pending',
			applied_at TIMESTAMPTZ,
			error TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`
	if _, err := e.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}
	return nil
}

// GetAllMigrations returns all migration records.
func (e *Executor) GetAllMigrations(ctx context.Context) ([]MigrationRecord, error) {
	rows, err := e.pool.Query(ctx, `
		SELECT version, name, status, applied_at, error
		FROM schema_migrations
		ORDER BY version ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query migrations: %w", err)
	}
	defer rows.Close()

	var records []MigrationRecord
	for rows.Next() {
		var record MigrationRecord
		var status string
		if err := rows.Scan(&record.Version, &record.Name, &status, &record.AppliedAt, &record.Error); err != nil {
			return nil, fmt.Errorf("failed to scan migration record: %w", err)
		}
		record.Status = MigrationStatus(status)
		records = append(records, record)
	}
	return records, rows.Err()
}

// ApplyAll applies every pending migration in order while holding the
// advisory lock, so two processes starting together do not race.
// It returns the versions that were applied.
func (e *Executor) ApplyAll(ctx context.Context, migrations []Migration, dryRun bool) ([]string, error) {
	conn, err := e.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", e.lockID); err != nil {
		return nil, fmt.Errorf("failed to acquire migration lock: %w", err)
	}
	defer func() {
		_, _ = conn.Exec(context.WithoutCancel(ctx), "SELECT pg_advisory_unlock($1)", e.lockID)
	}()

	records, err := e.GetAllMigrations(ctx)
	if err != nil {
		return nil, err
	}
	applied := make(map[string]bool, len(records))
	for _, r := range records {
		if r.Status == StatusApplied {
			applied[r.Version] = true
		}
	}

	var done []string
	for _, m := range migrations {
		if applied[m.Version] {
			continue
		}
		if dryRun {
			done = append(done, m.Version)
			continue
		}
		if err := e.apply(ctx, conn, m); err != nil {
			return done, &runtime.MigrationError{Version: m.Version, Message: "apply failed", Err: err}
		}
		done = append(done, m.Version)
	}
	return done, nil
}

func (e *Executor) apply(ctx context.Context, conn *pgxpool.Conn, m Migration) error {
	tx, err := conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for i, stmt := range splitSQL(m.UpSQL) {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			msg := fmt.Sprintf("statement %d failed: %v", i+1, err)
			// record the failure outside the aborted transaction
			_, _ = conn.Exec(ctx,
				`INSERT INTO schema_migrations (version, name, status, error) VALUES ($1, $2, 'failed', $3)
				 ON CONFLICT (version) DO UPDATE SET status = 'failed', error = EXCLUDED.error`,
				m.Version, m.Name, msg)
			return fmt.Errorf("migration failed at statement %d: %w", i+1, err)
		}
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO schema_migrations (version, name, status, applied_at) VALUES ($1, $2, 'applied', $3)
		 ON CONFLICT (version) DO UPDATE SET status = 'applied', applied_at = EXCLUDED.applied_at, error = NULL`,
		m.Version, m.Name, time.Now(),
	); err != nil {
		return fmt.Errorf("failed to record migration: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit migration: %w", err)
	}
	return nil
}

// GetStatus returns the status of all migrations, pending ones included.
func (e *Executor) GetStatus(ctx context.Context, migrations []Migration) ([]MigrationRecord, error) {
	stored, err := e.GetAllMigrations(ctx)
	if err != nil {
		return nil, err
	}
	byVersion := make(map[string]MigrationRecord, len(stored))
	for _, r := range stored {
		byVersion[r.Version] = r
	}

	records := make([]MigrationRecord, 0, len(migrations))
	for _, m := range migrations {
		if r, ok := byVersion[m.Version]; ok {
			records = append(records, r)
			continue
		}
		records = append(records, MigrationRecord{Version: m.Version, Name: m.Name, Status: StatusPending})
	}
	return records, nil
}

// splitSQL splits a SQL string into individual statements on semicolons,
// dropping comment lines.
func splitSQL(sql string) []string {
	lines := strings.Split(sql, "\n")
	cleaned := lines[:0]
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		cleaned = append(cleaned, line)
	}

	var result []string
	for _, stmt := range strings.Split(strings.Join(cleaned, "\n"), ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			result = append(result, stmt)
		}
	}
	return result
}
