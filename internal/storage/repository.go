// Package storage is the fallback backend: a local SQLite database standing
// in for the spreadsheet file when one is not wanted. It satisfies the same
// contract as the excel backend, with backups held as timestamped JSON
// snapshots inside the database.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/shanakarajapakshe/project-cost-management-dashboard/internal/core"
)

const defaultBackupKeep = 5

type SQLiteRepository struct {
	db   *sql.DB
	keep int
	now  core.Clock
}

// NewSQLiteRepository opens (and migrates) the database at dbPath.
// backupKeep is the per-period backup retention; zero or negative means
// the default.
func NewSQLiteRepository(dbPath string, backupKeep int) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	if backupKeep <= 0 {
		backupKeep = defaultBackupKeep
	}
	return &SQLiteRepository{db: db, keep: backupKeep, now: time.Now}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// LoadOrCreate returns the period's records in insertion order. The summary
// row doubles as the artifact-existence marker, so loading a never-seen
// period creates it empty.
func (r *SQLiteRepository) LoadOrCreate(ctx context.Context, period core.PeriodKey) ([]core.ProjectRecord, error) {
	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO period_summaries (period_key, updated_at) VALUES (?, ?)
		ON CONFLICT (period_key) DO NOTHING`,
		period.Key(), r.now().UTC().Format(time.RFC3339)); err != nil {
		return nil, fmt.Errorf("create period %s: %w", period.Key(), err)
	}
	return r.listProjects(ctx, r.db, period)
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (r *SQLiteRepository) listProjects(ctx context.Context, q querier, period core.PeriodKey) ([]core.ProjectRecord, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT name, num_engineers, engineer_salary, ce_visit_charge,
		       visits_per_month, transport_cost, client_payment, overhead_allocation,
		       engineer_cost, ce_visit_cost, direct_cost, overhead_cost,
		       total_cost, profit, created_at
		FROM projects
		WHERE period_key = ? AND name <> ''
		ORDER BY id`,
		period.Key())
	if err != nil {
		return nil, fmt.Errorf("list projects for %s: %w", period.Key(), err)
	}
	defer rows.Close()

	var out []core.ProjectRecord
	for rows.Next() {
		var rec core.ProjectRecord
		if err := rows.Scan(
			&rec.Name, &rec.NumEngineers, &rec.EngineerSalary, &rec.CEVisitCharge,
			&rec.VisitsPerMonth, &rec.TransportCost, &rec.ClientPayment, &rec.OverheadAllocation,
			&rec.EngineerCost, &rec.CEVisitCost, &rec.DirectCost, &rec.OverheadCost,
			&rec.TotalCost, &rec.Profit, &rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan project row: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate project rows: %w", err)
	}
	return out, nil
}

// Save appends one record and regenerates the period's aggregate row from
// the full current row set, in one transaction.
func (r *SQLiteRepository) Save(ctx context.Context, period core.PeriodKey, rec core.ProjectRecord) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO projects (
			period_key, name, num_engineers, engineer_salary, ce_visit_charge,
			visits_per_month, transport_cost, client_payment, overhead_allocation,
			engineer_cost, ce_visit_cost, direct_cost, overhead_cost,
			total_cost, profit, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		period.Key(), rec.Name, rec.NumEngineers, rec.EngineerSalary, rec.CEVisitCharge,
		rec.VisitsPerMonth, rec.TransportCost, rec.ClientPayment, rec.OverheadAllocation,
		rec.EngineerCost, rec.CEVisitCost, rec.DirectCost, rec.OverheadCost,
		rec.TotalCost, rec.Profit, rec.CreatedAt,
	); err != nil {
		return fmt.Errorf("insert project: %w", err)
	}
	if err := r.regenerateSummary(ctx, tx, period); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}

	slog.InfoContext(ctx, "Project saved to SQLite",
		"period", period.Key(), "project", rec.Name)
	return nil
}

// Delete removes the earliest-inserted row matching the name. Unknown names
// are a no-op.
func (r *SQLiteRepository) Delete(ctx context.Context, period core.PeriodKey, name string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete: %w", err)
	}
	defer tx.Rollback()

	var id int64
	err = tx.QueryRowContext(ctx, `
		SELECT id FROM projects
		WHERE period_key = ? AND name = ?
		ORDER BY id LIMIT 1`,
		period.Key(), name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		slog.WarnContext(ctx, "Delete requested for unknown project",
			"period", period.Key(), "project", name)
		return nil
	}
	if err != nil {
		return fmt.Errorf("find project %q: %w", name, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete project %q: %w", name, err)
	}
	if err := r.regenerateSummary(ctx, tx, period); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete: %w", err)
	}

	slog.InfoContext(ctx, "Project deleted from SQLite",
		"period", period.Key(), "project", name, "id", id)
	return nil
}

type execer interface {
	querier
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (r *SQLiteRepository) regenerateSummary(ctx context.Context, q execer, period core.PeriodKey) error {
	recs, err := r.listProjects(ctx, q, period)
	if err != nil {
		return err
	}
	stats := core.ComputeSummary(recs)
	if _, err := q.ExecContext(ctx, `
		INSERT INTO period_summaries (period_key, total_projects, total_revenue, total_costs, net_profit, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (period_key) DO UPDATE SET
			total_projects = excluded.total_projects,
			total_revenue = excluded.total_revenue,
			total_costs = excluded.total_costs,
			net_profit = excluded.net_profit,
			updated_at = excluded.updated_at`,
		period.Key(), stats.TotalProjects, stats.TotalRevenue, stats.TotalCosts,
		stats.NetProfit, r.now().UTC().Format(time.RFC3339),
	); err != nil {
		return fmt.Errorf("update summary for %s: %w", period.Key(), err)
	}
	return nil
}

func (r *SQLiteRepository) periodExists(ctx context.Context, period core.PeriodKey) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM period_summaries WHERE period_key = ?`, period.Key()).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check period %s: %w", period.Key(), err)
	}
	return true, nil
}

// Export writes the period's records and stats as a JSON document to the
// destination. The fallback backend has no spreadsheet file to copy; its
// durable serialization is the artifact.
func (r *SQLiteRepository) Export(ctx context.Context, period core.PeriodKey, destPath string) (string, error) {
	if strings.TrimSpace(destPath) == "" {
		return "", core.ErrExportCanceled
	}
	exists, err := r.periodExists(ctx, period)
	if err != nil {
		return "", err
	}
	if !exists {
		return "", fmt.Errorf("export %s: %w", period.Key(), core.ErrNotFound)
	}

	recs, err := r.listProjects(ctx, r.db, period)
	if err != nil {
		return "", err
	}
	snap := core.PeriodSnapshot{Projects: recs, Stats: core.ComputeSummary(recs)}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", fmt.Errorf("serialize period %s: %w", period.Key(), err)
	}
	if err := os.WriteFile(destPath, data, 0o644); err != nil {
		return "", fmt.Errorf("export %s to %s: %w", period.Key(), destPath, err)
	}

	slog.InfoContext(ctx, "Period exported", "period", period.Key(), "dest", destPath)
	return destPath, nil
}

// Backup snapshots the period's serialized rows under a timestamped key and
// prunes everything beyond the retention limit.
func (r *SQLiteRepository) Backup(ctx context.Context, period core.PeriodKey) (string, error) {
	exists, err := r.periodExists(ctx, period)
	if err != nil {
		return "", err
	}
	if !exists {
		return "", fmt.Errorf("backup %s: %w", period.Key(), core.ErrNotFound)
	}

	recs, err := r.listProjects(ctx, r.db, period)
	if err != nil {
		return "", err
	}
	payload, err := json.Marshal(recs)
	if err != nil {
		return "", fmt.Errorf("serialize backup for %s: %w", period.Key(), err)
	}

	now := r.now().UTC()
	stamp := strings.NewReplacer(":", "-", ".", "-").
		Replace(now.Format("2006-01-02T15:04:05.000Z"))
	key := fmt.Sprintf("Backup_%04d_%02d_%s", period.Year, period.Month, stamp)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin backup: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO backups (period_key, backup_key, payload, created_at)
		VALUES (?, ?, ?, ?)`,
		period.Key(), key, string(payload), now.Format(time.RFC3339),
	); err != nil {
		return "", fmt.Errorf("insert backup %s: %w", key, err)
	}
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM backups
		WHERE period_key = ? AND backup_key NOT IN (
			SELECT backup_key FROM backups
			WHERE period_key = ?
			ORDER BY backup_key DESC
			LIMIT ?
		)`,
		period.Key(), period.Key(), r.keep,
	); err != nil {
		return "", fmt.Errorf("prune backups for %s: %w", period.Key(), err)
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit backup: %w", err)
	}

	slog.InfoContext(ctx, "Backup created", "period", period.Key(), "backup", key)
	return key, nil
}

// ListBackupKeys returns the period's backup keys, newest first.
func (r *SQLiteRepository) ListBackupKeys(ctx context.Context, period core.PeriodKey) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT backup_key FROM backups
		WHERE period_key = ?
		ORDER BY backup_key DESC`,
		period.Key())
	if err != nil {
		return nil, fmt.Errorf("list backups for %s: %w", period.Key(), err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scan backup key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}
