// Package backend selects and constructs the durable-storage strategy once
// at startup: the spreadsheet-file backend or the SQLite fallback.
package backend

import (
	"context"

	"github.com/shanakarajapakshe/project-cost-management-dashboard/internal/core"
)

// ProjectStore is the contract both backends satisfy: period-scoped load,
// append, delete-by-name, export, and timestamped backup with retention.
type ProjectStore interface {
	LoadOrCreate(ctx context.Context, period core.PeriodKey) ([]core.ProjectRecord, error)
	Save(ctx context.Context, period core.PeriodKey, rec core.ProjectRecord) error
	Delete(ctx context.Context, period core.PeriodKey, name string) error
	Export(ctx context.Context, period core.PeriodKey, destPath string) (string, error)
	Backup(ctx context.Context, period core.PeriodKey) (string, error)
}

// CleanupFunc releases backend resources at shutdown.
type CleanupFunc func() error

// Result contains the constructed store and its optional cleanup.
type Result struct {
	Store   ProjectStore
	Cleanup CleanupFunc
}

// Config holds what backend construction needs.
type Config struct {
	Type Type

	// Excel backend
	DataDir string

	// SQLite fallback
	SQLiteDBPath string

	// Backup retention per period; zero means the backend default.
	BackupKeep int
}

// Type names a backend strategy.
type Type string

const (
	ExcelBackend  Type = "excel"
	SQLiteBackend Type = "sqlite"
)

// String implements fmt.Stringer.
func (t Type) String() string {
	return string(t)
}

// IsValid reports whether the type names a known backend.
func (t Type) IsValid() bool {
	switch t {
	case ExcelBackend, SQLiteBackend:
		return true
	default:
		return false
	}
}
