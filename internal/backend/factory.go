package backend

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shanakarajapakshe/project-cost-management-dashboard/internal/excel"
	"github.com/shanakarajapakshe/project-cost-management-dashboard/internal/storage"
)

// Ensure interface conformance
var (
	_ ProjectStore = (*excel.Store)(nil)
	_ ProjectStore = (*storage.SQLiteRepository)(nil)
)

// Factory creates a ProjectStore from configuration.
type Factory interface {
	CreateStore(ctx context.Context, config Config) (*Result, error)
}

type defaultFactory struct {
	logger *slog.Logger
}

func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &defaultFactory{logger: logger}
}

func (f *defaultFactory) CreateStore(ctx context.Context, config Config) (*Result, error) {
	if !config.Type.IsValid() {
		return nil, fmt.Errorf("invalid backend type: %s", config.Type)
	}

	switch config.Type {
	case ExcelBackend:
		store, err := excel.New(config.DataDir, config.BackupKeep)
		if err != nil {
			return nil, fmt.Errorf("initialize excel backend: %w", err)
		}
		f.logger.Info("Initialized excel backend", "data_dir", config.DataDir)
		return &Result{Store: store}, nil

	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath, config.BackupKeep)
		if err != nil {
			return nil, fmt.Errorf("initialize sqlite backend: %w", err)
		}
		f.logger.Info("Initialized sqlite backend", "db_path", config.SQLiteDBPath)
		return &Result{Store: repo, Cleanup: repo.Close}, nil

	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}
