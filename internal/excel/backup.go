package excel

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/shanakarajapakshe/project-cost-management-dashboard/internal/core"
)

// defaultBackupKeep is the retention policy when none is configured: the
// five most recent backups per period survive, oldest deleted first.
const defaultBackupKeep = 5

// Export copies the period's workbook to a user-chosen destination. An empty
// destination means the user backed out of the save dialog.
func (s *Store) Export(ctx context.Context, period core.PeriodKey, destPath string) (string, error) {
	if strings.TrimSpace(destPath) == "" {
		return "", core.ErrExportCanceled
	}
	src := s.filePath(period)
	if _, err := os.Stat(src); err != nil {
		return "", fmt.Errorf("export %s: %w", period.Key(), core.ErrNotFound)
	}
	if err := copyFile(src, destPath); err != nil {
		return "", fmt.Errorf("export %s to %s: %w", period.Key(), destPath, err)
	}
	slog.InfoContext(ctx, "Workbook exported", "period", period.Key(), "dest", destPath)
	return destPath, nil
}

// Backup copies the period's workbook into the backup area under a
// timestamped name, then prunes old backups beyond the retention limit.
func (s *Store) Backup(ctx context.Context, period core.PeriodKey) (string, error) {
	src := s.filePath(period)
	if _, err := os.Stat(src); err != nil {
		return "", fmt.Errorf("backup %s: %w", period.Key(), core.ErrNotFound)
	}
	dir := s.backupDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create backup directory: %w", err)
	}

	// Sortable ISO-like stamp: reverse lexicographic equals reverse
	// chronological.
	stamp := strings.NewReplacer(":", "-", ".", "-").
		Replace(s.now().UTC().Format("2006-01-02T15:04:05.000Z"))
	dest := filepath.Join(dir, backupPrefix(period)+stamp+".xlsx")

	if err := copyFile(src, dest); err != nil {
		return "", fmt.Errorf("backup %s: %w", period.Key(), err)
	}
	if err := s.pruneBackups(period); err != nil {
		return "", fmt.Errorf("prune backups for %s: %w", period.Key(), err)
	}
	slog.InfoContext(ctx, "Backup created", "period", period.Key(), "path", dest)
	return dest, nil
}

func (s *Store) pruneBackups(period core.PeriodKey) error {
	dir := s.backupDir()
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	prefix := backupPrefix(period)
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), prefix) {
			names = append(names, e.Name())
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	for _, name := range names[min(len(names), s.keep):] {
		if err := os.Remove(filepath.Join(dir, name)); err != nil {
			return err
		}
	}
	return nil
}

func copyFile(src, dest string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dest, data, 0o644)
}
