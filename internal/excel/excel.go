// Package excel persists period project data as styled xlsx workbooks, one
// file per (year, month), mirroring the layout the dashboard's spreadsheet
// exports have always used: a "Projects" sheet with raw rows and a "Summary"
// sheet regenerated from them after every mutation.
package excel

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/xuri/excelize/v2"
	"golang.org/x/sync/singleflight"

	"github.com/shanakarajapakshe/project-cost-management-dashboard/internal/core"
)

const (
	sheetProjects = "Projects"
	sheetSummary  = "Summary"

	// Whole-column aggregate formulas cover this many data rows.
	maxDataRow = 1000

	currencyFmt = `"LKR "#,##0.00`
	percentFmt  = `0.00"%"`
)

var projectHeaders = []string{
	"Project Name",          // A
	"No. of Engineers",      // B
	"Engineer Salary/Month", // C
	"CE Visit Charge",       // D
	"Visits/Month",          // E
	"Transport Cost/Month",  // F
	"Client Payment/Month",  // G
	"Overhead Allocation %", // H
	"Engineer Cost",         // I
	"CE Visit Cost",         // J
	"Direct Cost",           // K
	"Overhead Cost",         // L
	"Total Cost",            // M
	"Profit",                // N
	"Timestamp",             // O
}

var projectColWidths = []float64{25, 15, 20, 18, 15, 20, 20, 20, 18, 18, 18, 18, 18, 18, 22}

// workbook is one open period file plus the style IDs registered in it.
// Styles are created once per open so repeated summary regeneration reuses
// the same IDs and output stays stable.
type workbook struct {
	mu     sync.Mutex
	file   *excelize.File
	path   string
	styles styleIDs
}

// Store is the spreadsheet-file backend. Workbook handles are cached per
// period for the process lifetime; the handful of periods touched in one
// session keeps the map small.
type Store struct {
	baseDir string
	keep    int
	now     core.Clock

	mu        sync.Mutex
	workbooks map[string]*workbook
	group     singleflight.Group
}

// New opens the spreadsheet-file backend rooted at baseDir. backupKeep is
// the per-period backup retention; zero or negative means the default.
func New(baseDir string, backupKeep int) (*Store, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	if backupKeep <= 0 {
		backupKeep = defaultBackupKeep
	}
	return &Store{
		baseDir:   baseDir,
		keep:      backupKeep,
		now:       time.Now,
		workbooks: make(map[string]*workbook),
	}, nil
}

func (s *Store) filePath(period core.PeriodKey) string {
	return filepath.Join(s.baseDir, fmt.Sprintf("Profit_Dashboard_%04d_%02d.xlsx", period.Year, period.Month))
}

func (s *Store) backupDir() string {
	return filepath.Join(s.baseDir, "backups")
}

func backupPrefix(period core.PeriodKey) string {
	return fmt.Sprintf("Backup_%04d_%02d_", period.Year, period.Month)
}

// LoadOrCreate returns the period's records in file order. A missing file is
// created empty; rows with a blank name are deleted placeholders and never
// surfaced.
func (s *Store) LoadOrCreate(ctx context.Context, period core.PeriodKey) ([]core.ProjectRecord, error) {
	wb, err := s.workbook(ctx, period)
	if err != nil {
		return nil, err
	}
	wb.mu.Lock()
	defer wb.mu.Unlock()
	return readProjects(wb.file)
}

// Save appends one record and regenerates the summary sheet from the full
// current row set before writing the file back.
func (s *Store) Save(ctx context.Context, period core.PeriodKey, rec core.ProjectRecord) error {
	wb, err := s.workbook(ctx, period)
	if err != nil {
		return err
	}
	wb.mu.Lock()
	defer wb.mu.Unlock()

	rows, err := wb.file.GetRows(sheetProjects, excelize.Options{RawCellValue: true})
	if err != nil {
		return fmt.Errorf("read project rows: %w", err)
	}
	next := len(rows) + 1

	values := []interface{}{
		rec.Name,
		rec.NumEngineers,
		rec.EngineerSalary,
		rec.CEVisitCharge,
		rec.VisitsPerMonth,
		rec.TransportCost,
		rec.ClientPayment,
		rec.OverheadAllocation,
		rec.EngineerCost,
		rec.CEVisitCost,
		rec.DirectCost,
		rec.OverheadCost,
		rec.TotalCost,
		rec.Profit,
		rec.CreatedAt,
	}
	if err := wb.file.SetSheetRow(sheetProjects, fmt.Sprintf("A%d", next), &values); err != nil {
		return fmt.Errorf("append project row: %w", err)
	}
	if err := styleProjectRow(wb, next); err != nil {
		return fmt.Errorf("style project row: %w", err)
	}
	if err := regenerateSummary(wb); err != nil {
		return fmt.Errorf("regenerate summary: %w", err)
	}
	if err := wb.file.SaveAs(wb.path); err != nil {
		return fmt.Errorf("write workbook %s: %w", wb.path, err)
	}

	slog.InfoContext(ctx, "Project saved to workbook",
		"period", period.Key(), "project", rec.Name, "row", next)
	return nil
}

// Delete removes the first row whose name matches. A missing name is a
// no-op: the caller's view already decided the row exists.
func (s *Store) Delete(ctx context.Context, period core.PeriodKey, name string) error {
	wb, err := s.workbook(ctx, period)
	if err != nil {
		return err
	}
	wb.mu.Lock()
	defer wb.mu.Unlock()

	rows, err := wb.file.GetRows(sheetProjects, excelize.Options{RawCellValue: true})
	if err != nil {
		return fmt.Errorf("read project rows: %w", err)
	}
	target := 0
	for i, row := range rows {
		if i == 0 {
			continue
		}
		if cellAt(row, 0) == name {
			target = i + 1
			break
		}
	}
	if target == 0 {
		slog.WarnContext(ctx, "Delete requested for unknown project",
			"period", period.Key(), "project", name)
		return nil
	}
	if err := wb.file.RemoveRow(sheetProjects, target); err != nil {
		return fmt.Errorf("remove project row: %w", err)
	}
	if err := regenerateSummary(wb); err != nil {
		return fmt.Errorf("regenerate summary: %w", err)
	}
	if err := wb.file.SaveAs(wb.path); err != nil {
		return fmt.Errorf("write workbook %s: %w", wb.path, err)
	}

	slog.InfoContext(ctx, "Project deleted from workbook",
		"period", period.Key(), "project", name, "row", target)
	return nil
}

// workbook returns the cached handle for the period, opening or creating the
// file on first use. Concurrent first requests for the same period share one
// open via singleflight.
func (s *Store) workbook(ctx context.Context, period core.PeriodKey) (*workbook, error) {
	key := period.Key()

	s.mu.Lock()
	if wb, ok := s.workbooks[key]; ok {
		s.mu.Unlock()
		return wb, nil
	}
	s.mu.Unlock()

	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		s.mu.Lock()
		if wb, ok := s.workbooks[key]; ok {
			s.mu.Unlock()
			return wb, nil
		}
		s.mu.Unlock()

		wb, err := s.openOrCreate(ctx, period)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.workbooks[key] = wb
		s.mu.Unlock()
		return wb, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*workbook), nil
}

func (s *Store) openOrCreate(ctx context.Context, period core.PeriodKey) (*workbook, error) {
	path := s.filePath(period)

	if _, err := os.Stat(path); err == nil {
		f, err := excelize.OpenFile(path)
		if err != nil {
			return nil, fmt.Errorf("open workbook %s: %w", path, err)
		}
		styles, err := registerStyles(f)
		if err != nil {
			return nil, fmt.Errorf("register styles: %w", err)
		}
		slog.InfoContext(ctx, "Opened existing workbook", "path", path, "period", period.Key())
		return &workbook{file: f, path: path, styles: styles}, nil
	}

	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", sheetProjects); err != nil {
		return nil, fmt.Errorf("name projects sheet: %w", err)
	}
	if _, err := f.NewSheet(sheetSummary); err != nil {
		return nil, fmt.Errorf("create summary sheet: %w", err)
	}
	styles, err := registerStyles(f)
	if err != nil {
		return nil, fmt.Errorf("register styles: %w", err)
	}
	wb := &workbook{file: f, path: path, styles: styles}

	if err := writeProjectsHeader(wb); err != nil {
		return nil, fmt.Errorf("write projects header: %w", err)
	}
	if err := regenerateSummary(wb); err != nil {
		return nil, fmt.Errorf("write summary sheet: %w", err)
	}
	if err := f.SaveAs(path); err != nil {
		return nil, fmt.Errorf("create workbook %s: %w", path, err)
	}

	slog.InfoContext(ctx, "Created new workbook", "path", path, "period", period.Key())
	return wb, nil
}

func writeProjectsHeader(wb *workbook) error {
	f := wb.file
	header := make([]interface{}, len(projectHeaders))
	for i, h := range projectHeaders {
		header[i] = h
	}
	if err := f.SetSheetRow(sheetProjects, "A1", &header); err != nil {
		return err
	}
	for i, w := range projectColWidths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheetProjects, col, col, w); err != nil {
			return err
		}
	}
	if err := f.SetCellStyle(sheetProjects, "A1", "O1", wb.styles.header); err != nil {
		return err
	}
	return f.SetRowHeight(sheetProjects, 1, 25)
}

// styleProjectRow applies the currency mask to the money columns and the
// percent mask to the overhead column of one data row.
func styleProjectRow(wb *workbook, row int) error {
	f := wb.file
	for _, rng := range [][2]string{
		{fmt.Sprintf("C%d", row), fmt.Sprintf("D%d", row)},
		{fmt.Sprintf("F%d", row), fmt.Sprintf("G%d", row)},
		{fmt.Sprintf("I%d", row), fmt.Sprintf("N%d", row)},
	} {
		if err := f.SetCellStyle(sheetProjects, rng[0], rng[1], wb.styles.currency); err != nil {
			return err
		}
	}
	cell := fmt.Sprintf("H%d", row)
	return f.SetCellStyle(sheetProjects, cell, cell, wb.styles.percent)
}

func readProjects(f *excelize.File) ([]core.ProjectRecord, error) {
	rows, err := f.GetRows(sheetProjects, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read project rows: %w", err)
	}
	out := make([]core.ProjectRecord, 0, len(rows))
	for i, row := range rows {
		if i == 0 {
			continue
		}
		name := cellAt(row, 0)
		if strings.TrimSpace(name) == "" {
			continue
		}
		out = append(out, core.ProjectRecord{
			ProjectInput: core.ProjectInput{
				Name:               name,
				NumEngineers:       numAt(row, 1),
				EngineerSalary:     numAt(row, 2),
				CEVisitCharge:      numAt(row, 3),
				VisitsPerMonth:     numAt(row, 4),
				TransportCost:      numAt(row, 5),
				ClientPayment:      numAt(row, 6),
				OverheadAllocation: numAt(row, 7),
			},
			EngineerCost: numAt(row, 8),
			CEVisitCost:  numAt(row, 9),
			DirectCost:   numAt(row, 10),
			OverheadCost: numAt(row, 11),
			TotalCost:    numAt(row, 12),
			Profit:       numAt(row, 13),
			CreatedAt:    cellAt(row, 14),
		})
	}
	return out, nil
}

func cellAt(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

func numAt(row []string, idx int) float64 {
	s := strings.TrimSpace(cellAt(row, idx))
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
