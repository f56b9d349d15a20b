// Package dashboard holds the in-memory view-model for the currently loaded
// period: the authoritative project list, per-period snapshots for trend
// queries, and the write-then-apply mediation between the metrics calculator
// and the persistence backend.
package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/shanakarajapakshe/project-cost-management-dashboard/internal/backend"
	"github.com/shanakarajapakshe/project-cost-management-dashboard/internal/core"
)

// trendMonths caps the monthly trend query.
const trendMonths = 6

type Store struct {
	store backend.ProjectStore
	clock core.Clock

	mu       sync.Mutex
	period   core.PeriodKey
	loaded   bool
	projects []core.ProjectRecord
	monthly  map[string]core.PeriodSnapshot
}

// NewStore wraps a persistence backend. A nil clock means wall-clock time.
func NewStore(store backend.ProjectStore, clock core.Clock) *Store {
	return &Store{
		store:   store,
		clock:   clock,
		monthly: make(map[string]core.PeriodSnapshot),
	}
}

// SetCurrentPeriod switches the active period. It does not load data;
// LoadPeriod must follow before the project list is meaningful.
func (s *Store) SetCurrentPeriod(month, year int) error {
	period := core.PeriodKey{Month: month, Year: year}
	if err := period.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.period = period
	s.loaded = false
	s.projects = nil
	return nil
}

// CurrentPeriod returns the active period key; the zero key before any
// SetCurrentPeriod call.
func (s *Store) CurrentPeriod() core.PeriodKey {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.period
}

// LoadPeriod pulls the active period's records from the backend and enters
// the loaded state. Loading a never-seen period yields an empty list.
func (s *Store) LoadPeriod(ctx context.Context) ([]core.ProjectRecord, error) {
	s.mu.Lock()
	period := s.period
	s.mu.Unlock()
	if period.IsZero() {
		return nil, core.ErrNoPeriodLoaded
	}

	recs, err := s.store.LoadOrCreate(ctx, period)
	if err != nil {
		return nil, fmt.Errorf("load period %s: %w", period.Key(), err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// A competing SetCurrentPeriod may have switched away mid-load.
	if s.period != period {
		return nil, fmt.Errorf("load period %s: %w", period.Key(), core.ErrNoPeriodLoaded)
	}
	s.projects = recs
	s.loaded = true
	s.refreshSnapshotLocked()
	return s.projectsLocked(), nil
}

// AddProject validates the input, computes derived metrics, persists the
// record, and only then appends it to the in-memory list. On persistence
// failure the list is untouched.
func (s *Store) AddProject(ctx context.Context, in core.ProjectInput) (core.ProjectRecord, error) {
	if err := in.Validate(); err != nil {
		return core.ProjectRecord{}, err
	}

	s.mu.Lock()
	if !s.loaded {
		s.mu.Unlock()
		return core.ProjectRecord{}, core.ErrNoPeriodLoaded
	}
	period := s.period
	s.mu.Unlock()

	rec := core.ComputeMetrics(in, s.clock)
	if err := s.store.Save(ctx, period, rec); err != nil {
		return core.ProjectRecord{}, fmt.Errorf("save project %q: %w", rec.Name, err)
	}

	s.mu.Lock()
	// A competing SetCurrentPeriod may have switched away mid-save; the
	// durable write went to the right period, so only the in-memory apply
	// is skipped.
	if s.loaded && s.period == period {
		s.projects = append(s.projects, rec)
		s.refreshSnapshotLocked()
	}
	s.mu.Unlock()

	s.backupAfterMutation(ctx, period)
	return rec, nil
}

// DeleteProject removes the record at index. Persistence targets the record
// by name, so with duplicate names the earliest-inserted row is the one the
// backend drops; the in-memory removal is by index.
func (s *Store) DeleteProject(ctx context.Context, index int) error {
	s.mu.Lock()
	if !s.loaded {
		s.mu.Unlock()
		return core.ErrNoPeriodLoaded
	}
	if index < 0 || index >= len(s.projects) {
		s.mu.Unlock()
		return fmt.Errorf("%w: %d", core.ErrIndexOutOfRange, index)
	}
	period := s.period
	name := s.projects[index].Name
	s.mu.Unlock()

	if err := s.store.Delete(ctx, period, name); err != nil {
		return fmt.Errorf("delete project %q: %w", name, err)
	}

	s.mu.Lock()
	// Same mid-flight period-switch window as AddProject.
	if s.loaded && s.period == period && index < len(s.projects) && s.projects[index].Name == name {
		s.projects = append(s.projects[:index], s.projects[index+1:]...)
		s.refreshSnapshotLocked()
	}
	s.mu.Unlock()

	s.backupAfterMutation(ctx, period)
	return nil
}

// Projects returns a copy of the current period's record list.
func (s *Store) Projects() []core.ProjectRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.projectsLocked()
}

func (s *Store) projectsLocked() []core.ProjectRecord {
	out := make([]core.ProjectRecord, len(s.projects))
	copy(out, s.projects)
	return out
}

// SummaryStats recomputes the aggregate from the in-memory list on every
// call; it is never served stale.
func (s *Store) SummaryStats() core.SummaryStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return core.ComputeSummary(s.projects)
}

// MonthlyTrend returns up to the six most recent period snapshots touched
// this session, ascending by period key, reduced to (period, net profit).
// Zero-padded keys make the lexicographic sort chronological.
func (s *Store) MonthlyTrend() []core.TrendPoint {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]string, 0, len(s.monthly))
	for k := range s.monthly {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if len(keys) > trendMonths {
		keys = keys[len(keys)-trendMonths:]
	}

	out := make([]core.TrendPoint, 0, len(keys))
	for _, k := range keys {
		out = append(out, core.TrendPoint{Period: k, Profit: s.monthly[k].Stats.NetProfit})
	}
	return out
}

// Export copies the active period's durable artifact to the destination.
func (s *Store) Export(ctx context.Context, destPath string) (string, error) {
	s.mu.Lock()
	if !s.loaded {
		s.mu.Unlock()
		return "", core.ErrNoPeriodLoaded
	}
	period := s.period
	s.mu.Unlock()
	return s.store.Export(ctx, period, destPath)
}

// Backup snapshots the active period's artifact.
func (s *Store) Backup(ctx context.Context) (string, error) {
	s.mu.Lock()
	if !s.loaded {
		s.mu.Unlock()
		return "", core.ErrNoPeriodLoaded
	}
	period := s.period
	s.mu.Unlock()
	return s.store.Backup(ctx, period)
}

// backupAfterMutation is best-effort: a failed backup never fails the
// mutation that triggered it.
func (s *Store) backupAfterMutation(ctx context.Context, period core.PeriodKey) {
	if _, err := s.store.Backup(ctx, period); err != nil {
		slog.WarnContext(ctx, "Post-mutation backup failed",
			"period", period.Key(), "error", err)
	}
}

func (s *Store) refreshSnapshotLocked() {
	s.monthly[s.period.Key()] = core.PeriodSnapshot{
		Projects: s.projectsLocked(),
		Stats:    core.ComputeSummary(s.projects),
	}
}
