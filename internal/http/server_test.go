package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shanakarajapakshe/project-cost-management-dashboard/internal/core"
)

// fakeDashboard is a minimal in-memory Dashboard for handler tests.
type fakeDashboard struct {
	period    core.PeriodKey
	loaded    bool
	projects  []core.ProjectRecord
	trend     []core.TrendPoint
	exportErr error
}

func (f *fakeDashboard) SetCurrentPeriod(month, year int) error {
	p := core.PeriodKey{Month: month, Year: year}
	if err := p.Validate(); err != nil {
		return err
	}
	f.period = p
	f.loaded = false
	return nil
}

func (f *fakeDashboard) LoadPeriod(context.Context) ([]core.ProjectRecord, error) {
	f.loaded = true
	return f.projects, nil
}

func (f *fakeDashboard) AddProject(_ context.Context, in core.ProjectInput) (core.ProjectRecord, error) {
	if err := in.Validate(); err != nil {
		return core.ProjectRecord{}, err
	}
	if !f.loaded {
		return core.ProjectRecord{}, core.ErrNoPeriodLoaded
	}
	rec := core.ComputeMetrics(in, nil)
	f.projects = append(f.projects, rec)
	return rec, nil
}

func (f *fakeDashboard) DeleteProject(_ context.Context, index int) error {
	if !f.loaded {
		return core.ErrNoPeriodLoaded
	}
	if index < 0 || index >= len(f.projects) {
		return core.ErrIndexOutOfRange
	}
	f.projects = append(f.projects[:index], f.projects[index+1:]...)
	return nil
}

func (f *fakeDashboard) Projects() []core.ProjectRecord  { return f.projects }
func (f *fakeDashboard) SummaryStats() core.SummaryStats { return core.ComputeSummary(f.projects) }
func (f *fakeDashboard) MonthlyTrend() []core.TrendPoint { return f.trend }

func (f *fakeDashboard) Export(_ context.Context, destPath string) (string, error) {
	if f.exportErr != nil {
		return "", f.exportErr
	}
	return destPath, nil
}

func (f *fakeDashboard) Backup(context.Context) (string, error) {
	if !f.loaded {
		return "", core.ErrNoPeriodLoaded
	}
	return "backups/Backup_2025_03", nil
}

func doJSON(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd *strings.Reader
	if body == "" {
		rd = strings.NewReader("{}")
	} else {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func TestHealthEndpoints(t *testing.T) {
	srv := NewServer(":0", &fakeDashboard{})
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	for _, path := range []string{"/healthz", "/readyz"} {
		rr := httptest.NewRecorder()
		srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rr.Code, path)
	}
}

func TestSetPeriodAndAddProject(t *testing.T) {
	srv := NewServer(":0", &fakeDashboard{})
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	rr := doJSON(t, srv, http.MethodPost, "/period", `{"month":3,"year":2025}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Contains(t, rr.Body.String(), `"2025-03"`)

	body := `{"projectName":"Alpha","numEngineers":1,"engineerSalary":200,"ceVisitCharge":50,"visitsPerMonth":2,"transportCost":100,"clientPayment":2000,"overheadAllocation":10}`
	rr = doJSON(t, srv, http.MethodPost, "/projects", body)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var rec core.ProjectRecord
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &rec))
	assert.Equal(t, "Alpha", rec.Name)
	assert.InDelta(t, 400.0, rec.DirectCost, 1e-9)

	rr = doJSON(t, srv, http.MethodGet, "/projects", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var list []core.ProjectRecord
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	assert.Len(t, list, 1)
}

func TestSetPeriodInvalidMonth(t *testing.T) {
	srv := NewServer(":0", &fakeDashboard{})
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	rr := doJSON(t, srv, http.MethodPost, "/period", `{"month":13,"year":2025}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestAddProjectBeforePeriodConflicts(t *testing.T) {
	srv := NewServer(":0", &fakeDashboard{})
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	body := `{"projectName":"Alpha","engineerSalary":200,"clientPayment":2000}`
	rr := doJSON(t, srv, http.MethodPost, "/projects", body)
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestAddProjectValidationFails(t *testing.T) {
	srv := NewServer(":0", &fakeDashboard{loaded: true})
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	rr := doJSON(t, srv, http.MethodPost, "/projects", `{"projectName":"","clientPayment":100}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = doJSON(t, srv, http.MethodPost, "/projects", `{"projectName":"A","clientPayment":-1}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestDeleteProject(t *testing.T) {
	fd := &fakeDashboard{loaded: true}
	_, err := fd.AddProject(context.Background(), core.ProjectInput{Name: "Alpha", ClientPayment: 100})
	require.NoError(t, err)
	srv := NewServer(":0", fd)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	rr := doJSON(t, srv, http.MethodDelete, "/projects/5", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = doJSON(t, srv, http.MethodDelete, "/projects/abc", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = doJSON(t, srv, http.MethodDelete, "/projects/0", "")
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Empty(t, fd.projects)
}

func TestStatsAndTrend(t *testing.T) {
	fd := &fakeDashboard{
		loaded: true,
		trend: []core.TrendPoint{
			{Period: "2025-02", Profit: 10},
			{Period: "2025-03", Profit: 20},
		},
	}
	srv := NewServer(":0", fd)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	rr := doJSON(t, srv, http.MethodGet, "/stats", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var stats core.SummaryStats
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &stats))
	assert.Equal(t, 0, stats.TotalProjects)

	rr = doJSON(t, srv, http.MethodGet, "/trend", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var trend []core.TrendPoint
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &trend))
	require.Len(t, trend, 2)
	assert.Equal(t, "2025-02", trend[0].Period)
}

func TestExportStatuses(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		srv := NewServer(":0", &fakeDashboard{loaded: true})
		t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

		rr := doJSON(t, srv, http.MethodPost, "/export", `{"destPath":"/tmp/out.xlsx"}`)
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), "/tmp/out.xlsx")
	})

	t.Run("canceled maps to 200 with flag", func(t *testing.T) {
		srv := NewServer(":0", &fakeDashboard{loaded: true, exportErr: core.ErrExportCanceled})
		t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

		rr := doJSON(t, srv, http.MethodPost, "/export", `{"destPath":""}`)
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), `"canceled":true`)
	})

	t.Run("missing artifact maps to 404", func(t *testing.T) {
		srv := NewServer(":0", &fakeDashboard{loaded: true, exportErr: core.ErrNotFound})
		t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

		rr := doJSON(t, srv, http.MethodPost, "/export", `{"destPath":"/tmp/out.xlsx"}`)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestSecurityHeaders(t *testing.T) {
	srv := NewServer(":0", &fakeDashboard{})
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	rr := doJSON(t, srv, http.MethodGet, "/stats", "")
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))
}

func TestRateLimitOnMutations(t *testing.T) {
	srv := NewServer(":0", &fakeDashboard{loaded: true})
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	var last int
	for i := 0; i < 65; i++ {
		body := fmt.Sprintf(`{"projectName":"P%d","clientPayment":1}`, i)
		req := httptest.NewRequest(http.MethodPost, "/projects", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.RemoteAddr = "203.0.113.7:1234"
		rr := httptest.NewRecorder()
		srv.Handler.ServeHTTP(rr, req)
		last = rr.Code
	}
	assert.Equal(t, http.StatusTooManyRequests, last)

	// GET requests are never rate limited
	rr := doJSON(t, srv, http.MethodGet, "/stats", "")
	assert.Equal(t, http.StatusOK, rr.Code)
}
