package http

import (
	"context"
	"net/http"
	"strconv"

	"github.com/shanakarajapakshe/project-cost-management-dashboard/internal/core"
)

// Dashboard is the view-model surface the API serves.
type Dashboard interface {
	SetCurrentPeriod(month, year int) error
	LoadPeriod(ctx context.Context) ([]core.ProjectRecord, error)
	AddProject(ctx context.Context, in core.ProjectInput) (core.ProjectRecord, error)
	DeleteProject(ctx context.Context, index int) error
	Projects() []core.ProjectRecord
	SummaryStats() core.SummaryStats
	MonthlyTrend() []core.TrendPoint
	Export(ctx context.Context, destPath string) (string, error)
	Backup(ctx context.Context) (string, error)
}

// handleSetPeriod switches the active period and loads its records.
func (s *Server) handleSetPeriod(w http.ResponseWriter, r *http.Request) {
	var req core.PeriodKey
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}
	if err := s.store.SetCurrentPeriod(req.Month, req.Year); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	projects, err := s.store.LoadPeriod(r.Context())
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"period":   req.Key(),
		"projects": projects,
	})
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Projects())
}

func (s *Server) handleAddProject(w http.ResponseWriter, r *http.Request) {
	var in core.ProjectInput
	if err := decodeBody(r, &in); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}
	rec, err := s.store.AddProject(r.Context(), in)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: "invalid project index"})
		return
	}
	if err := s.store.DeleteProject(r.Context(), index); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.SummaryStats())
}

func (s *Server) handleTrend(w http.ResponseWriter, r *http.Request) {
	trend := s.store.MonthlyTrend()
	if trend == nil {
		trend = []core.TrendPoint{}
	}
	writeJSON(w, http.StatusOK, trend)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DestPath string `json:"destPath"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}
	dest, err := s.store.Export(r.Context(), req.DestPath)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"exportedTo": dest})
}

func (s *Server) handleBackup(w http.ResponseWriter, r *http.Request) {
	dest, err := s.store.Backup(r.Context())
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"backupPath": dest})
}
