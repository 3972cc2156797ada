package handlers

import (
	"net/http"
	"net/url"

	"github.com/deliverypulse/engine/internal/repository"
	"github.com/deliverypulse/engine/internal/services"
	"github.com/go-chi/chi/v5"
)

type ReportsHandler struct {
	reports  services.ReportService
	projects services.ProjectService
}

func NewReportsHandler(reports services.ReportService, projects services.ProjectService) *ReportsHandler {
	return &ReportsHandler{reports: reports, projects: projects}
}

func (h *ReportsHandler) Deviations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	rows, err := h.reports.Deviations(r.Context(), repository.SnapshotFilter{
		Team:       q.Get("team"),
		OrderPhase: q.Get("order_phase"),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeList(w, r, rows)
}

func (h *ReportsHandler) Filters(w http.ResponseWriter, r *http.Request) {
	opts, err := h.reports.Filters(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, opts)
}

func (h *ReportsHandler) ManagerProjects(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if unescaped, err := url.PathUnescape(name); err == nil {
		name = unescaped
	}
	items, err := h.reports.Portfolio(r.Context(), name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeList(w, r, items)
}

func (h *ReportsHandler) Historical(w http.ResponseWriter, r *http.Request) {
	items, err := h.projects.ListHistorical(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeList(w, r, items)
}
