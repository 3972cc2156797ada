package handlers

import (
	"net/http"
	"strings"

	"github.com/deliverypulse/engine/internal/api/types"
	"github.com/deliverypulse/engine/internal/services"
	appErr "github.com/deliverypulse/engine/pkg/errors"
	"github.com/go-chi/chi/v5"
)

type ProjectsHandler struct {
	projects   services.ProjectService
	indicators services.IndicatorService
}

func NewProjectsHandler(projects services.ProjectService, indicators services.IndicatorService) *ProjectsHandler {
	return &ProjectsHandler{projects: projects, indicators: indicators}
}

func projectCode(r *http.Request) string {
	return strings.TrimSpace(chi.URLParam(r, "code"))
}

// Search handles GET /projects/search?q=&limit=.
func (h *ProjectsHandler) Search(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 20)
	if err != nil {
		writeError(w, r, err)
		return
	}
	items, err := h.projects.Search(r.Context(), r.URL.Query().Get("q"), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeList(w, r, items)
}

func (h *ProjectsHandler) State(w http.ResponseWriter, r *http.Request) {
	weeksBack, err := queryInt(r, "weeks_back", 20)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ov, err := h.projects.Overview(r.Context(), projectCode(r), weeksBack)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, ov)
}

func (h *ProjectsHandler) Details(w http.ResponseWriter, r *http.Request) {
	d, err := h.projects.Details(r.Context(), projectCode(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, d)
}

func (h *ProjectsHandler) Indicators(w http.ResponseWriter, r *http.Request) {
	res, err := h.indicators.Compute(r.Context(), projectCode(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, res)
}

// Series lists snapshot summaries; order=desc puts the newest week first.
func (h *ProjectsHandler) Series(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var newestFirst bool
	switch order := strings.ToLower(r.URL.Query().Get("order")); order {
	case "", "asc":
	case "desc":
		newestFirst = true
	default:
		writeError(w, r, appErr.Newf(appErr.CodeInvalid, "order must be asc or desc, got %q", order))
		return
	}
	items, err := h.indicators.Series(r.Context(), projectCode(r), limit, newestFirst)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeList(w, r, items)
}

func (h *ProjectsHandler) WeeklyMetrics(w http.ResponseWriter, r *http.Request) {
	items, err := h.projects.WeeklyMetrics(r.Context(), projectCode(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeList(w, r, items)
}

func (h *ProjectsHandler) PhaseHistory(w http.ResponseWriter, r *http.Request) {
	items, err := h.projects.PhaseHistory(r.Context(), projectCode(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeList(w, r, items)
}

func (h *ProjectsHandler) SetPhaseHours(w http.ResponseWriter, r *http.Request) {
	var req types.PhaseHoursRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.projects.SetPhaseHours(r.Context(), projectCode(r), req.Phase, req.Hours)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, p)
}

func (h *ProjectsHandler) SetRoleHours(w http.ResponseWriter, r *http.Request) {
	var req types.RoleHoursRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.projects.SetRoleHours(r.Context(), projectCode(r), req.Role, req.Hours)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, p)
}

func (h *ProjectsHandler) SetComment(w http.ResponseWriter, r *http.Request) {
	var req types.CommentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.projects.SetComment(r.Context(), projectCode(r), req.Comment)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, p)
}
