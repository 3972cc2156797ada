package handlers

import (
	"context"
	"net/http"
	"time"

	appErr "github.com/deliverypulse/engine/pkg/errors"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	db Pinger
}

func NewHealthHandler(db Pinger) *HealthHandler { return &HealthHandler{db: db} }

func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	writeData(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.Ping(ctx); err != nil {
			writeError(w, r, appErr.Wrap(err, appErr.CodeUnavailable, "database not ready"))
			return
		}
	}
	writeData(w, r, http.StatusOK, map[string]string{"status": "ready"})
}
