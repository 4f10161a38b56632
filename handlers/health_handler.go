package handlers

import (
	"context"
	"net/http"
	"time"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	db  Pinger
	now func() time.Time
}

func NewHealthHandler(db Pinger) *HealthHandler {
	return &HealthHandler{db: db, now: time.Now}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	timestamp := h.now().UTC().Format(time.RFC3339Nano)

	if err := h.db.Ping(ctx); err != nil {
		respondWithJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":    "unhealthy",
			"error":     "database connection failed",
			"timestamp": timestamp,
		})
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": timestamp,
	})
}
