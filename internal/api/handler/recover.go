package handler

import (
	"context"
	"net/http"

	"vidscout/internal/api/response"
)

// Recoverer republishes jobs that never reached a terminal state.
type Recoverer interface {
	Recover(ctx context.Context) (int, error)
}

// NewRecoverHandler returns an http.HandlerFunc for POST /api/v1/admin/recover.
// The same sweep runs on a schedule; this endpoint triggers it on demand.
func NewRecoverHandler(rec Recoverer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n, err := rec.Recover(r.Context())
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"Recovery sweep failed", nil)
			return
		}
		response.JSON(w, map[string]int{"republished": n})
	}
}
