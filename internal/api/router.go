package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	mw "vidscout/internal/api/middleware"
	"vidscout/internal/api/response"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	Auth      *mw.Auth
	RateLimit *mw.RateLimit
	Signature *mw.Signature

	HealthHandler http.HandlerFunc

	// Queue-facing webhook handlers.
	ItemHookHandler       http.HandlerFunc
	CollectionHookHandler http.HandlerFunc

	// Client-facing handlers.
	EnqueueHandler       http.HandlerFunc
	GetSubmissionHandler http.HandlerFunc
	ListVideosHandler    http.HandlerFunc
	GetVideoHandler      http.HandlerFunc

	// Admin handlers.
	RecoverHandler   http.HandlerFunc
	CreateKeyHandler http.HandlerFunc
	ListKeysHandler  http.HandlerFunc
	RevokeKeyHandler http.HandlerFunc
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.Logger)
	r.Use(mw.Recovery)

	// Public health check
	r.Get("/api/v1/health", orNotImplemented(deps.HealthHandler))

	// Queue webhooks: authenticated by the delivery signature, not by API
	// keys, because the caller is the push queue itself.
	r.Group(func(r chi.Router) {
		r.Use(deps.Signature.Verify)

		r.Post("/api/v1/hooks/item", orNotImplemented(deps.ItemHookHandler))
		r.Post("/api/v1/hooks/collection", orNotImplemented(deps.CollectionHookHandler))
	})

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(deps.Auth.Authenticate)
		r.Use(deps.RateLimit.Limit)

		r.Post("/api/v1/scrape", orNotImplemented(deps.EnqueueHandler))
		r.Get("/api/v1/submissions/{submissionID}", orNotImplemented(deps.GetSubmissionHandler))

		r.Get("/api/v1/videos", orNotImplemented(deps.ListVideosHandler))
		r.Get("/api/v1/videos/{videoID}", orNotImplemented(deps.GetVideoHandler))

		// Admin routes
		r.Group(func(r chi.Router) {
			r.Use(deps.Auth.RequireScope("admin"))

			r.Post("/api/v1/admin/recover", orNotImplemented(deps.RecoverHandler))
			r.Post("/api/v1/admin/keys", orNotImplemented(deps.CreateKeyHandler))
			r.Get("/api/v1/admin/keys", orNotImplemented(deps.ListKeysHandler))
			r.Delete("/api/v1/admin/keys/{keyID}", orNotImplemented(deps.RevokeKeyHandler))
		})
	})

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented", nil)
	}
}
