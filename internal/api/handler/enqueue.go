// Package handler contains the HTTP handlers for the VidScout API. Each
// handler depends on a narrow interface so tests can substitute fakes.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"vidscout/internal/api/response"
	"vidscout/internal/queue"
	"vidscout/internal/scrape"
	"vidscout/pkg/models"
)

// Submitter accepts a new scrape submission and publishes its first message.
type Submitter interface {
	Submit(ctx context.Context, locator, kind, credentials string) (*models.Submission, error)
}

// NewEnqueueHandler returns an http.HandlerFunc for POST /api/v1/scrape.
func NewEnqueueHandler(svc Submitter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Locator     string `json:"locator"`
			Kind        string `json:"kind"`
			Credentials string `json:"credentials"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		if req.Locator == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "locator is required", nil)
			return
		}
		if req.Kind != models.SubmissionKindVideo && req.Kind != models.SubmissionKindCollection {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
				"kind must be \"video\" or \"collection\"", nil)
			return
		}

		sub, err := svc.Submit(r.Context(), req.Locator, req.Kind, req.Credentials)
		if err != nil {
			switch {
			case errors.Is(err, scrape.ErrBadLocator):
				response.Error(w, http.StatusBadRequest, "INVALID_LOCATOR",
					"The locator could not be resolved to an identity", nil)
			case errors.Is(err, scrape.ErrBadCredentials):
				response.Error(w, http.StatusBadRequest, "INVALID_CREDENTIALS",
					"The credentials could not be parsed", nil)
			case errors.Is(err, queue.ErrQueueUnreachable),
				errors.Is(err, queue.ErrPublishTimeout),
				errors.Is(err, queue.ErrPublishRejected):
				response.Error(w, http.StatusBadGateway, "QUEUE_UNAVAILABLE",
					"The job queue did not accept the message", nil)
			default:
				response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
					"An unexpected error occurred", nil)
			}
			return
		}

		response.Accepted(w, sub)
	}
}
