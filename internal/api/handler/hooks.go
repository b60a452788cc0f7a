package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"vidscout/internal/api/response"
	"vidscout/internal/orchestrator"
	"vidscout/internal/queue"
)

// ItemProcessor handles one delivered item message.
type ItemProcessor interface {
	HandleItem(ctx context.Context, msg queue.ItemMessage) orchestrator.ItemOutcome
}

// CollectionProcessor handles one delivered collection message.
type CollectionProcessor interface {
	HandleCollection(ctx context.Context, msg queue.CollectionMessage) orchestrator.CollectionOutcome
}

// NewItemHookHandler returns an http.HandlerFunc for POST /api/v1/hooks/item.
// A non-2xx response tells the queue to redeliver, so only a failed outcome
// maps to 500; skipped and completed both acknowledge the delivery.
func NewItemHookHandler(p ItemProcessor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var msg queue.ItemMessage
		if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}
		if msg.VideoID == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "video_id is required", nil)
			return
		}

		out := p.HandleItem(r.Context(), msg)
		if out.Status == orchestrator.OutcomeFailed {
			response.Error(w, http.StatusInternalServerError, "JOB_FAILED", out.Error, out)
			return
		}
		response.JSON(w, out)
	}
}

// NewCollectionHookHandler returns an http.HandlerFunc for
// POST /api/v1/hooks/collection.
func NewCollectionHookHandler(p CollectionProcessor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var msg queue.CollectionMessage
		if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}
		if msg.CollectionID == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "collection_id is required", nil)
			return
		}

		out := p.HandleCollection(r.Context(), msg)
		if out.Status == orchestrator.OutcomeFailed {
			response.Error(w, http.StatusInternalServerError, "JOB_FAILED", out.Error, out)
			return
		}
		response.JSON(w, out)
	}
}
