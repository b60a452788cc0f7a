package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"vidscout/internal/api/response"
	"vidscout/internal/cache"
	"vidscout/internal/store"
	"vidscout/pkg/models"
)

const videoCacheTTL = 5 * time.Minute

// NewListVideosHandler returns an http.HandlerFunc for GET /api/v1/videos.
func NewListVideosHandler(s store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter := store.VideoFilter{Page: 1, Limit: 20}

		if raw := r.URL.Query().Get("submission_id"); raw != "" {
			id, err := uuid.Parse(raw)
			if err != nil {
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
					"submission_id must be a UUID", nil)
				return
			}
			filter.SubmissionID = &id
		}
		if raw := r.URL.Query().Get("page"); raw != "" {
			if n, err := strconv.Atoi(raw); err == nil && n > 0 {
				filter.Page = n
			}
		}
		if raw := r.URL.Query().Get("limit"); raw != "" {
			if n, err := strconv.Atoi(raw); err == nil && n > 0 {
				filter.Limit = n
			}
		}

		videos, total, err := s.ListVideos(r.Context(), filter)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"An unexpected error occurred", nil)
			return
		}
		if videos == nil {
			videos = []*models.Video{}
		}

		response.Collection(w, videos, response.PaginationMeta{
			Page:    filter.Page,
			Limit:   filter.Limit,
			Total:   total,
			HasNext: filter.Page*filter.Limit < total,
		})
	}
}

// NewGetVideoHandler returns an http.HandlerFunc for GET /api/v1/videos/{videoID}.
// Reads go through the cache; a miss falls back to the store and repopulates.
func NewGetVideoHandler(s store.Store, c cache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		videoID := chi.URLParam(r, "videoID")

		key := cache.VideoKey(videoID)
		if raw, ok, err := c.Get(r.Context(), key); err == nil && ok {
			var video models.Video
			if err := json.Unmarshal(raw, &video); err == nil {
				response.JSON(w, &video)
				return
			}
		}

		video, err := s.GetVideo(r.Context(), videoID)
		if errors.Is(err, store.ErrNotFound) {
			response.Error(w, http.StatusNotFound, "NOT_FOUND", "Video not found", nil)
			return
		}
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"An unexpected error occurred", nil)
			return
		}

		if raw, err := json.Marshal(video); err == nil {
			if err := c.Set(r.Context(), key, raw, videoCacheTTL); err != nil {
				slog.Warn("video cache set failed", "video_id", videoID, "error", err)
			}
		}

		response.JSON(w, video)
	}
}
