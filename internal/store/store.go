package store

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"vidscout/pkg/models"
)

var ErrNotFound = errors.New("resource not found")
var ErrDuplicateKey = errors.New("duplicate key violation")
var ErrInvalidTransition = errors.New("invalid status transition")

// Store is the data access interface. All database operations go through here.
// Every mutation is a single-row upsert or a keyed status update, so
// implementations need no client-side locking to be safe under concurrent
// invocation from independent queue deliveries.
type Store interface {
	Ping(ctx context.Context) error

	CreateSubmission(ctx context.Context, sub *models.Submission) error
	GetSubmission(ctx context.Context, id uuid.UUID) (*models.Submission, error)
	UpdateSubmissionStatus(ctx context.Context, id uuid.UUID, status string, opts ...UpdateOption) error

	// UpsertItemJob inserts a job for the given video or, when a row for
	// the same video_id already exists, merges non-null submission and
	// credential fields into it. Returns the row as stored.
	UpsertItemJob(ctx context.Context, job *models.ItemJob) (*models.ItemJob, error)
	MarkItemJobProcessing(ctx context.Context, videoID string) (*models.ItemJob, error)
	MarkItemJobCompleted(ctx context.Context, videoID string) error
	MarkItemJobFailed(ctx context.Context, videoID, errMsg string) error

	// GetPendingItemJobs returns jobs eligible for recovery: status pending
	// or failed with attempt_count below max_attempts.
	GetPendingItemJobs(ctx context.Context, limit int) ([]*models.ItemJob, error)

	UpsertVideo(ctx context.Context, video *models.Video) error
	GetVideo(ctx context.Context, videoID string) (*models.Video, error)
	ListVideos(ctx context.Context, filter VideoFilter) ([]*models.Video, int, error)

	GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error)
	UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error
	CreateAPIKey(ctx context.Context, key *models.APIKey) error
	ListAPIKeys(ctx context.Context) ([]*models.APIKey, error)
	RevokeAPIKey(ctx context.Context, id uuid.UUID) error
}

// VideoFilter narrows ListVideos. A nil SubmissionID lists all videos.
type VideoFilter struct {
	SubmissionID *uuid.UUID
	Page         int
	Limit        int
}

type updateParams struct {
	ErrorMessage *string
}

type UpdateOption func(*updateParams)

func WithErrorMessage(msg string) UpdateOption {
	return func(p *updateParams) {
		p.ErrorMessage = &msg
	}
}
