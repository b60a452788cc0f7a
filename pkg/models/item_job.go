package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	JobStatusPending    = "pending"
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
)

// DefaultMaxAttempts bounds how many times the recovery sweep will
// republish a job before giving up on it.
const DefaultMaxAttempts = 3

// ItemJob is the unit-of-work record for scraping exactly one video.
// There is at most one row per video_id: re-enqueueing the same video
// merges into the existing row instead of creating a duplicate, which is
// what makes at-least-once delivery from the push queue safe.
type ItemJob struct {
	ID           uuid.UUID  `db:"id"            json:"id"`
	SubmissionID *uuid.UUID `db:"submission_id" json:"submission_id,omitempty"`
	VideoID      string     `db:"video_id"      json:"video_id"`
	Status       string     `db:"status"        json:"status"`
	AttemptCount int        `db:"attempt_count" json:"attempt_count"`
	MaxAttempts  int        `db:"max_attempts"  json:"max_attempts"`
	ErrorMessage *string    `db:"error_message" json:"error_message,omitempty"`
	Credentials  *string    `db:"credentials"   json:"-"`
	CreatedAt    time.Time  `db:"created_at"    json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at"    json:"updated_at"`
	ProcessedAt  *time.Time `db:"processed_at"  json:"processed_at,omitempty"`
}
