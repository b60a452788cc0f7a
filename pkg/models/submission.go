package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	SubmissionStatusPending    = "pending"
	SubmissionStatusProcessing = "processing"
	SubmissionStatusCompleted  = "completed"
	SubmissionStatusFailed     = "failed"
)

const (
	SubmissionKindVideo      = "video"
	SubmissionKindCollection = "collection"
)

// Submission is a single user request to scrape one video or one collection.
// It is created once per enqueue and only ever moves forward: completed and
// failed are terminal, rows are never deleted.
type Submission struct {
	ID           uuid.UUID  `db:"id"            json:"id"`
	Locator      string     `db:"locator"       json:"locator"`
	Kind         string     `db:"kind"          json:"kind"`
	Credentials  *string    `db:"credentials"   json:"-"`
	Status       string     `db:"status"        json:"status"`
	ErrorMessage *string    `db:"error_message" json:"error_message,omitempty"`
	CreatedAt    time.Time  `db:"created_at"    json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at"    json:"updated_at"`
}
