package models

import (
	"encoding/json"
	"time"
)

// Video is the persisted result of scraping one video. Rows are keyed by
// video_id and overwritten in place on re-scrape; there is no history.
// UpdatedAt drives the freshness-skip policy.
type Video struct {
	VideoID      string          `db:"video_id"      json:"video_id"`
	Title        string          `db:"title"         json:"title"`
	Description  string          `db:"description"   json:"description"`
	AuthorName   string          `db:"author_name"   json:"author_name"`
	AuthorHandle string          `db:"author_handle" json:"author_handle"`
	ThumbnailURL string          `db:"thumbnail_url" json:"thumbnail_url"`
	DurationSecs float64         `db:"duration_secs" json:"duration_secs"`
	MediaURL     string          `db:"media_url"     json:"media_url"`
	Chapters     []Chapter       `db:"chapters"      json:"chapters"`
	Comments     []Comment       `db:"comments"      json:"comments"`
	Stats        VideoStats      `db:"stats"         json:"stats"`
	Tags         []string        `db:"tags"          json:"tags"`
	RawPayload   json.RawMessage `db:"raw_payload"   json:"raw_payload,omitempty"`
	ScrapedAt    time.Time       `db:"scraped_at"    json:"scraped_at"`
	UpdatedAt    time.Time       `db:"updated_at"    json:"updated_at"`
}

// Chapter is a structural marker inside a video's timeline.
type Chapter struct {
	Title     string  `json:"title"`
	StartSecs float64 `json:"start_secs"`
}

// Comment is a single threaded comment on a video.
type Comment struct {
	Author  string    `json:"author"`
	Text    string    `json:"text"`
	Likes   int       `json:"likes"`
	Replies []Comment `json:"replies,omitempty"`
}

// VideoStats holds reaction tallies for a video.
type VideoStats struct {
	Views    int64 `json:"views"`
	Likes    int64 `json:"likes"`
	Shares   int64 `json:"shares"`
	Comments int64 `json:"comments"`
}
