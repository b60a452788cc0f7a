package scrape

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"vidscout/pkg/models"
)

// Fetcher assembles the full metadata record for one video.
type Fetcher interface {
	FetchVideo(ctx context.Context, videoID, credentials string) (*models.Video, error)
}

// oembedInfo is the baseline sub-record from the public lookup.
type oembedInfo struct {
	Title        string  `json:"title"`
	AuthorName   string  `json:"author_name"`
	ThumbnailURL string  `json:"thumbnail_url"`
	Duration     float64 `json:"duration"`
}

// ownerInfo is the creator sub-record.
type ownerInfo struct {
	Name      string `json:"name"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Handle    string `json:"handle"`
}

// FetchVideo gathers the sub-records for one video and merges them.
//
// The baseline lookup and the watch-page detail fetch run first; the five
// annotation sub-records (owner, chapters, comments, stats, tags) are then
// fetched concurrently, each under its own timeout. Any sub-fetch failure
// degrades its field to the zero value instead of failing the video. An
// error is returned only when no usable record can be assembled at all.
func (c *Client) FetchVideo(ctx context.Context, videoID, credentials string) (*models.Video, error) {
	now := time.Now().UTC()

	// Baseline: public lookup, best-effort.
	var baseline oembedInfo
	var baselineOK bool
	oembedURL := fmt.Sprintf("%s?url=%s&format=json",
		c.oembedURL, url.QueryEscape(c.baseURL+"/watch/"+videoID))
	if err := c.getJSON(ctx, oembedURL, "", &baseline); err != nil {
		slog.Warn("baseline lookup failed, continuing with defaults",
			"video_id", videoID, "error", err)
	} else {
		baselineOK = true
	}

	// Detail: watch-page document with embedded structured data.
	var detail *videoDetail
	doc, err := c.getBody(ctx, c.baseURL+"/watch/"+videoID, credentials)
	if err != nil {
		slog.Warn("watch page fetch failed", "video_id", videoID, "error", err)
	} else {
		detail, err = extractDetail(doc)
		if err != nil {
			slog.Warn("watch page parse failed, detail fields degraded",
				"video_id", videoID, "error", err)
		}
	}

	if !baselineOK && detail == nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("fetch video %s: %w", videoID, ctx.Err())
		}
		return nil, fmt.Errorf("fetch video %s: no usable sub-record", videoID)
	}

	// Five independent annotation sub-records, fetched concurrently. Each
	// goroutine writes its own slot, so no locking is needed; the join
	// below is the only synchronization point.
	var (
		owner    *ownerInfo
		chapters []models.Chapter
		comments []models.Comment
		stats    models.VideoStats
		tags     []string
	)

	var wg sync.WaitGroup
	wg.Add(5)

	go func() {
		defer wg.Done()
		var o ownerInfo
		if err := c.fetchAnnotation(ctx, videoID, "owner", "", &o); err != nil {
			slog.Warn("owner fetch failed", "video_id", videoID, "error", err)
			return
		}
		owner = &o
	}()
	go func() {
		defer wg.Done()
		if err := c.fetchAnnotation(ctx, videoID, "chapters", "", &chapters); err != nil {
			slog.Warn("chapters fetch failed", "video_id", videoID, "error", err)
		}
	}()
	go func() {
		defer wg.Done()
		if err := c.fetchAnnotation(ctx, videoID, "comments", "", &comments); err != nil {
			slog.Warn("comments fetch failed", "video_id", videoID, "error", err)
		}
	}()
	go func() {
		defer wg.Done()
		if err := c.fetchAnnotation(ctx, videoID, "stats", "", &stats); err != nil {
			slog.Warn("stats fetch failed", "video_id", videoID, "error", err)
		}
	}()
	go func() {
		defer wg.Done()
		// Tags are the one annotation behind authentication.
		if credentials == "" {
			slog.Warn("tags fetch skipped: no credentials", "video_id", videoID)
			return
		}
		if err := c.fetchAnnotation(ctx, videoID, "tags", credentials, &tags); err != nil {
			slog.Warn("tags fetch failed", "video_id", videoID, "error", err)
		}
	}()

	wg.Wait()

	return c.merge(videoID, baseline, detail, owner, chapters, comments, stats, tags, now), nil
}

// fetchAnnotation fetches one annotation sub-record under its own timeout,
// so a slow endpoint can never stall the join.
func (c *Client) fetchAnnotation(ctx context.Context, videoID, kind, credentials string, out any) error {
	subCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	u := fmt.Sprintf("%s/api/videos/%s/%s", c.baseURL, url.PathEscape(videoID), kind)
	return c.getJSON(subCtx, u, credentials, out)
}

// merge folds the sub-records into one Video. Detail values win over the
// baseline for overlapping fields only when present; a structured
// first/last-name pair wins over the baseline author field.
func (c *Client) merge(videoID string, baseline oembedInfo, detail *videoDetail,
	owner *ownerInfo, chapters []models.Chapter, comments []models.Comment,
	stats models.VideoStats, tags []string, now time.Time) *models.Video {

	v := &models.Video{
		VideoID:      videoID,
		Title:        baseline.Title,
		AuthorName:   baseline.AuthorName,
		ThumbnailURL: baseline.ThumbnailURL,
		DurationSecs: baseline.Duration,
		Chapters:     chapters,
		Comments:     comments,
		Stats:        stats,
		Tags:         tags,
		ScrapedAt:    now,
		UpdatedAt:    now,
	}
	if v.Chapters == nil {
		v.Chapters = []models.Chapter{}
	}
	if v.Comments == nil {
		v.Comments = []models.Comment{}
	}
	if v.Tags == nil {
		v.Tags = []string{}
	}

	var detailRaw json.RawMessage
	if detail != nil {
		if detail.Title != "" {
			v.Title = detail.Title
		}
		if detail.ThumbnailURL != "" {
			v.ThumbnailURL = detail.ThumbnailURL
		}
		if detail.DurationSecs > 0 {
			v.DurationSecs = detail.DurationSecs
		}
		v.Description = detail.Description
		v.MediaURL = detail.MediaURL
		if detail.AuthorName != "" && v.AuthorName == "" {
			v.AuthorName = detail.AuthorName
		}
		detailRaw = detail.Raw
	}

	if owner != nil {
		if owner.FirstName != "" || owner.LastName != "" {
			name := owner.FirstName
			if owner.LastName != "" {
				if name != "" {
					name += " "
				}
				name += owner.LastName
			}
			v.AuthorName = name
		} else if owner.Name != "" && v.AuthorName == "" {
			v.AuthorName = owner.Name
		}
		v.AuthorHandle = owner.Handle
	}

	raw, err := json.Marshal(map[string]any{
		"oembed": baseline,
		"detail": detailRaw,
	})
	if err == nil {
		v.RawPayload = raw
	}
	return v
}

// Compile-time check that Client implements Fetcher.
var _ Fetcher = (*Client)(nil)
