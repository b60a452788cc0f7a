// Package orchestrator is the core of VidScout: it accepts submissions,
// decides video-vs-collection handling, runs the batch-and-continue
// expansion for collections, and periodically recovers stalled jobs.
//
// Every queue delivery is handled in its own stateless invocation. The
// idempotency anchors are the one-row-per-video job upsert and the
// freshness-skip check, which together make duplicate or reordered
// delivery safe.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"vidscout/internal/config"
	"vidscout/internal/queue"
	"vidscout/internal/scrape"
	"vidscout/internal/store"
	"vidscout/pkg/models"
)

// Item outcome statuses.
const (
	OutcomeCompleted = "completed"
	OutcomeSkipped   = "skipped"
	OutcomeFailed    = "failed"
	OutcomeChained   = "chained"
)

// ItemOutcome reports the terminal result of one item delivery. A failed
// outcome is a report for this delivery only; redelivery is governed by the
// external queue's retry policy, not by this package.
type ItemOutcome struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// CollectionOutcome reports one bounded execution of a collection expansion.
type CollectionOutcome struct {
	Status    string `json:"status"`
	Processed int    `json:"processed"`
	Skipped   int    `json:"skipped"`
	Failed    int    `json:"failed"`
	Remaining int    `json:"remaining"`
	Error     string `json:"error,omitempty"`
}

// Orchestrator composes the store, the queue publisher, and the scrape
// clients. All dependencies are injected; the orchestrator holds no
// mutable state of its own.
type Orchestrator struct {
	store     store.Store
	publisher queue.Publisher
	fetcher   scrape.Fetcher
	lister    scrape.Lister
	cfg       config.ScrapeConfig
}

// New creates an Orchestrator.
func New(st store.Store, pub queue.Publisher, fetcher scrape.Fetcher, lister scrape.Lister, cfg config.ScrapeConfig) *Orchestrator {
	return &Orchestrator{
		store:     st,
		publisher: pub,
		fetcher:   fetcher,
		lister:    lister,
		cfg:       cfg,
	}
}

// Submit records a new submission and publishes its first queue message.
// Credentials are normalized here, once, at the ingress boundary.
func (o *Orchestrator) Submit(ctx context.Context, locator, kind, rawCredentials string) (*models.Submission, error) {
	credentials, err := scrape.NormalizeCredentials(rawCredentials)
	if err != nil {
		return nil, fmt.Errorf("normalizing credentials: %w", err)
	}

	var videoID, collectionID string
	switch kind {
	case models.SubmissionKindVideo:
		videoID, err = scrape.VideoIDFromLocator(locator)
	case models.SubmissionKindCollection:
		collectionID, err = scrape.CollectionIDFromLocator(locator)
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", scrape.ErrBadLocator, kind)
	}
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	sub := &models.Submission{
		ID:        uuid.New(),
		Locator:   locator,
		Kind:      kind,
		Status:    models.SubmissionStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if credentials != "" {
		sub.Credentials = &credentials
	}
	if err := o.retryPersist(ctx, func() error {
		return o.store.CreateSubmission(ctx, sub)
	}); err != nil {
		return nil, fmt.Errorf("creating submission: %w", err)
	}

	var msgID string
	if kind == models.SubmissionKindVideo {
		msg := queue.ItemMessage{VideoID: videoID, SubmissionID: &sub.ID}
		if credentials != "" {
			msg.Credentials = &credentials
		}
		msgID, err = o.publisher.PublishItem(ctx, msg)
	} else {
		msgID, err = o.publisher.PublishCollection(ctx, queue.CollectionMessage{
			CollectionID: collectionID,
			SubmissionID: sub.ID,
			Credentials:  credentials,
		})
	}
	if err != nil {
		o.markSubmission(ctx, sub.ID, models.SubmissionStatusFailed, err.Error())
		return nil, fmt.Errorf("publishing first message: %w", err)
	}

	// Video submissions are not tracked beyond the publish; collections
	// complete when the last chained execution finishes.
	next := models.SubmissionStatusProcessing
	if kind == models.SubmissionKindVideo {
		next = models.SubmissionStatusCompleted
	}
	o.markSubmission(ctx, sub.ID, next, "")

	slog.Info("submission accepted",
		"submission_id", sub.ID, "kind", kind, "message_id", msgID)
	sub.Status = next
	return sub, nil
}

// HandleItem processes one delivered item job: skip when fresh, otherwise
// scrape and persist. Side effects are confined to the store; no new queue
// message is published from the item path.
func (o *Orchestrator) HandleItem(ctx context.Context, msg queue.ItemMessage) ItemOutcome {
	existing, err := o.store.GetVideo(ctx, msg.VideoID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		slog.Warn("freshness lookup failed, treating as stale",
			"video_id", msg.VideoID, "error", err)
	}
	if existing != nil && time.Since(existing.UpdatedAt) < o.cfg.FreshnessWindow {
		slog.Info("video still fresh, skipping", "video_id", msg.VideoID)
		return ItemOutcome{Status: OutcomeSkipped}
	}

	job := &models.ItemJob{
		ID:           uuid.New(),
		SubmissionID: msg.SubmissionID,
		VideoID:      msg.VideoID,
		Credentials:  msg.Credentials,
	}
	var stored *models.ItemJob
	if err := o.retryPersist(ctx, func() error {
		var upsertErr error
		stored, upsertErr = o.store.UpsertItemJob(ctx, job)
		return upsertErr
	}); err != nil {
		return ItemOutcome{Status: OutcomeFailed, Error: fmt.Sprintf("upserting job: %v", err)}
	}

	if err := o.retryPersist(ctx, func() error {
		var markErr error
		stored, markErr = o.store.MarkItemJobProcessing(ctx, msg.VideoID)
		return markErr
	}); err != nil {
		return ItemOutcome{Status: OutcomeFailed, Error: fmt.Sprintf("marking processing: %v", err)}
	}

	credentials := ""
	if stored.Credentials != nil {
		credentials = *stored.Credentials
	}

	video, err := o.fetcher.FetchVideo(ctx, msg.VideoID, credentials)
	if err != nil {
		slog.Error("video fetch failed", "video_id", msg.VideoID, "error", err)
		if markErr := o.retryPersist(ctx, func() error {
			return o.store.MarkItemJobFailed(ctx, msg.VideoID, err.Error())
		}); markErr != nil {
			slog.Error("marking job failed did not persist",
				"video_id", msg.VideoID, "error", markErr)
		}
		return ItemOutcome{Status: OutcomeFailed, Error: err.Error()}
	}

	if err := o.retryPersist(ctx, func() error {
		return o.store.UpsertVideo(ctx, video)
	}); err != nil {
		if markErr := o.retryPersist(ctx, func() error {
			return o.store.MarkItemJobFailed(ctx, msg.VideoID, err.Error())
		}); markErr != nil {
			slog.Error("marking job failed did not persist",
				"video_id", msg.VideoID, "error", markErr)
		}
		return ItemOutcome{Status: OutcomeFailed, Error: fmt.Sprintf("persisting video: %v", err)}
	}

	if err := o.retryPersist(ctx, func() error {
		return o.store.MarkItemJobCompleted(ctx, msg.VideoID)
	}); err != nil {
		return ItemOutcome{Status: OutcomeFailed, Error: fmt.Sprintf("marking completed: %v", err)}
	}

	return ItemOutcome{Status: OutcomeCompleted}
}

// HandleCollection runs one bounded execution of a collection expansion.
// The continuation message is the entire loop state: each execution either
// enumerates (first run), processes one batch, and then re-publishes itself
// with the remainder, or completes the submission.
func (o *Orchestrator) HandleCollection(ctx context.Context, msg queue.CollectionMessage) CollectionOutcome {
	ids := msg.RemainingVideoIDs

	if ids == nil {
		listed, partial, err := o.lister.ListMembers(ctx, msg.CollectionID, msg.Credentials)
		if err != nil {
			// Enumeration is not retried piecemeal: the caller resubmits.
			slog.Error("collection enumeration failed",
				"collection_id", msg.CollectionID, "error", err)
			o.markSubmission(ctx, msg.SubmissionID, models.SubmissionStatusFailed, err.Error())
			return CollectionOutcome{Status: OutcomeFailed, Error: err.Error()}
		}
		if partial {
			slog.Warn("collection enumeration incomplete, proceeding with partial list",
				"collection_id", msg.CollectionID, "members", len(listed))
		}
		if len(listed) == 0 {
			o.markSubmission(ctx, msg.SubmissionID, models.SubmissionStatusCompleted, "")
			return CollectionOutcome{Status: OutcomeCompleted}
		}
		ids = listed
	}

	batch := ids
	var remaining []string
	if len(batch) > o.cfg.BatchSize {
		batch = ids[:o.cfg.BatchSize]
		remaining = ids[o.cfg.BatchSize:]
	}

	processed, skipped, failed := o.dispatchBatch(ctx, batch, msg)

	if len(remaining) > 0 {
		_, err := o.publisher.PublishCollection(ctx, queue.CollectionMessage{
			CollectionID:      msg.CollectionID,
			SubmissionID:      msg.SubmissionID,
			Credentials:       msg.Credentials,
			RemainingVideoIDs: remaining,
		})
		if err != nil {
			// The chain stalls here with the submission left in
			// processing; the queue's retry of this delivery is the
			// only way the continuation gets published.
			slog.Error("continuation publish failed",
				"collection_id", msg.CollectionID, "remaining", len(remaining), "error", err)
			return CollectionOutcome{
				Status: OutcomeFailed, Processed: processed, Skipped: skipped,
				Failed: failed, Remaining: len(remaining), Error: err.Error(),
			}
		}
		slog.Info("collection batch chained",
			"collection_id", msg.CollectionID, "processed", processed,
			"skipped", skipped, "failed", failed, "remaining", len(remaining))
		return CollectionOutcome{
			Status: OutcomeChained, Processed: processed, Skipped: skipped,
			Failed: failed, Remaining: len(remaining),
		}
	}

	o.markSubmission(ctx, msg.SubmissionID, models.SubmissionStatusCompleted, "")
	slog.Info("collection expansion completed",
		"collection_id", msg.CollectionID, "processed", processed,
		"skipped", skipped, "failed", failed)
	return CollectionOutcome{
		Status: OutcomeCompleted, Processed: processed, Skipped: skipped, Failed: failed,
	}
}

// dispatchBatch processes batch in concurrency-limited groups, joining each
// group before starting the next to cap simultaneous outbound connections.
// A single item's failure never aborts the batch.
func (o *Orchestrator) dispatchBatch(ctx context.Context, batch []string, msg queue.CollectionMessage) (processed, skipped, failed int) {
	var credentials *string
	if msg.Credentials != "" {
		credentials = &msg.Credentials
	}

	for start := 0; start < len(batch); start += o.cfg.GroupSize {
		end := start + o.cfg.GroupSize
		if end > len(batch) {
			end = len(batch)
		}
		group := batch[start:end]

		outcomes := make([]ItemOutcome, len(group))
		var wg sync.WaitGroup
		wg.Add(len(group))
		for i, videoID := range group {
			go func(i int, videoID string) {
				defer wg.Done()
				outcomes[i] = o.HandleItem(ctx, queue.ItemMessage{
					VideoID:      videoID,
					SubmissionID: &msg.SubmissionID,
					Credentials:  credentials,
				})
			}(i, videoID)
		}
		wg.Wait()

		for _, out := range outcomes {
			switch out.Status {
			case OutcomeCompleted:
				processed++
			case OutcomeSkipped:
				skipped++
			default:
				failed++
			}
		}
	}
	return processed, skipped, failed
}

// Recover republishes item jobs that never reached a terminal state: rows
// still pending or failed with attempts left. This covers messages that
// were lost or handlers that crashed mid-delivery, which the queue's own
// per-delivery retry budget cannot see.
func (o *Orchestrator) Recover(ctx context.Context) (int, error) {
	jobs, err := o.store.GetPendingItemJobs(ctx, o.cfg.RecoveryLimit)
	if err != nil {
		return 0, fmt.Errorf("selecting recoverable jobs: %w", err)
	}

	republished := 0
	for _, job := range jobs {
		_, err := o.publisher.PublishItem(ctx, queue.ItemMessage{
			VideoID:      job.VideoID,
			SubmissionID: job.SubmissionID,
			Credentials:  job.Credentials,
		})
		if err != nil {
			slog.Error("recovery republish failed",
				"video_id", job.VideoID, "error", err)
			continue
		}
		republished++
	}

	slog.Info("recovery sweep finished", "eligible", len(jobs), "republished", republished)
	return republished, nil
}

// markSubmission transitions a submission, retrying the persistence and
// logging instead of propagating: a lost transition is recoverable state,
// not a reason to fail the delivery that caused it.
func (o *Orchestrator) markSubmission(ctx context.Context, id uuid.UUID, status, errMsg string) {
	opts := []store.UpdateOption{}
	if errMsg != "" {
		opts = append(opts, store.WithErrorMessage(errMsg))
	}
	if err := o.retryPersist(ctx, func() error {
		return o.store.UpdateSubmissionStatus(ctx, id, status, opts...)
	}); err != nil {
		slog.Error("submission transition did not persist",
			"submission_id", id, "status", status, "error", err)
	}
}
