package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"vidscout/pkg/models"
)

// PostgresStore implements the Store interface using pgx/v5.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- Submissions ---

func (s *PostgresStore) CreateSubmission(ctx context.Context, sub *models.Submission) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO submissions (id, locator, kind, credentials, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		sub.ID, sub.Locator, sub.Kind, sub.Credentials, sub.Status, sub.CreatedAt, sub.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create submission: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetSubmission(ctx context.Context, id uuid.UUID) (*models.Submission, error) {
	var sub models.Submission
	err := s.pool.QueryRow(ctx,
		`SELECT id, locator, kind, credentials, status, error_message, created_at, updated_at
		 FROM submissions WHERE id = $1`, id,
	).Scan(&sub.ID, &sub.Locator, &sub.Kind, &sub.Credentials, &sub.Status,
		&sub.ErrorMessage, &sub.CreatedAt, &sub.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get submission: %w", err)
	}
	return &sub, nil
}

var validSubmissionTransitions = map[string][]string{
	models.SubmissionStatusPending:    {models.SubmissionStatusProcessing, models.SubmissionStatusCompleted, models.SubmissionStatusFailed},
	models.SubmissionStatusProcessing: {models.SubmissionStatusCompleted, models.SubmissionStatusFailed},
}

func (s *PostgresStore) UpdateSubmissionStatus(ctx context.Context, id uuid.UUID, status string, opts ...UpdateOption) error {
	params := &updateParams{}
	for _, opt := range opts {
		opt(params)
	}

	var currentStatus string
	err := s.pool.QueryRow(ctx, `SELECT status FROM submissions WHERE id = $1`, id).Scan(&currentStatus)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get submission status: %w", err)
	}

	// Redelivered continuations may replay the final transition; treat a
	// same-status update as a no-op rather than an error.
	if currentStatus == status {
		return nil
	}

	valid := false
	for _, a := range validSubmissionTransitions[currentStatus] {
		if a == status {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, currentStatus, status)
	}

	now := time.Now().UTC()
	query := `UPDATE submissions SET status = $2, updated_at = $3`
	args := []any{id, status, now}
	if params.ErrorMessage != nil {
		query += ", error_message = $4"
		args = append(args, *params.ErrorMessage)
	}
	query += " WHERE id = $1"

	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("update submission status: %w", err)
	}
	return nil
}

// --- Item jobs ---

const itemJobColumns = `id, submission_id, video_id, status, attempt_count, max_attempts,
	 error_message, credentials, created_at, updated_at, processed_at`

func scanItemJob(row pgx.Row) (*models.ItemJob, error) {
	var j models.ItemJob
	err := row.Scan(&j.ID, &j.SubmissionID, &j.VideoID, &j.Status, &j.AttemptCount,
		&j.MaxAttempts, &j.ErrorMessage, &j.Credentials, &j.CreatedAt, &j.UpdatedAt, &j.ProcessedAt)
	if err != nil {
		return nil, err
	}
	return &j, nil
}

func (s *PostgresStore) UpsertItemJob(ctx context.Context, job *models.ItemJob) (*models.ItemJob, error) {
	maxAttempts := job.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = models.DefaultMaxAttempts
	}
	row := s.pool.QueryRow(ctx,
		`INSERT INTO item_jobs (id, submission_id, video_id, status, attempt_count, max_attempts, credentials, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, 0, $5, $6, NOW(), NOW())
		 ON CONFLICT (video_id) DO UPDATE SET
		   submission_id = COALESCE(EXCLUDED.submission_id, item_jobs.submission_id),
		   credentials = COALESCE(EXCLUDED.credentials, item_jobs.credentials),
		   updated_at = NOW()
		 RETURNING `+itemJobColumns,
		job.ID, job.SubmissionID, job.VideoID, models.JobStatusPending, maxAttempts, job.Credentials)

	stored, err := scanItemJob(row)
	if err != nil {
		return nil, fmt.Errorf("upsert item job: %w", err)
	}
	return stored, nil
}

func (s *PostgresStore) MarkItemJobProcessing(ctx context.Context, videoID string) (*models.ItemJob, error) {
	row := s.pool.QueryRow(ctx,
		`UPDATE item_jobs
		 SET status = $2, attempt_count = attempt_count + 1, updated_at = NOW()
		 WHERE video_id = $1
		 RETURNING `+itemJobColumns,
		videoID, models.JobStatusProcessing)

	job, err := scanItemJob(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("mark item job processing: %w", err)
	}
	return job, nil
}

func (s *PostgresStore) MarkItemJobCompleted(ctx context.Context, videoID string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE item_jobs
		 SET status = $2, error_message = NULL, processed_at = NOW(), updated_at = NOW()
		 WHERE video_id = $1`,
		videoID, models.JobStatusCompleted)
	if err != nil {
		return fmt.Errorf("mark item job completed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) MarkItemJobFailed(ctx context.Context, videoID, errMsg string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE item_jobs
		 SET status = $2, error_message = $3, updated_at = NOW()
		 WHERE video_id = $1`,
		videoID, models.JobStatusFailed, errMsg)
	if err != nil {
		return fmt.Errorf("mark item job failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) GetPendingItemJobs(ctx context.Context, limit int) ([]*models.ItemJob, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+itemJobColumns+`
		 FROM item_jobs
		 WHERE status = ANY($1) AND attempt_count < max_attempts
		 ORDER BY updated_at ASC
		 LIMIT $2`,
		[]string{models.JobStatusPending, models.JobStatusFailed}, limit)
	if err != nil {
		return nil, fmt.Errorf("get pending item jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*models.ItemJob
	for rows.Next() {
		job, err := scanItemJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// --- Videos ---

const videoColumns = `video_id, title, description, author_name, author_handle, thumbnail_url,
	 duration_secs, media_url, chapters, comments, stats, tags, raw_payload, scraped_at, updated_at`

func scanVideo(row pgx.Row) (*models.Video, error) {
	var v models.Video
	var chapters, comments, stats []byte
	err := row.Scan(&v.VideoID, &v.Title, &v.Description, &v.AuthorName, &v.AuthorHandle,
		&v.ThumbnailURL, &v.DurationSecs, &v.MediaURL, &chapters, &comments, &stats,
		&v.Tags, &v.RawPayload, &v.ScrapedAt, &v.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(chapters, &v.Chapters); err != nil {
		return nil, fmt.Errorf("decode chapters: %w", err)
	}
	if err := json.Unmarshal(comments, &v.Comments); err != nil {
		return nil, fmt.Errorf("decode comments: %w", err)
	}
	if err := json.Unmarshal(stats, &v.Stats); err != nil {
		return nil, fmt.Errorf("decode stats: %w", err)
	}
	return &v, nil
}

func (s *PostgresStore) UpsertVideo(ctx context.Context, video *models.Video) error {
	chapters, err := json.Marshal(video.Chapters)
	if err != nil {
		return fmt.Errorf("encode chapters: %w", err)
	}
	comments, err := json.Marshal(video.Comments)
	if err != nil {
		return fmt.Errorf("encode comments: %w", err)
	}
	stats, err := json.Marshal(video.Stats)
	if err != nil {
		return fmt.Errorf("encode stats: %w", err)
	}
	tags := video.Tags
	if tags == nil {
		tags = []string{}
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO videos (video_id, title, description, author_name, author_handle, thumbnail_url,
		   duration_secs, media_url, chapters, comments, stats, tags, raw_payload, scraped_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		 ON CONFLICT (video_id) DO UPDATE SET
		   title = EXCLUDED.title,
		   description = EXCLUDED.description,
		   author_name = EXCLUDED.author_name,
		   author_handle = EXCLUDED.author_handle,
		   thumbnail_url = EXCLUDED.thumbnail_url,
		   duration_secs = EXCLUDED.duration_secs,
		   media_url = EXCLUDED.media_url,
		   chapters = EXCLUDED.chapters,
		   comments = EXCLUDED.comments,
		   stats = EXCLUDED.stats,
		   tags = EXCLUDED.tags,
		   raw_payload = EXCLUDED.raw_payload,
		   scraped_at = EXCLUDED.scraped_at,
		   updated_at = EXCLUDED.updated_at`,
		video.VideoID, video.Title, video.Description, video.AuthorName, video.AuthorHandle,
		video.ThumbnailURL, video.DurationSecs, video.MediaURL, chapters, comments, stats,
		tags, []byte(video.RawPayload), video.ScrapedAt, video.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert video: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetVideo(ctx context.Context, videoID string) (*models.Video, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+videoColumns+` FROM videos WHERE video_id = $1`, videoID)
	video, err := scanVideo(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get video: %w", err)
	}
	return video, nil
}

func (s *PostgresStore) ListVideos(ctx context.Context, filter VideoFilter) ([]*models.Video, int, error) {
	where := ""
	args := []any{}
	if filter.SubmissionID != nil {
		where = `WHERE v.video_id IN (SELECT video_id FROM item_jobs WHERE submission_id = $1)`
		args = append(args, *filter.SubmissionID)
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM videos v ` + where
	if err := s.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count videos: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	offset := (page - 1) * limit

	argIdx := len(args) + 1
	dataQuery := fmt.Sprintf(
		`SELECT `+videoColumns+` FROM videos v %s ORDER BY updated_at DESC LIMIT $%d OFFSET $%d`,
		where, argIdx, argIdx+1)
	args = append(args, limit, offset)

	rows, err := s.pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list videos: %w", err)
	}
	defer rows.Close()

	var videos []*models.Video
	for rows.Next() {
		video, err := scanVideo(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan video: %w", err)
		}
		videos = append(videos, video)
	}
	return videos, total, rows.Err()
}

// --- API Keys ---

func (s *PostgresStore) GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, key_hash, key_prefix, scopes, last_used_at, deleted_at, created_at, updated_at
		 FROM api_keys WHERE key_prefix = $1 AND deleted_at IS NULL`, prefix)
	if err != nil {
		return nil, fmt.Errorf("get api key by prefix: %w", err)
	}
	defer rows.Close()

	var keys []*models.APIKey
	for rows.Next() {
		var k models.APIKey
		if err := rows.Scan(&k.ID, &k.Name, &k.KeyHash, &k.KeyPrefix, &k.Scopes,
			&k.LastUsedAt, &k.DeletedAt, &k.CreatedAt, &k.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan api key: %w", err)
		}
		keys = append(keys, &k)
	}
	return keys, rows.Err()
}

func (s *PostgresStore) UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE api_keys SET last_used_at = NOW(), updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("update api key last used: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateAPIKey(ctx context.Context, key *models.APIKey) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO api_keys (id, name, key_hash, key_prefix, scopes, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		key.ID, key.Name, key.KeyHash, key.KeyPrefix, key.Scopes, key.CreatedAt, key.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create api key: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListAPIKeys(ctx context.Context) ([]*models.APIKey, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, key_hash, key_prefix, scopes, last_used_at, deleted_at, created_at, updated_at
		 FROM api_keys WHERE deleted_at IS NULL ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	defer rows.Close()

	var keys []*models.APIKey
	for rows.Next() {
		var k models.APIKey
		if err := rows.Scan(&k.ID, &k.Name, &k.KeyHash, &k.KeyPrefix, &k.Scopes,
			&k.LastUsedAt, &k.DeletedAt, &k.CreatedAt, &k.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan api key: %w", err)
		}
		keys = append(keys, &k)
	}
	return keys, rows.Err()
}

func (s *PostgresStore) RevokeAPIKey(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE api_keys SET deleted_at = NOW(), updated_at = NOW()
		 WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("revoke api key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// isDuplicateKeyError checks if a pgx error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}
