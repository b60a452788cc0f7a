package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"vidscout/internal/store"
	"vidscout/pkg/models"
)

// stubStore implements store.Store with overridable behavior per test.
// Unset methods return zero values.
type stubStore struct {
	getSubmission func(ctx context.Context, id uuid.UUID) (*models.Submission, error)
	getVideo      func(ctx context.Context, videoID string) (*models.Video, error)
	listVideos    func(ctx context.Context, filter store.VideoFilter) ([]*models.Video, int, error)
	createAPIKey  func(ctx context.Context, key *models.APIKey) error
	listAPIKeys   func(ctx context.Context) ([]*models.APIKey, error)
	revokeAPIKey  func(ctx context.Context, id uuid.UUID) error
}

func (s *stubStore) Ping(_ context.Context) error                              { return nil }
func (s *stubStore) CreateSubmission(_ context.Context, _ *models.Submission) error { return nil }

func (s *stubStore) GetSubmission(ctx context.Context, id uuid.UUID) (*models.Submission, error) {
	if s.getSubmission != nil {
		return s.getSubmission(ctx, id)
	}
	return nil, store.ErrNotFound
}

func (s *stubStore) UpdateSubmissionStatus(_ context.Context, _ uuid.UUID, _ string, _ ...store.UpdateOption) error {
	return nil
}

func (s *stubStore) UpsertItemJob(_ context.Context, job *models.ItemJob) (*models.ItemJob, error) {
	return job, nil
}
func (s *stubStore) MarkItemJobProcessing(_ context.Context, _ string) (*models.ItemJob, error) {
	return nil, store.ErrNotFound
}
func (s *stubStore) MarkItemJobCompleted(_ context.Context, _ string) error { return nil }
func (s *stubStore) MarkItemJobFailed(_ context.Context, _ string, _ string) error {
	return nil
}
func (s *stubStore) GetPendingItemJobs(_ context.Context, _ int) ([]*models.ItemJob, error) {
	return nil, nil
}

func (s *stubStore) UpsertVideo(_ context.Context, _ *models.Video) error { return nil }

func (s *stubStore) GetVideo(ctx context.Context, videoID string) (*models.Video, error) {
	if s.getVideo != nil {
		return s.getVideo(ctx, videoID)
	}
	return nil, store.ErrNotFound
}

func (s *stubStore) ListVideos(ctx context.Context, filter store.VideoFilter) ([]*models.Video, int, error) {
	if s.listVideos != nil {
		return s.listVideos(ctx, filter)
	}
	return nil, 0, nil
}

func (s *stubStore) GetAPIKeyByPrefix(_ context.Context, _ string) ([]*models.APIKey, error) {
	return nil, nil
}
func (s *stubStore) UpdateAPIKeyLastUsed(_ context.Context, _ uuid.UUID) error { return nil }

func (s *stubStore) CreateAPIKey(ctx context.Context, key *models.APIKey) error {
	if s.createAPIKey != nil {
		return s.createAPIKey(ctx, key)
	}
	return nil
}

func (s *stubStore) ListAPIKeys(ctx context.Context) ([]*models.APIKey, error) {
	if s.listAPIKeys != nil {
		return s.listAPIKeys(ctx)
	}
	return nil, nil
}

func (s *stubStore) RevokeAPIKey(ctx context.Context, id uuid.UUID) error {
	if s.revokeAPIKey != nil {
		return s.revokeAPIKey(ctx, id)
	}
	return nil
}

var _ store.Store = (*stubStore)(nil)

// stubCache implements cache.Cache in memory.
type stubCache struct {
	data map[string][]byte
}

func newStubCache() *stubCache {
	return &stubCache{data: map[string][]byte{}}
}

func (c *stubCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.data[key] = value
	return nil
}

func (c *stubCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *stubCache) Delete(_ context.Context, key string) error {
	delete(c.data, key)
	return nil
}

func (c *stubCache) Ping(_ context.Context) error { return nil }

func (c *stubCache) IncrWithExpiry(_ context.Context, _ string, _ time.Duration) (int64, error) {
	return 1, nil
}

// --- request helpers ---

func jsonReq(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	r := httptest.NewRequest(method, target, bytes.NewReader(b))
	r.Header.Set("Content-Type", "application/json")
	return r
}

// withURLParam injects a chi route parameter into the request context.
func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var env struct {
		Data map[string]any `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return env.Data
}

func decodeErrCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var env struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return env.Error.Code
}
