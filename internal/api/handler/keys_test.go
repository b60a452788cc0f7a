package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"vidscout/internal/store"
	"vidscout/pkg/models"
)

func TestCreateKey_RawKeyShownOnce(t *testing.T) {
	var created *models.APIKey
	st := &stubStore{createAPIKey: func(_ context.Context, key *models.APIKey) error {
		created = key
		return nil
	}}
	h := NewCreateKeyHandler(st)
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, jsonReq(t, http.MethodPost, "/api/v1/admin/keys", map[string]any{
		"name":   "ci-key",
		"scopes": []string{"submit", "read"},
	}))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	data := decodeData(t, rec)
	rawKey, _ := data["key"].(string)
	if !strings.HasPrefix(rawKey, "vs_") {
		t.Fatalf("raw key: got %q", rawKey)
	}
	if created == nil {
		t.Fatal("key not stored")
	}
	if created.KeyPrefix != rawKey[:8] {
		t.Errorf("stored prefix %q does not match key %q", created.KeyPrefix, rawKey)
	}
	// Only the hash is stored; it must verify against the raw key.
	if err := bcrypt.CompareHashAndPassword([]byte(created.KeyHash), []byte(rawKey)); err != nil {
		t.Errorf("stored hash does not match raw key: %v", err)
	}
	if created.KeyHash == rawKey {
		t.Error("raw key stored in plaintext")
	}
}

func TestCreateKey_DefaultScopes(t *testing.T) {
	var created *models.APIKey
	st := &stubStore{createAPIKey: func(_ context.Context, key *models.APIKey) error {
		created = key
		return nil
	}}
	h := NewCreateKeyHandler(st)
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, jsonReq(t, http.MethodPost, "/api/v1/admin/keys", map[string]any{
		"name": "default-scopes",
	}))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if len(created.Scopes) != 2 {
		t.Errorf("scopes: got %v", created.Scopes)
	}
}

func TestCreateKey_MissingName(t *testing.T) {
	h := NewCreateKeyHandler(&stubStore{})
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, jsonReq(t, http.MethodPost, "/api/v1/admin/keys", map[string]any{}))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestCreateKey_UnknownScope(t *testing.T) {
	h := NewCreateKeyHandler(&stubStore{})
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, jsonReq(t, http.MethodPost, "/api/v1/admin/keys", map[string]any{
		"name":   "bad-scope",
		"scopes": []string{"superuser"},
	}))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestListKeys_Empty(t *testing.T) {
	h := NewListKeysHandler(&stubStore{})
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/admin/keys", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"data":[]`) {
		t.Errorf("expected empty array, got %s", rec.Body.String())
	}
}

func TestListKeys_OmitsHashes(t *testing.T) {
	now := time.Now().UTC()
	st := &stubStore{listAPIKeys: func(_ context.Context) ([]*models.APIKey, error) {
		return []*models.APIKey{{
			ID: uuid.New(), Name: "k1", KeyHash: "secret-hash", KeyPrefix: "vs_abcd1",
			Scopes: []string{"read"}, CreatedAt: now, UpdatedAt: now,
		}}, nil
	}}
	h := NewListKeysHandler(st)
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/admin/keys", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "secret-hash") {
		t.Error("key hash leaked in list response")
	}
}

func TestRevokeKey_NotFound(t *testing.T) {
	st := &stubStore{revokeAPIKey: func(_ context.Context, _ uuid.UUID) error {
		return store.ErrNotFound
	}}
	h := NewRevokeKeyHandler(st)
	rec := httptest.NewRecorder()

	id := uuid.New()
	r := withURLParam(httptest.NewRequest(http.MethodDelete, "/api/v1/admin/keys/"+id.String(), nil),
		"keyID", id.String())
	h.ServeHTTP(rec, r)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestRevokeKey_Success(t *testing.T) {
	h := NewRevokeKeyHandler(&stubStore{})
	rec := httptest.NewRecorder()

	id := uuid.New()
	r := withURLParam(httptest.NewRequest(http.MethodDelete, "/api/v1/admin/keys/"+id.String(), nil),
		"keyID", id.String())
	h.ServeHTTP(rec, r)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
