package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type mockRecoverer struct {
	n   int
	err error
}

func (m *mockRecoverer) Recover(_ context.Context) (int, error) {
	return m.n, m.err
}

func TestRecoverHandler_ReportsCount(t *testing.T) {
	h := NewRecoverHandler(&mockRecoverer{n: 7})
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/admin/recover", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	data := decodeData(t, rec)
	if data["republished"] != float64(7) {
		t.Errorf("republished: got %v", data["republished"])
	}
}

func TestRecoverHandler_SweepError(t *testing.T) {
	h := NewRecoverHandler(&mockRecoverer{err: errors.New("db down")})
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/admin/recover", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}
