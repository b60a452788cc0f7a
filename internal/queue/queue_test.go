package queue_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"vidscout/internal/config"
	"vidscout/internal/queue"

	"github.com/google/uuid"
)

func newTestClient(queueURL string) *queue.Client {
	return queue.NewClient(config.QueueConfig{
		URL:             queueURL,
		Token:           "test-token",
		CallbackBaseURL: "https://vidscout.example.com",
		PublishRetries:  3,
		PublishTimeout:  5 * time.Second,
	})
}

func TestPublishItem_Success(t *testing.T) {
	var gotPath, gotAuth, gotRetries string
	var gotBody queue.ItemMessage

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotRetries = r.Header.Get("X-Queue-Retries")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]string{"message_id": "msg-1"})
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	subID := uuid.New()
	id, err := c.PublishItem(context.Background(), queue.ItemMessage{
		VideoID:      "vid-42",
		SubmissionID: &subID,
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if id != "msg-1" {
		t.Errorf("message id: got %q", id)
	}
	if !strings.HasPrefix(gotPath, "/v1/publish/https://vidscout.example.com/api/v1/hooks/item") {
		t.Errorf("unexpected publish path: %q", gotPath)
	}
	if gotAuth != "Bearer test-token" {
		t.Errorf("auth header: got %q", gotAuth)
	}
	if gotRetries != "3" {
		t.Errorf("retries header: got %q", gotRetries)
	}
	if gotBody.VideoID != "vid-42" || gotBody.SubmissionID == nil || *gotBody.SubmissionID != subID {
		t.Errorf("unexpected body: %+v", gotBody)
	}
}

func TestPublishCollection_CarriesContinuation(t *testing.T) {
	var gotBody queue.CollectionMessage

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(map[string]string{"message_id": "msg-2"})
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	_, err := c.PublishCollection(context.Background(), queue.CollectionMessage{
		CollectionID:      "chan-1",
		SubmissionID:      uuid.New(),
		Credentials:       "sid=abc",
		RemainingVideoIDs: []string{"v3", "v4"},
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(gotBody.RemainingVideoIDs) != 2 || gotBody.RemainingVideoIDs[0] != "v3" {
		t.Errorf("continuation not carried: %+v", gotBody)
	}
}

func TestPublish_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	_, err := c.PublishItem(context.Background(), queue.ItemMessage{VideoID: "vid-1"})
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestVerifier_AcceptsEitherKey(t *testing.T) {
	body := []byte(`{"video_id":"vid-1"}`)

	current := queue.NewVerifier("key-current", "")
	next := queue.NewVerifier("key-next", "")
	v := queue.NewVerifier("key-current", "key-next")

	if !v.Verify(current.Sign(body), body) {
		t.Error("signature from current key rejected")
	}
	if !v.Verify(next.Sign(body), body) {
		t.Error("signature from next key rejected")
	}
}

func TestVerifier_RejectsBadSignature(t *testing.T) {
	body := []byte(`{"video_id":"vid-1"}`)
	v := queue.NewVerifier("key-current", "")

	other := queue.NewVerifier("wrong-key", "")
	if v.Verify(other.Sign(body), body) {
		t.Error("signature from wrong key accepted")
	}
	if v.Verify("not-base64!!!", body) {
		t.Error("malformed signature accepted")
	}

	tampered := []byte(`{"video_id":"vid-2"}`)
	if v.Verify(v.Sign(body), tampered) {
		t.Error("signature accepted for tampered body")
	}
}

func TestVerifier_Enabled(t *testing.T) {
	if queue.NewVerifier("", "").Enabled() {
		t.Error("verifier with no keys should be disabled")
	}
	if !queue.NewVerifier("k", "").Enabled() {
		t.Error("verifier with a key should be enabled")
	}
}
