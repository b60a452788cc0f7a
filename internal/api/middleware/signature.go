package middleware

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"

	"vidscout/internal/api/response"
	"vidscout/internal/queue"
)

// maxHookBodyBytes bounds webhook payloads; a continuation carrying a full
// collection remainder stays well under this.
const maxHookBodyBytes = 1 << 20

// Signature authenticates queue webhook deliveries by their HMAC header.
type Signature struct {
	verifier *queue.Verifier
}

// NewSignature creates a Signature middleware around the given verifier.
func NewSignature(v *queue.Verifier) *Signature {
	return &Signature{verifier: v}
}

// Verify checks the queue signature over the raw request body. When no
// signing keys are configured the check is skipped so local setups without
// a signing queue still work; that mode is logged loudly at startup.
func (s *Signature) Verify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.verifier.Enabled() {
			next.ServeHTTP(w, r)
			return
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, maxHookBodyBytes))
		if err != nil {
			response.Error(w, http.StatusBadRequest,
				"INVALID_REQUEST", "Failed to read request body", nil)
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))

		sig := r.Header.Get(queue.SignatureHeader)
		if sig == "" {
			response.Error(w, http.StatusUnauthorized,
				"INVALID_SIGNATURE", "Missing queue signature header", nil)
			return
		}

		if !s.verifier.Verify(sig, body) {
			slog.Warn("rejected webhook with bad signature",
				"path", r.URL.Path, "remote_addr", r.RemoteAddr)
			response.Error(w, http.StatusUnauthorized,
				"INVALID_SIGNATURE", "Queue signature verification failed", nil)
			return
		}

		next.ServeHTTP(w, r)
	})
}
