package queue

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
)

// SignatureHeader is set by the queue on every callback it delivers.
const SignatureHeader = "X-Queue-Signature"

// Verifier checks inbound callback signatures against the configured
// signing keys. The queue signs with one of two keys during rotation, so
// both are accepted.
type Verifier struct {
	currentKey string
	nextKey    string
}

// NewVerifier creates a Verifier. Either key may be empty; a Verifier with
// no keys at all reports Enabled() == false and the caller decides whether
// to skip verification.
func NewVerifier(currentKey, nextKey string) *Verifier {
	return &Verifier{currentKey: currentKey, nextKey: nextKey}
}

// Enabled reports whether any signing key is configured.
func (v *Verifier) Enabled() bool {
	return v.currentKey != "" || v.nextKey != ""
}

// Verify checks the base64-encoded HMAC-SHA256 signature over body.
func (v *Verifier) Verify(signature string, body []byte) bool {
	sig, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return false
	}
	if v.currentKey != "" && hmac.Equal(sig, sign(v.currentKey, body)) {
		return true
	}
	if v.nextKey != "" && hmac.Equal(sig, sign(v.nextKey, body)) {
		return true
	}
	return false
}

// Sign computes the signature the queue would attach to body. Used by tests
// and by local tooling that replays webhook deliveries.
func (v *Verifier) Sign(body []byte) string {
	key := v.currentKey
	if key == "" {
		key = v.nextKey
	}
	return base64.StdEncoding.EncodeToString(sign(key, body))
}

func sign(key string, body []byte) []byte {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write(body)
	return mac.Sum(nil)
}
