package delivery

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Sign computes the webhook signature header value for a serialized payload:
// "sha256=" + hex HMAC-SHA256 of the exact body bytes, keyed by the shared
// secret. Receivers verify it with a constant-time comparison.
func Sign(body []byte, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(body)
	return "sha256=" + hex.EncodeToString(h.Sum(nil))
}
