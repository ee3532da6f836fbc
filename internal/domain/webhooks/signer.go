package webhooks

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

// Signature headers set on every delivery.
const (
	SignatureHeader  = "X-VitalPages-Signature"
	EventHeader      = "X-VitalPages-Event"
	DeliveryIDHeader = "X-VitalPages-Delivery"
)

// Sign computes the signature header value for a payload:
// "sha256=" followed by hex HMAC-SHA256 of the body under the endpoint secret.
func Sign(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a received signature header against a payload.
// Comparison is constant time.
func VerifySignature(secret string, payload []byte, header string) bool {
	if !strings.HasPrefix(header, "sha256=") {
		return false
	}
	expected := Sign(secret, payload)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(header)) == 1
}
