package webhooks

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSign_Format(t *testing.T) {
	sig := Sign("whsec_test", []byte(`{"event":"page.published"}`))
	assert.True(t, strings.HasPrefix(sig, "sha256="))
	assert.Len(t, sig, len("sha256=")+64)
}

func TestSign_Deterministic(t *testing.T) {
	payload := []byte(`{"a":1}`)
	assert.Equal(t, Sign("secret", payload), Sign("secret", payload))
	assert.NotEqual(t, Sign("secret", payload), Sign("other", payload))
	assert.NotEqual(t, Sign("secret", payload), Sign("secret", []byte(`{"a":2}`)))
}

func TestVerifySignature(t *testing.T) {
	payload := []byte(`{"event":"contact.created"}`)
	sig := Sign("secret", payload)

	assert.True(t, VerifySignature("secret", payload, sig))
	assert.False(t, VerifySignature("wrong", payload, sig))
	assert.False(t, VerifySignature("secret", []byte("tampered"), sig))
	assert.False(t, VerifySignature("secret", payload, "md5=abc"))
	assert.False(t, VerifySignature("secret", payload, ""))
}
