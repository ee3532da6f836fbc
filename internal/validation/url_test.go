package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name         string
		url          string
		requireHTTPS bool
		wantErr      bool
	}{
		{"empty allowed", "", false, false},
		{"valid http", "http://example.com/page", false, false},
		{"valid https", "https://example.com", true, false},
		{"http rejected when https required", "http://example.com", true, true},
		{"missing scheme", "example.com/page", false, true},
		{"javascript scheme", "javascript:alert(1)", false, true},
		{"ftp scheme", "ftp://example.com", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateURL(tt.url, "url", tt.requireHTTPS)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateWebhookURL(t *testing.T) {
	tests := []struct {
		name         string
		url          string
		allowPrivate bool
		wantErr      bool
	}{
		{"public https", "https://hooks.example.com/cms", false, false},
		{"empty required", "", false, true},
		{"localhost rejected", "http://localhost:9000/hook", false, true},
		{"loopback rejected", "http://127.0.0.1/hook", false, true},
		{"private rejected", "http://10.1.2.3/hook", false, true},
		{"link local rejected", "http://169.254.169.254/latest/meta-data", false, true},
		{"private allowed in dev", "http://127.0.0.1:9000/hook", true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateWebhookURL(tt.url, "url", tt.allowPrivate)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
