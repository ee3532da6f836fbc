package contacts

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/vitalpages/server/internal/config"
)

const siteVerifyURL = "https://www.google.com/recaptcha/api/siteverify"

// CaptchaVerifier checks a client-supplied captcha token.
type CaptchaVerifier interface {
	Verify(ctx context.Context, token, remoteIP string) error
}

// RecaptchaVerifier validates reCAPTCHA v3 tokens against Google's
// siteverify endpoint, applying the configured score threshold.
type RecaptchaVerifier struct {
	config    config.RecaptchaConfig
	client    *http.Client
	verifyURL string
	logger    zerolog.Logger
}

func NewRecaptchaVerifier(cfg config.RecaptchaConfig, logger zerolog.Logger) *RecaptchaVerifier {
	return &RecaptchaVerifier{
		config:    cfg,
		client:    &http.Client{Timeout: 5 * time.Second},
		verifyURL: siteVerifyURL,
		logger:    logger.With().Str("component", "recaptcha").Logger(),
	}
}

type siteVerifyResponse struct {
	Success    bool     `json:"success"`
	Score      float64  `json:"score"`
	Action     string   `json:"action"`
	ErrorCodes []string `json:"error-codes"`
}

// Verify checks the token. When reCAPTCHA is disabled in config every token
// passes, so local development does not need site keys.
func (v *RecaptchaVerifier) Verify(ctx context.Context, token, remoteIP string) error {
	if !v.config.Enabled {
		return nil
	}
	if strings.TrimSpace(token) == "" {
		return ErrCaptchaFailed
	}

	form := url.Values{}
	form.Set("secret", v.config.Secret)
	form.Set("response", token)
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.verifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build siteverify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.client.Do(req)
	if err != nil {
		return fmt.Errorf("siteverify request: %w", err)
	}
	defer resp.Body.Close()

	var result siteVerifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("decode siteverify response: %w", err)
	}

	if !result.Success {
		v.logger.Warn().Strs("error_codes", result.ErrorCodes).Msg("recaptcha token rejected")
		return ErrCaptchaFailed
	}
	if result.Score < v.config.Threshold {
		v.logger.Warn().Float64("score", result.Score).Float64("threshold", v.config.Threshold).Msg("recaptcha score below threshold")
		return ErrCaptchaFailed
	}
	return nil
}
