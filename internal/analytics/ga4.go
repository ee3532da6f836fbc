package analytics

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/vitalpages/server/internal/config"
)

const collectURL = "https://www.google-analytics.com/mp/collect"

// Client sends server-side events to Google Analytics 4 through the
// Measurement Protocol. Disabled clients drop events silently so the rest of
// the server never branches on analytics configuration.
type Client struct {
	cfg        config.AnalyticsConfig
	httpClient *http.Client
	endpoint   string
	logger     zerolog.Logger
}

func NewClient(cfg config.AnalyticsConfig, logger zerolog.Logger) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		endpoint:   collectURL,
		logger:     logger.With().Str("component", "analytics").Logger(),
	}
}

type event struct {
	Name   string         `json:"name"`
	Params map[string]any `json:"params,omitempty"`
}

type payload struct {
	ClientID string  `json:"client_id"`
	Events   []event `json:"events"`
}

// Track sends one event. Failures are logged, not returned: analytics must
// never break a user-facing request.
func (c *Client) Track(ctx context.Context, clientID, name string, params map[string]any) {
	if !c.cfg.Enabled {
		return
	}
	if clientID == "" {
		clientID = "server.vitalpages"
	}

	body, err := json.Marshal(payload{
		ClientID: clientID,
		Events:   []event{{Name: name, Params: params}},
	})
	if err != nil {
		c.logger.Error().Err(err).Str("event", name).Msg("marshal analytics event failed")
		return
	}

	query := url.Values{}
	query.Set("measurement_id", c.cfg.MeasurementID)
	query.Set("api_secret", c.cfg.APISecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"?"+query.Encode(), bytes.NewReader(body))
	if err != nil {
		c.logger.Error().Err(err).Str("event", name).Msg("build analytics request failed")
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn().Err(err).Str("event", name).Msg("analytics send failed")
		return
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= 300 {
		c.logger.Warn().Int("status", resp.StatusCode).Str("event", name).Msg(fmt.Sprintf("analytics endpoint returned %d", resp.StatusCode))
	}
}
