package monitor

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// ClientConfig controls reconnect behavior.
type ClientConfig struct {
	URL         string
	BaseBackoff time.Duration // first reconnect delay, default 1s
	MaxBackoff  time.Duration // delay cap, default 30s
	StableAfter time.Duration // connection age that resets the backoff, default 30s
}

func (c ClientConfig) withDefaults() ClientConfig {
	if c.BaseBackoff <= 0 {
		c.BaseBackoff = time.Second
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = 30 * time.Second
	}
	if c.StableAfter <= 0 {
		c.StableAfter = 30 * time.Second
	}
	return c
}

// Client maintains a WebSocket subscription to the monitoring stream,
// reconnecting with jittered exponential backoff whenever the connection
// drops. Snapshots are handed to the callback in arrival order.
type Client struct {
	cfg     ClientConfig
	onStats func(Snapshot)
	dialer  *websocket.Dialer
	logger  zerolog.Logger
}

func NewClient(cfg ClientConfig, onStats func(Snapshot), logger zerolog.Logger) *Client {
	return &Client{
		cfg:     cfg.withDefaults(),
		onStats: onStats,
		dialer:  websocket.DefaultDialer,
		logger:  logger.With().Str("component", "monitor_client").Logger(),
	}
}

// Run connects and keeps reconnecting until the context is cancelled.
func (c *Client) Run(ctx context.Context) error {
	failures := 0
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		connectedAt := time.Now()
		err := c.readLoop(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		// A connection that survived past the stability window starts the
		// backoff schedule over.
		if time.Since(connectedAt) >= c.cfg.StableAfter {
			failures = 0
		}
		failures++

		delay := nextDelay(c.cfg.BaseBackoff, c.cfg.MaxBackoff, failures)
		c.logger.Warn().
			Err(err).
			Int("failures", failures).
			Dur("retry_in", delay).
			Msg("monitor connection lost, reconnecting")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

func (c *Client) readLoop(ctx context.Context) error {
	conn, _, err := c.dialer.DialContext(ctx, c.cfg.URL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	c.logger.Info().Str("url", c.cfg.URL).Msg("monitor stream connected")

	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		var snapshot Snapshot
		if err := json.Unmarshal(payload, &snapshot); err != nil {
			c.logger.Warn().Err(err).Msg("malformed snapshot, skipping")
			continue
		}
		if c.onStats != nil {
			c.onStats(snapshot)
		}
	}
}

// nextDelay doubles per consecutive failure, caps at max, and applies ±20%
// jitter so a fleet of clients does not reconnect in lockstep.
func nextDelay(base, max time.Duration, failures int) time.Duration {
	if failures < 1 {
		failures = 1
	}
	delay := base
	for i := 1; i < failures; i++ {
		delay *= 2
		if delay >= max {
			delay = max
			break
		}
	}
	jitter := 1 + (rand.Float64()*0.4 - 0.2)
	delay = time.Duration(float64(delay) * jitter)
	if delay > max {
		delay = max
	}
	if delay < 0 {
		delay = base
	}
	return delay
}
