package webhooks

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
)

// Deliverer performs a single webhook POST: sign, send, record the attempt.
// Retry scheduling lives in the job layer; Deliver returns an error whenever
// the attempt should be retried.
type Deliverer struct {
	repo    Repository
	client  *http.Client
	timeout time.Duration
	logger  zerolog.Logger
}

func NewDeliverer(repo Repository, timeout time.Duration, logger zerolog.Logger) *Deliverer {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Deliverer{
		repo:    repo,
		client:  &http.Client{Timeout: timeout},
		timeout: timeout,
		logger:  logger.With().Str("component", "webhook_deliverer").Logger(),
	}
}

// Deliver attempts one delivery. A 2xx response marks the delivery delivered;
// anything else records the attempt and returns an error so the job is
// rescheduled. finalAttempt marks the delivery failed instead of pending.
func (d *Deliverer) Deliver(ctx context.Context, deliveryID string, attempt int, finalAttempt bool) error {
	delivery, err := d.repo.GetDelivery(ctx, deliveryID)
	if err != nil {
		return err
	}
	if delivery.Status == DeliveryDelivered {
		return nil
	}

	endpoint, err := d.repo.GetEndpoint(ctx, delivery.EndpointID)
	if err != nil {
		return err
	}
	if !endpoint.Active {
		// Deactivated endpoints stop retrying without being marked failed.
		d.logger.Debug().Str("delivery_id", deliveryID).Msg("endpoint inactive, dropping delivery")
		return d.repo.UpdateDeliveryStatus(ctx, deliveryID, DeliveryFailed, attempt)
	}

	start := time.Now()
	statusCode, sendErr := d.send(ctx, endpoint, delivery)
	duration := time.Since(start)

	errMsg := ""
	if sendErr != nil {
		errMsg = sendErr.Error()
	}
	if recordErr := d.repo.RecordAttempt(ctx, Attempt{
		ID:         ulid.Make().String(),
		DeliveryID: delivery.ID,
		EndpointID: endpoint.ID,
		StatusCode: statusCode,
		Error:      errMsg,
		DurationMs: duration.Milliseconds(),
		At:         time.Now().UTC(),
	}); recordErr != nil {
		d.logger.Error().Err(recordErr).Str("delivery_id", delivery.ID).Msg("record webhook attempt failed")
	}

	if sendErr == nil {
		if err := d.repo.UpdateDeliveryStatus(ctx, delivery.ID, DeliveryDelivered, attempt); err != nil {
			return err
		}
		d.logger.Info().
			Str("delivery_id", delivery.ID).
			Str("endpoint_id", endpoint.ID).
			Str("event", delivery.Event).
			Int("status_code", statusCode).
			Msg("webhook delivered")
		return nil
	}

	status := DeliveryPending
	if finalAttempt {
		status = DeliveryFailed
	}
	if err := d.repo.UpdateDeliveryStatus(ctx, delivery.ID, status, attempt); err != nil {
		return err
	}

	d.logger.Warn().
		Err(sendErr).
		Str("delivery_id", delivery.ID).
		Str("endpoint_id", endpoint.ID).
		Int("attempt", attempt).
		Bool("final", finalAttempt).
		Msg("webhook delivery attempt failed")
	return sendErr
}

func (d *Deliverer) send(ctx context.Context, endpoint Endpoint, delivery Delivery) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.URL, bytes.NewReader(delivery.Payload))
	if err != nil {
		return 0, fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "VitalPages-Webhooks/1.0")
	req.Header.Set(SignatureHeader, Sign(endpoint.Secret, delivery.Payload))
	req.Header.Set(EventHeader, delivery.Event)
	req.Header.Set(DeliveryIDHeader, delivery.ID)

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("post webhook: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, fmt.Errorf("webhook endpoint returned %d", resp.StatusCode)
	}
	return resp.StatusCode, nil
}
