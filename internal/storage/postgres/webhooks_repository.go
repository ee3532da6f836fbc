package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vitalpages/server/internal/domain/webhooks"
)

type WebhookRepository struct {
	pool *pgxpool.Pool
	tx   pgx.Tx
}

func (r *WebhookRepository) CreateEndpoint(ctx context.Context, endpoint webhooks.Endpoint) (webhooks.Endpoint, error) {
	q := pick(r.pool, r.tx)
	_, err := q.Exec(ctx, `
INSERT INTO webhook_endpoints (id, url, secret, events, active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
`, endpoint.ID, endpoint.URL, endpoint.Secret, endpoint.Events, endpoint.Active,
		endpoint.CreatedAt, endpoint.UpdatedAt)
	if err != nil {
		return webhooks.Endpoint{}, fmt.Errorf("create endpoint: %w", err)
	}
	return endpoint, nil
}

func (r *WebhookRepository) GetEndpoint(ctx context.Context, id string) (webhooks.Endpoint, error) {
	q := pick(r.pool, r.tx)
	row := q.QueryRow(ctx, `
SELECT id, url, secret, events, active, created_at, updated_at
  FROM webhook_endpoints
 WHERE id = $1
`, id)
	return scanEndpoint(row)
}

func (r *WebhookRepository) ListEndpoints(ctx context.Context) ([]webhooks.Endpoint, error) {
	q := pick(r.pool, r.tx)
	rows, err := q.Query(ctx, `
SELECT id, url, secret, events, active, created_at, updated_at
  FROM webhook_endpoints
 ORDER BY created_at
`)
	if err != nil {
		return nil, fmt.Errorf("list endpoints: %w", err)
	}
	defer rows.Close()
	return collectEndpoints(rows)
}

func (r *WebhookRepository) ListActiveEndpointsForEvent(ctx context.Context, event string) ([]webhooks.Endpoint, error) {
	q := pick(r.pool, r.tx)
	// An empty events array means the endpoint subscribes to everything.
	rows, err := q.Query(ctx, `
SELECT id, url, secret, events, active, created_at, updated_at
  FROM webhook_endpoints
 WHERE active
   AND (cardinality(events) = 0 OR $1 = ANY(events))
 ORDER BY created_at
`, event)
	if err != nil {
		return nil, fmt.Errorf("list active endpoints: %w", err)
	}
	defer rows.Close()
	return collectEndpoints(rows)
}

func (r *WebhookRepository) UpdateEndpoint(ctx context.Context, endpoint webhooks.Endpoint) error {
	q := pick(r.pool, r.tx)
	tag, err := q.Exec(ctx, `
UPDATE webhook_endpoints
   SET url = $2,
       secret = $3,
       events = $4,
       active = $5,
       updated_at = $6
 WHERE id = $1
`, endpoint.ID, endpoint.URL, endpoint.Secret, endpoint.Events, endpoint.Active, endpoint.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update endpoint: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return webhooks.ErrEndpointNotFound
	}
	return nil
}

func (r *WebhookRepository) DeleteEndpoint(ctx context.Context, id string) error {
	q := pick(r.pool, r.tx)
	tag, err := q.Exec(ctx, `DELETE FROM webhook_endpoints WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete endpoint: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return webhooks.ErrEndpointNotFound
	}
	return nil
}

func (r *WebhookRepository) CreateDelivery(ctx context.Context, delivery webhooks.Delivery) (webhooks.Delivery, error) {
	q := pick(r.pool, r.tx)
	_, err := q.Exec(ctx, `
INSERT INTO webhook_deliveries (id, endpoint_id, event, payload, status, attempts, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`, delivery.ID, delivery.EndpointID, delivery.Event, delivery.Payload,
		delivery.Status, delivery.Attempts, delivery.CreatedAt, delivery.UpdatedAt)
	if err != nil {
		return webhooks.Delivery{}, fmt.Errorf("create delivery: %w", err)
	}
	return delivery, nil
}

func (r *WebhookRepository) GetDelivery(ctx context.Context, id string) (webhooks.Delivery, error) {
	q := pick(r.pool, r.tx)
	row := q.QueryRow(ctx, `
SELECT id, endpoint_id, event, payload, status, attempts, created_at, updated_at
  FROM webhook_deliveries
 WHERE id = $1
`, id)

	var delivery webhooks.Delivery
	err := row.Scan(&delivery.ID, &delivery.EndpointID, &delivery.Event, &delivery.Payload,
		&delivery.Status, &delivery.Attempts, &delivery.CreatedAt, &delivery.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return webhooks.Delivery{}, webhooks.ErrDeliveryNotFound
		}
		return webhooks.Delivery{}, fmt.Errorf("get delivery: %w", err)
	}
	return delivery, nil
}

func (r *WebhookRepository) UpdateDeliveryStatus(ctx context.Context, id, status string, attempts int) error {
	q := pick(r.pool, r.tx)
	tag, err := q.Exec(ctx, `
UPDATE webhook_deliveries
   SET status = $2, attempts = $3, updated_at = now()
 WHERE id = $1
`, id, status, attempts)
	if err != nil {
		return fmt.Errorf("update delivery status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return webhooks.ErrDeliveryNotFound
	}
	return nil
}

func (r *WebhookRepository) ListDeliveries(ctx context.Context, endpointID string, limit int) ([]webhooks.Delivery, error) {
	q := pick(r.pool, r.tx)
	if limit <= 0 {
		limit = 50
	}
	rows, err := q.Query(ctx, `
SELECT id, endpoint_id, event, payload, status, attempts, created_at, updated_at
  FROM webhook_deliveries
 WHERE endpoint_id = $1
 ORDER BY created_at DESC
 LIMIT $2
`, endpointID, limit)
	if err != nil {
		return nil, fmt.Errorf("list deliveries: %w", err)
	}
	defer rows.Close()

	var result []webhooks.Delivery
	for rows.Next() {
		var delivery webhooks.Delivery
		if err := rows.Scan(&delivery.ID, &delivery.EndpointID, &delivery.Event, &delivery.Payload,
			&delivery.Status, &delivery.Attempts, &delivery.CreatedAt, &delivery.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan delivery: %w", err)
		}
		result = append(result, delivery)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list deliveries: %w", err)
	}
	return result, nil
}

func (r *WebhookRepository) RecordAttempt(ctx context.Context, attempt webhooks.Attempt) error {
	q := pick(r.pool, r.tx)
	_, err := q.Exec(ctx, `
INSERT INTO webhook_attempts (id, delivery_id, endpoint_id, status_code, error, duration_ms, at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
`, attempt.ID, attempt.DeliveryID, attempt.EndpointID, attempt.StatusCode,
		attempt.Error, attempt.DurationMs, attempt.At)
	if err != nil {
		return fmt.Errorf("record attempt: %w", err)
	}
	return nil
}

func (r *WebhookRepository) ListAttempts(ctx context.Context, endpointID string, limit int) ([]webhooks.Attempt, error) {
	q := pick(r.pool, r.tx)
	if limit <= 0 {
		limit = 50
	}
	rows, err := q.Query(ctx, `
SELECT id, delivery_id, endpoint_id, status_code, error, duration_ms, at
  FROM webhook_attempts
 WHERE endpoint_id = $1
 ORDER BY at DESC
 LIMIT $2
`, endpointID, limit)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	defer rows.Close()

	var result []webhooks.Attempt
	for rows.Next() {
		var attempt webhooks.Attempt
		if err := rows.Scan(&attempt.ID, &attempt.DeliveryID, &attempt.EndpointID,
			&attempt.StatusCode, &attempt.Error, &attempt.DurationMs, &attempt.At); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		result = append(result, attempt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	return result, nil
}

func scanEndpoint(row pgx.Row) (webhooks.Endpoint, error) {
	var endpoint webhooks.Endpoint
	err := row.Scan(
		&endpoint.ID,
		&endpoint.URL,
		&endpoint.Secret,
		&endpoint.Events,
		&endpoint.Active,
		&endpoint.CreatedAt,
		&endpoint.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return webhooks.Endpoint{}, webhooks.ErrEndpointNotFound
		}
		return webhooks.Endpoint{}, fmt.Errorf("scan endpoint: %w", err)
	}
	return endpoint, nil
}

func collectEndpoints(rows pgx.Rows) ([]webhooks.Endpoint, error) {
	var result []webhooks.Endpoint
	for rows.Next() {
		endpoint, err := scanEndpoint(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, endpoint)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("collect endpoints: %w", err)
	}
	return result, nil
}
