package webhooks

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/vitalpages/server/internal/validation"
)

// Enqueuer schedules a delivery job with durable retries.
type Enqueuer interface {
	EnqueueDelivery(ctx context.Context, deliveryID string) error
}

// Service manages webhook endpoints and fans internal events out to them.
type Service struct {
	repo         Repository
	enqueuer     Enqueuer
	allowPrivate bool
	logger       zerolog.Logger
}

func NewService(repo Repository, enqueuer Enqueuer, allowPrivate bool, logger zerolog.Logger) *Service {
	return &Service{
		repo:         repo,
		enqueuer:     enqueuer,
		allowPrivate: allowPrivate,
		logger:       logger.With().Str("component", "webhooks").Logger(),
	}
}

// CreateEndpointParams contains parameters for registering an endpoint.
type CreateEndpointParams struct {
	URL    string
	Events []string
}

// CreateEndpoint registers an endpoint and generates its signing secret. The
// secret is returned once and stored for signing future deliveries.
func (s *Service) CreateEndpoint(ctx context.Context, params CreateEndpointParams) (Endpoint, error) {
	if err := validation.ValidateWebhookURL(params.URL, "url", s.allowPrivate); err != nil {
		return Endpoint{}, err
	}
	if err := validateEvents(params.Events); err != nil {
		return Endpoint{}, err
	}

	secret, err := generateSecret()
	if err != nil {
		return Endpoint{}, err
	}

	now := time.Now().UTC()
	endpoint := Endpoint{
		ID:        ulid.Make().String(),
		URL:       params.URL,
		Secret:    secret,
		Events:    params.Events,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	created, err := s.repo.CreateEndpoint(ctx, endpoint)
	if err != nil {
		return Endpoint{}, fmt.Errorf("create webhook endpoint: %w", err)
	}

	s.logger.Info().Str("endpoint_id", created.ID).Str("url", created.URL).Msg("webhook endpoint created")
	return created, nil
}

// UpdateEndpointParams contains mutable endpoint fields.
type UpdateEndpointParams struct {
	URL    string
	Events []string
	Active bool
}

func (s *Service) UpdateEndpoint(ctx context.Context, id string, params UpdateEndpointParams) (Endpoint, error) {
	endpoint, err := s.repo.GetEndpoint(ctx, id)
	if err != nil {
		return Endpoint{}, err
	}

	if err := validation.ValidateWebhookURL(params.URL, "url", s.allowPrivate); err != nil {
		return Endpoint{}, err
	}
	if err := validateEvents(params.Events); err != nil {
		return Endpoint{}, err
	}

	endpoint.URL = params.URL
	endpoint.Events = params.Events
	endpoint.Active = params.Active
	endpoint.UpdatedAt = time.Now().UTC()

	if err := s.repo.UpdateEndpoint(ctx, endpoint); err != nil {
		return Endpoint{}, fmt.Errorf("update webhook endpoint: %w", err)
	}
	return endpoint, nil
}

func (s *Service) GetEndpoint(ctx context.Context, id string) (Endpoint, error) {
	return s.repo.GetEndpoint(ctx, id)
}

func (s *Service) ListEndpoints(ctx context.Context) ([]Endpoint, error) {
	return s.repo.ListEndpoints(ctx)
}

func (s *Service) DeleteEndpoint(ctx context.Context, id string) error {
	if _, err := s.repo.GetEndpoint(ctx, id); err != nil {
		return err
	}
	return s.repo.DeleteEndpoint(ctx, id)
}

func (s *Service) ListDeliveries(ctx context.Context, endpointID string, limit int) ([]Delivery, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.repo.ListDeliveries(ctx, endpointID, limit)
}

func (s *Service) ListAttempts(ctx context.Context, endpointID string, limit int) ([]Attempt, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.repo.ListAttempts(ctx, endpointID, limit)
}

// Publish fans an event out to every active subscribed endpoint: one
// delivery row per endpoint, each scheduled as a retryable job. Publish never
// fails the caller; fan-out errors are logged.
func (s *Service) Publish(ctx context.Context, event string, payload map[string]any) {
	endpoints, err := s.repo.ListActiveEndpointsForEvent(ctx, event)
	if err != nil {
		s.logger.Error().Err(err).Str("event", event).Msg("list webhook endpoints failed")
		return
	}
	if len(endpoints) == 0 {
		return
	}

	body, err := json.Marshal(map[string]any{
		"event":     event,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"data":      payload,
	})
	if err != nil {
		s.logger.Error().Err(err).Str("event", event).Msg("marshal webhook payload failed")
		return
	}

	for _, endpoint := range endpoints {
		delivery, err := s.repo.CreateDelivery(ctx, Delivery{
			ID:         ulid.Make().String(),
			EndpointID: endpoint.ID,
			Event:      event,
			Payload:    body,
			Status:     DeliveryPending,
			CreatedAt:  time.Now().UTC(),
			UpdatedAt:  time.Now().UTC(),
		})
		if err != nil {
			s.logger.Error().Err(err).Str("endpoint_id", endpoint.ID).Str("event", event).Msg("create webhook delivery failed")
			continue
		}

		if err := s.enqueuer.EnqueueDelivery(ctx, delivery.ID); err != nil {
			s.logger.Error().Err(err).Str("delivery_id", delivery.ID).Msg("enqueue webhook delivery failed")
		}
	}
}

func validateEvents(events []string) error {
	for _, event := range events {
		known := false
		for _, candidate := range KnownEvents {
			if event == candidate {
				known = true
				break
			}
		}
		if !known {
			return fmt.Errorf("%w: %s", ErrUnknownEvent, event)
		}
	}
	return nil
}

func generateSecret() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate webhook secret: %w", err)
	}
	return "whsec_" + hex.EncodeToString(raw), nil
}
