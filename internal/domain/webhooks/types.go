package webhooks

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// Events the CMS emits to webhook endpoints.
const (
	EventPagePublished   = "page.published"
	EventPostPublished   = "post.published"
	EventContactCreated  = "contact.created"
	EventUserCreated     = "user.created"
	EventBackupCompleted = "backup.completed"
	EventCampaignSent    = "campaign.sent"
)

// KnownEvents lists every event an endpoint may subscribe to.
var KnownEvents = []string{
	EventPagePublished,
	EventPostPublished,
	EventContactCreated,
	EventUserCreated,
	EventBackupCompleted,
	EventCampaignSent,
}

// Delivery statuses.
const (
	DeliveryPending   = "pending"
	DeliveryDelivered = "delivered"
	DeliveryFailed    = "failed"
)

var (
	ErrEndpointNotFound = errors.New("webhook endpoint not found")
	ErrDeliveryNotFound = errors.New("webhook delivery not found")
	ErrUnknownEvent     = errors.New("unknown webhook event")
)

// Endpoint is an outbound callback registration.
type Endpoint struct {
	ID        string
	URL       string
	Secret    string
	Events    []string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SubscribesTo reports whether the endpoint wants the event. An empty event
// list subscribes to everything.
func (e Endpoint) SubscribesTo(event string) bool {
	if len(e.Events) == 0 {
		return true
	}
	for _, candidate := range e.Events {
		if candidate == event {
			return true
		}
	}
	return false
}

// Delivery is one event sent to one endpoint. Retries share the delivery ID.
type Delivery struct {
	ID         string
	EndpointID string
	Event      string
	Payload    json.RawMessage
	Status     string
	Attempts   int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Attempt records a single delivery try.
type Attempt struct {
	ID         string
	DeliveryID string
	EndpointID string
	StatusCode int
	Error      string
	DurationMs int64
	At         time.Time
}

// Repository is the storage contract for endpoints, deliveries and attempts.
type Repository interface {
	CreateEndpoint(ctx context.Context, endpoint Endpoint) (Endpoint, error)
	GetEndpoint(ctx context.Context, id string) (Endpoint, error)
	ListEndpoints(ctx context.Context) ([]Endpoint, error)
	ListActiveEndpointsForEvent(ctx context.Context, event string) ([]Endpoint, error)
	UpdateEndpoint(ctx context.Context, endpoint Endpoint) error
	DeleteEndpoint(ctx context.Context, id string) error

	CreateDelivery(ctx context.Context, delivery Delivery) (Delivery, error)
	GetDelivery(ctx context.Context, id string) (Delivery, error)
	UpdateDeliveryStatus(ctx context.Context, id, status string, attempts int) error
	ListDeliveries(ctx context.Context, endpointID string, limit int) ([]Delivery, error)

	RecordAttempt(ctx context.Context, attempt Attempt) error
	ListAttempts(ctx context.Context, endpointID string, limit int) ([]Attempt, error)
}
