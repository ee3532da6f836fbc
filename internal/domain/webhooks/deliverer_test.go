package webhooks

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWebhookRepo struct {
	mu         sync.Mutex
	endpoints  map[string]Endpoint
	deliveries map[string]Delivery
	attempts   []Attempt
}

func newFakeWebhookRepo() *fakeWebhookRepo {
	return &fakeWebhookRepo{
		endpoints:  map[string]Endpoint{},
		deliveries: map[string]Delivery{},
	}
}

func (f *fakeWebhookRepo) CreateEndpoint(_ context.Context, endpoint Endpoint) (Endpoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.endpoints[endpoint.ID] = endpoint
	return endpoint, nil
}

func (f *fakeWebhookRepo) GetEndpoint(_ context.Context, id string) (Endpoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	endpoint, ok := f.endpoints[id]
	if !ok {
		return Endpoint{}, ErrEndpointNotFound
	}
	return endpoint, nil
}

func (f *fakeWebhookRepo) ListEndpoints(_ context.Context) ([]Endpoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Endpoint, 0, len(f.endpoints))
	for _, e := range f.endpoints {
		out = append(out, e)
	}
	return out, nil
}

func (f *fakeWebhookRepo) ListActiveEndpointsForEvent(_ context.Context, event string) ([]Endpoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Endpoint
	for _, e := range f.endpoints {
		if e.Active && e.SubscribesTo(event) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeWebhookRepo) UpdateEndpoint(_ context.Context, endpoint Endpoint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.endpoints[endpoint.ID] = endpoint
	return nil
}

func (f *fakeWebhookRepo) DeleteEndpoint(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.endpoints, id)
	return nil
}

func (f *fakeWebhookRepo) CreateDelivery(_ context.Context, delivery Delivery) (Delivery, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deliveries[delivery.ID] = delivery
	return delivery, nil
}

func (f *fakeWebhookRepo) GetDelivery(_ context.Context, id string) (Delivery, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delivery, ok := f.deliveries[id]
	if !ok {
		return Delivery{}, ErrDeliveryNotFound
	}
	return delivery, nil
}

func (f *fakeWebhookRepo) UpdateDeliveryStatus(_ context.Context, id, status string, attempts int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delivery, ok := f.deliveries[id]
	if !ok {
		return ErrDeliveryNotFound
	}
	delivery.Status = status
	delivery.Attempts = attempts
	delivery.UpdatedAt = time.Now().UTC()
	f.deliveries[id] = delivery
	return nil
}

func (f *fakeWebhookRepo) ListDeliveries(_ context.Context, endpointID string, limit int) ([]Delivery, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Delivery
	for _, d := range f.deliveries {
		if d.EndpointID == endpointID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakeWebhookRepo) RecordAttempt(_ context.Context, attempt Attempt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts = append(f.attempts, attempt)
	return nil
}

func (f *fakeWebhookRepo) ListAttempts(_ context.Context, endpointID string, limit int) ([]Attempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Attempt
	for _, a := range f.attempts {
		if a.EndpointID == endpointID {
			out = append(out, a)
		}
	}
	return out, nil
}

func seedDelivery(repo *fakeWebhookRepo, url string, active bool) (Endpoint, Delivery) {
	endpoint := Endpoint{
		ID:     "ep-1",
		URL:    url,
		Secret: "whsec_test",
		Active: active,
	}
	repo.endpoints[endpoint.ID] = endpoint

	delivery := Delivery{
		ID:         "dl-1",
		EndpointID: endpoint.ID,
		Event:      EventPagePublished,
		Payload:    json.RawMessage(`{"event":"page.published","data":{"page_id":"p1"}}`),
		Status:     DeliveryPending,
	}
	repo.deliveries[delivery.ID] = delivery
	return endpoint, delivery
}

func TestDeliver_SuccessSignsAndMarksDelivered(t *testing.T) {
	var gotSignature, gotEvent, gotDeliveryID string
	var gotBody []byte

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSignature = r.Header.Get(SignatureHeader)
		gotEvent = r.Header.Get(EventHeader)
		gotDeliveryID = r.Header.Get(DeliveryIDHeader)
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	repo := newFakeWebhookRepo()
	_, delivery := seedDelivery(repo, server.URL, true)

	deliverer := NewDeliverer(repo, time.Second, zerolog.Nop())
	err := deliverer.Deliver(context.Background(), delivery.ID, 1, false)
	require.NoError(t, err)

	assert.Equal(t, EventPagePublished, gotEvent)
	assert.Equal(t, delivery.ID, gotDeliveryID)
	assert.True(t, VerifySignature("whsec_test", gotBody, gotSignature))

	stored, err := repo.GetDelivery(context.Background(), delivery.ID)
	require.NoError(t, err)
	assert.Equal(t, DeliveryDelivered, stored.Status)

	attempts, err := repo.ListAttempts(context.Background(), "ep-1", 10)
	require.NoError(t, err)
	require.Len(t, attempts, 1)
	assert.Equal(t, http.StatusNoContent, attempts[0].StatusCode)
	assert.Empty(t, attempts[0].Error)
}

func TestDeliver_Non2xxReturnsErrorAndStaysPending(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	repo := newFakeWebhookRepo()
	_, delivery := seedDelivery(repo, server.URL, true)

	deliverer := NewDeliverer(repo, time.Second, zerolog.Nop())
	err := deliverer.Deliver(context.Background(), delivery.ID, 1, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")

	stored, _ := repo.GetDelivery(context.Background(), delivery.ID)
	assert.Equal(t, DeliveryPending, stored.Status)

	attempts, _ := repo.ListAttempts(context.Background(), "ep-1", 10)
	require.Len(t, attempts, 1)
	assert.Equal(t, http.StatusBadGateway, attempts[0].StatusCode)
	assert.NotEmpty(t, attempts[0].Error)
}

func TestDeliver_FinalAttemptMarksFailed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	repo := newFakeWebhookRepo()
	_, delivery := seedDelivery(repo, server.URL, true)

	deliverer := NewDeliverer(repo, time.Second, zerolog.Nop())
	err := deliverer.Deliver(context.Background(), delivery.ID, 8, true)
	require.Error(t, err)

	stored, _ := repo.GetDelivery(context.Background(), delivery.ID)
	assert.Equal(t, DeliveryFailed, stored.Status)
}

func TestDeliver_InactiveEndpointDropsDelivery(t *testing.T) {
	repo := newFakeWebhookRepo()
	_, delivery := seedDelivery(repo, "http://unused.invalid", false)

	deliverer := NewDeliverer(repo, time.Second, zerolog.Nop())
	err := deliverer.Deliver(context.Background(), delivery.ID, 2, false)
	require.NoError(t, err)

	stored, _ := repo.GetDelivery(context.Background(), delivery.ID)
	assert.Equal(t, DeliveryFailed, stored.Status)

	attempts, _ := repo.ListAttempts(context.Background(), "ep-1", 10)
	assert.Empty(t, attempts)
}

func TestDeliver_AlreadyDeliveredIsNoOp(t *testing.T) {
	repo := newFakeWebhookRepo()
	_, delivery := seedDelivery(repo, "http://unused.invalid", true)
	require.NoError(t, repo.UpdateDeliveryStatus(context.Background(), delivery.ID, DeliveryDelivered, 1))

	deliverer := NewDeliverer(repo, time.Second, zerolog.Nop())
	assert.NoError(t, deliverer.Deliver(context.Background(), delivery.ID, 2, false))
}
