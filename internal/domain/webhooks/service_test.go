package webhooks

import (
	"context"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEnqueuer struct {
	mu  sync.Mutex
	ids []string
}

func (f *fakeEnqueuer) EnqueueDelivery(_ context.Context, deliveryID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ids = append(f.ids, deliveryID)
	return nil
}

func TestCreateEndpoint_GeneratesSecret(t *testing.T) {
	svc := NewService(newFakeWebhookRepo(), &fakeEnqueuer{}, false, zerolog.Nop())

	endpoint, err := svc.CreateEndpoint(context.Background(), CreateEndpointParams{
		URL:    "https://hooks.example.com/cms",
		Events: []string{EventPagePublished, EventContactCreated},
	})
	require.NoError(t, err)

	assert.True(t, endpoint.Active)
	assert.Contains(t, endpoint.Secret, "whsec_")
	assert.Len(t, endpoint.Secret, len("whsec_")+64)
}

func TestCreateEndpoint_RejectsPrivateTarget(t *testing.T) {
	svc := NewService(newFakeWebhookRepo(), &fakeEnqueuer{}, false, zerolog.Nop())

	_, err := svc.CreateEndpoint(context.Background(), CreateEndpointParams{URL: "http://10.0.0.5/hook"})
	assert.Error(t, err)
}

func TestCreateEndpoint_RejectsUnknownEvent(t *testing.T) {
	svc := NewService(newFakeWebhookRepo(), &fakeEnqueuer{}, false, zerolog.Nop())

	_, err := svc.CreateEndpoint(context.Background(), CreateEndpointParams{
		URL:    "https://hooks.example.com/cms",
		Events: []string{"page.exploded"},
	})
	assert.ErrorIs(t, err, ErrUnknownEvent)
}

func TestPublish_FansOutToSubscribedEndpoints(t *testing.T) {
	repo := newFakeWebhookRepo()
	enqueuer := &fakeEnqueuer{}
	svc := NewService(repo, enqueuer, false, zerolog.Nop())
	ctx := context.Background()

	subscribed, err := svc.CreateEndpoint(ctx, CreateEndpointParams{
		URL:    "https://hooks.example.com/pages",
		Events: []string{EventPagePublished},
	})
	require.NoError(t, err)

	catchAll, err := svc.CreateEndpoint(ctx, CreateEndpointParams{
		URL: "https://hooks.example.com/all",
	})
	require.NoError(t, err)

	_, err = svc.CreateEndpoint(ctx, CreateEndpointParams{
		URL:    "https://hooks.example.com/contacts",
		Events: []string{EventContactCreated},
	})
	require.NoError(t, err)

	svc.Publish(ctx, EventPagePublished, map[string]any{"page_id": "p1"})

	assert.Len(t, enqueuer.ids, 2)

	forSubscribed, err := repo.ListDeliveries(ctx, subscribed.ID, 10)
	require.NoError(t, err)
	require.Len(t, forSubscribed, 1)
	assert.Equal(t, EventPagePublished, forSubscribed[0].Event)
	assert.Equal(t, DeliveryPending, forSubscribed[0].Status)
	assert.Contains(t, string(forSubscribed[0].Payload), `"page_id":"p1"`)

	forCatchAll, err := repo.ListDeliveries(ctx, catchAll.ID, 10)
	require.NoError(t, err)
	assert.Len(t, forCatchAll, 1)
}

func TestPublish_SkipsInactiveEndpoints(t *testing.T) {
	repo := newFakeWebhookRepo()
	enqueuer := &fakeEnqueuer{}
	svc := NewService(repo, enqueuer, false, zerolog.Nop())
	ctx := context.Background()

	endpoint, err := svc.CreateEndpoint(ctx, CreateEndpointParams{URL: "https://hooks.example.com/cms"})
	require.NoError(t, err)

	_, err = svc.UpdateEndpoint(ctx, endpoint.ID, UpdateEndpointParams{
		URL:    endpoint.URL,
		Events: endpoint.Events,
		Active: false,
	})
	require.NoError(t, err)

	svc.Publish(ctx, EventPagePublished, map[string]any{"page_id": "p1"})
	assert.Empty(t, enqueuer.ids)
}
