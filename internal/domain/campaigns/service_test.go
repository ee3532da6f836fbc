package campaigns

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCampaignRepo struct {
	mu        sync.Mutex
	campaigns map[string]Campaign
	results   []SendResult
}

func newFakeCampaignRepo() *fakeCampaignRepo {
	return &fakeCampaignRepo{campaigns: map[string]Campaign{}}
}

func (f *fakeCampaignRepo) CreateCampaign(_ context.Context, campaign Campaign) (Campaign, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.campaigns[campaign.ID] = campaign
	return campaign, nil
}

func (f *fakeCampaignRepo) GetCampaign(_ context.Context, id string) (Campaign, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.campaigns[id]
	if !ok {
		return Campaign{}, ErrCampaignNotFound
	}
	return c, nil
}

func (f *fakeCampaignRepo) UpdateCampaign(_ context.Context, campaign Campaign) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.campaigns[campaign.ID] = campaign
	return nil
}

func (f *fakeCampaignRepo) DeleteCampaign(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.campaigns, id)
	return nil
}

func (f *fakeCampaignRepo) ListCampaigns(_ context.Context, limit, offset int) ([]Campaign, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Campaign, 0, len(f.campaigns))
	for _, c := range f.campaigns {
		out = append(out, c)
	}
	return out, len(out), nil
}

func (f *fakeCampaignRepo) RecordSendResult(_ context.Context, result SendResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results = append(f.results, result)
	return nil
}

func (f *fakeCampaignRepo) ListSendResults(_ context.Context, campaignID string) ([]SendResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []SendResult
	for _, r := range f.results {
		if r.CampaignID == campaignID {
			out = append(out, r)
		}
	}
	return out, nil
}

type fakeSender struct {
	mu      sync.Mutex
	sent    []string
	failFor map[string]bool
}

func (f *fakeSender) SendCampaignMessage(_ context.Context, to, _, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFor[to] {
		return fmt.Errorf("provider rejected %s", to)
	}
	f.sent = append(f.sent, to)
	return nil
}

type fakeSendEnqueuer struct {
	mu  sync.Mutex
	ids []string
}

func (f *fakeSendEnqueuer) EnqueueCampaignSend(_ context.Context, campaignID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ids = append(f.ids, campaignID)
	return nil
}

type capturingPublisher struct {
	mu     sync.Mutex
	events []string
}

func (c *capturingPublisher) Publish(_ context.Context, event string, _ map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
}

func TestCreateCampaign_ValidatesAndDedupesRecipients(t *testing.T) {
	svc := NewService(newFakeCampaignRepo(), &fakeSender{}, &fakeSendEnqueuer{}, nil, zerolog.Nop())
	ctx := context.Background()

	campaign, err := svc.CreateCampaign(ctx, CreateCampaignParams{
		Name:       "Flu shots",
		Subject:    "Flu shots available",
		Body:       "<p>Book now</p>",
		Recipients: []string{"a@example.com", "b@example.com", "a@example.com"},
	})
	require.NoError(t, err)
	assert.Equal(t, StatusDraft, campaign.Status)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, campaign.Recipients)

	_, err = svc.CreateCampaign(ctx, CreateCampaignParams{
		Name:       "Bad",
		Subject:    "x",
		Recipients: []string{"not-an-email"},
	})
	assert.Error(t, err)
}

func TestSendCampaign_SchedulesJobOnce(t *testing.T) {
	repo := newFakeCampaignRepo()
	enqueuer := &fakeSendEnqueuer{}
	svc := NewService(repo, &fakeSender{}, enqueuer, nil, zerolog.Nop())
	ctx := context.Background()

	campaign, err := svc.CreateCampaign(ctx, CreateCampaignParams{
		Name:       "News",
		Subject:    "News",
		Body:       "x",
		Recipients: []string{"a@example.com"},
	})
	require.NoError(t, err)

	require.NoError(t, svc.SendCampaign(ctx, campaign.ID))
	assert.Equal(t, []string{campaign.ID}, enqueuer.ids)

	// Already sending: a second send is rejected.
	assert.ErrorIs(t, svc.SendCampaign(ctx, campaign.ID), ErrNotDraft)
}

func TestSendCampaign_RequiresRecipients(t *testing.T) {
	svc := NewService(newFakeCampaignRepo(), &fakeSender{}, &fakeSendEnqueuer{}, nil, zerolog.Nop())
	ctx := context.Background()

	campaign, err := svc.CreateCampaign(ctx, CreateCampaignParams{Name: "Empty", Subject: "x", Body: "y"})
	require.NoError(t, err)
	assert.ErrorIs(t, svc.SendCampaign(ctx, campaign.ID), ErrNoRecipients)
}

func TestExecuteSend_RecordsPerRecipientResults(t *testing.T) {
	repo := newFakeCampaignRepo()
	sender := &fakeSender{failFor: map[string]bool{"bad@example.com": true}}
	publisher := &capturingPublisher{}
	svc := NewService(repo, sender, &fakeSendEnqueuer{}, publisher, zerolog.Nop())
	ctx := context.Background()

	campaign, err := svc.CreateCampaign(ctx, CreateCampaignParams{
		Name:       "Mixed",
		Subject:    "Mixed",
		Body:       "x",
		Recipients: []string{"ok@example.com", "bad@example.com", "also-ok@example.com"},
	})
	require.NoError(t, err)
	require.NoError(t, svc.SendCampaign(ctx, campaign.ID))
	require.NoError(t, svc.ExecuteSend(ctx, campaign.ID))

	sent, err := svc.GetCampaign(ctx, campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusSent, sent.Status)
	assert.False(t, sent.SentAt.IsZero())

	results, err := svc.ListSendResults(ctx, campaign.ID)
	require.NoError(t, err)
	require.Len(t, results, 3)

	delivered := 0
	for _, r := range results {
		if r.Delivered {
			delivered++
		} else {
			assert.Equal(t, "bad@example.com", r.Recipient)
			assert.NotEmpty(t, r.Error)
		}
	}
	assert.Equal(t, 2, delivered)
	assert.Equal(t, []string{"campaign.sent"}, publisher.events)
}

func TestExecuteSend_AllFailuresMarksFailed(t *testing.T) {
	repo := newFakeCampaignRepo()
	sender := &fakeSender{failFor: map[string]bool{"a@example.com": true, "b@example.com": true}}
	svc := NewService(repo, sender, &fakeSendEnqueuer{}, nil, zerolog.Nop())
	ctx := context.Background()

	campaign, err := svc.CreateCampaign(ctx, CreateCampaignParams{
		Name:       "Doomed",
		Subject:    "x",
		Body:       "y",
		Recipients: []string{"a@example.com", "b@example.com"},
	})
	require.NoError(t, err)
	require.NoError(t, svc.SendCampaign(ctx, campaign.ID))
	require.NoError(t, svc.ExecuteSend(ctx, campaign.ID))

	failed, err := svc.GetCampaign(ctx, campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, failed.Status)
}

func TestExecuteSend_IdempotentAfterSent(t *testing.T) {
	repo := newFakeCampaignRepo()
	sender := &fakeSender{}
	svc := NewService(repo, sender, &fakeSendEnqueuer{}, nil, zerolog.Nop())
	ctx := context.Background()

	campaign, err := svc.CreateCampaign(ctx, CreateCampaignParams{
		Name:       "Once",
		Subject:    "x",
		Body:       "y",
		Recipients: []string{"a@example.com"},
	})
	require.NoError(t, err)
	require.NoError(t, svc.SendCampaign(ctx, campaign.ID))
	require.NoError(t, svc.ExecuteSend(ctx, campaign.ID))
	require.NoError(t, svc.ExecuteSend(ctx, campaign.ID))

	results, err := svc.ListSendResults(ctx, campaign.ID)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}
