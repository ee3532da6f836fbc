package jobs

import (
	"testing"
	"time"

	"github.com/riverqueue/river/rivertype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryPolicy_WebhookBackoffDoubles(t *testing.T) {
	policy := NewRetryPolicy()
	attempted := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	expected := []time.Duration{
		30 * time.Second,
		1 * time.Minute,
		2 * time.Minute,
		4 * time.Minute,
		8 * time.Minute,
		16 * time.Minute,
		32 * time.Minute,
		1 * time.Hour, // capped
	}

	for attempt := 1; attempt <= WebhookDeliveryMaxAttempts; attempt++ {
		job := &rivertype.JobRow{
			Kind:        JobKindWebhookDelivery,
			Attempt:     attempt,
			AttemptedAt: &attempted,
		}
		next := policy.NextRetry(job)
		assert.Equal(t, attempted.Add(expected[attempt-1]), next, "attempt %d", attempt)
	}
}

func TestRetryPolicy_BackupDelayIsFlat(t *testing.T) {
	policy := NewRetryPolicy()
	attempted := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for _, attempt := range []int{1, 2} {
		job := &rivertype.JobRow{
			Kind:        JobKindBackup,
			Attempt:     attempt,
			AttemptedAt: &attempted,
		}
		next := policy.NextRetry(job)
		assert.Equal(t, attempted.Add(5*time.Minute), next)
	}
}

func TestRetryPolicy_UnknownKindUsesDefault(t *testing.T) {
	policy := NewRetryPolicy()
	attempted := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	job := &rivertype.JobRow{Kind: "mystery", Attempt: 1, AttemptedAt: &attempted}
	next := policy.NextRetry(job)
	assert.Equal(t, attempted.Add(30*time.Second), next)
}

func TestRetryPolicy_ZeroAttemptTreatedAsFirst(t *testing.T) {
	policy := NewRetryPolicy()
	attempted := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	job := &rivertype.JobRow{Kind: JobKindCampaignSend, Attempt: 0, AttemptedAt: &attempted}
	next := policy.NextRetry(job)
	assert.Equal(t, attempted.Add(1*time.Minute), next)
}

func TestInsertOptsForKind(t *testing.T) {
	assert.Equal(t, WebhookDeliveryMaxAttempts, InsertOptsForKind(JobKindWebhookDelivery).MaxAttempts)
	assert.Equal(t, CampaignSendMaxAttempts, InsertOptsForKind(JobKindCampaignSend).MaxAttempts)
	assert.Equal(t, BackupMaxAttempts, InsertOptsForKind(JobKindBackup).MaxAttempts)
	assert.Equal(t, 3, InsertOptsForKind("mystery").MaxAttempts)
}

func TestNewClientConfig_QueueLayout(t *testing.T) {
	config := NewClientConfig(nil, nil, nil, nil, nil)
	require.NotNil(t, config)

	assert.Equal(t, 10, config.Queues["default"].MaxWorkers)
	assert.Equal(t, 1, config.Queues["backups"].MaxWorkers)
	assert.NotNil(t, config.RetryPolicy)
}

func TestRetryPolicy_WithWebhookMaxAttempts(t *testing.T) {
	policy := NewRetryPolicy().WithWebhookMaxAttempts(3)
	assert.Equal(t, 3, policy.ByKind[JobKindWebhookDelivery].MaxAttempts)

	// Backoff schedule is untouched.
	assert.Equal(t, 30*time.Second, policy.ByKind[JobKindWebhookDelivery].BaseDelay)

	// Other kinds keep their budgets.
	assert.Equal(t, CampaignSendMaxAttempts, policy.ByKind[JobKindCampaignSend].MaxAttempts)

	// Zero and negative values keep the default.
	assert.Equal(t, WebhookDeliveryMaxAttempts,
		NewRetryPolicy().WithWebhookMaxAttempts(0).ByKind[JobKindWebhookDelivery].MaxAttempts)
	assert.Equal(t, WebhookDeliveryMaxAttempts,
		NewRetryPolicy().WithWebhookMaxAttempts(-1).ByKind[JobKindWebhookDelivery].MaxAttempts)
}

func TestEnqueuerInsertOptsFollowPolicy(t *testing.T) {
	e := NewEnqueuer(nil, NewRetryPolicy().WithWebhookMaxAttempts(4))
	assert.Equal(t, 4, e.insertOpts(JobKindWebhookDelivery).MaxAttempts)
	assert.Equal(t, CampaignSendMaxAttempts, e.insertOpts(JobKindCampaignSend).MaxAttempts)

	// A nil policy falls back to the defaults.
	assert.Equal(t, WebhookDeliveryMaxAttempts, NewEnqueuer(nil, nil).insertOpts(JobKindWebhookDelivery).MaxAttempts)
}

func TestJobArgKinds(t *testing.T) {
	assert.Equal(t, JobKindWebhookDelivery, WebhookDeliveryArgs{}.Kind())
	assert.Equal(t, JobKindCampaignSend, CampaignSendArgs{}.Kind())
	assert.Equal(t, JobKindBackup, BackupArgs{}.Kind())
	assert.Equal(t, JobKindBackupPrune, BackupPruneArgs{}.Kind())
}
