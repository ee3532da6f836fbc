package jobs

import (
	"log/slog"
	"math"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivertype"
)

const (
	JobKindWebhookDelivery = "webhook_delivery"
	JobKindCampaignSend    = "campaign_send"
	JobKindBackup          = "backup"
	JobKindBackupPrune     = "backup_prune"
)

const (
	WebhookDeliveryMaxAttempts = 8
	CampaignSendMaxAttempts    = 3
	BackupMaxAttempts          = 2
)

// RetryConfig controls per-kind retry behavior.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// RetryPolicy implements River's ClientRetryPolicy with per-kind exponential
// backoff.
type RetryPolicy struct {
	Default RetryConfig
	ByKind  map[string]RetryConfig
}

// NewRetryPolicy returns the default retry policy configuration. Webhook
// deliveries back off from 30 seconds up to an hour across 8 attempts.
func NewRetryPolicy() *RetryPolicy {
	return &RetryPolicy{
		Default: RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   30 * time.Second,
			MaxDelay:    30 * time.Minute,
		},
		ByKind: map[string]RetryConfig{
			JobKindWebhookDelivery: {
				MaxAttempts: WebhookDeliveryMaxAttempts,
				BaseDelay:   30 * time.Second,
				MaxDelay:    1 * time.Hour,
			},
			JobKindCampaignSend: {
				MaxAttempts: CampaignSendMaxAttempts,
				BaseDelay:   1 * time.Minute,
				MaxDelay:    15 * time.Minute,
			},
			JobKindBackup: {
				MaxAttempts: BackupMaxAttempts,
				BaseDelay:   5 * time.Minute,
				MaxDelay:    5 * time.Minute,
			},
		},
	}
}

// WithWebhookMaxAttempts overrides the delivery attempt budget from
// configuration. Zero or negative keeps the default.
func (p *RetryPolicy) WithWebhookMaxAttempts(n int) *RetryPolicy {
	if n > 0 {
		config := p.ByKind[JobKindWebhookDelivery]
		config.MaxAttempts = n
		p.ByKind[JobKindWebhookDelivery] = config
	}
	return p
}

// NextRetry determines the next retry time for a failed job.
func (p *RetryPolicy) NextRetry(job *rivertype.JobRow) time.Time {
	config := p.configFor(job.Kind)
	if config.BaseDelay == 0 {
		return time.Now()
	}

	attempt := job.Attempt
	if attempt < 1 {
		attempt = 1
	}

	delay := time.Duration(float64(config.BaseDelay) * math.Pow(2, float64(attempt-1)))
	if config.MaxDelay > 0 && delay > config.MaxDelay {
		delay = config.MaxDelay
	}

	if job.AttemptedAt != nil {
		return job.AttemptedAt.Add(delay)
	}
	return time.Now().Add(delay)
}

// InsertOptsForKind returns default insert options for a job kind.
func InsertOptsForKind(kind string) river.InsertOpts {
	config := NewRetryPolicy().configFor(kind)
	return river.InsertOpts{MaxAttempts: config.MaxAttempts}
}

// NewClientConfig builds a River client configuration. A nil policy uses the
// defaults.
func NewClientConfig(workers *river.Workers, logger *slog.Logger, hooks []rivertype.Hook, periodicJobs []*river.PeriodicJob, policy *RetryPolicy) *river.Config {
	if policy == nil {
		policy = NewRetryPolicy()
	}
	config := &river.Config{
		Workers:      workers,
		RetryPolicy:  policy,
		MaxAttempts:  policy.Default.MaxAttempts,
		PeriodicJobs: periodicJobs,
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: 10},
			// Backups are heavyweight; one at a time.
			"backups": {MaxWorkers: 1},
		},
		Hooks: hooks,
	}
	if logger != nil {
		config.Logger = logger
	}
	return config
}

// NewClient creates a River client using pgx v5.
func NewClient(pool *pgxpool.Pool, workers *river.Workers, logger *slog.Logger, hooks []rivertype.Hook, periodicJobs []*river.PeriodicJob, policy *RetryPolicy) (*river.Client[pgx.Tx], error) {
	return river.NewClient(riverpgxv5.New(pool), NewClientConfig(workers, logger, hooks, periodicJobs, policy))
}

// NewPeriodicJobs creates the recurring schedule: a nightly backup and a
// nightly prune of expired backups.
func NewPeriodicJobs(backupInterval time.Duration) []*river.PeriodicJob {
	if backupInterval <= 0 {
		backupInterval = 24 * time.Hour
	}
	return []*river.PeriodicJob{
		river.NewPeriodicJob(
			river.PeriodicInterval(backupInterval),
			func() (river.JobArgs, *river.InsertOpts) {
				return BackupArgs{Reason: "scheduled"}, &river.InsertOpts{Queue: "backups"}
			},
			&river.PeriodicJobOpts{RunOnStart: false},
		),
		river.NewPeriodicJob(
			river.PeriodicInterval(24*time.Hour),
			func() (river.JobArgs, *river.InsertOpts) {
				return BackupPruneArgs{}, nil
			},
			&river.PeriodicJobOpts{RunOnStart: false},
		),
	}
}

func (p *RetryPolicy) configFor(kind string) RetryConfig {
	if p == nil {
		return RetryConfig{MaxAttempts: 3, BaseDelay: 30 * time.Second, MaxDelay: 30 * time.Minute}
	}
	if config, ok := p.ByKind[kind]; ok {
		return config
	}
	return p.Default
}
