package jobs

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/riverqueue/river"
	"github.com/rs/zerolog"

	"github.com/vitalpages/server/internal/domain/backups"
	"github.com/vitalpages/server/internal/domain/campaigns"
	"github.com/vitalpages/server/internal/domain/webhooks"
)

// WebhookDeliveryArgs schedules one webhook delivery attempt sequence.
type WebhookDeliveryArgs struct {
	DeliveryID string `json:"delivery_id"`
}

func (WebhookDeliveryArgs) Kind() string { return JobKindWebhookDelivery }

// WebhookDeliveryWorker hands deliveries to the webhook deliverer. River owns
// the retry schedule; the worker just reports whether this attempt is final
// so the delivery can be marked failed instead of pending.
type WebhookDeliveryWorker struct {
	river.WorkerDefaults[WebhookDeliveryArgs]
	Deliverer *webhooks.Deliverer
}

func (WebhookDeliveryWorker) Kind() string { return JobKindWebhookDelivery }

func (w WebhookDeliveryWorker) Work(ctx context.Context, job *river.Job[WebhookDeliveryArgs]) error {
	if w.Deliverer == nil {
		return fmt.Errorf("webhook deliverer not configured")
	}
	finalAttempt := job.Attempt >= job.MaxAttempts
	return w.Deliverer.Deliver(ctx, job.Args.DeliveryID, job.Attempt, finalAttempt)
}

// CampaignSendArgs schedules the batch send for a campaign.
type CampaignSendArgs struct {
	CampaignID string `json:"campaign_id"`
}

func (CampaignSendArgs) Kind() string { return JobKindCampaignSend }

// CampaignSendWorker executes a campaign's batch send.
type CampaignSendWorker struct {
	river.WorkerDefaults[CampaignSendArgs]
	Campaigns *campaigns.Service
}

func (CampaignSendWorker) Kind() string { return JobKindCampaignSend }

func (w CampaignSendWorker) Work(ctx context.Context, job *river.Job[CampaignSendArgs]) error {
	if w.Campaigns == nil {
		return fmt.Errorf("campaign service not configured")
	}
	return w.Campaigns.ExecuteSend(ctx, job.Args.CampaignID)
}

// BackupArgs schedules a database backup.
type BackupArgs struct {
	Reason string `json:"reason"`
}

func (BackupArgs) Kind() string { return JobKindBackup }

// BackupWorker runs pg_dump backups.
type BackupWorker struct {
	river.WorkerDefaults[BackupArgs]
	Backups *backups.Service
}

func (BackupWorker) Kind() string { return JobKindBackup }

func (w BackupWorker) Work(ctx context.Context, job *river.Job[BackupArgs]) error {
	if w.Backups == nil {
		return fmt.Errorf("backup service not configured")
	}
	reason := job.Args.Reason
	if reason == "" {
		reason = "scheduled"
	}
	_, err := w.Backups.Run(ctx, reason)
	return err
}

// BackupPruneArgs schedules removal of expired backups.
type BackupPruneArgs struct{}

func (BackupPruneArgs) Kind() string { return JobKindBackupPrune }

// BackupPruneWorker deletes backups past their retention.
type BackupPruneWorker struct {
	river.WorkerDefaults[BackupPruneArgs]
	Backups *backups.Service
	Logger  zerolog.Logger
}

func (BackupPruneWorker) Kind() string { return JobKindBackupPrune }

func (w BackupPruneWorker) Work(ctx context.Context, job *river.Job[BackupPruneArgs]) error {
	if w.Backups == nil {
		return fmt.Errorf("backup service not configured")
	}
	deleted, err := w.Backups.Prune(false)
	if err != nil {
		return err
	}
	if len(deleted) > 0 {
		w.Logger.Info().Int("deleted", len(deleted)).Msg("expired backups pruned")
	}
	return nil
}

// Enqueuer inserts jobs through the River client. It satisfies the domain
// enqueuer interfaces so services never import River directly. Insert options
// come from the same retry policy the client runs with, so per-job attempt
// budgets and the scheduler agree.
type Enqueuer struct {
	client *river.Client[pgx.Tx]
	policy *RetryPolicy
}

func NewEnqueuer(client *river.Client[pgx.Tx], policy *RetryPolicy) *Enqueuer {
	if policy == nil {
		policy = NewRetryPolicy()
	}
	return &Enqueuer{client: client, policy: policy}
}

func (e *Enqueuer) insertOpts(kind string) river.InsertOpts {
	config := e.policy.configFor(kind)
	return river.InsertOpts{MaxAttempts: config.MaxAttempts}
}

// EnqueueDelivery schedules a webhook delivery with durable retries.
func (e *Enqueuer) EnqueueDelivery(ctx context.Context, deliveryID string) error {
	opts := e.insertOpts(JobKindWebhookDelivery)
	_, err := e.client.Insert(ctx, WebhookDeliveryArgs{DeliveryID: deliveryID}, &opts)
	return err
}

// EnqueueCampaignSend schedules a campaign batch send.
func (e *Enqueuer) EnqueueCampaignSend(ctx context.Context, campaignID string) error {
	opts := e.insertOpts(JobKindCampaignSend)
	_, err := e.client.Insert(ctx, CampaignSendArgs{CampaignID: campaignID}, &opts)
	return err
}

// EnqueueBackup schedules an on-demand backup.
func (e *Enqueuer) EnqueueBackup(ctx context.Context, reason string) error {
	opts := e.insertOpts(JobKindBackup)
	opts.Queue = "backups"
	_, err := e.client.Insert(ctx, BackupArgs{Reason: reason}, &opts)
	return err
}
