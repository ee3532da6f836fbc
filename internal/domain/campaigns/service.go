package campaigns

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/vitalpages/server/internal/sanitize"
)

const (
	// sendConcurrency bounds parallel sends within a campaign.
	sendConcurrency = 4
	// sendsPerSecond keeps a campaign under the email provider's rate limit.
	sendsPerSecond = 10
)

// MessageSender delivers one campaign email.
type MessageSender interface {
	SendCampaignMessage(ctx context.Context, to, subject, htmlBody string) error
}

// SendEnqueuer schedules the background send job for a campaign.
type SendEnqueuer interface {
	EnqueueCampaignSend(ctx context.Context, campaignID string) error
}

// Publisher receives campaign lifecycle events (webhook fan-out).
type Publisher interface {
	Publish(ctx context.Context, event string, payload map[string]any)
}

// Service manages email campaigns. Sends run in the job queue; SendCampaign
// only validates and flips the campaign into the sending state.
type Service struct {
	repo      Repository
	sender    MessageSender
	enqueuer  SendEnqueuer
	publisher Publisher
	limiter   *rate.Limiter
	logger    zerolog.Logger
}

func NewService(repo Repository, sender MessageSender, enqueuer SendEnqueuer, publisher Publisher, logger zerolog.Logger) *Service {
	return &Service{
		repo:      repo,
		sender:    sender,
		enqueuer:  enqueuer,
		publisher: publisher,
		limiter:   rate.NewLimiter(rate.Limit(sendsPerSecond), sendsPerSecond),
		logger:    logger.With().Str("component", "campaigns").Logger(),
	}
}

// CreateCampaignParams contains fields for a new draft campaign.
type CreateCampaignParams struct {
	Name       string
	Subject    string
	Body       string
	Recipients []string
	CreatedBy  string
}

func (s *Service) CreateCampaign(ctx context.Context, params CreateCampaignParams) (Campaign, error) {
	recipients, err := validateRecipients(params.Recipients)
	if err != nil {
		return Campaign{}, err
	}

	now := time.Now().UTC()
	campaign := Campaign{
		ID:         ulid.Make().String(),
		Name:       sanitize.Text(params.Name),
		Subject:    sanitize.Text(params.Subject),
		Body:       sanitize.HTML(params.Body),
		Recipients: recipients,
		Status:     StatusDraft,
		CreatedBy:  params.CreatedBy,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	return s.repo.CreateCampaign(ctx, campaign)
}

// UpdateCampaignParams contains mutable campaign fields.
type UpdateCampaignParams struct {
	Name       string
	Subject    string
	Body       string
	Recipients []string
}

func (s *Service) UpdateCampaign(ctx context.Context, id string, params UpdateCampaignParams) (Campaign, error) {
	campaign, err := s.repo.GetCampaign(ctx, id)
	if err != nil {
		return Campaign{}, err
	}
	if campaign.Status != StatusDraft {
		return Campaign{}, ErrNotDraft
	}

	recipients, err := validateRecipients(params.Recipients)
	if err != nil {
		return Campaign{}, err
	}

	campaign.Name = sanitize.Text(params.Name)
	campaign.Subject = sanitize.Text(params.Subject)
	campaign.Body = sanitize.HTML(params.Body)
	campaign.Recipients = recipients
	campaign.UpdatedAt = time.Now().UTC()

	if err := s.repo.UpdateCampaign(ctx, campaign); err != nil {
		return Campaign{}, fmt.Errorf("update campaign: %w", err)
	}
	return campaign, nil
}

func (s *Service) GetCampaign(ctx context.Context, id string) (Campaign, error) {
	return s.repo.GetCampaign(ctx, id)
}

func (s *Service) ListCampaigns(ctx context.Context, limit, offset int) ([]Campaign, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.repo.ListCampaigns(ctx, limit, offset)
}

func (s *Service) DeleteCampaign(ctx context.Context, id string) error {
	campaign, err := s.repo.GetCampaign(ctx, id)
	if err != nil {
		return err
	}
	if campaign.Status == StatusSending {
		return fmt.Errorf("campaign is currently sending")
	}
	return s.repo.DeleteCampaign(ctx, id)
}

// SendCampaign validates the draft and schedules the background send.
func (s *Service) SendCampaign(ctx context.Context, id string) error {
	campaign, err := s.repo.GetCampaign(ctx, id)
	if err != nil {
		return err
	}
	if campaign.Status != StatusDraft {
		return ErrNotDraft
	}
	if len(campaign.Recipients) == 0 {
		return ErrNoRecipients
	}

	campaign.Status = StatusSending
	campaign.UpdatedAt = time.Now().UTC()
	if err := s.repo.UpdateCampaign(ctx, campaign); err != nil {
		return fmt.Errorf("mark campaign sending: %w", err)
	}

	if err := s.enqueuer.EnqueueCampaignSend(ctx, campaign.ID); err != nil {
		return fmt.Errorf("enqueue campaign send: %w", err)
	}

	s.logger.Info().Str("campaign_id", campaign.ID).Int("recipients", len(campaign.Recipients)).Msg("campaign send scheduled")
	return nil
}

// ExecuteSend delivers the campaign to every recipient. It runs inside the
// job worker, bounded by concurrency and a provider-friendly rate limit.
// Per-recipient failures are recorded and do not stop the batch.
func (s *Service) ExecuteSend(ctx context.Context, campaignID string) error {
	campaign, err := s.repo.GetCampaign(ctx, campaignID)
	if err != nil {
		return err
	}
	if campaign.Status == StatusSent {
		return nil
	}

	var group errgroup.Group
	group.SetLimit(sendConcurrency)

	failures := make([]bool, len(campaign.Recipients))
	for i, recipient := range campaign.Recipients {
		group.Go(func() error {
			if err := s.limiter.Wait(ctx); err != nil {
				return err
			}

			sendErr := s.sender.SendCampaignMessage(ctx, recipient, campaign.Subject, campaign.Body)
			errMsg := ""
			if sendErr != nil {
				errMsg = sendErr.Error()
				failures[i] = true
				s.logger.Warn().Err(sendErr).Str("campaign_id", campaign.ID).Str("recipient", recipient).Msg("campaign message failed")
			}

			if recordErr := s.repo.RecordSendResult(ctx, SendResult{
				ID:         ulid.Make().String(),
				CampaignID: campaign.ID,
				Recipient:  recipient,
				Delivered:  sendErr == nil,
				Error:      errMsg,
				SentAt:     time.Now().UTC(),
			}); recordErr != nil {
				return recordErr
			}
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return fmt.Errorf("campaign send aborted: %w", err)
	}

	failed := 0
	for _, f := range failures {
		if f {
			failed++
		}
	}

	now := time.Now().UTC()
	campaign.SentAt = now
	campaign.UpdatedAt = now
	campaign.Status = StatusSent
	if failed == len(campaign.Recipients) {
		campaign.Status = StatusFailed
	}
	if err := s.repo.UpdateCampaign(ctx, campaign); err != nil {
		return fmt.Errorf("mark campaign sent: %w", err)
	}

	if s.publisher != nil {
		s.publisher.Publish(ctx, "campaign.sent", map[string]any{
			"campaign_id": campaign.ID,
			"recipients":  len(campaign.Recipients),
			"failed":      failed,
		})
	}

	s.logger.Info().
		Str("campaign_id", campaign.ID).
		Int("recipients", len(campaign.Recipients)).
		Int("failed", failed).
		Msg("campaign send finished")
	return nil
}

func (s *Service) ListSendResults(ctx context.Context, campaignID string) ([]SendResult, error) {
	if _, err := s.repo.GetCampaign(ctx, campaignID); err != nil {
		return nil, err
	}
	return s.repo.ListSendResults(ctx, campaignID)
}

func validateRecipients(recipients []string) ([]string, error) {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(recipients))
	for _, r := range recipients {
		addr, err := mail.ParseAddress(r)
		if err != nil {
			return nil, fmt.Errorf("invalid recipient %q", r)
		}
		if _, dup := seen[addr.Address]; dup {
			continue
		}
		seen[addr.Address] = struct{}{}
		out = append(out, addr.Address)
	}
	return out, nil
}
