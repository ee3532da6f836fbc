package campaigns

import (
	"context"
	"errors"
	"time"
)

var (
	ErrCampaignNotFound = errors.New("campaign not found")
	ErrNotDraft         = errors.New("campaign has already been sent")
	ErrNoRecipients     = errors.New("campaign has no recipients")
)

const (
	StatusDraft   = "draft"
	StatusSending = "sending"
	StatusSent    = "sent"
	StatusFailed  = "failed"
)

// Campaign is an email blast to a recipient list.
type Campaign struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Subject    string    `json:"subject"`
	Body       string    `json:"body"`
	Recipients []string  `json:"recipients"`
	Status     string    `json:"status"`
	CreatedBy  string    `json:"created_by"`
	SentAt     time.Time `json:"sent_at,omitzero"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// SendResult records the outcome for one recipient.
type SendResult struct {
	ID         string    `json:"id"`
	CampaignID string    `json:"campaign_id"`
	Recipient  string    `json:"recipient"`
	Delivered  bool      `json:"delivered"`
	Error      string    `json:"error,omitempty"`
	SentAt     time.Time `json:"sent_at"`
}

// Repository is the persistence contract for campaigns.
type Repository interface {
	CreateCampaign(ctx context.Context, campaign Campaign) (Campaign, error)
	GetCampaign(ctx context.Context, id string) (Campaign, error)
	UpdateCampaign(ctx context.Context, campaign Campaign) error
	DeleteCampaign(ctx context.Context, id string) error
	ListCampaigns(ctx context.Context, limit, offset int) ([]Campaign, int, error)

	RecordSendResult(ctx context.Context, result SendResult) error
	ListSendResults(ctx context.Context, campaignID string) ([]SendResult, error)
}
