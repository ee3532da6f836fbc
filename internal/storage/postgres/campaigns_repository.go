package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vitalpages/server/internal/domain/campaigns"
)

type CampaignRepository struct {
	pool *pgxpool.Pool
	tx   pgx.Tx
}

const campaignColumns = `id, name, subject, body, recipients, status, created_by, sent_at, created_at, updated_at`

func (r *CampaignRepository) CreateCampaign(ctx context.Context, campaign campaigns.Campaign) (campaigns.Campaign, error) {
	q := pick(r.pool, r.tx)
	_, err := q.Exec(ctx, `
INSERT INTO campaigns (id, name, subject, body, recipients, status, created_by, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
`, campaign.ID, campaign.Name, campaign.Subject, campaign.Body, campaign.Recipients,
		campaign.Status, campaign.CreatedBy, campaign.CreatedAt, campaign.UpdatedAt)
	if err != nil {
		return campaigns.Campaign{}, fmt.Errorf("create campaign: %w", err)
	}
	return campaign, nil
}

func (r *CampaignRepository) GetCampaign(ctx context.Context, id string) (campaigns.Campaign, error) {
	q := pick(r.pool, r.tx)
	row := q.QueryRow(ctx, `SELECT `+campaignColumns+` FROM campaigns WHERE id = $1`, id)
	return scanCampaign(row)
}

func (r *CampaignRepository) UpdateCampaign(ctx context.Context, campaign campaigns.Campaign) error {
	q := pick(r.pool, r.tx)
	var sentAt *time.Time
	if !campaign.SentAt.IsZero() {
		sentAt = &campaign.SentAt
	}
	tag, err := q.Exec(ctx, `
UPDATE campaigns
   SET name = $2,
       subject = $3,
       body = $4,
       recipients = $5,
       status = $6,
       sent_at = $7,
       updated_at = $8
 WHERE id = $1
`, campaign.ID, campaign.Name, campaign.Subject, campaign.Body, campaign.Recipients,
		campaign.Status, sentAt, campaign.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update campaign: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return campaigns.ErrCampaignNotFound
	}
	return nil
}

func (r *CampaignRepository) DeleteCampaign(ctx context.Context, id string) error {
	q := pick(r.pool, r.tx)
	tag, err := q.Exec(ctx, `DELETE FROM campaigns WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete campaign: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return campaigns.ErrCampaignNotFound
	}
	return nil
}

func (r *CampaignRepository) ListCampaigns(ctx context.Context, limit, offset int) ([]campaigns.Campaign, int, error) {
	q := pick(r.pool, r.tx)

	var total int
	if err := q.QueryRow(ctx, `SELECT count(*) FROM campaigns`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count campaigns: %w", err)
	}

	if limit <= 0 {
		limit = 50
	}
	rows, err := q.Query(ctx, `
SELECT `+campaignColumns+`
  FROM campaigns
 ORDER BY created_at DESC
 LIMIT $1 OFFSET $2
`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list campaigns: %w", err)
	}
	defer rows.Close()

	var result []campaigns.Campaign
	for rows.Next() {
		campaign, err := scanCampaign(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, campaign)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list campaigns: %w", err)
	}
	return result, total, nil
}

func (r *CampaignRepository) RecordSendResult(ctx context.Context, result campaigns.SendResult) error {
	q := pick(r.pool, r.tx)
	_, err := q.Exec(ctx, `
INSERT INTO campaign_send_results (id, campaign_id, recipient, delivered, error, sent_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (campaign_id, recipient) DO UPDATE
   SET delivered = EXCLUDED.delivered,
       error = EXCLUDED.error,
       sent_at = EXCLUDED.sent_at
`, result.ID, result.CampaignID, result.Recipient, result.Delivered, result.Error, result.SentAt)
	if err != nil {
		return fmt.Errorf("record send result: %w", err)
	}
	return nil
}

func (r *CampaignRepository) ListSendResults(ctx context.Context, campaignID string) ([]campaigns.SendResult, error) {
	q := pick(r.pool, r.tx)
	rows, err := q.Query(ctx, `
SELECT id, campaign_id, recipient, delivered, error, sent_at
  FROM campaign_send_results
 WHERE campaign_id = $1
 ORDER BY sent_at
`, campaignID)
	if err != nil {
		return nil, fmt.Errorf("list send results: %w", err)
	}
	defer rows.Close()

	var results []campaigns.SendResult
	for rows.Next() {
		var result campaigns.SendResult
		if err := rows.Scan(&result.ID, &result.CampaignID, &result.Recipient,
			&result.Delivered, &result.Error, &result.SentAt); err != nil {
			return nil, fmt.Errorf("scan send result: %w", err)
		}
		results = append(results, result)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list send results: %w", err)
	}
	return results, nil
}

func scanCampaign(row pgx.Row) (campaigns.Campaign, error) {
	var campaign campaigns.Campaign
	var sentAt *time.Time
	err := row.Scan(
		&campaign.ID,
		&campaign.Name,
		&campaign.Subject,
		&campaign.Body,
		&campaign.Recipients,
		&campaign.Status,
		&campaign.CreatedBy,
		&sentAt,
		&campaign.CreatedAt,
		&campaign.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return campaigns.Campaign{}, campaigns.ErrCampaignNotFound
		}
		return campaigns.Campaign{}, fmt.Errorf("scan campaign: %w", err)
	}
	if sentAt != nil {
		campaign.SentAt = *sentAt
	}
	return campaign, nil
}
