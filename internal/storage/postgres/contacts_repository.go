package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vitalpages/server/internal/domain/contacts"
)

type ContactRepository struct {
	pool *pgxpool.Pool
	tx   pgx.Tx
}

func (r *ContactRepository) CreateSubmission(ctx context.Context, submission contacts.Submission) (contacts.Submission, error) {
	q := pick(r.pool, r.tx)
	_, err := q.Exec(ctx, `
INSERT INTO contact_submissions (id, name, email, phone, message, source_ip, read, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`, submission.ID, submission.Name, submission.Email, submission.Phone,
		submission.Message, submission.SourceIP, submission.Read, submission.CreatedAt)
	if err != nil {
		return contacts.Submission{}, fmt.Errorf("create submission: %w", err)
	}
	return submission, nil
}

func (r *ContactRepository) GetSubmission(ctx context.Context, id string) (contacts.Submission, error) {
	q := pick(r.pool, r.tx)
	row := q.QueryRow(ctx, `
SELECT id, name, email, phone, message, source_ip, read, created_at
  FROM contact_submissions
 WHERE id = $1
`, id)
	return scanSubmission(row)
}

func (r *ContactRepository) MarkRead(ctx context.Context, id string, read bool) error {
	q := pick(r.pool, r.tx)
	tag, err := q.Exec(ctx, `UPDATE contact_submissions SET read = $2 WHERE id = $1`, id, read)
	if err != nil {
		return fmt.Errorf("mark submission read: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return contacts.ErrSubmissionNotFound
	}
	return nil
}

func (r *ContactRepository) DeleteSubmission(ctx context.Context, id string) error {
	q := pick(r.pool, r.tx)
	tag, err := q.Exec(ctx, `DELETE FROM contact_submissions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete submission: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return contacts.ErrSubmissionNotFound
	}
	return nil
}

func (r *ContactRepository) ListSubmissions(ctx context.Context, filters contacts.ListFilters) ([]contacts.Submission, int, error) {
	q := pick(r.pool, r.tx)

	where := ` WHERE 1=1`
	args := []any{}
	if filters.Unread != nil {
		args = append(args, !*filters.Unread)
		where += fmt.Sprintf(" AND read = $%d", len(args))
	}

	var total int
	if err := q.QueryRow(ctx, `SELECT count(*) FROM contact_submissions`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count submissions: %w", err)
	}

	limit := filters.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit, filters.Offset)
	query := `
SELECT id, name, email, phone, message, source_ip, read, created_at
  FROM contact_submissions` + where +
		fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list submissions: %w", err)
	}
	defer rows.Close()

	var result []contacts.Submission
	for rows.Next() {
		submission, err := scanSubmission(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, submission)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list submissions: %w", err)
	}
	return result, total, nil
}

func scanSubmission(row pgx.Row) (contacts.Submission, error) {
	var submission contacts.Submission
	err := row.Scan(
		&submission.ID,
		&submission.Name,
		&submission.Email,
		&submission.Phone,
		&submission.Message,
		&submission.SourceIP,
		&submission.Read,
		&submission.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return contacts.Submission{}, contacts.ErrSubmissionNotFound
		}
		return contacts.Submission{}, fmt.Errorf("scan submission: %w", err)
	}
	return submission, nil
}
