package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vitalpages/server/internal/domain/navigation"
)

type NavigationRepository struct {
	pool *pgxpool.Pool
	tx   pgx.Tx
}

func (r *NavigationRepository) CreateItem(ctx context.Context, item navigation.Item) (navigation.Item, error) {
	q := pick(r.pool, r.tx)
	var parentID *string
	if item.ParentID != "" {
		parentID = &item.ParentID
	}
	_, err := q.Exec(ctx, `
INSERT INTO navigation_items (id, label, url, parent_id, position, visible, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`, item.ID, item.Label, item.URL, parentID, item.Position, item.Visible,
		item.CreatedAt, item.UpdatedAt)
	if err != nil {
		return navigation.Item{}, fmt.Errorf("create navigation item: %w", err)
	}
	return item, nil
}

func (r *NavigationRepository) GetItem(ctx context.Context, id string) (navigation.Item, error) {
	q := pick(r.pool, r.tx)
	row := q.QueryRow(ctx, `
SELECT id, label, url, parent_id, position, visible, created_at, updated_at
  FROM navigation_items
 WHERE id = $1
`, id)
	return scanNavigationItem(row)
}

func (r *NavigationRepository) UpdateItem(ctx context.Context, item navigation.Item) error {
	q := pick(r.pool, r.tx)
	var parentID *string
	if item.ParentID != "" {
		parentID = &item.ParentID
	}
	tag, err := q.Exec(ctx, `
UPDATE navigation_items
   SET label = $2,
       url = $3,
       parent_id = $4,
       position = $5,
       visible = $6,
       updated_at = $7
 WHERE id = $1
`, item.ID, item.Label, item.URL, parentID, item.Position, item.Visible, item.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update navigation item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return navigation.ErrItemNotFound
	}
	return nil
}

func (r *NavigationRepository) DeleteItem(ctx context.Context, id string) error {
	q := pick(r.pool, r.tx)
	tag, err := q.Exec(ctx, `DELETE FROM navigation_items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete navigation item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return navigation.ErrItemNotFound
	}
	return nil
}

func (r *NavigationRepository) ListItems(ctx context.Context) ([]navigation.Item, error) {
	q := pick(r.pool, r.tx)
	rows, err := q.Query(ctx, `
SELECT id, label, url, parent_id, position, visible, created_at, updated_at
  FROM navigation_items
 ORDER BY position, created_at
`)
	if err != nil {
		return nil, fmt.Errorf("list navigation items: %w", err)
	}
	defer rows.Close()

	var result []navigation.Item
	for rows.Next() {
		item, err := scanNavigationItem(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list navigation items: %w", err)
	}
	return result, nil
}

func scanNavigationItem(row pgx.Row) (navigation.Item, error) {
	var item navigation.Item
	var parentID *string
	err := row.Scan(
		&item.ID,
		&item.Label,
		&item.URL,
		&parentID,
		&item.Position,
		&item.Visible,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return navigation.Item{}, navigation.ErrItemNotFound
		}
		return navigation.Item{}, fmt.Errorf("scan navigation item: %w", err)
	}
	if parentID != nil {
		item.ParentID = *parentID
	}
	return item, nil
}
