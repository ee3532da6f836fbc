package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vitalpages/server/internal/config"
	"github.com/vitalpages/server/internal/domain/blog"
	"github.com/vitalpages/server/internal/domain/campaigns"
	"github.com/vitalpages/server/internal/domain/contacts"
	"github.com/vitalpages/server/internal/domain/content"
	"github.com/vitalpages/server/internal/domain/navigation"
	"github.com/vitalpages/server/internal/domain/plugins"
	"github.com/vitalpages/server/internal/domain/seo"
	"github.com/vitalpages/server/internal/domain/users"
	"github.com/vitalpages/server/internal/domain/webhooks"
)

// NewPool opens a pgx connection pool from the database configuration.
func NewPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if cfg.MaxConnections > 0 {
		poolConfig.MaxConns = int32(cfg.MaxConnections)
	}
	if cfg.MaxIdle > 0 {
		poolConfig.MinConns = int32(cfg.MaxIdle)
	}
	poolConfig.MaxConnLifetime = time.Hour

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// Repository aggregates the per-domain repositories over one pool. When tx is
// set, every sub-repository runs inside that transaction.
type Repository struct {
	pool *pgxpool.Pool
	tx   pgx.Tx
}

func NewRepository(pool *pgxpool.Pool) (*Repository, error) {
	if pool == nil {
		return nil, fmt.Errorf("postgres repository: pool is nil")
	}
	return &Repository{pool: pool}, nil
}

func (r *Repository) Users() users.Repository {
	return &UserRepository{pool: r.pool, tx: r.tx}
}

func (r *Repository) Pages() content.Repository {
	return &PageRepository{pool: r.pool, tx: r.tx}
}

func (r *Repository) Posts() blog.Repository {
	return &PostRepository{pool: r.pool, tx: r.tx}
}

func (r *Repository) Navigation() navigation.Repository {
	return &NavigationRepository{pool: r.pool, tx: r.tx}
}

func (r *Repository) Contacts() contacts.Repository {
	return &ContactRepository{pool: r.pool, tx: r.tx}
}

func (r *Repository) Campaigns() campaigns.Repository {
	return &CampaignRepository{pool: r.pool, tx: r.tx}
}

func (r *Repository) Webhooks() webhooks.Repository {
	return &WebhookRepository{pool: r.pool, tx: r.tx}
}

func (r *Repository) SEO() seo.Repository {
	return &SEORepository{pool: r.pool, tx: r.tx}
}

func (r *Repository) Plugins() plugins.Repository {
	return &PluginRepository{pool: r.pool, tx: r.tx}
}

// WithTx runs fn inside a transaction. Nested calls reuse the outer
// transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, *Repository) error) error {
	if r.tx != nil {
		return fn(ctx, r)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	wrapped := &Repository{pool: r.pool, tx: tx}
	if err := fn(ctx, wrapped); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// queryer is satisfied by both pgxpool.Pool and pgx.Tx.
type queryer interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func pick(pool *pgxpool.Pool, tx pgx.Tx) queryer {
	if tx != nil {
		return tx
	}
	return pool
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
