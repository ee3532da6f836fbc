package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vitalpages/server/internal/domain/plugins"
)

type PluginRepository struct {
	pool *pgxpool.Pool
	tx   pgx.Tx
}

const pluginColumns = `id, name, version, description, author, hooks, enabled, installed_at, updated_at`

func (r *PluginRepository) Create(ctx context.Context, plugin plugins.Plugin) (plugins.Plugin, error) {
	q := pick(r.pool, r.tx)
	_, err := q.Exec(ctx, `
INSERT INTO plugins (id, name, version, description, author, hooks, enabled, installed_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
`, plugin.ID, plugin.Name, plugin.Version, plugin.Description, plugin.Author,
		plugin.Hooks, plugin.Enabled, plugin.InstalledAt, plugin.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return plugins.Plugin{}, plugins.ErrPluginExists
		}
		return plugins.Plugin{}, fmt.Errorf("create plugin: %w", err)
	}
	return plugin, nil
}

func (r *PluginRepository) Get(ctx context.Context, id string) (plugins.Plugin, error) {
	q := pick(r.pool, r.tx)
	row := q.QueryRow(ctx, `SELECT `+pluginColumns+` FROM plugins WHERE id = $1`, id)
	return scanPlugin(row)
}

func (r *PluginRepository) GetByName(ctx context.Context, name string) (plugins.Plugin, error) {
	q := pick(r.pool, r.tx)
	row := q.QueryRow(ctx, `SELECT `+pluginColumns+` FROM plugins WHERE name = $1`, name)
	return scanPlugin(row)
}

func (r *PluginRepository) List(ctx context.Context) ([]plugins.Plugin, error) {
	q := pick(r.pool, r.tx)
	rows, err := q.Query(ctx, `SELECT `+pluginColumns+` FROM plugins ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list plugins: %w", err)
	}
	defer rows.Close()

	var result []plugins.Plugin
	for rows.Next() {
		plugin, err := scanPlugin(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, plugin)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list plugins: %w", err)
	}
	return result, nil
}

func (r *PluginRepository) Update(ctx context.Context, plugin plugins.Plugin) error {
	q := pick(r.pool, r.tx)
	tag, err := q.Exec(ctx, `
UPDATE plugins
   SET name = $2,
       version = $3,
       description = $4,
       author = $5,
       hooks = $6,
       enabled = $7,
       updated_at = $8
 WHERE id = $1
`, plugin.ID, plugin.Name, plugin.Version, plugin.Description, plugin.Author,
		plugin.Hooks, plugin.Enabled, plugin.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update plugin: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return plugins.ErrPluginNotFound
	}
	return nil
}

func (r *PluginRepository) Delete(ctx context.Context, id string) error {
	q := pick(r.pool, r.tx)
	tag, err := q.Exec(ctx, `DELETE FROM plugins WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete plugin: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return plugins.ErrPluginNotFound
	}
	return nil
}

func scanPlugin(row pgx.Row) (plugins.Plugin, error) {
	var plugin plugins.Plugin
	err := row.Scan(
		&plugin.ID,
		&plugin.Name,
		&plugin.Version,
		&plugin.Description,
		&plugin.Author,
		&plugin.Hooks,
		&plugin.Enabled,
		&plugin.InstalledAt,
		&plugin.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return plugins.Plugin{}, plugins.ErrPluginNotFound
		}
		return plugins.Plugin{}, fmt.Errorf("scan plugin: %w", err)
	}
	return plugin, nil
}
