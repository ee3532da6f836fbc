package backups

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/vitalpages/server/internal/config"
)

// Publisher receives backup lifecycle events (webhook fan-out).
type Publisher interface {
	Publish(ctx context.Context, event string, payload map[string]any)
}

// Service runs database backups against the configured database and
// announces completions.
type Service struct {
	dbURL     string
	cfg       config.BackupConfig
	publisher Publisher
	logger    zerolog.Logger
}

func NewService(dbURL string, cfg config.BackupConfig, publisher Publisher, logger zerolog.Logger) *Service {
	return &Service{
		dbURL:     dbURL,
		cfg:       cfg,
		publisher: publisher,
		logger:    logger.With().Str("component", "backups").Logger(),
	}
}

// Run creates a backup and emits backup.completed on success.
func (s *Service) Run(ctx context.Context, reason string) (*Backup, error) {
	host, port, database, user, password, err := ParseDatabaseURL(s.dbURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	backup, err := Create(ctx, CreateOptions{
		Database:      database,
		Host:          host,
		Port:          port,
		User:          user,
		Password:      password,
		Reason:        reason,
		RetentionDays: s.cfg.RetentionDays,
		Dir:           s.cfg.Dir,
		Validate:      true,
	})
	if err != nil {
		return nil, err
	}

	if s.publisher != nil {
		s.publisher.Publish(ctx, "backup.completed", map[string]any{
			"backup_name": backup.Metadata.BackupName,
			"size_bytes":  backup.Metadata.SizeBytes,
			"reason":      reason,
		})
	}

	s.logger.Info().
		Str("backup", backup.Metadata.BackupName).
		Int64("size_bytes", backup.Metadata.SizeBytes).
		Msg("backup completed")
	return backup, nil
}

// List returns the stored backups, newest first.
func (s *Service) List() ([]Backup, error) {
	return List(s.cfg.Dir)
}

// Prune deletes expired backups per the configured retention.
func (s *Service) Prune(dryRun bool) ([]Backup, error) {
	return Prune(s.cfg.Dir, s.cfg.RetentionDays, dryRun)
}
