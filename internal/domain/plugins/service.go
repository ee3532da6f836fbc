package plugins

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
)

// Service manages installed plugins and schedules their lifecycle actions on
// the execution queue.
type Service struct {
	repo   Repository
	queue  *Queue
	logger zerolog.Logger
}

func NewService(repo Repository, queue *Queue, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		queue:  queue,
		logger: logger.With().Str("component", "plugins").Logger(),
	}
}

// Install registers a plugin from its manifest and queues the install hook.
func (s *Service) Install(ctx context.Context, manifest Manifest) (Plugin, *Job, error) {
	if _, err := s.repo.GetByName(ctx, manifest.Name); err == nil {
		return Plugin{}, nil, ErrPluginExists
	} else if !errors.Is(err, ErrPluginNotFound) {
		return Plugin{}, nil, fmt.Errorf("check plugin name: %w", err)
	}

	now := time.Now().UTC()
	plugin := Plugin{
		ID:          ulid.Make().String(),
		Name:        manifest.Name,
		Version:     manifest.Version,
		Description: manifest.Description,
		Author:      manifest.Author,
		Hooks:       manifest.Hooks,
		Enabled:     false,
		InstalledAt: now,
		UpdatedAt:   now,
	}

	created, err := s.repo.Create(ctx, plugin)
	if err != nil {
		return Plugin{}, nil, fmt.Errorf("install plugin: %w", err)
	}

	job, err := s.queue.Enqueue(created.ID, ActionInstall, 0)
	if err != nil {
		return created, nil, err
	}
	return created, job, nil
}

// SyncManifestDir installs any plugin manifests found in dir that are not
// already registered. A missing directory is not an error. Unreadable or
// invalid manifests are logged and skipped so one bad file cannot block
// startup.
func (s *Service) SyncManifestDir(ctx context.Context, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read manifest dir: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			s.logger.Warn().Err(err).Str("path", path).Msg("skipping unreadable plugin manifest")
			continue
		}

		manifest, err := ParseManifest(data)
		if err != nil {
			s.logger.Warn().Err(err).Str("path", path).Msg("skipping invalid plugin manifest")
			continue
		}

		if _, _, err := s.Install(ctx, manifest); err != nil {
			if errors.Is(err, ErrPluginExists) {
				continue
			}
			s.logger.Warn().Err(err).Str("plugin", manifest.Name).Msg("plugin manifest install failed")
		} else {
			s.logger.Info().Str("plugin", manifest.Name).Str("version", manifest.Version).Msg("plugin installed from manifest")
		}
	}
	return nil
}

// SetEnabled flips a plugin's enabled flag and queues the matching hook.
func (s *Service) SetEnabled(ctx context.Context, id string, enabled bool) (Plugin, *Job, error) {
	plugin, err := s.repo.Get(ctx, id)
	if err != nil {
		return Plugin{}, nil, err
	}

	plugin.Enabled = enabled
	plugin.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, plugin); err != nil {
		return Plugin{}, nil, fmt.Errorf("update plugin: %w", err)
	}

	action := ActionDisable
	if enabled {
		action = ActionEnable
	}
	job, err := s.queue.Enqueue(plugin.ID, action, 0)
	if err != nil {
		return plugin, nil, err
	}
	return plugin, job, nil
}

// Uninstall removes the record and queues the uninstall hook.
func (s *Service) Uninstall(ctx context.Context, id string) (*Job, error) {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return nil, err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return nil, fmt.Errorf("uninstall plugin: %w", err)
	}
	return s.queue.Enqueue(id, ActionUninstall, 0)
}

// Run queues an ad hoc execution of an enabled plugin.
func (s *Service) Run(ctx context.Context, id string) (*Job, error) {
	plugin, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !plugin.Enabled {
		return nil, fmt.Errorf("plugin %s is disabled", plugin.Name)
	}
	return s.queue.Enqueue(plugin.ID, ActionRun, 0)
}

func (s *Service) Get(ctx context.Context, id string) (Plugin, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]Plugin, error) {
	return s.repo.List(ctx)
}

// Jobs returns the queue's job log.
func (s *Service) Jobs() []Job {
	return s.queue.List()
}

func (s *Service) JobStatus(jobID string) (Job, error) {
	return s.queue.Status(jobID)
}

func (s *Service) CancelJob(jobID string) error {
	return s.queue.Cancel(jobID)
}

// SimulatedRunner imitates plugin hook execution with bounded sleeps. Real
// plugin execution (sandboxing, untrusted code) is out of scope.
type SimulatedRunner struct {
	MinDuration time.Duration
	MaxDuration time.Duration
}

func NewSimulatedRunner() *SimulatedRunner {
	return &SimulatedRunner{
		MinDuration: 50 * time.Millisecond,
		MaxDuration: 250 * time.Millisecond,
	}
}

func (r *SimulatedRunner) Run(ctx context.Context, pluginID string, action Action) error {
	span := r.MaxDuration - r.MinDuration
	duration := r.MinDuration
	if span > 0 {
		duration += time.Duration(rand.Int63n(int64(span)))
	}

	timer := time.NewTimer(duration)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
