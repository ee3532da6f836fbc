package plugins

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryRepo struct {
	mu      sync.Mutex
	byID    map[string]Plugin
	creates int
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{byID: make(map[string]Plugin)}
}

func (r *memoryRepo) Create(ctx context.Context, plugin Plugin) (Plugin, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[plugin.ID] = plugin
	r.creates++
	return plugin, nil
}

func (r *memoryRepo) Get(ctx context.Context, id string) (Plugin, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	plugin, ok := r.byID[id]
	if !ok {
		return Plugin{}, ErrPluginNotFound
	}
	return plugin, nil
}

func (r *memoryRepo) GetByName(ctx context.Context, name string) (Plugin, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, plugin := range r.byID {
		if plugin.Name == name {
			return plugin, nil
		}
	}
	return Plugin{}, ErrPluginNotFound
}

func (r *memoryRepo) List(ctx context.Context) ([]Plugin, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	plugins := make([]Plugin, 0, len(r.byID))
	for _, plugin := range r.byID {
		plugins = append(plugins, plugin)
	}
	return plugins, nil
}

func (r *memoryRepo) Update(ctx context.Context, plugin Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[plugin.ID] = plugin
	return nil
}

func (r *memoryRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byID, id)
	return nil
}

func newSyncTestService(t *testing.T, repo Repository) *Service {
	t.Helper()
	runner := RunnerFunc(func(ctx context.Context, pluginID string, action Action) error {
		return nil
	})
	queue := NewQueue(fastConfig(), runner, zerolog.Nop())
	queue.Start(context.Background())
	t.Cleanup(queue.Stop)
	return NewService(repo, queue, zerolog.Nop())
}

func writeManifest(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func TestSyncManifestDir_InstallsYAMLManifests(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "seo.yaml", "name: seo-audit\nversion: 1.2.0\nhooks: [run]\n")
	writeManifest(t, dir, "sitemap.yml", "name: sitemap-gen\nversion: 0.3.1\n")
	writeManifest(t, dir, "readme.txt", "not a manifest")

	repo := newMemoryRepo()
	svc := newSyncTestService(t, repo)

	require.NoError(t, svc.SyncManifestDir(context.Background(), dir))

	plugins, err := svc.List(context.Background())
	require.NoError(t, err)
	names := make([]string, 0, len(plugins))
	for _, p := range plugins {
		names = append(names, p.Name)
	}
	assert.ElementsMatch(t, []string{"seo-audit", "sitemap-gen"}, names)
}

func TestSyncManifestDir_SkipsAlreadyInstalled(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "seo.yaml", "name: seo-audit\nversion: 1.2.0\n")

	repo := newMemoryRepo()
	svc := newSyncTestService(t, repo)

	require.NoError(t, svc.SyncManifestDir(context.Background(), dir))
	require.NoError(t, svc.SyncManifestDir(context.Background(), dir))

	assert.Equal(t, 1, repo.creates)
}

func TestSyncManifestDir_ToleratesBadFiles(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "broken.yaml", ": not yaml at all {{")
	writeManifest(t, dir, "nameless.yaml", "version: 1.0.0\n")
	writeManifest(t, dir, "good.yaml", "name: seo-audit\nversion: 1.2.0\n")

	repo := newMemoryRepo()
	svc := newSyncTestService(t, repo)

	require.NoError(t, svc.SyncManifestDir(context.Background(), dir))

	plugins, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, plugins, 1)
	assert.Equal(t, "seo-audit", plugins[0].Name)
}

func TestSyncManifestDir_MissingDirIsNoop(t *testing.T) {
	repo := newMemoryRepo()
	svc := newSyncTestService(t, repo)

	err := svc.SyncManifestDir(context.Background(), filepath.Join(t.TempDir(), "absent"))
	require.NoError(t, err)
	assert.Zero(t, repo.creates)
}
