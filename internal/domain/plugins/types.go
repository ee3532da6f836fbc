package plugins

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

var (
	ErrPluginNotFound  = errors.New("plugin not found")
	ErrPluginExists    = errors.New("plugin already installed")
	ErrInvalidManifest = errors.New("invalid plugin manifest")
)

// Plugin is an installed admin-panel plugin record.
type Plugin struct {
	ID          string
	Name        string
	Version     string
	Description string
	Author      string
	Hooks       []string
	Enabled     bool
	InstalledAt time.Time
	UpdatedAt   time.Time
}

// Manifest is the YAML descriptor a plugin ships with.
type Manifest struct {
	Name        string   `yaml:"name"`
	Version     string   `yaml:"version"`
	Description string   `yaml:"description"`
	Author      string   `yaml:"author"`
	Hooks       []string `yaml:"hooks"`
}

// ParseManifest decodes and validates a plugin manifest.
func ParseManifest(data []byte) (Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}
	if m.Name == "" {
		return Manifest{}, fmt.Errorf("%w: name is required", ErrInvalidManifest)
	}
	if m.Version == "" {
		return Manifest{}, fmt.Errorf("%w: version is required", ErrInvalidManifest)
	}
	return m, nil
}

// Repository is the storage contract for installed plugins.
type Repository interface {
	Create(ctx context.Context, plugin Plugin) (Plugin, error)
	Get(ctx context.Context, id string) (Plugin, error)
	GetByName(ctx context.Context, name string) (Plugin, error)
	List(ctx context.Context) ([]Plugin, error)
	Update(ctx context.Context, plugin Plugin) error
	Delete(ctx context.Context, id string) error
}
