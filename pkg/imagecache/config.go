package imagecache

import (
	goerrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/go-drift/imagecache/pkg/fetch"
	"github.com/go-drift/imagecache/pkg/texture"
)

// DefaultPlaceholderAsset is the well-known placeholder file name looked up
// in the resource directory.
const DefaultPlaceholderAsset = "placeholder.png"

// Options configures a Cache.
type Options struct {
	// Loader streams resource bytes. Defaults to fetch.DefaultHTTPLoader.
	Loader fetch.Loader

	// Registry, when set, receives every decoded image before it becomes
	// observable; the returned handle is attached to the image record.
	Registry texture.Registry

	// Workers is the decode pool size. Non-positive means one worker per
	// CPU.
	Workers int

	// ResourceDir is where the placeholder asset lives. Empty disables
	// placeholder substitution.
	ResourceDir string

	// PlaceholderAsset overrides the placeholder file name.
	PlaceholderAsset string

	// CompletedCapacity bounds the completed-load store. Zero keeps every
	// terminal result for the cache's lifetime. Eviction only applies to
	// terminal entries; in-flight loads are never disturbed.
	CompletedCapacity uint64

	// CompletedTTL expires terminal results after the given duration. Zero
	// keeps them forever.
	CompletedTTL time.Duration

	// FetchTimeout applies to the default HTTP loader; ignored when Loader
	// is set. Zero means one minute.
	FetchTimeout time.Duration
}

func (o Options) placeholderAsset() string {
	if o.PlaceholderAsset != "" {
		return o.PlaceholderAsset
	}
	return DefaultPlaceholderAsset
}

// Config represents the optional imagecache.yaml configuration.
type Config struct {
	Cache struct {
		Workers           int    `yaml:"workers,omitempty"`
		CompletedCapacity uint64 `yaml:"completed_capacity,omitempty"`
		CompletedTTL      string `yaml:"completed_ttl,omitempty"`
	} `yaml:"cache"`
	Fetch struct {
		Timeout string `yaml:"timeout,omitempty"`
	} `yaml:"fetch"`
	Placeholder struct {
		Dir   string `yaml:"dir,omitempty"`
		Asset string `yaml:"asset,omitempty"`
	} `yaml:"placeholder"`
}

// LoadOptional reads imagecache.yaml from dir if present.
func LoadOptional(dir string) (*Config, error) {
	path := filepath.Join(dir, "imagecache.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		if goerrors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("failed to read imagecache.yaml: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse imagecache.yaml: %w", err)
	}

	return &cfg, nil
}

// Options resolves the configuration into cache options.
//
// The IMAGECACHE_RESOURCE_DIR environment variable overrides the placeholder
// directory.
func (cfg *Config) Options() (Options, error) {
	opts := Options{
		Workers:           cfg.Cache.Workers,
		CompletedCapacity: cfg.Cache.CompletedCapacity,
		ResourceDir:       cfg.Placeholder.Dir,
		PlaceholderAsset:  cfg.Placeholder.Asset,
	}

	if cfg.Cache.CompletedTTL != "" {
		ttl, err := time.ParseDuration(cfg.Cache.CompletedTTL)
		if err != nil {
			return Options{}, fmt.Errorf("invalid cache.completed_ttl: %w", err)
		}
		opts.CompletedTTL = ttl
	}
	if cfg.Fetch.Timeout != "" {
		timeout, err := time.ParseDuration(cfg.Fetch.Timeout)
		if err != nil {
			return Options{}, fmt.Errorf("invalid fetch.timeout: %w", err)
		}
		opts.FetchTimeout = timeout
	}

	if dir := os.Getenv("IMAGECACHE_RESOURCE_DIR"); dir != "" {
		opts.ResourceDir = dir
	}

	return opts, nil
}
