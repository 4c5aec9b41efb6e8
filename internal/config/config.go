// Package config handles configuration loading and shared data structures.
package config

import (
	"errors"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Config represents the root configuration file structure.
type Config struct {
	Store   Store   `yaml:"store"`
	Server  Server  `yaml:"server"`
	Merge   Merge   `yaml:"merge"`
	Preview Preview `yaml:"preview"`
}

// Store selects and configures the document store backend.
type Store struct {
	// sqlite or redis
	Driver string `yaml:"driver"`
	// SQLite database path
	Path string `yaml:"path,omitempty"`
	// Redis connection
	Addr     string `yaml:"addr,omitempty"`
	Password string `yaml:"password,omitempty"`
	Prefix   string `yaml:"prefix,omitempty"`
	DB       int    `yaml:"db,omitempty"`
}

// Server holds HTTP API settings.
type Server struct {
	Addr           string        `yaml:"addr"`
	AllowedOrigins []string      `yaml:"allowed_origins,omitempty"`
	MaxUploadBytes int64         `yaml:"max_upload_bytes,omitempty"`
	ReadTimeout    time.Duration `yaml:"read_timeout,omitempty"`
	WriteTimeout   time.Duration `yaml:"write_timeout,omitempty"`
	Port           int           `yaml:"port"`
	Minify         bool          `yaml:"minify"`
}

// Merge holds duplicate detection settings.
type Merge struct {
	// geohash or exact
	MatchPolicy string `yaml:"match_policy,omitempty"`
}

// Preview holds thumbnail rendering settings.
type Preview struct {
	Size    int     `yaml:"size,omitempty"`
	Quality float32 `yaml:"quality,omitempty"`
	// largest size a request may ask for
	MaxSize int `yaml:"max_size,omitempty"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Store: Store{
			Driver: "sqlite",
			Path:   "geojson.db",
			Addr:   "127.0.0.1:6379",
			Prefix: "geojson",
		},
		Server: Server{
			Addr:           "0.0.0.0",
			Port:           3000,
			AllowedOrigins: []string{"*"},
			MaxUploadBytes: 64 << 20,
			ReadTimeout:    30 * time.Second,
			WriteTimeout:   60 * time.Second,
			Minify:         true,
		},
		Merge:   Merge{MatchPolicy: "geohash"},
		Preview: Preview{Size: 512, Quality: 85, MaxSize: 2048},
	}
}

// Load reads and parses the YAML configuration file from the specified path.
// Values missing from the file keep their defaults; a missing file yields the
// defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "read config %s", path)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, eris.Wrapf(err, "parse config %s", path)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks values that have no sensible fallback.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "sqlite":
		if c.Store.Path == "" {
			return eris.New("store.path is required for the sqlite driver")
		}
	case "redis":
		if c.Store.Addr == "" {
			return eris.New("store.addr is required for the redis driver")
		}
	default:
		return eris.Errorf("unknown store driver %q", c.Store.Driver)
	}

	switch c.Merge.MatchPolicy {
	case "", "geohash", "exact":
	default:
		return eris.Errorf("unknown merge.match_policy %q", c.Merge.MatchPolicy)
	}

	if c.Preview.Size < 0 || c.Server.Port < 0 {
		return eris.New("preview.size and server.port must not be negative")
	}
	if c.Preview.MaxSize < 1 || c.Preview.Size > c.Preview.MaxSize {
		return eris.Errorf("preview.max_size must be at least 1 and not below preview.size (%d)", c.Preview.Size)
	}

	return nil
}
