// Package config loads vormap configuration from TOML files.
//
// Configuration is optional: every field has a working default, so the
// CLI and server run without a config file. Lookup order is the path
// given on the command line, then $VORMAP_CONFIG, then
// ~/.config/vormap/config.toml.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config is the top-level vormap configuration.
type Config struct {
	Server ServerConfig `toml:"server"`
	Source SourceConfig `toml:"source"`
	Cache  CacheConfig  `toml:"cache"`
	Store  StoreConfig  `toml:"store"`
	Render RenderConfig `toml:"render"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string `toml:"addr"`
}

// SourceConfig configures where snapshots come from.
type SourceConfig struct {
	// BaseURL is the snapshot backend API. Empty means local-only mode.
	BaseURL string `toml:"base_url"`

	// Headers are sent on every backend request (auth tokens and the like).
	Headers map[string]string `toml:"headers"`

	// LocalRoot is the directory scanned when no backend is configured.
	LocalRoot string `toml:"local_root"`

	// MaxDepth bounds local scans and the listing fallback. Zero keeps
	// the built-in default.
	MaxDepth int `toml:"max_depth"`
}

// CacheConfig selects and configures the stage cache backend.
type CacheConfig struct {
	// Backend is one of "memory", "file", "redis", or "none".
	Backend string `toml:"backend"`

	// Dir is the file backend's directory. Empty uses the XDG cache dir.
	Dir string `toml:"dir"`

	// Capacity is the memory backend's entry limit.
	Capacity int `toml:"capacity"`

	// Redis connection settings, used when Backend is "redis".
	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`
}

// StoreConfig configures durable hierarchy artifact storage.
type StoreConfig struct {
	// MongoURI enables the MongoDB store when non-empty.
	MongoURI   string `toml:"mongo_uri"`
	Database   string `toml:"database"`
	Collection string `toml:"collection"`
}

// RenderConfig holds default render settings.
type RenderConfig struct {
	Theme  string  `toml:"theme"`
	Width  float64 `toml:"width"`
	Height float64 `toml:"height"`
	Labels bool    `toml:"labels"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Server: ServerConfig{Addr: ":8080"},
		Cache:  CacheConfig{Backend: "file"},
		Render: RenderConfig{Theme: "dark", Width: 800, Height: 600},
	}
}

// validBackends is the set of recognised cache backends.
var validBackends = map[string]bool{
	"":       true, // unset keeps the default
	"memory": true,
	"file":   true,
	"redis":  true,
	"none":   true,
}

// Load reads configuration from path. If path is empty, $VORMAP_CONFIG
// and then the default location are tried; a missing file at either
// yields the defaults rather than an error.
func Load(path string) (Config, error) {
	explicit := path != ""
	if path == "" {
		path = os.Getenv("VORMAP_CONFIG")
	}
	if path == "" {
		path = defaultPath()
	}

	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if !validBackends[c.Cache.Backend] {
		return fmt.Errorf("unknown cache backend %q (must be memory, file, redis, or none)", c.Cache.Backend)
	}
	if c.Cache.Backend == "redis" && c.Cache.RedisAddr == "" {
		return fmt.Errorf("cache backend redis requires redis_addr")
	}
	if c.Render.Width < 0 || c.Render.Height < 0 {
		return fmt.Errorf("render dimensions must be non-negative")
	}
	return nil
}

// defaultPath returns ~/.config/vormap/config.toml.
func defaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "vormap", "config.toml")
}
