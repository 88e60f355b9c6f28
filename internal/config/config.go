// Package config loads the service configuration from a YAML file.
//
// Loading is two-phase: the raw document is first validated against an
// embedded CUE schema (types, enums, ranges, no unknown keys), then decoded
// into Config with strict field checking. Defaults fill every unset field.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaCUE string

// Config is the complete service configuration.
type Config struct {
	Database    Database    `yaml:"database"`
	Server      Server      `yaml:"server"`
	Query       Query       `yaml:"query"`
	Log         Log         `yaml:"log"`
	SchemaCache SchemaCache `yaml:"schema_cache"`
}

// Database configures the engine connection.
type Database struct {
	Driver          string        `yaml:"driver"`
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
}

// Server configures the HTTP transport.
type Server struct {
	Addr string `yaml:"addr"`

	// Prefix is prepended to every route, e.g. "/api".
	Prefix string `yaml:"prefix"`

	// RateLimit is requests per second per client IP. Zero disables it.
	RateLimit float64 `yaml:"rate_limit"`
	RateBurst int     `yaml:"rate_burst"`

	Metrics *bool `yaml:"metrics"`
}

// MetricsEnabled reports whether /metrics is served. Defaults to true.
func (s Server) MetricsEnabled() bool {
	return s.Metrics == nil || *s.Metrics
}

// Query configures request compilation.
type Query struct {
	DefaultPageSize     int      `yaml:"default_page_size"`
	MaxPageSize         int      `yaml:"max_page_size"`
	ContinuousFunctions []string `yaml:"continuous_functions"`
}

// Log configures the process logger.
type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// SchemaCache configures the optional Redis schema cache. The cache is
// disabled when Addr is empty.
type SchemaCache struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
	Prefix   string        `yaml:"prefix"`
}

// Enabled reports whether a cache address is configured.
func (c SchemaCache) Enabled() bool {
	return c.Addr != ""
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// Load reads and validates a YAML config file. An empty path returns
// Default().
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse validates and decodes a YAML document.
func Parse(data []byte) (*Config, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	if raw == nil {
		raw = map[string]any{}
	}
	if err := validate(raw); err != nil {
		return nil, err
	}

	cfg := &Config{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	cfg.applyDefaults()
	if cfg.Query.DefaultPageSize > cfg.Query.MaxPageSize {
		return nil, fmt.Errorf("query.default_page_size %d exceeds query.max_page_size %d",
			cfg.Query.DefaultPageSize, cfg.Query.MaxPageSize)
	}
	return cfg, nil
}

// validate checks the raw document against the embedded CUE schema.
func validate(raw map[string]any) error {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE)
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}

	def := schema.LookupPath(cue.ParsePath("#Config"))
	v := def.Unify(ctx.Encode(raw))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite3"
	}
	if c.Database.DSN == "" && c.Database.Driver == "sqlite3" {
		c.Database.DSN = "sqlrest.db"
	}
	if c.Database.ConnMaxLifetime == 0 {
		// Servers drop idle connections; recycle before they do.
		c.Database.ConnMaxLifetime = 5 * time.Minute
	}

	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.RateBurst == 0 && c.Server.RateLimit > 0 {
		c.Server.RateBurst = int(c.Server.RateLimit) + 1
	}

	if c.Query.DefaultPageSize == 0 {
		c.Query.DefaultPageSize = 100
	}
	if c.Query.MaxPageSize == 0 {
		c.Query.MaxPageSize = 10000
	}
	if len(c.Query.ContinuousFunctions) == 0 {
		c.Query.ContinuousFunctions = []string{"date"}
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}

	if c.SchemaCache.TTL == 0 {
		c.SchemaCache.TTL = 5 * time.Minute
	}
	if c.SchemaCache.Prefix == "" {
		c.SchemaCache.Prefix = "sqlrest:"
	}
}
