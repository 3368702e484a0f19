// Package config loads the ledger's startup configuration: defaults, then
// an optional YAML file, then environment overrides, validated once against
// an embedded CUE schema before anything else starts.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaSource string

// Environment variables recognized by Load. Each overrides its YAML field.
const (
	EnvDB            = "SITECHAIN_DB"
	EnvAddr          = "SITECHAIN_ADDR"
	EnvRetentionDays = "SITECHAIN_RETENTION_DAYS"
	EnvExportLimit   = "SITECHAIN_EXPORT_LIMIT"
)

// Config is the full runtime configuration. The json tags drive CUE
// encoding during validation and must match the schema field names.
type Config struct {
	// DB is the SQLite database path.
	DB string `yaml:"db" json:"db"`

	// Addr is the HTTP listen address, host optional (":8080").
	Addr string `yaml:"addr" json:"addr"`

	// RetentionDays is the audit retention window used when a purge does
	// not name an explicit cutoff.
	RetentionDays int `yaml:"retention_days" json:"retention_days"`

	// ExportLimit caps the number of records one export request returns.
	ExportLimit int64 `yaml:"export_limit" json:"export_limit"`
}

// Default returns the configuration used when no file and no environment
// overrides are present.
func Default() Config {
	return Config{
		DB:            "sitechain.db",
		Addr:          ":8080",
		RetentionDays: 365,
		ExportLimit:   10000,
	}
}

// Load builds the effective configuration: defaults, overlaid by the YAML
// file at path (skipped when path is empty), overlaid by environment
// variables, then validated. An empty file is valid and means all defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		// Strict field validation catches typos like "retention_day:".
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)
		if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyEnvOverrides overlays SITECHAIN_* variables. A set-but-malformed
// numeric variable is a startup error, never a silently kept default.
func applyEnvOverrides(c *Config) error {
	if v := os.Getenv(EnvDB); v != "" {
		c.DB = v
	}
	if v := os.Getenv(EnvAddr); v != "" {
		c.Addr = v
	}
	if v := os.Getenv(EnvRetentionDays); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: %s=%q is not an integer", EnvRetentionDays, v)
		}
		c.RetentionDays = n
	}
	if v := os.Getenv(EnvExportLimit); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("config: %s=%q is not an integer", EnvExportLimit, v)
		}
		c.ExportLimit = n
	}
	return nil
}

// Validate unifies the configuration with the embedded CUE schema.
func (c Config) Validate() error {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("config: compile schema: %w", err)
	}

	unified := schema.Unify(ctx.Encode(c))
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}
