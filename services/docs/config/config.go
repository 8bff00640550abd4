// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads extraction settings from YAML.
//
// Description:
//
//	Settings are read from an embedded default file, optionally replaced by
//	a user file. Missing numeric fields get defaults, then the result is
//	validated with go-playground/validator tags.
package config

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"gopkg.in/yaml.v3"
)

//go:embed extract_defaults.yaml
var defaultConfigYAML []byte

var configTracer = otel.Tracer("docassoc.config")

// MaxYAMLFileSize bounds the size of a config file (1MB).
const MaxYAMLFileSize = 1 << 20

// Defaults applied to zero-valued fields.
const (
	// DefaultMaxFileSize is the largest source file parsed (10MB).
	DefaultMaxFileSize = 10 * 1024 * 1024

	// DefaultWorkers is the batch parallelism.
	DefaultWorkers = 4

	// DefaultPort is the HTTP listen port.
	DefaultPort = 8090

	// DefaultRateLimit is the extract endpoint's requests per second.
	DefaultRateLimit = 20.0

	// DefaultBurst is the extract endpoint's burst size.
	DefaultBurst = 40

	// DefaultServiceName identifies the service in traces and metrics.
	DefaultServiceName = "docassoc"

	// DefaultOTLPEndpoint is the OTLP gRPC receiver.
	DefaultOTLPEndpoint = "localhost:4317"
)

// Config holds the extraction settings.
type Config struct {
	// DocumentExported selects the exported-only strategy.
	DocumentExported bool `yaml:"document_exported" mapstructure:"document_exported"`

	// SortKeyBase prefixes every sort key.
	SortKeyBase string `yaml:"sort_key_base" mapstructure:"sort_key_base"`

	// MaxFileSize is the largest source file in bytes.
	MaxFileSize int `yaml:"max_file_size" mapstructure:"max_file_size" validate:"gt=0"`

	// StrictSyntax fails files with syntax errors.
	StrictSyntax bool `yaml:"strict_syntax" mapstructure:"strict_syntax"`

	// StrictTags fails files with malformed JSDoc tags.
	StrictTags bool `yaml:"strict_tags" mapstructure:"strict_tags"`

	// Extensions lists the file extensions collected from directories.
	Extensions []string `yaml:"extensions" mapstructure:"extensions" validate:"required,min=1,dive,startswith=."`

	// Workers bounds batch parallelism.
	Workers int `yaml:"workers" mapstructure:"workers" validate:"gte=1,lte=256"`

	Cache     CacheConfig     `yaml:"cache" mapstructure:"cache"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Telemetry TelemetryConfig `yaml:"telemetry" mapstructure:"telemetry"`
}

// CacheConfig configures the badger result cache.
type CacheConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`

	// Dir is the badger directory. Empty with Enabled means in-memory.
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port      int     `yaml:"port" mapstructure:"port" validate:"gte=1,lte=65535"`
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit" validate:"gt=0"`
	Burst     int     `yaml:"burst" mapstructure:"burst" validate:"gte=1"`
}

// TelemetryConfig selects the OpenTelemetry exporters.
type TelemetryConfig struct {
	ServiceName string `yaml:"service_name" mapstructure:"service_name" validate:"required"`

	// TraceExporter is "otlp", "stdout" or "none".
	TraceExporter string `yaml:"trace_exporter" mapstructure:"trace_exporter" validate:"oneof=otlp stdout none"`

	// MetricExporter is "prometheus", "stdout" or "none".
	MetricExporter string `yaml:"metric_exporter" mapstructure:"metric_exporter" validate:"oneof=prometheus stdout none"`

	OTLPEndpoint string `yaml:"otlp_endpoint" mapstructure:"otlp_endpoint"`
	OTLPInsecure bool   `yaml:"otlp_insecure" mapstructure:"otlp_insecure"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// DefaultConfig returns the embedded default configuration.
func DefaultConfig(ctx context.Context) (*Config, error) {
	return LoadConfig(ctx, defaultConfigYAML)
}

// LoadConfigFile reads and loads a YAML config file.
func LoadConfigFile(ctx context.Context, path string) (*Config, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("LoadConfigFile: %w", err)
	}
	if info.Size() > MaxYAMLFileSize {
		return nil, fmt.Errorf("LoadConfigFile: %s exceeds maximum size (%d > %d)", path, info.Size(), MaxYAMLFileSize)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("LoadConfigFile: %w", err)
	}
	return LoadConfig(ctx, data)
}

// LoadConfig parses, defaults and validates configuration YAML.
//
// Inputs:
//
//	ctx  - Context for tracing.
//	data - Raw YAML bytes. Must not be empty.
//
// Outputs:
//
//	*Config - The loaded configuration.
//	error   - Non-nil if the YAML is empty, too large, malformed or invalid.
func LoadConfig(ctx context.Context, data []byte) (*Config, error) {
	_, span := configTracer.Start(ctx, "config.LoadConfig")
	defer span.End()

	if len(data) == 0 {
		return nil, fmt.Errorf("LoadConfig: empty YAML data")
	}
	if len(data) > MaxYAMLFileSize {
		return nil, fmt.Errorf("LoadConfig: YAML data exceeds maximum size (%d > %d)", len(data), MaxYAMLFileSize)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("LoadConfig: parsing YAML: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("LoadConfig: validation: %w", err)
	}

	span.SetAttributes(
		attribute.Bool("document_exported", cfg.DocumentExported),
		attribute.Int("workers", cfg.Workers),
		attribute.Bool("cache_enabled", cfg.Cache.Enabled),
	)

	slog.Info("extraction config loaded",
		slog.Bool("document_exported", cfg.DocumentExported),
		slog.Int("workers", cfg.Workers),
		slog.Int("extensions", len(cfg.Extensions)),
		slog.Bool("cache_enabled", cfg.Cache.Enabled),
	)

	return &cfg, nil
}

// ApplyDefaults fills zero-valued fields.
func ApplyDefaults(cfg *Config) {
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = DefaultMaxFileSize
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if len(cfg.Extensions) == 0 {
		cfg.Extensions = []string{".js", ".mjs", ".cjs", ".jsx"}
	}
	for i, ext := range cfg.Extensions {
		cfg.Extensions[i] = strings.ToLower(ext)
	}
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = DefaultPort
	}
	if cfg.Server.RateLimit <= 0 {
		cfg.Server.RateLimit = DefaultRateLimit
	}
	if cfg.Server.Burst <= 0 {
		cfg.Server.Burst = DefaultBurst
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = DefaultServiceName
	}
	if cfg.Telemetry.TraceExporter == "" {
		cfg.Telemetry.TraceExporter = "none"
	}
	if cfg.Telemetry.MetricExporter == "" {
		cfg.Telemetry.MetricExporter = "prometheus"
	}
	if cfg.Telemetry.OTLPEndpoint == "" {
		cfg.Telemetry.OTLPEndpoint = DefaultOTLPEndpoint
	}
}

// Validate checks cfg against its struct tags.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// HasExtension reports whether path ends in one of the configured extensions.
func (c *Config) HasExtension(path string) bool {
	lower := strings.ToLower(path)
	for _, ext := range c.Extensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}
