//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package config loads the server settings of MathsGPT.
//
// The user's API key is not a server setting: it is only ever entered on the
// page and is deliberately absent from Config, the YAML file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"trpc.group/trpc-go/mathsgpt/log"
)

// Providers.
const (
	ProviderGroq      = "groq"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Lookup tools.
const (
	LookupWikipedia  = "wikipedia"
	LookupDuckDuckGo = "duckduckgo"
)

// Environment variables read by ApplyEnv.
const (
	EnvAddr     = "MATHSGPT_ADDR"
	EnvProvider = "MATHSGPT_PROVIDER"
	EnvModel    = "MATHSGPT_MODEL"
	EnvBaseURL  = "MATHSGPT_BASE_URL"
	EnvLogLevel = "MATHSGPT_LOG_LEVEL"
)

// Config holds the server settings.
type Config struct {
	Addr     string `yaml:"addr"`
	Provider string `yaml:"provider"`
	// Model names the chat model. Empty means the provider default.
	Model string `yaml:"model"`
	// BaseURL overrides the provider endpoint. Empty means the provider default.
	BaseURL string `yaml:"base_url"`

	Lookup        string `yaml:"lookup"`
	ReasoningTool bool   `yaml:"reasoning_tool"`

	// MaxIterations and MaxExecutionTime bound a run; 0 means unbounded.
	MaxIterations       int           `yaml:"max_iterations"`
	MaxExecutionTime    time.Duration `yaml:"max_execution_time"`
	EarlyStopping       string        `yaml:"early_stopping"`
	HandleParsingErrors bool          `yaml:"handle_parsing_errors"`

	MaxConcurrentRuns int           `yaml:"max_concurrent_runs"`
	SessionTTL        time.Duration `yaml:"session_ttl"`

	SecureCookie   bool     `yaml:"secure_cookie"`
	AllowedOrigins []string `yaml:"allowed_origins"`

	LogLevel          string `yaml:"log_level"`
	TraceEndpoint     string `yaml:"trace_endpoint"`
	MetricEndpoint    string `yaml:"metric_endpoint"`
	TelemetryProtocol string `yaml:"telemetry_protocol"`
}

// Default returns the settings of the hosted demo.
func Default() *Config {
	return &Config{
		Addr:                ":8501",
		Provider:            ProviderGroq,
		Lookup:              LookupWikipedia,
		MaxIterations:       4,
		MaxExecutionTime:    30 * time.Second,
		EarlyStopping:       "generate",
		HandleParsingErrors: true,
		MaxConcurrentRuns:   16,
		SessionTTL:          time.Hour,
		LogLevel:            log.LevelInfo,
		TelemetryProtocol:   "grpc",
		AllowedOrigins:      []string{"*"},
	}
}

// Load reads a YAML file over the defaults. An empty path or a missing file
// yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	bts, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		log.Debugf("config file %s not found, using defaults", path)
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(bts, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overrides settings from the given .env files and the process
// environment, the latter taking precedence. Missing .env files are skipped.
func (c *Config) ApplyEnv(envFiles ...string) error {
	values := map[string]string{}
	for _, f := range envFiles {
		m, err := godotenv.Read(f)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return fmt.Errorf("read %s: %w", f, err)
		}
		for k, v := range m {
			values[k] = v
		}
	}
	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := values[key]
		return v, ok
	}
	for key, dst := range map[string]*string{
		EnvAddr:     &c.Addr,
		EnvProvider: &c.Provider,
		EnvModel:    &c.Model,
		EnvBaseURL:  &c.BaseURL,
		EnvLogLevel: &c.LogLevel,
	} {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	return nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return errors.New("config: addr is required")
	case c.MaxIterations < 0:
		return fmt.Errorf("config: max_iterations must not be negative, got %d", c.MaxIterations)
	case c.MaxExecutionTime < 0:
		return fmt.Errorf("config: max_execution_time must not be negative, got %s", c.MaxExecutionTime)
	case c.MaxConcurrentRuns <= 0:
		return fmt.Errorf("config: max_concurrent_runs must be positive, got %d", c.MaxConcurrentRuns)
	case c.SessionTTL < 0:
		return fmt.Errorf("config: session_ttl must not be negative, got %s", c.SessionTTL)
	}
	if err := oneOf("provider", c.Provider, ProviderGroq, ProviderOpenAI, ProviderAnthropic); err != nil {
		return err
	}
	if err := oneOf("lookup", c.Lookup, LookupWikipedia, LookupDuckDuckGo); err != nil {
		return err
	}
	if err := oneOf("early_stopping", c.EarlyStopping, "generate", "force"); err != nil {
		return err
	}
	if err := oneOf("log_level", c.LogLevel,
		log.LevelDebug, log.LevelInfo, log.LevelWarn, log.LevelError, log.LevelFatal); err != nil {
		return err
	}
	return oneOf("telemetry_protocol", c.TelemetryProtocol, "grpc", "http")
}

func oneOf(field, value string, allowed ...string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return fmt.Errorf("config: %s must be one of %v, got %q", field, allowed, value)
}
