// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package config loads the shell configuration.
// Built-in defaults are embedded as YAML; an optional file overrides them.
// The file format is chosen by extension: .yaml/.yml, .toml or .hcl.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-yaml"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsimple"
	"github.com/spf13/afero"
	"github.com/zclconf/go-cty/cty"
)

// EnvConfigFile names a configuration file when --config is not given.
const EnvConfigFile = "MYSH_CONFIG"

// Delivery modes for the broadcast server.
const (
	DeliveryQueued = "queued"
	DeliverySync   = "sync"
)

var (
	// ErrReadConfig is returned when the configuration file cannot be read.
	ErrReadConfig = errors.New("failed to read configuration file")
	// ErrParseConfig is returned when the configuration file cannot be decoded.
	ErrParseConfig = errors.New("failed to parse configuration file")
	// ErrUnsupportedFormat is returned for files with an unknown extension.
	ErrUnsupportedFormat = errors.New("unsupported configuration format")
	// ErrInvalidConfig is returned when validation fails.
	ErrInvalidConfig = errors.New("invalid configuration")
)

//go:embed default/config.yaml
var defaultConfigData []byte

// FsFactory returns the filesystem configuration files are read from.
var FsFactory = func() afero.Fs {
	return afero.NewOsFs()
}

// Config is the effective shell configuration.
type Config struct {
	Prompt      string `yaml:"prompt" toml:"prompt" hcl:"prompt,optional" validate:"required"`
	HistoryFile string `yaml:"history_file" toml:"history_file" hcl:"history_file,optional"`
	LogLevel    string `yaml:"log_level" toml:"log_level" hcl:"log_level,optional" validate:"omitempty,oneof=DEBUG INFO WARN ERROR debug info warn error"`
	LogFormat   string `yaml:"log_format" toml:"log_format" hcl:"log_format,optional" validate:"omitempty,oneof=pretty json"`

	MaxJobs          int    `yaml:"max_jobs" toml:"max_jobs" hcl:"max_jobs,optional" validate:"gte=1"`
	BackgroundSettle string `yaml:"background_settle" toml:"background_settle" hcl:"background_settle,optional" validate:"duration"`

	ServerHost    string `yaml:"server_host" toml:"server_host" hcl:"server_host,optional"`
	MaxClients    int    `yaml:"max_clients" toml:"max_clients" hcl:"max_clients,optional" validate:"gte=1"`
	ReadChunkSize int    `yaml:"read_chunk_size" toml:"read_chunk_size" hcl:"read_chunk_size,optional" validate:"gte=16,lte=65536"`
	ControlToken  string `yaml:"control_token" toml:"control_token" hcl:"control_token,optional" validate:"required"`
	Delivery      string `yaml:"delivery" toml:"delivery" hcl:"delivery,optional" validate:"oneof=queued sync"`
	OutboxDepth   int    `yaml:"outbox_depth" toml:"outbox_depth" hcl:"outbox_depth,optional" validate:"gte=1"`
	ClientPoll    string `yaml:"client_poll" toml:"client_poll" hcl:"client_poll,optional" validate:"duration"`
}

// Default returns the embedded defaults.
func Default() *Config {
	var out Config
	if err := yaml.Unmarshal(defaultConfigData, &out); err != nil {
		panic(err)
	}

	return &out
}

// Load returns the defaults overridden by the file at path.
// An empty path falls back to $MYSH_CONFIG, and then to the defaults alone.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(EnvConfigFile)
	}

	if path == "" {
		return cfg, nil
	}

	data, err := afero.ReadFile(FsFactory(), path)
	if err != nil {
		return nil, errors.Join(ErrReadConfig, err)
	}

	file, err := decode(path, data)
	if err != nil {
		return nil, err
	}

	cfg.merge(file)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func decode(path string, data []byte) (*Config, error) {
	var file Config

	var err error

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &file)
	case ".toml":
		err = toml.Unmarshal(data, &file)
	case ".hcl":
		err = hclsimple.Decode(filepath.Base(path), data, evalContext(), &file)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}

	if err != nil {
		return nil, errors.Join(ErrParseConfig, err)
	}

	return &file, nil
}

// evalContext exposes the process environment to HCL files as env.NAME.
func evalContext() *hcl.EvalContext {
	vars := make(map[string]cty.Value)

	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok && k != "" {
			vars[k] = cty.StringVal(v)
		}
	}

	return &hcl.EvalContext{
		Variables: map[string]cty.Value{"env": cty.ObjectVal(vars)},
	}
}

// merge copies every non-zero field of other onto c.
func (c *Config) merge(other *Config) {
	dst := reflect.ValueOf(c).Elem()
	src := reflect.ValueOf(other).Elem()

	for i := range src.NumField() {
		if f := src.Field(i); !f.IsZero() {
			dst.Field(i).Set(f)
		}
	}
}

// Validate checks the configuration for semantic errors.
func (c *Config) Validate() error {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
	})

	_ = validate.RegisterValidation("duration", func(fl validator.FieldLevel) bool {
		_, err := time.ParseDuration(fl.Field().String())
		return err == nil
	})

	if err := validate.Struct(c); err != nil {
		return errors.Join(ErrInvalidConfig, err)
	}

	return nil
}

// Settle is the delay inserted before recording a background job.
func (c *Config) Settle() time.Duration {
	return mustDuration(c.BackgroundSettle)
}

// Poll is how long start-client waits for a reply after each line.
func (c *Config) Poll() time.Duration {
	return mustDuration(c.ClientPoll)
}

// Address joins the configured host with port.
func (c *Config) Address(port int) string {
	return fmt.Sprintf("%s:%d", c.ServerHost, port)
}

// Marshal renders the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

func mustDuration(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0
	}

	return d
}
