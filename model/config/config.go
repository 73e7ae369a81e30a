// Copyright (C) 2024 Christian Rößner
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// Package config loads the classifier service configuration.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/AnkitShukla-arch/ddos-simulation/log"
	"github.com/AnkitShukla-arch/ddos-simulation/model/detector"
	"github.com/AnkitShukla-arch/ddos-simulation/monitoring"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by the classifier, e.g. CLASSIFIER_LISTEN.
const EnvPrefix = "classifier"

// Config is the classifier service configuration.
type Config struct {
	Listen          string        `mapstructure:"listen" validate:"required,hostname_port"`
	Instance        string        `mapstructure:"instance"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" validate:"gte=0"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" validate:"gte=0"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`

	// MaxConnections bounds concurrently handled requests. Zero disables the limit.
	MaxConnections int32 `mapstructure:"max_connections" validate:"gte=0"`

	RateLimit RateLimit                `mapstructure:"rate_limit"`
	Rules     detector.Rules           `mapstructure:"rules"`
	Log       log.Config               `mapstructure:"log"`
	Tracing   monitoring.TracingConfig `mapstructure:"tracing"`
}

// RateLimit is a per client token bucket. A zero rate disables it.
type RateLimit struct {
	PerSecond float64 `mapstructure:"per_second" validate:"gte=0"`
	Burst     int     `mapstructure:"burst" validate:"gte=0"`
}

// Enabled reports whether requests are rate limited.
func (r RateLimit) Enabled() bool {
	return r.PerSecond > 0
}

// Default returns the configuration used when nothing else is set.
func Default() *Config {
	return &Config{
		Listen:          "0.0.0.0:8000",
		Instance:        "classifier",
		ReadTimeout:     10 * time.Second,
		WriteTimeout:    10 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		Rules:           detector.DefaultRules(),
		Log:             log.DefaultConfig(),
		Tracing: monitoring.TracingConfig{
			ServiceName:  "classifier",
			SamplerRatio: 1,
		},
	}
}

// RegisterFlags adds the classifier command line flags to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.StringP("config", "c", "", "Path to a YAML configuration file")
	fs.String("listen", "", "Listen address (host:port)")
	fs.Int32("max-connections", 0, "Maximum concurrent requests (0 = unlimited)")
	fs.Float64("rate-limit", 0, "Requests per second per client (0 = unlimited)")
	fs.Int("rate-burst", 0, "Rate limit burst per client")
	fs.String("log-level", "", "Log level: none, error, warn, info, debug")
	fs.Bool("log-json", false, "Log in JSON format")
	fs.String("color", "", "Color output: auto|always|never")
}

var flagKeys = map[string]string{
	"listen":          "listen",
	"max-connections": "max_connections",
	"rate-limit":      "rate_limit.per_second",
	"rate-burst":      "rate_limit.burst",
	"log-level":       "log.level",
	"log-json":        "log.json",
	"color":           "log.color",
}

// Load reads the configuration from path (optional), CLASSIFIER_* variables and fs, then validates it.
func Load(path string, fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	d := Default()

	v.SetDefault("listen", d.Listen)
	v.SetDefault("instance", d.Instance)
	v.SetDefault("read_timeout", d.ReadTimeout)
	v.SetDefault("write_timeout", d.WriteTimeout)
	v.SetDefault("shutdown_timeout", d.ShutdownTimeout)
	v.SetDefault("max_connections", d.MaxConnections)
	v.SetDefault("rate_limit.per_second", d.RateLimit.PerSecond)
	v.SetDefault("rate_limit.burst", d.RateLimit.Burst)
	v.SetDefault("rules.prefixes", d.Rules.Prefixes)
	v.SetDefault("rules.substrings", d.Rules.Substrings)
	v.SetDefault("rules.max_length", d.Rules.MaxLength)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.json", d.Log.JSON)
	v.SetDefault("log.color", d.Log.Color)
	v.SetDefault("log.theme", d.Log.Theme)
	v.SetDefault("tracing.enabled", d.Tracing.Enabled)
	v.SetDefault("tracing.endpoint", d.Tracing.Endpoint)
	v.SetDefault("tracing.service_name", d.Tracing.ServiceName)
	v.SetDefault("tracing.sampler_ratio", d.Tracing.SamplerRatio)
	v.SetDefault("tracing.insecure", d.Tracing.Insecure)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if fs != nil {
		for name, key := range flagKeys {
			if f := fs.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, err
				}
			}
		}
	}

	if path != "" {
		v.SetConfigFile(path)

		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %q: %w", path, err)
		}
	}

	cfg := &Config{}

	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))

	if err := v.Unmarshal(cfg, hook); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	err := validator.New(validator.WithRequiredStructEnabled()).Struct(c)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	msgs := make([]string, 0, len(validationErrors))
	for _, fe := range validationErrors {
		msgs = append(msgs, fmt.Sprintf("%s failed on '%s'", fe.Namespace(), fe.Tag()))
	}

	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}
