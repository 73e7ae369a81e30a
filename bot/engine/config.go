package engine

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/AnkitShukla-arch/ddos-simulation/log"
	"github.com/AnkitShukla-arch/ddos-simulation/monitoring"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by the bot, e.g. TRAFFICBOT_RPS.
const EnvPrefix = "trafficbot"

// Config holds all parameters of one traffic engine run. It is loaded once and never mutated afterwards.
type Config struct {
	Endpoint    string        `mapstructure:"endpoint" validate:"required,url"`
	RPS         int           `mapstructure:"rps" validate:"gt=0"`
	Duration    time.Duration `mapstructure:"duration" validate:"gte=0"` // 0 runs until stopped
	Mode        string        `mapstructure:"mode" validate:"required"`
	Concurrency int           `mapstructure:"concurrency" validate:"gt=0"`
	IPv4Ratio   float64       `mapstructure:"ipv4_ratio" validate:"gte=0,lte=1"`
	LogInterval time.Duration `mapstructure:"log_interval" validate:"gt=0"`

	RequestTimeout time.Duration      `mapstructure:"request_timeout" validate:"gt=0"`
	QueueFactor    int                `mapstructure:"queue_factor" validate:"gt=0"`
	Modes          map[string]float64 `mapstructure:"modes" validate:"dive,keys,required,endkeys,gte=0,lte=1"`
	MetricsAddress string             `mapstructure:"metrics_address"`
	Instance       string             `mapstructure:"instance"`

	Log     log.Config               `mapstructure:"log"`
	Tracing monitoring.TracingConfig `mapstructure:"tracing"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Endpoint:       "http://localhost:8000/predict",
		RPS:            10,
		Mode:           ModeMedium,
		Concurrency:    10,
		IPv4Ratio:      0.7,
		LogInterval:    5 * time.Second,
		RequestTimeout: 5 * time.Second,
		QueueFactor:    4,
		Instance:       "trafficbot",
		Log:            log.DefaultConfig(),
		Tracing: monitoring.TracingConfig{
			ServiceName:  "trafficbot",
			SamplerRatio: 1,
		},
	}
}

// ModeTable returns the built-in modes merged with the configured ones.
func (c *Config) ModeTable() ModeTable {
	return DefaultModes().With(c.Modes)
}

// QueueCapacity is the WorkQueue size: QueueFactor seconds worth of production.
func (c *Config) QueueCapacity() int {
	return max(c.RPS*c.QueueFactor, 1)
}

// Interval is the time between two produced items.
func (c *Config) Interval() time.Duration {
	return time.Second / time.Duration(c.RPS)
}

// Validate checks field constraints and rejects unknown traffic modes.
func (c *Config) Validate() error {
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(c); err != nil {
		return newConfigError(err)
	}

	if _, err := c.ModeTable().Probability(c.Mode); err != nil {
		return err
	}

	return nil
}

// ConfigError reports every invalid field of a Config.
type ConfigError struct {
	Fields []string
}

func (e *ConfigError) Error() string {
	return "invalid configuration: " + strings.Join(e.Fields, "; ")
}

func newConfigError(err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	fields := make([]string, 0, len(validationErrors))
	for _, fe := range validationErrors {
		msg := fe.Namespace() + " failed on '" + fe.Tag() + "'"
		if fe.Param() != "" {
			msg += " (" + fe.Param() + ")"
		}

		fields = append(fields, msg)
	}

	return &ConfigError{Fields: fields}
}

// RegisterFlags adds the bot's command line flags to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.StringP("config", "c", "", "Path to a YAML configuration file")
	fs.String("endpoint", "", "Target URL receiving POST {\"ip\": ...}")
	fs.Int("rps", 0, "Requests per second")
	fs.String("duration", "", "Run length in seconds or as Go duration (empty/0 = until signaled)")
	fs.String("mode", "", "Traffic mode (benign_only, low, medium, high, attack_only or a configured one)")
	fs.Int("concurrency", 0, "Number of concurrent HTTP workers")
	fs.Float64("ipv4-ratio", 0, "Fraction of IPv4 addresses (0..1)")
	fs.String("log-interval", "", "Interval between stats summaries (seconds or Go duration)")
	fs.String("request-timeout", "", "Per request timeout (seconds or Go duration)")
	fs.String("metrics-address", "", "Listen address for Prometheus metrics (empty disables)")
	fs.String("log-level", "", "Log level: none, error, warn, info, debug")
	fs.Bool("log-json", false, "Log in JSON format")
	fs.String("color", "", "Color output: auto|always|never")
}

var flagKeys = map[string]string{
	"endpoint":        "endpoint",
	"rps":             "rps",
	"duration":        "duration",
	"mode":            "mode",
	"concurrency":     "concurrency",
	"ipv4-ratio":      "ipv4_ratio",
	"log-interval":    "log_interval",
	"request-timeout": "request_timeout",
	"metrics-address": "metrics_address",
	"log-level":       "log.level",
	"log-json":        "log.json",
	"color":           "log.color",
}

// NewViper builds a viper instance with defaults, environment binding, the optional config file and flags.
func NewViper(path string, fs *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()

	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AllowEmptyEnv(false)
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

	return v, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("endpoint", d.Endpoint)
	v.SetDefault("rps", d.RPS)
	v.SetDefault("duration", d.Duration)
	v.SetDefault("mode", d.Mode)
	v.SetDefault("concurrency", d.Concurrency)
	v.SetDefault("ipv4_ratio", d.IPv4Ratio)
	v.SetDefault("log_interval", d.LogInterval)
	v.SetDefault("request_timeout", d.RequestTimeout)
	v.SetDefault("queue_factor", d.QueueFactor)
	v.SetDefault("metrics_address", d.MetricsAddress)
	v.SetDefault("instance", d.Instance)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.json", d.Log.JSON)
	v.SetDefault("log.color", d.Log.Color)
	v.SetDefault("log.theme", d.Log.Theme)
	v.SetDefault("tracing.enabled", d.Tracing.Enabled)
	v.SetDefault("tracing.endpoint", d.Tracing.Endpoint)
	v.SetDefault("tracing.service_name", d.Tracing.ServiceName)
	v.SetDefault("tracing.sampler_ratio", d.Tracing.SamplerRatio)
	v.SetDefault("tracing.insecure", d.Tracing.Insecure)
}

// Unmarshal decodes and validates the settings held by v.
func Unmarshal(v *viper.Viper) (*Config, error) {
	cfg := &Config{}

	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		SecondsDurationHook(),
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

// LoadConfig reads the configuration from path (optional), TRAFFICBOT_* variables and fs.
func LoadConfig(path string, fs *pflag.FlagSet) (*Config, error) {
	v, err := NewViper(path, fs)
	if err != nil {
		return nil, err
	}

	return Unmarshal(v)
}

var durationType = reflect.TypeOf(time.Duration(0))

// SecondsDurationHook decodes plain numbers (and numeric strings) as seconds and other strings with
// time.ParseDuration.
func SecondsDurationHook() mapstructure.DecodeHookFuncType {
	return func(_ reflect.Type, to reflect.Type, data any) (any, error) {
		if to != durationType {
			return data, nil
		}

		switch v := data.(type) {
		case time.Duration:
			return v, nil
		case int:
			return time.Duration(v) * time.Second, nil
		case int64:
			return time.Duration(v) * time.Second, nil
		case uint64:
			return time.Duration(v) * time.Second, nil
		case float64:
			return secondsToDuration(v), nil
		case string:
			s := strings.TrimSpace(v)
			if s == "" {
				return time.Duration(0), nil
			}

			if f, err := strconv.ParseFloat(s, 64); err == nil {
				return secondsToDuration(f), nil
			}

			return time.ParseDuration(s)
		}

		return data, nil
	}
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
