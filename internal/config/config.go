// Package config provides configuration management for the application
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/teoh/bintangbuddy/internal/models"
)

// EnvPrefix is prepended to every environment variable, e.g. BINTANG_CONCURRENCY
const EnvPrefix = "BINTANG"

// ClientConfig holds everything needed to talk to the booking service.
// It is passed by value and never mutated after the token has been attached.
type ClientConfig struct {
	MerchantID     string        `mapstructure:"merchant_id"`
	AuthURL        string        `mapstructure:"auth_url"`
	CatalogBaseURL string        `mapstructure:"catalog_base_url"`
	ScheduleURL    string        `mapstructure:"schedule_url"`
	Token          string        `mapstructure:"bearer"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// WithToken returns a copy of the configuration carrying the given bearer token
func (c ClientConfig) WithToken(token string) ClientConfig {
	c.Token = token
	return c
}

// HasToken reports whether a bearer token is already available
func (c ClientConfig) HasToken() bool {
	return c.Token != ""
}

// RateLimitConfig holds the in-process outbound rate limit
type RateLimitConfig struct {
	// RPS of 0 or less disables limiting
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

// RedisConfig holds Redis/Valkey configuration for the shared rate limiter
type RedisConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// URI is prioritized if provided, otherwise individual connection parameters are used
	URI       string `mapstructure:"uri"`
	Host      string `mapstructure:"host"`
	Port      string `mapstructure:"port"`
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
	// Limit requests are allowed per Window across every process sharing the instance
	Limit  int           `mapstructure:"limit"`
	Window time.Duration `mapstructure:"window"`
}

// LogConfig controls the zap logger
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// ServerConfig controls serve mode
type ServerConfig struct {
	Port string `mapstructure:"port"`
}

// TelemetryConfig controls OpenTelemetry tracing
type TelemetryConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	Endpoint    string  `mapstructure:"endpoint"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

// Config is the complete application configuration
type Config struct {
	Client      ClientConfig      `mapstructure:",squash"`
	Timezone    string            `mapstructure:"timezone"`
	Concurrency int               `mapstructure:"concurrency"`
	Locations   map[string]string `mapstructure:"locations"`
	RateLimit   RateLimitConfig   `mapstructure:"rate_limit"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Log         LogConfig         `mapstructure:"log"`
	Server      ServerConfig      `mapstructure:"server"`
	Telemetry   TelemetryConfig   `mapstructure:"otel"`

	// Command line only
	Date   string   `mapstructure:"date"`
	Gyms   []string `mapstructure:"gym"`
	Format string   `mapstructure:"format"`
	Serve  bool     `mapstructure:"serve"`
}

// LocationTable returns the configured location table
func (c *Config) LocationTable() models.LocationTable {
	if len(c.Locations) == 0 {
		return models.NewLocationTable(models.DefaultLocations)
	}
	return models.NewLocationTable(c.Locations)
}

// Validate checks that the configuration can be used
func (c *Config) Validate() error {
	var errs []error
	if c.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("concurrency must be at least 1 (got %d)", c.Concurrency))
	}
	if c.Client.MerchantID == "" {
		errs = append(errs, errors.New("merchant_id is required"))
	}
	if c.Client.CatalogBaseURL == "" || c.Client.ScheduleURL == "" {
		errs = append(errs, errors.New("catalog_base_url and schedule_url are required"))
	}
	if !c.Client.HasToken() && c.Client.AuthURL == "" {
		errs = append(errs, errors.New("either bearer or auth_url must be set"))
	}
	if c.Client.RequestTimeout <= 0 {
		errs = append(errs, fmt.Errorf("request_timeout must be positive (got %s)", c.Client.RequestTimeout))
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("unknown timezone %q", c.Timezone))
	}
	switch c.Format {
	case "table", "json":
	default:
		errs = append(errs, fmt.Errorf("format must be table or json (got %q)", c.Format))
	}
	return errors.Join(errs...)
}

// RegisterFlags declares the command line flags on fs
func RegisterFlags(fs *pflag.FlagSet) {
	fs.StringP("date", "d", "", "Date (YYYY-MM-DD) to search courts for. Defaults to today.")
	fs.StringArrayP("gym", "g", nil, "Gym you'd like to pull schedules for (repeatable). Defaults to all.")
	fs.StringP("format", "f", "table", "Output format: table or json")
	fs.Bool("serve", false, "Run the HTTP API instead of a one-shot query")
	fs.Int("concurrency", 10, "Maximum number of concurrent schedule requests")
	fs.String("config", "", "Path to a config file")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("merchant_id", "16509")
	v.SetDefault("auth_url", "https://app.bukza.com/api/client/create/16509")
	v.SetDefault("catalog_base_url", "https://app.bukza.com/api/resource-groups/getClientCatalog")
	v.SetDefault("schedule_url", "https://app.bukza.com/api/clientReservations/getAvailability/16509")
	v.SetDefault("bearer", "")
	v.SetDefault("request_timeout", 30*time.Second)
	v.SetDefault("timezone", "America/Los_Angeles")
	v.SetDefault("concurrency", 10)

	v.SetDefault("rate_limit.rps", 0)
	v.SetDefault("rate_limit.burst", 10)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.uri", "")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", "6379")
	v.SetDefault("redis.username", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key_prefix", "bintangbuddy:")
	v.SetDefault("redis.limit", 20)
	v.SetDefault("redis.window", time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)

	v.SetDefault("server.port", "8080")

	v.SetDefault("otel.enabled", false)
	v.SetDefault("otel.endpoint", "localhost:4317")
	v.SetDefault("otel.sample_ratio", 1.0)

	v.SetDefault("date", "")
	v.SetDefault("gym", []string{})
	v.SetDefault("format", "table")
	v.SetDefault("serve", false)
}

// Load builds the configuration from defaults, an optional config file,
// environment variables and the parsed flags, in increasing precedence.
// fs may be nil.
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// The legacy scripts read the token from a bare BEARER variable
	if err := v.BindEnv("bearer", EnvPrefix+"_BEARER", "BEARER"); err != nil {
		return nil, fmt.Errorf("failed to bind bearer env: %w", err)
	}

	configFile := ""
	if fs != nil {
		for _, name := range []string{"date", "gym", "format", "serve", "concurrency"} {
			if flag := fs.Lookup(name); flag != nil {
				if err := v.BindPFlag(name, flag); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
		configFile, _ = fs.GetString("config")
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	} else {
		v.SetConfigName("bintangbuddy")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	// Flags registered with StringArray are not split by the decoder
	if fs != nil && fs.Changed("gym") {
		cfg.Gyms, _ = fs.GetStringArray("gym")
	}
	cfg.Format = strings.ToLower(strings.TrimSpace(cfg.Format))

	return &cfg, nil
}
