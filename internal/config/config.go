// Package config resolves runtime settings from flags, environment, an
// optional .env file and an optional wanderlust.toml.
package config

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	envPrefix  = "WANDERLUST"
	configName = "wanderlust"
	configType = "toml"
)

type Config struct {
	AssistantURL    string
	BookingURL      string
	UserID          string
	HTTPTimeout     time.Duration
	ProgressStep    time.Duration
	NotificationTTL time.Duration
	ParamPrefix     string
	JournalTable    string
	JournalTTL      time.Duration
	AMQPURL         string
	AMQPQueue       string
	LogLevel        string
}

// SSMEnabled reports whether secrets and the user id come from Parameter Store.
func (c Config) SSMEnabled() bool {
	return c.ParamPrefix != ""
}

func (c Config) JournalEnabled() bool {
	return c.JournalTable != ""
}

func (c Config) PublisherEnabled() bool {
	return c.AMQPURL != ""
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("assistant_url", "http://localhost:8080")
	v.SetDefault("booking_url", "")
	v.SetDefault("user_id", "")
	v.SetDefault("http_timeout", 30*time.Second)
	v.SetDefault("progress_step", 800*time.Millisecond)
	v.SetDefault("notification_ttl", 5*time.Second)
	v.SetDefault("param_prefix", "")
	v.SetDefault("journal_table", "")
	v.SetDefault("journal_ttl", 24*time.Hour)
	v.SetDefault("amqp_url", "")
	v.SetDefault("amqp_queue", "booking.outcomes")
	v.SetDefault("log_level", "info")
}

// Load reads configuration into v. A missing .env or config file is fine.
// Flags bound to v before the call take precedence over everything else.
func Load(v *viper.Viper) (Config, error) {
	if v == nil {
		v = viper.New()
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("config: load .env: %w", err)
	}

	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetConfigName(configName)
	v.SetConfigType(configType)
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".wanderlust"))
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("config: read config file: %w", err)
		}
	}

	cfg := Config{
		AssistantURL:    strings.TrimSpace(v.GetString("assistant_url")),
		BookingURL:      strings.TrimSpace(v.GetString("booking_url")),
		UserID:          strings.TrimSpace(v.GetString("user_id")),
		HTTPTimeout:     v.GetDuration("http_timeout"),
		ProgressStep:    v.GetDuration("progress_step"),
		NotificationTTL: v.GetDuration("notification_ttl"),
		ParamPrefix:     strings.TrimRight(strings.TrimSpace(v.GetString("param_prefix")), "/"),
		JournalTable:    strings.TrimSpace(v.GetString("journal_table")),
		JournalTTL:      v.GetDuration("journal_ttl"),
		AMQPURL:         strings.TrimSpace(v.GetString("amqp_url")),
		AMQPQueue:       strings.TrimSpace(v.GetString("amqp_queue")),
		LogLevel:        strings.ToLower(strings.TrimSpace(v.GetString("log_level"))),
	}
	if cfg.BookingURL == "" {
		cfg.BookingURL = cfg.AssistantURL
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.AssistantURL == "" {
		return errors.New("config: assistant_url must not be empty")
	}
	for name, d := range map[string]time.Duration{
		"http_timeout":     c.HTTPTimeout,
		"progress_step":    c.ProgressStep,
		"notification_ttl": c.NotificationTTL,
		"journal_ttl":      c.JournalTTL,
	} {
		if d <= 0 {
			return fmt.Errorf("config: %s must be positive", name)
		}
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unknown log_level %q", c.LogLevel)
	}
	return nil
}

// SessionUserID returns a throwaway user id for sessions with none configured.
func SessionUserID() string {
	return fmt.Sprintf("user-%d", rand.IntN(10000))
}
