package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

const (
	// PlatformWebex drives the bot from Webex webhooks.
	PlatformWebex = "webex"
	// PlatformTelegram drives the bot from Telegram updates.
	PlatformTelegram = "telegram"
)

const (
	// ModulePoll enables the poll commands.
	ModulePoll = "poll"
	// ModuleGame enables the flag guessing game commands.
	ModuleGame = "game"
)

const (
	// RunModeWebhook selects webhook mode for Telegram updates.
	RunModeWebhook = "webhook"
	// RunModeLongpoll selects long-polling mode for Telegram updates.
	RunModeLongpoll = "longpoll"
)

const (
	// UpdateMessage identifies text message events for rate limit exclusions.
	UpdateMessage = "message"
	// UpdateSubmission identifies card submission events for rate limit exclusions.
	UpdateSubmission = "submission"
)

// WebexConfig holds Webex bot settings.
type WebexConfig struct {
	Token string `yaml:"token" envconfig:"WEBEX_TEAMS_ACCESS_TOKEN"`
	// RegisterWebhooks replaces the bot's webhooks on start-up so they point at Webhook.URL.
	RegisterWebhooks bool `yaml:"register_webhooks" envconfig:"WEBEX_REGISTER_WEBHOOKS"`
}

// TelegramConfig holds Telegram bot related settings.
type TelegramConfig struct {
	Token   string `yaml:"token" envconfig:"BOT_TOKEN"`
	RunMode string `yaml:"run_mode" envconfig:"TELEGRAM_RUN_MODE"`
	// LongPollTimeoutSeconds defines long polling timeout; 0 -> default
	LongPollTimeoutSeconds int `yaml:"longpoll_timeout_seconds" envconfig:"TELEGRAM_LONGPOLL_TIMEOUT_SECONDS"`
}

// WebhookConfig specifies the public URL and the local listener for inbound webhooks.
type WebhookConfig struct {
	URL    string `yaml:"url" envconfig:"WEBHOOK_URL"`
	Listen string `yaml:"listen" envconfig:"WEBHOOK_LISTEN"`
	Port   int    `yaml:"port" envconfig:"WEBHOOK_PORT"`
	// HandlerTimeout bounds the processing of a single webhook delivery.
	HandlerTimeout time.Duration `yaml:"handler_timeout" envconfig:"WEBHOOK_HANDLER_TIMEOUT"`
}

// LoggingConfig defines logging related configuration.
type LoggingConfig struct {
	Level     string `yaml:"level" envconfig:"LOG_LEVEL"`
	Format    string `yaml:"format" envconfig:"LOG_FORMAT"`
	KeysOrder string `yaml:"keys_order"`
	// DebugSampleEvery keeps one in every N repeated routine lines per key.
	// 0 means 50; 1 keeps them all.
	DebugSampleEvery int    `yaml:"debug_sample_every" envconfig:"LOG_DEBUG_SAMPLE_EVERY"`
	Dir              string `yaml:"dir"`
	BotFile          string `yaml:"bot_file"`
	// Profile indicates environment profile such as "debug" or "prod".
	Profile string `yaml:"profile"`
}

// RateLimitConfig holds settings for per-sender rate limiting.
// ExcludeUpdates accepts event kinds to bypass limiting:
// - "message": text messages addressed to the bot
// - "submission": card submissions and inline button presses
type RateLimitConfig struct {
	IntervalMS     int      `yaml:"interval_ms" envconfig:"RATE_LIMIT_INTERVAL_MS"`
	ExcludeUpdates []string `yaml:"exclude_updates" envconfig:"RATE_LIMIT_EXCLUDE_UPDATES"`
}

// DispatcherConfig tunes the asynchronous outbound sender.
type DispatcherConfig struct {
	QueueSize      int `yaml:"queue_size" envconfig:"DISPATCHER_QUEUE_SIZE"`
	Workers        int `yaml:"workers" envconfig:"DISPATCHER_WORKERS"`
	MaxRetries     int `yaml:"max_retries" envconfig:"DISPATCHER_MAX_RETRIES"`
	RetryBackoffMS int `yaml:"retry_backoff_ms" envconfig:"DISPATCHER_RETRY_BACKOFF_MS"`
	// Disabled delivers replies inline on the webhook goroutine.
	Disabled bool `yaml:"disabled" envconfig:"DISPATCHER_DISABLED"`
}

// SessionsConfig controls in-memory session housekeeping.
type SessionsConfig struct {
	EndedPollRetention time.Duration `yaml:"ended_poll_retention" envconfig:"SESSIONS_ENDED_POLL_RETENTION"`
	SweepInterval      time.Duration `yaml:"sweep_interval" envconfig:"SESSIONS_SWEEP_INTERVAL"`
}

// DatabaseConfig holds the optional archive database connection settings.
// The archive is disabled when Host is empty.
type DatabaseConfig struct {
	Host           string `yaml:"host" envconfig:"DB_HOST"`
	Port           string `yaml:"port" envconfig:"DB_PORT"`
	User           string `yaml:"user" envconfig:"DB_USER"`
	Password       string `yaml:"password" envconfig:"DB_PASSWORD"`
	Name           string `yaml:"name" envconfig:"DB_NAME"`
	SSLMode        string `yaml:"sslmode" envconfig:"DB_SSLMODE"`
	MaxConnections int    `yaml:"max_connections" envconfig:"DB_MAX_CONNECTIONS"`
	MigrationsDir  string `yaml:"migrations_dir" envconfig:"DB_MIGRATIONS_DIR"`
}

// Enabled reports whether an archive database is configured.
func (d DatabaseConfig) Enabled() bool {
	return strings.TrimSpace(d.Host) != ""
}

// Config aggregates the whole bot configuration.
type Config struct {
	Platform   string           `yaml:"platform" envconfig:"BOT_PLATFORM"`
	Modules    []string         `yaml:"modules" envconfig:"BOT_MODULES"`
	Webex      WebexConfig      `yaml:"webex"`
	Telegram   TelegramConfig   `yaml:"telegram"`
	Webhook    WebhookConfig    `yaml:"webhook"`
	Logging    LoggingConfig    `yaml:"logging"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit"`
	Dispatcher DispatcherConfig `yaml:"dispatcher"`
	Sessions   SessionsConfig   `yaml:"sessions"`
	Database   DatabaseConfig   `yaml:"database"`
}

// HasModule reports whether the named module is enabled.
func (c *Config) HasModule(name string) bool {
	if c == nil {
		return false
	}
	for _, m := range c.Modules {
		if m == name {
			return true
		}
	}
	return false
}

// Load reads configuration from a YAML file and environment variables.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize performs basic validation of required configuration fields and adjusts defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}

	platform := strings.ToLower(strings.TrimSpace(cfg.Platform))
	if platform == "" {
		platform = PlatformWebex
	}
	switch platform {
	case PlatformWebex:
		if err := normalizeWebex(cfg); err != nil {
			return err
		}
	case PlatformTelegram:
		if err := normalizeTelegram(cfg); err != nil {
			return err
		}
	default:
		return fmt.Errorf("invalid platform %q; allowed: webex, telegram", cfg.Platform)
	}
	cfg.Platform = platform

	if err := normalizeModules(cfg); err != nil {
		return err
	}

	if cfg.Webhook.HandlerTimeout <= 0 {
		cfg.Webhook.HandlerTimeout = 10 * time.Second
	}

	allowed := map[string]struct{}{
		UpdateMessage:    {},
		UpdateSubmission: {},
	}
	for i, v := range cfg.RateLimit.ExcludeUpdates {
		key := strings.ToLower(strings.TrimSpace(v))
		if key == "" {
			continue
		}
		if _, ok := allowed[key]; !ok {
			return fmt.Errorf("invalid rate_limit.exclude_updates value %q; allowed: message, submission", v)
		}
		cfg.RateLimit.ExcludeUpdates[i] = key
	}
	if cfg.RateLimit.IntervalMS < 0 {
		return fmt.Errorf("rate_limit.interval_ms must be >= 0")
	}

	if cfg.Dispatcher.MaxRetries < 0 {
		return fmt.Errorf("dispatcher.max_retries must be >= 0")
	}

	if cfg.Sessions.EndedPollRetention <= 0 {
		cfg.Sessions.EndedPollRetention = time.Hour
	}
	if cfg.Sessions.SweepInterval <= 0 {
		cfg.Sessions.SweepInterval = 5 * time.Minute
	}

	if cfg.Database.Enabled() {
		if cfg.Database.Port == "" {
			cfg.Database.Port = "5432"
		}
		if cfg.Database.SSLMode == "" {
			cfg.Database.SSLMode = "disable"
		}
		if cfg.Database.MaxConnections <= 0 {
			cfg.Database.MaxConnections = 4
		}
		if strings.TrimSpace(cfg.Database.Name) == "" {
			return fmt.Errorf("database.name is required when database.host is set")
		}
	}
	return nil
}

func normalizeWebex(cfg *Config) error {
	if strings.TrimSpace(cfg.Webex.Token) == "" {
		return fmt.Errorf("webex token is required")
	}
	if cfg.Webhook.Port <= 0 {
		cfg.Webhook.Port = 12000
	}
	if strings.TrimSpace(cfg.Webhook.Listen) == "" {
		cfg.Webhook.Listen = "0.0.0.0"
	}
	if cfg.Webex.RegisterWebhooks && strings.TrimSpace(cfg.Webhook.URL) == "" {
		return fmt.Errorf("webhook.url is required when webex.register_webhooks is enabled")
	}
	return nil
}

func normalizeTelegram(cfg *Config) error {
	if cfg.Telegram.Token == "" {
		return fmt.Errorf("telegram token is required")
	}

	rm := strings.ToLower(strings.TrimSpace(cfg.Telegram.RunMode))
	if rm == "" {
		rm = RunModeLongpoll
	}
	if rm == "polling" { // accept alias
		rm = RunModeLongpoll
	}
	switch rm {
	case RunModeWebhook:
		if strings.TrimSpace(cfg.Webhook.URL) == "" {
			return fmt.Errorf("webhook.url is required when telegram.run_mode is 'webhook'")
		}
		if strings.TrimSpace(cfg.Webhook.Listen) == "" {
			return fmt.Errorf("webhook.listen is required when telegram.run_mode is 'webhook'")
		}
		if cfg.Webhook.Port <= 0 {
			return fmt.Errorf("webhook.port must be > 0 when telegram.run_mode is 'webhook'")
		}
	case RunModeLongpoll:
		if cfg.Telegram.LongPollTimeoutSeconds < 0 {
			return fmt.Errorf("telegram.longpoll_timeout_seconds must be >= 0")
		}
	default:
		return fmt.Errorf("invalid telegram.run_mode %q; allowed: webhook, longpoll", cfg.Telegram.RunMode)
	}
	cfg.Telegram.RunMode = rm
	return nil
}

func normalizeModules(cfg *Config) error {
	if len(cfg.Modules) == 0 {
		cfg.Modules = []string{ModulePoll, ModuleGame}
		return nil
	}
	seen := make(map[string]struct{}, len(cfg.Modules))
	out := make([]string, 0, len(cfg.Modules))
	for _, m := range cfg.Modules {
		key := strings.ToLower(strings.TrimSpace(m))
		if key == "" {
			continue
		}
		if key != ModulePoll && key != ModuleGame {
			return fmt.Errorf("invalid module %q; allowed: poll, game", m)
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	if len(out) == 0 {
		return fmt.Errorf("at least one module must be enabled")
	}
	cfg.Modules = out
	return nil
}
