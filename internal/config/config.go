package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"usage-alerts/internal/logging"
	"usage-alerts/internal/rules"
)

// Config materialises application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Logging   logging.Config  `mapstructure:"logging"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	API       APIConfig       `mapstructure:"api"`
	Ingest    IngestConfig    `mapstructure:"ingest"`
	Alerting  AlertingConfig  `mapstructure:"alerting"`
	Server    ServerConfig    `mapstructure:"server"`
	Export    ExportConfig    `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// DatabaseConfig encapsulates the optional PostgreSQL archive.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// SchedulerConfig governs ingestion cadence.
type SchedulerConfig struct {
	Interval     time.Duration `mapstructure:"interval"`
	AlignToStart bool          `mapstructure:"align_to_start"`
	StartupDelay time.Duration `mapstructure:"startup_delay"`
}

// APIConfig covers the remote billing/usage API.
type APIConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	UserAgent      string        `mapstructure:"user_agent"`
}

// IngestConfig selects and tunes the record source.
type IngestConfig struct {
	// Mode is "live" (REST fetch) or "synthetic" (generated feed).
	Mode       string  `mapstructure:"mode"`
	BufferCap  int     `mapstructure:"buffer_cap"`
	Customers  int     `mapstructure:"customers"`
	MinBatch   int     `mapstructure:"min_batch"`
	MaxBatch   int     `mapstructure:"max_batch"`
	MaxAmount  float64 `mapstructure:"max_amount"`
	RandomSeed int64   `mapstructure:"random_seed"`
}

// RuleConfig declares one alert rule. Rules are operator-supplied and
// read-only to the engine.
type RuleConfig struct {
	ID              string  `mapstructure:"id"`
	Name            string  `mapstructure:"name"`
	Description     string  `mapstructure:"description"`
	Kind            string  `mapstructure:"kind"`
	ComparisonValue float64 `mapstructure:"comparison_value"`
	Enabled         bool    `mapstructure:"enabled"`
}

// AlertingConfig defines alert rules and routing.
type AlertingConfig struct {
	Enabled    bool           `mapstructure:"enabled"`
	Cooldown   time.Duration  `mapstructure:"cooldown"`
	HistoryCap int            `mapstructure:"history_cap"`
	Channels   []string       `mapstructure:"channels"`
	Rules      []RuleConfig   `mapstructure:"rules"`
	Telegram   TelegramConfig `mapstructure:"telegram"`
}

// TelegramConfig describes the Telegram notification channel.
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	APIBase  string `mapstructure:"api_base"`
}

// ServerConfig tunes the snapshot/metrics HTTP listener.
type ServerConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Addr         string        `mapstructure:"addr"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	MaxDataPoints int `mapstructure:"max_data_points"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("USAGEWATCHER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "usagewatcher")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("scheduler.interval", "5s")
	v.SetDefault("scheduler.align_to_start", false)
	v.SetDefault("scheduler.startup_delay", "0s")

	v.SetDefault("api.request_timeout", "10s")
	v.SetDefault("api.user_agent", "usagewatcher/1.0")

	v.SetDefault("ingest.mode", "synthetic")
	v.SetDefault("ingest.buffer_cap", 100)
	v.SetDefault("ingest.customers", 25)
	v.SetDefault("ingest.min_batch", 1)
	v.SetDefault("ingest.max_batch", 3)
	v.SetDefault("ingest.max_amount", 500.0)

	v.SetDefault("alerting.enabled", true)
	v.SetDefault("alerting.cooldown", "0s")
	v.SetDefault("alerting.history_cap", 50)
	v.SetDefault("alerting.channels", []string{"log"})
	v.SetDefault("alerting.telegram.enabled", false)
	v.SetDefault("alerting.telegram.api_base", "https://api.telegram.org")

	v.SetDefault("server.enabled", true)
	v.SetDefault("server.addr", ":8642")
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "10s")

	v.SetDefault("export.max_data_points", 100000)

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if c.Scheduler.Interval <= 0 {
		return fmt.Errorf("scheduler.interval must be greater than zero")
	}
	if c.Ingest.Mode != "live" && c.Ingest.Mode != "synthetic" {
		return fmt.Errorf("ingest.mode must be live or synthetic, got %q", c.Ingest.Mode)
	}
	if c.Ingest.Mode == "live" && c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url is required for live ingestion")
	}
	if c.Ingest.BufferCap <= 0 {
		return fmt.Errorf("ingest.buffer_cap must be greater than zero")
	}
	if c.Alerting.HistoryCap <= 0 {
		return fmt.Errorf("alerting.history_cap must be greater than zero")
	}
	if c.Export.MaxDataPoints <= 0 {
		return fmt.Errorf("export.max_data_points must be greater than zero")
	}
	if c.Alerting.Telegram.Enabled {
		if c.Alerting.Telegram.BotToken == "" {
			return fmt.Errorf("alerting.telegram.bot_token is required")
		}
		if c.Alerting.Telegram.ChatID == "" {
			return fmt.Errorf("alerting.telegram.chat_id is required")
		}
	}
	if _, err := c.Alerting.RuleSet(); err != nil {
		return err
	}
	return nil
}

// RuleSet converts the configured rules into engine rules, validating
// each along the way.
func (a AlertingConfig) RuleSet() ([]rules.AlertRule, error) {
	out := make([]rules.AlertRule, 0, len(a.Rules))
	for _, rc := range a.Rules {
		rule := rules.AlertRule{
			ID:              rc.ID,
			Name:            rc.Name,
			Description:     rc.Description,
			Kind:            rules.RuleKind(rc.Kind),
			ComparisonValue: decimal.NewFromFloat(rc.ComparisonValue),
			Enabled:         rc.Enabled,
		}
		if err := rule.Validate(); err != nil {
			return nil, fmt.Errorf("alerting.rules: %w", err)
		}
		out = append(out, rule)
	}
	return out, nil
}

// ResolveMaxPoints returns either the CLI override or config default.
func (c *Config) ResolveMaxPoints(override int) int {
	if override > 0 {
		return override
	}
	return c.Export.MaxDataPoints
}
