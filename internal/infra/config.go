package infra

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"mql_bridge/internal/domain"

	"github.com/caarlos0/env/v11"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config는 애플리케이션의 모든 설정을 담습니다.
// LoadConfig로 로드된 후에 환경 변수를 통해 내용을 덮어씁니다.
type Config struct {
	App      AppConfig      `yaml:"app"`
	Bridge   BridgeConfig   `yaml:"bridge"`
	Storage  StorageConfig  `yaml:"storage"`
	Relay    RelayConfig    `yaml:"relay"`
	Strategy StrategyConfig `yaml:"strategy"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type AppConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

// BridgeConfig drives the file protocol with the MetaTrader host.
type BridgeConfig struct {
	MetaTraderDir      string `yaml:"metatrader_dir" env:"MQL_BRIDGE_DIR"`
	SleepDelayMS       int    `yaml:"sleep_delay_ms" env:"MQL_BRIDGE_SLEEP_DELAY_MS"`
	MaxRetryCommandSec int    `yaml:"max_retry_command_seconds" env:"MQL_BRIDGE_MAX_RETRY_COMMAND_SECONDS"`
	LoadOrdersFromFile bool   `yaml:"load_orders_from_file" env:"MQL_BRIDGE_LOAD_ORDERS_FROM_FILE"`
	CommandSlots       int    `yaml:"command_slots"`
	CommandIDWrap      int    `yaml:"command_id_wrap"`
	ResetSettleMS      int    `yaml:"reset_settle_ms"`
	Verbose            bool   `yaml:"verbose" env:"MQL_BRIDGE_VERBOSE"`

	// Subscribed on start: tick symbols and "SYMBOL_TIMEFRAME" bar keys
	Symbols []string `yaml:"symbols" env:"MQL_BRIDGE_SYMBOLS" envSeparator:","`
	BarData []string `yaml:"bar_data" env:"MQL_BRIDGE_BAR_DATA" envSeparator:","`
}

// SleepDelay is the pause between poll cycles and between slot scans.
func (b BridgeConfig) SleepDelay() time.Duration {
	return time.Duration(b.SleepDelayMS) * time.Millisecond
}

// MaxRetry bounds how long one command send may wait for a free slot.
func (b BridgeConfig) MaxRetry() time.Duration {
	return time.Duration(b.MaxRetryCommandSec) * time.Second
}

// ResetSettle is the pause after RESET_COMMAND_IDS.
func (b BridgeConfig) ResetSettle() time.Duration {
	return time.Duration(b.ResetSettleMS) * time.Millisecond
}

type StorageConfig struct {
	Enabled bool   `yaml:"enabled" env:"MQL_BRIDGE_JOURNAL_ENABLED"`
	Path    string `yaml:"path" env:"MQL_BRIDGE_JOURNAL_PATH"`
}

type RelayConfig struct {
	Enabled    bool   `yaml:"enabled" env:"MQL_BRIDGE_RELAY_ENABLED"`
	ListenAddr string `yaml:"listen_addr" env:"MQL_BRIDGE_RELAY_ADDR"`
}

type StrategyConfig struct {
	Enabled     bool            `yaml:"enabled"`
	Symbol      string          `yaml:"symbol"`
	ShortPeriod int             `yaml:"short_period"`
	LongPeriod  int             `yaml:"long_period"`
	Lots        decimal.Decimal `yaml:"lots"`
	Magic       int64           `yaml:"magic"`
}

type LoggingConfig struct {
	Level      string `yaml:"level" env:"MQL_BRIDGE_LOG_LEVEL"`
	Dir        string `yaml:"dir" env:"MQL_BRIDGE_LOG_DIR"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// DefaultConfig returns the values used for keys the YAML file leaves out.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.App.Name = "mql-bridge"
	cfg.Bridge = BridgeConfig{
		SleepDelayMS:       5,
		MaxRetryCommandSec: 10,
		LoadOrdersFromFile: true,
		CommandSlots:       50,
		CommandIDWrap:      100000,
		ResetSettleMS:      500,
		Verbose:            true,
	}
	cfg.Storage.Path = "data/journal.db"
	cfg.Relay.ListenAddr = "127.0.0.1:8088"
	cfg.Strategy = StrategyConfig{
		ShortPeriod: 3,
		LongPeriod:  5,
		Lots:        domain.DefaultLots,
	}
	cfg.Logging = LoggingConfig{
		Level:      "info",
		Dir:        "logs",
		File:       "bridge.log",
		MaxSizeMB:  10,
		MaxBackups: 3,
		MaxAgeDays: 28,
		Compress:   true,
	}
	return cfg
}

// LoadConfig는 설정 파일을 읽고 파싱합니다.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &domain.ConfigError{Field: path, Err: domain.ErrConfigNotFound}
		}
		return nil, err
	}
	return ParseConfig(data)
}

// ParseConfig applies YAML over the defaults, then environment overrides.
func ParseConfig(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config from YAML: %w", err)
	}

	// 보안 우선 - 환경 변수 오버라이드 지원
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks configuration validity
func (c *Config) Validate() error {
	b := c.Bridge
	if b.MetaTraderDir == "" {
		return &domain.ConfigError{Field: "bridge.metatrader_dir", Err: errors.New("must be set")}
	}
	if b.SleepDelayMS <= 0 {
		return &domain.ConfigError{Field: "bridge.sleep_delay_ms", Err: errors.New("must be positive")}
	}
	if b.MaxRetryCommandSec < 0 {
		return &domain.ConfigError{Field: "bridge.max_retry_command_seconds", Err: errors.New("cannot be negative")}
	}
	if b.CommandSlots <= 0 {
		return &domain.ConfigError{Field: "bridge.command_slots", Err: errors.New("must be positive")}
	}
	if b.CommandIDWrap <= 1 {
		return &domain.ConfigError{Field: "bridge.command_id_wrap", Err: errors.New("must be greater than 1")}
	}
	if b.ResetSettleMS < 0 {
		return &domain.ConfigError{Field: "bridge.reset_settle_ms", Err: errors.New("cannot be negative")}
	}
	for _, key := range b.BarData {
		if _, err := domain.SplitKey(key); err != nil {
			return &domain.ConfigError{Field: "bridge.bar_data", Err: err}
		}
	}

	if c.Storage.Enabled && c.Storage.Path == "" {
		return &domain.ConfigError{Field: "storage.path", Err: errors.New("required when storage is enabled")}
	}
	if c.Relay.Enabled && c.Relay.ListenAddr == "" {
		return &domain.ConfigError{Field: "relay.listen_addr", Err: errors.New("required when relay is enabled")}
	}

	if s := c.Strategy; s.Enabled {
		if s.Symbol == "" {
			return &domain.ConfigError{Field: "strategy.symbol", Err: errors.New("required when strategy is enabled")}
		}
		if s.ShortPeriod <= 0 || s.ShortPeriod >= s.LongPeriod {
			return &domain.ConfigError{Field: "strategy.short_period", Err: errors.New("must be positive and less than long_period")}
		}
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return &domain.ConfigError{Field: "logging.level", Err: fmt.Errorf("unknown level %q", c.Logging.Level)}
	}

	return nil
}
