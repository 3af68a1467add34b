package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rustyeddy/papertrader/ledger"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config represents the complete paper trading configuration
type Config struct {
	PaperTrading PaperTradingConfig `json:"paper_trading" yaml:"paper_trading"`
	Market       MarketConfig       `json:"market" yaml:"market"`
	Alpaca       AlpacaConfig       `json:"alpaca" yaml:"alpaca"`
	Sentiment    SentimentConfig    `json:"sentiment" yaml:"sentiment"`
	Strategies   []StrategyConfig   `json:"strategies" yaml:"strategies"`
	Journal      JournalConfig      `json:"journal" yaml:"journal"`
	Run          RunConfig          `json:"run" yaml:"run"`
	Logging      LoggingConfig      `json:"logging" yaml:"logging"`
	Performance  PerformanceConfig  `json:"performance" yaml:"performance"`
}

// PaperTradingConfig contains the ledger's capital and frictions
type PaperTradingConfig struct {
	InitialCapital  float64 `json:"initial_capital" yaml:"initial_capital"`
	Commission      float64 `json:"commission" yaml:"commission"`
	Slippage        float64 `json:"slippage" yaml:"slippage"`
	MaxPositionSize float64 `json:"max_position_size" yaml:"max_position_size"` // fraction of cash per entry
	Currency        string  `json:"currency" yaml:"currency"`
}

// MarketConfig selects the symbols traded and where prices come from
type MarketConfig struct {
	Symbols     []string `json:"symbols" yaml:"symbols"`
	Source      string   `json:"source" yaml:"source"` // "alpaca", "parquet" or "csv"
	DataDir     string   `json:"data_dir,omitempty" yaml:"data_dir,omitempty"`
	CSVFile     string   `json:"csv_file,omitempty" yaml:"csv_file,omitempty"`
	HistoryDays int      `json:"history_days" yaml:"history_days"`
	QuoteTTL    string   `json:"quote_ttl" yaml:"quote_ttl"` // e.g. "60s"
}

// AlpacaConfig holds market data credentials
type AlpacaConfig struct {
	APIKey    string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	APISecret string `json:"api_secret,omitempty" yaml:"api_secret,omitempty"`
	DataURL   string `json:"data_url,omitempty" yaml:"data_url,omitempty"`
}

// SentimentConfig contains sentiment provider parameters
type SentimentConfig struct {
	Enabled     bool    `json:"enabled" yaml:"enabled"`
	Source      string  `json:"source" yaml:"source"` // "fear_greed" or "static"
	URL         string  `json:"url,omitempty" yaml:"url,omitempty"`
	TTL         string  `json:"ttl" yaml:"ttl"`
	StaticValue float64 `json:"static_value,omitempty" yaml:"static_value,omitempty"`
}

// StrategyConfig configures one signal producer
type StrategyConfig struct {
	Name                string  `json:"name" yaml:"name"`
	ID                  string  `json:"id,omitempty" yaml:"id,omitempty"`
	ShortWindow         int     `json:"short_window,omitempty" yaml:"short_window,omitempty"`
	LongWindow          int     `json:"long_window,omitempty" yaml:"long_window,omitempty"`
	ConfidenceThreshold float64 `json:"confidence_threshold,omitempty" yaml:"confidence_threshold,omitempty"`
}

// JournalConfig contains journaling parameters
type JournalConfig struct {
	Type          string `json:"type" yaml:"type"` // "csv", "sqlite", "postgres" or "none"
	TradesFile    string `json:"trades_file,omitempty" yaml:"trades_file,omitempty"`
	OrdersFile    string `json:"orders_file,omitempty" yaml:"orders_file,omitempty"`
	PositionsFile string `json:"positions_file,omitempty" yaml:"positions_file,omitempty"`
	SnapshotsFile string `json:"snapshots_file,omitempty" yaml:"snapshots_file,omitempty"`
	DBPath        string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
	DSN           string `json:"dsn,omitempty" yaml:"dsn,omitempty"`
}

// RunConfig controls the trading session loop
type RunConfig struct {
	Iterations int    `json:"iterations" yaml:"iterations"`
	Interval   string `json:"interval" yaml:"interval"` // e.g. "1m", "0s" for replay
}

// LoggingConfig selects the slog level and handler, and an optional
// rotating log file kept next to the console output
type LoggingConfig struct {
	Level      string `json:"level" yaml:"level"`
	Format     string `json:"format" yaml:"format"` // "text" or "json"
	File       string `json:"file" yaml:"file"`     // empty: console only
	MaxSizeMB  int    `json:"max_size_mb" yaml:"max_size_mb"`
	MaxAgeDays int    `json:"max_age_days" yaml:"max_age_days"`
	MaxBackups int    `json:"max_backups" yaml:"max_backups"`
}

// PerformanceConfig contains report parameters
type PerformanceConfig struct {
	RiskFreeRate float64 `json:"risk_free_rate" yaml:"risk_free_rate"`
}

// LoadFromFile loads configuration from a file (YAML or JSON), applies
// environment overrides and validates the result.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		cfg = Default()
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	ApplyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveToFile saves configuration to a file (YAML or JSON based on extension)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	default:
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// ApplyEnvOverrides replaces secrets and paths from the environment. The
// APCA_* names are the ones the Alpaca SDK itself reads.
func ApplyEnvOverrides(c *Config) {
	if v := os.Getenv("APCA_API_KEY_ID"); v != "" {
		c.Alpaca.APIKey = v
	}
	if v := os.Getenv("APCA_API_SECRET_KEY"); v != "" {
		c.Alpaca.APISecret = v
	}
	if v := os.Getenv("PAPERTRADER_DATA_DIR"); v != "" {
		c.Market.DataDir = v
	}
	if v := os.Getenv("PAPERTRADER_DB_PATH"); v != "" {
		c.Journal.DBPath = v
	}
	if v := os.Getenv("PAPERTRADER_PG_DSN"); v != "" {
		c.Journal.DSN = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("PAPERTRADER_LOG_FILE"); v != "" {
		c.Logging.File = v
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	pt := c.PaperTrading
	if pt.Currency == "" {
		return fmt.Errorf("paper_trading.currency is required")
	}
	if pt.InitialCapital <= 0 {
		return fmt.Errorf("paper_trading.initial_capital must be positive")
	}
	if pt.Commission < 0 || pt.Commission >= 1 {
		return fmt.Errorf("paper_trading.commission must be between 0 and 1")
	}
	if pt.Slippage < 0 || pt.Slippage >= 1 {
		return fmt.Errorf("paper_trading.slippage must be between 0 and 1")
	}
	if pt.MaxPositionSize <= 0 || pt.MaxPositionSize > 1 {
		return fmt.Errorf("paper_trading.max_position_size must be between 0 and 1")
	}

	if len(c.Market.Symbols) == 0 {
		return fmt.Errorf("market.symbols is required")
	}
	switch c.Market.Source {
	case "alpaca":
	case "parquet":
		if c.Market.DataDir == "" {
			return fmt.Errorf("market.data_dir required for parquet source")
		}
	case "csv":
		if c.Market.CSVFile == "" {
			return fmt.Errorf("market.csv_file required for csv source")
		}
	default:
		return fmt.Errorf("market.source must be 'alpaca', 'parquet' or 'csv'")
	}
	if c.Market.HistoryDays <= 0 {
		return fmt.Errorf("market.history_days must be positive")
	}
	if _, err := c.Market.TTL(); err != nil {
		return fmt.Errorf("market.quote_ttl: %w", err)
	}

	if c.Sentiment.Enabled {
		switch c.Sentiment.Source {
		case "fear_greed", "static":
		default:
			return fmt.Errorf("sentiment.source must be 'fear_greed' or 'static'")
		}
		if _, err := c.Sentiment.CacheTTL(); err != nil {
			return fmt.Errorf("sentiment.ttl: %w", err)
		}
	}

	if len(c.Strategies) == 0 {
		return fmt.Errorf("at least one strategy is required")
	}
	for i, s := range c.Strategies {
		if s.Name == "" {
			return fmt.Errorf("strategies[%d].name is required", i)
		}
		if s.ShortWindow < 0 || s.LongWindow < 0 {
			return fmt.Errorf("strategies[%d] windows must not be negative", i)
		}
		if s.ShortWindow > 0 && s.LongWindow > 0 && s.ShortWindow >= s.LongWindow {
			return fmt.Errorf("strategies[%d].short_window must be less than long_window", i)
		}
	}

	switch c.Journal.Type {
	case "none":
	case "csv":
		j := c.Journal
		if j.TradesFile == "" || j.OrdersFile == "" || j.PositionsFile == "" || j.SnapshotsFile == "" {
			return fmt.Errorf("journal trades_file, orders_file, positions_file and snapshots_file required for CSV type")
		}
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal db_path required for SQLite type")
		}
	case "postgres":
		if c.Journal.DSN == "" {
			return fmt.Errorf("journal dsn required for Postgres type")
		}
	default:
		return fmt.Errorf("journal.type must be 'csv', 'sqlite', 'postgres' or 'none'")
	}

	if c.Run.Iterations <= 0 {
		return fmt.Errorf("run.iterations must be positive")
	}
	if _, err := c.Run.Wait(); err != nil {
		return fmt.Errorf("run.interval: %w", err)
	}
	if lg := c.Logging; lg.MaxSizeMB < 0 || lg.MaxAgeDays < 0 || lg.MaxBackups < 0 {
		return fmt.Errorf("logging max_size_mb, max_age_days and max_backups must not be negative")
	}
	if c.Performance.RiskFreeRate < 0 {
		return fmt.Errorf("performance.risk_free_rate must not be negative")
	}
	return nil
}

// LedgerConfig converts the paper trading section for ledger.New.
func (c *Config) LedgerConfig() ledger.Config {
	return ledger.Config{
		InitialCapital: decimal.NewFromFloat(c.PaperTrading.InitialCapital),
		CommissionRate: decimal.NewFromFloat(c.PaperTrading.Commission),
		SlippageRate:   decimal.NewFromFloat(c.PaperTrading.Slippage),
	}
}

// TTL parses QuoteTTL. Empty means the cache default.
func (m MarketConfig) TTL() (time.Duration, error) {
	return parseDuration(m.QuoteTTL)
}

// CacheTTL parses TTL. Empty means the cache default.
func (s SentimentConfig) CacheTTL() (time.Duration, error) {
	return parseDuration(s.TTL)
}

// Wait parses Interval.
func (r RunConfig) Wait() (time.Duration, error) {
	return parseDuration(r.Interval)
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %s", s)
	}
	return d, nil
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		PaperTrading: PaperTradingConfig{
			InitialCapital:  100,
			Commission:      0.001,
			Slippage:        0.0005,
			MaxPositionSize: 0.2,
			Currency:        "USD",
		},
		Market: MarketConfig{
			Symbols:     []string{"AAPL", "GOOGL", "MSFT"},
			Source:      "alpaca",
			DataDir:     "./data",
			HistoryDays: 60,
			QuoteTTL:    "60s",
		},
		Sentiment: SentimentConfig{
			Enabled: true,
			Source:  "fear_greed",
			URL:     "https://api.alternative.me/fng/",
			TTL:     "5m",
		},
		Strategies: []StrategyConfig{
			{
				Name:                "sma_crossover",
				ID:                  "sma_crossover_v1",
				ShortWindow:         10,
				LongWindow:          30,
				ConfidenceThreshold: 0.7,
			},
		},
		Journal: JournalConfig{
			Type:   "sqlite",
			DBPath: "./papertrader.db",
		},
		Run: RunConfig{
			Iterations: 10,
			Interval:   "1m",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			File:       "logs/papertrader.log",
			MaxSizeMB:  100,
			MaxAgeDays: 30,
		},
		Performance: PerformanceConfig{
			RiskFreeRate: 0.04,
		},
	}
}
