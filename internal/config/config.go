package config

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config carries every knob the loop recognizes. Values are fixed for the
// process lifetime; components receive the struct at construction and never
// read ambient state.
type Config struct {
	ScanInterval     time.Duration
	BatchSize        int
	MinPrice         float64
	MaxPrice         float64
	MinPctUp         float64
	MinMinuteVolume  uint64
	DollarsPerTrade  float64
	MaxOpenPositions int
	ExtendedHours    bool
	SlippageBps      float64
	TrailPercent     float64
	UniversePath     string
	DecisionsPath    string
	MetricsAddr      string
	BrokerBaseURL    string
	DataBaseURL      string
	APIKey           string
	APISecret        string
}

func defaults() Config {
	return Config{
		ScanInterval:     5 * time.Second,
		BatchSize:        150,
		MinPrice:         1.0,
		MaxPrice:         2000.0,
		MinPctUp:         0.8,
		MinMinuteVolume:  2000,
		DollarsPerTrade:  75,
		MaxOpenPositions: 5,
		ExtendedHours:    true,
		SlippageBps:      15,
		TrailPercent:     3.0,
		UniversePath:     "symbols.txt",
		DecisionsPath:    "decisions.ndjson",
		MetricsAddr:      ":9091",
		BrokerBaseURL:    "https://paper-api.alpaca.markets",
		DataBaseURL:      "https://data.alpaca.markets",
	}
}

// fileConfig mirrors Config with optional fields so a config file only
// overrides what it mentions.
type fileConfig struct {
	ScanIntervalSeconds *int     `yaml:"scan_interval_seconds"`
	BatchSize           *int     `yaml:"batch_size"`
	MinPrice            *float64 `yaml:"min_price"`
	MaxPrice            *float64 `yaml:"max_price"`
	MinPctUp            *float64 `yaml:"min_pct_up"`
	MinMinuteVolume     *uint64  `yaml:"min_minute_volume"`
	DollarsPerTrade     *float64 `yaml:"dollars_per_trade"`
	MaxOpenPositions    *int     `yaml:"max_open_positions"`
	ExtendedHours       *bool    `yaml:"extended_hours"`
	SlippageBps         *float64 `yaml:"limit_slippage_bps"`
	TrailPercent        *float64 `yaml:"trail_percent"`
	UniversePath        *string  `yaml:"universe_file"`
	DecisionsPath       *string  `yaml:"decisions_path"`
	MetricsAddr         *string  `yaml:"metrics_addr"`
	BrokerBaseURL       *string  `yaml:"broker_base_url"`
	DataBaseURL         *string  `yaml:"data_base_url"`
	APIKey              *string  `yaml:"api_key"`
	APISecret           *string  `yaml:"api_secret"`
}

// Load resolves configuration with flag > env > file > default precedence.
func Load() (Config, error) {
	_ = godotenv.Load()
	return load(os.Args[1:])
}

func load(args []string) (Config, error) {
	flags := defaults()
	var configPath string

	fs := flag.NewFlagSet("bot", flag.ContinueOnError)
	fs.StringVar(&configPath, "config", "", "path to YAML config file")
	fs.DurationVar(&flags.ScanInterval, "scan-interval", flags.ScanInterval, "delay between scan ticks")
	fs.IntVar(&flags.BatchSize, "batch-size", flags.BatchSize, "symbols per snapshot request")
	fs.Float64Var(&flags.MinPrice, "min-price", flags.MinPrice, "minimum last trade price")
	fs.Float64Var(&flags.MaxPrice, "max-price", flags.MaxPrice, "maximum last trade price")
	fs.Float64Var(&flags.MinPctUp, "min-pct-up", flags.MinPctUp, "minimum % gain vs previous close")
	fs.Uint64Var(&flags.MinMinuteVolume, "min-minute-volume", flags.MinMinuteVolume, "minimum current-minute volume")
	fs.Float64Var(&flags.DollarsPerTrade, "dollars-per-trade", flags.DollarsPerTrade, "notional per entry")
	fs.IntVar(&flags.MaxOpenPositions, "max-positions", flags.MaxOpenPositions, "max concurrent positions")
	fs.BoolVar(&flags.ExtendedHours, "extended-hours", flags.ExtendedHours, "allow pre/after market limit entries")
	fs.Float64Var(&flags.SlippageBps, "slippage-bps", flags.SlippageBps, "limit price premium in basis points")
	fs.Float64Var(&flags.TrailPercent, "trail-percent", flags.TrailPercent, "trailing stop percentage")
	fs.StringVar(&flags.UniversePath, "universe", flags.UniversePath, "path to universe file")
	fs.StringVar(&flags.DecisionsPath, "decisions-path", flags.DecisionsPath, "path to decisions log")
	fs.StringVar(&flags.MetricsAddr, "metrics-addr", flags.MetricsAddr, "metrics listen address, empty disables")
	fs.StringVar(&flags.BrokerBaseURL, "broker-base-url", flags.BrokerBaseURL, "brokerage base URL")
	fs.StringVar(&flags.DataBaseURL, "data-base-url", flags.DataBaseURL, "market data base URL")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	cfg := defaults()
	if configPath != "" {
		if err := applyFile(&cfg, configPath); err != nil {
			return Config{}, err
		}
	}
	if v := os.Getenv("APCA_API_KEY_ID"); v != "" {
		cfg.APIKey = v
	}
	if v := os.Getenv("APCA_API_SECRET_KEY"); v != "" {
		cfg.APISecret = v
	}
	applyFlags(&cfg, flags, fs)

	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	if fc.ScanIntervalSeconds != nil {
		cfg.ScanInterval = time.Duration(*fc.ScanIntervalSeconds) * time.Second
	}
	if fc.BatchSize != nil {
		cfg.BatchSize = *fc.BatchSize
	}
	if fc.MinPrice != nil {
		cfg.MinPrice = *fc.MinPrice
	}
	if fc.MaxPrice != nil {
		cfg.MaxPrice = *fc.MaxPrice
	}
	if fc.MinPctUp != nil {
		cfg.MinPctUp = *fc.MinPctUp
	}
	if fc.MinMinuteVolume != nil {
		cfg.MinMinuteVolume = *fc.MinMinuteVolume
	}
	if fc.DollarsPerTrade != nil {
		cfg.DollarsPerTrade = *fc.DollarsPerTrade
	}
	if fc.MaxOpenPositions != nil {
		cfg.MaxOpenPositions = *fc.MaxOpenPositions
	}
	if fc.ExtendedHours != nil {
		cfg.ExtendedHours = *fc.ExtendedHours
	}
	if fc.SlippageBps != nil {
		cfg.SlippageBps = *fc.SlippageBps
	}
	if fc.TrailPercent != nil {
		cfg.TrailPercent = *fc.TrailPercent
	}
	if fc.UniversePath != nil {
		cfg.UniversePath = *fc.UniversePath
	}
	if fc.DecisionsPath != nil {
		cfg.DecisionsPath = *fc.DecisionsPath
	}
	if fc.MetricsAddr != nil {
		cfg.MetricsAddr = *fc.MetricsAddr
	}
	if fc.BrokerBaseURL != nil {
		cfg.BrokerBaseURL = *fc.BrokerBaseURL
	}
	if fc.DataBaseURL != nil {
		cfg.DataBaseURL = *fc.DataBaseURL
	}
	if fc.APIKey != nil {
		cfg.APIKey = *fc.APIKey
	}
	if fc.APISecret != nil {
		cfg.APISecret = *fc.APISecret
	}
	return nil
}

// applyFlags copies only the flags the caller actually set, so CLI values win
// over both the config file and the environment.
func applyFlags(cfg *Config, flags Config, fs *flag.FlagSet) {
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "scan-interval":
			cfg.ScanInterval = flags.ScanInterval
		case "batch-size":
			cfg.BatchSize = flags.BatchSize
		case "min-price":
			cfg.MinPrice = flags.MinPrice
		case "max-price":
			cfg.MaxPrice = flags.MaxPrice
		case "min-pct-up":
			cfg.MinPctUp = flags.MinPctUp
		case "min-minute-volume":
			cfg.MinMinuteVolume = flags.MinMinuteVolume
		case "dollars-per-trade":
			cfg.DollarsPerTrade = flags.DollarsPerTrade
		case "max-positions":
			cfg.MaxOpenPositions = flags.MaxOpenPositions
		case "extended-hours":
			cfg.ExtendedHours = flags.ExtendedHours
		case "slippage-bps":
			cfg.SlippageBps = flags.SlippageBps
		case "trail-percent":
			cfg.TrailPercent = flags.TrailPercent
		case "universe":
			cfg.UniversePath = flags.UniversePath
		case "decisions-path":
			cfg.DecisionsPath = flags.DecisionsPath
		case "metrics-addr":
			cfg.MetricsAddr = flags.MetricsAddr
		case "broker-base-url":
			cfg.BrokerBaseURL = flags.BrokerBaseURL
		case "data-base-url":
			cfg.DataBaseURL = flags.DataBaseURL
		}
	})
}

func validate(cfg Config) error {
	if cfg.ScanInterval <= 0 {
		return fmt.Errorf("scan-interval must be > 0")
	}
	if cfg.BatchSize <= 0 {
		return fmt.Errorf("batch-size must be > 0")
	}
	if cfg.MinPrice < 0 || cfg.MaxPrice <= 0 || cfg.MinPrice > cfg.MaxPrice {
		return fmt.Errorf("price bounds invalid: [%v, %v]", cfg.MinPrice, cfg.MaxPrice)
	}
	if cfg.DollarsPerTrade <= 0 {
		return fmt.Errorf("dollars-per-trade must be > 0")
	}
	if cfg.MaxOpenPositions <= 0 {
		return fmt.Errorf("max-positions must be > 0")
	}
	if cfg.SlippageBps < 0 {
		return fmt.Errorf("slippage-bps must be >= 0")
	}
	if cfg.TrailPercent <= 0 {
		return fmt.Errorf("trail-percent must be > 0")
	}
	if cfg.UniversePath == "" {
		return fmt.Errorf("universe file path is required")
	}
	if cfg.APIKey == "" || cfg.APISecret == "" {
		return fmt.Errorf("APCA_API_KEY_ID and APCA_API_SECRET_KEY are required")
	}
	return nil
}
