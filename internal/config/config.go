package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig wraps every validation failure; it is fatal at startup.
var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Logging struct {
		Level      string `yaml:"level"`
		Pretty     bool   `yaml:"pretty"`
		File       string `yaml:"file"` // optional rotating log file
		MaxSizeMB  int    `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
		MaxAgeDays int    `yaml:"max_age_days"`
		Compress   bool   `yaml:"compress"`
	} `yaml:"logging"`
	Server struct {
		Enabled             bool     `yaml:"enabled"`
		Addr                string   `yaml:"addr"`
		Pprof               bool     `yaml:"pprof"`
		ReadTimeoutSeconds  int      `yaml:"read_timeout_seconds"`
		WriteTimeoutSeconds int      `yaml:"write_timeout_seconds"`
		IdleTimeoutSeconds  int      `yaml:"idle_timeout_seconds"`
		AdminAllowCIDRs     []string `yaml:"admin_allow_cidrs"`
	} `yaml:"server"`
	Scan struct {
		InvestmentAmount float64    `yaml:"investment_amount"`
		DepthLevels      int        `yaml:"orderbook_depth_levels"`
		MinProfitPct     float64    `yaml:"min_profit_pct"`
		MaxStalenessMs   int        `yaml:"max_staleness_ms"`
		DustThreshold    float64    `yaml:"dust_threshold"`
		IntervalSeconds  int        `yaml:"interval_seconds"`
		Workers          int        `yaml:"workers"`
		MaxMarkets       int        `yaml:"max_markets_per_exchange"`
		MaxAssets        int        `yaml:"max_assets"`
		TopN             int        `yaml:"top_n"`
		Triangular       bool       `yaml:"triangular"`
		CrossExchange    bool       `yaml:"cross_exchange"`
		OriginAssets     []string   `yaml:"origin_assets"`
		Symbols          []string   `yaml:"symbols"` // empty = every listed market, capped by MaxMarkets
		Triangles        []Triangle `yaml:"triangles"`
	} `yaml:"scan"`
	Fees struct {
		DefaultTakerBps float64            `yaml:"default_taker_bps"`
		TakerBps        map[string]float64 `yaml:"taker_bps"`
	} `yaml:"fees"`
	Exchanges struct {
		Enabled []string `yaml:"enabled"`
		Binance Exchange `yaml:"binance"`
		Bybit   Exchange `yaml:"bybit"`
		Kraken  Exchange `yaml:"kraken"`
	} `yaml:"exchanges"`
	Output struct {
		Dir string `yaml:"dir"` // empty disables CSV export
	} `yaml:"output"`
	Redis struct {
		Enabled    bool   `yaml:"enabled"`
		Addr       string `yaml:"addr"`
		Password   string `yaml:"password"`
		DB         int    `yaml:"db"`
		Prefix     string `yaml:"prefix"`
		TTLSeconds int    `yaml:"ttl_seconds"`
	} `yaml:"redis"`
}

// Exchange holds the public endpoint and request budget of one venue.
type Exchange struct {
	BaseURL     string  `yaml:"base_url"`
	RatePerSec  float64 `yaml:"rate_per_sec"`
	Burst       int     `yaml:"burst"`
	TimeoutSecs int     `yaml:"timeout_seconds"`
}

// Triangle pins a cycle explicitly: start holding Origin, trade AB, BC, CA in order.
type Triangle struct {
	Origin string `yaml:"origin"`
	AB     string `yaml:"AB"`
	BC     string `yaml:"BC"`
	CA     string `yaml:"CA"`
}

// Default returns the built-in settings Load starts from.
func Default() Config {
	var c Config
	c.Logging.Level = "info"
	c.Logging.Pretty = false
	c.Logging.MaxSizeMB = 10
	c.Logging.MaxBackups = 3
	c.Logging.MaxAgeDays = 28
	c.Logging.Compress = true
	c.Server.Enabled = true
	c.Server.Addr = ":9090"
	c.Server.Pprof = false
	c.Server.ReadTimeoutSeconds = 5
	c.Server.WriteTimeoutSeconds = 10
	c.Server.IdleTimeoutSeconds = 60
	c.Server.AdminAllowCIDRs = []string{"127.0.0.0/8", "::1/128"}
	c.Scan.InvestmentAmount = 1000.0
	c.Scan.DepthLevels = 10
	c.Scan.MinProfitPct = 0.25
	c.Scan.MaxStalenessMs = 5000
	c.Scan.DustThreshold = 1e-9
	c.Scan.IntervalSeconds = 30
	c.Scan.Workers = 8
	c.Scan.MaxMarkets = 500
	c.Scan.MaxAssets = 80
	c.Scan.TopN = 50
	c.Scan.Triangular = true
	c.Scan.CrossExchange = true
	c.Scan.OriginAssets = []string{"USDT"}
	c.Scan.Symbols = []string{"BTC/USDT", "ETH/USDT", "ETH/BTC", "BNB/USDT", "BNB/BTC", "SOL/USDT", "SOL/BTC", "XRP/USDT", "XRP/BTC", "LTC/USDT", "LTC/BTC", "LINK/USDT", "LINK/BTC"}
	c.Fees.DefaultTakerBps = 20.0
	c.Fees.TakerBps = map[string]float64{"binance": 10.0, "bybit": 10.0, "kraken": 26.0}
	c.Exchanges.Enabled = []string{"binance", "bybit", "kraken"}
	c.Exchanges.Binance = Exchange{BaseURL: "https://api.binance.com", RatePerSec: 10, Burst: 20, TimeoutSecs: 5}
	c.Exchanges.Bybit = Exchange{BaseURL: "https://api.bybit.com", RatePerSec: 10, Burst: 10, TimeoutSecs: 5}
	c.Exchanges.Kraken = Exchange{BaseURL: "https://api.kraken.com", RatePerSec: 1, Burst: 5, TimeoutSecs: 5}
	c.Output.Dir = ""
	c.Redis.Addr = "127.0.0.1:6379"
	c.Redis.Prefix = "arbscreen"
	c.Redis.TTLSeconds = 3600
	return c
}

// Load layers defaults, the YAML file named by ARBSCREEN_CONFIG, a .env file
// if present, and environment overrides, then validates the result.
func Load() (Config, error) {
	c := Default()
	_ = godotenv.Load()
	if path := os.Getenv("ARBSCREEN_CONFIG"); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return c, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return c, fmt.Errorf("parse yaml: %w", err)
		}
	}
	if err := applyEnv(&c); err != nil {
		return c, err
	}
	return c, c.Validate()
}

func applyEnv(c *Config) error {
	if v := os.Getenv("ARBSCREEN_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("ARBSCREEN_LOG_FILE"); v != "" {
		c.Logging.File = v
	}
	if v := os.Getenv("ARBSCREEN_HTTP_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("ARBSCREEN_PPROF"); v == "1" || v == "true" {
		c.Server.Pprof = true
	}
	if v := os.Getenv("ARBSCREEN_ADMIN_ALLOW_CIDRS"); v != "" {
		c.Server.AdminAllowCIDRs = splitCSV(v)
	}
	if v := os.Getenv("ARBSCREEN_EXCHANGES"); v != "" {
		c.Exchanges.Enabled = splitCSV(v)
	}
	if v := os.Getenv("ARBSCREEN_SYMBOLS"); v != "" {
		c.Scan.Symbols = splitCSV(v)
	}
	if v := os.Getenv("ARBSCREEN_ORIGIN_ASSETS"); v != "" {
		c.Scan.OriginAssets = splitCSV(v)
	}
	if v := os.Getenv("ARBSCREEN_OUTPUT_DIR"); v != "" {
		c.Output.Dir = v
	}
	if v := os.Getenv("ARBSCREEN_REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
		c.Redis.Enabled = true
	}
	if v := os.Getenv("ARBSCREEN_REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	// the scanner's original knob names are honoured as-is
	if err := setFloat(&c.Scan.InvestmentAmount, "INVESTMENT_AMOUNT", "ARBSCREEN_INVESTMENT_AMOUNT"); err != nil {
		return err
	}
	if err := setInt(&c.Scan.DepthLevels, "ORDERBOOK_DEPTH_LEVELS", "ARBSCREEN_ORDERBOOK_DEPTH_LEVELS"); err != nil {
		return err
	}
	if err := setFloat(&c.Scan.MinProfitPct, "MIN_PROFIT_PCT", "ARBSCREEN_MIN_PROFIT_PCT"); err != nil {
		return err
	}
	if err := setInt(&c.Scan.MaxStalenessMs, "ARBSCREEN_MAX_STALENESS_MS"); err != nil {
		return err
	}
	if err := setInt(&c.Scan.IntervalSeconds, "ARBSCREEN_INTERVAL_SECONDS"); err != nil {
		return err
	}
	if err := setInt(&c.Scan.Workers, "ARBSCREEN_WORKERS"); err != nil {
		return err
	}
	return setFloat(&c.Fees.DefaultTakerBps, "ARBSCREEN_DEFAULT_TAKER_BPS")
}

func setFloat(dst *float64, keys ...string) error {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				return fmt.Errorf("%w: %s=%q: %v", ErrInvalidConfig, k, v, err)
			}
			*dst = f
		}
	}
	return nil
}

func setInt(dst *int, keys ...string) error {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				return fmt.Errorf("%w: %s=%q: %v", ErrInvalidConfig, k, v, err)
			}
			*dst = n
		}
	}
	return nil
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
