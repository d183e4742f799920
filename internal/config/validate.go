package config

import (
	"fmt"
	"strings"
	"time"
)

// Validate rejects values that would make a scan meaningless.
func (c Config) Validate() error {
	bad := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
	}
	if c.Scan.InvestmentAmount <= 0 {
		return bad("scan.investment_amount must be > 0, got %v", c.Scan.InvestmentAmount)
	}
	if c.Scan.DepthLevels < 1 {
		return bad("scan.orderbook_depth_levels must be >= 1, got %d", c.Scan.DepthLevels)
	}
	if c.Scan.MaxStalenessMs <= 0 {
		return bad("scan.max_staleness_ms must be > 0, got %d", c.Scan.MaxStalenessMs)
	}
	if c.Scan.DustThreshold < 0 {
		return bad("scan.dust_threshold must be >= 0")
	}
	if c.Scan.IntervalSeconds < 1 {
		return bad("scan.interval_seconds must be >= 1")
	}
	if c.Scan.Workers < 1 {
		return bad("scan.workers must be >= 1")
	}
	if c.Scan.MaxMarkets < 0 || c.Scan.MaxAssets < 0 || c.Scan.TopN < 0 {
		return bad("scan caps must be >= 0")
	}
	if !c.Scan.Triangular && !c.Scan.CrossExchange {
		return bad("scan: enable triangular or cross_exchange")
	}
	if err := checkBps("fees.default_taker_bps", c.Fees.DefaultTakerBps); err != nil {
		return err
	}
	for ex, bps := range c.Fees.TakerBps {
		if err := checkBps("fees.taker_bps."+ex, bps); err != nil {
			return err
		}
	}
	if len(c.Exchanges.Enabled) == 0 {
		return bad("exchanges.enabled is empty")
	}
	for _, ex := range c.Exchanges.Enabled {
		e, ok := c.Exchange(ex)
		if !ok {
			return bad("exchanges.enabled: unknown exchange %q", ex)
		}
		if e.RatePerSec <= 0 || e.Burst < 1 {
			return bad("exchanges.%s: rate_per_sec and burst must be positive", ex)
		}
	}
	for i, tri := range c.Scan.Triangles {
		if tri.Origin == "" || tri.AB == "" || tri.BC == "" || tri.CA == "" {
			return bad("scan.triangles[%d]: origin, AB, BC and CA are required", i)
		}
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return bad("redis.addr is required when redis is enabled")
	}
	return nil
}

func checkBps(name string, bps float64) error {
	if bps < 0 || bps >= 10000 {
		return fmt.Errorf("%w: %s must be in [0,10000) bps, got %v", ErrInvalidConfig, name, bps)
	}
	return nil
}

// Exchange returns the settings of a known exchange id.
func (c Config) Exchange(name string) (Exchange, bool) {
	switch strings.ToLower(name) {
	case "binance":
		return c.Exchanges.Binance, true
	case "bybit":
		return c.Exchanges.Bybit, true
	case "kraken":
		return c.Exchanges.Kraken, true
	}
	return Exchange{}, false
}

func (c Config) MaxStaleness() time.Duration {
	return time.Duration(c.Scan.MaxStalenessMs) * time.Millisecond
}

func (c Config) Interval() time.Duration {
	return time.Duration(c.Scan.IntervalSeconds) * time.Second
}
