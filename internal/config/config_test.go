package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	t.Chdir(t.TempDir()) // keep a stray .env out of the test
	for _, k := range []string{"ARBSCREEN_CONFIG", "ARBSCREEN_LOG_LEVEL", "INVESTMENT_AMOUNT", "ORDERBOOK_DEPTH_LEVELS", "MIN_PROFIT_PCT"} {
		_ = os.Unsetenv(k)
	}

	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "info", c.Logging.Level)
	assert.Equal(t, 1000.0, c.Scan.InvestmentAmount)
	assert.Equal(t, 10, c.Scan.DepthLevels)
	assert.Equal(t, 5*time.Second, c.MaxStaleness())
	assert.Equal(t, []string{"USDT"}, c.Scan.OriginAssets)
	assert.Equal(t, 500, c.Scan.MaxMarkets)
}

func TestEnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("ARBSCREEN_LOG_LEVEL", "debug")
	t.Setenv("INVESTMENT_AMOUNT", "250.5")
	t.Setenv("ORDERBOOK_DEPTH_LEVELS", "25")
	t.Setenv("MIN_PROFIT_PCT", "0.1")
	t.Setenv("ARBSCREEN_EXCHANGES", "binance, kraken")
	t.Setenv("ARBSCREEN_REDIS_ADDR", "redis:6379")

	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "debug", c.Logging.Level)
	assert.Equal(t, 250.5, c.Scan.InvestmentAmount)
	assert.Equal(t, 25, c.Scan.DepthLevels)
	assert.Equal(t, 0.1, c.Scan.MinProfitPct)
	assert.Equal(t, []string{"binance", "kraken"}, c.Exchanges.Enabled)
	assert.True(t, c.Redis.Enabled)
	assert.Equal(t, "redis:6379", c.Redis.Addr)
}

func TestYAMLFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "arbscreen.yaml")
	doc := `
scan:
  investment_amount: 500
  orderbook_depth_levels: 5
  triangles:
    - {origin: USDT, AB: BTC/USDT, BC: ETH/BTC, CA: ETH/USDT}
fees:
  taker_bps:
    binance: 7.5
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))
	t.Setenv("ARBSCREEN_CONFIG", path)

	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 500.0, c.Scan.InvestmentAmount)
	assert.Equal(t, 5, c.Scan.DepthLevels)
	require.Len(t, c.Scan.Triangles, 1)
	assert.Equal(t, "ETH/BTC", c.Scan.Triangles[0].BC)
	assert.Equal(t, 7.5, c.Fees.TakerBps["binance"])
	// untouched sections keep their defaults
	assert.Equal(t, ":9090", c.Server.Addr)
}

func TestInvalidValuesAreFatal(t *testing.T) {
	t.Chdir(t.TempDir())
	cases := map[string]string{
		"INVESTMENT_AMOUNT":           "0",
		"ORDERBOOK_DEPTH_LEVELS":      "0",
		"ARBSCREEN_MAX_STALENESS_MS":  "-1",
		"MIN_PROFIT_PCT":              "abc",
		"ARBSCREEN_EXCHANGES":         "ftx",
		"ARBSCREEN_DEFAULT_TAKER_BPS": "10000",
	}
	for k, v := range cases {
		t.Run(k, func(t *testing.T) {
			t.Setenv(k, v)
			_, err := Load()
			require.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestExchangeLookup(t *testing.T) {
	c := Default()
	e, ok := c.Exchange("Kraken")
	require.True(t, ok)
	assert.Equal(t, "https://api.kraken.com", e.BaseURL)
	_, ok = c.Exchange("mtgox")
	assert.False(t, ok)
}
