package main

import (
	"strings"

	"arbscreen/internal/config"
	"arbscreen/internal/exchange/binance"
	"arbscreen/internal/exchange/bybit"
	"arbscreen/internal/exchange/common"
	"arbscreen/internal/exchange/kraken"
	"arbscreen/internal/infra/network"
)

// liveSources builds one rate-limited source per enabled exchange.
func liveSources(cfg config.Config) []common.SnapshotSource {
	var out []common.SnapshotSource
	for _, name := range cfg.Exchanges.Enabled {
		ex, _ := cfg.Exchange(name)
		var src common.SnapshotSource
		switch strings.ToLower(name) {
		case "binance":
			src = binance.New(ex)
		case "bybit":
			src = bybit.New(ex)
		case "kraken":
			src = kraken.New(ex)
		default:
			continue // rejected by Validate
		}
		out = append(out, common.WithRateLimit(src, network.NewTokenBucket(ex.Burst, ex.RatePerSec)))
	}
	return out
}
