package redis

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arbscreen/internal/arbitrage"
	"arbscreen/internal/opportunity"
)

func TestKeys(t *testing.T) {
	p := NewPublisher(&Client{}, "", time.Hour)
	assert.Equal(t, "arbscreen:scan:abc:triangular", p.scanKey("abc", "triangular"))
	assert.Equal(t, "arbscreen:latest", p.latestKey())
	assert.Equal(t, "arbscreen:scans", p.channel())
	assert.Equal(t, "redis", p.Name())
}

func TestPayloadKeepsRankOrder(t *testing.T) {
	mk := func(path string, end int64) opportunity.Opportunity {
		return opportunity.New(opportunity.Triangular, []string{"binance"}, path, "USDT",
			decimal.NewFromInt(1000), decimal.NewFromInt(end), nil, time.Unix(0, 0))
	}
	members, err := payload([]opportunity.Opportunity{mk("A", 1040), mk("B", 1010)})
	require.NoError(t, err)
	require.Len(t, members, 2)

	var first opportunity.Record
	require.NoError(t, json.Unmarshal([]byte(members[0].(string)), &first))
	assert.Equal(t, "A", first.Path)
	assert.Equal(t, "4.000000", first.ProfitPct)
}

func TestMeta(t *testing.T) {
	res := arbitrage.Result{
		StartedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		Duration:  1500 * time.Millisecond,
		Evaluated: 7,
		Failures:  []arbitrage.Failure{{Stage: "fetch"}},
	}
	m := meta(res)
	assert.Equal(t, "2024-01-02T03:04:05Z", m["started_at"])
	assert.Equal(t, "1500", m["duration_ms"])
	assert.Equal(t, "7", m["evaluated"])
	assert.Equal(t, "1", m["failures"])
	assert.Equal(t, "0", m["cross"])
}
