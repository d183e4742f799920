package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arbscreen/internal/arbitrage"
	"arbscreen/internal/opportunity"
)

func opp(kind opportunity.Kind, exchanges []string, path string, start, end int64) opportunity.Opportunity {
	o := opportunity.New(kind, exchanges, path, "USDT", decimal.NewFromInt(start), decimal.NewFromInt(end), nil, time.Unix(0, 0))
	o.ID = "id-" + path
	return o
}

func TestWriteCSVTriangular(t *testing.T) {
	var buf bytes.Buffer
	rec := opp(opportunity.Triangular, []string{"binance"}, "USDT->BTC->ETH->USDT", 1000, 1040).Record()
	require.NoError(t, WriteCSV(&buf, opportunity.Triangular, []opportunity.Record{rec}))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"exchange", "route", "profit_percent"}, rows[0][:3])
	assert.Equal(t, []string{"binance", "USDT->BTC->ETH->USDT", "4.000000", "40.00000000"}, rows[1][:4])
}

func TestWriteCSVCross(t *testing.T) {
	var buf bytes.Buffer
	rec := opp(opportunity.CrossExchange, []string{"binance", "kraken"}, "BTC/USDT", 1000, 1030).Record()
	require.NoError(t, WriteCSV(&buf, opportunity.CrossExchange, []opportunity.Record{rec}))
	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, []string{"pair", "buy_exchange", "sell_exchange", "profit_percent"}, rows[0][:4])
	assert.Equal(t, []string{"BTC/USDT", "binance", "kraken", "3.000000"}, rows[1][:4])
}

func TestFileExporterReplacesFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	exp := FileExporter{Dir: dir}
	res := arbitrage.Result{
		Triangular: []opportunity.Opportunity{opp(opportunity.Triangular, []string{"binance"}, "USDT->BTC->ETH->USDT", 1000, 1040)},
	}
	require.NoError(t, exp.Publish(context.Background(), res))
	require.NoError(t, exp.Publish(context.Background(), arbitrage.Result{}))

	b, err := os.ReadFile(filepath.Join(dir, TriangularFile))
	require.NoError(t, err)
	rows, err := csv.NewReader(bytes.NewReader(b)).ReadAll()
	require.NoError(t, err)
	assert.Len(t, rows, 1, "an empty scan leaves only the header")

	_, err = os.Stat(filepath.Join(dir, CrossFile))
	assert.NoError(t, err)
	entries, _ := os.ReadDir(dir)
	assert.Len(t, entries, 2, "no temp files left behind")
}
