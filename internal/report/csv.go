package report

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"arbscreen/internal/arbitrage"
	"arbscreen/internal/opportunity"
)

const (
	TriangularFile = "triangular_opportunities_depth.csv"
	CrossFile      = "cross_exchange_opportunities_depth.csv"
)

var (
	triangularHeader = []string{"exchange", "route", "profit_percent", "profit", "start_notional", "end_notional", "asset", "fully_filled", "max_slippage_bps", "id"}
	crossHeader      = []string{"pair", "buy_exchange", "sell_exchange", "profit_percent", "profit", "start_notional", "end_notional", "asset", "fully_filled", "max_slippage_bps", "id"}
)

// WriteCSV writes ranked records of one kind, header first, in the given order.
func WriteCSV(w io.Writer, kind opportunity.Kind, records []opportunity.Record) error {
	cw := csv.NewWriter(w)
	header := triangularHeader
	if kind == opportunity.CrossExchange {
		header = crossHeader
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, r := range records {
		tail := []string{
			r.Profit,
			r.StartNotional,
			r.EndNotional,
			r.Asset,
			strconv.FormatBool(r.FullyFilled),
			strconv.FormatFloat(r.SlippageBps, 'f', 4, 64),
			r.ID,
		}
		var row []string
		if kind == opportunity.CrossExchange {
			row = append([]string{r.Path, r.BuyExchange, r.SellExchange, r.ProfitPct}, tail...)
		} else {
			row = append([]string{r.Exchange, r.Path, r.ProfitPct}, tail...)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// FileExporter rewrites both CSV files in Dir after every scan.
type FileExporter struct {
	Dir string
}

func (FileExporter) Name() string { return "csv" }

func (f FileExporter) Publish(_ context.Context, res arbitrage.Result) error {
	if err := os.MkdirAll(f.Dir, 0o755); err != nil {
		return err
	}
	if err := writeFile(filepath.Join(f.Dir, TriangularFile), opportunity.Triangular, res.Triangular); err != nil {
		return err
	}
	return writeFile(filepath.Join(f.Dir, CrossFile), opportunity.CrossExchange, res.Cross)
}

// writeFile replaces path atomically so readers never see a half-written file.
func writeFile(path string, kind opportunity.Kind, opps []opportunity.Opportunity) error {
	records := make([]opportunity.Record, len(opps))
	for i, o := range opps {
		records[i] = o.Record()
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".arbscreen-*.csv")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if err := WriteCSV(tmp, kind, records); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
