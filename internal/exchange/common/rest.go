package common

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"arbscreen/internal/infra/metrics"
	"arbscreen/internal/infra/network"
	"arbscreen/internal/orderbook"
)

// GetJSON issues a GET and decodes a 2xx JSON body into out.
func GetJSON(ctx context.Context, c *http.Client, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode/100 != 2 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("GET %s: status %d: %s", url, resp.StatusCode, body)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("GET %s: decode: %w", url, err)
	}
	return nil
}

// Limited paces every call through a token bucket and counts results.
type Limited struct {
	SnapshotSource
	Bucket *network.TokenBucket
}

func WithRateLimit(src SnapshotSource, b *network.TokenBucket) *Limited {
	return &Limited{SnapshotSource: src, Bucket: b}
}

func (l *Limited) ListSymbols(ctx context.Context) ([]orderbook.Symbol, error) {
	if err := l.Bucket.Wait(ctx); err != nil {
		return nil, err
	}
	syms, err := l.SnapshotSource.ListSymbols(ctx)
	if err != nil {
		metrics.SourceErrorsTotal.WithLabelValues(l.Name(), "symbols").Inc()
	}
	return syms, err
}

func (l *Limited) GetSnapshot(ctx context.Context, sym orderbook.Symbol, depth int) (orderbook.Snapshot, error) {
	if err := l.Bucket.Wait(ctx); err != nil {
		return orderbook.Snapshot{}, err
	}
	s, err := l.SnapshotSource.GetSnapshot(ctx, sym, depth)
	if err != nil {
		metrics.SourceErrorsTotal.WithLabelValues(l.Name(), "depth").Inc()
		return s, err
	}
	metrics.SnapshotsFetched.WithLabelValues(l.Name()).Inc()
	return s, nil
}
