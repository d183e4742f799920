package common

import (
	"context"
	"errors"

	"arbscreen/internal/orderbook"
)

var (
	// ErrUnknownSymbol is returned when a venue does not list the requested market.
	ErrUnknownSymbol = errors.New("symbol not listed on exchange")
	// ErrEmptyBook is returned when a venue answers with no usable levels.
	ErrEmptyBook = errors.New("empty order book")
)

// SnapshotSource is a read-only view of one venue's spot markets.
type SnapshotSource interface {
	Name() string
	// ListSymbols returns the venue's active spot markets.
	ListSymbols(ctx context.Context) ([]orderbook.Symbol, error)
	// GetSnapshot returns a depth-limited, normalized book for one market.
	GetSnapshot(ctx context.Context, sym orderbook.Symbol, depth int) (orderbook.Snapshot, error)
}
