// Package replay serves recorded order book levels as snapshot sources, for
// offline backtests and deterministic scans.
//
// CSV format (header optional): ts,exchange,symbol,side,price,qty
// where ts is RFC3339 or unix milliseconds, side is bid|ask and symbol is BASE/QUOTE.
package replay

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"arbscreen/internal/exchange/common"
	"arbscreen/internal/orderbook"
)

type bookKey struct {
	exchange string
	symbol   orderbook.Symbol
}

type frame struct {
	ts         time.Time
	bids, asks [][2]string
}

// Tape holds every recorded frame and a cursor shared by its sources.
type Tape struct {
	mu     sync.RWMutex
	books  map[bookKey][]frame // sorted by ts
	times  []time.Time         // distinct frame times, ascending
	cursor time.Time
}

func Open(path string) (*Tape, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f)
}

// Read parses a tape; rows sharing ts, exchange and symbol form one snapshot.
func Read(r io.Reader) (*Tape, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 6
	cr.TrimLeadingSpace = true
	frames := map[bookKey]map[int64]*frame{}
	line := 0
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("replay line %d: %w", line, err)
		}
		if line == 1 && strings.EqualFold(rec[0], "ts") {
			continue
		}
		ts, err := parseTime(rec[0])
		if err != nil {
			return nil, fmt.Errorf("replay line %d: %w", line, err)
		}
		sym, err := orderbook.ParseSymbol(rec[2])
		if err != nil {
			return nil, fmt.Errorf("replay line %d: %w", line, err)
		}
		k := bookKey{exchange: strings.ToLower(rec[1]), symbol: sym}
		if frames[k] == nil {
			frames[k] = map[int64]*frame{}
		}
		fr := frames[k][ts.UnixNano()]
		if fr == nil {
			fr = &frame{ts: ts}
			frames[k][ts.UnixNano()] = fr
		}
		row := [2]string{rec[4], rec[5]}
		switch strings.ToLower(rec[3]) {
		case "bid", "bids", "buy":
			fr.bids = append(fr.bids, row)
		case "ask", "asks", "sell":
			fr.asks = append(fr.asks, row)
		default:
			return nil, fmt.Errorf("replay line %d: unknown side %q", line, rec[3])
		}
	}

	t := &Tape{books: make(map[bookKey][]frame, len(frames))}
	seen := map[int64]struct{}{}
	for k, byTS := range frames {
		list := make([]frame, 0, len(byTS))
		for n, fr := range byTS {
			list = append(list, *fr)
			if _, ok := seen[n]; !ok {
				seen[n] = struct{}{}
				t.times = append(t.times, fr.ts)
			}
		}
		sort.Slice(list, func(i, j int) bool { return list[i].ts.Before(list[j].ts) })
		t.books[k] = list
	}
	sort.Slice(t.times, func(i, j int) bool { return t.times[i].Before(t.times[j]) })
	if len(t.times) > 0 {
		t.cursor = t.times[len(t.times)-1]
	}
	return t, nil
}

func parseTime(s string) (time.Time, error) {
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), nil
	}
	ts, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad ts %q", s)
	}
	return ts.UTC(), nil
}

// Times lists the distinct frame times on the tape.
func (t *Tape) Times() []time.Time {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]time.Time(nil), t.times...)
}

// Seek makes books recorded at or before ts visible; the default is the last frame.
func (t *Tape) Seek(ts time.Time) {
	t.mu.Lock()
	t.cursor = ts
	t.mu.Unlock()
}

// Exchanges lists the venues present on the tape.
func (t *Tape) Exchanges() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	set := map[string]struct{}{}
	for k := range t.books {
		set[k.exchange] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for ex := range set {
		out = append(out, ex)
	}
	sort.Strings(out)
	return out
}

// Sources returns one SnapshotSource per venue on the tape.
func (t *Tape) Sources() []common.SnapshotSource {
	var out []common.SnapshotSource
	for _, ex := range t.Exchanges() {
		out = append(out, &Source{tape: t, exchange: ex})
	}
	return out
}

// Source is one venue's view of a Tape.
type Source struct {
	tape     *Tape
	exchange string
}

func (s *Source) Name() string { return s.exchange }

func (s *Source) ListSymbols(_ context.Context) ([]orderbook.Symbol, error) {
	s.tape.mu.RLock()
	defer s.tape.mu.RUnlock()
	var out []orderbook.Symbol
	for k, frames := range s.tape.books {
		if k.exchange == s.exchange && !frames[0].ts.After(s.tape.cursor) {
			out = append(out, k.symbol)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out, nil
}

func (s *Source) GetSnapshot(ctx context.Context, sym orderbook.Symbol, depth int) (orderbook.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return orderbook.Snapshot{}, err
	}
	s.tape.mu.RLock()
	frames := s.tape.books[bookKey{exchange: s.exchange, symbol: sym}]
	cursor := s.tape.cursor
	s.tape.mu.RUnlock()

	i := sort.Search(len(frames), func(i int) bool { return frames[i].ts.After(cursor) })
	if i == 0 {
		return orderbook.Snapshot{}, fmt.Errorf("replay %s %s: %w", s.exchange, sym, common.ErrUnknownSymbol)
	}
	fr := frames[i-1]
	return orderbook.FromStrings(s.exchange, sym, fr.bids, fr.asks, depth, fr.ts)
}
