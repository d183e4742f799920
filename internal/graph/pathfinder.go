package graph

import (
	"sort"

	"arbscreen/internal/orderbook"
)

type Node struct{ Exchange, Asset string }

// Edge converts From into To by trading Symbol on Side.
type Edge struct {
	From, To Node
	Symbol   orderbook.Symbol
	Side     orderbook.Side
}

type Path struct{ Edges []Edge }

type PathFinder interface {
	FindPaths(start Node) []Path
}

// AssetGraph links the assets of one exchange through its listed symbols:
// every BASE/QUOTE yields a buy edge QUOTE->BASE and a sell edge BASE->QUOTE.
type AssetGraph struct {
	exchange string
	out      map[string][]Edge
}

func New(exchange string, symbols []orderbook.Symbol) *AssetGraph {
	g := &AssetGraph{exchange: exchange, out: make(map[string][]Edge)}
	seen := make(map[orderbook.Symbol]struct{}, len(symbols))
	for _, s := range symbols {
		if _, dup := seen[s]; dup || s.Base == "" || s.Quote == "" || s.Base == s.Quote {
			continue
		}
		seen[s] = struct{}{}
		base, quote := Node{exchange, s.Base}, Node{exchange, s.Quote}
		g.out[s.Quote] = append(g.out[s.Quote], Edge{From: quote, To: base, Symbol: s, Side: orderbook.Buy})
		g.out[s.Base] = append(g.out[s.Base], Edge{From: base, To: quote, Symbol: s, Side: orderbook.Sell})
	}
	for a := range g.out {
		edges := g.out[a]
		sort.Slice(edges, func(i, j int) bool {
			if edges[i].To.Asset != edges[j].To.Asset {
				return edges[i].To.Asset < edges[j].To.Asset
			}
			return edges[i].Symbol.String() < edges[j].Symbol.String()
		})
	}
	return g
}

// Assets returns every asset with at least one market, sorted.
func (g *AssetGraph) Assets() []string {
	out := make([]string, 0, len(g.out))
	for a := range g.out {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}

// FindPaths returns all three-edge cycles start -> b -> c -> start through
// three distinct assets.
func (g *AssetGraph) FindPaths(start Node) []Path {
	var paths []Path
	for _, e1 := range g.out[start.Asset] {
		b := e1.To.Asset
		for _, e2 := range g.out[b] {
			c := e2.To.Asset
			if c == start.Asset || c == b {
				continue
			}
			for _, e3 := range g.out[c] {
				if e3.To.Asset != start.Asset {
					continue
				}
				paths = append(paths, Path{Edges: []Edge{e1, e2, e3}})
			}
		}
	}
	return paths
}
