package strategy

import (
	"sort"
	"strings"

	"arbscreen/internal/graph"
	"arbscreen/internal/orderbook"
)

// EnumerateCycles lists every closed three-leg cycle tradable with symbols,
// one entry per rotation class. When origins is non-empty a cycle is kept only
// if it passes through one of them and is rotated to start there (earlier
// origins win); otherwise the lexicographically smallest rotation is used.
// Opposite directions are different trades and are both returned. maxAssets
// caps how many assets are explored (0 = no cap).
func EnumerateCycles(exchange string, symbols []orderbook.Symbol, origins []string, maxAssets int) []Cycle {
	g := graph.New(exchange, symbols)
	assets := g.Assets()
	if maxAssets > 0 && len(assets) > maxAssets {
		assets = keepOrigins(assets, origins, maxAssets)
	}
	allowed := make(map[string]struct{}, len(assets))
	for _, a := range assets {
		allowed[a] = struct{}{}
	}

	seen := make(map[string]struct{})
	var out []Cycle
	for _, a := range assets {
		for _, p := range g.FindPaths(graph.Node{Exchange: exchange, Asset: a}) {
			if !within(p, allowed) {
				continue
			}
			legs := make([]Leg, 0, 3)
			for _, e := range p.Edges {
				legs = append(legs, Leg{Symbol: e.Symbol, Side: e.Side})
			}
			c, err := NewCycle(legs...)
			if err != nil {
				continue
			}
			k := c.key()
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			if c, ok := canonical(c, origins); ok {
				out = append(out, c)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

func within(p graph.Path, allowed map[string]struct{}) bool {
	for _, e := range p.Edges {
		if _, ok := allowed[e.To.Asset]; !ok {
			return false
		}
	}
	return true
}

func canonical(c Cycle, origins []string) (Cycle, bool) {
	if len(origins) == 0 {
		best := c
		for k := 1; k < 3; k++ {
			if r := c.Rotate(k); r.String() < best.String() {
				best = r
			}
		}
		return best, true
	}
	for _, o := range origins {
		for k := 0; k < 3; k++ {
			if r := c.Rotate(k); strings.EqualFold(r.Origin(), o) {
				return r, true
			}
		}
	}
	return Cycle{}, false
}

// keepOrigins trims assets to n, never dropping a configured origin.
func keepOrigins(assets, origins []string, n int) []string {
	out := make([]string, 0, n)
	in := make(map[string]struct{}, n)
	for _, o := range origins {
		o = strings.ToUpper(o)
		if i := sort.SearchStrings(assets, o); i < len(assets) && assets[i] == o && len(out) < n {
			if _, dup := in[o]; !dup {
				out = append(out, o)
				in[o] = struct{}{}
			}
		}
	}
	for _, a := range assets {
		if len(out) >= n {
			break
		}
		if _, ok := in[a]; !ok {
			out = append(out, a)
			in[a] = struct{}{}
		}
	}
	sort.Strings(out)
	return out
}
