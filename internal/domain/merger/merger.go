// Package merger groups customer display names that refer to the same
// person and folds their order histories under one canonical name.
package merger

import (
	"fmt"
	"strings"

	"github.com/eshaffer321/preorder-gather/internal/domain/aggregator"
)

// Strategy decides which customer names belong together.
type Strategy interface {
	MergeCandidates(names []string) *Groups
}

// Strategy names accepted by New.
const (
	StrategySubstring  = "substring"
	StrategyNormalized = "normalized"
)

// New returns the strategy registered under name. An empty name selects
// the substring strategy.
func New(name string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", StrategySubstring:
		return SubstringStrategy{}, nil
	case StrategyNormalized:
		return NormalizedStrategy{}, nil
	default:
		return nil, fmt.Errorf("unknown merge strategy %q", name)
	}
}

// Groups is a union-find over a fixed list of names.
type Groups struct {
	names  []string
	index  map[string]int
	parent []int
}

// NewGroups creates one singleton group per distinct name, keeping
// first-seen order.
func NewGroups(names []string) *Groups {
	g := &Groups{index: make(map[string]int, len(names))}
	for _, name := range names {
		if _, ok := g.index[name]; ok {
			continue
		}
		g.index[name] = len(g.names)
		g.names = append(g.names, name)
		g.parent = append(g.parent, len(g.parent))
	}
	return g
}

func (g *Groups) find(i int) int {
	for g.parent[i] != i {
		g.parent[i] = g.parent[g.parent[i]]
		i = g.parent[i]
	}
	return i
}

// Union joins the groups of a and b. Unknown names are ignored.
func (g *Groups) Union(a, b string) {
	i, ok := g.index[a]
	if !ok {
		return
	}
	j, ok := g.index[b]
	if !ok {
		return
	}
	ri, rj := g.find(i), g.find(j)
	if ri == rj {
		return
	}
	// Keep the earlier name as root so iteration stays stable.
	if rj < ri {
		ri, rj = rj, ri
	}
	g.parent[rj] = ri
}

// Members returns every name in name's group in first-seen order.
func (g *Groups) Members(name string) []string {
	i, ok := g.index[name]
	if !ok {
		return nil
	}
	root := g.find(i)
	var out []string
	for j, n := range g.names {
		if g.find(j) == root {
			out = append(out, n)
		}
	}
	return out
}

// Canonical returns the longest name in name's group. Equal lengths go to
// the name seen first. Unknown names are their own canonical form.
func (g *Groups) Canonical(name string) string {
	members := g.Members(name)
	if len(members) == 0 {
		return name
	}
	best := members[0]
	for _, m := range members[1:] {
		if len(m) > len(best) {
			best = m
		}
	}
	return best
}

// Len returns the number of distinct groups.
func (g *Groups) Len() int {
	n := 0
	for i := range g.parent {
		if g.find(i) == i {
			n++
		}
	}
	return n
}

// SubstringStrategy merges two names when one is a non-empty substring of
// the other. Quadratic in the number of names; short names can produce
// false merges.
type SubstringStrategy struct{}

// MergeCandidates implements Strategy.
func (SubstringStrategy) MergeCandidates(names []string) *Groups {
	return pairwise(names, func(s string) string { return s })
}

// NormalizedStrategy case-folds and collapses whitespace before applying
// the substring test.
type NormalizedStrategy struct{}

// MergeCandidates implements Strategy.
func (NormalizedStrategy) MergeCandidates(names []string) *Groups {
	return pairwise(names, normalize)
}

func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func pairwise(names []string, key func(string) string) *Groups {
	g := NewGroups(names)
	keys := make([]string, len(g.names))
	for i, n := range g.names {
		keys[i] = key(n)
	}
	for i := 0; i < len(keys); i++ {
		for j := i + 1; j < len(keys); j++ {
			a, b := keys[i], keys[j]
			if a == "" || b == "" {
				continue
			}
			if strings.Contains(a, b) || strings.Contains(b, a) {
				g.Union(g.names[i], g.names[j])
			}
		}
	}
	return g
}

// Fold concatenates every history into its canonical name's history.
// Names are visited in the given order, so the result is deterministic
// for a fixed input order. The input map is not modified.
func Fold(histories map[string]*aggregator.History, names []string, groups *Groups) (map[string]*aggregator.History, []string) {
	folded := make(map[string]*aggregator.History, len(histories))
	var order []string

	for _, name := range names {
		h, ok := histories[name]
		if !ok {
			continue
		}
		canonical := groups.Canonical(name)
		target, seen := folded[canonical]
		if !seen {
			target = &aggregator.History{Customer: canonical}
			folded[canonical] = target
			order = append(order, canonical)
		}
		target.Orders = append(target.Orders, h.Orders...)
	}
	return folded, order
}

// Merge runs strategy over the context's customers and replaces them with
// the folded histories. It returns the groups for reporting.
func Merge(agg *aggregator.Context, strategy Strategy) *Groups {
	names := agg.CustomerNames()
	groups := strategy.MergeCandidates(names)
	folded, order := Fold(agg.Customers, names, groups)
	agg.ReplaceCustomers(folded, order)
	return groups
}
