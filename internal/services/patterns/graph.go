package patterns

import (
	"sort"

	"ChartCore/internal/domain/models"
)

// graph is the aspect set viewed as a labelled, undirected graph. Bodies
// keep the order of the body table followed by first appearance in the
// aspect list; every traversal walks that order.
type graph struct {
	order   []string
	index   map[string]int
	lon     map[string]float64
	aspects []models.AspectMatch
	edges   map[[2]int]models.AspectMatch
}

func newGraph(aspects []models.AspectMatch, bodies []models.BodyPosition) *graph {
	g := &graph{
		index: make(map[string]int),
		lon:   make(map[string]float64),
		edges: make(map[[2]int]models.AspectMatch),
	}
	for _, b := range bodies {
		g.add(b.Name)
		g.lon[b.Name] = b.Longitude
	}
	for _, am := range aspects {
		if am.BodyA == am.BodyB {
			continue
		}
		g.add(am.BodyA)
		g.add(am.BodyB)
		k := g.key(am.BodyA, am.BodyB)
		if _, dup := g.edges[k]; dup {
			continue
		}
		g.edges[k] = am
		g.aspects = append(g.aspects, am)
	}
	return g
}

func (g *graph) add(name string) {
	if _, ok := g.index[name]; ok {
		return
	}
	g.index[name] = len(g.order)
	g.order = append(g.order, name)
}

func (g *graph) key(a, b string) [2]int {
	i, j := g.index[a], g.index[b]
	if i > j {
		i, j = j, i
	}
	return [2]int{i, j}
}

func (g *graph) edge(a, b string) (models.AspectMatch, bool) {
	if a == b {
		return models.AspectMatch{}, false
	}
	if _, ok := g.index[a]; !ok {
		return models.AspectMatch{}, false
	}
	if _, ok := g.index[b]; !ok {
		return models.AspectMatch{}, false
	}
	am, ok := g.edges[g.key(a, b)]
	return am, ok
}

func (g *graph) has(a, b, aspectType string) bool {
	am, ok := g.edge(a, b)
	return ok && am.Type == aspectType
}

// of returns the aspects of one type in aspect-list order.
func (g *graph) of(aspectType string) []models.AspectMatch {
	var out []models.AspectMatch
	for _, am := range g.aspects {
		if am.Type == aspectType {
			out = append(out, am)
		}
	}
	return out
}

// sorted returns names in body order.
func (g *graph) sorted(names ...string) []string {
	out := append([]string(nil), names...)
	sort.SliceStable(out, func(i, j int) bool {
		return g.index[out[i]] < g.index[out[j]]
	})
	return out
}

// collect returns the aspects joining each pair, skipping absent edges.
func (g *graph) collect(pairs ...[2]string) []models.AspectMatch {
	out := make([]models.AspectMatch, 0, len(pairs))
	for _, p := range pairs {
		if am, ok := g.edge(p[0], p[1]); ok {
			out = append(out, am)
		}
	}
	return out
}

func distinct(names ...string) bool {
	for i := range names {
		for j := i + 1; j < len(names); j++ {
			if names[i] == names[j] {
				return false
			}
		}
	}
	return true
}
