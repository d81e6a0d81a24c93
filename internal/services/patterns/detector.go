// Package patterns detects multi-body configurations in an aspect set.
//
// Detection runs in two passes. Primitives (grand trine, T-square, yod,
// grand cross, mystic rectangle, cradle) are read straight off the aspect
// graph; composites (kite, boomerang) are then built from the grand trines
// and yods of the first pass. Every traversal is ordered, so identical
// input always yields identical output.
package patterns

import (
	"math"
	"sort"

	"ChartCore/internal/domain/models"
	domsvc "ChartCore/internal/domain/service"
	"ChartCore/internal/services/geometry"
)

// Option configures a Detector.
type Option func(*Detector)

// WithTSquareTolerance sets how far the apex-to-base separations of a
// T-square may stray from 90 degrees.
func WithTSquareTolerance(deg float64) Option {
	return func(d *Detector) {
		if deg > 0 {
			d.tSquareTolerance = deg
		}
	}
}

// WithTopKeywords sets how many keyword tags a summary keeps.
func WithTopKeywords(n int) Option {
	return func(d *Detector) {
		if n > 0 {
			d.topKeywords = n
		}
	}
}

type Detector struct {
	tSquareTolerance float64
	topKeywords      int
}

func NewDetector(opts ...Option) *Detector {
	d := &Detector{
		tSquareTolerance: 8,
		topKeywords:      5,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Detect returns every pattern found in aspects, major tier first. bodies
// fixes the traversal order and supplies longitudes for angular checks; it
// may be nil.
func (d *Detector) Detect(aspects []models.AspectMatch, bodies []models.BodyPosition) []models.Pattern {
	g := newGraph(aspects, bodies)
	out := make([]models.Pattern, 0)

	trines := grandTrines(g)
	yodSet := yods(g)
	out = append(out, trines...)
	out = append(out, d.tSquares(g)...)
	out = append(out, yodSet...)
	out = append(out, grandCrosses(g)...)
	out = append(out, mysticRectangles(g)...)
	out = append(out, cradles(g)...)

	out = append(out, kites(g, trines)...)
	out = append(out, boomerangs(g, yodSet)...)

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Significance.Rank() < out[j].Significance.Rank()
	})
	return out
}

// grandTrines finds closed triangles of trines.
func grandTrines(g *graph) []models.Pattern {
	var out []models.Pattern
	n := len(g.order)
	for i := 0; i < n; i++ {
		a := g.order[i]
		for j := i + 1; j < n; j++ {
			b := g.order[j]
			if !g.has(a, b, models.Trine) {
				continue
			}
			for k := j + 1; k < n; k++ {
				c := g.order[k]
				if !g.has(b, c, models.Trine) || !g.has(a, c, models.Trine) {
					continue
				}
				out = append(out, newPattern(models.GrandTrine, []string{a, b, c}, nil,
					g.collect([2]string{a, b}, [2]string{b, c}, [2]string{a, c})))
			}
		}
	}
	return out
}

// tSquares finds an opposition whose ends both square a third body.
func (d *Detector) tSquares(g *graph) []models.Pattern {
	var out []models.Pattern
	for _, op := range g.of(models.Opposition) {
		a, b := op.BodyA, op.BodyB
		for _, apex := range g.order {
			if !distinct(apex, a, b) {
				continue
			}
			sqA, okA := g.edge(apex, a)
			sqB, okB := g.edge(apex, b)
			if !okA || !okB || sqA.Type != models.Square || sqB.Type != models.Square {
				continue
			}
			if !d.nearSquare(g, apex, a, sqA) || !d.nearSquare(g, apex, b, sqB) {
				continue
			}
			out = append(out, newPattern(models.TSquare, g.sorted(apex, a, b),
				map[string]string{"apex": apex, "base1": a, "base2": b},
				[]models.AspectMatch{op, sqA, sqB}))
		}
	}
	return out
}

func (d *Detector) nearSquare(g *graph, apex, base string, sq models.AspectMatch) bool {
	la, okA := g.lon[apex]
	lb, okB := g.lon[base]
	dev := sq.Delta
	if okA && okB {
		dev = math.Abs(geometry.Separation(la, lb) - 90)
	}
	return dev <= d.tSquareTolerance
}

// yods finds a sextile whose ends are both quincunx a third body.
func yods(g *graph) []models.Pattern {
	var out []models.Pattern
	for _, sx := range g.of(models.Sextile) {
		a, b := sx.BodyA, sx.BodyB
		for _, apex := range g.order {
			if !distinct(apex, a, b) {
				continue
			}
			if !g.has(apex, a, models.Quincunx) || !g.has(apex, b, models.Quincunx) {
				continue
			}
			out = append(out, newPattern(models.Yod, g.sorted(apex, a, b),
				map[string]string{"apex": apex, "base1": a, "base2": b},
				append([]models.AspectMatch{sx}, g.collect([2]string{apex, a}, [2]string{apex, b})...)))
		}
	}
	return out
}

// oppositionPairs calls fn for every unordered pair of oppositions with
// four distinct bodies, as (a,b) and (c,d).
func oppositionPairs(g *graph, fn func(op1, op2 models.AspectMatch, a, b, c, d string)) {
	ops := g.of(models.Opposition)
	for i := 0; i < len(ops); i++ {
		for j := i + 1; j < len(ops); j++ {
			a, b := ops[i].BodyA, ops[i].BodyB
			c, d := ops[j].BodyA, ops[j].BodyB
			if !distinct(a, b, c, d) {
				continue
			}
			fn(ops[i], ops[j], a, b, c, d)
		}
	}
}

// grandCrosses finds two oppositions joined into a cycle of four squares.
func grandCrosses(g *graph) []models.Pattern {
	var out []models.Pattern
	oppositionPairs(g, func(op1, op2 models.AspectMatch, a, b, c, d string) {
		cycle := [][2]string{{a, c}, {c, b}, {b, d}, {d, a}}
		for _, e := range cycle {
			if !g.has(e[0], e[1], models.Square) {
				return
			}
		}
		out = append(out, newPattern(models.GrandCross, g.sorted(a, b, c, d), nil,
			append([]models.AspectMatch{op1, op2}, g.collect(cycle...)...)))
	})
	return out
}

// mysticRectangles finds two oppositions whose cycle alternates trines and
// sextiles.
func mysticRectangles(g *graph) []models.Pattern {
	var out []models.Pattern
	oppositionPairs(g, func(op1, op2 models.AspectMatch, a, b, c, d string) {
		alt := func(first, second string) bool {
			return g.has(a, c, first) && g.has(b, d, first) &&
				g.has(c, b, second) && g.has(d, a, second)
		}
		if !alt(models.Trine, models.Sextile) && !alt(models.Sextile, models.Trine) {
			return
		}
		out = append(out, newPattern(models.MysticRectangle, g.sorted(a, b, c, d), nil,
			append([]models.AspectMatch{op1, op2},
				g.collect([2]string{a, c}, [2]string{c, b}, [2]string{b, d}, [2]string{d, a})...)))
	})
	return out
}

// cradles finds a central sextile (b,c) flanked by a trine from each end:
// a trines c and d trines b, with the outer bodies sextile their adjacent
// inner body so the four lie along one half of the circle.
func cradles(g *graph) []models.Pattern {
	var out []models.Pattern
	for _, sx := range g.of(models.Sextile) {
		b, c := sx.BodyA, sx.BodyB
		for _, a := range g.order {
			if !distinct(a, b, c) || !g.has(a, c, models.Trine) || !g.has(a, b, models.Sextile) {
				continue
			}
			for _, d := range g.order {
				if !distinct(d, a, b, c) || !g.has(d, b, models.Trine) || !g.has(d, c, models.Sextile) {
					continue
				}
				supporting := append([]models.AspectMatch{sx},
					g.collect([2]string{a, c}, [2]string{d, b}, [2]string{a, b}, [2]string{c, d})...)
				if op, ok := g.edge(a, d); ok && op.Type == models.Opposition {
					supporting = append(supporting, op)
				}
				out = append(out, newPattern(models.Cradle, g.sorted(a, b, c, d),
					map[string]string{"inner1": b, "inner2": c, "outer1": a, "outer2": d},
					supporting))
			}
		}
	}
	return out
}

// kites extend a grand trine with a fourth body opposite one vertex and
// sextile the other two.
func kites(g *graph, trines []models.Pattern) []models.Pattern {
	var out []models.Pattern
	for _, gt := range trines {
		for vi, focus := range gt.Planets {
			o1, o2 := others(gt.Planets, vi)
			for _, tail := range g.order {
				if !distinct(tail, gt.Planets[0], gt.Planets[1], gt.Planets[2]) {
					continue
				}
				if !g.has(focus, tail, models.Opposition) ||
					!g.has(tail, o1, models.Sextile) || !g.has(tail, o2, models.Sextile) {
					continue
				}
				supporting := append(append([]models.AspectMatch(nil), gt.SupportingAspects...),
					g.collect([2]string{focus, tail}, [2]string{tail, o1}, [2]string{tail, o2})...)
				out = append(out, newPattern(models.Kite, g.sorted(focus, o1, o2, tail),
					map[string]string{"focus": focus, "tail": tail},
					supporting))
			}
		}
	}
	return out
}

// boomerangs extend a yod with a fourth body opposite its apex.
func boomerangs(g *graph, yods []models.Pattern) []models.Pattern {
	var out []models.Pattern
	for _, y := range yods {
		apex := y.Roles["apex"]
		for _, release := range g.order {
			if !distinct(release, y.Planets[0], y.Planets[1], y.Planets[2]) {
				continue
			}
			op, ok := g.edge(apex, release)
			if !ok || op.Type != models.Opposition {
				continue
			}
			supporting := append(append([]models.AspectMatch(nil), y.SupportingAspects...), op)
			out = append(out, newPattern(models.Boomerang, g.sorted(append([]string{release}, y.Planets...)...),
				map[string]string{"apex": apex, "base1": y.Roles["base1"], "base2": y.Roles["base2"], "release": release},
				supporting))
		}
	}
	return out
}

func others(three []string, skip int) (string, string) {
	var rest []string
	for i, p := range three {
		if i != skip {
			rest = append(rest, p)
		}
	}
	return rest[0], rest[1]
}

// Summarize counts patterns per type and extracts the most frequent
// keyword tags. Ties break on canonical type order and first appearance.
func (d *Detector) Summarize(patterns []models.Pattern) models.PatternSummary {
	counts := make(map[string]int)
	var types []string
	kwCount := make(map[string]int)
	var kwOrder []string

	for _, p := range patterns {
		if counts[p.Type] == 0 {
			types = append(types, p.Type)
		}
		counts[p.Type]++
		for _, kw := range p.Keywords {
			if kwCount[kw] == 0 {
				kwOrder = append(kwOrder, kw)
			}
			kwCount[kw]++
		}
	}

	sort.SliceStable(types, func(i, j int) bool {
		if counts[types[i]] != counts[types[j]] {
			return counts[types[i]] > counts[types[j]]
		}
		return typeRank(types[i]) < typeRank(types[j])
	})
	out := models.PatternSummary{
		Total:       len(patterns),
		Counts:      make([]models.TypeCount, 0, len(types)),
		TopKeywords: make([]string, 0, d.topKeywords),
	}
	for _, t := range types {
		out.Counts = append(out.Counts, models.TypeCount{Type: t, Count: counts[t]})
	}

	sort.SliceStable(kwOrder, func(i, j int) bool {
		return kwCount[kwOrder[i]] > kwCount[kwOrder[j]]
	})
	for i := 0; i < len(kwOrder) && i < d.topKeywords; i++ {
		out.TopKeywords = append(out.TopKeywords, kwOrder[i])
	}
	return out
}

var _ domsvc.PatternDetector = (*Detector)(nil)
