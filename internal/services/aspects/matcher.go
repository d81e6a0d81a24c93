// Package aspects matches pairwise angular separations against an ordered
// aspect table.
package aspects

import (
	"math"
	"sort"

	"ChartCore/internal/domain/models"
	domsvc "ChartCore/internal/domain/service"
	"ChartCore/internal/services/geometry"
)

const (
	exactThreshold = 0.1
	// motion step for the applying/separating heuristic, in days
	applyStep = 1.0 / 24
)

// Option configures a Matcher.
type Option func(*Matcher)

// WithTable replaces the aspect table. Order is kept as given.
func WithTable(table []models.AspectDefinition) Option {
	return func(m *Matcher) {
		m.table = append([]models.AspectDefinition(nil), table...)
	}
}

// WithLuminaries sets the bodies that widen orbs.
func WithLuminaries(names ...string) Option {
	return func(m *Matcher) {
		m.luminaries = make(map[string]bool, len(names))
		for _, n := range names {
			m.luminaries[n] = true
		}
	}
}

// WithLuminaryBonus sets the orb increment granted when both bodies are
// luminaries; one luminary earns half of it.
func WithLuminaryBonus(bonus float64) Option {
	return func(m *Matcher) {
		m.luminaryBonus = bonus
	}
}

// Matcher computes aspect sets. It holds no mutable state after
// construction and is safe for concurrent use.
type Matcher struct {
	table         []models.AspectDefinition
	luminaries    map[string]bool
	luminaryBonus float64
}

// NewMatcher builds a Matcher with the default table, Sun and Moon as
// luminaries and a 2 degree luminary bonus.
func NewMatcher(opts ...Option) *Matcher {
	m := &Matcher{
		table:         DefaultTable(),
		luminaries:    map[string]bool{"Sun": true, "Moon": true},
		luminaryBonus: 2,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Table returns a copy of the active aspect table.
func (m *Matcher) Table() []models.AspectDefinition {
	return append([]models.AspectDefinition(nil), m.table...)
}

// Match returns every aspect among the unordered pairs of bodies, sorted by
// ascending delta.
func (m *Matcher) Match(bodies []models.BodyPosition) []models.AspectMatch {
	out := make([]models.AspectMatch, 0)
	for i := 0; i < len(bodies); i++ {
		for j := i + 1; j < len(bodies); j++ {
			if am, ok := m.matchPair(bodies[i], bodies[j]); ok {
				out = append(out, am)
			}
		}
	}
	sortByDelta(out)
	return out
}

// MatchCross returns every aspect between a body of inner and a body of
// outer (synastry or transits), sorted by ascending delta. BodyA always
// names the inner body.
func (m *Matcher) MatchCross(inner, outer []models.BodyPosition) []models.AspectMatch {
	out := make([]models.AspectMatch, 0)
	for _, a := range inner {
		for _, b := range outer {
			if am, ok := m.matchPair(a, b); ok {
				out = append(out, am)
			}
		}
	}
	sortByDelta(out)
	return out
}

func (m *Matcher) matchPair(a, b models.BodyPosition) (models.AspectMatch, bool) {
	sep := geometry.Separation(a.Longitude, b.Longitude)
	orbBonus := m.bonus(a.Name, b.Name)

	for _, def := range m.table {
		orb := def.Orb + orbBonus
		delta := math.Abs(sep - def.Angle)
		// NaN compares false both ways; it must not match.
		if !(delta <= orb) {
			continue
		}
		return models.AspectMatch{
			BodyA:       a.Name,
			BodyB:       b.Name,
			Type:        def.Name,
			TargetAngle: def.Angle,
			Delta:       delta,
			OrbUsed:     orb,
			WithinOrb:   orb - delta,
			Exact:       delta < exactThreshold,
			Strength:    strength(delta, orb),
			Applying:    applying(a, b, def.Angle, delta),
		}, true
	}
	return models.AspectMatch{}, false
}

func (m *Matcher) bonus(a, b string) float64 {
	n := 0
	if m.luminaries[a] {
		n++
	}
	if m.luminaries[b] {
		n++
	}
	return m.luminaryBonus * float64(n) / 2
}

// strength is 100 only for a zero delta; rounding never lifts an inexact
// aspect to 100.
func strength(delta, orb float64) int {
	if orb <= 0 {
		return 0
	}
	s := (1 - delta/orb) * 100
	s = math.Max(0, math.Min(100, s))
	r := int(math.Round(s))
	if r == 100 && delta > 0 {
		r = 99
	}
	return r
}

// applying advances both bodies by their speeds and reports whether the
// delta to the target angle shrinks.
func applying(a, b models.BodyPosition, target, delta float64) bool {
	if a.Speed == 0 && b.Speed == 0 {
		return false
	}
	na := a.Longitude + a.Speed*applyStep
	nb := b.Longitude + b.Speed*applyStep
	next := math.Abs(geometry.Separation(na, nb) - target)
	return next < delta
}

func sortByDelta(ms []models.AspectMatch) {
	sort.SliceStable(ms, func(i, j int) bool {
		return ms[i].Delta < ms[j].Delta
	})
}

var _ domsvc.AspectMatcher = (*Matcher)(nil)
