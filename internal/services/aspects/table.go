package aspects

import "ChartCore/internal/domain/models"

// DefaultTable returns the aspect table in match-priority order. A pair
// contributes at most one aspect: the first row whose orb contains the
// separation wins, so the row order is significant.
func DefaultTable() []models.AspectDefinition {
	return []models.AspectDefinition{
		{Name: models.Conjunction, Angle: 0, Orb: 8},
		{Name: models.Opposition, Angle: 180, Orb: 8},
		{Name: models.Trine, Angle: 120, Orb: 6},
		{Name: models.Square, Angle: 90, Orb: 6},
		{Name: models.Sextile, Angle: 60, Orb: 4},
		{Name: models.Quincunx, Angle: 150, Orb: 3},
		{Name: models.Semisextile, Angle: 30, Orb: 2},
		{Name: models.Semisquare, Angle: 45, Orb: 2},
		{Name: models.Sesquiquadrate, Angle: 135, Orb: 2},
		{Name: models.Quintile, Angle: 72, Orb: 1.5},
		{Name: models.Biquintile, Angle: 144, Orb: 1.5},
	}
}

// WithOrbOverrides returns a copy of table with orbs replaced by name.
// Unknown names are ignored and the row order is preserved.
func WithOrbOverrides(table []models.AspectDefinition, orbs map[string]float64) []models.AspectDefinition {
	out := make([]models.AspectDefinition, len(table))
	copy(out, table)
	for i := range out {
		if o, ok := orbs[out[i].Name]; ok && o > 0 {
			out[i].Orb = o
		}
	}
	return out
}
