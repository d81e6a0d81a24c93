// Package houses places longitudes into a 12-cusp house frame.
package houses

import (
	"ChartCore/internal/domain/models"
	domsvc "ChartCore/internal/domain/service"
	"ChartCore/internal/services/geometry"
)

const houseCount = 12

type Locator struct{}

func NewLocator() *Locator { return &Locator{} }

// Locate returns the house containing longitude. The interval of house h
// is [cusp h, cusp h+1) with house 12 closing on cusp 1. A frame without
// all twelve cusps yields (0, false).
func (l *Locator) Locate(longitude float64, frame *models.HouseFrame) (int, bool) {
	if frame == nil || !complete(frame) {
		return 0, false
	}
	for h := 1; h <= houseCount; h++ {
		start := frame.Cusps[h]
		end := frame.Cusps[h%houseCount+1]
		if geometry.InArc(longitude, start, end) {
			return h, true
		}
	}
	return 0, false
}

// Place locates every body, preserving input order.
func (l *Locator) Place(bodies []models.BodyPosition, frame *models.HouseFrame) []models.Placement {
	out := make([]models.Placement, 0, len(bodies))
	for _, b := range bodies {
		h, _ := l.Locate(b.Longitude, frame)
		out = append(out, models.Placement{Body: b.Name, House: h})
	}
	return out
}

func complete(frame *models.HouseFrame) bool {
	for h := 1; h <= houseCount; h++ {
		if _, ok := frame.Cusps[h]; !ok {
			return false
		}
	}
	return true
}

var _ domsvc.HouseLocator = (*Locator)(nil)
