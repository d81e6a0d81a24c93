package service

import (
	"context"
	"time"

	"ChartCore/internal/domain/models"
)

// EphemerisGateway obtains raw positions and house frames from an external
// calculator.
type EphemerisGateway interface {
	Positions(ctx context.Context, instant time.Time) ([]models.BodyPosition, error)
	Houses(ctx context.Context, instant time.Time, lat, lon float64, system string) (*models.HouseFrame, error)
}

// AspectMatcher derives pairwise aspects for one chart or between two.
type AspectMatcher interface {
	Match(bodies []models.BodyPosition) []models.AspectMatch
	MatchCross(inner, outer []models.BodyPosition) []models.AspectMatch
}

// HouseLocator places longitudes into a house frame.
type HouseLocator interface {
	Locate(longitude float64, frame *models.HouseFrame) (int, bool)
	Place(bodies []models.BodyPosition, frame *models.HouseFrame) []models.Placement
}

// PatternDetector mines an aspect set for multi-body configurations.
type PatternDetector interface {
	Detect(aspects []models.AspectMatch, bodies []models.BodyPosition) []models.Pattern
	Summarize(patterns []models.Pattern) models.PatternSummary
}
