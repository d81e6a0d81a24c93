package repository

import (
	"context"

	"ChartCore/internal/domain/models"
)

// ChartCache stores normalized ephemeris output per chart key. A miss is
// reported as ok == false, never as an error.
type ChartCache interface {
	Key(req models.ChartRequest) string
	Get(ctx context.Context, key string) (eph *models.Ephemeris, ok bool, err error)
	Put(ctx context.Context, key string, eph *models.Ephemeris) error
}

type Metrics interface {
	RecordInvocation(stage, outcome string)
	RecordLatency(op string, seconds float64)
	RecordCacheLookup(hit bool)
	RecordPattern(patternType string)
}
