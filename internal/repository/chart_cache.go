package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ChartCore/internal/domain/models"
	domrepo "ChartCore/internal/domain/repository"
	"ChartCore/pkg/cache"
)

const chartKeyPrefix = "chart"

// ChartCache implements domrepo.ChartCache over a cache.Service.
type ChartCache struct {
	svc cache.Service
	ttl time.Duration
}

// NewChartCache stores entries in svc for ttl. A nil svc gives a cache
// that always misses.
func NewChartCache(svc cache.Service, ttl time.Duration) *ChartCache {
	return &ChartCache{svc: svc, ttl: ttl}
}

// Key hashes the request's instant, coordinates and house system. Requests
// differing below a microdegree share a key.
func (c *ChartCache) Key(req models.ChartRequest) string {
	raw := fmt.Sprintf("%s|%.6f|%.6f|%s",
		req.Instant.UTC().Format(time.RFC3339Nano),
		req.Latitude, req.Longitude, req.HouseSystem)
	return cache.GenerateKey(chartKeyPrefix, cache.HashKey(raw))
}

func (c *ChartCache) Get(ctx context.Context, key string) (*models.Ephemeris, bool, error) {
	if c.svc == nil {
		return nil, false, nil
	}
	var eph models.Ephemeris
	if err := c.svc.Get(ctx, key, &eph); err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("chart cache get: %w", err)
	}
	return &eph, true, nil
}

func (c *ChartCache) Put(ctx context.Context, key string, eph *models.Ephemeris) error {
	if c.svc == nil || eph == nil {
		return nil
	}
	if err := c.svc.Set(ctx, key, eph, c.ttl); err != nil {
		return fmt.Errorf("chart cache put: %w", err)
	}
	return nil
}

var _ domrepo.ChartCache = (*ChartCache)(nil)
