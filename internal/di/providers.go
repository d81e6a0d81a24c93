package di

import (
	"fmt"

	"ChartCore/internal/app"
	"ChartCore/internal/domain/repository"
	internalrepo "ChartCore/internal/repository"
	"ChartCore/internal/services/aspects"
	"ChartCore/internal/services/ephemeris"
	"ChartCore/internal/services/houses"
	"ChartCore/internal/services/patterns"
	"ChartCore/internal/usecase"
	"ChartCore/pkg/cache"
	"ChartCore/pkg/config"
	"ChartCore/pkg/logger"
	"ChartCore/pkg/metrics"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	l, err := logger.New(&logger.Config{
		Level:  cfg.Logger.Level,
		Format: cfg.Logger.Format,
		Output: cfg.Logger.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() *metrics.Recorder {
	return metrics.New()
}

// ProvideGateway creates the subprocess ephemeris gateway.
func ProvideGateway(cfg *config.Config, l *logger.Logger, m repository.Metrics) (*ephemeris.Gateway, error) {
	gw, err := ephemeris.NewGateway(l, m,
		ephemeris.WithBinary(cfg.Ephemeris.Binary),
		ephemeris.WithEphePath(cfg.Ephemeris.EphePath),
		ephemeris.WithBodies(cfg.Ephemeris.Bodies),
		ephemeris.WithTimeout(cfg.Ephemeris.Timeout),
		ephemeris.WithMaxConcurrent(cfg.Ephemeris.MaxConcurrent),
		ephemeris.WithMaxOutputBytes(cfg.Ephemeris.MaxOutputBytes),
		ephemeris.WithReconcile(ephemeris.ReconcileOptions{
			Tolerance:     cfg.Houses.Tolerance,
			DefaultSystem: cfg.Houses.DefaultSystem,
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("ephemeris gateway: %w", err)
	}
	return gw, nil
}

// ProvideMatcher creates the aspect matcher with configured orbs.
func ProvideMatcher(cfg *config.Config) *aspects.Matcher {
	opts := []aspects.Option{
		aspects.WithTable(aspects.WithOrbOverrides(aspects.DefaultTable(), cfg.Aspects.Orbs)),
		aspects.WithLuminaryBonus(cfg.Aspects.LuminaryBonus),
	}
	if len(cfg.Aspects.Luminaries) > 0 {
		opts = append(opts, aspects.WithLuminaries(cfg.Aspects.Luminaries...))
	}
	return aspects.NewMatcher(opts...)
}

// ProvideLocator creates the house locator.
func ProvideLocator() *houses.Locator {
	return houses.NewLocator()
}

// ProvideDetector creates the pattern detector.
func ProvideDetector(cfg *config.Config) *patterns.Detector {
	return patterns.NewDetector(
		patterns.WithTSquareTolerance(cfg.Patterns.TSquareTolerance),
		patterns.WithTopKeywords(cfg.Patterns.TopKeywords),
	)
}

// ProvideCacheService creates the configured cache backend. It is nil for
// backend "none".
func ProvideCacheService(cfg *config.Config) (cache.Service, func(), error) {
	svc, err := cache.New(cache.Options{
		Backend: cfg.Cache.Backend,
		Redis: []cache.RedisOption{
			cache.WithRedisHost(cfg.Cache.Redis.Host),
			cache.WithRedisPort(cfg.Cache.Redis.Port),
			cache.WithRedisPassword(cfg.Cache.Redis.Password),
			cache.WithRedisDB(cfg.Cache.Redis.DB),
			cache.WithRedisPrefix(cfg.Cache.Redis.Prefix),
		},
		Memory: []cache.MemoryOption{
			cache.WithMemoryMaxSize(cfg.Cache.Memory.MaxSize),
			cache.WithMemoryDefaultTTL(cfg.Cache.Memory.DefaultTTL),
		},
		Layered: []cache.LayeredOption{cache.WithLayeredMemorySize(cfg.Cache.Memory.MaxSize)},
	})
	if err != nil {
		return nil, nil, fmt.Errorf("cache: %w", err)
	}
	cleanup := func() {
		if svc != nil {
			_ = svc.Close()
		}
	}
	return svc, cleanup, nil
}

// ProvideChartCache adapts the cache backend to the chart cache contract.
func ProvideChartCache(svc cache.Service, cfg *config.Config) *internalrepo.ChartCache {
	return internalrepo.NewChartCache(svc, cfg.Cache.TTL)
}

// ProvideChartService creates the chart use case.
func ProvideChartService(
	cfg *config.Config,
	gw *ephemeris.Gateway,
	matcher *aspects.Matcher,
	locator *houses.Locator,
	detector *patterns.Detector,
	chartCache *internalrepo.ChartCache,
	m repository.Metrics,
	l *logger.Logger,
) *usecase.ChartService {
	opts := []usecase.ChartServiceOption{usecase.WithScanConcurrency(cfg.Ephemeris.MaxConcurrent)}
	if cfg.Cache.Backend != cache.BackendNone {
		opts = append(opts, usecase.WithCache(chartCache))
	}
	return usecase.NewChartService(gw, matcher, locator, detector, m, l, opts...)
}

// ProvideApp creates the application.
func ProvideApp(cfg *config.Config, charts *usecase.ChartService, rec *metrics.Recorder, l *logger.Logger) *app.App {
	l.Debug("application wired",
		logger.String("cache", cfg.Cache.Backend),
		logger.String("binary", cfg.Ephemeris.Binary))
	return app.New(cfg, charts, rec, l)
}
