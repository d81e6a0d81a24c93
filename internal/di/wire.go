//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"ChartCore/internal/app"
	"ChartCore/internal/domain/repository"
	"ChartCore/pkg/config"
	"ChartCore/pkg/metrics"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*app.App, func(), error) {
	wire.Build(
		ProvideLogger,

		// Metrics
		ProvideMetrics,
		wire.Bind(new(repository.Metrics), new(*metrics.Recorder)),

		// Infrastructure
		ProvideGateway,
		ProvideCacheService,
		ProvideChartCache,

		// Domain services
		ProvideMatcher,
		ProvideLocator,
		ProvideDetector,

		// Use cases
		ProvideChartService,

		ProvideApp,
	)
	return nil, nil, nil
}
