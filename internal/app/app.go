// Package app runs one chart command against the wired services and owns
// their shutdown.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"ChartCore/internal/domain/models"
	"ChartCore/internal/usecase"
	"ChartCore/pkg/config"
	"ChartCore/pkg/logger"
	"ChartCore/pkg/metrics"
)

// ErrConflictingCommand is returned when a Command asks for both a
// comparison and a transit scan.
var ErrConflictingCommand = errors.New("compare and transit scan are mutually exclusive")

// Command selects what Run computes. Compare and Transits are exclusive.
type Command struct {
	// Chart is the natal (or single) chart request.
	Chart models.ChartRequest
	// Compare, when set, is the second chart of a synastry comparison.
	Compare *models.ChartRequest
	// Transits, when non-empty, scans the chart against each instant.
	Transits []time.Time
}

// App encapsulates the application lifecycle.
type App struct {
	cfg     *config.Config
	charts  *usecase.ChartService
	metrics *metrics.Recorder
	log     *logger.Logger
}

// New creates a new App instance with all dependencies.
func New(cfg *config.Config, charts *usecase.ChartService, rec *metrics.Recorder, log *logger.Logger) *App {
	return &App{cfg: cfg, charts: charts, metrics: rec, log: log}
}

// Run executes cmd and writes the JSON result to out.
func (a *App) Run(ctx context.Context, cmd Command, out io.Writer) error {
	result, err := a.execute(ctx, cmd)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	return nil
}

func (a *App) execute(ctx context.Context, cmd Command) (interface{}, error) {
	switch {
	case cmd.Compare != nil && len(cmd.Transits) > 0:
		return nil, ErrConflictingCommand
	case cmd.Compare != nil:
		a.log.Info("computing comparison")
		return a.charts.Compare(ctx, cmd.Chart, *cmd.Compare)
	case len(cmd.Transits) > 0:
		a.log.Info("scanning transits", logger.Int("instants", len(cmd.Transits)))
		return a.charts.ScanTransits(ctx, cmd.Chart, cmd.Transits)
	default:
		chart, err := a.charts.Compute(ctx, cmd.Chart)
		if err != nil {
			return nil, err
		}
		for _, w := range chart.Warnings {
			a.log.Warn(w)
		}
		return chart, nil
	}
}

// Shutdown flushes metrics. Cache connections are closed by the injector's
// cleanup.
func (a *App) Shutdown() {
	if !a.cfg.Metrics.Enabled || a.metrics == nil {
		return
	}
	if err := a.metrics.WriteTextfile(a.cfg.Metrics.Textfile); err != nil {
		a.log.Warn("metrics textfile write failed",
			logger.String("path", a.cfg.Metrics.Textfile),
			logger.Error(err))
	}
}
