package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"ChartCore/internal/domain/models"
	drepo "ChartCore/internal/domain/repository"
	dsvc "ChartCore/internal/domain/service"
	"ChartCore/internal/services/geometry"
	"ChartCore/pkg/logger"
	"ChartCore/pkg/validate"
)

// ErrInvalidEphemeris is returned for precomputed ephemeris data carrying
// non-finite values.
var ErrInvalidEphemeris = errors.New("invalid ephemeris")

// Labels appended to second-chart body names in comparisons.
const (
	LabelOuter   = "outer"
	LabelTransit = "transit"
)

// ChartServiceOption configures a ChartService.
type ChartServiceOption func(*ChartService)

// WithCache enables the get-before-compute / put-after-success cache.
func WithCache(c drepo.ChartCache) ChartServiceOption {
	return func(s *ChartService) {
		s.cache = c
	}
}

// WithScanConcurrency bounds parallel transit computations.
func WithScanConcurrency(n int) ChartServiceOption {
	return func(s *ChartService) {
		if n > 0 {
			s.scanLimit = n
		}
	}
}

// ChartService runs the gateway, aspect, house and pattern stages for a
// chart request.
type ChartService struct {
	gateway   dsvc.EphemerisGateway
	matcher   dsvc.AspectMatcher
	locator   dsvc.HouseLocator
	detector  dsvc.PatternDetector
	cache     drepo.ChartCache
	metrics   drepo.Metrics
	log       *logger.Logger
	scanLimit int
}

// NewChartService creates a ChartService. The cache is optional; nil
// metrics or log fall back to no-ops.
func NewChartService(
	gateway dsvc.EphemerisGateway,
	matcher dsvc.AspectMatcher,
	locator dsvc.HouseLocator,
	detector dsvc.PatternDetector,
	metrics drepo.Metrics,
	log *logger.Logger,
	opts ...ChartServiceOption,
) *ChartService {
	s := &ChartService{
		gateway:   gateway,
		matcher:   matcher,
		locator:   locator,
		detector:  detector,
		metrics:   metrics,
		log:       log,
		scanLimit: 4,
	}
	if s.metrics == nil {
		s.metrics = noopMetrics{}
	}
	if s.log == nil {
		s.log = logger.NewNop()
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Compute returns the chart for req, served from the cache when possible.
// An unreconciled house frame is reported in Warnings, not as an error.
func (s *ChartService) Compute(ctx context.Context, req models.ChartRequest) (*models.Chart, error) {
	start := time.Now()
	if err := validate.Struct(ctx, &req); err != nil {
		return nil, fmt.Errorf("chart request: %w", err)
	}

	eph, cached, err := s.ephemeris(ctx, req)
	if err != nil {
		return nil, err
	}

	chart := s.assemble(req, eph)
	chart.Cached = cached
	s.metrics.RecordLatency("chart_compute", time.Since(start).Seconds())
	s.log.Debug("chart computed",
		logger.String("instant", req.Instant.UTC().Format(time.RFC3339)),
		logger.Int("aspects", len(chart.Aspects)),
		logger.Int("patterns", len(chart.Patterns)),
		logger.Bool("cached", cached))
	return chart, nil
}

// FromPositions builds a chart from precomputed ephemeris data without
// touching the gateway or the cache. eph.Houses may be nil.
func (s *ChartService) FromPositions(ctx context.Context, req models.ChartRequest, eph *models.Ephemeris) (*models.Chart, error) {
	if err := validate.Struct(ctx, &req); err != nil {
		return nil, fmt.Errorf("chart request: %w", err)
	}
	if eph == nil || len(eph.Positions) == 0 {
		return nil, fmt.Errorf("from positions: no positions")
	}
	clean, err := sanitize(eph)
	if err != nil {
		return nil, fmt.Errorf("from positions: %w", err)
	}
	return s.assemble(req, clean), nil
}

// Compare computes cross aspects between two charts. Outer body names are
// suffixed with " (outer)" so both charts can share one pattern graph;
// only patterns that span both charts are kept.
func (s *ChartService) Compare(ctx context.Context, inner, outer models.ChartRequest) (*models.Comparison, error) {
	if err := validate.Struct(ctx, &inner); err != nil {
		return nil, fmt.Errorf("inner chart request: %w", err)
	}
	if err := validate.Struct(ctx, &outer); err != nil {
		return nil, fmt.Errorf("outer chart request: %w", err)
	}

	var innerEph, outerEph *models.Ephemeris
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		eph, _, err := s.ephemeris(gctx, inner)
		innerEph = eph
		return err
	})
	g.Go(func() error {
		eph, _, err := s.ephemeris(gctx, outer)
		outerEph = eph
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return s.compare(inner, outer, innerEph.Positions, outerEph.Positions, LabelOuter), nil
}

// ScanTransits compares the natal chart against the sky at each instant.
// Results keep the order of instants; the first failure cancels the rest.
func (s *ChartService) ScanTransits(ctx context.Context, natal models.ChartRequest, instants []time.Time) ([]*models.Comparison, error) {
	if err := validate.Struct(ctx, &natal); err != nil {
		return nil, fmt.Errorf("natal chart request: %w", err)
	}
	natalEph, _, err := s.ephemeris(ctx, natal)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	results := make([]*models.Comparison, len(instants))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.scanLimit)
	for i, instant := range instants {
		i, instant := i, instant
		g.Go(func() error {
			positions, err := s.gateway.Positions(gctx, instant)
			if err != nil {
				return fmt.Errorf("transit %s: %w", instant.UTC().Format(time.RFC3339), err)
			}
			transit := natal
			transit.Instant = instant
			results[i] = s.compare(natal, transit, natalEph.Positions, positions, LabelTransit)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.metrics.RecordLatency("transit_scan", time.Since(start).Seconds())
	s.log.Info("transit scan finished",
		logger.Int("instants", len(instants)),
		logger.Duration("elapsed", time.Since(start)))
	return results, nil
}

// ephemeris returns positions and houses for req, reading and filling the
// cache around the gateway. Cache failures are logged and ignored.
func (s *ChartService) ephemeris(ctx context.Context, req models.ChartRequest) (*models.Ephemeris, bool, error) {
	var key string
	if s.cache != nil {
		key = s.cache.Key(req)
		eph, ok, err := s.cache.Get(ctx, key)
		if err != nil {
			s.log.Warn("chart cache read failed", logger.String("key", key), logger.Error(err))
		}
		if ok {
			clean, err := sanitize(eph)
			if err == nil {
				s.metrics.RecordCacheLookup(true)
				return clean, true, nil
			}
			// Recompute over a bad entry; the put below replaces it.
			s.log.Warn("chart cache entry rejected", logger.String("key", key), logger.Error(err))
		}
		s.metrics.RecordCacheLookup(false)
	}

	eph := &models.Ephemeris{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		positions, err := s.gateway.Positions(gctx, req.Instant)
		if err != nil {
			return fmt.Errorf("positions: %w", err)
		}
		eph.Positions = positions
		return nil
	})
	g.Go(func() error {
		frame, err := s.gateway.Houses(gctx, req.Instant, req.Latitude, req.Longitude, req.HouseSystem)
		if err != nil {
			return fmt.Errorf("houses: %w", err)
		}
		eph.Houses = frame
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, false, err
	}

	if s.cache != nil {
		if err := s.cache.Put(ctx, key, eph); err != nil {
			s.log.Warn("chart cache write failed", logger.String("key", key), logger.Error(err))
		}
	}
	return eph, false, nil
}

// sanitize copies eph with every longitude normalized into [0,360). Any
// NaN or infinite field fails with ErrInvalidEphemeris.
func sanitize(eph *models.Ephemeris) (*models.Ephemeris, error) {
	if eph == nil || len(eph.Positions) == 0 {
		return nil, fmt.Errorf("%w: no positions", ErrInvalidEphemeris)
	}
	out := &models.Ephemeris{Positions: make([]models.BodyPosition, len(eph.Positions))}
	for i, p := range eph.Positions {
		if !finite(p.Longitude, p.Latitude, p.Distance, p.Speed) {
			return nil, fmt.Errorf("%w: body %q has a non-finite value", ErrInvalidEphemeris, p.Name)
		}
		p.Longitude = geometry.Normalize360(p.Longitude)
		out.Positions[i] = p
	}

	if eph.Houses == nil {
		return out, nil
	}
	frame := *eph.Houses
	a := frame.Angles
	if !finite(a.ASC, a.MC, a.ARMC, a.Vertex) {
		return nil, fmt.Errorf("%w: house angles are not finite", ErrInvalidEphemeris)
	}
	frame.Angles = models.Angles{
		ASC:    geometry.Normalize360(a.ASC),
		MC:     geometry.Normalize360(a.MC),
		ARMC:   geometry.Normalize360(a.ARMC),
		Vertex: geometry.Normalize360(a.Vertex),
	}
	frame.Cusps = make(map[int]float64, len(eph.Houses.Cusps))
	for n, c := range eph.Houses.Cusps {
		if !finite(c) {
			return nil, fmt.Errorf("%w: cusp %d is not finite", ErrInvalidEphemeris, n)
		}
		frame.Cusps[n] = geometry.Normalize360(c)
	}
	out.Houses = &frame
	return out, nil
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s *ChartService) assemble(req models.ChartRequest, eph *models.Ephemeris) *models.Chart {
	chart := &models.Chart{
		Request:   req,
		Positions: eph.Positions,
		Houses:    eph.Houses,
		Warnings:  frameWarnings(eph.Houses),
	}
	for _, p := range eph.Positions {
		if p.Retrograde() {
			chart.Retrograde = append(chart.Retrograde, p.Name)
		}
	}
	if eph.Houses != nil {
		chart.Placements = s.locator.Place(eph.Positions, eph.Houses)
	}
	chart.Aspects = s.matcher.Match(eph.Positions)
	chart.Patterns = s.detector.Detect(chart.Aspects, eph.Positions)
	chart.Summary = s.detector.Summarize(chart.Patterns)
	for _, p := range chart.Patterns {
		s.metrics.RecordPattern(p.Type)
	}
	return chart
}

func (s *ChartService) compare(inner, outer models.ChartRequest, innerPos, outerPos []models.BodyPosition, label string) *models.Comparison {
	suffix := " (" + label + ")"

	// Match on unsuffixed names; luminary lookup is by name.
	cross := s.matcher.MatchCross(innerPos, outerPos)
	for i := range cross {
		cross[i].BodyB += suffix
	}
	outerOwn := s.matcher.Match(outerPos)
	for i := range outerOwn {
		outerOwn[i].BodyA += suffix
		outerOwn[i].BodyB += suffix
	}

	combined := make([]models.BodyPosition, 0, len(innerPos)+len(outerPos))
	combined = append(combined, innerPos...)
	for _, p := range outerPos {
		p.Name += suffix
		combined = append(combined, p)
	}

	all := make([]models.AspectMatch, 0, len(cross)+len(outerOwn))
	all = append(all, s.matcher.Match(innerPos)...)
	all = append(all, outerOwn...)
	all = append(all, cross...)
	sort.SliceStable(all, func(i, j int) bool { return all[i].Delta < all[j].Delta })

	patterns := make([]models.Pattern, 0)
	for _, p := range s.detector.Detect(all, combined) {
		if spansBoth(p, suffix) {
			patterns = append(patterns, p)
		}
	}

	return &models.Comparison{
		Inner:    inner,
		Outer:    outer,
		Aspects:  cross,
		Patterns: patterns,
		Summary:  s.detector.Summarize(patterns),
	}
}

func spansBoth(p models.Pattern, suffix string) bool {
	var in, out bool
	for _, name := range p.Planets {
		if strings.HasSuffix(name, suffix) {
			out = true
		} else {
			in = true
		}
	}
	return in && out
}

func frameWarnings(frame *models.HouseFrame) []string {
	if frame == nil {
		return nil
	}
	switch frame.Status {
	case models.FrameUnreconciled:
		return []string{fmt.Sprintf(
			"house system %s: cusps do not match ASC %.3f / MC %.3f; placements may be wrong",
			frame.System, frame.Angles.ASC, frame.Angles.MC)}
	case models.FrameForced:
		return []string{fmt.Sprintf(
			"house system %s: cusps 1 and 10 forced to ASC / MC", frame.System)}
	}
	return nil
}

type noopMetrics struct{}

func (noopMetrics) RecordInvocation(string, string) {}
func (noopMetrics) RecordLatency(string, float64)   {}
func (noopMetrics) RecordCacheLookup(bool)          {}
func (noopMetrics) RecordPattern(string)            {}
