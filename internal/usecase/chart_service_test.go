package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ChartCore/internal/domain/models"
	"ChartCore/internal/repository"
	"ChartCore/internal/services/aspects"
	"ChartCore/internal/services/houses"
	"ChartCore/internal/services/patterns"
	"ChartCore/pkg/cache"
	"ChartCore/pkg/logger"
	"ChartCore/pkg/validate"
)

var natalInstant = time.Date(1990, 6, 15, 8, 30, 0, 0, time.UTC)

func grandTrineSky() []models.BodyPosition {
	return []models.BodyPosition{
		{Name: "Mars", Longitude: 10, Speed: 0.6},
		{Name: "Jupiter", Longitude: 130, Speed: 0.1},
		{Name: "Saturn", Longitude: 250, Speed: 0.03},
	}
}

func equalHouses(system string, status models.FrameStatus) *models.HouseFrame {
	cusps := make(map[int]float64, 12)
	for h := 1; h <= 12; h++ {
		cusps[h] = float64(h-1) * 30
	}
	return &models.HouseFrame{
		System: system,
		Cusps:  cusps,
		Angles: models.Angles{ASC: 0, MC: 270},
		Status: status,
	}
}

type fakeGateway struct {
	mu          sync.Mutex
	positions   map[int64][]models.BodyPosition
	frame       *models.HouseFrame
	err         error
	failAt      time.Time
	systems     []string
	calls       atomic.Int32
	inflight    atomic.Int32
	maxInflight atomic.Int32
	delay       time.Duration
}

func (f *fakeGateway) enter() func() {
	f.calls.Add(1)
	n := f.inflight.Add(1)
	for {
		m := f.maxInflight.Load()
		if n <= m || f.maxInflight.CompareAndSwap(m, n) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return func() { f.inflight.Add(-1) }
}

func (f *fakeGateway) Positions(ctx context.Context, instant time.Time) ([]models.BodyPosition, error) {
	defer f.enter()()
	if f.err != nil {
		return nil, f.err
	}
	if !f.failAt.IsZero() && instant.Equal(f.failAt) {
		return nil, errors.New("tool exited 1")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.positions[instant.Unix()]; ok {
		return p, nil
	}
	return grandTrineSky(), nil
}

func (f *fakeGateway) Houses(_ context.Context, _ time.Time, _, _ float64, system string) (*models.HouseFrame, error) {
	defer f.enter()()
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.systems = append(f.systems, system)
	if f.frame != nil {
		return f.frame, nil
	}
	return equalHouses(system, models.FrameAligned), nil
}

type countingMetrics struct {
	mu       sync.Mutex
	hits     int
	misses   int
	patterns map[string]int
}

func (m *countingMetrics) RecordInvocation(string, string) {}
func (m *countingMetrics) RecordLatency(string, float64)   {}

func (m *countingMetrics) RecordCacheLookup(hit bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if hit {
		m.hits++
	} else {
		m.misses++
	}
}

func (m *countingMetrics) RecordPattern(t string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.patterns == nil {
		m.patterns = make(map[string]int)
	}
	m.patterns[t]++
}

func newService(gw *fakeGateway, metrics *countingMetrics, opts ...ChartServiceOption) *ChartService {
	return NewChartService(gw, aspects.NewMatcher(), houses.NewLocator(), patterns.NewDetector(),
		metrics, logger.NewNop(), opts...)
}

func request() models.ChartRequest {
	return models.ChartRequest{Instant: natalInstant, Latitude: 48.85, Longitude: 2.35}
}

func TestComputeAssemblesChart(t *testing.T) {
	gw := &fakeGateway{}
	metrics := &countingMetrics{}
	chart, err := newService(gw, metrics).Compute(context.Background(), request())
	require.NoError(t, err)

	assert.Equal(t, "P", chart.Request.HouseSystem, "default house system")
	assert.Equal(t, []string{"P"}, gw.systems)
	assert.False(t, chart.Cached)
	assert.Empty(t, chart.Warnings)

	require.Len(t, chart.Aspects, 3)
	for _, a := range chart.Aspects {
		assert.Equal(t, models.Trine, a.Type)
	}
	require.Len(t, chart.Patterns, 1)
	assert.Equal(t, models.GrandTrine, chart.Patterns[0].Type)
	assert.Equal(t, 1, chart.Summary.Total)
	assert.Equal(t, 1, metrics.patterns[models.GrandTrine])

	assert.Equal(t, []models.Placement{
		{Body: "Mars", House: 1},
		{Body: "Jupiter", House: 5},
		{Body: "Saturn", House: 9},
	}, chart.Placements)
}

func TestComputeUsesCache(t *testing.T) {
	mc := cache.NewMemoryCache()
	defer mc.Close()

	gw := &fakeGateway{}
	metrics := &countingMetrics{}
	svc := newService(gw, metrics, WithCache(repository.NewChartCache(mc, time.Hour)))

	first, err := svc.Compute(context.Background(), request())
	require.NoError(t, err)
	require.False(t, first.Cached)
	calls := gw.calls.Load()
	assert.EqualValues(t, 2, calls)

	second, err := svc.Compute(context.Background(), request())
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, calls, gw.calls.Load(), "cache hit skips the gateway")

	assert.Equal(t, first.Aspects, second.Aspects)
	assert.Equal(t, first.Patterns, second.Patterns)
	assert.Equal(t, first.Placements, second.Placements)
	assert.Equal(t, 1, metrics.hits)
	assert.Equal(t, 1, metrics.misses)
}

type failingCache struct{}

func (failingCache) Key(models.ChartRequest) string { return "k" }
func (failingCache) Get(context.Context, string) (*models.Ephemeris, bool, error) {
	return nil, false, errors.New("redis down")
}
func (failingCache) Put(context.Context, string, *models.Ephemeris) error {
	return errors.New("redis down")
}

func TestComputeIgnoresCacheFailures(t *testing.T) {
	gw := &fakeGateway{}
	chart, err := newService(gw, &countingMetrics{}, WithCache(failingCache{})).
		Compute(context.Background(), request())
	require.NoError(t, err)
	assert.Len(t, chart.Patterns, 1)
}

func TestComputeUnreconciledHousesWarn(t *testing.T) {
	gw := &fakeGateway{frame: equalHouses("K", models.FrameUnreconciled)}
	req := request()
	req.HouseSystem = "K"

	chart, err := newService(gw, &countingMetrics{}).Compute(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, chart.Houses)
	assert.Equal(t, models.FrameUnreconciled, chart.Houses.Status)
	require.Len(t, chart.Warnings, 1)
	assert.Contains(t, chart.Warnings[0], "house system K")
}

func TestComputeGatewayError(t *testing.T) {
	boom := errors.New("swetest: exit status 1")
	gw := &fakeGateway{err: boom}

	_, err := newService(gw, &countingMetrics{}).Compute(context.Background(), request())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestComputeRejectsInvalidRequest(t *testing.T) {
	gw := &fakeGateway{}
	svc := newService(gw, &countingMetrics{})

	bad := request()
	bad.Latitude = 95
	_, err := svc.Compute(context.Background(), bad)
	require.Error(t, err)
	var verrs validate.Errors
	assert.ErrorAs(t, err, &verrs)

	_, err = svc.Compute(context.Background(), models.ChartRequest{Latitude: 10})
	assert.Error(t, err, "zero instant")

	bad = request()
	bad.HouseSystem = "Q"
	_, err = svc.Compute(context.Background(), bad)
	assert.Error(t, err)

	assert.Zero(t, gw.calls.Load())
}

func TestFromPositionsBypassesGateway(t *testing.T) {
	gw := &fakeGateway{}
	svc := newService(gw, &countingMetrics{})

	chart, err := svc.FromPositions(context.Background(), request(), &models.Ephemeris{Positions: grandTrineSky()})
	require.NoError(t, err)
	assert.Zero(t, gw.calls.Load())
	assert.Len(t, chart.Patterns, 1)
	assert.Nil(t, chart.Placements)

	_, err = svc.FromPositions(context.Background(), request(), &models.Ephemeris{})
	assert.Error(t, err)
}

func TestFromPositionsNormalizesLongitudes(t *testing.T) {
	svc := newService(&fakeGateway{}, &countingMetrics{})
	eph := &models.Ephemeris{
		Positions: []models.BodyPosition{
			{Name: "Mars", Longitude: -350, Speed: 0.6},
			{Name: "Jupiter", Longitude: 490, Speed: -0.1},
			{Name: "Saturn", Longitude: 250},
		},
		Houses: equalHouses("P", models.FrameAligned),
	}
	eph.Houses.Cusps[1] = 360
	eph.Houses.Angles.MC = -90

	chart, err := svc.FromPositions(context.Background(), request(), eph)
	require.NoError(t, err)

	lons := make([]float64, 0, len(chart.Positions))
	for _, p := range chart.Positions {
		lons = append(lons, p.Longitude)
	}
	assert.Equal(t, []float64{10, 130, 250}, lons)
	assert.Equal(t, 0.0, chart.Houses.Cusps[1])
	assert.Equal(t, 270.0, chart.Houses.Angles.MC)
	assert.Equal(t, -350.0, eph.Positions[0].Longitude, "input left untouched")
	assert.Equal(t, []string{"Jupiter"}, chart.Retrograde)

	require.Len(t, chart.Patterns, 1)
	assert.Equal(t, models.GrandTrine, chart.Patterns[0].Type)
	_, err = json.Marshal(chart)
	assert.NoError(t, err)
}

func TestFromPositionsRejectsNonFinite(t *testing.T) {
	svc := newService(&fakeGateway{}, &countingMetrics{})
	cases := map[string]*models.Ephemeris{
		"nan longitude": {Positions: []models.BodyPosition{
			{Name: "Mars", Longitude: 10},
			{Name: "Saturn", Longitude: math.NaN()},
		}},
		"infinite longitude": {Positions: []models.BodyPosition{{Name: "Saturn", Longitude: math.Inf(1)}}},
		"nan speed":          {Positions: []models.BodyPosition{{Name: "Moon", Longitude: 1, Speed: math.NaN()}}},
		"infinite cusp": {
			Positions: grandTrineSky(),
			Houses: func() *models.HouseFrame {
				h := equalHouses("P", models.FrameAligned)
				h.Cusps[4] = math.Inf(-1)
				return h
			}(),
		},
	}
	for name, eph := range cases {
		t.Run(name, func(t *testing.T) {
			chart, err := svc.FromPositions(context.Background(), request(), eph)
			assert.ErrorIs(t, err, ErrInvalidEphemeris)
			assert.Nil(t, chart)
		})
	}
}

type staticCache struct {
	eph *models.Ephemeris
	put *models.Ephemeris
}

func (c *staticCache) Key(models.ChartRequest) string { return "k" }
func (c *staticCache) Get(context.Context, string) (*models.Ephemeris, bool, error) {
	return c.eph, c.eph != nil, nil
}
func (c *staticCache) Put(_ context.Context, _ string, eph *models.Ephemeris) error {
	c.put = eph
	return nil
}

func TestComputeRecomputesOverBadCacheEntry(t *testing.T) {
	gw := &fakeGateway{}
	metrics := &countingMetrics{}
	sc := &staticCache{eph: &models.Ephemeris{Positions: []models.BodyPosition{
		{Name: "Mars", Longitude: 10},
		{Name: "Saturn", Longitude: math.NaN()},
	}}}

	chart, err := newService(gw, metrics, WithCache(sc)).Compute(context.Background(), request())
	require.NoError(t, err)
	assert.False(t, chart.Cached)
	assert.EqualValues(t, 2, gw.calls.Load())
	assert.Equal(t, 0, metrics.hits)
	assert.Equal(t, 1, metrics.misses)
	require.NotNil(t, sc.put, "fresh ephemeris replaces the bad entry")
	assert.Len(t, chart.Patterns, 1)
}

func TestComputeNormalizesCachedEntry(t *testing.T) {
	gw := &fakeGateway{}
	sc := &staticCache{eph: &models.Ephemeris{Positions: []models.BodyPosition{
		{Name: "Mars", Longitude: 370},
		{Name: "Jupiter", Longitude: -230},
	}}}

	chart, err := newService(gw, &countingMetrics{}, WithCache(sc)).Compute(context.Background(), request())
	require.NoError(t, err)
	assert.True(t, chart.Cached)
	assert.Zero(t, gw.calls.Load())
	assert.Equal(t, 10.0, chart.Positions[0].Longitude)
	assert.Equal(t, 130.0, chart.Positions[1].Longitude)
}

func TestNilMetricsAndLogger(t *testing.T) {
	svc := NewChartService(&fakeGateway{}, aspects.NewMatcher(), houses.NewLocator(), patterns.NewDetector(), nil, nil)
	chart, err := svc.Compute(context.Background(), request())
	require.NoError(t, err)
	assert.Len(t, chart.Patterns, 1)

	got, err := svc.ScanTransits(context.Background(), request(), []time.Time{natalInstant})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestCompareSpansBothCharts(t *testing.T) {
	outerInstant := natalInstant.Add(24 * time.Hour)
	gw := &fakeGateway{positions: map[int64][]models.BodyPosition{
		natalInstant.Unix(): {
			{Name: "Mars", Longitude: 10},
			{Name: "Jupiter", Longitude: 130},
		},
		outerInstant.Unix(): {
			{Name: "Saturn", Longitude: 250},
		},
	}}
	outer := request()
	outer.Instant = outerInstant

	cmp, err := newService(gw, &countingMetrics{}).Compare(context.Background(), request(), outer)
	require.NoError(t, err)

	require.Len(t, cmp.Aspects, 2, "inner-inner trine is not a cross aspect")
	for _, a := range cmp.Aspects {
		assert.Equal(t, "Saturn (outer)", a.BodyB)
		assert.Equal(t, models.Trine, a.Type)
	}
	require.Len(t, cmp.Patterns, 1)
	assert.Equal(t, models.GrandTrine, cmp.Patterns[0].Type)
	assert.Contains(t, cmp.Patterns[0].Planets, "Saturn (outer)")
	assert.Equal(t, outerInstant, cmp.Outer.Instant)
}

func TestCompareDropsSingleChartPatterns(t *testing.T) {
	outerInstant := natalInstant.Add(time.Hour)
	gw := &fakeGateway{positions: map[int64][]models.BodyPosition{
		outerInstant.Unix(): {{Name: "Pluto", Longitude: 55}},
	}}
	outer := request()
	outer.Instant = outerInstant

	cmp, err := newService(gw, &countingMetrics{}).Compare(context.Background(), request(), outer)
	require.NoError(t, err)
	assert.Empty(t, cmp.Patterns, "natal grand trine alone is not a comparison pattern")
	assert.NotNil(t, cmp.Patterns)
}

func TestScanTransitsKeepsOrderAndLimit(t *testing.T) {
	instants := make([]time.Time, 8)
	positions := make(map[int64][]models.BodyPosition)
	for i := range instants {
		instants[i] = natalInstant.AddDate(0, 0, i+1)
		positions[instants[i].Unix()] = []models.BodyPosition{
			{Name: "Moon", Longitude: float64(i*45 + 5)},
		}
	}
	gw := &fakeGateway{positions: positions, delay: 5 * time.Millisecond}

	got, err := newService(gw, &countingMetrics{}, WithScanConcurrency(2)).
		ScanTransits(context.Background(), request(), instants)
	require.NoError(t, err)
	require.Len(t, got, len(instants))

	for i, cmp := range got {
		require.NotNil(t, cmp)
		assert.Equal(t, instants[i], cmp.Outer.Instant)
		assert.Equal(t, natalInstant, cmp.Inner.Instant)
	}
	// Moon at 5 conjoins natal Mars at 10
	require.NotEmpty(t, got[0].Aspects)
	assert.Equal(t, "Moon (transit)", got[0].Aspects[0].BodyB)
	assert.LessOrEqual(t, gw.maxInflight.Load(), int32(2))
}

func TestScanTransitsFailure(t *testing.T) {
	instants := []time.Time{natalInstant.Add(time.Hour), natalInstant.Add(2 * time.Hour), natalInstant.Add(3 * time.Hour)}
	gw := &fakeGateway{failAt: instants[1]}

	_, err := newService(gw, &countingMetrics{}).ScanTransits(context.Background(), request(), instants)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "transit 1990-06-15T10:30:00Z")
}

func TestCompareKeepsLuminaryBonus(t *testing.T) {
	outerInstant := natalInstant.Add(48 * time.Hour)
	gw := &fakeGateway{positions: map[int64][]models.BodyPosition{
		natalInstant.Unix(): {{Name: "Mars", Longitude: 0}},
		outerInstant.Unix(): {{Name: "Moon", Longitude: 8.5}},
	}}
	outer := request()
	outer.Instant = outerInstant

	cmp, err := newService(gw, &countingMetrics{}).Compare(context.Background(), request(), outer)
	require.NoError(t, err)

	// 8.5 is outside the plain conjunction orb of 8 but inside 8 + 1
	require.Len(t, cmp.Aspects, 1)
	assert.Equal(t, models.Conjunction, cmp.Aspects[0].Type)
	assert.Equal(t, 9.0, cmp.Aspects[0].OrbUsed)
	assert.Equal(t, "Moon (outer)", cmp.Aspects[0].BodyB)
}
