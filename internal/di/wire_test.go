package di

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ChartCore/internal/app"
	"ChartCore/internal/domain/models"
	"ChartCore/pkg/config"
)

const fakeSwetest = `#!/bin/sh
case "$*" in
*-house*)
cat <<'OUT'
Sun            ,84.1234567
house  1       ,0.0000000
house  2       ,30.0000000
house  3       ,60.0000000
house  4       ,90.0000000
house  5       ,120.0000000
house  6       ,150.0000000
house  7       ,180.0000000
house  8       ,210.0000000
house  9       ,240.0000000
house 10       ,270.0000000
house 11       ,300.0000000
house 12       ,330.0000000
Ascendant      ,0.0000000
MC             ,270.0000000
ARMC           ,268.5000000
Vertex         ,190.2500000
equat. Asc.    ,1.0000000
co-Asc. W.Koch ,2.0000000
co-Asc Munkasey,3.0000000
Polar Asc.     ,4.0000000
OUT
;;
*)
cat <<'OUT'
Mars           ,10.0000000,   0.5,   1.5,   0.61
Jupiter        ,130.0000000,  0.1,   5.2,   0.12
Saturn         ,250.0000000, -0.3,   9.8,  -0.03
OUT
;;
esac
`

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	bin := filepath.Join(t.TempDir(), "swetest")
	require.NoError(t, os.WriteFile(bin, []byte(fakeSwetest), 0o755))

	cfg, err := config.Default()
	require.NoError(t, err)
	cfg.Ephemeris.Binary = bin
	cfg.Logger.Level = "error"
	cfg.Metrics.Enabled = true
	cfg.Metrics.Textfile = filepath.Join(t.TempDir(), "chartcore.prom")
	return cfg
}

func TestInitializeAppComputesChart(t *testing.T) {
	cfg := testConfig(t)
	a, cleanup, err := InitializeApp(cfg)
	require.NoError(t, err)
	defer cleanup()

	cmd := app.Command{Chart: models.ChartRequest{
		Instant:   time.Date(2000, 1, 1, 12, 0, 0, 0, time.UTC),
		Latitude:  51.5,
		Longitude: -0.1275,
	}}

	var out bytes.Buffer
	require.NoError(t, a.Run(context.Background(), cmd, &out))

	var chart models.Chart
	require.NoError(t, json.Unmarshal(out.Bytes(), &chart))
	assert.Len(t, chart.Positions, 3)
	require.NotNil(t, chart.Houses)
	assert.Equal(t, models.FrameAligned, chart.Houses.Status)
	assert.Len(t, chart.Aspects, 3)
	require.Len(t, chart.Patterns, 1)
	assert.Equal(t, models.GrandTrine, chart.Patterns[0].Type)
	assert.False(t, chart.Cached)

	out.Reset()
	require.NoError(t, a.Run(context.Background(), cmd, &out))
	require.NoError(t, json.Unmarshal(out.Bytes(), &chart))
	assert.True(t, chart.Cached)

	a.Shutdown()
	prom, err := os.ReadFile(cfg.Metrics.Textfile)
	require.NoError(t, err)
	assert.Contains(t, string(prom), `chartcore_cache_lookups_total{result="hit"} 1`)
	assert.Contains(t, string(prom), `chartcore_ephemeris_invocations_total{outcome="ok",stage="positions"} 1`)
}

func TestInitializeAppTransitScan(t *testing.T) {
	cfg := testConfig(t)
	cfg.Cache.Backend = "none"
	a, cleanup, err := InitializeApp(cfg)
	require.NoError(t, err)
	defer cleanup()

	natal := time.Date(1990, 6, 15, 8, 30, 0, 0, time.UTC)
	cmd := app.Command{
		Chart:    models.ChartRequest{Instant: natal, Latitude: 40.7, Longitude: -74},
		Transits: []time.Time{natal.AddDate(1, 0, 0), natal.AddDate(2, 0, 0)},
	}

	var out bytes.Buffer
	require.NoError(t, a.Run(context.Background(), cmd, &out))

	var scans []models.Comparison
	require.NoError(t, json.Unmarshal(out.Bytes(), &scans))
	require.Len(t, scans, 2)
	// identical sky: each body conjoins its own transit
	assert.Equal(t, models.Conjunction, scans[0].Aspects[0].Type)
	assert.True(t, scans[0].Aspects[0].Exact)
}

func TestInitializeAppMissingBinary(t *testing.T) {
	cfg, err := config.Default()
	require.NoError(t, err)
	cfg.Ephemeris.Binary = filepath.Join(t.TempDir(), "absent")

	_, _, err = InitializeApp(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ephemeris gateway")
}
