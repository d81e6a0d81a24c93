package ephemeris

import (
	"ChartCore/internal/domain/models"
	"ChartCore/internal/services/geometry"
)

const (
	cuspCount = 12
	// 12 cusps followed by ASC, MC, ARMC, Vertex
	frameWidth = 16
	// tools commonly append four more angle points after the vertex
	extendedWidth = 20
)

// ReconcileOptions tunes house frame reconciliation.
type ReconcileOptions struct {
	// Tolerance is the largest ASC/cusp 1 and MC/cusp 10 separation
	// accepted as aligned, in degrees.
	Tolerance float64
	// DefaultSystem is the only house system for which a misaligned frame
	// is forced into alignment.
	DefaultSystem string
}

// DefaultReconcileOptions returns a 0.8 degree tolerance with Placidus as
// the default system.
func DefaultReconcileOptions() ReconcileOptions {
	return ReconcileOptions{Tolerance: 0.8, DefaultSystem: "P"}
}

type reconState int

const (
	statePrimary reconState = iota
	stateSearching
	stateAligned
	stateForced
	stateUnreconciled
)

// Reconcile locates the [12 cusps][ASC MC ARMC Vertex] window in tokens.
//
//	primary      -> aligned    the trailing window checks out
//	primary      -> searching  otherwise
//	searching    -> aligned    some 16-wide window checks out (first wins)
//	searching    -> forced     none does and system is the default one:
//	                           cusp 1 := ASC, cusp 10 := MC
//	searching    -> unreconciled  none does for any other system
//
// Forced and unreconciled frames are built from the trailing window.
// tokens must hold at least 16 values.
func Reconcile(tokens []float64, system string, opts ReconcileOptions) *models.HouseFrame {
	primary := len(tokens) - frameWidth
	if len(tokens) >= extendedWidth {
		primary = len(tokens) - extendedWidth
	}

	start := primary
	st := statePrimary
	for {
		switch st {
		case statePrimary:
			if aligned(tokens, primary, opts.Tolerance) {
				st = stateAligned
			} else {
				st = stateSearching
			}
		case stateSearching:
			st = stateForced
			if system != opts.DefaultSystem {
				st = stateUnreconciled
			}
			for s := 0; s+frameWidth <= len(tokens); s++ {
				if aligned(tokens, s, opts.Tolerance) {
					start, st = s, stateAligned
					break
				}
			}
		case stateAligned:
			return buildFrame(tokens, start, system, models.FrameAligned)
		case stateForced:
			f := buildFrame(tokens, start, system, models.FrameForced)
			f.Cusps[1] = f.Angles.ASC
			f.Cusps[10] = f.Angles.MC
			return f
		case stateUnreconciled:
			return buildFrame(tokens, start, system, models.FrameUnreconciled)
		}
	}
}

func aligned(tokens []float64, start int, tol float64) bool {
	cusp1 := tokens[start]
	cusp10 := tokens[start+9]
	asc := tokens[start+cuspCount]
	mc := tokens[start+cuspCount+1]
	return geometry.Separation(asc, cusp1) <= tol && geometry.Separation(mc, cusp10) <= tol
}

func buildFrame(tokens []float64, start int, system string, status models.FrameStatus) *models.HouseFrame {
	round := func(v float64) float64 { return geometry.RoundLongitude(v, housePrecision) }
	cusps := make(map[int]float64, cuspCount)
	for i := 0; i < cuspCount; i++ {
		cusps[i+1] = round(tokens[start+i])
	}
	return &models.HouseFrame{
		System: system,
		Cusps:  cusps,
		Angles: models.Angles{
			ASC:    round(tokens[start+cuspCount]),
			MC:     round(tokens[start+cuspCount+1]),
			ARMC:   round(tokens[start+cuspCount+2]),
			Vertex: round(tokens[start+cuspCount+3]),
		},
		Status: status,
	}
}
