// Package geometry implements circular arithmetic on ecliptic longitudes.
package geometry

import (
	"math"

	"github.com/soniakeys/unit"
)

const snapEpsilon = 1e-9

// Normalize360 maps deg into [0,360). Values within 1e-9 of either end
// snap to exactly 0.
func Normalize360(deg float64) float64 {
	d := unit.PMod(deg, 360)
	if d < snapEpsilon || 360-d < snapEpsilon {
		return 0
	}
	return d
}

// Separation is the minimal angular distance between a and b, in [0,180].
func Separation(a, b float64) float64 {
	d := math.Abs(Normalize360(a) - Normalize360(b))
	if d > 180 {
		return 360 - d
	}
	return d
}

// InArc reports whether lon lies in the half-open circular interval
// [start, end). When end <= start the interval wraps through 0.
func InArc(lon, start, end float64) bool {
	lon = Normalize360(lon)
	start = Normalize360(start)
	end = Normalize360(end)
	if end <= start {
		end += 360
		if lon < start {
			lon += 360
		}
	}
	return lon >= start && lon < end
}

// Round rounds deg to the given number of decimal places.
func Round(deg float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(deg*p) / p
}

// RoundLongitude rounds to places and renormalizes, so 359.9996 at three
// places becomes 0 rather than 360.
func RoundLongitude(deg float64, places int) float64 {
	return Normalize360(Round(Normalize360(deg), places))
}
