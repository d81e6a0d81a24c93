package ephemeris

import (
	"fmt"
	"time"

	"github.com/soniakeys/meeus/v3/julian"
)

// julianDay formats instant as a UT Julian day for the -bj switch.
func julianDay(instant time.Time) string {
	return fmt.Sprintf("-bj%.8f", julian.TimeToJD(instant.UTC()))
}

func (g *Gateway) common(instant time.Time) []string {
	args := []string{julianDay(instant), "-ut", "-g,", "-head"}
	if g.cfg.EphePath != "" {
		args = append(args, "-edir"+g.cfg.EphePath)
	}
	return args
}

func (g *Gateway) positionArgs(instant time.Time) []string {
	return append(g.common(instant), "-p"+g.cfg.Bodies, "-fPlbrs")
}

// houseArgs asks for the Sun only; the house rows follow it and the
// reconciliation window skips the leading planet row.
func (g *Gateway) houseArgs(instant time.Time, lat, lon float64, system string) []string {
	return append(g.common(instant),
		fmt.Sprintf("-house%.6f,%.6f,%s", lon, lat, system),
		"-p0", "-fPl")
}
