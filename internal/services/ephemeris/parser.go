package ephemeris

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"ChartCore/internal/domain/models"
	"ChartCore/internal/services/geometry"
)

const (
	StagePositions = "positions"
	StageHouses    = "houses"

	minPositionFields = 4
	housePrecision    = 3
)

// lines starting with these are tool banners, not data rows
var headerPrefixes = []string{"date", "ut:", "tt:", "et:", "epsilon", "nutation", "geo.", "warning"}

// fields splits a row on commas when present, otherwise on whitespace.
func fields(line string) []string {
	var parts []string
	if strings.Contains(line, ",") {
		parts = strings.Split(line, ",")
	} else {
		parts = strings.Fields(line)
	}
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// number parses a finite decimal field.
func number(f string) (float64, bool) {
	v, err := strconv.ParseFloat(f, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func isHeader(line string) bool {
	l := strings.ToLower(strings.TrimSpace(line))
	for _, p := range headerPrefixes {
		if strings.HasPrefix(l, p) {
			return true
		}
	}
	return false
}

// ParsePositions converts position rows into bodies. A row is kept when it
// has at least four numeric fields, read as longitude, latitude, distance
// and speed; the leading non-numeric fields form the body name.
func ParsePositions(raw string) ([]models.BodyPosition, error) {
	var out []models.BodyPosition
	for _, line := range strings.Split(raw, "\n") {
		if strings.TrimSpace(line) == "" || isHeader(line) {
			continue
		}
		var name []string
		var nums []float64
		for _, f := range fields(line) {
			v, ok := number(f)
			if !ok {
				if len(nums) == 0 {
					name = append(name, f)
				}
				continue
			}
			nums = append(nums, v)
		}
		if len(nums) < minPositionFields {
			continue
		}
		n := strings.Join(name, " ")
		if n == "" {
			n = fmt.Sprintf("body%d", len(out)+1)
		}
		out = append(out, models.BodyPosition{
			Name:      n,
			Longitude: geometry.Normalize360(nums[0]),
			Latitude:  nums[1],
			Distance:  nums[2],
			Speed:     nums[3],
		})
	}
	if len(out) == 0 {
		return nil, newError(KindParse, StagePositions, raw, errors.New("no position rows"))
	}
	return out, nil
}

// NumericTokens returns every numeric field of raw in emission order,
// normalized into [0,360).
func NumericTokens(raw string) []float64 {
	var out []float64
	for _, line := range strings.Split(raw, "\n") {
		for _, f := range fields(line) {
			if v, ok := number(f); ok {
				out = append(out, geometry.Normalize360(v))
			}
		}
	}
	return out
}

// ParseHouses extracts a house frame from raw house output. See Reconcile
// for the cusp/angle alignment procedure.
func ParseHouses(raw, system string, opts ReconcileOptions) (*models.HouseFrame, error) {
	tokens := NumericTokens(raw)
	if len(tokens) < frameWidth {
		return nil, newError(KindParse, StageHouses, raw,
			fmt.Errorf("need %d numeric values, got %d", frameWidth, len(tokens)))
	}
	return Reconcile(tokens, system, opts), nil
}
