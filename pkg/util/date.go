package util

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

// layouts accepted by ParseTime, most specific first. Layouts without a
// zone are read in the location passed to ParseTimeIn.
var layouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseTime tries the RFC3339 family, zone-less date/time layouts (as UTC)
// and unix seconds. Returns (t, true) if any worked.
func ParseTime(s string) (time.Time, bool) {
	return ParseTimeIn(s, time.UTC)
}

// ParseTimeIn is ParseTime with zone-less layouts read in loc.
func ParseTimeIn(s string, loc *time.Location) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		return time.Unix(ts, 0).UTC(), true
	}
	return time.Time{}, false
}

// MaxSteps bounds the instants Steps will produce.
const MaxSteps = 10000

var ErrTooManySteps = errors.New("too many steps")

// Steps returns from, from+step, ... up to and including to. Ranges that
// would yield more than MaxSteps instants fail with ErrTooManySteps.
func Steps(from, to time.Time, step time.Duration) ([]time.Time, error) {
	if step <= 0 {
		return nil, fmt.Errorf("step must be positive, got %s", step)
	}
	if to.Before(from) {
		return nil, fmt.Errorf("range end %s before start %s", to.Format(time.RFC3339), from.Format(time.RFC3339))
	}
	n := int64(to.Sub(from)/step) + 1
	if n > MaxSteps {
		return nil, fmt.Errorf("%w: %d instants of %s, limit %d", ErrTooManySteps, n, step, MaxSteps)
	}
	out := make([]time.Time, 0, n)
	for t := from; !t.After(to); t = t.Add(step) {
		out = append(out, t)
	}
	return out, nil
}
