package models

import "time"

// ChartRequest identifies a chart by moment, place and house system.
type ChartRequest struct {
	Instant     time.Time `json:"instant" validate:"required"`
	Latitude    float64   `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude   float64   `json:"longitude" validate:"gte=-180,lte=180"`
	HouseSystem string    `json:"house_system" default:"P" validate:"oneof=P K O R C E W B M"`
}

// Chart is the core output bundle handed to storage, rendering and
// interpretation layers. Aspects are sorted by delta, patterns by tier.
type Chart struct {
	Request    ChartRequest   `json:"request"`
	Positions  []BodyPosition `json:"positions"`
	Retrograde []string       `json:"retrograde,omitempty"`
	Houses     *HouseFrame    `json:"houses,omitempty"`
	Placements []Placement    `json:"placements,omitempty"`
	Aspects    []AspectMatch  `json:"aspects"`
	Patterns   []Pattern      `json:"patterns"`
	Summary    PatternSummary `json:"summary"`
	Warnings   []string       `json:"warnings,omitempty"`
	Cached     bool           `json:"cached"`
}

// Comparison is a chart-vs-chart (synastry or transit) aspect set.
type Comparison struct {
	Inner    ChartRequest   `json:"inner"`
	Outer    ChartRequest   `json:"outer"`
	Aspects  []AspectMatch  `json:"aspects"`
	Patterns []Pattern      `json:"patterns"`
	Summary  PatternSummary `json:"summary"`
}

// Ephemeris is what the cache stores per chart key.
type Ephemeris struct {
	Positions []BodyPosition `json:"positions"`
	Houses    *HouseFrame    `json:"houses,omitempty"`
}
