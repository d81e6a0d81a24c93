package models

// Significance is the weight tier of a detected pattern.
type Significance string

const (
	SignificanceMajor    Significance = "major"
	SignificanceModerate Significance = "moderate"
	SignificanceMinor    Significance = "minor"
)

// Rank orders tiers, major first.
func (s Significance) Rank() int {
	switch s {
	case SignificanceMajor:
		return 0
	case SignificanceModerate:
		return 1
	default:
		return 2
	}
}

// Pattern type names.
const (
	GrandTrine      = "grand_trine"
	TSquare         = "t_square"
	Yod             = "yod"
	GrandCross      = "grand_cross"
	Kite            = "kite"
	MysticRectangle = "mystic_rectangle"
	Cradle          = "cradle"
	Boomerang       = "boomerang"
)

// Pattern is a named multi-body configuration mined from an aspect set.
type Pattern struct {
	Type              string            `json:"type"`
	Planets           []string          `json:"planets"`
	Roles             map[string]string `json:"roles,omitempty"`
	Significance      Significance      `json:"significance"`
	SupportingAspects []AspectMatch     `json:"supporting_aspects"`
	AverageOrb        float64           `json:"average_orb"`
	Keywords          []string          `json:"keywords,omitempty"`
}

// TypeCount is the number of detections of one pattern type.
type TypeCount struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

// PatternSummary aggregates a detector run for narrative layers.
type PatternSummary struct {
	Total       int         `json:"total"`
	Counts      []TypeCount `json:"counts"`
	TopKeywords []string    `json:"top_keywords"`
}
