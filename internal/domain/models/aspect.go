package models

// AspectDefinition is one row of the ordered aspect table.
type AspectDefinition struct {
	Name  string  `json:"name" yaml:"name"`
	Angle float64 `json:"angle" yaml:"angle"`
	Orb   float64 `json:"orb" yaml:"orb"`
}

// Aspect names used by the default table and the pattern templates.
const (
	Conjunction    = "conjunction"
	Opposition     = "opposition"
	Trine          = "trine"
	Square         = "square"
	Sextile        = "sextile"
	Quincunx       = "quincunx"
	Semisextile    = "semisextile"
	Semisquare     = "semisquare"
	Sesquiquadrate = "sesquiquadrate"
	Quintile       = "quintile"
	Biquintile     = "biquintile"
)

// AspectMatch is an immutable record of one matched aspect between two bodies.
type AspectMatch struct {
	BodyA       string  `json:"body_a"`
	BodyB       string  `json:"body_b"`
	Type        string  `json:"type"`
	TargetAngle float64 `json:"target_angle"`
	Delta       float64 `json:"delta"`
	OrbUsed     float64 `json:"orb_used"`
	WithinOrb   float64 `json:"within_orb"`
	Exact       bool    `json:"exact"`
	Strength    int     `json:"strength"`
	Applying    bool    `json:"applying"`
}
