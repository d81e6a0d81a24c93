package models

// BodyPosition is one body's ecliptic position for a single instant.
// Longitude is always normalized into [0,360).
type BodyPosition struct {
	Name      string  `json:"name"`
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
	Distance  float64 `json:"distance"`
	Speed     float64 `json:"speed"` // degrees/day, negative when retrograde
}

// Retrograde reports whether the body's longitude is decreasing.
func (b BodyPosition) Retrograde() bool { return b.Speed < 0 }

// FrameStatus is the terminal state of house cusp/angle reconciliation.
type FrameStatus string

const (
	FrameAligned      FrameStatus = "aligned"
	FrameSearching    FrameStatus = "searching"
	FrameForced       FrameStatus = "forced"
	FrameUnreconciled FrameStatus = "unreconciled"
)

// Angles holds the chart angles reported alongside house cusps.
type Angles struct {
	ASC    float64 `json:"asc"`
	MC     float64 `json:"mc"`
	ARMC   float64 `json:"armc"`
	Vertex float64 `json:"vertex"`
}

// HouseFrame is a 12-cusp house division. Cusps are keyed 1..12 and may
// wrap through 0 between cusp 12 and cusp 1.
type HouseFrame struct {
	System string          `json:"system"`
	Cusps  map[int]float64 `json:"cusps"`
	Angles Angles          `json:"angles"`
	Status FrameStatus     `json:"status"`
}

// Reconciled reports whether downstream placement can trust the frame.
func (h HouseFrame) Reconciled() bool {
	return h.Status == FrameAligned || h.Status == FrameForced
}

// Placement is the house a body falls in; House is 0 when unknown.
type Placement struct {
	Body  string `json:"body"`
	House int    `json:"house"`
}
