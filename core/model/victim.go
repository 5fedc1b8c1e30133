package model

import (
	"fmt"
	"math"
	"time"
)

// InjuryLevel is the ordinal severity reported for a detected victim.
type InjuryLevel int

const (
	InjuryNone InjuryLevel = iota
	InjuryMinor
	InjurySevere
	InjuryUnconscious
)

// String returns a human-readable representation of the injury level.
func (l InjuryLevel) String() string {
	switch l {
	case InjuryNone:
		return "none"
	case InjuryMinor:
		return "minor"
	case InjurySevere:
		return "severe"
	case InjuryUnconscious:
		return "unconscious"
	default:
		return "unknown"
	}
}

// ParseInjuryLevel converts the wire representation used by the drone feed.
// Unknown values map to InjuryMinor rather than failing, since the upstream
// classifier occasionally emits labels outside the contract.
func ParseInjuryLevel(s string) InjuryLevel {
	switch s {
	case "none":
		return InjuryNone
	case "minor":
		return InjuryMinor
	case "severe":
		return InjurySevere
	case "unconscious":
		return InjuryUnconscious
	default:
		return InjuryMinor
	}
}

// VictimStatus is the lifecycle state of a victim record.
type VictimStatus int

const (
	VictimActive VictimStatus = iota
	VictimServed
	VictimExpired
)

func (s VictimStatus) String() string {
	switch s {
	case VictimActive:
		return "active"
	case VictimServed:
		return "served"
	case VictimExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// Position is a WGS84 coordinate pair in degrees.
type Position struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid reports whether the coordinates are finite and within range.
func (p Position) Valid() bool {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lon) || math.IsInf(p.Lat, 0) || math.IsInf(p.Lon, 0) {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180
}

// Victim is one live record in the victim registry. Exactly one record exists
// per physical victim; duplicate detections are merged by proximity.
type Victim struct {
	ID                 string       `json:"id"`
	Location           Position     `json:"location"`
	InjuryLevel        InjuryLevel  `json:"injury_level"`
	SurvivalLikelihood float64      `json:"survival_likelihood"` // supplied by the external estimator, fixed at creation
	DetectedAt         time.Time    `json:"detected_at"`
	PriorityScore      float64      `json:"priority_score"` // derived on every scoring pass, not authoritative
	Status             VictimStatus `json:"status"`
}

// Detection is a single observation event asserting a victim exists at a
// location with the given attributes.
type Detection struct {
	CandidateID        string      // optional upstream id, informational only
	Location           Position
	InjuryLevel        InjuryLevel
	SurvivalLikelihood float64
	DetectedAt         time.Time
}

// Validate checks the detection before it reaches the registry.
func (d Detection) Validate() error {
	if !d.Location.Valid() {
		return &ValidationError{Field: "location", Reason: fmt.Sprintf("invalid coordinates (%v, %v)", d.Location.Lat, d.Location.Lon)}
	}
	if math.IsNaN(d.SurvivalLikelihood) || d.SurvivalLikelihood < 0 || d.SurvivalLikelihood > 1 {
		return &ValidationError{Field: "survival_likelihood", Reason: fmt.Sprintf("must be in [0,1], got %v", d.SurvivalLikelihood)}
	}
	return nil
}

// ValidationError reports a malformed field on an ingested event. The event is
// dropped at the boundary; nothing downstream sees it.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}
