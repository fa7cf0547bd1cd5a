package domain

import (
	"fmt"
	"math"
)

// StreamCategory is the top-level classification of a process stream.
type StreamCategory string

const (
	CategoryFeed         StreamCategory = "feed"
	CategoryProduct      StreamCategory = "product"
	CategoryIntermediate StreamCategory = "intermediate"
)

// compositionTolerance is the allowed deviation of a mole-fraction sum from 1.0.
// Trace components below the extraction cutoff are dropped at the source, so a
// small deficit is expected.
const compositionTolerance = 0.05

// StreamRecord holds the extracted state of a single process stream.
// The extractor fills the physical fields; the classifier fills Category,
// SubCategory, Confidence and Reasoning. Once persisted the record is
// read-only.
type StreamRecord struct {
	Name        string             `json:"name" db:"name" validate:"required"`
	Temperature float64            `json:"temperature" db:"temperature"` // °C
	Pressure    float64            `json:"pressure" db:"pressure"`       // bar
	MassFlow    float64            `json:"mass_flow" db:"mass_flow"`     // kg/hr
	VolumeFlow  float64            `json:"volume_flow" db:"volume_flow"` // m3/hr
	MolarFlow   float64            `json:"molar_flow" db:"molar_flow"`   // kmol/hr
	Composition map[string]float64 `json:"composition,omitempty" db:"composition"`

	Category    StreamCategory `json:"category" db:"category"`
	SubCategory string         `json:"sub_category,omitempty" db:"sub_category"`
	Confidence  float64        `json:"confidence" db:"confidence" validate:"gte=0,lte=1"`
	Reasoning   []string       `json:"reasoning,omitempty" db:"-"`
}

// Validate checks the record invariants: confidence stays inside [0,1], the
// category is one of the three known values, and a non-empty composition sums
// to approximately one.
func (r *StreamRecord) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("stream record has no name")
	}
	if r.Confidence < 0 || r.Confidence > 1 {
		return fmt.Errorf("stream %s: confidence %.4f outside [0,1]", r.Name, r.Confidence)
	}
	switch r.Category {
	case CategoryFeed, CategoryProduct, CategoryIntermediate:
	default:
		return fmt.Errorf("stream %s: unknown category %q", r.Name, r.Category)
	}
	if len(r.Composition) > 0 {
		var sum float64
		for _, frac := range r.Composition {
			sum += frac
		}
		if math.Abs(sum-1.0) > compositionTolerance {
			return fmt.Errorf("stream %s: composition sums to %.4f", r.Name, sum)
		}
	}
	return nil
}

// DominantComponent returns the component with the highest mole fraction,
// or "" when no composition data is available.
func (r *StreamRecord) DominantComponent() (string, float64) {
	var name string
	var best float64
	for comp, frac := range r.Composition {
		if frac > best || (frac == best && comp < name) {
			name = comp
			best = frac
		}
	}
	return name, best
}
