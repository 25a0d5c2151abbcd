package simulation

import (
	"math"
	"math/rand"
)

// Tri is a three-point triangular estimate over a non-negative quantity.
// Invariant: min <= mode <= max. A scalar is the degenerate case with all
// three points equal.
type Tri struct {
	Min  float64 `json:"min"`
	Mode float64 `json:"mode"`
	Max  float64 `json:"max"`
}

func Scalar(v float64) Tri {
	return Tri{Min: v, Mode: v, Max: v}
}

func (t Tri) Valid() bool {
	for _, v := range [3]float64{t.Min, t.Mode, t.Max} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return false
		}
	}
	return t.Min <= t.Mode && t.Mode <= t.Max
}

// Sample draws from the triangular distribution by inverse CDF. A degenerate
// Tri returns the constant.
func (t Tri) Sample(rng *rand.Rand) float64 {
	span := t.Max - t.Min
	if span == 0 {
		return t.Min
	}
	u := rng.Float64()
	cut := (t.Mode - t.Min) / span
	if u < cut {
		return t.Min + math.Sqrt(u*span*(t.Mode-t.Min))
	}
	return t.Max - math.Sqrt((1-u)*span*(t.Max-t.Mode))
}

func (t Tri) Mean() float64 {
	return (t.Min + t.Mode + t.Max) / 3.0
}
