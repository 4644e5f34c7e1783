package config

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ParamRange is an inclusive float range walked in Step increments
type ParamRange struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Step float64 `json:"step"`
}

// Single is a range holding exactly v
func Single(v float64) ParamRange {
	return ParamRange{Min: v, Max: v}
}

// Validate checks the range can be walked
func (r ParamRange) Validate(name string) error {
	if r.Max < r.Min {
		return fmt.Errorf("%s: max (%.4f) must be >= min (%.4f)", name, r.Max, r.Min)
	}
	if r.Max > r.Min && r.Step <= 0 {
		return fmt.Errorf("%s: step must be positive when max > min, got: %.4f", name, r.Step)
	}
	return nil
}

// Values lists every value of the range. Steps are added in decimal so a range like
// 0.1..0.3 step 0.1 yields exactly three values.
func (r ParamRange) Values() []float64 {
	if r.Max < r.Min {
		return nil
	}
	if r.Step <= 0 || r.Max == r.Min {
		return []float64{r.Min}
	}

	limit := decimal.NewFromFloat(r.Max)
	step := decimal.NewFromFloat(r.Step)
	var out []float64
	for v := decimal.NewFromFloat(r.Min); v.LessThanOrEqual(limit); v = v.Add(step) {
		out = append(out, v.InexactFloat64())
	}
	return out
}

// IntRange is an inclusive integer range
type IntRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Validate checks the range is ordered and non-negative
func (r IntRange) Validate(name string) error {
	if r.Min < 0 {
		return fmt.Errorf("%s: min must be non-negative, got: %d", name, r.Min)
	}
	if r.Max < r.Min {
		return fmt.Errorf("%s: max (%d) must be >= min (%d)", name, r.Max, r.Min)
	}
	return nil
}

// Values lists every value of the range
func (r IntRange) Values() []int {
	if r.Max < r.Min {
		return nil
	}
	out := make([]int, 0, r.Max-r.Min+1)
	for v := r.Min; v <= r.Max; v++ {
		out = append(out, v)
	}
	return out
}

// Len is the number of values in the range
func (r IntRange) Len() int {
	if r.Max < r.Min {
		return 0
	}
	return r.Max - r.Min + 1
}
