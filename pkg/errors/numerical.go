package errors

import (
	"fmt"
	"math"
)

// CheckFinite returns an EvaluationError naming the first value that is NaN
// or infinite.
func CheckFinite(operation string, values map[string]float64) error {
	for name, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return NewEvaluationError(fmt.Sprintf("%s: %s is not finite (%v)", operation, name, v), 0, 0, nil)
		}
	}
	return nil
}

// ClipValue clamps value to [min, max].
func ClipValue(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
