package stats

import (
	"golang.org/x/exp/constraints"
)

// POf returns the percent-th percentile of an already sorted slice.
func POf[E constraints.Ordered](t []E, percent float64) E {
	idx := int(float64(len(t))*percent+0.5) - 1
	if idx < 0 {
		idx = 0
	}
	return t[idx]
}
