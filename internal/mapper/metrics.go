package mapper

import "math"

// Epsilon is the magnitude below which a divisor counts as zero.
const Epsilon = 1e-6

// OrderedTotal adds the N and E ordered hours. A missing operand counts as 0
// unless both are missing.
func OrderedTotal(n, e *float64) *float64 {
	if n == nil && e == nil {
		return nil
	}
	v := deref(n) + deref(e)
	return &v
}

// TheoreticalHours is the ordered total scaled by weekly progress.
func TheoreticalHours(orderedTotal, progressW *float64) *float64 {
	if orderedTotal == nil || progressW == nil {
		return nil
	}
	v := *orderedTotal * (*progressW / 100)
	return &v
}

// DeviationHours is real minus theoretical hours.
func DeviationHours(realHours, theoretical *float64) *float64 {
	return Sub(realHours, theoretical)
}

// DeviationPct expresses deviation hours as a percentage of theoretical hours.
func DeviationPct(deviation, theoretical *float64) *float64 {
	return Ratio(deviation, theoretical, 100)
}

// Sub returns a - b, or nil when either side is missing.
func Sub(a, b *float64) *float64 {
	if a == nil || b == nil {
		return nil
	}
	v := *a - *b
	return &v
}

// Ratio returns a / b * scale, or nil when either side is missing or b is
// within Epsilon of zero.
func Ratio(a, b *float64, scale float64) *float64 {
	if a == nil || b == nil || math.Abs(*b) < Epsilon {
		return nil
	}
	v := *a / *b * scale
	return &v
}

func deref(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}
