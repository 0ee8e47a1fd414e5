package scoring

import "math"

const (
	readingThetaMin = -3.0
	readingThetaMax = 3.0

	LexileMin = 200
	LexileMax = 1700

	ARMin = 1.0
	ARMax = 12.0
)

// Lexile places θ on the Lexile reader scale by linear interpolation of
// [-3, 3] onto [200, 1700]. Values outside the range are clamped.
func Lexile(theta float64) int {
	if math.IsNaN(theta) {
		return LexileMin
	}
	v := interpolate(theta, LexileMin, LexileMax)
	// Truncate toward zero like an integer cast; v is always positive here.
	return int(v)
}

// ARLevel places θ on the Accelerated Reader book-level scale, 1.0 to 12.0,
// rounded to one decimal.
func ARLevel(theta float64) float64 {
	if math.IsNaN(theta) {
		return ARMin
	}
	v := interpolate(theta, ARMin, ARMax)
	return math.Round(v*10) / 10
}

func interpolate(theta, lo, hi float64) float64 {
	v := lo + (theta-readingThetaMin)/(readingThetaMax-readingThetaMin)*(hi-lo)
	return math.Max(lo, math.Min(hi, v))
}
