package irt

// Information returns the Fisher information an item carries at θ.
//
//	P'(θ) = a(1-c) · L(1-L),  L = 1/(1+exp(-a(θ-b)))
//	I(θ)  = P'(θ)² / (P(θ)(1-P(θ)))
//
// P is clamped to [c+1e-10, 1-1e-10] so the denominator never reaches zero.
func Information(theta float64, p ItemParameters) float64 {
	p = sanitize(p)

	l := logistic(theta, p)
	prob := p.Guessing + (1-p.Guessing)*l
	prob = clamp(prob, p.Guessing+probabilityFloor, 1-probabilityFloor)

	deriv := p.Discrimination * (1 - p.Guessing) * l * (1 - l)
	info := deriv * deriv / (prob * (1 - prob))
	if isNaN(info) || isInf(info) {
		return 0
	}
	return info
}

// TestInformation sums item information at θ.
func TestInformation(theta float64, params []ItemParameters) float64 {
	total := 0.0
	for _, p := range params {
		total += Information(theta, p)
	}
	return total
}
