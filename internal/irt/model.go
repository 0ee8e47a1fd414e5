package irt

import "math"

const (
	// exponentLimit bounds the logistic exponent so exp never overflows.
	exponentLimit = 20.0

	// probabilityFloor keeps every likelihood factor away from exactly 0 or 1.
	probabilityFloor = 1e-10
)

// Probability returns the 3PL probability of a correct response:
//
//	P(θ) = c + (1-c) / (1 + exp(-a(θ-b)))
func Probability(theta float64, p ItemParameters) float64 {
	p = sanitize(p)
	return p.Guessing + (1-p.Guessing)*logistic(theta, p)
}

// logistic returns the 2PL part of the curve, 1/(1+exp(-a(θ-b))).
// p must already be sanitized.
func logistic(theta float64, p ItemParameters) float64 {
	exponent := -p.Discrimination * (theta - p.Difficulty)
	if isNaN(exponent) {
		exponent = 0
	}
	exponent = clamp(exponent, -exponentLimit, exponentLimit)
	return 1 / (1 + math.Exp(exponent))
}

// Likelihood returns L(θ) for a response pattern: the product of P(θ) for
// correct responses and 1-P(θ) for incorrect ones.
func Likelihood(theta float64, obs []Observation) float64 {
	l := 1.0
	for _, o := range obs {
		prob := clamp(Probability(theta, o.Params), probabilityFloor, 1-probabilityFloor)
		if o.Correct {
			l *= prob
		} else {
			l *= 1 - prob
		}
	}
	return l
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func isNaN(v float64) bool { return math.IsNaN(v) }

func isInf(v float64) bool { return math.IsInf(v, 0) }
