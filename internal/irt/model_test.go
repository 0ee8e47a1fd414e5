package irt

import (
	"math"
	"testing"
)

func TestProbability(t *testing.T) {
	tests := []struct {
		name  string
		theta float64
		p     ItemParameters
		want  float64
	}{
		{"at difficulty, no guessing", 0, ItemParameters{1, 0, 0}, 0.5},
		{"at difficulty, guessing", 1, ItemParameters{1.5, 1, 0.2}, 0.6},
		{"far above", 100, ItemParameters{1, 0, 0.25}, 0.25 + 0.75/(1+math.Exp(-20))},
		{"far below", -100, ItemParameters{1, 0, 0.25}, 0.25 + 0.75/(1+math.Exp(20))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Probability(tt.theta, tt.p)
			if !almostEqual(got, tt.want, epsilon) {
				t.Errorf("Probability = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestProbability_IncreasesWithTheta(t *testing.T) {
	p := ItemParameters{1.3, 0.2, 0.2}
	prev := Probability(-4, p)
	for theta := -3.9; theta <= 4; theta += 0.1 {
		cur := Probability(theta, p)
		if cur < prev {
			t.Fatalf("P(%f) = %f < P(prev) = %f", theta, cur, prev)
		}
		prev = cur
	}
}

func TestProbability_NaNTheta(t *testing.T) {
	got := Probability(math.NaN(), ItemParameters{1, 0, 0})
	if got != 0.5 {
		t.Errorf("Probability(NaN) = %f, want 0.5", got)
	}
}

func TestLikelihood_Clamped(t *testing.T) {
	// A guessing parameter of 0.99 with a correct answer still cannot reach 1.
	obs := []Observation{{Params: ItemParameters{10, -100, 0.99}, Correct: true}}
	if l := Likelihood(4, obs); l > 1-probabilityFloor {
		t.Errorf("Likelihood = %v, want <= 1-1e-10", l)
	}
	obs[0].Correct = false
	if l := Likelihood(4, obs); l < probabilityFloor/2 || l == 0 {
		t.Errorf("Likelihood = %v, want ~1e-10", l)
	}
}

func TestLikelihood_Empty(t *testing.T) {
	if l := Likelihood(0.7, nil); l != 1 {
		t.Errorf("Likelihood(nil) = %f, want 1", l)
	}
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		name string
		in   ItemParameters
		want ItemParameters
	}{
		{"valid", ItemParameters{1.2, -0.5, 0.25}, ItemParameters{1.2, -0.5, 0.25}},
		{"nan a", ItemParameters{math.NaN(), 0, 0}, ItemParameters{1, 0, 0}},
		{"negative a", ItemParameters{-2, 0, 0}, ItemParameters{minDiscrimination, 0, 0}},
		{"huge a", ItemParameters{math.Inf(1), 0, 0}, ItemParameters{maxDiscrimination, 0, 0}},
		{"inf b", ItemParameters{1, math.Inf(-1), 0}, ItemParameters{1, 0, 0}},
		{"c above 1", ItemParameters{1, 0, 1.5}, ItemParameters{1, 0, maxGuessing}},
		{"nan c", ItemParameters{1, 0, math.NaN()}, ItemParameters{1, 0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitize(tt.in); got != tt.want {
				t.Errorf("sanitize = %+v, want %+v", got, tt.want)
			}
		})
	}
}
