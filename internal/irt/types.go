package irt

// ItemParameters holds the 3PL parameters of a single item.
type ItemParameters struct {
	// Discrimination (a) controls how sharply P(correct) rises with ability.
	Discrimination float64 `json:"a" yaml:"a"`
	// Difficulty (b) locates the item on the ability scale.
	Difficulty float64 `json:"b" yaml:"b"`
	// Guessing (c) is the lower asymptote of P(correct).
	Guessing float64 `json:"c" yaml:"c"`
}

// Observation is one scored response to an item.
type Observation struct {
	Params  ItemParameters
	Correct bool
}

// Estimate is a posterior ability estimate and its standard error.
type Estimate struct {
	Theta float64 `json:"theta"`
	SE    float64 `json:"standard_error"`
}

const (
	minDiscrimination = 0.01
	maxDiscrimination = 10.0
	maxGuessing       = 0.99
)

// sanitize clamps parameters into a range the model can evaluate.
// Bad values come from authoring mistakes; they are clamped, never rejected.
func sanitize(p ItemParameters) ItemParameters {
	switch {
	case isNaN(p.Discrimination):
		p.Discrimination = 1
	default:
		p.Discrimination = clamp(p.Discrimination, minDiscrimination, maxDiscrimination)
	}

	if isNaN(p.Difficulty) || isInf(p.Difficulty) {
		p.Difficulty = 0
	}

	if isNaN(p.Guessing) {
		p.Guessing = 0
	}
	p.Guessing = clamp(p.Guessing, 0, maxGuessing)

	return p
}
