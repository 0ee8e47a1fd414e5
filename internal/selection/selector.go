package selection

import (
	"sort"

	"github.com/deepteaching86-gif/deepreading/internal/irt"
)

// Candidate is an item eligible for administration.
type Candidate struct {
	ID            string
	Params        irt.ItemParameters
	ExposureCount int
}

// Scored pairs a candidate with its information at the current θ.
type Scored struct {
	Candidate
	Information float64
}

// Config holds exposure-control settings.
type Config struct {
	ExposureControl bool `yaml:"exposure_control"`
	TopK            int  `yaml:"top_k"`
}

// DefaultConfig enables randomesque selection over the top 5 items.
func DefaultConfig() Config {
	return Config{ExposureControl: true, TopK: 5}
}

// ExposureWeight is the selection weight of an item administered count times.
// A never-exposed item gets the largest weight, 1.
func ExposureWeight(count int) float64 {
	if count < 0 {
		count = 0
	}
	return 1 / float64(count+1)
}

// Rank scores candidates at θ and orders them by information, highest
// first. Ties keep input order. The input slice is not modified.
func Rank(theta float64, candidates []Candidate) []Scored {
	scored := make([]Scored, len(candidates))
	for i, c := range candidates {
		scored[i] = Scored{Candidate: c, Information: irt.Information(theta, c.Params)}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Information > scored[j].Information
	})
	return scored
}

// Selector picks the next item using maximum information with optional
// randomesque exposure control.
type Selector struct {
	cfg Config
	src RandomSource
}

// NewSelector creates a Selector. A nil src disables the random draw.
func NewSelector(cfg Config, src RandomSource) *Selector {
	return &Selector{cfg: cfg, src: src}
}

// Select returns the chosen candidate, or false when candidates is empty.
func (s *Selector) Select(theta float64, candidates []Candidate) (Candidate, bool) {
	if len(candidates) == 0 {
		return Candidate{}, false
	}

	ranked := Rank(theta, candidates)
	if !s.cfg.ExposureControl || s.cfg.TopK <= 1 || s.src == nil {
		return ranked[0].Candidate, true
	}

	top := ranked[:min(s.cfg.TopK, len(ranked))]
	weights := make([]float64, len(top))
	for i, c := range top {
		weights[i] = ExposureWeight(c.ExposureCount)
	}
	return top[Draw(s.src, weights)].Candidate, true
}

// SelectNextItem returns the ID of the next item to administer, or false
// when no item is available.
func SelectNextItem(theta float64, candidates []Candidate, exposureControl bool, topK int, src RandomSource) (string, bool) {
	c, ok := NewSelector(Config{ExposureControl: exposureControl, TopK: topK}, src).Select(theta, candidates)
	if !ok {
		return "", false
	}
	return c.ID, true
}
