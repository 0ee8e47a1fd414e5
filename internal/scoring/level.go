package scoring

import (
	"fmt"
	"math"
	"sort"
)

// Scale maps ability onto ordinal proficiency levels. Cuts must be strictly
// increasing; n cuts give levels 1..n+1.
type Scale struct {
	Cuts []float64 `yaml:"cuts"`
}

// DefaultScale returns the 10-level scale with half-logit steps from -2.5 to 1.5.
func DefaultScale() Scale {
	return Scale{Cuts: []float64{-2.5, -2, -1.5, -1, -0.5, 0, 0.5, 1, 1.5}}
}

// Validate checks that cuts are finite and strictly increasing.
func (s Scale) Validate() error {
	if len(s.Cuts) == 0 {
		return fmt.Errorf("scoring: scale needs at least one cut")
	}
	if len(s.Cuts) > math.MaxUint8-1 {
		return fmt.Errorf("scoring: too many cuts (%d)", len(s.Cuts))
	}
	for i, c := range s.Cuts {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return fmt.Errorf("scoring: cut %d is not finite", i)
		}
		if i > 0 && c <= s.Cuts[i-1] {
			return fmt.Errorf("scoring: cuts must be strictly increasing at index %d", i)
		}
	}
	return nil
}

// Levels returns the number of levels on the scale.
func (s Scale) Levels() int {
	return len(s.Cuts) + 1
}

// Level returns the level θ falls in. A θ equal to a cut belongs to the
// level above it. NaN maps to level 1.
func (s Scale) Level(theta float64) int {
	if math.IsNaN(theta) {
		return 1
	}
	// Number of cuts at or below theta.
	return sort.Search(len(s.Cuts), func(i int) bool { return s.Cuts[i] > theta }) + 1
}

// AbilityToLevel maps θ onto the default 10-level scale.
func AbilityToLevel(theta float64) uint8 {
	return uint8(DefaultScale().Level(theta))
}

var bands = []string{"Below Basic", "Basic", "Proficient", "Advanced", "Superior"}

// Band names the pair of levels a level belongs to on the 10-level scale:
// 1-2 Below Basic, 3-4 Basic, 5-6 Proficient, 7-8 Advanced, 9-10 Superior.
func Band(level int) string {
	i := (level - 1) / 2
	switch {
	case level < 1:
		i = 0
	case i >= len(bands):
		i = len(bands) - 1
	}
	return bands[i]
}
