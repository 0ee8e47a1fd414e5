package mst

import (
	"errors"
	"fmt"
	"math"
)

// Cuts splits the ability scale into three branches:
// θ < Lower, Lower ≤ θ < Upper, and θ ≥ Upper.
type Cuts struct {
	Lower float64 `yaml:"lower"`
	Upper float64 `yaml:"upper"`
}

// branch returns 0, 1 or 2. NaN goes to the lowest branch.
func (c Cuts) branch(theta float64) int {
	switch {
	case math.IsNaN(theta) || theta < c.Lower:
		return 0
	case theta < c.Upper:
		return 1
	default:
		return 2
	}
}

func (c Cuts) validate() error {
	if math.IsNaN(c.Lower) || math.IsNaN(c.Upper) {
		return errors.New("cut scores must not be NaN")
	}
	if c.Lower > c.Upper {
		return fmt.Errorf("lower cut %g above upper cut %g", c.Lower, c.Upper)
	}
	return nil
}

// Config holds stage lengths and routing cut scores.
type Config struct {
	// StageItems is the number of items administered in stages 1, 2 and 3.
	StageItems [3]int `yaml:"stage_items"`
	// TotalItems ends the test regardless of stage.
	TotalItems int `yaml:"total_items"`

	Stage2 Cuts           `yaml:"stage2"`
	Stage3 map[Panel]Cuts `yaml:"stage3"`
}

// DefaultConfig returns the 8/16/16 design with the standard cut scores.
func DefaultConfig() Config {
	return Config{
		StageItems: [3]int{8, 16, 16},
		TotalItems: 40,
		Stage2:     Cuts{Lower: -0.5, Upper: 0.5},
		Stage3: map[Panel]Cuts{
			PanelLow:    {Lower: -1.0, Upper: -0.5},
			PanelMedium: {Lower: -0.25, Upper: 0.25},
			PanelHigh:   {Lower: 0.5, Upper: 1.0},
		},
	}
}

// Validate checks stage lengths and that every stage-2 panel has cuts.
func (c Config) Validate() error {
	for i, n := range c.StageItems {
		if n <= 0 {
			return fmt.Errorf("mst: stage %d item count must be positive, got %d", i+1, n)
		}
	}
	if c.TotalItems <= 0 {
		return fmt.Errorf("mst: total_items must be positive, got %d", c.TotalItems)
	}
	if err := c.Stage2.validate(); err != nil {
		return fmt.Errorf("mst: stage2: %w", err)
	}
	for _, p := range stage2Panels {
		cuts, ok := c.Stage3[p]
		if !ok {
			return fmt.Errorf("mst: stage3: missing cuts for panel %s", p)
		}
		if err := cuts.validate(); err != nil {
			return fmt.Errorf("mst: stage3 %s: %w", p, err)
		}
	}
	for p := range c.Stage3 {
		if p.Stage() != 2 {
			return fmt.Errorf("mst: stage3: %q is not a stage-2 panel", p)
		}
	}
	return nil
}
