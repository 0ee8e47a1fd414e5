package irt

import (
	"fmt"
	"math"
)

// posteriorFloor is the posterior mass below which EAP falls back to the prior.
const posteriorFloor = 1e-100

// Config controls the prior and the quadrature grid used for EAP.
type Config struct {
	PriorMean        float64 `yaml:"prior_mean"`
	PriorSD          float64 `yaml:"prior_sd"`
	ThetaMin         float64 `yaml:"theta_min"`
	ThetaMax         float64 `yaml:"theta_max"`
	QuadraturePoints int     `yaml:"quadrature_points"`
}

// DefaultConfig returns a standard normal prior over a 41-point grid on [-4, 4].
func DefaultConfig() Config {
	return Config{
		PriorMean:        0,
		PriorSD:          1,
		ThetaMin:         -4,
		ThetaMax:         4,
		QuadraturePoints: 41,
	}
}

// Validate reports configuration values the estimator cannot work with.
func (c Config) Validate() error {
	for name, v := range map[string]float64{
		"prior_mean": c.PriorMean,
		"prior_sd":   c.PriorSD,
		"theta_min":  c.ThetaMin,
		"theta_max":  c.ThetaMax,
	} {
		if isNaN(v) || isInf(v) {
			return fmt.Errorf("irt: %s must be finite", name)
		}
	}
	if c.PriorSD <= 0 {
		return fmt.Errorf("irt: prior_sd must be positive, got %g", c.PriorSD)
	}
	if c.ThetaMin >= c.ThetaMax {
		return fmt.Errorf("irt: theta_min (%g) must be below theta_max (%g)", c.ThetaMin, c.ThetaMax)
	}
	if c.QuadraturePoints < 2 {
		return fmt.Errorf("irt: quadrature_points must be at least 2, got %d", c.QuadraturePoints)
	}
	return nil
}

// Estimator computes EAP ability estimates on a fixed quadrature grid.
// It holds no mutable state after construction and is safe for concurrent use.
type Estimator struct {
	cfg     Config
	points  []float64
	weights []float64
}

// NewEstimator precomputes the quadrature grid for cfg.
func NewEstimator(cfg Config) (*Estimator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	n := cfg.QuadraturePoints
	step := (cfg.ThetaMax - cfg.ThetaMin) / float64(n-1)

	mid := (cfg.ThetaMin + cfg.ThetaMax) / 2
	center := float64(n-1) / 2

	// Points are laid out from the midpoint so the grid is exactly symmetric.
	points := make([]float64, n)
	weights := make([]float64, n)
	for i := range n {
		points[i] = mid + (float64(i)-center)*step
		weights[i] = step
	}
	points[0], points[n-1] = cfg.ThetaMin, cfg.ThetaMax
	// Trapezoid rule: endpoints carry half weight.
	weights[0] *= 0.5
	weights[n-1] *= 0.5

	return &Estimator{cfg: cfg, points: points, weights: weights}, nil
}

// defaultEstimator backs the package-level EstimateAbility.
var defaultEstimator = mustEstimator(DefaultConfig())

func mustEstimator(cfg Config) *Estimator {
	e, err := NewEstimator(cfg)
	if err != nil {
		panic(err)
	}
	return e
}

// EstimateAbility returns the EAP estimate for obs under a Normal(priorMean,
// priorSD) prior on the default grid.
func EstimateAbility(obs []Observation, priorMean, priorSD float64) Estimate {
	return defaultEstimator.EstimateWithPrior(obs, priorMean, priorSD)
}

// Config returns the estimator's configuration.
func (e *Estimator) Config() Config {
	return e.cfg
}

// Grid returns a copy of the quadrature points.
func (e *Estimator) Grid() []float64 {
	out := make([]float64, len(e.points))
	copy(out, e.points)
	return out
}

// Estimate returns the EAP estimate under the configured prior.
func (e *Estimator) Estimate(obs []Observation) Estimate {
	return e.EstimateWithPrior(obs, e.cfg.PriorMean, e.cfg.PriorSD)
}

// EstimateWithPrior returns the EAP estimate under a Normal(mean, sd) prior.
// Invalid prior arguments are replaced by the configured prior. When the
// posterior mass underflows, the prior mean and SD are returned.
func (e *Estimator) EstimateWithPrior(obs []Observation, mean, sd float64) Estimate {
	if isNaN(mean) || isInf(mean) {
		mean = e.cfg.PriorMean
	}
	if isNaN(sd) || isInf(sd) || sd <= 0 {
		sd = e.cfg.PriorSD
	}

	posterior := make([]float64, len(e.points))
	mass := 0.0
	for i, theta := range e.points {
		posterior[i] = Likelihood(theta, obs) * normalPDF(theta, mean, sd) * e.weights[i]
		mass += posterior[i]
	}

	if mass < posteriorFloor || isNaN(mass) || isInf(mass) {
		return Estimate{Theta: mean, SE: sd}
	}

	theta := symmetricSum(e.points, posterior) / mass

	variance := 0.0
	for i, t := range e.points {
		d := t - theta
		variance += d * d * posterior[i]
	}
	variance /= mass
	if variance < 0 {
		variance = 0
	}

	return Estimate{
		Theta: clamp(theta, e.cfg.ThetaMin, e.cfg.ThetaMax),
		SE:    math.Sqrt(variance),
	}
}

// symmetricSum returns Σ x[i]·w[i], adding mirrored grid points pairwise
// from the outside in so a symmetric posterior sums to exactly zero.
func symmetricSum(x, w []float64) float64 {
	total := 0.0
	for i, j := 0, len(x)-1; i <= j; i, j = i+1, j-1 {
		if i == j {
			total += x[i] * w[i]
			break
		}
		total += x[i]*w[i] + x[j]*w[j]
	}
	return total
}

func normalPDF(x, mean, sd float64) float64 {
	z := (x - mean) / sd
	return math.Exp(-0.5*z*z) / (sd * math.Sqrt(2*math.Pi))
}
