// Package simulate runs Monte-Carlo examinees through the multistage test
// to check ability recovery and item exposure for an item bank.
package simulate

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/deepteaching86-gif/deepreading/internal/irt"
	"github.com/deepteaching86-gif/deepreading/internal/mst"
	"github.com/deepteaching86-gif/deepreading/internal/scoring"
	"github.com/deepteaching86-gif/deepreading/internal/selection"
	"github.com/deepteaching86-gif/deepreading/internal/store"
)

// Options configures a simulation run.
type Options struct {
	Examinees   int     `yaml:"examinees"`
	Seed        uint64  `yaml:"seed"`
	Concurrency int     `yaml:"concurrency"`
	FormID      int     `yaml:"form_id"` // 0 = all forms
	TrueMean    float64 `yaml:"true_theta_mean"`
	TrueSD      float64 `yaml:"true_theta_sd"`

	Selection selection.Config `yaml:"-"`
	Estimator irt.Config       `yaml:"-"`
	MST       mst.Config       `yaml:"-"`
	Scale     scoring.Scale    `yaml:"-"`
}

// DefaultOptions simulates 1000 examinees from a standard normal on one worker.
func DefaultOptions() Options {
	return Options{
		Examinees:   1000,
		Seed:        1,
		Concurrency: 1,
		TrueMean:    0,
		TrueSD:      1,
		Selection:   selection.DefaultConfig(),
		Estimator:   irt.DefaultConfig(),
		MST:         mst.DefaultConfig(),
		Scale:       scoring.DefaultScale(),
	}
}

// Validate checks the run parameters.
func (o Options) Validate() error {
	if o.Examinees < 1 {
		return fmt.Errorf("simulate: examinees must be positive, got %d", o.Examinees)
	}
	if o.Concurrency < 1 {
		return fmt.Errorf("simulate: concurrency must be positive, got %d", o.Concurrency)
	}
	if math.IsNaN(o.TrueMean) || math.IsInf(o.TrueMean, 0) || !(o.TrueSD >= 0) || math.IsInf(o.TrueSD, 0) {
		return errors.New("simulate: true theta distribution must be finite with sd >= 0")
	}
	return nil
}

// ExamineeResult is the outcome for one simulated examinee.
type ExamineeResult struct {
	TrueTheta  float64
	Estimate   irt.Estimate
	FinalPanel mst.Panel
	Level      int
	Items      int
	Exhausted  bool
}

// Report summarizes a run.
type Report struct {
	Examinees int     `json:"examinees"`
	Bias      float64 `json:"bias"`
	RMSE      float64 `json:"rmse"`
	MeanSE    float64 `json:"mean_se"`
	MeanItems float64 `json:"mean_items"`

	PanelCounts map[mst.Panel]int `json:"panel_counts"`
	LevelCounts map[int]int       `json:"level_counts"`

	MaxExposureItem string  `json:"max_exposure_item"`
	MaxExposureRate float64 `json:"max_exposure_rate"`
	UnusedItems     int     `json:"unused_items"`
	ExhaustedCount  int     `json:"exhausted_count"`

	Results []ExamineeResult `json:"-"`
}

// bank indexes the pool by stage and panel with shared exposure counters.
type bank struct {
	items    []store.Item
	byPanel  map[panelKey][]int
	exposure []atomic.Int64
}

type panelKey struct {
	stage int
	panel mst.Panel
}

func newBank(pool []store.Item, formID int) *bank {
	b := &bank{byPanel: make(map[panelKey][]int)}
	for _, it := range pool {
		if it.Status != "" && it.Status != store.ItemStatusActive {
			continue
		}
		if formID > 0 && it.FormID != formID {
			continue
		}
		k := panelKey{it.Stage, mst.Panel(it.Panel)}
		b.byPanel[k] = append(b.byPanel[k], len(b.items))
		b.items = append(b.items, it)
	}
	b.exposure = make([]atomic.Int64, len(b.items))
	for i, it := range b.items {
		b.exposure[i].Store(int64(it.ExposureCount))
	}
	return b
}

// Run simulates opts.Examinees examinees over pool. Each examinee draws
// from its own random stream derived from the seed and its index, so a
// run is reproducible when Concurrency is 1. With more workers the shared
// exposure counters make selection depend on scheduling.
func Run(ctx context.Context, pool []store.Item, opts Options) (*Report, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if len(opts.Scale.Cuts) == 0 {
		opts.Scale = scoring.DefaultScale()
	}
	est, err := irt.NewEstimator(opts.Estimator)
	if err != nil {
		return nil, err
	}
	router, err := mst.NewRouter(opts.MST)
	if err != nil {
		return nil, err
	}

	b := newBank(pool, opts.FormID)
	if len(b.items) == 0 {
		return nil, errors.New("simulate: item pool is empty")
	}

	results := make([]ExamineeResult, opts.Examinees)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)

	for i := range opts.Examinees {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rng := rand.New(rand.NewPCG(opts.Seed, uint64(i)))
			results[i] = simulateOne(rng, b, est, router, opts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("simulate: %w", err)
	}

	return summarize(results, b, opts.Examinees), nil
}

func simulateOne(rng *rand.Rand, b *bank, est *irt.Estimator, router *mst.Router, opts Options) ExamineeResult {
	trueTheta := opts.TrueMean + opts.TrueSD*rng.NormFloat64()
	sel := selection.NewSelector(opts.Selection, rng)

	state := mst.NewState()
	estimate := irt.Estimate{Theta: opts.Estimator.PriorMean, SE: opts.Estimator.PriorSD}
	answered := make(map[int]bool)
	var obs []irt.Observation
	res := ExamineeResult{TrueTheta: trueTheta}

	for !state.Completed {
		idx := b.byPanel[panelKey{state.Stage, state.Panel}]
		cands := make([]selection.Candidate, 0, len(idx))
		for _, j := range idx {
			if answered[j] {
				continue
			}
			cands = append(cands, selection.Candidate{
				ID:            b.items[j].ID,
				Params:        b.items[j].Params(),
				ExposureCount: int(b.exposure[j].Load()),
			})
		}

		picked, ok := sel.Select(estimate.Theta, cands)
		if !ok {
			res.Exhausted = true
			break
		}
		j := indexOf(b, idx, picked.ID)
		answered[j] = true
		b.exposure[j].Add(1)

		correct := rng.Float64() < irt.Probability(trueTheta, picked.Params)
		obs = append(obs, irt.Observation{Params: picked.Params, Correct: correct})
		estimate = est.Estimate(obs)
		state, _ = router.Advance(state, estimate.Theta)
	}

	res.Estimate = estimate
	res.FinalPanel = state.Panel
	res.Items = len(obs)
	res.Level = opts.Scale.Level(estimate.Theta)
	return res
}

func indexOf(b *bank, idx []int, id string) int {
	for _, j := range idx {
		if b.items[j].ID == id {
			return j
		}
	}
	return -1
}

func summarize(results []ExamineeResult, b *bank, n int) *Report {
	r := &Report{
		Examinees:   n,
		PanelCounts: make(map[mst.Panel]int),
		LevelCounts: make(map[int]int),
		Results:     results,
	}

	var sumErr, sumSq, sumSE, sumItems float64
	for _, res := range results {
		d := res.Estimate.Theta - res.TrueTheta
		sumErr += d
		sumSq += d * d
		sumSE += res.Estimate.SE
		sumItems += float64(res.Items)
		r.PanelCounts[res.FinalPanel]++
		r.LevelCounts[res.Level]++
		if res.Exhausted {
			r.ExhaustedCount++
		}
	}
	fn := float64(n)
	r.Bias = sumErr / fn
	r.RMSE = math.Sqrt(sumSq / fn)
	r.MeanSE = sumSE / fn
	r.MeanItems = sumItems / fn

	type exposure struct {
		id    string
		count int64
	}
	exp := make([]exposure, len(b.items))
	for i := range b.items {
		exp[i] = exposure{b.items[i].ID, b.exposure[i].Load() - int64(b.items[i].ExposureCount)}
		if exp[i].count == 0 {
			r.UnusedItems++
		}
	}
	sort.SliceStable(exp, func(i, j int) bool { return exp[i].count > exp[j].count })
	if len(exp) > 0 {
		r.MaxExposureItem = exp[0].id
		r.MaxExposureRate = float64(exp[0].count) / fn
	}
	return r
}
