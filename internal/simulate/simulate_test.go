package simulate

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deepteaching86-gif/deepreading/internal/mst"
	"github.com/deepteaching86-gif/deepreading/internal/store"
)

func panelItems(stage int, panel mst.Panel, center float64, n int) []store.Item {
	items := make([]store.Item, n)
	for i := range n {
		items[i] = store.Item{
			ID:             fmt.Sprintf("%s-%02d", panel, i),
			Stage:          stage,
			Panel:          string(panel),
			FormID:         1,
			Discrimination: 1.3,
			Difficulty:     center - 1.5 + 3*float64(i)/float64(max(n-1, 1)),
			Guessing:       0.2,
		}
	}
	return items
}

func testPool() []store.Item {
	items := panelItems(1, mst.PanelRouting, 0, 16)
	centers := map[mst.Panel]float64{mst.PanelLow: -1, mst.PanelMedium: 0, mst.PanelHigh: 1}
	for _, p := range mst.Stage2Panels() {
		items = append(items, panelItems(2, p, centers[p], 24)...)
		for j, sub := range mst.Subtracks(p) {
			items = append(items, panelItems(3, sub, centers[p]+float64(j-1)*0.5, 24)...)
		}
	}
	return items
}

func TestOptions_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Options)
	}{
		{"no examinees", func(o *Options) { o.Examinees = 0 }},
		{"no workers", func(o *Options) { o.Concurrency = 0 }},
		{"negative sd", func(o *Options) { o.TrueSD = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			tt.mutate(&opts)
			assert.Error(t, opts.Validate())
		})
	}
	assert.NoError(t, DefaultOptions().Validate())
}

func TestRun_EmptyPool(t *testing.T) {
	_, err := Run(context.Background(), nil, DefaultOptions())
	assert.ErrorContains(t, err, "empty")
}

func TestRun_DeterministicWithOneWorker(t *testing.T) {
	opts := DefaultOptions()
	opts.Examinees = 50
	opts.Seed = 42

	a, err := Run(context.Background(), testPool(), opts)
	require.NoError(t, err)
	b, err := Run(context.Background(), testPool(), opts)
	require.NoError(t, err)

	if diff := cmp.Diff(a.Results, b.Results); diff != "" {
		t.Errorf("results differ between runs (-first +second):\n%s", diff)
	}
	assert.Equal(t, a.MaxExposureItem, b.MaxExposureItem)

	opts.Seed = 43
	c, err := Run(context.Background(), testPool(), opts)
	require.NoError(t, err)
	assert.NotEqual(t, a.Results[0].TrueTheta, c.Results[0].TrueTheta)
}

func TestRun_RecoversAbility(t *testing.T) {
	opts := DefaultOptions()
	opts.Examinees = 200
	opts.Concurrency = 4
	opts.Seed = 7

	r, err := Run(context.Background(), testPool(), opts)
	require.NoError(t, err)

	assert.Equal(t, 200, r.Examinees)
	assert.Zero(t, r.ExhaustedCount)
	assert.InDelta(t, 40, r.MeanItems, 1e-9)
	assert.Less(t, r.RMSE, 0.6)
	assert.InDelta(t, 0, r.Bias, 0.15)
	assert.Greater(t, r.MeanSE, 0.0)
	assert.Less(t, r.MeanSE, 0.6)
	assert.Greater(t, r.MaxExposureRate, 0.0)
	assert.LessOrEqual(t, r.MaxExposureRate, 1.0)

	total := 0
	for p, n := range r.PanelCounts {
		assert.Equal(t, 3, p.Stage(), "final panel %s should be a stage-3 subtrack", p)
		total += n
	}
	assert.Equal(t, 200, total)
}

func TestRun_PoolExhausted(t *testing.T) {
	opts := DefaultOptions()
	opts.Examinees = 5

	r, err := Run(context.Background(), panelItems(1, mst.PanelRouting, 0, 4), opts)
	require.NoError(t, err)
	assert.Equal(t, 5, r.ExhaustedCount)
	assert.InDelta(t, 4, r.MeanItems, 1e-9)
	assert.Equal(t, 5, r.PanelCounts[mst.PanelRouting])
	assert.InDelta(t, 1.0, r.MaxExposureRate, 1e-9, "every examinee sees every item")
}

func TestRun_FormFilter(t *testing.T) {
	pool := testPool()
	opts := DefaultOptions()
	opts.Examinees = 3
	opts.FormID = 2

	_, err := Run(context.Background(), pool, opts)
	assert.ErrorContains(t, err, "empty")
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, testPool(), DefaultOptions())
	assert.ErrorIs(t, err, context.Canceled)
}
