package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deepteaching86-gif/deepreading/internal/mst"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "deepreading.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 41, cfg.Estimator.QuadraturePoints)
	assert.Equal(t, 40, cfg.MST.TotalItems)
	assert.Equal(t, 5, cfg.Selection.TopK)
	assert.Len(t, cfg.Scale.Cuts, 9)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
database: /tmp/dr.db
estimator:
  quadrature_points: 61
selection:
  exposure_control: false
mst:
  stage_items: [6, 12, 12]
  total_items: 30
  stage3:
    high:
      lower: 0.75
      upper: 1.25
session:
  form_count: 3
llm:
  provider: mock
  timeout: 10s
logging:
  level: info
  format: console
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/dr.db", cfg.Database)
	assert.Equal(t, 61, cfg.Estimator.QuadraturePoints)
	assert.Equal(t, 1.0, cfg.Estimator.PriorSD, "unset fields keep defaults")
	assert.False(t, cfg.Selection.ExposureControl)
	assert.Equal(t, [3]int{6, 12, 12}, cfg.MST.StageItems)
	assert.Equal(t, 30, cfg.MST.TotalItems)
	assert.Equal(t, mst.Cuts{Lower: 0.75, Upper: 1.25}, cfg.MST.Stage3[mst.PanelHigh])
	assert.Equal(t, mst.Cuts{Lower: -1, Upper: -0.5}, cfg.MST.Stage3[mst.PanelLow])
	assert.Equal(t, 3, cfg.Session.FormCount)
	assert.Equal(t, "mock", cfg.LLM.Provider)
	assert.Equal(t, 10*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, "console", cfg.Logging.Format)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "database: /tmp/file.db\n")
	t.Setenv("DEEPREADING_DB", "postgres://localhost/dr")
	t.Setenv("DEEPREADING_SEED", "99")
	t.Setenv("DEEPREADING_LLM_PROVIDER", "gemini")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres://localhost/dr", cfg.Database)
	assert.Equal(t, uint64(99), cfg.Seed)
	assert.Equal(t, "gemini", cfg.LLM.Provider)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad prior", "estimator:\n  prior_sd: 0\n"},
		{"bad stage items", "mst:\n  stage_items: [0, 16, 16]\n"},
		{"bad form count", "session:\n  form_count: 0\n"},
		{"bad log level", "logging:\n  level: chatty\n"},
		{"not yaml", "estimator: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
