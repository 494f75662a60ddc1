package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FairForge/loadverdict/internal/common"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, int64(10), cfg.Saturation.Plan.Warmup)
	assert.Equal(t, 200, cfg.Saturation.Plan.StepRPS)
	assert.Equal(t, 1000.0, cfg.Saturation.Thresholds.P99Ms)
	assert.Equal(t, 0.0416, cfg.Efficiency.HourlyCostUSD)
	assert.False(t, cfg.Publish.Enabled())
}

func TestLoad(t *testing.T) {
	t.Run("empty path returns defaults", func(t *testing.T) {
		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, Default(), cfg)
	})

	t.Run("file overrides defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "loadverdict.yaml")
		yml := `
saturation:
  plan:
    step_duration_s: 60
    step_rps: 500
  thresholds:
    p99_ms: 250
reporting:
  charts: true
publish:
  bucket: bench-results
  prefix: nightly
log:
  format: json
`
		require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, int64(60), cfg.Saturation.Plan.StepDuration)
		assert.Equal(t, 500, cfg.Saturation.Plan.StepRPS)
		assert.Equal(t, 200, cfg.Saturation.Plan.StartRPS) // untouched default
		assert.Equal(t, 250.0, cfg.Saturation.Thresholds.P99Ms)
		assert.Equal(t, 1.0, cfg.Saturation.Thresholds.ErrorPct)
		assert.True(t, cfg.Reporting.Charts)
		assert.Equal(t, "bench-results", cfg.Publish.Bucket)
		assert.Equal(t, "json", cfg.Log.Format)
		assert.NoError(t, cfg.Validate())
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.True(t, errors.Is(err, common.ErrInputMissing))
	})

	t.Run("invalid yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("saturation: [1, 2"), 0o644))
		_, err := Load(path)
		assert.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"zero step duration", func(c *Config) { c.Saturation.Plan.StepDuration = 0 }, "saturation.plan"},
		{"zero p99", func(c *Config) { c.Saturation.Thresholds.P99Ms = 0 }, "saturation.thresholds"},
		{"delivery ratio above one", func(c *Config) { c.Saturation.Diagnosis.MinDeliveryRatio = 1.5 }, "min_delivery_ratio"},
		{"zero hourly cost", func(c *Config) { c.Efficiency.HourlyCostUSD = 0 }, "hourly_cost_usd"},
		{"negative baseline", func(c *Config) { c.Efficiency.BaselinePowerW = -1 }, "baseline_power_w"},
		{"no output dir", func(c *Config) { c.Output.Dir = "" }, "output.dir"},
		{"bad color", func(c *Config) { c.Reporting.Color = "sometimes" }, "reporting.color"},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"half credentials", func(c *Config) { c.Publish.Bucket = "b"; c.Publish.AccessKey = "k" }, "secret key"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("LOADVERDICT_LOG_LEVEL", "debug")
	t.Setenv("LOADVERDICT_P99_THRESHOLD", "750")
	t.Setenv("LOADVERDICT_ERR_THRESHOLD", "not-a-number")
	t.Setenv("LOADVERDICT_HOURLY_COST", "0.1")
	t.Setenv("LOADVERDICT_CHARTS", "true")
	t.Setenv("LOADVERDICT_S3_BUCKET", "env-bucket")

	cfg := Default()
	LoadFromEnv(cfg)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 750.0, cfg.Saturation.Thresholds.P99Ms)
	assert.Equal(t, 1.0, cfg.Saturation.Thresholds.ErrorPct) // unparseable, kept
	assert.Equal(t, 0.1, cfg.Efficiency.HourlyCostUSD)
	assert.True(t, cfg.Reporting.Charts)
	assert.Equal(t, "env-bucket", cfg.Publish.Bucket)
	assert.Equal(t, "", cfg.Publish.Prefix)
}

func TestGetEnvOrDefault(t *testing.T) {
	t.Setenv("LOADVERDICT_TEST_KEY", "set")
	assert.Equal(t, "set", GetEnvOrDefault("LOADVERDICT_TEST_KEY", "fallback"))
	assert.Equal(t, "fallback", GetEnvOrDefault("LOADVERDICT_TEST_UNSET", "fallback"))
}

func TestEfficiencyOptions(t *testing.T) {
	cfg := Default()
	cfg.Efficiency.BaselinePowerW = 4.5
	opts := cfg.EfficiencyOptions()
	assert.Equal(t, 4.5, opts.BaselinePowerW)
	assert.Equal(t, cfg.Efficiency.HourlyCostUSD, opts.HourlyCostUSD)
	assert.NoError(t, opts.Validate())
}
