package metrics

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FairForge/loadverdict/internal/efficiency"
	"github.com/FairForge/loadverdict/internal/loadtest"
)

func testAnalysis() *loadtest.Analysis {
	thr := loadtest.Thresholds{ErrorPct: 1, P99Ms: 1000}
	stats := []loadtest.StepStats{
		{Index: 0, TargetRPS: 200, RealizedRPS: 199.5, P50: 10, P95: 20, P99: 40, Requests: 5985},
		{Index: 1, TargetRPS: 400, RealizedRPS: 320, P50: 30, P95: 900, P99: 1500, ErrorPct: 3, Requests: 9600},
	}
	return &loadtest.Analysis{
		Plan:       loadtest.DefaultStepPlan(),
		Thresholds: thr,
		Stats:      stats,
		Verdict:    loadtest.Detect(stats, thr),
	}
}

func TestObserveAnalysis(t *testing.T) {
	m := New()
	m.ObserveAnalysis("gin", testAnalysis(), &loadtest.BottleneckAnalysis{HealthScore: 70})

	t.Run("step gauges", func(t *testing.T) {
		assert.Equal(t, 40.0, testutil.ToFloat64(m.StepLatency.WithLabelValues("gin", "200", "0.99")))
		assert.Equal(t, 900.0, testutil.ToFloat64(m.StepLatency.WithLabelValues("gin", "400", "0.95")))
		assert.Equal(t, 3.0, testutil.ToFloat64(m.StepErrorPct.WithLabelValues("gin", "400")))
		assert.Equal(t, 9600.0, testutil.ToFloat64(m.StepRequests.WithLabelValues("gin", "400")))
		assert.Equal(t, 0.0, testutil.ToFloat64(m.StepSaturated.WithLabelValues("gin", "200")))
		assert.Equal(t, 1.0, testutil.ToFloat64(m.StepSaturated.WithLabelValues("gin", "400")))
	})

	t.Run("verdict gauges", func(t *testing.T) {
		assert.Equal(t, 200.0, testutil.ToFloat64(m.SustainableRPS.WithLabelValues("gin")))
		assert.Equal(t, 400.0, testutil.ToFloat64(m.SaturationRPS.WithLabelValues("gin")))
		assert.Equal(t, 70.0, testutil.ToFloat64(m.HealthScore.WithLabelValues("gin")))
	})

	t.Run("no sustainable step leaves gauge unset", func(t *testing.T) {
		a := testAnalysis()
		a.Stats = a.Stats[1:]
		a.Verdict = loadtest.Detect(a.Stats, a.Thresholds)

		fresh := New()
		fresh.ObserveAnalysis("echo", a, nil)
		assert.Equal(t, 0, testutil.CollectAndCount(fresh.SustainableRPS))
		assert.Equal(t, 1, testutil.CollectAndCount(fresh.SaturationRPS))
		assert.Equal(t, 0, testutil.CollectAndCount(fresh.HealthScore))
	})
}

func TestObserveEfficiency(t *testing.T) {
	variants := []efficiency.VariantMetrics{
		{Variant: "gin", RPSMedian: 1000, RPSPerWatt: 100, RPSPerUSD: 48000},
		{Variant: "express", RPSMedian: 400, RPSPerWatt: 160, RPSPerUSD: 9600},
	}
	rankings := efficiency.Rank(variants)
	r := &efficiency.Report{Variants: variants, Rankings: rankings, Diverges: rankings.Diverges()}

	m := New()
	m.ObserveEfficiency(r)

	assert.Equal(t, 1000.0, testutil.ToFloat64(m.VariantRPS.WithLabelValues("gin")))
	assert.Equal(t, 160.0, testutil.ToFloat64(m.VariantRPSPerWatt.WithLabelValues("express")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.VariantRank.WithLabelValues("express", "rps_per_watt")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.VariantRank.WithLabelValues("express", "rps")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RankingsDiverge))
}

func TestWriteTextfile(t *testing.T) {
	m := New()
	m.ObserveAnalysis("gin", testAnalysis(), nil)

	path := filepath.Join(t.TempDir(), "loadverdict.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `loadverdict_sustainable_rps{service="gin"} 200`)
	assert.Contains(t, string(data), "# TYPE loadverdict_step_error_percent gauge")

	err = m.WriteTextfile(filepath.Join(t.TempDir(), "missing", "x.prom"))
	assert.Error(t, err)
}
