// internal/metrics/verdict.go
package metrics

import (
	"fmt"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/FairForge/loadverdict/internal/efficiency"
	"github.com/FairForge/loadverdict/internal/loadtest"
)

const namespace = "loadverdict"

// Metrics holds the gauges exported for node_exporter's textfile collector.
type Metrics struct {
	StepLatency     *prometheus.GaugeVec
	StepErrorPct    *prometheus.GaugeVec
	StepRealizedRPS *prometheus.GaugeVec
	StepRequests    *prometheus.GaugeVec
	StepSaturated   *prometheus.GaugeVec
	SustainableRPS  *prometheus.GaugeVec
	SaturationRPS   *prometheus.GaugeVec
	HealthScore     *prometheus.GaugeVec

	VariantRPS        *prometheus.GaugeVec
	VariantRPSPerWatt *prometheus.GaugeVec
	VariantRPSPerUSD  *prometheus.GaugeVec
	VariantRank       *prometheus.GaugeVec
	RankingsDiverge   prometheus.Gauge

	registry *prometheus.Registry
}

// New creates the gauges on a private registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		StepLatency: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "step_latency_milliseconds",
				Help:      "Nearest-rank latency percentile of a load step",
			},
			[]string{"service", "target_rps", "quantile"},
		),
		StepErrorPct: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "step_error_percent",
				Help:      "Failed request percentage of a load step",
			},
			[]string{"service", "target_rps"},
		),
		StepRealizedRPS: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "step_realized_rps",
				Help:      "Completed requests per second of a load step",
			},
			[]string{"service", "target_rps"},
		),
		StepRequests: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "step_requests",
				Help:      "Completed requests inside a load step",
			},
			[]string{"service", "target_rps"},
		),
		StepSaturated: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "step_saturated",
				Help:      "1 when the step breached a threshold",
			},
			[]string{"service", "target_rps"},
		),
		SustainableRPS: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "sustainable_rps",
				Help:      "Target rate of the last compliant step",
			},
			[]string{"service"},
		),
		SaturationRPS: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "saturation_rps",
				Help:      "Target rate of the first saturated step",
			},
			[]string{"service"},
		),
		HealthScore: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "health_score",
				Help:      "Bottleneck health score, 0-100",
			},
			[]string{"service"},
		),
		VariantRPS: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "variant_rps_median",
				Help:      "Median throughput across runs",
			},
			[]string{"variant"},
		),
		VariantRPSPerWatt: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "variant_rps_per_watt",
				Help:      "Median throughput per net watt",
			},
			[]string{"variant"},
		),
		VariantRPSPerUSD: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "variant_rps_per_usd",
				Help:      "Extrapolated throughput per hourly USD",
			},
			[]string{"variant"},
		),
		VariantRank: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "variant_rank",
				Help:      "1-based rank of a variant on one axis",
			},
			[]string{"variant", "axis"},
		),
		RankingsDiverge: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "rankings_diverge",
				Help:      "1 when throughput and efficiency rankings differ",
			},
		),
		registry: registry,
	}

	registry.MustRegister(
		m.StepLatency,
		m.StepErrorPct,
		m.StepRealizedRPS,
		m.StepRequests,
		m.StepSaturated,
		m.SustainableRPS,
		m.SaturationRPS,
		m.HealthScore,
		m.VariantRPS,
		m.VariantRPSPerWatt,
		m.VariantRPSPerUSD,
		m.VariantRank,
		m.RankingsDiverge,
	)

	return m
}

// Registry returns the private registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveAnalysis records every step and the verdict of a saturation run.
// diag may be nil.
func (m *Metrics) ObserveAnalysis(service string, a *loadtest.Analysis, diag *loadtest.BottleneckAnalysis) {
	for _, s := range a.Stats {
		target := strconv.Itoa(s.TargetRPS)
		m.StepLatency.WithLabelValues(service, target, "0.5").Set(s.P50)
		m.StepLatency.WithLabelValues(service, target, "0.95").Set(s.P95)
		m.StepLatency.WithLabelValues(service, target, "0.99").Set(s.P99)
		m.StepErrorPct.WithLabelValues(service, target).Set(s.ErrorPct)
		m.StepRealizedRPS.WithLabelValues(service, target).Set(s.RealizedRPS)
		m.StepRequests.WithLabelValues(service, target).Set(float64(s.Requests))

		var saturated float64
		if a.Thresholds.Breached(s) {
			saturated = 1
		}
		m.StepSaturated.WithLabelValues(service, target).Set(saturated)
	}

	if rps, ok := a.Verdict.SustainableRPS(); ok {
		m.SustainableRPS.WithLabelValues(service).Set(float64(rps))
	}
	if rps, ok := a.Verdict.SaturationRPS(); ok {
		m.SaturationRPS.WithLabelValues(service).Set(float64(rps))
	}
	if diag != nil {
		m.HealthScore.WithLabelValues(service).Set(diag.HealthScore)
	}
}

// ObserveEfficiency records per-variant figures and rank positions.
func (m *Metrics) ObserveEfficiency(r *efficiency.Report) {
	for _, v := range r.Variants {
		m.VariantRPS.WithLabelValues(v.Variant).Set(v.RPSMedian)
		m.VariantRPSPerWatt.WithLabelValues(v.Variant).Set(v.RPSPerWatt)
		m.VariantRPSPerUSD.WithLabelValues(v.Variant).Set(v.RPSPerUSD)

		pos := r.Rankings.PositionOf(v.Variant)
		m.VariantRank.WithLabelValues(v.Variant, "rps").Set(float64(pos.RPS))
		m.VariantRank.WithLabelValues(v.Variant, "rps_per_watt").Set(float64(pos.RPSPerWatt))
		m.VariantRank.WithLabelValues(v.Variant, "rps_per_usd").Set(float64(pos.RPSPerUSD))
	}

	if r.Diverges {
		m.RankingsDiverge.Set(1)
	} else {
		m.RankingsDiverge.Set(0)
	}
}

// WriteTextfile writes every gathered metric to path in the text exposition
// format. The file is replaced atomically.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("metrics: write %s: %w", path, err)
	}
	return nil
}
