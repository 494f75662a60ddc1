package efficiency

import (
	"errors"
)

// Defaults for the efficiency figures.
const (
	// DefaultHourlyCostUSD is the on-demand price of an AWS t3.medium
	// (2 vCPU, 4 GiB, us-east-1).
	DefaultHourlyCostUSD = 0.0416

	// MinNetPowerW floors net power so metric A stays finite.
	MinNetPowerW = 0.001

	// cpuPowerProxy converts CPU percent to watts when no power reading exists.
	cpuPowerProxy = 0.01
)

// Options tune Compute.
type Options struct {
	BaselinePowerW float64 `json:"baseline_power_w" yaml:"baseline_power_w"`
	HourlyCostUSD  float64 `json:"hourly_cost_usd" yaml:"hourly_cost_usd"`
}

// DefaultOptions uses no baseline and the t3.medium price.
func DefaultOptions() Options {
	return Options{HourlyCostUSD: DefaultHourlyCostUSD}
}

// Validate rejects a non-positive hourly cost or negative baseline.
func (o Options) Validate() error {
	if o.HourlyCostUSD <= 0 {
		return errors.New("efficiency: hourly cost must be positive")
	}
	if o.BaselinePowerW < 0 {
		return errors.New("efficiency: baseline power must not be negative")
	}
	return nil
}

// VariantMetrics are the descriptive statistics and efficiency figures of one
// variant across its runs.
type VariantMetrics struct {
	Variant         string  `json:"variant"`
	Runs            int     `json:"n_runs"`
	RPSMedian       float64 `json:"rps_median"`
	RPSStdev        float64 `json:"rps_std"`
	P50             float64 `json:"p50_ms"`
	P95             float64 `json:"p95_ms"`
	P99             float64 `json:"p99_ms"`
	PowerW          float64 `json:"power_watts"`
	PowerStdev      float64 `json:"power_std"`
	NetPowerW       float64 `json:"net_power_w"`
	CPUPct          float64 `json:"cpu_pct"`
	MemMB           float64 `json:"mem_mb"`
	ErrorRatePct    float64 `json:"error_rate_pct"`
	ExtrapolatedRPS float64 `json:"rps_extrap"`
	RPSPerWatt      float64 `json:"rps_per_watt"` // metric A
	RPSPerUSD       float64 `json:"rps_per_usd"`  // metric B

	// PreciseInstrumentation is false when power was never measured and net
	// power fell back to the CPU proxy.
	PreciseInstrumentation bool `json:"precise_instrumentation"`
}

// ComputeVariant derives the metrics of a single variant.
func ComputeVariant(variant string, runs []RunRecord, opts Options) VariantMetrics {
	rps := column(runs, func(r RunRecord) float64 { return r.RPS })
	power := column(runs, func(r RunRecord) float64 { return r.PowerW })

	m := VariantMetrics{
		Variant:      variant,
		Runs:         len(runs),
		RPSMedian:    Median(rps),
		RPSStdev:     Stdev(rps),
		P50:          Median(column(runs, func(r RunRecord) float64 { return r.P50 })),
		P95:          Median(column(runs, func(r RunRecord) float64 { return r.P95 })),
		P99:          Median(column(runs, func(r RunRecord) float64 { return r.P99 })),
		PowerW:       Median(power),
		PowerStdev:   Stdev(power),
		CPUPct:       Median(column(runs, func(r RunRecord) float64 { return r.CPUPct })),
		MemMB:        Median(column(runs, func(r RunRecord) float64 { return r.MemMB })),
		ErrorRatePct: Median(column(runs, func(r RunRecord) float64 { return r.ErrorRate })),
	}

	if m.PowerW == 0 {
		m.NetPowerW = max(m.CPUPct*cpuPowerProxy, MinNetPowerW)
	} else {
		m.NetPowerW = max(m.PowerW-opts.BaselinePowerW, MinNetPowerW)
		m.PreciseInstrumentation = true
	}
	m.RPSPerWatt = m.RPSMedian / m.NetPowerW

	m.ExtrapolatedRPS = m.RPSMedian
	if m.CPUPct > 0 {
		m.ExtrapolatedRPS = m.RPSMedian * (100 / m.CPUPct)
	}
	m.RPSPerUSD = m.ExtrapolatedRPS / opts.HourlyCostUSD

	return m
}

// Compute derives metrics for every variant in set order.
func Compute(set *RunSet, opts Options) ([]VariantMetrics, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	out := make([]VariantMetrics, 0, len(set.Variants))
	for _, v := range set.Variants {
		out = append(out, ComputeVariant(v, set.Runs[v], opts))
	}
	return out, nil
}
