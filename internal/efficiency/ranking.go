package efficiency

import (
	"cmp"
	"slices"
)

// Rankings orders variant names best first on each axis.
type Rankings struct {
	ByRPS        []string `json:"by_rps"`
	ByRPSPerWatt []string `json:"by_rps_per_watt"`
	ByRPSPerUSD  []string `json:"by_rps_per_usd"`
}

// Rank sorts descending on each metric. Equal values are ordered by variant
// name so identical variants keep a stable relative order.
func Rank(metrics []VariantMetrics) Rankings {
	return Rankings{
		ByRPS:        rankBy(metrics, func(m VariantMetrics) float64 { return m.RPSMedian }),
		ByRPSPerWatt: rankBy(metrics, func(m VariantMetrics) float64 { return m.RPSPerWatt }),
		ByRPSPerUSD:  rankBy(metrics, func(m VariantMetrics) float64 { return m.RPSPerUSD }),
	}
}

func rankBy(metrics []VariantMetrics, key func(VariantMetrics) float64) []string {
	sorted := slices.Clone(metrics)
	slices.SortStableFunc(sorted, func(a, b VariantMetrics) int {
		if c := cmp.Compare(key(b), key(a)); c != 0 {
			return c
		}
		return cmp.Compare(a.Variant, b.Variant)
	})

	names := make([]string, len(sorted))
	for i, m := range sorted {
		names[i] = m.Variant
	}
	return names
}

// Diverges reports whether the throughput ranking differs from either
// efficiency ranking.
func (r Rankings) Diverges() bool {
	return !slices.Equal(r.ByRPS, r.ByRPSPerWatt) || !slices.Equal(r.ByRPS, r.ByRPSPerUSD)
}

// Position is the 1-based rank of each variant on each axis.
type Position struct {
	RPS        int `json:"rank_rps"`
	RPSPerWatt int `json:"rank_rps_per_watt"`
	RPSPerUSD  int `json:"rank_rps_per_usd"`
}

// PositionOf returns the ranks of variant, 0 where it is absent.
func (r Rankings) PositionOf(variant string) Position {
	return Position{
		RPS:        slices.Index(r.ByRPS, variant) + 1,
		RPSPerWatt: slices.Index(r.ByRPSPerWatt, variant) + 1,
		RPSPerUSD:  slices.Index(r.ByRPSPerUSD, variant) + 1,
	}
}

// Report is the complete efficiency comparison.
type Report struct {
	Baseline Baseline         `json:"baseline"`
	Options  Options          `json:"options"`
	Variants []VariantMetrics `json:"variants"`
	Rankings Rankings         `json:"rankings"`
	Diverges bool             `json:"rankings_diverge"`
	Skipped  int              `json:"skipped_rows"`
}

// Degraded reports whether any variant lacks precise power instrumentation.
func (r *Report) Degraded() bool {
	for _, m := range r.Variants {
		if !m.PreciseInstrumentation {
			return true
		}
	}
	return false
}

// Analyze computes metrics and rankings for a run set.
func Analyze(set *RunSet, baseline Baseline, hourlyCostUSD float64) (*Report, error) {
	opts := Options{BaselinePowerW: baseline.PowerW, HourlyCostUSD: hourlyCostUSD}
	metrics, err := Compute(set, opts)
	if err != nil {
		return nil, err
	}
	rankings := Rank(metrics)
	return &Report{
		Baseline: baseline,
		Options:  opts,
		Variants: metrics,
		Rankings: rankings,
		Diverges: rankings.Diverges(),
		Skipped:  set.Skipped,
	}, nil
}
