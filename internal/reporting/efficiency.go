package reporting

import (
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/FairForge/loadverdict/internal/efficiency"
)

// Efficiency output files
const (
	FinalTableText = "final_table.txt"
	FinalTableCSV  = "final_table.csv"
	FinalReport    = "final_report.json"
)

// VariantRow is one variant with its rank positions.
type VariantRow struct {
	efficiency.VariantMetrics
	Rank efficiency.Position `json:"rank"`
}

// EfficiencyView is the presentation form of an efficiency comparison.
type EfficiencyView struct {
	Baseline      efficiency.Baseline `json:"baseline"`
	HourlyCostUSD float64             `json:"hourly_cost_usd"`
	Variants      []VariantRow        `json:"variants"`
	Rankings      efficiency.Rankings `json:"rankings"`
	Diverges      bool                `json:"rankings_diverge"`
	Degraded      bool                `json:"degraded_instrumentation"`
	SkippedRows   int                 `json:"skipped_rows"`
}

// NewEfficiencyView attaches rank positions to each variant.
func NewEfficiencyView(r *efficiency.Report) *EfficiencyView {
	v := &EfficiencyView{
		Baseline:      r.Baseline,
		HourlyCostUSD: r.Options.HourlyCostUSD,
		Variants:      make([]VariantRow, 0, len(r.Variants)),
		Rankings:      r.Rankings,
		Diverges:      r.Diverges,
		Degraded:      r.Degraded(),
		SkippedRows:   r.Skipped,
	}
	for _, m := range r.Variants {
		v.Variants = append(v.Variants, VariantRow{VariantMetrics: m, Rank: r.Rankings.PositionOf(m.Variant)})
	}
	return v
}

var efficiencyHeader = []string{
	"framework", "n_runs", "rps_median", "rps_std", "p50_ms", "p95_ms", "p99_ms",
	"power_watts", "net_power_w", "cpu_pct", "mem_mb", "rps_extrap", "rps_per_watt",
	"rps_per_usd", "error_rate_pct", "rank_rps", "rank_rps_per_watt", "rank_rps_per_usd",
	"precise_instrumentation",
}

// EfficiencyCSV renders one row per variant.
func EfficiencyCSV(v *EfficiencyView) ([]byte, error) {
	var buf strings.Builder
	w := csv.NewWriter(&buf)

	if err := w.Write(efficiencyHeader); err != nil {
		return nil, err
	}

	for _, m := range v.Variants {
		_ = w.Write([]string{
			m.Variant,
			strconv.Itoa(m.Runs),
			formatFloat(m.RPSMedian, 2),
			formatFloat(m.RPSStdev, 2),
			formatFloat(m.P50, 2),
			formatFloat(m.P95, 2),
			formatFloat(m.P99, 2),
			formatFloat(m.PowerW, 3),
			formatFloat(m.NetPowerW, 3),
			formatFloat(m.CPUPct, 2),
			formatFloat(m.MemMB, 1),
			formatFloat(m.ExtrapolatedRPS, 1),
			formatFloat(m.RPSPerWatt, 2),
			formatFloat(m.RPSPerUSD, 0),
			formatFloat(m.ErrorRatePct, 4),
			strconv.Itoa(m.Rank.RPS),
			strconv.Itoa(m.Rank.RPSPerWatt),
			strconv.Itoa(m.Rank.RPSPerUSD),
			strconv.FormatBool(m.PreciseInstrumentation),
		})
	}

	w.Flush()
	return []byte(buf.String()), w.Error()
}

// EfficiencyText renders the human-readable comparison.
func EfficiencyText(v *EfficiencyView, color bool) string {
	var b strings.Builder

	b.WriteString("Web service efficiency: energy and cost\n")
	fmt.Fprintf(&b, "Baseline power: %.3f W (%s)\n", v.Baseline.PowerW, v.Baseline.Source)
	fmt.Fprintf(&b, "Hourly cost: US$ %.4f/h\n\n", v.HourlyCostUSD)

	t := table.NewWriter()
	t.SetStyle(tableStyle())
	t.AppendHeader(table.Row{"Variant", "Runs", "RPS", "±", "P50(ms)", "P95(ms)", "P99(ms)",
		"Power(W)", "Net(W)", "CPU%", "Mem(MB)", "RPS/W", "RPS/USD", "Err%"})
	cols := rightAligned(2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14)
	if color {
		cols[10].Colors = text.Colors{text.FgCyan} // RPS/W
	}
	t.SetColumnConfigs(cols)

	for _, m := range v.Variants {
		name := m.Variant
		if !m.PreciseInstrumentation {
			name += " *"
		}
		t.AppendRow(table.Row{
			name,
			m.Runs,
			formatFloat(m.RPSMedian, 1),
			formatFloat(m.RPSStdev, 1),
			formatFloat(m.P50, 2),
			formatFloat(m.P95, 2),
			formatFloat(m.P99, 2),
			formatFloat(m.PowerW, 3),
			formatFloat(m.NetPowerW, 3),
			formatFloat(m.CPUPct, 1),
			formatFloat(m.MemMB, 1),
			formatFloat(m.RPSPerWatt, 1),
			formatFloat(m.RPSPerUSD, 0),
			formatFloat(m.ErrorRatePct, 4),
		})
	}
	b.WriteString(t.Render())
	b.WriteString("\n\n")

	b.WriteString("Rankings:\n")
	fmt.Fprintf(&b, "  by RPS (throughput):  %s\n", strings.Join(v.Rankings.ByRPS, " > "))
	fmt.Fprintf(&b, "  by RPS/W (energy):    %s\n", strings.Join(v.Rankings.ByRPSPerWatt, " > "))
	fmt.Fprintf(&b, "  by RPS/USD (cost):    %s\n\n", strings.Join(v.Rankings.ByRPSPerUSD, " > "))

	b.WriteString("Hypothesis: ranking by RPS/W and RPS/USD differs from ranking by RPS\n")
	if v.Diverges {
		b.WriteString("  confirmed: composite metrics reorder the variants\n")
	} else {
		b.WriteString("  not confirmed: rankings are identical\n")
	}

	if v.Degraded {
		b.WriteString("\n* no power reading; RPS/W uses CPU% as a proxy (1% ~ 0.01 W).\n")
		b.WriteString("  Measure on hardware with RAPL support for precise figures.\n")
	}
	if v.SkippedRows > 0 {
		fmt.Fprintf(&b, "\n%d malformed summary row(s) skipped.\n", v.SkippedRows)
	}

	return b.String()
}
