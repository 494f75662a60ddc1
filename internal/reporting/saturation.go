package reporting

import (
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/FairForge/loadverdict/internal/loadtest"
)

// StepRow is one aggregated step as reported.
type StepRow struct {
	Index          int                 `json:"index"`
	TargetRPS      int                 `json:"target_rps"`
	Start          int64               `json:"start"`
	End            int64               `json:"end"`
	RealizedRPS    float64             `json:"rps_real"`
	P50            float64             `json:"p50_ms"`
	P95            float64             `json:"p95_ms"`
	P99            float64             `json:"p99_ms"`
	ErrorPct       float64             `json:"err_pct"`
	Requests       int                 `json:"req_count"`
	Samples        int                 `json:"samples"`
	Status         loadtest.StepStatus `json:"status"`
	Saturated      bool                `json:"saturated"`
	MaxSustainable bool                `json:"max_sustainable"`
	SaturationAt   bool                `json:"saturation_point"`
}

// Finding is a diagnosed bottleneck.
type Finding struct {
	Type        loadtest.BottleneckType `json:"type"`
	Severity    loadtest.Severity       `json:"severity"`
	Description string                  `json:"description"`
	Suggestion  string                  `json:"suggestion"`
	StepIndex   int                     `json:"step_index"`
}

// SaturationView is the presentation form of a saturation analysis.
type SaturationView struct {
	Name           string              `json:"name"`
	Plan           loadtest.StepPlan   `json:"plan"`
	Thresholds     loadtest.Thresholds `json:"thresholds"`
	TraceStart     int64               `json:"trace_start"`
	TraceEnd       int64               `json:"trace_end"`
	Windows        int                 `json:"windows"`
	SkippedRows    int                 `json:"skipped_rows"`
	Steps          []StepRow           `json:"steps"`
	SustainableRPS *int                `json:"sustainable_rps"`
	SaturationRPS  *int                `json:"saturation_rps"`
	HealthScore    float64             `json:"health_score"`
	Findings       []Finding           `json:"findings"`
}

// NewSaturationView flattens an analysis and its optional diagnosis.
func NewSaturationView(name string, a *loadtest.Analysis, diag *loadtest.BottleneckAnalysis) *SaturationView {
	v := &SaturationView{
		Name:        name,
		Plan:        a.Plan,
		Thresholds:  a.Thresholds,
		TraceStart:  a.TMin,
		TraceEnd:    a.TMax,
		Windows:     a.Windows,
		SkippedRows: a.Skipped,
		Steps:       make([]StepRow, 0, len(a.Stats)),
		Findings:    []Finding{},
	}

	for _, s := range a.Stats {
		v.Steps = append(v.Steps, StepRow{
			Index:          s.Index,
			TargetRPS:      s.TargetRPS,
			Start:          s.Start,
			End:            s.End,
			RealizedRPS:    s.RealizedRPS,
			P50:            s.P50,
			P95:            s.P95,
			P99:            s.P99,
			ErrorPct:       s.ErrorPct,
			Requests:       s.Requests,
			Samples:        s.Samples,
			Status:         a.Thresholds.Classify(s),
			Saturated:      a.Thresholds.Breached(s),
			MaxSustainable: a.Verdict.IsMaxSustainable(s),
			SaturationAt:   a.Verdict.IsSaturationPoint(s),
		})
	}

	if rps, ok := a.Verdict.SustainableRPS(); ok {
		v.SustainableRPS = &rps
	}
	if rps, ok := a.Verdict.SaturationRPS(); ok {
		v.SaturationRPS = &rps
	}

	if diag != nil {
		v.HealthScore = diag.HealthScore
		for _, b := range diag.Bottlenecks {
			v.Findings = append(v.Findings, Finding{
				Type:        b.Type,
				Severity:    b.Severity,
				Description: b.Description,
				Suggestion:  b.Suggestion,
				StepIndex:   b.StepIndex,
			})
		}
	}
	return v
}

// SaturationCSVName is the per-step file name for a named run.
func SaturationCSVName(name string) string {
	return fmt.Sprintf("saturation_%s_analysis.csv", name)
}

// SaturationJSONName is the report envelope file name for a named run.
func SaturationJSONName(name string) string {
	return fmt.Sprintf("saturation_%s_report.json", name)
}

var saturationHeader = []string{
	"framework", "target_rps", "rps_real", "p50_ms", "p95_ms", "p99_ms",
	"err_pct", "req_count", "saturated", "max_sustainable",
}

// SaturationCSV renders one row per step.
func SaturationCSV(v *SaturationView) ([]byte, error) {
	var buf strings.Builder
	w := csv.NewWriter(&buf)

	if err := w.Write(saturationHeader); err != nil {
		return nil, err
	}

	name := v.Name
	if name == "" {
		name = "unknown"
	}
	for _, s := range v.Steps {
		_ = w.Write([]string{
			name,
			strconv.Itoa(s.TargetRPS),
			formatFloat(s.RealizedRPS, 1),
			formatFloat(s.P50, 2),
			formatFloat(s.P95, 2),
			formatFloat(s.P99, 2),
			formatFloat(s.ErrorPct, 4),
			strconv.Itoa(s.Requests),
			boolFlag(s.Saturated),
			boolFlag(s.MaxSustainable),
		})
	}

	w.Flush()
	return []byte(buf.String()), w.Error()
}

// StepTable renders the per-step table followed by the verdict lines.
// With color set, rows are painted by status.
func StepTable(v *SaturationView, color bool) string {
	t := table.NewWriter()
	t.SetStyle(tableStyle())
	t.AppendHeader(table.Row{"Target(RPS)", "Real(RPS)", "P50(ms)", "P95(ms)", "P99(ms)", "Err%", "Reqs", "Status"})
	t.SetColumnConfigs(rightAligned(1, 2, 3, 4, 5, 6, 7))

	for _, s := range v.Steps {
		status := string(s.Status)
		if s.SaturationAt {
			status += " < SATURATION"
		}
		t.AppendRow(table.Row{
			s.TargetRPS,
			formatFloat(s.RealizedRPS, 0),
			formatFloat(s.P50, 1),
			formatFloat(s.P95, 1),
			formatFloat(s.P99, 1),
			formatFloat(s.ErrorPct, 3),
			s.Requests,
			status,
		})
	}

	if color {
		t.SetRowPainter(func(row table.Row) text.Colors {
			status, _ := row[len(row)-1].(string)
			switch {
			case strings.HasPrefix(status, string(loadtest.StatusSaturated)):
				return text.Colors{text.FgRed}
			case strings.HasPrefix(status, string(loadtest.StatusWarn)):
				return text.Colors{text.FgYellow}
			default:
				return text.Colors{text.FgGreen}
			}
		})
	}

	var b strings.Builder
	b.WriteString(t.Render())
	b.WriteString("\n\n")
	b.WriteString(verdictLines(v))
	return b.String()
}

func verdictLines(v *SaturationView) string {
	var b strings.Builder

	if ok := findStep(v, func(s StepRow) bool { return s.MaxSustainable }); v.SustainableRPS != nil && ok != nil {
		fmt.Fprintf(&b, "Max sustainable RPS: %d req/s\n", *v.SustainableRPS)
		fmt.Fprintf(&b, "  p99 %.1f ms | errors %.3f%%\n", ok.P99, ok.ErrorPct)
	} else {
		fmt.Fprintf(&b, "No step met the thresholds; already saturated at %d req/s\n", v.Plan.StartRPS)
	}

	if sat := findStep(v, func(s StepRow) bool { return s.SaturationAt }); sat != nil {
		fmt.Fprintf(&b, "Saturation began at: %d req/s\n", sat.TargetRPS)
		fmt.Fprintf(&b, "  p99 %.1f ms | errors %.3f%%\n", sat.P99, sat.ErrorPct)
	} else if n := len(v.Steps); n > 0 {
		fmt.Fprintf(&b, "Not saturated up to %d req/s; consider a higher ceiling\n", v.Steps[n-1].TargetRPS)
	}

	return b.String()
}

func findStep(v *SaturationView, match func(StepRow) bool) *StepRow {
	for i := range v.Steps {
		if match(v.Steps[i]) {
			return &v.Steps[i]
		}
	}
	return nil
}

// tableStyle is StyleLight with headers printed as written.
func tableStyle() table.Style {
	style := table.StyleLight
	style.Format.Header = text.FormatDefault
	return style
}

func rightAligned(cols ...int) []table.ColumnConfig {
	out := make([]table.ColumnConfig, 0, len(cols))
	for _, c := range cols {
		out = append(out, table.ColumnConfig{Number: c, Align: text.AlignRight})
	}
	return out
}

func formatFloat(v float64, prec int) string {
	return strconv.FormatFloat(v, 'f', prec, 64)
}

func boolFlag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
