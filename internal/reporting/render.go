package reporting

import (
	"fmt"
	"math"
	"strings"
)

// Capabilities are optional output features, resolved once at startup.
type Capabilities struct {
	Charts bool
}

// Renderer produces supplementary chart artifacts.
type Renderer interface {
	Name() string
	Saturation(v *SaturationView) []Artifact
	Efficiency(v *EfficiencyView) []Artifact
}

// SelectRenderer returns the renderer matching caps.
func SelectRenderer(caps Capabilities) Renderer {
	if caps.Charts {
		return &TextChartRenderer{Width: defaultChartWidth}
	}
	return NopRenderer{}
}

// NopRenderer renders nothing.
type NopRenderer struct{}

func (NopRenderer) Name() string                           { return "none" }
func (NopRenderer) Saturation(*SaturationView) []Artifact { return nil }
func (NopRenderer) Efficiency(*EfficiencyView) []Artifact { return nil }

const defaultChartWidth = 50

// TextChartRenderer draws horizontal bar charts as plain text under charts/.
type TextChartRenderer struct {
	Width int
}

func (r *TextChartRenderer) Name() string { return "text" }

// Saturation charts realized rate and p99 per step.
func (r *TextChartRenderer) Saturation(v *SaturationView) []Artifact {
	labels := make([]string, len(v.Steps))
	realized := make([]float64, len(v.Steps))
	p99 := make([]float64, len(v.Steps))
	for i, s := range v.Steps {
		labels[i] = fmt.Sprintf("%d", s.TargetRPS)
		realized[i] = s.RealizedRPS
		p99[i] = s.P99
	}

	var b strings.Builder
	b.WriteString(r.bars("Realized RPS by target RPS", labels, realized, 0))
	b.WriteString("\n")
	b.WriteString(r.bars(fmt.Sprintf("p99 (ms) by target RPS, limit %.0f", v.Thresholds.P99Ms), labels, p99, 1))

	name := v.Name
	if name == "" {
		name = "unknown"
	}
	return []Artifact{{Name: fmt.Sprintf("charts/saturation_%s.txt", name), Data: []byte(b.String())}}
}

// Efficiency charts throughput and both efficiency metrics.
func (r *TextChartRenderer) Efficiency(v *EfficiencyView) []Artifact {
	labels := make([]string, len(v.Variants))
	rps := make([]float64, len(v.Variants))
	perWatt := make([]float64, len(v.Variants))
	perUSD := make([]float64, len(v.Variants))
	for i, m := range v.Variants {
		labels[i] = m.Variant
		rps[i] = m.RPSMedian
		perWatt[i] = m.RPSPerWatt
		perUSD[i] = m.RPSPerUSD
	}

	var b strings.Builder
	b.WriteString(r.bars("Throughput (RPS)", labels, rps, 0))
	b.WriteString("\n")
	b.WriteString(r.bars("Energy efficiency (RPS/W)", labels, perWatt, 1))
	b.WriteString("\n")
	b.WriteString(r.bars("Cost efficiency (RPS/USD/h)", labels, perUSD, 0))

	return []Artifact{{Name: "charts/comparison_main.txt", Data: []byte(b.String())}}
}

func (r *TextChartRenderer) bars(title string, labels []string, values []float64, prec int) string {
	width := r.Width
	if width <= 0 {
		width = defaultChartWidth
	}

	var peak float64
	labelWidth := 0
	for i, v := range values {
		peak = max(peak, v)
		labelWidth = max(labelWidth, len(labels[i]))
	}

	var b strings.Builder
	b.WriteString(title)
	b.WriteString("\n")
	for i, v := range values {
		n := 0
		if peak > 0 && v > 0 {
			n = int(math.Round(v / peak * float64(width)))
		}
		fmt.Fprintf(&b, "%-*s |%s %s\n", labelWidth, labels[i], strings.Repeat("#", n), formatFloat(v, prec))
	}
	return b.String()
}
