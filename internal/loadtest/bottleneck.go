package loadtest

import (
	"fmt"
	"slices"
	"strings"
)

// BottleneckType identifies the category of bottleneck.
type BottleneckType string

const (
	BottleneckLatency     BottleneckType = "latency"
	BottleneckErrors      BottleneckType = "errors"
	BottleneckThroughput  BottleneckType = "throughput"
	BottleneckInstability BottleneckType = "instability"
	BottleneckHeadroom    BottleneckType = "headroom"
)

// Severity indicates how critical a bottleneck is.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityInfo     Severity = "info"
)

// Bottleneck is one finding about why or where a run saturated.
type Bottleneck struct {
	Type        BottleneckType
	Severity    Severity
	Description string
	Evidence    []string
	Suggestion  string
	StepIndex   int // -1 when the finding is not tied to one step
	Metrics     map[string]float64
}

// BottleneckAnalysis contains the complete diagnosis of one analysis.
type BottleneckAnalysis struct {
	Name        string
	Bottlenecks []Bottleneck
	Summary     string
	HealthScore float64 // 0-100, higher is better
	TopIssue    *Bottleneck
}

// DiagnosisConfig tunes the diagnosis.
type DiagnosisConfig struct {
	// A step delivering less than this fraction of its target rate is flagged.
	MinDeliveryRatio float64 `yaml:"min_delivery_ratio"`
}

// DefaultDiagnosisConfig flags steps delivering under 90% of target.
func DefaultDiagnosisConfig() DiagnosisConfig {
	return DiagnosisConfig{MinDeliveryRatio: 0.9}
}

// BottleneckAnalyzer explains a saturation verdict.
type BottleneckAnalyzer struct {
	config DiagnosisConfig
}

// NewBottleneckAnalyzer creates an analyzer; a zero ratio selects the default.
func NewBottleneckAnalyzer(config DiagnosisConfig) *BottleneckAnalyzer {
	if config.MinDeliveryRatio <= 0 {
		config = DefaultDiagnosisConfig()
	}
	return &BottleneckAnalyzer{config: config}
}

// Diagnose inspects an analysis and lists its bottlenecks.
func (a *BottleneckAnalyzer) Diagnose(name string, an *Analysis) *BottleneckAnalysis {
	analysis := &BottleneckAnalysis{
		Name:        name,
		Bottlenecks: make([]Bottleneck, 0),
	}

	a.checkSaturation(an, analysis)
	a.checkDelivery(an, analysis)
	a.checkRecovery(an, analysis)
	a.checkHeadroom(an, analysis)

	a.calculateHealthScore(analysis)
	a.generateSummary(analysis)

	return analysis
}

// checkSaturation reports which threshold the first saturated step crossed.
func (a *BottleneckAnalyzer) checkSaturation(an *Analysis, analysis *BottleneckAnalysis) {
	sat := an.Verdict.FirstSaturated
	if sat == nil {
		return
	}
	thr := an.Thresholds

	if sat.P99 >= thr.P99Ms {
		ratio := sat.P99 / thr.P99Ms
		analysis.Bottlenecks = append(analysis.Bottlenecks, Bottleneck{
			Type:        BottleneckLatency,
			Severity:    ratioSeverity(ratio),
			Description: fmt.Sprintf("p99 latency crossed the limit at %d RPS", sat.TargetRPS),
			Evidence: []string{
				fmt.Sprintf("p99: %.2f ms", sat.P99),
				fmt.Sprintf("limit: %.2f ms", thr.P99Ms),
			},
			Suggestion: "Profile the request path at this rate; look for queueing, lock contention or pool exhaustion",
			StepIndex:  sat.Index,
			Metrics: map[string]float64{
				"p99_ms":   sat.P99,
				"limit_ms": thr.P99Ms,
			},
		})
	}

	if sat.ErrorPct >= thr.ErrorPct {
		ratio := sat.ErrorPct / thr.ErrorPct
		analysis.Bottlenecks = append(analysis.Bottlenecks, Bottleneck{
			Type:        BottleneckErrors,
			Severity:    ratioSeverity(ratio),
			Description: fmt.Sprintf("error rate crossed the limit at %d RPS", sat.TargetRPS),
			Evidence: []string{
				fmt.Sprintf("errors: %.4f%%", sat.ErrorPct),
				fmt.Sprintf("limit: %.4f%%", thr.ErrorPct),
			},
			Suggestion: "Check server logs for timeouts, connection resets and rejected requests",
			StepIndex:  sat.Index,
			Metrics: map[string]float64{
				"err_pct":   sat.ErrorPct,
				"limit_pct": thr.ErrorPct,
			},
		})
	}
}

// checkDelivery flags the first step that did not receive its offered rate.
func (a *BottleneckAnalyzer) checkDelivery(an *Analysis, analysis *BottleneckAnalysis) {
	for _, s := range an.Stats {
		if s.TargetRPS <= 0 {
			continue
		}
		ratio := s.RealizedRPS / float64(s.TargetRPS)
		if ratio >= a.config.MinDeliveryRatio {
			continue
		}

		severity := SeverityMedium
		if ratio < a.config.MinDeliveryRatio/2 {
			severity = SeverityHigh
		}
		analysis.Bottlenecks = append(analysis.Bottlenecks, Bottleneck{
			Type:        BottleneckThroughput,
			Severity:    severity,
			Description: fmt.Sprintf("only %.0f%% of the offered %d RPS completed", ratio*100, s.TargetRPS),
			Evidence: []string{
				fmt.Sprintf("realized: %.1f RPS", s.RealizedRPS),
				fmt.Sprintf("target: %d RPS", s.TargetRPS),
			},
			Suggestion: "Confirm the load generator had enough VUs; otherwise the service is shedding throughput",
			StepIndex:  s.Index,
			Metrics: map[string]float64{
				"realized_rps": s.RealizedRPS,
				"target_rps":   float64(s.TargetRPS),
			},
		})
		return
	}
}

// checkRecovery flags a compliant step that follows the first saturation,
// which is when LastOK lands above the breaking point.
func (a *BottleneckAnalyzer) checkRecovery(an *Analysis, analysis *BottleneckAnalysis) {
	v := an.Verdict
	if v.FirstSaturated == nil || v.LastOK == nil || v.LastOK.Index < v.FirstSaturated.Index {
		return
	}

	analysis.Bottlenecks = append(analysis.Bottlenecks, Bottleneck{
		Type:     BottleneckInstability,
		Severity: SeverityLow,
		Description: fmt.Sprintf("step at %d RPS passed after saturation at %d RPS",
			v.LastOK.TargetRPS, v.FirstSaturated.TargetRPS),
		Evidence: []string{
			fmt.Sprintf("first saturated step: %d", v.FirstSaturated.Index),
			fmt.Sprintf("last compliant step: %d", v.LastOK.Index),
		},
		Suggestion: "Repeat the run; a recovering service usually points at warm-up, autoscaling or GC effects",
		StepIndex:  v.LastOK.Index,
		Metrics: map[string]float64{
			"saturation_rps":  float64(v.FirstSaturated.TargetRPS),
			"sustainable_rps": float64(v.LastOK.TargetRPS),
		},
	})
}

// checkHeadroom notes a run that never saturated.
func (a *BottleneckAnalyzer) checkHeadroom(an *Analysis, analysis *BottleneckAnalysis) {
	if an.Verdict.FirstSaturated != nil || len(an.Stats) == 0 {
		return
	}
	last := an.Stats[len(an.Stats)-1]
	analysis.Bottlenecks = append(analysis.Bottlenecks, Bottleneck{
		Type:        BottleneckHeadroom,
		Severity:    SeverityInfo,
		Description: fmt.Sprintf("no step saturated up to %d RPS", last.TargetRPS),
		Evidence: []string{
			fmt.Sprintf("highest p99: %.2f ms", maxP99(an.Stats)),
		},
		Suggestion: "Extend the run with more steps to find the breaking point",
		StepIndex:  -1,
		Metrics: map[string]float64{
			"highest_target_rps": float64(last.TargetRPS),
		},
	})
}

func maxP99(stats []StepStats) float64 {
	var m float64
	for _, s := range stats {
		m = max(m, s.P99)
	}
	return m
}

// ratioSeverity grades how far past a limit a value is.
func ratioSeverity(ratio float64) Severity {
	switch {
	case ratio >= 5:
		return SeverityCritical
	case ratio >= 2:
		return SeverityHigh
	default:
		return SeverityMedium
	}
}

// severityOrder lists severities from most to least urgent.
var severityOrder = []Severity{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow, SeverityInfo}

// Health points deducted per finding.
var severityPenalty = map[Severity]float64{
	SeverityCritical: 30,
	SeverityHigh:     20,
	SeverityMedium:   10,
	SeverityLow:      5,
	SeverityInfo:     2,
}

// calculateHealthScore deducts a penalty per finding and picks the most
// urgent one, earliest first among equals.
func (a *BottleneckAnalyzer) calculateHealthScore(analysis *BottleneckAnalysis) {
	score := 100.0
	top := -1
	for i, b := range analysis.Bottlenecks {
		score -= severityPenalty[b.Severity]
		if top < 0 || urgency(b.Severity) < urgency(analysis.Bottlenecks[top].Severity) {
			top = i
		}
	}

	analysis.HealthScore = max(score, 0)
	if top >= 0 {
		issue := analysis.Bottlenecks[top]
		analysis.TopIssue = &issue
	}
}

// urgency is the position of s in severityOrder; unknown severities sort last.
func urgency(s Severity) int {
	if i := slices.Index(severityOrder, s); i >= 0 {
		return i
	}
	return len(severityOrder)
}

// generateSummary creates a human-readable summary.
func (a *BottleneckAnalyzer) generateSummary(analysis *BottleneckAnalysis) {
	if len(analysis.Bottlenecks) == 0 {
		analysis.Summary = "No bottlenecks detected."
		return
	}

	counts := make(map[Severity]int)
	for _, b := range analysis.Bottlenecks {
		counts[b.Severity]++
	}

	var parts []string
	for _, s := range severityOrder {
		if counts[s] > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", counts[s], s))
		}
	}

	analysis.Summary = fmt.Sprintf("Detected %d bottleneck(s): %s. Health score: %.0f/100",
		len(analysis.Bottlenecks), strings.Join(parts, ", "), analysis.HealthScore)
}

// GenerateReport creates a detailed report of the analysis.
func (analysis *BottleneckAnalysis) GenerateReport() string {
	var b strings.Builder
	b.WriteString("Bottleneck Analysis\n")
	b.WriteString("-------------------\n")
	if analysis.Name != "" {
		fmt.Fprintf(&b, "Test: %s\n", analysis.Name)
	}
	fmt.Fprintf(&b, "Summary: %s\n", analysis.Summary)

	for i, bn := range analysis.Bottlenecks {
		fmt.Fprintf(&b, "\n%d. [%s] %s - %s\n", i+1, bn.Severity, bn.Type, bn.Description)
		for _, e := range bn.Evidence {
			fmt.Fprintf(&b, "   - %s\n", e)
		}
		fmt.Fprintf(&b, "   Suggestion: %s\n", bn.Suggestion)
	}

	return b.String()
}
