package loadtest

import (
	"fmt"
	"strings"
)

// Fraction of the breaking point treated as the recommended operating ceiling.
const recommendedUtilization = 0.7

// CapacityModel summarises what a stepped run revealed about a service.
type CapacityModel struct {
	Name               string
	BaselineRPS        float64 // sustainable target rate
	BaselineLatencyMs  float64 // p99 at the sustainable step
	BreakingPointRPS   float64 // first saturated target rate
	MaxRPS             float64 // highest realized rate observed
	BreakingPointFound bool    // false when the run never saturated
}

// BuildModelFromAnalysis derives a capacity model from a saturation analysis.
// When no step saturated, the highest tested target stands in as a lower
// bound for the breaking point.
func BuildModelFromAnalysis(name string, a *Analysis) *CapacityModel {
	model := &CapacityModel{Name: name}

	for _, s := range a.Stats {
		model.MaxRPS = max(model.MaxRPS, s.RealizedRPS)
	}

	if ok := a.Verdict.LastOK; ok != nil {
		model.BaselineRPS = float64(ok.TargetRPS)
		model.BaselineLatencyMs = ok.P99
	}

	if sat := a.Verdict.FirstSaturated; sat != nil {
		model.BreakingPointRPS = float64(sat.TargetRPS)
		model.BreakingPointFound = true
	} else if n := len(a.Stats); n > 0 {
		model.BreakingPointRPS = float64(a.Stats[n-1].TargetRPS)
	}

	return model
}

// HeadroomAnalysis shows remaining capacity at a given production rate.
type HeadroomAnalysis struct {
	CurrentRPS             float64
	RecommendedHeadroom    float64
	RecommendedHeadroomPct float64
	AbsoluteHeadroom       float64
	AbsoluteHeadroomPct    float64
	Utilization            float64 // percentage of the breaking point in use
	RiskLevel              string
	Recommendation         string
}

// CapacityPlanner answers headroom questions against a model.
type CapacityPlanner struct {
	model *CapacityModel
}

// NewCapacityPlanner creates a planner with the given model.
func NewCapacityPlanner(model *CapacityModel) *CapacityPlanner {
	return &CapacityPlanner{model: model}
}

// CalculateHeadroom determines how much capacity headroom exists at currentRPS.
func (p *CapacityPlanner) CalculateHeadroom(currentRPS float64) *HeadroomAnalysis {
	analysis := &HeadroomAnalysis{
		CurrentRPS: currentRPS,
	}

	if p.model == nil || p.model.BreakingPointRPS <= 0 {
		analysis.RiskLevel = "unknown"
		analysis.Recommendation = "No breaking point available"
		return analysis
	}

	// Headroom to recommended operating point (70% of breaking point)
	recommendedMax := p.model.BreakingPointRPS * recommendedUtilization
	if currentRPS < recommendedMax {
		analysis.RecommendedHeadroom = recommendedMax - currentRPS
		if currentRPS > 0 {
			analysis.RecommendedHeadroomPct = (analysis.RecommendedHeadroom / currentRPS) * 100
		}
	}

	// Headroom to breaking point
	if currentRPS < p.model.BreakingPointRPS {
		analysis.AbsoluteHeadroom = p.model.BreakingPointRPS - currentRPS
		if currentRPS > 0 {
			analysis.AbsoluteHeadroomPct = (analysis.AbsoluteHeadroom / currentRPS) * 100
		}
	}

	analysis.Utilization = (currentRPS / p.model.BreakingPointRPS) * 100

	switch {
	case analysis.Utilization >= 90:
		analysis.RiskLevel = "critical"
		analysis.Recommendation = "Immediate scaling required"
	case analysis.Utilization >= 70:
		analysis.RiskLevel = "high"
		analysis.Recommendation = "Plan scaling within 1-2 weeks"
	case analysis.Utilization >= 50:
		analysis.RiskLevel = "medium"
		analysis.Recommendation = "Monitor closely, plan for growth"
	default:
		analysis.RiskLevel = "low"
		analysis.Recommendation = "Adequate headroom available"
	}

	if !p.model.BreakingPointFound {
		analysis.Recommendation += " (breaking point not reached; headroom is a lower bound)"
	}

	return analysis
}

// GenerateHeadroomReport formats the model and a headroom analysis.
func (p *CapacityPlanner) GenerateHeadroomReport(h *HeadroomAnalysis) string {
	if p.model == nil {
		return "No capacity model available\n"
	}

	var b strings.Builder
	b.WriteString("Capacity Headroom\n")
	b.WriteString("-----------------\n")
	fmt.Fprintf(&b, "Model: %s\n", p.model.Name)
	fmt.Fprintf(&b, "Sustainable RPS: %.0f (p99 %.1f ms)\n", p.model.BaselineRPS, p.model.BaselineLatencyMs)
	if p.model.BreakingPointFound {
		fmt.Fprintf(&b, "Breaking Point: %.0f RPS\n", p.model.BreakingPointRPS)
	} else {
		fmt.Fprintf(&b, "Breaking Point: > %.0f RPS (not reached)\n", p.model.BreakingPointRPS)
	}
	fmt.Fprintf(&b, "Maximum Observed: %.1f RPS\n", p.model.MaxRPS)
	fmt.Fprintf(&b, "Current: %.0f RPS, utilization %.1f%%, risk %s\n", h.CurrentRPS, h.Utilization, h.RiskLevel)
	fmt.Fprintf(&b, "Headroom: %.0f RPS to recommended max, %.0f RPS to breaking point\n",
		h.RecommendedHeadroom, h.AbsoluteHeadroom)
	fmt.Fprintf(&b, "Recommendation: %s\n", h.Recommendation)
	return b.String()
}
