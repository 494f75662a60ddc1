package loadtest

import (
	"strings"
	"testing"
)

func TestBuildModelFromAnalysis(t *testing.T) {
	thr := Thresholds{ErrorPct: 1, P99Ms: 100}
	an := analysisOf(thr,
		StepStats{Index: 0, TargetRPS: 200, RealizedRPS: 198.5, P99: 40},
		StepStats{Index: 1, TargetRPS: 400, RealizedRPS: 350.2, P99: 400},
	)

	model := BuildModelFromAnalysis("gin", an)

	if model.Name != "gin" {
		t.Errorf("expected name 'gin', got %q", model.Name)
	}
	if model.BaselineRPS != 200 {
		t.Errorf("expected baseline 200, got %.0f", model.BaselineRPS)
	}
	if model.BaselineLatencyMs != 40 {
		t.Errorf("expected baseline latency 40, got %.1f", model.BaselineLatencyMs)
	}
	if model.BreakingPointRPS != 400 || !model.BreakingPointFound {
		t.Errorf("expected breaking point 400, got %.0f (found=%v)", model.BreakingPointRPS, model.BreakingPointFound)
	}
	if model.MaxRPS != 350.2 {
		t.Errorf("expected max 350.2, got %.1f", model.MaxRPS)
	}
}

func TestBuildModelFromAnalysis_NeverSaturated(t *testing.T) {
	an := analysisOf(DefaultThresholds(),
		StepStats{Index: 0, TargetRPS: 200, RealizedRPS: 200},
		StepStats{Index: 1, TargetRPS: 400, RealizedRPS: 400},
	)

	model := BuildModelFromAnalysis("fast", an)

	if model.BreakingPointFound {
		t.Error("did not expect a breaking point")
	}
	if model.BreakingPointRPS != 400 {
		t.Errorf("expected highest target as lower bound, got %.0f", model.BreakingPointRPS)
	}
}

func TestCapacityPlanner_CalculateHeadroom(t *testing.T) {
	model := &CapacityModel{Name: "svc", BaselineRPS: 800, BreakingPointRPS: 1000, MaxRPS: 950, BreakingPointFound: true}
	planner := NewCapacityPlanner(model)

	tests := []struct {
		current float64
		risk    string
	}{
		{100, "low"},
		{500, "medium"},
		{700, "high"},
		{950, "critical"},
	}
	for _, tt := range tests {
		h := planner.CalculateHeadroom(tt.current)
		if h.RiskLevel != tt.risk {
			t.Errorf("current %.0f: expected risk %s, got %s", tt.current, tt.risk, h.RiskLevel)
		}
	}

	h := planner.CalculateHeadroom(500)
	if h.RecommendedHeadroom != 200 {
		t.Errorf("expected 200 RPS to recommended max, got %.0f", h.RecommendedHeadroom)
	}
	if h.AbsoluteHeadroom != 500 {
		t.Errorf("expected 500 RPS to breaking point, got %.0f", h.AbsoluteHeadroom)
	}
	if h.Utilization != 50 {
		t.Errorf("expected 50%% utilization, got %.1f", h.Utilization)
	}

	over := planner.CalculateHeadroom(1200)
	if over.AbsoluteHeadroom != 0 || over.RecommendedHeadroom != 0 {
		t.Error("expected no headroom past the breaking point")
	}
}

func TestCapacityPlanner_NoBreakingPoint(t *testing.T) {
	planner := NewCapacityPlanner(&CapacityModel{Name: "empty"})

	h := planner.CalculateHeadroom(100)
	if h.RiskLevel != "unknown" {
		t.Errorf("expected unknown risk, got %s", h.RiskLevel)
	}

	lower := NewCapacityPlanner(&CapacityModel{Name: "fast", BreakingPointRPS: 400})
	h = lower.CalculateHeadroom(100)
	if !strings.Contains(h.Recommendation, "lower bound") {
		t.Errorf("expected lower-bound caveat, got %q", h.Recommendation)
	}
}

func TestCapacityPlanner_GenerateHeadroomReport(t *testing.T) {
	model := &CapacityModel{Name: "gin", BaselineRPS: 200, BaselineLatencyMs: 40, BreakingPointRPS: 400, MaxRPS: 350, BreakingPointFound: true}
	planner := NewCapacityPlanner(model)

	report := planner.GenerateHeadroomReport(planner.CalculateHeadroom(250))

	for _, want := range []string{"Model: gin", "Breaking Point: 400 RPS", "risk medium"} {
		if !strings.Contains(report, want) {
			t.Errorf("report missing %q:\n%s", want, report)
		}
	}

	if got := NewCapacityPlanner(nil).GenerateHeadroomReport(nil); got != "No capacity model available\n" {
		t.Errorf("unexpected nil-model report %q", got)
	}
}
