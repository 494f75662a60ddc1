package loadtest

import (
	"strings"
	"testing"
)

func analysisOf(thr Thresholds, stats ...StepStats) *Analysis {
	return &Analysis{Thresholds: thr, Stats: stats, Verdict: Detect(stats, thr)}
}

func findBottleneck(analysis *BottleneckAnalysis, kind BottleneckType) *Bottleneck {
	for i := range analysis.Bottlenecks {
		if analysis.Bottlenecks[i].Type == kind {
			return &analysis.Bottlenecks[i]
		}
	}
	return nil
}

func TestNewBottleneckAnalyzer(t *testing.T) {
	analyzer := NewBottleneckAnalyzer(DiagnosisConfig{})
	if analyzer.config.MinDeliveryRatio != DefaultDiagnosisConfig().MinDeliveryRatio {
		t.Error("expected default config for zero value")
	}

	analyzer = NewBottleneckAnalyzer(DiagnosisConfig{MinDeliveryRatio: 0.5})
	if analyzer.config.MinDeliveryRatio != 0.5 {
		t.Error("expected custom config to be used")
	}
}

func TestDiagnose_LatencySaturation(t *testing.T) {
	thr := Thresholds{ErrorPct: 1, P99Ms: 100}
	an := analysisOf(thr,
		StepStats{Index: 0, TargetRPS: 100, RealizedRPS: 100, P99: 50},
		StepStats{Index: 1, TargetRPS: 200, RealizedRPS: 199, P99: 600},
	)

	analysis := NewBottleneckAnalyzer(DefaultDiagnosisConfig()).Diagnose("svc", an)

	b := findBottleneck(analysis, BottleneckLatency)
	if b == nil {
		t.Fatal("expected a latency bottleneck")
	}
	if b.Severity != SeverityCritical {
		t.Errorf("expected critical severity at 6x the limit, got %s", b.Severity)
	}
	if b.StepIndex != 1 {
		t.Errorf("expected step 1, got %d", b.StepIndex)
	}
	if findBottleneck(analysis, BottleneckErrors) != nil {
		t.Error("did not expect an error-rate bottleneck")
	}
	if analysis.TopIssue == nil || analysis.TopIssue.Type != BottleneckLatency {
		t.Error("expected latency as the top issue")
	}
	if analysis.HealthScore != 70 {
		t.Errorf("expected health score 70, got %.0f", analysis.HealthScore)
	}
}

func TestDiagnose_ErrorsAndDelivery(t *testing.T) {
	thr := Thresholds{ErrorPct: 1, P99Ms: 1000}
	an := analysisOf(thr,
		StepStats{Index: 0, TargetRPS: 100, RealizedRPS: 100, P99: 50},
		StepStats{Index: 1, TargetRPS: 200, RealizedRPS: 60, P99: 80, ErrorPct: 1.5},
	)

	analysis := NewBottleneckAnalyzer(DefaultDiagnosisConfig()).Diagnose("svc", an)

	if b := findBottleneck(analysis, BottleneckErrors); b == nil || b.Severity != SeverityMedium {
		t.Errorf("expected a medium error bottleneck, got %+v", b)
	}
	b := findBottleneck(analysis, BottleneckThroughput)
	if b == nil {
		t.Fatal("expected a throughput bottleneck")
	}
	if b.Severity != SeverityHigh {
		t.Errorf("expected high severity for 30%% delivery, got %s", b.Severity)
	}
}

func TestDiagnose_Recovery(t *testing.T) {
	thr := Thresholds{ErrorPct: 1, P99Ms: 100}
	an := analysisOf(thr,
		StepStats{Index: 0, TargetRPS: 100, RealizedRPS: 100, P99: 50},
		StepStats{Index: 1, TargetRPS: 200, RealizedRPS: 200, P99: 150},
		StepStats{Index: 2, TargetRPS: 300, RealizedRPS: 300, P99: 60},
	)

	analysis := NewBottleneckAnalyzer(DefaultDiagnosisConfig()).Diagnose("svc", an)

	if findBottleneck(analysis, BottleneckInstability) == nil {
		t.Error("expected an instability finding when a step passes after saturation")
	}
}

func TestDiagnose_NoSaturation(t *testing.T) {
	thr := DefaultThresholds()
	an := analysisOf(thr,
		StepStats{Index: 0, TargetRPS: 100, RealizedRPS: 100, P99: 5},
	)

	analysis := NewBottleneckAnalyzer(DefaultDiagnosisConfig()).Diagnose("svc", an)

	if len(analysis.Bottlenecks) != 1 || analysis.Bottlenecks[0].Type != BottleneckHeadroom {
		t.Fatalf("expected a single headroom note, got %+v", analysis.Bottlenecks)
	}
	if analysis.HealthScore != 98 {
		t.Errorf("expected 98, got %.0f", analysis.HealthScore)
	}

	report := analysis.GenerateReport()
	if !strings.Contains(report, "no step saturated up to 100 RPS") {
		t.Errorf("report missing headroom note:\n%s", report)
	}
	if !strings.Contains(analysis.Summary, "1 info") {
		t.Errorf("unexpected summary %q", analysis.Summary)
	}
}
