package loadtest

import (
	"errors"
	"fmt"

	"github.com/FairForge/loadverdict/internal/common"
)

// Thresholds are the acceptability limits a step must stay under.
type Thresholds struct {
	ErrorPct float64 `json:"err_pct" yaml:"err_pct"` // percent, e.g. 1.0
	P99Ms    float64 `json:"p99_ms" yaml:"p99_ms"`
}

// DefaultThresholds returns 1% errors and a 1000ms p99.
func DefaultThresholds() Thresholds {
	return Thresholds{ErrorPct: 1.0, P99Ms: 1000}
}

// Validate rejects thresholds that no step could ever satisfy.
func (t Thresholds) Validate() error {
	if t.ErrorPct <= 0 {
		return errors.New("loadtest: error threshold must be positive")
	}
	if t.P99Ms <= 0 {
		return errors.New("loadtest: p99 threshold must be positive")
	}
	return nil
}

// Breached reports whether either dimension reached its limit.
func (t Thresholds) Breached(s StepStats) bool {
	return s.ErrorPct >= t.ErrorPct || s.P99 >= t.P99Ms
}

// StepStatus is the presentation classification of one step.
type StepStatus string

const (
	StatusOK        StepStatus = "OK"
	StatusWarn      StepStatus = "WARN"
	StatusSaturated StepStatus = "SATURATED"
)

// Warning fractions of each threshold.
const (
	warnErrorFraction = 0.5
	warnP99Fraction   = 0.7
)

// Classify returns SATURATED for a breach, WARN when the step is within half
// the error limit or 70% of the p99 limit, OK otherwise.
func (t Thresholds) Classify(s StepStats) StepStatus {
	if t.Breached(s) {
		return StatusSaturated
	}
	if s.ErrorPct >= t.ErrorPct*warnErrorFraction || s.P99 >= t.P99Ms*warnP99Fraction {
		return StatusWarn
	}
	return StatusOK
}

// Verdict is the outcome of scanning the step sequence.
//
// LastOK is the last compliant step in sequence order. It is overwritten by
// every later compliant step, including one that recovers after an earlier
// step saturated, so it is not a search for the highest compliant rate.
// FirstSaturated is the first breaching step and is never overwritten.
// Either may be nil.
type Verdict struct {
	LastOK         *StepStats
	FirstSaturated *StepStats
}

// Detect scans stats in order and builds the verdict.
func Detect(stats []StepStats, t Thresholds) Verdict {
	var v Verdict
	for i := range stats {
		s := &stats[i]
		if t.Breached(*s) {
			if v.FirstSaturated == nil {
				v.FirstSaturated = s
			}
			continue
		}
		v.LastOK = s
	}
	return v
}

// SustainableRPS returns the LastOK target rate.
func (v Verdict) SustainableRPS() (int, bool) {
	if v.LastOK == nil {
		return 0, false
	}
	return v.LastOK.TargetRPS, true
}

// SaturationRPS returns the FirstSaturated target rate.
func (v Verdict) SaturationRPS() (int, bool) {
	if v.FirstSaturated == nil {
		return 0, false
	}
	return v.FirstSaturated.TargetRPS, true
}

// IsMaxSustainable reports whether s carries the sustainable target rate.
func (v Verdict) IsMaxSustainable(s StepStats) bool {
	return v.LastOK != nil && s.TargetRPS == v.LastOK.TargetRPS
}

// IsSaturationPoint reports whether s is the first saturated step.
func (v Verdict) IsSaturationPoint(s StepStats) bool {
	return v.FirstSaturated != nil && s.Index == v.FirstSaturated.Index
}

// Analysis is the full result of one saturation run.
type Analysis struct {
	Plan       StepPlan
	Thresholds Thresholds
	TMin       int64
	TMax       int64
	Windows    int // seconds carrying data
	Skipped    int // rows dropped during ingestion
	Steps      []StepProfile
	Stats      []StepStats
	Verdict    Verdict
}

// Span returns the captured duration in seconds.
func (a *Analysis) Span() int64 {
	return a.TMax - a.TMin
}

// Analyze maps the trace onto the plan, aggregates each step and detects the
// saturation point. It fails with common.ErrMappingFailure when no planned
// step holds any duration sample.
func Analyze(trace *Trace, plan StepPlan, t Thresholds) (*Analysis, error) {
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}

	tMin, tMax, ok := trace.Bounds()
	if !ok {
		return nil, fmt.Errorf("loadtest: empty trace: %w", common.ErrInputEmpty)
	}

	steps := PlanSteps(plan, tMin, tMax)
	stats := Aggregate(trace, steps, plan.StepDuration)
	if len(stats) == 0 {
		return nil, fmt.Errorf("loadtest: %d planned steps over a %ds trace, none with duration samples; check warmup, step duration and ramp duration: %w",
			len(steps), tMax-tMin, common.ErrMappingFailure)
	}

	return &Analysis{
		Plan:       plan,
		Thresholds: t,
		TMin:       tMin,
		TMax:       tMax,
		Windows:    trace.Len(),
		Skipped:    trace.Skipped,
		Steps:      steps,
		Stats:      stats,
		Verdict:    Detect(stats, t),
	}, nil
}
