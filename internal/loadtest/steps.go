package loadtest

import (
	"errors"
)

// Safety bounds on step generation.
const (
	MaxStepIncrements  = 100    // at most StartRPS + 100*StepRPS
	AbsoluteRPSCeiling = 100000 // hard stop regardless of configuration
)

// StepPlan describes the temporal profile the load generator followed.
// Durations are in whole seconds.
type StepPlan struct {
	Warmup       int64 `json:"warmup_s" yaml:"warmup_s"` // initial ramp to StartRPS, never measured
	StepDuration int64 `json:"step_duration_s" yaml:"step_duration_s"`
	RampDuration int64 `json:"ramp_duration_s" yaml:"ramp_duration_s"` // transition between holds, never measured
	StartRPS     int   `json:"start_rps" yaml:"start_rps"`
	StepRPS      int   `json:"step_rps" yaml:"step_rps"` // increment between consecutive steps
}

// DefaultStepPlan matches the stepped k6 scenario used by the benchmark scripts.
func DefaultStepPlan() StepPlan {
	return StepPlan{
		Warmup:       10,
		StepDuration: 30,
		RampDuration: 2,
		StartRPS:     200,
		StepRPS:      200,
	}
}

// Validate checks the plan can produce a strictly increasing step sequence.
func (p StepPlan) Validate() error {
	if p.StepDuration <= 0 {
		return errors.New("loadtest: step duration must be positive")
	}
	if p.Warmup < 0 {
		return errors.New("loadtest: warmup must not be negative")
	}
	if p.RampDuration < 0 {
		return errors.New("loadtest: ramp duration must not be negative")
	}
	if p.StartRPS <= 0 {
		return errors.New("loadtest: start rps must be positive")
	}
	if p.StepRPS <= 0 {
		return errors.New("loadtest: step rps must be positive")
	}
	return nil
}

// Ceiling returns the highest target rate PlanSteps will emit after step 0.
func (p StepPlan) Ceiling() int {
	return min(p.StartRPS+MaxStepIncrements*p.StepRPS, AbsoluteRPSCeiling)
}

// StepProfile is one planned load step and the closed interval [Start, End]
// of absolute seconds it owns.
type StepProfile struct {
	Index     int
	TargetRPS int
	Start     int64
	End       int64
}

// PlanSteps lays the plan over a trace spanning [tMin, tMax].
//
// Step 0 covers [tMin+Warmup, tMin+Warmup+StepDuration] and is always planned.
// Each later step starts RampDuration seconds after the previous one ends.
// The number of steps is derived from the captured span rather than from wall
// clock offsets, so small drift in the generator does not shift later windows:
// generation stops once the step index reaches the number of whole
// (StepDuration+RampDuration) periods in the span, or the target rate would
// pass Ceiling.
func PlanSteps(plan StepPlan, tMin, tMax int64) []StepProfile {
	period := plan.StepDuration + plan.RampDuration
	var periods int64
	if period > 0 && tMax > tMin {
		periods = (tMax - tMin) / period
	}

	offset := plan.Warmup
	steps := []StepProfile{{
		Index:     0,
		TargetRPS: plan.StartRPS,
		Start:     tMin + offset,
		End:       tMin + offset + plan.StepDuration,
	}}
	offset += plan.StepDuration

	ceiling := plan.Ceiling()
	for k := 1; int64(k) < periods; k++ {
		target := plan.StartRPS + k*plan.StepRPS
		if target > ceiling {
			break
		}

		offset += plan.RampDuration
		steps = append(steps, StepProfile{
			Index:     k,
			TargetRPS: target,
			Start:     tMin + offset,
			End:       tMin + offset + plan.StepDuration,
		})
		offset += plan.StepDuration
	}

	return steps
}
