// Package loadtest turns captured load-test telemetry into a load-capacity
// verdict.
//
// # Pipeline
//
// A stepped load test holds a constant target rate for StepDuration seconds,
// ramps for RampDuration seconds, then holds the next rate. The analysis runs
// in four stages over a complete, already captured trace:
//
//   - Ingest: k6 CSV rows are filtered to http_req_duration, http_req_failed
//     and http_reqs and bucketed per whole second (Trace).
//   - PlanSteps: the StepPlan is laid over the trace span to give each target
//     rate a closed interval of seconds (StepProfile).
//   - Aggregate: every bucket inside an interval is pooled into StepStats with
//     nearest-rank percentiles, error percentage and realized rate.
//   - Detect: each step is checked against Thresholds to produce a Verdict.
//
// # Quick Start
//
//	trace, err := loadtest.LoadK6CSV("results/saturation_gin.csv")
//	if err != nil {
//	    return err
//	}
//	analysis, err := loadtest.Analyze(trace, loadtest.DefaultStepPlan(), loadtest.DefaultThresholds())
//	if err != nil {
//	    return err
//	}
//	if rps, ok := analysis.Verdict.SustainableRPS(); ok {
//	    fmt.Printf("sustainable: %d req/s\n", rps)
//	}
//
// # Verdict semantics
//
// The verdict keeps the last compliant step in sequence order, not the
// highest compliant one. Target rates always increase, but compliance need
// not be monotonic: a step that passes after an earlier step saturated
// replaces LastOK. Consumers that need "highest rate below the first
// saturation" should compare LastOK against FirstSaturated themselves.
//
// # Capacity Planning
//
//	model := loadtest.BuildModelFromAnalysis("gin", analysis)
//	planner := loadtest.NewCapacityPlanner(model)
//	headroom := planner.CalculateHeadroom(450)
//	fmt.Println(planner.GenerateHeadroomReport(headroom))
package loadtest
