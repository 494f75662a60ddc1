package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/FairForge/loadverdict/internal/common"
	"github.com/FairForge/loadverdict/internal/loadtest"
	"github.com/FairForge/loadverdict/internal/metrics"
	"github.com/FairForge/loadverdict/internal/reporting"
)

// Saturation flags
const (
	FlagCSV             = "csv"
	FlagName            = "name"
	FlagFramework       = "framework"
	FlagWarmup          = "warmup"
	FlagStepDuration    = "step-duration"
	FlagRampDuration    = "ramp-duration"
	FlagStartRPS        = "start-rps"
	FlagStepRPS         = "step-rps"
	FlagErrThreshold    = "err-threshold"
	FlagP99Threshold    = "p99-threshold"
	FlagCurrentRPS      = "current-rps"
	FlagOutputDir       = "output-dir"
	FlagMetricsTextfile = "metrics-textfile"
	FlagCharts          = "charts"
)

// publishTimeout bounds the upload step after local outputs exist.
const publishTimeout = 2 * time.Minute

type saturationOptions struct {
	csvPath    string
	name       string
	plan       loadtest.StepPlan
	thresholds loadtest.Thresholds
	currentRPS float64
	outputDir  string
	textfile   bool
	charts     bool
}

func (a *app) saturationCommand() *cobra.Command {
	o := &saturationOptions{
		plan:       loadtest.DefaultStepPlan(),
		thresholds: loadtest.DefaultThresholds(),
	}

	cmd := &cobra.Command{
		Use:   CmdSaturation,
		Short: "Report the highest sustainable rate of a stepped k6 run",
		Long: `Reads a k6 CSV export (plain, .gz or .zst), maps every second onto the
stepped load profile and classifies each step against the error and p99
thresholds.

Exit status is 2 when no step stayed within the thresholds.`,
		Example: `  loadverdict saturation --csv results/saturation_gin.csv --name gin
  loadverdict saturation --csv run.csv.zst --step-rps 500 --p99-threshold 250 --charts`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a.applySaturationFlags(cmd, o)
			if err := a.cfg.Validate(); err != nil {
				return err
			}
			return a.runSaturation(cmd.Context(), o)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&o.csvPath, FlagCSV, "", "k6 CSV export (--out csv=...)")
	flags.StringVar(&o.name, FlagName, "", "service name used in output file names")
	flags.StringVar(&o.name, FlagFramework, "", "alias of --name")
	flags.Int64Var(&o.plan.Warmup, FlagWarmup, o.plan.Warmup, "warm-up seconds before the first step")
	flags.Int64Var(&o.plan.StepDuration, FlagStepDuration, o.plan.StepDuration, "hold seconds of each step")
	flags.Int64Var(&o.plan.RampDuration, FlagRampDuration, o.plan.RampDuration, "ramp seconds between steps")
	flags.IntVar(&o.plan.StartRPS, FlagStartRPS, o.plan.StartRPS, "target rate of the first step")
	flags.IntVar(&o.plan.StepRPS, FlagStepRPS, o.plan.StepRPS, "target rate increment per step")
	flags.Float64Var(&o.thresholds.ErrorPct, FlagErrThreshold, o.thresholds.ErrorPct, "error percentage at which a step is saturated")
	flags.Float64Var(&o.thresholds.P99Ms, FlagP99Threshold, o.thresholds.P99Ms, "p99 milliseconds at which a step is saturated")
	flags.Float64Var(&o.currentRPS, FlagCurrentRPS, 0, "production rate to compute capacity headroom for")
	flags.StringVar(&o.outputDir, FlagOutputDir, ".", "directory for written artifacts")
	flags.BoolVar(&o.textfile, FlagMetricsTextfile, false, "write a Prometheus textfile next to the report")
	flags.BoolVar(&o.charts, FlagCharts, false, "render text charts under charts/")
	_ = flags.MarkHidden(FlagFramework)
	_ = cmd.MarkFlagRequired(FlagCSV)

	return cmd
}

// applySaturationFlags layers explicitly set flags over the loaded config.
func (a *app) applySaturationFlags(cmd *cobra.Command, o *saturationOptions) {
	flags := cmd.Flags()
	cfg := a.cfg

	if changed(flags, FlagWarmup) {
		cfg.Saturation.Plan.Warmup = o.plan.Warmup
	}
	if changed(flags, FlagStepDuration) {
		cfg.Saturation.Plan.StepDuration = o.plan.StepDuration
	}
	if changed(flags, FlagRampDuration) {
		cfg.Saturation.Plan.RampDuration = o.plan.RampDuration
	}
	if changed(flags, FlagStartRPS) {
		cfg.Saturation.Plan.StartRPS = o.plan.StartRPS
	}
	if changed(flags, FlagStepRPS) {
		cfg.Saturation.Plan.StepRPS = o.plan.StepRPS
	}
	if changed(flags, FlagErrThreshold) {
		cfg.Saturation.Thresholds.ErrorPct = o.thresholds.ErrorPct
	}
	if changed(flags, FlagP99Threshold) {
		cfg.Saturation.Thresholds.P99Ms = o.thresholds.P99Ms
	}
	if changed(flags, FlagOutputDir) {
		cfg.Output.Dir = o.outputDir
	}
	if changed(flags, FlagMetricsTextfile) {
		cfg.Output.MetricsTextfile = o.textfile
	}
	if changed(flags, FlagCharts) {
		cfg.Reporting.Charts = o.charts
	}
}

func (a *app) runSaturation(ctx context.Context, o *saturationOptions) error {
	cfg := a.cfg
	log := a.logger.With(zap.String("csv", o.csvPath))

	log.Info("reading trace")
	trace, err := loadtest.LoadK6CSV(o.csvPath)
	if err != nil {
		return err
	}
	if trace.Skipped > 0 {
		log.Debug("rows skipped", zap.Int("skipped", trace.Skipped))
	}

	analysis, err := loadtest.Analyze(trace, cfg.Saturation.Plan, cfg.Saturation.Thresholds)
	if err != nil {
		return err
	}
	log.Info("trace mapped",
		zap.Int64("span_s", analysis.Span()),
		zap.Int("windows", analysis.Windows),
		zap.Int("steps", len(analysis.Stats)),
	)

	diag := loadtest.NewBottleneckAnalyzer(cfg.Saturation.Diagnosis).Diagnose(o.name, analysis)
	view := reporting.NewSaturationView(o.name, analysis, diag)

	// Build every artifact before the first write.
	var artifacts []reporting.Artifact
	if o.name != "" {
		csvOut, err := reporting.SaturationCSV(view)
		if err != nil {
			return err
		}
		report, err := reporting.NewReportGenerator().GenerateSaturation(o.name, analysis, diag)
		if err != nil {
			return err
		}
		jsonOut, err := reporting.Export(report, reporting.FormatJSON)
		if err != nil {
			return err
		}
		artifacts = append(artifacts,
			reporting.Artifact{Name: reporting.SaturationCSVName(o.name), Data: csvOut},
			reporting.Artifact{Name: reporting.SaturationJSONName(o.name), Data: jsonOut},
		)
	}
	renderer := reporting.SelectRenderer(reporting.Capabilities{Charts: cfg.Reporting.Charts})
	artifacts = append(artifacts, renderer.Saturation(view)...)

	_, _ = fmt.Fprint(a.stdout, reporting.StepTable(view, a.useColor()))
	_, _ = fmt.Fprintln(a.stdout)
	_, _ = fmt.Fprint(a.stdout, diag.GenerateReport())

	if o.currentRPS > 0 {
		planner := loadtest.NewCapacityPlanner(loadtest.BuildModelFromAnalysis(o.name, analysis))
		_, _ = fmt.Fprintln(a.stdout)
		_, _ = fmt.Fprint(a.stdout, planner.GenerateHeadroomReport(planner.CalculateHeadroom(o.currentRPS)))
	}

	paths, err := reporting.WriteArtifacts(cfg.Output.Dir, artifacts)
	if err != nil {
		return err
	}
	for _, p := range paths {
		log.Info("artifact written", zap.String("path", p))
	}

	if cfg.Output.MetricsTextfile {
		m := metrics.New()
		m.ObserveAnalysis(serviceLabel(o.name), analysis, diag)
		path := filepath.Join(cfg.Output.Dir, textfileName(o.name))
		if err := m.WriteTextfile(path); err != nil {
			return err
		}
		log.Info("metrics textfile written", zap.String("path", path))
		paths = append(paths, path)
	}

	pctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := a.publishArtifacts(pctx, paths); err != nil {
		return err
	}

	rps, ok := analysis.Verdict.SustainableRPS()
	if !ok {
		return fmt.Errorf("saturation: %w: every step breached err %.2f%% or p99 %.0fms",
			common.ErrNoSustainable, cfg.Saturation.Thresholds.ErrorPct, cfg.Saturation.Thresholds.P99Ms)
	}
	_, _ = fmt.Fprintf(a.stdout, "\nRPS_MAX_SUSTAINABLE=%d\n", rps)
	return nil
}

func serviceLabel(name string) string {
	if name == "" {
		return "unknown"
	}
	return name
}

func textfileName(name string) string {
	if name == "" {
		return "saturation.prom"
	}
	return fmt.Sprintf("saturation_%s.prom", name)
}
