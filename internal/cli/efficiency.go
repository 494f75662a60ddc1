package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/FairForge/loadverdict/internal/efficiency"
	"github.com/FairForge/loadverdict/internal/metrics"
	"github.com/FairForge/loadverdict/internal/reporting"
)

// Efficiency flags
const (
	FlagResultsDir    = "results-dir"
	FlagBaselinePower = "baseline-power"
	FlagHourlyCost    = "hourly-cost"
)

// efficiencyReportName names the JSON envelope of the comparison.
const efficiencyReportName = "final"

type efficiencyOptions struct {
	resultsDir    string
	baselinePower float64
	hourlyCost    float64
	outputDir     string
	textfile      bool
	charts        bool
}

func (a *app) efficiencyCommand() *cobra.Command {
	o := &efficiencyOptions{}

	cmd := &cobra.Command{
		Use:   CmdEfficiency,
		Short: "Rank benchmarked variants by throughput, energy and cost",
		Long: `Reads summary.csv (one row per variant and run) and an optional
baseline.json from the results directory, then writes final_table.txt,
final_table.csv and final_report.json to the output directory.

A positive --baseline-power overrides baseline.json.`,
		Example: `  loadverdict efficiency --results-dir results --output-dir out
  loadverdict efficiency --results-dir results --baseline-power 4.2 --hourly-cost 0.0832 --output-dir out`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a.applyEfficiencyFlags(cmd, o)
			if err := a.cfg.Validate(); err != nil {
				return err
			}
			return a.runEfficiency(cmd.Context())
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&o.resultsDir, FlagResultsDir, "", "directory holding summary.csv and baseline.json")
	flags.Float64Var(&o.baselinePower, FlagBaselinePower, 0, "idle power in watts, overrides baseline.json")
	flags.Float64Var(&o.hourlyCost, FlagHourlyCost, efficiency.DefaultHourlyCostUSD, "instance price in USD per hour")
	flags.StringVar(&o.outputDir, FlagOutputDir, ".", "directory for written artifacts")
	flags.BoolVar(&o.textfile, FlagMetricsTextfile, false, "write a Prometheus textfile next to the report")
	flags.BoolVar(&o.charts, FlagCharts, false, "render text charts under charts/")

	return cmd
}

func (a *app) applyEfficiencyFlags(cmd *cobra.Command, o *efficiencyOptions) {
	flags := cmd.Flags()
	cfg := a.cfg

	if changed(flags, FlagResultsDir) {
		cfg.Efficiency.ResultsDir = o.resultsDir
	}
	if changed(flags, FlagBaselinePower) {
		cfg.Efficiency.BaselinePowerW = o.baselinePower
	}
	if changed(flags, FlagHourlyCost) {
		cfg.Efficiency.HourlyCostUSD = o.hourlyCost
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

func (a *app) runEfficiency(ctx context.Context) error {
	cfg := a.cfg
	resultsDir := cfg.Efficiency.ResultsDir
	log := a.logger.With(zap.String("results_dir", resultsDir))

	log.Info("loading runs")
	set, err := efficiency.LoadSummary(filepath.Join(resultsDir, efficiency.SummaryFile))
	if err != nil {
		return err
	}
	if set.Skipped > 0 {
		log.Warn("malformed summary rows skipped", zap.Int("skipped", set.Skipped))
	}

	baseline, err := efficiency.LoadBaselinePower(resultsDir, cfg.Efficiency.BaselinePowerW)
	if err != nil {
		return err
	}
	log.Info("baseline power",
		zap.Float64("watts", baseline.PowerW),
		zap.String("source", string(baseline.Source)),
	)

	report, err := efficiency.Analyze(set, baseline, cfg.Efficiency.HourlyCostUSD)
	if err != nil {
		return err
	}
	if report.Degraded() {
		log.Warn("no power readings for some variants, RPS/W uses the CPU proxy")
	}

	view := reporting.NewEfficiencyView(report)
	csvOut, err := reporting.EfficiencyCSV(view)
	if err != nil {
		return err
	}
	envelope, err := reporting.NewReportGenerator().GenerateEfficiency(efficiencyReportName, report)
	if err != nil {
		return err
	}
	jsonOut, err := reporting.Export(envelope, reporting.FormatJSON)
	if err != nil {
		return err
	}

	artifacts := []reporting.Artifact{
		{Name: reporting.FinalTableText, Data: []byte(reporting.EfficiencyText(view, false))},
		{Name: reporting.FinalTableCSV, Data: csvOut},
		{Name: reporting.FinalReport, Data: jsonOut},
	}
	renderer := reporting.SelectRenderer(reporting.Capabilities{Charts: cfg.Reporting.Charts})
	artifacts = append(artifacts, renderer.Efficiency(view)...)

	_, _ = fmt.Fprint(a.stdout, reporting.EfficiencyText(view, a.useColor()))

	paths, err := reporting.WriteArtifacts(cfg.Output.Dir, artifacts)
	if err != nil {
		return err
	}
	for _, p := range paths {
		log.Info("artifact written", zap.String("path", p))
	}

	if cfg.Output.MetricsTextfile {
		m := metrics.New()
		m.ObserveEfficiency(report)
		path := filepath.Join(cfg.Output.Dir, "efficiency.prom")
		if err := m.WriteTextfile(path); err != nil {
			return err
		}
		paths = append(paths, path)
	}

	pctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	return a.publishArtifacts(pctx, paths)
}
