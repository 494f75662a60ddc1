// Package cli wires the analysis pipelines into the loadverdict command tree.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/FairForge/loadverdict/internal/config"
	"github.com/FairForge/loadverdict/internal/logger"
	"github.com/FairForge/loadverdict/internal/publish"
)

// Command names
const (
	CmdRoot       = "loadverdict"
	CmdSaturation = "saturation"
	CmdEfficiency = "efficiency"
	CmdVersion    = "version"
)

// Global flags
const (
	FlagConfig    = "config"
	FlagLogLevel  = "log-level"
	FlagLogFormat = "log-format"
)

// publisherFactory builds the artifact publisher; replaced in tests.
type publisherFactory func(ctx context.Context, cfg publish.Config, log *zap.Logger) (publish.Publisher, error)

// app is the state shared by every subcommand of one invocation.
type app struct {
	configPath string
	logLevel   string
	logFormat  string

	cfg    *config.Config
	logger *zap.Logger

	stdout       io.Writer
	stderr       io.Writer
	isTerminal   func(w io.Writer) bool
	newPublisher publisherFactory
}

// NewRootCommand builds the command tree writing reports to stdout and
// diagnostics to stderr.
func NewRootCommand(stdout, stderr io.Writer) *cobra.Command {
	a := &app{
		stdout:       stdout,
		stderr:       stderr,
		isTerminal:   isTerminal,
		newPublisher: publish.New,
	}
	return a.rootCommand()
}

func (a *app) rootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   CmdRoot,
		Short: "Find the saturation point of a stepped load test and compare variant efficiency",
		Long: `loadverdict turns captured load-test output into verdicts.

  saturation  maps a k6 CSV trace onto its stepped load profile and reports
              the highest sustainable request rate
  efficiency  compares benchmarked variants by throughput, RPS per watt and
              RPS per hourly dollar

Settings are resolved from defaults, then --config, then LOADVERDICT_*
environment variables, then command line flags.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	cmd.SetOut(a.stdout)
	cmd.SetErr(a.stderr)

	flags := cmd.PersistentFlags()
	flags.StringVar(&a.configPath, FlagConfig, "", "YAML configuration file")
	flags.StringVar(&a.logLevel, FlagLogLevel, "", "log level: debug, info, warn or error")
	flags.StringVar(&a.logFormat, FlagLogFormat, "", "log format: console or json")

	cmd.AddCommand(
		a.saturationCommand(),
		a.efficiencyCommand(),
		a.versionCommand(),
	)
	return cmd
}

// setup loads configuration and the logger before any subcommand runs.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if cmd.Name() == CmdVersion {
		a.logger = zap.NewNop()
		return nil
	}

	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	config.LoadFromEnv(cfg)

	root := cmd.Root().PersistentFlags()
	if root.Changed(FlagLogLevel) {
		cfg.Log.Level = a.logLevel
	}
	if root.Changed(FlagLogFormat) {
		cfg.Log.Format = a.logFormat
	}

	log, err := logger.NewWithWriter(a.stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = log.With(zap.String("command", cmd.Name()))
	return nil
}

// changed reports whether name was set on the command line.
func changed(flags *pflag.FlagSet, name string) bool {
	f := flags.Lookup(name)
	return f != nil && f.Changed
}

// useColor resolves reporting.color against the destination writer.
func (a *app) useColor() bool {
	switch a.cfg.Reporting.Color {
	case "always":
		return true
	case "never":
		return false
	}
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return a.isTerminal(a.stdout)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// publishArtifacts uploads written files when a bucket is configured.
func (a *app) publishArtifacts(ctx context.Context, paths []string) error {
	if !a.cfg.Publish.Enabled() || len(paths) == 0 {
		return nil
	}
	p, err := a.newPublisher(ctx, a.cfg.Publish, a.logger)
	if err != nil {
		return err
	}
	keys, err := p.Publish(ctx, a.cfg.Output.Dir, paths)
	if err != nil {
		return err
	}
	a.logger.Info("artifacts published",
		zap.String("bucket", a.cfg.Publish.Bucket),
		zap.Int("objects", len(keys)),
	)
	return nil
}

// ExecuteContext runs args against a fresh command tree and prints any error
// to stderr. The returned error selects the exit status.
func ExecuteContext(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cmd := NewRootCommand(stdout, stderr)
	cmd.SetArgs(args)
	if err := cmd.ExecuteContext(ctx); err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return err
	}
	return nil
}
