package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/FairForge/loadverdict/internal/common"
	"github.com/FairForge/loadverdict/internal/efficiency"
	"github.com/FairForge/loadverdict/internal/loadtest"
	"github.com/FairForge/loadverdict/internal/publish"
)

type Config struct {
	Saturation SaturationConfig `yaml:"saturation"`
	Efficiency EfficiencyConfig `yaml:"efficiency"`
	Output     OutputConfig     `yaml:"output"`
	Reporting  ReportingConfig  `yaml:"reporting"`
	Publish    publish.Config   `yaml:"publish"`
	Log        LogConfig        `yaml:"log"`
}

type SaturationConfig struct {
	Plan       loadtest.StepPlan        `yaml:"plan"`
	Thresholds loadtest.Thresholds      `yaml:"thresholds"`
	Diagnosis  loadtest.DiagnosisConfig `yaml:"diagnosis"`
}

type EfficiencyConfig struct {
	ResultsDir     string  `yaml:"results_dir"`
	BaselinePowerW float64 `yaml:"baseline_power_w"` // overrides baseline.json when > 0
	HourlyCostUSD  float64 `yaml:"hourly_cost_usd"`
}

type OutputConfig struct {
	Dir             string `yaml:"dir"`
	MetricsTextfile bool   `yaml:"metrics_textfile"`
}

type ReportingConfig struct {
	Charts bool   `yaml:"charts"`
	Color  string `yaml:"color"` // auto, always or never
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // console or json
}

// Default returns the configuration used when no file or environment
// overrides are present.
func Default() *Config {
	return &Config{
		Saturation: SaturationConfig{
			Plan:       loadtest.DefaultStepPlan(),
			Thresholds: loadtest.DefaultThresholds(),
			Diagnosis:  loadtest.DefaultDiagnosisConfig(),
		},
		Efficiency: EfficiencyConfig{
			ResultsDir:    "results",
			HourlyCostUSD: efficiency.DefaultHourlyCostUSD,
		},
		Output:    OutputConfig{Dir: "."},
		Reporting: ReportingConfig{Color: "auto"},
		Log:       LogConfig{Level: "info", Format: "console"},
	}
}

// Load reads a YAML file over the defaults. An empty path returns the
// defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config: %s: %w", path, common.ErrInputMissing)
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Validate returns the first problem found.
func (c *Config) Validate() error {
	if err := c.Saturation.Plan.Validate(); err != nil {
		return fmt.Errorf("config: saturation.plan: %w", err)
	}
	if err := c.Saturation.Thresholds.Validate(); err != nil {
		return fmt.Errorf("config: saturation.thresholds: %w", err)
	}
	if r := c.Saturation.Diagnosis.MinDeliveryRatio; r < 0 || r > 1 {
		return fmt.Errorf("config: saturation.diagnosis.min_delivery_ratio must be within [0, 1]")
	}
	if c.Efficiency.HourlyCostUSD <= 0 {
		return fmt.Errorf("config: efficiency.hourly_cost_usd must be positive")
	}
	if c.Efficiency.BaselinePowerW < 0 {
		return fmt.Errorf("config: efficiency.baseline_power_w must not be negative")
	}
	if c.Output.Dir == "" {
		return fmt.Errorf("config: output.dir is required")
	}
	switch c.Reporting.Color {
	case "auto", "always", "never":
	default:
		return fmt.Errorf("config: reporting.color must be auto, always or never")
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("config: log.format must be console or json")
	}
	if err := c.Publish.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// EfficiencyOptions converts the efficiency section for efficiency.Compute.
func (c *Config) EfficiencyOptions() efficiency.Options {
	return efficiency.Options{
		BaselinePowerW: c.Efficiency.BaselinePowerW,
		HourlyCostUSD:  c.Efficiency.HourlyCostUSD,
	}
}
