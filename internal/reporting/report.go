// internal/reporting/report.go
package reporting

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/FairForge/loadverdict/internal/efficiency"
	"github.com/FairForge/loadverdict/internal/loadtest"
)

// Report types
const (
	ReportTypeSaturation = "saturation"
	ReportTypeEfficiency = "efficiency"
)

// Export formats
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
	FormatText = "text"
)

// ReportConfig configures a report
type ReportConfig struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Validate checks configuration
func (c *ReportConfig) Validate() error {
	if c.Name == "" {
		return errors.New("report: name is required")
	}
	switch c.Type {
	case ReportTypeSaturation, ReportTypeEfficiency:
		return nil
	default:
		return fmt.Errorf("report: unknown type %q", c.Type)
	}
}

// Report is the identified envelope written as JSON.
type Report struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Type      string      `json:"type"`
	CreatedAt time.Time   `json:"created_at"`
	Data      interface{} `json:"data"`
}

// ReportGenerator stamps reports with an ID and creation time.
type ReportGenerator struct {
	now   func() time.Time
	newID func() string
}

// NewReportGenerator creates a report generator
func NewReportGenerator() *ReportGenerator {
	return &ReportGenerator{
		now:   func() time.Time { return time.Now().UTC() },
		newID: func() string { return uuid.New().String() },
	}
}

// GenerateSaturation wraps a saturation analysis.
func (g *ReportGenerator) GenerateSaturation(name string, a *loadtest.Analysis, diag *loadtest.BottleneckAnalysis) (*Report, error) {
	return g.generate(&ReportConfig{Name: name, Type: ReportTypeSaturation}, NewSaturationView(name, a, diag))
}

// GenerateEfficiency wraps an efficiency comparison.
func (g *ReportGenerator) GenerateEfficiency(name string, r *efficiency.Report) (*Report, error) {
	return g.generate(&ReportConfig{Name: name, Type: ReportTypeEfficiency}, NewEfficiencyView(r))
}

func (g *ReportGenerator) generate(config *ReportConfig, data interface{}) (*Report, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Report{
		ID:        g.newID(),
		Name:      config.Name,
		Type:      config.Type,
		CreatedAt: g.now(),
		Data:      data,
	}, nil
}

// Export renders a report in the given format.
func Export(report *Report, format string) ([]byte, error) {
	switch format {
	case FormatJSON:
		out, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(out, '\n'), nil
	case FormatCSV:
		switch data := report.Data.(type) {
		case *SaturationView:
			return SaturationCSV(data)
		case *EfficiencyView:
			return EfficiencyCSV(data)
		}
		return nil, fmt.Errorf("report: no csv form for %s", report.Type)
	case FormatText:
		switch data := report.Data.(type) {
		case *SaturationView:
			return []byte(StepTable(data, false)), nil
		case *EfficiencyView:
			return []byte(EfficiencyText(data, false)), nil
		}
		return nil, fmt.Errorf("report: no text form for %s", report.Type)
	default:
		return nil, fmt.Errorf("report: unknown format %q", format)
	}
}
