// Package efficiency compares repeated benchmark runs of several service
// variants on throughput, energy and cost.
package efficiency

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/FairForge/loadverdict/internal/common"
)

// SummaryFile is the per-run summary written by the benchmark harness.
const SummaryFile = "summary.csv"

// RunRecord is one row of summary.csv.
type RunRecord struct {
	Variant      string
	Run          int
	RPS          float64
	P50          float64 // ms
	P95          float64 // ms
	P99          float64 // ms
	ErrorRate    float64 // percent
	EnergyMicroJ float64
	ElapsedMs    float64
	PowerW       float64
	CPUPct       float64
	MemMB        float64
}

// RunSet groups records by variant, keeping first-seen variant order.
type RunSet struct {
	Variants []string
	Runs     map[string][]RunRecord
	Skipped  int // rows that could not be parsed
}

// NewRunSet returns an empty set.
func NewRunSet() *RunSet {
	return &RunSet{Runs: make(map[string][]RunRecord)}
}

// Add appends a record under its variant.
func (s *RunSet) Add(r RunRecord) {
	if _, ok := s.Runs[r.Variant]; !ok {
		s.Variants = append(s.Variants, r.Variant)
	}
	s.Runs[r.Variant] = append(s.Runs[r.Variant], r)
}

// Len returns the number of records.
func (s *RunSet) Len() int {
	var n int
	for _, runs := range s.Runs {
		n += len(runs)
	}
	return n
}

// summary.csv columns; "variant" is accepted in place of "framework".
var summaryColumns = []string{
	"framework", "run", "rps", "p50_ms", "p95_ms", "p99_ms",
	"error_rate", "energy_uj", "elapsed_ms", "power_watts", "cpu_pct", "mem_mb",
}

// LoadSummary reads summary.csv. A missing file is common.ErrInputMissing;
// a file without any parseable row is common.ErrInputEmpty.
func LoadSummary(path string) (*RunSet, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("efficiency: %s: %w", path, common.ErrInputMissing)
		}
		return nil, fmt.Errorf("efficiency: open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	return ReadSummary(f)
}

// ReadSummary parses summary rows from r.
func ReadSummary(r io.Reader) (*RunSet, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("efficiency: summary has no header: %w", common.ErrInputEmpty)
	}
	if err != nil {
		return nil, fmt.Errorf("efficiency: read summary header: %w", err)
	}

	idx := make(map[string]int, len(header))
	for i, col := range header {
		name := strings.TrimSpace(strings.TrimPrefix(col, "\ufeff"))
		if name == "variant" {
			name = "framework"
		}
		idx[name] = i
	}
	for _, col := range summaryColumns {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("efficiency: summary header lacks column %q", col)
		}
	}

	set := NewRunSet()
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				set.Skipped++
				continue
			}
			return nil, fmt.Errorf("efficiency: read summary: %w", err)
		}

		run, ok := parseRunRecord(rec, idx)
		if !ok {
			set.Skipped++
			continue
		}
		set.Add(run)
	}

	if set.Len() == 0 {
		return nil, fmt.Errorf("efficiency: summary has no usable rows: %w", common.ErrInputEmpty)
	}
	return set, nil
}

func parseRunRecord(rec []string, idx map[string]int) (RunRecord, bool) {
	get := func(col string) string {
		if i := idx[col]; i < len(rec) {
			return strings.TrimSpace(rec[i])
		}
		return ""
	}

	r := RunRecord{Variant: get("framework")}
	if r.Variant == "" {
		return RunRecord{}, false
	}

	run, err := strconv.Atoi(get("run"))
	if err != nil {
		return RunRecord{}, false
	}
	r.Run = run

	fields := []struct {
		col string
		dst *float64
	}{
		{"rps", &r.RPS},
		{"p50_ms", &r.P50},
		{"p95_ms", &r.P95},
		{"p99_ms", &r.P99},
		{"error_rate", &r.ErrorRate},
		{"energy_uj", &r.EnergyMicroJ},
		{"elapsed_ms", &r.ElapsedMs},
		{"power_watts", &r.PowerW},
		{"cpu_pct", &r.CPUPct},
		{"mem_mb", &r.MemMB},
	}
	for _, fld := range fields {
		v, err := strconv.ParseFloat(get(fld.col), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return RunRecord{}, false
		}
		*fld.dst = v
	}

	return r, true
}
