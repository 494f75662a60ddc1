package efficiency

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// BaselineFile holds the idle power draw measured before the runs.
const BaselineFile = "baseline.json"

// baselineSchema accepts {"power_watts": <non-negative number>} plus any
// extra fields the harness records.
const baselineSchema = `{
  "type": "object",
  "properties": {
    "power_watts": {"type": "number", "minimum": 0}
  },
  "required": ["power_watts"]
}`

// BaselineSource says where the baseline power came from.
type BaselineSource string

const (
	BaselineFromFlag BaselineSource = "flag"
	BaselineFromFile BaselineSource = "file"
	BaselineNone     BaselineSource = "none"
)

// Baseline is the idle power subtracted from each variant's draw.
type Baseline struct {
	PowerW float64        `json:"power_watts"`
	Source BaselineSource `json:"source"`
}

// LoadBaselinePower resolves the baseline: a positive override wins, then
// dir/baseline.json, otherwise zero.
func LoadBaselinePower(dir string, override float64) (Baseline, error) {
	if override > 0 {
		return Baseline{PowerW: override, Source: BaselineFromFlag}, nil
	}

	path := filepath.Join(dir, BaselineFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Baseline{Source: BaselineNone}, nil
		}
		return Baseline{}, fmt.Errorf("efficiency: read %s: %w", path, err)
	}

	power, err := ParseBaseline(data)
	if err != nil {
		return Baseline{}, fmt.Errorf("efficiency: %s: %w", path, err)
	}
	return Baseline{PowerW: power, Source: BaselineFromFile}, nil
}

// ParseBaseline validates a baseline document and returns its power.
func ParseBaseline(data []byte) (float64, error) {
	schemaLoader := gojsonschema.NewStringLoader(baselineSchema)
	documentLoader := gojsonschema.NewBytesLoader(data)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return 0, fmt.Errorf("schema validation error: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return 0, fmt.Errorf("invalid baseline: %s", strings.Join(msgs, "; "))
	}

	var doc struct {
		PowerWatts float64 `json:"power_watts"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return 0, fmt.Errorf("decode baseline: %w", err)
	}
	return doc.PowerWatts, nil
}
