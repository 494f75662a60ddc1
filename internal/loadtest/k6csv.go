package loadtest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/FairForge/loadverdict/internal/common"
)

// k6 CSV column names
const (
	ColumnMetricName  = "metric_name"
	ColumnTimestamp   = "timestamp"
	ColumnMetricValue = "metric_value"
)

// K6Reader reads the flat event log written by `k6 run --out csv=...`.
// Columns are located by header name; extra columns are ignored.
type K6Reader struct {
	r        *csv.Reader
	closers  []io.Closer
	idxName  int
	idxTS    int
	idxValue int
}

// NewK6Reader reads the header from r. An input without a header row is
// reported as common.ErrInputEmpty.
func NewK6Reader(r io.Reader) (*K6Reader, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("loadtest: k6 csv has no header: %w", common.ErrInputEmpty)
	}
	if err != nil {
		return nil, fmt.Errorf("loadtest: read k6 csv header: %w", err)
	}

	k := &K6Reader{r: cr, idxName: -1, idxTS: -1, idxValue: -1}
	for i, col := range header {
		switch strings.TrimSpace(strings.TrimPrefix(col, "\ufeff")) {
		case ColumnMetricName:
			k.idxName = i
		case ColumnTimestamp:
			k.idxTS = i
		case ColumnMetricValue:
			k.idxValue = i
		}
	}

	var missing []string
	if k.idxName < 0 {
		missing = append(missing, ColumnMetricName)
	}
	if k.idxTS < 0 {
		missing = append(missing, ColumnTimestamp)
	}
	if k.idxValue < 0 {
		missing = append(missing, ColumnMetricValue)
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("loadtest: k6 csv header lacks columns %s", strings.Join(missing, ", "))
	}

	return k, nil
}

// OpenK6CSV opens a k6 CSV file. Names ending in .gz or .zst are decompressed
// on the fly. A missing file is reported as common.ErrInputMissing.
func OpenK6CSV(path string) (*K6Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("loadtest: %s: %w", path, common.ErrInputMissing)
		}
		return nil, fmt.Errorf("loadtest: open %s: %w", path, err)
	}

	closers := []io.Closer{f}
	var src io.Reader = f

	switch {
	case strings.HasSuffix(path, ".gz"):
		gz, err := gzip.NewReader(f)
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("loadtest: gzip %s: %w", path, err)
		}
		closers = append(closers, gz)
		src = gz
	case strings.HasSuffix(path, ".zst"):
		dec, err := zstd.NewReader(f, zstd.WithDecoderConcurrency(1))
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("loadtest: zstd %s: %w", path, err)
		}
		rc := dec.IOReadCloser()
		closers = append(closers, rc)
		src = rc
	}

	k, err := NewK6Reader(src)
	if err != nil {
		_ = closeAll(closers)
		return nil, err
	}
	k.closers = closers
	return k, nil
}

// Next implements RowSource.
func (k *K6Reader) Next() (Row, error) {
	rec, err := k.r.Read()
	if err == io.EOF {
		return Row{}, io.EOF
	}
	if err != nil {
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			return Row{}, fmt.Errorf("%w: %v", ErrMalformedRow, perr)
		}
		return Row{}, err
	}

	return Row{
		Metric:    field(rec, k.idxName),
		Timestamp: field(rec, k.idxTS),
		Value:     field(rec, k.idxValue),
	}, nil
}

// Close releases the underlying file and decompressor.
func (k *K6Reader) Close() error {
	return closeAll(k.closers)
}

// LoadK6CSV opens, ingests and closes a k6 CSV file.
func LoadK6CSV(path string) (*Trace, error) {
	k, err := OpenK6CSV(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = k.Close() }()

	return Ingest(k)
}

func field(rec []string, idx int) string {
	if idx < len(rec) {
		return rec[idx]
	}
	return ""
}

// closeAll closes in reverse order and returns the first error.
func closeAll(closers []io.Closer) error {
	var first error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
