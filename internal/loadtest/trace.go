package loadtest

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/FairForge/loadverdict/internal/common"
)

// MetricKind identifies one of the metric families used by the analysis.
type MetricKind int

const (
	KindUnknown  MetricKind = iota
	KindDuration            // http_req_duration, milliseconds
	KindFailed              // http_req_failed, 0 or 1
	KindRequests            // http_reqs, one row per completed request
)

// k6 metric names
const (
	MetricReqDuration = "http_req_duration"
	MetricReqFailed   = "http_req_failed"
	MetricReqs        = "http_reqs"
)

// ParseMetricKind resolves a raw metric name. Unrecognised names map to KindUnknown.
func ParseMetricKind(name string) MetricKind {
	switch strings.TrimSpace(name) {
	case MetricReqDuration:
		return KindDuration
	case MetricReqFailed:
		return KindFailed
	case MetricReqs:
		return KindRequests
	default:
		return KindUnknown
	}
}

func (k MetricKind) String() string {
	switch k {
	case KindDuration:
		return MetricReqDuration
	case KindFailed:
		return MetricReqFailed
	case KindRequests:
		return MetricReqs
	default:
		return "unknown"
	}
}

// ErrMalformedRow marks a single unreadable record. Ingest skips it.
var ErrMalformedRow = errors.New("loadtest: malformed row")

// Row is one raw log record before parsing.
type Row struct {
	Metric    string
	Timestamp string
	Value     string
}

// MetricSample is one observation of one metric kind at a whole second.
type MetricSample struct {
	Kind   MetricKind
	Second int64
	Value  float64
}

// ParseRow converts a raw row into a sample. ok is false for rows that must be
// skipped: unknown metric, or a timestamp or value that is not a finite number.
func ParseRow(r Row) (sample MetricSample, ok bool) {
	kind := ParseMetricKind(r.Metric)
	if kind == KindUnknown {
		return MetricSample{}, false
	}

	ts, err := strconv.ParseFloat(strings.TrimSpace(r.Timestamp), 64)
	if err != nil || math.IsNaN(ts) || math.Abs(ts) > maxTimestamp {
		return MetricSample{}, false
	}
	val, err := strconv.ParseFloat(strings.TrimSpace(r.Value), 64)
	if err != nil || math.IsNaN(val) || math.IsInf(val, 0) {
		return MetricSample{}, false
	}

	return MetricSample{
		Kind:   kind,
		Second: int64(ts), // k6 writes seconds since epoch; truncate to the second
		Value:  val,
	}, true
}

// maxTimestamp bounds accepted timestamps to the range where float64 seconds
// are exact and step offsets cannot overflow int64.
const maxTimestamp = 1 << 53

// SecondBucket holds every relevant sample observed during one second.
type SecondBucket struct {
	Durations []float64
	Failed    []float64
	Requests  int
}

// Trace maps a Unix second to its bucket. Seconds without data are absent.
type Trace struct {
	Buckets map[int64]*SecondBucket
	Skipped int // rows dropped as unknown or malformed
}

// NewTrace returns an empty trace.
func NewTrace() *Trace {
	return &Trace{Buckets: make(map[int64]*SecondBucket)}
}

// Add records a sample in its second's bucket.
func (t *Trace) Add(s MetricSample) {
	b, ok := t.Buckets[s.Second]
	if !ok {
		b = &SecondBucket{}
		t.Buckets[s.Second] = b
	}

	switch s.Kind {
	case KindDuration:
		b.Durations = append(b.Durations, s.Value)
	case KindFailed:
		b.Failed = append(b.Failed, s.Value)
	case KindRequests:
		b.Requests++
	}
}

// Len returns the number of seconds that carry data.
func (t *Trace) Len() int {
	return len(t.Buckets)
}

// Bounds returns the first and last second with data. ok is false for an empty trace.
func (t *Trace) Bounds() (tMin, tMax int64, ok bool) {
	for sec := range t.Buckets {
		if !ok {
			tMin, tMax, ok = sec, sec, true
			continue
		}
		tMin = min(tMin, sec)
		tMax = max(tMax, sec)
	}
	return tMin, tMax, ok
}

// Span returns tMax - tMin, or 0 for an empty trace.
func (t *Trace) Span() int64 {
	tMin, tMax, ok := t.Bounds()
	if !ok {
		return 0
	}
	return tMax - tMin
}

// RowSource yields raw rows until io.EOF. A returned error wrapping
// ErrMalformedRow skips that record; any other error aborts ingestion.
type RowSource interface {
	Next() (Row, error)
}

// Ingest reads every row from src into a Trace. It fails with
// common.ErrInputEmpty when no recognised sample survives filtering.
func Ingest(src RowSource) (*Trace, error) {
	trace := NewTrace()

	for {
		row, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			if errors.Is(err, ErrMalformedRow) {
				trace.Skipped++
				continue
			}
			return nil, fmt.Errorf("loadtest: read row: %w", err)
		}

		sample, ok := ParseRow(row)
		if !ok {
			trace.Skipped++
			continue
		}
		trace.Add(sample)
	}

	if trace.Len() == 0 {
		return nil, fmt.Errorf("loadtest: no %s, %s or %s samples: %w",
			MetricReqDuration, MetricReqFailed, MetricReqs, common.ErrInputEmpty)
	}

	return trace, nil
}

// SliceSource serves rows from memory.
type SliceSource struct {
	rows []Row
	pos  int
}

// NewSliceSource wraps rows as a RowSource.
func NewSliceSource(rows []Row) *SliceSource {
	return &SliceSource{rows: rows}
}

// Next implements RowSource.
func (s *SliceSource) Next() (Row, error) {
	if s.pos >= len(s.rows) {
		return Row{}, io.EOF
	}
	r := s.rows[s.pos]
	s.pos++
	return r, nil
}
