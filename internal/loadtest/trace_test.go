package loadtest

import (
	"errors"
	"io"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FairForge/loadverdict/internal/common"
)

func TestParseMetricKind(t *testing.T) {
	assert.Equal(t, KindDuration, ParseMetricKind("http_req_duration"))
	assert.Equal(t, KindFailed, ParseMetricKind(" http_req_failed "))
	assert.Equal(t, KindRequests, ParseMetricKind("http_reqs"))
	assert.Equal(t, KindUnknown, ParseMetricKind("vus"))
	assert.Equal(t, KindUnknown, ParseMetricKind(""))
	assert.Equal(t, "http_reqs", KindRequests.String())
}

func TestParseRow(t *testing.T) {
	t.Run("truncates timestamp to the second", func(t *testing.T) {
		s, ok := ParseRow(Row{Metric: "http_req_duration", Timestamp: "1700000000.987", Value: "12.5"})
		require.True(t, ok)
		assert.Equal(t, int64(1700000000), s.Second)
		assert.Equal(t, 12.5, s.Value)
		assert.Equal(t, KindDuration, s.Kind)
	})

	skipped := []Row{
		{Metric: "vus", Timestamp: "1", Value: "1"},
		{Metric: "http_reqs", Timestamp: "abc", Value: "1"},
		{Metric: "http_reqs", Timestamp: "1", Value: ""},
		{Metric: "http_req_failed", Timestamp: "NaN", Value: "0"},
		{Metric: "http_req_failed", Timestamp: "1", Value: "+Inf"},
		{Metric: "http_req_duration", Timestamp: "1e30", Value: "1"},
		{Metric: "http_req_duration", Timestamp: "-1e30", Value: "1"},
		{Metric: "http_reqs", Timestamp: "9.3e18", Value: "1"},
	}
	for _, r := range skipped {
		_, ok := ParseRow(r)
		assert.False(t, ok, "row %+v should be skipped", r)
	}
}

func TestIngest(t *testing.T) {
	t.Run("buckets by second", func(t *testing.T) {
		src := NewSliceSource([]Row{
			{Metric: "http_req_duration", Timestamp: "100.1", Value: "10"},
			{Metric: "http_req_duration", Timestamp: "100.9", Value: "20"},
			{Metric: "http_req_failed", Timestamp: "100.5", Value: "1"},
			{Metric: "http_reqs", Timestamp: "100.5", Value: "1"},
			{Metric: "http_reqs", Timestamp: "101", Value: "1"},
			{Metric: "iterations", Timestamp: "101", Value: "1"},
			{Metric: "http_reqs", Timestamp: "bad", Value: "1"},
		})

		trace, err := Ingest(src)
		require.NoError(t, err)

		assert.Equal(t, 2, trace.Len())
		assert.Equal(t, 2, trace.Skipped)
		assert.Equal(t, []float64{10, 20}, trace.Buckets[100].Durations)
		assert.Equal(t, []float64{1}, trace.Buckets[100].Failed)
		assert.Equal(t, 1, trace.Buckets[100].Requests)
		assert.Equal(t, 1, trace.Buckets[101].Requests)
		assert.Empty(t, trace.Buckets[101].Durations)

		tMin, tMax, ok := trace.Bounds()
		require.True(t, ok)
		assert.Equal(t, int64(100), tMin)
		assert.Equal(t, int64(101), tMax)
		assert.Equal(t, int64(1), trace.Span())
	})

	t.Run("empty after filtering", func(t *testing.T) {
		src := NewSliceSource([]Row{
			{Metric: "vus", Timestamp: "100", Value: "10"},
		})
		_, err := Ingest(src)
		require.Error(t, err)
		assert.True(t, errors.Is(err, common.ErrInputEmpty))
	})

	t.Run("malformed rows are skipped", func(t *testing.T) {
		src := &erroringSource{
			rows: []Row{{Metric: "http_reqs", Timestamp: "5", Value: "1"}},
			errs: []error{ErrMalformedRow},
		}
		trace, err := Ingest(src)
		require.NoError(t, err)
		assert.Equal(t, 1, trace.Skipped)
		assert.Equal(t, 1, trace.Len())
	})

	t.Run("out of range timestamp leaves bounds alone", func(t *testing.T) {
		rows := make([]Row, 0, 81)
		for sec := 100; sec <= 179; sec++ {
			rows = append(rows, Row{Metric: "http_req_duration", Timestamp: strconv.Itoa(sec), Value: "10"})
		}
		rows = append(rows, Row{Metric: "http_req_duration", Timestamp: "1e30", Value: "10"})

		trace, err := Ingest(NewSliceSource(rows))
		require.NoError(t, err)
		assert.Equal(t, 1, trace.Skipped)

		tMin, tMax, ok := trace.Bounds()
		require.True(t, ok)
		assert.Equal(t, int64(100), tMin)
		assert.Equal(t, int64(179), tMax)

		a, err := Analyze(trace, DefaultStepPlan(), DefaultThresholds())
		require.NoError(t, err)
		assert.Len(t, a.Stats, 2)
	})

	t.Run("read errors abort", func(t *testing.T) {
		src := &erroringSource{errs: []error{io.ErrUnexpectedEOF}}
		_, err := Ingest(src)
		require.Error(t, err)
		assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	})
}

func TestTraceBoundsEmpty(t *testing.T) {
	trace := NewTrace()
	_, _, ok := trace.Bounds()
	assert.False(t, ok)
	assert.Equal(t, int64(0), trace.Span())
}

// erroringSource returns its errors first, then its rows.
type erroringSource struct {
	errs []error
	rows []Row
}

func (s *erroringSource) Next() (Row, error) {
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		return Row{}, err
	}
	if len(s.rows) > 0 {
		r := s.rows[0]
		s.rows = s.rows[1:]
		return r, nil
	}
	return Row{}, io.EOF
}
