package runner

import (
	"fmt"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Stats accumulates per-test durations. Values are recorded in
// microseconds; the histogram covers 1us to 10m with 3 significant
// digits.
type Stats struct {
	histogram *hdrhistogram.Histogram
}

func NewStats() *Stats {
	return &Stats{
		histogram: hdrhistogram.New(1, 600_000_000, 3),
	}
}

// Record adds one test duration.
func (s *Stats) Record(d time.Duration) {
	us := d.Microseconds()
	if us < 1 {
		us = 1
	}
	if us > 600_000_000 {
		us = 600_000_000
	}
	_ = s.histogram.RecordValue(us)
}

// Count returns the number of recorded durations.
func (s *Stats) Count() int64 {
	return s.histogram.TotalCount()
}

func (s *Stats) valueAt(q float64) time.Duration {
	return time.Duration(s.histogram.ValueAtQuantile(q)) * time.Microsecond
}

// Summary renders a one-line timing summary (p50/p95/max).
func (s *Stats) Summary() string {
	return fmt.Sprintf("timings: p50=%s p95=%s max=%s",
		s.valueAt(50).Round(time.Millisecond),
		s.valueAt(95).Round(time.Millisecond),
		(time.Duration(s.histogram.Max()) * time.Microsecond).Round(time.Millisecond))
}
