package stream

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rileyhilliard/fleetwatch/internal/api"
)

// Metric names one chart series derived from the sample stream.
type Metric int

const (
	MetricCPU Metric = iota
	MetricRAM
	MetricGPU
	MetricCPUTemp
	MetricGPUTemp
	MetricNetIn
	MetricNetOut
	MetricDiskRead
	MetricDiskWrite

	numMetrics
)

// Metrics lists every series in display order.
var Metrics = []Metric{
	MetricCPU, MetricRAM, MetricGPU, MetricCPUTemp, MetricGPUTemp,
	MetricNetIn, MetricNetOut, MetricDiskRead, MetricDiskWrite,
}

func (m Metric) String() string {
	switch m {
	case MetricCPU:
		return "cpu"
	case MetricRAM:
		return "ram"
	case MetricGPU:
		return "gpu"
	case MetricCPUTemp:
		return "cpu_temp"
	case MetricGPUTemp:
		return "gpu_temp"
	case MetricNetIn:
		return "net_in"
	case MetricNetOut:
		return "net_out"
	case MetricDiskRead:
		return "disk_read"
	case MetricDiskWrite:
		return "disk_write"
	default:
		return "unknown"
	}
}

// ParseMetric resolves a metric name as printed by String. "mem" and
// "memory" are accepted for ram.
func ParseMetric(name string) (Metric, error) {
	switch n := strings.ToLower(strings.TrimSpace(name)); n {
	case "mem", "memory":
		return MetricRAM, nil
	default:
		for _, m := range Metrics {
			if m.String() == n {
				return m, nil
			}
		}
	}
	return 0, fmt.Errorf("unknown metric %q", name)
}

// Value extracts m from a sample. Metrics the agent didn't report are NaN.
func (m Metric) Value(s api.MetricSample) float64 {
	switch m {
	case MetricCPU:
		return s.CPUPercent
	case MetricRAM:
		return s.RAMPercent
	case MetricGPU:
		return optional(s.GPUPercent)
	case MetricCPUTemp:
		return optional(s.CPUTemp)
	case MetricGPUTemp:
		return optional(s.GPUTemp)
	case MetricNetIn:
		return s.NetInBytesPerSec
	case MetricNetOut:
		return s.NetOutBytesPerSec
	case MetricDiskRead:
		return s.DiskReadBytesPerSec
	case MetricDiskWrite:
		return s.DiskWriteBytesPerSec
	default:
		return math.NaN()
	}
}

func optional(p *float64) float64 {
	if p == nil {
		return math.NaN()
	}
	return *p
}

// Series holds the chart arrays (labels plus one array per metric) derived
// from the sample buffer. Each Append is O(1): the per-metric rings evict in
// lockstep with the sample buffer, so the arrays never need rebuilding from
// scratch while samples arrive.
type Series struct {
	labels *Ring[time.Time]
	values [numMetrics]*Ring[float64]
	sums   [numMetrics]float64
	counts [numMetrics]int
}

// NewSeries creates series sized to match a sample buffer of capacity.
func NewSeries(capacity int) *Series {
	s := &Series{labels: NewRing[time.Time](capacity)}
	for i := range s.values {
		s.values[i] = NewRing[float64](capacity)
	}
	return s
}

// Append adds one sample to every series.
func (s *Series) Append(sample api.MetricSample) {
	s.labels.Push(sample.Timestamp.Time)
	for _, m := range Metrics {
		v := m.Value(sample)
		if old, ok := s.values[m].Push(v); ok && !math.IsNaN(old) {
			s.sums[m] -= old
			s.counts[m]--
		}
		if !math.IsNaN(v) {
			s.sums[m] += v
			s.counts[m]++
		}
	}
}

// Rebuild replaces the series with samples, oldest first.
func (s *Series) Rebuild(samples []api.MetricSample) {
	s.labels.Reset()
	for i := range s.values {
		s.values[i].Reset()
		s.sums[i] = 0
		s.counts[i] = 0
	}
	for _, sample := range samples {
		s.Append(sample)
	}
}

// Len returns the number of points in each series.
func (s *Series) Len() int { return s.labels.Len() }

// Labels returns the sample timestamps, oldest first.
func (s *Series) Labels() []time.Time { return s.labels.Items() }

// Values returns the points for m, oldest first. Missing readings are NaN.
func (s *Series) Values(m Metric) []float64 {
	if m < 0 || m >= numMetrics {
		return nil
	}
	return s.values[m].Items()
}

// Has reports whether any point of m carries a reading.
func (s *Series) Has(m Metric) bool {
	return m >= 0 && m < numMetrics && s.counts[m] > 0
}

// Stats summarizes one series.
type Stats struct {
	Last  float64 `json:"last"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Avg   float64 `json:"avg"`
	Count int     `json:"count"`
}

// Stats returns summary numbers for m, ignoring missing readings. The
// average comes from a running sum; min and max scan the window.
func (s *Series) Stats(m Metric) Stats {
	if !s.Has(m) {
		return Stats{}
	}

	st := Stats{
		Min:   math.Inf(1),
		Max:   math.Inf(-1),
		Count: s.counts[m],
		Avg:   s.sums[m] / float64(s.counts[m]),
	}
	for _, v := range s.values[m].Items() {
		if math.IsNaN(v) {
			continue
		}
		st.Last = v
		st.Min = math.Min(st.Min, v)
		st.Max = math.Max(st.Max, v)
	}
	return st
}

// Snapshot copies every series out for rendering.
func (s *Series) Snapshot() SeriesSnapshot {
	snap := SeriesSnapshot{
		Labels: s.Labels(),
		Values: make(map[Metric][]float64, numMetrics),
		Stats:  make(map[Metric]Stats, numMetrics),
	}
	for _, m := range Metrics {
		if !s.Has(m) {
			continue
		}
		snap.Values[m] = s.Values(m)
		snap.Stats[m] = s.Stats(m)
	}
	return snap
}

// SeriesSnapshot is an immutable copy of Series. Metrics with no readings
// are absent from the maps.
type SeriesSnapshot struct {
	Labels []time.Time
	Values map[Metric][]float64
	Stats  map[Metric]Stats
}
