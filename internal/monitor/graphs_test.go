package monitor

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/rileyhilliard/fleetwatch/internal/api"
	"github.com/rileyhilliard/fleetwatch/internal/stream"
	"github.com/rileyhilliard/fleetwatch/internal/timefmt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderBrailleGraphDimensions(t *testing.T) {
	out := RenderBrailleGraph([]float64{10, 50, 90, 30}, 8, 3, PercentScale, ColorGraph, 70, 90)
	lines := strings.Split(out, "\n")
	require.Len(t, lines, 3)
	for _, line := range lines {
		assert.Equal(t, 8, lipgloss.Width(line))
	}
}

func TestRenderBrailleGraphEmpty(t *testing.T) {
	assert.Empty(t, RenderBrailleGraph(nil, 10, 2, PercentScale, ColorGraph, 70, 90))
	assert.Empty(t, RenderBrailleGraph([]float64{1}, 0, 2, PercentScale, ColorGraph, 70, 90))
}

func TestRenderBrailleGraphNaNLeavesGap(t *testing.T) {
	out := RenderBrailleGraph([]float64{math.NaN(), math.NaN()}, 1, 1, PercentScale, ColorGraph, 70, 90)
	assert.Contains(t, out, string(brailleBase), "a column with no readings stays blank")

	out = RenderBrailleGraph([]float64{0.5, 0.5}, 1, 1, PercentScale, ColorGraph, 70, 90)
	assert.NotContains(t, out, string(brailleBase), "a tiny reading still shows a dot")
}

func TestRenderMiniSparkline(t *testing.T) {
	tests := []struct {
		name string
		data []float64
		want string
	}{
		{"empty", nil, ""},
		{"left padded", []float64{0, 100}, "   ▁█"},
		{"missing reading", []float64{100, math.NaN(), 0}, "  █ ▁"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RenderMiniSparkline(tt.data, 5))
		})
	}
}

func TestResampleKeepsPeaks(t *testing.T) {
	got := resampleData([]float64{1, 9, 2, 3, math.NaN(), math.NaN()}, 3)
	require.Len(t, got, 3)
	assert.Equal(t, 9.0, got[0])
	assert.Equal(t, 3.0, got[1])
	assert.True(t, math.IsNaN(got[2]))

	short := []float64{1, 2}
	assert.Equal(t, short, resampleData(short, 5))
}

func TestAutoScale(t *testing.T) {
	assert.Equal(t, GraphScale{Min: 0, Max: 2048}, AutoScale([]float64{12, math.NaN(), 2048}))
	assert.Equal(t, GraphScale{Min: 0, Max: 1}, AutoScale([]float64{0, 0}))
}

func TestGroupSamples(t *testing.T) {
	at := func(d time.Duration) timefmt.Time { return timefmt.Time{Time: testNow.Add(d)} }

	var samples []api.MetricSample
	for i := cardHistorySize + 5; i > 0; i-- {
		samples = append(samples, api.MetricSample{AgentID: "web-01", Timestamp: at(-time.Duration(i) * time.Second), CPUPercent: float64(i)})
	}
	samples = append(samples,
		api.MetricSample{AgentID: "db-01", Timestamp: at(0), CPUPercent: 2},
		api.MetricSample{AgentID: "db-01", Timestamp: at(-time.Minute), CPUPercent: 1},
		api.MetricSample{Timestamp: at(0)},
	)

	h := groupSamples(samples)
	assert.Len(t, h, 2, "samples without an agent are dropped")
	assert.Len(t, h["web-01"], cardHistorySize)
	assert.Equal(t, []float64{1, 2}, h.Values("db-01", stream.MetricCPU))

	latest, ok := h.Latest("web-01")
	require.True(t, ok)
	assert.Equal(t, 1.0, latest.CPUPercent)

	_, ok = h.Latest("nope")
	assert.False(t, ok)
}
