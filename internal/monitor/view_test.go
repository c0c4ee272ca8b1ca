package monitor

import (
	stderrors "errors"
	"fmt"
	"math"
	"testing"

	"github.com/rileyhilliard/fleetwatch/internal/errors"
	"github.com/rileyhilliard/fleetwatch/internal/stream"
	"github.com/stretchr/testify/assert"
)

func TestErrorLine(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"plain", stderrors.New("boom"), "boom"},
		{"structured", errors.New(errors.ErrAPI, "Couldn't list agents", "Check the server"), "Couldn't list agents"},
		{"structured with cause", errors.Wrap(stderrors.New("connection refused\nmore"), "Couldn't list agents"), "Couldn't list agents: connection refused"},
		{"wrapped", fmt.Errorf("loading: %w", errors.New(errors.ErrAuth, "Token rejected", "")), "Token rejected"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errorLine(tt.err))
		})
	}
}

func TestFormatRate(t *testing.T) {
	assert.Equal(t, "512 B/s", FormatRate(512))
	assert.Equal(t, "1.5 KB/s", FormatRate(1536))
	assert.Equal(t, "2.0 MB/s", FormatRate(2*1024*1024))
	assert.Equal(t, "1.0 GB/s", FormatRate(1024*1024*1024))
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "100 B", formatBytes(100))
	assert.Equal(t, "1.0 KB", formatBytes(1024))
	assert.Equal(t, "1.5 GB", formatBytes(3*512*1024*1024))
}

func TestFooterShowsToast(t *testing.T) {
	m := newTestModel(t, newFakeBackend(), &fakeDialer{})
	assert.Contains(t, m.renderFooter(), "q quit")

	m.showError(stderrors.New("stream dropped"))
	assert.Contains(t, m.renderFooter(), "stream dropped")
}

func TestLayoutMode(t *testing.T) {
	tests := []struct {
		width int
		want  LayoutMode
	}{
		{60, LayoutMinimal},
		{100, LayoutCompact},
		{130, LayoutStandard},
		{200, LayoutWide},
	}
	for _, tt := range tests {
		m := Model{width: tt.width}
		assert.Equal(t, tt.want, m.LayoutMode(), "width %d", tt.width)
	}
}

func TestFormatMetric(t *testing.T) {
	tests := []struct {
		name   string
		metric stream.Metric
		value  float64
		want   string
	}{
		{"percent", stream.MetricCPU, 42.34, "42.3%"},
		{"gpu percent", stream.MetricGPU, 100, "100.0%"},
		{"rate", stream.MetricNetIn, 2048, "2.0 KB/s"},
		{"temperature", stream.MetricCPUTemp, 71.6, "72°C"},
		{"missing", stream.MetricGPUTemp, math.NaN(), "n/a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatMetric(tt.metric, tt.value))
		})
	}
}
