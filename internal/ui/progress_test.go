package ui

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderProgressBar(t *testing.T) {
	tests := []struct {
		name    string
		percent float64
		width   int
		want    string
	}{
		{"empty", 0, 10, "[░░░░░░░░░░]   0%"},
		{"half", 50, 10, "[█████░░░░░]  50%"},
		{"full", 100, 4, "[████] 100%"},
		{"clamped high", 150, 4, "[████] 100%"},
		{"clamped low", -20, 4, "[░░░░]   0%"},
		{"nan reads as empty", math.NaN(), 4, "[░░░░]   0%"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stripANSI(RenderProgressBar(tt.percent, tt.width, 70, 90)))
		})
	}
}

func TestRenderProgressBar_ZeroWidth(t *testing.T) {
	assert.Empty(t, RenderProgressBar(50, 0, 70, 90))
	assert.Empty(t, RenderProgressBar(50, -1, 70, 90))
}

func TestRenderProgressBar_Width(t *testing.T) {
	bar := stripANSI(RenderProgressBar(33, 20, 70, 90))
	inner := bar[strings.Index(bar, "[")+len("[") : strings.Index(bar, "]")]

	assert.Equal(t, 20, len([]rune(inner)))
}
