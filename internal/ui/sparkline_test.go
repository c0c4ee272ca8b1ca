package ui

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderSparkline_Empty(t *testing.T) {
	tests := []struct {
		name  string
		data  []float64
		width int
	}{
		{"nil data", nil, 10},
		{"empty data", []float64{}, 10},
		{"zero width", []float64{50, 60}, 0},
		{"negative width", []float64{50, 60}, -5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Empty(t, RenderSparkline(tt.data, tt.width))
		})
	}
}

func TestRenderSparkline_OneBlockPerPoint(t *testing.T) {
	result := stripANSI(RenderSparkline([]float64{0, 25, 50, 75, 100}, 10))

	assert.Equal(t, "▁▂▄▆█", result)
}

func TestRenderSparkline_FlatUsesMiddle(t *testing.T) {
	result := stripANSI(RenderSparkline([]float64{50, 50, 50}, 10))

	assert.Equal(t, "▅▅▅", result)
}

func TestRenderSparkline_KeepsMostRecent(t *testing.T) {
	data := []float64{100, 100, 100, 0, 50, 100}
	result := stripANSI(RenderSparkline(data, 3))

	assert.Len(t, []rune(result), 3)
	assert.Equal(t, "▁▄█", result)
}

func TestRenderSparkline_NaNIsGap(t *testing.T) {
	result := stripANSI(RenderSparkline([]float64{0, math.NaN(), 100}, 10))

	assert.Equal(t, "▁ █", result)
}

func TestRenderSparkline_AllNaN(t *testing.T) {
	result := stripANSI(RenderSparkline([]float64{math.NaN(), math.NaN()}, 10))

	assert.Equal(t, "  ", result)
}

func TestRenderSVGSparkline(t *testing.T) {
	svg := RenderSVGSparkline([]float64{0, 50, 100}, SVGOptions{Width: 100, Height: 20, StrokeWidth: 2, Stroke: "#fff"})

	assert.True(t, strings.HasPrefix(svg, `<svg xmlns="http://www.w3.org/2000/svg" width="100" height="20" viewBox="0 0 100 20">`))
	assert.True(t, strings.HasSuffix(svg, "</svg>"))
	// x spreads over the width; y is inverted with a 1px stroke pad.
	assert.Contains(t, svg, `points="0,19 50,10 100,1"`)
	assert.Contains(t, svg, `stroke="#fff"`)
	assert.NotContains(t, svg, "<polygon")
}

func TestRenderSVGSparkline_Defaults(t *testing.T) {
	svg := RenderSVGSparkline([]float64{1, 2}, SVGOptions{})

	assert.Contains(t, svg, `width="120" height="30"`)
	assert.Contains(t, svg, `stroke="`+string(ColorInfo)+`"`)
	assert.Contains(t, svg, `stroke-width="1.5"`)
}

func TestRenderSVGSparkline_FixedScale(t *testing.T) {
	svg := RenderSVGSparkline([]float64{50, 50}, SVGOptions{Width: 10, Height: 12, StrokeWidth: 2, Min: 0, Max: 100})

	assert.Contains(t, svg, `points="0,6 10,6"`)
}

func TestRenderSVGSparkline_GapsSplitLine(t *testing.T) {
	svg := RenderSVGSparkline([]float64{1, 2, math.NaN(), 3, 4, math.NaN(), 5}, SVGOptions{Fill: "#123456"})

	assert.Equal(t, 2, strings.Count(svg, "<polyline"))
	assert.Equal(t, 2, strings.Count(svg, "<polygon"))
	assert.Equal(t, 1, strings.Count(svg, "<circle"), "a lone reading renders as a dot")
}

func TestRenderSVGSparkline_NoReadings(t *testing.T) {
	svg := RenderSVGSparkline([]float64{math.NaN()}, SVGOptions{Width: 40, Height: 10})

	assert.Equal(t, `<svg xmlns="http://www.w3.org/2000/svg" width="40" height="10" viewBox="0 0 40 10"></svg>`, svg)
}

func TestSegments(t *testing.T) {
	nan := math.NaN()
	assert.Equal(t, [][]int{{0, 1}, {3}}, segments([]float64{1, 2, nan, 3, nan}))
	assert.Nil(t, segments([]float64{nan}))
}

func stripANSI(s string) string {
	var result strings.Builder
	inEscape := false
	for _, r := range s {
		if r == '\033' {
			inEscape = true
			continue
		}
		if inEscape {
			if r == 'm' {
				inEscape = false
			}
			continue
		}
		result.WriteRune(r)
	}
	return result.String()
}
