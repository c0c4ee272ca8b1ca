package monitor

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Braille character rendering for high-resolution terminal graphs.
//
// Braille patterns use a 2x4 dot matrix per character:
//
//	  Col 0  Col 1
//	Row 0:   ⠁      ⠈     (dots 1, 4)
//	Row 1:   ⠂      ⠐     (dots 2, 5)
//	Row 2:   ⠄      ⠠     (dots 3, 6)
//	Row 3:   ⡀      ⢀     (dots 7, 8)
//
// Unicode braille starts at U+2800 (empty) and uses bit patterns:
// bit 0 = dot 1, bit 1 = dot 2, bit 2 = dot 3, bit 3 = dot 4,
// bit 4 = dot 5, bit 5 = dot 6, bit 6 = dot 7, bit 7 = dot 8

const brailleBase = '\u2800'

var sparklineBlocks = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// brailleDots maps [row][col] to the bit offset within a braille cell.
var brailleDots = [4][2]uint8{
	{0, 3},
	{1, 4},
	{2, 5},
	{6, 7},
}

// GraphScale is the vertical range of a graph.
type GraphScale struct {
	Min, Max float64

	// Percent colors columns by the warning/critical thresholds instead of
	// the base color.
	Percent bool
}

// PercentScale pins the axis to 0-100.
var PercentScale = GraphScale{Min: 0, Max: 100, Percent: true}

// AutoScale fits the axis to the readings in data, anchored at zero. Rates
// and temperatures use it.
func AutoScale(data []float64) GraphScale {
	hi := 0.0
	for _, v := range data {
		if !math.IsNaN(v) && v > hi {
			hi = v
		}
	}
	if hi == 0 {
		hi = 1
	}
	return GraphScale{Min: 0, Max: hi}
}

func (s GraphScale) normalize(v float64) float64 {
	if s.Max > s.Min {
		return (v - s.Min) / (s.Max - s.Min)
	}
	return 0.5
}

func clampInt(val, maxVal int) int {
	return max(0, min(val, maxVal))
}

// RenderBrailleGraph plots data as a braille area chart width cells wide and
// height rows tall. Each cell holds two points. Short series are
// right-aligned so the newest reading is always at the right edge. NaN
// readings leave their column empty.
func RenderBrailleGraph(data []float64, width, height int, scale GraphScale, base lipgloss.Color, warning, critical int) string {
	if len(data) == 0 || width <= 0 || height <= 0 {
		return ""
	}

	totalDots := height * 4
	targetPoints := width * 2

	points := data
	if len(data) > targetPoints {
		points = resampleData(data, targetPoints)
	}

	grid := make([][]rune, height)
	for i := range grid {
		grid[i] = []rune(strings.Repeat(string(brailleBase), width))
	}
	colMax := make([]float64, width)
	for i := range colMax {
		colMax[i] = math.NaN()
	}

	offset := max(targetPoints-len(points), 0)
	for i, val := range points {
		if math.IsNaN(val) {
			continue
		}
		col := (i + offset) / 2
		if col >= width {
			continue
		}
		if math.IsNaN(colMax[col]) || val > colMax[col] {
			colMax[col] = val
		}

		dotHeight := clampInt(int(math.Round(scale.normalize(val)*float64(totalDots))), totalDots)
		// A reading above the floor always shows at least one dot.
		if dotHeight == 0 && val > scale.Min {
			dotHeight = 1
		}
		subCol := (i + offset) % 2
		for dot := 0; dot < dotHeight; dot++ {
			row := height - 1 - dot/4
			subRow := 3 - dot%4
			grid[row][col] |= rune(1 << brailleDots[subRow][subCol])
		}
	}

	lines := make([]string, 0, height)
	for _, row := range grid {
		var b strings.Builder
		for col, cell := range row {
			color := base
			if scale.Percent && !math.IsNaN(colMax[col]) {
				color = MetricColorWithThresholds(colMax[col], warning, critical)
			}
			b.WriteString(lipgloss.NewStyle().Foreground(color).Render(string(cell)))
		}
		lines = append(lines, b.String())
	}
	return strings.Join(lines, "\n")
}

// RenderMiniSparkline renders a single-row block sparkline on a 0-100 scale,
// used inside agent cards. Missing readings render as spaces.
func RenderMiniSparkline(data []float64, width int) string {
	if len(data) == 0 || width <= 0 {
		return ""
	}
	points := data
	if len(data) > width {
		points = resampleData(data, width)
	}

	var b strings.Builder
	b.WriteString(strings.Repeat(" ", width-len(points)))
	for _, val := range points {
		if math.IsNaN(val) {
			b.WriteRune(' ')
			continue
		}
		idx := clampInt(int(PercentScale.normalize(val)*float64(len(sparklineBlocks)-1)), len(sparklineBlocks)-1)
		b.WriteRune(sparklineBlocks[idx])
	}
	return b.String()
}

// resampleData shrinks data to targetSize buckets keeping each bucket's
// peak so spikes survive. A bucket with no readings stays NaN.
func resampleData(data []float64, targetSize int) []float64 {
	if len(data) == 0 || targetSize <= 0 {
		return nil
	}
	if len(data) <= targetSize {
		return data
	}

	result := make([]float64, targetSize)
	bucket := float64(len(data)) / float64(targetSize)
	for i := range result {
		start := int(float64(i) * bucket)
		end := min(int(float64(i+1)*bucket), len(data))
		if start >= end {
			start = end - 1
		}

		peak := math.NaN()
		for _, v := range data[start:end] {
			if !math.IsNaN(v) && (math.IsNaN(peak) || v > peak) {
				peak = v
			}
		}
		result[i] = peak
	}
	return result
}
