package ui

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Sparkline block characters representing 8 vertical levels (lowest to highest).
const sparklineBlocks = "▁▂▃▄▅▆▇█"

var sparklineBlockRunes = []rune(sparklineBlocks)

// RenderSparkline creates a block sparkline of the most recent width values.
// Missing readings (NaN) render as a space. The line is colored by the last
// reading against the default 70/90 thresholds.
func RenderSparkline(data []float64, width int) string {
	line, last := sparklineText(data, width)
	if line == "" {
		return ""
	}
	if math.IsNaN(last) {
		return MutedStyle().Render(line)
	}
	return lipgloss.NewStyle().Foreground(ThresholdColor(last, 0, 0)).Render(line)
}

func sparklineText(data []float64, width int) (string, float64) {
	if len(data) == 0 || width <= 0 {
		return "", math.NaN()
	}
	if len(data) > width {
		data = data[len(data)-width:]
	}

	lo, hi, ok := bounds(data)
	last := math.NaN()

	var sb strings.Builder
	sb.Grow(len(data) * 3)
	levels := len(sparklineBlockRunes)
	for _, v := range data {
		if math.IsNaN(v) || !ok {
			sb.WriteRune(' ')
			continue
		}
		last = v
		level := levels / 2
		if hi > lo {
			level = int((v - lo) / (hi - lo) * float64(levels-1))
			level = max(0, min(level, levels-1))
		}
		sb.WriteRune(sparklineBlockRunes[level])
	}
	return sb.String(), last
}

// bounds returns the min and max of the non-NaN values.
func bounds(data []float64) (lo, hi float64, ok bool) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, v := range data {
		if math.IsNaN(v) {
			continue
		}
		ok = true
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi, ok
}

// SVGOptions controls RenderSVGSparkline output.
type SVGOptions struct {
	Width       int
	Height      int
	Stroke      string
	StrokeWidth float64
	Fill        string // area under the line; empty for none

	// Min and Max pin the vertical scale. Both zero scales to the data.
	Min, Max float64
}

// DefaultSVGOptions is a 120x30 line in the info color.
var DefaultSVGOptions = SVGOptions{
	Width:       120,
	Height:      30,
	Stroke:      string(ColorInfo),
	StrokeWidth: 1.5,
}

// RenderSVGSparkline renders values as a standalone SVG polyline. Missing
// readings (NaN) split the line into separate segments. An input without any
// readings yields an empty SVG of the requested size.
func RenderSVGSparkline(values []float64, opts SVGOptions) string {
	if opts.Width <= 0 {
		opts.Width = DefaultSVGOptions.Width
	}
	if opts.Height <= 0 {
		opts.Height = DefaultSVGOptions.Height
	}
	if opts.Stroke == "" {
		opts.Stroke = DefaultSVGOptions.Stroke
	}
	if opts.StrokeWidth <= 0 {
		opts.StrokeWidth = DefaultSVGOptions.StrokeWidth
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`,
		opts.Width, opts.Height, opts.Width, opts.Height)

	lo, hi, ok := bounds(values)
	if opts.Min != 0 || opts.Max != 0 {
		lo, hi = opts.Min, opts.Max
	}
	if !ok {
		sb.WriteString("</svg>")
		return sb.String()
	}

	// Keep half the stroke inside the box so peaks aren't clipped.
	pad := opts.StrokeWidth / 2
	h := float64(opts.Height) - 2*pad
	step := 0.0
	if len(values) > 1 {
		step = float64(opts.Width) / float64(len(values)-1)
	}
	y := func(v float64) float64 {
		if hi <= lo {
			return pad + h/2
		}
		v = math.Max(lo, math.Min(hi, v))
		return pad + h - (v-lo)/(hi-lo)*h
	}

	for _, seg := range segments(values) {
		points := make([]string, 0, len(seg))
		for _, i := range seg {
			points = append(points, fmt.Sprintf("%s,%s", svgNum(float64(i)*step), svgNum(y(values[i]))))
		}
		if len(points) == 1 {
			// A lone reading still needs something visible.
			fmt.Fprintf(&sb, `<circle cx="%s" cy="%s" r="%s" fill="%s"/>`,
				svgNum(float64(seg[0])*step), svgNum(y(values[seg[0]])), svgNum(opts.StrokeWidth), opts.Stroke)
			continue
		}
		if opts.Fill != "" {
			first, last := float64(seg[0])*step, float64(seg[len(seg)-1])*step
			fmt.Fprintf(&sb, `<polygon points="%s,%d %s %s,%d" fill="%s" stroke="none"/>`,
				svgNum(first), opts.Height, strings.Join(points, " "), svgNum(last), opts.Height, opts.Fill)
		}
		fmt.Fprintf(&sb, `<polyline points="%s" fill="none" stroke="%s" stroke-width="%s" stroke-linejoin="round" stroke-linecap="round"/>`,
			strings.Join(points, " "), opts.Stroke, svgNum(opts.StrokeWidth))
	}

	sb.WriteString("</svg>")
	return sb.String()
}

// segments groups the indexes of consecutive non-NaN values.
func segments(values []float64) [][]int {
	var out [][]int
	var cur []int
	for i, v := range values {
		if math.IsNaN(v) {
			if len(cur) > 0 {
				out = append(out, cur)
				cur = nil
			}
			continue
		}
		cur = append(cur, i)
	}
	if len(cur) > 0 {
		out = append(out, cur)
	}
	return out
}

func svgNum(f float64) string {
	s := fmt.Sprintf("%.2f", f)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}
