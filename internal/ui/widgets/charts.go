package widgets

import (
	"math"
	"strings"
)

var blocks = []rune("▁▂▃▄▅▆▇█")

// Spark8 draws the newest width values as block characters. Values are
// percentages in [0,100]; fewer values than width are left-padded.
func Spark8(vals []float64, width int) string {
	if len(vals) == 0 || width <= 0 {
		return ""
	}
	if len(vals) > width {
		vals = vals[len(vals)-width:]
	}

	var b strings.Builder
	b.WriteString(strings.Repeat(" ", width-len(vals)))
	for _, v := range vals {
		level := int(math.Round(clamp01(v/100) * float64(len(blocks)-1)))
		b.WriteRune(blocks[level])
	}
	return b.String()
}

// Bar draws a horizontal gauge for a percentage in [0,100]
func Bar(percent float64, width int) string {
	if width <= 0 {
		return ""
	}
	if math.IsNaN(percent) || math.IsInf(percent, 0) {
		percent = 0
	}
	v := clamp01(percent / 100)

	fill := int(math.Round(v * float64(width)))
	if v > 0 && fill == 0 {
		fill = 1
	}
	if fill > width {
		fill = width
	}
	return strings.Repeat("█", fill) + strings.Repeat("░", width-fill)
}

func clamp01(f float64) float64 {
	if math.IsNaN(f) || f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
