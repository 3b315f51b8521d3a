// Package export renders recorded runs as standalone SVG documents.
package export

import (
	"fmt"
	"strings"

	"github.com/san-kum/sfclab/internal/analysis"
)

// Series is one named line of a time plot.
type Series struct {
	Name   string
	Color  string
	Values []float64
}

func header(sb *strings.Builder, width, height int) {
	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, width, height, width, height))
}

func path(sb *strings.Builder, xs, ys []float64, b analysis.Bounds, width, height int, stroke string) {
	sb.WriteString(fmt.Sprintf(`<path fill="none" stroke="%s" stroke-width="1.5" d="M`, stroke))
	for i := range xs {
		x, y := b.Project(xs[i], ys[i], width, height)
		if i == 0 {
			sb.WriteString(fmt.Sprintf("%.1f,%.1f", x, y))
		} else {
			sb.WriteString(fmt.Sprintf(" L%.1f,%.1f", x, y))
		}
	}
	sb.WriteString("\"/>\n")
}

// TimeSeriesToSVG plots every series against times on shared axes, with a
// legend in the top left corner.
func TimeSeriesToSVG(times []float64, series []Series, width, height int) string {
	if len(times) < 2 || len(series) == 0 {
		return ""
	}

	b := analysis.Bounds{MinX: times[0], MaxX: times[len(times)-1]}
	first := true
	for _, s := range series {
		for _, v := range s.Values {
			if first {
				b.MinY, b.MaxY = v, v
				first = false
			}
			b = b.Include(times[0], v)
		}
	}
	b = b.Pad()

	var sb strings.Builder
	header(&sb, width, height)
	for i, s := range series {
		n := min(len(times), len(s.Values))
		if n >= 2 {
			path(&sb, times[:n], s.Values[:n], b, width, height, s.Color)
		}
		sb.WriteString(fmt.Sprintf(`<text x="10" y="%d" fill="%s" font-family="monospace" font-size="12">%s</text>
`, 18+16*i, s.Color, s.Name))
	}
	sb.WriteString("</svg>")
	return sb.String()
}

// PhaseToSVG draws a phase portrait as a single path, with the target
// marked by a ring.
func PhaseToSVG(portrait *analysis.PhasePortrait2D, width, height int, strokeColor string) string {
	if portrait == nil || len(portrait.Points) < 2 {
		return ""
	}

	xs := make([]float64, len(portrait.Points))
	ys := make([]float64, len(portrait.Points))
	for i, p := range portrait.Points {
		xs[i], ys[i] = p.X, p.Y
	}
	b := portrait.Bounds().Pad()

	var sb strings.Builder
	header(&sb, width, height)
	path(&sb, xs, ys, b, width, height, strokeColor)
	tx, ty := b.Project(portrait.Target.X, portrait.Target.Y, width, height)
	sb.WriteString(fmt.Sprintf(`<circle cx="%.1f" cy="%.1f" r="4" fill="none" stroke="#ff00ff"/>
`, tx, ty))
	sb.WriteString("</svg>")
	return sb.String()
}
