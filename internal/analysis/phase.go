package analysis

import (
	"fmt"
	"math"
	"strings"

	"github.com/san-kum/sfclab/internal/dynamo"
)

const (
	pointMark  = '•'
	targetMark = '◆'
)

// Point is one sample of a two-dimensional projection.
type Point struct{ X, Y float64 }

// PhasePortrait2D is a trajectory projected onto state entries XIndex and
// YIndex. Target is the equilibrium the trajectory should approach; it is
// the origin unless set.
type PhasePortrait2D struct {
	XIndex, YIndex int
	Points         []Point
	Target         Point
}

// NewPhasePortrait projects recorded states onto two state indices. It
// returns nil if either index is outside the recorded dimension.
func NewPhasePortrait(states []dynamo.State, xIdx, yIdx int) *PhasePortrait2D {
	if len(states) == 0 || xIdx < 0 || yIdx < 0 || xIdx >= len(states[0]) || yIdx >= len(states[0]) {
		return nil
	}

	portrait := &PhasePortrait2D{
		XIndex: xIdx,
		YIndex: yIdx,
		Points: make([]Point, 0, len(states)),
	}
	for _, x := range states {
		if xIdx >= len(x) || yIdx >= len(x) {
			continue
		}
		portrait.Points = append(portrait.Points, Point{X: x[xIdx], Y: x[yIdx]})
	}
	return portrait
}

// SetTarget projects a full reference state onto the portrait's axes.
// Entries missing from ref count as zero. A non-finite target falls back to
// the origin.
func (p *PhasePortrait2D) SetTarget(ref []float64) {
	p.Target = Point{}
	if p.XIndex < len(ref) {
		p.Target.X = ref[p.XIndex]
	}
	if p.YIndex < len(ref) {
		p.Target.Y = ref[p.YIndex]
	}
	if !p.Target.finite() {
		p.Target = Point{}
	}
}

// Bounds is the smallest rectangle holding every finite point and the
// target.
func (p *PhasePortrait2D) Bounds() Bounds {
	b := Bounds{p.Target.X, p.Target.X, p.Target.Y, p.Target.Y}
	for _, pt := range p.Points {
		if pt.finite() {
			b = b.Include(pt.X, pt.Y)
		}
	}
	return b
}

func (p Point) finite() bool {
	return !math.IsNaN(p.X) && !math.IsInf(p.X, 0) && !math.IsNaN(p.Y) && !math.IsInf(p.Y, 0)
}

// Bounds is an axis-aligned plotting window.
type Bounds struct{ MinX, MaxX, MinY, MaxY float64 }

func (b Bounds) Include(x, y float64) Bounds {
	return Bounds{min(b.MinX, x), max(b.MaxX, x), min(b.MinY, y), max(b.MaxY, y)}
}

// Pad widens b by 10% on each side. An empty range is treated as 1.
func (b Bounds) Pad() Bounds {
	rx, ry := b.MaxX-b.MinX, b.MaxY-b.MinY
	if rx == 0 {
		rx = 1
	}
	if ry == 0 {
		ry = 1
	}
	return Bounds{b.MinX - rx*0.1, b.MaxX + rx*0.1, b.MinY - ry*0.1, b.MaxY + ry*0.1}
}

// Project maps (x, y) into a width by height canvas whose y axis points
// down, as both terminals and SVG expect.
func (b Bounds) Project(x, y float64, width, height int) (float64, float64) {
	px := (x - b.MinX) / (b.MaxX - b.MinX) * float64(width)
	py := float64(height) - (y-b.MinY)/(b.MaxY-b.MinY)*float64(height)
	return px, py
}

// PhasePortraitToASCII draws the trajectory as '•' with the target as '◆'.
// The zero axes are drawn where they fall inside the window. The first
// line names the vertical state and its range, the last line the
// horizontal one, so the output is height+2 lines.
func PhasePortraitToASCII(portrait *PhasePortrait2D, width, height int) string {
	if portrait == nil || len(portrait.Points) == 0 || width < 2 || height < 2 {
		return ""
	}
	b := portrait.Bounds().Pad()

	canvas := make([][]rune, height)
	for i := range canvas {
		canvas[i] = []rune(strings.Repeat(" ", width))
	}
	cell := func(x, y float64) (int, int) {
		px, py := b.Project(x, y, width-1, height-1)
		return int(math.Round(py)), int(math.Round(px))
	}

	for _, p := range portrait.Points {
		if !p.finite() {
			continue
		}
		row, col := cell(p.X, p.Y)
		canvas[row][col] = pointMark
	}
	if b.MinX <= 0 && b.MaxX >= 0 {
		_, col := cell(0, b.MinY)
		for row := range canvas {
			if canvas[row][col] == ' ' {
				canvas[row][col] = '│'
			}
		}
	}
	if b.MinY <= 0 && b.MaxY >= 0 {
		row, _ := cell(b.MinX, 0)
		for col := range canvas[row] {
			switch canvas[row][col] {
			case ' ':
				canvas[row][col] = '─'
			case '│':
				canvas[row][col] = '┼'
			}
		}
	}
	row, col := cell(portrait.Target.X, portrait.Target.Y)
	canvas[row][col] = targetMark

	var sb strings.Builder
	fmt.Fprintf(&sb, "x%d [%.3g, %.3g]\n", portrait.YIndex, b.MinY, b.MaxY)
	for _, line := range canvas {
		sb.WriteString(string(line))
		sb.WriteByte('\n')
	}
	fmt.Fprintf(&sb, "x%d [%.3g, %.3g]  %c target\n", portrait.XIndex, b.MinX, b.MaxX, targetMark)
	return sb.String()
}
