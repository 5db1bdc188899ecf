package sliderpath

import (
	"slices"
	"sort"

	"github.com/go-gl/mathgl/mgl32"
)

// PathControlPoint is a control point relative to the slider head. A non-nil
// Type starts a new segment at this point.
type PathControlPoint struct {
	Position mgl32.Vec2
	Type     *PathType
}

type Path struct {
	ControlPoints []PathControlPoint
	// ExpectedDistance is the length declared by the beatmap, nil when the
	// length follows from the control points.
	ExpectedDistance *float64
}

// Segment is a run of control points sharing a curve type. Consecutive
// segments share their boundary point.
type Segment struct {
	Type   PathType
	Points []mgl32.Vec2
}

func NewPath(points []PathControlPoint, expectedDistance *float64) Path {
	return Path{ControlPoints: points, ExpectedDistance: expectedDistance}
}

func (p Path) Clone() Path {
	var out Path
	if p.ControlPoints != nil {
		out.ControlPoints = make([]PathControlPoint, len(p.ControlPoints))
	}
	for i, cp := range p.ControlPoints {
		out.ControlPoints[i].Position = cp.Position
		if cp.Type != nil {
			out.ControlPoints[i].Type = Ptr(*cp.Type)
		}
	}
	if p.ExpectedDistance != nil {
		d := *p.ExpectedDistance
		out.ExpectedDistance = &d
	}
	return out
}

// Segments splits the control points at typed points. A segment without a
// leading type is linear.
func (p Path) Segments() []Segment {
	cps := p.ControlPoints
	n := len(cps)
	var segs []Segment
	start := 0
	for i := 0; i < n; i++ {
		if cps[i].Type == nil && i < n-1 {
			continue
		}
		if i > start || n == 1 {
			typ := Linear
			if cps[start].Type != nil {
				typ = *cps[start].Type
			}
			pts := make([]mgl32.Vec2, 0, i-start+1)
			for _, cp := range cps[start : i+1] {
				pts = append(pts, cp.Position)
			}
			segs = append(segs, Segment{Type: typ, Points: pts})
		}
		start = i
	}
	return segs
}

// CalculatedPath approximates the whole curve as a polyline, ignoring
// ExpectedDistance.
func (p Path) CalculatedPath() []mgl32.Vec2 {
	var out []mgl32.Vec2
	for _, seg := range p.Segments() {
		sub := approximate(seg)
		if len(out) > 0 && len(sub) > 0 && out[len(out)-1] == sub[0] {
			sub = sub[1:]
		}
		out = append(out, sub...)
	}
	return out
}

func (p Path) CalculatedDistance() float64 {
	_, lengths := cumulative(p.CalculatedPath())
	if len(lengths) == 0 {
		return 0
	}
	return lengths[len(lengths)-1]
}

// Distance is ExpectedDistance when set, the calculated length otherwise.
func (p Path) Distance() float64 {
	if p.ExpectedDistance != nil {
		return *p.ExpectedDistance
	}
	return p.CalculatedDistance()
}

// Points returns the polyline cut or extended to Distance.
func (p Path) Points() []mgl32.Vec2 {
	pts, lengths := cumulative(p.CalculatedPath())
	if p.ExpectedDistance == nil || len(pts) < 2 {
		return pts
	}
	want := *p.ExpectedDistance
	total := lengths[len(lengths)-1]
	switch {
	case want < total:
		i := sort.SearchFloat64s(lengths, want)
		if i == 0 {
			return pts[:1]
		}
		pts = slices.Clone(pts[:i+1])
		pts[i] = interpolate(pts[i-1], pts[i], lengths[i-1], lengths[i], want)
	case want > total:
		a, b := pts[len(pts)-2], pts[len(pts)-1]
		if a == b {
			// stable does not extend a path ending in a doubled point
			break
		}
		dir := b.Sub(a).Normalize()
		pts = append(slices.Clone(pts), b.Add(dir.Mul(float32(want-total))))
	}
	return pts
}

// PositionAt returns the position relative to the head at progress in [0, 1]
// along Distance.
func (p Path) PositionAt(progress float64) mgl32.Vec2 {
	pts, lengths := cumulative(p.Points())
	if len(pts) == 0 {
		return mgl32.Vec2{}
	}
	if len(pts) == 1 {
		return pts[0]
	}
	progress = max(0, min(1, progress))
	d := progress * lengths[len(lengths)-1]
	i := sort.SearchFloat64s(lengths, d)
	if i == 0 {
		return pts[0]
	}
	if i >= len(pts) {
		return pts[len(pts)-1]
	}
	return interpolate(pts[i-1], pts[i], lengths[i-1], lengths[i], d)
}

func cumulative(pts []mgl32.Vec2) ([]mgl32.Vec2, []float64) {
	lengths := make([]float64, len(pts))
	for i := 1; i < len(pts); i++ {
		lengths[i] = lengths[i-1] + float64(pts[i].Sub(pts[i-1]).Len())
	}
	return pts, lengths
}

func interpolate(a, b mgl32.Vec2, la, lb, d float64) mgl32.Vec2 {
	if lb-la <= 0 {
		return a
	}
	t := float32((d - la) / (lb - la))
	return a.Add(b.Sub(a).Mul(t))
}
