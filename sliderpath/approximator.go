package sliderpath

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	bezTolSq      = 0.25 * 0.25 // BEZIER_TOLERANCE^2
	arcTol        = 0.10        // CIRCULAR_ARC_TOLERANCE (sagitta)
	catmullDet    = 50          // samples per catmull segment
	bsplineDetail = 32          // samples per b-spline knot span
)

func approximate(seg Segment) []mgl32.Vec2 {
	pts := seg.Points
	if len(pts) < 2 {
		return pts
	}
	switch seg.Type.Spline {
	case SplineLinear:
		return pts
	case SplinePerfectCurve:
		if len(pts) == 3 {
			if arc, ok := approximateCircularArc(pts[0], pts[1], pts[2]); ok {
				return arc
			}
		}
		return approximateBezier(pts)
	case SplineCatmull:
		return approximateCatmull(pts)
	case SplineBSpline:
		if seg.Type.Degree > 0 {
			return approximateBSpline(pts, seg.Type.Degree)
		}
		return approximateBezier(pts)
	}
	return pts
}

// --- Bezier (adaptive subdivision) ---

func approximateBezier(cp []mgl32.Vec2) []mgl32.Vec2 {
	if len(cp) == 0 {
		return nil
	}
	var out []mgl32.Vec2
	stack := make([][]mgl32.Vec2, 0, 32)
	stack = append(stack, cp)

	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if bezierFlatEnough(cur) {
			out = append(out, cur[0])
			continue
		}
		// right pushed first so the left half pops first
		l, r := bezierSubdivide(cur)
		stack = append(stack, r, l)
	}
	out = append(out, cp[len(cp)-1])
	return out
}

func bezierFlatEnough(cp []mgl32.Vec2) bool {
	for i := 1; i < len(cp)-1; i++ {
		d := cp[i-1].Sub(cp[i].Mul(2)).Add(cp[i+1])
		if d.Dot(d) > bezTolSq {
			return false
		}
	}
	return true
}

// bezierSubdivide splits the curve at t=0.5 with de Casteljau's scheme.
func bezierSubdivide(cp []mgl32.Vec2) (left, right []mgl32.Vec2) {
	n := len(cp)
	mid := make([]mgl32.Vec2, n)
	copy(mid, cp)
	left = make([]mgl32.Vec2, n)
	right = make([]mgl32.Vec2, n)

	for r := 0; r < n; r++ {
		left[r] = mid[0]
		right[n-1-r] = mid[n-1-r]
		for i := 0; i < n-1-r; i++ {
			mid[i] = mid[i].Add(mid[i+1]).Mul(0.5)
		}
	}
	return left, right
}

// --- Catmull-Rom ---

func approximateCatmull(pts []mgl32.Vec2) []mgl32.Vec2 {
	n := len(pts)
	out := make([]mgl32.Vec2, 0, (n-1)*catmullDet+1)
	out = append(out, pts[0])
	for i := 0; i < n-1; i++ {
		p0 := pts[max(i-1, 0)]
		p1 := pts[i]
		p2 := pts[i+1]
		p3 := pts[min(i+2, n-1)]
		for s := 1; s <= catmullDet; s++ {
			out = append(out, catmullPoint(p0, p1, p2, p3, float32(s)/catmullDet))
		}
	}
	return out
}

func catmullPoint(p0, p1, p2, p3 mgl32.Vec2, t float32) mgl32.Vec2 {
	t2 := t * t
	t3 := t2 * t
	f := func(a, b, c, d float32) float32 {
		return 0.5 * (2*b + (-a+c)*t + (2*a-5*b+4*c-d)*t2 + (-a+3*b-3*c+d)*t3)
	}
	return mgl32.Vec2{
		f(p0.X(), p1.X(), p2.X(), p3.X()),
		f(p0.Y(), p1.Y(), p2.Y(), p3.Y()),
	}
}

// --- B-spline (clamped uniform knots, de Boor evaluation) ---

func approximateBSpline(pts []mgl32.Vec2, degree int) []mgl32.Vec2 {
	n := len(pts)
	degree = min(degree, n-1)
	if degree < 2 {
		return pts
	}

	// n+degree+1 knots, first and last degree+1 pinned so the curve
	// starts and ends on the outer control points
	spans := n - degree
	knots := make([]float64, n+degree+1)
	for i := range knots {
		switch {
		case i <= degree:
			knots[i] = 0
		case i >= n:
			knots[i] = float64(spans)
		default:
			knots[i] = float64(i - degree)
		}
	}

	out := make([]mgl32.Vec2, 0, spans*bsplineDetail+1)
	d := make([]mgl32.Vec2, degree+1)
	for span := 0; span < spans; span++ {
		k := span + degree
		for s := 0; s < bsplineDetail; s++ {
			u := float64(span) + float64(s)/bsplineDetail
			out = append(out, deBoor(k, u, knots, pts, degree, d))
		}
	}
	out = append(out, pts[n-1])
	return out
}

func deBoor(k int, u float64, knots []float64, pts []mgl32.Vec2, degree int, d []mgl32.Vec2) mgl32.Vec2 {
	for j := 0; j <= degree; j++ {
		d[j] = pts[j+k-degree]
	}
	for r := 1; r <= degree; r++ {
		for j := degree; j >= r; j-- {
			i := j + k - degree
			denom := knots[i+1+degree-r] - knots[i]
			alpha := float32(0)
			if denom != 0 {
				alpha = float32((u - knots[i]) / denom)
			}
			d[j] = d[j-1].Mul(1 - alpha).Add(d[j].Mul(alpha))
		}
	}
	return d[degree]
}

// --- Perfect circle (3 points) ---

// approximateCircularArc reports false for degenerate (collinear) input, in
// which case the caller falls back to a bezier curve.
func approximateCircularArc(a, b, c mgl32.Vec2) ([]mgl32.Vec2, bool) {
	p1 := vec{float64(a.X()), float64(a.Y())}
	p2 := vec{float64(b.X()), float64(b.Y())}
	p3 := vec{float64(c.X()), float64(c.Y())}

	if math.Abs(cross(sub(p2, p1), sub(p3, p2))) < 1e-3 {
		return nil, false
	}
	cx, cy, ok := circumcenter(p1, p2, p3)
	if !ok {
		return nil, false
	}
	r := math.Hypot(p1.x-cx, p1.y-cy)

	a1 := math.Atan2(p1.y-cy, p1.x-cx)
	a3 := math.Atan2(p3.y-cy, p3.x-cx)
	dir := 1.0
	if cross(sub(p2, p1), sub(p3, p2)) < 0 {
		dir = -1.0
	}
	delta := angleDiff(a1, a3, dir)

	steps := 2
	if 2*r > arcTol {
		step := 2 * math.Acos(1-arcTol/r)
		steps = max(2, int(math.Ceil(math.Abs(delta)/step)))
	}

	out := make([]mgl32.Vec2, 0, steps+1)
	out = append(out, a)
	for i := 1; i < steps; i++ {
		theta := a1 + delta*float64(i)/float64(steps)
		out = append(out, mgl32.Vec2{float32(cx + math.Cos(theta)*r), float32(cy + math.Sin(theta)*r)})
	}
	out = append(out, c)
	return out, true
}

type vec struct{ x, y float64 }

func sub(a, b vec) vec       { return vec{a.x - b.x, a.y - b.y} }
func cross(a, b vec) float64 { return a.x*b.y - a.y*b.x }

func circumcenter(a, b, c vec) (x, y float64, ok bool) {
	d := 2 * (a.x*(b.y-c.y) + b.x*(c.y-a.y) + c.x*(a.y-b.y))
	if math.Abs(d) < 1e-8 {
		return 0, 0, false
	}
	a2 := a.x*a.x + a.y*a.y
	b2 := b.x*b.x + b.y*b.y
	c2 := c.x*c.x + c.y*c.y
	x = (a2*(b.y-c.y) + b2*(c.y-a.y) + c2*(a.y-b.y)) / d
	y = (a2*(c.x-b.x) + b2*(a.x-c.x) + c2*(b.x-a.x)) / d
	return x, y, true
}

// angleDiff returns the signed sweep from aStart to aEnd in direction dir.
func angleDiff(aStart, aEnd, dir float64) float64 {
	d := aEnd - aStart
	for d <= -math.Pi {
		d += 2 * math.Pi
	}
	for d > math.Pi {
		d -= 2 * math.Pi
	}
	if dir < 0 && d > 0 {
		d -= 2 * math.Pi
	} else if dir > 0 && d < 0 {
		d += 2 * math.Pi
	}
	return d
}
