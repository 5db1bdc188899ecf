// Package sliderpath models slider curves: typed control points, segment
// splitting and polyline approximation.
package sliderpath

import (
	"errors"
	"fmt"
	"strconv"
)

type SplineType uint8

const (
	SplineCatmull SplineType = iota
	SplineBSpline
	SplineLinear
	SplinePerfectCurve
)

// PathType is the curve type of a segment. Degree is only meaningful for
// SplineBSpline, where 0 means a plain bezier curve.
type PathType struct {
	Spline SplineType
	Degree int
}

var (
	Catmull      = PathType{Spline: SplineCatmull}
	Bezier       = PathType{Spline: SplineBSpline}
	Linear       = PathType{Spline: SplineLinear}
	PerfectCurve = PathType{Spline: SplinePerfectCurve}
)

var ErrUnknownPathType = errors.New("unknown path type")

// BSpline returns a b-spline type of the given degree. Degree must be at least 2.
func BSpline(degree int) PathType {
	if degree < 2 {
		panic(fmt.Sprintf("sliderpath: b-spline degree %d < 2", degree))
	}
	return PathType{Spline: SplineBSpline, Degree: degree}
}

// Ptr returns a pointer to a copy of t, for use as PathControlPoint.Type.
func Ptr(t PathType) *PathType { return &t }

// String returns the legacy letter of the type: B, B3, C, L or P.
func (t PathType) String() string {
	switch t.Spline {
	case SplineCatmull:
		return "C"
	case SplineBSpline:
		if t.Degree > 0 {
			return "B" + strconv.Itoa(t.Degree)
		}
		return "B"
	case SplineLinear:
		return "L"
	case SplinePerfectCurve:
		return "P"
	}
	return "?"
}

// ParsePathType parses a legacy type token. "B1" is a degree-one b-spline,
// which traces the same polyline as a linear segment, and parses as Linear.
func ParsePathType(s string) (PathType, error) {
	if s == "" {
		return PathType{}, fmt.Errorf("%w: empty", ErrUnknownPathType)
	}
	switch s[0] {
	case 'C':
		if len(s) == 1 {
			return Catmull, nil
		}
	case 'L':
		if len(s) == 1 {
			return Linear, nil
		}
	case 'P':
		if len(s) == 1 {
			return PerfectCurve, nil
		}
	case 'B':
		if len(s) == 1 {
			return Bezier, nil
		}
		degree, err := strconv.Atoi(s[1:])
		if err != nil || degree < 1 {
			return PathType{}, fmt.Errorf("%w: %q", ErrUnknownPathType, s)
		}
		if degree == 1 {
			return Linear, nil
		}
		return BSpline(degree), nil
	}
	return PathType{}, fmt.Errorf("%w: %q", ErrUnknownPathType, s)
}
