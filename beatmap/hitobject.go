package beatmap

import (
	"slices"

	"github.com/go-gl/mathgl/mgl32"

	"osuroundtrip/sliderpath"
)

type ObjectKind uint8

const (
	KindCircle ObjectKind = iota
	KindSlider
	KindSpinner
	KindHold
)

func (k ObjectKind) String() string {
	switch k {
	case KindCircle:
		return "circle"
	case KindSlider:
		return "slider"
	case KindSpinner:
		return "spinner"
	case KindHold:
		return "hold"
	}
	return "unknown"
}

// Sample names and banks.
const (
	HitNormal  = "hitnormal"
	HitWhistle = "hitwhistle"
	HitFinish  = "hitfinish"
	HitClap    = "hitclap"

	BankNormal = "normal"
	BankSoft   = "soft"
	BankDrum   = "drum"
)

// HitSample is one sound played by a hit object. Zero Bank, Volume and
// CustomSampleBank inherit from the sample point in effect. A sample with a
// Filename and no Name plays that file.
type HitSample struct {
	Name             string
	Bank             string
	Volume           int
	CustomSampleBank int
	Filename         string
}

func (s HitSample) IsFile() bool { return s.Name == "" && s.Filename != "" }

type HitObject interface {
	Kind() ObjectKind
	Base() *HitObjectBase
}

type HitObjectBase struct {
	StartTime   float64
	Position    mgl32.Vec2
	NewCombo    bool
	ComboOffset int
	Samples     []HitSample

	ComboIndex          int
	IndexInCurrentCombo int
}

func (b *HitObjectBase) Base() *HitObjectBase { return b }

type Circle struct{ HitObjectBase }

func (*Circle) Kind() ObjectKind { return KindCircle }

type Slider struct {
	HitObjectBase
	Path        sliderpath.Path
	RepeatCount int
	// NodeSamples has RepeatCount+2 entries: head, repeats, tail.
	NodeSamples [][]HitSample

	SliderVelocity float64
	GenerateTicks  bool
	Velocity       float64
	TickDistance   float64
}

func (*Slider) Kind() ObjectKind { return KindSlider }

func (s *Slider) SpanCount() int { return s.RepeatCount + 1 }

func (s *Slider) SpanDuration() float64 {
	if s.Velocity <= 0 {
		return 0
	}
	return s.Path.Distance() / s.Velocity
}

// NodeTime is the time of node i (0 is the head).
func (s *Slider) NodeTime(i int) float64 {
	return s.StartTime + float64(i)*s.SpanDuration()
}

type Spinner struct {
	HitObjectBase
	EndTime float64
}

func (*Spinner) Kind() ObjectKind { return KindSpinner }

type Hold struct {
	HitObjectBase
	EndTime float64
}

func (*Hold) Kind() ObjectKind { return KindHold }

// EndTime of any hit object.
func EndTime(h HitObject) float64 {
	switch h := h.(type) {
	case *Slider:
		return h.StartTime + float64(h.SpanCount())*h.SpanDuration()
	case *Spinner:
		return h.EndTime
	case *Hold:
		return h.EndTime
	}
	return h.Base().StartTime
}

// Clone deep copies a hit object.
func Clone(h HitObject) HitObject {
	switch h := h.(type) {
	case *Circle:
		c := *h
		c.Samples = slices.Clone(h.Samples)
		return &c
	case *Slider:
		s := *h
		s.Samples = slices.Clone(h.Samples)
		s.Path = h.Path.Clone()
		if h.NodeSamples != nil {
			s.NodeSamples = make([][]HitSample, len(h.NodeSamples))
			for i, n := range h.NodeSamples {
				s.NodeSamples[i] = slices.Clone(n)
			}
		}
		return &s
	case *Spinner:
		s := *h
		s.Samples = slices.Clone(h.Samples)
		return &s
	case *Hold:
		c := *h
		c.Samples = slices.Clone(h.Samples)
		return &c
	}
	panic("beatmap: unknown hit object type")
}

func CloneAll(objects []HitObject) []HitObject {
	if objects == nil {
		return nil
	}
	out := make([]HitObject, len(objects))
	for i, h := range objects {
		out[i] = Clone(h)
	}
	return out
}

// SortByStartTime stably orders objects by start time.
func SortByStartTime(objects []HitObject) {
	slices.SortStableFunc(objects, func(a, b HitObject) int {
		ta, tb := a.Base().StartTime, b.Base().StartTime
		switch {
		case ta < tb:
			return -1
		case ta > tb:
			return 1
		}
		return 0
	})
}
