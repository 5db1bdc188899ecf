// Package controlpoints holds the timing model of a beatmap: timing, difficulty,
// sample and effect points grouped by timestamp.
package controlpoints

import "math"

type Kind uint8

const (
	KindTiming Kind = iota
	KindDifficulty
	KindSample
	KindEffect

	kindCount = 4
)

func (k Kind) String() string {
	switch k {
	case KindTiming:
		return "timing"
	case KindDifficulty:
		return "difficulty"
	case KindSample:
		return "sample"
	case KindEffect:
		return "effect"
	}
	return "unknown"
}

const (
	MIN_BEAT_LENGTH     = 6
	MAX_BEAT_LENGTH     = 60000
	DEFAULT_BEAT_LENGTH = 1000

	MIN_SLIDER_VELOCITY = 0.1
	MAX_SLIDER_VELOCITY = 10
	MIN_SCROLL_SPEED    = 0.01
	MAX_SCROLL_SPEED    = 10

	// velocity and scroll speed are stored at this precision so that
	// 100/-beatLength conversions are stable across re-encoding
	velocityPrecision = 0.01
)

// ControlPoint is implemented only by TimingPoint, DifficultyPoint,
// SamplePoint and EffectPoint.
type ControlPoint interface {
	Kind() Kind
	// At returns the timestamp of the point in milliseconds.
	At() float64
	// IsRedundant reports whether adding the point would change nothing
	// given the point of the same kind currently in effect (nil if none).
	IsRedundant(existing ControlPoint) bool

	sealed()
}

// ---------- variants ----------

type TimingPoint struct {
	Time             float64
	BeatLength       float64
	TimeSignature    int
	OmitFirstBarLine bool
}

func NewTimingPoint(time, beatLength float64, meter int, omitFirstBarLine bool) TimingPoint {
	if meter <= 0 {
		meter = 4
	}
	return TimingPoint{
		Time:             time,
		BeatLength:       clamp(beatLength, MIN_BEAT_LENGTH, MAX_BEAT_LENGTH),
		TimeSignature:    meter,
		OmitFirstBarLine: omitFirstBarLine,
	}
}

func (p TimingPoint) Kind() Kind  { return KindTiming }
func (p TimingPoint) At() float64 { return p.Time }
func (p TimingPoint) sealed()     {}

// IsRedundant is always false: a red line resets the beat grid even when
// its values repeat.
func (p TimingPoint) IsRedundant(ControlPoint) bool { return false }

// BPM of the point.
func (p TimingPoint) BPM() float64 { return 60000 / p.BeatLength }

type DifficultyPoint struct {
	Time           float64
	SliderVelocity float64
	GenerateTicks  bool
}

func NewDifficultyPoint(time, sliderVelocity float64, generateTicks bool) DifficultyPoint {
	return DifficultyPoint{
		Time:           time,
		SliderVelocity: RoundVelocity(clamp(sliderVelocity, MIN_SLIDER_VELOCITY, MAX_SLIDER_VELOCITY)),
		GenerateTicks:  generateTicks,
	}
}

func (p DifficultyPoint) Kind() Kind  { return KindDifficulty }
func (p DifficultyPoint) At() float64 { return p.Time }
func (p DifficultyPoint) sealed()     {}

func (p DifficultyPoint) IsRedundant(existing ControlPoint) bool {
	if existing == nil || existing.Kind() != KindDifficulty {
		return false
	}
	e := existing.(DifficultyPoint)
	return e.SliderVelocity == p.SliderVelocity && e.GenerateTicks == p.GenerateTicks
}

type SamplePoint struct {
	Time             float64
	SampleBank       string
	SampleVolume     int
	CustomSampleBank int
}

func (p SamplePoint) Kind() Kind  { return KindSample }
func (p SamplePoint) At() float64 { return p.Time }
func (p SamplePoint) sealed()     {}

func (p SamplePoint) IsRedundant(existing ControlPoint) bool {
	if existing == nil || existing.Kind() != KindSample {
		return false
	}
	e := existing.(SamplePoint)
	return e.SampleBank == p.SampleBank && e.SampleVolume == p.SampleVolume &&
		e.CustomSampleBank == p.CustomSampleBank
}

type EffectPoint struct {
	Time        float64
	KiaiMode    bool
	ScrollSpeed float64
}

func NewEffectPoint(time float64, kiai bool, scrollSpeed float64) EffectPoint {
	return EffectPoint{
		Time:        time,
		KiaiMode:    kiai,
		ScrollSpeed: RoundVelocity(clamp(scrollSpeed, MIN_SCROLL_SPEED, MAX_SCROLL_SPEED)),
	}
}

func (p EffectPoint) Kind() Kind  { return KindEffect }
func (p EffectPoint) At() float64 { return p.Time }
func (p EffectPoint) sealed()     {}

func (p EffectPoint) IsRedundant(existing ControlPoint) bool {
	if existing == nil || existing.Kind() != KindEffect {
		return false
	}
	e := existing.(EffectPoint)
	return e.KiaiMode == p.KiaiMode && e.ScrollSpeed == p.ScrollSpeed
}

// ---------- defaults ----------

var (
	DefaultTiming     = TimingPoint{BeatLength: DEFAULT_BEAT_LENGTH, TimeSignature: 4}
	DefaultDifficulty = DifficultyPoint{SliderVelocity: 1, GenerateTicks: true}
	DefaultSample     = SamplePoint{SampleBank: "normal", SampleVolume: 100}
	DefaultEffect     = EffectPoint{ScrollSpeed: 1}
)

// RoundVelocity snaps a multiplier to 0.01 steps.
func RoundVelocity(v float64) float64 {
	return math.Round(v/velocityPrecision) * velocityPrecision
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
