package beatmap

import (
	"math"
	"slices"

	"osuroundtrip/controlpoints"
)

const (
	// CONTROL_POINT_LENIENCY lets a sample point placed slightly after an
	// object still apply to it.
	CONTROL_POINT_LENIENCY = 5

	BASE_SCORING_DISTANCE = 100
)

// ApplyDefaults returns copies of objects with slider velocity and tick
// distance computed from the timing points and difficulty.
func ApplyDefaults(info *controlpoints.Info, d Difficulty, objects []HitObject) []HitObject {
	out := CloneAll(objects)
	for _, h := range out {
		if s, ok := h.(*Slider); ok {
			applySliderDefaults(s, info, d)
		}
	}
	return out
}

func applySliderDefaults(s *Slider, info *controlpoints.Info, d Difficulty) {
	tp := info.TimingPointAt(s.StartTime)
	scoringDistance := BASE_SCORING_DISTANCE * d.SliderMultiplier * sliderVelocity(s)
	s.Velocity = scoringDistance / tp.BeatLength
	if s.GenerateTicks {
		s.TickDistance = scoringDistance / d.SliderTickRate
	} else {
		s.TickDistance = math.Inf(1)
	}
}

// sliderVelocity is the velocity multiplier of s. Zero means unset and
// plays at 1x.
func sliderVelocity(s *Slider) float64 {
	if s.SliderVelocity == 0 {
		return 1
	}
	return s.SliderVelocity
}

// ApplyLegacyControlPoints moves the state carried by legacy difficulty and
// sample points onto copies of the hit objects: slider velocity and tick
// generation from the difficulty point at the slider start, and inherited
// sample bank, volume and custom bank from the sample point in effect at
// the object end (node time for slider nodes) plus CONTROL_POINT_LENIENCY.
func ApplyLegacyControlPoints(info *controlpoints.Info, d Difficulty, objects []HitObject) []HitObject {
	out := CloneAll(objects)
	for _, h := range out {
		if s, ok := h.(*Slider); ok {
			dp := info.DifficultyPointAt(s.StartTime)
			s.SliderVelocity = dp.SliderVelocity
			s.GenerateTicks = dp.GenerateTicks
			applySliderDefaults(s, info, d)
		}
	}
	for _, h := range out {
		applySamples(info, h)
	}
	return out
}

func applySamples(info *controlpoints.Info, h HitObject) {
	base := h.Base()
	s, isSlider := h.(*Slider)
	if !isSlider {
		sp := info.SamplePointAt(EndTime(h) + CONTROL_POINT_LENIENCY)
		base.Samples = resolveSamples(base.Samples, sp)
		return
	}

	// the body shares the head's sample point
	base.Samples = resolveSamples(base.Samples, info.SamplePointAt(s.StartTime+CONTROL_POINT_LENIENCY))
	for i := range s.NodeSamples {
		sp := info.SamplePointAt(s.NodeTime(i) + CONTROL_POINT_LENIENCY)
		s.NodeSamples[i] = resolveSamples(s.NodeSamples[i], sp)
	}
}

func resolveSamples(samples []HitSample, sp controlpoints.SamplePoint) []HitSample {
	out := slices.Clone(samples)
	for i := range out {
		if out[i].Volume == 0 {
			out[i].Volume = sp.SampleVolume
		}
		if out[i].IsFile() {
			continue
		}
		if out[i].Bank == "" {
			out[i].Bank = sp.SampleBank
		}
		if out[i].CustomSampleBank == 0 {
			out[i].CustomSampleBank = sp.CustomSampleBank
		}
	}
	return out
}

// ExtractLegacyControlPoints derives the difficulty and sample points that
// reproduce the per-object state of objects when decoded again. Objects must
// have had ApplyDefaults run so slider node times are known. Points that
// would not change the previously extracted point are dropped. With
// scrollAsVelocity no difficulty points are extracted, since the effect
// points' scroll speed is written as slider velocity instead.
func ExtractLegacyControlPoints(objects []HitObject, scrollAsVelocity bool) ([]controlpoints.DifficultyPoint, []controlpoints.SamplePoint) {
	var difficulty []controlpoints.DifficultyPoint
	if !scrollAsVelocity {
		for _, h := range objects {
			s, ok := h.(*Slider)
			if !ok {
				continue
			}
			p := controlpoints.NewDifficultyPoint(s.StartTime, sliderVelocity(s), s.GenerateTicks)
			if len(difficulty) > 0 && p.IsRedundant(difficulty[len(difficulty)-1]) {
				continue
			}
			difficulty = append(difficulty, p)
		}
	}

	var all []controlpoints.SamplePoint
	for _, h := range objects {
		s, isSlider := h.(*Slider)
		if !isSlider {
			all = append(all, samplePointFor(EndTime(h), h.Base().Samples))
			continue
		}
		all = append(all, samplePointFor(s.StartTime, s.Samples))
		for i, node := range s.NodeSamples {
			all = append(all, samplePointFor(s.NodeTime(i), node))
		}
	}
	slices.SortStableFunc(all, func(a, b controlpoints.SamplePoint) int {
		switch {
		case a.Time < b.Time:
			return -1
		case a.Time > b.Time:
			return 1
		}
		return 0
	})

	var samples []controlpoints.SamplePoint
	for _, p := range all {
		if len(samples) > 0 && p.IsRedundant(samples[len(samples)-1]) {
			continue
		}
		samples = append(samples, p)
	}
	return difficulty, samples
}

// samplePointFor uses the loudest volume and highest custom bank among the
// samples. CustomSampleBank is -1 when no named sample carries one.
func samplePointFor(t float64, samples []HitSample) controlpoints.SamplePoint {
	p := controlpoints.SamplePoint{Time: t, SampleBank: BankNormal, CustomSampleBank: -1}
	for _, s := range samples {
		p.SampleVolume = max(p.SampleVolume, s.Volume)
		if !s.IsFile() {
			p.CustomSampleBank = max(p.CustomSampleBank, s.CustomSampleBank)
		}
	}
	return p
}
