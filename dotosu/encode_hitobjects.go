package dotosu

import (
	"fmt"
	"strings"

	"github.com/go-gl/mathgl/mgl32"

	"osuroundtrip/beatmap"
	"osuroundtrip/sliderpath"
)

func (e *encoder) hitObjects() {
	e.section("HitObjects")
	for _, h := range e.b.HitObjects {
		e.hitObject(h)
	}
}

func (e *encoder) hitObject(h beatmap.HitObject) {
	base := h.Base()
	fmt.Fprintf(e.w, "%s,%s,%s,%d,%d,",
		formatFloat32(base.Position.X()), formatFloat32(base.Position.Y()),
		formatFloat(base.StartTime), objectType(h), hitSoundType(base.Samples))

	switch h := h.(type) {
	case *beatmap.Slider:
		e.pathData(h)
		e.w.WriteString(e.sampleBank(h.Samples, false))
	case *beatmap.Spinner:
		fmt.Fprintf(e.w, "%s,%s", formatFloat(h.EndTime), e.sampleBank(h.Samples, false))
	case *beatmap.Hold:
		// holds write the end time as the first hit sample field
		fmt.Fprintf(e.w, "%s:%s", formatFloat(h.EndTime), e.sampleBank(h.Samples, false))
	default:
		e.w.WriteString(e.sampleBank(base.Samples, false))
	}
	e.w.WriteByte('\n')
}

func objectType(h beatmap.HitObject) HitObjectTypeFlags {
	base := h.Base()
	t := HitObjectTypeFlags(base.ComboOffset<<4) & typeComboOffset
	if base.NewCombo {
		t |= TypeNewCombo
	}
	switch h.Kind() {
	case beatmap.KindSlider:
		t |= TypeSlider
	case beatmap.KindSpinner:
		t |= TypeSpinner
	case beatmap.KindHold:
		t |= TypeHold
	default:
		t |= TypeCircle
	}
	return t
}

func hitSoundType(samples []beatmap.HitSample) HitSoundFlags {
	var t HitSoundFlags
	for _, s := range samples {
		switch s.Name {
		case beatmap.HitWhistle:
			t |= HitSoundWhistle
		case beatmap.HitFinish:
			t |= HitSoundFinish
		case beatmap.HitClap:
			t |= HitSoundClap
		}
	}
	return t
}

// sampleBank writes normal:additions, followed by :custom:volume:filename
// unless banksOnly.
func (e *encoder) sampleBank(samples []beatmap.HitSample, banksOnly bool) string {
	var normal, additions string
	var named, addition, file *beatmap.HitSample
	for i := range samples {
		s := &samples[i]
		switch {
		case s.Name == beatmap.HitNormal:
			normal = s.Bank
		case s.Name != "" && addition == nil:
			addition = s
			additions = s.Bank
		}
		if s.Name != "" && named == nil {
			named = s
		}
		if s.Name == "" && file == nil {
			file = s
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d:%d", toSampleSet(normal), toSampleSet(additions))
	if banksOnly {
		return sb.String()
	}

	custom, volume, filename := 0, 100, ""
	if named != nil {
		custom = named.CustomSampleBank
	}
	if len(samples) > 0 {
		volume = samples[0].Volume
	}
	if file != nil {
		filename = file.Filename
	}
	// outside mania the sample points already carry custom bank and volume
	if e.b.RulesetID != beatmap.RulesetMania {
		custom, volume = 0, 0
	}
	fmt.Fprintf(&sb, ":%d:%d:%s", custom, volume, filename)
	return sb.String()
}

func (e *encoder) pathData(s *beatmap.Slider) {
	pos := s.Position
	cps := s.Path.ControlPoints

	var lastType *sliderpath.PathType
	for i, cp := range cps {
		typ := cp.Type
		// an untyped head starts a linear segment
		if i == 0 && typ == nil {
			typ = sliderpath.Ptr(sliderpath.Linear)
		}
		if typ != nil {
			explicit := lastType == nil || *typ != *lastType ||
				*typ == sliderpath.PerfectCurve || i == len(cps)-1
			// truncated duplicates would read back as an implicit segment
			if i > 1 {
				p1 := pos.Add(cps[i-1].Position)
				p2 := pos.Add(cps[i-2].Position)
				if int(p1.X()) == int(p2.X()) && int(p1.Y()) == int(p2.Y()) {
					explicit = true
				}
			}
			if explicit {
				fmt.Fprintf(e.w, "%s|", typ)
				lastType = typ
			} else {
				// a repeated point starts a new segment of the same type
				e.writePoint(pos.Add(cp.Position))
				e.w.WriteByte('|')
			}
		}
		if i != 0 {
			e.writePoint(pos.Add(cp.Position))
			if i != len(cps)-1 {
				e.w.WriteByte('|')
			} else {
				e.w.WriteByte(',')
			}
		}
	}
	if len(cps) < 2 {
		if len(cps) == 0 {
			fmt.Fprintf(e.w, "%s|", sliderpath.Linear)
		}
		e.writePoint(pos)
		e.w.WriteByte(',')
	}

	fmt.Fprintf(e.w, "%d,%s,", s.RepeatCount+1, formatFloat(s.Path.Distance()))

	nodes := s.NodeSamples
	sounds := make([]string, len(nodes))
	banks := make([]string, len(nodes))
	for i, n := range nodes {
		sounds[i] = fmt.Sprint(int(hitSoundType(n)))
		banks[i] = e.sampleBank(n, true)
	}
	fmt.Fprintf(e.w, "%s,%s,", strings.Join(sounds, "|"), strings.Join(banks, "|"))
}

func (e *encoder) writePoint(p mgl32.Vec2) {
	fmt.Fprintf(e.w, "%s:%s", formatFloat32(p.X()), formatFloat32(p.Y()))
}
