package beatmap

import (
	"reflect"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"osuroundtrip/controlpoints"
	"osuroundtrip/sliderpath"
)

func rawObjects() []HitObject {
	dist := 100.0
	return []HitObject{
		&Circle{HitObjectBase: HitObjectBase{
			StartTime: 1000,
			Samples:   []HitSample{{Name: HitNormal}, {Name: HitClap}},
		}},
		&Slider{
			HitObjectBase: HitObjectBase{
				StartTime: 2000,
				Position:  mgl32.Vec2{100, 100},
				Samples:   []HitSample{{Name: HitNormal}},
			},
			Path: sliderpath.Path{
				ControlPoints: []sliderpath.PathControlPoint{
					{Type: sliderpath.Ptr(sliderpath.Linear)},
					{Position: mgl32.Vec2{100, 0}},
				},
				ExpectedDistance: &dist,
			},
			RepeatCount: 1,
			NodeSamples: [][]HitSample{
				{{Name: HitNormal}},
				{{Name: HitNormal}, {Name: HitWhistle}},
				{{Name: HitNormal}},
			},
		},
		&Spinner{
			HitObjectBase: HitObjectBase{StartTime: 5000, Samples: []HitSample{{Name: HitNormal, Bank: BankDrum}}},
			EndTime:       7000,
		},
	}
}

func legacyInfo() *controlpoints.Info {
	info := controlpoints.NewLegacyInfo()
	info.Add(controlpoints.NewTimingPoint(0, 500, 4, false))
	info.Add(controlpoints.SamplePoint{Time: 0, SampleBank: BankSoft, SampleVolume: 60})
	info.Add(controlpoints.NewDifficultyPoint(1500, 2, true))
	info.Add(controlpoints.SamplePoint{Time: 2400, SampleBank: BankSoft, SampleVolume: 80, CustomSampleBank: 2})
	info.Add(controlpoints.SamplePoint{Time: 6000, SampleBank: BankDrum, SampleVolume: 30})
	return info
}

func TestApplyLegacyControlPoints(t *testing.T) {
	raw := rawObjects()
	d := DefaultDifficulty()
	got := ApplyLegacyControlPoints(legacyInfo(), d, raw)

	if raw[0].Base().Samples[0].Volume != 0 {
		t.Fatal("input objects were modified")
	}

	circle := got[0].Base()
	if s := circle.Samples[1]; s.Bank != BankSoft || s.Volume != 60 || s.CustomSampleBank != 0 {
		t.Errorf("circle clap = %+v", s)
	}

	slider := got[1].(*Slider)
	if slider.SliderVelocity != 2 {
		t.Errorf("slider velocity = %v, want 2", slider.SliderVelocity)
	}
	// 100 * 1.4 * 2 / 500
	if want := 0.56; slider.Velocity != want {
		t.Errorf("velocity = %v, want %v", slider.Velocity, want)
	}
	// span duration 100/0.56 ~ 178.6ms: head at 2000, repeat ~2178, tail ~2357
	if v := slider.NodeSamples[0][0].Volume; v != 60 {
		t.Errorf("head volume = %d, want 60", v)
	}
	if v := slider.NodeSamples[2][0].Volume; v != 60 {
		t.Errorf("tail volume = %d, want 60", v)
	}

	spinner := got[2].Base()
	if s := spinner.Samples[0]; s.Bank != BankDrum || s.Volume != 30 {
		t.Errorf("spinner sample = %+v", s)
	}
}

func TestExtractedPointsReproduceObjects(t *testing.T) {
	d := DefaultDifficulty()
	info := legacyInfo()
	migrated := ApplyLegacyControlPoints(info, d, rawObjects())

	difficulty, samples := ExtractLegacyControlPoints(migrated, false)
	if len(difficulty) != 1 || difficulty[0].SliderVelocity != 2 {
		t.Fatalf("difficulty points = %+v", difficulty)
	}

	rebuilt := controlpoints.NewLegacyInfo()
	for _, tp := range info.TimingPoints() {
		rebuilt.Add(tp)
	}
	for _, p := range difficulty {
		rebuilt.Add(p)
	}
	for _, p := range samples {
		rebuilt.Add(p)
	}

	// objects decoded again carry explicit banks but inherit volume and
	// custom bank, as the legacy encoder writes them
	stripped := CloneAll(migrated)
	for _, h := range stripped {
		clearInherited(h.Base().Samples)
		if s, ok := h.(*Slider); ok {
			for _, n := range s.NodeSamples {
				clearInherited(n)
			}
		}
	}

	again := ApplyLegacyControlPoints(rebuilt, d, stripped)
	if !reflect.DeepEqual(migrated, again) {
		t.Errorf("objects differ after re-deriving control points\nwant %#v\ngot  %#v", migrated, again)
	}
}

func clearInherited(samples []HitSample) {
	for i := range samples {
		samples[i].Volume = 0
		samples[i].CustomSampleBank = 0
	}
}

func TestEndTime(t *testing.T) {
	objects := ApplyDefaults(controlpoints.NewInfo(), DefaultDifficulty(), rawObjects())
	// default beat length 1000: velocity 0.14, two spans of 100
	want := 2000 + 2*100/0.14
	if got := EndTime(objects[1]); got-want > 1e-9 || want-got > 1e-9 {
		t.Errorf("slider end = %v, want %v", got, want)
	}
	if got := EndTime(objects[2]); got != 7000 {
		t.Errorf("spinner end = %v", got)
	}
	if got := EndTime(objects[0]); got != 1000 {
		t.Errorf("circle end = %v", got)
	}
}

func TestSortByStartTimeIsStable(t *testing.T) {
	a := &Circle{HitObjectBase: HitObjectBase{StartTime: 10, ComboOffset: 1}}
	b := &Circle{HitObjectBase: HitObjectBase{StartTime: 5}}
	c := &Circle{HitObjectBase: HitObjectBase{StartTime: 10, ComboOffset: 2}}
	objects := []HitObject{a, b, c}
	SortByStartTime(objects)
	if objects[0] != b || objects[1] != a || objects[2] != c {
		t.Error("unstable sort")
	}
}

func TestCloneKeepsNilSlices(t *testing.T) {
	s := &Slider{Path: sliderpath.NewPath(nil, nil)}
	c := Clone(s).(*Slider)
	if c.NodeSamples != nil || c.Samples != nil || c.Path.ControlPoints != nil {
		t.Errorf("clone = %+v, want nil slices kept nil", c)
	}
	if !reflect.DeepEqual(Clone(s), s) {
		t.Error("clone differs from original")
	}
}

func TestZeroVelocityExtractsDefault(t *testing.T) {
	info := controlpoints.NewInfo()
	info.Add(controlpoints.NewTimingPoint(0, 500, 4, false))
	objects := ApplyDefaults(info, DefaultDifficulty(), []HitObject{
		&Slider{
			HitObjectBase: HitObjectBase{StartTime: 1000},
			Path:          sliderpath.NewPath([]sliderpath.PathControlPoint{{Position: mgl32.Vec2{}}, {Position: mgl32.Vec2{100, 0}}}, nil),
			GenerateTicks: true,
		},
	})

	difficulty, _ := ExtractLegacyControlPoints(objects, false)
	if len(difficulty) != 1 || difficulty[0].SliderVelocity != 1 {
		t.Errorf("difficulty points = %+v, want one 1x point", difficulty)
	}
}
