package dotosu

import (
	"errors"
	"math"
	"reflect"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"osuroundtrip/beatmap"
	"osuroundtrip/sliderpath"
)

func decodeString(t *testing.T, s string, opts ...DecodeOption) *beatmap.Beatmap {
	t.Helper()
	b, _, err := Decode(strings.NewReader(s), opts...)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestDecodeSections(t *testing.T) {
	b, s := decodeFixture(t, "sample_osu.osu")

	if b.RulesetID != beatmap.RulesetOsu {
		t.Errorf("ruleset = %d", b.RulesetID)
	}
	g := b.General
	if g.AudioFilename != "audio.mp3" || g.PreviewTime != 12000 || g.SampleSet != beatmap.BankSoft || !g.WidescreenStoryboard {
		t.Errorf("general = %+v", g)
	}
	if want := []int{1000, 5000, 12500}; !reflect.DeepEqual(b.Editor.Bookmarks, want) {
		t.Errorf("bookmarks = %v, want %v", b.Editor.Bookmarks, want)
	}
	if b.Editor.DistanceSpacing != 1.2 || b.Editor.GridSize != 8 || b.Editor.TimelineZoom != 1.5 {
		t.Errorf("editor = %+v", b.Editor)
	}
	m := b.Metadata
	if m.Title != "Round Trip" || m.BeatmapID != 123 || m.BeatmapSetID != 45 || m.BackgroundFile != "bg.jpg" {
		t.Errorf("metadata = %+v", m)
	}
	if m.Tags != "fixture // not a comment in metadata" {
		t.Errorf("tags = %q", m.Tags)
	}
	want := beatmap.Difficulty{HPDrainRate: 5, CircleSize: 4, OverallDifficulty: 6, ApproachRate: 7, SliderMultiplier: 1.6, SliderTickRate: 1}
	if b.Difficulty != want {
		t.Errorf("difficulty = %+v, want %+v", b.Difficulty, want)
	}
	if len(s.ComboColours) != 3 {
		t.Errorf("combo colours = %d, want 3", len(s.ComboColours))
	}
}

func TestDecodeEvents(t *testing.T) {
	b, _ := decodeFixture(t, "sample_osu.osu")

	if want := []beatmap.BreakPeriod{{Start: 8000, End: 10000}}; !reflect.DeepEqual(b.Breaks, want) {
		t.Errorf("breaks = %v", b.Breaks)
	}
	want := []string{
		`Sprite,Background,Centre,"sb/star.png",320,240`,
		` F,0,1000,2000,0,1`,
		`Sample,3000,0,"sb/hit.wav",60`,
	}
	if !reflect.DeepEqual(b.UnhandledEventLines, want) {
		t.Errorf("unhandled = %q", b.UnhandledEventLines)
	}
}

func TestDecodeControlPoints(t *testing.T) {
	b, _ := decodeFixture(t, "sample_osu.osu")
	info := b.ControlPoints

	if !info.Legacy() {
		t.Fatal("decoded control points are not legacy")
	}
	tests := []struct {
		name string
		got  int
		want int
	}{
		{"timing", len(info.TimingPoints()), 2},
		{"effect", len(info.EffectPoints()), 3},
		{"difficulty", len(info.DifficultyPoints()), 5},
		{"sample", len(info.SamplePoints()), 6},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s points = %d, want %d", tt.name, tt.got, tt.want)
		}
	}

	if tp := info.TimingPointAt(11500); tp.BeatLength != 375 || tp.TimeSignature != 3 || !tp.OmitFirstBarLine {
		t.Errorf("timing at 11500 = %+v", tp)
	}
	if dp := info.DifficultyPointAt(6500); dp.SliderVelocity != 1 || dp.GenerateTicks {
		t.Errorf("difficulty at 6500 = %+v", dp)
	}
	if dp := info.DifficultyPointAt(12000); dp.SliderVelocity != 0.75 {
		t.Errorf("difficulty at 12000 = %+v", dp)
	}
	if sp := info.SamplePointAt(4000); sp.SampleBank != beatmap.BankDrum || sp.SampleVolume != 80 || sp.CustomSampleBank != 1 {
		t.Errorf("sample at 4000 = %+v", sp)
	}
	if !info.EffectPointAt(4500).KiaiMode || info.EffectPointAt(6500).KiaiMode {
		t.Error("kiai sections decoded wrongly")
	}
}

func TestDecodeHitObjects(t *testing.T) {
	b, _ := decodeFixture(t, "sample_osu.osu")

	var kinds []beatmap.ObjectKind
	for _, h := range b.HitObjects {
		kinds = append(kinds, h.Kind())
	}
	want := []beatmap.ObjectKind{
		beatmap.KindCircle, beatmap.KindSlider, beatmap.KindCircle, beatmap.KindSlider, beatmap.KindCircle,
		beatmap.KindSpinner, beatmap.KindSlider, beatmap.KindCircle, beatmap.KindCircle, beatmap.KindSlider,
		beatmap.KindCircle,
	}
	if !reflect.DeepEqual(kinds, want) {
		t.Fatalf("kinds = %v, want %v", kinds, want)
	}

	first := b.HitObjects[0].Base()
	if !first.NewCombo || first.Position != (mgl32.Vec2{256, 192}) {
		t.Errorf("first object = %+v", first)
	}

	clapWhistle := b.HitObjects[2].Base().Samples
	wantSamples := []beatmap.HitSample{
		{Name: beatmap.HitNormal, Bank: beatmap.BankNormal, Volume: 70},
		{Name: beatmap.HitWhistle, Bank: beatmap.BankSoft, Volume: 70},
		{Name: beatmap.HitClap, Bank: beatmap.BankSoft, Volume: 70},
	}
	if !reflect.DeepEqual(clapWhistle, wantSamples) {
		t.Errorf("samples = %+v, want %+v", clapWhistle, wantSamples)
	}

	slider := b.HitObjects[1].(*beatmap.Slider)
	if slider.RepeatCount != 0 || len(slider.NodeSamples) != 2 {
		t.Errorf("slider repeats = %d, nodes = %d", slider.RepeatCount, len(slider.NodeSamples))
	}
	// 100 * 1.6 / 500
	if slider.Velocity != 0.32 {
		t.Errorf("velocity = %v", slider.Velocity)
	}
	if got := slider.NodeSamples[0][1]; got.Name != beatmap.HitWhistle || got.Bank != beatmap.BankSoft {
		t.Errorf("head whistle = %+v", got)
	}

	arc := b.HitObjects[3].(*beatmap.Slider)
	if arc.SliderVelocity != 2 || arc.RepeatCount != 1 || len(arc.NodeSamples) != 3 {
		t.Errorf("arc slider = sv %v repeats %d nodes %d", arc.SliderVelocity, arc.RepeatCount, len(arc.NodeSamples))
	}
	if typ := arc.Path.ControlPoints[0].Type; typ == nil || *typ != sliderpath.PerfectCurve {
		t.Errorf("arc type = %v", typ)
	}

	spinner := b.HitObjects[5].(*beatmap.Spinner)
	if spinner.EndTime != 5800 || spinner.Position != (mgl32.Vec2{256, 192}) {
		t.Errorf("spinner = %+v", spinner)
	}

	tickless := b.HitObjects[6].(*beatmap.Slider)
	if tickless.GenerateTicks || !math.IsInf(tickless.TickDistance, 1) {
		t.Errorf("slider under NaN line generates ticks")
	}

	file := b.HitObjects[7].Base().Samples
	if len(file) != 1 || !file[0].IsFile() || file[0].Filename != "hit.wav" || file[0].Volume != 50 {
		t.Errorf("file samples = %+v", file)
	}

	multi := b.HitObjects[9].(*beatmap.Slider)
	if got := len(multi.Path.ControlPoints); got != 5 {
		t.Errorf("implicit segment control points = %d, want 5", got)
	}
	if multi.Path.ControlPoints[2].Type == nil {
		t.Error("implicit segment boundary is untyped")
	}
}

func TestDecodeWithoutMigration(t *testing.T) {
	b, _, err := DecodeFile("testdata/sample_osu.osu", WithoutMigration())
	if err != nil {
		t.Fatal(err)
	}
	s := b.HitObjects[0].Base().Samples[0]
	if s.Bank != "" || s.Volume != 0 {
		t.Errorf("unmigrated sample = %+v", s)
	}
	if sv := b.HitObjects[3].(*beatmap.Slider).SliderVelocity; sv != 0 {
		t.Errorf("unmigrated slider velocity = %v", sv)
	}
}

const pathHeader = "osu file format v14\n\n[HitObjects]\n"

func decodePath(t *testing.T, path string, version int) []sliderpath.PathControlPoint {
	t.Helper()
	b := decodeString(t, pathHeader+"0,0,0,2,0,"+path+",1,100\n", WithFormatVersion(version))
	return b.HitObjects[0].(*beatmap.Slider).Path.ControlPoints
}

func TestDecodePathTypes(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		version int
		count   int
		types   map[int]sliderpath.PathType
	}{
		{"collinear perfect curve", "P|100:0|200:0", LATEST_VERSION, 3, map[int]sliderpath.PathType{0: sliderpath.Linear}},
		{"long perfect curve", "P|100:0|100:100|0:100", LATEST_VERSION, 4, map[int]sliderpath.PathType{0: sliderpath.Bezier}},
		{"collinear perfect curve in lazer", "P|100:0|200:0", FIRST_LAZER_VERSION, 3, map[int]sliderpath.PathType{0: sliderpath.PerfectCurve}},
		{"stable catmull keeps duplicates", "C|100:100|100:100|200:200", LATEST_VERSION, 4, map[int]sliderpath.PathType{0: sliderpath.Catmull}},
		{"lazer catmull splits", "C|100:100|100:100|200:200", FIRST_LAZER_VERSION, 3, map[int]sliderpath.PathType{0: sliderpath.Catmull, 1: sliderpath.Catmull}},
		{"explicit segments", "B|100:0|L|200:0|200:100", LATEST_VERSION, 4, map[int]sliderpath.PathType{0: sliderpath.Bezier, 2: sliderpath.Linear}},
		{"b-spline degree", "B4|10:10|20:0|30:10|40:0", LATEST_VERSION, 5, map[int]sliderpath.PathType{0: sliderpath.BSpline(4)}},
		{"degree one b-spline", "B1|100:0", LATEST_VERSION, 2, map[int]sliderpath.PathType{0: sliderpath.Linear}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cps := decodePath(t, tt.path, tt.version)
			if len(cps) != tt.count {
				t.Fatalf("control points = %d, want %d", len(cps), tt.count)
			}
			for i, p := range cps {
				want, typed := tt.types[i]
				switch {
				case typed && (p.Type == nil || *p.Type != want):
					t.Errorf("point %d type = %v, want %v", i, p.Type, want)
				case !typed && p.Type != nil:
					t.Errorf("point %d unexpectedly typed %v", i, *p.Type)
				}
			}
		})
	}
}

func TestDecodeTruncatesStableCoordinates(t *testing.T) {
	cps := decodePath(t, "L|100.7:50.2", LATEST_VERSION)
	if cps[1].Position != (mgl32.Vec2{100, 50}) {
		t.Errorf("stable point = %v", cps[1].Position)
	}
	cps = decodePath(t, "L|100.5:50.25", FIRST_LAZER_VERSION)
	if cps[1].Position != (mgl32.Vec2{100.5, 50.25}) {
		t.Errorf("lazer point = %v", cps[1].Position)
	}
}

func TestDecodeFormatErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		line  int
	}{
		{"missing header", "[General]\nMode: 0\n", 1},
		{"bad header version", "osu file format vX\n", 1},
		{"malformed section", "osu file format v14\n[General\n", 2},
		{"unknown mode", "osu file format v14\n[General]\nMode: 7\n", 3},
		{"bad beat length", "osu file format v14\n[TimingPoints]\n0,abc,4,1,0,100,1,0\n", 3},
		{"NaN timing line", "osu file format v14\n[TimingPoints]\n0,NaN,4,1,0,100,1,0\n", 3},
		{"bad colour", "osu file format v14\n[Colours]\nCombo1 : 255,0\n", 3},
		{"unknown object type", "osu file format v14\n[HitObjects]\n0,0,0,0,0\n", 3},
		{"too many repeats", "osu file format v14\n[HitObjects]\n0,0,0,2,0,L|100:0,9001,100\n", 3},
		{"unknown path type", "osu file format v14\n[HitObjects]\n0,0,0,2,0,X|100:0,1,100\n", 3},
		{"coordinate overflow", "osu file format v14\n[HitObjects]\n999999,0,0,1,0\n", 3},
		{"empty input", "\n\n", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Decode(strings.NewReader(tt.input))
			if !errors.Is(err, ErrFormat) {
				t.Fatalf("err = %v, want a format error", err)
			}
			var fe *FormatError
			if !errors.As(err, &fe) || fe.Line != tt.line {
				t.Errorf("error line = %v, want %d", err, tt.line)
			}
		})
	}
}

func TestDecodeUnknownPathTypeWrapsSentinel(t *testing.T) {
	_, _, err := Decode(strings.NewReader(pathHeader + "0,0,0,2,0,X|100:0,1,100\n"))
	if !errors.Is(err, sliderpath.ErrUnknownPathType) {
		t.Errorf("err = %v, want ErrUnknownPathType", err)
	}
}

func TestDecodeLenient(t *testing.T) {
	input := "osu file format v14\n[TimingPoints]\n0,abc,4,1,0,100,1,0\n0,500,4,1,0,100,1,0\n[HitObjects]\n0,0,0,0,0\n0,0,100,1,0\n"
	b := decodeString(t, input, WithLenient(true))
	if got := len(b.ControlPoints.TimingPoints()); got != 1 {
		t.Errorf("timing points = %d, want 1", got)
	}
	if got := len(b.HitObjects); got != 1 {
		t.Errorf("hit objects = %d, want 1", got)
	}
}

func TestDecodeHeaderlessWithExplicitVersion(t *testing.T) {
	b := decodeString(t, "[General]\nMode: 1\n", WithFormatVersion(LATEST_VERSION))
	if b.RulesetID != beatmap.RulesetTaiko {
		t.Errorf("ruleset = %d, want taiko", b.RulesetID)
	}
}

func TestDecodeByteOrderMark(t *testing.T) {
	b := decodeString(t, "\ufeffosu file format v9\n[General]\nMode: 2\n")
	if b.FormatVersion != 9 || b.RulesetID != beatmap.RulesetCatch {
		t.Errorf("version = %d, ruleset = %d", b.FormatVersion, b.RulesetID)
	}
}

func TestDecodeEarlyVersionOffset(t *testing.T) {
	input := "osu file format v4\n[TimingPoints]\n100,500,4,1,0,100,1,0\n[HitObjects]\n256,192,1000,1,0\n"

	b := decodeString(t, input, WithOffsets(true))
	if got := b.ControlPoints.TimingPoints()[0].Time; got != 124 {
		t.Errorf("timing point at %v, want 124", got)
	}
	if got := b.HitObjects[0].Base().StartTime; got != 1024 {
		t.Errorf("object at %v, want 1024", got)
	}

	b = decodeString(t, input)
	if got := b.HitObjects[0].Base().StartTime; got != 1000 {
		t.Errorf("object without offsets at %v, want 1000", got)
	}
}

func TestDecodeDifficultyDefaultsAndLimits(t *testing.T) {
	b := decodeString(t, "osu file format v14\n[Difficulty]\nOverallDifficulty:8\nCircleSize:12\nSliderMultiplier:5\n")
	if b.Difficulty.ApproachRate != 8 {
		t.Errorf("approach rate = %v, want overall difficulty", b.Difficulty.ApproachRate)
	}
	if b.Difficulty.CircleSize != 10 || b.Difficulty.SliderMultiplier != 3.6 {
		t.Errorf("difficulty not clamped: %+v", b.Difficulty)
	}

	b = decodeString(t, "osu file format v14\n[General]\nMode: 3\n[Difficulty]\nCircleSize:20\n")
	if b.Difficulty.CircleSize != MAX_MANIA_KEY_COUNT {
		t.Errorf("mania key count = %v", b.Difficulty.CircleSize)
	}
}

func TestDecodeBackgroundFallbacks(t *testing.T) {
	b := decodeString(t, "osu file format v14\n[Events]\nVideo,0,\"bg.jpg\"\n")
	if b.Metadata.BackgroundFile != "bg.jpg" || len(b.UnhandledEventLines) != 0 {
		t.Errorf("image video event: bg = %q, unhandled = %q", b.Metadata.BackgroundFile, b.UnhandledEventLines)
	}

	b = decodeString(t, "osu file format v14\n[Events]\nSprite,Background,Centre,\"sb\\bg.png\",320,240\n")
	if b.Metadata.BackgroundFile != "sb/bg.png" || len(b.UnhandledEventLines) != 1 {
		t.Errorf("sprite event: bg = %q, unhandled = %q", b.Metadata.BackgroundFile, b.UnhandledEventLines)
	}
}

func TestDecodeIgnoresUnknownSectionsAndComments(t *testing.T) {
	input := "osu file format v14\n[Mystery]\nwhatever\n[General]\n// comment\nMode: 1 // trailing\n_skipped\n"
	b := decodeString(t, input)
	if b.RulesetID != beatmap.RulesetTaiko {
		t.Errorf("ruleset = %d", b.RulesetID)
	}
}

func TestDecodeLenientBookmarks(t *testing.T) {
	b := decodeString(t, "osu file format v14\n[Editor]\nBookmarks: 100,abc,300\n")
	if want := []int{100, 300}; !reflect.DeepEqual(b.Editor.Bookmarks, want) {
		t.Errorf("bookmarks = %v, want %v", b.Editor.Bookmarks, want)
	}
}

func TestInheritedLineOverridesTimingLineAtSameTime(t *testing.T) {
	b := decodeString(t, "osu file format v14\n[TimingPoints]\n0,500,4,1,0,100,1,0\n0,-50,4,2,0,40,0,1\n")
	info := b.ControlPoints
	if dp := info.DifficultyPointAt(0); dp.SliderVelocity != 2 {
		t.Errorf("slider velocity = %v, want 2", dp.SliderVelocity)
	}
	if sp := info.SamplePointAt(0); sp.SampleBank != beatmap.BankSoft || sp.SampleVolume != 40 {
		t.Errorf("sample = %+v", sp)
	}
	if !info.EffectPointAt(0).KiaiMode {
		t.Error("kiai from inherited line lost")
	}
	if len(info.TimingPoints()) != 1 {
		t.Errorf("timing points = %d", len(info.TimingPoints()))
	}
}
