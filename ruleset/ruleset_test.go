package ruleset

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"osuroundtrip/beatmap"
	"osuroundtrip/sliderpath"
)

func circle(t float64, x, y float32, newCombo bool, offset int) *beatmap.Circle {
	return &beatmap.Circle{HitObjectBase: beatmap.HitObjectBase{
		StartTime:   t,
		Position:    mgl32.Vec2{x, y},
		NewCombo:    newCombo,
		ComboOffset: offset,
	}}
}

func TestRegistry(t *testing.T) {
	r := DefaultRegistry()
	if got := r.IDs(); len(got) != 4 || got[0] != 0 || got[3] != 3 {
		t.Fatalf("ids = %v", got)
	}
	for id, name := range map[int]string{0: "osu", 1: "taiko", 2: "fruits", 3: "mania"} {
		rs, err := r.Lookup(id)
		if err != nil {
			t.Fatal(err)
		}
		if rs.ShortName() != name {
			t.Errorf("ruleset %d = %s, want %s", id, rs.ShortName(), name)
		}
		byName, err := r.LookupName(name)
		if err != nil || byName.ID() != id {
			t.Errorf("LookupName(%s) = %v, %v", name, byName, err)
		}
	}
	if _, err := r.Lookup(4); !errors.Is(err, ErrUnknownRuleset) {
		t.Errorf("Lookup(4) err = %v", err)
	}
	if _, err := NewRegistry(Osu{}, Osu{}); err == nil {
		t.Error("duplicate registration accepted")
	}
}

func TestConvertDoesNotMutateInput(t *testing.T) {
	b := beatmap.New()
	b.HitObjects = []beatmap.HitObject{circle(0, 10, 20, false, 0)}

	out, err := Taiko{}.ConvertBeatmap(b)
	if err != nil {
		t.Fatal(err)
	}
	if out.RulesetID != beatmap.RulesetTaiko || out.HitObjects[0].Base().Position != PlayfieldCentre {
		t.Errorf("converted = ruleset %d, position %v", out.RulesetID, out.HitObjects[0].Base().Position)
	}
	if b.RulesetID != beatmap.RulesetOsu || b.HitObjects[0].Base().Position != (mgl32.Vec2{10, 20}) {
		t.Error("conversion changed its input")
	}
}

func TestOsuCombos(t *testing.T) {
	b := beatmap.New()
	b.HitObjects = []beatmap.HitObject{
		circle(0, 0, 0, true, 0),
		circle(100, 0, 0, false, 0),
		circle(200, 0, 0, true, 2),
		&beatmap.Spinner{HitObjectBase: beatmap.HitObjectBase{StartTime: 300, NewCombo: true}, EndTime: 800},
		circle(900, 0, 0, false, 0),
		circle(1000, 0, 0, false, 0),
	}

	out, err := Osu{}.ConvertBeatmap(b)
	if err != nil {
		t.Fatal(err)
	}
	want := []struct {
		index, inCombo int
		newCombo       bool
	}{
		{1, 0, true},
		{1, 1, false},
		{4, 0, true},
		{5, 0, true},
		{6, 0, true},
		{6, 1, false},
	}
	for i, w := range want {
		base := out.HitObjects[i].Base()
		if base.ComboIndex != w.index || base.IndexInCurrentCombo != w.inCombo || base.NewCombo != w.newCombo {
			t.Errorf("object %d: combo %d/%d new %v, want %d/%d new %v", i,
				base.ComboIndex, base.IndexInCurrentCombo, base.NewCombo, w.index, w.inCombo, w.newCombo)
		}
	}
}

func TestOldSpinnersAlwaysEndCombos(t *testing.T) {
	b := beatmap.New()
	b.FormatVersion = 7
	b.HitObjects = []beatmap.HitObject{
		circle(0, 0, 0, true, 0),
		&beatmap.Spinner{HitObjectBase: beatmap.HitObjectBase{StartTime: 100}, EndTime: 500},
		circle(600, 0, 0, false, 0),
	}
	out, err := Osu{}.ConvertBeatmap(b)
	if err != nil {
		t.Fatal(err)
	}
	if !out.HitObjects[2].Base().NewCombo {
		t.Error("object after a v7 spinner continues the combo")
	}
}

func TestCatchClampsToPlayfield(t *testing.T) {
	b := beatmap.New()
	b.HitObjects = []beatmap.HitObject{circle(0, -20, 50, true, 0), circle(100, 600, 50, false, 0)}
	out, err := Catch{}.ConvertBeatmap(b)
	if err != nil {
		t.Fatal(err)
	}
	if x := out.HitObjects[0].Base().Position.X(); x != 0 {
		t.Errorf("left fruit x = %v", x)
	}
	if x := out.HitObjects[1].Base().Position.X(); x != playfieldWidth {
		t.Errorf("right fruit x = %v", x)
	}
}

func TestManiaColumns(t *testing.T) {
	for columns := 1; columns <= maxColumns; columns++ {
		for col := 0; col < columns; col++ {
			if got := Column(ColumnX(col, columns), columns); got != col {
				t.Errorf("%dK column %d round trips to %d", columns, col, got)
			}
		}
	}
	if got := Column(511, 4); got != 3 {
		t.Errorf("Column(511, 4) = %d", got)
	}
	if got := Column(900, 4); got != 3 {
		t.Errorf("Column(900, 4) = %d", got)
	}
}

func TestManiaConvertsLongObjectsToHolds(t *testing.T) {
	b := beatmap.New()
	b.Difficulty.OverallDifficulty = 8
	slider := &beatmap.Slider{
		HitObjectBase: beatmap.HitObjectBase{StartTime: 1000, Position: mgl32.Vec2{300, 100}},
		Path: sliderpath.NewPath([]sliderpath.PathControlPoint{
			{Position: mgl32.Vec2{0, 0}, Type: sliderpath.Ptr(sliderpath.Linear)},
			{Position: mgl32.Vec2{100, 0}},
		}, nil),
		Velocity: 0.5,
	}
	b.HitObjects = []beatmap.HitObject{circle(0, 40, 100, true, 0), slider}

	out, err := Mania{}.ConvertBeatmap(b)
	if err != nil {
		t.Fatal(err)
	}
	// CS 5 with OD above 5
	if out.Difficulty.CircleSize != 7 {
		t.Errorf("columns = %v, want 7", out.Difficulty.CircleSize)
	}
	hold, ok := out.HitObjects[1].(*beatmap.Hold)
	if !ok {
		t.Fatalf("slider converted to %T", out.HitObjects[1])
	}
	if hold.EndTime != 1200 {
		t.Errorf("hold end = %v, want 1200", hold.EndTime)
	}
	if hold.Position != (mgl32.Vec2{ColumnX(4, 7), columnY}) || hold.NewCombo {
		t.Errorf("hold = %+v", hold.HitObjectBase)
	}
}

func TestOnlyOsuBeatmapsConvert(t *testing.T) {
	b := beatmap.New()
	b.RulesetID = beatmap.RulesetTaiko
	if _, err := DefaultRegistry().ConvertTo(b, beatmap.RulesetMania); !errors.Is(err, ErrNotConvertible) {
		t.Errorf("taiko to mania err = %v", err)
	}

	b = beatmap.New()
	b.HitObjects = []beatmap.HitObject{&beatmap.Hold{EndTime: 100}}
	if _, err := (Osu{}).ConvertBeatmap(b); !errors.Is(err, ErrNotConvertible) {
		t.Errorf("hold in osu err = %v", err)
	}
}
