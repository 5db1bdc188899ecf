package ruleset

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"osuroundtrip/beatmap"
)

const (
	maxColumns = 18
	columnY    = 192
)

type Mania struct{}

func (Mania) ID() int           { return beatmap.RulesetMania }
func (Mania) ShortName() string { return "mania" }

// ConvertBeatmap anchors every object to the left edge of its column and
// turns sliders and spinners into hold notes. Converted osu beatmaps get
// their column count written to CircleSize.
func (m Mania) ConvertBeatmap(b *beatmap.Beatmap) (*beatmap.Beatmap, error) {
	columns := ColumnCount(b)
	out, err := prepare(b, m.ID())
	if err != nil {
		return nil, err
	}
	out.Difficulty.CircleSize = float64(columns)

	for i, h := range out.HitObjects {
		switch h := h.(type) {
		case *beatmap.Slider, *beatmap.Spinner:
			out.HitObjects[i] = &beatmap.Hold{HitObjectBase: *h.Base(), EndTime: beatmap.EndTime(h)}
		}
		base := out.HitObjects[i].Base()
		base.Position = mgl32.Vec2{ColumnX(Column(base.Position.X(), columns), columns), columnY}
	}
	clearCombos(out.HitObjects)
	return out, nil
}

// ColumnCount is the key count of b: CircleSize for mania beatmaps, and
// for converts a count chosen from the share of long objects and the
// overall difficulty.
func ColumnCount(b *beatmap.Beatmap) int {
	if b.RulesetID == beatmap.RulesetMania {
		return min(max(int(math.Round(b.Difficulty.CircleSize)), 1), maxColumns)
	}

	cs := int(math.Round(b.Difficulty.CircleSize))
	od := int(math.Round(b.Difficulty.OverallDifficulty))

	long := 0
	for _, h := range b.HitObjects {
		if h.Kind() == beatmap.KindSlider || h.Kind() == beatmap.KindSpinner {
			long++
		}
	}
	share := 0.0
	if len(b.HitObjects) > 0 {
		share = float64(long) / float64(len(b.HitObjects))
	}

	switch {
	case share < 0.2:
		return 7
	case share < 0.3 || cs >= 5:
		if od > 5 {
			return 7
		}
		return 6
	case share > 0.6:
		if od > 4 {
			return 5
		}
		return 4
	}
	return max(4, min(od+1, 7))
}

// Column maps an x coordinate to one of columns columns.
func Column(x float32, columns int) int {
	col := int(math.Floor(float64(x) * float64(columns) / playfieldWidth))
	return min(max(col, 0), columns-1)
}

// ColumnX is the x coordinate written for column col. Column(ColumnX(c)) == c.
func ColumnX(col, columns int) float32 {
	return float32(math.Ceil(float64(col) * playfieldWidth / float64(columns)))
}
