package ruleset

import (
	"github.com/go-gl/mathgl/mgl32"

	"osuroundtrip/beatmap"
)

// lastSpinnerForcedVersion is the last format version in which every
// spinner ends the running combo.
const lastSpinnerForcedVersion = 8

type Osu struct{}

func (Osu) ID() int           { return beatmap.RulesetOsu }
func (Osu) ShortName() string { return "osu" }

func (o Osu) ConvertBeatmap(b *beatmap.Beatmap) (*beatmap.Beatmap, error) {
	out, err := prepare(b, o.ID())
	if err != nil {
		return nil, err
	}
	if err := rejectHolds(out); err != nil {
		return nil, err
	}
	applyCombos(out.HitObjects, out.FormatVersion <= lastSpinnerForcedVersion)
	return out, nil
}

type Taiko struct{}

func (Taiko) ID() int           { return beatmap.RulesetTaiko }
func (Taiko) ShortName() string { return "taiko" }

// ConvertBeatmap centres every object; taiko has neither positions nor
// combos.
func (t Taiko) ConvertBeatmap(b *beatmap.Beatmap) (*beatmap.Beatmap, error) {
	out, err := prepare(b, t.ID())
	if err != nil {
		return nil, err
	}
	if err := rejectHolds(out); err != nil {
		return nil, err
	}
	for _, h := range out.HitObjects {
		h.Base().Position = PlayfieldCentre
	}
	clearCombos(out.HitObjects)
	return out, nil
}

type Catch struct{}

func (Catch) ID() int           { return beatmap.RulesetCatch }
func (Catch) ShortName() string { return "fruits" }

// ConvertBeatmap keeps fruit inside the playfield width and drops banana
// showers to the centre.
func (c Catch) ConvertBeatmap(b *beatmap.Beatmap) (*beatmap.Beatmap, error) {
	out, err := prepare(b, c.ID())
	if err != nil {
		return nil, err
	}
	if err := rejectHolds(out); err != nil {
		return nil, err
	}
	for _, h := range out.HitObjects {
		base := h.Base()
		if h.Kind() == beatmap.KindSpinner {
			base.Position = PlayfieldCentre
			continue
		}
		x := min(max(base.Position.X(), 0), playfieldWidth)
		base.Position = mgl32.Vec2{x, base.Position.Y()}
	}
	applyCombos(out.HitObjects, out.FormatVersion <= lastSpinnerForcedVersion)
	return out, nil
}
