// Package ruleset turns a decoded beatmap into the playable form of one of
// the four legacy rulesets.
package ruleset

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/go-gl/mathgl/mgl32"

	"osuroundtrip/beatmap"
)

var (
	ErrUnknownRuleset = errors.New("unknown ruleset")
	ErrNotConvertible = errors.New("beatmap cannot be converted")
)

// PlayfieldCentre is where objects without a meaningful position sit.
var PlayfieldCentre = mgl32.Vec2{256, 192}

const playfieldWidth = 512

// Ruleset converts beatmaps. ConvertBeatmap returns a converted deep copy of
// its argument and must leave an already converted beatmap unchanged.
type Ruleset interface {
	ID() int
	ShortName() string
	ConvertBeatmap(b *beatmap.Beatmap) (*beatmap.Beatmap, error)
}

// Registry maps ruleset IDs to rulesets.
type Registry struct {
	rulesets map[int]Ruleset
}

func NewRegistry(rulesets ...Ruleset) (*Registry, error) {
	r := &Registry{rulesets: make(map[int]Ruleset, len(rulesets))}
	for _, rs := range rulesets {
		if old, dup := r.rulesets[rs.ID()]; dup {
			return nil, fmt.Errorf("ruleset id %d registered twice (%s, %s)", rs.ID(), old.ShortName(), rs.ShortName())
		}
		r.rulesets[rs.ID()] = rs
	}
	return r, nil
}

// DefaultRegistry holds osu (0), taiko (1), catch (2) and mania (3).
func DefaultRegistry() *Registry {
	r, err := NewRegistry(Osu{}, Taiko{}, Catch{}, Mania{})
	if err != nil {
		panic(err)
	}
	return r
}

func (r *Registry) Lookup(id int) (Ruleset, error) {
	rs, ok := r.rulesets[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownRuleset, id)
	}
	return rs, nil
}

func (r *Registry) LookupName(name string) (Ruleset, error) {
	for _, rs := range r.rulesets {
		if rs.ShortName() == name {
			return rs, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownRuleset, name)
}

func (r *Registry) IDs() []int {
	return slices.Sorted(maps.Keys(r.rulesets))
}

// Convert converts b for the ruleset it is tagged with.
func (r *Registry) Convert(b *beatmap.Beatmap) (*beatmap.Beatmap, error) {
	return r.ConvertTo(b, b.RulesetID)
}

// ConvertTo converts b for ruleset id. Only osu beatmaps convert to other
// rulesets.
func (r *Registry) ConvertTo(b *beatmap.Beatmap, id int) (*beatmap.Beatmap, error) {
	rs, err := r.Lookup(id)
	if err != nil {
		return nil, err
	}
	return rs.ConvertBeatmap(b)
}

// prepare checks that b can become a beatmap of ruleset id and returns the
// copy to convert.
func prepare(b *beatmap.Beatmap, id int) (*beatmap.Beatmap, error) {
	if b.RulesetID != id && b.RulesetID != beatmap.RulesetOsu {
		return nil, fmt.Errorf("%w: ruleset %d to %d", ErrNotConvertible, b.RulesetID, id)
	}
	out := b.Clone()
	out.RulesetID = id
	return out, nil
}

func rejectHolds(b *beatmap.Beatmap) error {
	for _, h := range b.HitObjects {
		if h.Kind() == beatmap.KindHold {
			return fmt.Errorf("%w: hold note at %v outside mania", ErrNotConvertible, h.Base().StartTime)
		}
	}
	return nil
}

// applyCombos numbers combos. ComboIndex advances by ComboOffset+1 at every
// new combo and counts from 1. A spinner never continues into the next
// object's combo.
func applyCombos(objects []beatmap.HitObject, forceAfterSpinner bool) {
	var last *beatmap.HitObjectBase
	force := false
	for _, h := range objects {
		base := h.Base()
		isSpinner := h.Kind() == beatmap.KindSpinner
		if force && !isSpinner {
			base.NewCombo = true
			force = false
		}
		if isSpinner {
			force = force || forceAfterSpinner || base.NewCombo
		}

		if last == nil || base.NewCombo {
			prev := 0
			if last != nil {
				prev = last.ComboIndex
			}
			base.ComboIndex = prev + base.ComboOffset + 1
			base.IndexInCurrentCombo = 0
		} else {
			base.ComboIndex = last.ComboIndex
			base.IndexInCurrentCombo = last.IndexInCurrentCombo + 1
		}
		last = base
	}
}

func clearCombos(objects []beatmap.HitObject) {
	for _, h := range objects {
		base := h.Base()
		base.NewCombo = false
		base.ComboOffset = 0
		base.ComboIndex = 0
		base.IndexInCurrentCombo = 0
	}
}
