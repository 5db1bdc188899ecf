package controlpoints

import (
	"fmt"
	"slices"
	"sort"
)

// Group collects the points that share a timestamp, at most one per Kind.
type Group struct {
	Time   float64
	points [kindCount]ControlPoint
}

// Get returns the point of the given kind, or nil.
func (g *Group) Get(k Kind) ControlPoint { return g.points[k] }

// Points returns the points of the group ordered by Kind.
func (g *Group) Points() []ControlPoint {
	out := make([]ControlPoint, 0, kindCount)
	for _, p := range g.points {
		if p != nil {
			out = append(out, p)
		}
	}
	return out
}

func (g *Group) Timing() (TimingPoint, bool) {
	p := g.points[KindTiming]
	if p == nil {
		return TimingPoint{}, false
	}
	return p.(TimingPoint), true
}

func (g *Group) empty() bool {
	for _, p := range g.points {
		if p != nil {
			return false
		}
	}
	return true
}

// Info is the ordered set of control point groups of a beatmap.
//
// A legacy Info tracks all four kinds. A non-legacy Info only tracks timing
// and effect points; sample and difficulty state lives on hit objects.
type Info struct {
	legacy bool
	groups []*Group

	timing     []TimingPoint
	difficulty []DifficultyPoint
	sample     []SamplePoint
	effect     []EffectPoint
}

func NewInfo() *Info       { return &Info{} }
func NewLegacyInfo() *Info { return &Info{legacy: true} }

func (info *Info) Legacy() bool { return info.legacy }

// Tracks reports whether points of kind k can be added.
func (info *Info) Tracks(k Kind) bool {
	switch k {
	case KindTiming, KindEffect:
		return true
	case KindDifficulty, KindSample:
		return info.legacy
	}
	return false
}

// Add inserts p unless it is redundant with the point of its kind in effect
// at p.At(), or its kind is not tracked. A point of a kind already present in
// the group at that time replaces it.
func (info *Info) Add(p ControlPoint) bool {
	if !info.Tracks(p.Kind()) {
		return false
	}
	if p.IsRedundant(info.existing(p)) {
		return false
	}
	info.put(p)
	return true
}

func (info *Info) existing(p ControlPoint) ControlPoint {
	t := p.At()
	switch p.Kind() {
	case KindTiming:
		if tp, ok := pointAt(info.timing, t); ok {
			return tp
		}
	case KindDifficulty:
		return info.DifficultyPointAt(t)
	case KindSample:
		if sp, ok := pointAt(info.sample, t); ok {
			return sp
		}
	case KindEffect:
		return info.EffectPointAt(t)
	}
	return nil
}

func (info *Info) put(p ControlPoint) {
	g := info.groupAt(p.At(), true)
	if old := g.points[p.Kind()]; old != nil {
		info.removeFromList(old)
	}
	g.points[p.Kind()] = p

	switch p.Kind() {
	case KindTiming:
		info.timing = insertSorted(info.timing, p.(TimingPoint))
	case KindDifficulty:
		info.difficulty = insertSorted(info.difficulty, p.(DifficultyPoint))
	case KindSample:
		info.sample = insertSorted(info.sample, p.(SamplePoint))
	case KindEffect:
		info.effect = insertSorted(info.effect, p.(EffectPoint))
	default:
		panic(fmt.Sprintf("controlpoints: unknown kind %v", p.Kind()))
	}
}

func (info *Info) removeFromList(p ControlPoint) {
	t := p.At()
	switch p.Kind() {
	case KindTiming:
		info.timing = removeAt(info.timing, t)
	case KindDifficulty:
		info.difficulty = removeAt(info.difficulty, t)
	case KindSample:
		info.sample = removeAt(info.sample, t)
	case KindEffect:
		info.effect = removeAt(info.effect, t)
	default:
		panic(fmt.Sprintf("controlpoints: unknown kind %v", p.Kind()))
	}
}

// Remove drops the point of kind k at time t, and the group if it becomes empty.
func (info *Info) Remove(k Kind, t float64) bool {
	g := info.groupAt(t, false)
	if g == nil || g.points[k] == nil {
		return false
	}
	info.removeFromList(g.points[k])
	g.points[k] = nil
	if g.empty() {
		i, _ := info.findGroup(t)
		info.groups = slices.Delete(info.groups, i, i+1)
	}
	return true
}

func (info *Info) findGroup(t float64) (int, bool) {
	i := sort.Search(len(info.groups), func(i int) bool { return info.groups[i].Time >= t })
	return i, i < len(info.groups) && info.groups[i].Time == t
}

func (info *Info) groupAt(t float64, create bool) *Group {
	i, found := info.findGroup(t)
	if found {
		return info.groups[i]
	}
	if !create {
		return nil
	}
	g := &Group{Time: t}
	info.groups = slices.Insert(info.groups, i, g)
	return g
}

// Group returns the group at exactly t, or nil.
func (info *Info) Group(t float64) *Group { return info.groupAt(t, false) }

// Groups returns the groups in time order. Callers must not modify them.
func (info *Info) Groups() []*Group { return info.groups }

func (info *Info) TimingPoints() []TimingPoint         { return info.timing }
func (info *Info) DifficultyPoints() []DifficultyPoint { return info.difficulty }
func (info *Info) SamplePoints() []SamplePoint         { return info.sample }
func (info *Info) EffectPoints() []EffectPoint         { return info.effect }

// AllControlPoints returns every point, ordered by time then Kind.
func (info *Info) AllControlPoints() []ControlPoint {
	var out []ControlPoint
	for _, g := range info.groups {
		out = append(out, g.Points()...)
	}
	return out
}

// ---------- lookups ----------

// TimingPointAt falls back to the first timing point, so that objects placed
// before the first red line use it, and to DefaultTiming when there are none.
func (info *Info) TimingPointAt(t float64) TimingPoint {
	if p, ok := pointAt(info.timing, t); ok {
		return p
	}
	if len(info.timing) > 0 {
		return info.timing[0]
	}
	return DefaultTiming
}

func (info *Info) DifficultyPointAt(t float64) DifficultyPoint {
	if p, ok := pointAt(info.difficulty, t); ok {
		return p
	}
	return DefaultDifficulty
}

// SamplePointAt falls back to the first sample point, then to DefaultSample.
func (info *Info) SamplePointAt(t float64) SamplePoint {
	if p, ok := pointAt(info.sample, t); ok {
		return p
	}
	if len(info.sample) > 0 {
		return info.sample[0]
	}
	return DefaultSample
}

func (info *Info) EffectPointAt(t float64) EffectPoint {
	if p, ok := pointAt(info.effect, t); ok {
		return p
	}
	return DefaultEffect
}

// ---------- copies ----------

// Clone returns a deep copy with the same mode.
func (info *Info) Clone() *Info {
	out := &Info{legacy: info.legacy}
	info.copyInto(out)
	return out
}

// AsLegacy returns a legacy copy of info, so that difficulty and sample
// points can be added to it.
func (info *Info) AsLegacy() *Info {
	out := NewLegacyInfo()
	info.copyInto(out)
	return out
}

// Without returns a non-legacy copy holding every point whose kind is tracked
// by a non-legacy Info and not listed in kinds.
func (info *Info) Without(kinds ...Kind) *Info {
	out := NewInfo()
	for _, g := range info.groups {
		for _, p := range g.points {
			if p == nil || slices.Contains(kinds, p.Kind()) || !out.Tracks(p.Kind()) {
				continue
			}
			out.put(p)
		}
	}
	return out
}

func (info *Info) copyInto(out *Info) {
	for _, g := range info.groups {
		for _, p := range g.points {
			if p != nil && out.Tracks(p.Kind()) {
				out.put(p)
			}
		}
	}
}

// ---------- sorted list helpers ----------

// pointAt returns the last point with At() <= t.
func pointAt[T ControlPoint](list []T, t float64) (T, bool) {
	i := sort.Search(len(list), func(i int) bool { return list[i].At() > t })
	if i == 0 {
		var zero T
		return zero, false
	}
	return list[i-1], true
}

func insertSorted[T ControlPoint](list []T, p T) []T {
	i := sort.Search(len(list), func(i int) bool { return list[i].At() > p.At() })
	return slices.Insert(list, i, p)
}

func removeAt[T ControlPoint](list []T, t float64) []T {
	return slices.DeleteFunc(list, func(p T) bool { return p.At() == t })
}
