// Package compare snapshots the parts of a beatmap that must survive an
// encode/decode round trip and reports the first difference between two
// snapshots.
package compare

import (
	"bytes"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/zeebo/blake3"

	"osuroundtrip/beatmap"
	"osuroundtrip/controlpoints"
	"osuroundtrip/skin"
)

var encMode cbor.EncMode

func init() {
	var err error
	opts := cbor.CoreDetEncOptions()
	// nil and empty read back the same from legacy text
	opts.NilContainers = cbor.NilContainerAsEmpty
	encMode, err = opts.EncMode()
	if err != nil {
		panic(err)
	}
}

type Snapshot struct {
	TimingPoints []controlpoints.TimingPoint `cbor:"timing"`
	EffectPoints []controlpoints.EffectPoint `cbor:"effect"`
	HitObjects   []HitObject                 `cbor:"objects"`
	ComboColours [][3]uint8                  `cbor:"colours"`
}

type HitObject struct {
	Kind                string              `cbor:"kind"`
	StartTime           float64             `cbor:"start"`
	EndTime             float64             `cbor:"end"`
	Position            [2]float32          `cbor:"pos"`
	NewCombo            bool                `cbor:"new_combo"`
	ComboOffset         int                 `cbor:"combo_offset"`
	ComboIndex          int                 `cbor:"combo_index"`
	IndexInCurrentCombo int                 `cbor:"index_in_combo"`
	Samples             []beatmap.HitSample `cbor:"samples"`

	Slider Slider `cbor:"slider"`
}

type Slider struct {
	ControlPoints  []ControlPoint        `cbor:"path"`
	Distance       float64               `cbor:"distance"`
	RepeatCount    int                   `cbor:"repeats"`
	NodeSamples    [][]beatmap.HitSample `cbor:"node_samples"`
	SliderVelocity float64               `cbor:"sv"`
	GenerateTicks  bool                  `cbor:"ticks"`
	Velocity       float64               `cbor:"velocity"`
	TickDistance   float64               `cbor:"tick_distance"`
}

type ControlPoint struct {
	X, Y float32
	Type string `cbor:",omitempty"`
}

// Take snapshots b and the combo colours of s, which may be nil.
func Take(b *beatmap.Beatmap, s *skin.Config) Snapshot {
	var snap Snapshot
	if b.ControlPoints != nil {
		snap.TimingPoints = b.ControlPoints.TimingPoints()
		snap.EffectPoints = b.ControlPoints.EffectPoints()
	}
	for _, h := range b.HitObjects {
		snap.HitObjects = append(snap.HitObjects, takeHitObject(h))
	}
	if s != nil {
		// colours past the legacy cap are dropped on encode
		for _, c := range s.LegacyComboColours() {
			r, g, bl := c.RGB255()
			snap.ComboColours = append(snap.ComboColours, [3]uint8{r, g, bl})
		}
	}
	return snap
}

func takeHitObject(h beatmap.HitObject) HitObject {
	base := h.Base()
	out := HitObject{
		Kind:                h.Kind().String(),
		StartTime:           base.StartTime,
		EndTime:             beatmap.EndTime(h),
		Position:            [2]float32{base.Position.X(), base.Position.Y()},
		NewCombo:            base.NewCombo,
		ComboOffset:         base.ComboOffset,
		ComboIndex:          base.ComboIndex,
		IndexInCurrentCombo: base.IndexInCurrentCombo,
		Samples:             base.Samples,
	}
	s, ok := h.(*beatmap.Slider)
	if !ok {
		return out
	}
	// the declared length is compared through Distance; a computed length is
	// written back as a declared one
	out.Slider = Slider{
		Distance:       s.Path.Distance(),
		RepeatCount:    s.RepeatCount,
		NodeSamples:    s.NodeSamples,
		SliderVelocity: s.SliderVelocity,
		GenerateTicks:  s.GenerateTicks,
		Velocity:       s.Velocity,
		TickDistance:   s.TickDistance,
	}
	for _, cp := range s.Path.ControlPoints {
		p := ControlPoint{X: cp.Position.X(), Y: cp.Position.Y()}
		if cp.Type != nil {
			p.Type = cp.Type.String()
		}
		out.Slider.ControlPoints = append(out.Slider.ControlPoints, p)
	}
	return out
}

// Marshal encodes the snapshot as deterministic CBOR.
func (s Snapshot) Marshal() ([]byte, error) {
	return encMode.Marshal(s)
}

// Digest is the BLAKE3 hash of the snapshot's CBOR encoding.
func (s Snapshot) Digest() ([32]byte, error) {
	data, err := s.Marshal()
	if err != nil {
		return [32]byte{}, err
	}
	return blake3.Sum256(data), nil
}

// Mismatch is the first differing element between two snapshots.
type Mismatch struct {
	Part  string
	Index int
	Want  string
	Got   string
}

func (m *Mismatch) Error() string {
	if m.Index < 0 {
		return fmt.Sprintf("%s differ: want %s, got %s", m.Part, m.Want, m.Got)
	}
	return fmt.Sprintf("%s[%d] differs:\n want %s\n  got %s", m.Part, m.Index, m.Want, m.Got)
}

// Beatmaps compares the round-trip relevant parts of two beatmaps and their
// skins. It returns nil when they match.
func Beatmaps(want *beatmap.Beatmap, wantSkin *skin.Config, got *beatmap.Beatmap, gotSkin *skin.Config) (*Mismatch, error) {
	return Snapshots(Take(want, wantSkin), Take(got, gotSkin))
}

func Snapshots(want, got Snapshot) (*Mismatch, error) {
	if m, err := diff("timing points", want.TimingPoints, got.TimingPoints); m != nil || err != nil {
		return m, err
	}
	if m, err := diff("effect points", want.EffectPoints, got.EffectPoints); m != nil || err != nil {
		return m, err
	}
	if m, err := diff("hit objects", want.HitObjects, got.HitObjects); m != nil || err != nil {
		return m, err
	}
	return diff("combo colours", want.ComboColours, got.ComboColours)
}

func diff[T any](part string, want, got []T) (*Mismatch, error) {
	for i := 0; i < min(len(want), len(got)); i++ {
		a, err := encMode.Marshal(want[i])
		if err != nil {
			return nil, err
		}
		b, err := encMode.Marshal(got[i])
		if err != nil {
			return nil, err
		}
		if !bytes.Equal(a, b) {
			return &Mismatch{Part: part, Index: i, Want: fmt.Sprintf("%+v", want[i]), Got: fmt.Sprintf("%+v", got[i])}, nil
		}
	}
	if len(want) != len(got) {
		return &Mismatch{Part: part, Index: -1, Want: fmt.Sprintf("%d entries", len(want)), Got: fmt.Sprintf("%d entries", len(got))}, nil
	}
	return nil, nil
}
