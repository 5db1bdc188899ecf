package dotosu

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/go-gl/mathgl/mgl32"

	"osuroundtrip/beatmap"
	"osuroundtrip/sliderpath"
)

// sampleBankInfo is the bank state of one hit sample field:
// normal:additions:custom:volume:filename.
type sampleBankInfo struct {
	normal    string
	additions string
	custom    int
	volume    int
	filename  string
}

func (d *decoder) parseHitObject(line string) error {
	split := strings.Split(line, ",")
	if len(split) < 5 {
		return errors.New("hit object needs at least x,y,time,type,hitsound")
	}

	pos, err := d.readPosition(split[0], split[1])
	if err != nil {
		return err
	}

	startTime, err := parseFloat(split[2], MAX_PARSE_VALUE)
	if err != nil {
		return err
	}
	startTime += d.offset

	t, err := parseInt(split[3])
	if err != nil {
		return err
	}
	typ := HitObjectTypeFlags(t)
	comboOffset := int(typ&typeComboOffset) >> 4
	typ &^= typeComboOffset
	newCombo := typ&TypeNewCombo != 0
	typ &^= TypeNewCombo

	st, err := parseInt(split[4])
	if err != nil {
		return err
	}
	soundType := HitSoundFlags(st)

	var bank sampleBankInfo
	base := beatmap.HitObjectBase{
		StartTime:   startTime,
		Position:    pos,
		NewCombo:    newCombo,
		ComboOffset: comboOffset,
	}

	var h beatmap.HitObject
	switch {
	case typ&TypeCircle != 0:
		if len(split) > 5 {
			if err := readCustomSampleBanks(split[5], &bank, false); err != nil {
				return err
			}
		}
		h = &beatmap.Circle{HitObjectBase: base}

	case typ&TypeSlider != 0:
		s, err := d.parseSlider(split, pos, soundType, &bank)
		if err != nil {
			return err
		}
		s.HitObjectBase = base
		h = s

	case typ&TypeSpinner != 0:
		if len(split) < 6 {
			return errors.New("spinner without an end time")
		}
		end, err := parseFloat(split[5], MAX_PARSE_VALUE)
		if err != nil {
			return err
		}
		if len(split) > 6 {
			if err := readCustomSampleBanks(split[6], &bank, false); err != nil {
				return err
			}
		}
		base.Position = mgl32.Vec2{256, 192}
		h = &beatmap.Spinner{HitObjectBase: base, EndTime: math.Max(startTime, end+d.offset)}

	case typ&TypeHold != 0:
		end := startTime
		if len(split) > 5 && split[5] != "" {
			ss := strings.SplitN(split[5], ":", 2)
			e, err := parseFloat(ss[0], MAX_PARSE_VALUE)
			if err != nil {
				return err
			}
			end = math.Max(startTime, e+d.offset)
			if len(ss) > 1 {
				if err := readCustomSampleBanks(ss[1], &bank, false); err != nil {
					return err
				}
			}
		}
		h = &beatmap.Hold{HitObjectBase: base, EndTime: end}

	default:
		return fmt.Errorf("unknown hit object type %d", t)
	}

	h.Base().Samples = convertSoundType(soundType, bank)
	d.b.HitObjects = append(d.b.HitObjects, h)
	return nil
}

func (d *decoder) parseSlider(split []string, pos mgl32.Vec2, soundType HitSoundFlags, bank *sampleBankInfo) (*beatmap.Slider, error) {
	if len(split) < 7 {
		return nil, errors.New("slider needs a path and a repeat count")
	}

	repeatCount, err := parseInt(split[6])
	if err != nil {
		return nil, err
	}
	if repeatCount > MAX_REPEAT_COUNT {
		return nil, fmt.Errorf("repeat count %d exceeds %d", repeatCount, MAX_REPEAT_COUNT)
	}
	repeatCount = max(0, repeatCount-1)

	var length *float64
	if len(split) > 7 {
		l, err := parseFloat(split[7], MAX_COORDINATE_VALUE)
		if err != nil {
			return nil, err
		}
		if l = math.Max(0, l); l != 0 {
			length = &l
		}
	}

	if len(split) > 10 {
		if err := readCustomSampleBanks(split[10], bank, true); err != nil {
			return nil, err
		}
	}

	nodes := repeatCount + 2

	nodeBanks := make([]sampleBankInfo, nodes)
	for i := range nodeBanks {
		nodeBanks[i] = *bank
	}
	if len(split) > 9 && split[9] != "" {
		sets := strings.Split(split[9], "|")
		for i := 0; i < nodes && i < len(sets); i++ {
			if err := readCustomSampleBanks(sets[i], &nodeBanks[i], true); err != nil {
				return nil, err
			}
		}
	}

	nodeSounds := make([]HitSoundFlags, nodes)
	for i := range nodeSounds {
		nodeSounds[i] = soundType
	}
	if len(split) > 8 && split[8] != "" {
		adds := strings.Split(split[8], "|")
		for i := 0; i < nodes && i < len(adds); i++ {
			// unparsable node sounds are silent, as in stable
			n, _ := strconv.Atoi(strings.TrimSpace(adds[i]))
			nodeSounds[i] = HitSoundFlags(n)
		}
	}

	nodeSamples := make([][]beatmap.HitSample, nodes)
	for i := range nodeSamples {
		nodeSamples[i] = convertSoundType(nodeSounds[i], nodeBanks[i])
	}

	points, err := d.convertPathString(split[5], pos)
	if err != nil {
		return nil, err
	}

	return &beatmap.Slider{
		Path:        sliderpath.NewPath(points, length),
		RepeatCount: repeatCount,
		NodeSamples: nodeSamples,
	}, nil
}

func (d *decoder) readPosition(xs, ys string) (mgl32.Vec2, error) {
	x, err := parseFloat(xs, MAX_COORDINATE_VALUE)
	if err != nil {
		return mgl32.Vec2{}, err
	}
	y, err := parseFloat(ys, MAX_COORDINATE_VALUE)
	if err != nil {
		return mgl32.Vec2{}, err
	}
	if d.version >= FIRST_LAZER_VERSION {
		return mgl32.Vec2{float32(x), float32(y)}, nil
	}
	// stable stores integer coordinates
	return mgl32.Vec2{float32(int(x)), float32(int(y))}, nil
}

func readCustomSampleBanks(s string, info *sampleBankInfo, banksOnly bool) error {
	if s == "" {
		return nil
	}
	split := strings.Split(s, ":")
	if len(split) < 2 {
		return fmt.Errorf("hit sample %q needs a normal and an additions bank", s)
	}

	n, err := parseInt(split[0])
	if err != nil {
		return err
	}
	a, err := parseInt(split[1])
	if err != nil {
		return err
	}
	normal := sampleSetFromInt(n).Bank()
	additions := sampleSetFromInt(a).Bank()
	if additions == "" {
		additions = normal
	}
	info.normal = normal
	info.additions = additions

	if banksOnly {
		return nil
	}
	if len(split) > 2 {
		if info.custom, err = parseInt(split[2]); err != nil {
			return err
		}
	}
	if len(split) > 3 {
		v, err := parseInt(split[3])
		if err != nil {
			return err
		}
		info.volume = max(0, v)
	}
	info.filename = ""
	if len(split) > 4 {
		info.filename = split[4]
	}
	return nil
}

func convertSoundType(t HitSoundFlags, info sampleBankInfo) []beatmap.HitSample {
	var out []beatmap.HitSample
	if info.filename == "" {
		out = append(out, beatmap.HitSample{
			Name:             beatmap.HitNormal,
			Bank:             info.normal,
			Volume:           info.volume,
			CustomSampleBank: info.custom,
		})
	} else {
		// a custom file replaces the normal sound
		out = append(out, beatmap.HitSample{Filename: info.filename, Volume: info.volume})
	}

	addition := func(flag HitSoundFlags, name string) {
		if t&flag == 0 {
			return
		}
		out = append(out, beatmap.HitSample{
			Name:             name,
			Bank:             info.additions,
			Volume:           info.volume,
			CustomSampleBank: info.custom,
		})
	}
	addition(HitSoundFinish, beatmap.HitFinish)
	addition(HitSoundWhistle, beatmap.HitWhistle)
	addition(HitSoundClap, beatmap.HitClap)
	return out
}

// ---------- slider paths ----------

type segmentStart struct {
	typ   sliderpath.PathType
	index int
}

// convertPathString reads a "T|x:y|x:y|T|x:y" path. A letter token starts an
// explicit segment; the first segment also gets the slider head as (0,0).
func (d *decoder) convertPathString(s string, head mgl32.Vec2) ([]sliderpath.PathControlPoint, error) {
	tokens := strings.Split(s, "|")
	points := make([]mgl32.Vec2, 0, len(tokens))
	var segments []segmentStart

	for _, tok := range tokens {
		if tok != "" && unicode.IsLetter(rune(tok[0])) {
			typ, err := sliderpath.ParsePathType(tok)
			if err != nil {
				return nil, err
			}
			segments = append(segments, segmentStart{typ: typ, index: len(points)})
			if len(points) == 0 {
				points = append(points, mgl32.Vec2{})
			}
			continue
		}
		p, err := d.readPathPoint(tok, head)
		if err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	if len(segments) == 0 {
		return nil, errors.New("slider path has no curve type")
	}

	var out []sliderpath.PathControlPoint
	for i, seg := range segments {
		var (
			pts      []mgl32.Vec2
			endPoint *mgl32.Vec2
		)
		if i < len(segments)-1 {
			next := segments[i+1].index
			pts = points[seg.index:next]
			if next < len(points) {
				endPoint = &points[next]
			}
		} else {
			pts = points[seg.index:]
		}
		if len(pts) == 0 {
			continue
		}
		out = append(out, d.convertPoints(seg.typ, pts, endPoint)...)
	}
	return out, nil
}

func (d *decoder) readPathPoint(s string, head mgl32.Vec2) (mgl32.Vec2, error) {
	xs, ys, ok := strings.Cut(s, ":")
	if !ok {
		return mgl32.Vec2{}, fmt.Errorf("invalid path point %q", s)
	}
	p, err := d.readPosition(xs, ys)
	if err != nil {
		return mgl32.Vec2{}, err
	}
	return p.Sub(head), nil
}

// convertPoints types one explicit segment and splits it into implicit
// segments wherever a point repeats its predecessor.
func (d *decoder) convertPoints(typ sliderpath.PathType, points []mgl32.Vec2, endPoint *mgl32.Vec2) []sliderpath.PathControlPoint {
	vertices := make([]sliderpath.PathControlPoint, len(points))
	for i, p := range points {
		vertices[i].Position = p
	}

	if typ == sliderpath.PerfectCurve {
		endPointLength := 0
		if endPoint != nil {
			endPointLength = 1
		}
		if d.version < FIRST_LAZER_VERSION {
			if len(vertices)+endPointLength != 3 {
				typ = sliderpath.Bezier
			} else {
				last := points[len(points)-1]
				if endPoint != nil {
					last = *endPoint
				}
				// stable draws collinear arcs as straight lines
				if isLinear(points[0], points[1], last) {
					typ = sliderpath.Linear
				}
			}
		} else if len(vertices)+endPointLength > 3 {
			typ = sliderpath.Bezier
		}
	}

	vertices[0].Type = sliderpath.Ptr(typ)

	var out []sliderpath.PathControlPoint
	start, end := 0, 0
	for end = 1; end < len(vertices); end++ {
		if vertices[end].Position != vertices[end-1].Position {
			continue
		}
		// stable catmull curves have a single segment; only a repeated head splits
		if typ == sliderpath.Catmull && end > 1 && d.version < FIRST_LAZER_VERSION {
			continue
		}
		if end == len(vertices)-1 {
			continue
		}
		vertices[end-1].Type = sliderpath.Ptr(typ)
		out = append(out, vertices[start:end]...)
		start = end + 1
	}
	if end > start {
		out = append(out, vertices[start:end]...)
	}
	return out
}

func isLinear(p0, p1, p2 mgl32.Vec2) bool {
	a := p1.Sub(p0)
	b := p2.Sub(p0)
	return math.Abs(float64(a.X()*b.Y()-a.Y()*b.X())) < 1e-3
}
