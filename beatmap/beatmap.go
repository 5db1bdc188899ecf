// Package beatmap is the structured beatmap model shared by the decoder,
// encoder and ruleset converters.
package beatmap

import (
	"slices"

	"osuroundtrip/controlpoints"
)

const (
	RulesetOsu   = 0
	RulesetTaiko = 1
	RulesetCatch = 2
	RulesetMania = 3
)

type Beatmap struct {
	FormatVersion int
	RulesetID     int

	General    General
	Editor     Editor
	Metadata   Metadata
	Difficulty Difficulty

	ControlPoints *controlpoints.Info
	HitObjects    []HitObject
	Breaks        []BreakPeriod

	// UnhandledEventLines are [Events] lines kept verbatim (storyboard
	// sprites, videos, samples and their commands).
	UnhandledEventLines []string
}

type General struct {
	AudioFilename            string
	AudioLeadIn              int
	PreviewTime              int
	SampleSet                string
	SampleVolume             int
	StackLeniency            float64
	LetterboxInBreaks        bool
	SpecialStyle             bool
	WidescreenStoryboard     bool
	EpilepsyWarning          bool
	SamplesMatchPlaybackRate bool
	Countdown                int
	CountdownOffset          int
}

type Editor struct {
	Bookmarks       []int
	DistanceSpacing float64
	BeatDivisor     int
	GridSize        int
	TimelineZoom    float64
}

type Metadata struct {
	Title, TitleUnicode            string
	Artist, ArtistUnicode          string
	Creator, Version, Source, Tags string
	BeatmapID, BeatmapSetID        int
	BackgroundFile                 string
}

type Difficulty struct {
	HPDrainRate, CircleSize, OverallDifficulty, ApproachRate float64
	SliderMultiplier, SliderTickRate                         float64
}

type BreakPeriod struct{ Start, End float64 }

// New returns an empty beatmap with the defaults a file without the
// corresponding keys decodes to.
func New() *Beatmap {
	return &Beatmap{
		FormatVersion: 14,
		General: General{
			PreviewTime:   -1,
			SampleSet:     BankNormal,
			SampleVolume:  100,
			StackLeniency: 0.7,
			Countdown:     1,
		},
		Editor:     Editor{BeatDivisor: 4, GridSize: 4, TimelineZoom: 1},
		Difficulty: DefaultDifficulty(),

		ControlPoints: controlpoints.NewInfo(),
	}
}

func DefaultDifficulty() Difficulty {
	return Difficulty{
		HPDrainRate:       5,
		CircleSize:        5,
		OverallDifficulty: 5,
		ApproachRate:      5,
		SliderMultiplier:  1.4,
		SliderTickRate:    1,
	}
}

// Clone deep copies the beatmap, its control points and hit objects.
func (b *Beatmap) Clone() *Beatmap {
	out := *b
	out.Editor.Bookmarks = slices.Clone(b.Editor.Bookmarks)
	if b.ControlPoints != nil {
		out.ControlPoints = b.ControlPoints.Clone()
	}
	out.HitObjects = CloneAll(b.HitObjects)
	out.Breaks = slices.Clone(b.Breaks)
	out.UnhandledEventLines = slices.Clone(b.UnhandledEventLines)
	return &out
}
