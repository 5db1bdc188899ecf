// Package dotosu decodes and encodes the legacy .osu beatmap text format.
package dotosu

import (
	"osuroundtrip/beatmap"
)

const (
	EARLY_VERSION_TIMING_OFFSET = 24
	MAX_MANIA_KEY_COUNT         = 18
	LATEST_VERSION              = 14
	// FIRST_LAZER_VERSION is the first version written with fractional
	// hit object coordinates.
	FIRST_LAZER_VERSION = 128

	MAX_COORDINATE_VALUE = 131072
	MAX_REPEAT_COUNT     = 9000
	MAX_PARSE_VALUE      = 1<<31 - 1

	headerPrefix = "osu file format v"
)

type section int

const (
	secNone section = iota
	secGeneral
	secEditor
	secMetadata
	secDifficulty
	secEvents
	secTimingPoints
	secColours
	secHitObjects
	secVariables
	secFonts
	secCatchTheBeat
	secMania
	secUnknown
)

var sectionNames = map[string]section{
	"general":      secGeneral,
	"editor":       secEditor,
	"metadata":     secMetadata,
	"difficulty":   secDifficulty,
	"events":       secEvents,
	"timingpoints": secTimingPoints,
	"colours":      secColours,
	"hitobjects":   secHitObjects,
	"variables":    secVariables,
	"fonts":        secFonts,
	"catchthebeat": secCatchTheBeat,
	"mania":        secMania,
}

func (s section) String() string {
	for name, sec := range sectionNames {
		if sec == s {
			return name
		}
	}
	if s == secUnknown {
		return "unknown"
	}
	return "none"
}

// ---------- legacy enums ----------

type HitObjectTypeFlags int

const (
	TypeCircle     HitObjectTypeFlags = 1 << iota // 1
	TypeSlider                                    // 2
	TypeNewCombo                                  // 4
	TypeSpinner                                   // 8
	TypeComboSkip1                                // 16
	TypeComboSkip2                                // 32
	TypeComboSkip3                                // 64
	TypeHold       HitObjectTypeFlags = 1 << 7    // 128

	typeComboOffset = TypeComboSkip1 | TypeComboSkip2 | TypeComboSkip3
)

type HitSoundFlags uint8

const (
	HitSoundNormal  HitSoundFlags = 1 << iota // 1
	HitSoundWhistle                           // 2
	HitSoundFinish                            // 4
	HitSoundClap                              // 8
)

type SampleSet uint8

const (
	SampleNone SampleSet = iota
	SampleNormal
	SampleSoft
	SampleDrum
)

// Bank is the model name of the set, "" for none.
func (s SampleSet) Bank() string {
	switch s {
	case SampleNormal:
		return beatmap.BankNormal
	case SampleSoft:
		return beatmap.BankSoft
	case SampleDrum:
		return beatmap.BankDrum
	}
	return ""
}

func toSampleSet(bank string) SampleSet {
	switch bank {
	case beatmap.BankNormal:
		return SampleNormal
	case beatmap.BankSoft:
		return SampleSoft
	case beatmap.BankDrum:
		return SampleDrum
	}
	return SampleNone
}

// sampleSetFromInt maps out of range values to normal.
func sampleSetFromInt(v int) SampleSet {
	if v < int(SampleNone) || v > int(SampleDrum) {
		return SampleNormal
	}
	return SampleSet(v)
}

type EffectFlags int

const (
	EffectKiai             EffectFlags = 1
	EffectOmitFirstBarLine EffectFlags = 8
)

type eventType int

const (
	eventBackground eventType = iota
	eventVideo
	eventBreak
	eventColour
	eventSprite
	eventSample
	eventAnimation
	eventUnknown
)

var eventNames = map[string]eventType{
	"background": eventBackground,
	"video":      eventVideo,
	"break":      eventBreak,
	"colour":     eventColour,
	"sprite":     eventSprite,
	"sample":     eventSample,
	"animation":  eventAnimation,
}
