package audio

import "fmt"

// Volume is a point on the 11-step headphone volume scale.
//
// The scale is calibrated against VVSG 2.0: adjacent steps differ by no
// more than 10 dB and the whole range spans exactly 80 dB (20 to 100 dB SPL).
type Volume int

// Volume scale, quietest first.
const (
	VolumeMinimum Volume = iota
	Volume10Percent
	Volume20Percent
	Volume30Percent
	Volume40Percent
	Volume50Percent
	Volume60Percent
	Volume70Percent
	Volume80Percent
	Volume90Percent
	VolumeMaximum
)

// DefaultVolume is the volume a voter session starts with.
const DefaultVolume = Volume50Percent

// volumeGainDB maps each volume to its gain relative to the calibrated
// maximum output level. MAXIMUM is 0 dB (100 dB SPL), MINIMUM is -80 dB
// (20 dB SPL).
var volumeGainDB = [...]float64{
	VolumeMinimum:   -80,
	Volume10Percent: -72,
	Volume20Percent: -64,
	Volume30Percent: -56,
	Volume40Percent: -48,
	Volume50Percent: -40,
	Volume60Percent: -32,
	Volume70Percent: -24,
	Volume80Percent: -16,
	Volume90Percent: -8,
	VolumeMaximum:   0,
}

var volumeFeedbackKeys = [...]string{
	VolumeMinimum:   "audioFeedbackMinimumVolume",
	Volume10Percent: "audioFeedback10PercentVolume",
	Volume20Percent: "audioFeedback20PercentVolume",
	Volume30Percent: "audioFeedback30PercentVolume",
	Volume40Percent: "audioFeedback40PercentVolume",
	Volume50Percent: "audioFeedback50PercentVolume",
	Volume60Percent: "audioFeedback60PercentVolume",
	Volume70Percent: "audioFeedback70PercentVolume",
	Volume80Percent: "audioFeedback80PercentVolume",
	Volume90Percent: "audioFeedback90PercentVolume",
	VolumeMaximum:   "audioFeedbackMaximumVolume",
}

// Volumes returns every volume level in ascending order.
func Volumes() []Volume {
	levels := make([]Volume, 0, len(volumeGainDB))
	for v := VolumeMinimum; v <= VolumeMaximum; v++ {
		levels = append(levels, v)
	}
	return levels
}

func (v Volume) valid() bool {
	return v >= VolumeMinimum && v <= VolumeMaximum
}

func (v Volume) mustBeValid() {
	if !v.valid() {
		panic(fmt.Sprintf("audio: volume %d out of range", int(v)))
	}
}

// GainForVolume returns the gain in dB, relative to the calibrated maximum,
// for v. It panics if v is not on the scale.
func GainForVolume(v Volume) float64 {
	v.mustBeValid()
	return volumeGainDB[v]
}

// IncreasedVolume returns the next louder step, or v itself at MAXIMUM.
func IncreasedVolume(v Volume) Volume {
	v.mustBeValid()
	if v == VolumeMaximum {
		return v
	}
	return v + 1
}

// DecreasedVolume returns the next quieter step, or v itself at MINIMUM.
func DecreasedVolume(v Volume) Volume {
	v.mustBeValid()
	if v == VolumeMinimum {
		return v
	}
	return v - 1
}

// FeedbackKey is the translation key announced after switching to v.
func (v Volume) FeedbackKey() string {
	v.mustBeValid()
	return volumeFeedbackKeys[v]
}

// ParseVolume accepts "minimum", "maximum" or a multiple of ten followed
// by an optional percent sign.
func ParseVolume(s string) (Volume, error) {
	switch s {
	case "min", "minimum":
		return VolumeMinimum, nil
	case "max", "maximum":
		return VolumeMaximum, nil
	}
	var pct int
	if _, err := fmt.Sscanf(s, "%d", &pct); err != nil {
		return 0, fmt.Errorf("invalid volume %q: %w", s, err)
	}
	if pct < 0 || pct > 100 || pct%10 != 0 {
		return 0, fmt.Errorf("invalid volume %q: must be 0-100 in steps of 10", s)
	}
	return Volume(pct / 10), nil
}

// String returns the volume as a percentage.
func (v Volume) String() string {
	if !v.valid() {
		return fmt.Sprintf("Volume(%d)", int(v))
	}
	return fmt.Sprintf("%d%%", int(v)*10)
}

// Rate is a point on the 7-step speech rate scale.
//
// VVSG 2.0 requires the slowest rate to be at most 50% and the fastest at
// least 200% of the default. Rates only change speed; pitch is preserved by
// the time stretcher.
type Rate int

// Rate scale, slowest first.
const (
	RateMinimum Rate = iota
	Rate75Percent
	Rate100Percent
	Rate125Percent
	Rate150Percent
	Rate175Percent
	RateMaximum
)

// DefaultRate is the rate a voter session starts with.
const DefaultRate = Rate100Percent

var rateMultipliers = [...]float64{
	RateMinimum:    0.5,
	Rate75Percent:  0.75,
	Rate100Percent: 1.0,
	Rate125Percent: 1.25,
	Rate150Percent: 1.5,
	Rate175Percent: 1.75,
	RateMaximum:    2.0,
}

var rateFeedbackKeys = [...]string{
	RateMinimum:    "labelMinimum",
	Rate75Percent:  "label75Percent",
	Rate100Percent: "label100Percent",
	Rate125Percent: "label125Percent",
	Rate150Percent: "label150Percent",
	Rate175Percent: "label175Percent",
	RateMaximum:    "labelMaximum",
}

// RateFeedbackLabelKey prefixes every rate announcement.
const RateFeedbackLabelKey = "labelRateOfSpeech"

// Rates returns every rate in ascending order.
func Rates() []Rate {
	rates := make([]Rate, 0, len(rateMultipliers))
	for r := RateMinimum; r <= RateMaximum; r++ {
		rates = append(rates, r)
	}
	return rates
}

func (r Rate) valid() bool {
	return r >= RateMinimum && r <= RateMaximum
}

func (r Rate) mustBeValid() {
	if !r.valid() {
		panic(fmt.Sprintf("audio: rate %d out of range", int(r)))
	}
}

// Multiplier returns the speed factor relative to the default rate.
func (r Rate) Multiplier() float64 {
	r.mustBeValid()
	return rateMultipliers[r]
}

// IncreasedRate returns the next faster step, or r itself at MAXIMUM.
func IncreasedRate(r Rate) Rate {
	r.mustBeValid()
	if r == RateMaximum {
		return r
	}
	return r + 1
}

// DecreasedRate returns the next slower step, or r itself at MINIMUM.
func DecreasedRate(r Rate) Rate {
	r.mustBeValid()
	if r == RateMinimum {
		return r
	}
	return r - 1
}

// FeedbackKeys are the translation keys announced after switching to r.
func (r Rate) FeedbackKeys() []string {
	r.mustBeValid()
	return []string{RateFeedbackLabelKey, rateFeedbackKeys[r]}
}

// ParseRate accepts "minimum", "maximum" or one of the percentages on the
// scale, with or without a percent sign.
func ParseRate(s string) (Rate, error) {
	switch s {
	case "min", "minimum":
		return RateMinimum, nil
	case "max", "maximum":
		return RateMaximum, nil
	}
	var pct int
	if _, err := fmt.Sscanf(s, "%d", &pct); err != nil {
		return 0, fmt.Errorf("invalid rate %q: %w", s, err)
	}
	for r := RateMinimum; r <= RateMaximum; r++ {
		if int(rateMultipliers[r]*100) == pct {
			return r, nil
		}
	}
	return 0, fmt.Errorf("invalid rate %q: must be one of 50, 75, 100, 125, 150, 175, 200", s)
}

// String returns the rate as a percentage.
func (r Rate) String() string {
	if !r.valid() {
		return fmt.Sprintf("Rate(%d)", int(r))
	}
	return fmt.Sprintf("%d%%", int(rateMultipliers[r]*100))
}
