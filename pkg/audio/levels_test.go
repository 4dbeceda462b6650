package audio

import (
	"math"
	"testing"
)

func TestVolumeGainMonotonic(t *testing.T) {
	levels := Volumes()
	if len(levels) != 11 {
		t.Fatalf("Expected 11 volume levels, got %d", len(levels))
	}

	for i := 1; i < len(levels); i++ {
		step := GainForVolume(levels[i]) - GainForVolume(levels[i-1])
		if step <= 0 {
			t.Errorf("Gain not increasing from %s to %s: step %.1f dB", levels[i-1], levels[i], step)
		}
		if step > 10 {
			t.Errorf("Gain step from %s to %s exceeds 10 dB: %.1f dB", levels[i-1], levels[i], step)
		}
	}

	span := GainForVolume(VolumeMaximum) - GainForVolume(VolumeMinimum)
	if math.Abs(span-80) > 1e-9 {
		t.Errorf("Expected 80 dB span, got %.3f dB", span)
	}
}

func TestVolumeClamping(t *testing.T) {
	if got := IncreasedVolume(VolumeMaximum); got != VolumeMaximum {
		t.Errorf("IncreasedVolume(MAXIMUM) = %s, want MAXIMUM", got)
	}
	if got := DecreasedVolume(VolumeMinimum); got != VolumeMinimum {
		t.Errorf("DecreasedVolume(MINIMUM) = %s, want MINIMUM", got)
	}

	v := VolumeMinimum
	for i := 0; i < 20; i++ {
		v = IncreasedVolume(v)
	}
	if v != VolumeMaximum {
		t.Errorf("Expected repeated increases to stop at MAXIMUM, got %s", v)
	}
	for i := 0; i < 20; i++ {
		v = DecreasedVolume(v)
	}
	if v != VolumeMinimum {
		t.Errorf("Expected repeated decreases to stop at MINIMUM, got %s", v)
	}
}

func TestRateBounds(t *testing.T) {
	if RateMinimum.Multiplier() > 0.5 {
		t.Errorf("Minimum rate %.2f must be at most 0.5", RateMinimum.Multiplier())
	}
	if RateMaximum.Multiplier() < 2.0 {
		t.Errorf("Maximum rate %.2f must be at least 2.0", RateMaximum.Multiplier())
	}
	if DefaultRate.Multiplier() != 1.0 {
		t.Errorf("Default rate multiplier = %.2f, want 1.0", DefaultRate.Multiplier())
	}

	rates := Rates()
	if len(rates) != 7 {
		t.Fatalf("Expected 7 rates, got %d", len(rates))
	}
	for i := 1; i < len(rates); i++ {
		if rates[i].Multiplier() <= rates[i-1].Multiplier() {
			t.Errorf("Rate %s not faster than %s", rates[i], rates[i-1])
		}
	}
}

func TestRateClamping(t *testing.T) {
	tests := []struct {
		name string
		got  Rate
		want Rate
	}{
		{"increase at maximum", IncreasedRate(RateMaximum), RateMaximum},
		{"decrease at minimum", DecreasedRate(RateMinimum), RateMinimum},
		{"increase from default", IncreasedRate(DefaultRate), Rate125Percent},
		{"decrease from default", DecreasedRate(DefaultRate), Rate75Percent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %s, want %s", tt.got, tt.want)
			}
		})
	}
}

func TestOutOfRangePanics(t *testing.T) {
	tests := []struct {
		name string
		fn   func()
	}{
		{"gain below scale", func() { GainForVolume(Volume(-1)) }},
		{"gain above scale", func() { GainForVolume(VolumeMaximum + 1) }},
		{"increase volume off scale", func() { IncreasedVolume(Volume(42)) }},
		{"rate multiplier off scale", func() { Rate(9).Multiplier() }},
		{"decrease rate off scale", func() { DecreasedRate(Rate(-3)) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Error("Expected panic for out-of-range level")
				}
			}()
			tt.fn()
		})
	}
}

func TestFeedbackKeys(t *testing.T) {
	if got := VolumeMinimum.FeedbackKey(); got != "audioFeedbackMinimumVolume" {
		t.Errorf("Unexpected minimum volume key %q", got)
	}
	if got := Volume30Percent.FeedbackKey(); got != "audioFeedback30PercentVolume" {
		t.Errorf("Unexpected 30%% volume key %q", got)
	}

	keys := Rate150Percent.FeedbackKeys()
	if len(keys) != 2 || keys[0] != RateFeedbackLabelKey || keys[1] != "label150Percent" {
		t.Errorf("Unexpected rate feedback keys %v", keys)
	}
}

func TestParseLevels(t *testing.T) {
	volumes := []struct {
		in      string
		want    Volume
		wantErr bool
	}{
		{"minimum", VolumeMinimum, false},
		{"50", Volume50Percent, false},
		{"70%", Volume70Percent, false},
		{"max", VolumeMaximum, false},
		{"55", 0, true},
		{"110", 0, true},
		{"loud", 0, true},
	}
	for _, tt := range volumes {
		t.Run("volume "+tt.in, func(t *testing.T) {
			got, err := ParseVolume(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseVolume(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseVolume(%q) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}

	rates := []struct {
		in      string
		want    Rate
		wantErr bool
	}{
		{"100", Rate100Percent, false},
		{"175%", Rate175Percent, false},
		{"minimum", RateMinimum, false},
		{"110", 0, true},
	}
	for _, tt := range rates {
		t.Run("rate "+tt.in, func(t *testing.T) {
			got, err := ParseRate(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseRate(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseRate(%q) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}
