package tone

import (
	"errors"
	"testing"
)

func TestMerge_DoesNotModifyReceiver(t *testing.T) {
	base := Prosody{Voice: "V", Rate: "+0%", Pitch: "+0Hz", Volume: "medium", Style: "cheerful"}
	orig := base

	got := base.Merge(Overrides{Rate: "-5%", Style: "whispering"})

	if base != orig {
		t.Fatalf("receiver modified: %+v", base)
	}
	want := Prosody{Voice: "V", Rate: "-5%", Pitch: "+0Hz", Volume: "medium", Style: "whispering"}
	if got != want {
		t.Errorf("Merge = %+v, want %+v", got, want)
	}
}

func TestMerge_BlankOverrideIsAbsent(t *testing.T) {
	base := Prosody{Voice: "V", Rate: "slow", Pitch: "low", Volume: "soft", Style: "calm"}
	if got := base.Merge(Overrides{Rate: "  "}); got != base {
		t.Errorf("Merge = %+v, want unchanged", got)
	}
}

func TestValidate(t *testing.T) {
	ok := Prosody{Voice: "V", Rate: "medium", Pitch: "medium", Volume: "medium", Style: "calm"}

	tests := []struct {
		name    string
		mutate  func(*Prosody)
		wantErr bool
	}{
		{"keywords", func(*Prosody) {}, false},
		{"relative rate", func(p *Prosody) { p.Rate = "+10%" }, false},
		{"relative pitch hz", func(p *Prosody) { p.Pitch = "-2Hz" }, false},
		{"relative pitch semitones", func(p *Prosody) { p.Pitch = "+1st" }, false},
		{"relative volume", func(p *Prosody) { p.Volume = "-20%" }, false},
		{"unknown rate", func(p *Prosody) { p.Rate = "warp" }, true},
		{"unsigned percentage", func(p *Prosody) { p.Rate = "10%" }, true},
		{"hz volume", func(p *Prosody) { p.Volume = "+2Hz" }, true},
		{"unknown style", func(p *Prosody) { p.Style = "grumpy" }, true},
		{"empty voice", func(p *Prosody) { p.Voice = "" }, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := ok
			tc.mutate(&p)
			err := p.Validate()
			if tc.wantErr {
				if !errors.Is(err, ErrInvalidProsodyValue) {
					t.Errorf("err = %v, want ErrInvalidProsodyValue", err)
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	p := Prosody{Voice: "V", Rate: " Fast", Pitch: "+2Hz", Volume: "LOUD", Style: "Whispering"}.Normalize()
	want := Prosody{Voice: "V", Rate: "fast", Pitch: "+2Hz", Volume: "loud", Style: "whispering"}
	if p != want {
		t.Errorf("Normalize = %+v, want %+v", p, want)
	}
}
