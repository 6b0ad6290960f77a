package tone

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"
)

var (
	// ErrUnsupportedLanguage is returned when a language tag is absent from
	// the tone table or from the synthesis capability set.
	ErrUnsupportedLanguage = errors.New("unsupported language")

	// ErrInvalidProsodyValue is returned when a prosody field falls outside
	// its enumeration.
	ErrInvalidProsodyValue = errors.New("invalid prosody value")
)

// Closed enumerations accepted by the speech markup grammar.
var (
	Rates   = []string{"x-slow", "slow", "medium", "fast", "x-fast"}
	Pitches = []string{"x-low", "low", "medium", "high", "x-high"}
	Volumes = []string{"silent", "x-soft", "soft", "medium", "loud", "x-loud"}

	// Styles lists the expressive styles of the mstts:express-as element.
	Styles = []string{
		"advertisement_upbeat", "affectionate", "angry", "assistant", "calm",
		"chat", "cheerful", "customerservice", "depressed", "disgruntled",
		"documentary-narration", "embarrassed", "empathetic", "envious",
		"excited", "fearful", "friendly", "gentle", "hopeful", "lyrical",
		"narration-professional", "narration-relaxed", "newscast",
		"newscast-casual", "newscast-formal", "poetry-reading", "sad",
		"serious", "shouting", "sports_commentary",
		"sports_commentary_excited", "terrified", "unfriendly", "whispering",
	}
)

var (
	relativePercent = regexp.MustCompile(`^[+-]\d+(\.\d+)?%$`)
	relativePitch   = regexp.MustCompile(`^[+-]\d+(\.\d+)?(%|Hz|st)$`)
)

// Prosody holds the five tunable synthesis fields of a profile.
type Prosody struct {
	Voice  string `yaml:"voice" json:"voice"`
	Rate   string `yaml:"rate" json:"rate"`
	Pitch  string `yaml:"pitch" json:"pitch"`
	Volume string `yaml:"volume" json:"volume"`
	Style  string `yaml:"style" json:"style"`
}

// Overrides is a partial Prosody supplied for a single turn, either by a
// deterministic lookup or by the language model. Empty fields are absent.
type Overrides struct {
	Rate   string `json:"rate,omitempty"`
	Pitch  string `json:"pitch,omitempty"`
	Volume string `json:"volume,omitempty"`
	Style  string `json:"style,omitempty"`
}

// IsZero reports whether no field is set.
func (o Overrides) IsZero() bool {
	return o == Overrides{}
}

// Merge returns p with every present field of o applied. p itself is not
// modified.
func (p Prosody) Merge(o Overrides) Prosody {
	if v := strings.TrimSpace(o.Rate); v != "" {
		p.Rate = v
	}
	if v := strings.TrimSpace(o.Pitch); v != "" {
		p.Pitch = v
	}
	if v := strings.TrimSpace(o.Volume); v != "" {
		p.Volume = v
	}
	if v := strings.TrimSpace(o.Style); v != "" {
		p.Style = v
	}
	return p
}

// Normalize lower-cases enumeration members so that "Medium" from a model
// reply compares equal to "medium". Relative values are left untouched.
func (p Prosody) Normalize() Prosody {
	p.Rate = canonical(p.Rate, Rates)
	p.Pitch = canonical(p.Pitch, Pitches)
	p.Volume = canonical(p.Volume, Volumes)
	p.Style = canonical(p.Style, Styles)
	return p
}

// Validate checks every field against its enumeration.
func (p Prosody) Validate() error {
	if strings.TrimSpace(p.Voice) == "" {
		return fmt.Errorf("%w: voice is empty", ErrInvalidProsodyValue)
	}
	if !ValidRate(p.Rate) {
		return fmt.Errorf("%w: rate %q", ErrInvalidProsodyValue, p.Rate)
	}
	if !ValidPitch(p.Pitch) {
		return fmt.Errorf("%w: pitch %q", ErrInvalidProsodyValue, p.Pitch)
	}
	if !ValidVolume(p.Volume) {
		return fmt.Errorf("%w: volume %q", ErrInvalidProsodyValue, p.Volume)
	}
	if !ValidStyle(p.Style) {
		return fmt.Errorf("%w: style %q", ErrInvalidProsodyValue, p.Style)
	}
	return nil
}

// ValidRate accepts a rate keyword or a signed percentage such as "-5%".
func ValidRate(v string) bool {
	return slices.Contains(Rates, v) || relativePercent.MatchString(v)
}

// ValidPitch accepts a pitch keyword or a signed percentage, Hz or semitone
// offset such as "+2Hz".
func ValidPitch(v string) bool {
	return slices.Contains(Pitches, v) || relativePitch.MatchString(v)
}

// ValidVolume accepts a volume keyword or a signed percentage.
func ValidVolume(v string) bool {
	return slices.Contains(Volumes, v) || relativePercent.MatchString(v)
}

// ValidStyle reports whether v is a supported expressive style.
func ValidStyle(v string) bool {
	return slices.Contains(Styles, v)
}

func canonical(v string, members []string) string {
	v = strings.TrimSpace(v)
	for _, m := range members {
		if strings.EqualFold(v, m) {
			return m
		}
	}
	return v
}
