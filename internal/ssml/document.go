// Package ssml builds speech synthesis markup for the structured-prosody
// synthesis path.
//
// Reply text is first run through Sanitize, then wrapped in a single
// speak > voice > prosody > express-as chain carrying the merged tone
// profile and per-turn overrides.
package ssml

import (
	"encoding/xml"
	"fmt"
	"slices"

	"github.com/nadzzz/voicetone/internal/tone"
)

const (
	synthesisNamespace = "http://www.w3.org/2001/10/synthesis"
	msttsNamespace     = "https://www.w3.org/2001/mstts"
)

// Document is a complete synthesis request.
type Document struct {
	XMLName  xml.Name `xml:"speak"`
	Version  string   `xml:"version,attr"`
	Language string   `xml:"xml:lang,attr"`
	Xmlns    string   `xml:"xmlns,attr"`
	Mstts    string   `xml:"xmlns:mstts,attr"`
	Voice    Voice    `xml:"voice"`
}

// Voice selects the synthesis voice.
type Voice struct {
	Name    string      `xml:"name,attr"`
	Prosody ProsodyElem `xml:"prosody"`
}

// ProsodyElem carries rate, pitch and volume.
type ProsodyElem struct {
	Rate      string    `xml:"rate,attr"`
	Pitch     string    `xml:"pitch,attr"`
	Volume    string    `xml:"volume,attr"`
	ExpressAs ExpressAs `xml:"mstts:express-as"`
}

// ExpressAs carries the expressive style and the sanitized text. Text is
// written as inner XML so preserved break and emphasis elements stay markup.
type ExpressAs struct {
	Style string `xml:"style,attr"`
	Text  string `xml:",innerxml"`
}

// Settings returns the merged prosody the document was built from.
func (d *Document) Settings() tone.Prosody {
	p := d.Voice.Prosody
	return tone.Prosody{
		Voice:  d.Voice.Name,
		Rate:   p.Rate,
		Pitch:  p.Pitch,
		Volume: p.Volume,
		Style:  p.ExpressAs.Style,
	}
}

// Text returns the sanitized body text.
func (d *Document) Text() string { return d.Voice.Prosody.ExpressAs.Text }

// Render serializes the document.
func (d *Document) Render() (string, error) {
	out, err := xml.Marshal(d)
	if err != nil {
		return "", fmt.Errorf("marshalling ssml: %w", err)
	}
	return string(out), nil
}

// Builder assembles documents for a fixed set of synthesis languages.
type Builder struct {
	languages []string
}

// NewBuilder creates a Builder that accepts the given language tags.
func NewBuilder(languages ...string) *Builder {
	return &Builder{languages: slices.Clone(languages)}
}

// Languages returns the languages the builder accepts.
func (b *Builder) Languages() []string { return slices.Clone(b.languages) }

// Build merges overrides into a copy of the profile's prosody, validates the
// result, sanitizes text and returns the document. profile is not modified.
func (b *Builder) Build(profile tone.Profile, overrides tone.Overrides, text, language string) (*Document, error) {
	if !slices.Contains(b.languages, language) {
		return nil, fmt.Errorf("%w: %q has no speech markup support", tone.ErrUnsupportedLanguage, language)
	}

	merged := profile.Prosody.Merge(overrides).Normalize()
	if err := merged.Validate(); err != nil {
		return nil, err
	}

	return &Document{
		Version:  "1.0",
		Language: language,
		Xmlns:    synthesisNamespace,
		Mstts:    msttsNamespace,
		Voice: Voice{
			Name: merged.Voice,
			Prosody: ProsodyElem{
				Rate:   merged.Rate,
				Pitch:  merged.Pitch,
				Volume: merged.Volume,
				ExpressAs: ExpressAs{
					Style: merged.Style,
					Text:  Sanitize(text),
				},
			},
		},
	}, nil
}
