// Package tone resolves conversation tones to speech profiles.
//
// A tone table maps (tone, language) to a role prompt for the language model
// and a default prosody configuration for synthesis. The table is loaded once
// at startup and never mutated; Resolve hands out copies, and per-turn
// overrides are applied to those copies with Prosody.Merge.
package tone

import (
	"fmt"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// DefaultTone is used when a requested tone is not in the table.
const DefaultTone = "friendly"

// Profile is the resolved configuration for one (tone, language) pair.
type Profile struct {
	Tone     string
	Language string
	Prompt   string
	Prosody  Prosody
}

// Entry is a single tone table cell as it appears in a tone file.
type Entry struct {
	Prompt  string `yaml:"prompt"`
	Prosody `yaml:",inline"`
}

// Table maps tone name -> language tag -> entry.
type Table map[string]map[string]Entry

// File is the on-disk layout of a tone table.
type File struct {
	Default string `yaml:"default"`
	Tones   Table  `yaml:"tones"`
}

// Store is an immutable tone table.
type Store struct {
	profiles    map[string]map[string]Profile
	defaultTone string
	languages   []string
	tones       []string
}

// NewStore validates the table and builds a Store. Every language that
// appears anywhere in the table must carry the default tone, so that the
// fallback in Resolve always succeeds.
func NewStore(table Table, defaultTone string) (*Store, error) {
	if defaultTone == "" {
		defaultTone = DefaultTone
	}
	if _, ok := table[defaultTone]; !ok {
		return nil, fmt.Errorf("tone table has no default tone %q", defaultTone)
	}

	s := &Store{
		profiles:    make(map[string]map[string]Profile, len(table)),
		defaultTone: defaultTone,
	}

	for name, langs := range table {
		s.tones = append(s.tones, name)
		s.profiles[name] = make(map[string]Profile, len(langs))
		for lang, e := range langs {
			p := e.Prosody.Normalize()
			if p.Volume == "" {
				p.Volume = "medium"
			}
			if err := p.Validate(); err != nil {
				return nil, fmt.Errorf("tone %q (%s): %w", name, lang, err)
			}
			s.profiles[name][lang] = Profile{
				Tone:     name,
				Language: lang,
				Prompt:   e.Prompt,
				Prosody:  p,
			}
			if !slices.Contains(s.languages, lang) {
				s.languages = append(s.languages, lang)
			}
		}
	}

	for _, lang := range s.languages {
		if _, ok := s.profiles[defaultTone][lang]; !ok {
			return nil, fmt.Errorf("default tone %q has no profile for %s", defaultTone, lang)
		}
	}

	slices.Sort(s.tones)
	slices.Sort(s.languages)
	return s, nil
}

// LoadFile reads a YAML tone table from path.
func LoadFile(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading tone file: %w", err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing tone file: %w", err)
	}
	if len(f.Tones) == 0 {
		return nil, fmt.Errorf("tone file %s defines no tones", path)
	}

	s, err := NewStore(f.Tones, f.Default)
	if err != nil {
		return nil, err
	}
	slog.Info("loaded tone table", "path", path, "tones", len(s.tones), "languages", s.languages)
	return s, nil
}

// Resolve returns the profile for tone in language. Unknown tones, and tones
// that lack the language, fall back to the default tone. A language that no
// tone supports yields ErrUnsupportedLanguage.
func (s *Store) Resolve(tone, language string) (Profile, error) {
	if !slices.Contains(s.languages, language) {
		return Profile{}, fmt.Errorf("%w: %q", ErrUnsupportedLanguage, language)
	}
	if p, ok := s.profiles[tone][language]; ok {
		return p, nil
	}
	slog.Debug("tone not found, using default", "tone", tone, "language", language, "default", s.defaultTone)
	return s.profiles[s.defaultTone][language], nil
}

// Tones returns the sorted tone names.
func (s *Store) Tones() []string { return slices.Clone(s.tones) }

// Languages returns the sorted language tags present in the table.
func (s *Store) Languages() []string { return slices.Clone(s.languages) }

// DefaultTone returns the fallback tone name.
func (s *Store) DefaultTone() string { return s.defaultTone }

// Supports reports whether language appears in the table.
func (s *Store) Supports(language string) bool {
	return slices.Contains(s.languages, language)
}
