package tone_test

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/nadzzz/voicetone/internal/tone"
)

func TestResolve_AllProfilesWithinEnumerations(t *testing.T) {
	s := tone.Default()

	for _, name := range s.Tones() {
		for _, lang := range s.Languages() {
			t.Run(name+"/"+lang, func(t *testing.T) {
				p, err := s.Resolve(name, lang)
				if err != nil {
					t.Fatalf("Resolve: %v", err)
				}
				if err := p.Prosody.Validate(); err != nil {
					t.Errorf("Validate: %v", err)
				}
				if p.Prompt == "" {
					t.Error("empty role prompt")
				}
			})
		}
	}
}

func TestResolve_UnknownToneFallsBackToDefault(t *testing.T) {
	s := tone.Default()

	got, err := s.Resolve("sarcastic", "de-DE")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	want, _ := s.Resolve(tone.DefaultTone, "de-DE")
	if got != want {
		t.Errorf("got %+v, want default profile %+v", got, want)
	}
}

func TestResolve_ToneMissingLanguageFallsBack(t *testing.T) {
	table := tone.Table{
		"friendly": {
			"en-US": {Prompt: "hi", Prosody: tone.Prosody{Voice: "A", Rate: "medium", Pitch: "medium", Style: "cheerful"}},
			"de-DE": {Prompt: "hallo", Prosody: tone.Prosody{Voice: "B", Rate: "medium", Pitch: "medium", Style: "cheerful"}},
		},
		"formal": {
			"en-US": {Prompt: "sir", Prosody: tone.Prosody{Voice: "C", Rate: "slow", Pitch: "low", Style: "serious"}},
		},
	}
	s, err := tone.NewStore(table, "")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	p, err := s.Resolve("formal", "de-DE")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if p.Tone != "friendly" || p.Prosody.Voice != "B" {
		t.Errorf("got %+v, want friendly de-DE profile", p)
	}
	if p.Prosody.Volume != "medium" {
		t.Errorf("Volume = %q, want default medium", p.Prosody.Volume)
	}
}

func TestResolve_UnsupportedLanguage(t *testing.T) {
	s := tone.Default()

	_, err := s.Resolve("friendly", "fr-FR")
	if !errors.Is(err, tone.ErrUnsupportedLanguage) {
		t.Fatalf("err = %v, want ErrUnsupportedLanguage", err)
	}
}

func TestResolve_ReturnsCopies(t *testing.T) {
	s := tone.Default()

	p, _ := s.Resolve("friendly", "en-US")
	p.Prosody.Style = "whispering"

	again, _ := s.Resolve("friendly", "en-US")
	if again.Prosody.Style != "cheerful" {
		t.Errorf("store mutated through returned profile: style = %q", again.Prosody.Style)
	}
}

func TestNewStore_Rejects(t *testing.T) {
	valid := tone.Prosody{Voice: "V", Rate: "medium", Pitch: "medium", Volume: "medium", Style: "calm"}

	tests := []struct {
		name  string
		table tone.Table
	}{
		{
			name:  "missing default tone",
			table: tone.Table{"formal": {"en-US": {Prosody: valid}}},
		},
		{
			name: "default tone lacks a language",
			table: tone.Table{
				"friendly": {"en-US": {Prosody: valid}},
				"formal":   {"de-DE": {Prosody: valid}},
			},
		},
		{
			name: "invalid style",
			table: tone.Table{
				"friendly": {"en-US": {Prosody: tone.Prosody{Voice: "V", Rate: "medium", Pitch: "medium", Style: "grumpy"}}},
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := tone.NewStore(tc.table, ""); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestLoadFile(t *testing.T) {
	const doc = `
default: calm
tones:
  calm:
    en-US:
      prompt: Stay calm.
      voice: en-US-AriaNeural
      style: Calm
      rate: slow
      pitch: "-2Hz"
  hype:
    en-US:
      prompt: Get excited!
      voice: en-US-JasonNeural
      style: excited
      rate: fast
      pitch: high
      volume: loud
`
	path := filepath.Join(t.TempDir(), "tones.yaml")
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := tone.LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if s.DefaultTone() != "calm" {
		t.Errorf("DefaultTone = %q, want calm", s.DefaultTone())
	}
	if !slices.Equal(s.Tones(), []string{"calm", "hype"}) {
		t.Errorf("Tones = %v", s.Tones())
	}

	p, err := s.Resolve("calm", "en-US")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	want := tone.Prosody{Voice: "en-US-AriaNeural", Rate: "slow", Pitch: "-2Hz", Volume: "medium", Style: "calm"}
	if p.Prosody != want {
		t.Errorf("Prosody = %+v, want %+v", p.Prosody, want)
	}
}

func TestLoadFile_Missing(t *testing.T) {
	if _, err := tone.LoadFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
