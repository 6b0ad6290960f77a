package ssml_test

import (
	"encoding/xml"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/nadzzz/voicetone/internal/ssml"
	"github.com/nadzzz/voicetone/internal/tone"
)

func testProfile() tone.Profile {
	return tone.Profile{
		Tone:     "friendly",
		Language: "en-US",
		Prompt:   "Be nice.",
		Prosody: tone.Prosody{
			Voice:  "V",
			Rate:   "+0%",
			Pitch:  "+0Hz",
			Volume: "medium",
			Style:  "cheerful",
		},
	}
}

func TestBuild_EndToEnd(t *testing.T) {
	b := ssml.NewBuilder("en-US", "de-DE")

	doc, err := b.Build(testProfile(), tone.Overrides{Rate: "-5%"}, "Hello...world!", "en-US")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	want := tone.Prosody{Voice: "V", Rate: "-5%", Pitch: "+0Hz", Volume: "medium", Style: "cheerful"}
	if got := doc.Settings(); got != want {
		t.Errorf("Settings = %+v, want %+v", got, want)
	}

	out, err := doc.Render()
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	for _, frag := range []string{
		`<speak version="1.0" xml:lang="en-US"`,
		`xmlns="http://www.w3.org/2001/10/synthesis"`,
		`xmlns:mstts="https://www.w3.org/2001/mstts"`,
		`<voice name="V">`,
		`<prosody rate="-5%" pitch="+0Hz" volume="medium">`,
		`<mstts:express-as style="cheerful">`,
		`Hello<break time='400ms'/>world!<break time='250ms'/>`,
		`</mstts:express-as></prosody></voice></speak>`,
	} {
		if !strings.Contains(out, frag) {
			t.Errorf("rendered document missing %q\n%s", frag, out)
		}
	}
}

func TestBuild_StyleOverride(t *testing.T) {
	b := ssml.NewBuilder("en-US")

	doc, err := b.Build(testProfile(), tone.Overrides{Style: "whispering"}, "psst", "en-US")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if got := doc.Voice.Prosody.ExpressAs.Style; got != "whispering" {
		t.Errorf("style = %q, want whispering", got)
	}
}

func TestBuild_DoesNotMutateProfile(t *testing.T) {
	b := ssml.NewBuilder("en-US")
	profile := testProfile()
	orig := profile

	first, err := b.Build(profile, tone.Overrides{Rate: "fast", Style: "excited"}, "one", "en-US")
	if err != nil {
		t.Fatalf("Build #1: %v", err)
	}
	second, err := b.Build(profile, tone.Overrides{Pitch: "high"}, "two", "en-US")
	if err != nil {
		t.Fatalf("Build #2: %v", err)
	}

	if profile != orig {
		t.Fatalf("profile mutated: %+v", profile)
	}

	s1, s2 := first.Settings(), second.Settings()
	if s1.Pitch != orig.Prosody.Pitch || s1.Volume != orig.Prosody.Volume || s1.Voice != orig.Prosody.Voice {
		t.Errorf("first document non-overridden fields drifted: %+v", s1)
	}
	if s2.Rate != orig.Prosody.Rate || s2.Style != orig.Prosody.Style || s2.Volume != orig.Prosody.Volume {
		t.Errorf("second document non-overridden fields drifted: %+v", s2)
	}
}

func TestBuild_Errors(t *testing.T) {
	b := ssml.NewBuilder("en-US")

	tests := []struct {
		name      string
		overrides tone.Overrides
		language  string
		want      error
	}{
		{"unsupported language", tone.Overrides{}, "fr-FR", tone.ErrUnsupportedLanguage},
		{"invalid rate", tone.Overrides{Rate: "ludicrous"}, "en-US", tone.ErrInvalidProsodyValue},
		{"invalid volume", tone.Overrides{Volume: "deafening"}, "en-US", tone.ErrInvalidProsodyValue},
		{"invalid style", tone.Overrides{Style: "smug"}, "en-US", tone.ErrInvalidProsodyValue},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			doc, err := b.Build(testProfile(), tc.overrides, "hi", tc.language)
			if !errors.Is(err, tc.want) {
				t.Errorf("err = %v, want %v", err, tc.want)
			}
			if doc != nil {
				t.Error("expected nil document on error")
			}
		})
	}
}

func TestBuild_NormalizesModelCasing(t *testing.T) {
	b := ssml.NewBuilder("en-US")

	doc, err := b.Build(testProfile(), tone.Overrides{Volume: "Loud", Style: "Excited"}, "yes", "en-US")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if s := doc.Settings(); s.Volume != "loud" || s.Style != "excited" {
		t.Errorf("Settings = %+v, want lower-cased enum members", s)
	}
}

func TestBuild_EscapesText(t *testing.T) {
	b := ssml.NewBuilder("en-US")

	doc, err := b.Build(testProfile(), tone.Overrides{}, `Salt & "pepper" <b>`, "en-US")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	out, _ := doc.Render()
	if !strings.Contains(out, "Salt &amp; &quot;pepper&quot; &lt;b&gt;") {
		t.Errorf("text not escaped in %s", out)
	}
}

func TestBuild_RendersWellFormedXML(t *testing.T) {
	b := ssml.NewBuilder("en-US")

	inputs := []string{
		"Hello...world!",
		"b\v\vc",
		"\x00start",
		"bad \xff byte",
		"tab\tand\u00a0\u00a0nbsp",
		`<emphasis level="strong">never closed`,
		`<break time="500ms">x`,
		"</emphasis>stray",
		`<break time="1s" time="2s"/>dup`,
		`<emphasis level='moderate'>ok</emphasis> <break time="1s"/> -- fine?`,
		`Tom & "Jerry" <3 'em &colon; x`,
		"\uFFFE\uFFFF\x1f",
	}

	for _, in := range inputs {
		doc, err := b.Build(testProfile(), tone.Overrides{}, in, "en-US")
		if err != nil {
			t.Fatalf("Build(%q): %v", in, err)
		}
		out, err := doc.Render()
		if err != nil {
			t.Fatalf("Render(%q): %v", in, err)
		}

		dec := xml.NewDecoder(strings.NewReader(out))
		for {
			_, err := dec.Token()
			if err == io.EOF {
				break
			}
			if err != nil {
				t.Errorf("text %q renders malformed XML: %v\n%s", in, err, out)
				break
			}
		}
	}
}
