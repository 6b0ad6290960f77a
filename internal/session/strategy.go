package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"github.com/nadzzz/voicetone/internal/prompt"
	"github.com/nadzzz/voicetone/internal/ssml"
	"github.com/nadzzz/voicetone/internal/tone"
	"github.com/nadzzz/voicetone/internal/tts"
)

// Kind names a synthesis strategy.
type Kind string

const (
	KindStructured   Kind = "structured"
	KindInstructions Kind = "instructions"
)

// Strategy decides the reply schema asked of the model and how the reply is
// spoken. The only implementations are StructuredProsody and
// NaturalLanguageInstructions.
type Strategy interface {
	Kind() Kind

	// Backend names the synthesizer for logs and metrics.
	Backend() string

	schema() prompt.Schema
	decode(content string) (reply, error)
	prepare(s Session, language string, r reply) (utterance, error)
}

// reply is the model output after decoding.
type reply struct {
	Text         string
	Overrides    tone.Overrides
	Instructions string
}

// utterance is a reply ready to be synthesized.
type utterance struct {
	settings tone.Prosody
	speak    func(ctx context.Context) (*tts.Result, error)
}

// StructuredProsody asks the model for explicit prosody overrides, merges
// them into the voice tone's profile and sends a speech markup document to
// an SSML engine.
type StructuredProsody struct {
	Synth   tts.SSMLSynthesizer
	Builder *ssml.Builder
	Tones   *tone.Store
}

func (StructuredProsody) Kind() Kind { return KindStructured }

func (st StructuredProsody) Backend() string { return st.Synth.Name() }

func (StructuredProsody) schema() prompt.Schema { return prompt.SchemaStructured }

func (StructuredProsody) decode(content string) (reply, error) {
	var v struct {
		Text       string         `json:"text"`
		SSMLConfig tone.Overrides `json:"ssml_config"`
	}
	if err := unmarshalReply(content, &v); err != nil {
		return reply{}, err
	}
	return reply{Text: v.Text, Overrides: v.SSMLConfig}, nil
}

func (st StructuredProsody) prepare(s Session, language string, r reply) (utterance, error) {
	profile, err := st.Tones.Resolve(s.VoiceTone, language)
	if err != nil {
		return utterance{}, err
	}
	doc, err := st.Builder.Build(profile, r.Overrides, r.Text, language)
	if err != nil {
		return utterance{}, err
	}
	rendered, err := doc.Render()
	if err != nil {
		return utterance{}, err
	}
	return utterance{
		settings: doc.Settings(),
		speak: func(ctx context.Context) (*tts.Result, error) {
			return st.Synth.SynthesizeSSML(ctx, rendered)
		},
	}, nil
}

// NaturalLanguageInstructions asks the model for a free-text description of
// the delivery and passes it to an engine that accepts such guidance.
type NaturalLanguageInstructions struct {
	Synth tts.InstructedSynthesizer
	Voice string
}

func (NaturalLanguageInstructions) Kind() Kind { return KindInstructions }

func (st NaturalLanguageInstructions) Backend() string { return st.Synth.Name() }

func (NaturalLanguageInstructions) schema() prompt.Schema { return prompt.SchemaInstructions }

func (NaturalLanguageInstructions) decode(content string) (reply, error) {
	var v struct {
		Response     string `json:"response"`
		Instructions string `json:"instructions"`
	}
	if err := unmarshalReply(content, &v); err != nil {
		return reply{}, err
	}
	return reply{Text: v.Response, Instructions: strings.TrimSpace(v.Instructions)}, nil
}

func (st NaturalLanguageInstructions) prepare(_ Session, language string, r reply) (utterance, error) {
	text := strings.Join(strings.Fields(r.Text), " ")
	opts := tts.InstructOpts{
		Voice:        st.Voice,
		Language:     language,
		Instructions: r.Instructions,
	}
	return utterance{
		settings: tone.Prosody{Voice: st.Voice},
		speak: func(ctx context.Context) (*tts.Result, error) {
			return st.Synth.Synthesize(ctx, text, opts)
		},
	}, nil
}

// unmarshalReply decodes a model reply, stripping markdown code fences and
// repairing malformed JSON before giving up.
func unmarshalReply(content string, v any) error {
	data := stripFence(content)
	err := json.Unmarshal([]byte(data), v)
	if err == nil {
		return nil
	}
	var syntaxErr *json.SyntaxError
	if !errors.As(err, &syntaxErr) {
		return fmt.Errorf("decoding reply: %w", err)
	}
	fixed, rerr := jsonrepair.JSONRepair(data)
	if rerr != nil {
		return fmt.Errorf("decoding reply: %w", err)
	}
	slog.Debug("repaired malformed model reply", "error", err)
	if err := json.Unmarshal([]byte(fixed), v); err != nil {
		return fmt.Errorf("decoding repaired reply: %w", err)
	}
	return nil
}

func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
