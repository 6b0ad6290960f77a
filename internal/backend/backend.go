// Package backend builds the collaborators selected by configuration.
package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nadzzz/voicetone/internal/config"
	"github.com/nadzzz/voicetone/internal/llm"
	localllm "github.com/nadzzz/voicetone/internal/llm/local"
	openaillm "github.com/nadzzz/voicetone/internal/llm/openai"
	"github.com/nadzzz/voicetone/internal/session"
	"github.com/nadzzz/voicetone/internal/ssml"
	"github.com/nadzzz/voicetone/internal/stt"
	azurestt "github.com/nadzzz/voicetone/internal/stt/azure"
	googlestt "github.com/nadzzz/voicetone/internal/stt/google"
	openaistt "github.com/nadzzz/voicetone/internal/stt/openai"
	whisperstt "github.com/nadzzz/voicetone/internal/stt/whisper"
	"github.com/nadzzz/voicetone/internal/tone"
	azuretts "github.com/nadzzz/voicetone/internal/tts/azure"
	openaitts "github.com/nadzzz/voicetone/internal/tts/openai"
	pipertts "github.com/nadzzz/voicetone/internal/tts/piper"
)

type closer interface{ Close() error }

// Set holds one transcriber, one generator and the synthesis strategy.
type Set struct {
	Transcriber stt.Transcriber
	Generator   llm.Generator
	Strategy    session.Strategy
	closers     []closer
}

// New builds every backend named in cfg.
func New(ctx context.Context, cfg *config.Config, tones *tone.Store) (*Set, error) {
	b := &Set{}
	var err error

	if b.Transcriber, err = NewTranscriber(ctx, cfg); err != nil {
		return nil, err
	}
	b.closers = append(b.closers, b.Transcriber)
	slog.Info("using transcriber", "backend", b.Transcriber.Name())

	if b.Generator, err = NewGenerator(cfg); err != nil {
		b.Close()
		return nil, err
	}
	b.closers = append(b.closers, b.Generator)
	slog.Info("using generator", "backend", b.Generator.Name(), "model", cfg.LLM.Model)

	if b.Strategy, err = b.newStrategy(cfg, tones); err != nil {
		b.Close()
		return nil, err
	}
	return b, nil
}

// NewTranscriber builds the configured transcription backend.
func NewTranscriber(ctx context.Context, cfg *config.Config) (stt.Transcriber, error) {
	switch cfg.STT.Backend {
	case "azure":
		return azurestt.New(cfg.Azure), nil
	case "google":
		t, err := googlestt.New(ctx, cfg.STT.Google)
		if err != nil {
			return nil, err
		}
		return t, nil
	case "openai":
		t, err := openaistt.New(cfg.OpenAI, cfg.STT.OpenAI)
		if err != nil {
			return nil, err
		}
		return t, nil
	case "whisper":
		return whisperstt.New(cfg.STT.Whisper), nil
	default:
		return nil, fmt.Errorf("unknown stt backend %q", cfg.STT.Backend)
	}
}

// NewGenerator builds the configured reply generator.
func NewGenerator(cfg *config.Config) (llm.Generator, error) {
	switch cfg.LLM.Backend {
	case "openai":
		g, err := openaillm.New(cfg.OpenAI, cfg.LLM.Model)
		if err != nil {
			return nil, err
		}
		return g, nil
	case "azure":
		g, err := openaillm.NewAzure(cfg.Azure, cfg.LLM.Model)
		if err != nil {
			return nil, err
		}
		return g, nil
	case "local":
		return localllm.New(cfg.LLM.Local), nil
	default:
		return nil, fmt.Errorf("unknown llm backend %q", cfg.LLM.Backend)
	}
}

// newStrategy picks the synthesis strategy from the TTS backend: markup
// engines get structured prosody, the others natural-language instructions.
func (b *Set) newStrategy(cfg *config.Config, tones *tone.Store) (session.Strategy, error) {
	var strategy session.Strategy
	switch cfg.TTS.Backend {
	case "azure":
		synth := azuretts.New(cfg.Azure, cfg.TTS.Azure)
		b.closers = append(b.closers, synth)
		strategy = session.StructuredProsody{
			Synth:   synth,
			Builder: ssml.NewBuilder(tones.Languages()...),
			Tones:   tones,
		}
	case "openai":
		synth, err := openaitts.New(cfg.OpenAI, cfg.TTS.OpenAI)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, synth)
		strategy = session.NaturalLanguageInstructions{Synth: synth, Voice: synth.Voice()}
	case "piper":
		synth := pipertts.New(cfg.TTS.Piper)
		b.closers = append(b.closers, synth)
		strategy = session.NaturalLanguageInstructions{Synth: synth}
	default:
		return nil, fmt.Errorf("unknown tts backend %q", cfg.TTS.Backend)
	}
	slog.Info("using synthesizer", "backend", cfg.TTS.Backend, "strategy", strategy.Kind())
	return strategy, nil
}

// Close releases every backend.
func (b *Set) Close() error {
	var errs []error
	for _, c := range b.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}
