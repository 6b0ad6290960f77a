// Package piper implements tts.InstructedSynthesizer on top of a Piper server
// speaking the Wyoming protocol (linuxserver/piper listens on TCP 10200).
//
// Piper has no notion of delivery instructions; they are accepted and
// dropped, so the tone reaches the listener through the reply text alone.
package piper

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"maps"
	"net"
	"strings"
	"time"

	"github.com/nadzzz/voicetone/internal/config"
	"github.com/nadzzz/voicetone/internal/tts"
)

// defaultVoices maps ISO-639-1 codes to Piper voice models.
var defaultVoices = map[string]string{
	"en": "en_US-lessac-medium",
	"de": "de_DE-thorsten-medium",
	"fr": "fr_FR-siwis-medium",
	"es": "es_ES-mls_10246-low",
	"it": "it_IT-riccardo-x_low",
	"nl": "nl_NL-mls-medium",
}

// Synthesizer talks to one Piper server, or one per language.
type Synthesizer struct {
	endpoint  string
	endpoints map[string]string
	voices    map[string]string
	dialer    net.Dialer
}

// New creates a Piper synthesizer from config.
func New(cfg config.PiperConfig) *Synthesizer {
	voices := maps.Clone(defaultVoices)
	maps.Copy(voices, cfg.Voices)

	endpoints := make(map[string]string, len(cfg.Endpoints))
	for lang, ep := range cfg.Endpoints {
		endpoints[lang] = hostPort(ep)
	}

	return &Synthesizer{
		endpoint:  hostPort(cfg.Endpoint),
		endpoints: endpoints,
		voices:    voices,
		dialer:    net.Dialer{Timeout: 10 * time.Second},
	}
}

func hostPort(ep string) string {
	ep = strings.TrimPrefix(ep, "tcp://")
	return strings.TrimPrefix(ep, "http://")
}

// Name returns the backend identifier.
func (s *Synthesizer) Name() string { return "piper" }

// Synthesize renders text as WAV. The voice is opts.Voice, or the default for
// the language of opts.Language ("de-DE" -> "de").
func (s *Synthesizer) Synthesize(ctx context.Context, text string, opts tts.InstructOpts) (*tts.Result, error) {
	if text == "" {
		return nil, fmt.Errorf("empty text for synthesis")
	}

	lang, _, _ := strings.Cut(strings.ToLower(opts.Language), "-")
	voice := opts.Voice
	if voice == "" {
		voice = s.voices[lang]
	}
	if voice == "" {
		voice = s.voices["en"]
	}

	endpoint := s.endpoints[lang]
	if endpoint == "" {
		endpoint = s.endpoint
	}
	if endpoint == "" {
		return nil, fmt.Errorf("no piper endpoint configured for language %q", opts.Language)
	}

	if opts.Instructions != "" {
		slog.Debug("piper ignores delivery instructions", "instructions", opts.Instructions)
	}

	start := time.Now()
	conn, err := s.dialer.DialContext(ctx, "tcp", endpoint)
	if err != nil {
		return nil, fmt.Errorf("connecting to piper: %w", err)
	}
	defer conn.Close()

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(30 * time.Second)
	}
	_ = conn.SetDeadline(deadline)

	err = writeEvent(conn, event{
		Type: "synthesize",
		Data: map[string]any{
			"text":  text,
			"voice": map[string]any{"name": voice},
		},
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("sending synthesize event: %w", err)
	}

	audio, err := readAudio(newEventReader(conn))
	if err != nil {
		return nil, err
	}

	slog.Debug("synthesis complete", "backend", "piper", "voice", voice, "bytes", len(audio))
	return &tts.Result{
		Audio:       audio,
		ContentType: "audio/wav",
		Duration:    time.Since(start),
	}, nil
}

// readAudio consumes audio-start, audio-chunk* and audio-stop and returns
// the PCM wrapped as WAV.
func readAudio(r *eventReader) ([]byte, error) {
	var (
		pcm    bytes.Buffer
		format = pcmFormat{rate: 22050, channels: 1, width: 2}
	)
	for {
		evt, payload, err := r.next()
		if err != nil {
			return nil, fmt.Errorf("reading piper event: %w", err)
		}

		switch evt.Type {
		case "audio-start":
			format = format.update(evt.Data)
		case "audio-chunk":
			pcm.Write(payload)
		case "audio-stop":
			return format.wav(pcm.Bytes()), nil
		case "error":
			msg, _ := evt.Data["text"].(string)
			if msg == "" {
				msg = "unknown error"
			}
			return nil, fmt.Errorf("piper error: %s", msg)
		default:
			slog.Debug("piper unknown event", "type", evt.Type)
		}
	}
}

// Close is a no-op, connections are per request.
func (s *Synthesizer) Close() error { return nil }

var _ tts.InstructedSynthesizer = (*Synthesizer)(nil)
