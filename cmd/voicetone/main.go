// Voicetone is a spoken-conversation daemon. It transcribes a recording,
// asks a language model for a reply together with delivery hints, and
// speaks the reply in the selected tone.
//
// Usage:
//
//	voicetone [flags]
//	voicetone --config /path/to/voicetone.yaml
//
//	@title			voicetone API
//	@version		1.0
//	@description	Spoken conversations with tone-controlled speech synthesis.
//	@BasePath		/
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/nadzzz/voicetone/internal/backend"
	"github.com/nadzzz/voicetone/internal/config"
	"github.com/nadzzz/voicetone/internal/dispatch"
	"github.com/nadzzz/voicetone/internal/health"
	"github.com/nadzzz/voicetone/internal/observe"
	"github.com/nadzzz/voicetone/internal/session"
	"github.com/nadzzz/voicetone/internal/tone"
	"github.com/nadzzz/voicetone/internal/transport"
	grpctransport "github.com/nadzzz/voicetone/internal/transport/grpc"
	httptransport "github.com/nadzzz/voicetone/internal/transport/http"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configFile := flag.String("config", "", "path to config file (e.g. configs/voicetone.yaml)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("voicetone %s\n", version)
		os.Exit(0)
	}

	if err := run(*configFile); err != nil {
		slog.Error("voicetone failed", "error", err)
		os.Exit(1)
	}
}

func run(configFile string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	config.SetupLogging(cfg.Logging)
	slog.Info("voicetone starting", "version", version)

	// Create root context with signal handling for graceful shutdown.
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if cfg.Metrics.Enabled {
		shutdown, err := observe.InitProvider(ctx, "voicetone", version)
		if err != nil {
			return fmt.Errorf("metrics provider: %w", err)
		}
		defer func() { _ = shutdown(context.Background()) }()
	}

	tones := tone.Default()
	if cfg.Tones.File != "" {
		if tones, err = tone.LoadFile(cfg.Tones.File); err != nil {
			return err
		}
	}
	for _, lang := range cfg.Pipeline.Languages {
		if !tones.Supports(lang) {
			return fmt.Errorf("pipeline language %q has no entry in the tone table", lang)
		}
	}

	b, err := backend.New(ctx, cfg, tones)
	if err != nil {
		return err
	}
	defer b.Close()

	pipeline := session.NewPipeline(session.Config{
		Transcriber:         b.Transcriber,
		Generator:           b.Generator,
		Strategy:            b.Strategy,
		Tones:               tones,
		Languages:           cfg.Pipeline.Languages,
		TranscriptionPrompt: cfg.Pipeline.TranscriptionPrompt,
		HistoryWindow:       cfg.Pipeline.HistoryWindow,
		Temperature:         cfg.Pipeline.Temperature,
		MaxTokens:           cfg.Pipeline.MaxTokens,
	})
	dispatcher := dispatch.New(pipeline, tones, nil)

	// Initialize enabled transports.
	var transports []transport.Transport
	if cfg.Transports.GRPC.Enabled {
		transports = append(transports, grpctransport.New(cfg.Transports.GRPC.Port))
	}
	if cfg.Transports.HTTP.Enabled {
		transports = append(transports, httptransport.New(cfg.Transports.HTTP.Port, cfg.Transports.HTTP.MaxAudioBytes))
	}
	if len(transports) == 0 {
		return fmt.Errorf("no transports enabled, enable at least one in config")
	}

	healthServer := health.New(cfg.Server.HealthPort, cfg.Metrics.Enabled)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return healthServer.ListenAndServe(gctx) })
	for _, t := range transports {
		g.Go(func() error {
			slog.Info("starting transport", "name", t.Name())
			if err := t.Listen(gctx, dispatcher); err != nil {
				return fmt.Errorf("transport %s: %w", t.Name(), err)
			}
			return nil
		})
	}

	healthServer.SetReady(true)
	slog.Info("voicetone ready",
		"strategy", pipeline.Strategy().Kind(),
		"stt", b.Transcriber.Name(),
		"llm", b.Generator.Name(),
		"tts", pipeline.Strategy().Backend(),
		"transports", len(transports),
		"health_port", cfg.Server.HealthPort)

	<-gctx.Done()
	healthServer.SetReady(false)
	slog.Info("shutdown signal received, draining...")

	for _, t := range transports {
		if err := t.Close(); err != nil {
			slog.Error("transport close error", "name", t.Name(), "error", err)
		}
	}

	err = g.Wait()
	slog.Info("voicetone stopped", "open_sessions", dispatcher.Len())
	return err
}
