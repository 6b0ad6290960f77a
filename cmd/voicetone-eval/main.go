// Voicetone-eval measures the word error rate of the configured transcriber
// against a set of reference transcripts.
//
// Usage:
//
//	voicetone-eval --input data/fleurs.csv [--output results.csv] [--limit 50]
//
// The input CSV needs audio_path and transcript columns. Relative audio
// paths are resolved against the CSV's directory.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/nadzzz/voicetone/internal/backend"
	"github.com/nadzzz/voicetone/internal/config"
	"github.com/nadzzz/voicetone/internal/eval"
	"github.com/nadzzz/voicetone/internal/stt"
)

func main() {
	configFile := flag.String("config", "", "path to config file")
	input := flag.String("input", "", "CSV with audio_path and transcript columns")
	output := flag.String("output", "", "output CSV (default: output_<timestamp>.csv next to the input)")
	limit := flag.Int("limit", 0, "process at most this many samples (0 = all)")
	workers := flag.Int("workers", 4, "concurrent transcriptions")
	flag.Parse()

	if *input == "" {
		fmt.Fprintln(os.Stderr, "voicetone-eval: --input is required")
		flag.Usage()
		os.Exit(2)
	}

	if err := run(*configFile, *input, *output, *limit, *workers); err != nil {
		slog.Error("evaluation failed", "error", err)
		os.Exit(1)
	}
}

func run(configFile, input, output string, limit, workers int) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	config.SetupLogging(cfg.Logging)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	f, err := os.Open(input)
	if err != nil {
		return err
	}
	samples, err := eval.ReadSamples(f, filepath.Dir(input))
	f.Close()
	if err != nil {
		return fmt.Errorf("reading %s: %w", input, err)
	}
	if limit > 0 && limit < len(samples) {
		samples = samples[:limit]
	}

	tr, err := backend.NewTranscriber(ctx, cfg)
	if err != nil {
		return err
	}
	defer tr.Close()

	slog.Info("evaluating", "samples", len(samples), "backend", tr.Name(), "workers", workers)
	results, err := eval.Evaluate(ctx, tr, samples, stt.Options{
		Languages: cfg.Pipeline.Languages,
		Prompt:    cfg.Pipeline.TranscriptionPrompt,
	}, workers)
	if err != nil {
		return err
	}

	if output == "" {
		output = filepath.Join(filepath.Dir(input), "output_"+time.Now().Format("20060102-150405")+".csv")
	}
	out, err := os.Create(output)
	if err != nil {
		return err
	}
	if err := eval.WriteResults(out, results); err != nil {
		out.Close()
		return fmt.Errorf("writing %s: %w", output, err)
	}
	if err := out.Close(); err != nil {
		return err
	}

	sum := eval.Summarize(results)
	slog.Info("evaluation complete",
		"samples", sum.Samples,
		"failed", sum.Failed,
		"mean_wer", fmt.Sprintf("%.2f", sum.MeanWER),
		"output", output)
	return nil
}
