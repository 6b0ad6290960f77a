package eval

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nadzzz/voicetone/internal/stt"
)

// Sample is one row of an evaluation set.
type Sample struct {
	AudioPath  string
	Transcript string
}

// Result is the evaluation of one sample.
type Result struct {
	Sample
	Generated  string
	Language   string
	WER        float64
	Similarity float64
	Duration   time.Duration
	Err        error
}

// ReadSamples parses a CSV with audio_path and transcript columns. Other
// columns are ignored; relative audio paths are resolved against dir.
func ReadSamples(r io.Reader, dir string) ([]Sample, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	pathCol, textCol := -1, -1
	for i, h := range header {
		switch strings.TrimSpace(strings.ToLower(h)) {
		case "audio_path":
			pathCol = i
		case "transcript":
			textCol = i
		}
	}
	if pathCol < 0 || textCol < 0 {
		return nil, errors.New("csv needs audio_path and transcript columns")
	}

	var out []Sample
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		if pathCol >= len(rec) || textCol >= len(rec) {
			continue
		}
		p := rec[pathCol]
		if dir != "" && !filepath.IsAbs(p) {
			p = filepath.Join(dir, p)
		}
		out = append(out, Sample{AudioPath: p, Transcript: rec[textCol]})
	}
}

// Evaluate transcribes every sample with tr, at most workers at a time, and
// scores the transcripts. Per-sample failures are reported in Result.Err;
// the returned error is non-nil only when ctx ends.
func Evaluate(ctx context.Context, tr stt.Transcriber, samples []Sample, opts stt.Options, workers int) ([]Result, error) {
	if workers < 1 {
		workers = 1
	}
	results := make([]Result, len(samples))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, s := range samples {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = evaluateOne(gctx, tr, s, opts)
			slog.Info("evaluated sample", "index", i, "audio", s.AudioPath, "wer", results[i].WER, "error", results[i].Err)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

func evaluateOne(ctx context.Context, tr stt.Transcriber, s Sample, opts stt.Options) Result {
	res := Result{Sample: s}

	audio, err := os.ReadFile(s.AudioPath)
	if err != nil {
		res.Err = err
		return res
	}

	start := time.Now()
	out, err := tr.Transcribe(ctx, audio, contentType(s.AudioPath), opts)
	res.Duration = time.Since(start)
	if err != nil {
		res.Err = fmt.Errorf("transcribing: %w", err)
		return res
	}
	res.Generated = out.Text
	res.Language = out.Language
	res.Similarity = Similarity(s.Transcript, out.Text)
	res.WER, res.Err = WER(s.Transcript, out.Text)
	return res
}

func contentType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		return "audio/mpeg"
	case ".ogg", ".opus":
		return "audio/ogg"
	case ".flac":
		return "audio/flac"
	case ".webm":
		return "audio/webm"
	default:
		return "audio/wav"
	}
}

// WriteResults writes results as CSV.
func WriteResults(w io.Writer, results []Result) error {
	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"audio_path", "transcript", "gen_transcript", "language", "word_error_rate", "similarity", "duration_ms", "error"})
	for _, r := range results {
		errText := ""
		if r.Err != nil {
			errText = r.Err.Error()
		}
		_ = cw.Write([]string{
			r.AudioPath,
			r.Transcript,
			r.Generated,
			r.Language,
			strconv.FormatFloat(r.WER, 'f', 2, 64),
			strconv.FormatFloat(r.Similarity, 'f', 3, 64),
			strconv.FormatInt(r.Duration.Milliseconds(), 10),
			errText,
		})
	}
	cw.Flush()
	return cw.Error()
}

// Summary aggregates results.
type Summary struct {
	Samples int
	Failed  int
	MeanWER float64
}

// Summarize averages WER over the successful results.
func Summarize(results []Result) Summary {
	var s Summary
	var total float64
	for _, r := range results {
		s.Samples++
		if r.Err != nil {
			s.Failed++
			continue
		}
		total += r.WER
	}
	if ok := s.Samples - s.Failed; ok > 0 {
		s.MeanWER = total / float64(ok)
	}
	return s
}
