// Package eval measures transcription quality against reference transcripts.
package eval

import (
	"errors"
	"math"
	"strings"
	"unicode"

	"github.com/antzucaro/matchr"
)

var (
	// ErrEmptyReference is returned when the reference has no words left
	// after normalization.
	ErrEmptyReference = errors.New("reference transcript is empty after normalization")

	// ErrEmptyHypothesis is returned when the transcriber produced no words.
	ErrEmptyHypothesis = errors.New("generated transcript is empty after normalization")
)

// Normalize lower-cases s, removes punctuation and collapses whitespace.
func Normalize(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

// WER returns the word error rate of hypothesis against reference as a
// percentage rounded to two decimals. Both are normalized first.
func WER(reference, hypothesis string) (float64, error) {
	ref := strings.Fields(Normalize(reference))
	hyp := strings.Fields(Normalize(hypothesis))
	if len(ref) == 0 {
		return 0, ErrEmptyReference
	}
	if len(hyp) == 0 {
		return 0, ErrEmptyHypothesis
	}

	r, h := encodeWords(ref, hyp)
	dist := matchr.Levenshtein(r, h)
	wer := float64(dist) / float64(len(ref)) * 100
	return math.Round(wer*100) / 100, nil
}

// Similarity is the Jaro-Winkler similarity of the normalized transcripts,
// in [0, 1]. It complements WER for short utterances.
func Similarity(reference, hypothesis string) float64 {
	return matchr.JaroWinkler(Normalize(reference), Normalize(hypothesis), false)
}

// encodeWords maps every distinct word to one rune so that a rune-level
// edit distance counts word substitutions, insertions and deletions.
func encodeWords(ref, hyp []string) (string, string) {
	ids := make(map[string]rune)
	encode := func(words []string) string {
		var b strings.Builder
		for _, w := range words {
			id, ok := ids[w]
			if !ok {
				id = rune(0xE000 + len(ids))
				ids[w] = id
			}
			b.WriteRune(id)
		}
		return b.String()
	}
	return encode(ref), encode(hyp)
}
