package service

import (
	"regexp"
	"strings"
	"unicode/utf16"

	"github.com/Harshitk-cp/concord/internal/domain"
)

const (
	DefaultHashMin = 0.45
	DefaultHashMax = 0.9

	// Axis bounds for a ScoreSet.
	MinAxisScore = 0.35
	MaxAxisScore = 0.95

	hashModulus    = 1_000_000_007
	hashMultiplier = 31

	maxScoredLength   = 1200
	longTextSentences = 12
)

var sentenceSplit = regexp.MustCompile(`[.!?]+`)

// HashScore maps seed to a value in [DefaultHashMin, DefaultHashMax].
func HashScore(seed string) float64 {
	return HashScoreRange(seed, DefaultHashMin, DefaultHashMax)
}

// HashScoreRange maps seed onto [lo, hi] with a polynomial rolling hash over
// its UTF-16 code units. The same seed always yields the same value.
func HashScoreRange(seed string, lo, hi float64) float64 {
	var h int64
	for _, c := range utf16.Encode([]rune(seed)) {
		h = (h*hashMultiplier + int64(c)) % hashModulus
	}
	normalized := float64(h%1000) / 1000
	return lo + normalized*(hi-lo)
}

// BuildScores fingerprints an opinion text on five display axes. bias moves
// evidence up and context down by the same amount.
func BuildScores(label, text string, bias float64) domain.ScoreSet {
	base := HashScore(label + ":" + text)
	return axisScores(base, textLength(text), sentenceCount(text), bias)
}

func axisScores(base float64, length, sentences int, bias float64) domain.ScoreSet {
	lengthFactor := float64(min(length, maxScoredLength)) / maxScoredLength
	sentenceFactor := float64(min(sentences, longTextSentences)) / longTextSentences

	clarity := base + 0.06 - 0.03*sentenceFactor
	if sentences > longTextSentences {
		clarity -= 0.08
	}

	return domain.ScoreSet{
		Evidence: clampAxis(base + 0.06*lengthFactor + bias),
		Context:  clampAxis(base + 0.04*sentenceFactor - bias),
		Risk:     clampAxis(base - 0.03 + 0.02*float64(sentences%4)),
		Action:   clampAxis(base + 0.05 - 0.04*lengthFactor),
		Clarity:  clampAxis(clarity),
	}
}

// CompareScores returns the per-axis difference b - a.
func CompareScores(a, b domain.ScoreSet) domain.ScoreSet {
	return domain.ScoreSet{
		Evidence: b.Evidence - a.Evidence,
		Context:  b.Context - a.Context,
		Risk:     b.Risk - a.Risk,
		Action:   b.Action - a.Action,
		Clarity:  b.Clarity - a.Clarity,
	}
}

func textLength(text string) int {
	return min(maxScoredLength, len(utf16.Encode([]rune(text))))
}

// sentenceCount counts non-blank segments between runs of . ! or ?, with a
// floor of one.
func sentenceCount(text string) int {
	n := 0
	for _, seg := range sentenceSplit.Split(text, -1) {
		if strings.TrimSpace(seg) != "" {
			n++
		}
	}
	return max(1, n)
}

func clampAxis(v float64) float64 {
	return clamp(v, MinAxisScore, MaxAxisScore)
}
