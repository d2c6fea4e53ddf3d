package textutil

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	negativeCues = []string{
		"terrible", "panic", "cannot", "can't", "worse", "urgent",
		"anxious", "drained", "fatig", "worried", "tight", "short of breath",
	}
	positiveCues = []string{"motivated", "better", "helped", "coping", "steady", "improv"}
)

// SentimentFromText classifies free text as negative, positive or neutral
// using keyword cues. Negative cues win.
func SentimentFromText(text string) string {
	t := strings.ToLower(text)
	for _, w := range negativeCues {
		if strings.Contains(t, w) {
			return "negative"
		}
	}
	for _, w := range positiveCues {
		if strings.Contains(t, w) {
			return "positive"
		}
	}
	return "neutral"
}

var ratingLabels = []string{"positive", "negative", "neutral", "mixed"}

// NormalizeRating maps a stored rating to its display label. Unknown
// ratings are returned with the first letter capitalized.
func NormalizeRating(rating string) string {
	s := strings.TrimSpace(rating)
	if s == "" {
		return ""
	}
	if label := ratingLabel(s); label != "" {
		r, size := utf8.DecodeRuneInString(label)
		return string(unicode.ToUpper(r)) + label[size:]
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[size:]
}

// SentimentLevel maps a rating to the lowercase level the dashboard colors
// by, defaulting to neutral.
func SentimentLevel(rating string) string {
	if label := ratingLabel(strings.TrimSpace(rating)); label != "" {
		return label
	}
	return "neutral"
}

func ratingLabel(s string) string {
	lower := strings.ToLower(s)
	for _, l := range ratingLabels {
		if strings.HasPrefix(lower, l) {
			return l
		}
	}
	return ""
}
