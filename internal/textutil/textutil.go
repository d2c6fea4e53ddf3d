// Package textutil holds the small text helpers shared by the patient,
// notes and research services.
package textutil

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// TrimToLastSentence cuts s after its last '.', '!' or '?'. Text without a
// sentence terminator is returned trimmed.
func TrimToLastSentence(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	end := strings.LastIndexAny(s, ".!?")
	if end == -1 {
		return s
	}
	return strings.TrimSpace(s[:end+1])
}

// Truncate shortens s to at most max runes, marking the cut with an ellipsis.
func Truncate(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return strings.TrimRightFunc(string(r[:max]), isSpace) + "…"
}

// Initials builds a two-letter avatar from a display name.
func Initials(name string) string {
	parts := strings.Fields(name)
	switch len(parts) {
	case 0:
		return "??"
	case 1:
		r := []rune(parts[0])
		if len(r) > 2 {
			r = r[:2]
		}
		return strings.ToUpper(string(r))
	}
	first, _ := utf8.DecodeRuneInString(parts[0])
	last, _ := utf8.DecodeRuneInString(parts[len(parts)-1])
	return strings.ToUpper(string([]rune{first, last}))
}

var piiKeys = map[string]struct{}{
	"patient_email":      {},
	"patient_cell":       {},
	"email":              {},
	"phone":              {},
	"insurance_number":   {},
	"emergency_contacts": {},
}

var (
	emailRe = regexp.MustCompile(`(?i)[A-Z0-9._%+-]+@[A-Z0-9.-]+\.[A-Z]{2,}`)
	phoneRe = regexp.MustCompile(`\b\d{3}[- .]?\d{3}[- .]?\d{4}\b`)
)

// Redacted replaces matched contact details.
const Redacted = "[REDACTED]"

// RedactPII returns a copy of v with contact fields dropped from every
// nested object and emails or phone numbers masked inside strings.
func RedactPII(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			if _, drop := piiKeys[k]; drop {
				continue
			}
			out[k] = RedactPII(val)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, val := range t {
			out[i] = RedactPII(val)
		}
		return out
	case []string:
		out := make([]string, len(t))
		for i, val := range t {
			out[i] = RedactString(val)
		}
		return out
	case string:
		return RedactString(t)
	default:
		return v
	}
}

// RedactString masks emails and phone numbers in s.
func RedactString(s string) string {
	s = emailRe.ReplaceAllString(s, Redacted)
	return phoneRe.ReplaceAllString(s, Redacted)
}

// CollapseSpace folds every whitespace run into a single space.
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}
