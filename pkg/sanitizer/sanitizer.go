package sanitizer

import (
	"regexp"
	"strings"
	"unicode"
)

type Strategy func(string) string

type Pipeline []Strategy

func (p Pipeline) Apply(s string) string {
	for _, fn := range p {
		s = fn(s)
	}
	return s
}

var (
	reValidTZ         = regexp.MustCompile(`^[A-Za-z0-9_\-+/]+$`)
	reMultiSlash      = regexp.MustCompile(`/+`)
	reMultiUnderscore = regexp.MustCompile(`_+`)
)

func dropControl(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}

func truncateRunes(limit int) Strategy {
	return func(s string) string {
		if limit <= 0 {
			return s
		}
		runes := []rune(s)
		if len(runes) <= limit {
			return s
		}
		return strings.TrimSpace(string(runes[:limit]))
	}
}

// SanitizeText cleans user-written text such as rating comments. Newlines survive, other
// control characters do not, and the result is at most maxRunes long.
func SanitizeText(input string, maxRunes int) string {
	p := Pipeline{
		dropControl,
		strings.TrimSpace,
		truncateRunes(maxRunes),
	}
	return p.Apply(input)
}

// SanitizeTimeZone returns a cleaned IANA zone name, or "" when the input cannot be one.
func SanitizeTimeZone(input string) string {
	p := Pipeline{
		strings.TrimSpace,
		func(s string) string { return reMultiSlash.ReplaceAllString(s, "/") },
		func(s string) string { return reMultiUnderscore.ReplaceAllString(s, "_") },
		func(s string) string { return strings.Trim(s, "/") },
	}
	s := p.Apply(input)
	if s == "" || !reValidTZ.MatchString(s) {
		return ""
	}
	return s
}
