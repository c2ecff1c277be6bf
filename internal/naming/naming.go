// Package naming splits wire names into segments and rebuilds them as
// Pascal or camel case identifiers for generated code.
package naming

import (
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ErrEmptyIdentifier is returned when splitting an input yields no segments.
var ErrEmptyIdentifier = errors.New("naming: identifier has no segments")

// Normalizer converts names using a configurable separator set.
type Normalizer struct {
	// IsSeparator reports whether r splits segments. Nil means DefaultSeparator.
	IsSeparator func(r rune) bool
}

// DefaultSeparator treats every rune that is not a letter or digit, and the
// underscore, as a segment boundary.
func DefaultSeparator(r rune) bool {
	if r == '_' {
		return true
	}
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

var std = Normalizer{}

// PascalCase capitalizes every segment of s and joins them.
func PascalCase(s string) (string, error) { return std.PascalCase(s) }

// CamelCase keeps the first segment of s as-is and capitalizes the rest.
func CamelCase(s string) (string, error) { return std.CamelCase(s) }

// Split returns the non-empty segments of s.
func (n Normalizer) Split(s string) []string {
	sep := n.IsSeparator
	if sep == nil {
		sep = DefaultSeparator
	}
	fields := strings.FieldsFunc(s, sep)
	out := fields[:0]
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

func (n Normalizer) PascalCase(s string) (string, error) {
	segs := n.Split(s)
	if len(segs) == 0 {
		return "", ErrEmptyIdentifier
	}
	var b strings.Builder
	for _, seg := range segs {
		b.WriteString(Capitalize(seg))
	}
	return b.String(), nil
}

func (n Normalizer) CamelCase(s string) (string, error) {
	segs := n.Split(s)
	if len(segs) == 0 {
		return "", ErrEmptyIdentifier
	}
	var b strings.Builder
	b.WriteString(segs[0])
	for _, seg := range segs[1:] {
		b.WriteString(Capitalize(seg))
	}
	return b.String(), nil
}

// Capitalize upper-cases the first rune of seg and leaves the rest untouched.
// Callers pass non-empty segments; an empty seg is returned unchanged.
func Capitalize(seg string) string {
	r, size := utf8.DecodeRuneInString(seg)
	if size == 0 {
		return seg
	}
	return cases.Upper(language.Und).String(string(r)) + seg[size:]
}

// StartsWithLetter reports whether s begins with a Unicode letter.
func StartsWithLetter(s string) bool {
	r, size := utf8.DecodeRuneInString(s)
	return size > 0 && unicode.IsLetter(r)
}
