package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var nonASCII = runes.Predicate(func(r rune) bool { return r > unicode.MaxASCII })

func fold(r rune) rune {
	if r == ' ' {
		return '-'
	}

	return unicode.ToLower(r)
}

// Normalize turns a display name into the token used in site URLs and for
// name comparison: NFKD, lowercase, spaces as hyphens, ASCII only.
func Normalize(s string) string {
	t := transform.Chain(norm.NFKD, runes.Map(fold), runes.Remove(nonASCII))

	out, _, err := transform.String(t, s)
	if nil != err {
		return ""
	}

	return out
}

// Title capitalizes the first letter of every word. An apostrophe does not
// start a new word, so "o'brien" becomes "O'brien".
func Title(s string) string {
	return cases.Title(language.Und).String(s)
}

func CollapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

var filenameReplacer = strings.NewReplacer(
	"/", "-",
	"\\", "-",
	":", "-",
	"*", "",
	"?", "",
	"\"", "'",
	"<", "",
	">", "",
	"|", "-",
	"\x00", "",
)

// SanitizeFilename makes s usable as a single path segment.
func SanitizeFilename(s string) string {
	s = strings.TrimSpace(filenameReplacer.Replace(s))
	s = strings.Trim(s, ".")
	if s == "" {
		return "_"
	}

	return s
}
