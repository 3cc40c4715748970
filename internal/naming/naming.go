// Package naming converts operation and parameter names between the
// description's snake_case and the cases used on the wire and in generated
// Go code.
package naming

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Words splits a name into words on underscores, hyphens and case
// boundaries. Case is preserved: "addNumbers" yields [add Numbers].
func Words(name string) []string {
	var words []string
	runes := []rune(name)
	start := -1
	flush := func(end int) {
		if start >= 0 && end > start {
			words = append(words, string(runes[start:end]))
		}
		start = -1
	}

	for i, r := range runes {
		if r == '_' || r == '-' || unicode.IsSpace(r) {
			flush(i)
			continue
		}
		if start < 0 {
			start = i
			continue
		}
		prev := runes[i-1]
		switch {
		case unicode.IsUpper(r) && (unicode.IsLower(prev) || unicode.IsDigit(prev)):
			flush(i)
			start = i
		case unicode.IsUpper(r) && unicode.IsUpper(prev) && i+1 < len(runes) && unicode.IsLower(runes[i+1]):
			// "HTTPServer" splits before the S.
			flush(i)
			start = i
		}
	}
	flush(len(runes))
	return words
}

// Pascal converts a name to PascalCase. Each word is title-cased with the
// remainder lowered, so "get_HTTP_status" becomes "GetHttpStatus".
// This is the canonical case of envelope discriminants.
func Pascal(name string) string {
	var b strings.Builder
	for _, w := range Words(name) {
		b.WriteString(cases.Title(language.Und).String(w))
	}
	return b.String()
}

// Camel converts a name to camelCase.
func Camel(name string) string {
	words := Words(name)
	if len(words) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(cases.Lower(language.Und).String(words[0]))
	for _, w := range words[1:] {
		b.WriteString(cases.Title(language.Und).String(w))
	}
	return b.String()
}

// Snake converts a name to snake_case.
func Snake(name string) string {
	words := Words(name)
	for i, w := range words {
		words[i] = cases.Lower(language.Und).String(w)
	}
	return strings.Join(words, "_")
}
