// Package normalize provides helper functions for consistent string
// normalization of CMS input: slugs, names, and query parameters.
package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Email trims whitespace and lowercases.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Name trims whitespace and collapses inner runs of spaces.
func Name(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// QueryParam trims whitespace.
func QueryParam(s string) string {
	return strings.TrimSpace(s)
}

// Model lowercases a lifecycle model name ("Tour" -> "tour").
func Model(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

var (
	slugInvalid = regexp.MustCompile(`[^a-z0-9]+`)
	slugValid   = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
)

// foldDiacritics strips combining marks after canonical decomposition.
// đ/Đ do not decompose and are mapped explicitly.
func foldDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.NewReplacer("đ", "d", "Đ", "D").Replace(out)
}

// Slug turns a title into a URL key: "Vịnh Hạ Long 2N1Đ" -> "vinh-ha-long-2n1d".
func Slug(s string) string {
	s = strings.ToLower(foldDiacritics(s))
	return strings.Trim(slugInvalid.ReplaceAllString(s, "-"), "-")
}

// IsSlug reports whether s is already a well-formed slug.
func IsSlug(s string) bool {
	return slugValid.MatchString(s)
}
