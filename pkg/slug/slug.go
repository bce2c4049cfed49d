// Package slug generates URL-friendly identifiers from display names.
package slug

import (
	"regexp"
	"strings"
)

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// Latin diacritics folded to their ASCII base letters.
var folder = strings.NewReplacer(
	"à", "a", "á", "a", "â", "a", "ä", "a", "ã", "a", "å", "a",
	"è", "e", "é", "e", "ê", "e", "ë", "e",
	"ì", "i", "í", "i", "î", "i", "ï", "i",
	"ò", "o", "ó", "o", "ô", "o", "ö", "o", "õ", "o",
	"ù", "u", "ú", "u", "û", "u", "ü", "u",
	"ç", "c", "ñ", "n", "ß", "ss",
)

// Make creates a URL-friendly slug from the given name.
//
// Examples:
//   - "The Forest Hiker" → "the-forest-hiker"
//   - "Überland  Trek!"  → "uberland-trek"
func Make(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = folder.Replace(s)
	s = nonAlnum.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
