// Package names normalizes player names into stable lookup keys.
// Tennis draws are full of diacritics and inconsistent casing across
// data feeds, so every name-keyed lookup goes through Normalize.
package names

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize lowercases a player name, strips accents and collapses
// whitespace. "Novak Đoković" and "novak  djokovic" do not collide, but
// "Muñoz" and "Munoz" do, which is the variation the feeds produce.
func Normalize(name string) string {
	name = strings.ToLower(name)

	// Decompose, drop combining marks, recompose.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	name, _, _ = transform.String(t, name)

	name = strings.Join(strings.Fields(name), " ")

	return strings.TrimSpace(name)
}
