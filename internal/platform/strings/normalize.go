package strings

import (
	std "strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Normalize canonicalizes user-supplied input lines: NFC form, stripped
// of zero-width and other format characters, with surrounding whitespace
// and a UTF-8 BOM removed. Lines pasted from spreadsheets and chat apps
// often carry these invisibles
func Normalize(s string) string {
	s = std.TrimPrefix(s, "\ufeff")
	s = norm.NFC.String(s)
	s = std.Map(func(r rune) rune {
		if unicode.Is(unicode.Cf, r) {
			return -1
		}
		return r
	}, s)
	return std.TrimSpace(s)
}
