package wave

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// NormalizeText trims s and converts it to Unicode NFC so the same note typed
// on different keyboards compares and measures identically.
func NormalizeText(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// RuneLen counts user-perceived code points after normalization.
func RuneLen(s string) int {
	return utf8.RuneCountInString(s)
}
