package fingerprint

import (
	"strings"
	"unicode"
)

// accented is the set of non-ASCII letters kept as word characters.
const accented = "àâäáãåçéèêëíìîïñóòôöõúùûüýÿœæ"

// #region tokenize
// Tokenize lower-cases text, replaces every rune outside [a-z0-9_] and the
// accented-letter set with a space, and splits on whitespace.
func Tokenize(text string) []string {
	lowered := strings.ToLower(text)
	cleaned := strings.Map(func(r rune) rune {
		if isWordRune(r) {
			return r
		}
		return ' '
	}, lowered)
	return strings.Fields(cleaned)
}

func isWordRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
		return true
	case r < unicode.MaxASCII:
		return false
	default:
		return strings.ContainsRune(accented, r)
	}
}

// #endregion tokenize
