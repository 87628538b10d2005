// Package textnorm canonicalizes whitespace and line endings before any
// segmentation, fingerprinting or hashing happens.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// #region line-endings
var lineEndings = strings.NewReplacer(
	"\r\n", "\n",
	"\r", "\n",
	"\u0085", "\n",
	"\u2028", "\n",
	"\u2029", "\n",
)

// UnifyLineEndings rewrites every line-ending variant to "\n" and leaves
// everything else untouched.
func UnifyLineEndings(s string) string {
	return lineEndings.Replace(s)
}

// #endregion line-endings

// #region normalize
// Normalize returns s with line endings unified, composed to NFC, every run
// of non-newline whitespace (NBSP included) collapsed to one space, and
// leading/trailing whitespace trimmed. Normalize(Normalize(s)) == Normalize(s).
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	s = norm.NFC.String(UnifyLineEndings(s))

	var b strings.Builder
	b.Grow(len(s))
	inSpace := false
	for _, r := range s {
		if r != '\n' && unicode.IsSpace(r) {
			if !inSpace {
				b.WriteByte(' ')
				inSpace = true
			}
			continue
		}
		inSpace = false
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}

// #endregion normalize
