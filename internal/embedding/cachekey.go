package embedding

import (
	"crypto/sha256"
	"encoding/hex"
)

// CacheKey returns the hex SHA-256 of modelID, a NUL byte, and text. The
// separator keeps ("ab", "c") and ("a", "bc") apart.
func CacheKey(modelID, text string) string {
	h := sha256.New()
	h.Write([]byte(modelID))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}
