package util

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// HashText returns the hex SHA-256 of s after trimming surrounding whitespace.
// Analysis records keep it so repeated submissions of one resume can be found.
func HashText(s string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(s)))
	return hex.EncodeToString(sum[:])
}
