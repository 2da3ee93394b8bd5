package util

import (
	"errors"
	"path"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxFileNameLen bounds stored upload names.
const MaxFileNameLen = 120

var ErrInvalidFileName = errors.New("invalid file name")

// SanitizeFileName flattens path separators, drops control characters and
// rejects traversal patterns. Long names are shortened with their extension
// kept.
func SanitizeFileName(name string) (string, error) {
	if strings.Contains(name, "..") {
		return "", ErrInvalidFileName
	}
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == '\\':
			return '_'
		case unicode.IsControl(r):
			return -1
		default:
			return r
		}
	}, strings.TrimSpace(name))
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return "", ErrInvalidFileName
	}

	if runes := []rune(cleaned); len(runes) > MaxFileNameLen {
		ext := path.Ext(cleaned)
		if len([]rune(ext)) >= MaxFileNameLen {
			ext = ""
		}
		keep := MaxFileNameLen - len([]rune(ext))
		cleaned = string([]rune(strings.TrimSuffix(cleaned, ext))[:keep]) + ext
	}
	return cleaned, nil
}

// Truncate shortens s to at most maxBytes bytes without splitting a UTF-8
// sequence.
func Truncate(s string, maxBytes int) string {
	if maxBytes <= 0 {
		return ""
	}
	if len(s) <= maxBytes {
		return s
	}
	cut := maxBytes
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
