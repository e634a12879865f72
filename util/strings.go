package util

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"strings"
)

// RandomString32 returns a 32 bytes long string with 24 bytes (192 bits) of entropy.
func RandomString32() (string, error) {

	b := make([]byte, 24)

	_, err := rand.Read(b)
	if err != nil {
		return "", err
	}

	result := base64.URLEncoding.EncodeToString(b)

	if len(result) < 32 {
		return "", errors.New("RandomString32 too short")
	}

	if len(result) > 32 {
		result = result[:32]
	}

	return result, nil
}

// Slugify lowercases the input and collapses everything that is not a letter
// or digit into single hyphens.
func Slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	lastHyphen := true // suppress a leading hyphen
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			lastHyphen = false
		} else if !lastHyphen {
			b.WriteByte('-')
			lastHyphen = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// Trunc truncates the input string to a specific length.
// It is UTF8-safe, but does not care for HTML.
func Trunc(s string, maxRunes int) string {
	s = strings.TrimSpace(s)
	var runes = 0
	for i := range s {
		runes++
		if runes == maxRunes {
			return strings.TrimSpace(s[:i]) // trim spaces again
		}
	}
	return s
}
