// Package shortener produces short random suffixes for generated usernames.
package shortener

import (
	"crypto/rand"
	"fmt"
)

// Lowercase only, so slugs survive username normalization.
const alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// largest multiple of len(alphabet) below 256
const maxRandomByte = 252

// Slug returns a cryptographically random base36 string of the given length.
func Slug(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("invalid slug length: %d", length)
	}

	slug := make([]byte, 0, length)
	buf := make([]byte, length*2)
	for len(slug) < length {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("read random bytes: %w", err)
		}
		for _, b := range buf {
			if b >= maxRandomByte {
				continue
			}
			slug = append(slug, alphabet[int(b)%len(alphabet)])
			if len(slug) == length {
				break
			}
		}
	}
	return string(slug), nil
}
