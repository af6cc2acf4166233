package account

import (
	"crypto/md5"
	"fmt"
	"strings"
)

// AvatarURL is the Gravatar image for an email, with the mystery-person
// fallback. Size defaults to 200px.
func AvatarURL(email string, size int) string {
	if size <= 0 {
		size = 200
	}
	hash := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(email))))
	return fmt.Sprintf("https://www.gravatar.com/avatar/%x?s=%d&d=mp", hash, size)
}
