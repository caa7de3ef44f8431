// Package randtoken generates random alphanumeric tokens used as file names.
package randtoken

import (
	"crypto/rand"
)

// Alphabet is the set of characters a token is drawn from.
const Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// 62*4 = 248; bytes at or above this value are rejected so every
// character of Alphabet stays equally likely.
const maxUnbiased = 248

// Generate returns a string of length characters drawn uniformly, with
// replacement, from Alphabet. A length <= 0 yields the empty string.
func Generate(length int) string {
	if length <= 0 {
		return ""
	}
	out := make([]byte, 0, length)
	buf := make([]byte, length+length/4+1)
	for len(out) < length {
		// crypto/rand.Read never returns an error on supported platforms.
		_, _ = rand.Read(buf)
		for _, b := range buf {
			if b >= maxUnbiased {
				continue
			}
			out = append(out, Alphabet[int(b)%len(Alphabet)])
			if len(out) == length {
				break
			}
		}
	}
	return string(out)
}
