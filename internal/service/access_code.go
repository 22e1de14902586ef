package service

import (
	"crypto/rand"
	"fmt"
)

// accessCodeAlphabet is the base-36 alphabet exam codes are drawn from.
// Codes are uppercase so they survive being read aloud or written down.
const accessCodeAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// GenerateAccessCode produces a random uppercase base-36 code of the given
// length. Collisions are not checked against existing codes: at 6
// characters the space holds ~2.2 billion values, which is accepted as
// practically collision-free for classroom scale.
func GenerateAccessCode(length int) (string, error) {
	if length <= 0 {
		length = 6
	}

	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}

	code := make([]byte, length)
	for i, b := range buf {
		code[i] = accessCodeAlphabet[int(b)%len(accessCodeAlphabet)]
	}
	return string(code), nil
}
