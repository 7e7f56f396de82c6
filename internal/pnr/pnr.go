package pnr

import (
	"context"
	"crypto/rand"
	"fmt"
)

const (
	alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	length   = 6
	maxTries = 10
)

// Exists reports whether a PNR is already assigned.
type Exists func(ctx context.Context, pnr string) (bool, error)

// Generate returns a fresh 6-character alphanumeric PNR, drawn from
// crypto/rand so codes are not guessable, and retried until it does not
// collide with an existing one.
func Generate(ctx context.Context, exists Exists) (string, error) {
	for i := 0; i < maxTries; i++ {
		code, err := random()
		if err != nil {
			return "", err
		}
		taken, err := exists(ctx, code)
		if err != nil {
			return "", err
		}
		if !taken {
			return code, nil
		}
	}
	return "", fmt.Errorf("could not generate unique pnr after %d attempts", maxTries)
}

// rejectAbove is the largest multiple of len(alphabet) that fits in a
// byte; bytes at or above it are redrawn so no character is favored.
const rejectAbove = 256 - 256%len(alphabet)

func random() (string, error) {
	out := make([]byte, 0, length)
	buf := make([]byte, length)
	for len(out) < length {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("read random bytes: %w", err)
		}
		for _, b := range buf {
			if c, ok := pick(b); ok {
				out = append(out, c)
				if len(out) == length {
					break
				}
			}
		}
	}
	return string(out), nil
}

func pick(b byte) (byte, bool) {
	if int(b) >= rejectAbove {
		return 0, false
	}
	return alphabet[int(b)%len(alphabet)], true
}
