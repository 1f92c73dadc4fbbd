// Package sluggen provides slug generation functionality.
// Generators are safe for concurrent use as long as their random source is.
package sluggen

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
)

const (
	// Alphabet is the set of characters a generated slug is drawn from.
	Alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	// Bytes at or above this bound are rejected so that every symbol of the
	// alphabet is equally likely (248 = 4 * 62).
	rejectAbove = 256 - 256%len(Alphabet)
)

// Generator generates URL slugs.
// Implementations should be safe for concurrent use.
type Generator interface {
	Generate(length int) (string, error)
}

// Option configures a base62 generator.
type Option func(*base62Generator)

// WithRandom sets the source of random bytes. Defaults to crypto/rand.Reader.
// Tests pass a deterministic reader here.
func WithRandom(r io.Reader) Option {
	return func(g *base62Generator) {
		if r != nil {
			g.random = r
		}
	}
}

// base62Generator draws characters uniformly from Alphabet.
type base62Generator struct {
	random io.Reader
}

// NewBase62 returns a new base62 slug generator.
func NewBase62(opts ...Option) Generator {
	g := &base62Generator{random: rand.Reader}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate returns a random string of exactly length characters.
func (g *base62Generator) Generate(length int) (string, error) {
	if length <= 0 {
		return "", errors.New("length must be positive")
	}

	out := make([]byte, 0, length)
	buf := make([]byte, length)

	for len(out) < length {
		chunk := buf[:length-len(out)]
		if _, err := io.ReadFull(g.random, chunk); err != nil {
			return "", fmt.Errorf("read random bytes: %w", err)
		}
		for _, b := range chunk {
			if int(b) >= rejectAbove {
				continue
			}
			out = append(out, Alphabet[int(b)%len(Alphabet)])
		}
	}

	return string(out), nil
}
