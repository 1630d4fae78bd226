package token

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
)

const (
	// MinBytes is the smallest accepted token size (256 bits).
	MinBytes = 32
	// MaxBytes bounds token size so the encoded value stays well under cookie limits.
	MaxBytes = 64
)

// Generator produces opaque session tokens.
type Generator struct {
	n    int
	rand io.Reader
}

// NewGenerator returns a Generator producing n random bytes per token.
func NewGenerator(n int) (*Generator, error) {
	if n < MinBytes || n > MaxBytes {
		return nil, fmt.Errorf("%w: %d (want %d..%d)", ErrTokenLength, n, MinBytes, MaxBytes)
	}
	return &Generator{n: n, rand: rand.Reader}, nil
}

// Generate returns a fresh base64url token.
//
// A short read from the entropy source is returned as an error; there is no
// fallback source.
func (g *Generator) Generate() (string, error) {
	b := make([]byte, g.n)
	if _, err := io.ReadFull(g.rand, b); err != nil {
		return "", fmt.Errorf("token: read entropy: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// EncodedLen is the length of tokens produced by g.
func (g *Generator) EncodedLen() int {
	return base64.RawURLEncoding.EncodedLen(g.n)
}
