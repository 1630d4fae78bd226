package token

import (
	"errors"
	"io"
	"strings"
	"testing"
)

func TestGenerator_LengthAndAlphabet(t *testing.T) {
	g, err := NewGenerator(32)
	if err != nil {
		t.Fatalf("NewGenerator: %v", err)
	}
	tok, err := g.Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(tok) != 43 || g.EncodedLen() != 43 {
		t.Fatalf("len=%d encodedLen=%d, want 43", len(tok), g.EncodedLen())
	}
	for _, r := range tok {
		ok := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_'
		if !ok {
			t.Fatalf("token %q contains non-base64url rune %q", tok, r)
		}
	}
}

func TestGenerator_NoCollisions(t *testing.T) {
	g, err := NewGenerator(32)
	if err != nil {
		t.Fatalf("NewGenerator: %v", err)
	}
	seen := make(map[string]struct{}, 10000)
	for i := 0; i < 10000; i++ {
		tok, err := g.Generate()
		if err != nil {
			t.Fatalf("Generate: %v", err)
		}
		if _, dup := seen[tok]; dup {
			t.Fatalf("duplicate token after %d draws", i)
		}
		seen[tok] = struct{}{}
	}
}

func TestNewGenerator_RejectsBadSizes(t *testing.T) {
	for _, n := range []int{0, 16, 31, 65} {
		if _, err := NewGenerator(n); !errors.Is(err, ErrTokenLength) {
			t.Fatalf("n=%d: expected ErrTokenLength, got %v", n, err)
		}
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, io.ErrUnexpectedEOF }

func TestGenerator_PropagatesEntropyFailure(t *testing.T) {
	g, err := NewGenerator(32)
	if err != nil {
		t.Fatalf("NewGenerator: %v", err)
	}
	g.rand = failingReader{}

	tok, err := g.Generate()
	if err == nil {
		t.Fatalf("expected error, got token %q", tok)
	}
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("expected wrapped read error, got %v", err)
	}
}

func TestHasher_Modes(t *testing.T) {
	plain := NewHasher(nil)
	if plain.Keyed() {
		t.Fatalf("nil key must not be keyed")
	}
	if got, want := plain.Hash("abc"), HashSHA256Hex("abc"); got != want {
		t.Fatalf("sha mode: got %s want %s", got, want)
	}

	key := []byte(strings.Repeat("k", 32))
	keyed := NewHasher(key)
	key[0] = 'x' // caller mutation must not leak in
	if !keyed.Keyed() {
		t.Fatalf("expected keyed hasher")
	}
	if got, want := keyed.Hash("abc"), HashHMACSHA256Hex("abc", []byte(strings.Repeat("k", 32))); got != want {
		t.Fatalf("hmac mode: got %s want %s", got, want)
	}
	if keyed.Hash("abc") == plain.Hash("abc") {
		t.Fatalf("hmac and sha digests must differ")
	}
	if len(keyed.Hash("abc")) != 64 {
		t.Fatalf("expected 64-char hex digest")
	}
}

func TestParseHMACKey(t *testing.T) {
	if _, err := ParseHMACKey("   ", MinHMACKeyBytes); !errors.Is(err, ErrHMACKeyMissing) {
		t.Fatalf("expected ErrHMACKeyMissing, got %v", err)
	}
	if _, err := ParseHMACKey("short", MinHMACKeyBytes); !errors.Is(err, ErrHMACKeyTooShort) {
		t.Fatalf("expected ErrHMACKeyTooShort, got %v", err)
	}
	k, err := ParseHMACKey("  "+strings.Repeat("a", 40)+" ", MinHMACKeyBytes)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(k) != 40 {
		t.Fatalf("expected trimmed key of 40 bytes, got %d", len(k))
	}
}
