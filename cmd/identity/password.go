package identity

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"runtime"
	"strings"

	"golang.org/x/crypto/argon2"
)

// ErrInvalidHash is returned for malformed or out-of-bounds PHC strings.
var ErrInvalidHash = errors.New("invalid argon2id hash")

const argon2Version = 19

// Argon2idParams controls hashing cost. MemoryKiB is in KiB as argon2.IDKey expects.
type Argon2idParams struct {
	MemoryKiB   uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32

	MinPasswordLen int
	MaxPasswordLen int
}

// DefaultArgon2idParams is the interactive-login baseline (64 MiB, t=3).
func DefaultArgon2idParams() Argon2idParams {
	threads := runtime.NumCPU()
	if threads <= 0 {
		threads = 1
	}
	if threads > 4 {
		threads = 4
	}
	return Argon2idParams{
		MemoryKiB:      64 * 1024,
		Iterations:     3,
		Parallelism:    uint8(threads), // #nosec G115 -- clamped to [1..4].
		SaltLength:     16,
		KeyLength:      32,
		MinPasswordLen: 8,
		MaxPasswordLen: 256,
	}
}

// PasswordHasher hashes and verifies employee passwords.
type PasswordHasher struct {
	p Argon2idParams
}

// NewPasswordHasher clamps p to sane minima.
func NewPasswordHasher(p Argon2idParams) PasswordHasher {
	if p.Parallelism == 0 {
		p.Parallelism = 1
	}
	if p.Iterations == 0 {
		p.Iterations = 1
	}
	if p.MemoryKiB < 8*1024 {
		p.MemoryKiB = 8 * 1024
	}
	if p.SaltLength < 8 {
		p.SaltLength = 16
	}
	if p.KeyLength < 16 {
		p.KeyLength = 32
	}
	if p.MaxPasswordLen <= 0 {
		p.MaxPasswordLen = 256
	}
	return PasswordHasher{p: p}
}

// Hash returns $argon2id$v=19$m=<mem>,t=<iter>,p=<par>$<salt>$<key>.
func (h PasswordHasher) Hash(plain string) (string, error) {
	if len(plain) < h.p.MinPasswordLen {
		return "", fmt.Errorf("%w: password too short", ErrInvalidInput)
	}
	if len(plain) > h.p.MaxPasswordLen {
		return "", fmt.Errorf("%w: password too long", ErrInvalidInput)
	}

	salt := make([]byte, h.p.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("salt: %w", err)
	}
	key := argon2.IDKey([]byte(plain), salt, h.p.Iterations, h.p.MemoryKiB, h.p.Parallelism, h.p.KeyLength)

	b64 := base64.RawStdEncoding
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2Version, h.p.MemoryKiB, h.p.Iterations, h.p.Parallelism,
		b64.EncodeToString(salt), b64.EncodeToString(key),
	), nil
}

// Verify reports whether plain matches encoded. Hashes whose cost exceeds
// twice the configured cost are refused with ErrInvalidHash.
func (h PasswordHasher) Verify(encoded, plain string) (bool, error) {
	if len(plain) > h.p.MaxPasswordLen {
		return false, nil
	}

	mem, iter, par, salt, want, err := decodePHC(encoded)
	if err != nil {
		return false, err
	}
	if mem > h.p.MemoryKiB*2 || iter > h.p.Iterations*2 || par > h.p.Parallelism*2 {
		return false, ErrInvalidHash
	}
	if len(salt) < 8 || len(salt) > 64 || len(want) < 16 || len(want) > 128 {
		return false, ErrInvalidHash
	}

	got := argon2.IDKey([]byte(plain), salt, iter, mem, par, uint32(len(want))) // #nosec G115 -- bounded above.
	return subtle.ConstantTimeCompare(got, want) == 1, nil
}

func decodePHC(encoded string) (mem, iter uint32, par uint8, salt, key []byte, err error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" || parts[2] != "v=19" {
		return 0, 0, 0, nil, nil, ErrInvalidHash
	}

	var p uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &mem, &iter, &p); err != nil {
		return 0, 0, 0, nil, nil, ErrInvalidHash
	}
	if mem == 0 || iter == 0 || p == 0 || p > 255 {
		return 0, 0, 0, nil, nil, ErrInvalidHash
	}

	b64 := base64.RawStdEncoding
	if salt, err = b64.DecodeString(parts[4]); err != nil {
		return 0, 0, 0, nil, nil, ErrInvalidHash
	}
	if key, err = b64.DecodeString(parts[5]); err != nil {
		return 0, 0, 0, nil, nil, ErrInvalidHash
	}
	return mem, iter, uint8(p), salt, key, nil
}
