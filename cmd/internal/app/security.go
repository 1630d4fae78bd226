package app

import (
	"errors"
	"fmt"
	"strings"

	"github.com/primo-luminous/wise-attitude-sub000/cmd/security/token"
)

// ValidateSecurityConfig enforces the token hashing policy at startup and
// returns the hasher the session store must use.
//
// A key that is present but shorter than token.MinHMACKeyBytes is rejected even
// when HMAC is not required.
func ValidateSecurityConfig(cfg Config) (token.Hasher, error) {
	raw := strings.TrimSpace(cfg.TokenHMACKey)
	if raw == "" && !cfg.RequireTokenHMAC {
		return token.NewHasher(nil), nil
	}

	key, err := token.ParseHMACKey(raw, token.MinHMACKeyBytes)
	if err != nil {
		switch {
		case errors.Is(err, token.ErrHMACKeyMissing):
			return token.Hasher{}, fmt.Errorf("security policy: WISE_REQUIRE_TOKEN_HMAC=true but %s is missing", token.HMACEnvKey)
		case errors.Is(err, token.ErrHMACKeyTooShort):
			return token.Hasher{}, fmt.Errorf("security policy: %s is too short (min %d bytes)", token.HMACEnvKey, token.MinHMACKeyBytes)
		default:
			return token.Hasher{}, err
		}
	}

	h := token.NewHasher(key)
	if cfg.RequireTokenHMAC && !h.Keyed() {
		return token.Hasher{}, errors.New("security policy: token hasher is not in HMAC mode")
	}
	return h, nil
}
