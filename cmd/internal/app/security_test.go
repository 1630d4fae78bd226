package app

import (
	"strings"
	"testing"
)

func TestValidateSecurityConfig(t *testing.T) {
	t.Parallel()

	longKey := strings.Repeat("k", 32)

	cases := []struct {
		name       string
		cfg        Config
		wantErr    bool
		wantKeyed  bool
		errContain string
	}{
		{name: "optional and unset", cfg: Config{}},
		{name: "optional with key", cfg: Config{TokenHMACKey: longKey}, wantKeyed: true},
		{name: "optional with short key", cfg: Config{TokenHMACKey: "short"}, wantErr: true, errContain: "too short"},
		{name: "required and missing", cfg: Config{RequireTokenHMAC: true}, wantErr: true, errContain: "missing"},
		{name: "required and short", cfg: Config{RequireTokenHMAC: true, TokenHMACKey: "  short  "}, wantErr: true, errContain: "too short"},
		{name: "required and set", cfg: Config{RequireTokenHMAC: true, TokenHMACKey: "  " + longKey + "  "}, wantKeyed: true},
	}

	for _, tc := range cases {
		h, err := ValidateSecurityConfig(tc.cfg)
		if (err != nil) != tc.wantErr {
			t.Fatalf("%s: err=%v wantErr=%v", tc.name, err, tc.wantErr)
		}
		if err != nil {
			if !strings.Contains(err.Error(), tc.errContain) {
				t.Fatalf("%s: err=%q want substring %q", tc.name, err, tc.errContain)
			}
			continue
		}
		if h.Keyed() != tc.wantKeyed {
			t.Fatalf("%s: keyed=%v want %v", tc.name, h.Keyed(), tc.wantKeyed)
		}
	}
}
