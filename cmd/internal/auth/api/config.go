package authapi

import (
	"net/http"
	"strings"
)

// Config controls the session cookie and request handling of the auth endpoints.
type Config struct {
	CookieName     string
	CookieDomain   string
	CookiePath     string
	CookieSecure   bool
	CookieSameSite http.SameSite

	// LoginPath is where unauthenticated HTML requests are redirected.
	LoginPath string

	TrustProxy   bool
	MaxBodyBytes int64
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		CookieName:     "wise_session",
		CookiePath:     "/",
		CookieSecure:   true,
		CookieSameSite: http.SameSiteLaxMode,
		LoginPath:      "/login",
		MaxBodyBytes:   1 << 20, // 1 MiB
	}
}

// withDefaults fills blank fields and applies cookie guardrails.
func (c Config) withDefaults() Config {
	def := DefaultConfig()

	c.CookieName = strings.TrimSpace(c.CookieName)
	if c.CookieName == "" {
		c.CookieName = def.CookieName
	}
	c.CookieDomain = strings.TrimSpace(c.CookieDomain)
	if strings.TrimSpace(c.CookiePath) == "" {
		c.CookiePath = def.CookiePath
	}
	if c.CookieSameSite == 0 {
		c.CookieSameSite = def.CookieSameSite
	}
	// Browsers drop SameSite=None cookies without Secure.
	if c.CookieSameSite == http.SameSiteNoneMode {
		c.CookieSecure = true
	}
	if !strings.HasPrefix(c.LoginPath, "/") {
		c.LoginPath = def.LoginPath
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = def.MaxBodyBytes
	}
	return c
}

// ParseSameSite maps a config string to an http.SameSite mode. Unknown values
// select Lax.
func ParseSameSite(v string) http.SameSite {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	case "default":
		return http.SameSiteDefaultMode
	default:
		return http.SameSiteLaxMode
	}
}
