package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	authapi "github.com/primo-luminous/wise-attitude-sub000/cmd/internal/auth/api"
	"github.com/primo-luminous/wise-attitude-sub000/cmd/internal/auth/session"
	"github.com/primo-luminous/wise-attitude-sub000/cmd/internal/realtime"
)

// Config contains all runtime configuration loaded from the environment and an optional .env file.
type Config struct {
	HTTPAddr  string `mapstructure:"WISE_HTTP_ADDR"`
	LogLevel  string `mapstructure:"WISE_LOG_LEVEL"`
	LogFormat string `mapstructure:"WISE_LOG_FORMAT"`

	ReadHeaderTimeout time.Duration `mapstructure:"WISE_HTTP_READ_HEADER_TIMEOUT"`
	ReadTimeout       time.Duration `mapstructure:"WISE_HTTP_READ_TIMEOUT"`
	WriteTimeout      time.Duration `mapstructure:"WISE_HTTP_WRITE_TIMEOUT"`
	IdleTimeout       time.Duration `mapstructure:"WISE_HTTP_IDLE_TIMEOUT"`
	MaxHeaderBytes    int           `mapstructure:"WISE_HTTP_MAX_HEADER_BYTES"`

	// DatabaseURL selects Postgres. When empty, SQLitePath selects SQLite; when both are
	// empty the server runs on in-memory stores.
	DatabaseURL string `mapstructure:"WISE_DATABASE_URL"`
	DBMaxConns  int32  `mapstructure:"WISE_DB_MAX_CONNS"`
	DBMinConns  int32  `mapstructure:"WISE_DB_MIN_CONNS"`
	SQLitePath  string `mapstructure:"WISE_SQLITE_PATH"`

	// If true, /readyz returns 503 unless a database is configured and reachable.
	ReadinessRequireDB bool `mapstructure:"WISE_READINESS_REQUIRE_DB"`

	// If true, WISE_TOKEN_HMAC_KEY must be set (>= 32 bytes).
	RequireTokenHMAC bool   `mapstructure:"WISE_REQUIRE_TOKEN_HMAC"`
	TokenHMACKey     string `mapstructure:"WISE_TOKEN_HMAC_KEY"`

	SessionShortTTL         time.Duration `mapstructure:"WISE_SESSION_SHORT_TTL"`
	SessionLongTTL          time.Duration `mapstructure:"WISE_SESSION_LONG_TTL"`
	SessionLongTermCutoff   time.Duration `mapstructure:"WISE_SESSION_LONG_TERM_CUTOFF"`
	SessionNearExpiry       time.Duration `mapstructure:"WISE_SESSION_NEAR_EXPIRY"`
	SessionActivityDebounce time.Duration `mapstructure:"WISE_SESSION_ACTIVITY_DEBOUNCE"`
	SessionTokenBytes       int           `mapstructure:"WISE_SESSION_TOKEN_BYTES"`
	SessionCleanupMode      string        `mapstructure:"WISE_SESSION_CLEANUP_MODE"`
	SessionCleanupInterval  time.Duration `mapstructure:"WISE_SESSION_CLEANUP_INTERVAL"`

	AuthCookieName     string `mapstructure:"WISE_AUTH_COOKIE_NAME"`
	AuthCookieDomain   string `mapstructure:"WISE_AUTH_COOKIE_DOMAIN"`
	AuthCookieSecure   bool   `mapstructure:"WISE_AUTH_COOKIE_SECURE"`
	AuthCookieSameSite string `mapstructure:"WISE_AUTH_COOKIE_SAMESITE"`
	AuthLoginPath      string `mapstructure:"WISE_AUTH_LOGIN_PATH"`
	AuthTrustProxy     bool   `mapstructure:"WISE_AUTH_TRUST_PROXY"`
	AuthMaxBodyBytes   int64  `mapstructure:"WISE_AUTH_MAX_BODY_BYTES"`

	WSStatusInterval time.Duration `mapstructure:"WISE_WS_STATUS_INTERVAL"`
	// WSAllowedOrigins is a comma-separated list of origins or hosts.
	WSAllowedOrigins string `mapstructure:"WISE_WS_ALLOWED_ORIGINS"`
	WSOriginRequired bool   `mapstructure:"WISE_WS_ORIGIN_REQUIRED"`

	// DevEmployeeEmail and DevEmployeePassword seed one active employee into the
	// in-memory directory. Ignored when Postgres is configured.
	DevEmployeeEmail    string `mapstructure:"WISE_DEV_EMPLOYEE_EMAIL"`
	DevEmployeePassword string `mapstructure:"WISE_DEV_EMPLOYEE_PASSWORD"`

	// OTLPEndpoint enables trace export when set (host:port, gRPC).
	OTLPEndpoint    string `mapstructure:"WISE_OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTelServiceName string `mapstructure:"WISE_OTEL_SERVICE_NAME"`
}

// LoadConfig reads .env (if present), then builds and validates Config from the environment.
// Env vars override .env.
func LoadConfig() (Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // missing .env is fine

	v.AutomaticEnv()

	sess := session.DefaultConfig()
	auth := authapi.DefaultConfig()

	v.SetDefault("WISE_HTTP_ADDR", "0.0.0.0:8080")
	v.SetDefault("WISE_LOG_LEVEL", "info")
	v.SetDefault("WISE_LOG_FORMAT", "json")

	v.SetDefault("WISE_HTTP_READ_HEADER_TIMEOUT", 5*time.Second)
	v.SetDefault("WISE_HTTP_READ_TIMEOUT", 15*time.Second)
	v.SetDefault("WISE_HTTP_WRITE_TIMEOUT", 15*time.Second)
	v.SetDefault("WISE_HTTP_IDLE_TIMEOUT", 60*time.Second)
	v.SetDefault("WISE_HTTP_MAX_HEADER_BYTES", 1<<20)

	v.SetDefault("WISE_DATABASE_URL", "")
	v.SetDefault("WISE_DB_MAX_CONNS", 10)
	v.SetDefault("WISE_DB_MIN_CONNS", 0)
	v.SetDefault("WISE_SQLITE_PATH", "")
	v.SetDefault("WISE_READINESS_REQUIRE_DB", false)

	v.SetDefault("WISE_REQUIRE_TOKEN_HMAC", false)
	v.SetDefault("WISE_TOKEN_HMAC_KEY", "")

	v.SetDefault("WISE_SESSION_SHORT_TTL", sess.ShortTTL)
	v.SetDefault("WISE_SESSION_LONG_TTL", sess.LongTTL)
	v.SetDefault("WISE_SESSION_LONG_TERM_CUTOFF", sess.LongTermCutoff)
	v.SetDefault("WISE_SESSION_NEAR_EXPIRY", sess.NearExpiryThreshold)
	v.SetDefault("WISE_SESSION_ACTIVITY_DEBOUNCE", sess.ActivityDebounce)
	v.SetDefault("WISE_SESSION_TOKEN_BYTES", sess.TokenBytes)
	v.SetDefault("WISE_SESSION_CLEANUP_MODE", string(sess.CleanupMode))
	v.SetDefault("WISE_SESSION_CLEANUP_INTERVAL", sess.CleanupInterval)

	v.SetDefault("WISE_AUTH_COOKIE_NAME", auth.CookieName)
	v.SetDefault("WISE_AUTH_COOKIE_DOMAIN", "")
	v.SetDefault("WISE_AUTH_COOKIE_SECURE", auth.CookieSecure)
	v.SetDefault("WISE_AUTH_COOKIE_SAMESITE", "lax")
	v.SetDefault("WISE_AUTH_LOGIN_PATH", auth.LoginPath)
	v.SetDefault("WISE_AUTH_TRUST_PROXY", false)
	v.SetDefault("WISE_AUTH_MAX_BODY_BYTES", auth.MaxBodyBytes)

	v.SetDefault("WISE_WS_STATUS_INTERVAL", 60*time.Second)
	v.SetDefault("WISE_WS_ALLOWED_ORIGINS", "")
	v.SetDefault("WISE_WS_ORIGIN_REQUIRED", false)

	v.SetDefault("WISE_DEV_EMPLOYEE_EMAIL", "")
	v.SetDefault("WISE_DEV_EMPLOYEE_PASSWORD", "")

	v.SetDefault("WISE_OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("WISE_OTEL_SERVICE_NAME", "wise-attitude")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %v", session.ErrConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the fields not covered by the component configs.
func (c Config) Validate() error {
	if strings.TrimSpace(c.HTTPAddr) == "" {
		return fmt.Errorf("%w: WISE_HTTP_ADDR must be set", session.ErrConfig)
	}
	switch strings.ToLower(strings.TrimSpace(c.LogFormat)) {
	case "", "json", "text":
	default:
		return fmt.Errorf("%w: WISE_LOG_FORMAT must be json or text", session.ErrConfig)
	}
	if c.DBMinConns < 0 || (c.DBMaxConns > 0 && c.DBMinConns > c.DBMaxConns) {
		return fmt.Errorf("%w: WISE_DB_MIN_CONNS must be in [0, WISE_DB_MAX_CONNS]", session.ErrConfig)
	}
	if err := c.Session().Validate(); err != nil {
		return err
	}
	return nil
}

// Session returns the lifecycle configuration.
func (c Config) Session() session.Config {
	return session.Config{
		ShortTTL:            c.SessionShortTTL,
		LongTTL:             c.SessionLongTTL,
		LongTermCutoff:      c.SessionLongTermCutoff,
		NearExpiryThreshold: c.SessionNearExpiry,
		ActivityDebounce:    c.SessionActivityDebounce,
		TokenBytes:          c.SessionTokenBytes,
		CleanupMode:         session.CleanupMode(strings.ToLower(strings.TrimSpace(c.SessionCleanupMode))),
		CleanupInterval:     c.SessionCleanupInterval,
	}
}

// Auth returns the cookie and request settings of the auth endpoints.
func (c Config) Auth() authapi.Config {
	return authapi.Config{
		CookieName:     c.AuthCookieName,
		CookieDomain:   c.AuthCookieDomain,
		CookiePath:     "/",
		CookieSecure:   c.AuthCookieSecure,
		CookieSameSite: authapi.ParseSameSite(c.AuthCookieSameSite),
		LoginPath:      c.AuthLoginPath,
		TrustProxy:     c.AuthTrustProxy,
		MaxBodyBytes:   c.AuthMaxBodyBytes,
	}
}

// Gateway returns the WebSocket status channel settings.
func (c Config) Gateway() realtime.GatewayConfig {
	return realtime.GatewayConfig{
		AllowedOrigins: splitList(c.WSAllowedOrigins),
		OriginRequired: c.WSOriginRequired,
		StatusInterval: c.WSStatusInterval,
	}
}

// DatabaseMode names the persistence backend selected by the config.
func (c Config) DatabaseMode() string {
	switch {
	case strings.TrimSpace(c.DatabaseURL) != "":
		return "postgres"
	case strings.TrimSpace(c.SQLitePath) != "":
		return "sqlite"
	default:
		return "memory"
	}
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
