// Package app wires the server runtime: config, logging, tracing, persistence,
// HTTP routes and the session status gateway.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/primo-luminous/wise-attitude-sub000/cmd/identity"
	authapi "github.com/primo-luminous/wise-attitude-sub000/cmd/internal/auth/api"
	"github.com/primo-luminous/wise-attitude-sub000/cmd/internal/auth/session"
	"github.com/primo-luminous/wise-attitude-sub000/cmd/internal/realtime"
)

// App is the server runtime: it owns the HTTP server, the session service and
// the persistence handles behind them.
type App struct {
	cfg Config
	log Logger

	sessions *session.Service
	handler  http.Handler

	// closers release persistence handles in reverse order.
	closers []func()
}

// backend is the persistence selected by the config.
type backend struct {
	sessions  session.Store
	employees identity.Store
	audit     authapi.AuditSink
	ready     func(context.Context) error
	closers   []func()
}

// New constructs a fully wired App instance from config and logger.
func New(ctx context.Context, cfg Config, log Logger) (*App, error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel, cfg.LogFormat)
	}

	tokenHasher, err := ValidateSecurityConfig(cfg)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	passwords := identity.NewPasswordHasher(identity.DefaultArgon2idParams())

	be, err := openBackend(ctx, cfg, log, passwords)
	if err != nil {
		return nil, err
	}
	a := &App{cfg: cfg, log: log, closers: be.closers}

	if err := seedDevEmployee(ctx, cfg, log, be.employees); err != nil {
		a.Close()
		return nil, err
	}

	svc, err := session.NewService(cfg.Session(), session.Deps{
		Store:     be.sessions,
		Directory: newEmployeeDirectory(be.employees),
		Hasher:    tokenHasher,
		Log:       log,
		Metrics:   session.NewMetrics(registry),
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	a.sessions = svc

	authHandler, err := authapi.NewHandler(log, cfg.Auth(), svc,
		identity.NewAuthenticator(be.employees, passwords),
		authapi.WithAuditSink(be.audit),
	)
	if err != nil {
		a.Close()
		return nil, err
	}

	ws, err := realtime.NewStatusGateway(log, svc, authHandler.SessionToken, cfg.Gateway())
	if err != nil {
		a.Close()
		return nil, err
	}

	mux := http.NewServeMux()
	registerHTTP(mux, routes{
		log:      log,
		cfg:      cfg,
		registry: registry,
		ready:    be.ready,
		auth:     authHandler,
		ws:       ws,
	})
	a.handler = WithRequestLogging(WithSecurityHeaders(mux), log)

	log.Info("app.ready",
		"db_mode", cfg.DatabaseMode(),
		"cleanup_mode", string(cfg.Session().CleanupMode),
		"token_hmac", tokenHasher.Keyed(),
	)
	return a, nil
}

// Handler returns the fully wrapped HTTP handler.
func (a *App) Handler() http.Handler { return a.handler }

// Sessions returns the session service.
func (a *App) Sessions() *session.Service { return a.sessions }

// Run starts the HTTP server (and the background cleaner when configured) and
// blocks until ctx is cancelled or a fatal server error occurs.
func (a *App) Run(ctx context.Context) error {
	defer a.Close()

	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           a.handler,
		ReadHeaderTimeout: nonZeroDuration(a.cfg.ReadHeaderTimeout, 5*time.Second),
		ReadTimeout:       nonZeroDuration(a.cfg.ReadTimeout, 15*time.Second),
		WriteTimeout:      nonZeroDuration(a.cfg.WriteTimeout, 15*time.Second),
		IdleTimeout:       nonZeroDuration(a.cfg.IdleTimeout, 60*time.Second),
		MaxHeaderBytes:    nonZeroInt(a.cfg.MaxHeaderBytes, 1<<20),
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.log.Info("server.start", "addr", a.cfg.HTTPAddr, "db_mode", a.cfg.DatabaseMode())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("server.fail", "err", err)
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		a.log.Info("server.stop", "reason", "context_done")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.log.Error("server.shutdown.fail", "err", err)
			return err
		}
		return nil
	})

	if sc := a.cfg.Session(); sc.CleanupMode == session.CleanupBackground {
		g.Go(func() error {
			return a.sessions.Cleaner().Run(gctx, sc.CleanupInterval, nil)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	a.log.Info("server.stopped")
	return nil
}

// Close releases persistence handles. Safe to call more than once.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func openBackend(ctx context.Context, cfg Config, log Logger, passwords identity.PasswordHasher) (backend, error) {
	switch cfg.DatabaseMode() {
	case "postgres":
		pool, err := NewDBPool(ctx, cfg)
		if err != nil {
			return backend{}, fmt.Errorf("postgres: %w", err)
		}
		employees, err := identity.NewPostgresStore(pool, identity.WithPasswordHasher(passwords))
		if err != nil {
			pool.Close()
			return backend{}, err
		}
		log.Info("db.enabled.postgres_store")
		return backend{
			sessions:  session.NewPostgresStore(pool),
			employees: employees,
			audit:     authapi.NewPostgresAuditSink(pool, log),
			ready:     poolReady(pool),
			closers:   []func(){pool.Close},
		}, nil

	case "sqlite":
		st, err := session.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return backend{}, err
		}
		log.Info("db.enabled.sqlite_store", "path", cfg.SQLitePath)
		return backend{
			sessions:  st,
			employees: identity.NewMemoryStore(passwords),
			audit:     authapi.NoopAuditSink{},
			ready: func(ctx context.Context) error {
				pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
				defer cancel()
				return st.Ping(pctx)
			},
			closers: []func(){func() {
				if err := st.Close(); err != nil {
					log.Error("sqlite.close.fail", "err", err)
				}
			}},
		}, nil

	default:
		log.Info("db.disabled.inmemory_store")
		return backend{
			sessions:  session.NewMemoryStore(),
			employees: identity.NewMemoryStore(passwords),
			audit:     authapi.NoopAuditSink{},
		}, nil
	}
}

func poolReady(pool *pgxpool.Pool) func(context.Context) error {
	return func(ctx context.Context) error {
		return PingDB(ctx, pool, 2*time.Second)
	}
}

// seedDevEmployee adds one active employee to an in-memory directory so a
// database-less server can be signed into.
func seedDevEmployee(ctx context.Context, cfg Config, log Logger, store identity.Store) error {
	if cfg.DatabaseMode() == "postgres" || cfg.DevEmployeeEmail == "" || cfg.DevEmployeePassword == "" {
		return nil
	}
	emp, err := store.CreateEmployee(ctx, identity.CreateEmployeeInput{
		Code:      "DEV-0001",
		Email:     cfg.DevEmployeeEmail,
		FirstName: "Dev",
		LastName:  "Employee",
		Status:    identity.StatusActive,
		Password:  cfg.DevEmployeePassword,
		Now:       time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("seed dev employee: %w", err)
	}
	log.Warn("identity.dev_employee.seeded", "employee_id", emp.ID, "email", emp.Email)
	return nil
}

func nonZeroDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

func nonZeroInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
