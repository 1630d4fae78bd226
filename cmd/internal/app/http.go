package app

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	authapi "github.com/primo-luminous/wise-attitude-sub000/cmd/internal/auth/api"
	"github.com/primo-luminous/wise-attitude-sub000/cmd/internal/realtime"
)

// routes are the collaborators mounted on the server mux.
type routes struct {
	log      Logger
	cfg      Config
	registry *prometheus.Registry

	// ready reports nil when the persistence backend is reachable. Nil in memory mode.
	ready func(context.Context) error

	auth *authapi.Handler
	ws   *realtime.StatusGateway
}

func registerHTTP(mux *http.ServeMux, rt routes) {
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if rt.cfg.ReadinessRequireDB && rt.ready == nil {
			http.Error(w, "db not configured", http.StatusServiceUnavailable)
			return
		}

		if rt.ready != nil {
			if err := rt.ready(r.Context()); err != nil {
				http.Error(w, "db not ready", http.StatusServiceUnavailable)
				rt.log.Info("readyz.db.not_ready", "err", err)
				return
			}
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready\n"))
	})

	if rt.registry != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(rt.registry, promhttp.HandlerOpts{}))
	}

	if rt.auth != nil {
		rt.auth.Register(mux)
	}
	if rt.ws != nil {
		mux.Handle("/ws/session", rt.ws)
	}
}
