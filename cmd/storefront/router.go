package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmehra2102/sofa-storefront/pkg/buildinfo"
	"github.com/dmehra2102/sofa-storefront/pkg/httpx"
	"github.com/dmehra2102/sofa-storefront/pkg/logging"
	"github.com/dmehra2102/sofa-storefront/pkg/metrics"
)

type routable interface {
	Routes(r chi.Router)
}

// checker reports whether a dependency is reachable.
type checker func(ctx context.Context) error

func newRouter(log *slog.Logger, m *metrics.Metrics, info buildinfo.Info, checks map[string]checker, handlers ...routable) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.Middleware(log))
	if m != nil {
		r.Use(m.Middleware)
	}
	r.Use(middleware.Recoverer)

	r.Get("/healthz", healthz(checks))
	r.Get("/version", buildinfo.Handler(info))
	if m != nil {
		r.Method(http.MethodGet, "/metrics", m.Handler())
	}
	for _, h := range handlers {
		h.Routes(r)
	}
	return r
}

func healthz(checks map[string]checker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		body := map[string]string{}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				status = http.StatusServiceUnavailable
				body[name] = err.Error()
				continue
			}
			body[name] = "ok"
		}
		httpx.WriteJSON(w, status, body)
	}
}
