package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/rmoreno-dev/mesa-backend/api/responses"
	"github.com/rmoreno-dev/mesa-backend/pkg/config"
	pkgerrors "github.com/rmoreno-dev/mesa-backend/pkg/errors"
	"github.com/rmoreno-dev/mesa-backend/pkg/logger"
)

const readyProbeTimeout = 2 * time.Second

// Pinger is the health probe surface a backing dependency must expose.
type Pinger interface {
	Ping(context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Mesa-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports readiness only when every backing dependency answers.
func HealthReady(cfg *config.Config, logg *logger.Logger, deps map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Mesa-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readyProbeTimeout)
		defer cancel()

		checks := make(map[string]string, len(deps))
		healthy := true
		for name, dep := range deps {
			if dep == nil {
				continue
			}
			if err := dep.Ping(ctx); err != nil {
				healthy = false
				checks[name] = "down"
				if logg != nil {
					logCtx := logg.WithField(r.Context(), "dependency", name)
					logg.Error(logCtx, "readiness probe failed", err)
				}
				continue
			}
			checks[name] = "up"
		}

		if !healthy {
			err := pkgerrors.New(pkgerrors.CodeDependency, "dependency unavailable")
			responses.WriteError(r.Context(), logg, w, err.WithDetails(checks))
			return
		}

		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}

// ReadyDeps assembles the readiness probe set from optional dependencies.
func ReadyDeps(db, cache, broker Pinger) map[string]Pinger {
	deps := make(map[string]Pinger, 3)
	if db != nil {
		deps["postgres"] = db
	}
	if cache != nil {
		deps["redis"] = cache
	}
	if broker != nil {
		deps["pubsub"] = broker
	}
	return deps
}
