package controllers

import (
	"net/http"

	"go.uber.org/multierr"

	"github.com/angelmondragon/fleetparts-backend/api/responses"
	"github.com/angelmondragon/fleetparts-backend/pkg/config"
	"github.com/angelmondragon/fleetparts-backend/pkg/db"
	pkgerrors "github.com/angelmondragon/fleetparts-backend/pkg/errors"
	"github.com/angelmondragon/fleetparts-backend/pkg/logger"
)

// HealthLive reports process liveness without touching any dependency.
func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-FleetParts-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings every backing dependency and aggregates the failures.
func HealthReady(cfg *config.Config, logg *logger.Logger, deps map[string]db.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-FleetParts-Env", cfg.App.Env)

		var failed error
		checks := make(map[string]string, len(deps))
		for name, dep := range deps {
			if dep == nil {
				checks[name] = "skipped"
				continue
			}
			if err := dep.Ping(r.Context()); err != nil {
				checks[name] = "down"
				failed = multierr.Append(failed, err)
				continue
			}
			checks[name] = "ok"
		}

		if failed != nil {
			err := pkgerrors.Wrap(pkgerrors.CodeDependency, failed, "dependencies unavailable").
				WithDetails(checks)
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}
