package controllers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/angelmondragon/packdrop-engine/api/responses"
	"github.com/angelmondragon/packdrop-engine/pkg/config"
	pkgerrors "github.com/angelmondragon/packdrop-engine/pkg/errors"
	"github.com/angelmondragon/packdrop-engine/pkg/logger"
)

const readyCheckTimeout = 3 * time.Second

// Pinger is a dependency the worker needs before it is ready.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-PackDrop-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings every registered dependency in name order and reports the
// first failure as 503.
func HealthReady(cfg *config.Config, logg *logger.Logger, checks map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-PackDrop-Env", cfg.App.Env)
		ctx, cancel := context.WithTimeout(r.Context(), readyCheckTimeout)
		defer cancel()

		names := make([]string, 0, len(checks))
		for name, check := range checks {
			if check != nil {
				names = append(names, name)
			}
		}
		sort.Strings(names)

		status := map[string]string{}
		for _, name := range names {
			check := checks[name]
			if err := check.Ping(ctx); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, name+" unavailable").
					WithDetails(map[string]string{"dependency": name}))
				return
			}
			status[name] = "ok"
		}
		status["status"] = "ready"
		responses.WriteSuccess(w, status)
	}
}
