package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/mercadia/storefront-backend/api/responses"
	"github.com/mercadia/storefront-backend/pkg/config"
	pkgerrors "github.com/mercadia/storefront-backend/pkg/errors"
	"github.com/mercadia/storefront-backend/pkg/logger"
)

const readinessTimeout = 5 * time.Second

// Pinger is the health-check surface backing services expose.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Storefront-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings every backing service the API depends on. Optional
// dependencies may be nil and are skipped.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbP, redisP, pubsubP Pinger) http.HandlerFunc {
	deps := []struct {
		name string
		ping Pinger
	}{
		{"database", dbP},
		{"redis", redisP},
		{"pubsub", pubsubP},
	}
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Storefront-Env", cfg.App.Env)
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		status := map[string]string{}
		for _, dep := range deps {
			if dep.ping == nil {
				continue
			}
			if err := dep.ping.Ping(ctx); err != nil {
				status[dep.name] = "down"
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.Wrap(pkgerrors.CodeDependency, err, dep.name+" unavailable").WithDetails(status))
				return
			}
			status[dep.name] = "up"
		}
		status["status"] = "ready"
		responses.WriteSuccess(w, status)
	}
}
