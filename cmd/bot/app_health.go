package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	dbMonitoring "github.com/Jacobbrewer1/supportbot/pkg/dataaccess/monitoring"
	"github.com/alexliesenfeld/health"
)

func (a *App) healthCheck() Controller {
	backend := a.store.Primary().Name()

	checker := health.NewChecker(
		// Set a TTL of 1 second for the results of the checks.
		health.WithCacheDuration(1*time.Second),

		// Set a timeout of 2 seconds for the checks.
		health.WithTimeout(2*time.Second),

		// Monitor the health of the state store.
		health.WithCheck(health.Check{
			Name: "State_Store",
			Check: func(ctx context.Context) error {
				done := dbMonitoring.Observe("health_check", "ping", backend, "-")
				defer done()

				if err := a.store.Ping(ctx); err != nil {
					return fmt.Errorf("failed to ping %s state store: %w", backend, err)
				}
				return nil
			},
			Timeout: 2 * time.Second,
			StatusListener: func(ctx context.Context, name string, state health.CheckState) {
				a.Log().Info("State store health check status changed",
					slog.String("name", name),
					slog.String("state", string(state.Status)),
				)
			},
		}),

		// Monitor the health of the Discord API.
		health.WithPeriodicCheck(15*time.Second, 5*time.Second, health.Check{
			Name: "Discord_API",
			Check: func(ctx context.Context) error {
				if _, err := a.Session().GatewayBot(); err != nil {
					return fmt.Errorf("failed to ping Discord API: %w", err)
				}
				return nil
			},
			Timeout: 3 * time.Second,
			StatusListener: func(ctx context.Context, name string, state health.CheckState) {
				a.Log().Info("Discord API health check status changed",
					slog.String("name", name),
					slog.String("state", string(state.Status)),
				)
			},
		}),
	)

	return Controller(health.NewHandler(checker))
}
