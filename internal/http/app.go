// Package http holds the pieces shared by the router and the modules that
// mount routes on it.
package http

import (
	"context"

	"brokerage_intake/internal/events"
	"brokerage_intake/platform/config"
	"brokerage_intake/platform/logger"
)

// RouterConfig is the slice of configuration the router reads.
type RouterConfig interface {
	config.HTTPConfig
	config.JWTConfig
}

// HealthChecker backs GET /api/health.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// App is assembled by cmd/api and handed to router.New.
type App struct {
	Config   RouterConfig
	Logger   *logger.Logger
	Health   HealthChecker
	EventBus events.Bus
	// Modules mount their routes in order.
	Modules []Module
}
