package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/homeserve-auth/internal/persistence"
)

// HealthHandler responds to liveness and readiness probes. Readiness
// covers the two stores the auth flows depend on: the account database
// and the delegation registry.
type HealthHandler struct {
	serviceName string
	version     string
	checks      []dependency
}

type dependency struct {
	name string
	ping func(context.Context) error
}

// NewHealthHandler returns a new handler instance.
func NewHealthHandler(serviceName, version string, postgres *persistence.Postgres, redis *persistence.Redis) *HealthHandler {
	return &HealthHandler{
		serviceName: serviceName,
		version:     version,
		checks: []dependency{
			{name: "account_db", ping: postgres.Ping},
			{name: "delegation_registry", ping: redis.Ping},
		},
	}
}

// Live reports service liveness.
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "alive",
		"service": h.serviceName,
		"version": h.version,
	})
}

// Ready reports service readiness by pinging each dependency.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	details := fiber.Map{}
	ready := true
	for _, dep := range h.checks {
		if err := dep.ping(ctx); err != nil {
			details[dep.name] = err.Error()
			ready = false
		} else {
			details[dep.name] = "ok"
		}
	}

	if !ready {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": fiber.Map{
				"code":    "DEPENDENCY_UNAVAILABLE",
				"message": "one or more dependencies unavailable",
				"details": details,
			},
		})
	}

	return c.JSON(fiber.Map{
		"status":       "ready",
		"dependencies": details,
	})
}
