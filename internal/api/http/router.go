package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/homeserve-auth/internal/api/http/handlers"
	"github.com/spec-kit/homeserve-auth/internal/auth"
	"github.com/spec-kit/homeserve-auth/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Profile        *handlers.ProfileHandler
	SuperAdmin     *handlers.SuperAdminHandler
	AuthMiddleware *auth.Middleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	api := app.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/password/reset/request", cfg.Auth.RequestPasswordReset)
	authGroup.Post("/password/reset/confirm", cfg.Auth.ConfirmPasswordReset)
	authGroup.Post("/password/change", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated(), cfg.Profile.ChangePassword)

	userGroup := api.Group("/user", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated())
	userGroup.Get("/profile", cfg.Profile.Get)
	userGroup.Put("/profile", cfg.Profile.Update)

	superadmin := api.Group("/superadmin", cfg.AuthMiddleware.Handle)
	superadmin.Post("/impersonate", auth.RequireRole(domain.RoleSuperAdmin), cfg.SuperAdmin.Impersonate)
	// Exit is called with the delegated (non-super-admin) token; the
	// service validates the actor claim instead of the role guard.
	superadmin.Post("/exit-impersonation", auth.RequireAuthenticated(), cfg.SuperAdmin.ExitImpersonation)
}
