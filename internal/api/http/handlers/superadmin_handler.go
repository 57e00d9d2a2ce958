package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/homeserve-auth/internal/api/dto"
	"github.com/spec-kit/homeserve-auth/internal/auth"
	"github.com/spec-kit/homeserve-auth/internal/service"
)

// SuperAdminHandler exposes impersonation endpoints.
type SuperAdminHandler struct {
	impersonation *service.ImpersonationService
}

// NewSuperAdminHandler constructs handler.
func NewSuperAdminHandler(impersonationService *service.ImpersonationService) *SuperAdminHandler {
	return &SuperAdminHandler{impersonation: impersonationService}
}

// Impersonate handles POST /api/superadmin/impersonate.
func (h *SuperAdminHandler) Impersonate(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
	}

	var req dto.ImpersonateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.TargetUserID == "" {
		return fiber.NewError(http.StatusBadRequest, "targetUserId required")
	}
	if req.OriginalUserID != "" && req.OriginalUserID != principal.User.ID {
		return fiber.NewError(http.StatusForbidden, "originalUserId does not match caller")
	}

	target, token, err := h.impersonation.Impersonate(c.Context(), principal, req.TargetUserID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewSessionResponse(target, token)})
}

// ExitImpersonation handles POST /api/superadmin/exit-impersonation.
// The caller presents the delegated token, not a super-admin one, so
// this route sits behind plain authentication; the service checks the
// actor claim.
func (h *SuperAdminHandler) ExitImpersonation(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
	}

	var req dto.ExitImpersonationRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.OriginalUserID == "" {
		return fiber.NewError(http.StatusBadRequest, "originalUserId required")
	}

	original, token, err := h.impersonation.ExitImpersonation(c.Context(), principal, req.OriginalUserID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewSessionResponse(original, token)})
}
