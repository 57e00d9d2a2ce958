package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/homeserve-auth/internal/api/dto"
	"github.com/spec-kit/homeserve-auth/internal/auth"
	"github.com/spec-kit/homeserve-auth/internal/domain"
	"github.com/spec-kit/homeserve-auth/internal/service"
)

// ProfileHandler exposes the authenticated user's own record.
type ProfileHandler struct {
	auth *service.AuthService
}

// NewProfileHandler constructs handler.
func NewProfileHandler(authService *service.AuthService) *ProfileHandler {
	return &ProfileHandler{auth: authService}
}

// Get handles GET /api/user/profile. This doubles as the token
// verification endpoint: a valid bearer token yields the canonical
// identity, anything else a 401 from the middleware.
func (h *ProfileHandler) Get(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
	}
	return c.JSON(fiber.Map{"data": principal.User.UserIdentity})
}

// Update handles PUT /api/user/profile.
func (h *ProfileHandler) Update(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
	}

	var req dto.ProfileUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.Phone == "" || req.FullName == "" {
		return fiber.NewError(http.StatusBadRequest, "phone and fullName required")
	}

	updated, err := h.auth.UpdateProfile(c.Context(), principal.User.ID, domain.UserIdentity{
		Phone:    req.Phone,
		FullName: req.FullName,
		Email:    req.Email,
		Address:  req.Address,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": updated.UserIdentity})
}

// ChangePassword handles POST /api/auth/password/change.
func (h *ProfileHandler) ChangePassword(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
	}

	var req dto.PasswordChangeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		return fiber.NewError(http.StatusBadRequest, "currentPassword and newPassword required")
	}

	if err := h.auth.ChangePassword(c.Context(), principal.User.ID, req.CurrentPassword, req.NewPassword); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"status": "ok"}})
}
