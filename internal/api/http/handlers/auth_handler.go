package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/homeserve-auth/internal/api/dto"
	"github.com/spec-kit/homeserve-auth/internal/service"
)

// AuthHandler exposes registration, login, and password reset.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: authService}
}

// Register handles POST /api/auth/register.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.Phone == "" || req.Password == "" || req.FullName == "" {
		return fiber.NewError(http.StatusBadRequest, "phone, fullName, password required")
	}

	user, token, err := h.auth.Register(c.Context(), req.Phone, req.FullName, req.Email, req.Password, req.Address)
	if err != nil {
		return err
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"data": dto.NewSessionResponse(user, token),
	})
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.Phone == "" || req.Password == "" {
		return fiber.NewError(http.StatusBadRequest, "phone and password required")
	}

	user, token, err := h.auth.Login(c.Context(), req.Phone, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"data": dto.NewSessionResponse(user, token),
	})
}

// RequestPasswordReset handles POST /api/auth/password/reset/request.
func (h *AuthHandler) RequestPasswordReset(c *fiber.Ctx) error {
	var req dto.PasswordResetRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.Phone == "" {
		return fiber.NewError(http.StatusBadRequest, "phone required")
	}

	// The token goes out through the audit/notification channel, never
	// in the response; the response is identical whether or not the
	// account exists.
	if _, err := h.auth.RequestPasswordReset(c.Context(), req.Phone); err != nil {
		return c.JSON(fiber.Map{"data": fiber.Map{"status": "ok"}})
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"status": "ok"}})
}

// ConfirmPasswordReset handles POST /api/auth/password/reset/confirm.
func (h *AuthHandler) ConfirmPasswordReset(c *fiber.Ctx) error {
	var req dto.PasswordResetConfirm
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.Token == "" || req.NewPassword == "" {
		return fiber.NewError(http.StatusBadRequest, "token and newPassword required")
	}

	if err := h.auth.ConfirmPasswordReset(c.Context(), req.Token, req.NewPassword); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"status": "ok"}})
}
