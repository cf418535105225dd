package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/faceauth-service/internal/api/dto"
	"github.com/spec-kit/faceauth-service/internal/auth"
	"github.com/spec-kit/faceauth-service/internal/session"
	apperrors "github.com/spec-kit/faceauth-service/pkg/util/errorutil"
)

// SessionHandler exposes the device's credential envelopes.
type SessionHandler struct {
	sessions *session.Service
}

// NewSessionHandler constructs handler.
func NewSessionHandler(sessions *session.Service) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// Login handles POST /session/login.
func (h *SessionHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := h.sessions.Login(c.UserContext(), req.Role, req.Token, req.Profile); err != nil {
		return err
	}
	return h.status(c, fiber.StatusCreated)
}

// FaceLogin handles POST /session/face-login.
func (h *SessionHandler) FaceLogin(c *fiber.Ctx) error {
	var req dto.FaceLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if _, err := h.sessions.LoginWithFace(c.UserContext(), req.Role, req.Profile); err != nil {
		return err
	}
	return h.status(c, fiber.StatusCreated)
}

// Status handles GET /session/status.
func (h *SessionHandler) Status(c *fiber.Ctx) error {
	return h.status(c, fiber.StatusOK)
}

// Resolve handles POST /session/resolve.
func (h *SessionHandler) Resolve(c *fiber.Ctx) error {
	var req dto.ResolveRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Scope.Roles() == nil {
		return apperrors.NewValidationError("scope must be admin-only, manager-only or any", map[string]any{"scope": req.Scope})
	}
	token, err := h.sessions.Resolve(c.UserContext(), req.Scope)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.ResolveResponse{Token: token, Kind: auth.DecodeToken(token).Kind}})
}

// Logout handles POST /session/logout.
func (h *SessionHandler) Logout(c *fiber.Ctx) error {
	if err := h.sessions.Logout(c.UserContext()); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *SessionHandler) status(c *fiber.Ctx, code int) error {
	roles, err := h.sessions.Status(c.UserContext())
	if err != nil {
		return err
	}
	return c.Status(code).JSON(fiber.Map{"data": roles})
}
