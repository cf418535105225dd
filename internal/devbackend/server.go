package devbackend

import (
	"bytes"
	"errors"
	"io"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/faceauth-service/internal/auth"
	"github.com/spec-kit/faceauth-service/internal/domain"
	"github.com/spec-kit/faceauth-service/internal/observability"
	apperrors "github.com/spec-kit/faceauth-service/pkg/util/errorutil"
)

const (
	matchConfidence   = 96.0
	noMatchConfidence = 14.0
	maxProbeBytes     = 8 << 20
)

// Server serves the backend endpoints the agent calls.
type Server struct {
	directory *Directory
	tokens    *auth.TokenManager
	authMW    *auth.AuthMiddleware
	logger    *zap.Logger
}

func NewServer(directory *Directory, tokens *auth.TokenManager, logger *zap.Logger) *Server {
	return &Server{
		directory: directory,
		tokens:    tokens,
		authMW:    auth.NewAuthMiddleware(tokens),
		logger:    observability.OrNop(logger).Named("dev-backend"),
	}
}

// App returns a standalone fiber app with every route registered.
func (s *Server) App() *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true, BodyLimit: maxProbeBytes})
	s.Register(app)
	return app
}

// Register mounts the routes on router.
func (s *Server) Register(router fiber.Router) {
	router.Use(s.renderErrors)

	router.Post("/:role/face-login", s.faceLogin)
	router.Post("/face/compare-faces", s.compareFaces)

	router.Get("/employees", s.authMW.Handle, auth.RequireRole(), s.list(domain.RoleTagEmployee))
	router.Get("/managers", s.authMW.Handle, auth.RequireRole(), s.list(domain.RoleTagManager))
	router.Get("/admins", s.authMW.Handle, auth.RequireRole(domain.RoleAdmin, domain.RoleManager), s.list(domain.RoleTagAdmin))
}

// renderErrors answers failures in the backend's {"success":false,"error"} shape.
func (s *Server) renderErrors(c *fiber.Ctx) error {
	err := c.Next()
	if err == nil {
		return nil
	}
	status := http.StatusInternalServerError
	message := http.StatusText(status)
	var fe *fiber.Error
	var de *apperrors.DomainError
	switch {
	case errors.As(err, &de):
		status, message = de.HTTPStatus, de.Message
	case errors.As(err, &fe):
		status, message = fe.Code, fe.Message
	default:
		s.logger.Error("dev backend request failed", zap.Error(err))
	}
	return c.Status(status).JSON(fiber.Map{"success": false, "error": message})
}

type faceLoginBody struct {
	IdentityID   string `json:"identityId"`
	Name         string `json:"name"`
	FaceVerified bool   `json:"faceVerified"`
}

func (s *Server) faceLogin(c *fiber.Ctx) error {
	role := domain.Role(c.Params("role"))
	if !role.Valid() {
		return fiber.NewError(http.StatusNotFound, "unknown role")
	}
	var body faceLoginBody
	if err := c.BodyParser(&body); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid body")
	}
	if !body.FaceVerified {
		return fiber.NewError(http.StatusBadRequest, "face verification required")
	}

	tag := domain.RoleTag(role)
	person, ok := s.directory.Find(tag, body.IdentityID)
	if !ok {
		return fiber.NewError(http.StatusNotFound, string(role)+" not found")
	}
	token, _, err := s.tokens.GenerateToken(person.ID, person.Name, role)
	if err != nil {
		return err
	}
	s.logger.Info("face login issued", zap.String("role", string(role)), zap.String("subject_id", person.ID))

	// Managers get the token under data, admins at the top level.
	if role == domain.RoleManager {
		return c.JSON(fiber.Map{"success": true, "data": fiber.Map{"token": token}})
	}
	return c.JSON(fiber.Map{"success": true, "token": token})
}

func (s *Server) compareFaces(c *fiber.Ctx) error {
	header, err := c.FormFile("image")
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "image file required")
	}
	referenceURL := c.FormValue("referenceImageUrl")
	if referenceURL == "" {
		return fiber.NewError(http.StatusBadRequest, "referenceImageUrl required")
	}
	person, ok := s.directory.ByImage(referenceURL)
	if !ok {
		return fiber.NewError(http.StatusNotFound, "reference image unreachable")
	}

	f, err := header.Open()
	if err != nil {
		return err
	}
	defer f.Close()
	probe, err := io.ReadAll(io.LimitReader(f, maxProbeBytes))
	if err != nil {
		return err
	}

	match := person.Faceprint != "" && bytes.Contains(probe, []byte(person.Faceprint))
	confidence := noMatchConfidence
	if match {
		confidence = matchConfidence
	}
	return c.JSON(fiber.Map{"match": match, "confidence": confidence})
}

type listedPerson struct {
	ID           string `json:"id,omitempty"`
	DocumentID   string `json:"_id,omitempty"`
	Name         string `json:"name"`
	FaceImageURL string `json:"faceImageUrl,omitempty"`
	ProfileImage string `json:"profileImage,omitempty"`
}

func (s *Server) list(tag domain.RoleTag) fiber.Handler {
	return func(c *fiber.Ctx) error {
		people := s.directory.List(tag)
		items := make([]listedPerson, 0, len(people))
		for _, p := range people {
			// Admin records come from the older document store.
			if tag == domain.RoleTagAdmin {
				items = append(items, listedPerson{DocumentID: p.ID, Name: p.Name, ProfileImage: p.FaceImageURL})
				continue
			}
			items = append(items, listedPerson{ID: p.ID, Name: p.Name, FaceImageURL: p.FaceImageURL})
		}
		return c.JSON(fiber.Map{"success": true, "data": items})
	}
}
