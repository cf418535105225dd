package handlers

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/faceauth-service/internal/api/dto"
	"github.com/spec-kit/faceauth-service/internal/domain"
	"github.com/spec-kit/faceauth-service/internal/facematch"
	"github.com/spec-kit/faceauth-service/internal/session"
	apperrors "github.com/spec-kit/faceauth-service/pkg/util/errorutil"
)

var defaultRosterTags = []domain.RoleTag{domain.RoleTagEmployee, domain.RoleTagManager, domain.RoleTagAdmin}

// FaceDependencies bundles what FaceHandler needs.
type FaceDependencies struct {
	Flow      *facematch.Flow
	Resolver  *session.Resolver
	Directory facematch.RosterSource
	UploadDir string
	Logger    *zap.Logger
}

// FaceHandler identifies a captured probe against the backend roster.
type FaceHandler struct {
	flow      *facematch.Flow
	resolver  *session.Resolver
	directory facematch.RosterSource
	uploadDir string
	logger    *zap.Logger
}

// NewFaceHandler constructs handler.
func NewFaceHandler(deps FaceDependencies) *FaceHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FaceHandler{
		flow:      deps.Flow,
		resolver:  deps.Resolver,
		directory: deps.Directory,
		uploadDir: deps.UploadDir,
		logger:    logger,
	}
}

// Identify handles POST /face/identify.
func (h *FaceHandler) Identify(c *fiber.Ctx) error {
	header, err := c.FormFile("probe")
	if err != nil {
		return apperrors.NewValidationError("probe image required", nil)
	}
	tags, err := parseRoleTags(c.FormValue("roles"))
	if err != nil {
		return err
	}
	var opts []facematch.MatchOption
	if raw := c.FormValue("threshold"); raw != "" {
		threshold, err := strconv.ParseFloat(raw, 64)
		if err != nil || threshold <= 0 || threshold > 100 {
			return apperrors.NewValidationError("threshold must be within (0, 100]", map[string]any{"threshold": raw})
		}
		opts = append(opts, facematch.WithThreshold(threshold))
	}

	// Claim the capture before any backend traffic; a busy flow answers 409.
	if err := h.flow.BeginCapture(); err != nil {
		return err
	}

	probePath := filepath.Join(h.uploadDir, "probe-"+uuid.NewString()+filepath.Ext(header.Filename))
	if err := c.SaveFile(header, probePath); err != nil {
		h.flow.CancelCapture()
		return apperrors.NewInternalError(err)
	}
	defer func() {
		if err := os.Remove(probePath); err != nil {
			h.logger.Warn("remove probe image", zap.String("path", probePath), zap.Error(err))
		}
	}()

	ctx := c.UserContext()
	roster, err := facematch.LoadRoster(ctx, h.resolver, h.directory, domain.ScopeAny, tags...)
	if err != nil {
		h.flow.CancelCapture()
		return err
	}
	result, err := h.flow.Identify(ctx, probePath, roster, opts...)
	if err != nil {
		return err
	}

	resp := dto.IdentifyResponse{MatchResult: result}
	if result.Matched {
		if role, ok := result.Candidate.RoleTag.EnvelopeRole(); ok {
			resp.LoggedInAs = role
		}
	}
	return c.JSON(fiber.Map{"data": resp})
}

// parseRoleTags reads a comma separated priority list; empty means every tag.
func parseRoleTags(raw string) ([]domain.RoleTag, error) {
	if strings.TrimSpace(raw) == "" {
		return defaultRosterTags, nil
	}
	var tags []domain.RoleTag
	for _, part := range strings.Split(raw, ",") {
		tag := domain.RoleTag(strings.ToLower(strings.TrimSpace(part)))
		if !tag.Valid() {
			return nil, apperrors.NewValidationError("unknown role tag", map[string]any{"role": part})
		}
		tags = append(tags, tag)
	}
	return tags, nil
}
