package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/mzizi-labs/darasa-api/internal/dto"
	"github.com/mzizi-labs/darasa-api/internal/service"
	"github.com/mzizi-labs/darasa-api/internal/utils"
)

// GradeScaleHandler manages grading scale endpoints.
type GradeScaleHandler struct {
	service service.GradeScaleService
	logger  zerolog.Logger
}

// NewGradeScaleHandler builds a grade scale handler instance.
func NewGradeScaleHandler(service service.GradeScaleService, logger zerolog.Logger) *GradeScaleHandler {
	return &GradeScaleHandler{
		service: service,
		logger:  logger.With().Str("component", "grade_scale_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *GradeScaleHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Post("", h.create)
	router.Get("/:id", h.get)
	router.Put("/:id", h.update)
	router.Post("/:id/activate", h.activate)
}

func (h *GradeScaleHandler) list(c *fiber.Ctx) error {
	institutionID, err := parseQueryUint(c, "institution_id")
	if err != nil || institutionID == nil {
		return utils.SendError(c, fiber.StatusBadRequest, "institution_id is required")
	}

	scales, err := h.service.List(c.Context(), *institutionID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "grade scales retrieved", scales)
}

func (h *GradeScaleHandler) create(c *fiber.Ctx) error {
	var payload dto.GradeScaleCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	scale, err := h.service.Create(c.Context(), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "grade scale created", scale)
}

func (h *GradeScaleHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	scale, err := h.service.Get(c.Context(), id)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "grade scale retrieved", scale)
}

func (h *GradeScaleHandler) update(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.GradeScaleUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	scale, err := h.service.Update(c.Context(), id, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "grade scale updated", scale)
}

func (h *GradeScaleHandler) activate(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	institutionID, err := parseQueryUint(c, "institution_id")
	if err != nil || institutionID == nil {
		return utils.SendError(c, fiber.StatusBadRequest, "institution_id is required")
	}

	scale, err := h.service.Activate(c.Context(), *institutionID, id)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "grade scale activated", scale)
}

func (h *GradeScaleHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrScaleNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "grade scale not found")
	case errors.Is(err, service.ErrScalePinned):
		return utils.SendError(c, fiber.StatusConflict, "grade scale is referenced by published results")
	case errors.Is(err, service.ErrOverlappingRange),
		errors.Is(err, service.ErrCoverageGap),
		errors.Is(err, service.ErrNonMonotonicPoints):
		return utils.SendError(c, fiber.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	default:
		h.logger.Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
