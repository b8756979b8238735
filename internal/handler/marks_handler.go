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

// MarksHandler ingests raw component marks.
type MarksHandler struct {
	service service.SubjectResultService
	logger  zerolog.Logger
}

// NewMarksHandler builds a marks handler instance.
func NewMarksHandler(service service.SubjectResultService, logger zerolog.Logger) *MarksHandler {
	return &MarksHandler{
		service: service,
		logger:  logger.With().Str("component", "marks_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *MarksHandler) Register(router fiber.Router) {
	router.Post("", h.record)
	router.Post("/bulk", h.recordBulk)
}

func (h *MarksHandler) record(c *fiber.Ctx) error {
	institutionID, err := parseQueryUint(c, "institution_id")
	if err != nil || institutionID == nil {
		return utils.SendError(c, fiber.StatusBadRequest, "institution_id is required")
	}

	var payload dto.SubjectMarksRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	result, err := h.service.RecordMarks(c.Context(), *institutionID, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "marks recorded", result)
}

// recordBulk ingests a batch. Per-record failures are reported inside the
// response body; only a malformed envelope fails the whole request.
func (h *MarksHandler) recordBulk(c *fiber.Ctx) error {
	var payload dto.BulkMarksRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	response, err := h.service.RecordBulk(c.Context(), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "marks batch processed", response)
}

func (h *MarksHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrSubjectNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "subject not found")
	case errors.Is(err, service.ErrInvalidScore),
		errors.Is(err, service.ErrUnknownComponent),
		errors.Is(err, service.ErrMissingMarks):
		return utils.SendError(c, fiber.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, service.ErrNoActiveScale):
		return utils.SendError(c, fiber.StatusConflict, "institution has no active grade scale")
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	default:
		h.logger.Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
