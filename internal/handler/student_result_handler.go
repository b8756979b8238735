package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/mzizi-labs/darasa-api/internal/service"
	"github.com/mzizi-labs/darasa-api/internal/utils"
)

// StudentResultHandler serves per-student result views.
type StudentResultHandler struct {
	service service.ResultService
	logger  zerolog.Logger
}

// NewStudentResultHandler builds a student result handler instance.
func NewStudentResultHandler(service service.ResultService, logger zerolog.Logger) *StudentResultHandler {
	return &StudentResultHandler{
		service: service,
		logger:  logger.With().Str("component", "student_result_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *StudentResultHandler) Register(router fiber.Router) {
	router.Get("/:studentID/results", h.get)
}

func (h *StudentResultHandler) get(c *fiber.Ctx) error {
	studentID, err := parseUintParam(c, "studentID")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	termID, err := parseQueryUint(c, "term_id")
	if err != nil || termID == nil {
		return utils.SendError(c, fiber.StatusBadRequest, "term_id is required")
	}

	response, err := h.service.StudentResult(c.Context(), studentID, *termID)
	if err != nil {
		if errors.Is(err, service.ErrResultNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, "result not found")
		}
		h.logger.Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}

	return utils.SendSuccess(c, "result retrieved", response)
}
