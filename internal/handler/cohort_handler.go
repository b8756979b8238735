package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/mzizi-labs/darasa-api/internal/service"
	"github.com/mzizi-labs/darasa-api/internal/utils"
)

// CohortHandler serves cohort-level operations: recompute, ranking,
// broadsheet and the publication workflow.
type CohortHandler struct {
	results     service.ResultService
	ranking     service.RankingService
	publication service.PublicationService
	logger      zerolog.Logger
}

// NewCohortHandler builds a cohort handler instance.
func NewCohortHandler(results service.ResultService, ranking service.RankingService, publication service.PublicationService, logger zerolog.Logger) *CohortHandler {
	return &CohortHandler{
		results:     results,
		ranking:     ranking,
		publication: publication,
		logger:      logger.With().Str("component", "cohort_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *CohortHandler) Register(router fiber.Router) {
	router.Post("/:classID/:termID/recompute", h.recompute)
	router.Get("/:classID/:termID/broadsheet", h.broadsheet)
	router.Post("/:classID/:termID/publish", h.publish)
	router.Post("/:classID/:termID/unpublish", h.unpublish)
}

func (h *CohortHandler) cohortParams(c *fiber.Ctx) (uint, uint, error) {
	classID, err := parseUintParam(c, "classID")
	if err != nil {
		return 0, 0, err
	}
	termID, err := parseUintParam(c, "termID")
	if err != nil {
		return 0, 0, err
	}

	return classID, termID, nil
}

// recompute is the explicit "finalize" trigger: every student's term result
// is rebuilt, then the whole cohort is re-ranked in one atomic pass.
func (h *CohortHandler) recompute(c *fiber.Ctx) error {
	classID, termID, err := h.cohortParams(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	institutionID, err := parseQueryUint(c, "institution_id")
	if err != nil || institutionID == nil {
		return utils.SendError(c, fiber.StatusBadRequest, "institution_id is required")
	}

	if _, err := h.results.RecomputeCohort(c.Context(), *institutionID, classID, termID); err != nil {
		return h.handleError(c, err)
	}

	response, err := h.ranking.RankCohort(c.Context(), classID, termID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "cohort recomputed and ranked", response)
}

func (h *CohortHandler) broadsheet(c *fiber.Ctx) error {
	classID, termID, err := h.cohortParams(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	response, err := h.ranking.Broadsheet(c.Context(), classID, termID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "broadsheet retrieved", response)
}

func (h *CohortHandler) publish(c *fiber.Ctx) error {
	classID, termID, err := h.cohortParams(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	institutionID, err := parseQueryUint(c, "institution_id")
	if err != nil || institutionID == nil {
		return utils.SendError(c, fiber.StatusBadRequest, "institution_id is required")
	}

	response, err := h.publication.Publish(c.Context(), *institutionID, classID, termID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "cohort published", response)
}

func (h *CohortHandler) unpublish(c *fiber.Ctx) error {
	classID, termID, err := h.cohortParams(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	response, err := h.publication.Unpublish(c.Context(), classID, termID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "cohort unpublished", response)
}

func (h *CohortHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrCohortNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "cohort has no results")
	case errors.Is(err, service.ErrIncompleteCohort):
		return utils.SendError(c, fiber.StatusConflict, "cohort has incomplete results")
	case errors.Is(err, service.ErrCohortNotRanked):
		return utils.SendError(c, fiber.StatusConflict, "cohort has not been ranked")
	case errors.Is(err, service.ErrNoActiveScale):
		return utils.SendError(c, fiber.StatusConflict, "institution has no active grade scale")
	case errors.Is(err, service.ErrRecomputeConflict):
		return utils.SendError(c, fiber.StatusConflict, "cohort is being recomputed, try again")
	default:
		h.logger.Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
