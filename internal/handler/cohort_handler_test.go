package handler_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/mzizi-labs/darasa-api/internal/dto"
	"github.com/mzizi-labs/darasa-api/internal/handler"
	"github.com/mzizi-labs/darasa-api/internal/service"
)

type mockResultService struct {
	recomputed int
	student    dto.StudentResultResponse
	err        error
}

func (m *mockResultService) RecomputeStudent(context.Context, uint, uint, uint, uint) error {
	return m.err
}

func (m *mockResultService) RecomputeCohort(context.Context, uint, uint, uint) (int, error) {
	if m.err != nil {
		return 0, m.err
	}
	m.recomputed++
	return 3, nil
}

func (m *mockResultService) StudentResult(context.Context, uint, uint) (dto.StudentResultResponse, error) {
	return m.student, m.err
}

type mockRankingService struct {
	recompute   dto.RecomputeResponse
	broadsheet  dto.BroadsheetResponse
	invalidated int
	err         error
}

func (m *mockRankingService) RankCohort(context.Context, uint, uint) (dto.RecomputeResponse, error) {
	return m.recompute, m.err
}

func (m *mockRankingService) Broadsheet(context.Context, uint, uint) (dto.BroadsheetResponse, error) {
	return m.broadsheet, m.err
}

func (m *mockRankingService) InvalidateBroadsheet(context.Context, uint, uint) {
	m.invalidated++
}

type mockPublicationService struct {
	response dto.PublishResponse
	err      error
}

func (m *mockPublicationService) Publish(context.Context, uint, uint, uint) (dto.PublishResponse, error) {
	return m.response, m.err
}

func (m *mockPublicationService) Unpublish(context.Context, uint, uint) (dto.PublishResponse, error) {
	return m.response, m.err
}

func newCohortApp(results *mockResultService, ranking *mockRankingService, publication *mockPublicationService) *fiber.App {
	app := fiber.New()
	handler.NewCohortHandler(results, ranking, publication, zerolog.Nop()).Register(app.Group("/api/v2/cohorts"))
	return app
}

func TestCohortHandler_RecomputeSuccess(t *testing.T) {
	results := &mockResultService{}
	ranking := &mockRankingService{recompute: dto.RecomputeResponse{ClassID: 1, TermID: 1, Ranked: 3}}
	app := newCohortApp(results, ranking, &mockPublicationService{})

	req := httptest.NewRequest(http.MethodPost, "/api/v2/cohorts/1/1/recompute?institution_id=1", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, 1, results.recomputed)

	var body struct {
		Success bool                  `json:"success"`
		Data    dto.RecomputeResponse `json:"data"`
	}
	decodeResponse(t, resp, &body)
	require.Equal(t, 3, body.Data.Ranked)
}

func TestCohortHandler_RecomputeRequiresInstitution(t *testing.T) {
	app := newCohortApp(&mockResultService{}, &mockRankingService{}, &mockPublicationService{})

	req := httptest.NewRequest(http.MethodPost, "/api/v2/cohorts/1/1/recompute", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestCohortHandler_RecomputeConflict(t *testing.T) {
	ranking := &mockRankingService{err: service.ErrRecomputeConflict}
	app := newCohortApp(&mockResultService{}, ranking, &mockPublicationService{})

	req := httptest.NewRequest(http.MethodPost, "/api/v2/cohorts/1/1/recompute?institution_id=1", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusConflict, resp.StatusCode)
}

func TestCohortHandler_PublishIncompleteCohort(t *testing.T) {
	publication := &mockPublicationService{err: service.ErrIncompleteCohort}
	app := newCohortApp(&mockResultService{}, &mockRankingService{}, publication)

	req := httptest.NewRequest(http.MethodPost, "/api/v2/cohorts/1/1/publish?institution_id=1", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusConflict, resp.StatusCode)
}

func TestCohortHandler_PublishSuccess(t *testing.T) {
	publication := &mockPublicationService{response: dto.PublishResponse{ClassID: 1, TermID: 1, Published: 30, GradeScaleID: 2, Status: "published"}}
	app := newCohortApp(&mockResultService{}, &mockRankingService{}, publication)

	req := httptest.NewRequest(http.MethodPost, "/api/v2/cohorts/1/1/publish?institution_id=1", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body struct {
		Data dto.PublishResponse `json:"data"`
	}
	decodeResponse(t, resp, &body)
	require.Equal(t, 30, body.Data.Published)
	require.Equal(t, uint(2), body.Data.GradeScaleID)
}

func TestCohortHandler_BroadsheetBadParams(t *testing.T) {
	app := newCohortApp(&mockResultService{}, &mockRankingService{}, &mockPublicationService{})

	req := httptest.NewRequest(http.MethodGet, "/api/v2/cohorts/abc/1/broadsheet", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
