package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/mzizi-labs/darasa-api/internal/dto"
	"github.com/mzizi-labs/darasa-api/internal/handler"
	"github.com/mzizi-labs/darasa-api/internal/models"
	"github.com/mzizi-labs/darasa-api/internal/service"
)

type mockGradeScaleService struct {
	response dto.GradeScaleResponse
	list     []dto.GradeScaleResponse
	err      error
}

func (m *mockGradeScaleService) Create(context.Context, dto.GradeScaleCreateRequest) (dto.GradeScaleResponse, error) {
	return m.response, m.err
}

func (m *mockGradeScaleService) Update(context.Context, uint, dto.GradeScaleUpdateRequest) (dto.GradeScaleResponse, error) {
	return m.response, m.err
}

func (m *mockGradeScaleService) Get(context.Context, uint) (dto.GradeScaleResponse, error) {
	return m.response, m.err
}

func (m *mockGradeScaleService) List(context.Context, uint) ([]dto.GradeScaleResponse, error) {
	return m.list, m.err
}

func (m *mockGradeScaleService) Activate(context.Context, uint, uint) (dto.GradeScaleResponse, error) {
	return m.response, m.err
}

func (m *mockGradeScaleService) ActiveScale(context.Context, uint) (models.GradeScale, error) {
	return models.GradeScale{}, m.err
}

func (m *mockGradeScaleService) ScaleByID(context.Context, uint) (models.GradeScale, error) {
	return models.GradeScale{}, m.err
}

func newScaleApp(svc service.GradeScaleService) *fiber.App {
	app := fiber.New()
	handler.NewGradeScaleHandler(svc, zerolog.Nop()).Register(app.Group("/api/v2/grade-scales"))
	return app
}

func TestGradeScaleHandler_CreateSuccess(t *testing.T) {
	svc := &mockGradeScaleService{response: dto.GradeScaleResponse{ID: 1, InstitutionID: 1, Name: "Standard"}}
	app := newScaleApp(svc)

	payload, err := json.Marshal(dto.GradeScaleCreateRequest{
		InstitutionID: 1,
		Name:          "Standard",
		Ranges: []dto.GradeRangeInput{
			{MinScore: 0, MaxScore: 100, Grade: "A", Points: 4},
		},
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v2/grade-scales", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var body struct {
		Success bool                   `json:"success"`
		Data    dto.GradeScaleResponse `json:"data"`
		Message string                 `json:"message"`
	}
	decodeResponse(t, resp, &body)
	require.True(t, body.Success)
	require.Equal(t, "grade scale created", body.Message)
	require.Equal(t, uint(1), body.Data.ID)
}

func TestGradeScaleHandler_CreateCoverageGap(t *testing.T) {
	svc := &mockGradeScaleService{err: service.ErrCoverageGap}
	app := newScaleApp(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/v2/grade-scales", bytes.NewReader([]byte(`{"institution_id":1,"name":"x","ranges":[]}`)))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
}

func TestGradeScaleHandler_UpdatePinnedConflict(t *testing.T) {
	svc := &mockGradeScaleService{err: service.ErrScalePinned}
	app := newScaleApp(svc)

	req := httptest.NewRequest(http.MethodPut, "/api/v2/grade-scales/1", bytes.NewReader([]byte(`{"name":"x","ranges":[]}`)))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusConflict, resp.StatusCode)
}

func TestGradeScaleHandler_GetNotFound(t *testing.T) {
	svc := &mockGradeScaleService{err: service.ErrScaleNotFound}
	app := newScaleApp(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/v2/grade-scales/99", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestGradeScaleHandler_ListRequiresInstitution(t *testing.T) {
	svc := &mockGradeScaleService{}
	app := newScaleApp(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/v2/grade-scales", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestGradeScaleHandler_ActivateSuccess(t *testing.T) {
	svc := &mockGradeScaleService{response: dto.GradeScaleResponse{ID: 2, IsActive: true}}
	app := newScaleApp(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/v2/grade-scales/2/activate?institution_id=1", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body struct {
		Success bool                   `json:"success"`
		Data    dto.GradeScaleResponse `json:"data"`
	}
	decodeResponse(t, resp, &body)
	require.True(t, body.Data.IsActive)
}

func decodeResponse(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(target))
}
