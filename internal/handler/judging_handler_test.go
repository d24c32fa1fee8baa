package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/pitcharena/pitcharena-api/internal/dto"
	"github.com/pitcharena/pitcharena-api/internal/handler"
	"github.com/pitcharena/pitcharena-api/internal/models"
	"github.com/pitcharena/pitcharena-api/internal/service"
)

type mockJudgingService struct {
	workload     []dto.JudgeWorkload
	assigned     []dto.SubmissionResponse
	detail       dto.JudgeSubmissionDetail
	scored       dto.ScoredSubmissionResponse
	err          error
	lastJudgeID  uint
	lastSubID    uint
	lastRole     string
	lastScore    dto.JudgeScoreRequest
	scoreInvoked bool
}

func (m *mockJudgingService) Workload(_ context.Context, judgeID uint) ([]dto.JudgeWorkload, error) {
	m.lastJudgeID = judgeID
	if m.err != nil {
		return nil, m.err
	}
	return m.workload, nil
}

func (m *mockJudgingService) AssignedSubmissions(_ context.Context, judgeID uint, _ string, competitionID uint) ([]dto.SubmissionResponse, error) {
	m.lastJudgeID = judgeID
	m.lastSubID = competitionID
	if m.err != nil {
		return nil, m.err
	}
	return m.assigned, nil
}

func (m *mockJudgingService) SubmissionDetail(_ context.Context, judgeID uint, role string, submissionID uint) (dto.JudgeSubmissionDetail, error) {
	m.lastJudgeID = judgeID
	m.lastRole = role
	m.lastSubID = submissionID
	if m.err != nil {
		return dto.JudgeSubmissionDetail{}, m.err
	}
	return m.detail, nil
}

func (m *mockJudgingService) Score(_ context.Context, judgeID, submissionID uint, payload dto.JudgeScoreRequest) (dto.ScoredSubmissionResponse, error) {
	m.scoreInvoked = true
	m.lastJudgeID = judgeID
	m.lastSubID = submissionID
	m.lastScore = payload
	if m.err != nil {
		return dto.ScoredSubmissionResponse{}, m.err
	}
	return m.scored, nil
}

func newJudgingApp(svc service.JudgingService, judgeID uint) *fiber.App {
	app := fiber.New()
	group := app.Group("/api/v1/judging", func(c *fiber.Ctx) error {
		c.Locals("user_id", judgeID)
		c.Locals("user_role", "judge")
		return c.Next()
	})
	handler.NewJudgingHandler(svc, zerolog.New(io.Discard)).Register(group)
	return app
}

func TestJudgingHandler_Workload(t *testing.T) {
	svc := &mockJudgingService{workload: []dto.JudgeWorkload{{CompetitionID: 3, Total: 4, Completed: 1}}}
	app := newJudgingApp(svc, 7)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/judging/workload", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, uint(7), svc.lastJudgeID)

	var response struct {
		Success bool                `json:"success"`
		Data    []dto.JudgeWorkload `json:"data"`
	}
	decodeResponse(t, resp, &response)
	require.True(t, response.Success)
	require.Len(t, response.Data, 1)
	require.Equal(t, uint(3), response.Data[0].CompetitionID)
}

func TestJudgingHandler_AssignedSubmissions(t *testing.T) {
	svc := &mockJudgingService{assigned: []dto.SubmissionResponse{{ID: 12, Title: "Pitch"}}}
	app := newJudgingApp(svc, 7)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/judging/competitions/3/submissions", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, uint(7), svc.lastJudgeID)

	var response struct {
		Success bool                     `json:"success"`
		Data    []dto.SubmissionResponse `json:"data"`
	}
	decodeResponse(t, resp, &response)
	require.True(t, response.Success)
	require.Len(t, response.Data, 1)
}

func TestJudgingHandler_SubmissionDetail(t *testing.T) {
	svc := &mockJudgingService{detail: dto.JudgeSubmissionDetail{
		ScoredSubmissionResponse: dto.ScoredSubmissionResponse{
			SubmissionResponse: dto.SubmissionResponse{ID: 12, Title: "Pitch"},
			HumanScores: models.HumanScores{
				Judges:  []models.JudgeScore{{JudgeID: 7, Overall: 8.5}},
				Average: 8.5,
			},
		},
		DownloadLinks: []dto.AssetLink{{Kind: "video", URL: "https://downloads.test/pitch.mp4"}},
	}}
	app := newJudgingApp(svc, 7)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/judging/submissions/12", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, uint(7), svc.lastJudgeID)
	require.Equal(t, "judge", svc.lastRole)
	require.Equal(t, uint(12), svc.lastSubID)

	var response struct {
		Success bool                      `json:"success"`
		Data    dto.JudgeSubmissionDetail `json:"data"`
	}
	decodeResponse(t, resp, &response)
	require.True(t, response.Success)
	require.Equal(t, uint(12), response.Data.ID)
	require.Len(t, response.Data.HumanScores.Judges, 1)
	require.Len(t, response.Data.DownloadLinks, 1)
}

func TestJudgingHandler_SubmissionDetailForbiddenWhenUnassigned(t *testing.T) {
	svc := &mockJudgingService{err: service.ErrNotAssigned}
	app := newJudgingApp(svc, 7)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/judging/submissions/12", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestJudgingHandler_Score(t *testing.T) {
	svc := &mockJudgingService{}
	app := newJudgingApp(svc, 7)

	payload := dto.JudgeScoreRequest{
		CriteriaScores: map[string]float64{"innovation": 9, "market": 6},
		Feedback:       "Strong pitch, thin go-to-market.",
	}
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/judging/submissions/12/score", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.True(t, svc.scoreInvoked)
	require.Equal(t, uint(7), svc.lastJudgeID)
	require.Equal(t, uint(12), svc.lastSubID)
	require.Equal(t, payload.CriteriaScores, svc.lastScore.CriteriaScores)
}

func TestJudgingHandler_ScoreErrors(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		statusCode int
	}{
		{name: "not assigned", err: service.ErrNotAssigned, statusCode: fiber.StatusForbidden},
		{name: "scoring closed", err: service.ErrScoringNotOpen, statusCode: fiber.StatusBadRequest},
		{name: "rubric mismatch", err: service.ErrRubricMismatch, statusCode: fiber.StatusBadRequest},
		{name: "submission missing", err: service.ErrSubmissionNotFound, statusCode: fiber.StatusNotFound},
		{name: "generic", err: errors.New("boom"), statusCode: fiber.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &mockJudgingService{err: tc.err}
			app := newJudgingApp(svc, 7)

			body, err := json.Marshal(dto.JudgeScoreRequest{
				CriteriaScores: map[string]float64{"innovation": 5},
				Feedback:       "ok",
			})
			require.NoError(t, err)

			req := httptest.NewRequest(http.MethodPost, "/api/v1/judging/submissions/12/score", bytes.NewReader(body))
			req.Header.Set("Content-Type", "application/json")

			resp, err := app.Test(req)
			require.NoError(t, err)
			require.Equal(t, tc.statusCode, resp.StatusCode)
		})
	}
}

func TestJudgingHandler_ScoreRejectsBadID(t *testing.T) {
	svc := &mockJudgingService{}
	app := newJudgingApp(svc, 7)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/judging/submissions/0/score", bytes.NewReader([]byte("{}")))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	require.False(t, svc.scoreInvoked)
}

func decodeResponse(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(target))
}
