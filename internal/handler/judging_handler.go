package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/pitcharena/pitcharena-api/internal/dto"
	"github.com/pitcharena/pitcharena-api/internal/service"
	"github.com/pitcharena/pitcharena-api/internal/utils"
)

// JudgingHandler wires the judge-facing endpoints.
type JudgingHandler struct {
	service service.JudgingService
	logger  zerolog.Logger
}

// NewJudgingHandler constructs the handler.
func NewJudgingHandler(service service.JudgingService, logger zerolog.Logger) *JudgingHandler {
	return &JudgingHandler{
		service: service,
		logger:  logger.With().Str("component", "judging_handler").Logger(),
	}
}

// Register attaches judging endpoints to the judge-only router group.
func (h *JudgingHandler) Register(router fiber.Router) {
	router.Get("/workload", h.workload)
	router.Get("/competitions/:id/submissions", h.assignedSubmissions)
	router.Get("/submissions/:id", h.submissionDetail)
	router.Post("/submissions/:id/score", h.score)
}

func (h *JudgingHandler) submissionDetail(c *fiber.Ctx) error {
	submissionID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	detail, err := h.service.SubmissionDetail(c.Context(), requestUserID(c), requestUserRole(c), submissionID)
	if err != nil {
		return respondServiceError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "submission retrieved", detail)
}

func (h *JudgingHandler) assignedSubmissions(c *fiber.Ctx) error {
	competitionID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	submissions, err := h.service.AssignedSubmissions(c.Context(), requestUserID(c), requestUserRole(c), competitionID)
	if err != nil {
		return respondServiceError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "submissions retrieved", submissions)
}

func (h *JudgingHandler) workload(c *fiber.Ctx) error {
	workloads, err := h.service.Workload(c.Context(), requestUserID(c))
	if err != nil {
		return respondServiceError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "workload retrieved", workloads)
}

func (h *JudgingHandler) score(c *fiber.Ctx) error {
	submissionID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.JudgeScoreRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	scored, err := h.service.Score(c.Context(), requestUserID(c), submissionID, payload)
	if err != nil {
		return respondServiceError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "score recorded", scored)
}
