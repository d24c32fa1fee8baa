package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/pitcharena/pitcharena-api/internal/dto"
	"github.com/pitcharena/pitcharena-api/internal/service"
	"github.com/pitcharena/pitcharena-api/internal/utils"
)

// AdminHandler wires the admin workflow endpoints: judge roster, judge
// distribution, reassignment, winner selection and prize distribution.
type AdminHandler struct {
	assignments service.AssignmentService
	leaderboard service.LeaderboardService
	payouts     service.PayoutService
	users       service.UserService
	logger      zerolog.Logger
}

// NewAdminHandler constructs the handler.
func NewAdminHandler(
	assignments service.AssignmentService,
	leaderboard service.LeaderboardService,
	payouts service.PayoutService,
	users service.UserService,
	logger zerolog.Logger,
) *AdminHandler {
	return &AdminHandler{
		assignments: assignments,
		leaderboard: leaderboard,
		payouts:     payouts,
		users:       users,
		logger:      logger.With().Str("component", "admin_handler").Logger(),
	}
}

// Register attaches the admin endpoints to the admin-only router group.
func (h *AdminHandler) Register(router fiber.Router) {
	router.Get("/users", h.listUsers)
	router.Post("/competitions/:id/assignments", h.distribute)
	router.Get("/competitions/:id/assignments", h.listAssignments)
	router.Patch("/assignments/:id/reassign", h.reassign)
	router.Post("/competitions/:id/winners", h.selectWinners)
	router.Post("/competitions/:id/payouts", h.distributePrizes)
	router.Get("/competitions/:id/payouts", h.listPayouts)
}

func (h *AdminHandler) listUsers(c *fiber.Ctx) error {
	users, err := h.users.ListByRole(c.Context(), c.Query("role"))
	if err != nil {
		return respondServiceError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "users retrieved", users)
}

func (h *AdminHandler) distribute(c *fiber.Ctx) error {
	competitionID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.AssignJudgesRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	assignments, err := h.assignments.Distribute(c.Context(), competitionID, payload, requestUserID(c))
	if err != nil {
		return respondServiceError(c, h.logger, err)
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "judges assigned", assignments)
}

func (h *AdminHandler) listAssignments(c *fiber.Ctx) error {
	competitionID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	assignments, err := h.assignments.ListForCompetition(c.Context(), competitionID)
	if err != nil {
		return respondServiceError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "assignments retrieved", assignments)
}

func (h *AdminHandler) reassign(c *fiber.Ctx) error {
	assignmentID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.ReassignJudgeRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	assignment, err := h.assignments.Reassign(c.Context(), assignmentID, payload, requestUserID(c))
	if err != nil {
		return respondServiceError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "assignment updated", assignment)
}

func (h *AdminHandler) selectWinners(c *fiber.Ctx) error {
	competitionID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.SelectWinnersRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	selection, err := h.leaderboard.SelectWinners(c.Context(), competitionID, payload, requestUserID(c))
	if err != nil {
		return respondServiceError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "winners selected", selection)
}

func (h *AdminHandler) distributePrizes(c *fiber.Ctx) error {
	competitionID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	result, err := h.payouts.DistributePrizes(c.Context(), competitionID, requestUserID(c))
	if err != nil {
		return respondServiceError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "prize distribution finished", result)
}

func (h *AdminHandler) listPayouts(c *fiber.Ctx) error {
	competitionID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	payouts, err := h.payouts.ListPayouts(c.Context(), competitionID)
	if err != nil {
		return respondServiceError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "payouts retrieved", payouts)
}
