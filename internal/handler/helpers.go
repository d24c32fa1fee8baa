package handler

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/pitcharena/pitcharena-api/internal/ranking"
	"github.com/pitcharena/pitcharena-api/internal/service"
	"github.com/pitcharena/pitcharena-api/internal/utils"
)

func parseUintParam(c *fiber.Ctx, name string) (uint, error) {
	raw := c.Params(name)
	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || value == 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return uint(value), nil
}

func requestUserID(c *fiber.Ctx) uint {
	if id, ok := c.Locals("user_id").(uint); ok {
		return id
	}
	return 0
}

func requestUserRole(c *fiber.Ctx) string {
	if role, ok := c.Locals("user_role").(string); ok {
		return role
	}
	return ""
}

// respondServiceError maps domain sentinel errors onto HTTP statuses: missing
// resources are 404, state conflicts are 409, declined entry-fee charges are
// 402, everything else the caller did wrong is 400, and unknown errors are
// logged and returned as 500.
func respondServiceError(c *fiber.Ctx, logger zerolog.Logger, err error) error {
	switch {
	case errors.Is(err, service.ErrCompetitionNotFound),
		errors.Is(err, service.ErrSubmissionNotFound),
		errors.Is(err, service.ErrAssignmentNotFound):
		return utils.SendError(c, fiber.StatusNotFound, err.Error())

	case errors.Is(err, service.ErrAssignmentExists),
		errors.Is(err, service.ErrWinnersAlreadySelected),
		errors.Is(err, service.ErrJudgingIncomplete),
		errors.Is(err, service.ErrCompetitionFull):
		return utils.SendError(c, fiber.StatusConflict, err.Error())

	case errors.Is(err, service.ErrNotSubmissionOwner),
		errors.Is(err, service.ErrNotAssigned):
		return utils.SendError(c, fiber.StatusForbidden, err.Error())

	case errors.Is(err, service.ErrAssignmentInput),
		errors.Is(err, service.ErrJudgingNotOpen),
		errors.Is(err, service.ErrNotAJudge),
		errors.Is(err, service.ErrNoAssignableSubmissions),
		errors.Is(err, service.ErrForeignSubmission),
		errors.Is(err, service.ErrScoringNotOpen),
		errors.Is(err, service.ErrRubricMismatch),
		errors.Is(err, service.ErrWinnerSelectionClosed),
		errors.Is(err, service.ErrPlaceMismatch),
		errors.Is(err, service.ErrWinnerNotQualified),
		errors.Is(err, service.ErrInvalidPrizeStructure),
		errors.Is(err, service.ErrInvalidDates),
		errors.Is(err, service.ErrInvalidStatusTransition),
		errors.Is(err, service.ErrCompetitionLocked),
		errors.Is(err, service.ErrCompetitionNotOpen),
		errors.Is(err, service.ErrCompetitionNotComplete),
		errors.Is(err, service.ErrNoWinners),
		errors.Is(err, service.ErrSubmissionLocked),
		errors.Is(err, service.ErrMissingPitchVideo),
		errors.Is(err, service.ErrUnsupportedFileType),
		errors.Is(err, service.ErrUnknownRole),
		errors.Is(err, ranking.ErrNoJudges),
		errors.Is(err, ranking.ErrInsufficientData):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())

	case errors.Is(err, service.ErrEntryFeePaymentFailed):
		return utils.SendError(c, fiber.StatusPaymentRequired, err.Error())
	}

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	}

	logger.Error().Err(err).Str("path", c.Path()).Msg("unhandled service error")
	return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
}
