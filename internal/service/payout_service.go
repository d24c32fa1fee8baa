package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/pitcharena/pitcharena-api/internal/dto"
	"github.com/pitcharena/pitcharena-api/internal/models"
	"github.com/pitcharena/pitcharena-api/internal/observability"
	"github.com/pitcharena/pitcharena-api/internal/repository"
	"github.com/pitcharena/pitcharena-api/pkg/payments"
)

// ErrCompetitionNotComplete indicates prizes were requested before the
// competition finished.
var ErrCompetitionNotComplete = errors.New("prizes can only be distributed for complete competitions")

// ErrNoWinners indicates the competition has no winning submissions to pay.
var ErrNoWinners = errors.New("competition has no winners to pay")

// PayoutProcessor moves prize money through the external payment processor
// and reports connect-account readiness.
type PayoutProcessor interface {
	Transfer(ctx context.Context, req payments.TransferRequest) (payments.TransferResult, error)
	Account(ctx context.Context, accountID string) (payments.AccountStatus, error)
}

// PayoutService distributes prize money to winners and lists payout history.
type PayoutService interface {
	DistributePrizes(ctx context.Context, competitionID uint, actorID uint) (dto.DistributePrizesResponse, error)
	ListPayouts(ctx context.Context, competitionID uint) ([]dto.PaymentResponse, error)
}

type payoutService struct {
	competitions repository.CompetitionRepository
	submissions  repository.SubmissionRepository
	users        repository.UserRepository
	payments     repository.PaymentRepository
	processor    PayoutProcessor
	events       EventPublisher
	logger       zerolog.Logger
	now          func() time.Time
}

// NewPayoutService constructs the payout service.
func NewPayoutService(
	competitions repository.CompetitionRepository,
	submissions repository.SubmissionRepository,
	users repository.UserRepository,
	paymentRepo repository.PaymentRepository,
	processor PayoutProcessor,
	events EventPublisher,
	logger zerolog.Logger,
) PayoutService {
	return &payoutService{
		competitions: competitions,
		submissions:  submissions,
		users:        users,
		payments:     paymentRepo,
		processor:    processor,
		events:       events,
		logger:       logger.With().Str("component", "payout_service").Logger(),
		now:          time.Now,
	}
}

// payoutIdempotencyKey keeps retried distribution runs from double-paying a
// winner; the processor dedupes on it.
func payoutIdempotencyKey(competitionID, submissionID uint) string {
	return fmt.Sprintf("comp-%d-sub-%d-v1", competitionID, submissionID)
}

func (s *payoutService) DistributePrizes(ctx context.Context, competitionID uint, actorID uint) (dto.DistributePrizesResponse, error) {
	competition, err := s.competitions.GetByID(ctx, competitionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.DistributePrizesResponse{}, ErrCompetitionNotFound
		}
		return dto.DistributePrizesResponse{}, err
	}
	if competition.Status != models.CompetitionStatusComplete {
		return dto.DistributePrizesResponse{}, ErrCompetitionNotComplete
	}

	winners, err := s.submissions.ListByCompetition(ctx, competitionID, []string{models.SubmissionStatusWinner})
	if err != nil {
		return dto.DistributePrizesResponse{}, err
	}
	if len(winners) == 0 {
		return dto.DistributePrizesResponse{}, ErrNoWinners
	}

	structure, err := competition.PrizeStructure()
	if err != nil {
		return dto.DistributePrizesResponse{}, err
	}

	response := dto.DistributePrizesResponse{
		CompetitionID:    competition.ID,
		CompetitionTitle: competition.Title,
		Successful:       []dto.PayoutResult{},
		PendingOnboard:   []dto.PayoutResult{},
		Failed:           []dto.PayoutResult{},
		AlreadyPaid:      []dto.PayoutResult{},
	}

	for _, winner := range winners {
		if winner.Placement == nil {
			continue
		}
		fraction, ok := structure.FractionFor(*winner.Placement)
		if !ok {
			continue
		}
		amount := competition.PrizePool.Mul(fraction).Round(2)
		response.TotalExpected = response.TotalExpected.Add(amount)

		result := s.payWinner(ctx, competition, winner, amount)
		switch result.Status {
		case models.PaymentStatusCompleted:
			response.Successful = append(response.Successful, result)
			response.TotalDistributed = response.TotalDistributed.Add(amount)
			observability.Payouts().WithLabelValues("completed").Inc()
		case "already_paid":
			response.AlreadyPaid = append(response.AlreadyPaid, result)
			observability.Payouts().WithLabelValues("already_paid").Inc()
		case "pending_onboarding":
			response.PendingOnboard = append(response.PendingOnboard, result)
			observability.Payouts().WithLabelValues("pending_onboarding").Inc()
		default:
			response.Failed = append(response.Failed, result)
			observability.Payouts().WithLabelValues("failed").Inc()
		}
	}

	response.Summary = fmt.Sprintf(
		"%d paid, %d pending onboarding, %d failed, %d already paid",
		len(response.Successful), len(response.PendingOnboard), len(response.Failed), len(response.AlreadyPaid),
	)

	_ = s.events.Publish(SubjectPayoutCompleted, map[string]any{
		"competition_id":    competition.ID,
		"total_distributed": response.TotalDistributed,
		"summary":           response.Summary,
		"actor_id":          actorID,
	})
	s.logger.Info().
		Uint("competition_id", competition.ID).
		Str("summary", response.Summary).
		Str("total_distributed", response.TotalDistributed.String()).
		Msg("prize distribution run finished")

	return response, nil
}

// payWinner attempts one prize transfer and records the outcome as a payment row.
func (s *payoutService) payWinner(ctx context.Context, competition models.Competition, winner models.Submission, amount decimal.Decimal) dto.PayoutResult {
	result := dto.PayoutResult{
		SubmissionID: winner.ID,
		UserID:       winner.UserID,
		Placement:    *winner.Placement,
		PrizeAmount:  amount,
	}

	founder, err := s.users.GetByID(ctx, winner.UserID)
	if err != nil {
		result.Status = models.PaymentStatusFailed
		result.Message = "winner account could not be loaded"
		return result
	}
	result.Username = founder.Username

	existing, err := s.payments.GetPayoutBySubmission(ctx, winner.ID)
	if err == nil && existing.InFlightOrPaid() {
		result.Status = "already_paid"
		result.ProcessorTransferID = existing.ProcessorTransferID
		result.Message = "payout already recorded for this submission"
		return result
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		result.Status = models.PaymentStatusFailed
		result.Message = "payout history could not be checked"
		return result
	}

	if !founder.PayoutReady() {
		result.Status = "pending_onboarding"
		result.Message = "winner has not completed payout onboarding"
		return result
	}

	// Local onboarding flags can be stale; the processor's account state is
	// authoritative.
	account, err := s.processor.Account(ctx, founder.ConnectAccountID)
	if err != nil || !account.PayoutsEnabled {
		if err != nil {
			s.logger.Warn().Err(err).
				Str("account_id", founder.ConnectAccountID).
				Msg("connect account status check failed")
		}
		result.Status = "pending_onboarding"
		result.Message = "payout account is not ready at the processor"
		return result
	}

	transfer, err := s.processor.Transfer(ctx, payments.TransferRequest{
		AccountID:      founder.ConnectAccountID,
		Amount:         amount,
		Currency:       "usd",
		IdempotencyKey: payoutIdempotencyKey(competition.ID, winner.ID),
		Description:    fmt.Sprintf("%s prize for %s", *winner.Placement, competition.Title),
	})

	processedAt := s.now()
	payment := models.Payment{
		Type:          models.PaymentTypePrizePayout,
		Amount:        amount,
		UserID:        founder.ID,
		CompetitionID: competition.ID,
		SubmissionID:  &winner.ID,
		ProcessedAt:   &processedAt,
	}

	if err != nil {
		payment.Status = models.PaymentStatusFailed
		result.Status = models.PaymentStatusFailed
		result.Message = err.Error()
		s.logger.Warn().Err(err).
			Uint("submission_id", winner.ID).
			Uint("user_id", founder.ID).
			Msg("prize transfer failed")
	} else {
		payment.Status = models.PaymentStatusCompleted
		payment.ProcessorTransferID = transfer.TransferID
		result.Status = models.PaymentStatusCompleted
		result.ProcessorTransferID = transfer.TransferID
		result.Message = "prize transferred"
	}

	if err := s.payments.Create(ctx, &payment); err != nil {
		s.logger.Error().Err(err).
			Uint("submission_id", winner.ID).
			Msg("failed to record payment")
	}

	return result
}

func (s *payoutService) ListPayouts(ctx context.Context, competitionID uint) ([]dto.PaymentResponse, error) {
	if _, err := s.competitions.GetByID(ctx, competitionID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCompetitionNotFound
		}
		return nil, err
	}

	records, err := s.payments.ListPayoutsByCompetition(ctx, competitionID)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.PaymentResponse, 0, len(records))
	for _, record := range records {
		responses = append(responses, dto.NewPaymentResponse(record))
	}
	return responses, nil
}
