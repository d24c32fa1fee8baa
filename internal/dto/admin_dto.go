package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/pitcharena/pitcharena-api/internal/models"
)

// ExplicitAssignment pins one judge to a set of submissions, bypassing the
// automatic distribution.
type ExplicitAssignment struct {
	JudgeID       uint   `json:"judge_id" validate:"required"`
	SubmissionIDs []uint `json:"submission_ids" validate:"required,min=1"`
}

// AssignJudgesRequest triggers a workload distribution for a competition.
// When JudgeIDs is set the server shuffles and balances submissions across
// those judges; Assignments passes a precomputed distribution through
// unchanged. Exactly one of the two must be provided.
type AssignJudgesRequest struct {
	JudgeIDs    []uint               `json:"judge_ids" validate:"omitempty,min=1"`
	Assignments []ExplicitAssignment `json:"assignments" validate:"omitempty,min=1,dive"`
	Replace     bool                 `json:"replace"`
}

// ReassignJudgeRequest moves a single assignment to a new judge.
type ReassignJudgeRequest struct {
	NewJudgeID uint `json:"new_judge_id" validate:"required"`
}

// AssignmentResponse is one judge/submission pairing with display details.
type AssignmentResponse struct {
	ID              uint       `json:"id"`
	JudgeID         uint       `json:"judge_id"`
	JudgeName       string     `json:"judge_name"`
	SubmissionID    uint       `json:"submission_id"`
	SubmissionTitle string     `json:"submission_title"`
	AssignedBy      uint       `json:"assigned_by"`
	AssignedAt      time.Time  `json:"assigned_at"`
	CompletedAt     *time.Time `json:"completed_at"`
}

// NewAssignmentResponse converts a model plus display lookups into a DTO.
func NewAssignmentResponse(model models.JudgeAssignment, judgeName, submissionTitle string) AssignmentResponse {
	return AssignmentResponse{
		ID:              model.ID,
		JudgeID:         model.JudgeID,
		JudgeName:       judgeName,
		SubmissionID:    model.SubmissionID,
		SubmissionTitle: submissionTitle,
		AssignedBy:      model.AssignedBy,
		AssignedAt:      model.AssignedAt,
		CompletedAt:     model.CompletedAt,
	}
}

// WinnerSelection pairs one submission with one prize place.
type WinnerSelection struct {
	SubmissionID uint   `json:"submission_id" validate:"required"`
	Place        string `json:"place" validate:"required"`
}

// SelectWinnersRequest records the final placements for a competition. An
// empty Winners list asks the server to derive placements from the ranked
// leaderboard.
type SelectWinnersRequest struct {
	Winners []WinnerSelection `json:"winners" validate:"omitempty,dive"`
}

// WinnerInfo is one confirmed winner with its computed prize amount.
type WinnerInfo struct {
	Place        string          `json:"place"`
	SubmissionID uint            `json:"submission_id"`
	Title        string          `json:"title"`
	Username     string          `json:"username"`
	PrizeAmount  decimal.Decimal `json:"prize_amount"`
}

// WinnerSelectionResponse summarises a completed winner selection.
type WinnerSelectionResponse struct {
	CompetitionID uint         `json:"competition_id"`
	Status        string       `json:"status"`
	Winners       []WinnerInfo `json:"winners"`
}

// PayoutResult is the outcome of one attempted prize transfer.
type PayoutResult struct {
	SubmissionID        uint            `json:"submission_id"`
	UserID              uint            `json:"user_id"`
	Username            string          `json:"username"`
	Placement           string          `json:"placement"`
	PrizeAmount         decimal.Decimal `json:"prize_amount"`
	ProcessorTransferID string          `json:"processor_transfer_id,omitempty"`
	Status              string          `json:"status"`
	Message             string          `json:"message"`
}

// DistributePrizesResponse summarises a payout run across all winners.
type DistributePrizesResponse struct {
	CompetitionID    uint            `json:"competition_id"`
	CompetitionTitle string          `json:"competition_title"`
	Successful       []PayoutResult  `json:"successful_payouts"`
	PendingOnboard   []PayoutResult  `json:"pending_onboarding"`
	Failed           []PayoutResult  `json:"failed_payouts"`
	AlreadyPaid      []PayoutResult  `json:"already_paid"`
	TotalDistributed decimal.Decimal `json:"total_distributed"`
	TotalExpected    decimal.Decimal `json:"total_expected"`
	Summary          string          `json:"summary"`
}

// PaymentResponse is one payout record for a competition.
type PaymentResponse struct {
	ID                  uint            `json:"id"`
	UserID              uint            `json:"user_id"`
	SubmissionID        *uint           `json:"submission_id"`
	Amount              decimal.Decimal `json:"amount"`
	Status              string          `json:"status"`
	ProcessorTransferID string          `json:"processor_transfer_id"`
	CreatedAt           time.Time       `json:"created_at"`
	ProcessedAt         *time.Time      `json:"processed_at"`
}

// NewPaymentResponse converts a model into a DTO.
func NewPaymentResponse(model models.Payment) PaymentResponse {
	return PaymentResponse{
		ID:                  model.ID,
		UserID:              model.UserID,
		SubmissionID:        model.SubmissionID,
		Amount:              model.Amount,
		Status:              model.Status,
		ProcessorTransferID: model.ProcessorTransferID,
		CreatedAt:           model.CreatedAt,
		ProcessedAt:         model.ProcessedAt,
	}
}
