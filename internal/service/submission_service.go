package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/pitcharena/pitcharena-api/internal/dto"
	"github.com/pitcharena/pitcharena-api/internal/models"
	"github.com/pitcharena/pitcharena-api/internal/repository"
	"github.com/pitcharena/pitcharena-api/pkg/ai"
	"github.com/pitcharena/pitcharena-api/pkg/payments"
)

// ErrSubmissionNotFound indicates the submission does not exist.
var ErrSubmissionNotFound = errors.New("submission not found")

// ErrNotSubmissionOwner indicates the requester does not own the submission.
var ErrNotSubmissionOwner = errors.New("submission belongs to another founder")

// ErrCompetitionNotOpen indicates the competition is not accepting entries.
var ErrCompetitionNotOpen = errors.New("competition is not accepting entries")

// ErrCompetitionFull indicates the competition reached its entry cap.
var ErrCompetitionFull = errors.New("competition has reached its entry limit")

// ErrSubmissionLocked indicates the submission has left its draft phase.
var ErrSubmissionLocked = errors.New("submission can no longer be edited")

// ErrMissingPitchVideo indicates a finalize attempt without a pitch video.
var ErrMissingPitchVideo = errors.New("a pitch video attachment is required to submit")

// ErrUnsupportedFileType indicates an attachment content type outside the
// allowlist for its kind.
var ErrUnsupportedFileType = errors.New("unsupported attachment content type")

// ErrEntryFeePaymentFailed indicates the processor declined or could not
// process the entry-fee charge. The submission stays in pending_payment so the
// founder can retry.
var ErrEntryFeePaymentFailed = errors.New("entry fee payment failed")

// ObjectStorage issues presigned upload slots for pitch assets and resolves
// their public URLs.
type ObjectStorage interface {
	PresignUpload(ctx context.Context, key, contentType string) (string, time.Time, error)
	PublicURL(key string) string
}

// PitchScreener runs the informational AI pre-screen over a pitch. Results
// never affect final scores; judges decide outcomes.
type PitchScreener interface {
	Screen(ctx context.Context, title, description string) (ai.ScreenResult, error)
}

// FeeCharger collects entry fees through the external payment processor.
type FeeCharger interface {
	Charge(ctx context.Context, req payments.ChargeRequest) (payments.ChargeResult, error)
}

// SubmissionService manages founder entries from draft through submission.
type SubmissionService interface {
	Create(ctx context.Context, userID uint, payload dto.SubmissionCreateRequest) (dto.SubmissionResponse, error)
	Update(ctx context.Context, userID, id uint, payload dto.SubmissionUpdateRequest) (dto.SubmissionResponse, error)
	Get(ctx context.Context, id, requesterID uint, requesterRole string) (dto.SubmissionResponse, error)
	ListMine(ctx context.Context, userID uint) ([]dto.SubmissionResponse, error)
	PresignAttachment(ctx context.Context, userID, id uint, payload dto.PresignRequest) (dto.PresignResponse, error)
	RegisterAttachment(ctx context.Context, userID, id uint, payload dto.AttachmentRequest) (dto.SubmissionResponse, error)
	Finalize(ctx context.Context, userID, id uint) (dto.SubmissionResponse, error)
}

type submissionService struct {
	competitions repository.CompetitionRepository
	submissions  repository.SubmissionRepository
	payments     repository.PaymentRepository
	validator    *validator.Validate
	storage      ObjectStorage
	charger      FeeCharger
	screener     PitchScreener
	sanitizer    *bluemonday.Policy
	logger       zerolog.Logger
	now          func() time.Time
}

// NewSubmissionService constructs the submission service. The screener is
// optional; a nil screener skips the AI pre-screen.
func NewSubmissionService(
	competitions repository.CompetitionRepository,
	submissions repository.SubmissionRepository,
	paymentRepo repository.PaymentRepository,
	validate *validator.Validate,
	storage ObjectStorage,
	charger FeeCharger,
	screener PitchScreener,
	logger zerolog.Logger,
) SubmissionService {
	return &submissionService{
		competitions: competitions,
		submissions:  submissions,
		payments:     paymentRepo,
		validator:    validate,
		storage:      storage,
		charger:      charger,
		screener:     screener,
		sanitizer:    bluemonday.UGCPolicy(),
		logger:       logger.With().Str("component", "submission_service").Logger(),
		now:          time.Now,
	}
}

func (s *submissionService) Create(ctx context.Context, userID uint, payload dto.SubmissionCreateRequest) (dto.SubmissionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.SubmissionResponse{}, err
	}

	competition, err := s.competitions.GetByID(ctx, payload.CompetitionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionResponse{}, ErrCompetitionNotFound
		}
		return dto.SubmissionResponse{}, err
	}
	if competition.Status != models.CompetitionStatusActive {
		return dto.SubmissionResponse{}, ErrCompetitionNotOpen
	}
	if competition.CurrentEntries >= competition.MaxEntries {
		return dto.SubmissionResponse{}, ErrCompetitionFull
	}

	submission := models.Submission{
		CompetitionID: competition.ID,
		UserID:        userID,
		Title:         strings.TrimSpace(payload.Title),
		Description:   s.sanitizer.Sanitize(strings.TrimSpace(payload.Description)),
		Status:        models.SubmissionStatusDraft,
		IsPublic:      payload.IsPublic,
	}
	if err := s.submissions.Create(ctx, &submission); err != nil {
		return dto.SubmissionResponse{}, err
	}
	return dto.NewSubmissionResponse(submission), nil
}

func (s *submissionService) Update(ctx context.Context, userID, id uint, payload dto.SubmissionUpdateRequest) (dto.SubmissionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.SubmissionResponse{}, err
	}

	submission, err := s.ownedDraft(ctx, userID, id)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	if payload.Title != nil {
		submission.Title = strings.TrimSpace(*payload.Title)
	}
	if payload.Description != nil {
		submission.Description = s.sanitizer.Sanitize(strings.TrimSpace(*payload.Description))
	}
	if payload.IsPublic != nil {
		submission.IsPublic = *payload.IsPublic
	}

	if err := s.submissions.Update(ctx, &submission); err != nil {
		return dto.SubmissionResponse{}, err
	}
	return dto.NewSubmissionResponse(submission), nil
}

func (s *submissionService) Get(ctx context.Context, id, requesterID uint, requesterRole string) (dto.SubmissionResponse, error) {
	submission, err := s.submissions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionResponse{}, ErrSubmissionNotFound
		}
		return dto.SubmissionResponse{}, err
	}

	allowed := submission.UserID == requesterID ||
		requesterRole == models.RoleAdmin ||
		requesterRole == models.RoleJudge ||
		submission.IsPublic
	if !allowed {
		return dto.SubmissionResponse{}, ErrNotSubmissionOwner
	}
	return dto.NewSubmissionResponse(submission), nil
}

func (s *submissionService) ListMine(ctx context.Context, userID uint) ([]dto.SubmissionResponse, error) {
	submissions, err := s.submissions.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return dto.NewSubmissionResponseSlice(submissions), nil
}

func (s *submissionService) PresignAttachment(ctx context.Context, userID, id uint, payload dto.PresignRequest) (dto.PresignResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.PresignResponse{}, err
	}
	if err := checkContentType(payload.Kind, payload.ContentType); err != nil {
		return dto.PresignResponse{}, err
	}

	submission, err := s.ownedDraft(ctx, userID, id)
	if err != nil {
		return dto.PresignResponse{}, err
	}

	key := fmt.Sprintf("submissions/%d/%s/%s%s",
		submission.ID, payload.Kind, uuid.NewString(), path.Ext(payload.FileName))
	url, expiresAt, err := s.storage.PresignUpload(ctx, key, payload.ContentType)
	if err != nil {
		return dto.PresignResponse{}, err
	}

	return dto.PresignResponse{
		UploadURL: url,
		ObjectKey: key,
		ExpiresAt: expiresAt,
	}, nil
}

func (s *submissionService) RegisterAttachment(ctx context.Context, userID, id uint, payload dto.AttachmentRequest) (dto.SubmissionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.SubmissionResponse{}, err
	}
	if err := checkContentType(payload.Kind, payload.ContentType); err != nil {
		return dto.SubmissionResponse{}, err
	}

	submission, err := s.ownedDraft(ctx, userID, id)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	attachments, err := submission.Attachments()
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	attachment := models.Attachment{
		Kind:        payload.Kind,
		ObjectKey:   payload.ObjectKey,
		URL:         s.storage.PublicURL(payload.ObjectKey),
		ContentType: payload.ContentType,
		SizeBytes:   payload.SizeBytes,
	}

	// One attachment per kind; re-registering replaces the previous asset.
	replaced := false
	for i, existing := range attachments {
		if existing.Kind == payload.Kind {
			attachments[i] = attachment
			replaced = true
			break
		}
	}
	if !replaced {
		attachments = append(attachments, attachment)
	}

	encoded, err := json.Marshal(attachments)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}
	submission.AttachmentsJSON = datatypes.JSON(encoded)

	if err := s.submissions.Update(ctx, &submission); err != nil {
		return dto.SubmissionResponse{}, err
	}
	return dto.NewSubmissionResponse(submission), nil
}

func (s *submissionService) Finalize(ctx context.Context, userID, id uint) (dto.SubmissionResponse, error) {
	// pending_payment drafts may retry after a declined entry-fee charge.
	submission, err := s.ownedIn(ctx, userID, id,
		models.SubmissionStatusDraft, models.SubmissionStatusPendingPayment)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	competition, err := s.competitions.GetByID(ctx, submission.CompetitionID)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}
	if competition.Status != models.CompetitionStatusActive || s.now().After(competition.Deadline) {
		return dto.SubmissionResponse{}, ErrCompetitionNotOpen
	}
	if competition.CurrentEntries >= competition.MaxEntries {
		return dto.SubmissionResponse{}, ErrCompetitionFull
	}
	// The counter can drift behind concurrent finalizes; the live count is
	// authoritative.
	submitted, err := s.submissions.CountByCompetitionAndStatus(ctx, competition.ID, models.SubmissionStatusSubmitted)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}
	if submitted >= int64(competition.MaxEntries) {
		return dto.SubmissionResponse{}, ErrCompetitionFull
	}

	attachments, err := submission.Attachments()
	if err != nil {
		return dto.SubmissionResponse{}, err
	}
	hasVideo := false
	for _, attachment := range attachments {
		if attachment.Kind == "video" {
			hasVideo = true
			break
		}
	}
	if !hasVideo {
		return dto.SubmissionResponse{}, ErrMissingPitchVideo
	}

	if err := s.collectEntryFee(ctx, &competition, &submission, userID); err != nil {
		return dto.SubmissionResponse{}, err
	}

	s.preScreen(ctx, &submission)

	submittedAt := s.now()
	submission.Status = models.SubmissionStatusSubmitted
	submission.SubmittedAt = &submittedAt
	if err := s.submissions.Update(ctx, &submission); err != nil {
		return dto.SubmissionResponse{}, err
	}

	competition.CurrentEntries++
	if err := s.competitions.Update(ctx, &competition); err != nil {
		return dto.SubmissionResponse{}, err
	}

	s.logger.Info().
		Uint("submission_id", submission.ID).
		Uint("competition_id", competition.ID).
		Msg("submission finalized")

	return dto.NewSubmissionResponse(submission), nil
}

// entryFeeIdempotencyKey keeps finalize retries from double-charging a
// founder; the processor dedupes on it.
func entryFeeIdempotencyKey(competitionID, submissionID uint) string {
	return fmt.Sprintf("entry-comp-%d-sub-%d-v1", competitionID, submissionID)
}

// collectEntryFee charges the competition's entry fee once per submission and
// records the outcome as a payment row. The net fee after the platform cut
// feeds the prize pool. A declined charge parks the submission in
// pending_payment.
func (s *submissionService) collectEntryFee(ctx context.Context, competition *models.Competition, submission *models.Submission, userID uint) error {
	if !competition.EntryFee.IsPositive() {
		return nil
	}

	existing, err := s.payments.GetEntryFeeBySubmission(ctx, submission.ID)
	if err == nil && existing.Status == models.PaymentStatusCompleted {
		return nil
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	charge, chargeErr := s.charger.Charge(ctx, payments.ChargeRequest{
		CustomerRef:    fmt.Sprintf("user-%d", userID),
		Amount:         competition.EntryFee,
		Currency:       "usd",
		IdempotencyKey: entryFeeIdempotencyKey(competition.ID, submission.ID),
		Description:    fmt.Sprintf("Entry fee for %s", competition.Title),
	})

	processedAt := s.now()
	payment := models.Payment{
		Type:          models.PaymentTypeEntryFee,
		Amount:        competition.EntryFee,
		UserID:        userID,
		CompetitionID: competition.ID,
		SubmissionID:  &submission.ID,
		ProcessedAt:   &processedAt,
	}

	if chargeErr != nil {
		payment.Status = models.PaymentStatusFailed
		if err := s.payments.Create(ctx, &payment); err != nil {
			s.logger.Error().Err(err).Uint("submission_id", submission.ID).Msg("failed to record entry fee payment")
		}
		submission.Status = models.SubmissionStatusPendingPayment
		if err := s.submissions.Update(ctx, submission); err != nil {
			return err
		}
		s.logger.Warn().Err(chargeErr).
			Uint("submission_id", submission.ID).
			Uint("competition_id", competition.ID).
			Msg("entry fee charge failed")
		return ErrEntryFeePaymentFailed
	}

	payment.Status = models.PaymentStatusCompleted
	payment.ProcessorTransferID = charge.ChargeID
	if err := s.payments.Create(ctx, &payment); err != nil {
		s.logger.Error().Err(err).Uint("submission_id", submission.ID).Msg("failed to record entry fee payment")
	}

	platformFee := competition.EntryFee.
		Mul(competition.PlatformFeePercentage).
		Div(decimal.NewFromInt(100))
	competition.PrizePool = competition.PrizePool.Add(competition.EntryFee.Sub(platformFee)).Round(2)

	return nil
}

// preScreen runs the optional AI pass; failures are logged and ignored.
func (s *submissionService) preScreen(ctx context.Context, submission *models.Submission) {
	if s.screener == nil {
		return
	}
	result, err := s.screener.Screen(ctx, submission.Title, submission.Description)
	if err != nil {
		s.logger.Warn().Err(err).Uint("submission_id", submission.ID).Msg("ai pre-screen failed")
		return
	}
	encoded, err := json.Marshal(result)
	if err != nil {
		return
	}
	submission.AIScoresJSON = datatypes.JSON(encoded)
}

// ownedDraft loads a submission and checks ownership and that it is still a draft.
func (s *submissionService) ownedDraft(ctx context.Context, userID, id uint) (models.Submission, error) {
	return s.ownedIn(ctx, userID, id, models.SubmissionStatusDraft)
}

// ownedIn loads a submission and checks ownership and that its status is one
// of the allowed set.
func (s *submissionService) ownedIn(ctx context.Context, userID, id uint, statuses ...string) (models.Submission, error) {
	submission, err := s.submissions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Submission{}, ErrSubmissionNotFound
		}
		return models.Submission{}, err
	}
	if submission.UserID != userID {
		return models.Submission{}, ErrNotSubmissionOwner
	}
	for _, status := range statuses {
		if submission.Status == status {
			return submission, nil
		}
	}
	return models.Submission{}, ErrSubmissionLocked
}

func checkContentType(kind, contentType string) error {
	detected := mimetype.Lookup(contentType)
	if detected == nil {
		return ErrUnsupportedFileType
	}
	switch kind {
	case "video":
		if !strings.HasPrefix(detected.String(), "video/") {
			return ErrUnsupportedFileType
		}
	case "deck":
		if detected.String() != "application/pdf" {
			return ErrUnsupportedFileType
		}
	default:
		return ErrUnsupportedFileType
	}
	return nil
}
