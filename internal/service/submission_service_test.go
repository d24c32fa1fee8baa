package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/pitcharena/pitcharena-api/internal/dto"
	"github.com/pitcharena/pitcharena-api/internal/models"
	"github.com/pitcharena/pitcharena-api/pkg/ai"
)

type fakeScreener struct {
	calls int
}

func (f *fakeScreener) Screen(_ context.Context, _, _ string) (ai.ScreenResult, error) {
	f.calls++
	return ai.ScreenResult{
		Summary: "promising",
		Scores:  map[string]float64{"clarity": 7, "market": 8},
		Average: 7.5,
	}, nil
}

type submissionFixture struct {
	competitions *memCompetitionRepo
	submissions  *memSubmissionRepo
	payments     *memPaymentRepo
	storage      *fakeStorage
	processor    *fakeProcessor
	screener     *fakeScreener
	service      SubmissionService
}

func newSubmissionFixture(t *testing.T) (submissionFixture, models.Competition) {
	t.Helper()

	competitions := newMemCompetitionRepo()
	submissions := newMemSubmissionRepo()
	paymentRepo := newMemPaymentRepo()
	storage := &fakeStorage{}
	processor := &fakeProcessor{}
	screener := &fakeScreener{}

	competition := models.Competition{
		Title:              "EdTech Pitch-Off",
		Slug:               "edtech-pitch-off",
		Status:             models.CompetitionStatusActive,
		EntryFee:           decimal.NewFromInt(25),
		PrizePool:          decimal.NewFromInt(5000),
		MaxEntries:         2,
		OpenDate:           time.Now().Add(-24 * time.Hour),
		Deadline:           time.Now().Add(24 * time.Hour),
		RubricJSON:         []byte(`{"innovation":{"weight":1}}`),
		PrizeStructureJSON: []byte(`[{"place":"first","percentage":1.0}]`),
	}
	require.NoError(t, competitions.Create(context.Background(), &competition))

	svc := NewSubmissionService(
		competitions, submissions, paymentRepo,
		validator.New(validator.WithRequiredStructEnabled()),
		storage, processor, screener, testLogger(),
	)

	return submissionFixture{
		competitions: competitions,
		submissions:  submissions,
		payments:     paymentRepo,
		storage:      storage,
		processor:    processor,
		screener:     screener,
		service:      svc,
	}, competition
}

func draftWithVideo(t *testing.T, fixture submissionFixture, competitionID, userID uint) dto.SubmissionResponse {
	t.Helper()
	ctx := context.Background()

	draft, err := fixture.service.Create(ctx, userID, dto.SubmissionCreateRequest{
		CompetitionID: competitionID,
		Title:         "Adaptive Tutor",
		Description:   "An AI tutor that adapts to each learner.",
	})
	require.NoError(t, err)

	registered, err := fixture.service.RegisterAttachment(ctx, userID, draft.ID, dto.AttachmentRequest{
		Kind:        "video",
		ObjectKey:   "submissions/1/video/pitch.mp4",
		ContentType: "video/mp4",
		SizeBytes:   1 << 20,
	})
	require.NoError(t, err)
	return registered
}

func TestCreateSubmissionDraft(t *testing.T) {
	fixture, competition := newSubmissionFixture(t)
	ctx := context.Background()

	response, err := fixture.service.Create(ctx, 100, dto.SubmissionCreateRequest{
		CompetitionID: competition.ID,
		Title:         "Adaptive Tutor",
		Description:   "Learns the learner. <script>alert(1)</script>",
	})
	require.NoError(t, err)
	require.Equal(t, models.SubmissionStatusDraft, response.Status)
	require.NotContains(t, response.Description, "<script>")
}

func TestCreateSubmissionRequiresActiveCompetition(t *testing.T) {
	fixture, competition := newSubmissionFixture(t)
	ctx := context.Background()

	competition.Status = models.CompetitionStatusUpcoming
	require.NoError(t, fixture.competitions.Update(ctx, &competition))

	_, err := fixture.service.Create(ctx, 100, dto.SubmissionCreateRequest{
		CompetitionID: competition.ID,
		Title:         "Adaptive Tutor",
		Description:   "An AI tutor that adapts.",
	})
	require.ErrorIs(t, err, ErrCompetitionNotOpen)

	_, err = fixture.service.Create(ctx, 100, dto.SubmissionCreateRequest{
		CompetitionID: 999,
		Title:         "Adaptive Tutor",
		Description:   "An AI tutor that adapts.",
	})
	require.ErrorIs(t, err, ErrCompetitionNotFound)
}

func TestPresignAttachmentChecksContentType(t *testing.T) {
	fixture, competition := newSubmissionFixture(t)
	ctx := context.Background()

	draft, err := fixture.service.Create(ctx, 100, dto.SubmissionCreateRequest{
		CompetitionID: competition.ID,
		Title:         "Adaptive Tutor",
		Description:   "An AI tutor that adapts.",
	})
	require.NoError(t, err)

	presign, err := fixture.service.PresignAttachment(ctx, 100, draft.ID, dto.PresignRequest{
		Kind:        "video",
		FileName:    "pitch.mp4",
		ContentType: "video/mp4",
	})
	require.NoError(t, err)
	require.Contains(t, presign.UploadURL, "https://uploads.test/")
	require.Contains(t, presign.ObjectKey, ".mp4")
	require.True(t, presign.ExpiresAt.After(time.Now()))

	_, err = fixture.service.PresignAttachment(ctx, 100, draft.ID, dto.PresignRequest{
		Kind:        "deck",
		FileName:    "deck.mp4",
		ContentType: "video/mp4",
	})
	require.ErrorIs(t, err, ErrUnsupportedFileType)
}

func TestRegisterAttachmentReplacesPerKind(t *testing.T) {
	fixture, competition := newSubmissionFixture(t)
	ctx := context.Background()

	registered := draftWithVideo(t, fixture, competition.ID, 100)
	require.Len(t, registered.Attachments, 1)
	require.Equal(t, "https://cdn.test/submissions/1/video/pitch.mp4", registered.Attachments[0].URL)

	replaced, err := fixture.service.RegisterAttachment(ctx, 100, registered.ID, dto.AttachmentRequest{
		Kind:        "video",
		ObjectKey:   "submissions/1/video/retake.mp4",
		ContentType: "video/mp4",
		SizeBytes:   2 << 20,
	})
	require.NoError(t, err)
	require.Len(t, replaced.Attachments, 1)
	require.Contains(t, replaced.Attachments[0].URL, "retake.mp4")

	withDeck, err := fixture.service.RegisterAttachment(ctx, 100, registered.ID, dto.AttachmentRequest{
		Kind:        "deck",
		ObjectKey:   "submissions/1/deck/deck.pdf",
		ContentType: "application/pdf",
		SizeBytes:   1 << 19,
	})
	require.NoError(t, err)
	require.Len(t, withDeck.Attachments, 2)
}

func TestFinalizeSubmission(t *testing.T) {
	fixture, competition := newSubmissionFixture(t)
	ctx := context.Background()

	draft := draftWithVideo(t, fixture, competition.ID, 100)

	finalized, err := fixture.service.Finalize(ctx, 100, draft.ID)
	require.NoError(t, err)
	require.Equal(t, models.SubmissionStatusSubmitted, finalized.Status)
	require.NotNil(t, finalized.SubmittedAt)
	require.Equal(t, 1, fixture.screener.calls)

	stored, err := fixture.competitions.GetByID(ctx, competition.ID)
	require.NoError(t, err)
	require.Equal(t, 1, stored.CurrentEntries)

	// Finalized submissions are locked.
	_, err = fixture.service.Finalize(ctx, 100, draft.ID)
	require.ErrorIs(t, err, ErrSubmissionLocked)
}

func TestFinalizeRequiresPitchVideo(t *testing.T) {
	fixture, competition := newSubmissionFixture(t)
	ctx := context.Background()

	draft, err := fixture.service.Create(ctx, 100, dto.SubmissionCreateRequest{
		CompetitionID: competition.ID,
		Title:         "Adaptive Tutor",
		Description:   "An AI tutor that adapts.",
	})
	require.NoError(t, err)

	_, err = fixture.service.Finalize(ctx, 100, draft.ID)
	require.ErrorIs(t, err, ErrMissingPitchVideo)
}

func TestFinalizeRespectsDeadlineAndCap(t *testing.T) {
	fixture, competition := newSubmissionFixture(t)
	ctx := context.Background()

	draft := draftWithVideo(t, fixture, competition.ID, 100)

	competition.Deadline = time.Now().Add(-time.Minute)
	require.NoError(t, fixture.competitions.Update(ctx, &competition))
	_, err := fixture.service.Finalize(ctx, 100, draft.ID)
	require.ErrorIs(t, err, ErrCompetitionNotOpen)

	competition.Deadline = time.Now().Add(time.Hour)
	competition.CurrentEntries = competition.MaxEntries
	require.NoError(t, fixture.competitions.Update(ctx, &competition))
	_, err = fixture.service.Finalize(ctx, 100, draft.ID)
	require.ErrorIs(t, err, ErrCompetitionFull)
}

func TestFinalizeChargesEntryFee(t *testing.T) {
	fixture, competition := newSubmissionFixture(t)
	ctx := context.Background()

	draft := draftWithVideo(t, fixture, competition.ID, 100)

	finalized, err := fixture.service.Finalize(ctx, 100, draft.ID)
	require.NoError(t, err)
	require.Equal(t, models.SubmissionStatusSubmitted, finalized.Status)

	require.Len(t, fixture.processor.charges, 1)
	require.Equal(t, "entry-comp-1-sub-1-v1", fixture.processor.charges[0].IdempotencyKey)
	require.True(t, fixture.processor.charges[0].Amount.Equal(decimal.NewFromInt(25)))

	payment, err := fixture.payments.GetEntryFeeBySubmission(ctx, draft.ID)
	require.NoError(t, err)
	require.Equal(t, models.PaymentStatusCompleted, payment.Status)
	require.Equal(t, uint(100), payment.UserID)
	require.NotEmpty(t, payment.ProcessorTransferID)

	// The fee net of the platform cut feeds the prize pool.
	stored, err := fixture.competitions.GetByID(ctx, competition.ID)
	require.NoError(t, err)
	require.True(t, stored.PrizePool.Equal(decimal.NewFromInt(5025)),
		"expected 5025, got %s", stored.PrizePool)
}

func TestFinalizeEntryFeeFailureAllowsRetry(t *testing.T) {
	fixture, competition := newSubmissionFixture(t)
	ctx := context.Background()

	draft := draftWithVideo(t, fixture, competition.ID, 100)

	fixture.processor.chargeErr = errors.New("card declined")
	_, err := fixture.service.Finalize(ctx, 100, draft.ID)
	require.ErrorIs(t, err, ErrEntryFeePaymentFailed)

	stored, err := fixture.submissions.GetByID(ctx, draft.ID)
	require.NoError(t, err)
	require.Equal(t, models.SubmissionStatusPendingPayment, stored.Status)

	payment, err := fixture.payments.GetEntryFeeBySubmission(ctx, draft.ID)
	require.NoError(t, err)
	require.Equal(t, models.PaymentStatusFailed, payment.Status)

	// A declined charge is retriable from pending_payment.
	fixture.processor.chargeErr = nil
	finalized, err := fixture.service.Finalize(ctx, 100, draft.ID)
	require.NoError(t, err)
	require.Equal(t, models.SubmissionStatusSubmitted, finalized.Status)
	require.Len(t, fixture.processor.charges, 2)
}

func TestFinalizeSkipsChargeWhenFeeAlreadyPaid(t *testing.T) {
	fixture, competition := newSubmissionFixture(t)
	ctx := context.Background()

	draft := draftWithVideo(t, fixture, competition.ID, 100)

	submissionID := draft.ID
	require.NoError(t, fixture.payments.Create(ctx, &models.Payment{
		Type:          models.PaymentTypeEntryFee,
		Status:        models.PaymentStatusCompleted,
		Amount:        decimal.NewFromInt(25),
		UserID:        100,
		CompetitionID: competition.ID,
		SubmissionID:  &submissionID,
	}))

	finalized, err := fixture.service.Finalize(ctx, 100, draft.ID)
	require.NoError(t, err)
	require.Equal(t, models.SubmissionStatusSubmitted, finalized.Status)
	require.Empty(t, fixture.processor.charges)
}

func TestFinalizeSkipsChargeForFreeCompetition(t *testing.T) {
	fixture, competition := newSubmissionFixture(t)
	ctx := context.Background()

	competition.EntryFee = decimal.Zero
	require.NoError(t, fixture.competitions.Update(ctx, &competition))

	draft := draftWithVideo(t, fixture, competition.ID, 100)

	finalized, err := fixture.service.Finalize(ctx, 100, draft.ID)
	require.NoError(t, err)
	require.Equal(t, models.SubmissionStatusSubmitted, finalized.Status)
	require.Empty(t, fixture.processor.charges)

	payouts, err := fixture.payments.ListPayoutsByCompetition(ctx, competition.ID)
	require.NoError(t, err)
	require.Empty(t, payouts)
}

func TestFinalizeCountsLiveSubmittedEntries(t *testing.T) {
	fixture, competition := newSubmissionFixture(t)
	ctx := context.Background()

	// The counter lags; the live submitted count still enforces the cap.
	for i := 0; i < competition.MaxEntries; i++ {
		submission := models.Submission{
			CompetitionID: competition.ID,
			UserID:        uint(200 + i),
			Title:         "Pitch",
			Status:        models.SubmissionStatusSubmitted,
		}
		require.NoError(t, fixture.submissions.Create(ctx, &submission))
	}

	draft := draftWithVideo(t, fixture, competition.ID, 100)
	_, err := fixture.service.Finalize(ctx, 100, draft.ID)
	require.ErrorIs(t, err, ErrCompetitionFull)
}

func TestSubmissionOwnershipAndVisibility(t *testing.T) {
	fixture, competition := newSubmissionFixture(t)
	ctx := context.Background()

	draft := draftWithVideo(t, fixture, competition.ID, 100)

	_, err := fixture.service.Update(ctx, 200, draft.ID, dto.SubmissionUpdateRequest{})
	require.ErrorIs(t, err, ErrNotSubmissionOwner)

	_, err = fixture.service.Get(ctx, draft.ID, 200, models.RoleFounder)
	require.ErrorIs(t, err, ErrNotSubmissionOwner)

	_, err = fixture.service.Get(ctx, draft.ID, 100, models.RoleFounder)
	require.NoError(t, err)

	_, err = fixture.service.Get(ctx, draft.ID, 200, models.RoleAdmin)
	require.NoError(t, err)

	isPublic := true
	_, err = fixture.service.Update(ctx, 100, draft.ID, dto.SubmissionUpdateRequest{IsPublic: &isPublic})
	require.NoError(t, err)
	_, err = fixture.service.Get(ctx, draft.ID, 200, models.RoleFounder)
	require.NoError(t, err)
}
