package service

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/pitcharena/pitcharena-api/internal/dto"
	"github.com/pitcharena/pitcharena-api/internal/models"
)

func newCompetitionService(t *testing.T) (CompetitionService, *memCompetitionRepo, *fakeUploader, *fakeEvents) {
	t.Helper()

	repo := newMemCompetitionRepo()
	uploader := &fakeUploader{}
	events := &fakeEvents{}
	svc := NewCompetitionService(repo, validator.New(validator.WithRequiredStructEnabled()), uploader, events, testLogger())
	return svc, repo, uploader, events
}

func validCreateRequest() dto.CompetitionCreateRequest {
	return dto.CompetitionCreateRequest{
		Title:                 "Spring Fintech Pitch-Off",
		Description:           "Pitch your fintech startup to a panel of investors.",
		Domain:                "Fintech",
		EntryFee:              decimal.NewFromInt(50),
		PrizePool:             decimal.NewFromInt(10000),
		PlatformFeePercentage: decimal.NewFromInt(10),
		MaxEntries:            100,
		OpenDate:              time.Now().Add(24 * time.Hour).Format(time.RFC3339),
		Deadline:              time.Now().Add(14 * 24 * time.Hour).Format(time.RFC3339),
		JudgingSLADays:        7,
		Rubric:                json.RawMessage(`{"innovation":{"description":"novelty","weight":2},"market":{"weight":1}}`),
		PrizeStructure: []dto.PrizePlaceRequest{
			{Place: "first", Percentage: decimal.NewFromFloat(0.6)},
			{Place: "second", Percentage: decimal.NewFromFloat(0.4)},
		},
	}
}

func TestCreateCompetition(t *testing.T) {
	svc, _, _, _ := newCompetitionService(t)

	response, err := svc.Create(context.Background(), validCreateRequest(), 1)
	require.NoError(t, err)
	require.Equal(t, "spring-fintech-pitch-off", response.Slug)
	require.Equal(t, "fintech", response.Domain)
	require.Equal(t, models.CompetitionStatusDraft, response.Status)
	require.Len(t, response.PrizeStructure, 2)
	require.Equal(t, "first", response.PrizeStructure[0].Place)
}

func TestCreateCompetitionSlugCollision(t *testing.T) {
	svc, _, _, _ := newCompetitionService(t)
	ctx := context.Background()

	first, err := svc.Create(ctx, validCreateRequest(), 1)
	require.NoError(t, err)

	second, err := svc.Create(ctx, validCreateRequest(), 1)
	require.NoError(t, err)
	require.NotEqual(t, first.Slug, second.Slug)
	require.True(t, strings.HasPrefix(second.Slug, first.Slug+"-"))
}

func TestCreateCompetitionRejectsBadPrizeStructure(t *testing.T) {
	svc, _, _, _ := newCompetitionService(t)
	ctx := context.Background()

	payload := validCreateRequest()
	payload.PrizeStructure = []dto.PrizePlaceRequest{
		{Place: "first", Percentage: decimal.NewFromFloat(0.6)},
		{Place: "second", Percentage: decimal.NewFromFloat(0.3)},
	}
	_, err := svc.Create(ctx, payload, 1)
	require.ErrorIs(t, err, ErrInvalidPrizeStructure)

	payload = validCreateRequest()
	payload.PrizeStructure = []dto.PrizePlaceRequest{
		{Place: "first", Percentage: decimal.NewFromFloat(0.5)},
		{Place: "first", Percentage: decimal.NewFromFloat(0.5)},
	}
	_, err = svc.Create(ctx, payload, 1)
	require.ErrorIs(t, err, ErrInvalidPrizeStructure)
}

func TestCreateCompetitionRejectsBadDatesAndRubric(t *testing.T) {
	svc, _, _, _ := newCompetitionService(t)
	ctx := context.Background()

	payload := validCreateRequest()
	payload.Deadline = payload.OpenDate
	_, err := svc.Create(ctx, payload, 1)
	require.ErrorIs(t, err, ErrInvalidDates)

	payload = validCreateRequest()
	payload.Rubric = json.RawMessage(`{"innovation":{"description":"missing weight"}}`)
	_, err = svc.Create(ctx, payload, 1)
	require.Error(t, err)
}

func TestUpdateCompetitionStatusTransitions(t *testing.T) {
	svc, _, _, events := newCompetitionService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, validCreateRequest(), 1)
	require.NoError(t, err)

	upcoming := models.CompetitionStatusUpcoming
	updated, err := svc.Update(ctx, created.ID, dto.CompetitionUpdateRequest{Status: &upcoming})
	require.NoError(t, err)
	require.Equal(t, upcoming, updated.Status)
	require.True(t, events.published(SubjectCompetitionStatus))

	judging := models.CompetitionStatusJudging
	_, err = svc.Update(ctx, created.ID, dto.CompetitionUpdateRequest{Status: &judging})
	require.ErrorIs(t, err, ErrInvalidStatusTransition)
}

func TestUpdateCompetitionLocksRubricAfterOpening(t *testing.T) {
	svc, repo, _, _ := newCompetitionService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, validCreateRequest(), 1)
	require.NoError(t, err)

	stored, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	stored.Status = models.CompetitionStatusActive
	require.NoError(t, repo.Update(ctx, &stored))

	_, err = svc.Update(ctx, created.ID, dto.CompetitionUpdateRequest{
		Rubric: json.RawMessage(`{"pivoted":{"weight":1}}`),
	})
	require.ErrorIs(t, err, ErrCompetitionLocked)
}

func TestDeleteCompetitionOnlyDrafts(t *testing.T) {
	svc, repo, _, _ := newCompetitionService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, validCreateRequest(), 1)
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, created.ID))

	second, err := svc.Create(ctx, validCreateRequest(), 1)
	require.NoError(t, err)
	stored, err := repo.GetByID(ctx, second.ID)
	require.NoError(t, err)
	stored.Status = models.CompetitionStatusActive
	require.NoError(t, repo.Update(ctx, &stored))

	require.ErrorIs(t, svc.Delete(ctx, second.ID), ErrCompetitionLocked)
	require.ErrorIs(t, svc.Delete(ctx, 999), ErrCompetitionNotFound)
}

func TestUploadCover(t *testing.T) {
	svc, _, uploader, _ := newCompetitionService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, validCreateRequest(), 1)
	require.NoError(t, err)

	response, err := svc.UploadCover(ctx, created.ID, "cover.png", strings.NewReader("png-bytes"))
	require.NoError(t, err)
	require.Equal(t, 1, uploader.uploads)
	require.Equal(t, "https://images.test/cover.png", response.ImageURL)
}

func TestListCompetitionsFilters(t *testing.T) {
	svc, _, _, _ := newCompetitionService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, validCreateRequest(), 1)
	require.NoError(t, err)

	payload := validCreateRequest()
	payload.Title = "Health Devices Demo Day"
	payload.Domain = "healthtech"
	_, err = svc.Create(ctx, payload, 1)
	require.NoError(t, err)

	all, err := svc.List(ctx, dto.CompetitionListRequest{})
	require.NoError(t, err)
	require.Len(t, all.Items, 2)
	require.Equal(t, int64(2), all.Pagination.TotalItems)

	filtered, err := svc.List(ctx, dto.CompetitionListRequest{Domain: "healthtech"})
	require.NoError(t, err)
	require.Len(t, filtered.Items, 1)
	require.Equal(t, "Health Devices Demo Day", filtered.Items[0].Title)
}
