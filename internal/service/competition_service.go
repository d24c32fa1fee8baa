package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/pitcharena/pitcharena-api/internal/dto"
	"github.com/pitcharena/pitcharena-api/internal/models"
	"github.com/pitcharena/pitcharena-api/internal/repository"
	"github.com/pitcharena/pitcharena-api/internal/schema"
)

// ErrCompetitionNotFound indicates the competition does not exist.
var ErrCompetitionNotFound = errors.New("competition not found")

// ErrInvalidPrizeStructure indicates the declared places are not unique or
// their percentages do not sum to exactly 1.
var ErrInvalidPrizeStructure = errors.New("prize percentages must be unique places summing to 1.0")

// ErrInvalidDates indicates the deadline does not fall after the open date.
var ErrInvalidDates = errors.New("deadline must be after the open date")

// ErrInvalidStatusTransition indicates a lifecycle jump that is not allowed.
var ErrInvalidStatusTransition = errors.New("invalid competition status transition")

// ErrCompetitionLocked indicates a mutation that is only allowed before the
// competition opens for entries.
var ErrCompetitionLocked = errors.New("competition is locked once it opens")

// FileUploader abstracts uploading binary data and returning a URL.
type FileUploader interface {
	Upload(ctx context.Context, name string, reader io.Reader) (string, error)
}

// CompetitionService manages the competition catalogue and lifecycle.
type CompetitionService interface {
	List(ctx context.Context, payload dto.CompetitionListRequest) (dto.CompetitionListResponse, error)
	Get(ctx context.Context, id uint) (dto.CompetitionResponse, error)
	GetBySlug(ctx context.Context, slugValue string) (dto.CompetitionResponse, error)
	Create(ctx context.Context, payload dto.CompetitionCreateRequest, actorID uint) (dto.CompetitionResponse, error)
	Update(ctx context.Context, id uint, payload dto.CompetitionUpdateRequest) (dto.CompetitionResponse, error)
	Delete(ctx context.Context, id uint) error
	UploadCover(ctx context.Context, id uint, filename string, reader io.Reader) (dto.CompetitionResponse, error)
}

// Lifecycle moves forward only; winner selection performs judging -> complete.
var allowedTransitions = map[string][]string{
	models.CompetitionStatusDraft:    {models.CompetitionStatusUpcoming},
	models.CompetitionStatusUpcoming: {models.CompetitionStatusActive},
	models.CompetitionStatusActive:   {models.CompetitionStatusClosed},
	models.CompetitionStatusClosed:   {models.CompetitionStatusJudging},
}

type competitionService struct {
	repo      repository.CompetitionRepository
	validator *validator.Validate
	uploader  FileUploader
	events    EventPublisher
	logger    zerolog.Logger
	now       func() time.Time
}

// NewCompetitionService constructs the competition service.
func NewCompetitionService(
	repo repository.CompetitionRepository,
	validate *validator.Validate,
	uploader FileUploader,
	events EventPublisher,
	logger zerolog.Logger,
) CompetitionService {
	return &competitionService{
		repo:      repo,
		validator: validate,
		uploader:  uploader,
		events:    events,
		logger:    logger.With().Str("component", "competition_service").Logger(),
		now:       time.Now,
	}
}

func (s *competitionService) List(ctx context.Context, payload dto.CompetitionListRequest) (dto.CompetitionListResponse, error) {
	pageSize := payload.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	page := payload.Page
	if page <= 0 {
		page = 1
	}

	competitions, total, err := s.repo.List(ctx, repository.CompetitionFilter{
		Search:   payload.Search,
		Domain:   payload.Domain,
		Status:   payload.Status,
		Sort:     payload.Sort,
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		return dto.CompetitionListResponse{}, err
	}

	return dto.CompetitionListResponse{
		Items: dto.NewCompetitionResponseSlice(competitions),
		Pagination: dto.Pagination{
			Page:       page,
			PageSize:   pageSize,
			TotalItems: total,
		},
	}, nil
}

func (s *competitionService) Get(ctx context.Context, id uint) (dto.CompetitionResponse, error) {
	competition, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.CompetitionResponse{}, ErrCompetitionNotFound
		}
		return dto.CompetitionResponse{}, err
	}
	return dto.NewCompetitionResponse(competition), nil
}

func (s *competitionService) GetBySlug(ctx context.Context, slugValue string) (dto.CompetitionResponse, error) {
	competition, err := s.repo.GetBySlug(ctx, slugValue)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.CompetitionResponse{}, ErrCompetitionNotFound
		}
		return dto.CompetitionResponse{}, err
	}
	return dto.NewCompetitionResponse(competition), nil
}

func (s *competitionService) Create(ctx context.Context, payload dto.CompetitionCreateRequest, actorID uint) (dto.CompetitionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.CompetitionResponse{}, err
	}

	openDate, err := time.Parse(time.RFC3339, payload.OpenDate)
	if err != nil {
		return dto.CompetitionResponse{}, err
	}
	deadline, err := time.Parse(time.RFC3339, payload.Deadline)
	if err != nil {
		return dto.CompetitionResponse{}, err
	}
	if !deadline.After(openDate) {
		return dto.CompetitionResponse{}, ErrInvalidDates
	}

	if err := schema.ValidateRubric(payload.Rubric); err != nil {
		return dto.CompetitionResponse{}, err
	}

	structureJSON, err := encodePrizeStructure(payload.PrizeStructure)
	if err != nil {
		return dto.CompetitionResponse{}, err
	}

	competition := models.Competition{
		Title:                 strings.TrimSpace(payload.Title),
		Slug:                  s.uniqueSlug(ctx, payload.Title),
		Description:           strings.TrimSpace(payload.Description),
		Domain:                strings.ToLower(strings.TrimSpace(payload.Domain)),
		EntryFee:              payload.EntryFee,
		PrizePool:             payload.PrizePool,
		PlatformFeePercentage: payload.PlatformFeePercentage,
		MaxEntries:            payload.MaxEntries,
		OpenDate:              openDate,
		Deadline:              deadline,
		JudgingSLADays:        payload.JudgingSLADays,
		Status:                models.CompetitionStatusDraft,
		RubricJSON:            datatypes.JSON(payload.Rubric),
		PrizeStructureJSON:    structureJSON,
		CreatedBy:             actorID,
	}

	if err := s.repo.Create(ctx, &competition); err != nil {
		return dto.CompetitionResponse{}, err
	}

	s.logger.Info().
		Uint("competition_id", competition.ID).
		Str("slug", competition.Slug).
		Msg("competition created")

	return dto.NewCompetitionResponse(competition), nil
}

func (s *competitionService) Update(ctx context.Context, id uint, payload dto.CompetitionUpdateRequest) (dto.CompetitionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.CompetitionResponse{}, err
	}

	competition, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.CompetitionResponse{}, ErrCompetitionNotFound
		}
		return dto.CompetitionResponse{}, err
	}

	editable := competition.Status == models.CompetitionStatusDraft ||
		competition.Status == models.CompetitionStatusUpcoming

	if payload.Title != nil {
		competition.Title = strings.TrimSpace(*payload.Title)
	}
	if payload.Description != nil {
		competition.Description = strings.TrimSpace(*payload.Description)
	}
	if payload.Domain != nil {
		competition.Domain = strings.ToLower(strings.TrimSpace(*payload.Domain))
	}
	if payload.MaxEntries != nil {
		competition.MaxEntries = *payload.MaxEntries
	}
	if payload.OpenDate != nil {
		openDate, err := time.Parse(time.RFC3339, *payload.OpenDate)
		if err != nil {
			return dto.CompetitionResponse{}, err
		}
		competition.OpenDate = openDate
	}
	if payload.Deadline != nil {
		deadline, err := time.Parse(time.RFC3339, *payload.Deadline)
		if err != nil {
			return dto.CompetitionResponse{}, err
		}
		competition.Deadline = deadline
	}
	if !competition.Deadline.After(competition.OpenDate) {
		return dto.CompetitionResponse{}, ErrInvalidDates
	}

	if payload.Rubric != nil {
		if !editable {
			return dto.CompetitionResponse{}, ErrCompetitionLocked
		}
		if err := schema.ValidateRubric(payload.Rubric); err != nil {
			return dto.CompetitionResponse{}, err
		}
		competition.RubricJSON = datatypes.JSON(payload.Rubric)
	}
	if len(payload.PrizeStructure) > 0 {
		if !editable {
			return dto.CompetitionResponse{}, ErrCompetitionLocked
		}
		structureJSON, err := encodePrizeStructure(payload.PrizeStructure)
		if err != nil {
			return dto.CompetitionResponse{}, err
		}
		competition.PrizeStructureJSON = structureJSON
	}

	if payload.Status != nil && *payload.Status != competition.Status {
		if !transitionAllowed(competition.Status, *payload.Status) {
			return dto.CompetitionResponse{}, ErrInvalidStatusTransition
		}
		competition.Status = *payload.Status
		_ = s.events.Publish(SubjectCompetitionStatus, map[string]any{
			"competition_id": competition.ID,
			"status":         competition.Status,
		})
	}

	if err := s.repo.Update(ctx, &competition); err != nil {
		return dto.CompetitionResponse{}, err
	}
	return dto.NewCompetitionResponse(competition), nil
}

func (s *competitionService) Delete(ctx context.Context, id uint) error {
	competition, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCompetitionNotFound
		}
		return err
	}
	if competition.Status != models.CompetitionStatusDraft {
		return ErrCompetitionLocked
	}
	return s.repo.Delete(ctx, id)
}

func (s *competitionService) UploadCover(ctx context.Context, id uint, filename string, reader io.Reader) (dto.CompetitionResponse, error) {
	competition, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.CompetitionResponse{}, ErrCompetitionNotFound
		}
		return dto.CompetitionResponse{}, err
	}

	url, err := s.uploader.Upload(ctx, filename, reader)
	if err != nil {
		return dto.CompetitionResponse{}, err
	}

	competition.ImageKey = filename
	competition.ImageURL = url
	if err := s.repo.Update(ctx, &competition); err != nil {
		return dto.CompetitionResponse{}, err
	}
	return dto.NewCompetitionResponse(competition), nil
}

// uniqueSlug derives a URL slug from the title, suffixing a short random id
// when the natural slug is taken.
func (s *competitionService) uniqueSlug(ctx context.Context, title string) string {
	base := slug.Make(title)
	if _, err := s.repo.GetBySlug(ctx, base); errors.Is(err, gorm.ErrRecordNotFound) {
		return base
	}
	return fmt.Sprintf("%s-%s", base, uuid.NewString()[:8])
}

func transitionAllowed(from, to string) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// encodePrizeStructure validates the authored places (unique names, fractions
// summing to exactly 1) and returns the canonical stored form.
func encodePrizeStructure(places []dto.PrizePlaceRequest) (datatypes.JSON, error) {
	if len(places) == 0 {
		return nil, ErrInvalidPrizeStructure
	}

	structure := make(models.PrizeStructure, 0, len(places))
	seen := make(map[string]bool, len(places))
	sum := decimal.Zero
	for _, place := range places {
		name := strings.TrimSpace(place.Place)
		if name == "" || seen[name] {
			return nil, ErrInvalidPrizeStructure
		}
		if place.Percentage.LessThanOrEqual(decimal.Zero) || place.Percentage.GreaterThan(decimal.NewFromInt(1)) {
			return nil, ErrInvalidPrizeStructure
		}
		seen[name] = true
		sum = sum.Add(place.Percentage)
		structure = append(structure, models.PrizePlace{Place: name, Percentage: place.Percentage})
	}
	if !sum.Equal(decimal.NewFromInt(1)) {
		return nil, ErrInvalidPrizeStructure
	}

	encoded, err := json.Marshal(structure)
	if err != nil {
		return nil, err
	}
	if err := schema.ValidatePrizeStructure(encoded); err != nil {
		return nil, err
	}
	return datatypes.JSON(encoded), nil
}
