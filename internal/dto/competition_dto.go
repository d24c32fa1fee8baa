package dto

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pitcharena/pitcharena-api/internal/models"
)

// Pagination describes a paged listing.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalItems int64 `json:"total_items"`
}

// PrizePlaceRequest is one authored prize place.
type PrizePlaceRequest struct {
	Place      string          `json:"place" validate:"required,min=1"`
	Percentage decimal.Decimal `json:"percentage" validate:"required"`
}

// CompetitionCreateRequest describes the payload for creating a competition.
type CompetitionCreateRequest struct {
	Title                 string              `json:"title" validate:"required,min=3"`
	Description           string              `json:"description" validate:"required,min=10"`
	Domain                string              `json:"domain" validate:"required,min=2"`
	EntryFee              decimal.Decimal     `json:"entry_fee" validate:"required"`
	PrizePool             decimal.Decimal     `json:"prize_pool" validate:"required"`
	PlatformFeePercentage decimal.Decimal     `json:"platform_fee_percentage"`
	MaxEntries            int                 `json:"max_entries" validate:"required,min=1"`
	OpenDate              string              `json:"open_date" validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
	Deadline              string              `json:"deadline" validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
	JudgingSLADays        int                 `json:"judging_sla_days" validate:"required,min=1"`
	Rubric                json.RawMessage     `json:"rubric" validate:"required"`
	PrizeStructure        []PrizePlaceRequest `json:"prize_structure" validate:"required,min=1,dive"`
}

// CompetitionUpdateRequest describes a partial competition update.
type CompetitionUpdateRequest struct {
	Title          *string             `json:"title" validate:"omitempty,min=3"`
	Description    *string             `json:"description" validate:"omitempty,min=10"`
	Domain         *string             `json:"domain" validate:"omitempty,min=2"`
	MaxEntries     *int                `json:"max_entries" validate:"omitempty,min=1"`
	OpenDate       *string             `json:"open_date" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	Deadline       *string             `json:"deadline" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	Status         *string             `json:"status" validate:"omitempty,oneof=draft upcoming active closed judging complete"`
	Rubric         json.RawMessage     `json:"rubric"`
	PrizeStructure []PrizePlaceRequest `json:"prize_structure" validate:"omitempty,min=1,dive"`
}

// CompetitionListRequest describes listing options.
type CompetitionListRequest struct {
	Search   string
	Domain   string
	Status   string
	Sort     string
	Page     int
	PageSize int
}

// CompetitionResponse is the serialized representation returned to API clients.
type CompetitionResponse struct {
	ID                    uint                 `json:"id"`
	Title                 string               `json:"title"`
	Slug                  string               `json:"slug"`
	Description           string               `json:"description"`
	Domain                string               `json:"domain"`
	ImageURL              string               `json:"image_url"`
	EntryFee              decimal.Decimal      `json:"entry_fee"`
	PrizePool             decimal.Decimal      `json:"prize_pool"`
	PlatformFeePercentage decimal.Decimal      `json:"platform_fee_percentage"`
	MaxEntries            int                  `json:"max_entries"`
	CurrentEntries        int                  `json:"current_entries"`
	OpenDate              time.Time            `json:"open_date"`
	Deadline              time.Time            `json:"deadline"`
	JudgingSLADays        int                  `json:"judging_sla_days"`
	Status                string               `json:"status"`
	Rubric                json.RawMessage      `json:"rubric"`
	PrizeStructure        models.PrizeStructure `json:"prize_structure"`
	CreatedAt             time.Time            `json:"created_at"`
	UpdatedAt             time.Time            `json:"updated_at"`
}

// CompetitionListResponse wraps a paged competition listing.
type CompetitionListResponse struct {
	Items      []CompetitionResponse `json:"items"`
	Pagination Pagination            `json:"pagination"`
}

// NewCompetitionResponse converts a model into a DTO.
func NewCompetitionResponse(model models.Competition) CompetitionResponse {
	structure, _ := model.PrizeStructure()

	return CompetitionResponse{
		ID:                    model.ID,
		Title:                 model.Title,
		Slug:                  model.Slug,
		Description:           model.Description,
		Domain:                model.Domain,
		ImageURL:              model.ImageURL,
		EntryFee:              model.EntryFee,
		PrizePool:             model.PrizePool,
		PlatformFeePercentage: model.PlatformFeePercentage,
		MaxEntries:            model.MaxEntries,
		CurrentEntries:        model.CurrentEntries,
		OpenDate:              model.OpenDate,
		Deadline:              model.Deadline,
		JudgingSLADays:        model.JudgingSLADays,
		Status:                model.Status,
		Rubric:                json.RawMessage(model.RubricJSON),
		PrizeStructure:        structure,
		CreatedAt:             model.CreatedAt,
		UpdatedAt:             model.UpdatedAt,
	}
}

// NewCompetitionResponseSlice converts a slice of models into DTOs.
func NewCompetitionResponseSlice(competitions []models.Competition) []CompetitionResponse {
	responses := make([]CompetitionResponse, 0, len(competitions))
	for _, competition := range competitions {
		responses = append(responses, NewCompetitionResponse(competition))
	}
	return responses
}
