package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/pitcharena/pitcharena-api/internal/models"
)

// SubmissionCreateRequest describes a founder's draft entry.
type SubmissionCreateRequest struct {
	CompetitionID uint   `json:"competition_id" validate:"required"`
	Title         string `json:"title" validate:"required,min=3"`
	Description   string `json:"description" validate:"required,min=10"`
	IsPublic      bool   `json:"is_public"`
}

// SubmissionUpdateRequest describes a partial draft update.
type SubmissionUpdateRequest struct {
	Title       *string `json:"title" validate:"omitempty,min=3"`
	Description *string `json:"description" validate:"omitempty,min=10"`
	IsPublic    *bool   `json:"is_public"`
}

// AttachmentRequest registers an uploaded pitch asset against a submission.
type AttachmentRequest struct {
	Kind        string `json:"kind" validate:"required,oneof=video deck"`
	ObjectKey   string `json:"object_key" validate:"required"`
	ContentType string `json:"content_type" validate:"required"`
	SizeBytes   int64  `json:"size_bytes" validate:"required,min=1"`
}

// PresignRequest asks for a presigned upload slot for a pitch asset.
type PresignRequest struct {
	Kind        string `json:"kind" validate:"required,oneof=video deck"`
	FileName    string `json:"file_name" validate:"required"`
	ContentType string `json:"content_type" validate:"required"`
}

// PresignResponse carries a presigned upload URL and the object key to
// register once the upload completes.
type PresignResponse struct {
	UploadURL string    `json:"upload_url"`
	ObjectKey string    `json:"object_key"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SubmissionResponse is the serialized representation returned to API clients.
type SubmissionResponse struct {
	ID            uint                `json:"id"`
	CompetitionID uint                `json:"competition_id"`
	UserID        uint                `json:"user_id"`
	Title         string              `json:"title"`
	Description   string              `json:"description"`
	Status        string              `json:"status"`
	IsPublic      bool                `json:"is_public"`
	Attachments   []models.Attachment `json:"attachments"`
	FinalScore    *decimal.Decimal    `json:"final_score"`
	Placement     *string             `json:"placement"`
	SubmittedAt   *time.Time          `json:"submitted_at"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

// NewSubmissionResponse converts a model into a DTO.
func NewSubmissionResponse(model models.Submission) SubmissionResponse {
	attachments, _ := model.Attachments()

	return SubmissionResponse{
		ID:            model.ID,
		CompetitionID: model.CompetitionID,
		UserID:        model.UserID,
		Title:         model.Title,
		Description:   model.Description,
		Status:        model.Status,
		IsPublic:      model.IsPublic,
		Attachments:   attachments,
		FinalScore:    model.FinalScore,
		Placement:     model.Placement,
		SubmittedAt:   model.SubmittedAt,
		CreatedAt:     model.CreatedAt,
		UpdatedAt:     model.UpdatedAt,
	}
}

// NewSubmissionResponseSlice converts a slice of models into DTOs.
func NewSubmissionResponseSlice(submissions []models.Submission) []SubmissionResponse {
	responses := make([]SubmissionResponse, 0, len(submissions))
	for _, submission := range submissions {
		responses = append(responses, NewSubmissionResponse(submission))
	}
	return responses
}
