package dto

import (
	"time"

	"github.com/pitcharena/pitcharena-api/internal/models"
)

// UserResponse is the account listing entry returned to admins.
type UserResponse struct {
	ID                 uint      `json:"id"`
	Email              string    `json:"email"`
	Username           string    `json:"username"`
	Role               string    `json:"role"`
	AvatarURL          string    `json:"avatar_url"`
	OnboardingComplete bool      `json:"onboarding_complete"`
	PayoutsEnabled     bool      `json:"payouts_enabled"`
	CreatedAt          time.Time `json:"created_at"`
}

// NewUserResponse converts a model into a DTO.
func NewUserResponse(model models.User) UserResponse {
	return UserResponse{
		ID:                 model.ID,
		Email:              model.Email,
		Username:           model.Username,
		Role:               model.Role,
		AvatarURL:          model.AvatarURL,
		OnboardingComplete: model.OnboardingComplete,
		PayoutsEnabled:     model.PayoutsEnabled,
		CreatedAt:          model.CreatedAt,
	}
}

// NewUserResponseSlice converts a slice of models into DTOs.
func NewUserResponseSlice(users []models.User) []UserResponse {
	responses := make([]UserResponse, 0, len(users))
	for _, user := range users {
		responses = append(responses, NewUserResponse(user))
	}
	return responses
}
