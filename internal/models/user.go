package models

import "time"

// User roles.
const (
	RoleFounder = "founder"
	RoleJudge   = "judge"
	RoleAdmin   = "admin"
)

// User represents an account on the marketplace: founders submit pitches,
// judges score them, admins run competitions.
type User struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	Email     string `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Username  string `gorm:"size:100;uniqueIndex;not null" json:"username"`
	Role      string `gorm:"size:32;not null;default:founder;index" json:"role"`
	AvatarURL string `gorm:"size:512" json:"avatar_url"`

	// Payment-processor connect account state; the processor owns the details.
	ConnectAccountID   string `gorm:"size:255" json:"connect_account_id"`
	OnboardingComplete bool   `gorm:"not null;default:false" json:"onboarding_complete"`
	PayoutsEnabled     bool   `gorm:"not null;default:false" json:"payouts_enabled"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CanJudge reports whether the user may score submissions.
func (u User) CanJudge() bool {
	return u.Role == RoleJudge || u.Role == RoleAdmin
}

// PayoutReady reports whether the user can receive prize transfers.
func (u User) PayoutReady() bool {
	return u.ConnectAccountID != "" && u.OnboardingComplete && u.PayoutsEnabled
}
