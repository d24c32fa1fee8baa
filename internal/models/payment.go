package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment types and statuses. Amounts are tracked locally; the external
// processor owns the money movement.
const (
	PaymentTypeEntryFee    = "entry_fee"
	PaymentTypePrizePayout = "prize_payout"

	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
	PaymentStatusFailed    = "failed"
)

// Payment records one money movement tied to a competition.
type Payment struct {
	ID     uint            `gorm:"primaryKey" json:"id"`
	Type   string          `gorm:"size:32;not null;index" json:"type"`
	Amount decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"amount"`
	Status string          `gorm:"size:32;not null;default:pending;index" json:"status"`

	ProcessorTransferID string `gorm:"size:255" json:"processor_transfer_id"`

	UserID        uint  `gorm:"not null;index" json:"user_id"`
	CompetitionID uint  `gorm:"not null;index" json:"competition_id"`
	SubmissionID  *uint `gorm:"index" json:"submission_id"`

	ProcessedAt *time.Time `json:"processed_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	User        User        `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	Competition Competition `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

// InFlightOrPaid reports whether the payout is already paid or in flight, in
// which case it must not be re-issued.
func (p Payment) InFlightOrPaid() bool {
	return p.Status == PaymentStatusCompleted || p.Status == PaymentStatusPending
}
