package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/pitcharena/pitcharena-api/internal/models"
)

// PaymentRepository defines persistence operations for payment records.
type PaymentRepository interface {
	Create(ctx context.Context, payment *models.Payment) error
	ListPayoutsByCompetition(ctx context.Context, competitionID uint) ([]models.Payment, error)
	GetPayoutBySubmission(ctx context.Context, submissionID uint) (models.Payment, error)
	GetEntryFeeBySubmission(ctx context.Context, submissionID uint) (models.Payment, error)
}

type paymentRepository struct {
	db *gorm.DB
}

// NewPaymentRepository instantiates a GORM-backed repository.
func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r *paymentRepository) ListPayoutsByCompetition(ctx context.Context, competitionID uint) ([]models.Payment, error) {
	var payments []models.Payment
	err := r.db.WithContext(ctx).
		Where("competition_id = ? AND type = ?", competitionID, models.PaymentTypePrizePayout).
		Order("created_at DESC").
		Find(&payments).Error
	if err != nil {
		return nil, err
	}
	return payments, nil
}

func (r *paymentRepository) GetPayoutBySubmission(ctx context.Context, submissionID uint) (models.Payment, error) {
	return r.getBySubmissionAndType(ctx, submissionID, models.PaymentTypePrizePayout)
}

func (r *paymentRepository) GetEntryFeeBySubmission(ctx context.Context, submissionID uint) (models.Payment, error) {
	return r.getBySubmissionAndType(ctx, submissionID, models.PaymentTypeEntryFee)
}

func (r *paymentRepository) getBySubmissionAndType(ctx context.Context, submissionID uint, paymentType string) (models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).
		Where("submission_id = ? AND type = ?", submissionID, paymentType).
		Order("created_at DESC").
		First(&payment).Error
	if err != nil {
		return models.Payment{}, err
	}
	return payment, nil
}
