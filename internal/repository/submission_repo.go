package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/pitcharena/pitcharena-api/internal/models"
)

// SubmissionRepository defines persistence operations for submissions.
type SubmissionRepository interface {
	GetByID(ctx context.Context, id uint) (models.Submission, error)
	Create(ctx context.Context, submission *models.Submission) error
	Update(ctx context.Context, submission *models.Submission) error
	ListByCompetition(ctx context.Context, competitionID uint, statuses []string) ([]models.Submission, error)
	ListByUser(ctx context.Context, userID uint) ([]models.Submission, error)
	ListByIDs(ctx context.Context, ids []uint) ([]models.Submission, error)
	CountByCompetition(ctx context.Context, competitionID uint) (int64, error)
	CountByCompetitionAndStatus(ctx context.Context, competitionID uint, status string) (int64, error)
	UpdateStatuses(ctx context.Context, ids []uint, status string) error
}

type submissionRepository struct {
	db *gorm.DB
}

// NewSubmissionRepository instantiates a GORM-backed repository.
func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

func (r *submissionRepository) GetByID(ctx context.Context, id uint) (models.Submission, error) {
	var submission models.Submission
	if err := r.db.WithContext(ctx).First(&submission, id).Error; err != nil {
		return models.Submission{}, err
	}
	return submission, nil
}

func (r *submissionRepository) Create(ctx context.Context, submission *models.Submission) error {
	return r.db.WithContext(ctx).Create(submission).Error
}

func (r *submissionRepository) Update(ctx context.Context, submission *models.Submission) error {
	return r.db.WithContext(ctx).Save(submission).Error
}

func (r *submissionRepository) ListByCompetition(ctx context.Context, competitionID uint, statuses []string) ([]models.Submission, error) {
	query := r.db.WithContext(ctx).Where("competition_id = ?", competitionID)
	if len(statuses) > 0 {
		query = query.Where("status IN ?", statuses)
	}

	var submissions []models.Submission
	if err := query.Order("id ASC").Find(&submissions).Error; err != nil {
		return nil, err
	}
	return submissions, nil
}

func (r *submissionRepository) ListByUser(ctx context.Context, userID uint) ([]models.Submission, error) {
	var submissions []models.Submission
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&submissions).Error
	if err != nil {
		return nil, err
	}
	return submissions, nil
}

func (r *submissionRepository) ListByIDs(ctx context.Context, ids []uint) ([]models.Submission, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var submissions []models.Submission
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&submissions).Error; err != nil {
		return nil, err
	}
	return submissions, nil
}

func (r *submissionRepository) CountByCompetition(ctx context.Context, competitionID uint) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.Submission{}).
		Where("competition_id = ?", competitionID).
		Count(&total).Error
	return total, err
}

func (r *submissionRepository) CountByCompetitionAndStatus(ctx context.Context, competitionID uint, status string) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.Submission{}).
		Where("competition_id = ? AND status = ?", competitionID, status).
		Count(&total).Error
	return total, err
}

func (r *submissionRepository) UpdateStatuses(ctx context.Context, ids []uint, status string) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.Submission{}).
		Where("id IN ?", ids).
		Update("status", status).Error
}
