package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/pitcharena/pitcharena-api/internal/models"
)

// JudgeAssignmentRepository defines persistence operations for judge assignments.
type JudgeAssignmentRepository interface {
	GetByID(ctx context.Context, id uint) (models.JudgeAssignment, error)
	GetByJudgeAndSubmission(ctx context.Context, judgeID, submissionID uint) (models.JudgeAssignment, error)
	ListByCompetition(ctx context.Context, competitionID uint) ([]models.JudgeAssignment, error)
	ListByJudge(ctx context.Context, judgeID uint) ([]models.JudgeAssignment, error)
	Update(ctx context.Context, assignment *models.JudgeAssignment) error
	CreateBatch(ctx context.Context, assignments []models.JudgeAssignment) error
	// ReplaceForCompetition swaps the complete assignment set for a
	// competition in a single transaction: existing pairings are removed and
	// the new ones inserted, so a partial replacement is never observable.
	ReplaceForCompetition(ctx context.Context, competitionID uint, assignments []models.JudgeAssignment) error
}

type judgeAssignmentRepository struct {
	db *gorm.DB
}

// NewJudgeAssignmentRepository instantiates a GORM-backed repository.
func NewJudgeAssignmentRepository(db *gorm.DB) JudgeAssignmentRepository {
	return &judgeAssignmentRepository{db: db}
}

func (r *judgeAssignmentRepository) GetByID(ctx context.Context, id uint) (models.JudgeAssignment, error) {
	var assignment models.JudgeAssignment
	if err := r.db.WithContext(ctx).First(&assignment, id).Error; err != nil {
		return models.JudgeAssignment{}, err
	}
	return assignment, nil
}

func (r *judgeAssignmentRepository) GetByJudgeAndSubmission(ctx context.Context, judgeID, submissionID uint) (models.JudgeAssignment, error) {
	var assignment models.JudgeAssignment
	err := r.db.WithContext(ctx).
		Where("judge_id = ? AND submission_id = ?", judgeID, submissionID).
		First(&assignment).Error
	if err != nil {
		return models.JudgeAssignment{}, err
	}
	return assignment, nil
}

func (r *judgeAssignmentRepository) ListByCompetition(ctx context.Context, competitionID uint) ([]models.JudgeAssignment, error) {
	var assignments []models.JudgeAssignment
	err := r.db.WithContext(ctx).
		Joins("JOIN submissions ON submissions.id = judge_assignments.submission_id").
		Where("submissions.competition_id = ?", competitionID).
		Order("judge_assignments.id ASC").
		Find(&assignments).Error
	if err != nil {
		return nil, err
	}
	return assignments, nil
}

func (r *judgeAssignmentRepository) ListByJudge(ctx context.Context, judgeID uint) ([]models.JudgeAssignment, error) {
	var assignments []models.JudgeAssignment
	err := r.db.WithContext(ctx).
		Where("judge_id = ?", judgeID).
		Order("assigned_at ASC").
		Find(&assignments).Error
	if err != nil {
		return nil, err
	}
	return assignments, nil
}

func (r *judgeAssignmentRepository) Update(ctx context.Context, assignment *models.JudgeAssignment) error {
	return r.db.WithContext(ctx).Save(assignment).Error
}

func (r *judgeAssignmentRepository) CreateBatch(ctx context.Context, assignments []models.JudgeAssignment) error {
	if len(assignments) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&assignments).Error
}

func (r *judgeAssignmentRepository) ReplaceForCompetition(ctx context.Context, competitionID uint, assignments []models.JudgeAssignment) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.
			Where("submission_id IN (?)",
				tx.Model(&models.Submission{}).Select("id").Where("competition_id = ?", competitionID),
			).
			Delete(&models.JudgeAssignment{}).Error
		if err != nil {
			return err
		}

		if len(assignments) == 0 {
			return nil
		}
		return tx.Create(&assignments).Error
	})
}
