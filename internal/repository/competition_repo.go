package repository

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/pitcharena/pitcharena-api/internal/models"
)

// CompetitionFilter describes pagination & search options for listings.
type CompetitionFilter struct {
	Search   string
	Domain   string
	Status   string
	Sort     string
	Page     int
	PageSize int
}

// CompetitionRepository defines persistence operations for competitions.
type CompetitionRepository interface {
	List(ctx context.Context, filter CompetitionFilter) ([]models.Competition, int64, error)
	GetByID(ctx context.Context, id uint) (models.Competition, error)
	GetBySlug(ctx context.Context, slug string) (models.Competition, error)
	Create(ctx context.Context, competition *models.Competition) error
	Update(ctx context.Context, competition *models.Competition) error
	Delete(ctx context.Context, id uint) error
	ListDueForStatus(ctx context.Context, status string, field string, before time.Time) ([]models.Competition, error)
}

type competitionRepository struct {
	db *gorm.DB
}

// NewCompetitionRepository instantiates a GORM-backed repository.
func NewCompetitionRepository(db *gorm.DB) CompetitionRepository {
	return &competitionRepository{db: db}
}

func (r *competitionRepository) List(ctx context.Context, filter CompetitionFilter) ([]models.Competition, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Competition{})

	if filter.Search != "" {
		pattern := "%" + strings.ToLower(strings.TrimSpace(filter.Search)) + "%"
		query = query.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", pattern, pattern)
	}
	if filter.Domain != "" {
		query = query.Where("domain = ?", filter.Domain)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = query.Order(normalizeCompetitionSort(filter.Sort))

	if filter.PageSize > 0 {
		page := filter.Page
		if page <= 0 {
			page = 1
		}
		query = query.Offset((page - 1) * filter.PageSize).Limit(filter.PageSize)
	}

	var competitions []models.Competition
	if err := query.Find(&competitions).Error; err != nil {
		return nil, 0, err
	}

	return competitions, total, nil
}

func (r *competitionRepository) GetByID(ctx context.Context, id uint) (models.Competition, error) {
	var competition models.Competition
	if err := r.db.WithContext(ctx).First(&competition, id).Error; err != nil {
		return models.Competition{}, err
	}
	return competition, nil
}

func (r *competitionRepository) GetBySlug(ctx context.Context, slug string) (models.Competition, error) {
	var competition models.Competition
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&competition).Error; err != nil {
		return models.Competition{}, err
	}
	return competition, nil
}

func (r *competitionRepository) Create(ctx context.Context, competition *models.Competition) error {
	return r.db.WithContext(ctx).Create(competition).Error
}

func (r *competitionRepository) Update(ctx context.Context, competition *models.Competition) error {
	return r.db.WithContext(ctx).Save(competition).Error
}

func (r *competitionRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.Competition{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListDueForStatus returns competitions in the given status whose date field
// (open_date or deadline) is in the past; the lifecycle scheduler advances them.
func (r *competitionRepository) ListDueForStatus(ctx context.Context, status string, field string, before time.Time) ([]models.Competition, error) {
	column := "deadline"
	if field == "open_date" {
		column = "open_date"
	}

	var competitions []models.Competition
	err := r.db.WithContext(ctx).
		Where("status = ? AND "+column+" <= ?", status, before).
		Find(&competitions).Error
	if err != nil {
		return nil, err
	}
	return competitions, nil
}

func normalizeCompetitionSort(sort string) string {
	switch strings.ToLower(strings.TrimSpace(sort)) {
	case "deadline", "deadline:asc":
		return "deadline ASC"
	case "-deadline", "deadline:desc":
		return "deadline DESC"
	case "prize_pool", "prize_pool:asc":
		return "prize_pool ASC"
	case "-prize_pool", "prize_pool:desc":
		return "prize_pool DESC"
	case "-created_at", "created_at:desc":
		return "created_at DESC"
	default:
		return "deadline ASC"
	}
}
