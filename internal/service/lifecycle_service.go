package service

import (
	"context"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog"

	"github.com/pitcharena/pitcharena-api/internal/models"
	"github.com/pitcharena/pitcharena-api/internal/repository"
)

// LifecycleService advances competitions along their date-driven transitions:
// upcoming competitions open at their open date, active ones close at their
// deadline. Judging and completion are admin-driven, not scheduled.
type LifecycleService interface {
	RunOnce(ctx context.Context) error
	Start(ctx context.Context) (gocron.Scheduler, error)
}

type lifecycleService struct {
	competitions repository.CompetitionRepository
	events       EventPublisher
	interval     time.Duration
	logger       zerolog.Logger
	now          func() time.Time
}

// NewLifecycleService constructs the lifecycle scheduler.
func NewLifecycleService(
	competitions repository.CompetitionRepository,
	events EventPublisher,
	interval time.Duration,
	logger zerolog.Logger,
) LifecycleService {
	return &lifecycleService{
		competitions: competitions,
		events:       events,
		interval:     interval,
		logger:       logger.With().Str("component", "lifecycle_service").Logger(),
		now:          time.Now,
	}
}

func (s *lifecycleService) RunOnce(ctx context.Context) error {
	now := s.now()

	if err := s.advance(ctx, models.CompetitionStatusUpcoming, "open_date", now, models.CompetitionStatusActive); err != nil {
		return err
	}
	return s.advance(ctx, models.CompetitionStatusActive, "deadline", now, models.CompetitionStatusClosed)
}

func (s *lifecycleService) advance(ctx context.Context, from, field string, before time.Time, to string) error {
	due, err := s.competitions.ListDueForStatus(ctx, from, field, before)
	if err != nil {
		return err
	}

	for _, competition := range due {
		competition.Status = to
		if err := s.competitions.Update(ctx, &competition); err != nil {
			s.logger.Error().Err(err).
				Uint("competition_id", competition.ID).
				Msg("failed to advance competition status")
			continue
		}
		_ = s.events.Publish(SubjectCompetitionStatus, map[string]any{
			"competition_id": competition.ID,
			"status":         to,
		})
		s.logger.Info().
			Uint("competition_id", competition.ID).
			Str("from", from).
			Str("to", to).
			Msg("competition status advanced")
	}
	return nil
}

func (s *lifecycleService) Start(ctx context.Context) (gocron.Scheduler, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(s.interval),
		gocron.NewTask(func() {
			if err := s.RunOnce(ctx); err != nil {
				s.logger.Error().Err(err).Msg("lifecycle sweep failed")
			}
		}),
	)
	if err != nil {
		return nil, err
	}

	scheduler.Start()
	return scheduler, nil
}
