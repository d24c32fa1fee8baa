package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/pitcharena/pitcharena-api/internal/dto"
	"github.com/pitcharena/pitcharena-api/internal/models"
	"github.com/pitcharena/pitcharena-api/internal/observability"
	"github.com/pitcharena/pitcharena-api/internal/ranking"
	"github.com/pitcharena/pitcharena-api/internal/repository"
)

// ErrJudgingIncomplete indicates not every assigned submission has been scored
// by all of its judges.
var ErrJudgingIncomplete = errors.New("judging is not complete for all submissions")

// ErrWinnersAlreadySelected indicates placements already exist for the competition.
var ErrWinnersAlreadySelected = errors.New("winners have already been selected for this competition")

// ErrWinnerSelectionClosed indicates the competition is not in its judging
// phase, so winners cannot be selected yet.
var ErrWinnerSelectionClosed = errors.New("competition must be in judging to select winners")

// ErrPlaceMismatch indicates an explicit winner list does not cover each
// declared prize place exactly once.
var ErrPlaceMismatch = errors.New("winners must cover each declared prize place exactly once")

// ErrWinnerNotQualified indicates an explicitly named winner is not a
// fully-judged submission of this competition.
var ErrWinnerNotQualified = errors.New("submission is not qualified to win")

// LeaderboardCache caches computed leaderboards and signals live viewers when
// a competition's standings change.
type LeaderboardCache interface {
	Get(ctx context.Context, competitionID uint) (dto.LeaderboardResponse, bool)
	Set(ctx context.Context, competitionID uint, response dto.LeaderboardResponse)
	Invalidate(ctx context.Context, competitionID uint)
}

// LeaderboardChannel is the pub/sub channel carrying refresh signals for one
// competition's live leaderboard.
func LeaderboardChannel(competitionID uint) string {
	return fmt.Sprintf("pitcharena:leaderboard:%d", competitionID)
}

type redisLeaderboardCache struct {
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// NewRedisLeaderboardCache constructs a Redis-backed leaderboard cache.
func NewRedisLeaderboardCache(client *redis.Client, ttl time.Duration, logger zerolog.Logger) LeaderboardCache {
	return &redisLeaderboardCache{
		client: client,
		ttl:    ttl,
		logger: logger.With().Str("component", "leaderboard_cache").Logger(),
	}
}

func (c *redisLeaderboardCache) Get(ctx context.Context, competitionID uint) (dto.LeaderboardResponse, bool) {
	raw, err := c.client.Get(ctx, LeaderboardChannel(competitionID)).Bytes()
	if err != nil {
		return dto.LeaderboardResponse{}, false
	}
	var response dto.LeaderboardResponse
	if err := json.Unmarshal(raw, &response); err != nil {
		return dto.LeaderboardResponse{}, false
	}
	return response, true
}

func (c *redisLeaderboardCache) Set(ctx context.Context, competitionID uint, response dto.LeaderboardResponse) {
	encoded, err := json.Marshal(response)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, LeaderboardChannel(competitionID), encoded, c.ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Uint("competition_id", competitionID).Msg("failed to cache leaderboard")
	}
}

func (c *redisLeaderboardCache) Invalidate(ctx context.Context, competitionID uint) {
	channel := LeaderboardChannel(competitionID)
	if err := c.client.Del(ctx, channel).Err(); err != nil {
		c.logger.Warn().Err(err).Uint("competition_id", competitionID).Msg("failed to drop cached leaderboard")
	}
	_ = c.client.Publish(ctx, channel, "refresh").Err()
}

// LeaderboardService computes competition standings and records final winners.
type LeaderboardService interface {
	Leaderboard(ctx context.Context, competitionID uint) (dto.LeaderboardResponse, error)
	SelectWinners(ctx context.Context, competitionID uint, payload dto.SelectWinnersRequest, actorID uint) (dto.WinnerSelectionResponse, error)
}

type leaderboardService struct {
	competitions repository.CompetitionRepository
	submissions  repository.SubmissionRepository
	assignments  repository.JudgeAssignmentRepository
	users        repository.UserRepository
	cache        LeaderboardCache
	events       EventPublisher
	logger       zerolog.Logger
	tracer       trace.Tracer
}

// NewLeaderboardService constructs the leaderboard service.
func NewLeaderboardService(
	competitions repository.CompetitionRepository,
	submissions repository.SubmissionRepository,
	assignments repository.JudgeAssignmentRepository,
	users repository.UserRepository,
	cache LeaderboardCache,
	events EventPublisher,
	logger zerolog.Logger,
) LeaderboardService {
	return &leaderboardService{
		competitions: competitions,
		submissions:  submissions,
		assignments:  assignments,
		users:        users,
		cache:        cache,
		events:       events,
		logger:       logger.With().Str("component", "leaderboard_service").Logger(),
		tracer:       otel.Tracer("github.com/pitcharena/pitcharena-api/internal/service/leaderboard"),
	}
}

func (s *leaderboardService) Leaderboard(ctx context.Context, competitionID uint) (dto.LeaderboardResponse, error) {
	if s.cache != nil {
		if cached, ok := s.cache.Get(ctx, competitionID); ok {
			return cached, nil
		}
	}

	ctx, span := s.tracer.Start(ctx, "leaderboard.build",
		trace.WithAttributes(attribute.Int64("competition.id", int64(competitionID))))
	defer span.End()

	response, _, _, err := s.buildLeaderboard(ctx, competitionID)
	if err != nil {
		return dto.LeaderboardResponse{}, err
	}

	if s.cache != nil {
		s.cache.Set(ctx, competitionID, response)
	}
	return response, nil
}

// buildLeaderboard computes the full standings plus the raw ranked rows and
// submissions, which winner selection reuses.
func (s *leaderboardService) buildLeaderboard(ctx context.Context, competitionID uint) (dto.LeaderboardResponse, []ranking.Ranked, map[uint]models.Submission, error) {
	competition, err := s.competitions.GetByID(ctx, competitionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.LeaderboardResponse{}, nil, nil, ErrCompetitionNotFound
		}
		return dto.LeaderboardResponse{}, nil, nil, err
	}

	structure, err := competition.PrizeStructure()
	if err != nil {
		return dto.LeaderboardResponse{}, nil, nil, err
	}

	submissions, err := s.submissions.ListByCompetition(ctx, competitionID, []string{
		models.SubmissionStatusSubmitted,
		models.SubmissionStatusUnderReview,
		models.SubmissionStatusWinner,
		models.SubmissionStatusNotSelected,
	})
	if err != nil {
		return dto.LeaderboardResponse{}, nil, nil, err
	}

	assignments, err := s.assignments.ListByCompetition(ctx, competitionID)
	if err != nil {
		return dto.LeaderboardResponse{}, nil, nil, err
	}
	assigned := make(map[uint]int)
	completed := make(map[uint]int)
	for _, assignment := range assignments {
		assigned[assignment.SubmissionID]++
		if assignment.Completed() {
			completed[assignment.SubmissionID]++
		}
	}

	bySubmission := make(map[uint]models.Submission, len(submissions))
	founderIDs := make([]uint, 0, len(submissions))
	entries := make([]ranking.Entry, 0, len(submissions))
	fullyJudged := 0
	for _, submission := range submissions {
		bySubmission[submission.ID] = submission
		founderIDs = append(founderIDs, submission.UserID)

		judgingComplete := assigned[submission.ID] > 0 && completed[submission.ID] == assigned[submission.ID]
		if judgingComplete {
			fullyJudged++
		}
		entries = append(entries, ranking.Entry{
			SubmissionID:    submission.ID,
			FinalScore:      submission.FinalScore,
			JudgingComplete: judgingComplete,
		})
	}

	founders, err := s.users.ListByIDs(ctx, founderIDs)
	if err != nil {
		return dto.LeaderboardResponse{}, nil, nil, err
	}
	usernames := make(map[uint]string, len(founders))
	for _, founder := range founders {
		usernames[founder.ID] = founder.Username
	}

	ranked := ranking.Rank(entries)

	total, err := s.submissions.CountByCompetition(ctx, competitionID)
	if err != nil {
		return dto.LeaderboardResponse{}, nil, nil, err
	}

	response := dto.LeaderboardResponse{
		CompetitionID:       competition.ID,
		CompetitionTitle:    competition.Title,
		Domain:              competition.Domain,
		Status:              competition.Status,
		PrizePool:           competition.PrizePool,
		PrizeStructure:      structure,
		Entries:             make([]dto.LeaderboardEntry, 0, len(ranked)),
		TotalSubmissions:    total,
		EligibleSubmissions: len(submissions),
		FullyJudgedCount:    fullyJudged,
	}
	for _, row := range ranked {
		submission := bySubmission[row.SubmissionID]
		entry := dto.LeaderboardEntry{
			Rank:               row.Rank,
			SubmissionID:       submission.ID,
			Title:              submission.Title,
			UserID:             submission.UserID,
			Username:           usernames[submission.UserID],
			FinalScore:         submission.FinalScore,
			NumJudgesAssigned:  assigned[submission.ID],
			NumJudgesCompleted: completed[submission.ID],
			JudgingComplete:    row.JudgingComplete,
			HasTie:             row.HasTie,
		}
		if scores, err := submission.HumanScores(); err == nil && len(scores.Judges) > 0 {
			average := scores.Average
			entry.HumanScoresAverage = &average
		}
		response.Entries = append(response.Entries, entry)
	}

	return response, ranked, bySubmission, nil
}

func (s *leaderboardService) SelectWinners(ctx context.Context, competitionID uint, payload dto.SelectWinnersRequest, actorID uint) (dto.WinnerSelectionResponse, error) {
	competition, err := s.competitions.GetByID(ctx, competitionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.WinnerSelectionResponse{}, ErrCompetitionNotFound
		}
		return dto.WinnerSelectionResponse{}, err
	}
	if competition.Status == models.CompetitionStatusComplete {
		return dto.WinnerSelectionResponse{}, ErrWinnersAlreadySelected
	}
	if competition.Status != models.CompetitionStatusJudging {
		return dto.WinnerSelectionResponse{}, ErrWinnerSelectionClosed
	}

	structure, err := competition.PrizeStructure()
	if err != nil {
		return dto.WinnerSelectionResponse{}, err
	}

	_, ranked, bySubmission, err := s.buildLeaderboard(ctx, competitionID)
	if err != nil {
		return dto.WinnerSelectionResponse{}, err
	}

	for _, submission := range bySubmission {
		if submission.Placement != nil || submission.Status == models.SubmissionStatusWinner {
			return dto.WinnerSelectionResponse{}, ErrWinnersAlreadySelected
		}
	}

	// Winner selection requires unanimous coverage: every eligible submission
	// fully judged.
	for _, row := range ranked {
		if !row.JudgingComplete {
			return dto.WinnerSelectionResponse{}, ErrJudgingIncomplete
		}
	}

	var winners []ranking.Winner
	if len(payload.Winners) > 0 {
		winners, err = explicitWinners(payload.Winners, structure, ranked)
	} else {
		winners, err = ranking.SelectWinners(ranked, structure.Places())
	}
	if err != nil {
		return dto.WinnerSelectionResponse{}, err
	}

	winningIDs := make(map[uint]string, len(winners))
	for _, winner := range winners {
		winningIDs[winner.SubmissionID] = winner.Place
	}

	response := dto.WinnerSelectionResponse{
		CompetitionID: competitionID,
		Status:        models.CompetitionStatusComplete,
		Winners:       make([]dto.WinnerInfo, 0, len(winners)),
	}
	losers := make([]uint, 0, len(bySubmission))
	for _, row := range ranked {
		submission := bySubmission[row.SubmissionID]
		place, won := winningIDs[submission.ID]
		if !won {
			losers = append(losers, submission.ID)
			continue
		}

		placement := place
		submission.Placement = &placement
		submission.Status = models.SubmissionStatusWinner
		if err := s.submissions.Update(ctx, &submission); err != nil {
			return dto.WinnerSelectionResponse{}, err
		}

		fraction, _ := structure.FractionFor(place)
		founder, err := s.users.GetByID(ctx, submission.UserID)
		if err != nil {
			return dto.WinnerSelectionResponse{}, err
		}
		response.Winners = append(response.Winners, dto.WinnerInfo{
			Place:        place,
			SubmissionID: submission.ID,
			Title:        submission.Title,
			Username:     founder.Username,
			PrizeAmount:  competition.PrizePool.Mul(fraction).Round(2),
		})
	}
	if err := s.submissions.UpdateStatuses(ctx, losers, models.SubmissionStatusNotSelected); err != nil {
		return dto.WinnerSelectionResponse{}, err
	}

	competition.Status = models.CompetitionStatusComplete
	if err := s.competitions.Update(ctx, &competition); err != nil {
		return dto.WinnerSelectionResponse{}, err
	}

	observability.WinnerSelections().Inc()
	if s.cache != nil {
		s.cache.Invalidate(ctx, competitionID)
	}
	_ = s.events.Publish(SubjectWinnersSelected, map[string]any{
		"competition_id": competitionID,
		"winners":        response.Winners,
		"selected_by":    actorID,
	})
	s.logger.Info().
		Uint("competition_id", competitionID).
		Int("winners", len(response.Winners)).
		Uint("actor_id", actorID).
		Msg("winners selected")

	return response, nil
}

// explicitWinners validates an admin-supplied placement list against the
// declared places and the qualifying ranked rows.
func explicitWinners(selection []dto.WinnerSelection, structure models.PrizeStructure, ranked []ranking.Ranked) ([]ranking.Winner, error) {
	if len(selection) != len(structure) {
		return nil, ErrPlaceMismatch
	}

	qualifying := make(map[uint]bool, len(ranked))
	for _, row := range ranked {
		if row.JudgingComplete && row.FinalScore != nil {
			qualifying[row.SubmissionID] = true
		}
	}

	seenPlaces := make(map[string]bool, len(selection))
	seenSubmissions := make(map[uint]bool, len(selection))
	winners := make([]ranking.Winner, 0, len(selection))
	for _, pick := range selection {
		if _, ok := structure.FractionFor(pick.Place); !ok {
			return nil, ErrPlaceMismatch
		}
		if seenPlaces[pick.Place] || seenSubmissions[pick.SubmissionID] {
			return nil, ErrPlaceMismatch
		}
		if !qualifying[pick.SubmissionID] {
			return nil, ErrWinnerNotQualified
		}
		seenPlaces[pick.Place] = true
		seenSubmissions[pick.SubmissionID] = true
		winners = append(winners, ranking.Winner{Place: pick.Place, SubmissionID: pick.SubmissionID})
	}
	return winners, nil
}
