package service

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/pitcharena/pitcharena-api/internal/dto"
	"github.com/pitcharena/pitcharena-api/internal/models"
	"github.com/pitcharena/pitcharena-api/internal/observability"
	"github.com/pitcharena/pitcharena-api/internal/ranking"
	"github.com/pitcharena/pitcharena-api/internal/repository"
)

// ErrAssignmentNotFound indicates the judge assignment does not exist.
var ErrAssignmentNotFound = errors.New("judge assignment not found")

// ErrAssignmentExists indicates the target judge already holds an assignment
// for the submission. Distribution skips existing pairs instead; only
// reassignment reports this conflict.
var ErrAssignmentExists = errors.New("judge is already assigned to this submission")

// ErrAssignmentInput indicates the distribution request named neither judges
// nor explicit pairings, or both at once.
var ErrAssignmentInput = errors.New("provide either judge_ids or explicit assignments, not both")

// ErrJudgingNotOpen indicates the competition is not in a state that accepts
// judge assignments.
var ErrJudgingNotOpen = errors.New("competition is not accepting judge assignments")

// ErrNotAJudge indicates a referenced user cannot score submissions.
var ErrNotAJudge = errors.New("user is not a judge")

// ErrNoAssignableSubmissions indicates the competition has no submissions
// eligible for judging.
var ErrNoAssignableSubmissions = errors.New("competition has no assignable submissions")

// ErrForeignSubmission indicates an explicit pairing references a submission
// outside the competition or one that is not judgeable.
var ErrForeignSubmission = errors.New("submission does not belong to this competition or is not judgeable")

// AssignmentService distributes judging workload across judges and manages
// individual reassignments.
type AssignmentService interface {
	Distribute(ctx context.Context, competitionID uint, payload dto.AssignJudgesRequest, actorID uint) ([]dto.AssignmentResponse, error)
	Reassign(ctx context.Context, assignmentID uint, payload dto.ReassignJudgeRequest, actorID uint) (dto.AssignmentResponse, error)
	ListForCompetition(ctx context.Context, competitionID uint) ([]dto.AssignmentResponse, error)
}

type assignmentService struct {
	competitions repository.CompetitionRepository
	submissions  repository.SubmissionRepository
	assignments  repository.JudgeAssignmentRepository
	users        repository.UserRepository
	validator    *validator.Validate
	events       EventPublisher
	logger       zerolog.Logger
	rng          *rand.Rand
	now          func() time.Time
}

// NewAssignmentService constructs the assignment service. The random source is
// injectable so distribution tests can run against a fixed seed; pass nil to
// use the shared default source.
func NewAssignmentService(
	competitions repository.CompetitionRepository,
	submissions repository.SubmissionRepository,
	assignments repository.JudgeAssignmentRepository,
	users repository.UserRepository,
	validate *validator.Validate,
	events EventPublisher,
	logger zerolog.Logger,
	rng *rand.Rand,
) AssignmentService {
	return &assignmentService{
		competitions: competitions,
		submissions:  submissions,
		assignments:  assignments,
		users:        users,
		validator:    validate,
		events:       events,
		logger:       logger.With().Str("component", "assignment_service").Logger(),
		rng:          rng,
		now:          time.Now,
	}
}

func (s *assignmentService) Distribute(ctx context.Context, competitionID uint, payload dto.AssignJudgesRequest, actorID uint) ([]dto.AssignmentResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return nil, err
	}
	if (len(payload.JudgeIDs) == 0) == (len(payload.Assignments) == 0) {
		return nil, ErrAssignmentInput
	}

	competition, err := s.competitions.GetByID(ctx, competitionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCompetitionNotFound
		}
		return nil, err
	}
	if !competition.AcceptsAssignments() {
		return nil, ErrJudgingNotOpen
	}

	judgeable, err := s.submissions.ListByCompetition(ctx, competitionID, []string{
		models.SubmissionStatusSubmitted,
		models.SubmissionStatusUnderReview,
	})
	if err != nil {
		return nil, err
	}
	if len(judgeable) == 0 {
		return nil, ErrNoAssignableSubmissions
	}

	judgeableIDs := make(map[uint]bool, len(judgeable))
	submissionIDs := make([]uint, 0, len(judgeable))
	for _, submission := range judgeable {
		judgeableIDs[submission.ID] = true
		submissionIDs = append(submissionIDs, submission.ID)
	}

	var groups map[uint][]uint
	var judgeIDs []uint
	if len(payload.JudgeIDs) > 0 {
		judgeIDs = payload.JudgeIDs
		groups, err = ranking.Distribute(submissionIDs, judgeIDs, s.rng)
		if err != nil {
			return nil, err
		}
	} else {
		groups = make(map[uint][]uint, len(payload.Assignments))
		for _, explicit := range payload.Assignments {
			for _, submissionID := range explicit.SubmissionIDs {
				if !judgeableIDs[submissionID] {
					return nil, ErrForeignSubmission
				}
			}
			if _, seen := groups[explicit.JudgeID]; !seen {
				judgeIDs = append(judgeIDs, explicit.JudgeID)
			}
			groups[explicit.JudgeID] = append(groups[explicit.JudgeID], explicit.SubmissionIDs...)
		}
	}

	judges, err := s.users.ListByIDs(ctx, judgeIDs)
	if err != nil {
		return nil, err
	}
	judgeByID := make(map[uint]models.User, len(judges))
	for _, judge := range judges {
		if !judge.CanJudge() {
			return nil, ErrNotAJudge
		}
		judgeByID[judge.ID] = judge
	}
	for _, id := range judgeIDs {
		if _, ok := judgeByID[id]; !ok {
			return nil, ErrNotAJudge
		}
	}

	// Without replace, pairs that already exist are skipped so re-running a
	// distribution is idempotent.
	taken := make(map[[2]uint]bool)
	if !payload.Replace {
		existing, err := s.assignments.ListByCompetition(ctx, competitionID)
		if err != nil {
			return nil, err
		}
		for _, assignment := range existing {
			taken[[2]uint{assignment.JudgeID, assignment.SubmissionID}] = true
		}
	}

	assignedAt := s.now()
	created := make([]models.JudgeAssignment, 0, len(submissionIDs))
	for _, judgeID := range judgeIDs {
		for _, submissionID := range groups[judgeID] {
			if taken[[2]uint{judgeID, submissionID}] {
				continue
			}
			created = append(created, models.JudgeAssignment{
				JudgeID:      judgeID,
				SubmissionID: submissionID,
				AssignedBy:   actorID,
				AssignedAt:   assignedAt,
			})
		}
	}

	if payload.Replace {
		err = s.assignments.ReplaceForCompetition(ctx, competitionID, created)
	} else {
		err = s.assignments.CreateBatch(ctx, created)
	}
	if err != nil {
		return nil, err
	}

	if err := s.advanceToJudging(ctx, &competition, judgeable); err != nil {
		return nil, err
	}

	observability.Distributions().Inc()
	_ = s.events.Publish(SubjectJudgesDistributed, map[string]any{
		"competition_id": competitionID,
		"judges":         len(groups),
		"submissions":    len(submissionIDs),
	})
	s.logger.Info().
		Uint("competition_id", competitionID).
		Int("judges", len(groups)).
		Int("submissions", len(submissionIDs)).
		Bool("replace", payload.Replace).
		Msg("judge workload distributed")

	stored, err := s.assignments.ListByCompetition(ctx, competitionID)
	if err != nil {
		return nil, err
	}
	return s.toResponses(ctx, stored)
}

// advanceToJudging moves a closed competition into judging and flips freshly
// assigned submissions to under review.
func (s *assignmentService) advanceToJudging(ctx context.Context, competition *models.Competition, judgeable []models.Submission) error {
	pending := make([]uint, 0, len(judgeable))
	for _, submission := range judgeable {
		if submission.Status == models.SubmissionStatusSubmitted {
			pending = append(pending, submission.ID)
		}
	}
	if err := s.submissions.UpdateStatuses(ctx, pending, models.SubmissionStatusUnderReview); err != nil {
		return err
	}

	if competition.Status == models.CompetitionStatusClosed {
		competition.Status = models.CompetitionStatusJudging
		if err := s.competitions.Update(ctx, competition); err != nil {
			return err
		}
		_ = s.events.Publish(SubjectCompetitionStatus, map[string]any{
			"competition_id": competition.ID,
			"status":         competition.Status,
		})
	}
	return nil
}

func (s *assignmentService) Reassign(ctx context.Context, assignmentID uint, payload dto.ReassignJudgeRequest, actorID uint) (dto.AssignmentResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.AssignmentResponse{}, err
	}

	assignment, err := s.assignments.GetByID(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AssignmentResponse{}, ErrAssignmentNotFound
		}
		return dto.AssignmentResponse{}, err
	}

	// Reassigning to the current owner is a successful no-op.
	if assignment.JudgeID == payload.NewJudgeID {
		responses, err := s.toResponses(ctx, []models.JudgeAssignment{assignment})
		if err != nil {
			return dto.AssignmentResponse{}, err
		}
		return responses[0], nil
	}

	judge, err := s.users.GetByID(ctx, payload.NewJudgeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AssignmentResponse{}, ErrNotAJudge
		}
		return dto.AssignmentResponse{}, err
	}
	if !judge.CanJudge() {
		return dto.AssignmentResponse{}, ErrNotAJudge
	}

	_, err = s.assignments.GetByJudgeAndSubmission(ctx, payload.NewJudgeID, assignment.SubmissionID)
	if err == nil {
		return dto.AssignmentResponse{}, ErrAssignmentExists
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.AssignmentResponse{}, err
	}

	previousJudge := assignment.JudgeID
	assignment.JudgeID = payload.NewJudgeID
	assignment.AssignedBy = actorID
	assignment.AssignedAt = s.now()
	assignment.CompletedAt = nil

	if err := s.assignments.Update(ctx, &assignment); err != nil {
		return dto.AssignmentResponse{}, err
	}

	s.logger.Info().
		Uint("assignment_id", assignment.ID).
		Uint("previous_judge_id", previousJudge).
		Uint("new_judge_id", assignment.JudgeID).
		Msg("assignment reassigned")

	responses, err := s.toResponses(ctx, []models.JudgeAssignment{assignment})
	if err != nil {
		return dto.AssignmentResponse{}, err
	}
	return responses[0], nil
}

func (s *assignmentService) ListForCompetition(ctx context.Context, competitionID uint) ([]dto.AssignmentResponse, error) {
	if _, err := s.competitions.GetByID(ctx, competitionID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCompetitionNotFound
		}
		return nil, err
	}

	assignments, err := s.assignments.ListByCompetition(ctx, competitionID)
	if err != nil {
		return nil, err
	}
	return s.toResponses(ctx, assignments)
}

// toResponses enriches assignments with judge names and submission titles.
func (s *assignmentService) toResponses(ctx context.Context, assignments []models.JudgeAssignment) ([]dto.AssignmentResponse, error) {
	judgeIDs := make([]uint, 0, len(assignments))
	submissionIDs := make([]uint, 0, len(assignments))
	seenJudges := make(map[uint]bool)
	for _, assignment := range assignments {
		if !seenJudges[assignment.JudgeID] {
			seenJudges[assignment.JudgeID] = true
			judgeIDs = append(judgeIDs, assignment.JudgeID)
		}
		submissionIDs = append(submissionIDs, assignment.SubmissionID)
	}

	judges, err := s.users.ListByIDs(ctx, judgeIDs)
	if err != nil {
		return nil, err
	}
	judgeNames := make(map[uint]string, len(judges))
	for _, judge := range judges {
		judgeNames[judge.ID] = judge.Username
	}

	submissions, err := s.submissions.ListByIDs(ctx, submissionIDs)
	if err != nil {
		return nil, err
	}
	titles := make(map[uint]string, len(submissions))
	for _, submission := range submissions {
		titles[submission.ID] = submission.Title
	}

	responses := make([]dto.AssignmentResponse, 0, len(assignments))
	for _, assignment := range assignments {
		responses = append(responses, dto.NewAssignmentResponse(
			assignment,
			judgeNames[assignment.JudgeID],
			titles[assignment.SubmissionID],
		))
	}
	return responses, nil
}
