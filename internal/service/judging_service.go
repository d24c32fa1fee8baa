package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/pitcharena/pitcharena-api/internal/dto"
	"github.com/pitcharena/pitcharena-api/internal/models"
	"github.com/pitcharena/pitcharena-api/internal/observability"
	"github.com/pitcharena/pitcharena-api/internal/repository"
)

// ErrNotAssigned indicates the judge has no assignment for the submission.
var ErrNotAssigned = errors.New("judge is not assigned to this submission")

// ErrScoringNotOpen indicates the competition is not in its judging window.
var ErrScoringNotOpen = errors.New("competition is not open for scoring")

// ErrRubricMismatch indicates the scored criteria do not match the
// competition rubric exactly.
var ErrRubricMismatch = errors.New("criteria scores do not match the competition rubric")

// AssetSigner issues short-lived download URLs for stored pitch assets.
type AssetSigner interface {
	PresignDownload(ctx context.Context, key string) (string, error)
}

// JudgingService exposes a judge's workload and records rubric scores.
type JudgingService interface {
	Workload(ctx context.Context, judgeID uint) ([]dto.JudgeWorkload, error)
	AssignedSubmissions(ctx context.Context, judgeID uint, role string, competitionID uint) ([]dto.SubmissionResponse, error)
	SubmissionDetail(ctx context.Context, judgeID uint, role string, submissionID uint) (dto.JudgeSubmissionDetail, error)
	Score(ctx context.Context, judgeID, submissionID uint, payload dto.JudgeScoreRequest) (dto.ScoredSubmissionResponse, error)
}

type judgingService struct {
	competitions repository.CompetitionRepository
	submissions  repository.SubmissionRepository
	assignments  repository.JudgeAssignmentRepository
	users        repository.UserRepository
	validator    *validator.Validate
	events       EventPublisher
	cache        LeaderboardCache
	signer       AssetSigner
	sanitizer    *bluemonday.Policy
	logger       zerolog.Logger
	now          func() time.Time
}

// NewJudgingService constructs the judging service.
func NewJudgingService(
	competitions repository.CompetitionRepository,
	submissions repository.SubmissionRepository,
	assignments repository.JudgeAssignmentRepository,
	users repository.UserRepository,
	validate *validator.Validate,
	events EventPublisher,
	cache LeaderboardCache,
	signer AssetSigner,
	logger zerolog.Logger,
) JudgingService {
	return &judgingService{
		competitions: competitions,
		submissions:  submissions,
		assignments:  assignments,
		users:        users,
		validator:    validate,
		events:       events,
		cache:        cache,
		signer:       signer,
		sanitizer:    bluemonday.StrictPolicy(),
		logger:       logger.With().Str("component", "judging_service").Logger(),
		now:          time.Now,
	}
}

func (s *judgingService) Workload(ctx context.Context, judgeID uint) ([]dto.JudgeWorkload, error) {
	assignments, err := s.assignments.ListByJudge(ctx, judgeID)
	if err != nil {
		return nil, err
	}
	if len(assignments) == 0 {
		return []dto.JudgeWorkload{}, nil
	}

	submissionIDs := make([]uint, 0, len(assignments))
	completedBySubmission := make(map[uint]bool, len(assignments))
	for _, assignment := range assignments {
		submissionIDs = append(submissionIDs, assignment.SubmissionID)
		completedBySubmission[assignment.SubmissionID] = assignment.Completed()
	}

	submissions, err := s.submissions.ListByIDs(ctx, submissionIDs)
	if err != nil {
		return nil, err
	}

	byCompetition := make(map[uint][]models.Submission)
	for _, submission := range submissions {
		byCompetition[submission.CompetitionID] = append(byCompetition[submission.CompetitionID], submission)
	}

	competitionIDs := make([]uint, 0, len(byCompetition))
	for id := range byCompetition {
		competitionIDs = append(competitionIDs, id)
	}
	sort.Slice(competitionIDs, func(i, j int) bool { return competitionIDs[i] < competitionIDs[j] })

	workloads := make([]dto.JudgeWorkload, 0, len(competitionIDs))
	for _, competitionID := range competitionIDs {
		competition, err := s.competitions.GetByID(ctx, competitionID)
		if err != nil {
			return nil, err
		}

		group := byCompetition[competitionID]
		sort.Slice(group, func(i, j int) bool { return group[i].ID < group[j].ID })

		workload := dto.JudgeWorkload{
			CompetitionID:    competition.ID,
			CompetitionTitle: competition.Title,
			Domain:           competition.Domain,
			Deadline:         competition.Deadline,
			Status:           competition.Status,
			Total:            len(group),
		}
		for _, submission := range group {
			entry := dto.JudgeWorkloadSubmission{
				SubmissionID: submission.ID,
				Title:        submission.Title,
				FounderID:    submission.UserID,
				HasScored:    completedBySubmission[submission.ID],
			}
			if entry.HasScored {
				workload.Completed++
				if scores, err := submission.HumanScores(); err == nil {
					for _, judge := range scores.Judges {
						if judge.JudgeID == judgeID {
							overall := judge.Overall
							entry.JudgeScore = &overall
							break
						}
					}
				}
			}
			workload.Submissions = append(workload.Submissions, entry)
		}
		workloads = append(workloads, workload)
	}

	return workloads, nil
}

// AssignedSubmissions lists the submissions a judge may review within one
// competition. Admins see every judgeable submission.
func (s *judgingService) AssignedSubmissions(ctx context.Context, judgeID uint, role string, competitionID uint) ([]dto.SubmissionResponse, error) {
	if _, err := s.competitions.GetByID(ctx, competitionID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCompetitionNotFound
		}
		return nil, err
	}

	if role == models.RoleAdmin {
		submissions, err := s.submissions.ListByCompetition(ctx, competitionID, []string{
			models.SubmissionStatusSubmitted,
			models.SubmissionStatusUnderReview,
		})
		if err != nil {
			return nil, err
		}
		return dto.NewSubmissionResponseSlice(submissions), nil
	}

	assignments, err := s.assignments.ListByJudge(ctx, judgeID)
	if err != nil {
		return nil, err
	}
	submissionIDs := make([]uint, 0, len(assignments))
	for _, assignment := range assignments {
		submissionIDs = append(submissionIDs, assignment.SubmissionID)
	}
	submissions, err := s.submissions.ListByIDs(ctx, submissionIDs)
	if err != nil {
		return nil, err
	}

	assigned := make([]models.Submission, 0, len(submissions))
	for _, submission := range submissions {
		if submission.CompetitionID == competitionID {
			assigned = append(assigned, submission)
		}
	}
	sort.Slice(assigned, func(i, j int) bool { return assigned[i].ID < assigned[j].ID })
	return dto.NewSubmissionResponseSlice(assigned), nil
}

// SubmissionDetail returns the full scores view of one submission. Judges must
// hold an assignment for it; admins see any submission.
func (s *judgingService) SubmissionDetail(ctx context.Context, judgeID uint, role string, submissionID uint) (dto.JudgeSubmissionDetail, error) {
	submission, err := s.submissions.GetByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.JudgeSubmissionDetail{}, ErrSubmissionNotFound
		}
		return dto.JudgeSubmissionDetail{}, err
	}

	if role != models.RoleAdmin {
		if _, err := s.assignments.GetByJudgeAndSubmission(ctx, judgeID, submissionID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return dto.JudgeSubmissionDetail{}, ErrNotAssigned
			}
			return dto.JudgeSubmissionDetail{}, err
		}
	}

	detail := dto.JudgeSubmissionDetail{
		ScoredSubmissionResponse: dto.NewScoredSubmissionResponse(submission),
	}

	attachments, err := submission.Attachments()
	if err != nil {
		return dto.JudgeSubmissionDetail{}, err
	}
	for _, attachment := range attachments {
		link := dto.AssetLink{Kind: attachment.Kind, URL: attachment.URL}
		if s.signer != nil {
			signed, err := s.signer.PresignDownload(ctx, attachment.ObjectKey)
			if err != nil {
				s.logger.Warn().Err(err).
					Uint("submission_id", submission.ID).
					Str("object_key", attachment.ObjectKey).
					Msg("failed to presign download, falling back to public url")
			} else {
				link.URL = signed
			}
		}
		detail.DownloadLinks = append(detail.DownloadLinks, link)
	}

	return detail, nil
}

func (s *judgingService) Score(ctx context.Context, judgeID, submissionID uint, payload dto.JudgeScoreRequest) (dto.ScoredSubmissionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ScoredSubmissionResponse{}, err
	}

	assignment, err := s.assignments.GetByJudgeAndSubmission(ctx, judgeID, submissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ScoredSubmissionResponse{}, ErrNotAssigned
		}
		return dto.ScoredSubmissionResponse{}, err
	}

	submission, err := s.submissions.GetByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ScoredSubmissionResponse{}, ErrSubmissionNotFound
		}
		return dto.ScoredSubmissionResponse{}, err
	}

	competition, err := s.competitions.GetByID(ctx, submission.CompetitionID)
	if err != nil {
		return dto.ScoredSubmissionResponse{}, err
	}
	if competition.Status != models.CompetitionStatusJudging {
		return dto.ScoredSubmissionResponse{}, ErrScoringNotOpen
	}

	rubric, err := competition.Rubric()
	if err != nil {
		return dto.ScoredSubmissionResponse{}, err
	}
	if err := matchRubric(rubric, payload.CriteriaScores); err != nil {
		return dto.ScoredSubmissionResponse{}, err
	}

	judge, err := s.users.GetByID(ctx, judgeID)
	if err != nil {
		return dto.ScoredSubmissionResponse{}, err
	}

	scoredAt := s.now()
	entry := models.JudgeScore{
		JudgeID:        judgeID,
		JudgeName:      judge.Username,
		CriteriaScores: payload.CriteriaScores,
		Feedback:       s.sanitizer.Sanitize(payload.Feedback),
		SubmittedAt:    scoredAt,
	}
	if err := submission.ApplyJudgeScore(rubric, entry); err != nil {
		return dto.ScoredSubmissionResponse{}, err
	}
	if err := s.submissions.Update(ctx, &submission); err != nil {
		return dto.ScoredSubmissionResponse{}, err
	}

	assignment.CompletedAt = &scoredAt
	if err := s.assignments.Update(ctx, &assignment); err != nil {
		return dto.ScoredSubmissionResponse{}, err
	}

	observability.JudgeScores().Inc()
	if s.cache != nil {
		s.cache.Invalidate(ctx, competition.ID)
	}
	_ = s.events.Publish(SubjectSubmissionScored, map[string]any{
		"competition_id": competition.ID,
		"submission_id":  submission.ID,
		"judge_id":       judgeID,
	})
	s.logger.Info().
		Uint("competition_id", competition.ID).
		Uint("submission_id", submission.ID).
		Uint("judge_id", judgeID).
		Msg("judge score recorded")

	return dto.NewScoredSubmissionResponse(submission), nil
}

// matchRubric requires the scored criteria set to equal the rubric key set.
func matchRubric(rubric models.Rubric, criteriaScores map[string]float64) error {
	if len(criteriaScores) != len(rubric) {
		return ErrRubricMismatch
	}
	for criterion := range criteriaScores {
		if _, ok := rubric[criterion]; !ok {
			return ErrRubricMismatch
		}
	}
	return nil
}
