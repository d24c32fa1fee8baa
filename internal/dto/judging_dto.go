package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/pitcharena/pitcharena-api/internal/models"
)

// JudgeScoreRequest carries one judge's scoring of a submission. Criteria
// keys must match the competition rubric exactly; values are 0-10.
type JudgeScoreRequest struct {
	CriteriaScores map[string]float64 `json:"criteria_scores" validate:"required,min=1,dive,gte=0,lte=10"`
	Feedback       string             `json:"feedback" validate:"required,min=1"`
}

// JudgeWorkloadSubmission is one assigned submission in a judge's queue.
type JudgeWorkloadSubmission struct {
	SubmissionID uint     `json:"submission_id"`
	Title        string   `json:"title"`
	FounderID    uint     `json:"founder_id"`
	HasScored    bool     `json:"has_scored"`
	JudgeScore   *float64 `json:"judge_score"`
}

// JudgeWorkload groups a judge's assignments by competition with progress.
type JudgeWorkload struct {
	CompetitionID    uint                      `json:"competition_id"`
	CompetitionTitle string                    `json:"competition_title"`
	Domain           string                    `json:"domain"`
	Deadline         time.Time                 `json:"deadline"`
	Status           string                    `json:"status"`
	Submissions      []JudgeWorkloadSubmission `json:"submissions"`
	Completed        int                       `json:"completed"`
	Total            int                       `json:"total"`
}

// ScoredSubmissionResponse is the full judging view of a submission.
type ScoredSubmissionResponse struct {
	SubmissionResponse
	HumanScores models.HumanScores `json:"human_scores"`
}

// NewScoredSubmissionResponse converts a model, including decoded scores.
func NewScoredSubmissionResponse(model models.Submission) ScoredSubmissionResponse {
	scores, _ := model.HumanScores()
	return ScoredSubmissionResponse{
		SubmissionResponse: NewSubmissionResponse(model),
		HumanScores:        scores,
	}
}

// AssetLink is a short-lived download URL for one stored pitch asset.
type AssetLink struct {
	Kind string `json:"kind"`
	URL  string `json:"url"`
}

// JudgeSubmissionDetail is the scores view a judge sees for one assigned
// submission, with fresh download links for its pitch assets.
type JudgeSubmissionDetail struct {
	ScoredSubmissionResponse
	DownloadLinks []AssetLink `json:"download_links"`
}

// LeaderboardEntry is the computed per-submission leaderboard row.
type LeaderboardEntry struct {
	Rank               int              `json:"rank"`
	SubmissionID       uint             `json:"submission_id"`
	Title              string           `json:"title"`
	UserID             uint             `json:"user_id"`
	Username           string           `json:"username"`
	FinalScore         *decimal.Decimal `json:"final_score"`
	HumanScoresAverage *float64         `json:"human_scores_average"`
	NumJudgesAssigned  int              `json:"num_judges_assigned"`
	NumJudgesCompleted int              `json:"num_judges_completed"`
	JudgingComplete    bool             `json:"judging_complete"`
	HasTie             bool             `json:"has_tie"`
}

// LeaderboardResponse is the full leaderboard for a competition.
type LeaderboardResponse struct {
	CompetitionID       uint                  `json:"competition_id"`
	CompetitionTitle    string                `json:"competition_title"`
	Domain              string                `json:"domain"`
	Status              string                `json:"status"`
	PrizePool           decimal.Decimal       `json:"prize_pool"`
	PrizeStructure      models.PrizeStructure `json:"prize_structure"`
	Entries             []LeaderboardEntry    `json:"entries"`
	TotalSubmissions    int64                 `json:"total_submissions"`
	EligibleSubmissions int                   `json:"eligible_submissions"`
	FullyJudgedCount    int                   `json:"fully_judged_count"`
}
