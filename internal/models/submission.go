package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Submission lifecycle statuses.
const (
	SubmissionStatusDraft          = "draft"
	SubmissionStatusPendingPayment = "pending_payment"
	SubmissionStatusSubmitted      = "submitted"
	SubmissionStatusUnderReview    = "under_review"
	SubmissionStatusWinner         = "winner"
	SubmissionStatusNotSelected    = "not_selected"
	SubmissionStatusRejected       = "rejected"
)

// Score weighting between the optional AI pre-screen and human judges. Judges
// decide outcomes; the AI pass is informational only.
var (
	aiScoreWeight    = decimal.Zero
	humanScoreWeight = decimal.NewFromInt(1)
)

// JudgeScore is one judge's scoring of a submission.
type JudgeScore struct {
	JudgeID        uint               `json:"judge_id"`
	JudgeName      string             `json:"judge_name"`
	CriteriaScores map[string]float64 `json:"criteria_scores"`
	Overall        float64            `json:"overall"`
	Feedback       string             `json:"feedback"`
	SubmittedAt    time.Time          `json:"submitted_at"`
}

// HumanScores aggregates all judge scores for a submission.
type HumanScores struct {
	Judges  []JudgeScore `json:"judges"`
	Average float64      `json:"average"`
}

// Attachment references an uploaded pitch asset (video or deck) in object storage.
type Attachment struct {
	Kind        string `json:"kind"`
	ObjectKey   string `json:"object_key"`
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
	SizeBytes   int64  `json:"size_bytes"`
}

// Submission represents one founder's entry in a competition.
type Submission struct {
	ID            uint `gorm:"primaryKey" json:"id"`
	CompetitionID uint `gorm:"not null;index:ix_submissions_competition_status" json:"competition_id"`
	UserID        uint `gorm:"not null;index" json:"user_id"`

	Title       string `gorm:"size:255;not null" json:"title"`
	Description string `gorm:"type:text;not null" json:"description"`

	AttachmentsJSON datatypes.JSON `gorm:"column:attachments;type:json" json:"-"`

	Status   string `gorm:"size:32;not null;default:draft;index:ix_submissions_competition_status" json:"status"`
	IsPublic bool   `gorm:"not null;default:false" json:"is_public"`

	AIScoresJSON      datatypes.JSON   `gorm:"column:ai_scores;type:json" json:"-"`
	HumanScoresJSON   datatypes.JSON   `gorm:"column:human_scores;type:json" json:"-"`
	FinalScore        *decimal.Decimal `gorm:"type:numeric(10,2)" json:"final_score"`
	Placement         *string          `gorm:"size:50;index" json:"placement"`
	JudgeFeedbackJSON datatypes.JSON   `gorm:"column:judge_feedback;type:json" json:"-"`

	SubmittedAt *time.Time `gorm:"index" json:"submitted_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	Competition Competition `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	User        User        `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`

	JudgeAssignments []JudgeAssignment `json:"-"`
}

// Judgeable reports whether the submission may be assigned to a judge.
func (s Submission) Judgeable() bool {
	return s.Status == SubmissionStatusSubmitted || s.Status == SubmissionStatusUnderReview
}

// HumanScores decodes the stored judge scores, returning an empty aggregate
// when nothing has been scored yet.
func (s Submission) HumanScores() (HumanScores, error) {
	if len(s.HumanScoresJSON) == 0 {
		return HumanScores{}, nil
	}
	var scores HumanScores
	if err := json.Unmarshal(s.HumanScoresJSON, &scores); err != nil {
		return HumanScores{}, fmt.Errorf("decode human scores: %w", err)
	}
	return scores, nil
}

// Attachments decodes the stored attachment list.
func (s Submission) Attachments() ([]Attachment, error) {
	if len(s.AttachmentsJSON) == 0 {
		return nil, nil
	}
	var attachments []Attachment
	if err := json.Unmarshal(s.AttachmentsJSON, &attachments); err != nil {
		return nil, fmt.Errorf("decode attachments: %w", err)
	}
	return attachments, nil
}

// ApplyJudgeScore upserts one judge's score, recomputes the cross-judge
// average and the weighted final score. The rubric supplies per-criterion
// weights; criteria missing from the rubric default to weight 1.
func (s *Submission) ApplyJudgeScore(rubric Rubric, entry JudgeScore) error {
	scores, err := s.HumanScores()
	if err != nil {
		return err
	}

	entry.Overall = weightedOverall(rubric, entry.CriteriaScores)

	replaced := false
	for i, existing := range scores.Judges {
		if existing.JudgeID == entry.JudgeID {
			scores.Judges[i] = entry
			replaced = true
			break
		}
	}
	if !replaced {
		scores.Judges = append(scores.Judges, entry)
	}

	total := 0.0
	for _, judge := range scores.Judges {
		total += judge.Overall
	}
	scores.Average = total / float64(len(scores.Judges))

	encoded, err := json.Marshal(scores)
	if err != nil {
		return fmt.Errorf("encode human scores: %w", err)
	}
	s.HumanScoresJSON = datatypes.JSON(encoded)

	final := humanScoreWeight.Mul(decimal.NewFromFloat(scores.Average)).
		Add(aiScoreWeight.Mul(s.aiAverage())).
		Round(2)
	s.FinalScore = &final

	return nil
}

func (s Submission) aiAverage() decimal.Decimal {
	if len(s.AIScoresJSON) == 0 {
		return decimal.Zero
	}
	var ai struct {
		Average float64 `json:"average"`
	}
	if err := json.Unmarshal(s.AIScoresJSON, &ai); err != nil {
		return decimal.Zero
	}
	return decimal.NewFromFloat(ai.Average)
}

func weightedOverall(rubric Rubric, criteriaScores map[string]float64) float64 {
	if len(criteriaScores) == 0 {
		return 0
	}

	totalWeighted := decimal.Zero
	totalWeight := decimal.Zero
	for criterion, value := range criteriaScores {
		weight := decimal.NewFromInt(1)
		if def, ok := rubric[criterion]; ok && !def.Weight.IsZero() {
			weight = def.Weight
		}
		totalWeighted = totalWeighted.Add(decimal.NewFromFloat(value).Mul(weight))
		totalWeight = totalWeight.Add(weight)
	}

	if totalWeight.IsZero() {
		return 0
	}
	overall, _ := totalWeighted.Div(totalWeight).Float64()
	return overall
}
