package models

import "time"

// JudgeAssignment pairs a judge with one submission to score. The
// (judge, submission) pair is unique; reassignment replaces the owner rather
// than adding a second pairing.
type JudgeAssignment struct {
	ID           uint `gorm:"primaryKey" json:"id"`
	JudgeID      uint `gorm:"not null;index;uniqueIndex:uq_judge_submission" json:"judge_id"`
	SubmissionID uint `gorm:"not null;index;uniqueIndex:uq_judge_submission" json:"submission_id"`
	AssignedBy   uint `gorm:"not null;index" json:"assigned_by"`

	AssignedAt  time.Time  `gorm:"not null" json:"assigned_at"`
	CompletedAt *time.Time `json:"completed_at"`

	Judge      User       `gorm:"foreignKey:JudgeID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	Submission Submission `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

// Completed reports whether the judge has scored the submission.
func (a JudgeAssignment) Completed() bool {
	return a.CompletedAt != nil
}
