package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Competition lifecycle statuses.
const (
	CompetitionStatusDraft    = "draft"
	CompetitionStatusUpcoming = "upcoming"
	CompetitionStatusActive   = "active"
	CompetitionStatusClosed   = "closed"
	CompetitionStatusJudging  = "judging"
	CompetitionStatusComplete = "complete"
)

// PrizePlace maps one named place to its fraction of the prize pool.
type PrizePlace struct {
	Place      string          `json:"place"`
	Percentage decimal.Decimal `json:"percentage"`
}

// PrizeStructure is the ordered list of declared places. Order is
// significant: winner selection pairs places with ranks in declaration order.
type PrizeStructure []PrizePlace

// Places returns the place names in declaration order.
func (ps PrizeStructure) Places() []string {
	places := make([]string, 0, len(ps))
	for _, p := range ps {
		places = append(places, p.Place)
	}
	return places
}

// FractionFor returns the payout fraction for a place name.
func (ps PrizeStructure) FractionFor(place string) (decimal.Decimal, bool) {
	for _, p := range ps {
		if p.Place == place {
			return p.Percentage, true
		}
	}
	return decimal.Zero, false
}

// RubricCriterion describes one scoring axis and its weight.
type RubricCriterion struct {
	Description string          `json:"description"`
	Weight      decimal.Decimal `json:"weight"`
}

// Rubric maps criterion name to its definition.
type Rubric map[string]RubricCriterion

// Competition represents one pitch competition with its rubric, prize
// structure and lifecycle state.
type Competition struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Title       string `gorm:"size:255;not null" json:"title"`
	Slug        string `gorm:"size:255;uniqueIndex;not null" json:"slug"`
	Description string `gorm:"type:text;not null" json:"description"`
	Domain      string `gorm:"size:100;not null;index" json:"domain"`

	ImageKey string `gorm:"size:255" json:"image_key"`
	ImageURL string `gorm:"size:512" json:"image_url"`

	EntryFee              decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"entry_fee"`
	PrizePool             decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"prize_pool"`
	PlatformFeePercentage decimal.Decimal `gorm:"type:numeric(5,2);not null" json:"platform_fee_percentage"`

	MaxEntries     int `gorm:"not null" json:"max_entries"`
	CurrentEntries int `gorm:"not null;default:0" json:"current_entries"`

	OpenDate       time.Time `gorm:"not null;index" json:"open_date"`
	Deadline       time.Time `gorm:"not null;index" json:"deadline"`
	JudgingSLADays int       `gorm:"not null" json:"judging_sla_days"`

	Status string `gorm:"size:32;not null;default:draft;index" json:"status"`

	RubricJSON         datatypes.JSON `gorm:"column:rubric;type:json;not null" json:"-"`
	PrizeStructureJSON datatypes.JSON `gorm:"column:prize_structure;type:json;not null" json:"-"`

	CreatedBy uint `gorm:"not null;index" json:"created_by"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Submissions []Submission `json:"-"`
}

// Rubric decodes the stored rubric column.
func (c Competition) Rubric() (Rubric, error) {
	var rubric Rubric
	if err := json.Unmarshal(c.RubricJSON, &rubric); err != nil {
		return nil, fmt.Errorf("decode rubric: %w", err)
	}
	return rubric, nil
}

// PrizeStructure decodes the stored prize structure column.
func (c Competition) PrizeStructure() (PrizeStructure, error) {
	var structure PrizeStructure
	if err := json.Unmarshal(c.PrizeStructureJSON, &structure); err != nil {
		return nil, fmt.Errorf("decode prize structure: %w", err)
	}
	return structure, nil
}

// AcceptsAssignments reports whether judges may be (re)distributed.
func (c Competition) AcceptsAssignments() bool {
	return c.Status == CompetitionStatusClosed || c.Status == CompetitionStatusJudging
}
