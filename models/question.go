package models

import (
	"errors"
	"strings"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Question types
const (
	QuestionTypeText           = "text"
	QuestionTypeSingleChoice   = "single_choice"
	QuestionTypeMultipleChoice = "multiple_choice"
)

var (
	ErrUnknownQuestionType = errors.New("unknown question type")
	ErrChoiceNeedsOptions  = errors.New("choice questions require at least one option")
)

// Question is a prompt employees answer in their daily status. Common
// questions apply to every team; otherwise visibility follows team scoping.
type Question struct {
	gorm.Model

	Text     string         `gorm:"not null" json:"text"`
	Type     string         `gorm:"default:'text'" json:"type"`
	Options  pq.StringArray `gorm:"type:text[]" json:"options"`
	IsCommon bool           `gorm:"default:false;index" json:"is_common"`

	CreatedByID *uint `gorm:"index" json:"created_by_id,omitempty"`

	// Relations
	Teams []Team `gorm:"many2many:team_questions;" json:"teams,omitempty"`
}

// Normalize enforces the type/options invariant before a write: text
// questions never carry options, choice questions must carry at least one.
func (q *Question) Normalize() error {
	if strings.TrimSpace(q.Text) == "" {
		return errors.New("question text is required")
	}
	switch q.Type {
	case "", QuestionTypeText:
		q.Type = QuestionTypeText
		q.Options = nil
	case QuestionTypeSingleChoice, QuestionTypeMultipleChoice:
		if len(q.Options) == 0 {
			return ErrChoiceNeedsOptions
		}
	default:
		return ErrUnknownQuestionType
	}
	return nil
}
