package models

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
)

var (
	ErrLeaveNeedsReason  = errors.New("leave entries require a reason")
	ErrEmptyResponses    = errors.New("status entries require at least one response")
	ErrMalformedResponse = errors.New("every response needs a question and an answer")
)

// StatusUpdate is one employee's report for one team on one calendar day.
// The (user, team, date) key is unique; writes to an existing key update in
// place (last write wins).
type StatusUpdate struct {
	gorm.Model

	UserID    uint      `gorm:"not null;uniqueIndex:idx_status_user_team_day" json:"user_id"`
	TeamID    uint      `gorm:"not null;uniqueIndex:idx_status_user_team_day;index:idx_status_team_date" json:"team_id"`
	ProjectID uint      `gorm:"not null;index:idx_status_project_date" json:"project_id"`
	Date      time.Time `gorm:"not null;uniqueIndex:idx_status_user_team_day;index:idx_status_team_date;index:idx_status_project_date" json:"date"`

	// Either a leave marker with a reason, or a non-empty response list.
	IsLeave     bool   `gorm:"default:false" json:"is_leave"`
	LeaveReason string `json:"leave_reason,omitempty"`

	CreatedByID *uint `json:"created_by_id,omitempty"`
	UpdatedByID *uint `json:"updated_by_id,omitempty"`

	// Relations
	Responses []StatusResponse `gorm:"foreignKey:StatusUpdateID" json:"responses,omitempty"`
	User      User             `json:"-"`
	Team      Team             `json:"-"`
}

// StatusResponse is a single question/answer pair inside a status update.
// The question text is snapshotted so edits to the question later do not
// rewrite history.
type StatusResponse struct {
	gorm.Model

	StatusUpdateID uint   `gorm:"not null;index" json:"status_update_id"`
	QuestionID     uint   `gorm:"index" json:"question_id"`
	Question       string `gorm:"not null" json:"question"`
	Answer         string `gorm:"type:text;not null" json:"answer"`
}

// DayOf strips the time-of-day, defining the uniqueness key for a report.
func DayOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// StatusWrite carries everything needed to reconcile one day entry.
type StatusWrite struct {
	UserID    uint
	TeamID    uint
	ProjectID uint
	Date      time.Time

	IsLeave     bool
	LeaveReason string
	Responses   []StatusResponse

	ActorID uint
}

// UpsertStatusUpdate reconciles a day entry: at most one record exists per
// (user, team, calendar day). An existing record has its mutable fields
// overwritten and UpdatedBy stamped; otherwise a new record is created.
// Returns the record and whether it was newly created.
func UpsertStatusUpdate(db *gorm.DB, w StatusWrite) (*StatusUpdate, bool, error) {
	if w.IsLeave {
		if strings.TrimSpace(w.LeaveReason) == "" {
			return nil, false, ErrLeaveNeedsReason
		}
		w.Responses = nil
	} else {
		if len(w.Responses) == 0 {
			return nil, false, ErrEmptyResponses
		}
		for _, r := range w.Responses {
			if strings.TrimSpace(r.Question) == "" || strings.TrimSpace(r.Answer) == "" {
				return nil, false, ErrMalformedResponse
			}
		}
		w.LeaveReason = ""
	}

	day := DayOf(w.Date)

	var existing StatusUpdate
	err := db.Where("user_id = ? AND team_id = ? AND date = ?", w.UserID, w.TeamID, day).
		First(&existing).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		update := StatusUpdate{
			UserID:      w.UserID,
			TeamID:      w.TeamID,
			ProjectID:   w.ProjectID,
			Date:        day,
			IsLeave:     w.IsLeave,
			LeaveReason: w.LeaveReason,
			Responses:   w.Responses,
		}
		if w.ActorID != 0 {
			update.CreatedByID = &w.ActorID
		}
		if err := db.Create(&update).Error; err != nil {
			return nil, false, err
		}
		return &update, true, nil
	}

	// Last write wins: replace responses wholesale, no partial merge.
	if err := db.Where("status_update_id = ?", existing.ID).
		Delete(&StatusResponse{}).Error; err != nil {
		return nil, false, err
	}
	existing.IsLeave = w.IsLeave
	existing.LeaveReason = w.LeaveReason
	existing.Responses = w.Responses
	if w.ActorID != 0 {
		existing.UpdatedByID = &w.ActorID
	}
	if err := db.Save(&existing).Error; err != nil {
		return nil, false, err
	}
	return &existing, false, nil
}
