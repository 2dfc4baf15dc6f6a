package models

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(
		&User{}, &Project{}, &Team{}, &Question{}, &StatusUpdate{}, &StatusResponse{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func statusFixture(t *testing.T, db *gorm.DB) (*User, *Team) {
	t.Helper()
	user := &User{Name: "asha", Email: "asha@example.test", PasswordHash: "x", Role: RoleEmployee, IsActive: true}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	project := &Project{Name: "P"}
	if err := db.Create(project).Error; err != nil {
		t.Fatalf("create project: %v", err)
	}
	team := &Team{Name: "T", ProjectID: project.ID}
	if err := db.Create(team).Error; err != nil {
		t.Fatalf("create team: %v", err)
	}
	return user, team
}

func TestUpsertStatusUpdateReconcilesSameDay(t *testing.T) {
	db := testDB(t)
	user, team := statusFixture(t, db)

	morning := time.Date(2025, time.March, 3, 9, 0, 0, 0, time.UTC)
	evening := time.Date(2025, time.March, 3, 18, 30, 0, 0, time.UTC)

	first, created, err := UpsertStatusUpdate(db, StatusWrite{
		UserID: user.ID, TeamID: team.ID, ProjectID: team.ProjectID,
		Date:      morning,
		Responses: []StatusResponse{{Question: "What did you do?", Answer: "built parser"}},
		ActorID:   user.ID,
	})
	if err != nil {
		t.Fatalf("first write: %v", err)
	}
	if !created {
		t.Fatal("first write should create")
	}

	second, created, err := UpsertStatusUpdate(db, StatusWrite{
		UserID: user.ID, TeamID: team.ID, ProjectID: team.ProjectID,
		Date: evening,
		Responses: []StatusResponse{
			{Question: "What did you do?", Answer: "built parser, fixed bug"},
			{Question: "Any blockers?", Answer: "none"},
		},
		ActorID: user.ID,
	})
	if err != nil {
		t.Fatalf("second write: %v", err)
	}
	if created {
		t.Fatal("same-day write should update in place")
	}
	if second.ID != first.ID {
		t.Fatalf("expected the same record, got %d and %d", first.ID, second.ID)
	}
	if second.UpdatedByID == nil || *second.UpdatedByID != user.ID {
		t.Fatal("update should stamp UpdatedBy")
	}

	var count int64
	if err := db.Model(&StatusUpdate{}).
		Where("user_id = ? AND team_id = ?", user.ID, team.ID).
		Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 record per (user, team, day), got %d", count)
	}

	// Old responses are gone, not merged.
	var responses []StatusResponse
	if err := db.Where("status_update_id = ?", first.ID).Find(&responses).Error; err != nil {
		t.Fatalf("load responses: %v", err)
	}
	if len(responses) != 2 {
		t.Fatalf("expected 2 responses after replacement, got %d", len(responses))
	}
	for _, r := range responses {
		if r.Answer == "built parser" {
			t.Fatal("stale response survived the rewrite")
		}
	}
}

func TestUpsertStatusUpdateLeaveReplacesResponses(t *testing.T) {
	db := testDB(t)
	user, team := statusFixture(t, db)
	day := time.Date(2025, time.March, 4, 10, 0, 0, 0, time.UTC)

	if _, _, err := UpsertStatusUpdate(db, StatusWrite{
		UserID: user.ID, TeamID: team.ID, ProjectID: team.ProjectID,
		Date:      day,
		Responses: []StatusResponse{{Question: "What did you do?", Answer: "built parser"}},
	}); err != nil {
		t.Fatalf("content write: %v", err)
	}

	update, created, err := UpsertStatusUpdate(db, StatusWrite{
		UserID: user.ID, TeamID: team.ID, ProjectID: team.ProjectID,
		Date:    day,
		IsLeave: true, LeaveReason: "Sick Leave",
	})
	if err != nil {
		t.Fatalf("leave write: %v", err)
	}
	if created {
		t.Fatal("leave write for the same day should update")
	}
	if !update.IsLeave || update.LeaveReason != "Sick Leave" {
		t.Fatalf("unexpected record: %+v", update)
	}

	var n int64
	if err := db.Model(&StatusResponse{}).
		Where("status_update_id = ?", update.ID).Count(&n).Error; err != nil {
		t.Fatalf("count responses: %v", err)
	}
	if n != 0 {
		t.Fatalf("leave entry should carry no responses, got %d", n)
	}
}

func TestUpsertStatusUpdateValidation(t *testing.T) {
	db := testDB(t)
	user, team := statusFixture(t, db)
	day := time.Now()

	_, _, err := UpsertStatusUpdate(db, StatusWrite{
		UserID: user.ID, TeamID: team.ID, ProjectID: team.ProjectID,
		Date: day, IsLeave: true,
	})
	if !errors.Is(err, ErrLeaveNeedsReason) {
		t.Fatalf("expected ErrLeaveNeedsReason, got %v", err)
	}

	_, _, err = UpsertStatusUpdate(db, StatusWrite{
		UserID: user.ID, TeamID: team.ID, ProjectID: team.ProjectID,
		Date: day,
	})
	if !errors.Is(err, ErrEmptyResponses) {
		t.Fatalf("expected ErrEmptyResponses, got %v", err)
	}

	_, _, err = UpsertStatusUpdate(db, StatusWrite{
		UserID: user.ID, TeamID: team.ID, ProjectID: team.ProjectID,
		Date:      day,
		Responses: []StatusResponse{{Question: "", Answer: "something"}},
	})
	if !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("expected ErrMalformedResponse, got %v", err)
	}
}

func TestDayOfNormalizesToUTCMidnight(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)
	stamp := time.Date(2025, time.March, 4, 2, 0, 0, 0, ist) // 3-Mar 20:30 UTC

	got := DayOf(stamp)
	want := time.Date(2025, time.March, 3, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("DayOf = %v, want %v", got, want)
	}
}

func TestQuestionNormalize(t *testing.T) {
	q := &Question{Text: "How was the day?", Type: QuestionTypeText, Options: []string{"stale"}}
	if err := q.Normalize(); err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if len(q.Options) != 0 {
		t.Fatal("text questions must not carry options")
	}

	q = &Question{Text: "Status?", Type: QuestionTypeSingleChoice}
	if err := q.Normalize(); !errors.Is(err, ErrChoiceNeedsOptions) {
		t.Fatalf("expected ErrChoiceNeedsOptions, got %v", err)
	}

	q = &Question{Text: "Status?", Type: "slider"}
	if err := q.Normalize(); !errors.Is(err, ErrUnknownQuestionType) {
		t.Fatalf("expected ErrUnknownQuestionType, got %v", err)
	}

	q = &Question{Text: "Status?"}
	if err := q.Normalize(); err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if q.Type != QuestionTypeText {
		t.Fatalf("empty type should default to text, got %q", q.Type)
	}
}

func TestTeamAddMemberIdempotent(t *testing.T) {
	db := testDB(t)
	user, team := statusFixture(t, db)

	if err := team.AddMember(db, user); err != nil {
		t.Fatalf("first add: %v", err)
	}
	if err := team.AddMember(db, user); err != nil {
		t.Fatalf("second add: %v", err)
	}

	var n int64
	if err := db.Table("team_members").
		Where("team_id = ? AND user_id = ?", team.ID, user.ID).
		Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("membership rows = %d, want 1", n)
	}
}
