package controller

import (
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"statushub/importer"
	"statushub/models"
)

func sheetBody(rows [][]string) importer.Sheet {
	return importer.Sheet{
		Headers: []string{"Team", "Employee", "Question", "3-Mar-2025"},
		Rows:    rows,
	}
}

func TestImportRejectsUnmanagedTeams(t *testing.T) {
	db := testDB(t)
	mgr := mkUser(t, db, "mgr", models.RoleManager) // manages no project
	mkProjectTeam(t, db, "P", "Alpha")

	lg := logrus.New()
	lg.SetOutput(io.Discard)
	ic := NewImportController(db, lg)
	app := testApp(mgr)
	app.Post("/import/upload-status-json", ic.UploadStatusJSON)

	resp, body := doJSON(t, app, "POST", "/import/upload-status-json", sheetBody([][]string{
		{"Alpha", "Asha", "What did you do?", "built parser"},
	}))
	if resp.StatusCode != fiber.StatusForbidden {
		t.Fatalf("status = %d, want 403", resp.StatusCode)
	}
	if !strings.Contains(string(body), "Alpha") {
		t.Fatalf("response should name the offending team: %s", body)
	}

	// Whole import refused: no entries, no placeholder users.
	var n int64
	if err := db.Model(&models.StatusUpdate{}).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Fatalf("denied import must write nothing, got %d status updates", n)
	}
	if err := db.Model(&models.User{}).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("denied import must not mint users, got %d", n)
	}
}

func TestImportCreatesEntitiesAndCommonQuestions(t *testing.T) {
	db := testDB(t)
	admin := mkUser(t, db, "admin", models.RoleAdmin)

	lg := logrus.New()
	lg.SetOutput(io.Discard)
	ic := NewImportController(db, lg)
	app := testApp(admin)
	app.Post("/import/upload-status-json", ic.UploadStatusJSON)

	resp, body := doJSON(t, app, "POST", "/import/upload-status-json", sheetBody([][]string{
		{"Alpha", "Asha", "What did you do?", "built parser"},
	}))
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200: %s", resp.StatusCode, body)
	}

	var payload struct {
		Data struct {
			Created          int `json:"created"`
			TeamsCreated     int `json:"teams_created"`
			UsersCreated     int `json:"users_created"`
			QuestionsCreated int `json:"questions_created"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Data.Created != 1 || payload.Data.TeamsCreated != 1 ||
		payload.Data.UsersCreated != 1 || payload.Data.QuestionsCreated != 1 {
		t.Fatalf("unexpected counts: %+v", payload.Data)
	}

	// Unknown teams land under the default project.
	var team models.Team
	if err := db.Where("name = ?", "Alpha").First(&team).Error; err != nil {
		t.Fatalf("team: %v", err)
	}
	var project models.Project
	if err := db.First(&project, team.ProjectID).Error; err != nil {
		t.Fatalf("project: %v", err)
	}
	if project.Name != models.DefaultProjectName {
		t.Fatalf("team filed under %q, want %q", project.Name, models.DefaultProjectName)
	}

	// Sheet-only employees get a synthesized placeholder account.
	var user models.User
	if err := db.Where("name = ?", "Asha").First(&user).Error; err != nil {
		t.Fatalf("user: %v", err)
	}
	if user.Email != "asha@statushub.local" || user.Role != models.RoleEmployee {
		t.Fatalf("unexpected placeholder account: %s / %s", user.Email, user.Role)
	}

	// Minted questions are free-text and common, with no team scoping rows.
	var question models.Question
	if err := db.Where("text = ?", "What did you do?").First(&question).Error; err != nil {
		t.Fatalf("question: %v", err)
	}
	if !question.IsCommon || question.Type != models.QuestionTypeText {
		t.Fatalf("imported question should be common free-text, got common=%v type=%q",
			question.IsCommon, question.Type)
	}
	var links int64
	if err := db.Table("team_questions").Where("question_id = ?", question.ID).Count(&links).Error; err != nil {
		t.Fatalf("count links: %v", err)
	}
	if links != 0 {
		t.Fatalf("common imported question should carry no team links, got %d", links)
	}

	// The day entry landed with a snapshotted response.
	var update models.StatusUpdate
	if err := db.Preload("Responses").
		Where("user_id = ? AND team_id = ?", user.ID, team.ID).
		First(&update).Error; err != nil {
		t.Fatalf("status update: %v", err)
	}
	if update.IsLeave || len(update.Responses) != 1 {
		t.Fatalf("unexpected entry: %+v", update)
	}
	if update.Responses[0].QuestionID != question.ID || update.Responses[0].Answer != "built parser" {
		t.Fatalf("unexpected response: %+v", update.Responses[0])
	}
}
