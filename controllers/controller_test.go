package controller

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"statushub/models"
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
		&models.User{}, &models.Project{}, &models.Team{},
		&models.Question{}, &models.StatusUpdate{}, &models.StatusResponse{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func mkUser(t *testing.T, db *gorm.DB, name, role string) *models.User {
	t.Helper()
	user := &models.User{
		Name:         name,
		Email:        name + "@example.test",
		PasswordHash: "x",
		Role:         role,
		IsActive:     true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user %s: %v", name, err)
	}
	return user
}

func mkProjectTeam(t *testing.T, db *gorm.DB, projectName, teamName string) (*models.Project, *models.Team) {
	t.Helper()
	project := &models.Project{Name: projectName}
	if err := db.Create(project).Error; err != nil {
		t.Fatalf("create project: %v", err)
	}
	team := &models.Team{Name: teamName, ProjectID: project.ID}
	if err := db.Create(team).Error; err != nil {
		t.Fatalf("create team: %v", err)
	}
	return project, team
}

func discardLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

// testApp stands in for the JWT middleware: the given user is the
// authenticated caller on every request.
func testApp(user *models.User) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user", user)
		c.Locals("userID", user.ID)
		return c.Next()
	})
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body interface{}) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(buf)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request %s %s: %v", method, path, err)
	}
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	return resp, payload
}
