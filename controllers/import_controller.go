package controller

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/badoux/checkmail"
	"github.com/getsentry/sentry-go"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"statushub/access"
	"statushub/importer"
	"statushub/models"
	"statushub/utils"
)

// importEmailDomain is the domain synthesized emails are minted under for
// employees that exist only in an uploaded sheet.
const importEmailDomain = "statushub.local"

type ImportController struct {
	DB     *gorm.DB
	Logger *logrus.Logger
}

func NewImportController(db *gorm.DB, logger *logrus.Logger) *ImportController {
	return &ImportController{DB: db, Logger: logger}
}

// importSummary is the response body of both import endpoints.
type importSummary struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`

	TeamsCreated     int `json:"teams_created"`
	UsersCreated     int `json:"users_created"`
	QuestionsCreated int `json:"questions_created"`

	RowErrors      []importer.RowError `json:"row_errors,omitempty"`
	LeaveDominated int                 `json:"leave_dominated"`
	DateFallbacks  int                 `json:"date_fallbacks"`
}

// UploadStatus imports a status spreadsheet uploaded as multipart form data
// under the "file" field.
func (ic *ImportController) UploadStatus(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Missing file upload", err)
	}

	file, err := fileHeader.Open()
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Failed to open upload", err)
	}
	defer file.Close()

	sheet, err := importer.DecodeWorkbook(file)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Failed to read workbook", err)
	}

	return ic.runImport(c, sheet)
}

// UploadStatusJSON imports a pre-tabularized sheet posted as JSON, for
// clients that extract rows themselves.
func (ic *ImportController) UploadStatusJSON(c *fiber.Ctx) error {
	var sheet importer.Sheet
	if err := c.BodyParser(&sheet); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(sheet); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
	}

	return ic.runImport(c, &sheet)
}

func (ic *ImportController) runImport(c *fiber.Ctx, sheet *importer.Sheet) error {
	actor, err := currentActor(c, ic.DB)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to resolve permissions", err)
	}
	if !actor.IsAdmin() && !actor.IsManager() {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "Not authorized", nil)
	}

	result, err := importer.Process(sheet, time.Now())
	if err != nil {
		if errors.Is(err, importer.ErrNoValidRecords) && result != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success":    false,
				"message":    err.Error(),
				"row_errors": result.RowErrors,
			})
		}
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
	}

	teams, denied, err := ic.resolveTeams(actor, result.Entries)
	if err != nil {
		ic.Logger.WithError(err).Error("import: team resolution failed")
		sentry.CaptureException(err)
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to resolve teams", err)
	}
	if len(denied) > 0 {
		return utils.ErrorResponse(c, fiber.StatusForbidden,
			"Not authorized for teams: "+strings.Join(denied, ", "), nil)
	}

	summary := importSummary{
		RowErrors:      result.RowErrors,
		LeaveDominated: result.LeaveDominated,
		DateFallbacks:  result.DateFallbacks,
	}
	summary.TeamsCreated = teams.created

	users := make(map[string]*models.User)
	questions := make(map[string]struct{})

	for _, entry := range result.Entries {
		team := teams.byName[entry.Team]

		user, ok := users[entry.Employee]
		if !ok {
			var created bool
			user, created, err = ic.resolveUser(entry.Employee)
			if err != nil {
				ic.Logger.WithError(err).WithField("employee", entry.Employee).
					Error("import: user resolution failed")
				sentry.CaptureException(err)
				summary.Skipped++
				continue
			}
			users[entry.Employee] = user
			if created {
				summary.UsersCreated++
			}
		}
		if err := team.AddMember(ic.DB, user); err != nil {
			ic.Logger.WithError(err).Warn("import: membership write failed")
			sentry.CaptureException(err)
		}

		var responses []models.StatusResponse
		for _, qa := range entry.Responses {
			question, created, err := ic.resolveQuestion(team, qa.Question, actor.UserID)
			if err != nil {
				ic.Logger.WithError(err).WithField("question", qa.Question).
					Warn("import: question resolution failed, keeping text only")
				sentry.CaptureException(err)
			} else if created {
				if _, seen := questions[qa.Question]; !seen {
					questions[qa.Question] = struct{}{}
					summary.QuestionsCreated++
				}
			}
			resp := models.StatusResponse{Question: qa.Question, Answer: qa.Answer}
			if question != nil {
				resp.QuestionID = question.ID
			}
			responses = append(responses, resp)
		}

		_, created, err := models.UpsertStatusUpdate(ic.DB, models.StatusWrite{
			UserID:      user.ID,
			TeamID:      team.ID,
			ProjectID:   team.ProjectID,
			Date:        entry.Date,
			IsLeave:     entry.IsLeave,
			LeaveReason: entry.LeaveReason,
			Responses:   responses,
			ActorID:     actor.UserID,
		})
		if err != nil {
			ic.Logger.WithError(err).WithFields(logrus.Fields{
				"team":     entry.Team,
				"employee": entry.Employee,
				"date":     entry.Date.Format("2006-01-02"),
			}).Warn("import: entry skipped")
			summary.Skipped++
			continue
		}
		if created {
			summary.Created++
		} else {
			summary.Updated++
		}
	}

	ic.Logger.WithFields(logrus.Fields{
		"created":         summary.Created,
		"updated":         summary.Updated,
		"skipped":         summary.Skipped,
		"row_errors":      len(summary.RowErrors),
		"leave_dominated": summary.LeaveDominated,
		"date_fallbacks":  summary.DateFallbacks,
	}).Info("import finished")

	return c.JSON(utils.SuccessResponse(summary))
}

// resolvedTeams maps sheet team names to stored teams.
type resolvedTeams struct {
	byName  map[string]*models.Team
	created int
}

// resolveTeams finds or creates every team named in the entries. Unknown
// teams land under the default project. The whole import is refused when the
// actor lacks manage rights on any named team.
func (ic *ImportController) resolveTeams(actor *access.Actor, entries []importer.DayEntry) (*resolvedTeams, []string, error) {
	out := &resolvedTeams{byName: make(map[string]*models.Team)}
	var denied []string

	for _, entry := range entries {
		if _, ok := out.byName[entry.Team]; ok {
			continue
		}

		var team models.Team
		err := ic.DB.Where("name = ?", entry.Team).First(&team).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			project, err := ic.defaultProject()
			if err != nil {
				return nil, nil, err
			}
			if !actor.ManagesProject(project.ID) {
				denied = append(denied, entry.Team)
				continue
			}
			team = models.Team{Name: entry.Team, ProjectID: project.ID}
			if err := ic.DB.Create(&team).Error; err != nil {
				return nil, nil, err
			}
			out.created++
		} else if err != nil {
			return nil, nil, err
		} else if !actor.CanManageTeam(&team) {
			denied = append(denied, entry.Team)
			continue
		}

		t := team
		out.byName[entry.Team] = &t
	}
	return out, denied, nil
}

func (ic *ImportController) defaultProject() (*models.Project, error) {
	var project models.Project
	err := ic.DB.Where("name = ?", models.DefaultProjectName).
		FirstOrCreate(&project, models.Project{Name: models.DefaultProjectName}).Error
	return &project, err
}

// resolveUser finds an account by the sheet's display name, minting a
// placeholder account with a synthesized email when none exists.
func (ic *ImportController) resolveUser(name string) (*models.User, bool, error) {
	var user models.User
	err := ic.DB.Where("name = ?", name).First(&user).Error
	if err == nil {
		return &user, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	email := synthesizeEmail(name)
	if err := checkmail.ValidateFormat(email); err != nil {
		return nil, false, fmt.Errorf("synthesized email %q invalid: %w", email, err)
	}

	// Placeholder accounts get an unguessable password; a real login needs an
	// admin reset first.
	raw := make([]byte, 16)
	if _, err := rand.Read(raw); err != nil {
		return nil, false, err
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(hex.EncodeToString(raw)), bcrypt.DefaultCost)
	if err != nil {
		return nil, false, err
	}

	user = models.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hashed),
		Role:         models.RoleEmployee,
		IsActive:     true,
	}
	if err := ic.DB.Create(&user).Error; err != nil {
		return nil, false, err
	}
	return &user, true, nil
}

// resolveQuestion finds the question for a sheet question text, minting a
// free-text common question when none exists.
func (ic *ImportController) resolveQuestion(team *models.Team, text string, actorID uint) (*models.Question, bool, error) {
	var question models.Question
	err := ic.DB.Where("text = ?", text).First(&question).Error
	if err == nil {
		return &question, false, ic.scopeQuestion(team, &question)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	question = models.Question{
		Text:        text,
		Type:        models.QuestionTypeText,
		IsCommon:    true,
		CreatedByID: &actorID,
	}
	if err := question.Normalize(); err != nil {
		return nil, false, err
	}
	if err := ic.DB.Create(&question).Error; err != nil {
		return nil, false, err
	}
	return &question, true, nil
}

func (ic *ImportController) scopeQuestion(team *models.Team, question *models.Question) error {
	if question.IsCommon {
		return nil
	}
	var n int64
	if err := ic.DB.Table("team_questions").
		Where("team_id = ? AND question_id = ?", team.ID, question.ID).
		Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	return ic.DB.Model(team).Association("Questions").Append(question)
}

// synthesizeEmail derives a deterministic local-part from a display name.
func synthesizeEmail(name string) string {
	var b strings.Builder
	lastDot := true
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDot = false
		default:
			if !lastDot {
				b.WriteByte('.')
				lastDot = true
			}
		}
	}
	slug := strings.TrimSuffix(b.String(), ".")
	if slug == "" {
		slug = "import." + hex.EncodeToString([]byte(name))
	}
	return slug + "@" + importEmailDomain
}
