package controller

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"statushub/access"
	"statushub/models"
	"statushub/utils"
)

type QuestionController struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewQuestionController(db *gorm.DB, logger *log.Logger) *QuestionController {
	return &QuestionController{DB: db, Logger: logger}
}

// CreateQuestion creates a question. Common questions are admin only;
// team-scoped questions need manage rights on every named team.
func (qc *QuestionController) CreateQuestion(c *fiber.Ctx) error {
	actor, err := currentActor(c, qc.DB)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to resolve permissions", err)
	}
	if !actor.IsAdmin() && !actor.IsManager() {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "Not authorized", nil)
	}

	var input struct {
		Text     string   `json:"text" validate:"required,max=500"`
		Type     string   `json:"type" validate:"omitempty,oneof=text single_choice multiple_choice"`
		Options  []string `json:"options"`
		IsCommon bool     `json:"is_common"`
		TeamIDs  []uint   `json:"team_ids"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
	}

	if input.IsCommon && !actor.IsAdmin() {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "Only admins may create common questions", nil)
	}

	teams, err := qc.manageableTeams(actor, input.TeamIDs)
	if err != nil {
		return qc.teamScopeError(c, err)
	}

	creatorID := actor.UserID
	question := models.Question{
		Text:        input.Text,
		Type:        input.Type,
		Options:     pq.StringArray(input.Options),
		IsCommon:    input.IsCommon,
		CreatedByID: &creatorID,
	}
	if err := question.Normalize(); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
	}

	if err := qc.DB.Create(&question).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create question", err)
	}
	if len(teams) > 0 {
		if err := qc.DB.Model(&question).Association("Teams").Replace(teams); err != nil {
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to scope question to teams", err)
		}
	}

	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(question))
}

// GetQuestions lists common questions plus those scoped to the actor's
// accessible teams.
func (qc *QuestionController) GetQuestions(c *fiber.Ctx) error {
	actor, err := currentActor(c, qc.DB)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to resolve permissions", err)
	}

	query := qc.DB.Preload("Teams")
	if !actor.IsAdmin() {
		teamIDs, err := actor.AccessibleTeamIDs(qc.DB)
		if err != nil {
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to resolve teams", err)
		}
		if len(teamIDs) > 0 {
			query = query.Where(
				"is_common = ? OR id IN (SELECT question_id FROM team_questions WHERE team_id IN ?)",
				true, teamIDs)
		} else {
			query = query.Where("is_common = ?", true)
		}
	}

	if teamID := c.Query("team"); teamID != "" {
		query = query.Where(
			"is_common = ? OR id IN (SELECT question_id FROM team_questions WHERE team_id = ?)",
			true, utils.ParseUint(teamID))
	}

	var questions []models.Question
	if err := query.Order("id").Find(&questions).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch questions", err)
	}

	return c.JSON(utils.SuccessResponse(questions))
}

func (qc *QuestionController) GetQuestion(c *fiber.Ctx) error {
	actor, err := currentActor(c, qc.DB)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to resolve permissions", err)
	}

	var question models.Question
	if err := qc.DB.Preload("Teams").First(&question, c.Params("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Question not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch question", err)
	}

	visible, err := actor.CanAccessQuestion(qc.DB, &question)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to resolve permissions", err)
	}
	if !visible {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "Not authorized", nil)
	}

	return c.JSON(utils.SuccessResponse(question))
}

// UpdateQuestion edits text, type, options, or team scoping. Past status
// responses keep their snapshotted question text.
func (qc *QuestionController) UpdateQuestion(c *fiber.Ctx) error {
	actor, err := currentActor(c, qc.DB)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to resolve permissions", err)
	}

	var input struct {
		Text     string    `json:"text" validate:"omitempty,max=500"`
		Type     string    `json:"type" validate:"omitempty,oneof=text single_choice multiple_choice"`
		Options  *[]string `json:"options"`
		IsCommon *bool     `json:"is_common"`
		TeamIDs  *[]uint   `json:"team_ids"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
	}

	var question models.Question
	if err := qc.DB.First(&question, c.Params("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Question not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch question", err)
	}

	if !qc.canEdit(actor, &question) {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "Not authorized", nil)
	}
	if input.IsCommon != nil && *input.IsCommon != question.IsCommon && !actor.IsAdmin() {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "Only admins may change common scoping", nil)
	}

	// Resolve the new team scoping before any write so a denied request
	// leaves the question untouched.
	var teams []models.Team
	if input.TeamIDs != nil {
		teams, err = qc.manageableTeams(actor, *input.TeamIDs)
		if err != nil {
			return qc.teamScopeError(c, err)
		}
	}

	if input.Text != "" {
		question.Text = input.Text
	}
	if input.Type != "" {
		question.Type = input.Type
	}
	if input.Options != nil {
		question.Options = pq.StringArray(*input.Options)
	}
	if input.IsCommon != nil {
		question.IsCommon = *input.IsCommon
	}
	if err := question.Normalize(); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
	}

	if err := qc.DB.Save(&question).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update question", err)
	}

	if input.TeamIDs != nil {
		if err := qc.DB.Model(&question).Association("Teams").Replace(teams); err != nil {
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to scope question to teams", err)
		}
	}

	return c.JSON(utils.SuccessResponse(question))
}

// DeleteQuestion removes a question and its team links. Existing status
// responses are untouched since they snapshot the question text.
func (qc *QuestionController) DeleteQuestion(c *fiber.Ctx) error {
	actor, err := currentActor(c, qc.DB)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to resolve permissions", err)
	}

	var question models.Question
	if err := qc.DB.First(&question, c.Params("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Question not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch question", err)
	}

	if !qc.canEdit(actor, &question) {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "Not authorized", nil)
	}

	tx := qc.DB.Begin()
	if err := tx.Exec("DELETE FROM team_questions WHERE question_id = ?", question.ID).Error; err != nil {
		tx.Rollback()
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete question links", err)
	}
	if err := tx.Delete(&question).Error; err != nil {
		tx.Rollback()
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete question", err)
	}
	tx.Commit()

	return c.JSON(utils.SuccessResponse(fiber.Map{
		"message": "Question deleted successfully",
	}))
}

// canEdit mirrors CanManageUser's shape: admins always, managers for
// questions they created.
func (qc *QuestionController) canEdit(actor *access.Actor, question *models.Question) bool {
	if actor.IsAdmin() {
		return true
	}
	if !actor.IsManager() || question.CreatedByID == nil {
		return false
	}
	return *question.CreatedByID == actor.UserID
}

var (
	errTeamsNotFound  = errors.New("one or more teams not found")
	errTeamsForbidden = errors.New("not authorized for team")
)

// manageableTeams loads the named teams and verifies manage rights on each.
func (qc *QuestionController) manageableTeams(actor *access.Actor, teamIDs []uint) ([]models.Team, error) {
	if len(teamIDs) == 0 {
		return nil, nil
	}
	var teams []models.Team
	if err := qc.DB.Where("id IN ?", teamIDs).Find(&teams).Error; err != nil {
		return nil, err
	}
	if len(teams) != len(teamIDs) {
		return nil, errTeamsNotFound
	}
	for i := range teams {
		if !actor.CanManageTeam(&teams[i]) {
			return nil, fmt.Errorf("%w %s", errTeamsForbidden, teams[i].Name)
		}
	}
	return teams, nil
}

// teamScopeError maps a manageableTeams failure onto the HTTP response.
func (qc *QuestionController) teamScopeError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, errTeamsForbidden):
		return utils.ErrorResponse(c, fiber.StatusForbidden, "Not authorized for team"+strings.TrimPrefix(err.Error(), errTeamsForbidden.Error()), nil)
	case errors.Is(err, errTeamsNotFound):
		return utils.ErrorResponse(c, fiber.StatusNotFound, "One or more teams not found", nil)
	}
	return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch teams", err)
}
