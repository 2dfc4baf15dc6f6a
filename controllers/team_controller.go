package controller

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"statushub/models"
	"statushub/utils"
)

type TeamController struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewTeamController(db *gorm.DB, logger *log.Logger) *TeamController {
	return &TeamController{DB: db, Logger: logger}
}

// CreateTeam creates a team under a project. Admins anywhere, managers only
// under projects they manage.
func (tc *TeamController) CreateTeam(c *fiber.Ctx) error {
	actor, err := currentActor(c, tc.DB)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to resolve permissions", err)
	}

	var input struct {
		Name      string `json:"name" validate:"required,max=100"`
		ProjectID uint   `json:"project_id" validate:"required"`
		MemberIDs []uint `json:"member_ids"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
	}

	var project models.Project
	if err := tc.DB.First(&project, input.ProjectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Project not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch project", err)
	}

	if !actor.ManagesProject(project.ID) {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "Not authorized", nil)
	}

	var existing models.Team
	if err := tc.DB.Where("name = ? AND project_id = ?", input.Name, project.ID).
		First(&existing).Error; err == nil {
		return utils.ErrorResponse(c, fiber.StatusConflict, "Team with this name already exists in the project", nil)
	}

	team := models.Team{
		Name:      input.Name,
		ProjectID: project.ID,
	}
	if err := tc.DB.Create(&team).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create team", err)
	}

	for _, userID := range input.MemberIDs {
		var user models.User
		if err := tc.DB.First(&user, userID).Error; err != nil {
			continue // unknown member ids are skipped, not fatal
		}
		if err := team.AddMember(tc.DB, &user); err != nil {
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to add team member", err)
		}
	}

	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(team))
}

// GetTeams lists the teams the actor may see, via the access filter-builder.
func (tc *TeamController) GetTeams(c *fiber.Ctx) error {
	actor, err := currentActor(c, tc.DB)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to resolve permissions", err)
	}

	teamIDs, err := actor.AccessibleTeamIDs(tc.DB)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to resolve teams", err)
	}
	if len(teamIDs) == 0 {
		return c.JSON(utils.SuccessResponse([]models.Team{}))
	}

	query := tc.DB.Preload("Members").Preload("Questions").Where("id IN ?", teamIDs)
	if projectID := c.Query("project"); projectID != "" {
		query = query.Where("project_id = ?", utils.ParseUint(projectID))
	}

	var teams []models.Team
	if err := query.Find(&teams).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch teams", err)
	}

	return c.JSON(utils.SuccessResponse(teams))
}

func (tc *TeamController) GetTeam(c *fiber.Ctx) error {
	actor, err := currentActor(c, tc.DB)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to resolve permissions", err)
	}

	var team models.Team
	if err := tc.DB.Preload("Members").Preload("Questions").
		First(&team, c.Params("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Team not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch team", err)
	}

	if !actor.CanAccessTeam(&team) {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "Not authorized", nil)
	}

	return c.JSON(utils.SuccessResponse(team))
}

// UpdateTeam renames a team and/or replaces its question scoping.
func (tc *TeamController) UpdateTeam(c *fiber.Ctx) error {
	actor, err := currentActor(c, tc.DB)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to resolve permissions", err)
	}

	var input struct {
		Name        string  `json:"name" validate:"omitempty,max=100"`
		QuestionIDs *[]uint `json:"question_ids"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
	}

	var team models.Team
	if err := tc.DB.First(&team, c.Params("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Team not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch team", err)
	}

	if !actor.CanManageTeam(&team) {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "Not authorized", nil)
	}

	if input.Name != "" {
		team.Name = input.Name
	}
	if err := tc.DB.Save(&team).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update team", err)
	}

	if input.QuestionIDs != nil {
		var questions []models.Question
		if len(*input.QuestionIDs) > 0 {
			if err := tc.DB.Where("id IN ?", *input.QuestionIDs).Find(&questions).Error; err != nil {
				return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch questions", err)
			}
			if len(questions) != len(*input.QuestionIDs) {
				return utils.ErrorResponse(c, fiber.StatusNotFound, "One or more questions not found", nil)
			}
		}
		if err := tc.DB.Model(&team).Association("Questions").Replace(questions); err != nil {
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update team questions", err)
		}
	}

	return c.JSON(utils.SuccessResponse(team))
}

// AddMember adds a user to the team, idempotently.
func (tc *TeamController) AddMember(c *fiber.Ctx) error {
	actor, err := currentActor(c, tc.DB)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to resolve permissions", err)
	}

	var input struct {
		UserID uint `json:"user_id" validate:"required"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
	}

	var team models.Team
	if err := tc.DB.First(&team, c.Params("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Team not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch team", err)
	}

	if !actor.CanManageTeam(&team) {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "Not authorized", nil)
	}

	var user models.User
	if err := tc.DB.First(&user, input.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "User not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch user", err)
	}

	if err := team.AddMember(tc.DB, &user); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to add team member", err)
	}

	return c.JSON(utils.SuccessResponse(fiber.Map{
		"message": "Member added successfully",
	}))
}

// RemoveMember removes a user from the team.
func (tc *TeamController) RemoveMember(c *fiber.Ctx) error {
	actor, err := currentActor(c, tc.DB)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to resolve permissions", err)
	}

	var team models.Team
	if err := tc.DB.First(&team, c.Params("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Team not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch team", err)
	}

	if !actor.CanManageTeam(&team) {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "Not authorized", nil)
	}

	userID := utils.ParseUint(c.Params("userID"))
	result := tc.DB.Exec("DELETE FROM team_members WHERE team_id = ? AND user_id = ?", team.ID, userID)
	if result.Error != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to remove team member", result.Error)
	}
	if result.RowsAffected == 0 {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "User is not a member of this team", nil)
	}

	return c.JSON(utils.SuccessResponse(fiber.Map{
		"message": "Member removed successfully",
	}))
}

// DeleteTeam removes the team, its membership and question links, and its
// status updates.
func (tc *TeamController) DeleteTeam(c *fiber.Ctx) error {
	actor, err := currentActor(c, tc.DB)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to resolve permissions", err)
	}

	var team models.Team
	if err := tc.DB.First(&team, c.Params("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Team not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch team", err)
	}

	if !actor.CanManageTeam(&team) {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "Not authorized", nil)
	}

	tx := tc.DB.Begin()

	if err := tx.Exec("DELETE FROM team_members WHERE team_id = ?", team.ID).Error; err != nil {
		tx.Rollback()
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete team memberships", err)
	}
	if err := tx.Exec("DELETE FROM team_questions WHERE team_id = ?", team.ID).Error; err != nil {
		tx.Rollback()
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete team questions", err)
	}
	if err := tx.Where("team_id = ?", team.ID).Delete(&models.StatusUpdate{}).Error; err != nil {
		tx.Rollback()
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete status updates", err)
	}
	if err := tx.Delete(&team).Error; err != nil {
		tx.Rollback()
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete team", err)
	}

	tx.Commit()

	return c.JSON(utils.SuccessResponse(fiber.Map{
		"message": "Team deleted successfully",
	}))
}
