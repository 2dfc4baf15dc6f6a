package controller

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"statushub/access"
	"statushub/models"
	"statushub/utils"
)

type ProjectController struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewProjectController(db *gorm.DB, logger *log.Logger) *ProjectController {
	return &ProjectController{DB: db, Logger: logger}
}

// CreateProject creates a project; admin only.
func (pc *ProjectController) CreateProject(c *fiber.Ctx) error {
	actor, err := currentActor(c, pc.DB)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to resolve permissions", err)
	}
	if !actor.IsAdmin() {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "Not authorized", nil)
	}

	var input struct {
		Name        string `json:"name" validate:"required,max=100"`
		Description string `json:"description" validate:"max=500"`
		ManagerIDs  []uint `json:"manager_ids"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
	}

	var existing models.Project
	if err := pc.DB.Where("name = ?", input.Name).First(&existing).Error; err == nil {
		return utils.ErrorResponse(c, fiber.StatusConflict, "Project with this name already exists", nil)
	}

	project := models.Project{
		Name:        input.Name,
		Description: input.Description,
	}
	if err := pc.DB.Create(&project).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create project", err)
	}

	if len(input.ManagerIDs) > 0 {
		if err := pc.syncManagers(&project, input.ManagerIDs); err != nil {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, "Failed to assign managers", err)
		}
	}

	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(project))
}

// GetProjects lists projects visible to the actor: admins see all, managers
// their managed projects, employees the projects owning their teams.
func (pc *ProjectController) GetProjects(c *fiber.Ctx) error {
	actor, err := currentActor(c, pc.DB)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to resolve permissions", err)
	}

	query := pc.DB.Preload("Teams").Preload("Managers")
	if !actor.IsAdmin() {
		teamIDs, err := actor.AccessibleTeamIDs(pc.DB)
		if err != nil {
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to resolve teams", err)
		}
		var projectIDs []uint
		if len(teamIDs) > 0 {
			if err := pc.DB.Model(&models.Team{}).
				Where("id IN ?", teamIDs).
				Distinct().
				Pluck("project_id", &projectIDs).Error; err != nil {
				return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to resolve projects", err)
			}
		}
		projectIDs = append(projectIDs, actor.ProjectIDs...)
		if len(projectIDs) == 0 {
			return c.JSON(utils.SuccessResponse([]models.Project{}))
		}
		query = query.Where("id IN ?", projectIDs)
	}

	var projects []models.Project
	if err := query.Find(&projects).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch projects", err)
	}

	return c.JSON(utils.SuccessResponse(projects))
}

func (pc *ProjectController) GetProject(c *fiber.Ctx) error {
	actor, err := currentActor(c, pc.DB)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to resolve permissions", err)
	}

	var project models.Project
	if err := pc.DB.Preload("Teams").Preload("Managers").
		First(&project, c.Params("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Project not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch project", err)
	}

	if !actor.IsAdmin() && !actor.ManagesProject(project.ID) {
		// Employees may view projects that own one of their teams.
		visible := false
		for _, team := range project.Teams {
			if actor.MemberOfTeam(team.ID) {
				visible = true
				break
			}
		}
		if !visible {
			return utils.ErrorResponse(c, fiber.StatusForbidden, "Not authorized", nil)
		}
	}

	return c.JSON(utils.SuccessResponse(project))
}

// UpdateProject renames a project and/or replaces its manager set; admin only.
func (pc *ProjectController) UpdateProject(c *fiber.Ctx) error {
	actor, err := currentActor(c, pc.DB)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to resolve permissions", err)
	}
	if !actor.IsAdmin() {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "Not authorized", nil)
	}

	var input struct {
		Name        string  `json:"name" validate:"omitempty,max=100"`
		Description *string `json:"description" validate:"omitempty,max=500"`
		ManagerIDs  *[]uint `json:"manager_ids"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
	}

	var project models.Project
	if err := pc.DB.First(&project, c.Params("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Project not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch project", err)
	}

	if input.Name != "" && input.Name != project.Name {
		var existing models.Project
		if err := pc.DB.Where("name = ?", input.Name).First(&existing).Error; err == nil {
			return utils.ErrorResponse(c, fiber.StatusConflict, "Project with this name already exists", nil)
		}
		project.Name = input.Name
	}
	if input.Description != nil {
		project.Description = *input.Description
	}

	if err := pc.DB.Save(&project).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update project", err)
	}

	if input.ManagerIDs != nil {
		if err := pc.syncManagers(&project, *input.ManagerIDs); err != nil {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, "Failed to assign managers", err)
		}
	}

	return c.JSON(utils.SuccessResponse(project))
}

// DeleteProject removes the project, its teams, and every membership link;
// admin only.
func (pc *ProjectController) DeleteProject(c *fiber.Ctx) error {
	actor, err := currentActor(c, pc.DB)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to resolve permissions", err)
	}
	if !actor.IsAdmin() {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "Not authorized", nil)
	}

	projectID := utils.ParseUint(c.Params("id"))

	tx := pc.DB.Begin()

	var teamIDs []uint
	if err := tx.Model(&models.Team{}).
		Where("project_id = ?", projectID).
		Pluck("id", &teamIDs).Error; err != nil {
		tx.Rollback()
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to resolve teams", err)
	}

	if len(teamIDs) > 0 {
		if err := tx.Exec("DELETE FROM team_members WHERE team_id IN ?", teamIDs).Error; err != nil {
			tx.Rollback()
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete team memberships", err)
		}
		if err := tx.Exec("DELETE FROM team_questions WHERE team_id IN ?", teamIDs).Error; err != nil {
			tx.Rollback()
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete team questions", err)
		}
		if err := tx.Where("team_id IN ?", teamIDs).Delete(&models.StatusUpdate{}).Error; err != nil {
			tx.Rollback()
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete status updates", err)
		}
		if err := tx.Where("project_id = ?", projectID).Delete(&models.Team{}).Error; err != nil {
			tx.Rollback()
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete teams", err)
		}
	}

	if err := tx.Exec("DELETE FROM project_managers WHERE project_id = ?", projectID).Error; err != nil {
		tx.Rollback()
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete manager links", err)
	}

	result := tx.Delete(&models.Project{}, projectID)
	if result.Error != nil {
		tx.Rollback()
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete project", result.Error)
	}
	if result.RowsAffected == 0 {
		tx.Rollback()
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Project not found", nil)
	}

	tx.Commit()

	return c.JSON(utils.SuccessResponse(fiber.Map{
		"message": "Project deleted successfully",
	}))
}

// syncManagers replaces the manager set; every id must be a manager or admin.
func (pc *ProjectController) syncManagers(project *models.Project, managerIDs []uint) error {
	var managers []models.User
	if len(managerIDs) > 0 {
		if err := pc.DB.Where("id IN ? AND role IN ?", managerIDs,
			[]string{models.RoleManager, models.RoleAdmin}).Find(&managers).Error; err != nil {
			return err
		}
		if len(managers) != len(managerIDs) {
			return errors.New("one or more manager ids are not manager accounts")
		}
	}
	return pc.DB.Model(project).Association("Managers").Replace(managers)
}

// currentActor resolves the authenticated user into an access evaluator actor.
func currentActor(c *fiber.Ctx, db *gorm.DB) (*access.Actor, error) {
	user := c.Locals("user").(*models.User)
	return access.ActorFromUser(db, user)
}
