package controller

import (
	"errors"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"statushub/models"
	"statushub/utils"
)

type UserController struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewUserController(db *gorm.DB, logger *log.Logger) *UserController {
	return &UserController{DB: db, Logger: logger}
}

// CreateUser provisions an account with a role. Role hierarchy applies:
// managers can mint employees and managers, only admins mint admins. The
// creator is stamped so managers keep manage rights over their hires.
func (uc *UserController) CreateUser(c *fiber.Ctx) error {
	actor, err := currentActor(c, uc.DB)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to resolve permissions", err)
	}

	var input struct {
		Name     string `json:"name" validate:"required,max=100"`
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required,min=8"`
		Role     string `json:"role" validate:"required,oneof=employee manager admin"`
		TeamIDs  []uint `json:"team_ids"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
	}

	if !actor.CanCreateRole(input.Role) {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "Not authorized to create this role", nil)
	}

	email := strings.ToLower(input.Email)
	var existing models.User
	if err := uc.DB.Where("email = ?", email).First(&existing).Error; err == nil {
		return utils.ErrorResponse(c, fiber.StatusConflict, "Email already registered", nil)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to hash password", err)
	}

	creatorID := actor.UserID
	user := models.User{
		Name:         input.Name,
		Email:        email,
		PasswordHash: string(hashedPassword),
		Role:         input.Role,
		IsActive:     true,
		CreatedByID:  &creatorID,
	}
	if err := uc.DB.Create(&user).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create user", err)
	}

	for _, teamID := range input.TeamIDs {
		var team models.Team
		if err := uc.DB.First(&team, teamID).Error; err != nil {
			continue
		}
		if !actor.CanManageTeam(&team) {
			continue
		}
		if err := team.AddMember(uc.DB, &user); err != nil {
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to add team membership", err)
		}
	}

	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(user))
}

// GetUsers lists accounts the actor may see: admins everyone, managers and
// employees the members of their accessible teams plus themselves.
func (uc *UserController) GetUsers(c *fiber.Ctx) error {
	actor, err := currentActor(c, uc.DB)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to resolve permissions", err)
	}

	query := uc.DB.Preload("Teams")
	if !actor.IsAdmin() {
		teamIDs, err := actor.AccessibleTeamIDs(uc.DB)
		if err != nil {
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to resolve teams", err)
		}
		if len(teamIDs) > 0 {
			query = query.Where(
				"id = ? OR id IN (SELECT user_id FROM team_members WHERE team_id IN ?)",
				actor.UserID, teamIDs)
		} else {
			query = query.Where("id = ?", actor.UserID)
		}
	}

	if role := c.Query("role"); role != "" {
		if !models.ValidRole(role) {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, "Unknown role filter", nil)
		}
		query = query.Where("role = ?", role)
	}
	if teamID := c.Query("team"); teamID != "" {
		query = query.Where(
			"id IN (SELECT user_id FROM team_members WHERE team_id = ?)",
			utils.ParseUint(teamID))
	}

	var users []models.User
	if err := query.Order("name").Find(&users).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch users", err)
	}

	return c.JSON(utils.SuccessResponse(users))
}

func (uc *UserController) GetUser(c *fiber.Ctx) error {
	actor, err := currentActor(c, uc.DB)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to resolve permissions", err)
	}

	var user models.User
	if err := uc.DB.Preload("Teams").First(&user, c.Params("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "User not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch user", err)
	}

	allowed, err := actor.CanManageUser(uc.DB, &user)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to resolve permissions", err)
	}
	if !allowed {
		// Viewing is looser than managing: teammates may see each other.
		visible := false
		for _, team := range user.Teams {
			if actor.MemberOfTeam(team.ID) {
				visible = true
				break
			}
		}
		if !visible {
			return utils.ErrorResponse(c, fiber.StatusForbidden, "Not authorized", nil)
		}
	}

	return c.JSON(utils.SuccessResponse(user))
}

// UpdateUser edits profile fields, role, or active flag on a managed account.
func (uc *UserController) UpdateUser(c *fiber.Ctx) error {
	actor, err := currentActor(c, uc.DB)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to resolve permissions", err)
	}

	var input struct {
		Name     string `json:"name" validate:"omitempty,max=100"`
		Password string `json:"password" validate:"omitempty,min=8"`
		Role     string `json:"role" validate:"omitempty,oneof=employee manager admin"`
		IsActive *bool  `json:"is_active"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
	}

	var user models.User
	if err := uc.DB.First(&user, c.Params("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "User not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch user", err)
	}

	allowed, err := actor.CanManageUser(uc.DB, &user)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to resolve permissions", err)
	}
	if !allowed {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "Not authorized", nil)
	}

	if input.Role != "" && input.Role != user.Role {
		// Promotions reuse the creation hierarchy: granting a role needs the
		// same rights as minting it.
		if !actor.CanCreateRole(input.Role) || user.ID == actor.UserID {
			return utils.ErrorResponse(c, fiber.StatusForbidden, "Not authorized to assign this role", nil)
		}
		user.Role = input.Role
	}
	if input.Name != "" {
		user.Name = input.Name
	}
	if input.Password != "" {
		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
		if err != nil {
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to hash password", err)
		}
		user.PasswordHash = string(hashedPassword)
	}
	if input.IsActive != nil {
		if user.ID == actor.UserID && !*input.IsActive {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, "Cannot deactivate your own account", nil)
		}
		user.IsActive = *input.IsActive
	}

	if err := uc.DB.Save(&user).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update user", err)
	}

	return c.JSON(utils.SuccessResponse(user))
}

// DeleteUser deactivates an account. Status history stays attributed, so
// accounts are soft-disabled rather than removed.
func (uc *UserController) DeleteUser(c *fiber.Ctx) error {
	actor, err := currentActor(c, uc.DB)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to resolve permissions", err)
	}

	var user models.User
	if err := uc.DB.First(&user, c.Params("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "User not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch user", err)
	}

	if user.ID == actor.UserID {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Cannot delete your own account", nil)
	}

	allowed, err := actor.CanManageUser(uc.DB, &user)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to resolve permissions", err)
	}
	if !allowed {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "Not authorized", nil)
	}

	user.IsActive = false
	if err := uc.DB.Save(&user).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to deactivate user", err)
	}

	return c.JSON(utils.SuccessResponse(fiber.Map{
		"message": "User deactivated successfully",
	}))
}
