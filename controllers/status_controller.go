package controller

import (
	"errors"
	"log"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"statushub/models"
	"statushub/reports"
	"statushub/utils"
)

type StatusController struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewStatusController(db *gorm.DB, logger *log.Logger) *StatusController {
	return &StatusController{DB: db, Logger: logger}
}

type statusResponseInput struct {
	QuestionID uint   `json:"question_id"`
	Question   string `json:"question" validate:"omitempty,max=500"`
	Answer     string `json:"answer" validate:"required"`
}

type statusWriteInput struct {
	TeamID      uint                  `json:"team_id" validate:"required"`
	UserID      uint                  `json:"user_id"`
	Date        string                `json:"date" validate:"omitempty,datetime=2006-01-02"`
	IsLeave     bool                  `json:"is_leave"`
	LeaveReason string                `json:"leave_reason" validate:"omitempty,max=200"`
	Responses   []statusResponseInput `json:"responses" validate:"dive"`
}

// CreateStatus writes a day entry, updating in place when one already exists
// for the (user, team, day) key.
func (sc *StatusController) CreateStatus(c *fiber.Ctx) error {
	actor, err := currentActor(c, sc.DB)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to resolve permissions", err)
	}

	var input statusWriteInput
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
	}

	var team models.Team
	if err := sc.DB.First(&team, input.TeamID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Team not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch team", err)
	}

	targetUserID := input.UserID
	if targetUserID == 0 {
		targetUserID = actor.UserID
	}
	if !actor.CanWriteStatus(&team, targetUserID) {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "Not authorized", nil)
	}

	date := time.Now().UTC()
	if input.Date != "" {
		date, _ = time.Parse("2006-01-02", input.Date)
	}

	responses, err := sc.resolveResponses(input.Responses)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
	}

	update, created, err := models.UpsertStatusUpdate(sc.DB, models.StatusWrite{
		UserID:      targetUserID,
		TeamID:      team.ID,
		ProjectID:   team.ProjectID,
		Date:        date,
		IsLeave:     input.IsLeave,
		LeaveReason: input.LeaveReason,
		Responses:   responses,
		ActorID:     actor.UserID,
	})
	if err != nil {
		if errors.Is(err, models.ErrLeaveNeedsReason) ||
			errors.Is(err, models.ErrEmptyResponses) ||
			errors.Is(err, models.ErrMalformedResponse) {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to save status update", err)
	}

	status := fiber.StatusOK
	if created {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(utils.SuccessResponse(update))
}

// GetStatuses lists entries matching the filters, restricted to the actor's
// accessible teams. A filter naming an inaccessible team yields an empty
// result, not an error.
func (sc *StatusController) GetStatuses(c *fiber.Ctx) error {
	actor, err := currentActor(c, sc.DB)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to resolve permissions", err)
	}

	// Pagination
	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "50"))
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	offset := (page - 1) * limit

	teamIDs, err := actor.AccessibleTeamIDs(sc.DB)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to resolve teams", err)
	}
	if len(teamIDs) == 0 {
		return c.JSON(utils.PaginatedResponse{
			Data:  []models.StatusUpdate{},
			Total: 0,
			Page:  page,
			Limit: limit,
		})
	}

	from, to, err := reports.ResolveDateRange(
		c.Query("start_date"), c.Query("end_date"), c.Query("month"), time.Now())
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
	}

	query := sc.DB.Model(&models.StatusUpdate{}).
		Where("team_id IN ?", teamIDs).
		Where("date >= ? AND date <= ?", from, to)

	if teamID := c.Query("team"); teamID != "" {
		query = query.Where("team_id = ?", utils.ParseUint(teamID))
	}
	if projectID := c.Query("project"); projectID != "" {
		query = query.Where("project_id = ?", utils.ParseUint(projectID))
	}
	if userID := c.Query("user"); userID != "" {
		query = query.Where("user_id = ?", utils.ParseUint(userID))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to count status updates", err)
	}

	var updates []models.StatusUpdate
	if err := query.Preload("Responses").
		Order("date, team_id, user_id").
		Offset(offset).Limit(limit).
		Find(&updates).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch status updates", err)
	}

	return c.JSON(utils.PaginatedResponse{
		Data:  updates,
		Total: total,
		Page:  page,
		Limit: limit,
	})
}

func (sc *StatusController) GetStatus(c *fiber.Ctx) error {
	actor, err := currentActor(c, sc.DB)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to resolve permissions", err)
	}

	var update models.StatusUpdate
	if err := sc.DB.Preload("Responses").First(&update, c.Params("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Status update not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch status update", err)
	}

	var team models.Team
	if err := sc.DB.First(&team, update.TeamID).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch team", err)
	}
	if !actor.CanAccessTeam(&team) {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "Not authorized", nil)
	}

	return c.JSON(utils.SuccessResponse(update))
}

// UpdateStatus rewrites an existing entry through the same reconciliation
// path as creation, keyed by the entry's own (user, team, day).
func (sc *StatusController) UpdateStatus(c *fiber.Ctx) error {
	actor, err := currentActor(c, sc.DB)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to resolve permissions", err)
	}

	var input struct {
		IsLeave     bool                  `json:"is_leave"`
		LeaveReason string                `json:"leave_reason" validate:"omitempty,max=200"`
		Responses   []statusResponseInput `json:"responses" validate:"dive"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
	}

	var update models.StatusUpdate
	if err := sc.DB.First(&update, c.Params("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Status update not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch status update", err)
	}

	var team models.Team
	if err := sc.DB.First(&team, update.TeamID).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch team", err)
	}
	if !actor.CanWriteStatus(&team, update.UserID) {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "Not authorized", nil)
	}

	responses, err := sc.resolveResponses(input.Responses)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
	}

	saved, _, err := models.UpsertStatusUpdate(sc.DB, models.StatusWrite{
		UserID:      update.UserID,
		TeamID:      update.TeamID,
		ProjectID:   update.ProjectID,
		Date:        update.Date,
		IsLeave:     input.IsLeave,
		LeaveReason: input.LeaveReason,
		Responses:   responses,
		ActorID:     actor.UserID,
	})
	if err != nil {
		if errors.Is(err, models.ErrLeaveNeedsReason) ||
			errors.Is(err, models.ErrEmptyResponses) ||
			errors.Is(err, models.ErrMalformedResponse) {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to save status update", err)
	}

	return c.JSON(utils.SuccessResponse(saved))
}

func (sc *StatusController) DeleteStatus(c *fiber.Ctx) error {
	actor, err := currentActor(c, sc.DB)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to resolve permissions", err)
	}

	var update models.StatusUpdate
	if err := sc.DB.First(&update, c.Params("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Status update not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch status update", err)
	}

	var team models.Team
	if err := sc.DB.First(&team, update.TeamID).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch team", err)
	}
	if !actor.CanWriteStatus(&team, update.UserID) {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "Not authorized", nil)
	}

	tx := sc.DB.Begin()
	if err := tx.Where("status_update_id = ?", update.ID).
		Delete(&models.StatusResponse{}).Error; err != nil {
		tx.Rollback()
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete responses", err)
	}
	if err := tx.Delete(&update).Error; err != nil {
		tx.Rollback()
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete status update", err)
	}
	tx.Commit()

	return c.JSON(utils.SuccessResponse(fiber.Map{
		"message": "Status update deleted successfully",
	}))
}

// resolveResponses snapshots question text into each response. A response may
// name a stored question by id or carry free text directly.
func (sc *StatusController) resolveResponses(inputs []statusResponseInput) ([]models.StatusResponse, error) {
	var responses []models.StatusResponse
	for _, in := range inputs {
		resp := models.StatusResponse{
			QuestionID: in.QuestionID,
			Question:   in.Question,
			Answer:     in.Answer,
		}
		if in.QuestionID != 0 {
			var question models.Question
			if err := sc.DB.First(&question, in.QuestionID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return nil, errors.New("response references an unknown question")
				}
				return nil, err
			}
			resp.Question = question.Text
		}
		responses = append(responses, resp)
	}
	return responses, nil
}
