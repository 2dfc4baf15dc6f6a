package controller

import (
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"statushub/models"
	"statushub/reports"
	"statushub/utils"
)

type ReportController struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewReportController(db *gorm.DB, logger *log.Logger) *ReportController {
	return &ReportController{DB: db, Logger: logger}
}

// ExportExcel streams the status grid for the resolved date range as a
// styled workbook. Filters mirror the status list endpoint; the result only
// ever contains teams the actor may see.
func (rc *ReportController) ExportExcel(c *fiber.Ctx) error {
	actor, err := currentActor(c, rc.DB)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to resolve permissions", err)
	}

	from, to, err := reports.ResolveDateRange(
		c.Query("start_date"), c.Query("end_date"), c.Query("month"), time.Now())
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
	}

	teamIDs, err := actor.AccessibleTeamIDs(rc.DB)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to resolve teams", err)
	}
	if len(teamIDs) == 0 {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "No status updates in range", nil)
	}

	query := rc.DB.Preload("Responses").Preload("User").Preload("Team").
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

	var updates []models.StatusUpdate
	if err := query.Order("date, team_id, user_id").Find(&updates).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch status updates", err)
	}
	if len(updates) == 0 {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "No status updates in range", nil)
	}

	records := make([]reports.StatusRecord, 0, len(updates))
	for _, u := range updates {
		rec := reports.StatusRecord{
			Team:        u.Team.Name,
			User:        u.User.Name,
			Date:        u.Date,
			IsLeave:     u.IsLeave,
			LeaveReason: u.LeaveReason,
		}
		for _, r := range u.Responses {
			rec.Answers = append(rec.Answers, reports.Answer{
				Question: r.Question,
				Value:    r.Answer,
			})
		}
		records = append(records, rec)
	}

	grid := reports.BuildGrid(records, from, to)
	payload, err := reports.EncodeXLSX(grid)
	if err != nil {
		rc.Logger.Printf("excel export failed: %v", err)
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to build workbook", err)
	}

	filename := fmt.Sprintf("status-report-%s-to-%s.xlsx",
		from.Format("2006-01-02"), to.Format("2006-01-02"))
	c.Set(fiber.HeaderContentType,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return c.Send(payload)
}
