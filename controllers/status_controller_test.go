package controller

import (
	"encoding/json"
	"testing"
	"time"

	"statushub/models"
)

func TestGetStatusesPaginates(t *testing.T) {
	db := testDB(t)
	admin := mkUser(t, db, "admin", models.RoleAdmin)
	_, team := mkProjectTeam(t, db, "P", "Alpha")

	for day := 3; day <= 5; day++ {
		_, _, err := models.UpsertStatusUpdate(db, models.StatusWrite{
			UserID: admin.ID, TeamID: team.ID, ProjectID: team.ProjectID,
			Date:      time.Date(2025, time.March, day, 9, 0, 0, 0, time.UTC),
			Responses: []models.StatusResponse{{Question: "What did you do?", Answer: "work"}},
		})
		if err != nil {
			t.Fatalf("seed day %d: %v", day, err)
		}
	}

	sc := NewStatusController(db, discardLogger())
	app := testApp(admin)
	app.Get("/status", sc.GetStatuses)

	type page struct {
		Data  []models.StatusUpdate `json:"data"`
		Total int64                 `json:"total"`
		Page  int                   `json:"page"`
		Limit int                   `json:"limit"`
	}

	resp, body := doJSON(t, app, "GET",
		"/status?start_date=2025-03-01&end_date=2025-03-31&limit=2&page=1", nil)
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d: %s", resp.StatusCode, body)
	}
	var first page
	if err := json.Unmarshal(body, &first); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if first.Total != 3 || len(first.Data) != 2 || first.Page != 1 || first.Limit != 2 {
		t.Fatalf("first page: total=%d len=%d page=%d limit=%d",
			first.Total, len(first.Data), first.Page, first.Limit)
	}

	_, body = doJSON(t, app, "GET",
		"/status?start_date=2025-03-01&end_date=2025-03-31&limit=2&page=2", nil)
	var second page
	if err := json.Unmarshal(body, &second); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if second.Total != 3 || len(second.Data) != 1 {
		t.Fatalf("second page: total=%d len=%d", second.Total, len(second.Data))
	}

	// Date-ordered: the leftover row on page 2 is the latest day.
	if !second.Data[0].Date.Equal(time.Date(2025, time.March, 5, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("page 2 row date = %v", second.Data[0].Date)
	}
}
