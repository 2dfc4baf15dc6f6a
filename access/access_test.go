package access

import (
	"fmt"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"statushub/models"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	// A named in-memory database keeps gorm's pooled connections on the same
	// store while isolating tests from each other.
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
		Email:        fmt.Sprintf("%s@example.test", name),
		PasswordHash: "x",
		Role:         role,
		IsActive:     true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user %s: %v", name, err)
	}
	return user
}

// fixture: project P (managed by mgr) owns teams T1 and T2; project Q owns
// T3. emp is a member of T1 only.
type fixture struct {
	db            *gorm.DB
	admin         *models.User
	mgr           *models.User
	emp           *models.User
	t1, t2, t3    *models.Team
	p, q          *models.Project
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db := testDB(t)

	f := &fixture{db: db}
	f.admin = mkUser(t, db, "admin", models.RoleAdmin)
	f.mgr = mkUser(t, db, "mgr", models.RoleManager)
	f.emp = mkUser(t, db, "emp", models.RoleEmployee)

	f.p = &models.Project{Name: "P"}
	f.q = &models.Project{Name: "Q"}
	for _, p := range []*models.Project{f.p, f.q} {
		if err := db.Create(p).Error; err != nil {
			t.Fatalf("create project: %v", err)
		}
	}
	if err := db.Model(f.p).Association("Managers").Append(f.mgr); err != nil {
		t.Fatalf("assign manager: %v", err)
	}

	f.t1 = &models.Team{Name: "T1", ProjectID: f.p.ID}
	f.t2 = &models.Team{Name: "T2", ProjectID: f.p.ID}
	f.t3 = &models.Team{Name: "T3", ProjectID: f.q.ID}
	for _, tm := range []*models.Team{f.t1, f.t2, f.t3} {
		if err := db.Create(tm).Error; err != nil {
			t.Fatalf("create team: %v", err)
		}
	}
	if err := f.t1.AddMember(db, f.emp); err != nil {
		t.Fatalf("add member: %v", err)
	}
	return f
}

func actorFor(t *testing.T, f *fixture, user *models.User) *Actor {
	t.Helper()
	actor, err := ActorFromUser(f.db, user)
	if err != nil {
		t.Fatalf("ActorFromUser: %v", err)
	}
	return actor
}

func TestAccessibleTeamIDs(t *testing.T) {
	f := setup(t)

	admin := actorFor(t, f, f.admin)
	ids, err := admin.AccessibleTeamIDs(f.db)
	if err != nil {
		t.Fatalf("admin: %v", err)
	}
	if len(ids) != 3 {
		t.Fatalf("admin should see every team, got %v", ids)
	}

	mgr := actorFor(t, f, f.mgr)
	ids, err = mgr.AccessibleTeamIDs(f.db)
	if err != nil {
		t.Fatalf("manager: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("manager should see both teams of the managed project, got %v", ids)
	}

	emp := actorFor(t, f, f.emp)
	ids, err = emp.AccessibleTeamIDs(f.db)
	if err != nil {
		t.Fatalf("employee: %v", err)
	}
	if len(ids) != 1 || ids[0] != f.t1.ID {
		t.Fatalf("employee should see memberships only, got %v", ids)
	}
}

func TestCanManageTeam(t *testing.T) {
	f := setup(t)

	mgr := actorFor(t, f, f.mgr)
	if !mgr.CanManageTeam(f.t2) {
		t.Fatal("manager should manage every team of the managed project")
	}
	if mgr.CanManageTeam(f.t3) {
		t.Fatal("manager should not manage a team of another project")
	}

	emp := actorFor(t, f, f.emp)
	if emp.CanManageTeam(f.t1) {
		t.Fatal("membership does not grant manage rights")
	}
}

func TestCanCreateRole(t *testing.T) {
	f := setup(t)

	admin := actorFor(t, f, f.admin)
	mgr := actorFor(t, f, f.mgr)
	emp := actorFor(t, f, f.emp)

	if !admin.CanCreateRole(models.RoleAdmin) {
		t.Fatal("admin mints admins")
	}
	if mgr.CanCreateRole(models.RoleAdmin) {
		t.Fatal("manager must not mint admins")
	}
	if !mgr.CanCreateRole(models.RoleEmployee) || !mgr.CanCreateRole(models.RoleManager) {
		t.Fatal("manager mints employees and managers")
	}
	if emp.CanCreateRole(models.RoleEmployee) {
		t.Fatal("employee provisions nobody")
	}
}

func TestCanManageUser(t *testing.T) {
	f := setup(t)
	outsider := mkUser(t, f.db, "outsider", models.RoleEmployee)

	mgr := actorFor(t, f, f.mgr)

	ok, err := mgr.CanManageUser(f.db, f.emp)
	if err != nil {
		t.Fatalf("CanManageUser: %v", err)
	}
	if !ok {
		t.Fatal("manager should manage members of managed-project teams")
	}

	ok, err = mgr.CanManageUser(f.db, outsider)
	if err != nil {
		t.Fatalf("CanManageUser: %v", err)
	}
	if ok {
		t.Fatal("manager should not manage an unrelated user")
	}

	// Creator link grants manage rights even without a team.
	hired := mkUser(t, f.db, "hired", models.RoleEmployee)
	hired.CreatedByID = &f.mgr.ID
	if err := f.db.Save(hired).Error; err != nil {
		t.Fatalf("save: %v", err)
	}
	ok, err = mgr.CanManageUser(f.db, hired)
	if err != nil {
		t.Fatalf("CanManageUser: %v", err)
	}
	if !ok {
		t.Fatal("manager should manage users they created")
	}

	emp := actorFor(t, f, f.emp)
	ok, err = emp.CanManageUser(f.db, f.emp)
	if err != nil {
		t.Fatalf("CanManageUser: %v", err)
	}
	if !ok {
		t.Fatal("everyone manages themselves")
	}
}

func TestCanWriteStatus(t *testing.T) {
	f := setup(t)

	emp := actorFor(t, f, f.emp)
	if !emp.CanWriteStatus(f.t1, f.emp.ID) {
		t.Fatal("member writes own status on own team")
	}
	if emp.CanWriteStatus(f.t1, f.mgr.ID) {
		t.Fatal("employee must not write for someone else")
	}
	if emp.CanWriteStatus(f.t2, f.emp.ID) {
		t.Fatal("employee must not write on a team they do not belong to")
	}

	mgr := actorFor(t, f, f.mgr)
	if !mgr.CanWriteStatus(f.t2, f.emp.ID) {
		t.Fatal("manager writes anywhere in the managed project")
	}
	if mgr.CanWriteStatus(f.t3, f.emp.ID) {
		t.Fatal("manager must not write outside managed projects")
	}
}

func TestCanAccessQuestion(t *testing.T) {
	f := setup(t)

	common := &models.Question{Text: "How are you?", Type: models.QuestionTypeText, IsCommon: true}
	scoped := &models.Question{Text: "Sprint status?", Type: models.QuestionTypeText}
	other := &models.Question{Text: "Q-only question?", Type: models.QuestionTypeText}
	for _, q := range []*models.Question{common, scoped, other} {
		if err := f.db.Create(q).Error; err != nil {
			t.Fatalf("create question: %v", err)
		}
	}
	if err := f.db.Model(f.t1).Association("Questions").Append(scoped); err != nil {
		t.Fatalf("scope question: %v", err)
	}
	if err := f.db.Model(f.t3).Association("Questions").Append(other); err != nil {
		t.Fatalf("scope question: %v", err)
	}

	emp := actorFor(t, f, f.emp)

	ok, err := emp.CanAccessQuestion(f.db, common)
	if err != nil || !ok {
		t.Fatalf("common question should be visible to everyone (ok=%v err=%v)", ok, err)
	}
	ok, err = emp.CanAccessQuestion(f.db, scoped)
	if err != nil || !ok {
		t.Fatalf("team-scoped question should be visible to members (ok=%v err=%v)", ok, err)
	}
	ok, err = emp.CanAccessQuestion(f.db, other)
	if err != nil {
		t.Fatalf("CanAccessQuestion: %v", err)
	}
	if ok {
		t.Fatal("question scoped to a foreign team must be hidden")
	}
}
