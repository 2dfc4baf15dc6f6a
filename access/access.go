// Package access is the single place role and membership rules are decided.
// Controllers never branch on role strings themselves: list endpoints ask the
// actor for a query predicate (accessible team ids), single-resource
// endpoints ask for a per-instance verdict. Rules apply in precedence order
// and the first match wins; no match means deny.
package access

import (
	"gorm.io/gorm"

	"statushub/models"
)

// Actor is a resolved caller: role plus the memberships access decisions
// depend on. TeamIDs holds team memberships, ProjectIDs the projects the
// actor manages (managers only).
type Actor struct {
	UserID     uint
	Role       string
	TeamIDs    []uint
	ProjectIDs []uint
}

// ActorFromUser loads the membership sets the evaluator needs. Admins skip
// the lookups since every rule short-circuits for them.
func ActorFromUser(db *gorm.DB, user *models.User) (*Actor, error) {
	actor := &Actor{UserID: user.ID, Role: user.Role}
	if user.Role == models.RoleAdmin {
		return actor, nil
	}

	teamIDs, err := user.TeamIDs(db)
	if err != nil {
		return nil, err
	}
	actor.TeamIDs = teamIDs

	if user.Role == models.RoleManager {
		projectIDs, err := user.ManagedProjectIDs(db)
		if err != nil {
			return nil, err
		}
		actor.ProjectIDs = projectIDs
	}
	return actor, nil
}

func (a *Actor) IsAdmin() bool   { return a.Role == models.RoleAdmin }
func (a *Actor) IsManager() bool { return a.Role == models.RoleManager }

// ManagesProject reports whether the actor manages the given project.
func (a *Actor) ManagesProject(projectID uint) bool {
	if a.IsAdmin() {
		return true
	}
	for _, id := range a.ProjectIDs {
		if id == projectID {
			return true
		}
	}
	return false
}

// MemberOfTeam reports whether the actor belongs to the given team.
func (a *Actor) MemberOfTeam(teamID uint) bool {
	for _, id := range a.TeamIDs {
		if id == teamID {
			return true
		}
	}
	return false
}

// AccessibleTeamIDs is the filter-builder for list endpoints: the set of
// teams the actor may see, expressed as ids to feed a query predicate rather
// than post-filtering rows.
//   - admin: every team
//   - manager: teams of managed projects plus own memberships
//   - employee: own memberships only
func (a *Actor) AccessibleTeamIDs(db *gorm.DB) ([]uint, error) {
	if a.IsAdmin() {
		var ids []uint
		err := db.Model(&models.Team{}).Pluck("id", &ids).Error
		return ids, err
	}

	seen := make(map[uint]struct{}, len(a.TeamIDs))
	ids := make([]uint, 0, len(a.TeamIDs))
	for _, id := range a.TeamIDs {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}

	if a.IsManager() && len(a.ProjectIDs) > 0 {
		var managed []uint
		if err := db.Model(&models.Team{}).
			Where("project_id IN ?", a.ProjectIDs).
			Pluck("id", &managed).Error; err != nil {
			return nil, err
		}
		for _, id := range managed {
			if _, ok := seen[id]; !ok {
				seen[id] = struct{}{}
				ids = append(ids, id)
			}
		}
	}
	return ids, nil
}

// CanAccessTeam decides read access to a single team.
func (a *Actor) CanAccessTeam(team *models.Team) bool {
	if a.IsAdmin() {
		return true
	}
	if a.IsManager() && a.ManagesProject(team.ProjectID) {
		return true
	}
	return a.MemberOfTeam(team.ID)
}

// CanManageTeam decides create/update/delete on a team (and writes on
// resources owned by it, such as other members' status entries).
func (a *Actor) CanManageTeam(team *models.Team) bool {
	if a.IsAdmin() {
		return true
	}
	return a.IsManager() && a.ManagesProject(team.ProjectID)
}

// CanCreateRole enforces the role hierarchy on user provisioning: only an
// admin may create another admin, and employees provision nobody.
func (a *Actor) CanCreateRole(role string) bool {
	switch a.Role {
	case models.RoleAdmin:
		return true
	case models.RoleManager:
		return role == models.RoleEmployee || role == models.RoleManager
	}
	return false
}

// CanManageUser decides mutations on an existing user: admins always,
// managers for users they created or who belong to a team of a managed
// project, everyone for themselves.
func (a *Actor) CanManageUser(db *gorm.DB, target *models.User) (bool, error) {
	if a.IsAdmin() {
		return true, nil
	}
	if target.ID == a.UserID {
		return true, nil
	}
	if !a.IsManager() {
		return false, nil
	}
	if target.CreatedByID != nil && *target.CreatedByID == a.UserID {
		return true, nil
	}
	if len(a.ProjectIDs) == 0 {
		return false, nil
	}
	var n int64
	err := db.Table("team_members").
		Joins("JOIN teams ON teams.id = team_members.team_id").
		Where("team_members.user_id = ? AND teams.project_id IN ?", target.ID, a.ProjectIDs).
		Count(&n).Error
	return n > 0, err
}

// CanAccessQuestion decides read access to a question: common questions are
// visible to everyone, otherwise the question's team scoping must intersect
// the actor's accessible teams.
func (a *Actor) CanAccessQuestion(db *gorm.DB, question *models.Question) (bool, error) {
	if a.IsAdmin() || question.IsCommon {
		return true, nil
	}
	teamIDs, err := a.AccessibleTeamIDs(db)
	if err != nil {
		return false, err
	}
	if len(teamIDs) == 0 {
		return false, nil
	}
	var n int64
	err = db.Table("team_questions").
		Where("question_id = ? AND team_id IN ?", question.ID, teamIDs).
		Count(&n).Error
	return n > 0, err
}

// CanWriteStatus decides whether the actor may write a status entry for the
// given user on the given team: own entries on own teams, manager entries
// anywhere in managed projects, admin everywhere.
func (a *Actor) CanWriteStatus(team *models.Team, targetUserID uint) bool {
	if a.IsAdmin() {
		return true
	}
	if a.IsManager() && a.ManagesProject(team.ProjectID) {
		return true
	}
	return targetUserID == a.UserID && a.MemberOfTeam(team.ID)
}
