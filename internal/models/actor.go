package models

import "github.com/golang-jwt/jwt/v5"

// Role represents the available roles for the RBAC system.
type Role string

const (
	RoleSuperAdmin       Role = "SUPERADMIN"
	RoleAdmin            Role = "ADMIN"
	RoleStudentAffairs   Role = "STUDENT_AFFAIRS"
	RoleJointRegistrarSA Role = "JOINT_REGISTRAR_SA"
	RoleAssociateDeanSA  Role = "ASSOCIATE_DEAN_SA"
	RoleDeanSA           Role = "DEAN_SA"
	RoleGymkhana         Role = "GYMKHANA"
)

// SubRole narrows the Gymkhana role to its office bearers.
type SubRole string

const (
	SubRoleGS        SubRole = "GS"
	SubRolePresident SubRole = "PRESIDENT"
)

// Actor is the caller descriptor supplied by the auth collaborator.
// The workflow core authorizes against it but never authenticates.
type Actor struct {
	ID      string  `json:"id"`
	Role    Role    `json:"role"`
	SubRole SubRole `json:"subRole,omitempty"`
}

// IsAdmin reports whether the actor holds an administrative role.
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin || a.Role == RoleSuperAdmin
}

// IsGS reports whether the actor is the Gymkhana General Secretary.
func (a Actor) IsGS() bool {
	return a.Role == RoleGymkhana && a.SubRole == SubRoleGS
}

// IsPresident reports whether the actor is the Gymkhana President.
func (a Actor) IsPresident() bool {
	return a.Role == RoleGymkhana && a.SubRole == SubRolePresident
}

// ActorClaims represents the JWT payload for access tokens issued by the
// external auth service.
type ActorClaims struct {
	UserID  string  `json:"user_id"`
	Role    Role    `json:"role"`
	SubRole SubRole `json:"sub_role,omitempty"`
	jwt.RegisteredClaims
}

// Actor converts the token claims into the plain actor descriptor.
func (c *ActorClaims) Actor() Actor {
	return Actor{ID: c.UserID, Role: c.Role, SubRole: c.SubRole}
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
