package workflow

// Role is the fixed category of an actor determining baseline authority
type Role string

const (
	RoleTutor    Role = "TUTOR"
	RoleLecturer Role = "LECTURER"
	RoleHR       Role = "HR"
	RoleAdmin    Role = "ADMIN"
)

var validRoles = map[Role]bool{
	RoleTutor:    true,
	RoleLecturer: true,
	RoleHR:       true,
	RoleAdmin:    true,
}

// IsValid returns true if the role is a defined role
func (r Role) IsValid() bool {
	return validRoles[r]
}

// String returns the string representation of the role
func (r Role) String() string {
	return string(r)
}
