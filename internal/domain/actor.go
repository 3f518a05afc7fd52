package domain

type Role string

const (
	RoleOrganizer Role = "organizer"
	RoleAdmin     Role = "admin"
)

// Actor is an already-authenticated caller. Credentials are verified upstream;
// only ownership and role are checked here.
type Actor struct {
	ID   string
	Role Role
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}
