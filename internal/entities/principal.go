package entities

// Roles supplied by the identity collaborator.
const (
	RoleClient = "client"
	RoleOwner  = "owner"
	RoleAdmin  = "admin"
)

// Principal is the authenticated actor attached to every core operation.
// The core trusts the id and role but re-checks ownership itself.
type Principal struct {
	ID   int
	Role string
}

func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}
