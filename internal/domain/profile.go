package domain

// Role is the kind of marketplace account a profile belongs to.
type Role string

const (
	// RoleAgent is an individual agent.
	RoleAgent Role = "agent"
	// RoleAgency is an agency account; agencies invite agents and request contracts.
	RoleAgency Role = "agency"
	// RoleDeveloper is a property developer; developers review contracts.
	RoleDeveloper Role = "developer"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleAgent, RoleAgency, RoleDeveloper:
		return true
	default:
		return false
	}
}

// Profile is a marketplace account.
// AgencyID is the agency the account acts for; it is set when an agent accepts an invitation.
type Profile struct {
	Record
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Role     Role   `json:"role"`
	AgencyID string `json:"agency_id,omitempty"`
}

// Agency is a real-estate agency. OwnerID is the profile that administers it.
type Agency struct {
	Record
	Name    string `json:"name"`
	OwnerID string `json:"owner_id"`
}
