package constants

// User roles in the HodHod marketplace.
const (
	Buyer      = "buyer"
	Contractor = "contractor"
	Supplier   = "supplier"
	Admin      = "admin"
)

// ValidRoles is the set of allowed DB enum values for user role.
var ValidRoles = []string{Buyer, Contractor, Supplier, Admin}

// IsValidRole returns true if role is one of the allowed enum values.
func IsValidRole(role string) bool {
	for _, r := range ValidRoles {
		if r == role {
			return true
		}
	}
	return false
}
