package constants

const (
	ViewData      = "view_data"
	CreateAuction = "create_auction"
	PlaceBid      = "place_bid"
	CancelAuction = "cancel_auction"
	CloseAuction  = "close_auction"
)

// PermissionRoles maps each permission to roles allowed to perform it.
// Providers (contractors/suppliers) run auctions; everyone authenticated may
// bid (the engine itself rejects sellers bidding on their own auctions).
var PermissionRoles = map[string][]string{
	ViewData:      {Buyer, Contractor, Supplier, Admin},
	CreateAuction: {Contractor, Supplier, Admin},
	PlaceBid:      {Buyer, Contractor, Supplier, Admin},
	CancelAuction: {Contractor, Supplier, Admin},
	CloseAuction:  {Admin},
}

// AllowedRole returns true if role is in the list of allowed roles for the permission.
func AllowedRole(permission, role string) bool {
	roles, ok := PermissionRoles[permission]
	if !ok {
		return false
	}
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
