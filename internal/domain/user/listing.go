package user

// Order keys accepted by the index listing.
const (
	OrderByName      = "name"
	OrderByEmail     = "email"
	OrderByCreatedAt = "created_at"
	OrderByID        = "id"
)

// ListOptions selects one window of the ordered listing.
// Ties on the order key are broken by ID so the order is stable.
type ListOptions struct {
	Query  string // Query filters on a name or email substring; empty lists everyone
	Order  string // Order is one of the OrderBy keys
	Offset int
	Limit  int
}

// ValidOrder reports whether key is a supported order key.
func ValidOrder(key string) bool {
	switch key {
	case OrderByName, OrderByEmail, OrderByCreatedAt, OrderByID:
		return true
	}
	return false
}
