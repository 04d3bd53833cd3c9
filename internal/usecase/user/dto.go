package user

// CreateUserRequest represents the signup form.
type CreateUserRequest struct {
	Name                 string
	Email                string
	Password             string
	PasswordConfirmation string
}

// UpdateUserRequest represents the profile edit form.
// The password must be supplied again; resubmitting the current one keeps it.
type UpdateUserRequest struct {
	ID                   int64
	Name                 string
	Email                string
	Password             string
	PasswordConfirmation string
}

// ListUsersRequest represents the request payload for listing users.
// It supports pagination, ordering and search functionality.
type ListUsersRequest struct {
	Page    int    // Page is 1-based; values below 1 select the first page
	PerPage int    // PerPage falls back to the configured page size when <= 0
	Order   string // Order is one of the domain OrderBy keys, name by default
	Query   string // Query optionally filters on a name or email substring
}
