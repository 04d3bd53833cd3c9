package user

// CanDelete reports whether actor may delete target.
// Only admins delete, and never their own account.
func CanDelete(actor, target *User) bool {
	if actor == nil || target == nil {
		return false
	}
	return actor.IsAdmin && actor.ID != target.ID
}

// CanEdit reports whether actor may edit target's profile.
func CanEdit(actor, target *User) bool {
	if actor == nil || target == nil {
		return false
	}
	return actor.ID == target.ID
}
