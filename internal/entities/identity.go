package entities

// Identity is the authenticated caller of an operation, taken from the
// session token.
type Identity struct {
	UserID string
	Role   Role
}

// CanActFor reports whether the caller may read or change data owned by userID.
func (i Identity) CanActFor(userID string) bool {
	return i.UserID == userID || i.Role.IsPrivileged()
}

// ExternalIdentity is what an identity provider vouches for after a token
// exchange.
type ExternalIdentity struct {
	ExternalID string
	Email      string
	Name       string
	Role       Role
}
