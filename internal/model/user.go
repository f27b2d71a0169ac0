package model

// User is a row of tblUsers. The table is owned by the wider account
// administration system; this service reads it for login and writes only the
// password column (legacy rehash) and rows created through the user CLI.
type User struct {
	ID         int64  `json:"id" db:"ID"`
	FirstName  string `json:"first_name" db:"FirstName"`
	LastName   string `json:"last_name" db:"LastName"`
	Email      string `json:"email" db:"Email"`
	Role       string `json:"role" db:"Role"`
	BranchName string `json:"branch" db:"BranchName"`
	Password   string `json:"-" db:"Password"` // hash or legacy plaintext, never expose
	Active     bool   `json:"-" db:"Active"`
}

// UserPayload is the profile shape returned by login, refresh, and /me.
type UserPayload struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	Branch    string `json:"branch"`
}

// Payload builds the external profile, optionally overriding the stored role
// (the SSO path carries the role resolved from group headers, not the one in
// the users table).
func (u User) Payload(roleOverride string) UserPayload {
	role := u.Role
	if roleOverride != "" {
		role = roleOverride
	}
	return UserPayload{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		Role:      role,
		Branch:    u.BranchName,
	}
}
