package account

import "time"

// User is an application user, created after external identity verification.
type User struct {
	ID        string
	Email     string
	Name      string
	CreatedAt time.Time
}

// Account is a linked mail account: one external mailbox bound to one user.
type Account struct {
	ID           string
	UserID       string
	EmailAddress string
	AccessToken  string
	RefreshToken string
	TokenExpiry  time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Credentials carries token material into an upsert. RefreshToken is optional:
// an empty value means "not reissued", never "revoke".
type Credentials struct {
	AccessToken  string
	RefreshToken string
	TokenExpiry  time.Time
}
