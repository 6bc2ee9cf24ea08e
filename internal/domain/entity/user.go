package entity

import "time"

// User is the aggregate root for the account domain.
// Password holds a bcrypt hash, never plaintext. RefreshToken is the single
// currently-valid refresh credential for the user; nil means no active
// session.
type User struct {
	ID           int64
	Email        string
	Password     string
	RefreshToken *string
	Confirmed    bool
	Avatar       *string
	CreatedAt    time.Time
}
