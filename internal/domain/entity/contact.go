package entity

import "time"

// Contact belongs to exactly one user.
type Contact struct {
	ID             int64
	FirstName      string
	LastName       string
	Email          string
	Phone          string
	Birthday       time.Time
	AdditionalInfo string
	UserID         int64
}
