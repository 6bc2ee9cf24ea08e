package repository

import (
	"context"

	"github.com/mpetrenko/contacts-api/internal/domain/entity"
)

// ContactRepository defines the interface for contact-related database
// operations. Every method is scoped to the owning user; a contact that
// exists but belongs to someone else behaves as not found.
type ContactRepository interface {
	Create(ctx context.Context, c *entity.Contact) error
	GetByID(ctx context.Context, id, userID int64) (*entity.Contact, error)
	List(ctx context.Context, userID int64) ([]entity.Contact, error)
	Update(ctx context.Context, c *entity.Contact) error
	Delete(ctx context.Context, id, userID int64) (bool, error)
	Search(ctx context.Context, userID int64, query string) ([]entity.Contact, error)
	UpcomingBirthdays(ctx context.Context, userID int64, days int) ([]entity.Contact, error)
}
