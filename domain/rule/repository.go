package rule

import (
	"context"
	"errors"
)

// ErrProfileNotFound is returned when a profile does not exist in the repository.
var ErrProfileNotFound = errors.New("profile not found")

// Repository provides persistent storage for profiles.
type Repository interface {
	// FindByName retrieves a profile by name. Returns ErrProfileNotFound
	// if no profile with that name is stored.
	FindByName(ctx context.Context, name string) (*Profile, error)

	// FindAll retrieves all stored profiles.
	FindAll(ctx context.Context) ([]*Profile, error)

	// Upsert inserts the profile or replaces the stored one with the same name.
	Upsert(ctx context.Context, p *Profile) error

	// Delete removes a profile by name. Returns ErrProfileNotFound if no
	// profile with that name is stored.
	Delete(ctx context.Context, name string) error
}
