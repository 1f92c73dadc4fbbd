package shortener

import (
	"context"

	"github.com/google/uuid"
)

// Repository is the only gateway to link persistence.
//
// Errors are reported as errx kinds: NotFound when a lookup or update
// matches no row, Conflict when the slug unique constraint rejects a write,
// and Unavailable for any other storage failure. Each call is atomic at the
// row level; there are no multi-row transactions.
type Repository interface {
	Insert(ctx context.Context, link Link) (Link, error)
	FindBySlug(ctx context.Context, slug string) (Link, error)
	FindByID(ctx context.Context, id uuid.UUID) (Link, error)
	// ListByOwner returns the owner's links, newest first.
	ListByOwner(ctx context.Context, ownerID string) ([]Link, error)
	UpdateByID(ctx context.Context, id uuid.UUID, upd LinkUpdate) (Link, error)
	// DeleteByID succeeds whether or not a row was removed.
	DeleteByID(ctx context.Context, id uuid.UUID) error
}
