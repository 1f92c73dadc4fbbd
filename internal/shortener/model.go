package shortener

import (
	"time"

	"github.com/google/uuid"
)

// Link maps a public slug to a destination URL.
// OwnerID is nil for links created anonymously.
type Link struct {
	ID        uuid.UUID
	Slug      string
	URL       string
	OwnerID   *string
	CreatedAt time.Time
}

// IsOwnedBy reports whether the link belongs to ownerID. Anonymous links
// belong to nobody.
func (l Link) IsOwnedBy(ownerID string) bool {
	return l.OwnerID != nil && ownerID != "" && *l.OwnerID == ownerID
}

// LinkUpdate carries the mutable fields of a Link.
type LinkUpdate struct {
	URL  string
	Slug string
}
