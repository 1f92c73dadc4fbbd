package shortener

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	db "github.com/ayiooo/shortlink/internal/db/sqlc"
	"github.com/ayiooo/shortlink/internal/errx"
	"github.com/ayiooo/shortlink/internal/idgen"
)

// querier is an internal interface that abstracts *db.Queries
type querier interface {
	CreateLink(ctx context.Context, arg db.CreateLinkParams) (db.Link, error)
	GetLinkBySlug(ctx context.Context, slug string) (db.Link, error)
	GetLinkByID(ctx context.Context, id uuid.UUID) (db.Link, error)
	ListLinksByOwner(ctx context.Context, ownerID pgtype.Text) ([]db.Link, error)
	UpdateLink(ctx context.Context, arg db.UpdateLinkParams) (db.Link, error)
	DeleteLink(ctx context.Context, id uuid.UUID) (int64, error)
}

type pgRepo struct {
	q   querier
	ids idgen.Generator
}

// RepositoryConfig holds configuration shared by the repository implementations.
type RepositoryConfig struct {
	IDGenerator idgen.Generator
}

func (c *RepositoryConfig) idGenerator() idgen.Generator {
	if c == nil || c.IDGenerator == nil {
		// UUID v7 keeps inserts roughly ordered on the primary key.
		return idgen.NewV7(1)
	}
	return c.IDGenerator
}

// NewPostgresRepository returns a Repository backed by sqlc queries over pgx.
func NewPostgresRepository(q querier, config *RepositoryConfig) Repository {
	return &pgRepo{
		q:   q,
		ids: config.idGenerator(),
	}
}

func mustTime(ts pgtype.Timestamptz, field string) (time.Time, error) {
	if !ts.Valid {
		return time.Time{}, fmt.Errorf("%s unexpectedly NULL", field)
	}
	return ts.Time, nil
}

func textPtr(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}
	s := t.String
	return &s
}

func toText(s *string) pgtype.Text {
	if s == nil {
		return pgtype.Text{}
	}
	return pgtype.Text{String: *s, Valid: true}
}

func toDomainLink(x db.Link) (Link, error) {
	createdAt, err := mustTime(x.CreatedAt, "created_at")
	if err != nil {
		return Link{}, err
	}

	return Link{
		ID:        x.ID,
		Slug:      x.Slug,
		URL:       x.Url,
		OwnerID:   textPtr(x.OwnerID),
		CreatedAt: createdAt,
	}, nil
}

func mapPgError(op string, err error) error {
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return errx.E(op, errx.NotFound, err)

	case isSlugUniqueViolation(err):
		return errx.E(op, errx.Conflict, err)

	default:
		return errx.E(op, errx.Unavailable, err)
	}
}

func (r *pgRepo) Insert(ctx context.Context, link Link) (Link, error) {
	const op = "shortener.repo.Insert"

	if link.ID == uuid.Nil {
		id, err := r.ids.Generate()
		if err != nil {
			return Link{}, errx.E(op, errx.Unavailable, err)
		}
		link.ID = id
	}

	row, err := r.q.CreateLink(ctx, db.CreateLinkParams{
		ID:      link.ID,
		Slug:    link.Slug,
		Url:     link.URL,
		OwnerID: toText(link.OwnerID),
	})
	if err != nil {
		return Link{}, mapPgError(op, err)
	}

	return r.convert(op, row)
}

func (r *pgRepo) FindBySlug(ctx context.Context, slug string) (Link, error) {
	const op = "shortener.repo.FindBySlug"

	row, err := r.q.GetLinkBySlug(ctx, slug)
	if err != nil {
		return Link{}, mapPgError(op, err)
	}
	return r.convert(op, row)
}

func (r *pgRepo) FindByID(ctx context.Context, id uuid.UUID) (Link, error) {
	const op = "shortener.repo.FindByID"

	row, err := r.q.GetLinkByID(ctx, id)
	if err != nil {
		return Link{}, mapPgError(op, err)
	}
	return r.convert(op, row)
}

func (r *pgRepo) ListByOwner(ctx context.Context, ownerID string) ([]Link, error) {
	const op = "shortener.repo.ListByOwner"

	rows, err := r.q.ListLinksByOwner(ctx, pgtype.Text{String: ownerID, Valid: true})
	if err != nil {
		return nil, mapPgError(op, err)
	}

	links := make([]Link, 0, len(rows))
	for _, row := range rows {
		link, err := r.convert(op, row)
		if err != nil {
			return nil, err
		}
		links = append(links, link)
	}
	return links, nil
}

func (r *pgRepo) UpdateByID(ctx context.Context, id uuid.UUID, upd LinkUpdate) (Link, error) {
	const op = "shortener.repo.UpdateByID"

	row, err := r.q.UpdateLink(ctx, db.UpdateLinkParams{
		ID:   id,
		Url:  upd.URL,
		Slug: upd.Slug,
	})
	if err != nil {
		return Link{}, mapPgError(op, err)
	}
	return r.convert(op, row)
}

func (r *pgRepo) DeleteByID(ctx context.Context, id uuid.UUID) error {
	const op = "shortener.repo.DeleteByID"

	if _, err := r.q.DeleteLink(ctx, id); err != nil {
		return mapPgError(op, err)
	}
	return nil
}

func (r *pgRepo) convert(op string, row db.Link) (Link, error) {
	link, err := toDomainLink(row)
	if err != nil {
		return Link{}, errx.E(op, errx.Unavailable, err)
	}
	return link, nil
}
