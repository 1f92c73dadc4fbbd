package shortener

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/ayiooo/shortlink/internal/errx"
	"github.com/ayiooo/shortlink/internal/idgen"
)

const sqliteLinkColumns = `id, slug, url, owner_id, created_at`

// sqliteRepo stores links in an embedded SQLite database. created_at is
// kept as unix microseconds, matching PostgreSQL timestamp precision.
type sqliteRepo struct {
	db  *sql.DB
	ids idgen.Generator
	now func() time.Time
}

// NewSQLiteRepository returns a Repository over a database/sql handle opened
// with the modernc.org/sqlite driver.
func NewSQLiteRepository(db *sql.DB, config *RepositoryConfig) Repository {
	return &sqliteRepo{
		db:  db,
		ids: config.idGenerator(),
		now: time.Now,
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteLink(row rowScanner) (Link, error) {
	var (
		id        string
		link      Link
		owner     sql.NullString
		createdAt int64
	)
	if err := row.Scan(&id, &link.Slug, &link.URL, &owner, &createdAt); err != nil {
		return Link{}, err
	}

	parsed, err := uuid.Parse(id)
	if err != nil {
		return Link{}, err
	}
	link.ID = parsed
	if owner.Valid {
		o := owner.String
		link.OwnerID = &o
	}
	link.CreatedAt = time.UnixMicro(createdAt).UTC()
	return link, nil
}

func mapSQLiteError(op string, err error) error {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return errx.E(op, errx.NotFound, err)

	case isSlugUniqueViolation(err):
		return errx.E(op, errx.Conflict, err)

	default:
		return errx.E(op, errx.Unavailable, err)
	}
}

func (r *sqliteRepo) Insert(ctx context.Context, link Link) (Link, error) {
	const op = "shortener.repo.Insert"

	if link.ID == uuid.Nil {
		id, err := r.ids.Generate()
		if err != nil {
			return Link{}, errx.E(op, errx.Unavailable, err)
		}
		link.ID = id
	}

	var owner sql.NullString
	if link.OwnerID != nil {
		owner = sql.NullString{String: *link.OwnerID, Valid: true}
	}

	row := r.db.QueryRowContext(ctx,
		`INSERT INTO links (id, slug, url, owner_id, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 RETURNING `+sqliteLinkColumns,
		link.ID.String(), link.Slug, link.URL, owner, r.now().UnixMicro(),
	)

	created, err := scanSQLiteLink(row)
	if err != nil {
		return Link{}, mapSQLiteError(op, err)
	}
	return created, nil
}

func (r *sqliteRepo) FindBySlug(ctx context.Context, slug string) (Link, error) {
	const op = "shortener.repo.FindBySlug"

	row := r.db.QueryRowContext(ctx,
		`SELECT `+sqliteLinkColumns+` FROM links WHERE slug = ?`, slug)

	link, err := scanSQLiteLink(row)
	if err != nil {
		return Link{}, mapSQLiteError(op, err)
	}
	return link, nil
}

func (r *sqliteRepo) FindByID(ctx context.Context, id uuid.UUID) (Link, error) {
	const op = "shortener.repo.FindByID"

	row := r.db.QueryRowContext(ctx,
		`SELECT `+sqliteLinkColumns+` FROM links WHERE id = ?`, id.String())

	link, err := scanSQLiteLink(row)
	if err != nil {
		return Link{}, mapSQLiteError(op, err)
	}
	return link, nil
}

func (r *sqliteRepo) ListByOwner(ctx context.Context, ownerID string) ([]Link, error) {
	const op = "shortener.repo.ListByOwner"

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+sqliteLinkColumns+` FROM links
		 WHERE owner_id = ?
		 ORDER BY created_at DESC, id DESC`, ownerID)
	if err != nil {
		return nil, mapSQLiteError(op, err)
	}
	defer rows.Close()

	links := []Link{}
	for rows.Next() {
		link, err := scanSQLiteLink(rows)
		if err != nil {
			return nil, mapSQLiteError(op, err)
		}
		links = append(links, link)
	}
	if err := rows.Err(); err != nil {
		return nil, mapSQLiteError(op, err)
	}
	return links, nil
}

func (r *sqliteRepo) UpdateByID(ctx context.Context, id uuid.UUID, upd LinkUpdate) (Link, error) {
	const op = "shortener.repo.UpdateByID"

	row := r.db.QueryRowContext(ctx,
		`UPDATE links SET url = ?, slug = ?
		 WHERE id = ?
		 RETURNING `+sqliteLinkColumns,
		upd.URL, upd.Slug, id.String(),
	)

	link, err := scanSQLiteLink(row)
	if err != nil {
		return Link{}, mapSQLiteError(op, err)
	}
	return link, nil
}

func (r *sqliteRepo) DeleteByID(ctx context.Context, id uuid.UUID) error {
	const op = "shortener.repo.DeleteByID"

	if _, err := r.db.ExecContext(ctx, `DELETE FROM links WHERE id = ?`, id.String()); err != nil {
		return mapSQLiteError(op, err)
	}
	return nil
}
