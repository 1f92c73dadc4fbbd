package shortener

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ayiooo/shortlink/internal/errx"
)

/***************
 * Mocks
 ***************/

// mockRepository implements Repository with overridable funcs. Unset funcs
// fall back to a not-found or success answer.
type mockRepository struct {
	insertFunc      func(ctx context.Context, link Link) (Link, error)
	findBySlugFunc  func(ctx context.Context, slug string) (Link, error)
	findByIDFunc    func(ctx context.Context, id uuid.UUID) (Link, error)
	listByOwnerFunc func(ctx context.Context, ownerID string) ([]Link, error)
	updateByIDFunc  func(ctx context.Context, id uuid.UUID, upd LinkUpdate) (Link, error)
	deleteByIDFunc  func(ctx context.Context, id uuid.UUID) error

	insertCalls int
	updateCalls int
	deleteCalls int
}

func (m *mockRepository) Insert(ctx context.Context, link Link) (Link, error) {
	m.insertCalls++
	if m.insertFunc != nil {
		return m.insertFunc(ctx, link)
	}
	link.ID = uuid.New()
	link.CreatedAt = time.Now()
	return link, nil
}

func (m *mockRepository) FindBySlug(ctx context.Context, slug string) (Link, error) {
	if m.findBySlugFunc != nil {
		return m.findBySlugFunc(ctx, slug)
	}
	return Link{}, errNotFound("repo.FindBySlug")
}

func (m *mockRepository) FindByID(ctx context.Context, id uuid.UUID) (Link, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return Link{}, errNotFound("repo.FindByID")
}

func (m *mockRepository) ListByOwner(ctx context.Context, ownerID string) ([]Link, error) {
	if m.listByOwnerFunc != nil {
		return m.listByOwnerFunc(ctx, ownerID)
	}
	return []Link{}, nil
}

func (m *mockRepository) UpdateByID(ctx context.Context, id uuid.UUID, upd LinkUpdate) (Link, error) {
	m.updateCalls++
	if m.updateByIDFunc != nil {
		return m.updateByIDFunc(ctx, id, upd)
	}
	return Link{ID: id, URL: upd.URL, Slug: upd.Slug, CreatedAt: time.Now()}, nil
}

func (m *mockRepository) DeleteByID(ctx context.Context, id uuid.UUID) error {
	m.deleteCalls++
	if m.deleteByIDFunc != nil {
		return m.deleteByIDFunc(ctx, id)
	}
	return nil
}

// mockSlugGenerator implements sluggen.Generator for testing.
type mockSlugGenerator struct {
	generateFunc func(length int) (string, error)
	slugs        []string
	callCount    int
}

func (m *mockSlugGenerator) Generate(length int) (string, error) {
	m.callCount++

	if m.generateFunc != nil {
		return m.generateFunc(length)
	}
	if m.slugs != nil {
		idx := m.callCount - 1
		if idx >= 0 && idx < len(m.slugs) {
			return m.slugs[idx], nil
		}
	}
	return "abc123", nil
}

func errNotFound(op string) error {
	return errx.E(op, errx.NotFound, errors.New("not found"))
}

func errConflict(op string) error {
	return errx.E(op, errx.Conflict, errors.New("duplicate key value violates unique constraint"))
}

// memRepository is a small in-memory Repository that enforces slug
// uniqueness the way the real stores do.
type memRepository struct {
	mu    sync.Mutex
	links map[uuid.UUID]Link
	clock time.Time
}

func newMemRepository() *memRepository {
	return &memRepository{
		links: make(map[uuid.UUID]Link),
		clock: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (m *memRepository) Insert(_ context.Context, link Link) (Link, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, l := range m.links {
		if l.Slug == link.Slug {
			return Link{}, errConflict("mem.Insert")
		}
	}
	if link.ID == uuid.Nil {
		link.ID = uuid.New()
	}
	m.clock = m.clock.Add(time.Second)
	link.CreatedAt = m.clock
	m.links[link.ID] = link
	return link, nil
}

func (m *memRepository) FindBySlug(_ context.Context, slug string) (Link, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, l := range m.links {
		if l.Slug == slug {
			return l, nil
		}
	}
	return Link{}, errNotFound("mem.FindBySlug")
}

func (m *memRepository) FindByID(_ context.Context, id uuid.UUID) (Link, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.links[id]
	if !ok {
		return Link{}, errNotFound("mem.FindByID")
	}
	return l, nil
}

func (m *memRepository) ListByOwner(_ context.Context, ownerID string) ([]Link, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []Link{}
	for _, l := range m.links {
		if l.IsOwnedBy(ownerID) {
			out = append(out, l)
		}
	}
	slices.SortFunc(out, func(a, b Link) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return out, nil
}

func (m *memRepository) UpdateByID(_ context.Context, id uuid.UUID, upd LinkUpdate) (Link, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.links[id]
	if !ok {
		return Link{}, errNotFound("mem.UpdateByID")
	}
	for otherID, other := range m.links {
		if otherID != id && other.Slug == upd.Slug {
			return Link{}, errConflict("mem.UpdateByID")
		}
	}
	l.URL, l.Slug = upd.URL, upd.Slug
	m.links[id] = l
	return l, nil
}

func (m *memRepository) DeleteByID(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.links, id)
	return nil
}

func (m *memRepository) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.links)
}

func ptr[T any](v T) *T { return &v }

