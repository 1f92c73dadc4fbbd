package shortener

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/ayiooo/shortlink/internal/errx"
	"github.com/ayiooo/shortlink/sluggen"
)

const (
	GeneratedSlugLength   = 6
	MaxSlugLength         = 100
	MaxURLLength          = 2048
	DefaultSlugMaxRetries = 5
)

// DefaultReservedPrefixes are first path segments that never resolve as slugs.
var DefaultReservedPrefixes = []string{"api"}

var errSlugTaken = errors.New("slug already exists")

// CreateLinkRequest holds the input of an owned link creation.
type CreateLinkRequest struct {
	URL  string
	Slug *string // nil or blank: a slug is generated
}

// UpdateLinkRequest holds the input of an owned link update.
type UpdateLinkRequest struct {
	URL  string
	Slug *string // nil or blank: see ServiceConfig.PreserveSlugOnUpdate
}

// Service defines the link lifecycle operations.
type Service interface {
	CreateAnonymous(ctx context.Context, rawURL string) (Link, error)
	CreateOwned(ctx context.Context, ownerID string, req CreateLinkRequest) (Link, error)
	UpdateOwned(ctx context.Context, ownerID string, id uuid.UUID, req UpdateLinkRequest) (Link, error)
	DeleteOwned(ctx context.Context, ownerID string, id uuid.UUID) error
	ListOwned(ctx context.Context, ownerID string) ([]Link, error)
	AssertOwnership(ctx context.Context, ownerID string, id uuid.UUID) (Link, error)
}

type service struct {
	repo                 Repository
	slugGenerator        sluggen.Generator
	slugMaxRetries       int
	preserveSlugOnUpdate bool
	reserved             []string
}

// ServiceConfig holds configuration for the service.
type ServiceConfig struct {
	SlugGenerator  sluggen.Generator
	SlugMaxRetries int // generate/insert attempts before giving up (default: 5)

	// PreserveSlugOnUpdate keeps a link's slug when an update omits it.
	// When false an omitted slug is replaced with a freshly generated one.
	PreserveSlugOnUpdate bool

	// ReservedPrefixes may not be used as custom slugs (default: "api").
	ReservedPrefixes []string
}

// NewService creates a new service instance.
func NewService(repo Repository, config *ServiceConfig) Service {
	if config == nil {
		config = &ServiceConfig{}
	}

	slugGen := config.SlugGenerator
	if slugGen == nil {
		slugGen = sluggen.NewBase62()
	}

	retries := config.SlugMaxRetries
	if retries <= 0 {
		retries = DefaultSlugMaxRetries
	}

	reserved := config.ReservedPrefixes
	if len(reserved) == 0 {
		reserved = DefaultReservedPrefixes
	}

	return &service{
		repo:                 repo,
		slugGenerator:        slugGen,
		slugMaxRetries:       retries,
		preserveSlugOnUpdate: config.PreserveSlugOnUpdate,
		reserved:             reserved,
	}
}

// CreateAnonymous stores url under a random slug with no owner.
func (s *service) CreateAnonymous(ctx context.Context, rawURL string) (Link, error) {
	const op = "shortener.service.CreateAnonymous"

	if err := validateURL(rawURL); err != nil {
		return Link{}, errx.E(op, errx.Invalid, err)
	}

	return s.insertGenerated(ctx, op, Link{URL: rawURL})
}

// CreateOwned stores url for ownerID under the requested slug, or a random
// one when none is given.
func (s *service) CreateOwned(ctx context.Context, ownerID string, req CreateLinkRequest) (Link, error) {
	const op = "shortener.service.CreateOwned"

	if ownerID == "" {
		return Link{}, errx.E(op, errx.Unauthorized, errors.New("owner is required"))
	}
	if err := validateURL(req.URL); err != nil {
		return Link{}, errx.E(op, errx.Invalid, err)
	}
	slug, err := s.normalizeSlug(req.Slug)
	if err != nil {
		return Link{}, errx.E(op, errx.Invalid, err)
	}

	link := Link{URL: req.URL, OwnerID: &ownerID}

	if slug == "" {
		return s.insertGenerated(ctx, op, link)
	}

	// Fast path for a friendly error; the unique constraint stays authoritative.
	switch _, err := s.repo.FindBySlug(ctx, slug); {
	case err == nil:
		return Link{}, errx.E(op, errx.Conflict, errSlugTaken)
	case !errx.Is(err, errx.NotFound):
		return Link{}, errx.E(op, errx.Internal, err)
	}

	link.Slug = slug
	created, err := s.repo.Insert(ctx, link)
	if err != nil {
		return Link{}, s.storeError(op, err)
	}
	return created, nil
}

// UpdateOwned replaces the url and slug of a link owned by ownerID.
func (s *service) UpdateOwned(ctx context.Context, ownerID string, id uuid.UUID, req UpdateLinkRequest) (Link, error) {
	const op = "shortener.service.UpdateOwned"

	if err := validateURL(req.URL); err != nil {
		return Link{}, errx.E(op, errx.Invalid, err)
	}
	slug, err := s.normalizeSlug(req.Slug)
	if err != nil {
		return Link{}, errx.E(op, errx.Invalid, err)
	}

	current, err := s.AssertOwnership(ctx, ownerID, id)
	if err != nil {
		return Link{}, errx.E(op, errx.KindOf(err), err)
	}

	if slug == "" {
		if s.preserveSlugOnUpdate {
			return s.update(ctx, op, id, LinkUpdate{URL: req.URL, Slug: current.Slug})
		}
		return s.updateGenerated(ctx, op, id, req.URL)
	}

	switch other, err := s.repo.FindBySlug(ctx, slug); {
	case err == nil && other.ID != id:
		return Link{}, errx.E(op, errx.Conflict, errSlugTaken)
	case err != nil && !errx.Is(err, errx.NotFound):
		return Link{}, errx.E(op, errx.Internal, err)
	}

	return s.update(ctx, op, id, LinkUpdate{URL: req.URL, Slug: slug})
}

// DeleteOwned removes the link if ownerID owns it. Unknown ids and links
// owned by someone else are left alone without error.
func (s *service) DeleteOwned(ctx context.Context, ownerID string, id uuid.UUID) error {
	const op = "shortener.service.DeleteOwned"

	if _, err := s.AssertOwnership(ctx, ownerID, id); err != nil {
		switch errx.KindOf(err) {
		case errx.NotFound, errx.Forbidden:
			return nil
		default:
			return errx.E(op, errx.KindOf(err), err)
		}
	}

	if err := s.repo.DeleteByID(ctx, id); err != nil {
		return errx.E(op, errx.Internal, err)
	}
	return nil
}

// ListOwned returns the owner's links, newest first.
func (s *service) ListOwned(ctx context.Context, ownerID string) ([]Link, error) {
	const op = "shortener.service.ListOwned"

	if ownerID == "" {
		return nil, errx.E(op, errx.Unauthorized, errors.New("owner is required"))
	}

	links, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, errx.E(op, errx.Internal, err)
	}
	return links, nil
}

// AssertOwnership loads the link and checks it belongs to ownerID. It
// reports NotFound for unknown ids and Forbidden for anonymous links or
// links of another owner.
func (s *service) AssertOwnership(ctx context.Context, ownerID string, id uuid.UUID) (Link, error) {
	const op = "shortener.service.AssertOwnership"

	if ownerID == "" {
		return Link{}, errx.E(op, errx.Unauthorized, errors.New("owner is required"))
	}

	link, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errx.Is(err, errx.NotFound) {
			return Link{}, errx.E(op, errx.NotFound, err)
		}
		return Link{}, errx.E(op, errx.Internal, err)
	}

	if !link.IsOwnedBy(ownerID) {
		return Link{}, errx.E(op, errx.Forbidden, errors.New("link is not owned by caller"))
	}
	return link, nil
}

// insertGenerated retries slug generation until the store accepts one.
func (s *service) insertGenerated(ctx context.Context, op string, link Link) (Link, error) {
	for range s.slugMaxRetries {
		slug, err := s.slugGenerator.Generate(GeneratedSlugLength)
		if err != nil {
			return Link{}, errx.E(op, errx.Internal, err)
		}

		link.Slug = slug
		created, err := s.repo.Insert(ctx, link)
		if err == nil {
			return created, nil
		}
		if !errx.Is(err, errx.Conflict) {
			return Link{}, errx.E(op, errx.Internal, err)
		}
	}

	return Link{}, errx.E(op, errx.Exhausted,
		fmt.Errorf("no free slug after %d attempts", s.slugMaxRetries))
}

func (s *service) updateGenerated(ctx context.Context, op string, id uuid.UUID, rawURL string) (Link, error) {
	for range s.slugMaxRetries {
		slug, err := s.slugGenerator.Generate(GeneratedSlugLength)
		if err != nil {
			return Link{}, errx.E(op, errx.Internal, err)
		}

		updated, err := s.repo.UpdateByID(ctx, id, LinkUpdate{URL: rawURL, Slug: slug})
		if err == nil {
			return updated, nil
		}
		if !errx.Is(err, errx.Conflict) {
			return Link{}, s.storeError(op, err)
		}
	}

	return Link{}, errx.E(op, errx.Exhausted,
		fmt.Errorf("no free slug after %d attempts", s.slugMaxRetries))
}

func (s *service) update(ctx context.Context, op string, id uuid.UUID, upd LinkUpdate) (Link, error) {
	updated, err := s.repo.UpdateByID(ctx, id, upd)
	if err != nil {
		return Link{}, s.storeError(op, err)
	}
	return updated, nil
}

// storeError keeps Conflict and NotFound visible to callers and hides every
// other storage failure behind Internal.
func (s *service) storeError(op string, err error) error {
	switch errx.KindOf(err) {
	case errx.Conflict:
		return errx.E(op, errx.Conflict, fmt.Errorf("%w: %w", errSlugTaken, err))
	case errx.NotFound:
		return errx.E(op, errx.NotFound, err)
	default:
		return errx.E(op, errx.Internal, err)
	}
}

// normalizeSlug trims the requested slug and validates it. A nil or blank
// slug yields "".
func (s *service) normalizeSlug(raw *string) (string, error) {
	if raw == nil {
		return "", nil
	}
	slug := strings.TrimSpace(*raw)
	if slug == "" {
		return "", nil
	}
	if err := validateSlug(slug); err != nil {
		return "", err
	}
	if slices.Contains(s.reserved, slug) {
		return "", fmt.Errorf("slug %q is reserved", slug)
	}
	return slug, nil
}

func validateURL(rawURL string) error {
	if rawURL == "" {
		return errors.New("url cannot be empty")
	}
	if len(rawURL) > MaxURLLength {
		return fmt.Errorf("url too long (max %d characters)", MaxURLLength)
	}

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return errors.New("invalid url format")
	}
	if parsedURL.Scheme == "" {
		return errors.New("url must include a scheme")
	}
	if parsedURL.Host == "" {
		return errors.New("url must include host")
	}
	return nil
}

func validateSlug(slug string) error {
	if utf8.RuneCountInString(slug) > MaxSlugLength {
		return fmt.Errorf("slug too long (maximum %d characters)", MaxSlugLength)
	}
	for _, c := range slug {
		if unicode.IsSpace(c) || strings.ContainsRune("/?#%", c) {
			return errors.New("slug cannot contain whitespace or any of / ? # %")
		}
	}
	return nil
}
