package shortener

import (
	"context"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/ayiooo/shortlink/internal/errx"
	"github.com/ayiooo/shortlink/internal/httpx"
)

// SlugFinder is the part of Repository the resolver needs.
type SlugFinder interface {
	FindBySlug(ctx context.Context, slug string) (Link, error)
}

// Decision is the outcome of resolving a request path.
type Decision int

const (
	// PassThrough leaves the request to the next handler.
	PassThrough Decision = iota
	// RedirectToLink sends the client to the stored destination.
	RedirectToLink
	// RedirectToRoot sends the client to the site root.
	RedirectToRoot
)

func (d Decision) String() string {
	switch d {
	case PassThrough:
		return "pass_through"
	case RedirectToLink:
		return "link"
	case RedirectToRoot:
		return "root"
	default:
		return "unknown"
	}
}

// staticPaths are browser-requested files that never resolve as slugs.
var staticPaths = []string{"/favicon.ico"}

// Resolver maps inbound paths to stored destinations. It knows nothing about
// ownership: any stored slug resolves.
type Resolver struct {
	links    SlugFinder
	logger   *slog.Logger
	rootURL  string
	reserved []string
}

// ResolverConfig holds configuration for the resolver.
type ResolverConfig struct {
	Links  SlugFinder
	Logger *slog.Logger
	// BaseURL is the public origin of the site; unknown slugs redirect to
	// its root. Empty means a relative "/".
	BaseURL string
	// ReservedPrefixes are first path segments handled by the API (default: "api").
	ReservedPrefixes []string
}

// NewResolver creates a new Resolver.
func NewResolver(cfg ResolverConfig) *Resolver {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	reserved := cfg.ReservedPrefixes
	if len(reserved) == 0 {
		reserved = DefaultReservedPrefixes
	}

	return &Resolver{
		links:    cfg.Links,
		logger:   logger,
		rootURL:  strings.TrimRight(cfg.BaseURL, "/") + "/",
		reserved: reserved,
	}
}

// Candidate extracts the slug to look up from path. ok is false when the
// path must not be resolved: the root, static files such as /favicon.ico,
// reserved prefixes, or an empty final segment.
func (r *Resolver) Candidate(path string) (slug string, ok bool) {
	if path == "" || path == "/" || slices.Contains(staticPaths, path) {
		return "", false
	}

	segments := strings.Split(path, "/")
	// segments[0] is the empty string before the leading slash.
	if len(segments) > 1 && slices.Contains(r.reserved, segments[1]) {
		return "", false
	}

	slug = segments[len(segments)-1]
	if slug == "" {
		return "", false
	}
	return slug, true
}

// Resolve decides where path should lead. target is set for the two
// redirect decisions.
func (r *Resolver) Resolve(ctx context.Context, path string) (Decision, string, error) {
	const op = "shortener.resolver.Resolve"

	slug, ok := r.Candidate(path)
	if !ok {
		return PassThrough, "", nil
	}

	link, err := r.links.FindBySlug(ctx, slug)
	switch {
	case err == nil:
		return RedirectToLink, link.URL, nil
	case errx.Is(err, errx.NotFound):
		return RedirectToRoot, r.rootURL, nil
	default:
		return PassThrough, "", errx.E(op, errx.Internal, err)
	}
}

// Middleware resolves GET and HEAD requests before they reach next.
func (r *Resolver) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet && req.Method != http.MethodHead {
			next.ServeHTTP(w, req)
			return
		}

		ctx := req.Context()
		decision, target, err := r.Resolve(ctx, req.URL.Path)
		if err != nil {
			r.logger.ErrorContext(ctx, "slug resolution failed",
				"request_id", httpx.GetRequestID(ctx),
				"path", req.URL.Path,
				"error", err.Error(),
			)
			httpx.WriteError(w, http.StatusInternalServerError, "internal_error",
				"Unable to resolve this link at this time", nil)
			return
		}

		if decision == PassThrough {
			next.ServeHTTP(w, req)
			return
		}

		r.logger.DebugContext(ctx, "slug resolved",
			"request_id", httpx.GetRequestID(ctx),
			"path", req.URL.Path,
			"decision", decision.String(),
			"target", target,
		)
		http.Redirect(w, req, target, http.StatusFound)
	})
}
