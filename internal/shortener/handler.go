package shortener

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ayiooo/shortlink/internal/errx"
	"github.com/ayiooo/shortlink/internal/httpx"
)

// HTTPAnonymousLinkRequest is the JSON body of an anonymous link creation.
type HTTPAnonymousLinkRequest struct {
	URL string `json:"url"`
}

// HTTPOwnedLinkRequest is the JSON body for creating or updating an owned link.
type HTTPOwnedLinkRequest struct {
	URL  string  `json:"url"`
	Slug *string `json:"slug,omitempty"`
}

// LinkResponse represents a link in API responses.
type LinkResponse struct {
	ID        string  `json:"id"`
	Slug      string  `json:"slug"`
	URL       string  `json:"url"`
	ShortURL  string  `json:"short_url"`
	OwnerID   *string `json:"owner_id,omitempty"`
	CreatedAt string  `json:"created_at"`
}

// ListLinksResponse wraps the links of the caller.
type ListLinksResponse struct {
	Links []LinkResponse `json:"links"`
}

// IdentifyFunc returns the authenticated user id carried by ctx.
type IdentifyFunc func(ctx context.Context) (userID string, ok bool)

// Handler provides HTTP handlers for the link API.
type Handler struct {
	service  Service
	logger   *slog.Logger
	baseURL  string
	identify IdentifyFunc
}

// HandlerConfig holds configuration for the handler.
type HandlerConfig struct {
	Service  Service
	Logger   *slog.Logger
	BaseURL  string // Base URL for constructing short URLs (e.g., "https://short.ly")
	Identify IdentifyFunc
}

// NewHandler creates a new Handler instance.
func NewHandler(cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	identify := cfg.Identify
	if identify == nil {
		identify = func(context.Context) (string, bool) { return "", false }
	}

	return &Handler{
		service:  cfg.Service,
		logger:   logger,
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		identify: identify,
	}
}

// CreateAnonymous handles POST /api/links.
func (h *Handler) CreateAnonymous(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.requestLogger(r)

	req, err := httpx.DecodeJSON[HTTPAnonymousLinkRequest](r)
	if err != nil {
		logger.WarnContext(ctx, "failed to decode request", "error", err.Error())
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error(), nil)
		return
	}

	link, err := h.service.CreateAnonymous(ctx, req.URL)
	if err != nil {
		h.handleError(ctx, logger, w, err)
		return
	}

	logger.InfoContext(ctx, "anonymous link created",
		"link_id", link.ID.String(),
		"slug", link.Slug,
	)
	httpx.WriteJSON(w, http.StatusCreated, h.toResponse(link))
}

// CreateOwned handles POST /api/user/links.
func (h *Handler) CreateOwned(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.requestLogger(r)

	ownerID, ok := h.identify(ctx)
	if !ok {
		writeUnauthorized(w)
		return
	}

	req, err := httpx.DecodeJSON[HTTPOwnedLinkRequest](r)
	if err != nil {
		logger.WarnContext(ctx, "failed to decode request", "error", err.Error())
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error(), nil)
		return
	}

	link, err := h.service.CreateOwned(ctx, ownerID, CreateLinkRequest{
		URL:  req.URL,
		Slug: req.Slug,
	})
	if err != nil {
		h.handleError(ctx, logger, w, err)
		return
	}

	logger.InfoContext(ctx, "link created",
		"link_id", link.ID.String(),
		"slug", link.Slug,
		"custom_slug", req.Slug != nil && strings.TrimSpace(*req.Slug) != "",
	)
	httpx.WriteJSON(w, http.StatusCreated, h.toResponse(link))
}

// ListOwned handles GET /api/user/links.
func (h *Handler) ListOwned(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.requestLogger(r)

	ownerID, ok := h.identify(ctx)
	if !ok {
		writeUnauthorized(w)
		return
	}

	links, err := h.service.ListOwned(ctx, ownerID)
	if err != nil {
		h.handleError(ctx, logger, w, err)
		return
	}

	resp := ListLinksResponse{Links: make([]LinkResponse, 0, len(links))}
	for _, link := range links {
		resp.Links = append(resp.Links, h.toResponse(link))
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

// UpdateOwned handles PUT /api/user/links/{id}.
func (h *Handler) UpdateOwned(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.requestLogger(r)

	ownerID, ok := h.identify(ctx)
	if !ok {
		writeUnauthorized(w)
		return
	}

	id, err := parseLinkID(r)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_id", err.Error(), nil)
		return
	}

	req, err := httpx.DecodeJSON[HTTPOwnedLinkRequest](r)
	if err != nil {
		logger.WarnContext(ctx, "failed to decode request", "error", err.Error())
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error(), nil)
		return
	}

	link, err := h.service.UpdateOwned(ctx, ownerID, id, UpdateLinkRequest{
		URL:  req.URL,
		Slug: req.Slug,
	})
	if err != nil {
		h.handleError(ctx, logger, w, err)
		return
	}

	logger.InfoContext(ctx, "link updated",
		"link_id", link.ID.String(),
		"slug", link.Slug,
	)
	httpx.WriteJSON(w, http.StatusOK, h.toResponse(link))
}

// DeleteOwned handles DELETE /api/user/links/{id}. It answers 204 whether or
// not a link was removed.
func (h *Handler) DeleteOwned(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.requestLogger(r)

	ownerID, ok := h.identify(ctx)
	if !ok {
		writeUnauthorized(w)
		return
	}

	id, err := parseLinkID(r)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_id", err.Error(), nil)
		return
	}

	if err := h.service.DeleteOwned(ctx, ownerID, id); err != nil {
		h.handleError(ctx, logger, w, err)
		return
	}

	logger.InfoContext(ctx, "link delete requested", "link_id", id.String())
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) requestLogger(r *http.Request) *slog.Logger {
	return h.logger.With(
		"request_id", httpx.GetRequestID(r.Context()),
		"method", r.Method,
		"path", r.URL.Path,
	)
}

// handleError maps service errors to responses. Internal causes are logged
// and never sent to the client.
func (h *Handler) handleError(ctx context.Context, logger *slog.Logger, w http.ResponseWriter, err error) {
	kind := errx.KindOf(err)
	status := httpx.ErrorKindToStatus(kind)
	code := httpx.ErrorKindToCode(kind)

	logAttrs := []any{
		"error", err.Error(),
		"error_kind", kind.String(),
		"operation", errx.OpOf(err),
	}

	switch kind {
	case errx.Invalid:
		logger.WarnContext(ctx, "invalid link request", logAttrs...)
		httpx.WriteError(w, status, code, errx.Cause(err).Error(), nil)

	case errx.Conflict:
		logger.WarnContext(ctx, "slug conflict", logAttrs...)
		httpx.WriteError(w, status, code, "This slug is already taken",
			map[string]string{
				"hint": "Try a different slug or leave it empty to get a generated one",
			})

	case errx.NotFound:
		logger.InfoContext(ctx, "link not found", logAttrs...)
		httpx.WriteError(w, status, code, "link not found", nil)

	case errx.Forbidden:
		logger.WarnContext(ctx, "link not owned by caller", logAttrs...)
		httpx.WriteError(w, status, code, "you do not own this link", nil)

	case errx.Unauthorized:
		writeUnauthorized(w)

	case errx.Exhausted:
		logger.ErrorContext(ctx, "slug space exhausted", logAttrs...)
		httpx.WriteError(w, status, code,
			"Unable to create short link at this time. Please try again.", nil)

	default:
		logger.ErrorContext(ctx, "unexpected link error", logAttrs...)
		httpx.WriteError(w, status, code, "Something went wrong.", nil)
	}
}

func (h *Handler) toResponse(link Link) LinkResponse {
	return LinkResponse{
		ID:        link.ID.String(),
		Slug:      link.Slug,
		URL:       link.URL,
		ShortURL:  fmt.Sprintf("%s/%s", h.baseURL, link.Slug),
		OwnerID:   link.OwnerID,
		CreatedAt: link.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func writeUnauthorized(w http.ResponseWriter) {
	httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "sign in required", nil)
}

func parseLinkID(r *http.Request) (uuid.UUID, error) {
	raw := r.PathValue("id")
	if raw == "" {
		return uuid.Nil, errors.New("link id is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, errors.New("link id must be a UUID")
	}
	return id, nil
}
