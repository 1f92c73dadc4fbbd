package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/ayiooo/shortlink/internal/httpx"
)

const (
	stateCookieName = "shortlink_oauth_state"
	stateTTL        = 10 * time.Minute

	// GoogleUserInfoURL is the OpenID userinfo endpoint for Google accounts.
	GoogleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
)

// googleUser is the subset of the userinfo response we keep.
type googleUser struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// GoogleHandler implements the Google sign-in flow and the session
// endpoints around it.
type GoogleHandler struct {
	oauth             *oauth2.Config
	userInfoURL       string
	sessions          *Sessions
	logger            *slog.Logger
	httpClient        *http.Client
	postLoginRedirect string
	secureCookies     bool
}

// GoogleConfig holds configuration for the Google handler.
type GoogleConfig struct {
	ClientID          string
	ClientSecret      string
	RedirectURL       string
	PostLoginRedirect string // where the browser lands after sign-in (default: "/")
	Sessions          *Sessions
	Logger            *slog.Logger
	SecureCookies     bool

	// Endpoint, UserInfoURL and HTTPClient default to Google's production
	// endpoints and http.DefaultClient.
	Endpoint    oauth2.Endpoint
	UserInfoURL string
	HTTPClient  *http.Client
}

// NewGoogleHandler creates a new GoogleHandler.
func NewGoogleHandler(cfg GoogleConfig) *GoogleHandler {
	endpoint := cfg.Endpoint
	if endpoint.AuthURL == "" && endpoint.TokenURL == "" {
		endpoint = google.Endpoint
	}
	userInfoURL := cfg.UserInfoURL
	if userInfoURL == "" {
		userInfoURL = GoogleUserInfoURL
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	client := cfg.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	redirect := cfg.PostLoginRedirect
	if redirect == "" {
		redirect = "/"
	}

	return &GoogleHandler{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
			Endpoint: endpoint,
		},
		userInfoURL:       userInfoURL,
		sessions:          cfg.Sessions,
		logger:            logger,
		httpClient:        client,
		postLoginRedirect: redirect,
		secureCookies:     cfg.SecureCookies,
	}
}

// Enabled reports whether Google credentials were configured.
func (h *GoogleHandler) Enabled() bool { return h.oauth.ClientID != "" }

// Login handles GET /api/auth/google/login by redirecting to Google.
func (h *GoogleHandler) Login(w http.ResponseWriter, r *http.Request) {
	if !h.Enabled() {
		writeSignInDisabled(w)
		return
	}

	state, err := newState()
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to generate oauth state",
			"request_id", httpx.GetRequestID(r.Context()),
			"error", err.Error(),
		)
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "Something went wrong.", nil)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/api/auth/google",
		MaxAge:   int(stateTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, h.oauth.AuthCodeURL(state), http.StatusFound)
}

// Callback handles GET /api/auth/google/callback. It exchanges the code,
// loads the Google profile, and starts a session.
func (h *GoogleHandler) Callback(w http.ResponseWriter, r *http.Request) {
	if !h.Enabled() {
		writeSignInDisabled(w)
		return
	}

	ctx := r.Context()
	logger := h.logger.With("request_id", httpx.GetRequestID(ctx))

	stateCookie, err := r.Cookie(stateCookieName)
	state := r.URL.Query().Get("state")
	if err != nil || state == "" || subtle.ConstantTimeCompare([]byte(stateCookie.Value), []byte(state)) != 1 {
		logger.WarnContext(ctx, "oauth state mismatch")
		httpx.WriteError(w, http.StatusBadRequest, "invalid_state", "sign-in request expired or was tampered with", nil)
		return
	}
	h.clearStateCookie(w)

	if msg := r.URL.Query().Get("error"); msg != "" {
		logger.InfoContext(ctx, "google sign-in declined", "reason", msg)
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "sign-in was cancelled", nil)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "missing authorization code", nil)
		return
	}

	user, err := h.fetchUser(ctx, code)
	if err != nil {
		logger.ErrorContext(ctx, "google sign-in failed", "error", err.Error())
		httpx.WriteError(w, http.StatusBadGateway, "upstream_error", "Unable to complete sign-in with Google.", nil)
		return
	}

	id := Identity{
		UserID:  GoogleIDPrefix + user.ID,
		Email:   user.Email,
		Name:    user.Name,
		Picture: user.Picture,
	}
	token, expiresAt, err := h.sessions.Issue(id)
	if err != nil {
		logger.ErrorContext(ctx, "failed to issue session", "error", err.Error())
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "Something went wrong.", nil)
		return
	}

	h.sessions.SetCookie(w, token, expiresAt)
	logger.InfoContext(ctx, "user signed in", "user_id", id.UserID)
	http.Redirect(w, r, h.postLoginRedirect, http.StatusFound)
}

// Logout handles POST /api/auth/logout.
func (h *GoogleHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.ClearCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// Me handles GET /api/auth/me.
func (h *GoogleHandler) Me(w http.ResponseWriter, r *http.Request) {
	id, ok := IdentityFrom(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "sign in required", nil)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, id)
}

func (h *GoogleHandler) fetchUser(ctx context.Context, code string) (googleUser, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, h.httpClient)

	token, err := h.oauth.Exchange(ctx, code)
	if err != nil {
		return googleUser{}, fmt.Errorf("exchange code: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.userInfoURL, nil)
	if err != nil {
		return googleUser{}, err
	}
	resp, err := h.oauth.Client(ctx, token).Do(req)
	if err != nil {
		return googleUser{}, fmt.Errorf("get user info: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return googleUser{}, fmt.Errorf("user info: status %d: %s", resp.StatusCode, body)
	}

	var user googleUser
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&user); err != nil {
		return googleUser{}, fmt.Errorf("decode user info: %w", err)
	}
	if user.ID == "" {
		return googleUser{}, errors.New("user info has no account id")
	}
	return user, nil
}

func (h *GoogleHandler) clearStateCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    "",
		Path:     "/api/auth/google",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func writeSignInDisabled(w http.ResponseWriter) {
	httpx.WriteError(w, http.StatusServiceUnavailable, "unavailable", "Google sign-in is not configured.", nil)
}

func newState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
