package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Rozimuxammed/mlm-marketing/internal/httputil"
	"github.com/Rozimuxammed/mlm-marketing/internal/session"
	"github.com/Rozimuxammed/mlm-marketing/internal/upstream"
	"github.com/Rozimuxammed/mlm-marketing/internal/validator"
)

// ReferralReader fetches the member's referral list from the backend.
type ReferralReader interface {
	Referrals(ctx context.Context, token string) ([]upstream.Referral, error)
}

// SessionHandler handles authentication and session endpoints.
type SessionHandler struct {
	sessions  *session.Store
	referrals ReferralReader
	logger    *slog.Logger
}

// NewSessionHandler creates a session HTTP handler.
func NewSessionHandler(sessions *session.Store, referrals ReferralReader, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		sessions:  sessions,
		referrals: referrals,
		logger:    logger,
	}
}

// --- Request DTOs ---

// LoginRequest is the JSON body for password login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=1"`
}

// RegisterRequest is the JSON body for account creation. ReferralID is the
// inviting member's ID and may be empty.
type RegisterRequest struct {
	Name       string `json:"name" validate:"required,min=1,max=200"`
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required,min=6,max=128"`
	ReferralID string `json:"referral_id"`
}

// --- Response DTOs ---

// SessionResponse is the session state as seen by the UI.
type SessionResponse struct {
	Authenticated bool `json:"authenticated"`
	Profile       any  `json:"profile,omitempty"`
}

// AuthResponse is the reply to a successful login or registration.
type AuthResponse struct {
	Message string `json:"message,omitempty"`
	Profile any    `json:"profile,omitempty"`
}

// --- Handlers ---

// GetSession handles GET /api/v1/session
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	current := h.sessions.Current()
	resp := SessionResponse{Authenticated: !current.Anonymous()}
	if resp.Authenticated {
		resp.Profile = current.Profile
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: resp})
}

// Login handles POST /api/v1/auth/login
func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	profile, message, err := h.sessions.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: AuthResponse{
		Message: message,
		Profile: profile,
	}})
}

// Register handles POST /api/v1/auth/register
func (h *SessionHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	profile, message, err := h.sessions.Register(r.Context(), req.Name, req.Email, req.Password, req.ReferralID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	status := http.StatusCreated
	if profile == nil {
		// Account created but pending verification; no session yet.
		status = http.StatusAccepted
	}
	httputil.WriteJSON(w, status, httputil.Response{Data: AuthResponse{
		Message: message,
		Profile: profile,
	}})
}

// OAuthRedirect handles GET /api/v1/auth/oauth/{provider}. The browser
// navigates here directly, so the reply is a 302 to the provider's entry
// URL, not a JSON body.
func (h *SessionHandler) OAuthRedirect(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")

	url, err := h.sessions.LoginRedirectURL(provider)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	http.Redirect(w, r, url, http.StatusFound)
}

// Logout handles POST /api/v1/auth/logout
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Logout(r.Context())
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]string{"status": "logged_out"}})
}

// RefreshProfile handles POST /api/v1/session/refresh
func (h *SessionHandler) RefreshProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.sessions.RefreshProfile(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: profile})
}

// ClaimBonus handles POST /api/v1/session/bonus
func (h *SessionHandler) ClaimBonus(w http.ResponseWriter, r *http.Request) {
	profile, claimed, err := h.sessions.ClaimDailyBonus(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]any{
		"claimed": claimed,
		"profile": profile,
	}})
}

// Referrals handles GET /api/v1/referrals
func (h *SessionHandler) Referrals(w http.ResponseWriter, r *http.Request) {
	token := h.sessions.Token()
	if token == "" {
		httputil.WriteJSON(w, http.StatusUnauthorized, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "UNAUTHORIZED", Message: "authentication required"},
		})
		return
	}

	referrals, err := h.referrals.Referrals(r.Context(), token)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if referrals == nil {
		referrals = []upstream.Referral{}
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: referrals})
}
