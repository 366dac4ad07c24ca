package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/Rozimuxammed/mlm-marketing/internal/httputil"
	"github.com/Rozimuxammed/mlm-marketing/internal/prefs"
)

// PrefsHandler handles display preference endpoints.
type PrefsHandler struct {
	prefs  *prefs.Store
	logger *slog.Logger
}

// NewPrefsHandler creates a preferences HTTP handler.
func NewPrefsHandler(p *prefs.Store, logger *slog.Logger) *PrefsHandler {
	return &PrefsHandler{prefs: p, logger: logger}
}

// LocaleRequest is the JSON body for switching the display language.
type LocaleRequest struct {
	Locale string `json:"locale"`
}

// ThemeRequest is the JSON body for switching the theme.
type ThemeRequest struct {
	Theme string `json:"theme"`
}

// GetPrefs handles GET /api/v1/prefs
func (h *PrefsHandler) GetPrefs(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: h.prefs.Current()})
}

// SetLocale handles PUT /api/v1/prefs/locale
func (h *PrefsHandler) SetLocale(w http.ResponseWriter, r *http.Request) {
	var req LocaleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	p, err := h.prefs.SetLocale(r.Context(), req.Locale)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: p})
}

// SetTheme handles PUT /api/v1/prefs/theme
func (h *PrefsHandler) SetTheme(w http.ResponseWriter, r *http.Request) {
	var req ThemeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	p, err := h.prefs.SetTheme(r.Context(), req.Theme)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: p})
}
