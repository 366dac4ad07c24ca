package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Rozimuxammed/mlm-marketing/internal/cart"
	"github.com/Rozimuxammed/mlm-marketing/internal/catalog"
	"github.com/Rozimuxammed/mlm-marketing/internal/domain"
	"github.com/Rozimuxammed/mlm-marketing/internal/httputil"
	"github.com/Rozimuxammed/mlm-marketing/internal/prefs"
	"github.com/Rozimuxammed/mlm-marketing/internal/session"
	"github.com/Rozimuxammed/mlm-marketing/internal/upstream"
	"github.com/Rozimuxammed/mlm-marketing/internal/validator"
)

// CartHandler handles cart endpoints. Adding a product resolves it against
// the catalog so prices always come from the backend, never the client.
type CartHandler struct {
	carts    *cart.Store
	catalog  *catalog.Service
	sessions *session.Store
	prefs    *prefs.Store
	logger   *slog.Logger
}

// NewCartHandler creates a cart HTTP handler.
func NewCartHandler(carts *cart.Store, cat *catalog.Service, sessions *session.Store, prefs *prefs.Store, logger *slog.Logger) *CartHandler {
	return &CartHandler{
		carts:    carts,
		catalog:  cat,
		sessions: sessions,
		prefs:    prefs,
		logger:   logger,
	}
}

// --- Request DTOs ---

// AddItemRequest is the JSON body for adding one unit of a product.
type AddItemRequest struct {
	ProductID string `json:"product_id" validate:"required"`
}

// UpdateQuantityRequest is the JSON body for overwriting a line quantity.
// Zero removes the line.
type UpdateQuantityRequest struct {
	Quantity int `json:"quantity" validate:"gte=0"`
}

// --- Handlers ---

// GetCart handles GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: h.carts.Snapshot()})
}

// AddItem handles POST /api/v1/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequest
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

	product, err := h.catalog.Find(r.Context(), req.ProductID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	sum := h.carts.Add(r.Context(), h.toLine(product))
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: sum})
}

// UpdateItemQuantity handles PUT /api/v1/cart/items/{productId}
func (h *CartHandler) UpdateItemQuantity(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productId")

	var req UpdateQuantityRequest
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

	sum := h.carts.SetQuantity(r.Context(), productID, req.Quantity)
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: sum})
}

// RemoveItem handles DELETE /api/v1/cart/items/{productId}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productId")
	sum := h.carts.Remove(r.Context(), productID)
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: sum})
}

// ClearCart handles DELETE /api/v1/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	sum := h.carts.Clear(r.Context())
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: sum})
}

// Checkout handles POST /api/v1/cart/checkout
func (h *CartHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	current := h.sessions.Current()
	if current.Anonymous() {
		httputil.WriteJSON(w, http.StatusUnauthorized, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "UNAUTHORIZED", Message: "authentication required"},
		})
		return
	}

	sum, err := h.carts.Checkout(r.Context(), current.Profile.ID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: sum})
}

// toLine builds a cart line from a catalog product, picking the translation
// for the active locale and falling back to the first one.
func (h *CartHandler) toLine(product *upstream.Product) domain.CartLine {
	line := domain.CartLine{
		ProductID:      product.ID,
		UnitPriceMinor: product.PriceMinor,
		UnitCoinPrice:  product.CoinPrice,
	}
	if len(product.PhotoURLs) > 0 {
		line.ImageURL = product.PhotoURLs[0]
	}

	locale := h.prefs.Current().Locale
	for _, tr := range product.Translations {
		if tr.Language == locale {
			line.Name = tr.Name
			break
		}
	}
	if line.Name == "" && len(product.Translations) > 0 {
		line.Name = product.Translations[0].Name
	}
	return line
}
