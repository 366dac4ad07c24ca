package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/Rozimuxammed/mlm-marketing/internal/httputil"
	"github.com/Rozimuxammed/mlm-marketing/internal/upstream"
	"github.com/Rozimuxammed/mlm-marketing/internal/validator"
	"github.com/Rozimuxammed/mlm-marketing/internal/wallet"
)

// WalletHandler handles coin rates, deposits, and payouts.
type WalletHandler struct {
	wallet *wallet.Store
	logger *slog.Logger
}

// NewWalletHandler creates a wallet HTTP handler.
func NewWalletHandler(w *wallet.Store, logger *slog.Logger) *WalletHandler {
	return &WalletHandler{wallet: w, logger: logger}
}

// --- Request DTOs ---

// DepositRequest is the JSON body for announcing a coin purchase.
type DepositRequest struct {
	Currency string `json:"currency" validate:"required,min=2,max=10"`
	HowMuch  int64  `json:"how_much" validate:"required,gt=0"`
}

// WithdrawRequest is the JSON body for requesting a payout.
type WithdrawRequest struct {
	HowMuch    int64  `json:"how_much" validate:"required,gt=0"`
	CardNumber string `json:"card_number" validate:"required,min=8,max=32"`
	FullName   string `json:"full_name" validate:"required,min=1,max=200"`
}

// --- Handlers ---

// CoinRates handles GET /api/v1/wallet/rates
func (h *WalletHandler) CoinRates(w http.ResponseWriter, r *http.Request) {
	rates, err := h.wallet.CoinRates(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if rates == nil {
		rates = []upstream.CoinRate{}
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: rates})
}

// Payments handles GET /api/v1/wallet/payments
func (h *WalletHandler) Payments(w http.ResponseWriter, r *http.Request) {
	payments, err := h.wallet.Payments(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if payments == nil {
		payments = []upstream.Payment{}
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: payments})
}

// Withdrawals handles GET /api/v1/wallet/withdrawals
func (h *WalletHandler) Withdrawals(w http.ResponseWriter, r *http.Request) {
	ws, err := h.wallet.Withdrawals(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if ws == nil {
		ws = []upstream.Withdrawal{}
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: ws})
}

// Deposit handles POST /api/v1/wallet/deposit
func (h *WalletHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	var req DepositRequest
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

	if err := h.wallet.RequestDeposit(req.Currency, req.HowMuch); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusAccepted, httputil.Response{Data: map[string]string{"status": "requested"}})
}

// Withdraw handles POST /api/v1/wallet/withdraw
func (h *WalletHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	var req WithdrawRequest
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

	withdrawal, err := h.wallet.RequestWithdrawal(r.Context(), upstream.WithdrawInput{
		HowMuch:    req.HowMuch,
		CardNumber: req.CardNumber,
		FullName:   req.FullName,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: withdrawal})
}

// ChannelStatus handles GET /api/v1/wallet/channel
func (h *WalletHandler) ChannelStatus(w http.ResponseWriter, r *http.Request) {
	connected, room := h.wallet.ChannelStatus()
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]any{
		"connected": connected,
		"room":      room,
	}})
}
