package wallet

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	apperrors "github.com/Rozimuxammed/mlm-marketing/internal/errors"
	"github.com/Rozimuxammed/mlm-marketing/internal/upstream"
)

// Backend is the slice of the MLM API the wallet needs.
type Backend interface {
	CoinRates(ctx context.Context, token string) ([]upstream.CoinRate, error)
	Payments(ctx context.Context, token string) ([]upstream.Payment, error)
	RequestWithdrawal(ctx context.Context, token string, input upstream.WithdrawInput) (*upstream.Withdrawal, error)
	Withdrawals(ctx context.Context, token string) ([]upstream.Withdrawal, error)
}

// Channel is the realtime payment channel deposits are announced on.
type Channel interface {
	SendPaymentRequest(currency string, howMuch int64) error
	Connected() bool
	Room() string
}

// TokenFunc returns the current bearer credential, or "" when anonymous.
type TokenFunc func() string

// Store handles coin purchases and payouts. Deposit requests go out on the
// realtime channel and are rate-limited by a local cooldown window; rates
// and histories are straight authenticated reads from the backend.
type Store struct {
	mu          sync.Mutex
	lastDeposit time.Time

	backend  Backend
	channel  Channel
	token    TokenFunc
	cooldown time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

// NewStore creates a wallet store. cooldown is the minimum gap between two
// deposit requests.
func NewStore(backend Backend, channel Channel, token TokenFunc, cooldown time.Duration, logger *slog.Logger) *Store {
	return &Store{
		backend:  backend,
		channel:  channel,
		token:    token,
		cooldown: cooldown,
		logger:   logger,
		now:      time.Now,
	}
}

// CoinRates returns the coin exchange rates.
func (s *Store) CoinRates(ctx context.Context) ([]upstream.CoinRate, error) {
	token := s.token()
	if token == "" {
		return nil, apperrors.Unauthorized("no active session")
	}
	return s.backend.CoinRates(ctx, token)
}

// Payments returns the deposit history.
func (s *Store) Payments(ctx context.Context) ([]upstream.Payment, error) {
	token := s.token()
	if token == "" {
		return nil, apperrors.Unauthorized("no active session")
	}
	return s.backend.Payments(ctx, token)
}

// Withdrawals returns the payout history.
func (s *Store) Withdrawals(ctx context.Context) ([]upstream.Withdrawal, error) {
	token := s.token()
	if token == "" {
		return nil, apperrors.Unauthorized("no active session")
	}
	return s.backend.Withdrawals(ctx, token)
}

// RequestWithdrawal submits a payout request to the backend.
func (s *Store) RequestWithdrawal(ctx context.Context, input upstream.WithdrawInput) (*upstream.Withdrawal, error) {
	token := s.token()
	if token == "" {
		return nil, apperrors.Unauthorized("no active session")
	}

	w, err := s.backend.RequestWithdrawal(ctx, token, input)
	if err != nil {
		return nil, err
	}

	s.logger.Info("withdrawal requested", slog.Int64("how_much", input.HowMuch))
	return w, nil
}

// RequestDeposit announces a deposit on the realtime channel. A second
// request inside the cooldown window is rejected with the remaining wait;
// the window only starts once the channel accepted the message.
func (s *Store) RequestDeposit(currency string, howMuch int64) error {
	if s.token() == "" {
		return apperrors.Unauthorized("no active session")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if elapsed := s.now().Sub(s.lastDeposit); elapsed < s.cooldown {
		remaining := s.cooldown - elapsed
		return apperrors.Cooldown(fmt.Sprintf(
			"deposit already requested, retry in %d seconds",
			int(remaining.Round(time.Second).Seconds()),
		))
	}

	if err := s.channel.SendPaymentRequest(currency, howMuch); err != nil {
		return err
	}

	s.lastDeposit = s.now()
	s.logger.Info("deposit requested",
		slog.String("currency", currency),
		slog.Int64("how_much", howMuch),
	)
	return nil
}

// ChannelStatus reports the realtime channel state for the status endpoint.
func (s *Store) ChannelStatus() (connected bool, room string) {
	return s.channel.Connected(), s.channel.Room()
}
