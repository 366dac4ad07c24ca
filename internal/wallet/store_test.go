package wallet

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Rozimuxammed/mlm-marketing/internal/errors"
	"github.com/Rozimuxammed/mlm-marketing/internal/logger"
	"github.com/Rozimuxammed/mlm-marketing/internal/upstream"
)

type stubBackend struct {
	rates       []upstream.CoinRate
	payments    []upstream.Payment
	withdrawal  *upstream.Withdrawal
	withdrawals []upstream.Withdrawal
	err         error
}

func (b *stubBackend) CoinRates(ctx context.Context, token string) ([]upstream.CoinRate, error) {
	return b.rates, b.err
}

func (b *stubBackend) Payments(ctx context.Context, token string) ([]upstream.Payment, error) {
	return b.payments, b.err
}

func (b *stubBackend) RequestWithdrawal(ctx context.Context, token string, input upstream.WithdrawInput) (*upstream.Withdrawal, error) {
	return b.withdrawal, b.err
}

func (b *stubBackend) Withdrawals(ctx context.Context, token string) ([]upstream.Withdrawal, error) {
	return b.withdrawals, b.err
}

type stubChannel struct {
	sendErr   error
	sent      []string
	connected bool
	room      string
}

func (c *stubChannel) SendPaymentRequest(currency string, howMuch int64) error {
	if c.sendErr != nil {
		return c.sendErr
	}
	c.sent = append(c.sent, currency)
	return nil
}

func (c *stubChannel) Connected() bool { return c.connected }
func (c *stubChannel) Room() string    { return c.room }

func authedToken() string { return "tok-1" }
func anonToken() string   { return "" }

func newTestStore(backend Backend, channel Channel, token TokenFunc) *Store {
	return NewStore(backend, channel, token, 120*time.Second, logger.NewWithWriter("test", "error", io.Discard))
}

// ============================================================================
// Deposit Cooldown Tests
// ============================================================================

func TestRequestDeposit_FirstRequestSucceeds(t *testing.T) {
	ch := &stubChannel{}
	s := newTestStore(&stubBackend{}, ch, authedToken)

	require.NoError(t, s.RequestDeposit("USD", 50))
	assert.Equal(t, []string{"USD"}, ch.sent)
}

func TestRequestDeposit_SecondWithinCooldownRejected(t *testing.T) {
	ch := &stubChannel{}
	s := newTestStore(&stubBackend{}, ch, authedToken)

	now := time.Now()
	s.now = func() time.Time { return now }

	require.NoError(t, s.RequestDeposit("USD", 50))

	now = now.Add(30 * time.Second)
	err := s.RequestDeposit("USD", 50)
	assert.ErrorIs(t, err, apperrors.ErrCooldown)
	assert.Len(t, ch.sent, 1)
}

func TestRequestDeposit_AllowedAfterCooldown(t *testing.T) {
	ch := &stubChannel{}
	s := newTestStore(&stubBackend{}, ch, authedToken)

	now := time.Now()
	s.now = func() time.Time { return now }

	require.NoError(t, s.RequestDeposit("USD", 50))

	now = now.Add(121 * time.Second)
	require.NoError(t, s.RequestDeposit("USD", 75))
	assert.Len(t, ch.sent, 2)
}

func TestRequestDeposit_FailedSendDoesNotStartCooldown(t *testing.T) {
	ch := &stubChannel{sendErr: apperrors.Unavailable("realtime channel not connected")}
	s := newTestStore(&stubBackend{}, ch, authedToken)

	err := s.RequestDeposit("USD", 50)
	assert.ErrorIs(t, err, apperrors.ErrUnavailable)

	// The channel recovers; the next attempt is not blocked by cooldown.
	ch.sendErr = nil
	require.NoError(t, s.RequestDeposit("USD", 50))
}

func TestRequestDeposit_AnonymousRejected(t *testing.T) {
	s := newTestStore(&stubBackend{}, &stubChannel{}, anonToken)
	assert.ErrorIs(t, s.RequestDeposit("USD", 50), apperrors.ErrUnauthorized)
}

// ============================================================================
// Authenticated Read Tests
// ============================================================================

func TestCoinRates_RequiresSession(t *testing.T) {
	s := newTestStore(&stubBackend{}, &stubChannel{}, anonToken)
	_, err := s.CoinRates(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestCoinRates_PassesThrough(t *testing.T) {
	backend := &stubBackend{rates: []upstream.CoinRate{{Currency: "USD", Count: 100}}}
	s := newTestStore(backend, &stubChannel{}, authedToken)

	rates, err := s.CoinRates(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "USD", rates[0].Currency)
}

func TestRequestWithdrawal_PassesThrough(t *testing.T) {
	backend := &stubBackend{withdrawal: &upstream.Withdrawal{ID: "w1", Status: "pending"}}
	s := newTestStore(backend, &stubChannel{}, authedToken)

	w, err := s.RequestWithdrawal(context.Background(), upstream.WithdrawInput{HowMuch: 100})
	require.NoError(t, err)
	assert.Equal(t, "w1", w.ID)
}

func TestChannelStatus_Reports(t *testing.T) {
	s := newTestStore(&stubBackend{}, &stubChannel{connected: true, room: "room-7"}, authedToken)

	connected, room := s.ChannelStatus()
	assert.True(t, connected)
	assert.Equal(t, "room-7", room)
}
