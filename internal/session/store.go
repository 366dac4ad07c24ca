package session

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Rozimuxammed/mlm-marketing/internal/domain"
	apperrors "github.com/Rozimuxammed/mlm-marketing/internal/errors"
	"github.com/Rozimuxammed/mlm-marketing/internal/event"
	"github.com/Rozimuxammed/mlm-marketing/internal/storage"
	"github.com/Rozimuxammed/mlm-marketing/internal/upstream"
)

// Backend is the slice of the MLM API the session store needs.
type Backend interface {
	Login(ctx context.Context, email, password string) (*upstream.LoginResult, error)
	Register(ctx context.Context, name, email, password, referralID string) (*upstream.RegisterResult, error)
	Whoami(ctx context.Context, token string) (*domain.UserProfile, error)
	OAuthEntryURL(provider string) (string, error)
}

// Store is the single authority for "is anyone logged in, and as whom".
// It holds the bearer credential and the cached profile, keeps the two in
// lockstep, and writes both through to durable storage. All transitions that
// change the answer go through here.
type Store struct {
	mu          sync.RWMutex
	session     domain.Session
	authPending bool

	backend    Backend
	kv         storage.Store
	events     *event.Producer
	logger     *slog.Logger
	bonusCoins int64

	// now is replaceable in tests; daily-bonus eligibility is calendar-day
	// granular in local time.
	now func() time.Time
}

// NewStore creates a session store. It does not touch the network; call
// Restore once at startup to hydrate from durable storage.
func NewStore(backend Backend, kv storage.Store, events *event.Producer, logger *slog.Logger, bonusCoins int64) *Store {
	return &Store{
		backend:    backend,
		kv:         kv,
		events:     events,
		logger:     logger,
		bonusCoins: bonusCoins,
		now:        time.Now,
	}
}

// Current returns a detached snapshot of the session; callers cannot mutate
// store state through it.
func (s *Store) Current() *domain.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := &domain.Session{Credential: s.session.Credential}
	if s.session.Profile != nil {
		p := *s.session.Profile
		snap.Profile = &p
	}
	return snap
}

// Token returns the bearer credential, or "" when anonymous. Other stores
// use it to authenticate upstream reads; the profile stays private to this
// store.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session.Credential
}

// Restore hydrates the session from durable storage on startup. A missing
// credential, a rejected credential, or any transport failure all complete
// as anonymous; the caller never sees an error. A rejected or unreadable
// credential is purged so the next start does not retry it.
func (s *Store) Restore(ctx context.Context) {
	data, err := s.kv.Get(ctx, storage.KeyCredential)
	if err != nil {
		return
	}
	token := string(data)

	// A persisted token that is already past its JWT expiry cannot validate;
	// skip the doomed whoami round-trip. Opaque tokens fall through to the
	// backend, which stays authoritative.
	if tokenExpired(token, s.now()) {
		s.logger.Info("persisted credential expired, purging")
		s.purge(ctx)
		return
	}

	profile, err := s.backend.Whoami(ctx, token)
	if err != nil {
		s.logger.Warn("session restore failed, continuing anonymous",
			slog.String("error", err.Error()),
		)
		s.purge(ctx)
		return
	}

	s.establish(ctx, token, profile)
	s.logger.Info("session restored",
		slog.String("user_id", profile.ID),
	)
}

// Login authenticates with email and password. On failure the prior session
// state is untouched and the returned error carries the backend's own
// message. A login issued while another auth call is pending is rejected.
func (s *Store) Login(ctx context.Context, email, password string) (*domain.UserProfile, string, error) {
	if err := s.beginAuth(); err != nil {
		return nil, "", err
	}
	defer s.endAuth()

	result, err := s.backend.Login(ctx, email, password)
	if err != nil {
		s.logger.Warn("login failed",
			slog.String("email", email),
			slog.String("error", err.Error()),
		)
		return nil, "", err
	}

	s.establish(ctx, result.Token, result.Profile)
	s.events.Publish(ctx, event.TopicSessionOpened, result.Profile.ID, nil)

	s.logger.Info("login succeeded",
		slog.String("user_id", result.Profile.ID),
	)

	return result.Profile, result.Message, nil
}

// Register creates a new account. When the backend replies with a token and
// a user object the session is established immediately; otherwise the
// account is pending verification and only the backend's message is
// returned. Failures are returned so callers can branch modal flows.
func (s *Store) Register(ctx context.Context, name, email, password, referralID string) (*domain.UserProfile, string, error) {
	if err := s.beginAuth(); err != nil {
		return nil, "", err
	}
	defer s.endAuth()

	result, err := s.backend.Register(ctx, name, email, password, referralID)
	if err != nil {
		s.logger.Warn("registration failed",
			slog.String("email", email),
			slog.String("error", err.Error()),
		)
		return nil, "", err
	}

	if result.Token != "" && result.Profile != nil {
		s.establish(ctx, result.Token, result.Profile)
		s.events.Publish(ctx, event.TopicSessionOpened, result.Profile.ID, nil)
		return result.Profile, result.Message, nil
	}

	return nil, result.Message, nil
}

// LoginRedirectURL returns the backend OAuth entry URL for the provider.
func (s *Store) LoginRedirectURL(provider string) (string, error) {
	return s.backend.OAuthEntryURL(provider)
}

// Logout purges the session unconditionally, in memory and durably. It
// never fails and makes no network call.
func (s *Store) Logout(ctx context.Context) {
	userID := ""
	s.mu.Lock()
	if s.session.Profile != nil {
		userID = s.session.Profile.ID
	}
	s.session = domain.Session{}
	s.mu.Unlock()

	s.purge(ctx)

	if userID != "" {
		s.events.Publish(ctx, event.TopicSessionClosed, userID, nil)
		s.logger.Info("logged out", slog.String("user_id", userID))
	}
}

// RefreshProfile re-fetches the profile from the backend. A rejected
// credential forces a logout to keep the profile/credential invariant; a
// transport failure leaves the cached profile in place.
func (s *Store) RefreshProfile(ctx context.Context) (*domain.UserProfile, error) {
	token := s.Token()
	if token == "" {
		return nil, apperrors.Unauthorized("no active session")
	}

	profile, err := s.backend.Whoami(ctx, token)
	if err != nil {
		if apperrors.HTTPStatus(err) == 401 || apperrors.HTTPStatus(err) == 403 {
			s.logger.Warn("credential rejected on refresh, forcing logout")
			s.Logout(ctx)
		}
		return nil, err
	}

	s.mu.Lock()
	// The session may have been logged out while the refresh was in flight;
	// a profile must never be cached without its credential.
	if s.session.Credential != token {
		s.mu.Unlock()
		return nil, apperrors.Unauthorized("session changed during refresh")
	}
	s.session.Profile = profile
	s.mu.Unlock()

	s.persistProfile(ctx, profile)
	return profile, nil
}

// ClaimDailyBonus applies an optimistic coin increment to the cached
// profile, at most once per local calendar day per profile. The backend
// ledger is authoritative; this is display-only state that the next
// profile refresh overwrites. Returns the updated profile and whether the
// bonus fired.
func (s *Store) ClaimDailyBonus(ctx context.Context) (*domain.UserProfile, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session.Anonymous() {
		return nil, false, apperrors.Unauthorized("no active session")
	}

	today := s.now().Format("2006-01-02")
	bonusKey := storage.KeyBonusPrefix + s.session.Profile.ID

	if last, err := s.kv.Get(ctx, bonusKey); err == nil && string(last) == today {
		p := *s.session.Profile
		return &p, false, nil
	}

	s.session.Profile.CoinBalance += s.bonusCoins

	if err := s.kv.Set(ctx, bonusKey, []byte(today)); err != nil {
		s.logger.Warn("persist bonus date failed",
			slog.String("error", err.Error()),
		)
	}
	s.persistProfileLocked(ctx, s.session.Profile)

	s.logger.Info("daily bonus claimed",
		slog.String("user_id", s.session.Profile.ID),
		slog.Int64("coins", s.bonusCoins),
	)

	p := *s.session.Profile
	return &p, true, nil
}

// --- internals ---

// beginAuth rejects a second auth call while one is pending.
func (s *Store) beginAuth() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.authPending {
		return apperrors.AuthPending()
	}
	s.authPending = true
	return nil
}

func (s *Store) endAuth() {
	s.mu.Lock()
	s.authPending = false
	s.mu.Unlock()
}

// establish writes the credential and profile together, in memory and
// durably.
func (s *Store) establish(ctx context.Context, token string, profile *domain.UserProfile) {
	s.mu.Lock()
	s.session = domain.Session{Credential: token, Profile: profile}
	s.mu.Unlock()

	if err := s.kv.Set(ctx, storage.KeyCredential, []byte(token)); err != nil {
		s.logger.Warn("persist credential failed",
			slog.String("error", err.Error()),
		)
	}
	s.persistProfile(ctx, profile)
}

func (s *Store) persistProfile(ctx context.Context, profile *domain.UserProfile) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	s.persistProfileLocked(ctx, profile)
}

func (s *Store) persistProfileLocked(ctx context.Context, profile *domain.UserProfile) {
	data, err := json.Marshal(profile)
	if err != nil {
		s.logger.Warn("marshal profile failed", slog.String("error", err.Error()))
		return
	}
	if err := s.kv.Set(ctx, storage.KeyProfile, data); err != nil {
		s.logger.Warn("persist profile failed", slog.String("error", err.Error()))
	}
}

// purge removes the durable credential and profile cache. Failures are
// logged only: logout must succeed regardless.
func (s *Store) purge(ctx context.Context) {
	if err := s.kv.Delete(ctx, storage.KeyCredential); err != nil {
		s.logger.Warn("purge credential failed", slog.String("error", err.Error()))
	}
	if err := s.kv.Delete(ctx, storage.KeyProfile); err != nil {
		s.logger.Warn("purge profile failed", slog.String("error", err.Error()))
	}
}

// tokenExpired reports whether token is a JWT whose exp claim is in the
// past. Opaque tokens and JWTs without exp report false.
func tokenExpired(token string, now time.Time) bool {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.Before(now)
}
