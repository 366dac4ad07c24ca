package upstream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Rozimuxammed/mlm-marketing/internal/errors"
)

// plainDoer runs requests with a bare http.Client, no retries or breaker.
type plainDoer struct{}

func (plainDoer) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	return http.DefaultClient.Do(req.WithContext(ctx))
}

func newTestClient(serverURL string) *Client {
	return NewClient(serverURL, plainDoer{})
}

// ============================================================================
// Login Tests
// ============================================================================

func TestLogin_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/authorization/login", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "alice@example.com", body["email"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"message": "Welcome back",
			"token": "tok-1",
			"data": {"user": {"id": "u1", "name": "Alice", "coin": 100}}
		}`))
	}))
	defer srv.Close()

	result, err := newTestClient(srv.URL).Login(context.Background(), "alice@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, "Welcome back", result.Message)
	assert.Equal(t, "tok-1", result.Token)
	assert.Equal(t, "u1", result.Profile.ID)
	assert.Equal(t, int64(100), result.Profile.CoinBalance)
}

func TestLogin_RejectionCarriesBackendMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message": "Invalid credentials"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Login(context.Background(), "alice@example.com", "wrong")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrUpstreamRejected)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "Invalid credentials", appErr.Message)
	assert.Equal(t, http.StatusUnauthorized, appErr.Status)
}

func TestLogin_UndecodableErrorBodyIsMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("<html>gateway error</html>"))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Login(context.Background(), "alice@example.com", "secret")
	assert.ErrorIs(t, err, apperrors.ErrMalformedReply)
}

func TestLogin_MissingTokenIsMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"message": "ok"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Login(context.Background(), "alice@example.com", "secret")
	assert.ErrorIs(t, err, apperrors.ErrMalformedReply)
}

func TestLogin_TransportFailureIsUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // closed before the call: connection refused

	_, err := newTestClient(srv.URL).Login(context.Background(), "alice@example.com", "secret")
	assert.ErrorIs(t, err, apperrors.ErrUpstreamUnreachable)
}

// ============================================================================
// Register Tests
// ============================================================================

func TestRegister_SendsBackendFieldNames(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/authorization/register", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		// The backend spells the referral field with one r.
		assert.Equal(t, "ref-9", body["referal"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"message": "Check your email"}`))
	}))
	defer srv.Close()

	result, err := newTestClient(srv.URL).Register(context.Background(), "Alice", "alice@example.com", "secret", "ref-9")
	require.NoError(t, err)
	assert.Equal(t, "Check your email", result.Message)
	assert.Empty(t, result.Token)
	assert.Nil(t, result.Profile)
}

// ============================================================================
// Whoami Tests
// ============================================================================

func TestWhoami_SendsBearerToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/users/token", r.URL.Path)
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": "u1", "name": "Alice", "coin": 42, "userTariff": "gold"}`))
	}))
	defer srv.Close()

	profile, err := newTestClient(srv.URL).Whoami(context.Background(), "tok-1")
	require.NoError(t, err)
	assert.Equal(t, "u1", profile.ID)
	assert.Equal(t, int64(42), profile.CoinBalance)
	assert.Equal(t, "gold", profile.TariffName)
}

func TestWhoami_MissingIDIsMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"name": "ghost"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Whoami(context.Background(), "tok-1")
	assert.ErrorIs(t, err, apperrors.ErrMalformedReply)
}

// ============================================================================
// OAuth Tests
// ============================================================================

func TestOAuthEntryURL_KnownProviders(t *testing.T) {
	c := newTestClient("https://backend.example")

	url, err := c.OAuthEntryURL(ProviderGoogle)
	require.NoError(t, err)
	assert.Equal(t, "https://backend.example/authorization/google", url)

	url, err = c.OAuthEntryURL(ProviderFacebook)
	require.NoError(t, err)
	assert.Equal(t, "https://backend.example/authorization/facebook", url)
}

func TestOAuthEntryURL_UnknownProviderRejected(t *testing.T) {
	_, err := newTestClient("https://backend.example").OAuthEntryURL("github")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

// ============================================================================
// Catalog and Wallet Tests
// ============================================================================

func TestProducts_DecodesCatalog(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/products", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"id": "p1", "price": 1000, "coin": 20, "photo_url": ["a.jpg"],
			 "translations": [{"language": "en", "name": "Tea"}]}
		]`))
	}))
	defer srv.Close()

	products, err := newTestClient(srv.URL).Products(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, int64(1000), products[0].PriceMinor)
	assert.Equal(t, int64(20), products[0].CoinPrice)
	assert.Equal(t, "Tea", products[0].Translations[0].Name)
}

func TestRequestWithdrawal_PostsWireFormat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/take-off", r.URL.Path)
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, float64(5000), body["how_much"])
		assert.Equal(t, "8600123412341234", body["cardNumber"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": "w1", "how_much": 5000, "status": "pending"}`))
	}))
	defer srv.Close()

	w, err := newTestClient(srv.URL).RequestWithdrawal(context.Background(), "tok-1", WithdrawInput{
		HowMuch:    5000,
		CardNumber: "8600123412341234",
		FullName:   "Alice A",
	})
	require.NoError(t, err)
	assert.Equal(t, "w1", w.ID)
	assert.Equal(t, "pending", w.Status)
}

func TestCoinRates_Decodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/coin", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id": "r1", "currency": "USD", "count": 100}]`))
	}))
	defer srv.Close()

	rates, err := newTestClient(srv.URL).CoinRates(context.Background(), "tok-1")
	require.NoError(t, err)
	require.Len(t, rates, 1)
	assert.Equal(t, "USD", rates[0].Currency)
}
