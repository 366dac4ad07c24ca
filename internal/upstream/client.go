package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/Rozimuxammed/mlm-marketing/internal/domain"
	apperrors "github.com/Rozimuxammed/mlm-marketing/internal/errors"
)

// Backend endpoint paths. The backend spells "referal" with one r; the wire
// format follows it.
const (
	pathWhoami      = "/users/token"
	pathLogin       = "/authorization/login"
	pathRegister    = "/authorization/register"
	pathOAuthPrefix = "/authorization/"
	pathProducts    = "/products"
	pathReferrals   = "/referal/user"
	pathCoinRates   = "/coin"
	pathPayments    = "/payments/user"
	pathWithdraw    = "/take-off"
	pathWithdrawals = "/take-off/user"
)

// OAuth providers the backend supports.
const (
	ProviderGoogle   = "google"
	ProviderFacebook = "facebook"
)

// HTTPDoer executes HTTP requests. Both httpclient.Client and
// httpclient.CircuitBreakerClient satisfy this.
type HTTPDoer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// Client is the typed client for the external MLM backend. It owns the
// translation of transport failures, structured rejections, and malformed
// bodies into the portal error taxonomy; callers never see raw HTTP.
type Client struct {
	baseURL string
	http    HTTPDoer
}

// NewClient creates a backend client for the given base URL.
func NewClient(baseURL string, doer HTTPDoer) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    doer,
	}
}

// --- Auth ---

// LoginResult is the parsed success payload of the login endpoint.
type LoginResult struct {
	Message string
	Token   string
	Profile *domain.UserProfile
}

// loginEnvelope mirrors the backend's login reply: {message, token, data:{user}}.
type loginEnvelope struct {
	Message string `json:"message"`
	Token   string `json:"token"`
	Data    struct {
		User *domain.UserProfile `json:"user"`
	} `json:"data"`
}

// Login authenticates with email and password.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	body := map[string]string{"email": email, "password": password}

	var env loginEnvelope
	if err := c.postJSON(ctx, pathLogin, "", body, &env); err != nil {
		return nil, err
	}

	if env.Token == "" || env.Data.User == nil {
		return nil, apperrors.MalformedReply(fmt.Errorf("login reply missing token or user"))
	}

	return &LoginResult{
		Message: env.Message,
		Token:   env.Token,
		Profile: env.Data.User,
	}, nil
}

// RegisterResult is the parsed success payload of the registration endpoint.
// Token and Profile are optional: the backend may require email verification
// before issuing a session.
type RegisterResult struct {
	Message string
	Token   string
	Profile *domain.UserProfile
}

// Register creates a new member account. referralID may be empty.
func (c *Client) Register(ctx context.Context, name, email, password, referralID string) (*RegisterResult, error) {
	body := map[string]string{
		"name":     name,
		"email":    email,
		"password": password,
		"referal":  referralID,
	}

	var env loginEnvelope
	if err := c.postJSON(ctx, pathRegister, "", body, &env); err != nil {
		return nil, err
	}

	return &RegisterResult{
		Message: env.Message,
		Token:   env.Token,
		Profile: env.Data.User,
	}, nil
}

// Whoami validates a bearer token and returns the profile it identifies.
func (c *Client) Whoami(ctx context.Context, token string) (*domain.UserProfile, error) {
	var profile domain.UserProfile
	if err := c.getJSON(ctx, pathWhoami, token, &profile); err != nil {
		return nil, err
	}
	if profile.ID == "" {
		return nil, apperrors.MalformedReply(fmt.Errorf("whoami reply missing user id"))
	}
	return &profile, nil
}

// OAuthEntryURL returns the backend's OAuth entry URL for the provider. The
// flow is redirect-based: the browser navigates there and the session is
// established later by a restore once the backend redirects back.
func (c *Client) OAuthEntryURL(provider string) (string, error) {
	if provider != ProviderGoogle && provider != ProviderFacebook {
		return "", apperrors.InvalidInput(fmt.Sprintf("unsupported oauth provider: %q", provider))
	}
	return c.baseURL + pathOAuthPrefix + provider, nil
}

// --- Catalog and member data ---

// Product is a catalog entry. Translations carry the localized name and
// description; the first entry is the default locale.
type Product struct {
	ID           string               `json:"id"`
	PriceMinor   int64                `json:"price"`
	CoinPrice    int64                `json:"coin"`
	PhotoURLs    []string             `json:"photo_url"`
	Translations []ProductTranslation `json:"translations"`
}

// ProductTranslation is a localized product name and description.
type ProductTranslation struct {
	Language    string `json:"language"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Products fetches the public product catalog.
func (c *Client) Products(ctx context.Context) ([]Product, error) {
	var products []Product
	if err := c.getJSON(ctx, pathProducts, "", &products); err != nil {
		return nil, err
	}
	return products, nil
}

// Referral is an invited member as reported by the backend.
type Referral struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	CreatedAt int64  `json:"createdAt"`
	Coin      int64  `json:"coin"`
}

// Referrals fetches the members invited by the authenticated user.
func (c *Client) Referrals(ctx context.Context, token string) ([]Referral, error) {
	var referrals []Referral
	if err := c.getJSON(ctx, pathReferrals, token, &referrals); err != nil {
		return nil, err
	}
	return referrals, nil
}

// --- Wallet ---

// CoinRate is an exchange rate entry: one coin costs Count units of Currency.
type CoinRate struct {
	ID       string `json:"id"`
	Currency string `json:"currency"`
	Count    int64  `json:"count"`
}

// CoinRates fetches the coin exchange rates.
func (c *Client) CoinRates(ctx context.Context, token string) ([]CoinRate, error) {
	var rates []CoinRate
	if err := c.getJSON(ctx, pathCoinRates, token, &rates); err != nil {
		return nil, err
	}
	return rates, nil
}

// Payment is a deposit request record.
type Payment struct {
	ID            string `json:"id"`
	HowMuch       int64  `json:"how_much"`
	Status        string `json:"status"`
	ToSendDate    string `json:"to_send_date"`
	ToCheckedDate string `json:"to_checked_date,omitempty"`
}

// Payments fetches the authenticated user's deposit history.
func (c *Client) Payments(ctx context.Context, token string) ([]Payment, error) {
	var payments []Payment
	if err := c.getJSON(ctx, pathPayments, token, &payments); err != nil {
		return nil, err
	}
	return payments, nil
}

// Withdrawal is a payout request record.
type Withdrawal struct {
	ID          string `json:"id"`
	HowMuch     int64  `json:"how_much"`
	CardNumber  string `json:"cardNumber"`
	FullName    string `json:"fullName"`
	RequestDate string `json:"requestDate"`
	Status      string `json:"status"`
}

// WithdrawInput holds the parameters for a payout request.
type WithdrawInput struct {
	HowMuch    int64  `json:"how_much"`
	CardNumber string `json:"cardNumber"`
	FullName   string `json:"fullName"`
}

// RequestWithdrawal submits a payout request.
func (c *Client) RequestWithdrawal(ctx context.Context, token string, input WithdrawInput) (*Withdrawal, error) {
	var w Withdrawal
	if err := c.postJSON(ctx, pathWithdraw, token, input, &w); err != nil {
		return nil, err
	}
	return &w, nil
}

// Withdrawals fetches the authenticated user's payout history.
func (c *Client) Withdrawals(ctx context.Context, token string) ([]Withdrawal, error) {
	var ws []Withdrawal
	if err := c.getJSON(ctx, pathWithdrawals, token, &ws); err != nil {
		return nil, err
	}
	return ws, nil
}

// --- Plumbing ---

func (c *Client) getJSON(ctx context.Context, path, token string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request for %s: %w", path, err)
	}
	return c.doJSON(ctx, req, token, out)
}

func (c *Client) postJSON(ctx context.Context, path, token string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request for %s: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request for %s: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.doJSON(ctx, req, token, out)
}

func (c *Client) doJSON(ctx context.Context, req *http.Request, token string, out any) error {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return apperrors.UpstreamUnreachable(err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return apperrors.UpstreamUnreachable(fmt.Errorf("read body: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return parseErrorBody(resp.StatusCode, bodyBytes)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(bodyBytes, out); err != nil {
		return apperrors.MalformedReply(fmt.Errorf("decode %s reply: %w", req.URL.Path, err))
	}
	return nil
}

// messageEnvelope is the backend's error body shape.
type messageEnvelope struct {
	Message string `json:"message"`
}

// parseErrorBody maps a non-2xx reply to the portal taxonomy: a parseable
// {message} body becomes a rejection carrying the backend's own words,
// anything else is a malformed reply with a generic message.
func parseErrorBody(status int, body []byte) error {
	var env messageEnvelope
	if err := json.Unmarshal(body, &env); err == nil && env.Message != "" {
		return apperrors.UpstreamRejected(status, env.Message)
	}
	return apperrors.MalformedReply(fmt.Errorf("status %d with undecodable body", status))
}
