// Package backend provides the REST client for the platform backend
// (trade ledger, wallet and authentication endpoints).
package backend

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/niftybulk/papertrade/internal/domain"
	"github.com/rs/zerolog"
)

// DefaultTimeout bounds every backend request
const DefaultTimeout = 10 * time.Second

// TokenSource returns the bearer token of the current session
type TokenSource func() string

// Client talks to the backend REST API
type Client struct {
	baseURL string
	client  *http.Client
	token   TokenSource
	log     zerolog.Logger
}

// NewClient creates a new backend client. token may be nil for
// unauthenticated calls only.
func NewClient(baseURL string, timeout time.Duration, token TokenSource, log zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if token == nil {
		token = func() string { return "" }
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		token:   token,
		log:     log.With().Str("client", "backend").Logger(),
	}
}

// APIError is a non-2xx backend response
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// TradeRecord is the ledger entry posted after a local fill
type TradeRecord struct {
	UserID   string  `json:"userId"`
	Asset    string  `json:"asset"`
	Action   string  `json:"action"` // BUY or SELL
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
	Status   string  `json:"status"`
}

// WalletTransaction is one entry of the backend wallet history
type WalletTransaction struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Amount    float64   `json:"amount"`
	Timestamp time.Time `json:"timestamp"`
}

// Wallet is the backend wallet state
type Wallet struct {
	Balance      float64             `json:"balance"`
	Transactions []WalletTransaction `json:"transactions"`
}

// WalletChange is the response to add/withdraw
type WalletChange struct {
	Balance     float64            `json:"balance"`
	Transaction *WalletTransaction `json:"transaction,omitempty"`
}

// Login is a successful sign-in: the token and the resolved profile
type Login struct {
	Token string
	User  domain.User
}

// RecordTrade posts a completed fill to the trade ledger
func (c *Client) RecordTrade(ctx context.Context, rec TradeRecord) error {
	if rec.Status == "" {
		rec.Status = "Completed"
	}
	return c.do(ctx, http.MethodPost, "/trades", c.token(), rec, nil)
}

// GetWallet fetches the wallet balance and history
func (c *Client) GetWallet(ctx context.Context) (*Wallet, error) {
	var w Wallet
	if err := c.do(ctx, http.MethodGet, "/users/wallet", c.token(), nil, &w); err != nil {
		return nil, err
	}
	return &w, nil
}

// AddFunds credits the wallet
func (c *Client) AddFunds(ctx context.Context, amount float64) (*WalletChange, error) {
	return c.walletChange(ctx, "/users/wallet/add", amount)
}

// Withdraw debits the wallet
func (c *Client) Withdraw(ctx context.Context, amount float64) (*WalletChange, error) {
	return c.walletChange(ctx, "/users/wallet/withdraw", amount)
}

func (c *Client) walletChange(ctx context.Context, path string, amount float64) (*WalletChange, error) {
	var change WalletChange
	body := map[string]float64{"amount": amount}
	if err := c.do(ctx, http.MethodPost, path, c.token(), body, &change); err != nil {
		return nil, err
	}
	return &change, nil
}

// GetProfile fetches the profile of the token's owner
func (c *Client) GetProfile(ctx context.Context, token string) (*domain.User, error) {
	var u domain.User
	if err := c.do(ctx, http.MethodGet, "/users/me", token, nil, &u); err != nil {
		return nil, err
	}
	u.Role = domain.ParseRole(string(u.Role))
	return &u, nil
}

// LoginEmail signs in with email and password
func (c *Client) LoginEmail(ctx context.Context, email, password string) (*Login, error) {
	token, err := c.authenticate(ctx, "/auth/login/email", map[string]string{"email": email, "password": password})
	if err != nil {
		return nil, err
	}
	return c.resolve(ctx, token, domain.User{Email: email})
}

// VerifyMobileLogin signs in with a mobile number and OTP
func (c *Client) VerifyMobileLogin(ctx context.Context, mobile, otp string) (*Login, error) {
	token, err := c.authenticate(ctx, "/auth/login/mobile/verify", map[string]string{"mobile": mobile, "otp": otp})
	if err != nil {
		return nil, err
	}
	return c.resolve(ctx, token, domain.User{Mobile: mobile})
}

// SendLoginOTP asks the backend to send a login OTP
func (c *Client) SendLoginOTP(ctx context.Context, mobile string) error {
	return c.do(ctx, http.MethodPost, "/auth/login/mobile", "", map[string]string{"mobile": mobile}, nil)
}

// SuperAdminLogin signs in through the superadmin endpoint. The profile
// comes from the token alone.
func (c *Client) SuperAdminLogin(ctx context.Context, email, password string) (*Login, error) {
	token, err := c.authenticate(ctx, "/auth/superadmin/login", map[string]string{"email": email, "password": password})
	if err != nil {
		return nil, err
	}
	claims, err := decodeClaims(token)
	if err != nil {
		return nil, err
	}
	u := claims.user(domain.User{Email: email})
	if claims.Role == "" {
		u.Role = domain.RoleSuperAdmin
	}
	return &Login{Token: token, User: u}, nil
}

func (c *Client) authenticate(ctx context.Context, path string, body interface{}) (string, error) {
	var resp struct {
		Token string `json:"token"`
	}
	if err := c.do(ctx, http.MethodPost, path, "", body, &resp); err != nil {
		return "", err
	}
	if resp.Token == "" {
		return "", errors.New("login response carried no token")
	}
	return resp.Token, nil
}

// resolve builds the session user from /users/me, falling back to the
// token claims when the profile call fails.
func (c *Client) resolve(ctx context.Context, token string, known domain.User) (*Login, error) {
	claims, err := decodeClaims(token)
	if err != nil {
		return nil, err
	}

	profile, err := c.GetProfile(ctx, token)
	if err != nil {
		c.log.Warn().Err(err).Msg("Profile lookup failed, using token claims")
		return &Login{Token: token, User: claims.user(known)}, nil
	}
	if profile.ID == "" {
		profile.ID = claims.ID
	}
	return &Login{Token: token, User: *profile}, nil
}

// claims is the subset of the JWT payload the backend issues
type claims struct {
	ID            string   `json:"id"`
	Username      string   `json:"username"`
	Email         string   `json:"email"`
	Role          string   `json:"role"`
	WalletBalance *float64 `json:"walletBalance"`
}

func (c claims) user(known domain.User) domain.User {
	u := known
	u.ID = c.ID
	u.Name = c.Username
	if u.Name == "" {
		u.Name = "User"
	}
	if u.Email == "" {
		u.Email = c.Email
	}
	u.Role = domain.ParseRole(c.Role)
	if c.WalletBalance != nil {
		u.WalletBalance = *c.WalletBalance
	}
	return u
}

// decodeClaims reads the JWT payload without verifying the signature
func decodeClaims(token string) (claims, error) {
	var cl claims
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return cl, errors.New("malformed token")
	}
	payload, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(parts[1], "="))
	if err != nil {
		return cl, fmt.Errorf("failed to decode token payload: %w", err)
	}
	if err := json.Unmarshal(payload, &cl); err != nil {
		return cl, fmt.Errorf("failed to parse token payload: %w", err)
	}
	return cl, nil
}

func (c *Client) do(ctx context.Context, method, path, token string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	c.log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("Backend request")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errBody struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errBody)
		msg := errBody.Error
		if msg == "" {
			msg = fmt.Sprintf("HTTP error! status: %d", resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
