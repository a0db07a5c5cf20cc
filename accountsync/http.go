package accountsync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/golang-jwt/jwt/v5"

	oa "github.com/panyam/tenantauth"
)

const (
	DefaultTokenExpiry = 5 * time.Minute
	DefaultIssuer      = "tenantauth"
)

// HTTPSender POSTs each event as JSON to URL. When Secret is set the
// request carries an HS256 bearer token so the receiver can authenticate
// the caller.
type HTTPSender struct {
	URL         string
	Secret      string
	Issuer      string
	TokenExpiry time.Duration
	Client      *http.Client
}

func (s *HTTPSender) client() *http.Client {
	if s.Client != nil {
		return s.Client
	}
	return &http.Client{Timeout: 10 * time.Second}
}

// serviceToken signs a short lived token bound to the event id
func (s *HTTPSender) serviceToken(event oa.AccountCreated) (string, error) {
	expiry := s.TokenExpiry
	if expiry == 0 {
		expiry = DefaultTokenExpiry
	}
	issuer := s.Issuer
	if issuer == "" {
		issuer = DefaultIssuer
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"iss":  issuer,
		"sub":  event.Email,
		"jti":  event.ID,
		"type": "account_sync",
		"iat":  now.Unix(),
		"exp":  now.Add(expiry).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.Secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return token, nil
}

func (s *HTTPSender) Send(ctx context.Context, event oa.AccountCreated) error {
	body, err := json.Marshal(event)
	if err != nil {
		return backoff.Permanent(err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL, bytes.NewReader(body))
	if err != nil {
		return backoff.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", event.ID)
	if s.Secret != "" {
		token, err := s.serviceToken(event)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.client().Do(req)
	if err != nil {
		return fmt.Errorf("account sync request: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusConflict:
		// already provisioned
		return nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusRequestTimeout:
		return fmt.Errorf("account sync: status %d", resp.StatusCode)
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return backoff.Permanent(fmt.Errorf("account sync rejected: status %d", resp.StatusCode))
	default:
		return fmt.Errorf("account sync: status %d", resp.StatusCode)
	}
}
