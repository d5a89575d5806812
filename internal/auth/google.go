package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/kudipay/kudipay/internal/identity"
)

// ErrGoogleToken covers ID tokens Google rejects or that belong to a
// different OAuth client.
var ErrGoogleToken = errors.New("google id token rejected")

// GoogleVerifier validates a Google ID token and extracts the profile claims.
type GoogleVerifier interface {
	Verify(ctx context.Context, idToken string) (identity.Profile, error)
}

// googleTokenInfo verifies tokens against Google's tokeninfo endpoint.
type googleTokenInfo struct {
	endpoint   string
	clientID   string
	httpClient *http.Client
}

// NewGoogleVerifier builds the production verifier. endpoint is overridable
// for tests; empty selects Google's public tokeninfo service.
func NewGoogleVerifier(endpoint, clientID string, timeout time.Duration) GoogleVerifier {
	if endpoint == "" {
		endpoint = "https://oauth2.googleapis.com/tokeninfo"
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &googleTokenInfo{
		endpoint:   endpoint,
		clientID:   clientID,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (g *googleTokenInfo) Verify(ctx context.Context, idToken string) (identity.Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		g.endpoint+"?id_token="+url.QueryEscape(idToken), nil)
	if err != nil {
		return identity.Profile{}, err
	}
	resp, err := g.httpClient.Do(req)
	if err != nil {
		return identity.Profile{}, fmt.Errorf("google tokeninfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return identity.Profile{}, ErrGoogleToken
	}

	var info struct {
		Aud           string `json:"aud"`
		Sub           string `json:"sub"`
		Email         string `json:"email"`
		EmailVerified string `json:"email_verified"`
		Name          string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return identity.Profile{}, ErrGoogleToken
	}
	if info.Aud != g.clientID || info.Sub == "" || info.EmailVerified != "true" {
		return identity.Profile{}, ErrGoogleToken
	}

	return identity.Profile{GoogleID: info.Sub, Email: info.Email, FullName: info.Name}, nil
}
