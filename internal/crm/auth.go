package crm

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/matthieukhl/loyaltydesk/internal/apperr"
	"github.com/matthieukhl/loyaltydesk/internal/models"
	"github.com/matthieukhl/loyaltydesk/internal/retry"
)

// Grant produces the form body posted to the token endpoint.
type Grant interface {
	Form() (url.Values, error)
}

// ClientCredentials is the OAuth2 client-credentials grant.
type ClientCredentials struct {
	ClientID     string
	ClientSecret string
}

func (g ClientCredentials) Form() (url.Values, error) {
	return url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {g.ClientID},
		"client_secret": {g.ClientSecret},
	}, nil
}

const jwtBearerGrantType = "urn:ietf:params:oauth:grant-type:jwt-bearer"

// JWTBearer signs a short-lived RS256 assertion instead of sending a secret.
type JWTBearer struct {
	ClientID string
	Username string
	Audience string
	Key      *rsa.PrivateKey
	Now      func() time.Time
}

// LoadJWTBearer reads a PEM encoded RSA private key from disk.
func LoadJWTBearer(clientID, username, audience, keyPath string) (*JWTBearer, error) {
	pemBytes, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key: %w", err)
	}
	key, err := jwt.ParseRSAPrivateKeyFromPEM(pemBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}
	return &JWTBearer{ClientID: clientID, Username: username, Audience: audience, Key: key}, nil
}

func (g *JWTBearer) Form() (url.Values, error) {
	assertion, err := g.Assertion()
	if err != nil {
		return nil, err
	}
	return url.Values{
		"grant_type": {jwtBearerGrantType},
		"assertion":  {assertion},
	}, nil
}

// Assertion returns the signed JWT, valid for three minutes.
func (g *JWTBearer) Assertion() (string, error) {
	now := time.Now
	if g.Now != nil {
		now = g.Now
	}
	claims := jwt.RegisteredClaims{
		Issuer:    g.ClientID,
		Subject:   g.Username,
		Audience:  jwt.ClaimStrings{g.Audience},
		ExpiresAt: jwt.NewNumericDate(now().Add(3 * time.Minute)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(g.Key)
	if err != nil {
		return "", fmt.Errorf("failed to sign assertion: %w", err)
	}
	return signed, nil
}

// TokenProvider acquires a bearer token once and hands it to every caller
// until it is invalidated.
type TokenProvider struct {
	endpoint string
	grant    Grant
	client   *http.Client
	policy   retry.Policy
	now      func() time.Time

	// sem serialises acquisition; waiters give up when their context ends
	sem chan struct{}

	mu    sync.Mutex
	token *models.AuthToken
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	InstanceURL string `json:"instance_url"`
	TokenType   string `json:"token_type"`
	IssuedAt    string `json:"issued_at"`
}

// NewTokenProvider creates a provider posting to <baseURL>/services/oauth2/token.
func NewTokenProvider(baseURL string, grant Grant, client *http.Client, policy retry.Policy) *TokenProvider {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &TokenProvider{
		endpoint: strings.TrimRight(baseURL, "/") + "/services/oauth2/token",
		grant:    grant,
		client:   client,
		policy:   policy,
		now:      time.Now,
		sem:      make(chan struct{}, 1),
	}
}

// Token returns the cached token, acquiring one first if needed. Acquisition
// is retried under the provider's policy; once that budget is spent the
// failure is an auth error, which callers do not retry again.
func (p *TokenProvider) Token(ctx context.Context) (models.AuthToken, error) {
	if token, ok := p.cached(); ok {
		return token, nil
	}

	select {
	case p.sem <- struct{}{}:
	case <-ctx.Done():
		return models.AuthToken{}, ctx.Err()
	}
	defer func() { <-p.sem }()

	// another caller may have finished acquiring while we waited
	if token, ok := p.cached(); ok {
		return token, nil
	}

	token, err := retry.Do(ctx, p.policy, "acquire token", p.acquire)
	if err != nil {
		return models.AuthToken{}, apperr.AuthErr(err)
	}

	p.mu.Lock()
	p.token = &token
	p.mu.Unlock()
	return token, nil
}

func (p *TokenProvider) cached() (models.AuthToken, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.token == nil {
		return models.AuthToken{}, false
	}
	return *p.token, true
}

// Invalidate drops the cached token so the next call re-authenticates.
func (p *TokenProvider) Invalidate() {
	p.mu.Lock()
	p.token = nil
	p.mu.Unlock()
}

func (p *TokenProvider) acquire(ctx context.Context) (models.AuthToken, error) {
	form, err := p.grant.Form()
	if err != nil {
		return models.AuthToken{}, retry.Permanent(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return models.AuthToken{}, retry.Permanent(fmt.Errorf("failed to create token request: %w", err))
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return models.AuthToken{}, fmt.Errorf("failed to reach token endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return models.AuthToken{}, fmt.Errorf("token endpoint error %d: %s", resp.StatusCode, string(body))
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return models.AuthToken{}, fmt.Errorf("failed to decode token response: %w", err)
	}
	if tr.AccessToken == "" {
		return models.AuthToken{}, fmt.Errorf("token endpoint returned no access_token")
	}

	return models.AuthToken{
		AccessToken: tr.AccessToken,
		InstanceURL: tr.InstanceURL,
		ObtainedAt:  p.now(),
	}, nil
}
