// Package credentials implements the Google service-account JWT-bearer flow
// used to obtain read-only Drive access tokens.
package credentials

import (
	"context"
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
)

const (
	// DriveReadOnlyScope is the only scope this service ever requests.
	DriveReadOnlyScope = "https://www.googleapis.com/auth/drive.readonly"

	jwtBearerGrant = "urn:ietf:params:oauth:grant-type:jwt-bearer"
	defaultTokenURI = "https://oauth2.googleapis.com/token"

	// assertionLifetime is the validity window of the signed assertion.
	// Google caps this at one hour.
	assertionLifetime = time.Hour

	// refreshMargin renews cached tokens slightly before they expire so
	// in-flight requests never race token expiry.
	refreshMargin = time.Minute
)

// TokenSource supplies bearer tokens for the Drive API. Implementations must
// be safe for concurrent use; one source is shared by all request workers.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticTokenSource returns a fixed token. Useful for tests and for running
// against a mock Drive server.
type StaticTokenSource string

func (s StaticTokenSource) Token(context.Context) (string, error) {
	return string(s), nil
}

// serviceAccount is the subset of the Google service-account JSON document
// the JWT-bearer flow needs.
type serviceAccount struct {
	ClientEmail  string `json:"client_email"`
	PrivateKey   string `json:"private_key"`
	PrivateKeyID string `json:"private_key_id"`
	TokenURI     string `json:"token_uri"`
}

// ServiceAccountSource signs JWT assertions with a service-account key and
// exchanges them for access tokens, caching the token until close to expiry.
type ServiceAccountSource struct {
	account serviceAccount
	scope   string
	client  *http.Client

	mu      sync.Mutex
	token   string
	expires time.Time
}

// NewServiceAccountSource parses service-account credentials and returns a
// token source for the given scope. The credentials argument is either the
// JSON document itself or a path to a file containing it; an empty or
// unparseable value is a configuration error, the process cannot serve
// requests without Drive access.
func NewServiceAccountSource(credentials, scope string) (*ServiceAccountSource, error) {
	if credentials == "" {
		return nil, fmt.Errorf("service account credentials are not configured")
	}

	raw := []byte(credentials)
	if !strings.HasPrefix(strings.TrimSpace(credentials), "{") {
		data, err := os.ReadFile(credentials) //nolint:gosec // path comes from the operator's own env
		if err != nil {
			return nil, fmt.Errorf("could not read service account file: %w", err)
		}
		raw = data
	}

	var account serviceAccount
	if err := json.Unmarshal(raw, &account); err != nil {
		return nil, fmt.Errorf("could not parse service account JSON: %w", err)
	}
	if account.ClientEmail == "" || account.PrivateKey == "" {
		return nil, fmt.Errorf("service account JSON is missing client_email or private_key")
	}
	if account.TokenURI == "" {
		account.TokenURI = defaultTokenURI
	}

	return &ServiceAccountSource{
		account: account,
		scope:   scope,
		client:  &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// Token returns a valid access token, exchanging a fresh assertion when the
// cached token is missing or about to expire.
func (s *ServiceAccountSource) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != "" && time.Now().Before(s.expires.Add(-refreshMargin)) {
		return s.token, nil
	}

	assertion, err := s.signAssertion()
	if err != nil {
		return "", err
	}

	token, expiresIn, err := s.exchange(ctx, assertion)
	if err != nil {
		return "", err
	}

	s.token = token
	s.expires = time.Now().Add(time.Duration(expiresIn) * time.Second)
	return s.token, nil
}

// signAssertion builds and signs the RS256 JWT assertion for the token exchange.
func (s *ServiceAccountSource) signAssertion() (string, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(s.account.PrivateKey))
	if err != nil {
		return "", fmt.Errorf("could not parse service account private key: %w", err)
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"iss":   s.account.ClientEmail,
		"scope": s.scope,
		"aud":   s.account.TokenURI,
		"iat":   now.Unix(),
		"exp":   now.Add(assertionLifetime).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	if s.account.PrivateKeyID != "" {
		token.Header["kid"] = s.account.PrivateKeyID
	}

	signed, err := token.SignedString(key)
	if err != nil {
		return "", fmt.Errorf("could not sign assertion: %w", err)
	}
	return signed, nil
}

// exchange posts the signed assertion to the token endpoint.
func (s *ServiceAccountSource) exchange(ctx context.Context, assertion string) (string, int, error) {
	form := url.Values{
		"grant_type": {jwtBearerGrant},
		"assertion":  {assertion},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.account.TokenURI, strings.NewReader(form.Encode()))
	if err != nil {
		return "", 0, fmt.Errorf("could not create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("could not send token request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", 0, fmt.Errorf("could not read token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", 0, fmt.Errorf("token exchange failed with status %d: %s", resp.StatusCode, string(body))
	}

	var result struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", 0, fmt.Errorf("could not unmarshal token response: %w", err)
	}
	if result.AccessToken == "" {
		return "", 0, fmt.Errorf("token endpoint returned an empty access token")
	}
	if result.ExpiresIn <= 0 {
		result.ExpiresIn = 3600
	}

	return result.AccessToken, result.ExpiresIn, nil
}
