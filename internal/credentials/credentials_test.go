package credentials

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
)

func testServiceAccountJSON(t *testing.T, key *rsa.PrivateKey, tokenURI string) string {
	t.Helper()
	keyPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})
	doc, err := json.Marshal(map[string]string{
		"client_email":   "facesearch@test.iam.gserviceaccount.com",
		"private_key":    string(keyPEM),
		"private_key_id": "key-1",
		"token_uri":      tokenURI,
	})
	if err != nil {
		t.Fatalf("could not build service account JSON: %v", err)
	}
	return string(doc)
}

func TestServiceAccountTokenExchange(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("could not generate key: %v", err)
	}

	var exchanges int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		exchanges++
		if err := r.ParseForm(); err != nil {
			t.Fatalf("could not parse form: %v", err)
		}
		if got := r.PostForm.Get("grant_type"); got != jwtBearerGrant {
			t.Errorf("grant_type = %q, want %q", got, jwtBearerGrant)
		}

		assertion := r.PostForm.Get("assertion")
		parsed, err := jwt.Parse(assertion, func(tok *jwt.Token) (any, error) {
			if tok.Method.Alg() != jwt.SigningMethodRS256.Alg() {
				return nil, fmt.Errorf("unexpected signing method %s", tok.Method.Alg())
			}
			return &key.PublicKey, nil
		})
		if err != nil || !parsed.Valid {
			t.Errorf("assertion does not verify: %v", err)
		}
		claims := parsed.Claims.(jwt.MapClaims)
		if claims["iss"] != "facesearch@test.iam.gserviceaccount.com" {
			t.Errorf("unexpected iss %v", claims["iss"])
		}
		if claims["scope"] != DriveReadOnlyScope {
			t.Errorf("unexpected scope %v", claims["scope"])
		}
		if parsed.Header["kid"] != "key-1" {
			t.Errorf("unexpected kid %v", parsed.Header["kid"])
		}

		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "issued-token",
			"expires_in":   3600,
		})
	}))
	defer server.Close()

	source, err := NewServiceAccountSource(testServiceAccountJSON(t, key, server.URL), DriveReadOnlyScope)
	if err != nil {
		t.Fatalf("could not create token source: %v", err)
	}

	token, err := source.Token(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token != "issued-token" {
		t.Errorf("token = %q, want issued-token", token)
	}

	// A second call within the expiry window must reuse the cached token.
	token, err = source.Token(context.Background())
	if err != nil {
		t.Fatalf("unexpected error on cached call: %v", err)
	}
	if token != "issued-token" {
		t.Errorf("cached token = %q, want issued-token", token)
	}
	if exchanges != 1 {
		t.Errorf("expected a single exchange, got %d", exchanges)
	}
}

func TestServiceAccountTokenExchangeFailure(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("could not generate key: %v", err)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "invalid_grant"}`, http.StatusBadRequest)
	}))
	defer server.Close()

	source, err := NewServiceAccountSource(testServiceAccountJSON(t, key, server.URL), DriveReadOnlyScope)
	if err != nil {
		t.Fatalf("could not create token source: %v", err)
	}

	if _, err := source.Token(context.Background()); err == nil {
		t.Fatal("expected an error for a rejected assertion")
	}
}

func TestNewServiceAccountSourceValidation(t *testing.T) {
	tests := []struct {
		name        string
		credentials string
	}{
		{"empty", ""},
		{"not JSON and not a file", "/nonexistent/service-account.json"},
		{"invalid JSON", "{not json"},
		{"missing fields", `{"client_email": "a@b.c"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewServiceAccountSource(tt.credentials, DriveReadOnlyScope); err == nil {
				t.Fatal("expected a configuration error")
			}
		})
	}
}

func TestNewServiceAccountSourceDefaultTokenURI(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("could not generate key: %v", err)
	}

	source, err := NewServiceAccountSource(testServiceAccountJSON(t, key, ""), DriveReadOnlyScope)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if source.account.TokenURI != defaultTokenURI {
		t.Errorf("token URI = %q, want %q", source.account.TokenURI, defaultTokenURI)
	}
}

func TestStaticTokenSource(t *testing.T) {
	token, err := StaticTokenSource("fixed").Token(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token != "fixed" {
		t.Errorf("token = %q, want fixed", token)
	}
}
