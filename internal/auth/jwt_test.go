package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/addyspiller/prisere/internal/common"
)

type signer struct {
	key *rsa.PrivateKey
	kid string
}

func newSigner(t *testing.T, kid string) *signer {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return &signer{key: key, kid: kid}
}

func (s *signer) jwk() map[string]any {
	return map[string]any{
		"kty": "RSA",
		"kid": s.kid,
		"use": "sig",
		"n":   base64.RawURLEncoding.EncodeToString(s.key.N.Bytes()),
		"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(s.key.E)).Bytes()),
	}
}

func (s *signer) token(t *testing.T, claims map[string]any) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims(claims))
	tok.Header["kid"] = s.kid
	signed, err := tok.SignedString(s.key)
	require.NoError(t, err)
	return signed
}

func jwksServer(t *testing.T, signers ...*signer) (*httptest.Server, *int) {
	t.Helper()
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits++
		keys := make([]map[string]any, 0, len(signers))
		for _, s := range signers {
			keys = append(keys, s.jwk())
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"keys": keys})
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestStaticProviderAlwaysResolves(t *testing.T) {
	p := NewStaticProvider("user_7")
	id, err := p.Authenticate(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "user_7", id.UserID)

	// Empty config falls back to the dev user.
	p = NewStaticProvider("")
	id, err = p.Authenticate(context.Background(), "Bearer whatever")
	require.NoError(t, err)
	assert.Equal(t, "dev_user", id.UserID)
}

func TestJWTProviderHappyPath(t *testing.T) {
	s := newSigner(t, "key-1")
	srv, _ := jwksServer(t, s)

	p := NewJWTProvider(srv.URL, "https://issuer.test", time.Minute, nil)
	tok := s.token(t, map[string]any{
		"sub":   "user_42",
		"iss":   "https://issuer.test",
		"email": "u@example.com",
		"exp":   time.Now().Add(time.Hour).Unix(),
	})

	id, err := p.Authenticate(context.Background(), "Bearer "+tok)
	require.NoError(t, err)
	assert.Equal(t, "user_42", id.UserID)
	assert.Equal(t, "u@example.com", id.Email)
}

func TestJWTProviderRejections(t *testing.T) {
	s := newSigner(t, "key-1")
	srv, _ := jwksServer(t, s)
	p := NewJWTProvider(srv.URL, "https://issuer.test", time.Minute, nil)

	valid := func(mutate func(map[string]any)) string {
		claims := map[string]any{
			"sub": "user_42",
			"iss": "https://issuer.test",
			"exp": time.Now().Add(time.Hour).Unix(),
		}
		mutate(claims)
		return s.token(t, claims)
	}

	cases := map[string]string{
		"no bearer prefix": "Basic abc",
		"not a jwt":        "Bearer not.a",
		"expired":          "Bearer " + valid(func(c map[string]any) { c["exp"] = time.Now().Add(-time.Hour).Unix() }),
		"wrong issuer":     "Bearer " + valid(func(c map[string]any) { c["iss"] = "https://evil.test" }),
		"missing subject":  "Bearer " + valid(func(c map[string]any) { delete(c, "sub") }),
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := p.Authenticate(context.Background(), header)
			assert.ErrorIs(t, err, common.ErrUnauthorized)
		})
	}

	t.Run("tampered signature", func(t *testing.T) {
		tok := valid(func(map[string]any) {})
		_, err := p.Authenticate(context.Background(), "Bearer "+tok[:len(tok)-4]+"AAAA")
		assert.ErrorIs(t, err, common.ErrUnauthorized)
	})

	t.Run("hmac signed with kid of a known rsa key", func(t *testing.T) {
		tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"sub": "user_42",
			"iss": "https://issuer.test",
			"exp": time.Now().Add(time.Hour).Unix(),
		})
		tok.Header["kid"] = "key-1"
		signed, err := tok.SignedString([]byte("guessable"))
		require.NoError(t, err)

		_, err = p.Authenticate(context.Background(), "Bearer "+signed)
		assert.ErrorIs(t, err, common.ErrUnauthorized)
	})
}

func TestJWTProviderCachesAndRefreshesKeys(t *testing.T) {
	s1 := newSigner(t, "key-1")
	srv, hits := jwksServer(t, s1)
	p := NewJWTProvider(srv.URL, "", time.Hour, nil)

	claims := map[string]any{"sub": "u", "exp": time.Now().Add(time.Hour).Unix()}

	_, err := p.Authenticate(context.Background(), "Bearer "+s1.token(t, claims))
	require.NoError(t, err)
	_, err = p.Authenticate(context.Background(), "Bearer "+s1.token(t, claims))
	require.NoError(t, err)
	assert.Equal(t, 1, *hits, "second request should hit the cache")

	// A token signed by an unknown kid forces a refetch.
	s2 := newSigner(t, "key-2")
	_, err = p.Authenticate(context.Background(), "Bearer "+s2.token(t, claims))
	assert.ErrorIs(t, err, common.ErrUnauthorized)
	assert.Equal(t, 2, *hits)
}
