package auth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/addyspiller/prisere/internal/common"
)

// JWTProvider verifies RS256 bearer tokens against a JWKS endpoint. The key
// set is cached in-process and refreshed lazily after its TTL; an unknown kid
// also forces a refresh so key rotation does not require a restart.
type JWTProvider struct {
	jwksURL string
	issuer  string
	ttl     time.Duration
	client  *http.Client
	log     *slog.Logger
	now     func() time.Time

	mu        sync.Mutex
	keys      map[string]*rsa.PublicKey
	fetchedAt time.Time
}

func NewJWTProvider(jwksURL, issuer string, refreshTTL time.Duration, logger *slog.Logger) *JWTProvider {
	if refreshTTL <= 0 {
		refreshTTL = 15 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &JWTProvider{
		jwksURL: jwksURL,
		issuer:  issuer,
		ttl:     refreshTTL,
		client:  &http.Client{Timeout: 10 * time.Second},
		log:     logger,
		now:     time.Now,
	}
}

type tokenClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

func (p *JWTProvider) Authenticate(ctx context.Context, authorization string) (Identity, error) {
	raw, ok := strings.CutPrefix(authorization, "Bearer ")
	if !ok || raw == "" {
		return Identity{}, unauthorized("missing bearer token")
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithTimeFunc(p.now),
	}
	if p.issuer != "" {
		opts = append(opts, jwt.WithIssuer(p.issuer))
	}

	var claims tokenClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		return p.keyFor(ctx, kid)
	}, opts...)
	if err != nil {
		// Key lookup errors carry their own code and HTTP mapping.
		var app *common.AppError
		if errors.As(err, &app) {
			return Identity{}, app
		}
		return Identity{}, unauthorized(rejectionReason(err))
	}

	if claims.Subject == "" {
		return Identity{}, unauthorized("token missing subject")
	}
	return Identity{UserID: claims.Subject, Email: claims.Email}, nil
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return "malformed token"
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return "invalid token signature"
	case errors.Is(err, jwt.ErrTokenExpired):
		return "token expired"
	case errors.Is(err, jwt.ErrTokenNotValidYet):
		return "token not yet valid"
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return "unexpected token issuer"
	default:
		return "invalid token"
	}
}

// keyFor returns the verification key for kid, refreshing the cached set
// when it is stale or does not know the kid.
func (p *JWTProvider) keyFor(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	stale := p.keys == nil || p.now().Sub(p.fetchedAt) > p.ttl
	if !stale {
		if key, ok := p.keys[kid]; ok {
			return key, nil
		}
	}

	if err := p.refreshLocked(ctx); err != nil {
		p.log.Error("auth.jwks.refresh_failed", "error", err)
		return nil, common.NewAppError("JWKS_UNAVAILABLE",
			"verification keys unavailable", common.ErrInternal)
	}

	key, ok := p.keys[kid]
	if !ok {
		return nil, unauthorized("unknown signing key")
	}
	return key, nil
}

type jwksDocument struct {
	Keys []struct {
		Kty string `json:"kty"`
		Kid string `json:"kid"`
		Use string `json:"use"`
		N   string `json:"n"`
		E   string `json:"e"`
	} `json:"keys"`
}

func (p *JWTProvider) refreshLocked(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.jwksURL, nil)
	if err != nil {
		return err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("jwks status %d", resp.StatusCode)
	}

	var doc jwksDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return fmt.Errorf("decode jwks: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(doc.Keys))
	for _, k := range doc.Keys {
		if k.Kty != "RSA" || (k.Use != "" && k.Use != "sig") {
			continue
		}
		pub, err := parseRSAKey(k.N, k.E)
		if err != nil {
			p.log.Warn("auth.jwks.skip_key", "kid", k.Kid, "error", err)
			continue
		}
		keys[k.Kid] = pub
	}
	if len(keys) == 0 {
		return fmt.Errorf("jwks contains no usable RSA keys")
	}

	p.keys = keys
	p.fetchedAt = p.now()
	p.log.Info("auth.jwks.refreshed", "keys", len(keys))
	return nil
}

func parseRSAKey(n, e string) (*rsa.PublicKey, error) {
	nb, err := base64.RawURLEncoding.DecodeString(n)
	if err != nil {
		return nil, fmt.Errorf("decode modulus: %w", err)
	}
	eb, err := base64.RawURLEncoding.DecodeString(e)
	if err != nil {
		return nil, fmt.Errorf("decode exponent: %w", err)
	}
	if len(eb) > 8 {
		return nil, fmt.Errorf("exponent too large")
	}
	padded := make([]byte, 8)
	copy(padded[8-len(eb):], eb)
	exp := binary.BigEndian.Uint64(padded)
	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nb),
		E: int(exp),
	}, nil
}

var _ Provider = (*JWTProvider)(nil)
