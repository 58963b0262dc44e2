package security

import (
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/core/domain"
	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/core/port"
)

// ErrKeyIDMissing indicates a token header carries no kid.
var ErrKeyIDMissing = errors.New("jwt: missing key identifier")

// ErrInvalidToken wraps every verification failure.
var ErrInvalidToken = errors.New("jwt: invalid token")

const defaultAccessTokenTTL = time.Hour

// AccessTokenClaims augments registered claims with the caller's identity and grants.
type AccessTokenClaims struct {
	UserID      string   `json:"uid"`
	Email       string   `json:"email,omitempty"`
	Roles       []string `json:"roles,omitempty"`
	Permissions []string `json:"perms,omitempty"`
	jwt.RegisteredClaims
}

// JWTOptions configures a JWTManager.
type JWTOptions struct {
	Issuer   string
	Audience string
	TTL      time.Duration
	Now      func() time.Time
}

// JWTManager signs and verifies RS256 access tokens and publishes the JWKS.
type JWTManager struct {
	keys     KeyProvider
	issuer   string
	audience string
	ttl      time.Duration
	now      func() time.Time
}

func NewJWTManager(keys KeyProvider, opts JWTOptions) (*JWTManager, error) {
	if keys == nil {
		return nil, fmt.Errorf("jwt: key provider not configured")
	}
	if strings.TrimSpace(opts.Issuer) == "" {
		return nil, fmt.Errorf("jwt: issuer is required")
	}
	if opts.TTL <= 0 {
		opts.TTL = defaultAccessTokenTTL
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	return &JWTManager{
		keys:     keys,
		issuer:   opts.Issuer,
		audience: opts.Audience,
		ttl:      opts.TTL,
		now:      opts.Now,
	}, nil
}

// Issue implements port.TokenIssuer.
func (m *JWTManager) Issue(claims port.AccessClaims) (string, time.Time, error) {
	userID := strings.TrimSpace(claims.UserID)
	if userID == "" {
		return "", time.Time{}, fmt.Errorf("jwt: user id is required")
	}

	kid, signingKey, err := m.keys.SigningKey()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("jwt: get signing key: %w", err)
	}
	if kid == "" {
		return "", time.Time{}, ErrKeyIDMissing
	}

	now := m.now()
	expiresAt := now.Add(m.ttl)
	if !claims.ExpiresAt.IsZero() && claims.ExpiresAt.Before(expiresAt) {
		expiresAt = claims.ExpiresAt.UTC()
	}

	registered := jwt.RegisteredClaims{
		Subject:   userID,
		Issuer:    m.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		ID:        uuid.NewString(),
	}
	if m.audience != "" {
		registered.Audience = jwt.ClaimStrings{m.audience}
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, &AccessTokenClaims{
		UserID:           userID,
		Email:            claims.Email,
		Roles:            normalizeStrings(claims.Roles),
		Permissions:      permissionStrings(claims.Permissions),
		RegisteredClaims: registered,
	})
	token.Header["kid"] = kid

	signed, err := token.SignedString(signingKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("jwt: sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify implements port.TokenVerifier.
func (m *JWTManager) Verify(raw string) (port.AccessClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithTimeFunc(m.now),
		jwt.WithExpirationRequired(),
	}
	if m.audience != "" {
		opts = append(opts, jwt.WithAudience(m.audience))
	}

	var claims AccessTokenClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, ErrKeyIDMissing
		}
		return m.keys.VerificationKey(kid)
	}, opts...)
	if err != nil {
		return port.AccessClaims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.UserID == "" {
		return port.AccessClaims{}, fmt.Errorf("%w: missing uid", ErrInvalidToken)
	}

	perms := make([]domain.Permission, 0, len(claims.Permissions))
	for _, p := range claims.Permissions {
		perms = append(perms, domain.Permission(p))
	}

	out := port.AccessClaims{
		UserID:      claims.UserID,
		Email:       claims.Email,
		Roles:       claims.Roles,
		Permissions: perms,
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}

// JWKS renders the JSON Web Key Set of every verification key, ordered by kid.
func (m *JWTManager) JWKS() ([]byte, error) {
	published := m.keys.VerificationKeys()
	kids := make([]string, 0, len(published))
	for kid := range published {
		kids = append(kids, kid)
	}
	sort.Strings(kids)

	keys := make([]map[string]string, 0, len(kids))
	for _, kid := range kids {
		if key := published[kid]; key != nil {
			keys = append(keys, buildJWK(kid, key))
		}
	}
	return json.Marshal(map[string]any{"keys": keys})
}

func buildJWK(kid string, key *rsa.PublicKey) map[string]string {
	return map[string]string{
		"kty": "RSA",
		"use": "sig",
		"alg": "RS256",
		"kid": kid,
		"n":   base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
		"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.E)).Bytes()),
	}
}

func permissionStrings(perms []domain.Permission) []string {
	out := make([]string, 0, len(perms))
	for _, p := range perms {
		out = append(out, string(p))
	}
	return normalizeStrings(out)
}

func normalizeStrings(input []string) []string {
	if len(input) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(input))
	result := make([]string, 0, len(input))
	for _, v := range input {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, exists := seen[v]; exists {
			continue
		}
		seen[v] = struct{}{}
		result = append(result, v)
	}

	if len(result) == 0 {
		return nil
	}
	return result
}

var (
	_ port.TokenIssuer   = (*JWTManager)(nil)
	_ port.TokenVerifier = (*JWTManager)(nil)
)
