package security

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/core/domain"
	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/core/port"
)

func testKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return key
}

func newTestManager(t *testing.T, keys KeyProvider, now time.Time) *JWTManager {
	t.Helper()
	m, err := NewJWTManager(keys, JWTOptions{
		Issuer:   "commerce-api",
		Audience: "commerce",
		TTL:      time.Hour,
		Now:      func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("NewJWTManager: %v", err)
	}
	return m
}

func TestJWTManager_IssueAndVerify(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	m := newTestManager(t, NewStaticKeyProvider("k1", testKey(t)), now)

	token, expiresAt, err := m.Issue(port.AccessClaims{
		UserID:      "user-1",
		Email:       "jane@example.com",
		Roles:       []string{"customer", "customer", " "},
		Permissions: []domain.Permission{"order:create", "order:view_own"},
	})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if !expiresAt.Equal(now.Add(time.Hour)) {
		t.Fatalf("unexpected expiry %s", expiresAt)
	}

	claims, err := m.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.UserID != "user-1" || claims.Email != "jane@example.com" {
		t.Fatalf("unexpected claims %+v", claims)
	}
	if len(claims.Roles) != 1 || claims.Roles[0] != "customer" {
		t.Fatalf("roles not normalised: %v", claims.Roles)
	}
	if len(claims.Permissions) != 2 || claims.Permissions[0] != "order:create" {
		t.Fatalf("unexpected permissions %v", claims.Permissions)
	}
}

func TestJWTManager_VerifyRejects(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	key := testKey(t)
	m := newTestManager(t, NewStaticKeyProvider("k1", key), now)

	token, _, err := m.Issue(port.AccessClaims{UserID: "user-1"})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	expired := newTestManager(t, NewStaticKeyProvider("k1", key), now.Add(2*time.Hour))
	if _, err := expired.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected expired token to fail, got %v", err)
	}

	other := newTestManager(t, NewStaticKeyProvider("k1", testKey(t)), now)
	if _, err := other.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected foreign signature to fail, got %v", err)
	}

	unsigned := jwt.NewWithClaims(jwt.SigningMethodHS256, &AccessTokenClaims{UserID: "user-1"})
	unsigned.Header["kid"] = "k1"
	raw, err := unsigned.SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign hs256: %v", err)
	}
	if _, err := m.Verify(raw); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected HS256 token to fail, got %v", err)
	}
}

func TestJWTManager_IssueRequiresUser(t *testing.T) {
	m := newTestManager(t, NewStaticKeyProvider("k1", testKey(t)), time.Now())
	if _, _, err := m.Issue(port.AccessClaims{}); err == nil {
		t.Fatal("expected error without user id")
	}
}

func TestJWTManager_JWKS(t *testing.T) {
	m := newTestManager(t, NewStaticKeyProvider("k1", testKey(t)), time.Now())

	raw, err := m.JWKS()
	if err != nil {
		t.Fatalf("JWKS: %v", err)
	}
	var set struct {
		Keys []map[string]string `json:"keys"`
	}
	if err := json.Unmarshal(raw, &set); err != nil {
		t.Fatalf("decode jwks: %v", err)
	}
	if len(set.Keys) != 1 || set.Keys[0]["kid"] != "k1" || set.Keys[0]["alg"] != "RS256" {
		t.Fatalf("unexpected jwks %s", raw)
	}
}

func TestDirKeyProvider_LoadsPEMFiles(t *testing.T) {
	dir := t.TempDir()
	key := testKey(t)

	private := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	if err := os.WriteFile(filepath.Join(dir, "a-signing.pem"), private, 0o600); err != nil {
		t.Fatalf("write private key: %v", err)
	}
	pubDER, err := x509.MarshalPKIXPublicKey(&testKey(t).PublicKey)
	if err != nil {
		t.Fatalf("marshal public key: %v", err)
	}
	public := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})
	if err := os.WriteFile(filepath.Join(dir, "b-previous.pem"), public, 0o600); err != nil {
		t.Fatalf("write public key: %v", err)
	}

	p, err := NewDirKeyProvider(dir)
	if err != nil {
		t.Fatalf("NewDirKeyProvider: %v", err)
	}
	kid, signing, _ := p.SigningKey()
	if kid != "a-signing" || signing == nil {
		t.Fatalf("unexpected signing key %q", kid)
	}
	if len(p.VerificationKeys()) != 2 {
		t.Fatalf("expected 2 verification keys, got %d", len(p.VerificationKeys()))
	}
	if _, err := p.VerificationKey("missing"); !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}
}

func TestNewKeyProvider_EphemeralOutsideProduction(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "absent")

	if _, err := NewKeyProvider("production", missing); err == nil {
		t.Fatal("expected production to require keys")
	}
	p, err := NewKeyProvider("development", missing)
	if err != nil {
		t.Fatalf("NewKeyProvider: %v", err)
	}
	if kid, key, _ := p.SigningKey(); kid != "ephemeral" || key == nil {
		t.Fatalf("unexpected ephemeral key %q", kid)
	}
}
