package port

import (
	"time"

	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/core/domain"
)

// PasswordPolicyValidator enforces password strength requirements.
type PasswordPolicyValidator interface {
	Validate(password string, hints ...string) error
}

// Argon2Params captures tunable parameters for the Argon2id hashing algorithm.
type Argon2Params struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// PasswordHasher hashes and verifies secrets using the configured algorithm.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password string, encoded string) (bool, error)
}

// AccessClaims is the identity carried by an access token.
type AccessClaims struct {
	UserID      string
	Email       string
	Roles       []string
	Permissions []domain.Permission
	ExpiresAt   time.Time
}

// TokenIssuer signs access tokens.
type TokenIssuer interface {
	Issue(claims AccessClaims) (token string, expiresAt time.Time, err error)
}

// TokenVerifier parses and verifies access tokens.
type TokenVerifier interface {
	Verify(token string) (AccessClaims, error)
}
