package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/core/domain"
	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/core/port"
	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/infra/logger"
	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/repository"
)

const invalidCredentialsMessage = "invalid email or password"

// RegisterInput is a self-service sign-up request.
type RegisterInput struct {
	FirstName string `json:"firstName" validate:"required,max=100"`
	LastName  string `json:"lastName" validate:"required,max=100"`
	Email     string `json:"email" validate:"required,email"`
	Phone     string `json:"phone" validate:"omitempty,max=32"`
	Password  string `json:"password" validate:"required,min=8,max=128"`
}

// LoginInput carries credentials.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthToken is issued on successful login.
type AuthToken struct {
	AccessToken string      `json:"accessToken"`
	TokenType   string      `json:"tokenType"`
	ExpiresAt   time.Time   `json:"expiresAt"`
	User        domain.User `json:"user"`
}

// AuthService handles registration, login and identity lookups.
type AuthService struct {
	exec     *Executor
	users    port.Repository[domain.User]
	resolver *PermissionResolver
	hasher   port.PasswordHasher
	policy   port.PasswordPolicyValidator
	tokens   port.TokenIssuer
	events   port.EventPublisher
}

// NewAuthService constructs an auth service. policy may be nil to skip strength checks.
func NewAuthService(exec *Executor, users port.Repository[domain.User], resolver *PermissionResolver, hasher port.PasswordHasher, policy port.PasswordPolicyValidator, tokens port.TokenIssuer, events port.EventPublisher) *AuthService {
	return &AuthService{
		exec:     exec,
		users:    users,
		resolver: resolver,
		hasher:   hasher,
		policy:   policy,
		tokens:   tokens,
		events:   eventsOrDiscard(events),
	}
}

// Register creates a customer account.
func (s *AuthService) Register(ctx context.Context, auth domain.AuthContext, in RegisterInput) domain.Result[domain.User] {
	in.Email = normalizeEmail(in.Email)
	return Execute(ctx, s.exec, auth, in, Operation[RegisterInput, domain.User]{
		Name:    "auth.register",
		Public:  true,
		Created: true,
		Validate: func(in RegisterInput) error {
			if s.policy == nil {
				return nil
			}
			if err := s.policy.Validate(in.Password, in.Email, in.FirstName, in.LastName); err != nil {
				return domain.WrapError(domain.KindValidationFailed, err, "password does not meet complexity requirements")
			}
			return nil
		},
		Run: func(ctx context.Context, _ domain.AuthContext, in RegisterInput) (domain.User, error) {
			existing, err := s.users.FindOne(ctx, domain.Eq{Field: "email", Value: in.Email})
			if err != nil {
				return domain.User{}, fmt.Errorf("lookup email: %w", err)
			}
			if existing != nil {
				return domain.User{}, domain.ConflictError("email already registered")
			}

			hash, err := s.hasher.Hash(in.Password)
			if err != nil {
				return domain.User{}, fmt.Errorf("hash password: %w", err)
			}

			created, err := s.users.Create(ctx, &domain.User{
				FirstName:    strings.TrimSpace(in.FirstName),
				LastName:     strings.TrimSpace(in.LastName),
				Email:        in.Email,
				Phone:        in.Phone,
				PasswordHash: hash,
				Roles:        []string{domain.RoleCustomer},
				IsActive:     true,
			})
			if err != nil {
				if errors.Is(err, repository.ErrDuplicate) {
					return domain.User{}, domain.ConflictError("email already registered")
				}
				return domain.User{}, err
			}

			s.exec.log(ctx).Info("user registered",
				zap.String("user_id", created.ID),
				zap.String("email", logger.MaskEmail(created.Email)),
			)
			s.exec.publish(ctx, "user.registered", func(ctx context.Context) error {
				return s.events.PublishUserRegistered(ctx, domain.UserRegisteredEvent{
					EventID:      uuid.NewString(),
					UserID:       created.ID,
					CustID:       created.CustID,
					Email:        created.Email,
					RegisteredAt: created.CreatedAt,
				})
			})
			return created.Public(), nil
		},
	})
}

// Login verifies credentials and issues an access token carrying the caller's
// roles and resolved permissions.
func (s *AuthService) Login(ctx context.Context, auth domain.AuthContext, in LoginInput) domain.Result[AuthToken] {
	in.Email = normalizeEmail(in.Email)
	return Execute(ctx, s.exec, auth, in, Operation[LoginInput, AuthToken]{
		Name:   "auth.login",
		Public: true,
		Run: func(ctx context.Context, _ domain.AuthContext, in LoginInput) (AuthToken, error) {
			user, err := s.users.FindOne(ctx, domain.Eq{Field: "email", Value: in.Email})
			if err != nil {
				return AuthToken{}, fmt.Errorf("lookup email: %w", err)
			}
			if user == nil || user.PasswordHash == "" {
				return AuthToken{}, domain.NewError(domain.KindUnauthenticated, invalidCredentialsMessage)
			}
			ok, err := s.hasher.Verify(in.Password, user.PasswordHash)
			if err != nil {
				return AuthToken{}, fmt.Errorf("verify password: %w", err)
			}
			if !ok {
				return AuthToken{}, domain.NewError(domain.KindUnauthenticated, invalidCredentialsMessage)
			}
			if !user.IsActive {
				return AuthToken{}, domain.NewError(domain.KindForbidden, "account is disabled")
			}

			perms, err := s.resolver.ForUser(ctx, user.ID, user.Roles)
			if err != nil {
				return AuthToken{}, err
			}
			token, expiresAt, err := s.tokens.Issue(port.AccessClaims{
				UserID:      user.ID,
				Email:       user.Email,
				Roles:       user.Roles,
				Permissions: perms,
			})
			if err != nil {
				return AuthToken{}, fmt.Errorf("issue token: %w", err)
			}
			return AuthToken{AccessToken: token, TokenType: "Bearer", ExpiresAt: expiresAt, User: user.Public()}, nil
		},
	})
}

// Me returns the caller's own account.
func (s *AuthService) Me(ctx context.Context, auth domain.AuthContext) domain.Result[domain.User] {
	return Execute(ctx, s.exec, auth, struct{}{}, Operation[struct{}, domain.User]{
		Name: "auth.me",
		Run: func(ctx context.Context, auth domain.AuthContext, _ struct{}) (domain.User, error) {
			user, err := findScoped(ctx, s.users, domain.ResourceUser, auth.UserID(), nil)
			if err != nil {
				return domain.User{}, err
			}
			return user.Public(), nil
		},
	})
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
