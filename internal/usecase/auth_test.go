package usecase

import (
	"errors"
	"slices"
	"testing"

	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/core/domain"
)

type rejectingPolicy struct{}

func (rejectingPolicy) Validate(password string, _ ...string) error {
	if password == "password123" {
		return errors.New("too guessable")
	}
	return nil
}

func TestAuthService_RegisterAndLogin(t *testing.T) {
	env := newTestEnv(t)

	res := env.auth.Register(env.ctx, domain.Anonymous(), RegisterInput{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     " Ada@Example.com ",
		Password:  "correct horse battery",
	})
	user := mustOk(t, res)
	if res.Status() != 201 {
		t.Fatalf("expected 201, got %d", res.Status())
	}
	if user.Email != "ada@example.com" || user.CustID != "CUST0001" {
		t.Fatalf("unexpected user %+v", user)
	}
	if user.PasswordHash != "" {
		t.Fatal("password hash must not be returned")
	}
	if !slices.Equal(user.Roles, []string{domain.RoleCustomer}) {
		t.Fatalf("expected customer role, got %v", user.Roles)
	}
	if len(env.events.registered) != 1 {
		t.Fatalf("expected a registration event, got %d", len(env.events.registered))
	}

	token := mustOk(t, env.auth.Login(env.ctx, domain.Anonymous(), LoginInput{Email: "ADA@example.com", Password: "correct horse battery"}))
	if token.AccessToken != "token-"+user.ID || token.TokenType != "Bearer" {
		t.Fatalf("unexpected token %+v", token)
	}
	if !domain.HasRequiredPermissions(domain.DefaultCustomerPermissions, env.issuer.last.Permissions) {
		t.Fatalf("expected customer permissions in claims, got %v", env.issuer.last.Permissions)
	}
	if _, cached, _ := env.cache.Get(env.ctx, user.ID); !cached {
		t.Fatal("expected resolved permissions to be cached")
	}

	mustFail(t, env.auth.Login(env.ctx, domain.Anonymous(), LoginInput{Email: "ada@example.com", Password: "wrong"}), domain.KindUnauthenticated)
	mustFail(t, env.auth.Login(env.ctx, domain.Anonymous(), LoginInput{Email: "nobody@example.com", Password: "wrong"}), domain.KindUnauthenticated)
}

func TestAuthService_RegisterDuplicateEmailConflicts(t *testing.T) {
	env := newTestEnv(t)
	in := RegisterInput{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com", Password: "correct horse battery"}

	mustOk(t, env.auth.Register(env.ctx, domain.Anonymous(), in))
	f := mustFail(t, env.auth.Register(env.ctx, domain.Anonymous(), in), domain.KindConflict)
	if f.Status != 409 {
		t.Fatalf("expected 409, got %d", f.Status)
	}

	count, err := env.repos.Users.Count(env.ctx, nil)
	if err != nil || count != 1 {
		t.Fatalf("expected one user, got %d (%v)", count, err)
	}
}

func TestAuthService_RegisterEnforcesPolicy(t *testing.T) {
	env := newTestEnv(t)
	svc := NewAuthService(env.exec, env.repos.Users, env.resolver, stubHasher{}, rejectingPolicy{}, env.issuer, nil)

	mustFail(t, svc.Register(env.ctx, domain.Anonymous(), RegisterInput{
		FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com", Password: "password123",
	}), domain.KindValidationFailed)
	mustFail(t, svc.Register(env.ctx, domain.Anonymous(), RegisterInput{
		FirstName: "Ada", LastName: "Lovelace", Email: "not-an-email", Password: "correct horse battery",
	}), domain.KindValidationFailed)
}

func TestAuthService_LoginRejectsDisabledAccount(t *testing.T) {
	env := newTestEnv(t)
	user := mustOk(t, env.auth.Register(env.ctx, domain.Anonymous(), RegisterInput{
		FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com", Password: "correct horse battery",
	}))
	inactive := false
	mustOk(t, env.users.Update(env.ctx, adminAuth(), UpdateUserInput{ID: user.ID, IsActive: &inactive}))

	mustFail(t, env.auth.Login(env.ctx, domain.Anonymous(), LoginInput{Email: "ada@example.com", Password: "correct horse battery"}), domain.KindForbidden)
}

func TestAuthService_Me(t *testing.T) {
	env := newTestEnv(t)
	user := mustOk(t, env.auth.Register(env.ctx, domain.Anonymous(), RegisterInput{
		FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com", Password: "correct horse battery",
	}))

	me := mustOk(t, env.auth.Me(env.ctx, customerAuth(user.ID)))
	if me.ID != user.ID {
		t.Fatalf("expected %s, got %s", user.ID, me.ID)
	}
	mustFail(t, env.auth.Me(env.ctx, domain.Anonymous()), domain.KindUnauthenticated)
}
