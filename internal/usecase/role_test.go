package usecase

import (
	"testing"

	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/core/domain"
)

func TestPermissionResolver_SeedRolesIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	if err := env.resolver.SeedRoles(env.ctx); err != nil {
		t.Fatalf("SeedRoles: %v", err)
	}
	count, err := env.repos.Roles.Count(env.ctx, nil)
	if err != nil || count != int64(len(BuiltinRoles)) {
		t.Fatalf("expected %d roles, got %d (%v)", len(BuiltinRoles), count, err)
	}

	perms, err := env.resolver.ResolveRoles(env.ctx, []string{domain.RoleCustomer, domain.RoleVendor, "unknown"})
	if err != nil {
		t.Fatalf("ResolveRoles: %v", err)
	}
	want := len(domain.DefaultCustomerPermissions) + len(domain.DefaultVendorPermissions)
	if len(perms) != want {
		t.Fatalf("expected %d permissions, got %d", want, len(perms))
	}
}

func TestRoleService_CRUD(t *testing.T) {
	env := newTestEnv(t)
	admin := adminAuth()

	mustFail(t, env.roles.Create(env.ctx, admin, CreateRoleInput{Name: "support", Permissions: []string{"order:fly"}}), domain.KindValidationFailed)

	role := mustOk(t, env.roles.Create(env.ctx, admin, CreateRoleInput{Name: "support", Permissions: []string{"order:view", " user:view "}}))
	if len(role.Permissions) != 2 || role.Permissions[1] != "user:view" {
		t.Fatalf("unexpected permissions %v", role.Permissions)
	}
	mustFail(t, env.roles.Create(env.ctx, admin, CreateRoleInput{Name: "support"}), domain.KindConflict)

	updated := mustOk(t, env.roles.Update(env.ctx, admin, UpdateRoleInput{ID: role.ID, Permissions: []string{"order:*"}}))
	if len(updated.Permissions) != 1 || updated.Permissions[0] != "order:*" {
		t.Fatalf("unexpected permissions %v", updated.Permissions)
	}
	if n := len(env.cache.invalidated); n == 0 || len(env.cache.invalidated[n-1]) != 0 {
		t.Fatalf("expected a full cache invalidation, got %v", env.cache.invalidated)
	}
	if len(env.events.roles) != 1 || env.events.roles[0].Name != "support" {
		t.Fatalf("expected a role updated event, got %+v", env.events.roles)
	}

	mustOk(t, env.roles.Delete(env.ctx, admin, role.ID))
	mustFail(t, env.roles.Get(env.ctx, admin, role.ID), domain.KindNotFound)
}

func TestRoleService_BuiltinRolesCannotBeDeleted(t *testing.T) {
	env := newTestEnv(t)
	customer, err := env.repos.Roles.FindOne(env.ctx, domain.Eq{Field: "name", Value: domain.RoleCustomer})
	if err != nil || customer == nil {
		t.Fatalf("load customer role: %v", err)
	}
	f := mustFail(t, env.roles.Delete(env.ctx, adminAuth(), customer.ID), domain.KindConflict)
	if f.Message != "built-in role customer cannot be deleted" {
		t.Fatalf("unexpected message %q", f.Message)
	}
	mustFail(t, env.roles.Delete(env.ctx, customerAuth("u1"), customer.ID), domain.KindForbidden)
}
