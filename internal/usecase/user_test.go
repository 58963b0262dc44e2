package usecase

import (
	"fmt"
	"testing"

	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/core/domain"
)

func seedUsers(t *testing.T, env *testEnv, matching, other int) {
	t.Helper()
	for i := 0; i < matching; i++ {
		mustOk(t, env.users.Create(env.ctx, adminAuth(), CreateUserInput{
			FirstName: fmt.Sprintf("Match%02d", i),
			LastName:  "Smith",
			Email:     fmt.Sprintf("match%02d@shop.test", i),
			Password:  "long enough password",
		}))
	}
	for i := 0; i < other; i++ {
		mustOk(t, env.users.Create(env.ctx, adminAuth(), CreateUserInput{
			FirstName: fmt.Sprintf("Other%02d", i),
			LastName:  "Jones",
			Email:     fmt.Sprintf("other%02d@shop.test", i),
			Password:  "long enough password",
		}))
	}
}

func TestUserService_ListSearchSecondPage(t *testing.T) {
	env := newTestEnv(t)
	seedUsers(t, env, 25, 5)

	page := mustOk(t, env.users.List(env.ctx, adminAuth(), ListInput{Page: 2, Limit: 10, Search: "match"}))

	if len(page.Data) != 10 {
		t.Fatalf("expected 10 users, got %d", len(page.Data))
	}
	if page.TotalCount != 30 || page.FilterCount != 25 || page.TotalPages != 3 {
		t.Fatalf("unexpected counts %+v", page.QueryMetadata)
	}
	if !page.HasNextPage || !page.HasPreviousPage || page.FirstItemIndex != 11 || page.LastItemIndex != 20 {
		t.Fatalf("unexpected navigation %+v", page.QueryMetadata)
	}
	if *page.NextPage != 3 || *page.PreviousPage != 1 {
		t.Fatalf("unexpected neighbours %v %v", *page.NextPage, *page.PreviousPage)
	}
	for _, u := range page.Data {
		if u.PasswordHash != "" {
			t.Fatal("listed users must not carry password hashes")
		}
	}
}

func TestUserService_ListSortAndLimitCap(t *testing.T) {
	env := newTestEnv(t)
	seedUsers(t, env, 3, 0)

	page := mustOk(t, env.users.List(env.ctx, adminAuth(), ListInput{SortBy: "firstName", SortOrder: "desc", Limit: 1000}))
	if page.Limit != 100 {
		t.Fatalf("expected limit capped at 100, got %d", page.Limit)
	}
	if page.Data[0].FirstName != "Match02" || page.Data[2].FirstName != "Match00" {
		t.Fatalf("unexpected order %s..%s", page.Data[0].FirstName, page.Data[2].FirstName)
	}

	mustFail(t, env.users.List(env.ctx, adminAuth(), ListInput{Filters: map[string]string{"passwordHash": "x"}}), domain.KindValidationFailed)
	mustFail(t, env.users.List(env.ctx, adminAuth(), ListInput{SortOrder: "sideways"}), domain.KindValidationFailed)
}

func TestUserService_SelfServiceScope(t *testing.T) {
	env := newTestEnv(t)
	seedUsers(t, env, 2, 0)
	all := mustOk(t, env.users.List(env.ctx, adminAuth(), ListInput{SortBy: "firstName"}))
	me, other := all.Data[0], all.Data[1]
	auth := customerAuth(me.ID)

	mustOk(t, env.users.Get(env.ctx, auth, me.ID))
	mustFail(t, env.users.Get(env.ctx, auth, other.ID), domain.KindNotFound)

	name := "Renamed"
	updated := mustOk(t, env.users.Update(env.ctx, auth, UpdateUserInput{ID: me.ID, FirstName: &name}))
	if updated.FirstName != "Renamed" {
		t.Fatalf("expected rename, got %s", updated.FirstName)
	}
	active := false
	mustFail(t, env.users.Update(env.ctx, auth, UpdateUserInput{ID: me.ID, IsActive: &active}), domain.KindForbidden)
	mustFail(t, env.users.Update(env.ctx, auth, UpdateUserInput{ID: other.ID, FirstName: &name}), domain.KindNotFound)
	mustFail(t, env.users.Update(env.ctx, auth, UpdateUserInput{ID: me.ID}), domain.KindValidationFailed)

	page := mustOk(t, env.users.List(env.ctx, auth, ListInput{}))
	if page.FilterCount != 1 || page.Data[0].ID != me.ID {
		t.Fatalf("expected only self, got %+v", page.QueryMetadata)
	}
	mustFail(t, env.users.Delete(env.ctx, auth, other.ID), domain.KindForbidden)
}

func TestUserService_DeleteMissingIsNotFound(t *testing.T) {
	env := newTestEnv(t)
	mustFail(t, env.users.Delete(env.ctx, adminAuth(), "missing"), domain.KindNotFound)
}

func TestUserService_AssignRolesInvalidatesCache(t *testing.T) {
	env := newTestEnv(t)
	seedUsers(t, env, 1, 0)
	user := mustOk(t, env.users.List(env.ctx, adminAuth(), ListInput{})).Data[0]
	if err := env.cache.Set(env.ctx, user.ID, domain.DefaultCustomerPermissions, 0); err != nil {
		t.Fatalf("Set: %v", err)
	}

	mustFail(t, env.users.AssignRoles(env.ctx, adminAuth(), AssignRolesInput{UserID: user.ID, Roles: []string{"ghost"}}), domain.KindValidationFailed)

	updated := mustOk(t, env.users.AssignRoles(env.ctx, adminAuth(), AssignRolesInput{UserID: user.ID, Roles: []string{domain.RoleAdmin}}))
	if len(updated.Roles) != 1 || updated.Roles[0] != domain.RoleAdmin {
		t.Fatalf("unexpected roles %v", updated.Roles)
	}
	if _, cached, _ := env.cache.Get(env.ctx, user.ID); cached {
		t.Fatal("expected cached permissions to be dropped")
	}
}
