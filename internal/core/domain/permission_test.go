package domain

import "testing"

func TestHasRequiredPermissions(t *testing.T) {
	tests := []struct {
		name     string
		required []Permission
		held     []Permission
		want     bool
	}{
		{name: "wildcard covers own view", required: []Permission{"order:view_own"}, held: []Permission{"order:*"}, want: true},
		{name: "own view does not cover delete", required: []Permission{"order:delete"}, held: []Permission{"order:view_own"}, want: false},
		{name: "direct match", required: []Permission{"product:create"}, held: []Permission{"product:create"}, want: true},
		{name: "all required", required: []Permission{"product:create", "product:delete"}, held: []Permission{"product:create"}, want: false},
		{name: "wildcard of another resource", required: []Permission{"order:view"}, held: []Permission{"product:*"}, want: false},
		{name: "empty requirement", required: nil, held: nil, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HasRequiredPermissions(tt.required, tt.held); got != tt.want {
				t.Fatalf("HasRequiredPermissions = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHasAnyPermission(t *testing.T) {
	held := []Permission{"order:view_own"}
	if !HasAnyPermission([]Permission{"order:view", "order:view_own"}, held) {
		t.Fatalf("expected own view to satisfy any-of")
	}
	if HasAnyPermission([]Permission{"order:view"}, held) {
		t.Fatalf("unexpected grant")
	}
}

func TestParsePermission(t *testing.T) {
	p, err := ParsePermission(" payment_method:delete ")
	if err != nil {
		t.Fatalf("ParsePermission: %v", err)
	}
	if p.Resource() != ResourcePaymentMethod || p.Action() != ActionDelete {
		t.Fatalf("unexpected parts %q %q", p.Resource(), p.Action())
	}
	for _, raw := range []string{"order", "cart:view", "order:fly", ":view"} {
		if _, err := ParsePermission(raw); err == nil {
			t.Fatalf("expected %q to be rejected", raw)
		}
	}
}

func TestAuthContextIsImmutable(t *testing.T) {
	roles := []string{"customer"}
	perms := []Permission{"order:view_own"}
	auth := NewAuthContext("u1", "a@b.com", roles, perms)
	roles[0] = "admin"
	perms[0] = "order:*"
	if auth.Roles()[0] != "customer" || auth.Permissions()[0] != "order:view_own" {
		t.Fatalf("auth context aliased caller slices")
	}
	got := auth.Permissions()
	got[0] = "order:*"
	if auth.Can("order:delete") {
		t.Fatalf("accessor leaked internal slice")
	}
}

func TestAuthContextOwnScope(t *testing.T) {
	own := NewAuthContext("u1", "", nil, []Permission{"order:view_own"})
	if !own.OwnScope(ResourceOrder, ActionView, ActionViewOwn) {
		t.Fatalf("expected own scope")
	}
	full := NewAuthContext("u1", "", nil, []Permission{"order:*"})
	if full.OwnScope(ResourceOrder, ActionView, ActionViewOwn) {
		t.Fatalf("wildcard holder should not be own-scoped")
	}
	if Anonymous().IsAuthenticated() {
		t.Fatalf("anonymous context reported authenticated")
	}
}

func TestResolvePermissionsDeduplicates(t *testing.T) {
	roles := []Role{
		{Name: "a", Permissions: []Permission{"order:view", "order:create"}},
		{Name: "b", Permissions: []Permission{"order:create", "product:*"}},
	}
	got := ResolvePermissions(roles)
	if len(got) != 3 {
		t.Fatalf("expected 3 unique permissions, got %v", got)
	}
}
