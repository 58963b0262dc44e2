package domain

import "slices"

const (
	// RoleCustomer is assigned on self-registration.
	RoleCustomer = "customer"
	// RoleVendor is assigned when a user opens a store.
	RoleVendor = "vendor"
	// RoleAdmin holds every resource wildcard.
	RoleAdmin = "admin"
)

// Role groups permissions under a unique name.
type Role struct {
	Document
	Name        string       `json:"name" validate:"required,min=2,max=64"`
	Description string       `json:"description,omitempty"`
	Permissions []Permission `json:"permissions"`
}

// ResolvePermissions unions the permissions of roles without duplicates.
func ResolvePermissions(roles []Role) []Permission {
	seen := make(map[Permission]struct{})
	out := make([]Permission, 0)
	for _, r := range roles {
		for _, p := range r.Permissions {
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}
	return out
}

// AuthContext is the verified identity attached to a request. The zero value is anonymous.
type AuthContext struct {
	userID      string
	email       string
	roles       []string
	permissions []Permission
}

// NewAuthContext builds an authenticated context. The slices are copied.
func NewAuthContext(userID, email string, roles []string, permissions []Permission) AuthContext {
	return AuthContext{
		userID:      userID,
		email:       email,
		roles:       slices.Clone(roles),
		permissions: slices.Clone(permissions),
	}
}

// Anonymous returns the unauthenticated context.
func Anonymous() AuthContext { return AuthContext{} }

// IsAuthenticated reports whether a user id is present.
func (a AuthContext) IsAuthenticated() bool { return a.userID != "" }

func (a AuthContext) UserID() string { return a.userID }

func (a AuthContext) Email() string { return a.email }

// Roles returns a copy of the caller's role names.
func (a AuthContext) Roles() []string { return slices.Clone(a.roles) }

// Permissions returns a copy of the caller's permissions.
func (a AuthContext) Permissions() []Permission { return slices.Clone(a.permissions) }

// Can reports whether the caller holds p.
func (a AuthContext) Can(p Permission) bool { return Grants(a.permissions, p) }

// WithPermissions returns a copy whose permission set is replaced.
func (a AuthContext) WithPermissions(permissions []Permission) AuthContext {
	return NewAuthContext(a.userID, a.email, a.roles, permissions)
}

// OwnScope reports whether the caller may act on resource only for owned records:
// it holds the action's _own variant but neither the full action nor the wildcard.
func (a AuthContext) OwnScope(resource Resource, full, own Action) bool {
	if a.Can(GetPermission(resource, full)) {
		return false
	}
	return a.Can(GetPermission(resource, own))
}
