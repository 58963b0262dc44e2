package usecase

import (
	"context"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/core/domain"
	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/core/port"
)

// BuiltinRoles are seeded on startup and cannot be deleted.
var BuiltinRoles = []domain.Role{
	{Name: domain.RoleCustomer, Description: "Self-registered shopper", Permissions: domain.DefaultCustomerPermissions},
	{Name: domain.RoleVendor, Description: "Store owner", Permissions: domain.DefaultVendorPermissions},
	{Name: domain.RoleAdmin, Description: "Platform administrator", Permissions: domain.AdminPermissions()},
}

// IsBuiltinRole reports whether name is one of the seeded roles.
func IsBuiltinRole(name string) bool {
	return slices.ContainsFunc(BuiltinRoles, func(r domain.Role) bool { return r.Name == name })
}

// PermissionResolver maps role names to permission sets, optionally caching the
// result per user. Cached sets expire after ttl, which bounds how long a role
// change takes to reach existing sessions.
type PermissionResolver struct {
	roles  port.Repository[domain.Role]
	users  port.Repository[domain.User]
	cache  port.PermissionCache
	ttl    time.Duration
	logger *zap.Logger
}

// NewPermissionResolver constructs a resolver. users supplies the stored roles
// of a user on a cache miss and may be nil. cache may be nil, or ttl zero, to
// disable caching.
func NewPermissionResolver(roles port.Repository[domain.Role], users port.Repository[domain.User], cache port.PermissionCache, ttl time.Duration, logger *zap.Logger) *PermissionResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PermissionResolver{roles: roles, users: users, cache: cache, ttl: ttl, logger: logger}
}

// Caching reports whether resolved sets are cached.
func (r *PermissionResolver) Caching() bool {
	return r.cache != nil && r.ttl > 0
}

// ResolveRoles loads the named roles and unions their permissions. Unknown names
// contribute nothing.
func (r *PermissionResolver) ResolveRoles(ctx context.Context, names []string) ([]domain.Permission, error) {
	roles, err := r.findRoles(ctx, names)
	if err != nil {
		return nil, err
	}
	return domain.ResolvePermissions(roles), nil
}

// ForUser resolves the permissions of userID, consulting the cache first. On a
// miss the user's stored roles are resolved; claimed, usually the roles in the
// access token, is used when the user cannot be loaded.
func (r *PermissionResolver) ForUser(ctx context.Context, userID string, claimed []string) ([]domain.Permission, error) {
	if r.Caching() {
		cached, ok, err := r.cache.Get(ctx, userID)
		if err != nil {
			r.logger.Warn("permission cache read failed", zap.String("user_id", userID), zap.Error(err))
		} else if ok {
			return cached, nil
		}
	}

	perms, err := r.ResolveRoles(ctx, r.currentRoles(ctx, userID, claimed))
	if err != nil {
		return nil, err
	}

	if r.Caching() {
		if err := r.cache.Set(ctx, userID, perms, r.ttl); err != nil {
			r.logger.Warn("permission cache write failed", zap.String("user_id", userID), zap.Error(err))
		}
	}
	return perms, nil
}

func (r *PermissionResolver) currentRoles(ctx context.Context, userID string, claimed []string) []string {
	if r.users == nil {
		return claimed
	}
	user, err := r.users.FindByID(ctx, userID)
	if err != nil {
		r.logger.Warn("load user roles failed, using token roles", zap.String("user_id", userID), zap.Error(err))
		return claimed
	}
	if user == nil {
		return claimed
	}
	return user.Roles
}

// Invalidate drops cached sets for userIDs, or for every user when none are given.
func (r *PermissionResolver) Invalidate(ctx context.Context, userIDs ...string) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Invalidate(ctx, userIDs...); err != nil {
		r.logger.Warn("permission cache invalidation failed", zap.Strings("user_ids", userIDs), zap.Error(err))
	}
}

// MissingRoles returns the names that do not match a stored role.
func (r *PermissionResolver) MissingRoles(ctx context.Context, names []string) ([]string, error) {
	roles, err := r.findRoles(ctx, names)
	if err != nil {
		return nil, err
	}
	var missing []string
	for _, name := range names {
		if !slices.ContainsFunc(roles, func(role domain.Role) bool { return role.Name == name }) {
			missing = append(missing, name)
		}
	}
	return missing, nil
}

// SeedRoles creates any missing built-in role.
func (r *PermissionResolver) SeedRoles(ctx context.Context) error {
	for _, builtin := range BuiltinRoles {
		existing, err := r.roles.FindOne(ctx, domain.Eq{Field: "name", Value: builtin.Name})
		if err != nil {
			return fmt.Errorf("lookup role %s: %w", builtin.Name, err)
		}
		if existing != nil {
			continue
		}
		role := builtin
		role.Permissions = slices.Clone(builtin.Permissions)
		if _, err := r.roles.Create(ctx, &role); err != nil {
			return fmt.Errorf("seed role %s: %w", builtin.Name, err)
		}
		r.logger.Info("seeded role", zap.String("role", builtin.Name))
	}
	return nil
}

func (r *PermissionResolver) findRoles(ctx context.Context, names []string) ([]domain.Role, error) {
	if len(names) == 0 {
		return nil, nil
	}
	values := make([]any, 0, len(names))
	for _, n := range names {
		values = append(values, n)
	}
	page, err := r.roles.Query(ctx, domain.QueryFilters{
		Page:   1,
		Limit:  domain.MaxLimit,
		Filter: domain.In{Field: "name", Values: values},
	})
	if err != nil {
		return nil, fmt.Errorf("load roles: %w", err)
	}
	return page.Data, nil
}
