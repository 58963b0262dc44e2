package usecase

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/core/domain"
	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/core/port"
	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/repository"
)

// CreateRoleInput defines a new role.
type CreateRoleInput struct {
	Name        string   `json:"name" validate:"required,min=2,max=64"`
	Description string   `json:"description" validate:"max=500"`
	Permissions []string `json:"permissions" validate:"omitempty,dive,required"`
}

// UpdateRoleInput patches a role. A nil Permissions leaves the set unchanged.
type UpdateRoleInput struct {
	ID          string   `json:"id" validate:"required"`
	Description *string  `json:"description" validate:"omitempty,max=500"`
	Permissions []string `json:"permissions" validate:"omitempty,dive,required"`
}

// RoleService manages roles and their permission sets.
type RoleService struct {
	exec     *Executor
	roles    port.Repository[domain.Role]
	resolver *PermissionResolver
	events   port.EventPublisher
}

// NewRoleService constructs a role service.
func NewRoleService(exec *Executor, roles port.Repository[domain.Role], resolver *PermissionResolver, events port.EventPublisher) *RoleService {
	return &RoleService{exec: exec, roles: roles, resolver: resolver, events: eventsOrDiscard(events)}
}

// Create stores a role.
func (s *RoleService) Create(ctx context.Context, auth domain.AuthContext, in CreateRoleInput) domain.Result[domain.Role] {
	var perms []domain.Permission
	return Execute(ctx, s.exec, auth, in, Operation[CreateRoleInput, domain.Role]{
		Name:    "role.create",
		Require: permissionsFor(domain.ResourceRole, domain.ActionCreate),
		Created: true,
		Validate: func(in CreateRoleInput) error {
			var err error
			perms, err = domain.ParsePermissions(in.Permissions)
			return err
		},
		Run: func(ctx context.Context, _ domain.AuthContext, in CreateRoleInput) (domain.Role, error) {
			created, err := s.roles.Create(ctx, &domain.Role{Name: in.Name, Description: in.Description, Permissions: perms})
			if err != nil {
				if errors.Is(err, repository.ErrDuplicate) {
					return domain.Role{}, domain.ConflictError("role %q already exists", in.Name)
				}
				return domain.Role{}, err
			}
			return *created, nil
		},
	})
}

// Get returns one role.
func (s *RoleService) Get(ctx context.Context, auth domain.AuthContext, id string) domain.Result[domain.Role] {
	return Execute(ctx, s.exec, auth, IDInput{ID: id}, Operation[IDInput, domain.Role]{
		Name:    "role.get",
		Require: permissionsFor(domain.ResourceRole, domain.ActionView),
		Run: func(ctx context.Context, _ domain.AuthContext, in IDInput) (domain.Role, error) {
			role, err := findScoped(ctx, s.roles, domain.ResourceRole, in.ID, nil)
			if err != nil {
				return domain.Role{}, err
			}
			return *role, nil
		},
	})
}

// List pages through roles.
func (s *RoleService) List(ctx context.Context, auth domain.AuthContext, in ListInput) domain.Result[domain.QueryResult[domain.Role]] {
	return Execute(ctx, s.exec, auth, in, Operation[ListInput, domain.QueryResult[domain.Role]]{
		Name:    "role.list",
		Require: permissionsFor(domain.ResourceRole, domain.ActionView),
		Run: func(ctx context.Context, _ domain.AuthContext, in ListInput) (domain.QueryResult[domain.Role], error) {
			q, err := buildQuery(repository.RoleDescriptor, in, nil)
			if err != nil {
				return domain.QueryResult[domain.Role]{}, err
			}
			page, err := s.roles.Query(ctx, q)
			if err != nil {
				return domain.QueryResult[domain.Role]{}, err
			}
			return *page, nil
		},
	})
}

// Update patches a role and drops every cached permission set so holders pick
// up the change on their next request.
func (s *RoleService) Update(ctx context.Context, auth domain.AuthContext, in UpdateRoleInput) domain.Result[domain.Role] {
	var perms []domain.Permission
	return Execute(ctx, s.exec, auth, in, Operation[UpdateRoleInput, domain.Role]{
		Name:    "role.update",
		Require: permissionsFor(domain.ResourceRole, domain.ActionUpdate),
		Validate: func(in UpdateRoleInput) error {
			if in.Permissions == nil {
				return nil
			}
			var err error
			perms, err = domain.ParsePermissions(in.Permissions)
			return err
		},
		Run: func(ctx context.Context, auth domain.AuthContext, in UpdateRoleInput) (domain.Role, error) {
			patch := domain.Patch{}
			setIf(patch, "description", in.Description)
			if in.Permissions != nil {
				patch["permissions"] = perms
			}
			updated, err := s.roles.Update(ctx, in.ID, patch)
			if err != nil {
				return domain.Role{}, err
			}
			if updated == nil {
				return domain.Role{}, notFound(domain.ResourceRole, in.ID)
			}

			s.resolver.Invalidate(ctx)
			s.exec.publish(ctx, "role.updated", func(ctx context.Context) error {
				return s.events.PublishRoleUpdated(ctx, domain.RoleUpdatedEvent{
					EventID:     uuid.NewString(),
					RoleID:      updated.ID,
					Name:        updated.Name,
					Permissions: updated.Permissions,
					UpdatedBy:   auth.UserID(),
					UpdatedAt:   updated.UpdatedAt,
				})
			})
			return *updated, nil
		},
	})
}

// Delete removes a custom role. Built-in roles cannot be deleted.
func (s *RoleService) Delete(ctx context.Context, auth domain.AuthContext, id string) domain.Result[Deleted] {
	return Execute(ctx, s.exec, auth, IDInput{ID: id}, Operation[IDInput, Deleted]{
		Name:    "role.delete",
		Require: permissionsFor(domain.ResourceRole, domain.ActionDelete),
		Run: func(ctx context.Context, _ domain.AuthContext, in IDInput) (Deleted, error) {
			role, err := findScoped(ctx, s.roles, domain.ResourceRole, in.ID, nil)
			if err != nil {
				return Deleted{}, err
			}
			if IsBuiltinRole(role.Name) {
				return Deleted{}, domain.ConflictError("built-in role %s cannot be deleted", role.Name)
			}
			ok, err := s.roles.Delete(ctx, in.ID)
			if err != nil {
				return Deleted{}, err
			}
			if !ok {
				return Deleted{}, notFound(domain.ResourceRole, in.ID)
			}
			s.resolver.Invalidate(ctx)
			return Deleted{ID: in.ID, Deleted: true}, nil
		},
	})
}
