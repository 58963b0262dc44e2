package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/core/domain"
	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/core/port"
	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/repository"
)

// CreateUserInput is an administrative account creation.
type CreateUserInput struct {
	FirstName string          `json:"firstName" validate:"required,max=100"`
	LastName  string          `json:"lastName" validate:"required,max=100"`
	Email     string          `json:"email" validate:"required,email"`
	Phone     string          `json:"phone" validate:"omitempty,max=32"`
	Password  string          `json:"password" validate:"required,min=8,max=128"`
	Roles     []string        `json:"roles" validate:"omitempty,dive,required"`
	Address   *domain.Address `json:"address"`
}

// UpdateUserInput patches profile fields. Nil fields are left unchanged.
type UpdateUserInput struct {
	ID        string          `json:"id" validate:"required"`
	FirstName *string         `json:"firstName" validate:"omitempty,min=1,max=100"`
	LastName  *string         `json:"lastName" validate:"omitempty,min=1,max=100"`
	Phone     *string         `json:"phone" validate:"omitempty,max=32"`
	Address   *domain.Address `json:"address"`
	IsActive  *bool           `json:"isActive"`
}

// AssignRolesInput replaces a user's roles.
type AssignRolesInput struct {
	UserID string   `json:"userId" validate:"required"`
	Roles  []string `json:"roles" validate:"required,min=1,dive,required"`
}

// UserService manages accounts.
type UserService struct {
	exec     *Executor
	users    port.Repository[domain.User]
	resolver *PermissionResolver
	hasher   port.PasswordHasher
}

// NewUserService constructs a user service.
func NewUserService(exec *Executor, users port.Repository[domain.User], resolver *PermissionResolver, hasher port.PasswordHasher) *UserService {
	return &UserService{exec: exec, users: users, resolver: resolver, hasher: hasher}
}

// Create adds an account with the given roles, defaulting to customer.
func (s *UserService) Create(ctx context.Context, auth domain.AuthContext, in CreateUserInput) domain.Result[domain.User] {
	in.Email = normalizeEmail(in.Email)
	return Execute(ctx, s.exec, auth, in, Operation[CreateUserInput, domain.User]{
		Name:    "user.create",
		Require: permissionsFor(domain.ResourceUser, domain.ActionCreate),
		Created: true,
		Run: func(ctx context.Context, _ domain.AuthContext, in CreateUserInput) (domain.User, error) {
			roles := in.Roles
			if len(roles) == 0 {
				roles = []string{domain.RoleCustomer}
			}
			if err := s.checkRoles(ctx, roles); err != nil {
				return domain.User{}, err
			}
			hash, err := s.hasher.Hash(in.Password)
			if err != nil {
				return domain.User{}, fmt.Errorf("hash password: %w", err)
			}
			created, err := s.users.Create(ctx, &domain.User{
				FirstName:    in.FirstName,
				LastName:     in.LastName,
				Email:        in.Email,
				Phone:        in.Phone,
				PasswordHash: hash,
				Roles:        roles,
				IsActive:     true,
				Address:      in.Address,
			})
			if err != nil {
				if errors.Is(err, repository.ErrDuplicate) {
					return domain.User{}, domain.ConflictError("email already registered")
				}
				return domain.User{}, err
			}
			return created.Public(), nil
		},
	})
}

// Get returns one account. Callers holding only user:view_own see themselves.
func (s *UserService) Get(ctx context.Context, auth domain.AuthContext, id string) domain.Result[domain.User] {
	return Execute(ctx, s.exec, auth, IDInput{ID: id}, Operation[IDInput, domain.User]{
		Name:  "user.get",
		AnyOf: permissionsFor(domain.ResourceUser, domain.ActionView, domain.ActionViewOwn),
		Run: func(ctx context.Context, auth domain.AuthContext, in IDInput) (domain.User, error) {
			own := auth.OwnScope(domain.ResourceUser, domain.ActionView, domain.ActionViewOwn)
			user, err := findScoped(ctx, s.users, domain.ResourceUser, in.ID, func(u *domain.User) bool {
				return !own || u.ID == auth.UserID()
			})
			if err != nil {
				return domain.User{}, err
			}
			return user.Public(), nil
		},
	})
}

// List pages through accounts.
func (s *UserService) List(ctx context.Context, auth domain.AuthContext, in ListInput) domain.Result[domain.QueryResult[domain.User]] {
	return Execute(ctx, s.exec, auth, in, Operation[ListInput, domain.QueryResult[domain.User]]{
		Name:  "user.list",
		AnyOf: permissionsFor(domain.ResourceUser, domain.ActionView, domain.ActionViewOwn),
		Run: func(ctx context.Context, auth domain.AuthContext, in ListInput) (domain.QueryResult[domain.User], error) {
			scope := ownerScope(auth, domain.ResourceUser, domain.ActionView, domain.ActionViewOwn, repository.UserDescriptor.OwnerField)
			q, err := buildQuery(repository.UserDescriptor, in, scope)
			if err != nil {
				return domain.QueryResult[domain.User]{}, err
			}
			page, err := s.users.Query(ctx, q)
			if err != nil {
				return domain.QueryResult[domain.User]{}, err
			}
			for i := range page.Data {
				page.Data[i] = page.Data[i].Public()
			}
			return *page, nil
		},
	})
}

// Update patches profile fields. Callers holding only user:update_own may edit
// themselves but not their active flag.
func (s *UserService) Update(ctx context.Context, auth domain.AuthContext, in UpdateUserInput) domain.Result[domain.User] {
	return Execute(ctx, s.exec, auth, in, Operation[UpdateUserInput, domain.User]{
		Name:  "user.update",
		AnyOf: permissionsFor(domain.ResourceUser, domain.ActionUpdate, domain.ActionUpdateOwn),
		Validate: func(in UpdateUserInput) error {
			return requireChange(in.FirstName != nil, in.LastName != nil, in.Phone != nil,
				in.Address != nil, in.IsActive != nil)
		},
		Run: func(ctx context.Context, auth domain.AuthContext, in UpdateUserInput) (domain.User, error) {
			own := auth.OwnScope(domain.ResourceUser, domain.ActionUpdate, domain.ActionUpdateOwn)
			if own && in.ID != auth.UserID() {
				return domain.User{}, notFound(domain.ResourceUser, in.ID)
			}
			if own && in.IsActive != nil {
				return domain.User{}, domain.NewError(domain.KindForbidden, "missing permission user:update")
			}

			patch := domain.Patch{}
			if in.FirstName != nil {
				patch["firstName"] = strings.TrimSpace(*in.FirstName)
			}
			if in.LastName != nil {
				patch["lastName"] = strings.TrimSpace(*in.LastName)
			}
			setIf(patch, "phone", in.Phone)
			setIf(patch, "address", in.Address)
			setIf(patch, "isActive", in.IsActive)

			updated, err := s.users.Update(ctx, in.ID, patch)
			if err != nil {
				return domain.User{}, err
			}
			if updated == nil {
				return domain.User{}, notFound(domain.ResourceUser, in.ID)
			}
			return updated.Public(), nil
		},
	})
}

// Delete removes an account.
func (s *UserService) Delete(ctx context.Context, auth domain.AuthContext, id string) domain.Result[Deleted] {
	return Execute(ctx, s.exec, auth, IDInput{ID: id}, Operation[IDInput, Deleted]{
		Name:    "user.delete",
		Require: permissionsFor(domain.ResourceUser, domain.ActionDelete),
		Run: func(ctx context.Context, _ domain.AuthContext, in IDInput) (Deleted, error) {
			ok, err := s.users.Delete(ctx, in.ID)
			if err != nil {
				return Deleted{}, err
			}
			if !ok {
				return Deleted{}, notFound(domain.ResourceUser, in.ID)
			}
			s.resolver.Invalidate(ctx, in.ID)
			return Deleted{ID: in.ID, Deleted: true}, nil
		},
	})
}

// AssignRoles replaces the roles of a user and drops their cached permissions.
func (s *UserService) AssignRoles(ctx context.Context, auth domain.AuthContext, in AssignRolesInput) domain.Result[domain.User] {
	return Execute(ctx, s.exec, auth, in, Operation[AssignRolesInput, domain.User]{
		Name:    "user.assign_roles",
		Require: permissionsFor(domain.ResourceUser, domain.ActionManage),
		Run: func(ctx context.Context, _ domain.AuthContext, in AssignRolesInput) (domain.User, error) {
			if err := s.checkRoles(ctx, in.Roles); err != nil {
				return domain.User{}, err
			}
			updated, err := s.users.Update(ctx, in.UserID, domain.Patch{"roles": in.Roles})
			if err != nil {
				return domain.User{}, err
			}
			if updated == nil {
				return domain.User{}, notFound(domain.ResourceUser, in.UserID)
			}
			s.resolver.Invalidate(ctx, in.UserID)
			return updated.Public(), nil
		},
	})
}

func (s *UserService) checkRoles(ctx context.Context, roles []string) error {
	missing, err := s.resolver.MissingRoles(ctx, roles)
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		return domain.ValidationError("unknown roles: %s", strings.Join(missing, ", "))
	}
	return nil
}
