package usecase

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/core/domain"
	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/core/port"
	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/repository"
)

// CreateVendorInput opens a store for the caller.
type CreateVendorInput struct {
	StoreName   string `json:"storeName" validate:"required,min=2,max=120"`
	Description string `json:"description" validate:"max=2000"`
	Email       string `json:"email" validate:"omitempty,email"`
	Phone       string `json:"phone" validate:"omitempty,max=32"`
	Logo        string `json:"logo" validate:"omitempty,url"`
}

// UpdateVendorInput patches store details. Nil fields are left unchanged.
type UpdateVendorInput struct {
	ID          string  `json:"id" validate:"required"`
	StoreName   *string `json:"storeName" validate:"omitempty,min=2,max=120"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
	Email       *string `json:"email" validate:"omitempty,email"`
	Phone       *string `json:"phone" validate:"omitempty,max=32"`
	Logo        *string `json:"logo" validate:"omitempty,url"`
	IsActive    *bool   `json:"isActive"`
}

// VerifyVendorInput sets the verification flag of a store.
type VerifyVendorInput struct {
	ID       string `json:"id" validate:"required"`
	Verified bool   `json:"verified"`
}

// VendorService manages stores.
type VendorService struct {
	exec     *Executor
	vendors  port.Repository[domain.Vendor]
	users    port.Repository[domain.User]
	tx       port.TxRunner
	resolver *PermissionResolver
}

// NewVendorService constructs a vendor service. tx makes opening a store and
// granting the owner's vendor role one write.
func NewVendorService(exec *Executor, vendors port.Repository[domain.Vendor], users port.Repository[domain.User], tx port.TxRunner, resolver *PermissionResolver) *VendorService {
	return &VendorService{exec: exec, vendors: vendors, users: users, tx: tx, resolver: resolver}
}

// Create opens a store owned by the caller and grants them the vendor role.
func (s *VendorService) Create(ctx context.Context, auth domain.AuthContext, in CreateVendorInput) domain.Result[domain.Vendor] {
	return Execute(ctx, s.exec, auth, in, Operation[CreateVendorInput, domain.Vendor]{
		Name:    "vendor.create",
		Require: permissionsFor(domain.ResourceVendor, domain.ActionCreate),
		Created: true,
		Run: func(ctx context.Context, auth domain.AuthContext, in CreateVendorInput) (domain.Vendor, error) {
			var (
				created *domain.Vendor
				granted bool
			)
			err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
				existing, err := s.vendors.FindOne(ctx, domain.Eq{Field: "userId", Value: auth.UserID()})
				if err != nil {
					return err
				}
				if existing != nil {
					return domain.ConflictError("user already owns store %s", existing.VendID)
				}

				created, err = s.vendors.Create(ctx, &domain.Vendor{
					UserID:      auth.UserID(),
					StoreName:   in.StoreName,
					Description: in.Description,
					Email:       in.Email,
					Phone:       in.Phone,
					Logo:        in.Logo,
					IsActive:    true,
				})
				if err != nil {
					if errors.Is(err, repository.ErrDuplicate) {
						return domain.ConflictError("store name %q is taken", in.StoreName)
					}
					return err
				}

				granted, err = s.grantVendorRole(ctx, auth.UserID())
				return err
			})
			if err != nil {
				return domain.Vendor{}, err
			}
			if granted {
				s.resolver.Invalidate(ctx, auth.UserID())
			}
			return *created, nil
		},
	})
}

// Get returns one store.
func (s *VendorService) Get(ctx context.Context, auth domain.AuthContext, id string) domain.Result[domain.Vendor] {
	return Execute(ctx, s.exec, auth, IDInput{ID: id}, Operation[IDInput, domain.Vendor]{
		Name:    "vendor.get",
		Require: permissionsFor(domain.ResourceVendor, domain.ActionView),
		Run: func(ctx context.Context, _ domain.AuthContext, in IDInput) (domain.Vendor, error) {
			vendor, err := findScoped(ctx, s.vendors, domain.ResourceVendor, in.ID, nil)
			if err != nil {
				return domain.Vendor{}, err
			}
			return *vendor, nil
		},
	})
}

// List pages through stores.
func (s *VendorService) List(ctx context.Context, auth domain.AuthContext, in ListInput) domain.Result[domain.QueryResult[domain.Vendor]] {
	return Execute(ctx, s.exec, auth, in, Operation[ListInput, domain.QueryResult[domain.Vendor]]{
		Name:    "vendor.list",
		Require: permissionsFor(domain.ResourceVendor, domain.ActionView),
		Run: func(ctx context.Context, _ domain.AuthContext, in ListInput) (domain.QueryResult[domain.Vendor], error) {
			q, err := buildQuery(repository.VendorDescriptor, in, nil)
			if err != nil {
				return domain.QueryResult[domain.Vendor]{}, err
			}
			page, err := s.vendors.Query(ctx, q)
			if err != nil {
				return domain.QueryResult[domain.Vendor]{}, err
			}
			return *page, nil
		},
	})
}

// Update patches store details. Owners holding vendor:update_own may edit their own store.
func (s *VendorService) Update(ctx context.Context, auth domain.AuthContext, in UpdateVendorInput) domain.Result[domain.Vendor] {
	return Execute(ctx, s.exec, auth, in, Operation[UpdateVendorInput, domain.Vendor]{
		Name:  "vendor.update",
		AnyOf: permissionsFor(domain.ResourceVendor, domain.ActionUpdate, domain.ActionUpdateOwn),
		Validate: func(in UpdateVendorInput) error {
			return requireChange(in.StoreName != nil, in.Description != nil, in.Email != nil,
				in.Phone != nil, in.Logo != nil, in.IsActive != nil)
		},
		Run: func(ctx context.Context, auth domain.AuthContext, in UpdateVendorInput) (domain.Vendor, error) {
			own := auth.OwnScope(domain.ResourceVendor, domain.ActionUpdate, domain.ActionUpdateOwn)
			if _, err := findScoped(ctx, s.vendors, domain.ResourceVendor, in.ID, func(v *domain.Vendor) bool {
				return !own || v.UserID == auth.UserID()
			}); err != nil {
				return domain.Vendor{}, err
			}

			patch := domain.Patch{}
			setIf(patch, "storeName", in.StoreName)
			setIf(patch, "description", in.Description)
			setIf(patch, "email", in.Email)
			setIf(patch, "phone", in.Phone)
			setIf(patch, "logo", in.Logo)
			setIf(patch, "isActive", in.IsActive)

			updated, err := s.vendors.Update(ctx, in.ID, patch)
			if err != nil {
				if errors.Is(err, repository.ErrDuplicate) {
					return domain.Vendor{}, domain.ConflictError("store name is taken")
				}
				return domain.Vendor{}, err
			}
			if updated == nil {
				return domain.Vendor{}, notFound(domain.ResourceVendor, in.ID)
			}
			return *updated, nil
		},
	})
}

// Verify marks a store as verified or unverified.
func (s *VendorService) Verify(ctx context.Context, auth domain.AuthContext, in VerifyVendorInput) domain.Result[domain.Vendor] {
	return Execute(ctx, s.exec, auth, in, Operation[VerifyVendorInput, domain.Vendor]{
		Name:    "vendor.verify",
		Require: permissionsFor(domain.ResourceVendor, domain.ActionManage),
		Run: func(ctx context.Context, _ domain.AuthContext, in VerifyVendorInput) (domain.Vendor, error) {
			updated, err := s.vendors.Update(ctx, in.ID, domain.Patch{"isVerified": in.Verified})
			if err != nil {
				return domain.Vendor{}, err
			}
			if updated == nil {
				return domain.Vendor{}, notFound(domain.ResourceVendor, in.ID)
			}
			return *updated, nil
		},
	})
}

// Delete removes a store.
func (s *VendorService) Delete(ctx context.Context, auth domain.AuthContext, id string) domain.Result[Deleted] {
	return Execute(ctx, s.exec, auth, IDInput{ID: id}, Operation[IDInput, Deleted]{
		Name:    "vendor.delete",
		Require: permissionsFor(domain.ResourceVendor, domain.ActionDelete),
		Run: func(ctx context.Context, _ domain.AuthContext, in IDInput) (Deleted, error) {
			ok, err := s.vendors.Delete(ctx, in.ID)
			if err != nil {
				return Deleted{}, err
			}
			if !ok {
				return Deleted{}, notFound(domain.ResourceVendor, in.ID)
			}
			return Deleted{ID: in.ID, Deleted: true}, nil
		},
	})
}

// OwnedBy returns the store of userID, or nil.
func (s *VendorService) OwnedBy(ctx context.Context, userID string) (*domain.Vendor, error) {
	return s.vendors.FindOne(ctx, domain.Eq{Field: "userId", Value: userID})
}

// grantVendorRole adds the vendor role to userID and reports whether it changed.
func (s *VendorService) grantVendorRole(ctx context.Context, userID string) (bool, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("load store owner: %w", err)
	}
	if user == nil || slices.Contains(user.Roles, domain.RoleVendor) {
		return false, nil
	}
	roles := append(slices.Clone(user.Roles), domain.RoleVendor)
	if _, err := s.users.Update(ctx, userID, domain.Patch{"roles": roles}); err != nil {
		return false, fmt.Errorf("grant vendor role: %w", err)
	}
	return true, nil
}
