package usecase

import (
	"context"
	"fmt"
	"io"
	"path"
	"slices"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/core/domain"
	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/core/port"
	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/repository"
)

// MaxImageSize bounds product image uploads.
const MaxImageSize = 5 << 20

// CreateProductInput adds a product to a store. VendorID is honoured only for
// callers holding product:manage; everyone else sells from their own store.
type CreateProductInput struct {
	VendorID    string   `json:"vendorId"`
	Name        string   `json:"name" validate:"required,min=2,max=200"`
	Description string   `json:"description" validate:"max=5000"`
	Category    string   `json:"category" validate:"max=100"`
	Price       int64    `json:"price" validate:"gte=0"`
	Currency    string   `json:"currency" validate:"required,len=3"`
	Stock       int      `json:"stock" validate:"gte=0"`
	Images      []string `json:"images" validate:"omitempty,dive,url"`
}

// UpdateProductInput patches a product. Nil fields are left unchanged.
type UpdateProductInput struct {
	ID          string  `json:"id" validate:"required"`
	Name        *string `json:"name" validate:"omitempty,min=2,max=200"`
	Description *string `json:"description" validate:"omitempty,max=5000"`
	Category    *string `json:"category" validate:"omitempty,max=100"`
	Price       *int64  `json:"price" validate:"omitempty,gte=0"`
	Currency    *string `json:"currency" validate:"omitempty,len=3"`
	Stock       *int    `json:"stock" validate:"omitempty,gte=0"`
	IsActive    *bool   `json:"isActive"`
}

// AttachImageInput uploads one product image.
type AttachImageInput struct {
	ProductID   string    `json:"productId" validate:"required"`
	Filename    string    `json:"filename" validate:"required,max=255"`
	ContentType string    `json:"contentType" validate:"required,oneof=image/jpeg image/png image/webp image/gif"`
	Size        int64     `json:"size" validate:"gt=0,lte=5242880"`
	Body        io.Reader `json:"-" validate:"required"`
}

// ProductService manages the catalogue.
type ProductService struct {
	exec     *Executor
	products port.Repository[domain.Product]
	vendors  port.Repository[domain.Vendor]
	storage  port.ObjectStorage
}

// NewProductService constructs a product service. storage may be nil when uploads are disabled.
func NewProductService(exec *Executor, products port.Repository[domain.Product], vendors port.Repository[domain.Vendor], storage port.ObjectStorage) *ProductService {
	return &ProductService{exec: exec, products: products, vendors: vendors, storage: storage}
}

// Create adds a product to the caller's store.
func (s *ProductService) Create(ctx context.Context, auth domain.AuthContext, in CreateProductInput) domain.Result[domain.Product] {
	in.Currency = strings.ToUpper(in.Currency)
	return Execute(ctx, s.exec, auth, in, Operation[CreateProductInput, domain.Product]{
		Name:    "product.create",
		Require: permissionsFor(domain.ResourceProduct, domain.ActionCreate),
		Created: true,
		Run: func(ctx context.Context, auth domain.AuthContext, in CreateProductInput) (domain.Product, error) {
			vendor, err := s.sellingVendor(ctx, auth, in.VendorID)
			if err != nil {
				return domain.Product{}, err
			}
			images := in.Images
			if images == nil {
				images = []string{}
			}
			created, err := s.products.Create(ctx, &domain.Product{
				VendorID:    vendor.ID,
				Name:        in.Name,
				Description: in.Description,
				Category:    in.Category,
				Price:       in.Price,
				Currency:    in.Currency,
				Stock:       in.Stock,
				Images:      images,
				IsActive:    true,
			})
			if err != nil {
				return domain.Product{}, err
			}
			return *created, nil
		},
	})
}

// Get returns one product. Inactive products are visible only to catalogue managers.
func (s *ProductService) Get(ctx context.Context, auth domain.AuthContext, id string) domain.Result[domain.Product] {
	return Execute(ctx, s.exec, auth, IDInput{ID: id}, Operation[IDInput, domain.Product]{
		Name:   "product.get",
		Public: true,
		Run: func(ctx context.Context, auth domain.AuthContext, in IDInput) (domain.Product, error) {
			product, err := findScoped(ctx, s.products, domain.ResourceProduct, in.ID, func(p *domain.Product) bool {
				return p.IsActive || auth.Can(domain.GetPermission(domain.ResourceProduct, domain.ActionManage))
			})
			if err != nil {
				return domain.Product{}, err
			}
			return *product, nil
		},
	})
}

// List pages through the public catalogue.
func (s *ProductService) List(ctx context.Context, auth domain.AuthContext, in ListInput) domain.Result[domain.QueryResult[domain.Product]] {
	return Execute(ctx, s.exec, auth, in, Operation[ListInput, domain.QueryResult[domain.Product]]{
		Name:   "product.list",
		Public: true,
		Run: func(ctx context.Context, auth domain.AuthContext, in ListInput) (domain.QueryResult[domain.Product], error) {
			var scope domain.Filter
			if !auth.Can(domain.GetPermission(domain.ResourceProduct, domain.ActionManage)) {
				scope = domain.Eq{Field: "isActive", Value: true}
			}
			q, err := buildQuery(repository.ProductDescriptor, in, scope)
			if err != nil {
				return domain.QueryResult[domain.Product]{}, err
			}
			page, err := s.products.Query(ctx, q)
			if err != nil {
				return domain.QueryResult[domain.Product]{}, err
			}
			return *page, nil
		},
	})
}

// Update patches a product. Vendors holding product:update_own may edit their own listings.
func (s *ProductService) Update(ctx context.Context, auth domain.AuthContext, in UpdateProductInput) domain.Result[domain.Product] {
	return Execute(ctx, s.exec, auth, in, Operation[UpdateProductInput, domain.Product]{
		Name:  "product.update",
		AnyOf: permissionsFor(domain.ResourceProduct, domain.ActionUpdate, domain.ActionUpdateOwn),
		Validate: func(in UpdateProductInput) error {
			return requireChange(in.Name != nil, in.Description != nil, in.Category != nil,
				in.Price != nil, in.Currency != nil, in.Stock != nil, in.IsActive != nil)
		},
		Run: func(ctx context.Context, auth domain.AuthContext, in UpdateProductInput) (domain.Product, error) {
			own := auth.OwnScope(domain.ResourceProduct, domain.ActionUpdate, domain.ActionUpdateOwn)
			if _, err := s.loadOwned(ctx, auth, in.ID, own); err != nil {
				return domain.Product{}, err
			}

			patch := domain.Patch{}
			setIf(patch, "name", in.Name)
			setIf(patch, "description", in.Description)
			setIf(patch, "category", in.Category)
			setIf(patch, "price", in.Price)
			if in.Currency != nil {
				patch["currency"] = strings.ToUpper(*in.Currency)
			}
			setIf(patch, "stock", in.Stock)
			setIf(patch, "isActive", in.IsActive)

			updated, err := s.products.Update(ctx, in.ID, patch)
			if err != nil {
				return domain.Product{}, err
			}
			if updated == nil {
				return domain.Product{}, notFound(domain.ResourceProduct, in.ID)
			}
			return *updated, nil
		},
	})
}

// Delete removes a product. Callers without product:manage may only delete their own listings.
func (s *ProductService) Delete(ctx context.Context, auth domain.AuthContext, id string) domain.Result[Deleted] {
	return Execute(ctx, s.exec, auth, IDInput{ID: id}, Operation[IDInput, Deleted]{
		Name:    "product.delete",
		Require: permissionsFor(domain.ResourceProduct, domain.ActionDelete),
		Run: func(ctx context.Context, auth domain.AuthContext, in IDInput) (Deleted, error) {
			own := !auth.Can(domain.GetPermission(domain.ResourceProduct, domain.ActionManage))
			if _, err := s.loadOwned(ctx, auth, in.ID, own); err != nil {
				return Deleted{}, err
			}
			ok, err := s.products.Delete(ctx, in.ID)
			if err != nil {
				return Deleted{}, err
			}
			if !ok {
				return Deleted{}, notFound(domain.ResourceProduct, in.ID)
			}
			return Deleted{ID: in.ID, Deleted: true}, nil
		},
	})
}

// AttachImage uploads an image to object storage and appends its URL to the product.
func (s *ProductService) AttachImage(ctx context.Context, auth domain.AuthContext, in AttachImageInput) domain.Result[domain.Product] {
	return Execute(ctx, s.exec, auth, in, Operation[AttachImageInput, domain.Product]{
		Name:  "product.attach_image",
		AnyOf: permissionsFor(domain.ResourceProduct, domain.ActionUpdate, domain.ActionUpdateOwn),
		Validate: func(AttachImageInput) error {
			if s.storage == nil {
				return domain.ValidationError("image uploads are not enabled")
			}
			return nil
		},
		Run: func(ctx context.Context, auth domain.AuthContext, in AttachImageInput) (domain.Product, error) {
			own := auth.OwnScope(domain.ResourceProduct, domain.ActionUpdate, domain.ActionUpdateOwn)
			product, err := s.loadOwned(ctx, auth, in.ProductID, own)
			if err != nil {
				return domain.Product{}, err
			}

			key := fmt.Sprintf("products/%s/%s%s", product.ID, uuid.NewString(), strings.ToLower(path.Ext(in.Filename)))
			obj, err := s.storage.Put(ctx, key, in.Body, in.Size, in.ContentType)
			if err != nil {
				return domain.Product{}, fmt.Errorf("upload image: %w", err)
			}

			images := append(slices.Clone(product.Images), obj.URL)
			updated, err := s.products.Update(ctx, product.ID, domain.Patch{"images": images})
			if err != nil || updated == nil {
				if delErr := s.storage.Delete(ctx, key); delErr != nil {
					s.exec.log(ctx).Warn("remove orphaned image failed", zap.String("key", key), zap.Error(delErr))
				}
				if err == nil {
					err = notFound(domain.ResourceProduct, product.ID)
				}
				return domain.Product{}, err
			}
			return *updated, nil
		},
	})
}

func (s *ProductService) sellingVendor(ctx context.Context, auth domain.AuthContext, requested string) (*domain.Vendor, error) {
	if requested != "" && auth.Can(domain.GetPermission(domain.ResourceProduct, domain.ActionManage)) {
		vendor, err := s.vendors.FindByID(ctx, requested)
		if err != nil {
			return nil, err
		}
		if vendor == nil {
			return nil, domain.ValidationError("vendor %s does not exist", requested)
		}
		return vendor, nil
	}
	vendor, err := s.vendors.FindOne(ctx, domain.Eq{Field: "userId", Value: auth.UserID()})
	if err != nil {
		return nil, err
	}
	if vendor == nil {
		return nil, domain.NewError(domain.KindForbidden, "caller does not own a store")
	}
	if !vendor.IsActive {
		return nil, domain.NewError(domain.KindForbidden, "store %s is inactive", vendor.VendID)
	}
	return vendor, nil
}

// loadOwned fetches id and, when own is set, hides products outside the caller's store.
func (s *ProductService) loadOwned(ctx context.Context, auth domain.AuthContext, id string, own bool) (*domain.Product, error) {
	product, err := findScoped(ctx, s.products, domain.ResourceProduct, id, nil)
	if err != nil || !own {
		return product, err
	}
	vendor, err := s.vendors.FindOne(ctx, domain.Eq{Field: "userId", Value: auth.UserID()})
	if err != nil {
		return nil, err
	}
	if vendor == nil || vendor.ID != product.VendorID {
		return nil, notFound(domain.ResourceProduct, id)
	}
	return product, nil
}
