package repository

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/core/domain"
	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/core/port"
)

var structValidator = validator.New(validator.WithRequiredStructEnabled())

func validateStruct[T any](entity *T) error {
	if err := structValidator.Struct(entity); err != nil {
		return domain.WrapError(domain.KindValidationFailed, err, "%s", describeValidation(err))
	}
	return nil
}

func describeValidation(err error) string {
	var fields validator.ValidationErrors
	if !errors.As(err, &fields) || len(fields) == 0 {
		return "validation failed"
	}
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, fmt.Sprintf("%s failed %s", f.Field(), f.Tag()))
	}
	return strings.Join(parts, "; ")
}

// UserDescriptor configures the users collection.
var UserDescriptor = Descriptor[domain.User]{
	Collection:   "users",
	CodeField:    "custId",
	CodePrefix:   "CUST",
	CodeWidth:    4,
	UniqueFields: []string{"email"},
	SearchFields: []string{"firstName", "lastName", "email", "custId"},
	FilterFields: []string{"isActive"},
	OwnerField:   "id",
	Validate:     validateStruct[domain.User],
}

// VendorDescriptor configures the vendors collection.
var VendorDescriptor = Descriptor[domain.Vendor]{
	Collection:      "vendors",
	CodeField:       "vendId",
	CodePrefix:      "VEND",
	CodeWidth:       4,
	UniqueFields:    []string{"storeName", "userId"},
	SearchFields:    []string{"storeName", "description", "vendId"},
	FilterFields:    []string{"isVerified", "isActive", "userId"},
	ProtectedFields: []string{"userId"},
	OwnerField:      "userId",
	Validate:        validateStruct[domain.Vendor],
}

// ProductDescriptor configures the products collection. The slug doubles as the sequential code.
var ProductDescriptor = Descriptor[domain.Product]{
	Collection:      "products",
	CodeField:       "slug",
	CodePrefix:      "PROD",
	CodeWidth:       5,
	UniqueFields:    []string{"slug"},
	SearchFields:    []string{"name", "description", "category", "slug"},
	FilterFields:    []string{"vendorId", "category", "isActive", "currency"},
	ProtectedFields: []string{"vendorId"},
	OwnerField:      "vendorId",
	Validate:        validateStruct[domain.Product],
}

// OrderDescriptor configures the orders collection.
var OrderDescriptor = Descriptor[domain.Order]{
	Collection:      "orders",
	CodeField:       "ordId",
	CodePrefix:      "Ord",
	CodeWidth:       4,
	SearchFields:    []string{"ordId", "notes"},
	FilterFields:    []string{"userId", "status", "currency", "paymentId"},
	ProtectedFields: []string{"userId", "items", "total", "currency"},
	OwnerField:      "userId",
	Transitions:     domain.OrderTransitions,
	Validate: func(o *domain.Order) error {
		if err := validateStruct(o); err != nil {
			return err
		}
		return o.CheckTotals()
	},
}

// PaymentDescriptor configures the payments collection.
var PaymentDescriptor = Descriptor[domain.Payment]{
	Collection:      "payments",
	CodeField:       "paymentId",
	CodePrefix:      "Payment",
	CodeWidth:       4,
	SearchFields:    []string{"paymentId", "transactionRef"},
	FilterFields:    []string{"userId", "orderId", "status", "currency"},
	ProtectedFields: []string{"userId", "orderId", "amount", "currency"},
	OwnerField:      "userId",
	Transitions:     domain.PaymentTransitions,
	Validate:        validateStruct[domain.Payment],
}

// ShippingDescriptor configures the shipping collection.
var ShippingDescriptor = Descriptor[domain.Shipping]{
	Collection:      "shipping",
	CodeField:       "shipId",
	CodePrefix:      "Ship",
	CodeWidth:       4,
	SearchFields:    []string{"shipId", "trackingNumber", "carrier"},
	FilterFields:    []string{"userId", "orderId", "status", "carrier"},
	ProtectedFields: []string{"userId", "orderId"},
	OwnerField:      "userId",
	Transitions:     domain.ShippingTransitions,
	Validate:        validateStruct[domain.Shipping],
}

// RoleDescriptor configures the roles collection.
var RoleDescriptor = Descriptor[domain.Role]{
	Collection:   "roles",
	UniqueFields: []string{"name"},
	SearchFields: []string{"name", "description"},
	Validate: func(r *domain.Role) error {
		if err := validateStruct(r); err != nil {
			return err
		}
		for _, p := range r.Permissions {
			if _, err := domain.ParsePermission(string(p)); err != nil {
				return err
			}
		}
		return nil
	},
}

// PaymentMethodDescriptor configures the payment_methods collection.
var PaymentMethodDescriptor = Descriptor[domain.PaymentMethod]{
	Collection:      "payment_methods",
	SearchFields:    []string{"provider", "type"},
	FilterFields:    []string{"userId", "type", "isDefault"},
	ProtectedFields: []string{"userId"},
	OwnerField:      "userId",
	Validate:        validateStruct[domain.PaymentMethod],
}

// Repositories groups the entity repositories over one document store.
type Repositories struct {
	Users          *Repository[domain.User]
	Vendors        *Repository[domain.Vendor]
	Products       *Repository[domain.Product]
	Orders         *Repository[domain.Order]
	Payments       *Repository[domain.Payment]
	Shipping       *Repository[domain.Shipping]
	Roles          *Repository[domain.Role]
	PaymentMethods *Repository[domain.PaymentMethod]

	store     port.DocumentStore
	specs     []port.CollectionSpec
	sequences []string
}

// NewRepositories wires every entity repository over store, allocating codes from seq.
func NewRepositories(store port.DocumentStore, seq port.Sequence) *Repositories {
	var sequences []string
	sequences = sequenced(sequences, UserDescriptor)
	sequences = sequenced(sequences, VendorDescriptor)
	sequences = sequenced(sequences, ProductDescriptor)
	sequences = sequenced(sequences, OrderDescriptor)
	sequences = sequenced(sequences, PaymentDescriptor)
	sequences = sequenced(sequences, ShippingDescriptor)
	sequences = sequenced(sequences, RoleDescriptor)
	sequences = sequenced(sequences, PaymentMethodDescriptor)

	return &Repositories{
		Users:          New(store, seq, UserDescriptor),
		Vendors:        New(store, seq, VendorDescriptor),
		Products:       New(store, seq, ProductDescriptor),
		Orders:         New(store, seq, OrderDescriptor),
		Payments:       New(store, seq, PaymentDescriptor),
		Shipping:       New(store, seq, ShippingDescriptor),
		Roles:          New(store, seq, RoleDescriptor),
		PaymentMethods: New(store, seq, PaymentMethodDescriptor),
		store:          store,
		sequences:      sequences,
		specs: []port.CollectionSpec{
			UserDescriptor.Spec(),
			VendorDescriptor.Spec(),
			ProductDescriptor.Spec(),
			OrderDescriptor.Spec(),
			PaymentDescriptor.Spec(),
			ShippingDescriptor.Spec(),
			RoleDescriptor.Spec(),
			PaymentMethodDescriptor.Spec(),
		},
	}
}

// SequenceNames lists the collections whose codes are drawn from the sequence.
func (r *Repositories) SequenceNames() []string {
	return slices.Clone(r.sequences)
}

func sequenced[T any](names []string, d Descriptor[T]) []string {
	if d.CodeField == "" {
		return names
	}
	return append(names, d.Collection)
}

// EnsureCollections creates every collection and its unique indexes.
func (r *Repositories) EnsureCollections(ctx context.Context) error {
	for _, spec := range r.specs {
		if err := r.store.EnsureCollection(ctx, spec); err != nil {
			return fmt.Errorf("ensure collection %s: %w", spec.Name, err)
		}
	}
	return nil
}
