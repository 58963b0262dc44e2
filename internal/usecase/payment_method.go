package usecase

import (
	"context"

	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/core/domain"
	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/core/port"
	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/repository"
)

// CreatePaymentMethodInput saves an instrument for the caller.
type CreatePaymentMethodInput struct {
	Type      domain.PaymentMethodType `json:"type" validate:"required,oneof=card bank_transfer wallet cash_on_delivery"`
	Provider  string                   `json:"provider" validate:"max=100"`
	Last4     string                   `json:"last4" validate:"omitempty,len=4,numeric"`
	ExpMonth  int                      `json:"expMonth" validate:"omitempty,min=1,max=12"`
	ExpYear   int                      `json:"expYear" validate:"omitempty,min=2000"`
	IsDefault bool                     `json:"isDefault"`
}

// PaymentMethodService manages saved payment instruments.
type PaymentMethodService struct {
	exec    *Executor
	methods port.Repository[domain.PaymentMethod]
	tx      port.TxRunner
}

// NewPaymentMethodService constructs a payment method service.
func NewPaymentMethodService(exec *Executor, methods port.Repository[domain.PaymentMethod], tx port.TxRunner) *PaymentMethodService {
	return &PaymentMethodService{exec: exec, methods: methods, tx: tx}
}

// Create saves an instrument. The caller's first instrument becomes the default.
func (s *PaymentMethodService) Create(ctx context.Context, auth domain.AuthContext, in CreatePaymentMethodInput) domain.Result[domain.PaymentMethod] {
	return Execute(ctx, s.exec, auth, in, Operation[CreatePaymentMethodInput, domain.PaymentMethod]{
		Name:    "payment_method.create",
		Require: permissionsFor(domain.ResourcePaymentMethod, domain.ActionCreate),
		Created: true,
		Run: func(ctx context.Context, auth domain.AuthContext, in CreatePaymentMethodInput) (domain.PaymentMethod, error) {
			var created *domain.PaymentMethod
			err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
				owned, err := s.methods.Count(ctx, domain.Eq{Field: "userId", Value: auth.UserID()})
				if err != nil {
					return err
				}
				isDefault := in.IsDefault || owned == 0
				if isDefault {
					if err := s.clearDefaults(ctx, auth.UserID()); err != nil {
						return err
					}
				}
				created, err = s.methods.Create(ctx, &domain.PaymentMethod{
					UserID:    auth.UserID(),
					Type:      in.Type,
					Provider:  in.Provider,
					Last4:     in.Last4,
					ExpMonth:  in.ExpMonth,
					ExpYear:   in.ExpYear,
					IsDefault: isDefault,
				})
				return err
			})
			if err != nil {
				return domain.PaymentMethod{}, err
			}
			return *created, nil
		},
	})
}

// List pages through instruments. Callers holding only payment_method:view_own see their own.
func (s *PaymentMethodService) List(ctx context.Context, auth domain.AuthContext, in ListInput) domain.Result[domain.QueryResult[domain.PaymentMethod]] {
	return Execute(ctx, s.exec, auth, in, Operation[ListInput, domain.QueryResult[domain.PaymentMethod]]{
		Name:  "payment_method.list",
		AnyOf: permissionsFor(domain.ResourcePaymentMethod, domain.ActionView, domain.ActionViewOwn),
		Run: func(ctx context.Context, auth domain.AuthContext, in ListInput) (domain.QueryResult[domain.PaymentMethod], error) {
			scope := ownerScope(auth, domain.ResourcePaymentMethod, domain.ActionView, domain.ActionViewOwn, repository.PaymentMethodDescriptor.OwnerField)
			q, err := buildQuery(repository.PaymentMethodDescriptor, in, scope)
			if err != nil {
				return domain.QueryResult[domain.PaymentMethod]{}, err
			}
			page, err := s.methods.Query(ctx, q)
			if err != nil {
				return domain.QueryResult[domain.PaymentMethod]{}, err
			}
			return *page, nil
		},
	})
}

// Delete removes an instrument. Callers without payment_method:manage may only delete their own.
func (s *PaymentMethodService) Delete(ctx context.Context, auth domain.AuthContext, id string) domain.Result[Deleted] {
	return Execute(ctx, s.exec, auth, IDInput{ID: id}, Operation[IDInput, Deleted]{
		Name:    "payment_method.delete",
		Require: permissionsFor(domain.ResourcePaymentMethod, domain.ActionDelete),
		Run: func(ctx context.Context, auth domain.AuthContext, in IDInput) (Deleted, error) {
			if _, err := s.owned(ctx, auth, in.ID, !auth.Can(domain.GetPermission(domain.ResourcePaymentMethod, domain.ActionManage))); err != nil {
				return Deleted{}, err
			}
			ok, err := s.methods.Delete(ctx, in.ID)
			if err != nil {
				return Deleted{}, err
			}
			if !ok {
				return Deleted{}, notFound(domain.ResourcePaymentMethod, in.ID)
			}
			return Deleted{ID: in.ID, Deleted: true}, nil
		},
	})
}

// SetDefault makes id the owner's default instrument, clearing the flag elsewhere.
func (s *PaymentMethodService) SetDefault(ctx context.Context, auth domain.AuthContext, id string) domain.Result[domain.PaymentMethod] {
	return Execute(ctx, s.exec, auth, IDInput{ID: id}, Operation[IDInput, domain.PaymentMethod]{
		Name:  "payment_method.set_default",
		AnyOf: permissionsFor(domain.ResourcePaymentMethod, domain.ActionUpdate, domain.ActionUpdateOwn),
		Run: func(ctx context.Context, auth domain.AuthContext, in IDInput) (domain.PaymentMethod, error) {
			own := auth.OwnScope(domain.ResourcePaymentMethod, domain.ActionUpdate, domain.ActionUpdateOwn)
			method, err := s.owned(ctx, auth, in.ID, own)
			if err != nil {
				return domain.PaymentMethod{}, err
			}
			if method.IsDefault {
				return *method, nil
			}

			var updated *domain.PaymentMethod
			err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
				if err := s.clearDefaults(ctx, method.UserID); err != nil {
					return err
				}
				var err error
				updated, err = s.methods.Update(ctx, method.ID, domain.Patch{"isDefault": true})
				if err != nil {
					return err
				}
				if updated == nil {
					return notFound(domain.ResourcePaymentMethod, method.ID)
				}
				return nil
			})
			if err != nil {
				return domain.PaymentMethod{}, err
			}
			return *updated, nil
		},
	})
}

func (s *PaymentMethodService) owned(ctx context.Context, auth domain.AuthContext, id string, own bool) (*domain.PaymentMethod, error) {
	return findScoped(ctx, s.methods, domain.ResourcePaymentMethod, id, func(m *domain.PaymentMethod) bool {
		return !own || m.UserID == auth.UserID()
	})
}

func (s *PaymentMethodService) clearDefaults(ctx context.Context, userID string) error {
	page, err := s.methods.Query(ctx, domain.QueryFilters{
		Page:  1,
		Limit: domain.MaxLimit,
		Filter: domain.And{
			domain.Eq{Field: "userId", Value: userID},
			domain.Eq{Field: "isDefault", Value: true},
		},
	})
	if err != nil {
		return err
	}
	for _, m := range page.Data {
		if _, err := s.methods.Update(ctx, m.ID, domain.Patch{"isDefault": false}); err != nil {
			return err
		}
	}
	return nil
}
