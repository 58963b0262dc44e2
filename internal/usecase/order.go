package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/core/domain"
	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/core/port"
	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/repository"
)

// PlaceOrderInput is a checkout request. Each item's totalPrice must equal
// unitPrice*quantity-discount and total must equal the sum of item totals.
type PlaceOrderInput struct {
	Items           []domain.OrderItem `json:"items" validate:"required,min=1,max=100,dive"`
	Total           int64              `json:"total" validate:"gte=0"`
	Currency        string             `json:"currency" validate:"required,len=3"`
	ShippingAddress domain.Address     `json:"shippingAddress"`
	PaymentMethodID string             `json:"paymentMethodId"`
	Notes           string             `json:"notes" validate:"max=1000"`
}

// CancelOrderInput cancels a pending order.
type CancelOrderInput struct {
	ID     string `json:"id" validate:"required"`
	Reason string `json:"reason" validate:"max=500"`
}

// Invoice is a rendered order document.
type Invoice struct {
	Filename string
	Content  []byte
}

var errCancelNotPending = domain.ConflictError("can only cancel PENDING orders")

// OrderService places and manages orders.
type OrderService struct {
	exec     *Executor
	orders   port.StatusRepository[domain.Order]
	payments port.StatusRepository[domain.Payment]
	products port.Repository[domain.Product]
	methods  port.Repository[domain.PaymentMethod]
	users    port.Repository[domain.User]
	tx       port.TxRunner
	events   port.EventPublisher
	invoices port.InvoiceRenderer
}

// OrderDeps groups the collaborators of an OrderService.
type OrderDeps struct {
	Orders         port.StatusRepository[domain.Order]
	Payments       port.StatusRepository[domain.Payment]
	Products       port.Repository[domain.Product]
	PaymentMethods port.Repository[domain.PaymentMethod]
	Users          port.Repository[domain.User]
	Tx             port.TxRunner
	Events         port.EventPublisher
	Invoices       port.InvoiceRenderer
}

// NewOrderService constructs an order service.
func NewOrderService(exec *Executor, deps OrderDeps) *OrderService {
	return &OrderService{
		exec:     exec,
		orders:   deps.Orders,
		payments: deps.Payments,
		products: deps.Products,
		methods:  deps.PaymentMethods,
		users:    deps.Users,
		tx:       deps.Tx,
		events:   eventsOrDiscard(deps.Events),
		invoices: deps.Invoices,
	}
}

// Place creates a pending order and its pending payment in one transaction.
func (s *OrderService) Place(ctx context.Context, auth domain.AuthContext, in PlaceOrderInput) domain.Result[domain.Order] {
	in.Currency = strings.ToUpper(in.Currency)
	return Execute(ctx, s.exec, auth, in, Operation[PlaceOrderInput, domain.Order]{
		Name:    "order.place",
		Require: permissionsFor(domain.ResourceOrder, domain.ActionCreate),
		Created: true,
		Run: func(ctx context.Context, auth domain.AuthContext, in PlaceOrderInput) (domain.Order, error) {
			items, err := s.resolveItems(ctx, in)
			if err != nil {
				return domain.Order{}, err
			}
			if in.PaymentMethodID != "" {
				method, err := s.methods.FindByID(ctx, in.PaymentMethodID)
				if err != nil {
					return domain.Order{}, err
				}
				if method == nil || method.UserID != auth.UserID() {
					return domain.Order{}, domain.ValidationError("payment method %s does not exist", in.PaymentMethodID)
				}
			}

			placedAt := now()
			history := []domain.StatusChange{{Status: domain.StatusPending, ChangedAt: placedAt, ChangedBy: auth.UserID()}}

			var placed *domain.Order
			var payment *domain.Payment
			err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
				order, err := s.orders.Create(ctx, &domain.Order{
					UserID:          auth.UserID(),
					Items:           items,
					Total:           in.Total,
					Currency:        in.Currency,
					ShippingAddress: in.ShippingAddress,
					Notes:           in.Notes,
					Status:          domain.StatusPending,
					StatusHistory:   history,
				})
				if err != nil {
					return err
				}
				payment, err = s.payments.Create(ctx, &domain.Payment{
					OrderID:         order.ID,
					UserID:          auth.UserID(),
					PaymentMethodID: in.PaymentMethodID,
					Amount:          in.Total,
					Currency:        in.Currency,
					Status:          domain.StatusPending,
					StatusHistory:   history,
				})
				if err != nil {
					return err
				}
				placed, err = s.orders.Update(ctx, order.ID, domain.Patch{"paymentId": payment.ID})
				if err != nil {
					return err
				}
				if placed == nil {
					return fmt.Errorf("order %s vanished during placement", order.ID)
				}
				return nil
			})
			if err != nil {
				return domain.Order{}, fmt.Errorf("place order: %w", err)
			}

			s.exec.publish(ctx, "order.placed", func(ctx context.Context) error {
				return s.events.PublishOrderPlaced(ctx, domain.OrderPlacedEvent{
					EventID:   uuid.NewString(),
					OrderID:   placed.ID,
					OrdID:     placed.OrdID,
					UserID:    placed.UserID,
					PaymentID: payment.ID,
					Total:     placed.Total,
					Currency:  placed.Currency,
					PlacedAt:  placedAt,
				})
			})
			return *placed, nil
		},
	})
}

// Get returns one order. Callers holding only order:view_own see their own orders.
func (s *OrderService) Get(ctx context.Context, auth domain.AuthContext, id string) domain.Result[domain.Order] {
	return Execute(ctx, s.exec, auth, IDInput{ID: id}, Operation[IDInput, domain.Order]{
		Name:  "order.get",
		AnyOf: permissionsFor(domain.ResourceOrder, domain.ActionView, domain.ActionViewOwn),
		Run: func(ctx context.Context, auth domain.AuthContext, in IDInput) (domain.Order, error) {
			order, err := s.visible(ctx, auth, in.ID)
			if err != nil {
				return domain.Order{}, err
			}
			return *order, nil
		},
	})
}

// List pages through orders.
func (s *OrderService) List(ctx context.Context, auth domain.AuthContext, in ListInput) domain.Result[domain.QueryResult[domain.Order]] {
	return Execute(ctx, s.exec, auth, in, Operation[ListInput, domain.QueryResult[domain.Order]]{
		Name:  "order.list",
		AnyOf: permissionsFor(domain.ResourceOrder, domain.ActionView, domain.ActionViewOwn),
		Run: func(ctx context.Context, auth domain.AuthContext, in ListInput) (domain.QueryResult[domain.Order], error) {
			scope := ownerScope(auth, domain.ResourceOrder, domain.ActionView, domain.ActionViewOwn, repository.OrderDescriptor.OwnerField)
			q, err := buildQuery(repository.OrderDescriptor, in, scope)
			if err != nil {
				return domain.QueryResult[domain.Order]{}, err
			}
			page, err := s.orders.Query(ctx, q)
			if err != nil {
				return domain.QueryResult[domain.Order]{}, err
			}
			return *page, nil
		},
	})
}

// Cancel moves a PENDING order to CANCELLED and cancels its pending payment.
// Orders in any other status are left unchanged.
func (s *OrderService) Cancel(ctx context.Context, auth domain.AuthContext, in CancelOrderInput) domain.Result[domain.Order] {
	return Execute(ctx, s.exec, auth, in, Operation[CancelOrderInput, domain.Order]{
		Name:  "order.cancel",
		AnyOf: permissionsFor(domain.ResourceOrder, domain.ActionCancel, domain.ActionCancelOwn),
		Run: func(ctx context.Context, auth domain.AuthContext, in CancelOrderInput) (domain.Order, error) {
			own := auth.OwnScope(domain.ResourceOrder, domain.ActionCancel, domain.ActionCancelOwn)
			order, err := findScoped(ctx, s.orders, domain.ResourceOrder, in.ID, func(o *domain.Order) bool {
				return !own || o.UserID == auth.UserID()
			})
			if err != nil {
				return domain.Order{}, err
			}
			if order.Status != domain.StatusPending {
				return domain.Order{}, errCancelNotPending
			}

			var cancelled *domain.Order
			err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
				var err error
				cancelled, err = s.orders.TransitionStatus(ctx, order.ID, domain.StatusPending, domain.StatusCancelled, domain.StatusChange{
					ChangedBy: auth.UserID(),
					Reason:    in.Reason,
				})
				if errors.Is(err, repository.ErrStatusMismatch) {
					return errCancelNotPending
				}
				if err != nil {
					return err
				}
				if cancelled == nil {
					return notFound(domain.ResourceOrder, order.ID)
				}
				return s.cancelPayment(ctx, order.PaymentID, auth.UserID(), in.Reason)
			})
			if err != nil {
				return domain.Order{}, err
			}

			s.exec.publish(ctx, "order.status.changed", func(ctx context.Context) error {
				return s.events.PublishStatusChanged(ctx, statusChanged(domain.ResourceOrder, order.ID, domain.StatusPending, domain.StatusCancelled, auth.UserID(), in.Reason))
			})
			return *cancelled, nil
		},
	})
}

// Transition moves an order along its lifecycle.
func (s *OrderService) Transition(ctx context.Context, auth domain.AuthContext, in TransitionInput) domain.Result[domain.Order] {
	return Execute(ctx, s.exec, auth, in, Operation[TransitionInput, domain.Order]{
		Name:    "order.transition",
		Require: permissionsFor(domain.ResourceOrder, domain.ActionTransition),
		Run: func(ctx context.Context, auth domain.AuthContext, in TransitionInput) (domain.Order, error) {
			order, err := findScoped(ctx, s.orders, domain.ResourceOrder, in.ID, nil)
			if err != nil {
				return domain.Order{}, err
			}
			from := order.Status
			updated, err := transition(ctx, s.orders, domain.OrderTransitions, domain.ResourceOrder, in.ID, from, in.Status, auth.UserID(), in.Reason)
			if err != nil {
				return domain.Order{}, err
			}
			s.exec.publish(ctx, "order.status.changed", func(ctx context.Context) error {
				return s.events.PublishStatusChanged(ctx, statusChanged(domain.ResourceOrder, in.ID, from, in.Status, auth.UserID(), in.Reason))
			})
			return *updated, nil
		},
	})
}

// Invoice renders a PDF invoice for an order the caller may view.
func (s *OrderService) Invoice(ctx context.Context, auth domain.AuthContext, id string) domain.Result[Invoice] {
	return Execute(ctx, s.exec, auth, IDInput{ID: id}, Operation[IDInput, Invoice]{
		Name:  "order.invoice",
		AnyOf: permissionsFor(domain.ResourceOrder, domain.ActionView, domain.ActionViewOwn),
		Validate: func(IDInput) error {
			if s.invoices == nil {
				return domain.ValidationError("invoice rendering is not enabled")
			}
			return nil
		},
		Run: func(ctx context.Context, auth domain.AuthContext, in IDInput) (Invoice, error) {
			order, err := s.visible(ctx, auth, in.ID)
			if err != nil {
				return Invoice{}, err
			}
			customer, err := s.users.FindByID(ctx, order.UserID)
			if err != nil {
				return Invoice{}, err
			}
			content, err := s.invoices.Render(*order, customer)
			if err != nil {
				return Invoice{}, fmt.Errorf("render invoice: %w", err)
			}
			return Invoice{Filename: "invoice-" + order.OrdID + ".pdf", Content: content}, nil
		},
	})
}

func (s *OrderService) visible(ctx context.Context, auth domain.AuthContext, id string) (*domain.Order, error) {
	own := auth.OwnScope(domain.ResourceOrder, domain.ActionView, domain.ActionViewOwn)
	return findScoped(ctx, s.orders, domain.ResourceOrder, id, func(o *domain.Order) bool {
		return !own || o.UserID == auth.UserID()
	})
}

// resolveItems checks every line against the catalogue and stamps the selling vendor.
func (s *OrderService) resolveItems(ctx context.Context, in PlaceOrderInput) ([]domain.OrderItem, error) {
	items := make([]domain.OrderItem, 0, len(in.Items))
	for i, item := range in.Items {
		product, err := s.products.FindByID(ctx, item.ProductID)
		if err != nil {
			return nil, err
		}
		if product == nil || !product.IsActive {
			return nil, domain.ValidationError("items[%d]: product %s is not available", i, item.ProductID)
		}
		if product.Currency != in.Currency {
			return nil, domain.ValidationError("items[%d]: product is priced in %s", i, product.Currency)
		}
		if item.Quantity > product.Stock {
			return nil, domain.ConflictError("items[%d]: insufficient stock for %s", i, product.Slug)
		}
		item.VendorID = product.VendorID
		items = append(items, item)
	}
	return items, nil
}

func (s *OrderService) cancelPayment(ctx context.Context, paymentID, actor, reason string) error {
	if paymentID == "" {
		return nil
	}
	payment, err := s.payments.FindByID(ctx, paymentID)
	if err != nil || payment == nil || payment.Status != domain.StatusPending {
		return err
	}
	_, err = s.payments.TransitionStatus(ctx, paymentID, domain.StatusPending, domain.StatusCancelled, domain.StatusChange{
		ChangedBy: actor,
		Reason:    reason,
	})
	return err
}
