package usecase

import (
	"context"
	"time"

	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/core/domain"
	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/core/port"
	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/repository"
)

// CreateShippingInput opens a shipment for a processing order. Address
// defaults to the order's shipping address.
type CreateShippingInput struct {
	OrderID           string          `json:"orderId" validate:"required"`
	Carrier           string          `json:"carrier" validate:"max=100"`
	TrackingNumber    string          `json:"trackingNumber" validate:"max=100"`
	Address           *domain.Address `json:"address"`
	EstimatedDelivery *time.Time      `json:"estimatedDelivery"`
}

// UpdateShippingInput patches carrier details. Nil fields are left unchanged.
type UpdateShippingInput struct {
	ID                string     `json:"id" validate:"required"`
	Carrier           *string    `json:"carrier" validate:"omitempty,max=100"`
	TrackingNumber    *string    `json:"trackingNumber" validate:"omitempty,max=100"`
	EstimatedDelivery *time.Time `json:"estimatedDelivery"`
}

// orderStatusFor maps a shipment status onto the order status it implies.
var orderStatusFor = map[domain.Status]domain.Status{
	domain.StatusShipped:   domain.StatusShipped,
	domain.StatusDelivered: domain.StatusDelivered,
}

// ShippingService manages shipments.
type ShippingService struct {
	exec     *Executor
	shipping port.StatusRepository[domain.Shipping]
	orders   port.StatusRepository[domain.Order]
	tx       port.TxRunner
	events   port.EventPublisher
}

// NewShippingService constructs a shipping service.
func NewShippingService(exec *Executor, shipping port.StatusRepository[domain.Shipping], orders port.StatusRepository[domain.Order], tx port.TxRunner, events port.EventPublisher) *ShippingService {
	return &ShippingService{exec: exec, shipping: shipping, orders: orders, tx: tx, events: eventsOrDiscard(events)}
}

// Create opens the shipment of an order.
func (s *ShippingService) Create(ctx context.Context, auth domain.AuthContext, in CreateShippingInput) domain.Result[domain.Shipping] {
	return Execute(ctx, s.exec, auth, in, Operation[CreateShippingInput, domain.Shipping]{
		Name:    "shipping.create",
		Require: permissionsFor(domain.ResourceShipping, domain.ActionCreate),
		Created: true,
		Run: func(ctx context.Context, auth domain.AuthContext, in CreateShippingInput) (domain.Shipping, error) {
			order, err := s.orders.FindByID(ctx, in.OrderID)
			if err != nil {
				return domain.Shipping{}, err
			}
			if order == nil {
				return domain.Shipping{}, domain.ValidationError("order %s does not exist", in.OrderID)
			}
			if order.Status != domain.StatusProcessing {
				return domain.Shipping{}, domain.ConflictError("order %s is %s, not PROCESSING", order.OrdID, order.Status)
			}
			existing, err := s.shipping.FindOne(ctx, domain.Eq{Field: "orderId", Value: order.ID})
			if err != nil {
				return domain.Shipping{}, err
			}
			if existing != nil {
				return domain.Shipping{}, domain.ConflictError("order %s already has shipment %s", order.OrdID, existing.ShipID)
			}

			address := order.ShippingAddress
			if in.Address != nil {
				address = *in.Address
			}
			created, err := s.shipping.Create(ctx, &domain.Shipping{
				OrderID:           order.ID,
				UserID:            order.UserID,
				Carrier:           in.Carrier,
				TrackingNumber:    in.TrackingNumber,
				Address:           address,
				EstimatedDelivery: in.EstimatedDelivery,
				Status:            domain.StatusPending,
				StatusHistory:     []domain.StatusChange{{Status: domain.StatusPending, ChangedAt: now(), ChangedBy: auth.UserID()}},
			})
			if err != nil {
				return domain.Shipping{}, err
			}
			return *created, nil
		},
	})
}

// Get returns one shipment. Callers holding only shipping:view_own see their own shipments.
func (s *ShippingService) Get(ctx context.Context, auth domain.AuthContext, id string) domain.Result[domain.Shipping] {
	return Execute(ctx, s.exec, auth, IDInput{ID: id}, Operation[IDInput, domain.Shipping]{
		Name:  "shipping.get",
		AnyOf: permissionsFor(domain.ResourceShipping, domain.ActionView, domain.ActionViewOwn),
		Run: func(ctx context.Context, auth domain.AuthContext, in IDInput) (domain.Shipping, error) {
			own := auth.OwnScope(domain.ResourceShipping, domain.ActionView, domain.ActionViewOwn)
			shipment, err := findScoped(ctx, s.shipping, domain.ResourceShipping, in.ID, func(sh *domain.Shipping) bool {
				return !own || sh.UserID == auth.UserID()
			})
			if err != nil {
				return domain.Shipping{}, err
			}
			return *shipment, nil
		},
	})
}

// List pages through shipments.
func (s *ShippingService) List(ctx context.Context, auth domain.AuthContext, in ListInput) domain.Result[domain.QueryResult[domain.Shipping]] {
	return Execute(ctx, s.exec, auth, in, Operation[ListInput, domain.QueryResult[domain.Shipping]]{
		Name:  "shipping.list",
		AnyOf: permissionsFor(domain.ResourceShipping, domain.ActionView, domain.ActionViewOwn),
		Run: func(ctx context.Context, auth domain.AuthContext, in ListInput) (domain.QueryResult[domain.Shipping], error) {
			scope := ownerScope(auth, domain.ResourceShipping, domain.ActionView, domain.ActionViewOwn, repository.ShippingDescriptor.OwnerField)
			q, err := buildQuery(repository.ShippingDescriptor, in, scope)
			if err != nil {
				return domain.QueryResult[domain.Shipping]{}, err
			}
			page, err := s.shipping.Query(ctx, q)
			if err != nil {
				return domain.QueryResult[domain.Shipping]{}, err
			}
			return *page, nil
		},
	})
}

// Update patches carrier details.
func (s *ShippingService) Update(ctx context.Context, auth domain.AuthContext, in UpdateShippingInput) domain.Result[domain.Shipping] {
	return Execute(ctx, s.exec, auth, in, Operation[UpdateShippingInput, domain.Shipping]{
		Name:    "shipping.update",
		Require: permissionsFor(domain.ResourceShipping, domain.ActionUpdate),
		Run: func(ctx context.Context, _ domain.AuthContext, in UpdateShippingInput) (domain.Shipping, error) {
			patch := domain.Patch{}
			setIf(patch, "carrier", in.Carrier)
			setIf(patch, "trackingNumber", in.TrackingNumber)
			setIf(patch, "estimatedDelivery", in.EstimatedDelivery)
			updated, err := s.shipping.Update(ctx, in.ID, patch)
			if err != nil {
				return domain.Shipping{}, err
			}
			if updated == nil {
				return domain.Shipping{}, notFound(domain.ResourceShipping, in.ID)
			}
			return *updated, nil
		},
	})
}

// Transition moves a shipment along its lifecycle. SHIPPED and DELIVERED are
// mirrored onto the order when its own table allows the move.
func (s *ShippingService) Transition(ctx context.Context, auth domain.AuthContext, in TransitionInput) domain.Result[domain.Shipping] {
	return Execute(ctx, s.exec, auth, in, Operation[TransitionInput, domain.Shipping]{
		Name:    "shipping.transition",
		Require: permissionsFor(domain.ResourceShipping, domain.ActionTransition),
		Run: func(ctx context.Context, auth domain.AuthContext, in TransitionInput) (domain.Shipping, error) {
			shipment, err := findScoped(ctx, s.shipping, domain.ResourceShipping, in.ID, nil)
			if err != nil {
				return domain.Shipping{}, err
			}
			from := shipment.Status
			var orderFrom domain.Status

			var updated *domain.Shipping
			err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
				var err error
				updated, err = transition(ctx, s.shipping, domain.ShippingTransitions, domain.ResourceShipping, in.ID, from, in.Status, auth.UserID(), in.Reason)
				if err != nil {
					return err
				}
				target, ok := orderStatusFor[in.Status]
				if !ok {
					return nil
				}
				order, err := s.orders.FindByID(ctx, shipment.OrderID)
				if err != nil || order == nil || !domain.OrderTransitions.Allows(order.Status, target) {
					return err
				}
				if _, err := transition(ctx, s.orders, domain.OrderTransitions, domain.ResourceOrder, order.ID,
					order.Status, target, auth.UserID(), "shipment "+string(in.Status)); err != nil {
					return err
				}
				orderFrom = order.Status
				return nil
			})
			if err != nil {
				return domain.Shipping{}, err
			}

			s.exec.publish(ctx, "shipping.status.changed", func(ctx context.Context) error {
				return s.events.PublishStatusChanged(ctx, statusChanged(domain.ResourceShipping, in.ID, from, in.Status, auth.UserID(), in.Reason))
			})
			if orderFrom != "" {
				s.exec.publish(ctx, "order.status.changed", func(ctx context.Context) error {
					return s.events.PublishStatusChanged(ctx, statusChanged(domain.ResourceOrder, shipment.OrderID, orderFrom, orderStatusFor[in.Status], auth.UserID(), "shipment "+string(in.Status)))
				})
			}
			return *updated, nil
		},
	})
}
