package usecase

import (
	"context"

	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/core/domain"
	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/core/port"
	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/repository"
)

// PaymentService exposes payments and drives their lifecycle.
type PaymentService struct {
	exec     *Executor
	payments port.StatusRepository[domain.Payment]
	orders   port.StatusRepository[domain.Order]
	tx       port.TxRunner
	events   port.EventPublisher
}

// NewPaymentService constructs a payment service.
func NewPaymentService(exec *Executor, payments port.StatusRepository[domain.Payment], orders port.StatusRepository[domain.Order], tx port.TxRunner, events port.EventPublisher) *PaymentService {
	return &PaymentService{exec: exec, payments: payments, orders: orders, tx: tx, events: eventsOrDiscard(events)}
}

// Get returns one payment. Callers holding only payment:view_own see their own payments.
func (s *PaymentService) Get(ctx context.Context, auth domain.AuthContext, id string) domain.Result[domain.Payment] {
	return Execute(ctx, s.exec, auth, IDInput{ID: id}, Operation[IDInput, domain.Payment]{
		Name:  "payment.get",
		AnyOf: permissionsFor(domain.ResourcePayment, domain.ActionView, domain.ActionViewOwn),
		Run: func(ctx context.Context, auth domain.AuthContext, in IDInput) (domain.Payment, error) {
			own := auth.OwnScope(domain.ResourcePayment, domain.ActionView, domain.ActionViewOwn)
			payment, err := findScoped(ctx, s.payments, domain.ResourcePayment, in.ID, func(p *domain.Payment) bool {
				return !own || p.UserID == auth.UserID()
			})
			if err != nil {
				return domain.Payment{}, err
			}
			return *payment, nil
		},
	})
}

// List pages through payments.
func (s *PaymentService) List(ctx context.Context, auth domain.AuthContext, in ListInput) domain.Result[domain.QueryResult[domain.Payment]] {
	return Execute(ctx, s.exec, auth, in, Operation[ListInput, domain.QueryResult[domain.Payment]]{
		Name:  "payment.list",
		AnyOf: permissionsFor(domain.ResourcePayment, domain.ActionView, domain.ActionViewOwn),
		Run: func(ctx context.Context, auth domain.AuthContext, in ListInput) (domain.QueryResult[domain.Payment], error) {
			scope := ownerScope(auth, domain.ResourcePayment, domain.ActionView, domain.ActionViewOwn, repository.PaymentDescriptor.OwnerField)
			q, err := buildQuery(repository.PaymentDescriptor, in, scope)
			if err != nil {
				return domain.QueryResult[domain.Payment]{}, err
			}
			page, err := s.payments.Query(ctx, q)
			if err != nil {
				return domain.QueryResult[domain.Payment]{}, err
			}
			return *page, nil
		},
	})
}

// Transition moves a payment along its lifecycle. Completing a payment moves its
// order from PENDING to PROCESSING in the same transaction.
func (s *PaymentService) Transition(ctx context.Context, auth domain.AuthContext, in TransitionInput) domain.Result[domain.Payment] {
	return Execute(ctx, s.exec, auth, in, Operation[TransitionInput, domain.Payment]{
		Name:    "payment.transition",
		Require: permissionsFor(domain.ResourcePayment, domain.ActionTransition),
		Run: func(ctx context.Context, auth domain.AuthContext, in TransitionInput) (domain.Payment, error) {
			payment, err := findScoped(ctx, s.payments, domain.ResourcePayment, in.ID, nil)
			if err != nil {
				return domain.Payment{}, err
			}
			from := payment.Status
			var orderMoved bool

			var updated *domain.Payment
			err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
				if in.Status == domain.StatusCompleted {
					order, err := s.orders.FindByID(ctx, payment.OrderID)
					if err != nil {
						return err
					}
					if order == nil || order.Status != domain.StatusPending {
						return domain.ConflictError("order %s is not awaiting payment", payment.OrderID)
					}
				}
				var err error
				updated, err = transition(ctx, s.payments, domain.PaymentTransitions, domain.ResourcePayment, in.ID, from, in.Status, auth.UserID(), in.Reason)
				if err != nil {
					return err
				}
				if in.Status != domain.StatusCompleted {
					return nil
				}
				if _, err := transition(ctx, s.orders, domain.OrderTransitions, domain.ResourceOrder, payment.OrderID,
					domain.StatusPending, domain.StatusProcessing, auth.UserID(), "payment completed"); err != nil {
					return err
				}
				orderMoved = true
				return nil
			})
			if err != nil {
				return domain.Payment{}, err
			}

			s.exec.publish(ctx, "payment.status.changed", func(ctx context.Context) error {
				return s.events.PublishStatusChanged(ctx, statusChanged(domain.ResourcePayment, in.ID, from, in.Status, auth.UserID(), in.Reason))
			})
			if orderMoved {
				s.exec.publish(ctx, "order.status.changed", func(ctx context.Context) error {
					return s.events.PublishStatusChanged(ctx, statusChanged(domain.ResourceOrder, payment.OrderID, domain.StatusPending, domain.StatusProcessing, auth.UserID(), "payment completed"))
				})
			}
			return *updated, nil
		},
	})
}
