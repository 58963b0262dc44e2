package domain

import (
	"slices"
	"time"
)

// Status is the lifecycle state of an order, payment or shipment.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusShipped    Status = "SHIPPED"
	StatusInTransit  Status = "IN_TRANSIT"
	StatusDelivered  Status = "DELIVERED"
	StatusReturned   Status = "RETURNED"
	StatusCancelled  Status = "CANCELLED"
	StatusRefunded   Status = "REFUNDED"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
)

// StatusChange is one entry of an entity's append-only status history.
type StatusChange struct {
	Status    Status    `json:"status"`
	ChangedAt time.Time `json:"changedAt"`
	ChangedBy string    `json:"changedBy,omitempty"`
	Reason    string    `json:"reason,omitempty"`
}

// Transitions lists the allowed next states for each state.
type Transitions map[Status][]Status

// Allows reports whether from -> to is a legal move.
func (t Transitions) Allows(from, to Status) bool {
	return slices.Contains(t[from], to)
}

// Knows reports whether s appears anywhere in the table.
func (t Transitions) Knows(s Status) bool {
	if _, ok := t[s]; ok {
		return true
	}
	for _, next := range t {
		if slices.Contains(next, s) {
			return true
		}
	}
	return false
}

var (
	// OrderTransitions governs order status changes.
	OrderTransitions = Transitions{
		StatusPending:    {StatusProcessing, StatusCancelled},
		StatusProcessing: {StatusShipped},
		StatusShipped:    {StatusDelivered},
		StatusDelivered:  {StatusRefunded},
	}
	// PaymentTransitions governs payment status changes.
	PaymentTransitions = Transitions{
		StatusPending:   {StatusCompleted, StatusFailed, StatusCancelled},
		StatusCompleted: {StatusRefunded},
	}
	// ShippingTransitions governs shipment status changes.
	ShippingTransitions = Transitions{
		StatusPending:   {StatusShipped, StatusCancelled},
		StatusShipped:   {StatusInTransit, StatusDelivered},
		StatusInTransit: {StatusDelivered, StatusReturned},
		StatusDelivered: {StatusReturned},
	}
)
