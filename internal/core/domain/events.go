package domain

import "time"

// UserRegisteredEvent represents the payload for commerce.user.registered messages.
type UserRegisteredEvent struct {
	EventID      string
	UserID       string
	CustID       string
	Email        string
	RegisteredAt time.Time
}

// OrderPlacedEvent represents the payload for commerce.order.placed messages.
type OrderPlacedEvent struct {
	EventID   string
	OrderID   string
	OrdID     string
	UserID    string
	PaymentID string
	Total     int64
	Currency  string
	PlacedAt  time.Time
}

// StatusChangedEvent represents the payload for commerce.<entity>.status.changed messages.
type StatusChangedEvent struct {
	EventID   string
	Entity    Resource
	EntityID  string
	From      Status
	To        Status
	Reason    string
	Actor     string
	ChangedAt time.Time
}

// RoleUpdatedEvent represents the payload for commerce.role.updated messages.
type RoleUpdatedEvent struct {
	EventID     string
	RoleID      string
	Name        string
	Permissions []Permission
	UpdatedBy   string
	UpdatedAt   time.Time
}
