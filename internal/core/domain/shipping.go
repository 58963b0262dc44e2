package domain

import "time"

// Shipping tracks delivery of an order.
type Shipping struct {
	Document
	ShipID            string         `json:"shipId"`
	OrderID           string         `json:"orderId" validate:"required"`
	UserID            string         `json:"userId" validate:"required"`
	Carrier           string         `json:"carrier,omitempty"`
	TrackingNumber    string         `json:"trackingNumber,omitempty"`
	Address           Address        `json:"address"`
	EstimatedDelivery *time.Time     `json:"estimatedDelivery,omitempty"`
	Status            Status         `json:"status" validate:"required"`
	StatusHistory     []StatusChange `json:"statusHistory"`
}
