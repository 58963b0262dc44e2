package port

import "github.com/zufichris/multivendor-ecommerce-app-sub000/internal/core/domain"

// InvoiceRenderer renders a printable invoice for an order.
type InvoiceRenderer interface {
	Render(order domain.Order, customer *domain.User) ([]byte, error)
}
