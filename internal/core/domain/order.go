package domain

// OrderItem is one line of an order. TotalPrice must equal UnitPrice*Quantity-Discount.
type OrderItem struct {
	ProductID  string `json:"productId" validate:"required"`
	VendorID   string `json:"vendorId,omitempty"`
	Name       string `json:"name" validate:"required"`
	Quantity   int    `json:"quantity" validate:"gte=1"`
	UnitPrice  int64  `json:"unitPrice" validate:"gte=0"`
	Discount   int64  `json:"discount" validate:"gte=0"`
	TotalPrice int64  `json:"totalPrice" validate:"gte=0"`
}

// Order is a customer purchase.
type Order struct {
	Document
	OrdID           string         `json:"ordId"`
	UserID          string         `json:"userId" validate:"required"`
	Items           []OrderItem    `json:"items" validate:"required,min=1,dive"`
	Total           int64          `json:"total" validate:"gte=0"`
	Currency        string         `json:"currency" validate:"required,len=3"`
	ShippingAddress Address        `json:"shippingAddress"`
	PaymentID       string         `json:"paymentId,omitempty"`
	Notes           string         `json:"notes,omitempty"`
	Status          Status         `json:"status" validate:"required"`
	StatusHistory   []StatusChange `json:"statusHistory"`
}

// LineTotal returns UnitPrice*Quantity-Discount.
func (i OrderItem) LineTotal() int64 {
	return i.UnitPrice*int64(i.Quantity) - i.Discount
}

// CheckTotals verifies every line total and the order total.
func (o Order) CheckTotals() error {
	return CheckOrderTotals(o.Items, o.Total)
}

// CheckOrderTotals verifies each item's TotalPrice and that total is their sum.
func CheckOrderTotals(items []OrderItem, total int64) error {
	var sum int64
	for i, item := range items {
		if item.TotalPrice != item.LineTotal() {
			return ValidationError("items[%d].totalPrice must equal unitPrice*quantity-discount (%d)", i, item.LineTotal())
		}
		sum += item.TotalPrice
	}
	if total != sum {
		return ValidationError("total must equal the sum of item totals (%d)", sum)
	}
	return nil
}
