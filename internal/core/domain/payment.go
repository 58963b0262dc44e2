package domain

// Payment records money collected for an order.
type Payment struct {
	Document
	PaymentID       string         `json:"paymentId"`
	OrderID         string         `json:"orderId" validate:"required"`
	UserID          string         `json:"userId" validate:"required"`
	PaymentMethodID string         `json:"paymentMethodId,omitempty"`
	Amount          int64          `json:"amount" validate:"gte=0"`
	Currency        string         `json:"currency" validate:"required,len=3"`
	TransactionRef  string         `json:"transactionRef,omitempty"`
	Status          Status         `json:"status" validate:"required"`
	StatusHistory   []StatusChange `json:"statusHistory"`
}

// PaymentMethodType enumerates stored instrument kinds.
type PaymentMethodType string

const (
	PaymentMethodCard         PaymentMethodType = "card"
	PaymentMethodBankTransfer PaymentMethodType = "bank_transfer"
	PaymentMethodWallet       PaymentMethodType = "wallet"
	PaymentMethodCash         PaymentMethodType = "cash_on_delivery"
)

// PaymentMethod is a saved instrument belonging to a user.
type PaymentMethod struct {
	Document
	UserID    string            `json:"userId" validate:"required"`
	Type      PaymentMethodType `json:"type" validate:"required,oneof=card bank_transfer wallet cash_on_delivery"`
	Provider  string            `json:"provider,omitempty"`
	Last4     string            `json:"last4,omitempty" validate:"omitempty,len=4,numeric"`
	ExpMonth  int               `json:"expMonth,omitempty" validate:"omitempty,min=1,max=12"`
	ExpYear   int               `json:"expYear,omitempty" validate:"omitempty,min=2000"`
	IsDefault bool              `json:"isDefault"`
}
