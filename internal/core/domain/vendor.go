package domain

// Vendor is a store owned by one user.
type Vendor struct {
	Document
	VendID      string `json:"vendId"`
	UserID      string `json:"userId" validate:"required"`
	StoreName   string `json:"storeName" validate:"required,min=2,max=120"`
	Description string `json:"description,omitempty" validate:"max=2000"`
	Email       string `json:"email,omitempty" validate:"omitempty,email"`
	Phone       string `json:"phone,omitempty"`
	Logo        string `json:"logo,omitempty" validate:"omitempty,url"`
	IsVerified  bool   `json:"isVerified"`
	IsActive    bool   `json:"isActive"`
}
