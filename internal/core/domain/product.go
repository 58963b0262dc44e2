package domain

// Product is a catalogue item sold by a vendor. Prices are in minor currency units.
type Product struct {
	Document
	Slug        string   `json:"slug"`
	VendorID    string   `json:"vendorId" validate:"required"`
	Name        string   `json:"name" validate:"required,min=2,max=200"`
	Description string   `json:"description,omitempty" validate:"max=5000"`
	Category    string   `json:"category,omitempty"`
	Price       int64    `json:"price" validate:"gte=0"`
	Currency    string   `json:"currency" validate:"required,len=3"`
	Stock       int      `json:"stock" validate:"gte=0"`
	Images      []string `json:"images"`
	IsActive    bool     `json:"isActive"`
}
