package domain

// User is a customer or staff account.
type User struct {
	Document
	CustID       string   `json:"custId"`
	FirstName    string   `json:"firstName" validate:"required,max=100"`
	LastName     string   `json:"lastName" validate:"required,max=100"`
	Email        string   `json:"email" validate:"required,email"`
	Phone        string   `json:"phone,omitempty"`
	PasswordHash string   `json:"passwordHash,omitempty"`
	Roles        []string `json:"roles"`
	IsActive     bool     `json:"isActive"`
	Address      *Address `json:"address,omitempty"`
}

// Public returns a copy without credential material.
func (u User) Public() User {
	u.PasswordHash = ""
	return u
}
