package valueobject

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// Address is a value object representing a shipping address.
// It is immutable - orders store a copy taken at creation time, never a
// reference to the user's current address.
type Address struct {
	recipient  string
	street     string
	city       string
	state      string
	postalCode string
	country    string
	phone      string
}

// AddressOption is a functional option for configuring Address
type AddressOption func(*Address)

// WithCountry sets the country for the address
func WithCountry(country string) AddressOption {
	return func(a *Address) {
		a.country = strings.TrimSpace(country)
	}
}

// WithPhone sets the contact phone number for the address
func WithPhone(phone string) AddressOption {
	return func(a *Address) {
		a.phone = strings.TrimSpace(phone)
	}
}

// NewAddress creates a new Address with the required fields.
// Recipient, street, city, state and postal code are required.
func NewAddress(recipient, street, city, state, postalCode string, opts ...AddressOption) (Address, error) {
	recipient = strings.TrimSpace(recipient)
	street = strings.TrimSpace(street)
	city = strings.TrimSpace(city)
	state = strings.TrimSpace(state)
	postalCode = strings.TrimSpace(postalCode)

	if recipient == "" || len(recipient) > 200 {
		return Address{}, fmt.Errorf("recipient is required and cannot exceed 200 characters")
	}
	if street == "" || len(street) > 500 {
		return Address{}, fmt.Errorf("street is required and cannot exceed 500 characters")
	}
	if city == "" || len(city) > 100 {
		return Address{}, fmt.Errorf("city is required and cannot exceed 100 characters")
	}
	if state == "" || len(state) > 100 {
		return Address{}, fmt.Errorf("state is required and cannot exceed 100 characters")
	}
	if postalCode == "" || len(postalCode) > 20 {
		return Address{}, fmt.Errorf("postal code is required and cannot exceed 20 characters")
	}

	addr := Address{
		recipient:  recipient,
		street:     street,
		city:       city,
		state:      state,
		postalCode: postalCode,
		country:    "India",
	}

	for _, opt := range opts {
		opt(&addr)
	}

	if addr.country == "" || len(addr.country) > 100 {
		return Address{}, fmt.Errorf("country is required and cannot exceed 100 characters")
	}
	if len(addr.phone) > 20 {
		return Address{}, fmt.Errorf("phone cannot exceed 20 characters")
	}

	return addr, nil
}

// Recipient returns the recipient name
func (a Address) Recipient() string { return a.recipient }

// Street returns the street line
func (a Address) Street() string { return a.street }

// City returns the city
func (a Address) City() string { return a.city }

// State returns the state or province
func (a Address) State() string { return a.state }

// PostalCode returns the postal code
func (a Address) PostalCode() string { return a.postalCode }

// Country returns the country
func (a Address) Country() string { return a.country }

// Phone returns the contact phone number
func (a Address) Phone() string { return a.phone }

// IsZero returns true for the zero-value address
func (a Address) IsZero() bool {
	return a == Address{}
}

// String returns a single-line representation suitable for labels
func (a Address) String() string {
	parts := []string{a.recipient, a.street, a.city, a.state, a.postalCode, a.country}
	nonEmpty := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, ", ")
}

// addressJSON is the serialized form used for persistence and transport
type addressJSON struct {
	Recipient  string `json:"recipient"`
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
	Phone      string `json:"phone,omitempty"`
}

// MarshalJSON implements json.Marshaler
func (a Address) MarshalJSON() ([]byte, error) {
	return json.Marshal(addressJSON{
		Recipient:  a.recipient,
		Street:     a.street,
		City:       a.city,
		State:      a.state,
		PostalCode: a.postalCode,
		Country:    a.country,
		Phone:      a.phone,
	})
}

// UnmarshalJSON implements json.Unmarshaler
func (a *Address) UnmarshalJSON(data []byte) error {
	var aj addressJSON
	if err := json.Unmarshal(data, &aj); err != nil {
		return err
	}
	a.recipient = aj.Recipient
	a.street = aj.Street
	a.city = aj.City
	a.state = aj.State
	a.postalCode = aj.PostalCode
	a.country = aj.Country
	a.phone = aj.Phone
	return nil
}

// Value implements driver.Valuer for database storage (JSON column)
func (a Address) Value() (driver.Value, error) {
	b, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner for database retrieval
func (a *Address) Scan(value interface{}) error {
	if value == nil {
		*a = Address{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, a)
	case string:
		return json.Unmarshal([]byte(v), a)
	default:
		return fmt.Errorf("cannot scan %T into Address", value)
	}
}
