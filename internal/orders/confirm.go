package orders

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Confirmation is the receiver/delivery/payment payload of the confirm
// step. Empty delivery/payment types fall back to the configured defaults.
type Confirmation struct {
	FullName     string `json:"fullName" validate:"required"`
	Email        string `json:"email" validate:"required,email"`
	Phone        string `json:"phone" validate:"required"`
	City         string `json:"city" validate:"required"`
	Address      string `json:"address" validate:"required"`
	DeliveryType string `json:"deliveryType"`
	PaymentType  string `json:"paymentType"`
}

var (
	confirmationValidate = validator.New()

	fullNamePattern = regexp.MustCompile(`^[a-zA-ZА-Яа-я ]{2,}$`)
	phonePattern    = regexp.MustCompile(`^\+\d{11}$`)
	cityPattern     = regexp.MustCompile(`^[a-zA-ZА-Яа-я ]{3,}$`)
	addressPattern  = regexp.MustCompile(`^[a-zA-ZА-Яа-я0-9,. ]{5,}$`)
)

// Validate normalises the payload in place and reports the first rule the
// data breaks as a business error.
func (c *Confirmation) Validate() error {
	c.FullName = strings.TrimSpace(c.FullName)
	c.Phone = strings.TrimSpace(c.Phone)
	c.City = strings.TrimSpace(c.City)
	c.Address = strings.TrimSpace(c.Address)

	if err := confirmationValidate.Struct(c); err != nil {
		return orderErrorf("invalid confirmation details: %v", err)
	}
	if !fullNamePattern.MatchString(c.FullName) {
		return orderErrorf("full name should contain only letters and space, min word len is 2 letters")
	}
	if !phonePattern.MatchString(c.Phone) {
		return orderErrorf("invalid phone number format, ex. +79876543210")
	}
	if !cityPattern.MatchString(c.City) {
		return orderErrorf("city name %q has unsupported format, it should contain only letters and space", c.City)
	}
	if !addressPattern.MatchString(c.Address) {
		return orderErrorf("address %q has unsupported format, min address length is 5 symbols", c.Address)
	}
	return nil
}
