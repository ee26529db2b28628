package payment

import (
	"regexp"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	cardNumberLength = 16
	cvvCodeLength    = 3
)

// Card is the payment payload shared with the bank service. Validation is
// pure; no network call happens until the charge task runs.
type Card struct {
	Number string `json:"number" validate:"required,number"`
	Name   string `json:"name" validate:"required"`
	Month  int    `json:"month" validate:"required,min=1,max=12"`
	Year   int    `json:"year" validate:"required,min=0"`
	Code   string `json:"code" validate:"required,number"`
}

type CardError struct {
	Msg string
}

func (e *CardError) Error() string { return e.Msg }

var (
	cardValidate      = validator.New()
	holderNamePattern = regexp.MustCompile(`^[a-zA-ZА-Яа-я ]{2,}$`)
)

// Validate checks the card fields and normalises a four-digit expiry year
// to its two-digit form.
func (c *Card) Validate() error {
	if err := cardValidate.Struct(c); err != nil {
		return &CardError{Msg: "invalid payment details"}
	}
	if len(c.Number) != cardNumberLength {
		return &CardError{Msg: "card number must be 16 digits long"}
	}
	if len(c.Code) != cvvCodeLength {
		return &CardError{Msg: "CVV code must be 3 digits long"}
	}
	if !holderNamePattern.MatchString(c.Name) {
		return &CardError{Msg: "cardholder name should contain only letters and space"}
	}

	currentYear := time.Now().Year() % 2000
	year := c.Year
	if year >= 100 {
		year %= 2000
	}
	if year < currentYear {
		return &CardError{Msg: "card is expired"}
	}
	c.Year = year
	return nil
}
