package orders

import (
	"time"

	"github.com/shopspring/decimal"
)

type Order struct {
	ID             string           `json:"id"`
	UserID         string           `json:"user_id"`
	Status         Status           `json:"status"`
	ProductsCost   decimal.Decimal  `json:"products_cost"`
	DeliveryCost   *decimal.Decimal `json:"delivery_cost,omitempty"`
	TotalCost      decimal.Decimal  `json:"total_cost"`
	ReceiverName   *string          `json:"receiver_name,omitempty"`
	ReceiverEmail  *string          `json:"receiver_email,omitempty"`
	ReceiverPhone  *string          `json:"receiver_phone,omitempty"`
	City           *string          `json:"city,omitempty"`
	Address        *string          `json:"address,omitempty"`
	DeliveryType   *string          `json:"delivery_type,omitempty"`
	PaymentType    *string          `json:"payment_type,omitempty"`
	PaymentComment *string          `json:"payment_comment,omitempty"`
	IsActive       bool             `json:"is_active"`
	CreatedAt      time.Time        `json:"created_at"`
	Lines          []Line           `json:"products,omitempty"`
}

// Line is one product's quantity and price snapshot inside an order.
// The snapshot is immutable except through explicit line edits.
type Line struct {
	ProductID     string          `json:"product_id"`
	Title         string          `json:"title"`
	TotalQuantity int             `json:"total_quantity"`
	TotalPrice    decimal.Decimal `json:"total_price"`
}

// InitLine carries a basket line into order creation.
type InitLine struct {
	ProductID string
	Qty       int
	UnitPrice decimal.Decimal
}

type DeliveryType struct {
	ID               int
	Name             string
	Price            decimal.Decimal
	FreeDeliveryOver *decimal.Decimal
}

type PaymentType struct {
	ID   int
	Name string
}
