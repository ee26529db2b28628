package payment

const (
	EventChargeRequested = "ChargeRequested"
	EventPaymentResult   = "PaymentResult"
)

const (
	TopicChargeRequest = "order.payment.charge"
	TopicPaymentResult = "order.payment.result"
)

// ChargeRequestedPayload is the unit of work one charge attempt runs on.
// Exactly one result is published per payload consumed.
type ChargeRequestedPayload struct {
	OrderID     string  `json:"order_id"`
	Number      string  `json:"number"`
	Name        string  `json:"name"`
	Month       int     `json:"month"`
	Year        int     `json:"year"`
	Code        string  `json:"code"`
	ChargePrice float64 `json:"charge_price"`
}

type ResultDetails struct {
	Msg string `json:"msg"`
}

type PaymentResultPayload struct {
	OrderID     string        `json:"order_id"`
	OrderStatus string        `json:"order_status"` // payed | payment_rejected
	Details     ResultDetails `json:"details"`
}

// BankRequest is the decrypted body POSTed to the bank.
type BankRequest struct {
	Number      string  `json:"number"`
	Name        string  `json:"name"`
	Month       int     `json:"month"`
	Year        int     `json:"year"`
	Code        string  `json:"code"`
	ChargePrice float64 `json:"charge_price"`
}

// BankResponse is the decrypted body the bank replies with.
type BankResponse struct {
	Msg string `json:"msg"`
}
