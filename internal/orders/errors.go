package orders

import "fmt"

// OrderError marks a business-rule failure: the transaction was rolled
// back, the caller gets a 4xx, nothing needs operator attention.
type OrderError struct {
	Msg string
}

func (e *OrderError) Error() string { return e.Msg }

func orderErrorf(format string, args ...any) *OrderError {
	return &OrderError{Msg: fmt.Sprintf(format, args...)}
}

var ErrEmptyOrder = &OrderError{Msg: "order should include at least 1 product"}

type NotFoundError struct {
	OrderID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("order %s does not exist", e.OrderID)
}
