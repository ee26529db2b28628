package orders

type Status string

const (
	StatusCreated           Status = "created"
	StatusConfirmed         Status = "confirmed"
	StatusPaymentInProgress Status = "payment_in_progress"
	StatusPayed             Status = "payed"
	StatusPaymentRejected   Status = "payment_rejected"
)

// A rejected payment is terminal for the attempt, not for the order: it may
// re-enter payment_in_progress through a new pay call.
var validNext = map[Status]map[Status]bool{
	StatusCreated:           {StatusConfirmed: true},
	StatusConfirmed:         {StatusPaymentInProgress: true},
	StatusPaymentInProgress: {StatusPayed: true, StatusPaymentRejected: true},
	StatusPaymentRejected:   {StatusPaymentInProgress: true},
	StatusPayed:             {},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

func (s Status) Terminal() bool {
	return s == StatusPayed || s == StatusPaymentRejected
}

func (s Status) Valid() bool {
	_, ok := validNext[s]
	return ok
}
