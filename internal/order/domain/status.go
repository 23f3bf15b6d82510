package domain

// Status is the fulfilment state of an order
type Status string

// Order statuses
const (
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
	StatusReturned   Status = "returned"
)

// transitions is the complete set of status changes an operator may request.
// confirmed is only entered through payment confirmation.
var transitions = map[Status][]Status{
	StatusPending:    {StatusProcessing, StatusCancelled},
	StatusConfirmed:  {StatusProcessing, StatusCancelled},
	StatusProcessing: {StatusShipped, StatusCancelled},
	StatusShipped:    {StatusDelivered, StatusReturned},
	StatusDelivered:  {StatusReturned},
	StatusCancelled:  {},
	StatusReturned:   {StatusProcessing},
}

// Statuses lists every order status
func Statuses() []Status {
	return []Status{
		StatusPending, StatusConfirmed, StatusProcessing, StatusShipped,
		StatusDelivered, StatusCancelled, StatusReturned,
	}
}

// IsValid reports whether s is a known status
func (s Status) IsValid() bool {
	_, ok := transitions[s]
	return ok
}

// NextStatuses returns the statuses reachable from s in one step
func NextStatuses(s Status) []Status {
	return append([]Status(nil), transitions[s]...)
}

// CanTransition reports whether the table allows from -> to
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// PaymentStatus is the payment state of an order. It is independent of Status.
type PaymentStatus string

// Payment statuses. completed and paid are synonyms: the admin path writes
// completed, the gateway path writes paid.
const (
	PaymentPending   PaymentStatus = "pending"
	PaymentPaid      PaymentStatus = "paid"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentRefunded  PaymentStatus = "refunded"
)

// IsValid reports whether p is a known payment status
func (p PaymentStatus) IsValid() bool {
	switch p {
	case PaymentPending, PaymentPaid, PaymentCompleted, PaymentFailed, PaymentRefunded:
		return true
	}
	return false
}

// IsSettled reports whether money has been captured
func (p PaymentStatus) IsSettled() bool {
	return p == PaymentPaid || p == PaymentCompleted
}
