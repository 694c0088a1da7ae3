package order

import "time"

const (
	StatusPending = "PENDING"
	StatusPaid    = "PAID"
	StatusFailed  = "FAILED"
)

// Order is the durable record of a settled purchase. PaymentReference is the
// gateway's transaction reference and is unique: the same payment event can
// be delivered many times but settles into exactly one order. CustomerID is
// nil for guest checkouts. Amounts are in the minor currency unit.
type Order struct {
	ID               string
	PaymentReference string
	TicketTypeID     string
	EventID          string
	Tier             string
	Quantity         int64
	UnitPrice        int64
	Amount           int64
	CustomerID       *int64
	CustomerEmail    string
	Status           string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
