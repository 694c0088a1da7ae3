package ticket

import "time"

// TicketType is the inventory unit. Price is in the minor currency unit.
// Remaining stock is quantity - sold; sold only ever grows, and only through
// settlement.
type TicketType struct {
	ID              string
	EventID         string
	Tier            string
	Price           int64
	Quantity        int64
	Sold            int64
	OnSaleFrom      time.Time
	OnSaleUntil     time.Time
	LastStockUpdate time.Time
}

func (t TicketType) Remaining() int64 {
	return t.Quantity - t.Sold
}
