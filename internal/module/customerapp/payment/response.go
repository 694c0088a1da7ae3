package payment

import (
	"time"

	"github.com/KendrickOdei/fastTix-sub000/internal/module/customerapp/order"
)

type InitializePaymentResponse struct {
	AuthorizationURL string `json:"authorization_url"`
	Reference        string `json:"reference"`
	Amount           int64  `json:"amount"`
	Currency         string `json:"currency"`
}

type OrderResponse struct {
	ID               string    `json:"id"`
	PaymentReference string    `json:"payment_reference"`
	TicketTypeID     string    `json:"ticket_type_id"`
	EventID          string    `json:"event_id"`
	Tier             string    `json:"tier"`
	Quantity         int64     `json:"quantity"`
	UnitPrice        int64     `json:"unit_price"`
	Amount           int64     `json:"amount"`
	CustomerID       *int64    `json:"customer_id"`
	CustomerEmail    string    `json:"customer_email"`
	Status           string    `json:"status"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (r *OrderResponse) PopulateFromEntity(o order.Order) {
	r.ID = o.ID
	r.PaymentReference = o.PaymentReference
	r.TicketTypeID = o.TicketTypeID
	r.EventID = o.EventID
	r.Tier = o.Tier
	r.Quantity = o.Quantity
	r.UnitPrice = o.UnitPrice
	r.Amount = o.Amount
	r.CustomerID = o.CustomerID
	r.CustomerEmail = o.CustomerEmail
	r.Status = o.Status
	r.CreatedAt = o.CreatedAt
	r.UpdatedAt = o.UpdatedAt
}

type GetManyOrderResponse []OrderResponse

type GetManyOrderMeta struct {
	Page  int64 `json:"page"`
	Size  int64 `json:"size"`
	Total int64 `json:"total"`
}
