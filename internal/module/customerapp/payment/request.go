package payment

type InitializePaymentRequest struct {
	TicketTypeID string `json:"ticket_type_id" validate:"required"`
	Quantity     int64  `json:"quantity" validate:"required,min=1,max=10"`
	Email        string `json:"email" validate:"omitempty,email"`
}

type GetManyOrderRequest struct {
	Page int64 `validate:"required,min=1"`
	Size int64 `validate:"required,min=1,max=100"`
}
