package paystack

const (
	EventChargeSuccess = "charge.success"

	TransactionStatusSuccess   = "success"
	TransactionStatusFailed    = "failed"
	TransactionStatusAbandoned = "abandoned"
)

// ChargeMetadata is attached at payment initialization and echoed back by
// the gateway on webhooks and verification. Settlement trusts these fields,
// never the buyer-controlled ones.
type ChargeMetadata struct {
	TicketTypeID string `json:"ticket_type_id"`
	EventID      string `json:"event_id"`
	Quantity     int64  `json:"quantity"`
	UnitPrice    int64  `json:"unit_price"`
	CustomerID   *int64 `json:"customer_id,omitempty"`
	CustomerName string `json:"customer_name,omitempty"`
}

type InitializeRequest struct {
	Email       string         `json:"email"`
	Amount      int64          `json:"amount"`
	Currency    string         `json:"currency"`
	Reference   string         `json:"reference"`
	CallbackURL string         `json:"callback_url,omitempty"`
	Channels    []string       `json:"channels,omitempty"`
	Metadata    ChargeMetadata `json:"metadata"`
}

type InitializeData struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

type initializeResponse struct {
	Status  bool           `json:"status"`
	Message string         `json:"message"`
	Data    InitializeData `json:"data"`
}

// Transaction is the gateway's view of a charge, as delivered on webhooks
// and returned by the verify endpoint.
type Transaction struct {
	ID        int64          `json:"id"`
	Status    string         `json:"status"`
	Reference string         `json:"reference"`
	Amount    int64          `json:"amount"`
	Currency  string         `json:"currency"`
	PaidAt    string         `json:"paid_at"`
	Channel   string         `json:"channel"`
	Metadata  ChargeMetadata `json:"metadata"`
	Customer  struct {
		Email string `json:"email"`
	} `json:"customer"`
}

type verifyResponse struct {
	Status  bool        `json:"status"`
	Message string      `json:"message"`
	Data    Transaction `json:"data"`
}

// WebhookEvent is the raw-body-signed payload delivered to the webhook
// endpoint.
type WebhookEvent struct {
	Event string      `json:"event"`
	Data  Transaction `json:"data"`
}
