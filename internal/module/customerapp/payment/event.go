package payment

// ReconcilePaymentEvent is the deferred-task payload scheduled at payment
// initialization. It triggers a gateway-side verification for payments whose
// webhook may have been missed.
type ReconcilePaymentEvent struct {
	Reference string `json:"reference"`
}
