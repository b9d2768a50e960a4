package adapter

import "context"

// CreatedPayment is the gateway's response to a payment request.
type CreatedPayment struct {
	PaymentID   string // gateway-assigned id, used for all later status lookups
	PayAddress  string // crypto address the user pays to
	PayCurrency string
	PayAmount   float64
	PaymentURL  string // hosted checkout page
	Status      string // raw gateway status string
}

// StatusReport is the gateway's answer to a status fetch.
type StatusReport struct {
	Status       string // raw gateway status string
	ActuallyPaid float64
}

// PaymentGateway is the hex port for the payment processor. Implementations
// hold no state beyond credentials; every call is a single outbound request
// bounded by the caller's context.
type PaymentGateway interface {
	Name() string

	// CreatePayment opens a payment intent with the processor.
	CreatePayment(ctx context.Context, orderID, description string, amount float64, currency, callbackURL string) (CreatedPayment, error)

	// FetchStatus pulls the current status of a payment by gateway id.
	FetchStatus(ctx context.Context, paymentID string) (StatusReport, error)

	// VerifyCallback recomputes the keyed MAC over the exact raw callback body
	// and compares it to the supplied signature in constant time. Pure; never
	// touches the network.
	VerifyCallback(signature string, rawBody []byte) bool
}
