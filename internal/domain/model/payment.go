package model

import (
	"fmt"
	"strings"
	"time"

	"content-subscription-platform/internal/domain"

	"github.com/google/uuid"
)

type PaymentStatus string

const (
	PaymentStatusPending       PaymentStatus = "pending"        // record created, gateway not yet seen funds
	PaymentStatusWaiting       PaymentStatus = "waiting"        // gateway waiting for the user to pay
	PaymentStatusConfirming    PaymentStatus = "confirming"     // funds seen, confirmations in progress
	PaymentStatusConfirmed     PaymentStatus = "confirmed"      // enough confirmations; qualifies for entitlement
	PaymentStatusSending       PaymentStatus = "sending"        // gateway forwarding funds to merchant
	PaymentStatusPartiallyPaid PaymentStatus = "partially_paid" // paid less than the requested amount
	PaymentStatusFinished      PaymentStatus = "finished"       // settled in full; qualifies for entitlement
	PaymentStatusFailed        PaymentStatus = "failed"
	PaymentStatusRefunded      PaymentStatus = "refunded"
	PaymentStatusExpired       PaymentStatus = "expired"
)

// ParsePaymentStatus maps the gateway's loosely typed status strings onto the
// closed enumeration. Unrecognized values are rejected at the boundary instead
// of being stored.
func ParsePaymentStatus(s string) (PaymentStatus, error) {
	switch st := PaymentStatus(strings.ToLower(strings.TrimSpace(s))); st {
	case PaymentStatusPending, PaymentStatusWaiting, PaymentStatusConfirming,
		PaymentStatusConfirmed, PaymentStatusSending, PaymentStatusPartiallyPaid,
		PaymentStatusFinished, PaymentStatusFailed, PaymentStatusRefunded,
		PaymentStatusExpired:
		return st, nil
	}
	return "", fmt.Errorf("%w: unrecognized gateway status %q", domain.ErrInvalidTransition, s)
}

// IsTerminal reports whether the record is frozen: no further observation may
// mutate it. "failed" is deliberately not terminal so that a later legitimate
// confirmation for the same gateway id can still correct it.
func (s PaymentStatus) IsTerminal() bool {
	switch s {
	case PaymentStatusFinished, PaymentStatusRefunded, PaymentStatusExpired:
		return true
	}
	return false
}

// IsQualifying reports whether the status grants entitlement.
func (s PaymentStatus) IsQualifying() bool {
	return s == PaymentStatusFinished || s == PaymentStatusConfirmed
}

// PaymentRecord is the durable record of a single checkout attempt and its
// last known gateway status. Records are created once per attempt, mutated
// only by the reconciliation engine, and never deleted.
type PaymentRecord struct {
	ID         string // UUID, internal
	GatewayID  string // assigned by the gateway; unique, immutable once set
	UserID     string // UUID of the buying user
	Plan       Tier
	Amount     float64 // requested price, immutable
	Currency   string  // requested price currency, immutable
	OrderID    string  // our order reference sent to the gateway
	PayAddress string  // crypto address the user pays to
	PaymentURL string  // hosted checkout page

	Status       PaymentStatus
	ActuallyPaid float64 // observed paid amount; monotonically non-decreasing

	CreatedAt   time.Time
	UpdatedAt   time.Time
	ConfirmedAt *time.Time // set exactly once on the first qualifying transition; never cleared
}

// NewPaymentRecord validates and constructs a pending record for a checkout attempt.
func NewPaymentRecord(userID string, plan Tier, amount float64, currency string) (*PaymentRecord, error) {
	if userID == "" || currency == "" || amount <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	if plan == TierNone {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &PaymentRecord{
		ID:        uuid.NewString(),
		UserID:    userID,
		Plan:      plan,
		Amount:    amount,
		Currency:  currency,
		Status:    PaymentStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}
