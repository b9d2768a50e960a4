package payment

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"content-subscription-platform/internal/domain"
	"content-subscription-platform/internal/domain/ports/adapter"
)

var _ adapter.PaymentGateway = (*NoopGateway)(nil)

// NoopGateway is a stand-in gateway for dev mode: payments are created in
// memory and report "waiting" until MarkFinished is called. Callback
// verification accepts everything.
type NoopGateway struct {
	mu     sync.Mutex
	seq    atomic.Int64
	status map[string]string
}

func NewNoopGateway() *NoopGateway {
	return &NoopGateway{status: make(map[string]string)}
}

func (g *NoopGateway) Name() string { return "noop" }

func (g *NoopGateway) CreatePayment(ctx context.Context, orderID, description string, amount float64, currency, callbackURL string) (adapter.CreatedPayment, error) {
	id := fmt.Sprintf("noop-%d", g.seq.Add(1))
	g.mu.Lock()
	g.status[id] = "waiting"
	g.mu.Unlock()
	return adapter.CreatedPayment{
		PaymentID:  id,
		PayAddress: "noop-address",
		PaymentURL: "https://example.invalid/pay/" + id,
		Status:     "waiting",
	}, nil
}

func (g *NoopGateway) FetchStatus(ctx context.Context, paymentID string) (adapter.StatusReport, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	st, ok := g.status[paymentID]
	if !ok {
		return adapter.StatusReport{}, domain.ErrNotFound
	}
	return adapter.StatusReport{Status: st}, nil
}

func (g *NoopGateway) VerifyCallback(signature string, rawBody []byte) bool { return true }

// MarkFinished flips a fake payment to finished so dev flows can exercise the
// grant path.
func (g *NoopGateway) MarkFinished(paymentID string) {
	g.mu.Lock()
	g.status[paymentID] = "finished"
	g.mu.Unlock()
}
